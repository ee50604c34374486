package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/table-order/internal/db"
	"github.com/vasiliy-maslov/table-order/internal/validate"
)

const (
	HashCost          = 10
	MinPasswordLength = 6
	// MaxPasswordBytes is the most input bcrypt will hash.
	MaxPasswordBytes = 72
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("account is inactive")
	ErrForbidden          = errors.New("admin or manager role required")
	ErrPasswordNotSet     = errors.New("password not set for this account")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes long", MaxPasswordBytes)
	ErrUnknownSession     = errors.New("user not found or inactive")
)

// dummyHash is compared against when the user does not exist so that
// unknown ids and wrong passwords take the same time.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), HashCost)
	return h
})

type Service interface {
	Login(ctx context.Context, userID, password string) (*Session, error)
	Verify(ctx context.Context, token string) (*AdminUser, error)
	SetPassword(ctx context.Context, userID, password string) error
	CreateAdmin(ctx context.Context, in CreateAdminInput) (*AdminUser, error)
}

type service struct {
	repo   Repository
	tokens *Tokens
	now    func() time.Time
}

func NewService(repo Repository, tokens *Tokens) Service {
	return &service{
		repo:   repo,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Login(ctx context.Context, userID, password string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if err := validate.Required("userId", userID, "password", password); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			log.Warn().Str("user_id", userID).Msg("service: login for unknown user")
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Str("user_id", userID).Msg("service: failed to load user for login")
		return nil, fmt.Errorf("service: failed to load user: %w", err)
	}

	if !u.IsActive {
		return nil, ErrInactive
	}
	if !u.Role.CanAdminister() {
		log.Warn().Str("user_id", userID).Str("role", string(u.Role)).Msg("service: login denied for role")
		return nil, ErrForbidden
	}
	if u.PasswordHash == "" {
		return nil, ErrPasswordNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("user_id", userID).Msg("service: wrong password")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("service: failed to issue token")
		return nil, fmt.Errorf("service: %w", err)
	}

	log.Info().Str("user_id", userID).Msg("service: admin logged in")
	return &Session{Token: token, User: u}, nil
}

func (s *service) Verify(ctx context.Context, token string) (*AdminUser, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownSession
		}
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("service: failed to load user for token")
		return nil, fmt.Errorf("service: failed to load user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrUnknownSession
	}
	return u, nil
}

func (s *service) SetPassword(ctx context.Context, userID, password string) error {
	userID = strings.TrimSpace(userID)
	if err := validate.Required("userId", userID, "password", password); err != nil {
		return err
	}
	if err := checkPassword(password); err != nil {
		return err
	}

	u, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to load user: %w", err)
	}
	if !u.Role.CanAdminister() {
		return ErrForbidden
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return fmt.Errorf("service: failed to hash password: %w", err)
	}

	if err := s.repo.SetPassword(ctx, u.ID, string(hash), s.now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Str("user_id", userID).Msg("service: failed to store password")
		return fmt.Errorf("service: failed to set password: %w", err)
	}

	log.Info().Str("user_id", userID).Msg("service: password updated")
	return nil
}

// CreateAdmin provisions an account. An empty password leaves it unset.
func (s *service) CreateAdmin(ctx context.Context, in CreateAdminInput) (*AdminUser, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validate.Required("userId", in.UserID, "displayName", in.DisplayName); err != nil {
		return nil, err
	}

	now := s.now()
	u := &AdminUser{
		ID:          db.NewID(),
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		Email:       optional(in.Email),
		Phone:       optional(in.Phone),
		Role:        in.Role,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.Password != "" {
		if err := checkPassword(in.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), HashCost)
		if err != nil {
			return nil, fmt.Errorf("service: failed to hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("service: failed to create admin user: %w", err)
	}
	return u, nil
}

func checkPassword(password string) error {
	switch {
	case utf8.RuneCountInString(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
