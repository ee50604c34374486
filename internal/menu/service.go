package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/table-order/internal/db"
	"github.com/vasiliy-maslov/table-order/internal/validate"
)

var (
	ErrInvalidID    = errors.New("invalid menu item id")
	ErrInvalidPrice = errors.New("price must be a valid non-negative number")
)

// MaxPrice is the largest amount a NUMERIC(12,2) price or total column holds.
var MaxPrice = decimal.RequireFromString("9999999999.99")

type Service interface {
	List(ctx context.Context) ([]MenuItem, error)
	Get(ctx context.Context, id string) (*MenuItem, error)
	Create(ctx context.Context, in CreateInput) (*MenuItem, error)
	Update(ctx context.Context, id string, in UpdateInput) (*MenuItem, error)
	SoftDelete(ctx context.Context, id string) (*MenuItem, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// ParsePrice accepts a decimal number in text form. Negatives, more than two
// fractional digits and amounts above MaxPrice are rejected.
func ParsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	switch {
	case price.IsNegative():
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	case !price.Equal(price.Truncate(2)):
		return decimal.Decimal{}, fmt.Errorf("%w: %s has more than 2 decimal places", ErrInvalidPrice, price)
	case price.GreaterThan(MaxPrice):
		return decimal.Decimal{}, fmt.Errorf("%w: %s exceeds %s", ErrInvalidPrice, price, MaxPrice)
	}
	return price, nil
}

func (s *service) List(ctx context.Context) ([]MenuItem, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list menu items")
		return nil, fmt.Errorf("service: failed to list menu items: %w", err)
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, id string) (*MenuItem, error) {
	if !db.ValidID(id) {
		return nil, ErrInvalidID
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("menu_item_id", id).Msg("service: menu item not found")
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("menu_item_id", id).Msg("service: failed to get menu item")
		return nil, fmt.Errorf("service: failed to get menu item: %w", err)
	}
	return item, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*MenuItem, error) {
	in.NameEn = strings.TrimSpace(in.NameEn)
	in.NameJp = strings.TrimSpace(in.NameJp)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Category = strings.TrimSpace(in.Category)

	if err := validate.Required(
		"nameEn", in.NameEn,
		"nameJp", in.NameJp,
		"price", in.Price,
		"imageUrl", in.ImageURL,
		"category", in.Category,
	); err != nil {
		return nil, err
	}

	price, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	now := s.now()
	item := &MenuItem{
		ID:          db.NewID(),
		NameEn:      in.NameEn,
		NameJp:      in.NameJp,
		Price:       price,
		ImageURL:    in.ImageURL,
		Category:    in.Category,
		Subcategory: trimOptional(in.Subcategory),
		IsAddon:     in.IsAddon,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}

	if err := s.repo.Create(ctx, item); err != nil {
		log.Error().Err(err).Msg("service: failed to create menu item")
		return nil, fmt.Errorf("service: failed to create menu item: %w", err)
	}

	log.Info().Str("menu_item_id", item.ID).Msg("service: menu item created")
	return item, nil
}

func (s *service) Update(ctx context.Context, id string, in UpdateInput) (*MenuItem, error) {
	if !db.ValidID(id) {
		return nil, ErrInvalidID
	}

	ch := Changes{
		NameEn:    trimOptional(in.NameEn),
		NameJp:    trimOptional(in.NameJp),
		ImageURL:  trimOptional(in.ImageURL),
		Category:  trimOptional(in.Category),
		IsActive:  in.IsActive,
		IsAddon:   in.IsAddon,
		UpdatedAt: s.now(),
	}
	if in.Subcategory != nil {
		sub := strings.TrimSpace(*in.Subcategory)
		ch.Subcategory = &sub
	}
	if in.Price != nil {
		price, err := ParsePrice(*in.Price)
		if err != nil {
			return nil, err
		}
		ch.Price = &price
	}

	item, err := s.repo.Update(ctx, id, ch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("menu_item_id", id).Msg("service: menu item not found, cannot update")
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("menu_item_id", id).Msg("service: failed to update menu item")
		return nil, fmt.Errorf("service: failed to update menu item: %w", err)
	}
	return item, nil
}

func (s *service) SoftDelete(ctx context.Context, id string) (*MenuItem, error) {
	inactive := false
	item, err := s.Update(ctx, id, UpdateInput{IsActive: &inactive})
	if err != nil {
		return nil, err
	}

	log.Info().Str("menu_item_id", id).Msg("service: menu item deactivated")
	return item, nil
}

// trimOptional trims a present value and turns a blank one into nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
