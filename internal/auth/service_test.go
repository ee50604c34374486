package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/table-order/internal/auth"
	"github.com/vasiliy-maslov/table-order/internal/db"
	"github.com/vasiliy-maslov/table-order/internal/validate"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByUserID(ctx context.Context, userID string) (*auth.AdminUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.AdminUser), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*auth.AdminUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.AdminUser), args.Error(1)
}

func (m *MockRepository) SetPassword(ctx context.Context, id, hash string, at time.Time) error {
	return m.Called(ctx, id, hash, at).Error(0)
}

func (m *MockRepository) Create(ctx context.Context, u *auth.AdminUser) error {
	return m.Called(ctx, u).Error(0)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func adminUser(t *testing.T, role auth.Role) *auth.AdminUser {
	return &auth.AdminUser{
		ID:           db.NewID(),
		UserID:       "chef",
		DisplayName:  "Head Chef",
		PasswordHash: hashOf(t, "s3cret!"),
		Role:         role,
		IsActive:     true,
	}
}

func newService(repo auth.Repository) auth.Service {
	return auth.NewService(repo, auth.NewTokens("test-secret", time.Hour))
}

func TestService_Login(t *testing.T) {
	inactive := adminUser(t, auth.RoleAdmin)
	inactive.IsActive = false
	noPassword := adminUser(t, auth.RoleManager)
	noPassword.PasswordHash = ""

	tests := []struct {
		name      string
		user      *auth.AdminUser
		repoErr   error
		password  string
		wantErrIs error
	}{
		{name: "unknown user", repoErr: auth.ErrNotFound, password: "s3cret!", wantErrIs: auth.ErrInvalidCredentials},
		{name: "wrong password", user: adminUser(t, auth.RoleAdmin), password: "nope", wantErrIs: auth.ErrInvalidCredentials},
		{name: "inactive", user: inactive, password: "s3cret!", wantErrIs: auth.ErrInactive},
		{name: "customer role", user: adminUser(t, "Customer"), password: "s3cret!", wantErrIs: auth.ErrForbidden},
		{name: "password never set", user: noPassword, password: "s3cret!", wantErrIs: auth.ErrPasswordNotSet},
		{name: "store down", repoErr: db.ErrUnavailable, password: "s3cret!", wantErrIs: db.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.user != nil {
				repo.On("GetByUserID", mock.Anything, "chef").Return(tt.user, nil).Once()
			} else {
				repo.On("GetByUserID", mock.Anything, "chef").Return(nil, tt.repoErr).Once()
			}

			session, err := newService(repo).Login(context.Background(), " chef ", tt.password)
			assert.Nil(t, session)
			assert.ErrorIs(t, err, tt.wantErrIs)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Login_UnknownAndWrongPasswordLookTheSame(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByUserID", mock.Anything, "ghost").Return(nil, auth.ErrNotFound).Once()
	repo.On("GetByUserID", mock.Anything, "chef").Return(adminUser(t, auth.RoleAdmin), nil).Once()
	svc := newService(repo)

	_, errUnknown := svc.Login(context.Background(), "ghost", "whatever")
	_, errWrong := svc.Login(context.Background(), "chef", "whatever")
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestService_Login_MissingFields(t *testing.T) {
	_, err := newService(new(MockRepository)).Login(context.Background(), "", "")
	var mf *validate.MissingFieldsError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, []string{"userId", "password"}, mf.Fields)
}

func TestService_LoginThenVerify(t *testing.T) {
	u := adminUser(t, auth.RoleManager)
	repo := new(MockRepository)
	repo.On("GetByUserID", mock.Anything, "chef").Return(u, nil).Once()
	repo.On("GetByID", mock.Anything, u.ID).Return(u, nil).Once()
	svc := newService(repo)

	session, err := svc.Login(context.Background(), "chef", "s3cret!")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, u, session.User)

	got, err := svc.Verify(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	repo.AssertExpectations(t)
}

func TestService_Verify(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	u := adminUser(t, auth.RoleAdmin)
	token, err := tokens.Issue(u)
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		_, err := newService(new(MockRepository)).Verify(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("user deleted", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", mock.Anything, u.ID).Return(nil, auth.ErrNotFound).Once()
		_, err := newService(repo).Verify(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrUnknownSession)
	})

	t.Run("user deactivated", func(t *testing.T) {
		off := *u
		off.IsActive = false
		repo := new(MockRepository)
		repo.On("GetByID", mock.Anything, u.ID).Return(&off, nil).Once()
		_, err := newService(repo).Verify(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrUnknownSession)
	})
}

func TestService_SetPassword(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		repo := new(MockRepository)
		err := newService(repo).SetPassword(context.Background(), "chef", "12345")
		assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
		repo.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
	})

	t.Run("longer than bcrypt accepts", func(t *testing.T) {
		repo := new(MockRepository)
		err := newService(repo).SetPassword(context.Background(), "chef", strings.Repeat("x", auth.MaxPasswordBytes+1))
		assert.ErrorIs(t, err, auth.ErrPasswordTooLong)
		repo.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
	})

	t.Run("multibyte password at the byte limit", func(t *testing.T) {
		// 24 three-byte runes
		pw := strings.Repeat("パ", 24)
		u := adminUser(t, auth.RoleAdmin)
		repo := new(MockRepository)
		repo.On("GetByUserID", mock.Anything, "chef").Return(u, nil).Once()
		repo.On("SetPassword", mock.Anything, u.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

		require.NoError(t, newService(repo).SetPassword(context.Background(), "chef", pw))
		assert.ErrorIs(t, newService(repo).SetPassword(context.Background(), "chef", pw+"a"), auth.ErrPasswordTooLong)
		repo.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByUserID", mock.Anything, "ghost").Return(nil, auth.ErrNotFound).Once()
		err := newService(repo).SetPassword(context.Background(), "ghost", "123456")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("not an admin", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByUserID", mock.Anything, "chef").Return(adminUser(t, "Staff"), nil).Once()
		err := newService(repo).SetPassword(context.Background(), "chef", "123456")
		assert.ErrorIs(t, err, auth.ErrForbidden)
		repo.AssertNotCalled(t, "SetPassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stores cost 10 hash", func(t *testing.T) {
		u := adminUser(t, auth.RoleAdmin)
		repo := new(MockRepository)
		repo.On("GetByUserID", mock.Anything, "chef").Return(u, nil).Once()
		repo.On("SetPassword", mock.Anything, u.ID, mock.MatchedBy(func(hash string) bool {
			cost, err := bcrypt.Cost([]byte(hash))
			return err == nil && cost == auth.HashCost &&
				bcrypt.CompareHashAndPassword([]byte(hash), []byte("brand-new")) == nil
		}), mock.AnythingOfType("time.Time")).Return(nil).Once()

		require.NoError(t, newService(repo).SetPassword(context.Background(), "chef", "brand-new"))
		repo.AssertExpectations(t)
	})
}

func TestService_CreateAdmin(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *auth.AdminUser) bool {
		return u.UserID == "owner" && u.Role == auth.RoleAdmin && u.IsActive &&
			u.Email != nil && *u.Email == "owner@example.com" && u.Phone == nil &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("letmein")) == nil
	})).Return(nil).Once()

	u, err := newService(repo).CreateAdmin(context.Background(), auth.CreateAdminInput{
		UserID:      " owner ",
		DisplayName: "Owner",
		Email:       "owner@example.com",
		Role:        auth.RoleAdmin,
		Password:    "letmein",
	})
	require.NoError(t, err)
	assert.True(t, db.ValidID(u.ID))
	repo.AssertExpectations(t)
}

func TestService_CreateAdmin_PasswordTooLong(t *testing.T) {
	repo := new(MockRepository)

	_, err := newService(repo).CreateAdmin(context.Background(), auth.CreateAdminInput{
		UserID:      "owner",
		DisplayName: "Owner",
		Role:        auth.RoleAdmin,
		Password:    strings.Repeat("x", 100),
	})
	assert.ErrorIs(t, err, auth.ErrPasswordTooLong)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
