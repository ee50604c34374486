package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/table-order/internal/auth"
	"github.com/vasiliy-maslov/table-order/internal/db"
	"github.com/vasiliy-maslov/table-order/internal/db/dbtest"
)

func TestPostgresRepository(t *testing.T) {
	pg := dbtest.Postgres(t)
	testRepository(t, auth.NewRepository(pg.Pool))
}

func TestMongoRepository(t *testing.T) {
	m := dbtest.Mongo(t)
	testRepository(t, auth.NewMongoRepository(m.DB))
}

func testRepository(t *testing.T, repo auth.Repository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	email := "chef@example.com"

	u := &auth.AdminUser{
		ID: db.NewID(), UserID: "chef", DisplayName: "Head Chef", Email: &email,
		Role: auth.RoleManager, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByUserID(ctx, "chef")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.PasswordHash)
	require.NotNil(t, got.Email)
	assert.Equal(t, email, *got.Email)
	assert.Nil(t, got.Phone)

	require.NoError(t, repo.SetPassword(ctx, u.ID, "$2a$10$hash", now.Add(time.Minute)))

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)
	assert.WithinDuration(t, now.Add(time.Minute), got.UpdatedAt, time.Millisecond)

	dup := *u
	dup.ID = db.NewID()
	assert.ErrorIs(t, repo.Create(ctx, &dup), db.ErrConflict)

	_, err = repo.GetByUserID(ctx, "nobody")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, repo.SetPassword(ctx, db.NewID(), "x", now), auth.ErrNotFound)
}
