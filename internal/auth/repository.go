package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/table-order/internal/db"
)

var ErrNotFound = errors.New("user not found")

type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*AdminUser, error)
	GetByID(ctx context.Context, id string) (*AdminUser, error)
	SetPassword(ctx context.Context, id, hash string, at time.Time) error
	Create(ctx context.Context, u *AdminUser) error
}

const userColumns = `id, user_id, display_name, email, phone, COALESCE(password, ''), role, is_active, created_at, updated_at`

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{db: pool}
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID string) (*AdminUser, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM admin_users WHERE user_id = $1`, userID)
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*AdminUser, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM admin_users WHERE id = $1`, id)
}

func (r *postgresRepository) SetPassword(ctx context.Context, id, hash string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE admin_users SET password = $1, updated_at = $2 WHERE id = $3`, hash, at, id)
	if err != nil {
		return fmt.Errorf("repository: failed to set password for %s: %w", id, db.TranslatePostgres(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Create(ctx context.Context, u *AdminUser) error {
	query := `
		INSERT INTO admin_users (id, user_id, display_name, email, phone, password, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.UserID,
		u.DisplayName,
		u.Email,
		u.Phone,
		u.PasswordHash,
		string(u.Role),
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert admin user: %w", db.TranslatePostgres(err))
	}
	return nil
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg string) (*AdminUser, error) {
	var (
		u    AdminUser
		role string
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.UserID,
		&u.DisplayName,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get admin user: %w", db.TranslatePostgres(err))
	}
	u.Role = Role(role)
	return &u, nil
}
