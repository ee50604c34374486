package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/table-order/internal/db"
)

var ErrNotFound = errors.New("menu item not found")

type Repository interface {
	ListActive(ctx context.Context) ([]MenuItem, error)
	GetByID(ctx context.Context, id string) (*MenuItem, error)
	GetByIDs(ctx context.Context, ids []string) ([]MenuItem, error)
	Create(ctx context.Context, item *MenuItem) error
	Update(ctx context.Context, id string, ch Changes) (*MenuItem, error)
}

const menuColumns = `id, name_en, name_jp, price::text, image_url, category, subcategory, is_addon, is_active, created_at, updated_at`

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{db: pool}
}

func (r *postgresRepository) ListActive(ctx context.Context) ([]MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_items WHERE is_active ORDER BY created_at DESC`

	return r.queryItems(ctx, query)
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_items WHERE id = $1`

	item, err := scanMenuItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get menu item %s: %w", id, db.TranslatePostgres(err))
	}
	return item, nil
}

func (r *postgresRepository) GetByIDs(ctx context.Context, ids []string) ([]MenuItem, error) {
	if len(ids) == 0 {
		return []MenuItem{}, nil
	}
	query := `SELECT ` + menuColumns + ` FROM menu_items WHERE id = ANY($1)`

	return r.queryItems(ctx, query, ids)
}

func (r *postgresRepository) Create(ctx context.Context, item *MenuItem) error {
	query := `
		INSERT INTO menu_items (id, name_en, name_jp, price, image_url, category, subcategory, is_addon, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.NameEn,
		item.NameJp,
		item.Price.String(),
		item.ImageURL,
		item.Category,
		item.Subcategory,
		item.IsAddon,
		item.IsActive,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert menu item: %w", db.TranslatePostgres(err))
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, id string, ch Changes) (*MenuItem, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if ch.NameEn != nil {
		set("name_en", *ch.NameEn)
	}
	if ch.NameJp != nil {
		set("name_jp", *ch.NameJp)
	}
	if ch.Price != nil {
		args = append(args, ch.Price.String())
		sets = append(sets, fmt.Sprintf("price = $%d::numeric", len(args)))
	}
	if ch.ImageURL != nil {
		set("image_url", *ch.ImageURL)
	}
	if ch.Category != nil {
		set("category", *ch.Category)
	}
	if ch.Subcategory != nil {
		if *ch.Subcategory == "" {
			set("subcategory", nil)
		} else {
			set("subcategory", *ch.Subcategory)
		}
	}
	if ch.IsAddon != nil {
		set("is_addon", *ch.IsAddon)
	}
	if ch.IsActive != nil {
		set("is_active", *ch.IsActive)
	}
	set("updated_at", ch.UpdatedAt)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE menu_items SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), menuColumns)

	item, err := scanMenuItem(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to update menu item %s: %w", id, db.TranslatePostgres(err))
	}
	return item, nil
}

func (r *postgresRepository) queryItems(ctx context.Context, query string, args ...any) ([]MenuItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query menu items: %w", db.TranslatePostgres(err))
	}
	defer rows.Close()

	items := make([]MenuItem, 0)
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan menu item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating menu items: %w", db.TranslatePostgres(err))
	}
	return items, nil
}

func scanMenuItem(row pgx.Row) (*MenuItem, error) {
	var (
		item  MenuItem
		price string
	)
	err := row.Scan(
		&item.ID,
		&item.NameEn,
		&item.NameJp,
		&price,
		&item.ImageURL,
		&item.Category,
		&item.Subcategory,
		&item.IsAddon,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("bad price %q: %w", price, err)
	}
	return &item, nil
}
