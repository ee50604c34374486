package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/table-order/internal/db"
)

var ErrNotFound = errors.New("order not found")

type Repository interface {
	// Create stores the order and all of its lines, or nothing.
	Create(ctx context.Context, o *Order) error
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (*Order, error)
	// ListSummaries returns orders newest first, restricted to userID when
	// it is not empty.
	ListSummaries(ctx context.Context, userID string) ([]Summary, error)
}

const orderColumns = `id, order_code, user_id, display_name, table_number, payment_method, total::text, status, created_at, updated_at`

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{db: pool}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", db.TranslatePostgres(err))
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Str("order_id", o.ID).Msg("Panic recovered during order create, rolling back")
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				log.Error().Err(rbErr).Str("order_id", o.ID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Str("order_id", o.ID).Msg("Transaction for order create failed, rolling back")
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				log.Error().Err(rbErr).Str("order_id", o.ID).Msg("Failed to rollback transaction")
			}
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error().Err(commitErr).Str("order_id", o.ID).Msg("Failed to commit transaction")
			err = fmt.Errorf("repository: failed to commit transaction: %w", db.TranslatePostgres(commitErr))
		}
	}()

	var payment *string
	if o.PaymentMethod != nil {
		pm := string(*o.PaymentMethod)
		payment = &pm
	}

	queryOrder := `
		INSERT INTO orders (id, order_code, user_id, display_name, table_number, payment_method, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.ID,
		o.Code,
		o.UserID,
		o.DisplayName,
		o.TableNumber,
		payment,
		o.Total.String(),
		string(o.Status),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", db.TranslatePostgres(err))
	}

	queryLine := `
		INSERT INTO order_items (id, order_id, item_id, name, quantity, price, parent_item_id, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
	`
	for i := range o.Lines {
		line := &o.Lines[i]
		_, err = tx.Exec(ctx, queryLine,
			line.ID,
			o.ID,
			line.ItemID,
			line.Name,
			line.Quantity,
			line.Price.String(),
			line.ParentItemID,
			i,
			line.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, db.TranslatePostgres(err))
		}
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", db.TranslatePostgres(err))
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", db.TranslatePostgres(err))
	}

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	return r.getOne(ctx, query, id)
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (*Order, error) {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 RETURNING ` + orderColumns

	return r.getOne(ctx, query, string(status), at, id)
}

func (r *postgresRepository) ListSummaries(ctx context.Context, userID string) ([]Summary, error) {
	query := `SELECT user_id, display_name, total::text, created_at FROM orders`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order summaries: %w", db.TranslatePostgres(err))
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var (
			s     Summary
			total string
		)
		if err := rows.Scan(&s.UserID, &s.DisplayName, &total, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order summary: %w", err)
		}
		if s.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("repository: bad order total %q: %w", total, err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order summaries: %w", db.TranslatePostgres(err))
	}
	return summaries, nil
}

func (r *postgresRepository) getOne(ctx context.Context, query string, args ...any) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get order: %w", db.TranslatePostgres(err))
	}

	orders := []Order{*o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// attachLines loads the lines of all given orders with one query.
func (r *postgresRepository) attachLines(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		orders[i].Lines = []Line{}
		byID[orders[i].ID] = &orders[i]
	}

	query := `
		SELECT id, order_id, item_id, name, quantity, price::text, parent_item_id, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", db.TranslatePostgres(err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line  Line
			price string
		)
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ItemID,
			&line.Name,
			&line.Quantity,
			&price,
			&line.ParentItemID,
			&line.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		if line.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("repository: bad order item price %q: %w", price, err)
		}

		if o, ok := byID[line.OrderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating order items: %w", db.TranslatePostgres(err))
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o       Order
		payment *string
		total   string
		status  string
	)
	err := row.Scan(
		&o.ID,
		&o.Code,
		&o.UserID,
		&o.DisplayName,
		&o.TableNumber,
		&payment,
		&total,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if payment != nil {
		pm := PaymentMethod(*payment)
		o.PaymentMethod = &pm
	}
	o.Status = Status(status)
	o.Total, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("bad order total %q: %w", total, err)
	}
	return &o, nil
}
