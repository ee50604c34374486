// Package customer derives customer records from order history. Nothing
// here is persisted.
package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/table-order/internal/order"
)

const RoleCustomer = "customer"

var ErrNotFound = errors.New("user not found")

type Customer struct {
	UserID        string
	DisplayName   string
	Role          string
	TotalOrders   int
	TotalSpent    decimal.Decimal
	LastOrderDate time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderSource interface {
	ListSummaries(ctx context.Context, userID string) ([]order.Summary, error)
}

// Aggregate groups summaries by user id. Customers come back in the order
// their first summary appears, and the display name of that summary wins,
// so callers should pass summaries newest first.
func Aggregate(summaries []order.Summary) []Customer {
	index := make(map[string]int)
	customers := make([]Customer, 0)

	for _, s := range summaries {
		i, ok := index[s.UserID]
		if !ok {
			i = len(customers)
			index[s.UserID] = i
			customers = append(customers, Customer{
				UserID:        s.UserID,
				DisplayName:   s.DisplayName,
				Role:          RoleCustomer,
				TotalSpent:    decimal.Zero,
				LastOrderDate: s.CreatedAt,
				IsActive:      true,
				CreatedAt:     s.CreatedAt,
				UpdatedAt:     s.CreatedAt,
			})
		}

		c := &customers[i]
		c.TotalOrders++
		c.TotalSpent = c.TotalSpent.Add(s.Total)
		if s.CreatedAt.After(c.LastOrderDate) {
			c.LastOrderDate = s.CreatedAt
			c.UpdatedAt = s.CreatedAt
		}
		if s.CreatedAt.Before(c.CreatedAt) {
			c.CreatedAt = s.CreatedAt
		}
	}
	return customers
}

type Service interface {
	List(ctx context.Context) ([]Customer, error)
	Get(ctx context.Context, userID string) (*Customer, error)
}

type service struct {
	orders OrderSource
}

func NewService(orders OrderSource) Service {
	return &service{orders: orders}
}

func (s *service) List(ctx context.Context) ([]Customer, error) {
	summaries, err := s.orders.ListSummaries(ctx, "")
	if err != nil {
		log.Error().Err(err).Msg("service: failed to load orders for customers")
		return nil, fmt.Errorf("service: failed to list customers: %w", err)
	}
	return Aggregate(summaries), nil
}

func (s *service) Get(ctx context.Context, userID string) (*Customer, error) {
	if userID == "" {
		return nil, ErrNotFound
	}

	summaries, err := s.orders.ListSummaries(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("service: failed to load orders for customer")
		return nil, fmt.Errorf("service: failed to get customer: %w", err)
	}

	customers := Aggregate(summaries)
	if len(customers) == 0 {
		log.Warn().Str("user_id", userID).Msg("service: customer has no orders")
		return nil, ErrNotFound
	}
	return &customers[0], nil
}
