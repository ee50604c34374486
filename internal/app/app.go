// Package app wires stores, services and the HTTP router together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/table-order/internal/auth"
	"github.com/vasiliy-maslov/table-order/internal/config"
	"github.com/vasiliy-maslov/table-order/internal/customer"
	"github.com/vasiliy-maslov/table-order/internal/db"
	apihttp "github.com/vasiliy-maslov/table-order/internal/handler/http"
	"github.com/vasiliy-maslov/table-order/internal/menu"
	"github.com/vasiliy-maslov/table-order/internal/notify"
	"github.com/vasiliy-maslov/table-order/internal/order"
	"github.com/vasiliy-maslov/table-order/internal/payment"
)

// Stores holds the repositories of the configured backend.
type Stores struct {
	Menus  menu.Repository
	Orders order.Repository
	Admins auth.Repository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// OpenStores connects to the backend named by cfg.StorageDriver.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pg, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := pg.Migrate(); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &Stores{
			Menus:  menu.NewRepository(pg.Pool),
			Orders: order.NewRepository(pg.Pool),
			Admins: auth.NewRepository(pg.Pool),
			ping:   pg.Ping,
			close: func(context.Context) error {
				pg.Close()
				return nil
			},
		}, nil

	case config.DriverMongo:
		m, err := db.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			_ = m.Close(context.WithoutCancel(ctx))
			return nil, err
		}
		return &Stores{
			Menus:  menu.NewMongoRepository(m.DB),
			Orders: order.NewMongoRepository(m.DB),
			Admins: auth.NewMongoRepository(m.DB),
			ping:   m.Ping,
			close:  m.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Stores) Close(ctx context.Context) error {
	return s.close(ctx)
}

type App struct {
	Handler http.Handler

	stores *Stores
	redis  *redis.Client
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s stores: %w", cfg.StorageDriver, err)
	}

	rdb, err := db.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = stores.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	var claimer order.KeyClaimer
	if rdb != nil {
		claimer = order.NewRedisClaimer(rdb, order.IdempotencyKeyTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, Idempotency-Key headers are ignored")
	}

	menuSvc := menu.NewService(stores.Menus)
	orderSvc := order.NewService(stores.Orders, stores.Menus, claimer, notify.New(cfg.Line))
	customerSvc := customer.NewService(stores.Orders)
	authSvc := auth.NewService(stores.Admins, auth.NewTokens(cfg.Auth.Secret, cfg.Auth.ExpiresIn))

	handler := apihttp.NewRouter(apihttp.Handlers{
		Health:  apihttp.NewHealthHandler(stores),
		Menu:    apihttp.NewMenuHandler(menuSvc),
		Order:   apihttp.NewOrderHandler(orderSvc),
		User:    apihttp.NewUserHandler(customerSvc),
		Auth:    apihttp.NewAuthHandler(authSvc),
		Payment: apihttp.NewPaymentHandler(payment.NewService(cfg.App.FrontendBaseURL)),
	}, apihttp.RouterConfig{
		Logger:             log.Logger,
		RequestTimeout:     cfg.App.RequestTimeout,
		ExposeErrorDetails: cfg.IsDevelopment(),
	})

	return &App{Handler: handler, stores: stores, redis: rdb}, nil
}

// Close releases every connection, reporting all failures.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if err := a.stores.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close stores: %w", err))
	}
	return errors.Join(errs...)
}
