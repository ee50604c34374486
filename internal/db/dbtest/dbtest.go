// Package dbtest connects tests to real stores. Tests are skipped unless
// TEST_DATABASE_URL, TEST_MONGO_URI or TEST_REDIS_ADDR point at a reachable
// server.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vasiliy-maslov/table-order/internal/config"
	"github.com/vasiliy-maslov/table-order/internal/db"
)

// Postgres returns a migrated, emptied database.
func Postgres(t *testing.T) *db.Postgres {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := db.NewPostgres(ctx, config.PostgresConfig{URL: url, MaxConns: 4, ConnectRetries: 1})
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(pg.Close)

	if err := pg.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	truncate := func() {
		_, err := pg.Pool.Exec(context.Background(), "TRUNCATE TABLE order_items, orders, menu_items, admin_users")
		if err != nil {
			t.Fatalf("failed to truncate tables: %v", err)
		}
	}
	truncate()
	t.Cleanup(truncate)

	return pg
}

// Mongo returns a throwaway database that is dropped after the test.
func Mongo(t *testing.T) *db.Mongo {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name := "table_order_test_" + db.NewID()[12:]
	m, err := db.NewMongo(ctx, config.MongoConfig{URI: uri, Database: name})
	if err != nil {
		t.Skipf("mongodb unavailable: %v", err)
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		t.Fatalf("failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = m.DB.Drop(ctx)
		_ = m.Close(ctx)
	})
	return m
}

func Redis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := db.NewRedis(ctx, config.RedisConfig{Addr: addr})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
