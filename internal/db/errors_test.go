package db_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vasiliy-maslov/table-order/internal/db"
)

func TestTranslatePostgres(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name   string
		err    error
		wantIs error
	}{
		{name: "unique_violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, wantIs: db.ErrConflict},
		{name: "foreign_key_violation", err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, wantIs: db.ErrConflict},
		{name: "connection_failure", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, wantIs: db.ErrUnavailable},
		{name: "too_many_connections", err: &pgconn.PgError{Code: pgerrcode.TooManyConnections}, wantIs: db.ErrUnavailable},
		{name: "admin_shutdown", err: &pgconn.PgError{Code: pgerrcode.AdminShutdown}, wantIs: db.ErrUnavailable},
		{name: "numeric_value_out_of_range", err: &pgconn.PgError{Code: pgerrcode.NumericValueOutOfRange}, wantIs: db.ErrInvalidData},
		{name: "check_violation", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, wantIs: db.ErrInvalidData},
		{name: "wrapped_unique_violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation}), wantIs: db.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := db.TranslatePostgres(tt.err)
			assert.ErrorIs(t, got, tt.wantIs)
			assert.ErrorIs(t, got, tt.err, "original error must stay in the chain")
		})
	}

	t.Run("passthrough", func(t *testing.T) {
		assert.NoError(t, db.TranslatePostgres(nil))
		assert.Equal(t, plain, db.TranslatePostgres(plain))
		assert.Equal(t, context.DeadlineExceeded, db.TranslatePostgres(context.DeadlineExceeded))

		syntax := &pgconn.PgError{Code: pgerrcode.SyntaxError}
		got := db.TranslatePostgres(syntax)
		assert.NotErrorIs(t, got, db.ErrConflict)
		assert.NotErrorIs(t, got, db.ErrUnavailable)
	})
}

func TestTranslateMongo(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, db.TranslateMongo(dup), db.ErrConflict)

	assert.ErrorIs(t, db.TranslateMongo(mongo.ErrClientDisconnected), db.ErrUnavailable)

	assert.NoError(t, db.TranslateMongo(nil))
	assert.Equal(t, context.Canceled, db.TranslateMongo(context.Canceled))
	assert.Equal(t, mongo.ErrNoDocuments, db.TranslateMongo(mongo.ErrNoDocuments))
}

func TestValidID(t *testing.T) {
	id := db.NewID()
	assert.Len(t, id, 24)
	assert.True(t, db.ValidID(id))
	assert.False(t, db.ValidID("not-an-id"))
	assert.False(t, db.ValidID(""))
}
