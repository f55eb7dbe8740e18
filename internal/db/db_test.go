package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sbilibin2017/gw-identity/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock, *int) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	opened := 0
	r := NewRegistry()
	r.open = func(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
		opened++
		assert.Equal(t, "pgx", driver)
		assert.Equal(t, "postgres://u:p@h:5432/d", dsn)
		return sqlx.NewDb(mockDB, "sqlmock"), nil
	}
	return r, mock, &opened
}

func TestRegistry_GetConstructsOnceAndCaches(t *testing.T) {
	r, mock, opened := newMockRegistry(t)
	cfg := config.Postgres{Driver: "pgx", URI: "postgres://u:p@h:5432/d", MaxOpenConns: 4, MaxIdleConns: 2}

	mock.ExpectPing()

	first, err := r.Get(context.Background(), "identity", cfg)
	require.NoError(t, err)
	second, err := r.Get(context.Background(), "identity", cfg)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, *opened)
	assert.Equal(t, 4, first.Stats().MaxOpenConnections)

	mock.ExpectClose()
	assert.NoError(t, r.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, r.dbs)
}

func TestRegistry_PingError(t *testing.T) {
	r, mock, _ := newMockRegistry(t)
	cfg := config.Postgres{Driver: "pgx", URI: "postgres://u:p@h:5432/d"}

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	db, err := r.Get(context.Background(), "identity", cfg)
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Empty(t, r.dbs)
}

func TestRegistry_OpenError(t *testing.T) {
	r := NewRegistry()
	r.open = func(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
		return nil, errors.New("bad dsn")
	}

	db, err := r.Get(context.Background(), "identity", config.Postgres{})
	assert.ErrorContains(t, err, "bad dsn")
	assert.Nil(t, db)
}

func TestMigrate(t *testing.T) {
	original := gooseUpContext
	defer func() { gooseUpContext = original }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	assert.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, "migrations", gotDir)

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.ErrorContains(t, Migrate(context.Background(), nil), "boom")
}

func TestMigrations_Embedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
