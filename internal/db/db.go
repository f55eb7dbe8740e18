// Package db owns the process-wide database handles and schema migrations.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sbilibin2017/gw-identity/internal/config"
	"github.com/sbilibin2017/gw-identity/internal/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Registry keeps one connection pool per name. Get constructs a pool on
// first use and returns the cached one afterwards; Close tears all of them down.
type Registry struct {
	mu   sync.Mutex
	dbs  map[string]*sqlx.DB
	open func(ctx context.Context, driver, dsn string) (*sqlx.DB, error)
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		dbs:  make(map[string]*sqlx.DB),
		open: sqlx.ConnectContext,
	}
}

// Get returns the pool registered under name, connecting it with cfg when absent.
func (r *Registry) Get(ctx context.Context, name string, cfg config.Postgres) (*sqlx.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.dbs[name]; ok {
		return db, nil
	}

	db, err := r.open(ctx, cfg.Driver, cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", name, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %q: %w", name, err)
	}

	logger.Log.Infow("database connected", "name", name, "driver", cfg.Driver)
	r.dbs[name] = db
	return db, nil
}

// Close closes every pool and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, db := range r.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
		delete(r.dbs, name)
	}
	return errors.Join(errs...)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
