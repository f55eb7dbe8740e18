package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-identity/internal/logger"
	"github.com/sbilibin2017/gw-identity/internal/models"
)

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Table describes how an entity is stored.
type Table struct {
	Name     string
	IDColumn string
	// Columns lists every persisted column, id included, matching the entity's db tags.
	Columns []string
	// Unique maps unique constraint names to the field they guard.
	Unique map[string]string
}

// Creator is a validated creation schema that builds a new entity.
type Creator[E any] interface {
	Entity() E
}

// Patcher is an update schema that applies its present fields to an entity
// and returns the changed columns.
type Patcher[E any] interface {
	Apply(entity *E) []string
}

// CRUD implements find/create/update/delete for one entity type.
// Statements run inside the request transaction when txGetter yields one.
type CRUD[E any, C Creator[E], U Patcher[E]] struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
	table    Table
}

// NewCRUD creates a CRUD store over table.
func NewCRUD[E any, C Creator[E], U Patcher[E]](
	db *sqlx.DB,
	txGetter func(ctx context.Context) *sqlx.Tx,
	table Table,
) *CRUD[E, C, U] {
	return &CRUD[E, C, U]{db: db, txGetter: txGetter, table: table}
}

func (r *CRUD[E, C, U]) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Find returns the entity with the given id, or nil when absent.
func (r *CRUD[E, C, U]) Find(ctx context.Context, id uuid.UUID) (*E, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		strings.Join(r.table.Columns, ", "), r.table.Name, r.table.IDColumn,
	)

	var entity E
	err := sqlx.GetContext(ctx, r.executor(ctx), &entity, query, id)

	logQuery(query, []any{id}, err == nil, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// Create persists the entity built from data and returns the stored row.
func (r *CRUD[E, C, U]) Create(ctx context.Context, data C) (*E, error) {
	entity := data.Entity()

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		r.table.Name,
		strings.Join(r.table.Columns, ", "),
		namedParams(r.table.Columns),
		strings.Join(r.table.Columns, ", "),
	)

	created, err := r.namedGet(ctx, query, entity)

	logQuery(query, []any{r.table.Name}, created != nil, err)

	return created, err
}

// Update applies the present fields of data onto entity and persists only
// those columns. An empty update returns entity untouched.
func (r *CRUD[E, C, U]) Update(ctx context.Context, entity E, data U) (*E, error) {
	columns := data.Apply(&entity)
	if len(columns) == 0 {
		return &entity, nil
	}

	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		sets = append(sets, c+" = :"+c)
	}
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = :%s RETURNING %s",
		r.table.Name,
		strings.Join(sets, ", "),
		r.table.IDColumn, r.table.IDColumn,
		strings.Join(r.table.Columns, ", "),
	)

	updated, err := r.namedGet(ctx, query, entity)

	logQuery(query, []any{columns}, updated != nil, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return updated, err
}

// Delete removes the entity with the given id. Deleting an absent id is a no-op.
func (r *CRUD[E, C, U]) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.table.Name, r.table.IDColumn)

	res, err := r.executor(ctx).ExecContext(ctx, query, id)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logQuery(query, []any{id}, rowsAffected, err)

	return err
}

func (r *CRUD[E, C, U]) namedGet(ctx context.Context, query string, arg any) (*E, error) {
	rows, err := sqlx.NamedQueryContext(ctx, r.executor(ctx), query, arg)
	if err != nil {
		return nil, r.mapError(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, r.mapError(err)
		}
		return nil, sql.ErrNoRows
	}

	var out E
	if err := rows.StructScan(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// mapError turns unique violations into a ConflictError naming the field.
func (r *CRUD[E, C, U]) mapError(err error) error {
	return mapUniqueViolation(err, r.table.Unique)
}

func mapUniqueViolation(err error, unique map[string]string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &models.ConflictError{Field: unique[pgErr.ConstraintName]}
	}
	return err
}

func namedParams(columns []string) string {
	params := make([]string, len(columns))
	for i, c := range columns {
		params[i] = ":" + c
	}
	return strings.Join(params, ", ")
}

// logQuery logs a statement on a single line. Row contents are never logged.
func logQuery(query string, args []any, result any, err error) {
	logger.Log.Infow(
		"query", "sql", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}
