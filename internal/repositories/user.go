package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-identity/internal/models"
)

// UserTable describes the users table.
var UserTable = Table{
	Name:     "users",
	IDColumn: "id",
	Columns: []string{
		"id", "email", "username", "hashed_password",
		"is_admin", "is_active", "date_joined", "last_login",
	},
	Unique: map[string]string{
		"users_email_key":    "email",
		"users_username_key": "username",
	},
}

// UserRepository stores users.
type UserRepository struct {
	*CRUD[models.User, models.UserCreate, models.UserUpdate]
}

// NewUserRepository creates a UserRepository. txGetter may be nil.
func NewUserRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *UserRepository {
	return &UserRepository{
		CRUD: NewCRUD[models.User, models.UserCreate, models.UserUpdate](db, txGetter, UserTable),
	}
}

// GetByUsernameOrEmail returns the first user matching every non-nil
// argument, or nil when none does.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, username, email *string) (*models.User, error) {
	query := `
		SELECT ` + strings.Join(UserTable.Columns, ", ") + `
		FROM users
		WHERE ($1::TEXT IS NULL OR username = $1)
		  AND ($2::TEXT IS NULL OR email = $2)
		LIMIT 1
	`

	var user models.User
	err := sqlx.GetContext(ctx, r.executor(ctx), &user, query, username, email)

	// Log with query in single line
	logQuery(query, []any{username, email}, err == nil, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetLastLogin records a successful login.
func (r *UserRepository) SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `UPDATE users SET last_login = $1 WHERE id = $2`

	res, err := r.executor(ctx).ExecContext(ctx, query, at, id)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logQuery(query, []any{id}, rowsAffected, err)

	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
