package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-identity/internal/models"
)

var identityUnique = map[string]string{
	"external_identities_pkey": "subject",
}

// ExternalIdentityRepository stores links between provider accounts and users.
type ExternalIdentityRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

// NewExternalIdentityRepository creates an ExternalIdentityRepository. txGetter may be nil.
func NewExternalIdentityRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *ExternalIdentityRepository {
	return &ExternalIdentityRepository{db: db, txGetter: txGetter}
}

func (r *ExternalIdentityRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// GetByProviderSubject returns the link for a provider account, or nil when absent.
func (r *ExternalIdentityRepository) GetByProviderSubject(ctx context.Context, provider, subject string) (*models.ExternalIdentity, error) {
	const query = `
		SELECT provider, subject, user_id, email, created_at
		FROM external_identities
		WHERE provider = $1 AND subject = $2
	`

	var identity models.ExternalIdentity
	err := sqlx.GetContext(ctx, r.executor(ctx), &identity, query, provider, subject)

	logQuery(query, []any{provider, subject}, err == nil, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// Create stores a new link.
func (r *ExternalIdentityRepository) Create(ctx context.Context, identity models.ExternalIdentity) error {
	const query = `
		INSERT INTO external_identities (provider, subject, user_id, email, created_at)
		VALUES (:provider, :subject, :user_id, :email, :created_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.executor(ctx), query, identity)

	logQuery(query, []any{identity.Provider, identity.UserID}, err == nil, err)

	return mapUniqueViolation(err, identityUnique)
}
