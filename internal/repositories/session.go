package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionRepository stores browser sessions in Redis so that they survive
// restarts and are shared between replicas. It implements scs.Store and
// scs.CtxStore.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new session store.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func sessionKey(token string) string {
	return "session:" + token
}

// FindCtx returns the encoded session for token. found is false when the
// session is unknown or expired.
func (r *SessionRepository) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// CommitCtx stores the encoded session until expiry.
func (r *SessionRepository) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return r.DeleteCtx(ctx, token)
	}
	return r.client.Set(ctx, sessionKey(token), b, ttl).Err()
}

// DeleteCtx removes the session. Deleting an unknown session succeeds.
func (r *SessionRepository) DeleteCtx(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKey(token)).Err()
}

// Find implements scs.Store.
func (r *SessionRepository) Find(token string) ([]byte, bool, error) {
	return r.FindCtx(context.Background(), token)
}

// Commit implements scs.Store.
func (r *SessionRepository) Commit(token string, b []byte, expiry time.Time) error {
	return r.CommitCtx(context.Background(), token, b, expiry)
}

// Delete implements scs.Store.
func (r *SessionRepository) Delete(token string) error {
	return r.DeleteCtx(context.Background(), token)
}
