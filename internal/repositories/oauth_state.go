package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-identity/internal/logger"
	"github.com/sbilibin2017/gw-identity/internal/models"
)

// OAuthStateRepository keeps pending authorizations in Redis until the
// provider calls back. Each state can be consumed once.
type OAuthStateRepository struct {
	client *redis.Client
	exp    time.Duration // how long a pending authorization stays valid
}

// NewOAuthStateRepository creates a new repository instance with the given TTL.
func NewOAuthStateRepository(client *redis.Client, expiration time.Duration) *OAuthStateRepository {
	return &OAuthStateRepository{
		client: client,
		exp:    expiration,
	}
}

func stateKey(state string) string {
	return "oauth_state:" + state
}

// Save stores a pending authorization under state.
func (r *OAuthStateRepository) Save(ctx context.Context, state string, pending models.OAuthState) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return err
	}

	key := stateKey(state)
	err = r.client.Set(ctx, key, payload, r.exp).Err()

	logger.Log.Debugw("oauth state saved",
		"key", key,
		"provider", pending.Provider,
		"error", err,
	)

	return err
}

// Pop returns and removes the pending authorization for state, or nil when
// it is unknown, expired or already consumed.
func (r *OAuthStateRepository) Pop(ctx context.Context, state string) (*models.OAuthState, error) {
	key := stateKey(state)

	val, err := r.client.GetDel(ctx, key).Bytes()

	logger.Log.Debugw("oauth state consumed",
		"key", key,
		"found", err == nil,
		"error", err,
	)

	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pending models.OAuthState
	if err := json.Unmarshal(val, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}
