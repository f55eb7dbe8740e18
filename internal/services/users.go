package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-identity/internal/logger"
	"github.com/sbilibin2017/gw-identity/internal/models"
)

// ErrForbidden is returned when the acting user may not touch the target user.
var ErrForbidden = errors.New("forbidden")

// UserService reads and modifies users on behalf of an authenticated actor.
// Admins may act on anyone; other users only on themselves and never on flags.
type UserService struct {
	users UserStore
}

// NewUserService creates a new UserService instance.
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Get returns the user id.
func (svc *UserService) Get(ctx context.Context, actorID, id uuid.UUID) (*models.User, error) {
	if _, err := svc.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}
	return svc.target(ctx, id)
}

// Update applies a partial update to the user id.
func (svc *UserService) Update(ctx context.Context, actorID, id uuid.UUID, data models.UserUpdate) (*models.User, error) {
	actor, err := svc.authorize(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if data.TouchesFlags() && !actor.IsAdmin {
		logger.Log.Warnw("flag change denied", "actor_id", actorID, "user_id", id)
		return nil, ErrForbidden
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	user, err := svc.target(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := svc.users.Update(ctx, *user, data)
	if err != nil {
		logger.Log.Errorw("failed to update user", "user_id", id, "err", err)
		return nil, err
	}
	return updated, nil
}

// Delete removes the user id. Deleting an absent user succeeds.
func (svc *UserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if _, err := svc.authorize(ctx, actorID, id); err != nil {
		return err
	}
	if err := svc.users.Delete(ctx, id); err != nil {
		logger.Log.Errorw("failed to delete user", "user_id", id, "err", err)
		return err
	}
	return nil
}

func (svc *UserService) authorize(ctx context.Context, actorID, id uuid.UUID) (*models.User, error) {
	actor, err := svc.users.Find(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, ErrForbidden
	}
	if !actor.IsAdmin && actor.ID != id {
		return nil, ErrForbidden
	}
	return actor, nil
}

func (svc *UserService) target(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := svc.users.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrNotFound
	}
	return user, nil
}
