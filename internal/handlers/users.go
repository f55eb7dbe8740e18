package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-identity/internal/jwt"
	"github.com/sbilibin2017/gw-identity/internal/logger"
	"github.com/sbilibin2017/gw-identity/internal/models"
)

//go:generate mockgen -source=users.go -destination=users_mock.go -package=handlers

// Tokener defines only the methods needed to identify the caller.
type Tokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// UserManager defines the interface that the user service must implement.
type UserManager interface {
	Get(ctx context.Context, actorID, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, actorID, id uuid.UUID, data models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

// actorID returns the user id carried by the request token.
func actorID(w http.ResponseWriter, r *http.Request, tokener Tokener) (uuid.UUID, bool) {
	ctx := r.Context()

	tokenStr, err := tokener.GetTokenFromRequest(ctx, r)
	if err != nil {
		logger.Log.Error("unauthorized request: missing or invalid token")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return uuid.Nil, false
	}

	claims, err := tokener.GetClaims(ctx, tokenStr)
	if err != nil {
		logger.Log.Errorw("unauthorized request: invalid token claims", "err", err)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return uuid.Nil, false
	}

	return claims.UserID, true
}

// targetID parses the {id} path parameter.
func targetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

// NewGetMeHandler returns an HTTP handler for the caller's own user.
// @Summary Get current user
// @Tags users
// @Produce json
// @Success 200 {object} models.User "Current user"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.ErrorResponse "User not found"
// @Router /users/me [get]
// @Security BearerAuth
func NewGetMeHandler(svc UserManager, tokener Tokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r, tokener)
		if !ok {
			return
		}

		user, err := svc.Get(r.Context(), actor, actor)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

// NewGetUserHandler returns an HTTP handler for reading a user.
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} models.User "User"
// @Failure 400 {object} handlers.ErrorResponse "Invalid user id"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 403 {object} handlers.ErrorResponse "Forbidden"
// @Failure 404 {object} handlers.ErrorResponse "User not found"
// @Router /users/{id} [get]
// @Security BearerAuth
func NewGetUserHandler(svc UserManager, tokener Tokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r, tokener)
		if !ok {
			return
		}
		id, ok := targetID(w, r)
		if !ok {
			return
		}

		user, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

// NewUpdateUserHandler returns an HTTP handler for partially updating a user.
// Only fields present in the body are changed.
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User id"
// @Param userUpdate body models.UserUpdate true "Fields to change"
// @Success 200 {object} models.User "Updated user"
// @Failure 400 {object} handlers.ErrorResponse "Invalid request"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 403 {object} handlers.ErrorResponse "Forbidden"
// @Failure 404 {object} handlers.ErrorResponse "User not found"
// @Failure 409 {object} handlers.ErrorResponse "Email or username already exists"
// @Failure 422 {object} handlers.ErrorResponse "Validation failed"
// @Router /users/{id} [patch]
// @Security BearerAuth
func NewUpdateUserHandler(svc UserManager, tokener Tokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r, tokener)
		if !ok {
			return
		}
		id, ok := targetID(w, r)
		if !ok {
			return
		}

		var data models.UserUpdate
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}

		user, err := svc.Update(r.Context(), actor, id, data)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

// NewDeleteUserHandler returns an HTTP handler for deleting a user.
// Deleting an absent user succeeds.
// @Summary Delete user
// @Tags users
// @Param id path string true "User id"
// @Success 204 "Deleted"
// @Failure 400 {object} handlers.ErrorResponse "Invalid user id"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 403 {object} handlers.ErrorResponse "Forbidden"
// @Router /users/{id} [delete]
// @Security BearerAuth
func NewDeleteUserHandler(svc UserManager, tokener Tokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r, tokener)
		if !ok {
			return
		}
		id, ok := targetID(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
