package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-identity/internal/jwt"
	"github.com/sbilibin2017/gw-identity/internal/models"
	"github.com/sbilibin2017/gw-identity/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsersRouter(svc UserManager, tokener Tokener) http.Handler {
	r := chi.NewRouter()
	r.Get("/users/me", NewGetMeHandler(svc, tokener))
	r.Get("/users/{id}", NewGetUserHandler(svc, tokener))
	r.Patch("/users/{id}", NewUpdateUserHandler(svc, tokener))
	r.Delete("/users/{id}", NewDeleteUserHandler(svc, tokener))
	return r
}

func TestUserHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockUserManager(ctrl)
	tokener := NewMockTokener(ctrl)
	router := newUsersRouter(svc, tokener)

	actor := uuid.New()
	target := uuid.New()
	user := &models.User{ID: target, Email: "bob@example.com", Username: "bob", IsActive: true}

	authorized := func() {
		tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("tok", nil)
		tokener.EXPECT().GetClaims(gomock.Any(), "tok").Return(&jwt.Claims{UserID: actor}, nil)
	}

	tests := []struct {
		name          string
		method        string
		path          string
		body          string
		mockSetup     func()
		expectedCode  int
		expectedError string
		expectedUser  bool
	}{
		{
			name:   "missing token",
			method: http.MethodGet,
			path:   "/users/me",
			mockSetup: func() {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("", errors.New("no header"))
			},
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Unauthorized",
		},
		{
			name:   "bad claims",
			method: http.MethodGet,
			path:   "/users/me",
			mockSetup: func() {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("tok", nil)
				tokener.EXPECT().GetClaims(gomock.Any(), "tok").Return(nil, errors.New("expired"))
			},
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Unauthorized",
		},
		{
			name:   "get me",
			method: http.MethodGet,
			path:   "/users/me",
			mockSetup: func() {
				authorized()
				svc.EXPECT().Get(gomock.Any(), actor, actor).Return(user, nil)
			},
			expectedCode: http.StatusOK,
			expectedUser: true,
		},
		{
			name:   "get by invalid id",
			method: http.MethodGet,
			path:   "/users/not-a-uuid",
			mockSetup: func() {
				authorized()
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "invalid user id",
		},
		{
			name:   "get forbidden",
			method: http.MethodGet,
			path:   "/users/" + target.String(),
			mockSetup: func() {
				authorized()
				svc.EXPECT().Get(gomock.Any(), actor, target).Return(nil, services.ErrForbidden)
			},
			expectedCode:  http.StatusForbidden,
			expectedError: "Forbidden",
		},
		{
			name:   "get missing",
			method: http.MethodGet,
			path:   "/users/" + target.String(),
			mockSetup: func() {
				authorized()
				svc.EXPECT().Get(gomock.Any(), actor, target).Return(nil, models.ErrNotFound)
			},
			expectedCode:  http.StatusNotFound,
			expectedError: "User not found",
		},
		{
			name:   "update applies present fields",
			method: http.MethodPatch,
			path:   "/users/" + target.String(),
			body:   `{"username":"bobby"}`,
			mockSetup: func() {
				authorized()
				svc.EXPECT().
					Update(gomock.Any(), actor, target, models.UserUpdate{Username: models.Some("bobby")}).
					Return(user, nil)
			},
			expectedCode: http.StatusOK,
			expectedUser: true,
		},
		{
			name:   "update invalid body",
			method: http.MethodPatch,
			path:   "/users/" + target.String(),
			body:   `{"username":`,
			mockSetup: func() {
				authorized()
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "invalid request body",
		},
		{
			name:   "update validation failed",
			method: http.MethodPatch,
			path:   "/users/" + target.String(),
			body:   `{"email":"nope"}`,
			mockSetup: func() {
				authorized()
				svc.EXPECT().
					Update(gomock.Any(), actor, target, gomock.Any()).
					Return(nil, models.ValidationErrors{{Field: "email", Message: "invalid email address"}})
			},
			expectedCode:  http.StatusUnprocessableEntity,
			expectedError: "Validation failed",
		},
		{
			name:   "update conflict",
			method: http.MethodPatch,
			path:   "/users/" + target.String(),
			body:   `{"email":"taken@example.com"}`,
			mockSetup: func() {
				authorized()
				svc.EXPECT().
					Update(gomock.Any(), actor, target, gomock.Any()).
					Return(nil, &models.ConflictError{Field: "email"})
			},
			expectedCode:  http.StatusConflict,
			expectedError: "email already exists",
		},
		{
			name:   "delete",
			method: http.MethodDelete,
			path:   "/users/" + target.String(),
			mockSetup: func() {
				authorized()
				svc.EXPECT().Delete(gomock.Any(), actor, target).Return(nil)
			},
			expectedCode: http.StatusNoContent,
		},
		{
			name:   "delete forbidden",
			method: http.MethodDelete,
			path:   "/users/" + target.String(),
			mockSetup: func() {
				authorized()
				svc.EXPECT().Delete(gomock.Any(), actor, target).Return(services.ErrForbidden)
			},
			expectedCode:  http.StatusForbidden,
			expectedError: "Forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)

			switch {
			case tt.expectedError != "":
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedError, resp.Error)
			case tt.expectedUser:
				var got models.User
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, user.ID, got.ID)
				assert.Equal(t, user.Username, got.Username)
			default:
				assert.Empty(t, w.Body.String())
			}
		})
	}
}
