package handlers

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-identity/internal/models"
	"github.com/sbilibin2017/gw-identity/internal/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackBuilder_URL(t *testing.T) {
	tests := []struct {
		name          string
		builder       CallbackBuilder
		tls           bool
		forwardedFor  string
		forwardedHost string
		expected      string
	}{
		{
			name:     "plain http",
			builder:  CallbackBuilder{APIPrefix: "/api/v1"},
			expected: "http://example.com/api/v1/auth/auth/google",
		},
		{
			name:     "tls",
			builder:  CallbackBuilder{APIPrefix: "/api/v1"},
			tls:      true,
			expected: "https://example.com/api/v1/auth/auth/google",
		},
		{
			name:     "no prefix",
			builder:  CallbackBuilder{},
			expected: "http://example.com/auth/auth/google",
		},
		{
			name:          "forwarded headers ignored by default",
			builder:       CallbackBuilder{APIPrefix: "/api/v1"},
			forwardedFor:  "https",
			forwardedHost: "evil.example.net",
			expected:      "http://example.com/api/v1/auth/auth/google",
		},
		{
			name:          "trusted proxy",
			builder:       CallbackBuilder{APIPrefix: "/api/v1/", TrustProxy: true},
			forwardedFor:  "https, http",
			forwardedHost: "id.example.org",
			expected:      "https://id.example.org/api/v1/auth/auth/google",
		},
		{
			name:         "trusted proxy with bogus scheme",
			builder:      CallbackBuilder{APIPrefix: "/api/v1", TrustProxy: true},
			forwardedFor: "javascript",
			expected:     "http://example.com/api/v1/auth/auth/google",
		},
		{
			name:          "public url wins",
			builder:       CallbackBuilder{APIPrefix: "/api/v1", PublicURL: "https://id.example.org/", TrustProxy: true},
			forwardedFor:  "http",
			forwardedHost: "evil.example.net",
			expected:      "https://id.example.org/api/v1/auth/auth/google",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example.com/whatever", nil)
			if tt.tls {
				r.TLS = &tls.ConnectionState{}
			}
			if tt.forwardedFor != "" {
				r.Header.Set("X-Forwarded-Proto", tt.forwardedFor)
			}
			if tt.forwardedHost != "" {
				r.Header.Set("X-Forwarded-Host", tt.forwardedHost)
			}
			assert.Equal(t, tt.expected, tt.builder.URL(r, "google"))
		})
	}
}

func TestOAuthLoginHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	authorizer := NewMockProviderAuthorizer(ctrl)
	session := NewMockSession(ctrl)

	router := chi.NewRouter()
	router.Get("/api/v1/auth/login/{provider}", NewOAuthLoginHandler(authorizer, session, CallbackBuilder{APIPrefix: "/api/v1"}))

	tests := []struct {
		name         string
		provider     string
		mockSetup    func()
		expectedCode int
		expectedLoc  string
		expectedErr  string
	}{
		{
			name:     "redirects to provider",
			provider: "google",
			mockSetup: func() {
				authorizer.EXPECT().
					AuthorizeRedirect(gomock.Any(), "google", "http://example.com/api/v1/auth/auth/google").
					Return("https://accounts.example.com/auth?state=abc", nil)
				session.EXPECT().Put(gomock.Any(), oauthStateKey, "abc")
			},
			expectedCode: http.StatusFound,
			expectedLoc:  "https://accounts.example.com/auth?state=abc",
		},
		{
			name:     "unknown provider",
			provider: "myspace",
			mockSetup: func() {
				authorizer.EXPECT().
					AuthorizeRedirect(gomock.Any(), "myspace", gomock.Any()).
					Return("", oauth.ErrProviderNotRegistered)
			},
			expectedCode: http.StatusNotFound,
			expectedErr:  "Unknown provider",
		},
		{
			name:     "discovery failed",
			provider: "google",
			mockSetup: func() {
				authorizer.EXPECT().
					AuthorizeRedirect(gomock.Any(), "google", gomock.Any()).
					Return("", fmt.Errorf("%w: connection refused", oauth.ErrProviderUnavailable))
			},
			expectedCode: http.StatusBadGateway,
			expectedErr:  "authentication failed",
		},
		{
			name:     "authorization url without state",
			provider: "google",
			mockSetup: func() {
				authorizer.EXPECT().
					AuthorizeRedirect(gomock.Any(), "google", gomock.Any()).
					Return("https://accounts.example.com/auth", nil)
			},
			expectedCode: http.StatusInternalServerError,
			expectedErr:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/auth/login/"+tt.provider, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedLoc != "" {
				assert.Equal(t, tt.expectedLoc, w.Header().Get("Location"))
				return
			}

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedErr, resp.Error)
		})
	}
}

func TestOAuthCallbackHandler_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	authorizer := NewMockProviderAuthorizer(ctrl)
	loginer := NewMockProviderLoginer(ctrl)
	session := NewMockSession(ctrl)

	router := chi.NewRouter()
	router.Get("/auth/auth/{provider}", NewOAuthCallbackHandler(authorizer, loginer, session))

	info := oauth.UserInfo{Subject: "123", Email: "alice@example.com", EmailVerified: true}
	bundle := &oauth.TokenBundle{Provider: "google", UserInfo: info}

	sessionState := func(state string) {
		session.EXPECT().PopString(gomock.Any(), oauthStateKey).Return(state)
	}

	tests := []struct {
		name          string
		mockSetup     func()
		expectedCode  int
		expectedError string
		expectedField string
	}{
		{
			name: "no login started in this browser",
			mockSetup: func() {
				sessionState("")
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "authentication failed",
		},
		{
			name: "state of another login",
			mockSetup: func() {
				sessionState("other")
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "authentication failed",
		},
		{
			name: "unknown provider",
			mockSetup: func() {
				sessionState("s")
				authorizer.EXPECT().
					AuthorizeAccessToken(gomock.Any(), "google", gomock.Any()).
					Return(nil, oauth.ErrProviderNotRegistered)
			},
			expectedCode:  http.StatusNotFound,
			expectedError: "Unknown provider",
		},
		{
			name: "state unknown to the store",
			mockSetup: func() {
				sessionState("s")
				authorizer.EXPECT().
					AuthorizeAccessToken(gomock.Any(), "google", gomock.Any()).
					Return(nil, oauth.ErrStateMismatch)
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "authentication failed",
		},
		{
			name: "token endpoint down",
			mockSetup: func() {
				sessionState("s")
				authorizer.EXPECT().
					AuthorizeAccessToken(gomock.Any(), "google", gomock.Any()).
					Return(nil, fmt.Errorf("%w: token endpoint returned 503", oauth.ErrProviderUnavailable))
			},
			expectedCode:  http.StatusBadGateway,
			expectedError: "authentication failed",
		},
		{
			name: "email taken by another account",
			mockSetup: func() {
				sessionState("s")
				authorizer.EXPECT().
					AuthorizeAccessToken(gomock.Any(), "google", gomock.Any()).
					Return(bundle, nil)
				loginer.EXPECT().
					LoginWithProvider(gomock.Any(), "google", info).
					Return(nil, "", &models.ConflictError{Field: "email"})
			},
			expectedCode:  http.StatusConflict,
			expectedError: "email already exists",
			expectedField: "email",
		},
		{
			name: "provider gave no email",
			mockSetup: func() {
				sessionState("s")
				authorizer.EXPECT().
					AuthorizeAccessToken(gomock.Any(), "google", gomock.Any()).
					Return(bundle, nil)
				loginer.EXPECT().
					LoginWithProvider(gomock.Any(), "google", info).
					Return(nil, "", fmt.Errorf("%w: no email", oauth.ErrExchange))
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "authentication failed",
		},
		{
			name: "session renewal fails",
			mockSetup: func() {
				sessionState("s")
				authorizer.EXPECT().
					AuthorizeAccessToken(gomock.Any(), "google", gomock.Any()).
					Return(bundle, nil)
				loginer.EXPECT().
					LoginWithProvider(gomock.Any(), "google", info).
					Return(&models.User{ID: uuid.New()}, "JWT_TOKEN", nil)
				session.EXPECT().
					RenewToken(gomock.Any()).
					Return(errors.New("store down"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			req := httptest.NewRequest(http.MethodGet, "/auth/auth/google?code=c&state=s", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedError, resp.Error)
			assert.Equal(t, tt.expectedField, resp.Field)
		})
	}
}

func TestOAuthFlow_StateBoundToSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	authorizer := NewMockProviderAuthorizer(ctrl)
	loginer := NewMockProviderLoginer(ctrl)

	sessions := scs.New()
	sessions.Lifetime = time.Hour

	user := &models.User{
		ID:       uuid.New(),
		Email:    "alice@example.com",
		Username: "alice_0a1b2c3d",
		IsActive: true,
	}
	info := oauth.UserInfo{Subject: "123", Email: "alice@example.com", EmailVerified: true, Name: "Alice"}

	gomock.InOrder(
		authorizer.EXPECT().
			AuthorizeRedirect(gomock.Any(), "google", "http://example.com/auth/auth/google").
			Return("https://accounts.example.com/auth?state=abc", nil),
		authorizer.EXPECT().
			AuthorizeRedirect(gomock.Any(), "google", gomock.Any()).
			Return("https://accounts.example.com/auth?state=xyz", nil),
	)
	authorizer.EXPECT().
		AuthorizeAccessToken(gomock.Any(), "google", gomock.Any()).
		Return(&oauth.TokenBundle{Provider: "google", UserInfo: info}, nil)
	loginer.EXPECT().
		LoginWithProvider(gomock.Any(), "google", info).
		Return(user, "JWT_TOKEN", nil)

	router := chi.NewRouter()
	router.Use(sessions.LoadAndSave)
	router.Get("/auth/login/{provider}", NewOAuthLoginHandler(authorizer, sessions, CallbackBuilder{}))
	router.Get("/auth/auth/{provider}", NewOAuthCallbackHandler(authorizer, loginer, sessions))
	router.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sessions.GetString(r.Context(), SessionUserKey)))
	})

	do := func(target string, cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "http://example.com"+target, nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}
	sessionCookie := func(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
		t.Helper()
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessions.Cookie.Name, cookies[0].Name)
		return cookies[0]
	}

	// Victim starts a login.
	login := do("/auth/login/google", nil)
	require.Equal(t, http.StatusFound, login.Code)
	victim := sessionCookie(t, login)

	// Another browser starts its own login.
	other := do("/auth/login/google", nil)
	require.Equal(t, http.StatusFound, other.Code)
	attacker := sessionCookie(t, other)

	t.Run("cookieless callback", func(t *testing.T) {
		w := do("/auth/auth/google?code=c&state=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("state of another browser", func(t *testing.T) {
		w := do("/auth/auth/google?code=c&state=abc", attacker)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	var loggedIn *http.Cookie
	t.Run("same browser", func(t *testing.T) {
		w := do("/auth/auth/google?code=c&state=abc", victim)
		require.Equal(t, http.StatusOK, w.Code)

		var resp OAuthLoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "JWT_TOKEN", resp.AccessToken)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, info, resp.UserInfo)
		require.NotNil(t, resp.User)
		assert.Equal(t, user.ID, resp.User.ID)

		loggedIn = sessionCookie(t, w)
		assert.NotEqual(t, victim.Value, loggedIn.Value)

		who := do("/whoami", loggedIn)
		assert.Equal(t, user.ID.String(), who.Body.String())
	})

	t.Run("replayed callback", func(t *testing.T) {
		require.NotNil(t, loggedIn)
		w := do("/auth/auth/google?code=c&state=abc", loggedIn)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
