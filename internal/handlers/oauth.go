package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-identity/internal/logger"
	"github.com/sbilibin2017/gw-identity/internal/middlewares"
	"github.com/sbilibin2017/gw-identity/internal/models"
	"github.com/sbilibin2017/gw-identity/internal/oauth"
)

//go:generate mockgen -source=oauth.go -destination=oauth_mock.go -package=handlers

// SessionUserKey is the session key holding the logged in user id.
const SessionUserKey = "user_id"

// oauthStateKey holds the state of the authorization started by this browser.
const oauthStateKey = "oauth_state"

var errNoState = errors.New("authorization URL has no state")

// ProviderAuthorizer drives the authorization-code flow of a named provider.
type ProviderAuthorizer interface {
	AuthorizeRedirect(ctx context.Context, provider, callbackURL string) (string, error)
	AuthorizeAccessToken(ctx context.Context, provider string, r *http.Request) (*oauth.TokenBundle, error)
}

// ProviderLoginer resolves the local user behind a provider account.
type ProviderLoginer interface {
	LoginWithProvider(ctx context.Context, provider string, info oauth.UserInfo) (*models.User, string, error)
}

// Session is the part of the session manager the OAuth handlers need.
type Session interface {
	RenewToken(ctx context.Context) error
	Put(ctx context.Context, key string, val interface{})
	PopString(ctx context.Context, key string) string
}

// OAuthLoginResponse is returned after a successful provider callback.
// swagger:model OAuthLoginResponse
type OAuthLoginResponse struct {
	// Local user
	User *models.User `json:"user"`

	// Claims returned by the provider
	UserInfo oauth.UserInfo `json:"userinfo"`

	// JWT token
	// default: JWT_TOKEN
	AccessToken string `json:"access_token"`

	// Token type
	// default: bearer
	TokenType string `json:"token_type"`
}

// CallbackBuilder builds the absolute callback URL of a provider.
type CallbackBuilder struct {
	// APIPrefix is the path the API is mounted on.
	APIPrefix string
	// PublicURL is the externally visible base URL. When set it wins over
	// anything derived from the request.
	PublicURL string
	// TrustProxy enables X-Forwarded-Proto and X-Forwarded-Host.
	TrustProxy bool
}

// URL returns the callback URL of provider for the client of r.
func (b CallbackBuilder) URL(r *http.Request, provider string) string {
	path := strings.TrimRight(b.APIPrefix, "/") + "/auth/auth/" + provider
	if b.PublicURL != "" {
		return strings.TrimRight(b.PublicURL, "/") + path
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if b.TrustProxy {
		if proto := firstForwarded(r.Header.Get("X-Forwarded-Proto")); proto == "http" || proto == "https" {
			scheme = proto
		}
		if fh := firstForwarded(r.Header.Get("X-Forwarded-Host")); fh != "" {
			host = fh
		}
	}
	return scheme + "://" + host + path
}

// firstForwarded returns the value added by the proxy closest to the client.
func firstForwarded(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// writeOAuthError converts provider failures into "authentication failed"
// responses without exposing provider details.
func writeOAuthError(w http.ResponseWriter, provider string, err error) {
	switch {
	case errors.Is(err, oauth.ErrProviderNotRegistered):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Unknown provider"})
	case errors.Is(err, oauth.ErrProviderUnavailable):
		logger.Log.Warnw("oauth provider unavailable", "provider", provider, "err", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "authentication failed"})
	case errors.Is(err, oauth.ErrExchange):
		logger.Log.Infow("oauth exchange rejected", "provider", provider, "err", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "authentication failed"})
	default:
		writeError(w, err)
	}
}

// NewOAuthLoginHandler returns an HTTP handler that redirects to the provider.
// @Summary Log in with an OAuth provider
// @Description Redirects the browser to the provider authorization page
// @Tags auth
// @Param provider path string true "Provider name" default(google)
// @Success 302 "Redirect to the provider"
// @Failure 404 {object} handlers.ErrorResponse "Unknown provider"
// @Failure 502 {object} handlers.ErrorResponse "Provider unavailable"
// @Router /auth/login/{provider} [get]
func NewOAuthLoginHandler(authorizer ProviderAuthorizer, session Session, callbacks CallbackBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		provider := chi.URLParam(r, "provider")

		location, err := authorizer.AuthorizeRedirect(ctx, provider, callbacks.URL(r, provider))
		if err != nil {
			writeOAuthError(w, provider, err)
			return
		}

		u, err := url.Parse(location)
		if err != nil {
			writeError(w, err)
			return
		}
		state := u.Query().Get("state")
		if state == "" {
			writeError(w, errNoState)
			return
		}
		session.Put(ctx, oauthStateKey, state)

		http.Redirect(w, r, location, http.StatusFound)
	}
}

// NewOAuthCallbackHandler returns an HTTP handler for the provider callback.
// @Summary OAuth provider callback
// @Description Exchanges the authorization code, resolves the local user and starts a session
// @Tags auth
// @Produce json
// @Param provider path string true "Provider name" default(google)
// @Param code query string true "Authorization code"
// @Param state query string true "Anti-CSRF state"
// @Success 200 {object} handlers.OAuthLoginResponse "Logged in"
// @Failure 400 {object} handlers.ErrorResponse "Authentication failed"
// @Failure 404 {object} handlers.ErrorResponse "Unknown provider"
// @Failure 409 {object} handlers.ErrorResponse "Email belongs to another account"
// @Failure 502 {object} handlers.ErrorResponse "Provider unavailable"
// @Router /auth/auth/{provider} [get]
func NewOAuthCallbackHandler(authorizer ProviderAuthorizer, loginer ProviderLoginer, session Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		provider := chi.URLParam(r, "provider")

		// The state must belong to the browser that started the login.
		expected := session.PopString(ctx, oauthStateKey)
		got := r.URL.Query().Get("state")
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
			writeOAuthError(w, provider, oauth.ErrStateMismatch)
			return
		}

		bundle, err := authorizer.AuthorizeAccessToken(ctx, provider, r)
		if err != nil {
			writeOAuthError(w, provider, err)
			return
		}

		user, token, err := loginer.LoginWithProvider(ctx, provider, bundle.UserInfo)
		if err != nil {
			writeOAuthError(w, provider, err)
			return
		}

		// Only a committed login may reach the session store.
		err = middlewares.OnCommit(ctx, func(ctx context.Context) error {
			if err := session.RenewToken(ctx); err != nil {
				return err
			}
			session.Put(ctx, SessionUserKey, user.ID.String())
			return nil
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, OAuthLoginResponse{
			User:        user,
			UserInfo:    bundle.UserInfo,
			AccessToken: token,
			TokenType:   "bearer",
		})
	}
}
