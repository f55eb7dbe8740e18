package oauth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sbilibin2017/gw-identity/internal/logger"
	"github.com/sbilibin2017/gw-identity/internal/models"
	"golang.org/x/oauth2"
)

// StateStore keeps pending authorizations between the redirect and the callback.
// Pop must return nil for unknown states and must never return the same state twice.
type StateStore interface {
	Save(ctx context.Context, state string, pending models.OAuthState) error
	Pop(ctx context.Context, state string) (*models.OAuthState, error)
}

// UserInfo holds the standard claims returned by the userinfo endpoint.
// swagger:model UserInfo
type UserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	Locale        string `json:"locale,omitempty"`
}

// TokenBundle is the result of a successful code exchange.
type TokenBundle struct {
	Provider string
	Token    *oauth2.Token
	UserInfo UserInfo
}

// Client drives the authorization-code flow (with PKCE) against one provider.
type Client struct {
	name        string
	config      oauth2.Config
	userinfoURL string
	states      StateStore
	httpClient  *http.Client
}

func newClient(p ProviderConfig, meta *Metadata, states StateStore, httpClient *http.Client) *Client {
	return &Client{
		name: p.Name,
		config: oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			Scopes:       p.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  meta.AuthorizationEndpoint,
				TokenURL: meta.TokenEndpoint,
			},
		},
		userinfoURL: meta.UserinfoEndpoint,
		states:      states,
		httpClient:  httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// AuthorizeRedirect returns the provider authorization URL for callbackURL.
// A fresh state and PKCE verifier are stored for the callback to consume.
func (c *Client) AuthorizeRedirect(ctx context.Context, callbackURL string) (string, error) {
	state := rand.Text()
	verifier := oauth2.GenerateVerifier()

	pending := models.OAuthState{
		Provider:    c.name,
		Verifier:    verifier,
		RedirectURI: callbackURL,
	}
	if err := c.states.Save(ctx, state, pending); err != nil {
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}

	cfg := c.config
	cfg.RedirectURL = callbackURL

	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// AuthorizeAccessToken validates the callback request, exchanges its code
// for tokens and fetches the user info.
func (c *Client) AuthorizeAccessToken(ctx context.Context, r *http.Request) (*TokenBundle, error) {
	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		return nil, fmt.Errorf("%w: provider returned %q", ErrExchange, reason)
	}

	code, state := query.Get("code"), query.Get("state")
	if code == "" || state == "" {
		return nil, fmt.Errorf("%w: missing code or state", ErrExchange)
	}

	pending, err := c.states.Pop(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth state: %w", err)
	}
	if pending == nil || pending.Provider != c.name {
		return nil, ErrStateMismatch
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	cfg := c.config
	cfg.RedirectURL = pending.RedirectURI

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(pending.Verifier))
	if err != nil {
		logger.Log.Warnw("oauth code exchange failed", "provider", c.name, "error", err)
		return nil, classifyExchangeError(err)
	}

	info, err := c.fetchUserInfo(ctx, &cfg, token)
	if err != nil {
		return nil, err
	}

	return &TokenBundle{Provider: c.name, Token: token, UserInfo: *info}, nil
}

// classifyExchangeError tells provider rejections from provider outages.
func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		return fmt.Errorf("%w: %w", ErrExchange, err)
	}
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

func (c *Client) fetchUserInfo(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cfg.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: userinfo returned %d", ErrExchange, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: userinfo returned %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %w", ErrProviderUnavailable, err)
	}
	if info.Subject == "" {
		return nil, fmt.Errorf("%w: userinfo has no subject", ErrExchange)
	}
	return &info, nil
}
