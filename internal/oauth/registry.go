// Package oauth keeps the configured OAuth providers and drives the
// authorization-code flow against them.
package oauth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sbilibin2017/gw-identity/internal/logger"
	"golang.org/x/sync/singleflight"
)

// ProviderConfig describes one OAuth provider.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	DiscoveryURL string
	Scopes       []string
}

type provider struct {
	config  ProviderConfig
	version uint64
}

// Registry holds provider configurations and lazily builds one Client per
// provider on first use. Concurrent first uses share a single discovery fetch.
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]provider
	clients    map[string]*Client
	version    uint64
	group      singleflight.Group
	states     StateStore
	httpClient *http.Client
}

// NewRegistry creates an empty Registry. timeout bounds every call made to a provider.
func NewRegistry(states StateStore, timeout time.Duration) *Registry {
	return &Registry{
		providers:  make(map[string]provider),
		clients:    make(map[string]*Client),
		states:     states,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Register stores or overwrites the configuration of p.Name.
func (r *Registry) Register(p ProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.version++
	r.providers[p.Name] = provider{config: p, version: r.version}
	delete(r.clients, p.Name)
}

// Client returns the client for name, running discovery on first access.
// A failed discovery is not cached.
func (r *Registry) Client(ctx context.Context, name string) (*Client, error) {
	r.mu.RLock()
	client, cached := r.clients[name]
	p, registered := r.providers[name]
	r.mu.RUnlock()

	if cached {
		return client, nil
	}
	if !registered {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}

	key := fmt.Sprintf("%s#%d", name, p.version)
	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.RLock()
		existing, ok := r.clients[name]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		meta, err := Discover(context.WithoutCancel(ctx), r.httpClient, p.config.DiscoveryURL)
		if err != nil {
			logger.Log.Errorw("oauth discovery failed", "provider", name, "error", err)
			return nil, err
		}

		c := newClient(p.config, meta, r.states, r.httpClient)

		r.mu.Lock()
		// only cache when the provider was not re-registered meanwhile
		if current, ok := r.providers[name]; ok && current.version == p.version {
			r.clients[name] = c
		}
		r.mu.Unlock()

		logger.Log.Infow("oauth client ready", "provider", name, "issuer", meta.Issuer)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

// AuthorizeRedirect returns the authorization URL of the named provider for callbackURL.
func (r *Registry) AuthorizeRedirect(ctx context.Context, name, callbackURL string) (string, error) {
	client, err := r.Client(ctx, name)
	if err != nil {
		return "", err
	}
	return client.AuthorizeRedirect(ctx, callbackURL)
}

// AuthorizeAccessToken completes the flow of the named provider from its callback request.
func (r *Registry) AuthorizeAccessToken(ctx context.Context, name string, req *http.Request) (*TokenBundle, error) {
	client, err := r.Client(ctx, name)
	if err != nil {
		return nil, err
	}
	return client.AuthorizeAccessToken(ctx, req)
}
