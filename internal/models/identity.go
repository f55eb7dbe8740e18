package models

import (
	"time"

	"github.com/google/uuid"
)

// ExternalIdentity links a provider account to a local user.
type ExternalIdentity struct {
	Provider  string    `db:"provider"`
	Subject   string    `db:"subject"` // provider-assigned user id ("sub" claim)
	UserID    uuid.UUID `db:"user_id"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

// OAuthState is the pending authorization kept between the redirect to the
// provider and its callback, keyed by the anti-CSRF state value.
type OAuthState struct {
	Provider    string `json:"provider"`
	Verifier    string `json:"verifier"`     // PKCE code verifier
	RedirectURI string `json:"redirect_uri"` // callback URL sent to the provider
}
