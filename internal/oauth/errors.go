package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotRegistered is returned for a provider name nobody registered.
	ErrProviderNotRegistered = errors.New("oauth provider not registered")
	// ErrProviderUnavailable covers discovery failures, timeouts and provider-side errors.
	ErrProviderUnavailable = errors.New("oauth provider unavailable")
	// ErrExchange is returned when the provider rejects the callback: a bad or
	// expired code, a denied consent or an invalid state.
	ErrExchange = errors.New("oauth exchange failed")
	// ErrStateMismatch is returned for unknown, expired, reused or foreign state values.
	ErrStateMismatch = fmt.Errorf("%w: state mismatch", ErrExchange)
)
