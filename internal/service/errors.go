package service

import (
	"errors"
	"fmt"
)

var (
	ErrProviderNotRegistered = errors.New("oauth2 provider not registered")
	ErrInvalidProviderUserID = errors.New("provider user id must not be empty")
	ErrPersistenceFailed     = errors.New("identity link persistence failed")
	ErrOAuth2InvalidState    = errors.New("invalid or expired oauth2 state")
	ErrSessionRequired       = errors.New("oauth2 handshake requires a browser session")
	ErrHandshakeFailed       = errors.New("oauth2 handshake returned no token")
	ErrProfileFetchFailed    = errors.New("failed to fetch oauth2 user info")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserDisabled          = errors.New("user is disabled or banned")
	ErrRefreshTokenInvalid   = errors.New("invalid or expired refresh token")
)

// ProviderError is an OAuth2 error reported back by the provider on the
// callback (RFC 6749 section 4.1.2.1).
type ProviderError struct {
	Provider    string
	Code        string
	Description string
	URI         string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("OAuth error from %s! error=%s description=%s uri=%s",
		e.Provider, e.Code, e.Description, e.URI)
}
