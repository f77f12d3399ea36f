package oauthmodel

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingVerifier is returned when a code exchange is attempted with no
	// PKCE verifier in storage - the flow was never initiated or was restarted
	// mid-flight.
	ErrMissingVerifier = errors.New("no code verifier stored for this flow")

	// ErrTokenExchangeFailed is the sentinel every TokenExchangeError unwraps
	// to, so callers can match with errors.Is.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrMalformedToken is returned when an ID token does not have exactly
	// three dot-separated segments or its payload cannot be decoded.
	ErrMalformedToken = errors.New("malformed ID token")

	// ErrStorageCorrupt is returned when a persisted blob exists but cannot be
	// parsed back into its record type.
	ErrStorageCorrupt = errors.New("stored session data is corrupt")

	// ErrAuthorizationIncomplete is returned when the browser session resolves
	// successfully but the callback URL carries no authorization code.
	ErrAuthorizationIncomplete = errors.New("authorization callback contained no code")

	// ErrAuthenticationFailed is returned for any browser-session outcome that
	// is neither success nor a user cancellation.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNoActiveSession is returned by operations that need an established
	// session (an ID token in state) when none exists.
	ErrNoActiveSession = errors.New("no active session")
)

// TokenExchangeError reports a non-success HTTP response from the token
// endpoint, carrying the raw response body for diagnosis.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrTokenExchangeFailed) match.
func (e *TokenExchangeError) Unwrap() error {
	return ErrTokenExchangeFailed
}
