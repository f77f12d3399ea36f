package auth

import "github.com/jrsteele09/go-auth-client/oauthmodel"

// AuthState is the single snapshot of authentication state exposed to
// consumers. Values are replaced wholesale on every transition; treat a
// received AuthState as read-only.
//
// IsAuthenticated implies User and Tokens were present and unexpired at the
// moment the flag was set. IsLoading is set synchronously before any
// asynchronous sub-step of an operation begins and cleared only on the
// terminal transition - consumers should treat a true IsLoading as an
// exclusion signal and not start a second operation.
type AuthState struct {
	IsLoading       bool
	IsAuthenticated bool
	User            *oauthmodel.UserClaims
	Tokens          *oauthmodel.TokenRecord

	// Err is a human-readable description of the last failure, empty when
	// the last operation ended cleanly. User cancellation is not a failure
	// and leaves Err empty.
	Err string
}
