package oauthmodel

import (
	"time"

	"github.com/jrsteele09/go-auth-client/internal/utils"
	"golang.org/x/oauth2"
)

// ExpiryLeeway is subtracted from a token's absolute expiry when deciding
// whether it is still usable. The buffer absorbs clock skew between client
// and server and avoids presenting a token that expires mid-request.
const ExpiryLeeway = 60 * time.Second

// TokenResponse is the wire-format JSON body returned by the token endpoint
// (RFC 6749 §5.1). Optional fields are pointers so their absence survives a
// round trip.
type TokenResponse struct {
	// AccessToken is the opaque credential presented to resource servers.
	AccessToken string `json:"access_token"`

	// RefreshToken, when present, could be used to obtain new tokens without
	// re-authenticating. This client captures it but never exchanges it -
	// expiry forces a fresh login instead.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// IdToken is the OpenID Connect ID token (a JWT). Present when the
	// "openid" scope was granted.
	IdToken *string `json:"id_token,omitempty"`

	// TokenType is how the access token is presented, expected "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds, relative to the
	// moment the server produced the response.
	ExpiresIn int64 `json:"expires_in"`
}

// TokenRecord is the normalized, persisted snapshot of a token response.
// ExpiresAt is always computed from the local receipt time plus ExpiresIn -
// the server's own clock is never trusted for an absolute value.
type TokenRecord struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	IDToken      string    `json:"idToken,omitempty"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int64     `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// NewTokenRecord normalizes a wire response into a TokenRecord, stamping the
// absolute expiry relative to receivedAt.
func NewTokenRecord(resp TokenResponse, receivedAt time.Time) *TokenRecord {
	return &TokenRecord{
		AccessToken:  resp.AccessToken,
		RefreshToken: utils.Value(resp.RefreshToken),
		IDToken:      utils.Value(resp.IdToken),
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		ExpiresAt:    receivedAt.Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
}

// Expired reports whether the record is unusable at the given time. A record
// inside the leeway window counts as expired even though the server would
// still accept it for a few more seconds.
func (t *TokenRecord) Expired(now time.Time) bool {
	if t == nil {
		return true
	}
	return !now.Before(t.ExpiresAt.Add(-ExpiryLeeway))
}

// OAuth2Token converts the record into a golang.org/x/oauth2 token so it can
// feed standard TokenSource consumers (API client libraries, etc).
func (t *TokenRecord) OAuth2Token() *oauth2.Token {
	if t == nil {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
	if t.IDToken != "" {
		tok = tok.WithExtra(map[string]interface{}{"id_token": t.IDToken})
	}
	return tok
}
