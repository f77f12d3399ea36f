package oauthmodel

// ResponseType represents the OAuth 2.0 response type requested from the
// authorization endpoint.
type ResponseType string

const (
	// CodeResponseType requests the authorization code flow - the only flow
	// this client implements. The authorization endpoint returns a short-lived
	// code which is then exchanged at the token endpoint.
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge
// method sent with the authorization request.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates the challenge is BASE64URL(SHA256(verifier)).
	// The server recomputes the digest from the verifier presented at the token
	// endpoint and compares. This client always uses S256; the "plain" method
	// offers no protection against an attacker who can observe the
	// authorization request.
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.0 grant presented at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code (plus the PKCE
	// code verifier) for tokens.
	AuthorizationCodeGrant GrantType = "authorization_code"
)

// BearerTokenType is the token_type the token endpoint is expected to return.
const BearerTokenType = "Bearer"
