package oauthmodel

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DefaultScopes are requested when the caller does not supply a scope list.
// "openid" is required for an ID token to be issued alongside the access token.
var DefaultScopes = []string{"openid", "profile", "email"}

// Config holds the immutable per-session client configuration. Build it with
// NewConfig; once constructed the resolved redirect URI and scope list are
// stable for the lifetime of the value.
type Config struct {
	// EnvironmentURL is the base URL of the authorization server,
	// e.g. "https://auth.example.com". The authorization and token
	// endpoints are fixed paths beneath it.
	EnvironmentURL string

	// ClientID identifies this application to the authorization server.
	ClientID string

	// ClientSecret is optional. Native/mobile clients are public clients
	// and normally leave it empty; the PKCE verifier takes its place.
	ClientSecret string

	// RedirectURI is where the authorization server sends the user back.
	// If empty at construction it is derived from the app scheme.
	RedirectURI string

	// Scopes is the requested scope list. Never empty after NewConfig.
	Scopes []string
}

// ConfigOption modifies a Config during construction.
type ConfigOption func(*Config)

// WithClientSecret sets the optional client secret for confidential clients.
func WithClientSecret(secret string) ConfigOption {
	return func(c *Config) {
		c.ClientSecret = secret
	}
}

// WithRedirectURI sets an explicit redirect URI, overriding scheme derivation.
func WithRedirectURI(uri string) ConfigOption {
	return func(c *Config) {
		c.RedirectURI = uri
	}
}

// WithScopes replaces the default scope list.
func WithScopes(scopes ...string) ConfigOption {
	return func(c *Config) {
		c.Scopes = scopes
	}
}

// NewConfig validates and resolves a client configuration. appScheme is the
// application's registered URL scheme, used to derive a redirect URI of the
// form "{scheme}://callback" when none is supplied explicitly.
func NewConfig(environmentURL, clientID, appScheme string, options ...ConfigOption) (Config, error) {
	cfg := Config{
		EnvironmentURL: strings.TrimRight(environmentURL, "/"),
		ClientID:       clientID,
	}

	for _, opt := range options {
		opt(&cfg)
	}

	if cfg.EnvironmentURL == "" {
		return Config{}, errors.New("[NewConfig] environment URL is required")
	}
	if cfg.ClientID == "" {
		return Config{}, errors.New("[NewConfig] client ID is required")
	}

	if cfg.RedirectURI == "" {
		if appScheme == "" {
			return Config{}, errors.New("[NewConfig] redirect URI or app scheme is required")
		}
		cfg.RedirectURI = fmt.Sprintf("%s://callback", appScheme)
	}

	if len(cfg.Scopes) == 0 {
		cfg.Scopes = append([]string(nil), DefaultScopes...)
	}

	return cfg, nil
}

// AuthorizeURL returns the authorization endpoint for this environment.
func (c Config) AuthorizeURL() string {
	return c.EnvironmentURL + "/oauth/authorize"
}

// TokenURL returns the token endpoint for this environment.
func (c Config) TokenURL() string {
	return c.EnvironmentURL + "/oauth/token"
}

// Scope returns the space-joined scope string used on the wire.
func (c Config) Scope() string {
	return strings.Join(c.Scopes, " ")
}
