// Package exchange builds authorization request URLs and performs the
// authorization-code-for-tokens exchange against the token endpoint.
package exchange

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/pkce"
	"github.com/jrsteele09/go-auth-client/sessionstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// AuthorizeOptions customize a single authorization request.
type AuthorizeOptions struct {
	// OrganizationID, when set, is passed as organization_id.
	OrganizationID string

	// ConnectionID, when set, is passed as connection_id.
	ConnectionID string

	// ExtraParameters are appended after the standard parameters and may
	// collide with them; on collision the extra value wins (last write wins).
	// Callers overriding response_type or the PKCE parameters get exactly
	// what they asked for.
	ExtraParameters map[string]string
}

// Client performs the outbound OAuth protocol steps. It reads the PKCE
// verifier back from the session store at exchange time, so the exchange only
// succeeds for a flow this process actually initiated.
type Client struct {
	cfg        oauthmodel.Config
	store      *sessionstore.Store
	httpClient *http.Client
	nowTime    func() time.Time
	logger     zerolog.Logger
}

// Option modifies a Client instance.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for the token endpoint.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithNowTime sets the now time function (primarily for testing expiry).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// WithLogger sets the logger used for protocol-level debug logging.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an exchange client for one client configuration.
func NewClient(cfg oauthmodel.Config, store *sessionstore.Store, options ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		nowTime:    time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// BuildAuthorizationURL assembles the full authorization-endpoint URL for a
// login attempt.
//
// Note: no CSRF "state" parameter is sent; the callback is matched to the
// attempt only by the redirect URI. A future revision should add one.
func (c *Client) BuildAuthorizationURL(params *pkce.Parameters, opts AuthorizeOptions) string {
	query := url.Values{}
	query.Set("client_id", c.cfg.ClientID)
	query.Set("redirect_uri", c.cfg.RedirectURI)
	query.Set("response_type", string(oauthmodel.CodeResponseType))
	query.Set("scope", c.cfg.Scope())
	query.Set("code_challenge", params.Challenge)
	query.Set("code_challenge_method", string(params.Method))

	if opts.OrganizationID != "" {
		query.Set("organization_id", opts.OrganizationID)
	}
	if opts.ConnectionID != "" {
		query.Set("connection_id", opts.ConnectionID)
	}

	// Extras applied last: a colliding key overrides the standard value.
	for key, value := range opts.ExtraParameters {
		query.Set(key, value)
	}

	return c.cfg.AuthorizeURL() + "?" + query.Encode()
}

// ExchangeCode trades an authorization code for tokens. The previously stored
// PKCE verifier must exist or the exchange fails with
// oauthmodel.ErrMissingVerifier before any network traffic. On success the
// normalized token record is persisted and the verifier deleted - the
// verifier is single use and must not survive a successful exchange.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauthmodel.TokenRecord, error) {
	verifier, ok, err := c.store.LoadVerifier(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] loading verifier")
	}
	if !ok {
		return nil, errors.Wrap(oauthmodel.ErrMissingVerifier, "[ExchangeCode]")
	}

	form := url.Values{}
	form.Set("grant_type", string(oauthmodel.AuthorizationCodeGrant))
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURI)
	form.Set("client_id", c.cfg.ClientID)
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}
	form.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug().Str("token_url", c.cfg.TokenURL()).Msg("exchanging authorization code")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] token endpoint request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] reading token response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().Int("status", resp.StatusCode).Msg("token exchange rejected")
		return nil, &oauthmodel.TokenExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp oauthmodel.TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] parsing token response")
	}

	record := oauthmodel.NewTokenRecord(tokenResp, c.nowTime())

	if err := c.store.SaveTokens(ctx, record); err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] persisting tokens")
	}
	if err := c.store.DeleteVerifier(ctx); err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] deleting verifier")
	}

	return record, nil
}
