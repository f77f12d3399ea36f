// Package pkce generates the verifier/challenge pair for the OAuth 2.0
// Proof Key for Code Exchange extension (RFC 7636, S256 method).
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/pkg/errors"
)

// verifierLength is the number of random bytes behind a code verifier. 32
// bytes encode to 43 base64url characters, the RFC 7636 minimum.
const verifierLength = 32

// Parameters holds a freshly generated verifier and its derived challenge.
// A Parameters value is good for exactly one authorization round trip; the
// verifier must never be reused across login attempts.
type Parameters struct {
	Verifier  string
	Challenge string
	Method    oauthmodel.CodeMethodType
}

// Generator produces PKCE parameters from a cryptographically secure random
// source.
type Generator struct {
	random io.Reader
}

// GeneratorOption modifies a Generator instance.
type GeneratorOption func(*Generator)

// WithRandom replaces the random source (primarily for testing).
func WithRandom(r io.Reader) GeneratorOption {
	return func(g *Generator) {
		g.random = r
	}
}

// NewGenerator creates a Generator backed by crypto/rand.
func NewGenerator(options ...GeneratorOption) *Generator {
	g := &Generator{random: rand.Reader}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Generate produces a fresh verifier and its S256 challenge. The only failure
// mode is the random source itself.
func (g *Generator) Generate() (*Parameters, error) {
	buf := make([]byte, verifierLength)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return nil, errors.Wrap(err, "[Generate] reading random bytes")
	}
	verifier := base64.RawURLEncoding.EncodeToString(buf)
	return &Parameters{
		Verifier:  verifier,
		Challenge: Challenge(verifier),
		Method:    oauthmodel.CodeMethodTypeS256,
	}, nil
}

// Challenge derives the S256 code challenge for a verifier: the base64url
// encoding, without padding, of the SHA-256 digest of the verifier's ASCII
// bytes. Deterministic - the server performs the same computation at the
// token endpoint.
func Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
