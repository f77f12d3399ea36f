// Package sessionstore persists session state (tokens, user claims, and the
// transient PKCE verifier) as opaque JSON blobs in a platform secure store.
package sessionstore

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/pkg/errors"
)

// Fixed logical keys under which session state lives in the secure store.
const (
	TokensKey   = "auth.tokens"
	UserKey     = "auth.user"
	VerifierKey = "auth.pkce_verifier"
)

// ErrKeyNotFound is returned by SecureStore implementations for absent keys.
var ErrKeyNotFound = stderrors.New("key not found in secure store")

// SecureStore is the platform-backed confidential key-value collaborator.
// Implementations must return ErrKeyNotFound (possibly wrapped) from Get for
// keys that do not exist, and treat Delete of a missing key as a no-op.
type SecureStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store adapts a SecureStore into typed save/load/clear operations for the
// three session records. Reads of missing keys report absence with a nil
// record rather than an error; blobs that exist but cannot be parsed fail
// with oauthmodel.ErrStorageCorrupt.
type Store struct {
	secure SecureStore
}

// NewStore wraps a SecureStore.
func NewStore(secure SecureStore) *Store {
	return &Store{secure: secure}
}

// SaveTokens persists the token record snapshot.
func (s *Store) SaveTokens(ctx context.Context, tokens *oauthmodel.TokenRecord) error {
	return s.saveJSON(ctx, TokensKey, tokens)
}

// LoadTokens retrieves the persisted token record, or nil if none is stored.
func (s *Store) LoadTokens(ctx context.Context) (*oauthmodel.TokenRecord, error) {
	var tokens oauthmodel.TokenRecord
	ok, err := s.loadJSON(ctx, TokensKey, &tokens)
	if err != nil || !ok {
		return nil, err
	}
	return &tokens, nil
}

// SaveUser persists the decoded user claims.
func (s *Store) SaveUser(ctx context.Context, user *oauthmodel.UserClaims) error {
	return s.saveJSON(ctx, UserKey, user)
}

// LoadUser retrieves the persisted user claims, or nil if none are stored.
func (s *Store) LoadUser(ctx context.Context) (*oauthmodel.UserClaims, error) {
	var user oauthmodel.UserClaims
	ok, err := s.loadJSON(ctx, UserKey, &user)
	if err != nil || !ok {
		return nil, err
	}
	return &user, nil
}

// SaveVerifier persists the PKCE verifier for the duration of one
// authorization round trip.
func (s *Store) SaveVerifier(ctx context.Context, verifier string) error {
	if err := s.secure.Set(ctx, VerifierKey, verifier); err != nil {
		return errors.Wrap(err, "[SaveVerifier] secure store set")
	}
	return nil
}

// LoadVerifier retrieves the stored PKCE verifier. The second return reports
// whether one was present.
func (s *Store) LoadVerifier(ctx context.Context) (string, bool, error) {
	value, err := s.secure.Get(ctx, VerifierKey)
	if err != nil {
		if stderrors.Is(err, ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "[LoadVerifier] secure store get")
	}
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// DeleteVerifier removes the stored PKCE verifier.
func (s *Store) DeleteVerifier(ctx context.Context) error {
	if err := s.secure.Delete(ctx, VerifierKey); err != nil {
		return errors.Wrap(err, "[DeleteVerifier] secure store delete")
	}
	return nil
}

// ClearAll attempts to delete all three session keys. Every deletion is
// attempted regardless of earlier failures; any failures are joined into a
// single soft error so logout can proceed while still surfacing the problem.
func (s *Store) ClearAll(ctx context.Context) error {
	var failures []error
	for _, key := range []string{TokensKey, UserKey, VerifierKey} {
		if err := s.secure.Delete(ctx, key); err != nil {
			failures = append(failures, errors.Wrapf(err, "[ClearAll] deleting %q", key))
		}
	}
	return stderrors.Join(failures...)
}

func (s *Store) saveJSON(ctx context.Context, key string, record interface{}) error {
	blob, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "[saveJSON] marshalling %q", key)
	}
	if err := s.secure.Set(ctx, key, string(blob)); err != nil {
		return errors.Wrapf(err, "[saveJSON] secure store set %q", key)
	}
	return nil
}

// loadJSON reads and parses a stored blob. Returns (false, nil) when the key
// is absent or empty.
func (s *Store) loadJSON(ctx context.Context, key string, record interface{}) (bool, error) {
	blob, err := s.secure.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, errors.Wrapf(err, "[loadJSON] secure store get %q", key)
	}
	if blob == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(blob), record); err != nil {
		return false, errors.Wrapf(oauthmodel.ErrStorageCorrupt, "[loadJSON] parsing %q: %s", key, err.Error())
	}
	return true, nil
}
