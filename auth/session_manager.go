// Package auth owns the client-side authentication state machine: it
// sequences login, logout and startup restore, applies the token expiry
// policy, and reconciles persisted session data with in-memory state.
package auth

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/browser"
	"github.com/jrsteele09/go-auth-client/exchange"
	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/pkce"
	"github.com/jrsteele09/go-auth-client/sessionstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SessionManager is the orchestrator of the authentication lifecycle. It is
// created in the Initializing state (IsLoading=true); the composition root
// calls Restore once at startup to reconcile persisted state.
//
// Operations serialize through an internal mutex, but the intended usage is
// cooperative: one logical operation at a time, gated on IsLoading. The
// manager never retries anything - a failed exchange or store write surfaces
// immediately.
type SessionManager struct {
	cfg       oauthmodel.Config
	store     *sessionstore.Store
	exchanger *exchange.Client
	opener    browser.SessionOpener
	pkceGen   *pkce.Generator
	nowTime   func() time.Time
	logger    zerolog.Logger

	lock  sync.Mutex
	state AuthState
	bus   *broadcaster
}

// Option modifies a SessionManager instance.
type Option func(*SessionManager)

// WithNowTime sets the now time function (primarily for testing expiry).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *SessionManager) {
		m.nowTime = nowFunc
	}
}

// WithLogger sets the logger used for lifecycle logging.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

// WithPKCEGenerator replaces the PKCE generator (primarily for testing).
func WithPKCEGenerator(g *pkce.Generator) Option {
	return func(m *SessionManager) {
		m.pkceGen = g
	}
}

// NewSessionManager wires the orchestrator with its collaborators. The
// returned manager is in the Initializing state until Restore runs.
func NewSessionManager(
	cfg oauthmodel.Config,
	store *sessionstore.Store,
	exchanger *exchange.Client,
	opener browser.SessionOpener,
	options ...Option,
) (*SessionManager, error) {
	if store == nil {
		return nil, errors.New("[NewSessionManager] session store is required")
	}
	if exchanger == nil {
		return nil, errors.New("[NewSessionManager] exchange client is required")
	}
	if opener == nil {
		return nil, errors.New("[NewSessionManager] browser session opener is required")
	}

	m := &SessionManager{
		cfg:       cfg,
		store:     store,
		exchanger: exchanger,
		opener:    opener,
		pkceGen:   pkce.NewGenerator(),
		nowTime:   time.Now,
		logger:    zerolog.Nop(),
		state:     AuthState{IsLoading: true},
		bus:       newBroadcaster(),
	}

	for _, opt := range options {
		opt(m)
	}

	return m, nil
}

// CurrentState returns the latest state snapshot.
func (m *SessionManager) CurrentState() AuthState {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Subscribe registers fn for every subsequent transition and returns an
// unsubscribe function. See Subscriber for the delivery contract.
func (m *SessionManager) Subscribe(fn Subscriber) func() {
	return m.bus.subscribe(fn)
}

// Restore reconciles persisted session data with in-memory state. Stored
// unexpired tokens plus user claims land in Authenticated; expired tokens or
// tokens without claims trigger a logout-style cleanup; nothing stored lands
// in Unauthenticated. Failures are captured into the state's error field -
// restore never fails the process.
func (m *SessionManager) Restore(ctx context.Context) AuthState {
	m.setState(AuthState{IsLoading: true})

	tokens, err := m.store.LoadTokens(ctx)
	if err != nil {
		m.logger.Err(err).Msg("restore: loading tokens")
		return m.setState(AuthState{Err: err.Error()})
	}
	user, err := m.store.LoadUser(ctx)
	if err != nil {
		m.logger.Err(err).Msg("restore: loading user claims")
		return m.setState(AuthState{Err: err.Error()})
	}

	if tokens == nil {
		return m.setState(AuthState{})
	}

	if tokens.Expired(m.nowTime()) || user == nil {
		m.logger.Info().Bool("expired", tokens.Expired(m.nowTime())).Msg("restore: discarding stale session")
		if err := m.store.ClearAll(ctx); err != nil {
			m.logger.Err(err).Msg("restore: cleanup of stale session")
		}
		return m.setState(AuthState{})
	}

	m.logger.Info().Str("sub", user.Sub).Msg("restore: session restored")
	return m.setState(AuthState{IsAuthenticated: true, User: user, Tokens: tokens})
}

// Login runs one interactive authorization attempt: fresh PKCE parameters,
// verifier persisted for the round trip, browser hand-off, code exchange,
// claims decode, persistence, and the terminal transition. Cancellation and
// dismissal land in Unauthenticated with no error; everything else that goes
// wrong is captured into the state's error field.
func (m *SessionManager) Login(ctx context.Context, opts exchange.AuthorizeOptions) AuthState {
	logger := m.logger.With().Str("attempt_id", uuid.New().String()).Logger()

	// The loading flag goes up before any asynchronous sub-step.
	m.setState(AuthState{IsLoading: true})

	params, err := m.pkceGen.Generate()
	if err != nil {
		logger.Err(err).Msg("login: generating PKCE parameters")
		return m.setState(AuthState{Err: err.Error()})
	}

	if err := m.store.SaveVerifier(ctx, params.Verifier); err != nil {
		logger.Err(err).Msg("login: persisting verifier")
		return m.setState(AuthState{Err: err.Error()})
	}

	authURL := m.exchanger.BuildAuthorizationURL(params, opts)
	logger.Info().Msg("login: opening browser session")

	result, err := m.opener.Open(ctx, authURL, m.cfg.RedirectURI)
	if err != nil {
		logger.Err(err).Msg("login: browser session")
		m.abandonFlow(ctx, logger)
		return m.setState(AuthState{Err: err.Error()})
	}

	switch result.Kind {
	case browser.OutcomeSuccess:
		return m.completeLogin(ctx, logger, result.CallbackURL)

	case browser.OutcomeCancel, browser.OutcomeDismiss:
		// Cancellation is not a failure.
		logger.Info().Str("outcome", string(result.Kind)).Msg("login: abandoned by user")
		m.abandonFlow(ctx, logger)
		return m.setState(AuthState{})

	default:
		err := errors.Wrap(oauthmodel.ErrAuthenticationFailed, result.Reason)
		logger.Err(err).Msg("login: browser session failed")
		m.abandonFlow(ctx, logger)
		return m.setState(AuthState{Err: err.Error()})
	}
}

func (m *SessionManager) completeLogin(ctx context.Context, logger zerolog.Logger, callbackURL string) AuthState {
	code, err := authorizationCode(callbackURL)
	if err != nil {
		logger.Err(err).Msg("login: callback")
		m.abandonFlow(ctx, logger)
		return m.setState(AuthState{Err: err.Error()})
	}

	tokens, err := m.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		logger.Err(err).Msg("login: code exchange")
		m.abandonFlow(ctx, logger)
		return m.setState(AuthState{Err: err.Error()})
	}

	user, err := identity.Decode(tokens.IDToken)
	if err != nil {
		logger.Err(err).Msg("login: decoding identity token")
		return m.setState(AuthState{Err: err.Error()})
	}

	if err := m.store.SaveUser(ctx, user); err != nil {
		logger.Err(err).Msg("login: persisting user claims")
		return m.setState(AuthState{Err: err.Error()})
	}

	logger.Info().Str("sub", user.Sub).Msg("login: authenticated")
	return m.setState(AuthState{IsAuthenticated: true, User: user, Tokens: tokens})
}

// Logout clears persisted session data best-effort and always lands in
// Unauthenticated - a user must be able to log out locally even when the
// secure store misbehaves. Cleanup failure is reported through the state's
// error field.
func (m *SessionManager) Logout(ctx context.Context) AuthState {
	m.setState(AuthState{IsLoading: true})

	if err := m.store.ClearAll(ctx); err != nil {
		m.logger.Err(err).Msg("logout: clearing session data")
		return m.setState(AuthState{Err: err.Error()})
	}

	m.logger.Info().Msg("logout: session cleared")
	return m.setState(AuthState{})
}

// RefreshUser re-decodes the identity token in the current state and updates
// only the user-claims portion, leaving tokens untouched. Unlike the other
// operations it propagates its error to the caller - there is no natural
// state transition for a failed refresh.
func (m *SessionManager) RefreshUser(ctx context.Context) error {
	current := m.CurrentState()
	if current.Tokens == nil || current.Tokens.IDToken == "" {
		return errors.Wrap(oauthmodel.ErrNoActiveSession, "[RefreshUser]")
	}

	user, err := identity.Decode(current.Tokens.IDToken)
	if err != nil {
		return errors.Wrap(err, "[RefreshUser] decoding identity token")
	}
	if err := m.store.SaveUser(ctx, user); err != nil {
		return errors.Wrap(err, "[RefreshUser] persisting user claims")
	}

	m.lock.Lock()
	next := m.state
	next.User = user
	m.state = next
	m.bus.publish(next)
	m.lock.Unlock()

	return nil
}

// AccessToken returns the current access token if one is present and not
// expired under the leeway policy. The second return reports usability; an
// absent or expired session is the common case and never an error.
func (m *SessionManager) AccessToken() (string, bool) {
	current := m.CurrentState()
	if current.Tokens == nil || current.Tokens.Expired(m.nowTime()) {
		return "", false
	}
	return current.Tokens.AccessToken, true
}

// abandonFlow drops the transient verifier after a flow that will not reach
// a successful exchange. Best effort - the verifier is useless without its
// authorization code anyway.
func (m *SessionManager) abandonFlow(ctx context.Context, logger zerolog.Logger) {
	if err := m.store.DeleteVerifier(ctx); err != nil {
		logger.Err(err).Msg("login: discarding verifier")
	}
}

// setState replaces the snapshot and notifies subscribers, holding the state
// lock across both so transitions are observed exactly once, in order.
func (m *SessionManager) setState(state AuthState) AuthState {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.state = state
	m.bus.publish(state)
	return state
}

// authorizationCode extracts the code from a success callback URL.
func authorizationCode(callbackURL string) (string, error) {
	parsed, err := url.Parse(callbackURL)
	if err != nil {
		return "", errors.Wrap(oauthmodel.ErrAuthorizationIncomplete, err.Error())
	}
	code := parsed.Query().Get("code")
	if code == "" {
		return "", errors.Wrap(oauthmodel.ErrAuthorizationIncomplete, "[authorizationCode]")
	}
	return code, nil
}
