package auth_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/browser"
	"github.com/jrsteele09/go-auth-client/browser/browserfakes"
	"github.com/jrsteele09/go-auth-client/exchange"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/sessionstore"
	"github.com/jrsteele09/go-auth-client/sessionstore/storefakes"
	"github.com/stretchr/testify/require"
)

const (
	testClientID    = "native-app"
	testRedirectURI = "myapp://callback"
	testUserSub     = "u1"
	testUserEmail   = "a@b.com"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testFixture holds all test dependencies.
type testFixture struct {
	secure  *storefakes.FakeSecureStore
	store   *sessionstore.Store
	opener  *browserfakes.FakeOpener
	manager *auth.SessionManager
	now     *time.Time
}

// setupTestFixture wires a manager against a stub token endpoint that issues
// a fixed token response.
func setupTestFixture(t *testing.T, opener *browserfakes.FakeOpener) *testFixture {
	t.Helper()

	idToken := makeIDToken(t, map[string]interface{}{
		"sub":   testUserSub,
		"email": testUserEmail,
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access-abc",
			"refresh_token": "refresh-def",
			"id_token":      idToken,
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(server.Close)

	cfg, err := oauthmodel.NewConfig(server.URL, testClientID, "myapp",
		oauthmodel.WithRedirectURI(testRedirectURI))
	require.NoError(t, err)

	secure := storefakes.NewFakeSecureStore()
	store := sessionstore.NewStore(secure)
	now := testNow
	nowFunc := func() time.Time { return now }

	exchanger := exchange.NewClient(cfg, store, exchange.WithNowTime(nowFunc))

	manager, err := auth.NewSessionManager(cfg, store, exchanger, opener,
		auth.WithNowTime(nowFunc))
	require.NoError(t, err)

	return &testFixture{
		secure:  secure,
		store:   store,
		opener:  opener,
		manager: manager,
		now:     &now,
	}
}

func makeIDToken(t *testing.T, payload map[string]interface{}) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	require.NoError(t, err)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(body) + "." +
		"c2ln"
}

// seedSession persists a stored session directly through the store adapter.
func (f *testFixture) seedSession(t *testing.T, expiresAt time.Time, withUser bool) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SaveTokens(ctx, &oauthmodel.TokenRecord{
		AccessToken: "stored-access",
		IDToken:     makeIDToken(t, map[string]interface{}{"sub": testUserSub}),
		TokenType:   oauthmodel.BearerTokenType,
		ExpiresIn:   3600,
		ExpiresAt:   expiresAt,
	}))
	if withUser {
		require.NoError(t, f.store.SaveUser(ctx, &oauthmodel.UserClaims{Sub: testUserSub, Email: testUserEmail}))
	}
}

func successOpener(callbackURL string) *browserfakes.FakeOpener {
	return browserfakes.NewFakeOpener(&browser.Result{
		Kind:        browser.OutcomeSuccess,
		CallbackURL: callbackURL,
	})
}

func TestManagerStartsInitializing(t *testing.T) {
	f := setupTestFixture(t, successOpener(""))

	state := f.manager.CurrentState()
	require.True(t, state.IsLoading)
	require.False(t, state.IsAuthenticated)
}

func TestRestoreWithValidSession(t *testing.T) {
	f := setupTestFixture(t, successOpener(""))
	f.seedSession(t, testNow.Add(2*time.Minute), true)

	state := f.manager.Restore(context.Background())
	require.False(t, state.IsLoading)
	require.True(t, state.IsAuthenticated)
	require.Equal(t, testUserSub, state.User.Sub)
	require.Equal(t, "stored-access", state.Tokens.AccessToken)
	require.Empty(t, state.Err)
}

func TestRestoreWithExpiredTokensClearsStorage(t *testing.T) {
	f := setupTestFixture(t, successOpener(""))
	f.seedSession(t, testNow.Add(-time.Minute), true)

	state := f.manager.Restore(context.Background())
	require.False(t, state.IsAuthenticated)
	require.Empty(t, state.Err)

	tokens, err := f.store.LoadTokens(context.Background())
	require.NoError(t, err)
	require.Nil(t, tokens)
}

func TestRestoreWithTokensInsideLeewayClearsStorage(t *testing.T) {
	f := setupTestFixture(t, successOpener(""))
	// 30s of nominal lifetime left is inside the 60s leeway.
	f.seedSession(t, testNow.Add(30*time.Second), true)

	state := f.manager.Restore(context.Background())
	require.False(t, state.IsAuthenticated)
}

func TestRestoreWithTokensButNoClaimsClearsStorage(t *testing.T) {
	f := setupTestFixture(t, successOpener(""))
	f.seedSession(t, testNow.Add(2*time.Minute), false)

	state := f.manager.Restore(context.Background())
	require.False(t, state.IsAuthenticated)
	require.Empty(t, state.Err)

	tokens, err := f.store.LoadTokens(context.Background())
	require.NoError(t, err)
	require.Nil(t, tokens)
}

func TestRestoreWithNothingStored(t *testing.T) {
	f := setupTestFixture(t, successOpener(""))

	state := f.manager.Restore(context.Background())
	require.False(t, state.IsLoading)
	require.False(t, state.IsAuthenticated)
	require.Nil(t, state.User)
	require.Nil(t, state.Tokens)
	require.Empty(t, state.Err)
}

func TestRestoreWithCorruptBlobReportsError(t *testing.T) {
	f := setupTestFixture(t, successOpener(""))
	f.secure.Seed(sessionstore.TokensKey, "{definitely not json")

	state := f.manager.Restore(context.Background())
	require.False(t, state.IsAuthenticated)
	require.Contains(t, state.Err, "corrupt")
}

func TestLoginSuccess(t *testing.T) {
	opener := successOpener(testRedirectURI + "?code=code-123")
	f := setupTestFixture(t, opener)

	state := f.manager.Login(context.Background(), exchange.AuthorizeOptions{})
	require.False(t, state.IsLoading)
	require.True(t, state.IsAuthenticated)
	require.Empty(t, state.Err)
	require.Equal(t, testUserSub, state.User.Sub)
	require.Equal(t, testUserEmail, state.User.Email)
	require.Equal(t, "access-abc", state.Tokens.AccessToken)
	require.Equal(t, testNow.Add(time.Hour), state.Tokens.ExpiresAt)

	// The browser was sent to a URL carrying the PKCE challenge.
	authURL, err := url.Parse(opener.OpenedAuthURL)
	require.NoError(t, err)
	require.NotEmpty(t, authURL.Query().Get("code_challenge"))
	require.Equal(t, "S256", authURL.Query().Get("code_challenge_method"))
	require.Equal(t, testRedirectURI, opener.OpenedRedirectURI)

	// Tokens and claims persisted; the single-use verifier is gone.
	tokens, err := f.store.LoadTokens(context.Background())
	require.NoError(t, err)
	require.Equal(t, state.Tokens, tokens)
	user, err := f.store.LoadUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, state.User, user)
	require.False(t, f.secure.Contains(sessionstore.VerifierKey))
}

func TestLoginVerifierDiffersPerAttempt(t *testing.T) {
	opener := browserfakes.NewFakeOpener(&browser.Result{Kind: browser.OutcomeCancel})
	f := setupTestFixture(t, opener)

	challenge := func() string {
		f.manager.Login(context.Background(), exchange.AuthorizeOptions{})
		parsed, err := url.Parse(opener.OpenedAuthURL)
		require.NoError(t, err)
		return parsed.Query().Get("code_challenge")
	}

	require.NotEqual(t, challenge(), challenge())
}

func TestLoginCancelledIsNotAFailure(t *testing.T) {
	f := setupTestFixture(t, browserfakes.NewFakeOpener(&browser.Result{Kind: browser.OutcomeCancel}))

	state := f.manager.Login(context.Background(), exchange.AuthorizeOptions{})
	require.False(t, state.IsLoading)
	require.False(t, state.IsAuthenticated)
	require.Empty(t, state.Err)

	// An abandoned flow leaves no verifier behind.
	require.False(t, f.secure.Contains(sessionstore.VerifierKey))
}

func TestLoginDismissedIsNotAFailure(t *testing.T) {
	f := setupTestFixture(t, browserfakes.NewFakeOpener(&browser.Result{Kind: browser.OutcomeDismiss}))

	state := f.manager.Login(context.Background(), exchange.AuthorizeOptions{})
	require.False(t, state.IsAuthenticated)
	require.Empty(t, state.Err)
}

func TestLoginSuccessWithoutCode(t *testing.T) {
	f := setupTestFixture(t, successOpener(testRedirectURI+"?state=whatever"))

	state := f.manager.Login(context.Background(), exchange.AuthorizeOptions{})
	require.False(t, state.IsAuthenticated)
	require.Contains(t, state.Err, "no code")
	require.False(t, f.secure.Contains(sessionstore.VerifierKey))
}

func TestLoginBrowserFailure(t *testing.T) {
	f := setupTestFixture(t, browserfakes.NewFakeOpener(&browser.Result{
		Kind:   browser.OutcomeFailure,
		Reason: "browser crashed",
	}))

	state := f.manager.Login(context.Background(), exchange.AuthorizeOptions{})
	require.False(t, state.IsAuthenticated)
	require.Contains(t, state.Err, "authentication failed")
	require.Contains(t, state.Err, "browser crashed")
}

func TestLoginExchangeRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	t.Cleanup(server.Close)

	cfg, err := oauthmodel.NewConfig(server.URL, testClientID, "myapp",
		oauthmodel.WithRedirectURI(testRedirectURI))
	require.NoError(t, err)

	secure := storefakes.NewFakeSecureStore()
	store := sessionstore.NewStore(secure)
	exchanger := exchange.NewClient(cfg, store)
	manager, err := auth.NewSessionManager(cfg, store, exchanger,
		successOpener(testRedirectURI+"?code=bad-code"))
	require.NoError(t, err)

	state := manager.Login(context.Background(), exchange.AuthorizeOptions{})
	require.False(t, state.IsAuthenticated)
	require.Contains(t, state.Err, "invalid_grant")
	require.False(t, secure.Contains(sessionstore.VerifierKey))
}

func TestLogoutClearsSession(t *testing.T) {
	opener := successOpener(testRedirectURI + "?code=code-123")
	f := setupTestFixture(t, opener)
	f.manager.Login(context.Background(), exchange.AuthorizeOptions{})

	state := f.manager.Logout(context.Background())
	require.False(t, state.IsLoading)
	require.False(t, state.IsAuthenticated)
	require.Nil(t, state.User)
	require.Nil(t, state.Tokens)
	require.Empty(t, state.Err)

	require.False(t, f.secure.Contains(sessionstore.TokensKey))
	require.False(t, f.secure.Contains(sessionstore.UserKey))
}

func TestLogoutSucceedsLocallyDespiteStoreFailure(t *testing.T) {
	f := setupTestFixture(t, successOpener(testRedirectURI+"?code=code-123"))
	f.manager.Login(context.Background(), exchange.AuthorizeOptions{})

	f.secure.DeleteErrs[sessionstore.UserKey] = errors.New("keychain busy")

	state := f.manager.Logout(context.Background())
	require.False(t, state.IsAuthenticated)
	require.Contains(t, state.Err, "keychain busy")

	// The keys that could be cleared were cleared.
	require.False(t, f.secure.Contains(sessionstore.TokensKey))
}

func TestAccessToken(t *testing.T) {
	f := setupTestFixture(t, successOpener(testRedirectURI+"?code=code-123"))

	// No session yet.
	_, ok := f.manager.AccessToken()
	require.False(t, ok)

	f.manager.Login(context.Background(), exchange.AuthorizeOptions{})

	token, ok := f.manager.AccessToken()
	require.True(t, ok)
	require.Equal(t, "access-abc", token)
}

func TestAccessTokenExpiredSession(t *testing.T) {
	f := setupTestFixture(t, successOpener(""))
	f.seedSession(t, testNow.Add(30*time.Second), true)

	// Restore discards the near-expired session entirely.
	f.manager.Restore(context.Background())
	_, ok := f.manager.AccessToken()
	require.False(t, ok)
}

func TestAccessTokenExpiresInMemory(t *testing.T) {
	f := setupTestFixture(t, successOpener(testRedirectURI+"?code=code-123"))
	f.manager.Login(context.Background(), exchange.AuthorizeOptions{})

	_, ok := f.manager.AccessToken()
	require.True(t, ok)

	// Advance past the token lifetime; the in-memory session is no longer
	// usable even though no transition has happened.
	*f.now = testNow.Add(time.Hour)
	_, ok = f.manager.AccessToken()
	require.False(t, ok)
}

func TestRefreshUserWithoutSession(t *testing.T) {
	f := setupTestFixture(t, successOpener(""))
	f.manager.Restore(context.Background())

	err := f.manager.RefreshUser(context.Background())
	require.ErrorIs(t, err, oauthmodel.ErrNoActiveSession)
}

func TestRefreshUserUpdatesOnlyClaims(t *testing.T) {
	f := setupTestFixture(t, successOpener(testRedirectURI+"?code=code-123"))
	before := f.manager.Login(context.Background(), exchange.AuthorizeOptions{})
	require.True(t, before.IsAuthenticated)

	require.NoError(t, f.manager.RefreshUser(context.Background()))

	after := f.manager.CurrentState()
	require.True(t, after.IsAuthenticated)
	require.Equal(t, testUserSub, after.User.Sub)
	require.Equal(t, before.Tokens, after.Tokens)
}

func TestTokenSource(t *testing.T) {
	f := setupTestFixture(t, successOpener(testRedirectURI+"?code=code-123"))
	source := f.manager.TokenSource()

	_, err := source.Token()
	require.ErrorIs(t, err, oauthmodel.ErrNoActiveSession)

	f.manager.Login(context.Background(), exchange.AuthorizeOptions{})

	tok, err := source.Token()
	require.NoError(t, err)
	require.Equal(t, "access-abc", tok.AccessToken)
	require.Equal(t, testNow.Add(time.Hour), tok.Expiry)
}

func TestSubscribersSeeTransitionsInOrder(t *testing.T) {
	f := setupTestFixture(t, successOpener(testRedirectURI+"?code=code-123"))

	var observed []auth.AuthState
	unsubscribe := f.manager.Subscribe(func(s auth.AuthState) {
		observed = append(observed, s)
	})

	f.manager.Login(context.Background(), exchange.AuthorizeOptions{})

	require.Len(t, observed, 2)
	require.True(t, observed[0].IsLoading)
	require.False(t, observed[0].IsAuthenticated)
	require.False(t, observed[1].IsLoading)
	require.True(t, observed[1].IsAuthenticated)

	unsubscribe()
	f.manager.Logout(context.Background())
	require.Len(t, observed, 2, "unsubscribed subscriber must see nothing further")
}

func TestLoadingFlagSetBeforeBrowserOpens(t *testing.T) {
	fixtureRef := &testFixture{}
	opener := &browserfakes.FakeOpener{}
	opener.OpenFunc = func(ctx context.Context, authURL, redirectURI string) (*browser.Result, error) {
		require.True(t, fixtureRef.manager.CurrentState().IsLoading)
		return &browser.Result{Kind: browser.OutcomeCancel}, nil
	}

	*fixtureRef = *setupTestFixture(t, opener)

	state := fixtureRef.manager.Login(context.Background(), exchange.AuthorizeOptions{})
	require.False(t, state.IsLoading)
	require.Equal(t, 1, opener.OpenCalls)
}
