package auth

import (
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// TokenSource exposes the session's access token through the standard
// golang.org/x/oauth2 contract so the session can feed any library that
// consumes a TokenSource. The source applies the same expiry leeway as
// AccessToken and never refreshes - once the session expires, Token fails
// with ErrNoActiveSession until the user logs in again.
func (m *SessionManager) TokenSource() oauth2.TokenSource {
	return &sessionTokenSource{manager: m}
}

type sessionTokenSource struct {
	manager *SessionManager
}

func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	current := ts.manager.CurrentState()
	if current.Tokens == nil || current.Tokens.Expired(ts.manager.nowTime()) {
		return nil, errors.Wrap(oauthmodel.ErrNoActiveSession, "[TokenSource]")
	}
	return current.Tokens.OAuth2Token(), nil
}
