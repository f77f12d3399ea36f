package browserfakes

import (
	"context"

	"github.com/jrsteele09/go-auth-client/browser"
)

var _ browser.SessionOpener = (*FakeOpener)(nil)

// FakeOpener resolves browser sessions with a canned result, recording what
// it was asked to open.
type FakeOpener struct {
	Result *browser.Result
	Err    error

	// OpenFunc, when set, overrides Result/Err entirely.
	OpenFunc func(ctx context.Context, authURL, redirectURI string) (*browser.Result, error)

	OpenedAuthURL     string
	OpenedRedirectURI string
	OpenCalls         int
}

func NewFakeOpener(result *browser.Result) *FakeOpener {
	return &FakeOpener{Result: result}
}

func (f *FakeOpener) Open(ctx context.Context, authURL, redirectURI string) (*browser.Result, error) {
	f.OpenCalls++
	f.OpenedAuthURL = authURL
	f.OpenedRedirectURI = redirectURI

	if f.OpenFunc != nil {
		return f.OpenFunc(ctx, authURL, redirectURI)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Result, nil
}
