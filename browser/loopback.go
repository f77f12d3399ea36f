package browser

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const closePageHTML = `<!DOCTYPE html>
<html>
<head><title>Signed in</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 80px;">
<h1>You're signed in</h1>
<p>You can close this window and return to the application.</p>
</body>
</html>`

var _ SessionOpener = (*Loopback)(nil)

// Loopback opens the system browser at the authorization URL and serves the
// redirect URI on a local listener to capture the callback. It supports
// http redirect URIs on loopback addresses, the native-app pattern from
// RFC 8252 §7.3.
//
// Construct one Loopback at application bootstrap and share it; Open may be
// called once per login attempt.
type Loopback struct {
	logger  zerolog.Logger
	openURL func(rawURL string) error
}

// LoopbackOption modifies a Loopback instance.
type LoopbackOption func(*Loopback)

// WithLoopbackLogger sets the logger.
func WithLoopbackLogger(logger zerolog.Logger) LoopbackOption {
	return func(l *Loopback) {
		l.logger = logger
	}
}

// WithOpenURL replaces the system-browser launcher (primarily for testing).
func WithOpenURL(open func(rawURL string) error) LoopbackOption {
	return func(l *Loopback) {
		l.openURL = open
	}
}

// NewLoopback creates a loopback session opener.
func NewLoopback(options ...LoopbackOption) *Loopback {
	l := &Loopback{
		logger:  zerolog.Nop(),
		openURL: openSystemBrowser,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Open serves redirectURI on a local listener, sends the user's browser to
// authURL, and resolves with the callback URL once the authorization server
// redirects back. Cancelling ctx resolves with OutcomeCancel - the user
// abandoned the flow. A browser that cannot be launched resolves with
// OutcomeFailure.
func (l *Loopback) Open(ctx context.Context, authURL, redirectURI string) (*Result, error) {
	redirect, err := url.Parse(redirectURI)
	if err != nil {
		return nil, errors.Wrap(err, "[Loopback.Open] parsing redirect URI")
	}
	if redirect.Scheme != "http" {
		return nil, errors.Errorf("[Loopback.Open] redirect URI %q is not a loopback http URI", redirectURI)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, errors.Wrapf(err, "[Loopback.Open] listening on %s", redirect.Host)
	}

	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	callbacks := make(chan string, 1)

	router := chi.NewRouter()
	router.Get(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(closePageHTML))

		select {
		case callbacks <- "http://" + redirect.Host + r.URL.String():
		default: // a second hit on the callback is ignored
		}
	})

	server := &http.Server{Handler: router, ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}
	go server.Serve(listener)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	l.logger.Info().Str("redirect_uri", redirectURI).Msg("opening browser for authorization")

	if err := l.openURL(authURL); err != nil {
		l.logger.Err(err).Msg("failed to launch system browser")
		return &Result{Kind: OutcomeFailure, Reason: "could not launch browser: " + err.Error()}, nil
	}

	select {
	case callbackURL := <-callbacks:
		return &Result{Kind: OutcomeSuccess, CallbackURL: callbackURL}, nil
	case <-ctx.Done():
		return &Result{Kind: OutcomeCancel}, nil
	}
}

func openSystemBrowser(rawURL string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}
