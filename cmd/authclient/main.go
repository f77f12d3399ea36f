package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/browser"
	"github.com/jrsteele09/go-auth-client/exchange"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/sessionstore"
	"github.com/jrsteele09/go-auth-client/sessionstore/secretfile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: authclient <command>

commands:
  login    open a browser session and authenticate
  logout   clear the local session
  status   show the current session
  token    print the current access token`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Err(err).Msg("authclient failed")
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(args) < 1 {
		fmt.Println(usage)
		return nil
	}

	envCfg := config.EnvVars{}
	displayAppname(envCfg.GetAppName())

	manager, err := buildSessionManager(envCfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reconcile any persisted session before the command runs.
	state := manager.Restore(ctx)

	switch args[0] {
	case "login":
		state = manager.Login(ctx, exchange.AuthorizeOptions{})
		printState(state)
	case "logout":
		state = manager.Logout(ctx)
		printState(state)
	case "status":
		printState(state)
	case "token":
		token, ok := manager.AccessToken()
		if !ok {
			fmt.Println("no usable access token - run `authclient login`")
			return nil
		}
		fmt.Println(token)
	default:
		fmt.Println(usage)
	}

	return nil
}

// buildSessionManager is the composition root: the secure store, exchange
// client and browser opener are constructed exactly once here and handed to
// the state machine.
func buildSessionManager(envCfg config.EnvVars) (*auth.SessionManager, error) {
	cfg, err := clientConfig(envCfg)
	if err != nil {
		return nil, err
	}

	secure, err := secretfile.New(envCfg.GetDataFolder(), envCfg.GetStorePassphrase())
	if err != nil {
		return nil, err
	}
	store := sessionstore.NewStore(secure)

	exchanger := exchange.NewClient(cfg, store, exchange.WithLogger(log.Logger))
	opener := browser.NewLoopback(browser.WithLoopbackLogger(log.Logger))

	return auth.NewSessionManager(cfg, store, exchanger, opener, auth.WithLogger(log.Logger))
}

func clientConfig(envCfg config.EnvVars) (oauthmodel.Config, error) {
	options := []oauthmodel.ConfigOption{
		oauthmodel.WithRedirectURI(envCfg.GetRedirectURI()),
	}
	if secret := envCfg.GetClientSecret(); secret != "" {
		options = append(options, oauthmodel.WithClientSecret(secret))
	}
	if scopes := envCfg.GetScopes(); len(scopes) > 0 {
		options = append(options, oauthmodel.WithScopes(scopes...))
	}
	return oauthmodel.NewConfig(envCfg.GetEnvironmentURL(), envCfg.GetClientID(), "", options...)
}

func printState(state auth.AuthState) {
	if state.Err != "" {
		fmt.Printf("error: %s\n", state.Err)
	}
	if !state.IsAuthenticated {
		fmt.Println("not authenticated")
		return
	}

	fmt.Printf("authenticated as %s\n", state.User.Sub)
	if state.User.Email != "" {
		fmt.Printf("  email:   %s\n", state.User.Email)
	}
	if state.User.Name != "" {
		fmt.Printf("  name:    %s\n", state.User.Name)
	}
	fmt.Printf("  expires: %s\n", state.Tokens.ExpiresAt.Local())
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
