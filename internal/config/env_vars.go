package config

import (
	"os"
	"strings"
)

const (
	appNameVar        = "APP_NAME"
	environmentURLVar = "AUTH_ENVIRONMENT_URL"
	clientIDVar       = "AUTH_CLIENT_ID"
	clientSecretVar   = "AUTH_CLIENT_SECRET"
	redirectURIVar    = "AUTH_REDIRECT_URI"
	scopesVar         = "AUTH_SCOPES"
	dataFolderVar     = "AUTH_DATA_FOLDER"
	passphraseVar     = "AUTH_STORE_PASSPHRASE"
)

// EnvVars reads client configuration from the process environment.
type EnvVars struct{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go Auth Client")
}

// GetEnvironmentURL returns the authorization server base URL,
// e.g. "https://auth.example.com".
func (EnvVars) GetEnvironmentURL() string {
	return GetEnv(environmentURLVar, "")
}

func (EnvVars) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

func (EnvVars) GetClientSecret() string {
	return GetEnv(clientSecretVar, "")
}

// GetRedirectURI returns the callback URI. The loopback opener needs an http
// loopback address, so the default serves a local port.
func (EnvVars) GetRedirectURI() string {
	return GetEnv(redirectURIVar, "http://127.0.0.1:8123/callback")
}

// GetScopes returns the requested scope list, space separated in the
// environment. Empty means the library defaults apply.
func (EnvVars) GetScopes() []string {
	return strings.Fields(GetEnv(scopesVar, ""))
}

// GetDataFolder is where the encrypted session store lives.
func (EnvVars) GetDataFolder() string {
	return GetEnv(dataFolderVar, "./data")
}

// GetStorePassphrase protects the session store at rest.
func (EnvVars) GetStorePassphrase() string {
	return GetEnv(passphraseVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
