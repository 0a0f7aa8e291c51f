package httpsource

import (
	"errors"
	"os"

	"github.com/zalando/go-keyring"
)

// TokenEnv overrides any stored API token.
const TokenEnv = "GRIDVIEW_TOKEN"

const keyringService = "gridview"

// LookupToken returns the API token for profile: $GRIDVIEW_TOKEN if set,
// otherwise the OS credential manager entry. A missing entry is not an
// error; the token is "".
func LookupToken(profile string) (string, error) {
	if tok := os.Getenv(TokenEnv); tok != "" {
		return tok, nil
	}
	tok, err := keyring.Get(keyringService, profile)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// SaveToken stores a token in the OS credential manager.
func SaveToken(profile, token string) error {
	return keyring.Set(keyringService, profile, token)
}

// DeleteToken removes a stored token.
func DeleteToken(profile string) error {
	return keyring.Delete(keyringService, profile)
}
