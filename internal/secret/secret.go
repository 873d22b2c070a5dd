package secret

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

const (
	KeychainService = "sessionctl"
	KeychainAccount = "master-key"
	// EnvVar holds the secret when no flag is given.
	EnvVar = "SESSIONCTL_SECRET"
)

var (
	ErrNotFound    = errors.New("no secret found")
	ErrUnsupported = errors.New("keychain integration is only supported on macOS")
)

// Resolve returns the workspace secret from one of three sources, in order:
// the explicit flag value, the SESSIONCTL_SECRET environment variable, and
// the system keychain (macOS only).
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvVar); env != "" {
		return env, nil
	}
	s, err := keychainSecret()
	if err == nil && s != "" {
		return s, nil
	}
	if errors.Is(err, ErrUnsupported) {
		return "", fmt.Errorf("%w: pass --secret or set %s", ErrNotFound, EnvVar)
	}
	return "", fmt.Errorf("%w: pass --secret, set %s or run 'sessionctl secret setup'", ErrNotFound, EnvVar)
}

// Generate returns a random 32-byte secret as 64 hex characters.
func Generate() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// Setup generates a new secret and stores it in the keychain.
func Setup() (string, error) {
	if !KeychainSupported() {
		return "", ErrUnsupported
	}
	s, err := Generate()
	if err != nil {
		return "", err
	}
	if err := StoreKeychainSecret(s); err != nil {
		return "", err
	}
	return s, nil
}

// Show reads the secret stored in the keychain. The OS may prompt the user.
func Show() (string, error) {
	return keychainSecret()
}
