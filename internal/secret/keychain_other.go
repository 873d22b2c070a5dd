//go:build !darwin

package secret

func KeychainSupported() bool { return false }

func StoreKeychainSecret(string) error { return ErrUnsupported }

func keychainSecret() (string, error) { return "", ErrUnsupported }
