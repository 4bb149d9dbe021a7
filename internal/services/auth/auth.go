package auth

import (
	"errors"

	"nathanbeddoewebdev/dnsm/internal/util"
)

// ServiceName is the keyring service that holds dnsm credentials.
const ServiceName = "dnsm"

var ErrTokenNotFound = errors.New("auth token not found")

// Store holds provider credentials. Multi-part credentials are stored
// as separate keys such as "route53-accesskeyid".
type Store interface {
	SetToken(provider string, token string) error
	GetToken(provider string) (string, error)
	DeleteToken(provider string) error
}

// DefaultStore returns the standard auth store backed by the OS keychain.
func DefaultStore() Store {
	return NewKeyringStore(ServiceName)
}

// NormalizeProvider normalizes a provider name for consistent key lookup.
func NormalizeProvider(provider string) string {
	return util.NormalizeKey(provider)
}

// Lookup returns the token stored under key, or "" when none is stored.
// Errors other than ErrTokenNotFound are returned as is.
func Lookup(store Store, key string) (string, error) {
	token, err := store.GetToken(key)
	if errors.Is(err, ErrTokenNotFound) {
		return "", nil
	}
	return token, err
}
