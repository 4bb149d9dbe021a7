package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps credentials in the OS keychain, one entry per
// normalized key under a single service.
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a store for service, or for ServiceName when
// service is empty.
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = ServiceName
	}
	return &KeyringStore{service: service}
}

func (k *KeyringStore) SetToken(key string, token string) error {
	if err := keyring.Set(k.service, NormalizeProvider(key), token); err != nil {
		return fmt.Errorf("keychain: failed to store %s: %w", key, err)
	}
	return nil
}

func (k *KeyringStore) GetToken(key string) (string, error) {
	token, err := keyring.Get(k.service, NormalizeProvider(key))
	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, keyring.ErrNotFound):
		return "", ErrTokenNotFound
	default:
		return "", fmt.Errorf("keychain: failed to read %s: %w", key, err)
	}
}

func (k *KeyringStore) DeleteToken(key string) error {
	err := keyring.Delete(k.service, NormalizeProvider(key))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return ErrTokenNotFound
	default:
		return fmt.Errorf("keychain: failed to delete %s: %w", key, err)
	}
}
