package auth

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "pusharc"
	keyringKey     = "pushshift_api_token"
)

// KeyringStore persists the API token in the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring-backed token store, verifying that a
// keychain is actually reachable on this system
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves the token to the system keychain
func (k *KeyringStore) Store(token string) error {
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	if err := keyring.Set(keyringService, keyringKey, token); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return nil
}

// Retrieve gets the token from the system keychain
func (k *KeyringStore) Retrieve() (string, error) {
	token, err := keyring.Get(keyringService, keyringKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	return token, nil
}

// Delete removes the token from the system keychain
func (k *KeyringStore) Delete() error {
	err := keyring.Delete(keyringService, keyringKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	return nil
}

// Name identifies this store
func (k *KeyringStore) Name() string {
	return "system keychain"
}
