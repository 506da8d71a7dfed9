// Package auth stores the optional Pushshift API token.
//
// The token lives in the system keychain when one is available, with a
// read-only environment variable fallback for headless machines. An absent
// token is not an error; the client simply runs anonymously.
package auth

import "errors"

var (
	// ErrTokenNotFound indicates no API token is stored anywhere
	ErrTokenNotFound = errors.New("no API token stored")

	// ErrReadOnlyStore indicates the store cannot persist tokens
	ErrReadOnlyStore = errors.New("store is read-only")
)

// TokenStore persists the API token
type TokenStore interface {
	// Store saves the token
	Store(token string) error

	// Retrieve gets the token, or ErrTokenNotFound
	Retrieve() (string, error)

	// Delete removes the token
	Delete() error

	// Name identifies the store for user-facing messages
	Name() string
}

// Manager reads the token from the first store that has one and writes to
// the first store that accepts writes.
type Manager struct {
	stores []TokenStore
}

// NewManager builds the store chain: keyring when available, then the
// environment fallback.
func NewManager() *Manager {
	var stores []TokenStore

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}
}

// NewManagerWithStores creates a manager with an explicit store chain
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Retrieve returns the token from the first store holding one
func (m *Manager) Retrieve() (string, error) {
	for _, store := range m.stores {
		token, err := store.Retrieve()
		if err == nil && token != "" {
			return token, nil
		}
	}
	return "", ErrTokenNotFound
}

// Store saves the token in the first writable store
func (m *Manager) Store(token string) (string, error) {
	for _, store := range m.stores {
		err := store.Store(token)
		if err == nil {
			return store.Name(), nil
		}
		if !errors.Is(err, ErrReadOnlyStore) {
			return "", err
		}
	}
	return "", ErrReadOnlyStore
}

// Delete removes the token from every writable store
func (m *Manager) Delete() error {
	var lastErr error
	deleted := false

	for _, store := range m.stores {
		err := store.Delete()
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrReadOnlyStore):
			// nothing to remove here
		default:
			lastErr = err
		}
	}

	if lastErr != nil {
		return lastErr
	}
	if !deleted {
		return ErrTokenNotFound
	}
	return nil
}
