package auth

import "os"

// TokenEnvVar is the environment variable holding the API token
const TokenEnvVar = "PUSHARC_API_TOKEN"

// EnvironmentStore reads the API token from the environment. It is
// read-only; tokens are set by exporting the variable, not by this tool.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed token store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(token string) error {
	return ErrReadOnlyStore
}

// Retrieve gets the token from the environment
func (e *EnvironmentStore) Retrieve() (string, error) {
	token := os.Getenv(TokenEnvVar)
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete() error {
	return ErrReadOnlyStore
}

// Name identifies this store
func (e *EnvironmentStore) Name() string {
	return "environment (" + TokenEnvVar + ")"
}
