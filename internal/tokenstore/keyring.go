package tokenstore

import (
	"context"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keyring service name used when none is configured.
const DefaultKeyringService = "tokenkeeper-refresh-token"

// KeyringStore keeps the token as a single keyring secret addressed by service and user.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time interface check
var _ TokenStore = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore addressed by the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Read returns the token from the system keyring.
// A missing entry is reported as keyring.ErrNotFound.
func (k *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return keyring.Get(k.service, k.user)
}

// Write replaces the keyring secret with token.
func (k *KeyringStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return keyring.Set(k.service, k.user, token)
}
