package tokenmanager

import (
	"context"
	"fmt"

	"github.com/florianilch/tokenkeeper/internal/tokenstore"
)

// StoreManager persists the refresh token in any tokenstore.TokenStore.
type StoreManager struct {
	Binding
	store tokenstore.TokenStore
}

// Compile-time check to ensure StoreManager implements Manager
var _ Manager = (*StoreManager)(nil)

// NewStoreManager creates a manager backed by store.
func NewStoreManager(store tokenstore.TokenStore) (*StoreManager, error) {
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	return &StoreManager{store: store}, nil
}

// PreRefresh loads the token from the store when the authorizer has none.
func (m *StoreManager) PreRefresh(ctx context.Context, a Authorizer) error {
	return loadIfUnset(ctx, m.store, a)
}

// PostRefresh writes the authorizer's current refresh token to the store.
func (m *StoreManager) PostRefresh(ctx context.Context, a Authorizer) error {
	return m.store.Write(ctx, a.RefreshToken())
}

// loadIfUnset assigns the stored token only when a holds none. Store errors are returned as-is
// and leave a untouched.
func loadIfUnset(ctx context.Context, store tokenstore.TokenStore, a Authorizer) error {
	if a.RefreshToken() != "" {
		return nil
	}

	token, err := store.Read(ctx)
	if err != nil {
		return err
	}

	a.SetRefreshToken(token)
	return nil
}
