package tokenmanager

import (
	"context"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/florianilch/tokenkeeper/internal/tokenstore"
)

func TestStoreManagerKeyring(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	store, err := tokenstore.NewKeyringStore(tokenstore.DefaultKeyringService, "bob")
	if err != nil {
		t.Fatalf("NewKeyringStore() error = %v", err)
	}
	m, err := NewStoreManager(store)
	if err != nil {
		t.Fatalf("NewStoreManager() error = %v", err)
	}

	if err := m.PreRefresh(ctx, &fakeAuthorizer{}); !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("PreRefresh() on empty keyring error = %v, want keyring.ErrNotFound", err)
	}

	if err := m.PostRefresh(ctx, &fakeAuthorizer{refresh: "kr-token"}); err != nil {
		t.Fatalf("PostRefresh() error = %v", err)
	}

	a := &fakeAuthorizer{}
	if err := m.PreRefresh(ctx, a); err != nil {
		t.Fatalf("PreRefresh() error = %v", err)
	}
	if a.refresh != "kr-token" {
		t.Errorf("refresh token = %q, want %q", a.refresh, "kr-token")
	}

	present := &fakeAuthorizer{refresh: "supplied"}
	if err := m.PreRefresh(ctx, present); err != nil {
		t.Fatalf("PreRefresh() error = %v", err)
	}
	if present.refresh != "supplied" || present.sets != 0 {
		t.Errorf("authorizer modified: %+v", present)
	}
}

func TestStoreManagerReadOnlyStore(t *testing.T) {
	t.Setenv("TOKENMANAGER_TEST_TOKEN", "from-env")
	store, err := tokenstore.NewEnvStore("TOKENMANAGER_TEST_TOKEN")
	if err != nil {
		t.Fatalf("NewEnvStore() error = %v", err)
	}
	m, err := NewStoreManager(store)
	if err != nil {
		t.Fatalf("NewStoreManager() error = %v", err)
	}

	if err := m.PostRefresh(context.Background(), &fakeAuthorizer{refresh: "x"}); !errors.Is(err, tokenstore.ErrReadOnly) {
		t.Errorf("PostRefresh() error = %v, want tokenstore.ErrReadOnly", err)
	}
}

func TestNewStoreManagerRequiresStore(t *testing.T) {
	if _, err := NewStoreManager(nil); err == nil {
		t.Error("expected error for nil store")
	}
}
