package tokenstore

import (
	"context"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringStoreRoundTrip(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	store, err := NewKeyringStore(DefaultKeyringService, "alice")
	if err != nil {
		t.Fatalf("NewKeyringStore() error = %v", err)
	}

	if _, err := store.Read(ctx); !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("Read() before write error = %v, want keyring.ErrNotFound", err)
	}

	for _, token := range []string{"first", "second"} {
		if err := store.Write(ctx, token); err != nil {
			t.Fatalf("Write(%q) error = %v", token, err)
		}
		got, err := store.Read(ctx)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got != token {
			t.Errorf("Read() = %q, want %q", got, token)
		}
	}
}

func TestNewKeyringStoreValidation(t *testing.T) {
	if _, err := NewKeyringStore("", "alice"); err == nil {
		t.Error("expected error for empty service")
	}
	if _, err := NewKeyringStore(DefaultKeyringService, ""); err == nil {
		t.Error("expected error for empty user")
	}
}

func TestEnvStore(t *testing.T) {
	ctx := context.Background()

	t.Run("reads trimmed value", func(t *testing.T) {
		t.Setenv("TOKENSTORE_TEST_TOKEN", " from-env\n")
		store, err := NewEnvStore("TOKENSTORE_TEST_TOKEN")
		if err != nil {
			t.Fatalf("NewEnvStore() error = %v", err)
		}
		got, err := store.Read(ctx)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got != "from-env" {
			t.Errorf("Read() = %q, want %q", got, "from-env")
		}
	})

	t.Run("rejects empty value", func(t *testing.T) {
		t.Setenv("TOKENSTORE_TEST_TOKEN", "")
		store, err := NewEnvStore("TOKENSTORE_TEST_TOKEN")
		if err != nil {
			t.Fatalf("NewEnvStore() error = %v", err)
		}
		if _, err := store.Read(ctx); err == nil {
			t.Error("expected error for empty variable")
		}
	})

	t.Run("is read-only", func(t *testing.T) {
		t.Setenv("TOKENSTORE_TEST_TOKEN", "x")
		store, err := NewEnvStore("TOKENSTORE_TEST_TOKEN")
		if err != nil {
			t.Fatalf("NewEnvStore() error = %v", err)
		}
		if err := store.Write(ctx, "y"); !errors.Is(err, ErrReadOnly) {
			t.Errorf("Write() error = %v, want ErrReadOnly", err)
		}
	})

	t.Run("requires variable to exist", func(t *testing.T) {
		if _, err := NewEnvStore("TOKENSTORE_TEST_DEFINITELY_UNSET"); err == nil {
			t.Error("expected error for unset variable")
		}
		if _, err := NewEnvStore(""); err == nil {
			t.Error("expected error for empty key")
		}
	})
}
