package app

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/florianilch/tokenkeeper/internal/authorizer"
)

// newTestApp returns an App with file storage and a token endpoint that echoes the submitted
// refresh token back with a "rotated-" prefix.
func newTestApp(t *testing.T, mutate func(*Config)) (*App, string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		rt := r.PostForm.Get("refresh_token")
		if rt == "bad" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access",
			"refresh_token": "rotated-" + rt,
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "refresh_token")
	cfg := &Config{
		OAuth: OAuthConfig{
			ClientID:  "client",
			TokenURL:  srv.URL + "/token",
			AuthStyle: AuthStyleParams,
		},
		Storage: StorageConfig{Type: TokenStorageTypeFile, File: path},
	}
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}

	a, err := New(cfg, authorizer.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestRefreshRotatesStoredToken(t *testing.T) {
	a, path := newTestApp(t, nil)
	if err := os.WriteFile(path, []byte("stored\n"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	ctx := context.Background()
	if err := a.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := readFile(t, path); got != "rotated-stored" {
		t.Errorf("file = %q, want %q", got, "rotated-stored")
	}

	if err := a.Refresh(ctx); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	if got := readFile(t, path); got != "rotated-rotated-stored" {
		t.Errorf("file = %q, want %q", got, "rotated-rotated-stored")
	}
}

func TestRefreshMissingFile(t *testing.T) {
	a, _ := newTestApp(t, nil)

	if err := a.Refresh(context.Background()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Refresh() error = %v, want fs.ErrNotExist", err)
	}
}

func TestBootstrapEnvSkipsStorageRead(t *testing.T) {
	t.Setenv("TOKENKEEPER_TEST_BOOTSTRAP", "from-env")
	a, path := newTestApp(t, func(c *Config) {
		c.Storage.BootstrapEnv = "TOKENKEEPER_TEST_BOOTSTRAP"
	})

	// The file does not exist yet; it must only be written
	if err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := readFile(t, path); got != "rotated-from-env" {
		t.Errorf("file = %q, want %q", got, "rotated-from-env")
	}
}

func TestSeed(t *testing.T) {
	t.Run("without verification", func(t *testing.T) {
		a, path := newTestApp(t, nil)
		if err := a.Seed(context.Background(), "  pasted\n", false); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if got := readFile(t, path); got != "pasted" {
			t.Errorf("file = %q, want %q", got, "pasted")
		}
	})

	t.Run("with verification", func(t *testing.T) {
		a, path := newTestApp(t, nil)
		if err := a.Seed(context.Background(), "pasted", true); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if got := readFile(t, path); got != "rotated-pasted" {
			t.Errorf("file = %q, want %q", got, "rotated-pasted")
		}
	})

	t.Run("rejected token is not persisted", func(t *testing.T) {
		a, path := newTestApp(t, nil)
		if err := a.Seed(context.Background(), "bad", true); err == nil {
			t.Fatal("expected error for rejected token")
		}
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("token file exists after failed seed: %v", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		a, _ := newTestApp(t, nil)
		if err := a.Seed(context.Background(), " \n", false); !errors.Is(err, ErrEmptyToken) {
			t.Errorf("Seed() error = %v, want ErrEmptyToken", err)
		}
	})
}

func TestAccessToken(t *testing.T) {
	a, path := newTestApp(t, nil)
	if err := os.WriteFile(path, []byte("stored"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	tok, err := a.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if tok.AccessToken != "access" {
		t.Errorf("AccessToken = %q, want access", tok.AccessToken)
	}
}

func TestLoginRequiresAuthURL(t *testing.T) {
	a, _ := newTestApp(t, nil)
	if err := a.Login(context.Background(), func(string) error { return nil }); err == nil {
		t.Error("expected error without auth_url")
	}
}

func TestSeedDefaultFilePathFirstRun(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("HOME", configHome)
	t.Setenv("XDG_CONFIG_HOME", configHome)

	a, _ := newTestApp(t, func(c *Config) {
		c.Storage.File = ""
	})

	path := a.cfg.Storage.File
	if !strings.HasPrefix(path, configHome) {
		t.Fatalf("Storage.File = %q, want default under %q", path, configHome)
	}

	if err := a.Seed(context.Background(), "tok", false); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if got := readFile(t, path); got != "tok" {
		t.Errorf("file = %q, want %q", got, "tok")
	}

	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat token directory: %v", err)
	}
	if perm := info.Mode().Perm(); perm&^0700 != 0 {
		t.Errorf("token directory permissions = %04o, want subset of 0700", perm)
	}
}
