package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"

	"github.com/florianilch/tokenkeeper/internal/authorizer"
	"github.com/florianilch/tokenkeeper/internal/client"
	"github.com/florianilch/tokenkeeper/internal/login"
	"github.com/florianilch/tokenkeeper/internal/tokenstore"
)

// ErrEmptyToken is returned when seeding with an empty refresh token.
var ErrEmptyToken = errors.New("refresh token is empty")

// App wires configuration, token manager, authorizer and client together.
type App struct {
	cfg    *Config
	client *client.Client
}

// New creates a new App instance.
// No token I/O is performed until the first operation.
func New(cfg *Config, opts ...authorizer.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	manager, err := cfg.Storage.NewTokenManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	authOpts := []authorizer.Option{authorizer.WithManager(manager)}
	if cfg.OAuth.JSONRequests {
		authOpts = append(authOpts, authorizer.WithJSONTokenRequests())
	}
	if cfg.Storage.BootstrapEnv != "" {
		token, err := bootstrapToken(cfg.Storage.BootstrapEnv)
		if err != nil {
			return nil, fmt.Errorf("failed to read bootstrap token: %w", err)
		}
		authOpts = append(authOpts, authorizer.WithRefreshToken(token))
	}
	authOpts = append(authOpts, opts...)

	auth, err := authorizer.New(cfg.OAuth.OAuth2Config(), authOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizer: %w", err)
	}

	// The client binds itself to the manager
	c, err := client.New(auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &App{
		cfg:    cfg,
		client: c,
	}, nil
}

// bootstrapToken reads the initial refresh token from an environment variable.
func bootstrapToken(envKey string) (string, error) {
	store, err := tokenstore.NewEnvStore(envKey)
	if err != nil {
		return "", err
	}
	// Environment reads do not block
	return store.Read(context.Background())
}

// Client returns the API client.
func (a *App) Client() *client.Client {
	return a.client
}

// Refresh performs one refresh cycle and persists the rotated refresh token.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	slog.InfoContext(ctx, "refresh token persisted",
		"storage", string(a.cfg.Storage.Type),
		"expiry", a.client.Authorizer().Expiry(),
	)
	return nil
}

// AccessToken returns a valid access token, refreshing if required.
func (a *App) AccessToken(ctx context.Context) (*oauth2.Token, error) {
	tok, err := a.client.Authorizer().Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining access token: %w", err)
	}
	slog.DebugContext(ctx, "access token ready", "expiry", tok.Expiry)
	return tok, nil
}

// Login runs the authorization code flow; open presents the authorization URL to the user.
func (a *App) Login(ctx context.Context, open func(authURL string) error) error {
	if a.cfg.OAuth.AuthURL == "" {
		return errors.New("oauth.auth_url required for login")
	}

	err := login.Run(ctx, a.client.Authorizer(),
		login.WithAddress(a.cfg.Login.Address),
		login.WithTimeout(a.cfg.Login.Timeout),
		login.WithOpener(open),
	)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

// Seed stores an externally obtained refresh token. With verify, the token is used for a
// refresh first, so only a working (rotated) token is persisted.
func (a *App) Seed(ctx context.Context, token string, verify bool) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	auth := a.client.Authorizer()
	// A held token makes PreRefresh skip storage
	auth.SetRefreshToken(token)

	if verify {
		return a.Refresh(ctx)
	}

	if err := a.client.Manager().PostRefresh(ctx, auth); err != nil {
		return fmt.Errorf("persisting refresh token: %w", err)
	}
	slog.InfoContext(ctx, "refresh token persisted", "storage", string(a.cfg.Storage.Type))
	return nil
}
