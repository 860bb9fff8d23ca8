// Package login obtains an initial refresh token through the OAuth2 authorization code flow
// with PKCE, using a loopback redirect server.
package login

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/tokenkeeper/internal/authorizer"
)

// Default login settings.
const (
	DefaultAddress = "127.0.0.1:0"
	DefaultTimeout = 5 * time.Minute
)

// Option configures Run.
type Option func(*config)

type config struct {
	address string
	timeout time.Duration
	open    func(authURL string) error
}

// WithAddress sets the listen address of the callback server.
func WithAddress(address string) Option {
	return func(c *config) {
		c.address = address
	}
}

// WithTimeout bounds how long Run waits for the user to authorize.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithOpener sets how the authorization URL is presented to the user.
func WithOpener(open func(authURL string) error) Option {
	return func(c *config) {
		c.open = open
	}
}

// Run performs the authorization code flow. On success the authorizer holds a fresh token
// pair and its manager has persisted the refresh token.
func Run(ctx context.Context, a *authorizer.Authorizer, opts ...Option) error {
	cfg := &config{
		address: DefaultAddress,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.open == nil {
		return fmt.Errorf("missing authorization URL opener")
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	srv := NewServer(state)
	srvErrCh, err := srv.Start(ctx, cfg.address)
	if err != nil {
		return fmt.Errorf("callback server startup failed: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "callback server shutdown failed", "error", err)
		}
	}()

	redirect := oauth2.SetAuthURLParam("redirect_uri", srv.RedirectURL())
	slog.DebugContext(ctx, "waiting for authorization callback", "redirect_url", srv.RedirectURL())

	if err := cfg.open(a.AuthCodeURL(state, verifier, redirect)); err != nil {
		return fmt.Errorf("presenting authorization URL: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	g, gCtx := errgroup.WithContext(waitCtx)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-srvErrCh:
			if err != nil {
				return fmt.Errorf("callback server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	g.Go(func() error {
		// Stop the monitor once we are done
		defer cancel()

		code, err := srv.Wait(gCtx)
		if err != nil {
			return err
		}
		// The exchange outlives the wait deadline
		if err := a.Exchange(context.WithoutCancel(gCtx), code, verifier, redirect); err != nil {
			return err
		}
		slog.InfoContext(ctx, "authorization complete")
		return nil
	})

	return g.Wait()
}
