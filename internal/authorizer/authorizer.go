package authorizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/florianilch/tokenkeeper/internal/tokenmanager"
)

// ErrMissingRefreshToken is returned when no refresh token is available after PreRefresh.
var ErrMissingRefreshToken = errors.New("no refresh token available")

var tracer = otel.Tracer("github.com/florianilch/tokenkeeper/internal/authorizer")

// Option configures an Authorizer.
type Option func(*options)

type options struct {
	manager      tokenmanager.Manager
	refreshToken string
	httpClient   *http.Client
	jsonRequests bool
}

// WithManager sets the manager whose hooks run around each refresh.
func WithManager(m tokenmanager.Manager) Option {
	return func(o *options) {
		o.manager = m
	}
}

// WithRefreshToken supplies an initial refresh token. A manager will not load one from storage
// while this token is held.
func WithRefreshToken(token string) Option {
	return func(o *options) {
		o.refreshToken = token
	}
}

// WithHTTPClient sets the HTTP client used for token endpoint requests.
// If not provided, a client with a 30 second timeout over http.DefaultTransport is used.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithJSONTokenRequests sends token endpoint requests JSON-encoded instead of form-encoded.
func WithJSONTokenRequests() Option {
	return func(o *options) {
		o.jsonRequests = true
	}
}

// Authorizer holds an OAuth2 token pair and refreshes it through the configured endpoint.
type Authorizer struct {
	config     *oauth2.Config
	manager    tokenmanager.Manager
	httpClient *http.Client

	// refreshMu serializes refreshes and exchanges, including their hooks
	refreshMu sync.Mutex

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	tokenType    string
	expiry       time.Time
}

// Compile-time checks
var (
	_ oauth2.TokenSource      = (*Authorizer)(nil)
	_ tokenmanager.Authorizer = (*Authorizer)(nil)
)

// New creates an Authorizer for the given OAuth2 client configuration.
// No I/O is performed until the first refresh.
func New(cfg *oauth2.Config, opts ...Option) (*Authorizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing oauth2 config")
	}
	if cfg.Endpoint.TokenURL == "" {
		return nil, fmt.Errorf("missing token URL")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			// oauth2 has no per-request timeout of its own
			Timeout:   30 * time.Second,
			Transport: http.DefaultTransport,
		}
	}
	if o.jsonRequests {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *httpClient
		wrapped.Transport = &jsonTokenTransport{base: base}
		httpClient = &wrapped
	}

	return &Authorizer{
		config:       cfg,
		manager:      o.manager,
		httpClient:   httpClient,
		refreshToken: o.refreshToken,
	}, nil
}

// AccessToken returns the current access token, or "" before the first refresh.
func (a *Authorizer) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accessToken
}

// RefreshToken returns the current refresh token, or "" if none is held.
func (a *Authorizer) RefreshToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.refreshToken
}

// SetRefreshToken replaces the refresh token.
func (a *Authorizer) SetRefreshToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshToken = token
}

// Expiry returns the access token expiry. The zero time means no expiry is known.
func (a *Authorizer) Expiry() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.expiry
}

// Manager returns the configured manager, or nil.
func (a *Authorizer) Manager() tokenmanager.Manager {
	return a.manager
}

// Token returns the cached access token while it is valid and refreshes otherwise.
func (a *Authorizer) Token() (*oauth2.Token, error) {
	if tok := a.current(); tok.Valid() {
		return tok, nil
	}

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// Another caller may have refreshed while we waited
	if tok := a.current(); tok.Valid() {
		return tok, nil
	}

	// oauth2.TokenSource.Token() has no context parameter
	if err := a.traced(context.Background(), "authorizer.Refresh", a.refreshLocked); err != nil {
		return nil, err
	}
	return a.current(), nil
}

// Refresh exchanges the refresh token for a new token pair, regardless of the current
// access token's validity. PreRefresh runs first and PostRefresh runs after success.
// Errors from the hooks are returned unmodified.
func (a *Authorizer) Refresh(ctx context.Context) error {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	return a.traced(ctx, "authorizer.Refresh", a.refreshLocked)
}

// AuthCodeURL returns the URL the user visits to authorize, with an S256 challenge for verifier.
func (a *Authorizer) AuthCodeURL(state, verifier string, opts ...oauth2.AuthCodeOption) string {
	opts = append(opts, oauth2.S256ChallengeOption(verifier))
	return a.config.AuthCodeURL(state, opts...)
}

// Exchange converts an authorization code into a token pair using the PKCE verifier, then
// calls PostRefresh so the new refresh token is persisted.
func (a *Authorizer) Exchange(ctx context.Context, code, verifier string, opts ...oauth2.AuthCodeOption) error {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	return a.traced(ctx, "authorizer.Exchange", func(ctx context.Context) error {
		if verifier != "" {
			opts = append(opts, oauth2.VerifierOption(verifier))
		}

		tok, err := a.config.Exchange(a.clientContext(ctx), code, opts...)
		if err != nil {
			return fmt.Errorf("exchanging authorization code: %w", err)
		}
		if tok.RefreshToken == "" {
			return fmt.Errorf("token response did not include a refresh token")
		}

		a.store(tok)
		slog.DebugContext(ctx, "exchanged authorization code", "expiry", tok.Expiry)

		return a.postRefresh(ctx)
	})
}

// refreshLocked performs one refresh cycle. Caller must hold refreshMu.
func (a *Authorizer) refreshLocked(ctx context.Context) error {
	if a.manager != nil {
		if err := a.manager.PreRefresh(ctx, a); err != nil {
			return err
		}
	}

	previous := a.RefreshToken()
	if previous == "" {
		return ErrMissingRefreshToken
	}

	// An empty access token forces the refresh grant
	ts := a.config.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: previous})
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("refreshing token: %w", err)
	}

	// Providers that do not rotate keep the previous refresh token
	if tok.RefreshToken == "" {
		tok.RefreshToken = previous
	}
	a.store(tok)

	rotated := tok.RefreshToken != previous
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("oauth2.refresh_token.rotated", rotated))
	slog.DebugContext(ctx, "refreshed access token", "expiry", tok.Expiry, "rotated", rotated)

	return a.postRefresh(ctx)
}

func (a *Authorizer) postRefresh(ctx context.Context) error {
	if a.manager == nil {
		return nil
	}
	return a.manager.PostRefresh(ctx, a)
}

// clientContext injects the token endpoint HTTP client the way oauth2 expects it.
func (a *Authorizer) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func (a *Authorizer) store(tok *oauth2.Token) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accessToken = tok.AccessToken
	a.refreshToken = tok.RefreshToken
	a.tokenType = tok.TokenType
	a.expiry = tok.Expiry
}

func (a *Authorizer) current() *oauth2.Token {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return &oauth2.Token{
		AccessToken:  a.accessToken,
		TokenType:    a.tokenType,
		RefreshToken: a.refreshToken,
		Expiry:       a.expiry,
	}
}

// traced runs fn inside a span named name and records its error.
func (a *Authorizer) traced(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token refresh failed")
	}
	return err
}
