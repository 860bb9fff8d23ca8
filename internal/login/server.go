package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// CallbackPath is the path the authorization server redirects to.
const CallbackPath = "/callback"

// ErrAuthorizationDenied is returned when the authorization server reports an error.
var ErrAuthorizationDenied = errors.New("authorization denied")

type result struct {
	code string
	err  error
}

// Server is a loopback HTTP server receiving the authorization code redirect.
type Server struct {
	state   string
	mux     *http.ServeMux
	server  *http.Server
	addr    net.Addr
	results chan result
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// NewServer creates a callback server that only accepts redirects carrying state.
func NewServer(state string) *Server {
	s := &Server{
		state:   state,
		results: make(chan result, 1),
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+CallbackPath, applyMiddlewares(http.HandlerFunc(s.handleCallback),
		Logging(slog.Default()),
		Recovery,
	))
	s.mux = mux

	return s
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Requests with a foreign state are ignored without ending the login
	if q.Get("state") != s.state {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	if e := q.Get("error"); e != "" {
		err := fmt.Errorf("%w: %s", ErrAuthorizationDenied, e)
		if desc := q.Get("error_description"); desc != "" {
			err = fmt.Errorf("%w (%s)", err, desc)
		}
		s.deliver(result{err: err})
		http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	s.deliver(result{code: code})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<html><body><h1>Authorization successful</h1><p>You can close this window.</p></body></html>"))
}

// deliver records the first result; later redirects are dropped.
func (s *Server) deliver(res result) {
	select {
	case s.results <- res:
	default:
	}
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// The caller is responsible for calling Shutdown() to stop the server.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.addr = listener.Addr()

	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// RedirectURL returns the callback URL of the started server.
func (s *Server) RedirectURL() string {
	if s.addr == nil {
		return ""
	}
	return "http://" + s.addr.String() + CallbackPath
}

// Wait blocks until the callback delivers a code or an error, or ctx is done.
func (s *Server) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-s.results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Shutdown performs graceful shutdown of the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
