// Package client provides the owning context for a token manager: an API client whose HTTP
// requests are authorized by an Authorizer and whose refresh token is kept by a Manager.
package client

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/florianilch/tokenkeeper/internal/authorizer"
	"github.com/florianilch/tokenkeeper/internal/tokenmanager"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseTransport sets the transport API requests are sent through after authorization.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// Client ties an authorizer to the manager that persists its refresh token.
type Client struct {
	authorizer *authorizer.Authorizer
	manager    tokenmanager.Manager
	base       http.RoundTripper
}

// New creates a Client and binds it to the authorizer's manager. A manager serves exactly one
// client; binding it again fails with tokenmanager.ErrAlreadyBound.
func New(a *authorizer.Authorizer, opts ...Option) (*Client, error) {
	if a == nil {
		return nil, fmt.Errorf("missing authorizer")
	}

	c := &Client{
		authorizer: a,
		manager:    a.Manager(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.manager != nil {
		if err := c.manager.Bind(c); err != nil {
			return nil, fmt.Errorf("binding token manager: %w", err)
		}
	}

	return c, nil
}

// Authorizer returns the authorizer used for requests.
func (c *Client) Authorizer() *authorizer.Authorizer {
	return c.authorizer
}

// Manager returns the bound manager, or nil if the authorizer has none.
func (c *Client) Manager() tokenmanager.Manager {
	return c.manager
}

// Refresh forces a token refresh.
func (c *Client) Refresh(ctx context.Context) error {
	return c.authorizer.Refresh(ctx)
}

// HTTPClient returns an HTTP client that adds a valid bearer token to every request.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: c.authorizer,
			Base:   c.base,
		},
	}
}
