package tokenstore

import "context"

// TokenStore reads and writes a refresh token to persistent storage.
type TokenStore interface {
	// Read returns the stored token.
	Read(ctx context.Context) (string, error)

	// Write persists the token to storage, replacing any previous value. Returns error if the
	// backend is read-only (e.g., environment variables) or if the write fails.
	Write(ctx context.Context, token string) error
}
