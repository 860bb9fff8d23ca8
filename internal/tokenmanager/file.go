package tokenmanager

import (
	"context"

	"github.com/florianilch/tokenkeeper/internal/tokenstore"
)

// FileManager loads and saves the refresh token in a local file.
//
// The file holds exactly one token. Surrounding whitespace is dropped on read; writes store the
// token verbatim. There is no locking and no atomic replace, so a file must have a single writer.
type FileManager struct {
	Binding
	store *tokenstore.FileStore
}

// Compile-time check to ensure FileManager implements Manager
var _ Manager = (*FileManager)(nil)

// NewFileManager creates a FileManager for path. The path is not checked until first use.
func NewFileManager(path string) *FileManager {
	return &FileManager{store: tokenstore.NewFileStore(path)}
}

// Path returns the file the token is kept in.
func (m *FileManager) Path() string {
	return m.store.Path()
}

// PreRefresh reads the token from the file if the authorizer does not have one yet.
// The file is not touched otherwise.
func (m *FileManager) PreRefresh(ctx context.Context, a Authorizer) error {
	return loadIfUnset(ctx, m.store, a)
}

// PostRefresh overwrites the file with the authorizer's refresh token.
func (m *FileManager) PostRefresh(ctx context.Context, a Authorizer) error {
	return m.store.Write(ctx, a.RefreshToken())
}
