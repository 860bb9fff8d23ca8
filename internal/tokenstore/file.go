package tokenstore

import (
	"context"
	"os"
	"strings"
)

// FileStore keeps a token in a plain-text file.
// The file is neither created nor locked ahead of use; errors surface on first access.
type FileStore struct {
	filePath string
}

// Compile-time check to ensure FileStore implements TokenStore
var _ TokenStore = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path. The path is stored verbatim.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{
		filePath: filePath,
	}
}

// Path returns the configured file path.
func (f *FileStore) Path() string {
	return f.filePath
}

// Read returns the file contents with surrounding whitespace trimmed.
// Filesystem errors are returned as-is so callers can match them with errors.Is.
func (f *FileStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// Write truncates the file and writes the token verbatim. New files get 0600 permissions.
func (f *FileStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fp, err := os.OpenFile(f.filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	// Close on all exit paths; the explicit Close below reports flush errors
	defer func() { _ = fp.Close() }()

	if _, err := fp.WriteString(token); err != nil {
		return err
	}

	return fp.Close()
}
