// Package tokenstore provides persistent storage backends for a single refresh token.
//
// Supports three backends with different deployment tradeoffs:
//   - File: plain-text file holding exactly one token
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - Env: read-only environment variable, used to bootstrap a token supplied at startup
//
// Refresh token rotation requires writable storage (file or keyring).
package tokenstore
