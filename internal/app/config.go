package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	"github.com/florianilch/tokenkeeper/internal/login"
	"github.com/florianilch/tokenkeeper/internal/observability"
	"github.com/florianilch/tokenkeeper/internal/tokenmanager"
	"github.com/florianilch/tokenkeeper/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TokenStorageType represents the different storage types supported for the refresh token.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// AuthStyle mirrors oauth2.AuthStyle in configuration.
type AuthStyle string

const (
	AuthStyleAutoDetect AuthStyle = "auto"
	AuthStyleParams     AuthStyle = "params"
	AuthStyleHeader     AuthStyle = "header"
)

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigLogExporter     = observability.ExporterNone
	DefaultConfigStorage         = TokenStorageTypeFile
	DefaultConfigAuthStyle       = AuthStyleAutoDetect
	DefaultConfigLoginAddress    = "127.0.0.1:0"
	DefaultConfigLoginTimeout    = login.DefaultTimeout
	DefaultConfigShutdownTimeout = 5 * time.Second
)

// OAuthConfig describes the OAuth2 client and provider endpoints.
type OAuthConfig struct {
	ClientID     string    `json:"client_id" validate:"required"`
	ClientSecret string    `json:"client_secret,omitempty"`
	AuthURL      string    `json:"auth_url,omitempty" validate:"omitempty,url"`
	TokenURL     string    `json:"token_url" validate:"required,url"`
	Scopes       []string  `json:"scopes,omitempty"`
	AuthStyle    AuthStyle `json:"auth_style" validate:"oneof=auto params header"`
	JSONRequests bool      `json:"json_requests"` // Send token requests JSON-encoded (required by some providers)
}

// StorageConfig describes where the refresh token is kept.
type StorageConfig struct {
	Type TokenStorageType `json:"type" validate:"required,oneof=file keyring"`

	// Type-specific settings
	File           string `json:"file,omitempty"`            // For file storage: path to token file
	KeyringService string `json:"keyring_service,omitempty"` // For keyring storage: service name
	KeyringUser    string `json:"keyring_user,omitempty"`    // For keyring storage: user identifier

	// BootstrapEnv names an environment variable holding a refresh token to start from.
	// When set, storage is not read before the first refresh but still receives the rotated token.
	BootstrapEnv string `json:"bootstrap_env,omitempty"`
}

// LoginConfig holds settings for the authorization code flow.
type LoginConfig struct {
	Address string        `json:"address" validate:"required"`
	Timeout time.Duration `json:"timeout" validate:"gt=0"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for flushing telemetry on exit.
	Timeout time.Duration `json:"timeout"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel    slog.Level             `json:"log_level"`
	LogFormat   LogFormat              `json:"log_format" validate:"oneof=text json"`
	LogExporter observability.Exporter `json:"log_exporter" validate:"oneof=none stdout otlp-grpc otlp-http"`
	OAuth       OAuthConfig            `json:"oauth"`
	Storage     StorageConfig          `json:"storage"`
	Login       LoginConfig            `json:"login"`
	Shutdown    ShutdownConfig         `json:"shutdown"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.LogExporter == "" {
		c.LogExporter = DefaultConfigLogExporter
	}
	if c.OAuth.AuthStyle == "" {
		c.OAuth.AuthStyle = DefaultConfigAuthStyle
	}
	if c.Storage.Type == "" {
		c.Storage.Type = DefaultConfigStorage
	}
	if c.Login.Address == "" {
		c.Login.Address = DefaultConfigLoginAddress
	}
	if c.Login.Timeout == 0 {
		c.Login.Timeout = DefaultConfigLoginTimeout
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}

	// Dynamic defaults based on storage type
	switch c.Storage.Type {
	case TokenStorageTypeFile:
		if c.Storage.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("storage.file required (auto-detect failed: %w)", err)
			}
			c.Storage.File = filepath.Join(configDir, "tokenkeeper", "refresh_token")

			// The token manager never creates directories; the defaulted one is ours to provide
			if err := os.MkdirAll(filepath.Dir(c.Storage.File), 0700); err != nil {
				return fmt.Errorf("creating token directory: %w", err)
			}
		}
	case TokenStorageTypeKeyring:
		if c.Storage.KeyringService == "" {
			c.Storage.KeyringService = tokenstore.DefaultKeyringService
		}
		if c.Storage.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("storage.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Storage.KeyringUser = currentUser.Username
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Storage.Type {
	case TokenStorageTypeFile:
		if c.Storage.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeKeyring:
		if c.Storage.KeyringService == "" || c.Storage.KeyringUser == "" {
			return errors.New("keyring_service and keyring_user required for keyring storage")
		}
	}

	return nil
}

// NewTokenManager creates the refresh token manager from the storage configuration.
func (s *StorageConfig) NewTokenManager() (tokenmanager.Manager, error) {
	switch s.Type {
	case TokenStorageTypeFile:
		return tokenmanager.NewFileManager(s.File), nil
	case TokenStorageTypeKeyring:
		store, err := tokenstore.NewKeyringStore(s.KeyringService, s.KeyringUser)
		if err != nil {
			return nil, err
		}
		return tokenmanager.NewStoreManager(store)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", s.Type)
	}
}

// OAuth2Config converts the configuration to an oauth2.Config.
func (o *OAuthConfig) OAuth2Config() *oauth2.Config {
	style := oauth2.AuthStyleAutoDetect
	switch o.AuthStyle {
	case AuthStyleParams:
		style = oauth2.AuthStyleInParams
	case AuthStyleHeader:
		style = oauth2.AuthStyleInHeader
	}

	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Scopes:       o.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   o.AuthURL,
			TokenURL:  o.TokenURL,
			AuthStyle: style,
		},
	}
}
