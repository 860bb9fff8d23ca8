package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/tokenkeeper/internal/app"
	"github.com/florianilch/tokenkeeper/internal/observability"
)

// localFlags steer individual commands and are excluded from configuration loading.
var localFlags = map[string]bool{
	"json":      true,
	"no-verify": true,
}

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:      "tokenkeeper",
		Usage:     "Keep an OAuth2 refresh token fresh and persisted",
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "log-exporter",
				Usage: "log exporter (none|stdout|otlp-grpc|otlp-http)",
				Value: string(app.DefaultConfigLogExporter),
			},
			&cli.StringFlag{
				Name:  "oauth--client-id",
				Usage: "OAuth2 client ID",
			},
			&cli.StringFlag{
				Name:  "oauth--token-url",
				Usage: "OAuth2 token endpoint",
			},
			&cli.StringFlag{
				Name:  "oauth--auth-url",
				Usage: "OAuth2 authorization endpoint (login only)",
			},
			&cli.StringSliceFlag{
				Name:  "oauth--scopes",
				Usage: "OAuth2 scopes to request",
			},
			&cli.StringFlag{
				Name:  "storage--type",
				Usage: "refresh token storage (file|keyring)",
				Value: string(app.DefaultConfigStorage),
			},
			&cli.StringFlag{
				Name:  "storage--file",
				Usage: "path to the refresh token file",
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			refreshCommand(),
			tokenCommand(),
			seedCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "obtain a refresh token through the browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "login--address",
				Usage: "listen address of the redirect server",
				Value: app.DefaultConfigLoginAddress,
			},
			&cli.DurationFlag{
				Name:  "login--timeout",
				Usage: "how long to wait for authorization",
				Value: app.DefaultConfigLoginTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, a *app.App) error {
				return a.Login(ctx, func(authURL string) error {
					_, err := fmt.Fprintf(cmd.Root().ErrWriter, "Open this URL in your browser to authorize:\n\n  %s\n\n", authURL)
					return err
				})
			})
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "refresh once and persist the rotated refresh token",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, a *app.App) error {
				return a.Refresh(ctx)
			})
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "print a valid access token",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print token type and expiry as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, a *app.App) error {
				tok, err := a.AccessToken(ctx)
				if err != nil {
					return err
				}

				w := cmd.Root().Writer
				if !cmd.Bool("json") {
					_, err = fmt.Fprintln(w, tok.AccessToken)
					return err
				}
				return json.NewEncoder(w).Encode(struct {
					AccessToken string    `json:"access_token"`
					TokenType   string    `json:"token_type,omitempty"`
					Expiry      time.Time `json:"expiry,omitzero"`
				}{tok.AccessToken, tok.Type(), tok.Expiry})
			})
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "store a refresh token read from stdin",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-verify",
				Usage: "store the token without refreshing it first",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			token, err := readSecret(os.Stdin, cmd.Root().ErrWriter)
			if err != nil {
				return fmt.Errorf("reading refresh token: %w", err)
			}
			return withApp(ctx, cmd, func(ctx context.Context, a *app.App) error {
				return a.Seed(ctx, token, !cmd.Bool("no-verify"))
			})
		},
	}
}

// readSecret reads a token from in without echo when in is a terminal.
func readSecret(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		data, err := io.ReadAll(in)
		return strings.TrimSpace(string(data)), err
	}

	_, _ = fmt.Fprint(prompt, "Refresh token: ")
	data, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(prompt)
	return strings.TrimSpace(string(data)), err
}

// withApp loads configuration, sets up logging and runs fn against a new App.
func withApp(ctx context.Context, cmd *cli.Command, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	shutdown, err := observability.Instrument(ctx, observability.Settings{
		Level:    cfg.LogLevel,
		Format:   string(cfg.LogFormat),
		Exporter: cfg.LogExporter,
	})
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to create app: %w", err), flush(shutdown, cfg.Shutdown.Timeout))
	}

	runErr := fn(ctx, application)
	return errors.Join(runErr, flush(shutdown, cfg.Shutdown.Timeout))
}

func flush(shutdown observability.ShutdownFunc, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		return fmt.Errorf("flushing telemetry: %w", err)
	}
	return nil
}
