// Package observability configures the process-wide slog logger.
//
// Logs go to stderr as text or JSON, or through the OpenTelemetry log pipeline when an exporter
// is selected. Refresh and access tokens must never be passed as log attributes.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Exporter selects where log records go.
type Exporter string

const (
	ExporterNone     Exporter = "none"
	ExporterStdout   Exporter = "stdout"
	ExporterOTLPGRPC Exporter = "otlp-grpc"
	ExporterOTLPHTTP Exporter = "otlp-http"
)

// instrumentationName identifies this module as the OpenTelemetry log scope.
const instrumentationName = "github.com/florianilch/tokenkeeper"

// ShutdownFunc flushes and stops the log pipeline.
type ShutdownFunc func(context.Context) error

// Settings describes the logging setup.
type Settings struct {
	Level    slog.Level
	Format   string
	Exporter Exporter
	// Output receives text/JSON logs; defaults to os.Stderr.
	Output   io.Writer
}

// Instrument installs the default slog logger. The returned function must be called before exit
// to flush buffered records.
func Instrument(ctx context.Context, s Settings) (ShutdownFunc, error) {
	if s.Output == nil {
		s.Output = os.Stderr
	}

	if s.Exporter == "" || s.Exporter == ExporterNone {
		handler, err := newHandler(s)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(handler))
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, s.Exporter)
	if err != nil {
		return nil, fmt.Errorf("creating %s log exporter: %w", s.Exporter, err)
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(s.Level))
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
	global.SetLoggerProvider(provider)

	slog.SetDefault(slog.New(otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))))

	return func(ctx context.Context) error {
		return errors.Join(provider.ForceFlush(ctx), provider.Shutdown(ctx))
	}, nil
}

func newHandler(s Settings) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: s.Level}
	switch s.Format {
	case "", "text":
		return slog.NewTextHandler(s.Output, opts), nil
	case "json":
		return slog.NewJSONHandler(s.Output, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", s.Format)
	}
}

// newExporter reads endpoint settings from the standard OTEL_EXPORTER_OTLP_* variables.
func newExporter(ctx context.Context, e Exporter) (sdklog.Exporter, error) {
	switch e {
	case ExporterStdout:
		return stdoutlog.New()
	case ExporterOTLPGRPC:
		return otlploggrpc.New(ctx)
	case ExporterOTLPHTTP:
		return otlploghttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", e)
	}
}

func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
