package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/logging"
	"github.com/teemow/odoocal/internal/rpc"
)

// DefaultFlushTimeout bounds Flush on shutdown
const DefaultFlushTimeout = 2 * time.Second

// Reporter receives unexpected errors
type Reporter interface {
	Report(ctx context.Context, err error)
}

// Config selects and configures a reporter
type Config struct {
	// DSN enables Sentry when set
	DSN         string
	Environment string
	Release     string

	// UserHash identifies the reporting user without exposing the login
	UserHash string
}

// New returns a SentryReporter when cfg.DSN is set and a LogReporter
// otherwise.
func New(cfg Config, logger *slog.Logger) (Reporter, error) {
	if cfg.DSN == "" {
		return NewLogReporter(logger), nil
	}
	return NewSentryReporter(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	}, cfg.UserHash, logger)
}

// Flush waits for buffered reports when r supports it.
func Flush(r Reporter, timeout time.Duration) bool {
	if f, ok := r.(interface{ Flush(time.Duration) bool }); ok {
		return f.Flush(timeout)
	}
	return true
}

// LogReporter logs errors at error level
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// Report implements Reporter.
func (r *LogReporter) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	attrs := []any{logging.Err(err)}
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	r.logger.ErrorContext(ctx, "unexpected error", attrs...)
}

// SentryReporter sends errors to Sentry
type SentryReporter struct {
	hub    *sentry.Hub
	logger *slog.Logger
}

// NewSentryReporter creates a reporter with its own Sentry client.
func NewSentryReporter(opts sentry.ClientOptions, userHash string, logger *slog.Logger) (*SentryReporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	scope := sentry.NewScope()
	if userHash != "" {
		scope.SetUser(sentry.User{ID: userHash})
	}
	return &SentryReporter{
		hub:    sentry.NewHub(client, scope),
		logger: logger,
	}, nil
}

// Report implements Reporter.
func (r *SentryReporter) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}

	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
			scope.SetTag("trace_id", traceID)
		}

		var rpcErr *rpc.Error
		if errors.As(err, &rpcErr) {
			scope.SetTag("rpc.code", fmt.Sprint(rpcErr.Code))
			rpcContext := sentry.Context{"code": rpcErr.Code, "message": rpcErr.Message}
			if rpcErr.Data != nil {
				rpcContext["name"] = rpcErr.Data.Name
				rpcContext["debug"] = rpcErr.Data.Debug
			}
			scope.SetContext("rpc", rpcContext)
		}

		if id := hub.CaptureException(err); id != nil {
			r.logger.Warn("error reported", slog.String("event_id", string(*id)), logging.Err(err))
		}
	})
}

// Flush waits until buffered events are sent or timeout elapses.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}
