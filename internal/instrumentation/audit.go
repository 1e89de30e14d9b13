package instrumentation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures all information about a tool invocation for audit logging.
//
// # Privacy Considerations
//
// The Login field is the calendar server login, usually an email address.
// General logs only carry UserDomain() and a hash; the clear login is
// reserved for audit streams with IncludePII enabled.
type ToolInvocation struct {
	Tool string

	// Identity of the server session the tool ran under
	Login    string
	Database string

	// Target information
	ServiceName string // favorites, notifications, attendees
	Operation   string // list, add, remove, open, recall, acknowledge
	Target      string // partner or event id the tool acted on

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// UserDomain returns the domain portion of the login for lower-cardinality logging.
func (ti *ToolInvocation) UserDomain() string {
	return ExtractUserDomain(ti.Login)
}

// UserHash returns a stable anonymized identifier for the login.
func (ti *ToolInvocation) UserHash() string {
	if ti.Login == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ti.Login))
	return "user:" + hex.EncodeToString(sum[:8])
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes with cardinality-controlled identity
// (user_domain and user_hash). For full audit logging, use LogAuditAttrs.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("user_domain", ti.UserDomain()),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if hash := ti.UserHash(); hash != "" {
		attrs = append(attrs, slog.String("user_hash", hash))
	}
	return ti.appendCommon(attrs, false)
}

// LogAuditAttrs returns slog attributes for full audit logging.
//
// # Security Warning
//
// This method includes PII (the clear server login). Route these records to
// storage with appropriate access controls.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("user", ti.Login),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Database != "" {
		attrs = append(attrs, slog.String("database", ti.Database))
	}
	return ti.appendCommon(attrs, true)
}

func (ti *ToolInvocation) appendCommon(attrs []slog.Attr, withSpan bool) []slog.Attr {
	if ti.ServiceName != "" {
		attrs = append(attrs, slog.String("service", ti.ServiceName))
	}
	if ti.Operation != "" {
		attrs = append(attrs, slog.String("operation", ti.Operation))
	}
	if ti.Target != "" {
		attrs = append(attrs, slog.String("target", ti.Target))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if withSpan && ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithUser sets the server login and database of the session.
func (ti *ToolInvocation) WithUser(login, db string) *ToolInvocation {
	ti.Login = login
	ti.Database = db
	return ti
}

// WithService sets the service area and operation.
func (ti *ToolInvocation) WithService(serviceName, operation string) *ToolInvocation {
	ti.ServiceName = serviceName
	ti.Operation = operation
	return ti
}

// WithTarget sets the identifier the tool acted on.
func (ti *ToolInvocation) WithTarget(target string) *ToolInvocation {
	ti.Target = target
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a tool invocation. Full logins are only written
// when the logger was configured with IncludePII.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
