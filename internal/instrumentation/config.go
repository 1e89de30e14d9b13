package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: odoocal)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// ServiceInstanceID is the unique instance identifier (default: hostname)
	ServiceInstanceID string

	// Enabled determines if instrumentation is active (default: true)
	// Set to false via INSTRUMENTATION_ENABLED=false to disable metrics and tracing
	Enabled bool

	// MetricsExporter specifies the metrics exporter type
	// Options: "prometheus", "otlp", "stdout" (default: "prometheus")
	MetricsExporter string

	// TracingExporter specifies the tracing exporter type
	// Options: "otlp", "stdout", "none" (default: "none")
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint
	// Example: "localhost:4318" (without protocol prefix)
	OTLPEndpoint string

	// OTLPInsecure controls whether to use insecure HTTP for OTLP export.
	// Only for local development; spans carry model and method names.
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0, default: 0.1)
	TraceSamplingRate float64

	// PrometheusEndpoint is the path for the Prometheus metrics endpoint (default: "/metrics")
	PrometheusEndpoint string

	// DetailedLabels controls whether high-cardinality labels are included.
	// When true, the server login domain is attached to tool metrics.
	DetailedLabels bool

	// AuditLogging configures audit logging behavior.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludePII controls whether to include the server login in audit logs.
	// When false (default), only a hashed user identifier is logged.
	IncludePII bool

	// LogLevel sets the slog level for audit log messages (default: INFO).
	// Options: "debug", "info", "warn", "error"
	LogLevel string
}

// DefaultConfig returns a Config with sensible defaults based on environment variables.
func DefaultConfig() Config {
	return Config{
		ServiceName:        getEnvOrDefault("OTEL_SERVICE_NAME", "odoocal"),
		ServiceVersion:     "unknown",
		ServiceInstanceID:  getEnvOrDefault("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:            getEnvBoolOrDefault("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:    getEnvOrDefault("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:    getEnvOrDefault("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:       getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate:  getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 0.1),
		PrometheusEndpoint: getEnvOrDefault("PROMETHEUS_ENDPOINT", "/metrics"),
		DetailedLabels:     getEnvBoolOrDefault("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    getEnvBoolOrDefault("AUDIT_LOGGING_ENABLED", true),
			IncludePII: getEnvBoolOrDefault("AUDIT_LOGGING_INCLUDE_PII", false),
			LogLevel:   getEnvOrDefault("AUDIT_LOGGING_LEVEL", "info"),
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	validMetricsExporters := map[string]bool{ExporterPrometheus: true, ExporterOTLP: true, ExporterStdout: true}
	if c.MetricsExporter != "" && !validMetricsExporters[c.MetricsExporter] {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	validTracingExporters := map[string]bool{ExporterOTLP: true, ExporterStdout: true, ExporterNone: true}
	if c.TracingExporter != "" && !validTracingExporters[c.TracingExporter] {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}
	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}

	return nil
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the boolean value of an environment variable or a default value.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvFloatOrDefault returns the float64 value of an environment variable or a default value.
func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusAborted = "aborted"
	StatusUnknown = "unknown"

	// Poll result values
	PollResultSuccess = "success"
	PollResultAborted = "aborted"
	PollResultError   = "error"

	// Favorite mutation operations
	MutationAdd    = "add"
	MutationRemove = "remove"

	// OperationAcknowledge tells the server reminders were seen
	OperationAcknowledge = "acknowledge"

	// Service names used in spans, logs and audit entries
	ServiceFavorites     = "favorites"
	ServiceNotifications = "notifications"
	ServiceAttendees     = "attendees"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// Metric recording intervals
	DefaultMetricInterval = 10 * time.Second
)

// IsWriteOperation reports whether op changes server-side state.
func IsWriteOperation(op string) bool {
	switch op {
	case MutationAdd, MutationRemove, OperationAcknowledge:
		return true
	}
	return false
}
