package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrTool      = "tool"
	attrDomain    = "user_domain"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// JSON-RPC client metrics
	rpcCallsTotal       metric.Int64Counter
	rpcCallDuration     metric.Float64Histogram
	rpcRequestsInFlight metric.Int64UpDownCounter

	// Notification metrics
	notificationPollsTotal      metric.Int64Counter
	notificationsDisplayedTotal metric.Int64Counter

	// Favorites metrics
	favoriteMutationsTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.rpcCallsTotal, err = meter.Int64Counter(
		"rpc_calls_total",
		metric.WithDescription("Total number of JSON-RPC calls to the calendar server"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc_calls_total counter: %w", err)
	}

	m.rpcCallDuration, err = meter.Float64Histogram(
		"rpc_call_duration_seconds",
		metric.WithDescription("JSON-RPC call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc_call_duration_seconds histogram: %w", err)
	}

	m.rpcRequestsInFlight, err = meter.Int64UpDownCounter(
		"rpc_requests_in_flight",
		metric.WithDescription("Number of non-shadow JSON-RPC requests currently in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc_requests_in_flight gauge: %w", err)
	}

	m.notificationPollsTotal, err = meter.Int64Counter(
		"notification_polls_total",
		metric.WithDescription("Total number of notification polls by result"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification_polls_total counter: %w", err)
	}

	m.notificationsDisplayedTotal, err = meter.Int64Counter(
		"notifications_displayed_total",
		metric.WithDescription("Total number of event notifications displayed"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifications_displayed_total counter: %w", err)
	}

	m.favoriteMutationsTotal, err = meter.Int64Counter(
		"favorite_mutations_total",
		metric.WithDescription("Total number of favorite calendar mutations"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create favorite_mutations_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRPCCall records a JSON-RPC call.
//
// Parameters:
//   - operation: normalized call name (e.g. "calendar.contacts.create", "calendar.notify")
//   - status: "success", "error" or "aborted"
//   - duration: time taken for the round trip
func (m *Metrics) RecordRPCCall(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.rpcCallsTotal == nil || m.rpcCallDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.rpcCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.rpcCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementRPCInFlight increments the in-flight request gauge.
func (m *Metrics) IncrementRPCInFlight(ctx context.Context) {
	if m == nil || m.rpcRequestsInFlight == nil {
		return
	}
	m.rpcRequestsInFlight.Add(ctx, 1)
}

// DecrementRPCInFlight decrements the in-flight request gauge.
func (m *Metrics) DecrementRPCInFlight(ctx context.Context) {
	if m == nil || m.rpcRequestsInFlight == nil {
		return
	}
	m.rpcRequestsInFlight.Add(ctx, -1)
}

// RecordNotificationPoll records the outcome of one notification poll.
// Result should be one of: "success", "aborted", "error"
func (m *Metrics) RecordNotificationPoll(ctx context.Context, result string) {
	if m == nil || m.notificationPollsTotal == nil {
		return
	}

	m.notificationPollsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordNotificationDisplayed records that a notification was shown.
func (m *Metrics) RecordNotificationDisplayed(ctx context.Context) {
	if m == nil || m.notificationsDisplayedTotal == nil {
		return
	}
	m.notificationsDisplayedTotal.Add(ctx, 1)
}

// RecordFavoriteMutation records an add or remove of favorite calendars.
func (m *Metrics) RecordFavoriteMutation(ctx context.Context, operation, status string) {
	if m == nil || m.favoriteMutationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	m.favoriteMutationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithLogin(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithLogin records an MCP tool invocation.
// The login domain is only attached when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithLogin(ctx context.Context, toolName, status, login string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	if m.detailedLabels && login != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(login)))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
