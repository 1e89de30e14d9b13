// Package instrumentation provides OpenTelemetry instrumentation for odoocal.
//
// This package provides:
//   - OpenTelemetry metrics for JSON-RPC calls, notification polling,
//     favorite mutations, HTTP requests and MCP tool invocations
//   - Distributed tracing for tool invocations and calendar server calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//   - Audit logging of MCP tool calls
//
// # Metrics
//
// JSON-RPC Client Metrics:
//   - rpc_calls_total: Counter of calls by operation and status
//   - rpc_call_duration_seconds: Histogram of call durations
//   - rpc_requests_in_flight: Gauge of non-shadow requests in flight
//
// Calendar Metrics:
//   - notification_polls_total: Counter of polls by result (success, aborted, error)
//   - notifications_displayed_total: Counter of displayed notifications
//   - favorite_mutations_total: Counter of favorite add/remove by status
//
// Server Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Spans are created for:
//   - MCP tool invocations (tool.<name>)
//   - Calendar server calls (rpc.<model>.<method> or rpc.<route>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: odoocal)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordRPCCall(ctx, "calendar.contacts.create", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
