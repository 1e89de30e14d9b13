// Package server holds the authenticated calendar session and the
// components built on it, and serves them to MCP clients.
//
// ServerContext owns the favorite filter synchronizer, the notification
// poller with its manager and the attendee renderer. Ready loads the
// favorites and starts polling; Shutdown stops polling, waits for pending
// acknowledgements and flushes the error reporter.
//
// HTTPServer exposes the MCP server over streamable HTTP at /mcp, together
// with the health endpoints. Plain HTTP is only accepted on a loopback
// address. MetricsServer serves Prometheus metrics on a separate port.
package server
