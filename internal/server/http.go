package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/odoocal/internal/instrumentation"
)

// HTTPServerConfig configures the streamable HTTP transport
type HTTPServerConfig struct {
	// DisableStreaming answers every request with a single JSON response
	DisableStreaming bool

	// AllowInsecure permits plain HTTP on a non-loopback address
	AllowInsecure bool

	TLSCertFile string
	TLSKeyFile  string

	Health  *HealthChecker
	Metrics *instrumentation.Metrics
}

// HTTPServer serves an MCP server over streamable HTTP next to the health
// endpoints.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	config     HTTPServerConfig
	httpServer *http.Server
}

// NewHTTPServer creates the HTTP transport for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, config HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("mcp server cannot be nil")
	}
	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS certificate and key files are required")
	}
	return &HTTPServer{mcpServer: mcpServer, config: config}, nil
}

// TLSEnabled reports whether the server serves HTTPS.
func (s *HTTPServer) TLSEnabled() bool {
	return s.config.TLSCertFile != ""
}

// Handler returns the instrumented HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath("/mcp")}
	if s.config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...))

	if s.config.Health != nil {
		s.config.Health.RegisterHealthEndpoints(mux)
	}

	return instrumentHTTP(s.config.Metrics, mux)
}

// Start listens on addr and blocks until the server stops.
func (s *HTTPServer) Start(addr string) error {
	if err := validateBindAddress(addr, s.TLSEnabled() || s.config.AllowInsecure); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if s.TLSEnabled() {
		return s.httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// validateBindAddress refuses plain HTTP on anything but a loopback address.
// The MCP endpoint acts with the calendar user's session and has no
// authentication of its own.
func validateBindAddress(addr string, secure bool) error {
	if addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	if secure {
		return nil
	}

	switch host {
	case "localhost", "127.0.0.1", "::1":
		return nil
	}
	return fmt.Errorf("refusing plain HTTP on %q: bind to localhost, configure TLS or allow insecure", addr)
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func instrumentHTTP(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
