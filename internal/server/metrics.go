package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/odoocal/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is the default address for the metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultMetricsPath is where the Prometheus handler is mounted.
	DefaultMetricsPath = "/metrics"

	DefaultMetricsReadTimeout  = 10 * time.Second
	DefaultMetricsWriteTimeout = 10 * time.Second
	DefaultMetricsIdleTimeout  = 60 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Addr is the address to bind the metrics server to (e.g., ":9090").
	Addr string

	// Path of the Prometheus endpoint, default "/metrics"
	Path string

	// InstrumentationProvider must be enabled with the Prometheus exporter.
	InstrumentationProvider *instrumentation.Provider

	// Health, when set, adds the liveness and readiness endpoints next to
	// the metrics. Otherwise only a basic /healthz is served.
	Health *HealthChecker
}

// MetricsServer serves Prometheus metrics on a dedicated port, away from the
// MCP transport.
type MetricsServer struct {
	httpServer *http.Server
	addr       string
	path       string
	health     *HealthChecker
}

// NewMetricsServer creates a new metrics server with the given configuration.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.Path == "" {
		config.Path = DefaultMetricsPath
	}

	if config.InstrumentationProvider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}
	if !config.InstrumentationProvider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}
	if !config.InstrumentationProvider.PrometheusEnabled() {
		return nil, fmt.Errorf("metrics exporter is not prometheus")
	}

	return &MetricsServer{
		addr:   config.Addr,
		path:   config.Path,
		health: config.Health,
	}, nil
}

func (s *MetricsServer) handler() http.Handler {
	mux := http.NewServeMux()

	// The OpenTelemetry prometheus exporter registers to the global registry.
	mux.Handle(s.path, promhttp.Handler())

	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	} else {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}
	return mux
}

// Start starts the metrics server and blocks.
func (s *MetricsServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal binds the listener, closes ready once the port is
// open and serves until Shutdown. ready stays open when binding fails; it
// may be nil.
func (s *MetricsServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()

	s.httpServer = &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: DefaultMetricsReadTimeout,
		WriteTimeout:      DefaultMetricsWriteTimeout,
		IdleTimeout:       DefaultMetricsIdleTimeout,
	}

	slog.Info("starting metrics server", "addr", s.addr, "path", s.path)
	if ready != nil {
		close(ready)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		slog.Info("shutting down metrics server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the listen address; after start it is the bound address.
func (s *MetricsServer) Addr() string {
	return s.addr
}
