package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/logging"
	"github.com/teemow/odoocal/internal/resources"
	"github.com/teemow/odoocal/internal/server"
	"github.com/teemow/odoocal/internal/tools/attendee_tools"
	"github.com/teemow/odoocal/internal/tools/favorites_tools"
	"github.com/teemow/odoocal/internal/tools/notification_tools"
)

// Transports supported by serve
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// notificationResourceUpdated tells clients to read a resource again
const notificationResourceUpdated = "notifications/resources/updated"

// serveOptions holds the serve flags
type serveOptions struct {
	Transport        string
	HTTPAddr         string
	Yolo             bool
	NoPoll           bool
	DisableStreaming bool
	AllowInsecure    bool
	TLSCertFile      string
	TLSKeyFile       string
	MetricsEnabled   bool
	MetricsAddr      string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to give AI assistants access
to the calendar favorites, event reminders and attendees of the logged-in user.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode, providing only safe operations.
  Use --yolo to enable write operations (adding and removing favorites,
  acknowledging reminders).

The streamable HTTP transport has no authentication of its own. Plain HTTP
is only served on a loopback address unless --allow-insecure is set;
configure --tls-cert-file and --tls-key-file to serve HTTPS elsewhere.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loadServeEnvVars(cmd, opts)
			return runServe(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	f.StringVar(&opts.HTTPAddr, "http-addr", "127.0.0.1:8080", "HTTP server address (for streamable-http transport)")
	f.BoolVar(&opts.Yolo, "yolo", false, "Enable write operations (favorite changes, acknowledgements). Default is read-only mode.")
	f.BoolVar(&opts.NoPoll, "no-poll", false, "Do not poll for event reminders in the background")
	f.BoolVar(&opts.DisableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	f.BoolVar(&opts.AllowInsecure, "allow-insecure", false, "WARNING: Serve plain HTTP on a non-loopback address. Anyone reaching it acts as the logged-in user.")
	f.StringVar(&opts.TLSCertFile, "tls-cert-file", "", "Path to TLS certificate file (PEM format). If provided with --tls-key-file, enables HTTPS. Can also use TLS_CERT_FILE env var.")
	f.StringVar(&opts.TLSKeyFile, "tls-key-file", "", "Path to TLS private key file (PEM format). If provided with --tls-cert-file, enables HTTPS. Can also use TLS_KEY_FILE env var.")
	f.BoolVar(&opts.MetricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	f.StringVar(&opts.MetricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills the flags not set on the command line from the
// environment.
func loadServeEnvVars(cmd *cobra.Command, opts *serveOptions) {
	if !cmd.Flags().Changed("tls-cert-file") {
		if v := os.Getenv("TLS_CERT_FILE"); v != "" {
			opts.TLSCertFile = v
		}
	}
	if !cmd.Flags().Changed("tls-key-file") {
		if v := os.Getenv("TLS_KEY_FILE"); v != "" {
			opts.TLSKeyFile = v
		}
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				opts.MetricsEnabled = enabled
			} else {
				slog.Warn("invalid METRICS_ENABLED value, using default", slog.String("value", v))
			}
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if v := os.Getenv("METRICS_ADDR"); v != "" {
			opts.MetricsAddr = v
		}
	}
}

func runServe(ctx context.Context, opts *serveOptions) error {
	if opts.Transport != transportStdio && opts.Transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.Transport)
	}

	cfg, err := rootOpts.load()
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	mcpSrv := mcpserver.NewMCPServer("odoocal", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	sc, err := connect(shutdownCtx, cfg, connectConfig{
		Metrics: metrics,
		Server: func(c *server.Config) {
			c.OnFiltersChanged = func(context.Context) {
				mcpSrv.SendNotificationToAllClients(notificationResourceUpdated, map[string]any{
					"uri": resources.FavoritesURI,
				})
			}
		},
	})
	if err != nil {
		return err
	}
	defer closeSession(sc)

	if provider.Enabled() {
		sc.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging))
	}

	health := server.NewHealthChecker(sc)

	// Metrics are served on their own port, never next to the stdio transport
	if opts.Transport != transportStdio && opts.MetricsEnabled && provider.PrometheusEnabled() {
		metricsServer, err := startMetricsServer(opts.MetricsAddr, provider, health)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				slog.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	readOnly := !opts.Yolo
	if readOnly {
		slog.Info("starting server in read-only mode (use --yolo to enable write operations)")
	} else {
		slog.Info("starting server with write operations enabled (--yolo flag is set)")
	}

	if err := registerAllTools(mcpSrv, sc, readOnly); err != nil {
		return err
	}

	if err := sc.Ready(shutdownCtx, !opts.NoPoll); err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}

	switch opts.Transport {
	case transportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, sc, opts, health, metrics)
	default:
		return runStdioServer(mcpSrv)
	}
}

// startMetricsServer starts the metrics server and waits until it listens
func startMetricsServer(addr string, provider *instrumentation.Provider, health *server.HealthChecker) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Health:                  health,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}

	slog.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
	return metricsServer, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Favorites",
			register: func() error {
				return favorites_tools.RegisterFavoritesTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Notifications",
			register: func() error {
				return notification_tools.RegisterNotificationTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Attendees",
			register: func() error {
				return attendee_tools.RegisterAttendeeTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Session Resources",
			register: func() error {
				return resources.RegisterSessionResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts *serveOptions, health *server.HealthChecker, metrics *instrumentation.Metrics) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, server.HTTPServerConfig{
		DisableStreaming: opts.DisableStreaming,
		AllowInsecure:    opts.AllowInsecure,
		TLSCertFile:      opts.TLSCertFile,
		TLSKeyFile:       opts.TLSKeyFile,
		Health:           health,
		Metrics:          metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	scheme := "http"
	if httpServer.TLSEnabled() {
		scheme = "https"
	}
	slog.Info("streamable HTTP server starting",
		slog.String("addr", opts.HTTPAddr),
		slog.String("endpoint", scheme+"://"+opts.HTTPAddr+"/mcp"),
		slog.String("server", sc.RPC().BaseURL()),
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(opts.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	slog.Info("HTTP server gracefully stopped")
	return nil
}
