package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/odoocal/internal/config"
	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/logging"
	"github.com/teemow/odoocal/internal/reporting"
	"github.com/teemow/odoocal/internal/rpc"
	"github.com/teemow/odoocal/internal/server"
)

// connectOptions holds the connection flags. Empty values fall back to the
// .env file and the environment.
type connectOptions struct {
	Debug   bool
	EnvFile string
	URL     string
	DB      string
	Login   string
	Timeout time.Duration
}

func addConnectionFlags(cmd *cobra.Command, o *connectOptions) {
	f := cmd.PersistentFlags()
	f.BoolVar(&o.Debug, "debug", false, "Enable debug logging")
	f.StringVar(&o.EnvFile, "env-file", ".env", "File with connection settings; a missing file is ignored")
	f.StringVar(&o.URL, "url", "", "Server URL. Can also use "+config.EnvURL+" env var.")
	f.StringVar(&o.DB, "db", "", "Database name. Can also use "+config.EnvDB+" env var.")
	f.StringVar(&o.Login, "login", "", "User login. Can also use "+config.EnvLogin+" env var.")
	f.DurationVar(&o.Timeout, "timeout", 0, "RPC timeout (default 30s). Can also use "+config.EnvTimeout+" env var.")
}

// load reads the configuration and applies the flag overrides.
func (o *connectOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	if o.URL != "" {
		cfg.URL = o.URL
	}
	if o.DB != "" {
		cfg.DB = o.DB
	}
	if o.Login != "" {
		cfg.Login = o.Login
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// connectConfig tunes the server context built by connect
type connectConfig struct {
	Metrics   *instrumentation.Metrics
	Indicator rpc.LoadingIndicator

	// Server is applied to the server configuration before it is built
	Server func(*server.Config)
}

// connect authenticates against the configured server and builds the
// server context on the new session.
func connect(ctx context.Context, cfg config.Config, cc connectConfig) (*server.ServerContext, error) {
	logger := slog.Default()

	client, err := rpc.NewClient(cfg.URL,
		rpc.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		rpc.WithLogger(logger),
		rpc.WithMetrics(cc.Metrics),
		rpc.WithLoadingIndicator(cc.Indicator),
	)
	if err != nil {
		return nil, err
	}

	if _, err := client.Authenticate(ctx, cfg.DB, cfg.Login, cfg.Password); err != nil {
		return nil, fmt.Errorf("failed to log in to %s: %w", cfg.URL, err)
	}
	logger.Debug("authenticated", logging.UserHash(cfg.Login), slog.String("db", cfg.DB))

	reporter, err := reporting.New(reporting.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     "odoocal@" + version,
		UserHash:    logging.AnonymizeLogin(cfg.Login),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create error reporter: %w", err)
	}

	serverCfg := server.Config{
		RPC:            client,
		Reporter:       reporter,
		NotifyInterval: cfg.NotifyInterval,
		Logger:         logger,
		Metrics:        cc.Metrics,
	}
	if cc.Server != nil {
		cc.Server(&serverCfg)
	}

	sc, err := server.NewServerContext(ctx, serverCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	return sc, nil
}

// closeSession waits for pending acknowledgements, then logs out.
func closeSession(sc *server.ServerContext) {
	if err := sc.Shutdown(); err != nil {
		slog.Debug("shutdown failed", logging.Err(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sc.Logout(ctx); err != nil {
		slog.Debug("logout failed", logging.Err(err))
	}
}
