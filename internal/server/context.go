package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/odoocal/internal/attendee"
	"github.com/teemow/odoocal/internal/calendar"
	"github.com/teemow/odoocal/internal/favorites"
	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/notify"
	"github.com/teemow/odoocal/internal/reporting"
	"github.com/teemow/odoocal/internal/rpc"
)

// Config holds the collaborators of a ServerContext
type Config struct {
	// RPC must be authenticated
	RPC *rpc.Client

	// Reporter receives poll errors; defaults to a LogReporter
	Reporter reporting.Reporter

	// Confirmer approves favorite removals; defaults to favorites.AlwaysConfirm
	Confirmer favorites.Confirmer

	// Executor opens event actions; optional
	Executor notify.Executor

	// Sink renders shown notifications; optional
	Sink notify.Sink

	// OnFiltersChanged is called after each successful favorite mutation
	OnFiltersChanged func(ctx context.Context)

	// NotifyInterval defaults to notify.DefaultInterval
	NotifyInterval time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// ServerContext holds the authenticated session and the calendar components
// built on it. It is shared by the MCP tools and the CLI commands.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	rpcClient     *rpc.Client
	session       *rpc.Session
	calendar      *calendar.Client
	favorites     *favorites.Synchronizer
	notifications *notify.Manager
	factory       *notify.Factory
	poller        *notify.Poller
	attendees     *attendee.Renderer
	reporter      reporting.Reporter
	logger        *slog.Logger

	mu          sync.RWMutex
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	polling     bool
	shutdown    bool
}

// NewServerContext wires the calendar components for the session of
// cfg.RPC.
func NewServerContext(ctx context.Context, cfg Config) (*ServerContext, error) {
	if cfg.RPC == nil {
		return nil, fmt.Errorf("rpc client cannot be nil")
	}
	session := cfg.RPC.Session()
	if session.Anonymous() {
		return nil, rpc.ErrNotAuthenticated
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = reporting.NewLogReporter(logger)
	}
	confirmer := cfg.Confirmer
	if confirmer == nil {
		confirmer = favorites.AlwaysConfirm
	}

	cal := calendar.NewClient(cfg.RPC)

	syncer, err := favorites.New(favorites.Config{
		Session:   *session,
		Store:     cal,
		Confirmer: confirmer,
		OnFiltersChanged: func(ctx context.Context) {
			logger.Debug("favorite filters changed")
			if cfg.OnFiltersChanged != nil {
				cfg.OnFiltersChanged(ctx)
			}
		},
		Logger:  logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create favorites synchronizer: %w", err)
	}

	manager := notify.NewManager(cfg.Sink)
	factory, err := notify.NewFactory(notify.FactoryConfig{
		Loader:       cal,
		Acknowledger: cal,
		Display:      manager,
		Executor:     cfg.Executor,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notification factory: %w", err)
	}

	poller, err := notify.NewPoller(notify.Config{
		Source:   cal,
		Display:  manager,
		Factory:  factory,
		Reporter: reporter,
		Interval: cfg.NotifyInterval,
		Logger:   logger,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notification poller: %w", err)
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:           shutdownCtx,
		cancel:        cancel,
		rpcClient:     cfg.RPC,
		session:       session,
		calendar:      cal,
		favorites:     syncer,
		notifications: manager,
		factory:       factory,
		poller:        poller,
		attendees:     attendee.NewRenderer(cal),
		reporter:      reporter,
		logger:        logger,
		metrics:       cfg.Metrics,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Session returns a copy of the authenticated session
func (sc *ServerContext) Session() rpc.Session {
	return *sc.session
}

// RPC returns the underlying RPC client
func (sc *ServerContext) RPC() *rpc.Client {
	return sc.rpcClient
}

// Calendar returns the calendar client
func (sc *ServerContext) Calendar() *calendar.Client {
	return sc.calendar
}

// Favorites returns the favorite filter synchronizer
func (sc *ServerContext) Favorites() *favorites.Synchronizer {
	return sc.favorites
}

// Notifications returns the notifications currently shown
func (sc *ServerContext) Notifications() *notify.Manager {
	return sc.notifications
}

// Poller returns the notification poller
func (sc *ServerContext) Poller() *notify.Poller {
	return sc.poller
}

// Attendees returns the attendee tag renderer
func (sc *ServerContext) Attendees() *attendee.Renderer {
	return sc.attendees
}

// Reporter returns the error reporter
func (sc *ServerContext) Reporter() reporting.Reporter {
	return sc.reporter
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics, or nil when instrumentation is disabled
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger used by tool instrumentation
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// Ready loads the favorite filters and, when poll is set, starts the
// notification poller. It is called once the session is established.
func (sc *ServerContext) Ready(ctx context.Context, poll bool) error {
	if err := sc.favorites.Init(ctx); err != nil {
		return err
	}
	if !poll {
		return nil
	}

	sc.mu.Lock()
	sc.polling = true
	sc.mu.Unlock()
	sc.poller.Start(sc.ctx)
	return nil
}

// Polling reports whether the notification poller runs.
func (sc *ServerContext) Polling() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.polling && !sc.poller.Stopped()
}

// Logout stops the poller and destroys the server session.
func (sc *ServerContext) Logout(ctx context.Context) error {
	sc.poller.Stop()
	return sc.rpcClient.Logout(ctx)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown stops polling, waits for pending acknowledgements and flushes
// the error reporter.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sc.mu.Unlock()

	sc.poller.Stop()
	sc.factory.Wait()
	sc.cancel()
	reporting.Flush(sc.reporter, reporting.DefaultFlushTimeout)
	return nil
}
