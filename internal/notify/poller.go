package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/odoocal/internal/calendar"
	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/logging"
	"github.com/teemow/odoocal/internal/rpc"
)

// DefaultInterval is the time between two polls
const DefaultInterval = 5 * time.Minute

// Config holds the collaborators of a Poller
type Config struct {
	Source  NotificationSource
	Display Display
	Factory *Factory

	// Reporter receives poll errors other than local aborts. Without a
	// reporter they are logged.
	Reporter ErrorReporter

	// Interval defaults to DefaultInterval
	Interval time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Poller periodically asks the server for due reminders and schedules their
// display. Start and Stop each take effect once.
type Poller struct {
	source   NotificationSource
	display  Display
	factory  *Factory
	reporter ErrorReporter
	interval time.Duration
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	afterFunc func(d time.Duration, f func()) *time.Timer

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	polls     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	nextID  uint64
	timers  map[uint64]*time.Timer

	// fireMu makes the shown check and Show of a firing timer atomic
	fireMu sync.Mutex
}

// NewPoller creates a Poller.
func NewPoller(cfg Config) (*Poller, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("notification source cannot be nil")
	}
	if cfg.Display == nil || cfg.Factory == nil {
		return nil, fmt.Errorf("display and factory are required")
	}

	p := &Poller{
		source:    cfg.Source,
		display:   cfg.Display,
		factory:   cfg.Factory,
		reporter:  cfg.Reporter,
		interval:  cfg.Interval,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		afterFunc: time.AfterFunc,
		timers:    make(map[uint64]*time.Timer),
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = logging.WithService(p.logger, instrumentation.ServiceNotifications)
	return p, nil
}

// Interval returns the time between two polls.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start polls immediately and then every interval until Stop is called or
// ctx is done. Each poll runs in its own goroutine.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		p.mu.Lock()
		if p.stopped {
			p.mu.Unlock()
			cancel()
			return
		}
		p.cancel = cancel
		p.mu.Unlock()

		p.logger.Info("notification poller started", slog.Duration("interval", p.interval))

		p.polls.Add(1)
		go func() {
			defer p.polls.Done()
			p.loop(ctx)
		}()
	})
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.spawnPoll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawnPoll(ctx)
		}
	}
}

func (p *Poller) spawnPoll(ctx context.Context) {
	p.polls.Add(1)
	go func() {
		defer p.polls.Done()
		p.Poll(ctx)
	}()
}

// Stop cancels the interval and every pending display. Results of polls
// still in flight are dropped.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		for _, t := range p.timers {
			t.Stop()
		}
		p.timers = make(map[uint64]*time.Timer)
		cancel := p.cancel
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		p.polls.Wait()
		p.logger.Info("notification poller stopped")
	})
}

// Stopped reports whether Stop was called.
func (p *Poller) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Pending returns the number of scheduled displays that did not fire yet.
func (p *Poller) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.timers)
}

// Poll runs one poll and returns the number of displays it scheduled.
// Errors are handled by the error policy: local aborts are dropped, the
// others go to the reporter.
func (p *Poller) Poll(ctx context.Context) int {
	ctx, span := instrumentation.StartSpan(ctx, "notify.poll")
	defer span.End()

	due, err := p.source.Due(ctx)
	if err != nil {
		p.handleError(ctx, err)
		instrumentation.SetSpanError(span, err)
		return 0
	}
	p.metrics.RecordNotificationPoll(ctx, instrumentation.PollResultSuccess)

	scheduled := p.schedule(due)
	p.logger.Debug("notifications polled", slog.Int("due", len(due)), slog.Int("scheduled", scheduled))
	return scheduled
}

func (p *Poller) handleError(ctx context.Context, err error) {
	if rpc.IsLocalAbort(err) || p.Stopped() {
		p.metrics.RecordNotificationPoll(ctx, instrumentation.PollResultAborted)
		p.logger.Debug("notification poll aborted", logging.Err(err))
		return
	}

	p.metrics.RecordNotificationPoll(ctx, instrumentation.PollResultError)
	if p.reporter == nil {
		p.logger.Error("notification poll failed", logging.Err(err))
		return
	}
	p.reporter.Report(ctx, err)
}

func (p *Poller) schedule(due []calendar.DueNotification) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return 0
	}

	scheduled := 0
	for _, d := range due {
		if p.display.IsShown(Tag(d.EventID)) {
			continue
		}

		id := p.nextID
		p.nextID++
		p.timers[id] = p.afterFunc(d.Delay(), func() { p.fire(id, d) })
		scheduled++
	}
	return scheduled
}

func (p *Poller) fire(id uint64, due calendar.DueNotification) {
	p.mu.Lock()
	delete(p.timers, id)
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}

	p.fireMu.Lock()
	defer p.fireMu.Unlock()

	tag := Tag(due.EventID)
	if p.display.IsShown(tag) {
		return
	}
	p.display.Show(p.factory.Build(due))
	p.metrics.RecordNotificationDisplayed(context.Background())
	p.logger.Info("notification displayed", logging.Event(due.EventID))
}
