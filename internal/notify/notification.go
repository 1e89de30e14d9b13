package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/odoocal/internal/calendar"
	"github.com/teemow/odoocal/internal/logging"
)

// ackTimeout bounds the background acknowledgement call
const ackTimeout = 30 * time.Second

// Notification is a displayed event reminder
type Notification struct {
	EventID int64     `json:"event_id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Tag     string    `json:"tag"`
	ShownAt time.Time `json:"shown_at"`

	factory *Factory
}

// Open loads the event notification action bound to this event and hands
// it to the executor. The bound action is returned.
func (n *Notification) Open(ctx context.Context) (calendar.Action, error) {
	f := n.factory
	action, err := f.loader.LoadAction(ctx, calendar.ActionEventNotify)
	if err != nil {
		return nil, fmt.Errorf("failed to load event action: %w", err)
	}
	action = action.WithResID(n.EventID)

	if f.executor != nil {
		if err := f.executor.Execute(ctx, action); err != nil {
			return action, fmt.Errorf("failed to open event %d: %w", n.EventID, err)
		}
	}
	return action, nil
}

// Recall closes the notification.
func (n *Notification) Recall() {
	n.factory.display.Close(n.Tag)
}

// Acknowledge closes the notification and tells the server in the
// background. Errors of the acknowledgement are only logged.
func (n *Notification) Acknowledge(ctx context.Context) {
	f := n.factory
	f.display.Close(n.Tag)

	f.acks.Add(1)
	go func() {
		defer f.acks.Done()

		ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
		defer cancel()
		if err := f.ack.Acknowledge(ackCtx); err != nil {
			f.logger.Warn("failed to acknowledge notifications", logging.Event(n.EventID), logging.Err(err))
		}
	}()
}

// Factory builds notifications wired to their actions
type Factory struct {
	loader   ActionLoader
	ack      Acknowledger
	executor Executor
	display  Display
	logger   *slog.Logger

	acks sync.WaitGroup
}

// FactoryConfig holds the collaborators of a Factory
type FactoryConfig struct {
	Loader       ActionLoader
	Acknowledger Acknowledger
	Display      Display

	// Executor is optional; without it Open only resolves the action
	Executor Executor
	Logger   *slog.Logger
}

// NewFactory creates a notification factory.
func NewFactory(cfg FactoryConfig) (*Factory, error) {
	if cfg.Loader == nil || cfg.Acknowledger == nil {
		return nil, fmt.Errorf("action loader and acknowledger are required")
	}
	if cfg.Display == nil {
		return nil, fmt.Errorf("display cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		loader:   cfg.Loader,
		ack:      cfg.Acknowledger,
		executor: cfg.Executor,
		display:  cfg.Display,
		logger:   logger,
	}, nil
}

// Build creates the notification of a due reminder.
func (f *Factory) Build(due calendar.DueNotification) *Notification {
	return &Notification{
		EventID: due.EventID,
		Title:   due.Title,
		Message: due.Message,
		Tag:     Tag(due.EventID),
		factory: f,
	}
}

// Wait blocks until background acknowledgements finished.
func (f *Factory) Wait() {
	f.acks.Wait()
}
