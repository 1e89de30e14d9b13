package notify

import (
	"context"
	"strconv"

	"github.com/teemow/odoocal/internal/calendar"
)

// tagPrefix prefixes the display tag of an event notification
const tagPrefix = "eid_"

// Tag returns the display tag identifying the notification of an event.
// At most one notification per tag is shown at a time.
func Tag(eventID int64) string {
	return tagPrefix + strconv.FormatInt(eventID, 10)
}

// NotificationSource returns the reminders due for the current user
type NotificationSource interface {
	Due(ctx context.Context) ([]calendar.DueNotification, error)
}

// ActionLoader loads a client action by key
type ActionLoader interface {
	LoadAction(ctx context.Context, key string) (calendar.Action, error)
}

// Acknowledger tells the server the shown reminders were seen
type Acknowledger interface {
	Acknowledge(ctx context.Context) error
}

// Executor runs a loaded client action, typically by opening the event form
type Executor interface {
	Execute(ctx context.Context, action calendar.Action) error
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, action calendar.Action) error

// Execute implements Executor
func (f ExecutorFunc) Execute(ctx context.Context, action calendar.Action) error {
	return f(ctx, action)
}

// Display shows and closes notifications
type Display interface {
	Show(n *Notification)
	Close(tag string)
	IsShown(tag string) bool
}

// ErrorReporter receives poll errors that are not local aborts
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}
