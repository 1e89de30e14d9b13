package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/odoocal/internal/calendar"
	"github.com/teemow/odoocal/internal/rpc"
)

type fakeSource struct {
	mu    sync.Mutex
	due   []calendar.DueNotification
	err   error
	calls int

	// wait, when set, makes Due block until ctx is done
	wait    bool
	entered chan struct{}
}

func (s *fakeSource) Due(ctx context.Context) ([]calendar.DueNotification, error) {
	s.mu.Lock()
	s.calls++
	due, err, wait := s.due, s.err, s.wait
	s.mu.Unlock()

	if wait {
		if s.entered != nil {
			s.entered <- struct{}{}
		}
		<-ctx.Done()
		return nil, &rpc.Error{Code: rpc.CodeLocalAbort, Message: "request aborted", Err: ctx.Err()}
	}
	return due, err
}

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *fakeReporter) Report(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *fakeReporter) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

type fakeActions struct {
	mu     sync.Mutex
	acks   int
	ackErr error
}

func (a *fakeActions) LoadAction(_ context.Context, key string) (calendar.Action, error) {
	return calendar.Action{"id": 311, "xml_id": key, "res_model": calendar.ModelEvent, "res_id": false}, nil
}

func (a *fakeActions) Acknowledge(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return a.ackErr
}

type countingSink struct {
	mu     sync.Mutex
	shown  []int64
	closed []int64
}

func (s *countingSink) Shown(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, n.EventID)
}

func (s *countingSink) Closed(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, n.EventID)
}

func (s *countingSink) ShownIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.shown...)
}

type pollerFixture struct {
	poller   *Poller
	source   *fakeSource
	manager  *Manager
	sink     *countingSink
	reporter *fakeReporter

	mu     sync.Mutex
	delays []time.Duration
}

func (f *pollerFixture) Delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.delays...)
}

func newPollerFixture(t *testing.T, interval time.Duration) *pollerFixture {
	t.Helper()
	f := &pollerFixture{
		source:   &fakeSource{},
		sink:     &countingSink{},
		reporter: &fakeReporter{},
	}
	f.manager = NewManager(f.sink)

	factory, err := NewFactory(FactoryConfig{Loader: &fakeActions{}, Acknowledger: &fakeActions{}, Display: f.manager})
	require.NoError(t, err)

	f.poller, err = NewPoller(Config{
		Source:   f.source,
		Display:  f.manager,
		Factory:  factory,
		Reporter: f.reporter,
		Interval: interval,
	})
	require.NoError(t, err)

	f.poller.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		f.mu.Lock()
		f.delays = append(f.delays, d)
		f.mu.Unlock()
		return time.AfterFunc(d, fn)
	}
	t.Cleanup(f.poller.Stop)
	return f
}

func TestTag(t *testing.T) {
	assert.Equal(t, "eid_5", Tag(5))
	assert.Equal(t, "eid_123456", Tag(123456))
}

func TestNewPoller_Validation(t *testing.T) {
	m := NewManager(nil)
	factory, err := NewFactory(FactoryConfig{Loader: &fakeActions{}, Acknowledger: &fakeActions{}, Display: m})
	require.NoError(t, err)

	_, err = NewPoller(Config{Display: m, Factory: factory})
	assert.Error(t, err)
	_, err = NewPoller(Config{Source: &fakeSource{}, Factory: factory})
	assert.Error(t, err)
	_, err = NewPoller(Config{Source: &fakeSource{}, Display: m})
	assert.Error(t, err)

	p, err := NewPoller(Config{Source: &fakeSource{}, Display: m, Factory: factory})
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, p.Interval())
}

func TestPoller_SchedulesDueNotification(t *testing.T) {
	f := newPollerFixture(t, time.Hour)
	f.source.due = []calendar.DueNotification{{EventID: 5, Title: "Standup", Timer: 0}}

	assert.Equal(t, 1, f.poller.Poll(context.Background()))
	assert.Equal(t, []time.Duration{0}, f.Delays())

	assert.Eventually(t, func() bool { return f.manager.IsShown("eid_5") }, time.Second, 5*time.Millisecond)
	n, ok := f.manager.Get("eid_5")
	require.True(t, ok)
	assert.Equal(t, "Standup", n.Title)
}

func TestPoller_SkipsShownNotification(t *testing.T) {
	f := newPollerFixture(t, time.Hour)
	f.source.due = []calendar.DueNotification{{EventID: 5, Timer: 0}}
	f.manager.Show(&Notification{EventID: 5, Tag: Tag(5)})

	assert.Equal(t, 0, f.poller.Poll(context.Background()))
	assert.Empty(t, f.Delays())
}

func TestPoller_NegativeTimerIsImmediate(t *testing.T) {
	f := newPollerFixture(t, time.Hour)
	f.source.due = []calendar.DueNotification{{EventID: 8, Timer: -30}}

	assert.Equal(t, 1, f.poller.Poll(context.Background()))
	assert.Equal(t, []time.Duration{0}, f.Delays())
}

func TestPoller_OverlappingSchedulesDisplayOnce(t *testing.T) {
	f := newPollerFixture(t, time.Hour)
	f.source.due = []calendar.DueNotification{{EventID: 5, Timer: 0.05}}

	assert.Equal(t, 1, f.poller.Poll(context.Background()))
	assert.Equal(t, 1, f.poller.Poll(context.Background()))

	assert.Eventually(t, func() bool { return f.poller.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{5}, f.sink.ShownIDs())
}

func TestPoller_ErrorPolicy(t *testing.T) {
	localAbort := &rpc.Error{Code: rpc.CodeLocalAbort, Message: "request aborted"}
	serverErr := &rpc.Error{Code: 200, Message: "Odoo Server Error"}

	tests := []struct {
		name         string
		err          error
		wantReported bool
	}{
		{"local abort", localAbort, false},
		{"wrapped local abort", fmt.Errorf("poll: %w", localAbort), false},
		{"server error", serverErr, true},
		{"session expired", &rpc.Error{Code: 100, Message: "Odoo Session Expired"}, true},
		{"transport error", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPollerFixture(t, time.Hour)
			f.source.err = tt.err

			assert.Equal(t, 0, f.poller.Poll(context.Background()))
			if tt.wantReported {
				assert.Equal(t, []error{tt.err}, f.reporter.Errors())
			} else {
				assert.Empty(t, f.reporter.Errors())
			}
		})
	}
}

func TestPoller_StopCancelsPendingDisplays(t *testing.T) {
	f := newPollerFixture(t, time.Hour)
	f.source.due = []calendar.DueNotification{{EventID: 5, Timer: 0.1}, {EventID: 6, Timer: 0.1}}

	assert.Equal(t, 2, f.poller.Poll(context.Background()))
	assert.Equal(t, 2, f.poller.Pending())

	f.poller.Stop()
	assert.True(t, f.poller.Stopped())
	assert.Equal(t, 0, f.poller.Pending())

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, f.manager.List())
}

func TestPoller_ResultsAfterStopAreDropped(t *testing.T) {
	f := newPollerFixture(t, time.Hour)
	f.source.due = []calendar.DueNotification{{EventID: 5}}

	f.poller.Stop()
	assert.Equal(t, 0, f.poller.Poll(context.Background()))
	assert.Empty(t, f.Delays())
}

func TestPoller_StartPollsImmediatelyAndPeriodically(t *testing.T) {
	f := newPollerFixture(t, 20*time.Millisecond)

	f.poller.Start(context.Background())
	f.poller.Start(context.Background())
	assert.Eventually(t, func() bool { return f.source.Calls() >= 3 }, time.Second, 5*time.Millisecond)

	f.poller.Stop()
	calls := f.source.Calls()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, f.source.Calls(), "no poll after Stop")

	// Stop is idempotent
	f.poller.Stop()
}

func TestPoller_StartAfterStopIsNoop(t *testing.T) {
	f := newPollerFixture(t, 10*time.Millisecond)
	f.poller.Stop()
	f.poller.Start(context.Background())

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, f.source.Calls())
}

func TestPoller_StopAbortsInFlightPoll(t *testing.T) {
	f := newPollerFixture(t, time.Hour)
	f.source.wait = true
	f.source.entered = make(chan struct{}, 1)

	f.poller.Start(context.Background())
	<-f.source.entered

	f.poller.Stop()
	assert.Empty(t, f.reporter.Errors(), "aborted poll must not be reported")
}
