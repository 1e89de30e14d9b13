package notify

import (
	"sort"
	"sync"
	"time"
)

// Sink renders notifications as they are shown and closed
type Sink interface {
	Shown(n *Notification)
	Closed(n *Notification)
}

// Manager is an in-memory Display. It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	shown map[string]*Notification
	sink  Sink
	now   func() time.Time
}

// NewManager creates a Manager. sink may be nil.
func NewManager(sink Sink) *Manager {
	return &Manager{
		shown: make(map[string]*Notification),
		sink:  sink,
		now:   time.Now,
	}
}

// Show displays n. A notification already shown under the same tag is
// replaced.
func (m *Manager) Show(n *Notification) {
	m.mu.Lock()
	n.ShownAt = m.now()
	m.shown[n.Tag] = n
	m.mu.Unlock()

	if m.sink != nil {
		m.sink.Shown(n)
	}
}

// Close removes the notification shown under tag, if any.
func (m *Manager) Close(tag string) {
	m.mu.Lock()
	n, ok := m.shown[tag]
	delete(m.shown, tag)
	m.mu.Unlock()

	if ok && m.sink != nil {
		m.sink.Closed(n)
	}
}

// IsShown reports whether a notification is shown under tag.
func (m *Manager) IsShown(tag string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.shown[tag]
	return ok
}

// Get returns the notification shown under tag.
func (m *Manager) Get(tag string) (*Notification, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.shown[tag]
	return n, ok
}

// List returns the shown notifications, oldest first.
func (m *Manager) List() []*Notification {
	m.mu.RLock()
	out := make([]*Notification, 0, len(m.shown))
	for _, n := range m.shown {
		out = append(out, n)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ShownAt.Equal(out[j].ShownAt) {
			return out[i].EventID < out[j].EventID
		}
		return out[i].ShownAt.Before(out[j].ShownAt)
	})
	return out
}
