package manager

import (
	"sync"

	"github.com/profile-control/pcc/internal/metrics"
)

// Callback receives the profiles-changed event. Observers carry no
// payload; they re-query the manager for specifics.
type Callback interface {
	OnProfilesChanged()
}

// Executor schedules an observer callback onto that observer's own
// execution context. The manager never runs callbacks inline on its
// rebuild goroutine.
type Executor func(func())

// observerRegistry is the change fan-out. Register and unregister are
// idempotent.
type observerRegistry struct {
	mu        sync.Mutex
	observers map[Callback]Executor
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{observers: make(map[Callback]Executor)}
}

// RegisterObserver adds cb with its executor. A nil executor gets a
// goroutine per notification. Duplicate registration is a no-op and
// keeps the original executor.
func (m *Manager) RegisterObserver(cb Callback, exec Executor) {
	if cb == nil {
		return
	}
	m.observers.mu.Lock()
	defer m.observers.mu.Unlock()
	if _, exists := m.observers.observers[cb]; exists {
		return
	}
	if exec == nil {
		exec = func(fn func()) { go fn() }
	}
	m.observers.observers[cb] = exec
}

// UnregisterObserver removes cb. Unknown observers are ignored.
func (m *Manager) UnregisterObserver(cb Callback) {
	m.observers.mu.Lock()
	defer m.observers.mu.Unlock()
	delete(m.observers.observers, cb)
}

// notifyChanged dispatches the change event to every observer on its own
// executor.
func (m *Manager) notifyChanged() {
	m.observers.mu.Lock()
	pairs := make(map[Callback]Executor, len(m.observers.observers))
	for cb, exec := range m.observers.observers {
		pairs[cb] = exec
	}
	m.observers.mu.Unlock()

	for cb, exec := range pairs {
		cb := cb
		exec(func() { cb.OnProfilesChanged() })
	}
	metrics.ChangeNotificationsTotal.Add(float64(len(pairs)))
}
