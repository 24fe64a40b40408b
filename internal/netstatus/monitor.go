// Package netstatus tracks connectivity and notifies subscribers on
// online/offline transitions. The sync engine keys its drains off the
// offline-to-online edge.
package netstatus

import (
	"context"
	"sync"
	"time"
)

// ProbeFunc reports whether the backend is reachable right now.
type ProbeFunc func(ctx context.Context) bool

// Monitor holds the current connectivity state. Transitions (and only
// transitions) fan out to subscribers.
type Monitor struct {
	mu          sync.Mutex
	online      bool
	subscribers []func(online bool)
}

// NewMonitor creates a monitor with the given initial state.
func NewMonitor(online bool) *Monitor {
	return &Monitor{online: online}
}

// Online returns the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a handler invoked on every transition.
func (m *Monitor) Subscribe(handler func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, handler)
}

// SetOnline records the state and notifies subscribers when it changed.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subscribers := append([]func(bool){}, m.subscribers...)
	m.mu.Unlock()

	for _, handler := range subscribers {
		handler(online)
	}
}

// Watch polls probe every interval until ctx is cancelled, updating the
// state on each result. Run it in its own goroutine.
func (m *Monitor) Watch(ctx context.Context, probe ProbeFunc, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(probe(ctx))
		}
	}
}
