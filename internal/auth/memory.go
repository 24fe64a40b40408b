package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-memory Backend for tests. Sessions are installed
// directly and events fired synchronously.
type MemoryBackend struct {
	mu       sync.Mutex
	session  *Session
	handlers []func(Event)
	delay    time.Duration // artificial latency for Session lookups
}

// NewMemoryBackend creates a signed-out backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// SetSessionDelay makes Session block for d before answering, to exercise
// the caller's time box.
func (b *MemoryBackend) SetSessionDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// SignIn installs a session and fires SIGNED_IN.
func (b *MemoryBackend) SignIn(session *Session) {
	b.mu.Lock()
	b.session = session
	handlers := append([]func(Event){}, b.handlers...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(Event{Kind: EventSignedIn, Session: session})
	}
}

// Session returns the current session, or nil when signed out.
func (b *MemoryBackend) Session(ctx context.Context) (*Session, error) {
	b.mu.Lock()
	delay := b.delay
	session := b.session
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return session, nil
}

// OnAuthStateChange registers a handler for auth events.
func (b *MemoryBackend) OnAuthStateChange(handler func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// SignOut clears the session and fires SIGNED_OUT.
func (b *MemoryBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	b.session = nil
	handlers := append([]func(Event){}, b.handlers...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(Event{Kind: EventSignedOut})
	}
	return nil
}
