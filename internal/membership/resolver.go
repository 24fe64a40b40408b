package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/auth"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/domain"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/logger"
)

// Config bounds the resolution loop.
type Config struct {
	// MaxAttempts is how many times a pass queries for an active membership
	// before giving up.
	MaxAttempts int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// OverrideTTL is how long a manual company selection blocks automatic
	// re-resolution.
	OverrideTTL time.Duration
	// SessionTimeout bounds each session lookup so a stalled auth backend
	// cannot hang a pass.
	SessionTimeout time.Duration
}

// DefaultConfig returns the stock resolution timings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    4,
		RetryDelay:     1500 * time.Millisecond,
		OverrideTTL:    5 * time.Second,
		SessionTimeout: 2 * time.Second,
	}
}

// Resolver determines the active membership for the signed-in user and keeps
// it current across auth-state changes and manual overrides.
type Resolver struct {
	backend auth.Backend
	store   remote.DataStore
	cfg     Config
	log     *logger.Logger

	mu      sync.Mutex
	state   State
	current *domain.Membership
	guard   OverrideGuard
}

// NewResolver builds a resolver and subscribes it to auth-state changes:
// sign-out drops the resolved membership and any override.
func NewResolver(backend auth.Backend, store remote.DataStore, cfg Config, log *logger.Logger) *Resolver {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultConfig().SessionTimeout
	}

	r := &Resolver{
		backend: backend,
		store:   store,
		cfg:     cfg,
		log:     log,
		state:   StateUnresolved,
	}
	backend.OnAuthStateChange(func(ev auth.Event) {
		if ev.Kind == auth.EventSignedOut {
			r.reset()
		}
	})
	return r
}

// Current returns the active membership and the resolution state. The
// membership is nil unless the state is RESOLVED or OVERRIDDEN.
func (r *Resolver) Current() (*domain.Membership, State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil, r.state
	}
	m := *r.current
	return &m, r.state
}

// Resolve runs a resolution pass: look up the session, query for an active
// membership, and retry up to MaxAttempts with RetryDelay between attempts.
// Memberships created by a backend trigger can lag the sign-in that caused
// them, which is what the retries paper over.
func (r *Resolver) Resolve(ctx context.Context) (Outcome, error) {
	if !r.begin() {
		return OutcomeOverridden, nil
	}

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		m, err := r.attempt(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.finish(nil)
				return OutcomeTimedOut, ctx.Err()
			}
			r.log.Warn("membership attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		if m != nil {
			r.finish(m)
			r.log.Info("membership resolved",
				zap.String("company_id", m.CompanyID),
				zap.String("role", string(m.Role)),
				zap.Int("attempt", attempt))
			return OutcomeResolved, nil
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			r.finish(nil)
			return OutcomeTimedOut, ctx.Err()
		case <-time.After(r.cfg.RetryDelay):
		}
	}

	r.finish(nil)
	r.log.Warn("membership unresolved after retries",
		zap.Int("attempts", r.cfg.MaxAttempts))
	return OutcomeUnresolved, nil
}

// SetOverride installs a manually chosen membership and arms the guard so a
// resolution pass already in flight cannot immediately replace it.
func (r *Resolver) SetOverride(m domain.Membership) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = &m
	r.state = StateOverridden
	r.guard = Arm(r.cfg.OverrideTTL)
	r.log.Info("membership overridden",
		zap.String("company_id", m.CompanyID),
		zap.Duration("guard_ttl", r.cfg.OverrideTTL))
}

// Refresh re-resolves unless the override guard is still open.
func (r *Resolver) Refresh(ctx context.Context) (Outcome, error) {
	r.mu.Lock()
	if r.guard.Active() {
		remaining := r.guard.Remaining()
		r.mu.Unlock()
		r.log.Debug("refresh skipped, override guard active",
			zap.Duration("remaining", remaining))
		return OutcomeOverridden, nil
	}
	r.mu.Unlock()
	return r.Resolve(ctx)
}

// attempt does one session lookup plus membership query. The session lookup
// is time-boxed so it cannot consume the whole retry budget.
func (r *Resolver) attempt(ctx context.Context) (*domain.Membership, error) {
	sessionCtx, cancel := context.WithTimeout(ctx, r.cfg.SessionTimeout)
	defer cancel()

	session, err := r.backend.Session(sessionCtx)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	rows, err := r.store.Query(ctx, remote.CollectionMemberships, remote.Filter{
		"user_id": session.UserID,
		"status":  string(domain.MembershipActive),
	})
	if err != nil {
		return nil, fmt.Errorf("membership query: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var m domain.Membership
	if err := json.Unmarshal(rows[0], &m); err != nil {
		return nil, fmt.Errorf("decode membership: %w", err)
	}
	return &m, nil
}

// begin moves the machine into RESOLVING. It refuses while the override
// guard is open.
func (r *Resolver) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.guard.Active() {
		return false
	}
	if !r.state.CanTransitionTo(StateResolving) {
		return false
	}
	r.state = StateResolving
	return true
}

// finish records the pass result. A nil membership lands on UNRESOLVED; an
// override installed while the pass ran wins over its result.
func (r *Resolver) finish(m *domain.Membership) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateOverridden {
		return
	}
	if m == nil {
		r.current = nil
		r.state = StateUnresolved
		return
	}
	r.current = m
	r.state = StateResolved
}

func (r *Resolver) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
	r.state = StateUnresolved
	r.guard = OverrideGuard{}
	r.log.Info("membership cleared on sign-out")
}
