package membership

import "time"

// OverrideGuard marks a window after a manual company selection during which
// automatic resolution must not replace the choice. Expiry rides on the
// monotonic reading inside time.Time, so a wall-clock jump cannot stretch or
// shrink the window.
type OverrideGuard struct {
	armedAt time.Time
	ttl     time.Duration
}

// Arm starts a guard window of the given duration.
func Arm(ttl time.Duration) OverrideGuard {
	return OverrideGuard{armedAt: time.Now(), ttl: ttl}
}

// Active reports whether the window is still open.
func (g OverrideGuard) Active() bool {
	if g.armedAt.IsZero() {
		return false
	}
	return time.Since(g.armedAt) < g.ttl
}

// Remaining returns how long the window stays open, or zero when closed.
func (g OverrideGuard) Remaining() time.Duration {
	if g.armedAt.IsZero() {
		return 0
	}
	left := g.ttl - time.Since(g.armedAt)
	if left < 0 {
		return 0
	}
	return left
}
