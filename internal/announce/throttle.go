// Package announce decides when a recognised identity may be spoken and turns
// it into a greeting for the speech engine.
package announce

import (
	"sync"
	"time"
)

// UnknownLabel is the cooldown slot used for faces that matched nobody.
const UnknownLabel = "UNKNOWN"

// Throttle is a single-slot cooldown: it remembers only the most recently
// announced label and when it was announced. A different label may always be
// announced; the same label only once the cooldown has elapsed. Announcing B
// therefore clears the cooldown of A.
type Throttle struct {
	cooldown time.Duration

	mu        sync.Mutex
	lastLabel string
	lastAt    time.Time
}

// NewThrottle creates a throttle with no announcement history.
func NewThrottle(cooldown time.Duration) *Throttle {
	return &Throttle{
		cooldown: cooldown,
		lastAt:   time.Unix(0, 0),
	}
}

// MayAnnounce reports whether label may be spoken at now. It does not change
// any state.
func (t *Throttle) MayAnnounce(label string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if label != t.lastLabel {
		return true
	}
	return now.Sub(t.lastAt) >= t.cooldown
}

// Record stores label as the most recently spoken one.
func (t *Throttle) Record(label string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastLabel = label
	t.lastAt = now
}

// Last returns the most recently recorded label and its time. The label is
// empty when nothing has been announced yet.
func (t *Throttle) Last() (string, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastLabel, t.lastAt
}

// Cooldown returns the configured cooldown window.
func (t *Throttle) Cooldown() time.Duration {
	return t.cooldown
}
