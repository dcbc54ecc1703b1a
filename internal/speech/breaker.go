package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the breaker is open and speech is
// skipped without running the engine.
var ErrUnavailable = errors.New("speech engine unavailable")

// BreakerSettings configure a BreakerSpeaker.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial call.
	OpenTimeout time.Duration
}

// BreakerSpeaker stops calling a failing engine for a while so a missing or
// broken engine does not stall every active frame.
type BreakerSpeaker struct {
	next Speaker
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerSpeaker wraps next with a circuit breaker.
func NewBreakerSpeaker(next Speaker, settings BreakerSettings, logger *slog.Logger) *BreakerSpeaker {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 3
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "speech",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// cancellation says nothing about the engine
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("speech: breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerSpeaker{next: next, cb: cb}
}

// Speak forwards to the wrapped speaker unless the breaker is open.
func (b *BreakerSpeaker) Speak(ctx context.Context, text string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Speak(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// State returns the breaker state name ("closed", "half-open" or "open").
func (b *BreakerSpeaker) State() string {
	return b.cb.State().String()
}
