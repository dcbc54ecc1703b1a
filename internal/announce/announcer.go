package announce

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Speaker speaks text aloud. Implementations may block until the utterance
// finishes or return once it has been queued.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Outcome is what happened to one announcement request.
type Outcome int

const (
	// OutcomeSkipped means the face was unknown and unknown announcements are off.
	OutcomeSkipped Outcome = iota
	// OutcomeSuppressed means the throttle rejected the label.
	OutcomeSuppressed
	// OutcomeSpoken means the speaker accepted the greeting and it was recorded.
	OutcomeSpoken
	// OutcomeFailed means the speaker returned an error; nothing was recorded.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeSpoken:
		return "spoken"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	defaultGreeting        = "Hello, {name}"
	defaultUnknownGreeting = "Unknown person detected"
)

// Options configure an Announcer.
type Options struct {
	// Greeting is the template for known people; "{name}" is replaced by
	// the spoken form of the label.
	Greeting string
	// UnknownGreeting is spoken for unmatched faces when AnnounceUnknown is set.
	UnknownGreeting string
	// AnnounceUnknown enables greetings for unmatched faces. They share the
	// cooldown slot under UnknownLabel.
	AnnounceUnknown bool
	// ASCIIOnly strips diacritics from spoken names.
	ASCIIOnly bool
}

// Announcer owns the announcement state and drives the speaker.
type Announcer struct {
	throttle *Throttle
	speaker  Speaker
	opts     Options
	logger   *slog.Logger
}

// NewAnnouncer creates an announcer around throttle and speaker.
func NewAnnouncer(throttle *Throttle, speaker Speaker, opts Options, logger *slog.Logger) *Announcer {
	if opts.Greeting == "" {
		opts.Greeting = defaultGreeting
	}
	if opts.UnknownGreeting == "" {
		opts.UnknownGreeting = defaultUnknownGreeting
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Announcer{
		throttle: throttle,
		speaker:  speaker,
		opts:     opts,
		logger:   logger,
	}
}

// Greeting returns the text spoken for label.
func (a *Announcer) Greeting(label string, known bool) string {
	if !known {
		return a.opts.UnknownGreeting
	}
	return strings.ReplaceAll(a.opts.Greeting, "{name}", SpokenName(label, a.opts.ASCIIOnly))
}

// Announce greets label if the throttle allows it. The announcement is
// recorded only after the speaker accepted the greeting, so the throttle
// never remembers a label that was not spoken.
func (a *Announcer) Announce(ctx context.Context, label string, known bool, now time.Time) Outcome {
	slot := label
	if !known {
		if !a.opts.AnnounceUnknown {
			return OutcomeSkipped
		}
		slot = UnknownLabel
	}

	if !a.throttle.MayAnnounce(slot, now) {
		return OutcomeSuppressed
	}

	text := a.Greeting(label, known)
	a.logger.Info("announce: speaking", "label", slot, "text", text)
	if err := a.speaker.Speak(ctx, text); err != nil {
		a.logger.Warn("announce: speech failed", "label", slot, "error", err)
		return OutcomeFailed
	}

	a.throttle.Record(slot, now)
	return OutcomeSpoken
}

// Throttle returns the announcer's throttle.
func (a *Announcer) Throttle() *Throttle {
	return a.throttle
}
