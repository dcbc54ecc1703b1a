package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Errors returned by AsyncSpeaker.Speak.
var (
	ErrQueueFull = errors.New("speech queue full")
	ErrClosed    = errors.New("speaker closed")
)

// AsyncSpeaker queues utterances for a single worker goroutine so the caller
// does not wait for the engine. Speak succeeds once the text is queued.
type AsyncSpeaker struct {
	next   Speaker
	logger *slog.Logger
	queue  chan string
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncSpeaker starts a worker that speaks through next. size is the
// number of utterances that may wait behind the one being spoken.
func NewAsyncSpeaker(next Speaker, size int, logger *slog.Logger) *AsyncSpeaker {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &AsyncSpeaker{
		next:   next,
		logger: logger,
		queue:  make(chan string, size),
		done:   make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *AsyncSpeaker) worker() {
	defer close(s.done)
	for text := range s.queue {
		if err := s.next.Speak(context.Background(), text); err != nil {
			s.logger.Warn("speech: queued utterance failed", "text", text, "error", err)
		}
	}
}

// Speak queues text. It never blocks: a full queue drops the utterance and
// returns ErrQueueFull.
func (s *AsyncSpeaker) Speak(_ context.Context, text string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	select {
	case s.queue <- text:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting utterances and waits until the queued ones have
// been spoken.
func (s *AsyncSpeaker) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	<-s.done
	return nil
}
