package pipeline

import (
	"sync"
	"time"

	"github.com/anurag-haridas/visual-impaired/internal/constants"
)

// Event types published to listeners.
const (
	EventFaces        = "faces"
	EventAnnouncement = "announcement"
)

// Event is a live notification from the recognition loop. Faces events
// carry the annotations of an active frame with at least one face;
// announcement events name the slot label that was greeted.
type Event struct {
	Type        string       `json:"type"`
	Seq         int          `json:"seq"`
	Time        time.Time    `json:"time"`
	Label       string       `json:"label,omitempty"`
	Outcome     string       `json:"outcome,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// broadcaster fans events out to listeners without ever blocking the loop.
type broadcaster struct {
	mu        sync.RWMutex
	listeners []chan Event
	closed    bool
}

// AddListener subscribes to live events. The channel is closed when the
// listener is removed or the loop stops.
func (b *broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener unsubscribes ch.
func (b *broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *broadcaster) send(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.listeners {
		select {
		case ch <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.listeners {
		close(ch)
	}
	b.listeners = nil
	b.closed = true
}
