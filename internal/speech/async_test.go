package speech

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

// blockingSpeaker signals each utterance on started and waits on release.
type blockingSpeaker struct {
	started chan string
	release chan struct{}

	mu     sync.Mutex
	spoken []string
}

func (s *blockingSpeaker) Speak(_ context.Context, text string) error {
	s.started <- text
	<-s.release
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	return nil
}

func TestAsyncSpeaker_QueueFull(t *testing.T) {
	next := &blockingSpeaker{started: make(chan string, 4), release: make(chan struct{})}
	s := NewAsyncSpeaker(next, 1, nil)

	if err := s.Speak(context.Background(), "a"); err != nil {
		t.Fatalf("Speak(a) error: %v", err)
	}
	<-next.started // worker is busy with "a"

	if err := s.Speak(context.Background(), "b"); err != nil {
		t.Fatalf("Speak(b) error: %v", err)
	}
	if err := s.Speak(context.Background(), "c"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Speak(c) err = %v, want ErrQueueFull", err)
	}

	close(next.release)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if want := []string{"a", "b"}; !reflect.DeepEqual(next.spoken, want) {
		t.Errorf("spoken = %v, want %v", next.spoken, want)
	}
}

func TestAsyncSpeaker_Closed(t *testing.T) {
	next := &scriptedSpeaker{}
	s := NewAsyncSpeaker(next, 4, nil)

	_ = s.Speak(context.Background(), "first")
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if err := s.Speak(context.Background(), "late"); !errors.Is(err, ErrClosed) {
		t.Errorf("Speak() after Close err = %v, want ErrClosed", err)
	}
	if want := []string{"first"}; !reflect.DeepEqual(next.spoken, want) {
		t.Errorf("spoken = %v, want %v", next.spoken, want)
	}
}

func TestAsyncSpeaker_LogsFailures(t *testing.T) {
	next := &scriptedSpeaker{err: errors.New("boom")}
	s := NewAsyncSpeaker(next, 2, nil)

	_ = s.Speak(context.Background(), "x")
	_ = s.Close()

	if next.callCount() != 1 {
		t.Errorf("engine called %d times, want 1", next.callCount())
	}
}
