package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/anurag-haridas/visual-impaired/internal/face"
)

type fakeFrame struct {
	w, h   int
	closed bool
}

func (f *fakeFrame) Width() int   { return f.w }
func (f *fakeFrame) Height() int  { return f.h }
func (f *fakeFrame) Close() error { f.closed = true; return nil }

type fakeResizer struct {
	calls   int
	factors []float64
	err     error
	made    []*fakeFrame
}

func (r *fakeResizer) Resize(frame Frame, factor float64) (Frame, error) {
	r.calls++
	r.factors = append(r.factors, factor)
	if r.err != nil {
		return nil, r.err
	}
	small := &fakeFrame{w: int(float64(frame.Width()) * factor), h: int(float64(frame.Height()) * factor)}
	r.made = append(r.made, small)
	return small, nil
}

// fakeDetector returns the scripted detections of each call in turn and
// keeps returning the last entry once the script runs out.
type fakeDetector struct {
	script [][]face.Detection
	err    error
	calls  int
	sizes  [][2]int
}

func (d *fakeDetector) Detect(_ context.Context, frame Frame) ([]face.Detection, error) {
	d.calls++
	d.sizes = append(d.sizes, [2]int{frame.Width(), frame.Height()})
	if d.err != nil {
		return nil, d.err
	}
	if len(d.script) == 0 {
		return nil, nil
	}
	i := min(d.calls-1, len(d.script)-1)
	return d.script[i], nil
}

type fakeDisplay struct {
	shown     [][]Annotation
	quitAfter int // 0 never quits
	err       error
}

func (d *fakeDisplay) Show(_ Frame, annotations []Annotation) error {
	d.shown = append(d.shown, annotations)
	return d.err
}

func (d *fakeDisplay) QuitRequested() bool {
	return d.quitAfter > 0 && len(d.shown) >= d.quitAfter
}

type fakeSource struct {
	frames []*fakeFrame
	err    error // returned once frames run out; io.EOF when nil
	next   int
	closed bool
}

func newFakeSource(n int) *fakeSource {
	s := &fakeSource{}
	for range n {
		s.frames = append(s.frames, &fakeFrame{w: 640, h: 480})
	}
	return s
}

func (s *fakeSource) Read(_ context.Context) (Frame, error) {
	if s.next >= len(s.frames) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (s *fakeSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.spoken = append(s.spoken, text)
	return nil
}

var errDetect = errors.New("detector exploded")
