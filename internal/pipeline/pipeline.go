// Package pipeline runs the live recognition loop: it alternates active and
// skip frames, matches detected faces against the gallery, asks the
// announcer to greet recognised people and hands annotations to the display.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anurag-haridas/visual-impaired/internal/announce"
	"github.com/anurag-haridas/visual-impaired/internal/face"
)

// ErrInvalidConfig is returned by NewController for unusable settings.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Frame is one captured image. The pipeline closes every frame it reads.
type Frame interface {
	Width() int
	Height() int
	Close() error
}

// FrameSource yields frames until it returns an error. Any error, io.EOF
// included, ends the loop.
type FrameSource interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Resizer scales a frame by factor into a new frame, which the pipeline
// closes once detection is done.
type Resizer interface {
	Resize(frame Frame, factor float64) (Frame, error)
}

// Detector finds faces in a frame and computes their embeddings. Boxes are
// in the coordinates of the frame it was given.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]face.Detection, error)
}

// Display renders a frame with its annotations and reports whether the
// operator asked to stop.
type Display interface {
	Show(frame Frame, annotations []Annotation) error
	QuitRequested() bool
}

// Announcer greets a matched label.
type Announcer interface {
	Announce(ctx context.Context, label string, known bool, now time.Time) announce.Outcome
}

// Annotation is a face box in full-resolution coordinates plus the label
// drawn under it. Distance is -1 when there was nothing to compare against.
type Annotation struct {
	Box      face.Box `json:"box"`
	Label    string   `json:"label"`
	Known    bool     `json:"known"`
	Distance float64  `json:"distance"`
}

// Config holds the recognition settings of the loop.
type Config struct {
	Tolerance   float64
	Scale       float64
	DetectEvery int
}

// Validate checks that the config can drive a controller.
func (c Config) Validate() error {
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must be >= 0, got %v", ErrInvalidConfig, c.Tolerance)
	}
	if c.Scale <= 0 || c.Scale > 1 {
		return fmt.Errorf("%w: scale must be in (0, 1], got %v", ErrInvalidConfig, c.Scale)
	}
	if c.DetectEvery < 1 {
		return fmt.Errorf("%w: detect-every must be >= 1, got %d", ErrInvalidConfig, c.DetectEvery)
	}
	return nil
}
