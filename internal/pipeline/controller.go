package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anurag-haridas/visual-impaired/internal/announce"
	"github.com/anurag-haridas/visual-impaired/internal/gallery"
	"github.com/anurag-haridas/visual-impaired/internal/match"
	"github.com/anurag-haridas/visual-impaired/internal/metrics"
)

// Deps are the collaborators of a Controller. Source is only needed by Run;
// Metrics, Logger and Clock are optional.
type Deps struct {
	Source    FrameSource
	Resizer   Resizer
	Detector  Detector
	Display   Display
	Announcer Announcer
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Clock     func() time.Time
}

// FrameReport describes what happened to one frame.
type FrameReport struct {
	Seq         int
	State       State
	Annotations []Annotation
	Results     []match.Result
	Outcomes    []announce.Outcome
	Err         error
}

// Status is a point-in-time snapshot of the loop, safe to serve over HTTP.
type Status struct {
	RunID           string       `json:"run_id"`
	StartedAt       time.Time    `json:"started_at"`
	NextState       string       `json:"next_state"`
	Frames          int          `json:"frames"`
	ActiveFrames    int          `json:"active_frames"`
	DetectErrors    int          `json:"detect_errors"`
	Probes          int          `json:"probes"`
	Identified      int          `json:"identified"`
	Spoken          int          `json:"spoken"`
	Suppressed      int          `json:"suppressed"`
	Failed          int          `json:"failed"`
	GallerySize     int          `json:"gallery_size"`
	LastAnnotations []Annotation `json:"last_annotations"`
	LastAnnounced   string       `json:"last_announced,omitempty"`
	LastAnnouncedAt *time.Time   `json:"last_announced_at,omitempty"`
}

// Controller owns the per-frame state machine. Step and Run must be called
// from a single goroutine; Status, AddListener and RemoveListener may be
// called from any.
type Controller struct {
	broadcaster

	cfg     Config
	gallery *gallery.Gallery
	deps    Deps
	logger  *slog.Logger
	now     func() time.Time

	cadence *cadence
	seq     int
	last    []Annotation

	mu     sync.Mutex
	status Status
}

// NewController creates a controller for g.
func NewController(cfg Config, g *gallery.Gallery, deps Deps) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errors.New("gallery is required")
	}
	if deps.Resizer == nil || deps.Detector == nil || deps.Display == nil || deps.Announcer == nil {
		return nil, errors.New("resizer, detector, display and announcer are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	deps.Metrics.SetGallerySize(g.Size())

	return &Controller{
		cfg:     cfg,
		gallery: g,
		deps:    deps,
		logger:  logger,
		now:     clock,
		cadence: newCadence(cfg.DetectEvery),
		status: Status{
			RunID:       uuid.NewString(),
			StartedAt:   clock(),
			NextState:   StateActive.String(),
			GallerySize: g.Size(),
		},
	}, nil
}

// Run reads frames until the source fails, the display asks to quit or ctx
// is cancelled. The source is closed on return. A cancelled ctx is
// reported as ctx.Err(); every other stop is a normal exit.
func (c *Controller) Run(ctx context.Context) error {
	if c.deps.Source == nil {
		return errors.New("frame source is required")
	}
	defer c.closeAll()
	defer func() {
		if err := c.deps.Source.Close(); err != nil {
			c.logger.Warn("pipeline: failed to close frame source", "error", err)
		}
	}()

	c.logger.Info("pipeline: started",
		"run_id", c.status.RunID,
		"gallery_size", c.gallery.Size(),
		"tolerance", c.cfg.Tolerance,
		"scale", c.cfg.Scale,
		"detect_every", c.cfg.DetectEvery)

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("pipeline: cancelled", "frames", c.seq)
			return err
		}
		if c.deps.Display.QuitRequested() {
			c.logger.Info("pipeline: quit requested", "frames", c.seq)
			return nil
		}

		frame, err := c.deps.Source.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Info("pipeline: end of stream", "frames", c.seq)
			} else {
				c.logger.Warn("pipeline: frame read failed, stopping", "frames", c.seq, "error", err)
			}
			return nil
		}

		c.Step(ctx, frame)
		if err := frame.Close(); err != nil {
			c.logger.Debug("pipeline: failed to close frame", "error", err)
		}
	}
}

// Step processes one frame according to the current state and advances the
// state machine.
func (c *Controller) Step(ctx context.Context, frame Frame) FrameReport {
	c.seq++
	state := c.cadence.current()
	report := FrameReport{Seq: c.seq, State: state}

	if state == StateActive {
		c.processActive(ctx, frame, &report)
		c.last = report.Annotations
	} else {
		report.Annotations = c.last
	}
	c.deps.Metrics.ObserveFrame(state.String())

	if err := c.deps.Display.Show(frame, report.Annotations); err != nil {
		c.logger.Warn("pipeline: display failed", "seq", c.seq, "error", err)
	}

	c.cadence.advance()
	c.record(&report)
	c.publish(&report)
	return report
}

func (c *Controller) processActive(ctx context.Context, frame Frame, report *FrameReport) {
	small, err := c.deps.Resizer.Resize(frame, c.cfg.Scale)
	if err != nil {
		report.Err = fmt.Errorf("resize: %w", err)
		c.logger.Warn("pipeline: resize failed", "seq", report.Seq, "error", err)
		return
	}
	defer small.Close()

	start := time.Now()
	detections, err := c.deps.Detector.Detect(ctx, small)
	c.deps.Metrics.ObserveDetection(time.Since(start), len(detections))
	if err != nil {
		report.Err = fmt.Errorf("detect: %w", err)
		c.logger.Warn("pipeline: detection failed", "seq", report.Seq, "error", err)
		return
	}

	upscale := 1 / c.cfg.Scale
	for _, d := range detections {
		result := match.Against(d.Embedding, c.gallery, c.cfg.Tolerance)
		c.deps.Metrics.ObserveMatch(result.Known)

		outcome := c.deps.Announcer.Announce(ctx, result.Label, result.Known, c.now())
		c.deps.Metrics.ObserveAnnouncement(outcome.String())

		report.Results = append(report.Results, result)
		report.Outcomes = append(report.Outcomes, outcome)
		distance := result.Distance
		if math.IsInf(distance, 1) {
			distance = -1
		}
		report.Annotations = append(report.Annotations, Annotation{
			Box:      d.Box.Scale(upscale),
			Label:    result.Label,
			Known:    result.Known,
			Distance: distance,
		})
	}

	if len(detections) > 0 {
		c.logger.Debug("pipeline: active frame", "seq", report.Seq, "faces", len(detections))
	}
}

func (c *Controller) record(report *FrameReport) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.status
	s.Frames++
	s.NextState = c.cadence.current().String()
	s.LastAnnotations = report.Annotations
	if report.State != StateActive {
		return
	}

	s.ActiveFrames++
	if report.Err != nil {
		s.DetectErrors++
	}
	s.Probes += len(report.Results)
	for i, r := range report.Results {
		if r.Known {
			s.Identified++
		}
		switch report.Outcomes[i] {
		case announce.OutcomeSpoken:
			s.Spoken++
			label := r.Label
			if !r.Known {
				label = announce.UnknownLabel
			}
			s.LastAnnounced = label
			s.LastAnnouncedAt = &now
		case announce.OutcomeSuppressed:
			s.Suppressed++
		case announce.OutcomeFailed:
			s.Failed++
		}
	}
}

func (c *Controller) publish(report *FrameReport) {
	if report.State != StateActive || len(report.Annotations) == 0 {
		return
	}
	now := c.now()
	c.send(Event{
		Type:        EventFaces,
		Seq:         report.Seq,
		Time:        now,
		Annotations: append([]Annotation(nil), report.Annotations...),
	})
	for i, r := range report.Results {
		if report.Outcomes[i] != announce.OutcomeSpoken {
			continue
		}
		label := r.Label
		if !r.Known {
			label = announce.UnknownLabel
		}
		c.send(Event{
			Type:    EventAnnouncement,
			Seq:     report.Seq,
			Time:    now,
			Label:   label,
			Outcome: report.Outcomes[i].String(),
		})
	}
}

// Status returns a snapshot of the loop counters.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.status
	s.LastAnnotations = append([]Annotation(nil), c.status.LastAnnotations...)
	if s.LastAnnouncedAt != nil {
		at := *s.LastAnnouncedAt
		s.LastAnnouncedAt = &at
	}
	return s
}
