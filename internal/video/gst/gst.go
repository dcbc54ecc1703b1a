// Package gst reads camera frames through a GStreamer appsink, for devices
// and sources OpenCV's capture backends cannot open directly.
package gst

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
	"gocv.io/x/gocv"

	"github.com/anurag-haridas/visual-impaired/internal/pipeline"
	"github.com/anurag-haridas/visual-impaired/internal/video"
)

// Config describes the capture pipeline.
type Config struct {
	SourceElement string // e.g. "v4l2src" or "libcamerasrc"
	Device        int    // /dev/videoN for v4l2src
	Width         int
	Height        int
}

// Source pulls BGR frames from
//
//	<source> → videoconvert → videoscale → capsfilter(BGR, WxH) → appsink
type Source struct {
	cfg      Config
	pipeline *gst.Pipeline
	sink     *app.Sink
}

// Open builds the pipeline and starts it.
func Open(cfg Config) (*Source, error) {
	if cfg.SourceElement == "" {
		cfg.SourceElement = "v4l2src"
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", cfg.Width, cfg.Height)
	}

	gst.Init(nil)

	p, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	src, err := gst.NewElement(cfg.SourceElement)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", cfg.SourceElement, err)
	}
	if cfg.SourceElement == "v4l2src" {
		src.SetProperty("device", fmt.Sprintf("/dev/video%d", cfg.Device))
	}

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsStr := fmt.Sprintf("video/x-raw,format=BGR,width=%d,height=%d", cfg.Width, cfg.Height)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)

	if err := p.AddMany(src, convert, scale, capsfilter, sink.Element); err != nil {
		return nil, fmt.Errorf("failed to add elements: %w", err)
	}
	if err := gst.ElementLinkMany(src, convert, scale, capsfilter, sink.Element); err != nil {
		return nil, fmt.Errorf("failed to link elements: %w", err)
	}

	if err := p.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("failed to start pipeline: %w", err)
	}
	slog.Info("gst: capture started", "source", cfg.SourceElement, "caps", capsStr)

	return &Source{cfg: cfg, pipeline: p, sink: sink}, nil
}

// Read blocks until the next frame. End of stream is reported as io.EOF.
func (s *Source) Read(_ context.Context) (pipeline.Frame, error) {
	sample := s.sink.PullSample()
	if sample == nil {
		return nil, io.EOF
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, fmt.Errorf("sample without buffer: %w", io.EOF)
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	want := s.cfg.Width * s.cfg.Height * 3
	if len(data) < want {
		buffer.Unmap()
		return nil, fmt.Errorf("short frame: got %d bytes, want %d", len(data), want)
	}

	// Copy frame data (GStreamer will reuse the buffer).
	frameData := make([]byte, want)
	copy(frameData, data)
	buffer.Unmap()

	wrapped, err := gocv.NewMatFromBytes(s.cfg.Height, s.cfg.Width, gocv.MatTypeCV8UC3, frameData)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap frame: %w", err)
	}
	// The wrapped Mat may point at frameData; clone so the frame owns its pixels.
	mat := wrapped.Clone()
	wrapped.Close()
	return video.NewFrame(mat), nil
}

// Close stops the pipeline.
func (s *Source) Close() error {
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to stop pipeline: %w", err)
	}
	return nil
}
