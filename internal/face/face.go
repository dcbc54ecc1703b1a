// Package face holds the types shared by everything that produces or consumes
// face detections: embeddings, bounding boxes and the Extractor contract.
package face

import (
	"context"
	"image"
	"math"
)

// Embedding is a face identity signature. Values are never modified after
// the extractor returns them.
type Embedding []float32

// Box is a face bounding box in pixel coordinates of the image it was
// detected on.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// BoxFromRect converts an image.Rectangle (Min = top-left, Max = bottom-right).
func BoxFromRect(r image.Rectangle) Box {
	return Box{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// BoxFromCorners converts an [x1, y1, x2, y2] pixel bbox. Returns false for
// malformed input.
func BoxFromCorners(bbox []float64) (Box, bool) {
	if len(bbox) != 4 {
		return Box{}, false
	}
	return Box{
		Top:    int(math.Round(bbox[1])),
		Right:  int(math.Round(bbox[2])),
		Bottom: int(math.Round(bbox[3])),
		Left:   int(math.Round(bbox[0])),
	}, true
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Scale multiplies every coordinate by factor, rounding to the nearest pixel.
// Detections made on a frame downsampled by s are mapped back with Scale(1/s).
func (b Box) Scale(factor float64) Box {
	s := func(v int) int { return int(math.Round(float64(v) * factor)) }
	return Box{Top: s(b.Top), Right: s(b.Right), Bottom: s(b.Bottom), Left: s(b.Left)}
}

// Detection is one face found in an image.
type Detection struct {
	Box       Box
	Embedding Embedding
}

// Extractor finds faces in an encoded image and returns one detection per
// face. An image without faces yields an empty slice and a nil error.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) ([]Detection, error)
}

// ExtractFunc adapts a function to the Extractor interface.
type ExtractFunc func(ctx context.Context, imageData []byte) ([]Detection, error)

// Extract calls f.
func (f ExtractFunc) Extract(ctx context.Context, imageData []byte) ([]Detection, error) {
	return f(ctx, imageData)
}
