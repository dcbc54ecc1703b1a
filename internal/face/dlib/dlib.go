// Package dlib extracts 128-dimensional face descriptors with dlib's ResNet
// model through github.com/Kagami/go-face.
//
// The models directory must contain shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and mmod_human_face_detector.dat.
package dlib

import (
	"context"
	"fmt"
	"sync"

	goface "github.com/Kagami/go-face"

	"github.com/anurag-haridas/visual-impaired/internal/face"
)

// Extractor wraps a dlib recognizer. dlib recognizers are not safe for
// concurrent use, so calls are serialised.
type Extractor struct {
	mu      sync.Mutex
	rec     *goface.Recognizer
	maxSize int
}

var _ face.Extractor = (*Extractor)(nil)

// New loads the dlib models from modelsDir. Images larger than maxSize on
// either side are downscaled before detection (0 disables downscaling).
func New(modelsDir string, maxSize int) (*Extractor, error) {
	rec, err := goface.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models from %s: %w", modelsDir, err)
	}
	return &Extractor{rec: rec, maxSize: maxSize}, nil
}

// Extract detects faces in the image. dlib only decodes JPEG, so other
// formats are converted first. Boxes are in the coordinates of imageData even
// when it was downscaled for detection.
func (e *Extractor) Extract(ctx context.Context, imageData []byte) ([]face.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jpegData, ratio, err := face.PrepareJPEG(imageData, e.maxSize)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	faces, err := e.rec.Recognize(jpegData)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib recognition failed: %w", err)
	}

	detections := make([]face.Detection, len(faces))
	for i, f := range faces {
		emb := make(face.Embedding, len(f.Descriptor))
		copy(emb, f.Descriptor[:])
		detections[i] = face.Detection{
			Box:       face.BoxFromRect(f.Rectangle),
			Embedding: emb,
		}
	}
	face.RescaleDetections(detections, ratio)
	return detections, nil
}

// Close releases the dlib models.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
	return nil
}
