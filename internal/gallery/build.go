package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/anurag-haridas/visual-impaired/internal/face"
)

// ErrNoFace is recorded for reference images in which no face was detected.
var ErrNoFace = errors.New("no face found")

// ReferenceImage is one image file under a label directory.
type ReferenceImage struct {
	Label string
	Path  string
}

// ScanImages lists reference images under root: one subdirectory per label,
// the directory name being the label. Files directly under root, non-image
// files and nested directories are ignored. Order is label then file name.
func ScanImages(root string) ([]ReferenceImage, error) {
	labels, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference directory: %w", err)
	}

	var images []ReferenceImage
	for _, l := range labels {
		labelDir := filepath.Join(root, l.Name())
		info, err := os.Stat(labelDir)
		if err != nil || !info.IsDir() {
			continue
		}

		files, err := os.ReadDir(labelDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", labelDir, err)
		}
		for _, f := range files {
			if f.IsDir() || !face.IsImageFile(f.Name()) {
				continue
			}
			images = append(images, ReferenceImage{
				Label: l.Name(),
				Path:  filepath.Join(labelDir, f.Name()),
			})
		}
	}
	return images, nil
}

// Warning describes a reference image that was skipped.
type Warning struct {
	Path string
	Err  error
}

// BuildReport summarises a gallery build.
type BuildReport struct {
	Gallery   *Gallery
	Processed int
	Skipped   []Warning
}

// Progress receives one Add(1) per processed image. *progressbar.ProgressBar
// satisfies it.
type Progress interface {
	Add(num int) error
}

// Builder turns reference images into gallery entries.
type Builder struct {
	Extractor face.Extractor
	Progress  Progress
	Logger    *slog.Logger
}

// Build extracts one embedding per image, taking the first detected face.
// Images that cannot be read, contain no face or make the extractor fail are
// skipped with a warning; only context cancellation aborts the build.
func (b *Builder) Build(ctx context.Context, images []ReferenceImage) (*BuildReport, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := &BuildReport{}
	var entries []Entry

	skip := func(path string, err error) {
		report.Skipped = append(report.Skipped, Warning{Path: path, Err: err})
		logger.Warn("gallery: skipping reference image", "path", path, "error", err)
	}

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		emb, err := b.embed(ctx, img.Path)
		report.Processed++
		if b.Progress != nil {
			_ = b.Progress.Add(1)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			skip(img.Path, err)
			continue
		}
		if len(entries) > 0 && len(emb) != len(entries[0].Embedding) {
			skip(img.Path, fmt.Errorf("embedding dimension %d, expected %d", len(emb), len(entries[0].Embedding)))
			continue
		}
		entries = append(entries, Entry{Embedding: emb, Label: img.Label})
	}

	g, err := New(entries)
	if err != nil {
		return nil, fmt.Errorf("building gallery: %w", err)
	}
	report.Gallery = g
	return report, nil
}

func (b *Builder) embed(ctx context.Context, path string) (face.Embedding, error) {
	data, err := os.ReadFile(path) //nolint:gosec // walking the configured reference directory
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	detections, err := b.Extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, ErrNoFace
	}
	if len(detections[0].Embedding) == 0 {
		return nil, errors.New("extractor returned an empty embedding")
	}
	return detections[0].Embedding, nil
}
