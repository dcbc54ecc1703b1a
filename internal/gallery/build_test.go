package gallery

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anurag-haridas/visual-impaired/internal/face"
)

// fakeExtractor returns detections based on the file content:
// "face:<x>" yields one face with embedding {x}, "noface" none, "error" fails.
func fakeExtractor() face.Extractor {
	return face.ExtractFunc(func(ctx context.Context, data []byte) ([]face.Detection, error) {
		s := string(data)
		switch {
		case s == "noface":
			return nil, nil
		case s == "error":
			return nil, errors.New("extractor exploded")
		case strings.HasPrefix(s, "face:"):
			v := float32(len(s))
			return []face.Detection{
				{Box: face.Box{Top: 1, Right: 2, Bottom: 3, Left: 0}, Embedding: face.Embedding{v, 1}},
				{Box: face.Box{Top: 5, Right: 6, Bottom: 7, Left: 4}, Embedding: face.Embedding{-1, -1}},
			}, nil
		}
		return nil, errors.New("unexpected content")
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

type countingProgress struct{ n int }

func (p *countingProgress) Add(num int) error {
	p.n += num
	return nil
}

func TestScanImages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bob", "b.png"), "face:b")
	writeFile(t, filepath.Join(root, "alice", "2.jpeg"), "face:2")
	writeFile(t, filepath.Join(root, "alice", "1.jpg"), "face:1")
	writeFile(t, filepath.Join(root, "alice", "notes.txt"), "ignore me")
	writeFile(t, filepath.Join(root, "alice", "nested", "3.jpg"), "face:3")
	writeFile(t, filepath.Join(root, "stray.jpg"), "face:stray")

	images, err := ScanImages(root)
	if err != nil {
		t.Fatalf("ScanImages failed: %v", err)
	}

	expected := []ReferenceImage{
		{Label: "alice", Path: filepath.Join(root, "alice", "1.jpg")},
		{Label: "alice", Path: filepath.Join(root, "alice", "2.jpeg")},
		{Label: "bob", Path: filepath.Join(root, "bob", "b.png")},
	}
	if len(images) != len(expected) {
		t.Fatalf("got %d images, want %d: %v", len(images), len(expected), images)
	}
	for i := range expected {
		if images[i] != expected[i] {
			t.Errorf("images[%d] = %+v, want %+v", i, images[i], expected[i])
		}
	}
}

func TestScanImages_MissingRoot(t *testing.T) {
	if _, err := ScanImages(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing reference directory")
	}
}

func TestBuild_SkipsFacelessImages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alice", "a1.jpg"), "face:a1")
	writeFile(t, filepath.Join(root, "alice", "a2.jpg"), "face:a2x")
	writeFile(t, filepath.Join(root, "bob", "b1.jpg"), "face:b")
	writeFile(t, filepath.Join(root, "bob", "b2.jpg"), "noface")

	images, err := ScanImages(root)
	if err != nil {
		t.Fatalf("ScanImages failed: %v", err)
	}

	var logBuf bytes.Buffer
	progress := &countingProgress{}
	b := &Builder{
		Extractor: fakeExtractor(),
		Progress:  progress,
		Logger:    slog.New(slog.NewTextHandler(&logBuf, nil)),
	}

	report, err := b.Build(context.Background(), images)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	counts := report.Gallery.LabelCounts()
	if counts["alice"] != 2 || counts["bob"] != 1 || report.Gallery.Size() != 3 {
		t.Errorf("unexpected label counts %v (size %d)", counts, report.Gallery.Size())
	}
	if report.Processed != 4 {
		t.Errorf("Processed = %d, want 4", report.Processed)
	}
	if progress.n != 4 {
		t.Errorf("progress advanced %d times, want 4", progress.n)
	}

	if len(report.Skipped) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(report.Skipped))
	}
	if !errors.Is(report.Skipped[0].Err, ErrNoFace) {
		t.Errorf("expected ErrNoFace, got %v", report.Skipped[0].Err)
	}
	if !strings.HasSuffix(report.Skipped[0].Path, "b2.jpg") {
		t.Errorf("unexpected skipped path %s", report.Skipped[0].Path)
	}
	if !strings.Contains(logBuf.String(), "level=WARN") {
		t.Errorf("expected a warning in the log, got %q", logBuf.String())
	}
}

func TestBuild_TakesFirstFace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "carol", "c.jpg"), "face:c")

	images, _ := ScanImages(root)
	b := &Builder{Extractor: fakeExtractor(), Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}

	report, err := b.Build(context.Background(), images)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if report.Gallery.Size() != 1 {
		t.Fatalf("expected 1 entry, got %d", report.Gallery.Size())
	}
	if emb := report.Gallery.Entries()[0].Embedding; emb[0] != float32(len("face:c")) {
		t.Errorf("expected first detection's embedding, got %v", emb)
	}
}

func TestBuild_RecoversFromBadImages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dave", "ok.jpg"), "face:d")
	writeFile(t, filepath.Join(root, "dave", "broken.jpg"), "error")

	images, _ := ScanImages(root)
	// Make one file unreadable by removing it after the scan.
	images = append(images, ReferenceImage{Label: "dave", Path: filepath.Join(root, "dave", "gone.jpg")})

	b := &Builder{Extractor: fakeExtractor(), Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}
	report, err := b.Build(context.Background(), images)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if report.Gallery.Size() != 1 {
		t.Errorf("expected 1 entry, got %d", report.Gallery.Size())
	}
	if len(report.Skipped) != 2 {
		t.Errorf("expected 2 warnings, got %d: %v", len(report.Skipped), report.Skipped)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "erin", "e.jpg"), "face:e")
	images, _ := ScanImages(root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &Builder{Extractor: fakeExtractor()}
	if _, err := b.Build(ctx, images); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
