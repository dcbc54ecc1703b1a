// Package gallery holds the reference (embedding, label) table the live
// pipeline matches against, together with its persistence, construction from
// a labelled image directory and an ambiguity audit.
package gallery

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anurag-haridas/visual-impaired/internal/face"
)

// formatVersion is bumped whenever the persisted layout changes.
const formatVersion = 1

// ErrGalleryLoad is matched by every *LoadError via errors.Is.
var ErrGalleryLoad = errors.New("gallery load failed")

// LoadError reports a gallery file that is missing or cannot be decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading gallery %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrGalleryLoad) true for any LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrGalleryLoad }

// NotFound reports whether the gallery file does not exist.
func (e *LoadError) NotFound() bool { return errors.Is(e.Err, os.ErrNotExist) }

// Entry is one reference face.
type Entry struct {
	Embedding face.Embedding
	Label     string
}

// Gallery is an ordered, read-only sequence of entries.
type Gallery struct {
	entries []Entry
	dim     int
}

// New validates entries and wraps them. All embeddings must share one
// dimensionality and every label must be non-empty.
func New(entries []Entry) (*Gallery, error) {
	dim := 0
	for i, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("entry %d has an empty label", i)
		}
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("entry %d (%s) has an empty embedding", i, e.Label)
		}
		if dim == 0 {
			dim = len(e.Embedding)
		} else if len(e.Embedding) != dim {
			return nil, fmt.Errorf("entry %d (%s) has dimension %d, expected %d", i, e.Label, len(e.Embedding), dim)
		}
	}

	owned := make([]Entry, len(entries))
	copy(owned, entries)
	return &Gallery{entries: owned, dim: dim}, nil
}

// Entries returns the entries in gallery order. Callers must not modify them.
func (g *Gallery) Entries() []Entry {
	return g.entries
}

// Size returns the number of entries.
func (g *Gallery) Size() int {
	return len(g.entries)
}

// Dim returns the embedding dimensionality, or 0 for an empty gallery.
func (g *Gallery) Dim() int {
	return g.dim
}

// Labels returns the distinct labels in order of first occurrence.
func (g *Gallery) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, e := range g.entries {
		if !seen[e.Label] {
			seen[e.Label] = true
			labels = append(labels, e.Label)
		}
	}
	return labels
}

// LabelCounts returns the number of reference entries per label.
func (g *Gallery) LabelCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range g.entries {
		counts[e.Label]++
	}
	return counts
}

// persisted is the on-disk container: two parallel, positionally paired
// sequences.
type persisted struct {
	Version    int
	Embeddings [][]float32
	Labels     []string
}

// Save writes the gallery to path. The file is written next to its final
// location and renamed into place.
func Save(path string, g *Gallery) error {
	p := persisted{
		Version:    formatVersion,
		Embeddings: make([][]float32, len(g.entries)),
		Labels:     make([]string, len(g.entries)),
	}
	for i, e := range g.entries {
		p.Embeddings[i] = e.Embedding
		p.Labels[i] = e.Label
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("failed to encode gallery: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create gallery file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write gallery file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close gallery file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move gallery file into place: %w", err)
	}
	return nil
}

// Load reads a gallery written by Save. Any failure is a *LoadError.
func Load(path string) (*Gallery, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var p persisted
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("corrupt gallery file: %w", err)}
	}
	if p.Version != formatVersion {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported gallery version %d", p.Version)}
	}
	if len(p.Embeddings) != len(p.Labels) {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("corrupt gallery file: %d embeddings but %d labels", len(p.Embeddings), len(p.Labels))}
	}

	entries := make([]Entry, len(p.Labels))
	for i := range p.Labels {
		entries[i] = Entry{Embedding: p.Embeddings[i], Label: p.Labels[i]}
	}

	g, err := New(entries)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("corrupt gallery file: %w", err)}
	}
	return g, nil
}
