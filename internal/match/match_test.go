package match

import (
	"math"
	"math/rand"
	"testing"

	"github.com/anurag-haridas/visual-impaired/internal/face"
	"github.com/anurag-haridas/visual-impaired/internal/gallery"
)

func TestMatch(t *testing.T) {
	entries := []gallery.Entry{
		{Embedding: face.Embedding{0, 0}, Label: "alice"},
		{Embedding: face.Embedding{1, 0}, Label: "bob"},
		{Embedding: face.Embedding{0, 1}, Label: "carol"},
	}

	tests := []struct {
		name      string
		probe     face.Embedding
		tolerance float64
		label     string
		known     bool
		index     int
	}{
		{"exact match", face.Embedding{1, 0}, 0.6, "bob", true, 1},
		{"exact match zero tolerance", face.Embedding{0, 1}, 0, "carol", true, 2},
		{"within tolerance", face.Embedding{0.3, 0}, 0.6, "alice", true, 0},
		{"at tolerance boundary", face.Embedding{0, 0.5}, 0.5, "alice", true, 0},
		{"beyond tolerance", face.Embedding{5, 5}, 0.6, UnknownLabel, false, 1},
		{"dimension mismatch", face.Embedding{0, 0, 0}, 0.6, UnknownLabel, false, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Match(tt.probe, entries, tt.tolerance)
			if result.Label != tt.label || result.Known != tt.known || result.Index != tt.index {
				t.Errorf("Match(%v, tol=%v) = %+v, want label=%s known=%v index=%d",
					tt.probe, tt.tolerance, result, tt.label, tt.known, tt.index)
			}
		})
	}
}

func TestMatch_PrefersNearestOverFirstWithinTolerance(t *testing.T) {
	entries := []gallery.Entry{
		{Embedding: face.Embedding{0.5, 0}, Label: "lookalike"},
		{Embedding: face.Embedding{0.1, 0}, Label: "actual"},
	}

	result := Match(face.Embedding{0, 0}, entries, 0.6)
	if result.Label != "actual" {
		t.Errorf("expected nearest entry 'actual', got %q", result.Label)
	}
}

func TestMatch_TiesKeepEarliestEntry(t *testing.T) {
	entries := []gallery.Entry{
		{Embedding: face.Embedding{-1, 0}, Label: "first"},
		{Embedding: face.Embedding{1, 0}, Label: "second"},
		{Embedding: face.Embedding{0, 1}, Label: "third"},
	}

	for range 10 {
		result := Match(face.Embedding{0, 0}, entries, 2)
		if result.Label != "first" || result.Index != 0 {
			t.Fatalf("expected 'first' on tie, got %+v", result)
		}
	}
}

func TestMatch_EmptyGallery(t *testing.T) {
	result := Match(face.Embedding{1, 2, 3}, nil, 100)
	if result.Known || result.Label != UnknownLabel || result.Index != -1 {
		t.Errorf("expected Unknown, got %+v", result)
	}
	if !math.IsInf(result.Distance, 1) {
		t.Errorf("expected +Inf distance, got %v", result.Distance)
	}
}

func TestMatch_AliceAtPointThree(t *testing.T) {
	g, err := gallery.New([]gallery.Entry{
		{Embedding: face.Embedding{0, 0, 0}, Label: "alice"},
		{Embedding: face.Embedding{5, 5, 5}, Label: "bob"},
	})
	if err != nil {
		t.Fatal(err)
	}

	result := Against(face.Embedding{0.3, 0, 0}, g, 0.6)
	if !result.Known || result.Label != "alice" {
		t.Fatalf("expected alice, got %+v", result)
	}
	if math.Abs(result.Distance-0.3) > 1e-6 {
		t.Errorf("Distance = %v, want 0.3", result.Distance)
	}
}

func TestMatch_RandomisedProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	labels := []string{"alice", "bob", "carol", "dave"}

	randomEmbedding := func() face.Embedding {
		e := make(face.Embedding, 8)
		for i := range e {
			e[i] = rng.Float32()*2 - 1
		}
		return e
	}

	for range 200 {
		n := rng.Intn(6) + 1
		entries := make([]gallery.Entry, n)
		inGallery := make(map[string]bool)
		for i := range entries {
			label := labels[rng.Intn(len(labels))]
			entries[i] = gallery.Entry{Embedding: randomEmbedding(), Label: label}
			inGallery[label] = true
		}
		tolerance := rng.Float64() * 2

		result := Match(randomEmbedding(), entries, tolerance)
		if result.Known && !inGallery[result.Label] {
			t.Fatalf("label %q is not in the gallery", result.Label)
		}
		if !result.Known && result.Label != UnknownLabel {
			t.Fatalf("unknown result carries label %q", result.Label)
		}
		if result.Known != (result.Distance <= tolerance) {
			t.Fatalf("Known=%v inconsistent with distance %v and tolerance %v", result.Known, result.Distance, tolerance)
		}

		// Copies of gallery embeddings always resolve to their own label, or to
		// an earlier entry with the identical vector.
		pick := rng.Intn(n)
		exact := Match(entries[pick].Embedding, entries, 0)
		if !exact.Known || exact.Distance != 0 || exact.Index > pick {
			t.Fatalf("exact probe of entry %d resolved to %+v", pick, exact)
		}
		if exact.Index == pick && exact.Label != entries[pick].Label {
			t.Fatalf("exact probe resolved to wrong label %q", exact.Label)
		}
	}
}

func TestMatchAll(t *testing.T) {
	entries := []gallery.Entry{
		{Embedding: face.Embedding{0}, Label: "alice"},
		{Embedding: face.Embedding{10}, Label: "bob"},
	}

	results := MatchAll([]face.Embedding{{0.1}, {10.2}, {5}}, entries, 0.6)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Label != "alice" || results[1].Label != "bob" || results[2].Known {
		t.Errorf("unexpected results %+v", results)
	}
}
