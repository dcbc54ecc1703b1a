// Package match resolves probe embeddings against the reference gallery using
// nearest neighbour with a distance threshold.
package match

import (
	"math"

	"github.com/anurag-haridas/visual-impaired/internal/face"
	"github.com/anurag-haridas/visual-impaired/internal/gallery"
)

// UnknownLabel is the label carried by results that matched nobody.
const UnknownLabel = "Unknown"

// Result is the outcome of matching one probe.
type Result struct {
	Label    string  // matched label, or UnknownLabel
	Known    bool    // false means Unknown
	Distance float64 // distance to the nearest entry, +Inf for an empty gallery
	Index    int     // nearest entry index, -1 when the gallery is empty
}

// Unknown returns a result that matched nobody.
func Unknown() Result {
	return Result{Label: UnknownLabel, Distance: math.Inf(1), Index: -1}
}

// Match finds the entry with the smallest Euclidean distance to probe and
// returns its label when that distance is within tolerance. Ties keep the
// earliest entry. Entries of a different dimensionality are never selected.
func Match(probe face.Embedding, entries []gallery.Entry, tolerance float64) Result {
	best := Unknown()

	for i, e := range entries {
		d := face.Distance(probe, e.Embedding)
		if d < best.Distance {
			best.Distance = d
			best.Index = i
		}
	}

	if best.Index >= 0 && best.Distance <= tolerance {
		best.Label = entries[best.Index].Label
		best.Known = true
	}
	return best
}

// Against matches probe against the whole gallery.
func Against(probe face.Embedding, g *gallery.Gallery, tolerance float64) Result {
	return Match(probe, g.Entries(), tolerance)
}

// MatchAll matches every probe; results line up with probes by index.
func MatchAll(probes []face.Embedding, entries []gallery.Entry, tolerance float64) []Result {
	results := make([]Result, len(probes))
	for i, p := range probes {
		results[i] = Match(p, entries, tolerance)
	}
	return results
}
