package gallery

import (
	"sort"

	"github.com/coder/hnsw"

	"github.com/anurag-haridas/visual-impaired/internal/face"
)

// auditMaxNeighbors is the HNSW M parameter used for audit graphs.
const auditMaxNeighbors = 16

// Conflict is a pair of reference entries with different labels that are
// within tolerance of each other. A live probe near either of them may be
// resolved to the wrong person.
type Conflict struct {
	A, B     int // entry indices, A < B
	LabelA   string
	LabelB   string
	Distance float64
}

// AuditReport lists conflicting entry pairs, closest first.
type AuditReport struct {
	Checked   int
	Conflicts []Conflict
}

// Audit searches each entry's nearest neighbours in an HNSW graph built over
// the gallery and reports cross-label pairs within tolerance. The graph only
// nominates candidates; distances are recomputed exactly. Being approximate,
// the audit may miss pairs in very large galleries.
func Audit(g *Gallery, tolerance float64, neighbors int) AuditReport {
	report := AuditReport{Checked: g.Size()}
	if g.Size() < 2 {
		return report
	}
	if neighbors <= 0 {
		neighbors = 10
	}

	graph := hnsw.NewGraph[int]()
	graph.M = auditMaxNeighbors
	graph.Ml = 1.0 / float64(auditMaxNeighbors) // Standard HNSW formula
	graph.Distance = hnsw.EuclideanDistance

	for i, e := range g.entries {
		graph.Add(hnsw.MakeNode(i, []float32(e.Embedding)))
	}

	type pair struct{ a, b int }
	seen := make(map[pair]bool)

	for i, e := range g.entries {
		for _, n := range graph.Search([]float32(e.Embedding), neighbors+1) {
			j := n.Key
			if j == i || g.entries[j].Label == e.Label {
				continue
			}
			p := pair{a: min(i, j), b: max(i, j)}
			if seen[p] {
				continue
			}
			seen[p] = true

			d := face.Distance(e.Embedding, g.entries[j].Embedding)
			if d > tolerance {
				continue
			}
			report.Conflicts = append(report.Conflicts, Conflict{
				A:        p.a,
				B:        p.b,
				LabelA:   g.entries[p.a].Label,
				LabelB:   g.entries[p.b].Label,
				Distance: d,
			})
		}
	}

	sort.Slice(report.Conflicts, func(x, y int) bool {
		cx, cy := report.Conflicts[x], report.Conflicts[y]
		if cx.Distance != cy.Distance {
			return cx.Distance < cy.Distance
		}
		if cx.A != cy.A {
			return cx.A < cy.A
		}
		return cx.B < cy.B
	})
	return report
}
