package handlers

import (
	"net/http"

	"github.com/anurag-haridas/visual-impaired/internal/gallery"
)

// LabelSummary is one person in the gallery summary.
type LabelSummary struct {
	Label   string `json:"label"`
	Entries int    `json:"entries"`
}

// GallerySummary describes the loaded gallery without exposing embeddings.
type GallerySummary struct {
	Entries   int            `json:"entries"`
	Dimension int            `json:"dimension"`
	Labels    []LabelSummary `json:"labels"`
}

// Summarize builds the summary of g. Labels keep gallery order.
func Summarize(g *gallery.Gallery) GallerySummary {
	counts := g.LabelCounts()
	labels := g.Labels()

	summary := GallerySummary{
		Entries:   g.Size(),
		Dimension: g.Dim(),
		Labels:    make([]LabelSummary, 0, len(labels)),
	}
	for _, l := range labels {
		summary.Labels = append(summary.Labels, LabelSummary{Label: l, Entries: counts[l]})
	}
	return summary
}

// GalleryHandler serves the gallery summary.
type GalleryHandler struct {
	gallery *gallery.Gallery
}

func NewGalleryHandler(g *gallery.Gallery) *GalleryHandler {
	return &GalleryHandler{gallery: g}
}

// Get returns the label list with per-label entry counts.
func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.gallery == nil {
		respondError(w, http.StatusServiceUnavailable, "gallery not loaded")
		return
	}
	respondJSON(w, http.StatusOK, Summarize(h.gallery))
}
