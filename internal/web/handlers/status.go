package handlers

import (
	"net/http"

	"github.com/anurag-haridas/visual-impaired/internal/pipeline"
)

// StatusProvider returns the current pipeline snapshot.
type StatusProvider interface {
	Status() pipeline.Status
}

// StatusHandler serves the recognition loop counters.
type StatusHandler struct {
	provider StatusProvider
}

func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

// Get returns the pipeline status snapshot.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respondError(w, http.StatusServiceUnavailable, "pipeline not running")
		return
	}
	respondJSON(w, http.StatusOK, h.provider.Status())
}
