package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/anurag-haridas/visual-impaired/internal/pipeline"
)

// EventSource publishes live recognition events.
type EventSource interface {
	AddListener() chan pipeline.Event
	RemoveListener(ch chan pipeline.Event)
}

// Pipeline is the running recognition loop as seen by the status server.
type Pipeline interface {
	StatusProvider
	EventSource
}

// EventsHandler streams recognition events as server-sent events.
type EventsHandler struct {
	pipeline Pipeline
}

func NewEventsHandler(p Pipeline) *EventsHandler {
	return &EventsHandler{pipeline: p}
}

// Stream sends the current status, then every event until the client
// disconnects or the loop stops.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "pipeline not running")
		return
	}
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	eventCh := h.pipeline.AddListener()
	defer h.pipeline.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "status", h.pipeline.Status())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
		}
	}
}

// setupSSEConnection sets the SSE headers and lifts the server write
// timeout for this response.
func setupSSEConnection(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	// Not every ResponseWriter supports deadlines.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return flusher, true
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
