// Package metrics holds the Prometheus collectors for the recognition loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	frames        *prometheus.CounterVec
	probes        prometheus.Counter
	matches       *prometheus.CounterVec
	announcements *prometheus.CounterVec
	detectTime    prometheus.Histogram
	gallerySize   prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visual_impaired_frames_total",
				Help: "Total number of frames processed, by pipeline state",
			},
			[]string{"state"},
		),
		probes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "visual_impaired_probes_total",
				Help: "Total number of faces detected on active frames",
			},
		),
		matches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visual_impaired_matches_total",
				Help: "Total number of match results, by outcome",
			},
			[]string{"result"},
		),
		announcements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visual_impaired_announcements_total",
				Help: "Total number of announcement requests, by outcome",
			},
			[]string{"outcome"},
		),
		detectTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "visual_impaired_detect_duration_seconds",
				Help:    "Face detection and embedding latency per active frame",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
		),
		gallerySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "visual_impaired_gallery_entries",
				Help: "Number of reference embeddings in the loaded gallery",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.frames, m.probes, m.matches, m.announcements, m.detectTime, m.gallerySize)
	}
	return m
}

// ObserveFrame counts one frame in state ("active" or "skip").
func (m *Metrics) ObserveFrame(state string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(state).Inc()
}

// ObserveDetection records one detection call that found n faces.
func (m *Metrics) ObserveDetection(d time.Duration, n int) {
	if m == nil {
		return
	}
	m.detectTime.Observe(d.Seconds())
	m.probes.Add(float64(n))
}

// ObserveMatch counts one match result.
func (m *Metrics) ObserveMatch(known bool) {
	if m == nil {
		return
	}
	result := "unknown"
	if known {
		result = "identified"
	}
	m.matches.WithLabelValues(result).Inc()
}

// ObserveAnnouncement counts one announcement outcome.
func (m *Metrics) ObserveAnnouncement(outcome string) {
	if m == nil {
		return
	}
	m.announcements.WithLabelValues(outcome).Inc()
}

// SetGallerySize reports the number of loaded gallery entries.
func (m *Metrics) SetGallerySize(n int) {
	if m == nil {
		return
	}
	m.gallerySize.Set(float64(n))
}
