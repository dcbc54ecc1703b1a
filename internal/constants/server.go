package constants

import "time"

// Status server constants
const (
	// StatusReadTimeout bounds reading a status request
	StatusReadTimeout = 10 * time.Second

	// StatusWriteTimeout bounds writing a status response
	StatusWriteTimeout = 10 * time.Second

	// StatusShutdownTimeout is how long in-flight status requests may take on exit
	StatusShutdownTimeout = 5 * time.Second

	// ExtractorTimeout is the HTTP timeout for the remote embedding server
	ExtractorTimeout = 30 * time.Second
)

// EventChannelBuffer is the per-listener buffer of the live event stream.
// Events for a listener whose buffer is full are dropped.
const EventChannelBuffer = 100
