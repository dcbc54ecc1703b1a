// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Recognition constants
const (
	// DefaultTolerance is the maximum Euclidean distance at which a probe is
	// accepted as a gallery identity. Lower values = stricter matching
	DefaultTolerance = 0.6

	// DefaultScale is the factor frames are downsampled by before detection
	DefaultScale = 0.25

	// DefaultDetectEvery runs detection on one frame out of this many
	DefaultDetectEvery = 2
)

// Announcement constants
const (
	// DefaultCooldown is how long the same label stays silent after being spoken
	DefaultCooldown = 10 * time.Second

	// SpeechQueueSize is the number of greetings that may wait in asynchronous mode
	SpeechQueueSize = 4

	// SpeechBreakerFailures is the number of consecutive speech failures that
	// stop further attempts for SpeechBreakerTimeout
	SpeechBreakerFailures = 3

	// SpeechBreakerTimeout is how long speech stays disabled after the breaker opens
	SpeechBreakerTimeout = 30 * time.Second
)

// Gallery constants
const (
	// DefaultGalleryPath is the default gallery file written by encode
	DefaultGalleryPath = "encodings.gob"

	// DefaultKnownFacesDir is the default reference image root (one directory per person)
	DefaultKnownFacesDir = "known_faces"

	// MaxImageSize is the maximum dimension (width or height) for reference images
	MaxImageSize = 1920

	// DefaultAuditNeighbors is the number of nearest entries inspected per entry by gallery audit
	DefaultAuditNeighbors = 5
)

// Capture constants
const (
	// DefaultCameraWidth and DefaultCameraHeight are requested from the capture device
	DefaultCameraWidth  = 1280
	DefaultCameraHeight = 720

	// WindowTitle is the title of the video window
	WindowTitle = "Video"
)
