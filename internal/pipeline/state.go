package pipeline

// State is the per-frame pipeline mode.
type State int

const (
	// StateActive frames are downsampled, detected, matched and announced.
	StateActive State = iota
	// StateSkip frames only redraw the previous active frame's annotations.
	StateSkip
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSkip:
		return "skip"
	default:
		return "invalid"
	}
}

// cadence runs one active frame followed by every-1 skip frames. The first
// frame is active.
type cadence struct {
	every int
	pos   int
}

func newCadence(every int) *cadence {
	return &cadence{every: max(every, 1)}
}

func (c *cadence) current() State {
	if c.pos == 0 {
		return StateActive
	}
	return StateSkip
}

func (c *cadence) advance() {
	c.pos = (c.pos + 1) % c.every
}
