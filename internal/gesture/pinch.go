// Package gesture turns the thumb/index distance signal into discrete
// button transitions.
package gesture

// Transition is the button event produced by a pinch update.
type Transition int

const (
	// None means the pinch state did not change.
	None Transition = iota
	// Press is emitted on the frame the pinch becomes active.
	Press
	// Release is emitted on the frame the pinch stops being active.
	Release
)

// String returns the lower-case name of the transition.
func (t Transition) String() string {
	switch t {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return "none"
	}
}

// DefaultThreshold is the pinch distance, in normalized frame units, below
// which the thumb and index tips count as touching.
const DefaultThreshold = 0.03

// Pinch is a two-state edge detector over the thumb/index distance. It
// starts idle. It is not safe for concurrent use.
type Pinch struct {
	active bool
}

// Update feeds one frame's pinch distance. A pinch is active while
// distance < threshold; only edges produce a transition, so holding a pinch
// across frames yields exactly one Press.
func (p *Pinch) Update(distance, threshold float64) Transition {
	active := distance < threshold

	var t Transition
	switch {
	case active && !p.active:
		t = Press
	case !active && p.active:
		t = Release
	}

	p.active = active
	return t
}

// Active reports whether the pinch is currently held.
func (p *Pinch) Active() bool {
	return p.active
}

// Reset returns the machine to idle without emitting a transition.
func (p *Pinch) Reset() {
	p.active = false
}
