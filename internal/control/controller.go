// Package control drives the OS pointer from per-frame hand observations:
// relative motion from the mapped hand center and mouse button presses from
// the thumb/index pinch.
package control

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ayusman/pinchpoint/internal/gesture"
	"github.com/ayusman/pinchpoint/internal/motion"
)

// DefaultReleaseTimeout is how long the hand may be missing while a pinch
// is held before the button is released.
const DefaultReleaseTimeout = 1500 * time.Millisecond

// ErrNotStarted is returned when frames are fed before Reset.
var ErrNotStarted = errors.New("controller not started")

// Cursor is the OS pointer the controller drives.
type Cursor interface {
	Position() (image.Point, error)
	Move(p image.Point) error
	ButtonDown() error
	ButtonUp() error
}

// Button is the button event emitted on a frame.
type Button int

const (
	ButtonNone Button = iota
	ButtonDown
	ButtonUp
)

// String returns the lower-case event name.
func (b Button) String() string {
	switch b {
	case ButtonDown:
		return "down"
	case ButtonUp:
		return "up"
	default:
		return "none"
	}
}

// MarshalText encodes the button as its name.
func (b Button) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// State is the controller's view of the pointer.
type State struct {
	Cursor    image.Point `json:"cursor"`
	Timestamp time.Time   `json:"timestamp"`
	Pinching  bool        `json:"pinching"`
}

// Input is one frame in which a hand was detected.
type Input struct {
	Now time.Time
	// Target is the mapped desktop point of the hand center. Nil when the
	// frame could not be mapped; the pinch is still evaluated.
	Target *image.Point
	// Desktop bounds the cursor position.
	Desktop  image.Rectangle
	Distance float64
}

// Step reports what a frame did.
type Step struct {
	Timestamp time.Time   `json:"timestamp"`
	Moved     bool        `json:"moved"`
	Position  image.Point `json:"position"`
	Button    Button      `json:"button"`
	Distance  float64     `json:"distance"`
	// Detected is false for frames without a hand.
	Detected bool `json:"detected"`
	// Released is set when a held pinch was released because the hand
	// stayed out of view too long.
	Released bool `json:"released,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithReleaseTimeout sets how long a held pinch survives without a
// detected hand. Zero keeps the button held until the hand returns.
func WithReleaseTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.releaseTimeout = d
	}
}

// Controller combines the motion tracker and the pinch machine. It is owned
// by the detection loop and is not safe for concurrent use.
type Controller struct {
	params         *Params
	cursor         Cursor
	releaseTimeout time.Duration

	tracker  *motion.Tracker
	pinch    gesture.Pinch
	lastSeen time.Time
}

// New creates a Controller. Reset must be called before feeding frames.
func New(params *Params, cursor Cursor, opts ...Option) *Controller {
	if params == nil {
		params = NewParams()
	}
	c := &Controller{
		params:         params,
		cursor:         cursor,
		releaseTimeout: DefaultReleaseTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reset initialises state from the OS cursor position at time now and
// clears the pinch.
func (c *Controller) Reset(now time.Time) error {
	pos, err := c.cursor.Position()
	if err != nil {
		return fmt.Errorf("read cursor position: %w", err)
	}
	c.tracker = motion.NewTracker(pos, now)
	c.pinch.Reset()
	c.lastSeen = now
	return nil
}

// Update processes a frame with a detected hand. Cursor errors are
// returned after the whole frame has been processed.
func (c *Controller) Update(in Input) (Step, error) {
	if c.tracker == nil {
		return Step{}, ErrNotStarted
	}
	c.lastSeen = in.Now

	step := Step{
		Timestamp: in.Now,
		Distance:  in.Distance,
		Detected:  true,
		Position:  c.tracker.Position(),
	}

	var errs []error
	if in.Target != nil {
		pos, moved := c.tracker.Step(*in.Target, in.Now, c.params.CursorSensitivity(), in.Desktop)
		if moved {
			step.Moved = true
			step.Position = pos
			if err := c.cursor.Move(pos); err != nil {
				errs = append(errs, fmt.Errorf("move cursor: %w", err))
			}
		}
	}

	switch c.pinch.Update(in.Distance, c.params.PinchThreshold()) {
	case gesture.Press:
		step.Button = ButtonDown
		if err := c.cursor.ButtonDown(); err != nil {
			errs = append(errs, fmt.Errorf("button down: %w", err))
		}
	case gesture.Release:
		step.Button = ButtonUp
		if err := c.cursor.ButtonUp(); err != nil {
			errs = append(errs, fmt.Errorf("button up: %w", err))
		}
	}

	return step, errors.Join(errs...)
}

// Miss processes a frame without a detected hand. Motion and pinch state
// are left alone unless a held pinch has outlived the release timeout.
func (c *Controller) Miss(now time.Time) (Step, error) {
	if c.tracker == nil {
		return Step{}, ErrNotStarted
	}

	step := Step{Timestamp: now, Position: c.tracker.Position()}
	if c.releaseTimeout <= 0 || !c.pinch.Active() || now.Sub(c.lastSeen) < c.releaseTimeout {
		return step, nil
	}

	c.pinch.Reset()
	step.Button = ButtonUp
	step.Released = true
	if err := c.cursor.ButtonUp(); err != nil {
		return step, fmt.Errorf("button up: %w", err)
	}
	return step, nil
}

// Release lets go of a held button. It does nothing when idle.
func (c *Controller) Release() error {
	if !c.pinch.Active() {
		return nil
	}
	c.pinch.Reset()
	if err := c.cursor.ButtonUp(); err != nil {
		return fmt.Errorf("button up: %w", err)
	}
	return nil
}

// State returns the current pointer state. The zero State is returned
// before Reset.
func (c *Controller) State() State {
	if c.tracker == nil {
		return State{}
	}
	return State{
		Cursor:    c.tracker.Position(),
		Timestamp: c.tracker.LastUpdate(),
		Pinching:  c.pinch.Active(),
	}
}
