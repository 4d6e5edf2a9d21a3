// Package motion implements velocity-scaled relative cursor motion.
package motion

import (
	"image"
	"math"
	"time"
)

// Gain is the fixed velocity-to-displacement factor applied before the
// user sensitivity.
const Gain = 0.006

// Displacement returns the cursor offset for moving toward target over dt
// seconds: the velocity (target-from)/dt scaled by Gain and sensitivity.
// It returns ok=false when dt is not positive.
func Displacement(from, target image.Point, dt, sensitivity float64) (dx, dy float64, ok bool) {
	if dt <= 0 {
		return 0, 0, false
	}
	vx := float64(target.X-from.X) / dt
	vy := float64(target.Y-from.Y) / dt
	return vx * Gain * sensitivity, vy * Gain * sensitivity, true
}

// Tracker holds the last cursor position and the time it was set. It is
// owned by a single goroutine.
type Tracker struct {
	pos  image.Point
	last time.Time
}

// NewTracker starts tracking from pos at time now.
func NewTracker(pos image.Point, now time.Time) *Tracker {
	return &Tracker{pos: pos, last: now}
}

// Step advances the cursor toward target. When now is not after the last
// update nothing changes and moved is false. The new position is clamped
// into bounds unless bounds is empty.
func (t *Tracker) Step(target image.Point, now time.Time, sensitivity float64, bounds image.Rectangle) (image.Point, bool) {
	dt := now.Sub(t.last).Seconds()
	dx, dy, ok := Displacement(t.pos, target, dt, sensitivity)
	if !ok {
		return t.pos, false
	}

	next := image.Pt(
		t.pos.X+int(math.Round(dx)),
		t.pos.Y+int(math.Round(dy)),
	)
	if !bounds.Empty() {
		next = clamp(next, bounds)
	}

	t.pos = next
	t.last = now
	return next, true
}

// Position returns the last cursor position.
func (t *Tracker) Position() image.Point {
	return t.pos
}

// LastUpdate returns the timestamp of the last applied step.
func (t *Tracker) LastUpdate() time.Time {
	return t.last
}

// clamp keeps p inside r. r.Max is exclusive, so the result satisfies
// p.In(r) and lands on a real monitor pixel.
func clamp(p image.Point, r image.Rectangle) image.Point {
	p.X = min(max(p.X, r.Min.X), r.Max.X-1)
	p.Y = min(max(p.Y, r.Min.Y), r.Max.Y-1)
	return p
}
