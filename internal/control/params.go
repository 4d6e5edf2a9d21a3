package control

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// Parameter defaults and ranges.
const (
	DefaultDetectionConfidence = 0.5
	DefaultTrackingConfidence  = 0.5
	DefaultCursorSensitivity   = 1.0
	DefaultPinchThreshold      = 0.03

	MinSensitivity = 0.5
	MaxSensitivity = 2.0
)

// ErrOutOfRange is returned when a parameter value is outside its range.
var ErrOutOfRange = errors.New("parameter out of range")

// atomicFloat is a float64 readable and writable without a lock.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// Params holds the user-tunable control parameters. Every field is
// independently atomic: the detection loop reads them once per frame while
// the HTTP API or tray write them, and a one-frame stale read is fine.
type Params struct {
	detectionConfidence atomicFloat
	trackingConfidence  atomicFloat
	cursorSensitivity   atomicFloat
	pinchThreshold      atomicFloat
}

// Snapshot is a plain copy of Params, used for JSON and configuration.
type Snapshot struct {
	DetectionConfidence float64 `json:"detection_confidence"`
	TrackingConfidence  float64 `json:"tracking_confidence"`
	CursorSensitivity   float64 `json:"cursor_sensitivity"`
	PinchThreshold      float64 `json:"pinch_threshold"`
}

// DefaultSnapshot returns the default parameter values.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		DetectionConfidence: DefaultDetectionConfidence,
		TrackingConfidence:  DefaultTrackingConfidence,
		CursorSensitivity:   DefaultCursorSensitivity,
		PinchThreshold:      DefaultPinchThreshold,
	}
}

// Validate checks every value against its range.
func (s Snapshot) Validate() error {
	if err := checkUnit("detection_confidence", s.DetectionConfidence); err != nil {
		return err
	}
	if err := checkUnit("tracking_confidence", s.TrackingConfidence); err != nil {
		return err
	}
	if !(s.CursorSensitivity >= MinSensitivity && s.CursorSensitivity <= MaxSensitivity) {
		return fmt.Errorf("%w: cursor_sensitivity %v not in [%v, %v]",
			ErrOutOfRange, s.CursorSensitivity, MinSensitivity, MaxSensitivity)
	}
	if !(s.PinchThreshold > 0 && s.PinchThreshold <= 1) {
		return fmt.Errorf("%w: pinch_threshold %v not in (0, 1]", ErrOutOfRange, s.PinchThreshold)
	}
	return nil
}

func checkUnit(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%w: %s %v not in [0, 1]", ErrOutOfRange, name, v)
	}
	return nil
}

// NewParams creates Params holding the defaults.
func NewParams() *Params {
	p := &Params{}
	p.store(DefaultSnapshot())
	return p
}

// NewParamsFrom creates Params from a validated snapshot.
func NewParamsFrom(s Snapshot) (*Params, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p := &Params{}
	p.store(s)
	return p, nil
}

func (p *Params) store(s Snapshot) {
	p.detectionConfidence.Store(s.DetectionConfidence)
	p.trackingConfidence.Store(s.TrackingConfidence)
	p.cursorSensitivity.Store(s.CursorSensitivity)
	p.pinchThreshold.Store(s.PinchThreshold)
}

// DetectionConfidence returns the minimum hand detection confidence.
func (p *Params) DetectionConfidence() float64 { return p.detectionConfidence.Load() }

// TrackingConfidence returns the minimum hand tracking confidence.
func (p *Params) TrackingConfidence() float64 { return p.trackingConfidence.Load() }

// CursorSensitivity returns the cursor speed multiplier.
func (p *Params) CursorSensitivity() float64 { return p.cursorSensitivity.Load() }

// PinchThreshold returns the pinch distance threshold.
func (p *Params) PinchThreshold() float64 { return p.pinchThreshold.Load() }

// SetCursorSensitivity sets the cursor speed multiplier.
func (p *Params) SetCursorSensitivity(v float64) error {
	s := p.Snapshot()
	s.CursorSensitivity = v
	if err := s.Validate(); err != nil {
		return err
	}
	p.cursorSensitivity.Store(v)
	return nil
}

// Snapshot returns the current values.
func (p *Params) Snapshot() Snapshot {
	return Snapshot{
		DetectionConfidence: p.DetectionConfidence(),
		TrackingConfidence:  p.TrackingConfidence(),
		CursorSensitivity:   p.CursorSensitivity(),
		PinchThreshold:      p.PinchThreshold(),
	}
}

// Update is a partial parameter change. Nil fields are left alone.
type Update struct {
	DetectionConfidence *float64 `json:"detection_confidence,omitempty"`
	TrackingConfidence  *float64 `json:"tracking_confidence,omitempty"`
	CursorSensitivity   *float64 `json:"cursor_sensitivity,omitempty"`
	PinchThreshold      *float64 `json:"pinch_threshold,omitempty"`
}

// Apply validates the whole update before storing any field, so a rejected
// update leaves every parameter unchanged. It returns the resulting values.
func (p *Params) Apply(u Update) (Snapshot, error) {
	s := p.Snapshot()
	if u.DetectionConfidence != nil {
		s.DetectionConfidence = *u.DetectionConfidence
	}
	if u.TrackingConfidence != nil {
		s.TrackingConfidence = *u.TrackingConfidence
	}
	if u.CursorSensitivity != nil {
		s.CursorSensitivity = *u.CursorSensitivity
	}
	if u.PinchThreshold != nil {
		s.PinchThreshold = *u.PinchThreshold
	}
	if err := s.Validate(); err != nil {
		return p.Snapshot(), err
	}
	p.store(s)
	return s, nil
}
