package screen

import (
	"fmt"
	"image"
	"math"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/ayusman/pinchpoint/internal/detector"
)

// Mode selects how a frame position is spread over the monitors.
type Mode string

const (
	// ModeTiled interprets the frame x coordinate directly against the
	// cumulative monitor boundaries and returns a position relative to the
	// selected monitor. With a single monitor it is a plain rescale.
	ModeTiled Mode = "tiled"
	// ModeSpan stretches the frame across the combined desktop width and
	// returns absolute desktop coordinates.
	ModeSpan Mode = "span"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTiled:
		return ModeTiled, nil
	case ModeSpan:
		return ModeSpan, nil
	default:
		return "", fmt.Errorf("unknown mapping mode %q", s)
	}
}

// MapToDesktop maps a frame pixel onto the tiled desktop.
//
// The target monitor is the first whose cumulative width boundary exceeds
// px (the last monitor if none does). px minus the widths of the preceding
// monitors is then rescaled from [0, frameW] onto [0, width of the target],
// and py from [0, frameH] onto [0, layout.Height]. Inputs outside those
// ranges clamp to the nearest endpoint.
func MapToDesktop(px, py, frameW, frameH int, layout Layout) (int, int, error) {
	if err := checkInputs(frameW, frameH, layout); err != nil {
		return 0, 0, err
	}

	index, offset := layout.monitorAt(float64(px))
	relativeX := float64(px - offset)

	x, err := rescale(relativeX, float64(frameW), float64(layout.Widths[index]))
	if err != nil {
		return 0, 0, err
	}
	y, err := rescale(float64(py), float64(frameH), float64(layout.Height))
	if err != nil {
		return 0, 0, err
	}

	return round(x), round(y), nil
}

// MapSpanning maps a frame pixel onto the full desktop: the frame width is
// stretched over the combined width of all monitors and the result is in
// absolute desktop coordinates, clamped to the selected monitor.
func MapSpanning(px, py, frameW, frameH int, layout Layout) (int, int, error) {
	if err := checkInputs(frameW, frameH, layout); err != nil {
		return 0, 0, err
	}

	desktopX, err := rescale(float64(px), float64(frameW), float64(layout.TotalWidth()))
	if err != nil {
		return 0, 0, err
	}
	index, offset := layout.monitorAt(desktopX)
	relativeX := math.Min(math.Max(desktopX-float64(offset), 0), float64(layout.Widths[index]))

	y, err := rescale(float64(py), float64(frameH), float64(layout.Height))
	if err != nil {
		return 0, 0, err
	}

	return offset + round(relativeX), round(y), nil
}

// Mapper maps hand positions using a freshly queried layout on every call.
type Mapper struct {
	displays Displays
	mode     Mode
}

// NewMapper creates a Mapper over the given display source.
func NewMapper(displays Displays, mode Mode) *Mapper {
	if mode == "" {
		mode = ModeTiled
	}
	return &Mapper{displays: displays, mode: mode}
}

// Mode returns the mapping mode.
func (m *Mapper) Mode() Mode {
	return m.mode
}

// Map converts a frame pixel into a desktop point. It also returns the
// desktop bounds of the layout snapshot it used.
func (m *Mapper) Map(p image.Point, frame detector.FrameGeometry) (image.Point, image.Rectangle, error) {
	layout, err := m.displays.Layout()
	if err != nil {
		return image.Point{}, image.Rectangle{}, fmt.Errorf("list monitors: %w", err)
	}

	mapFn := MapToDesktop
	if m.mode == ModeSpan {
		mapFn = MapSpanning
	}

	x, y, err := mapFn(p.X, p.Y, frame.Width, frame.Height, layout)
	if err != nil {
		return image.Point{}, image.Rectangle{}, err
	}
	return image.Pt(x, y), layout.Bounds(), nil
}

// StaticDisplays is a fixed layout, used when the monitor arrangement is
// known ahead of time and in tests.
type StaticDisplays Layout

// Layout returns the fixed layout.
func (s StaticDisplays) Layout() (Layout, error) {
	return Layout(s), nil
}

func checkInputs(frameW, frameH int, layout Layout) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	if frameW <= 0 || frameH <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrConfiguration, frameW, frameH)
	}
	return nil
}

// rescale linearly maps v from [0, inMax] onto [0, outMax]. Values outside
// the input range take the endpoint value.
func rescale(v, inMax, outMax float64) (float64, error) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit([]float64{0, inMax}, []float64{0, outMax}); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return pl.Predict(v), nil
}

func round(v float64) int {
	return int(math.Round(v))
}
