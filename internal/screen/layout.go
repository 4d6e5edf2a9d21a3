// Package screen maps camera-frame coordinates onto a horizontally tiled
// multi-monitor desktop.
package screen

import (
	"errors"
	"fmt"
	"image"
)

// ErrConfiguration is returned when a monitor layout or frame geometry
// cannot be mapped onto.
var ErrConfiguration = errors.New("invalid monitor configuration")

// Layout is a snapshot of the desktop: monitor widths ordered left to right
// as tiled, plus the height shared by every monitor.
type Layout struct {
	Widths []int `json:"widths"`
	Height int   `json:"height"`
}

// Displays enumerates the current monitor layout. Implementations must
// query the system on every call; displays may be reconfigured at any time.
type Displays interface {
	Layout() (Layout, error)
}

// Validate reports whether the layout can be mapped onto.
func (l Layout) Validate() error {
	if len(l.Widths) == 0 {
		return fmt.Errorf("%w: no monitors", ErrConfiguration)
	}
	for i, w := range l.Widths {
		if w <= 0 {
			return fmt.Errorf("%w: monitor %d has width %d", ErrConfiguration, i, w)
		}
	}
	if l.Height <= 0 {
		return fmt.Errorf("%w: screen height %d", ErrConfiguration, l.Height)
	}
	return nil
}

// TotalWidth returns the combined width of all monitors.
func (l Layout) TotalWidth() int {
	total := 0
	for _, w := range l.Widths {
		total += w
	}
	return total
}

// Bounds returns the desktop rectangle covered by the tiled monitors.
func (l Layout) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.TotalWidth(), l.Height)
}

// boundaries returns the cumulative right edge of each monitor.
func (l Layout) boundaries() []int {
	bounds := make([]int, len(l.Widths))
	sum := 0
	for i, w := range l.Widths {
		sum += w
		bounds[i] = sum
	}
	return bounds
}

// monitorAt returns the index of the first monitor whose cumulative
// boundary exceeds x, or the last monitor when x is past every boundary,
// together with the summed width of the monitors before it.
func (l Layout) monitorAt(x float64) (index, offset int) {
	bounds := l.boundaries()
	for i, b := range bounds {
		if float64(b) > x {
			return i, b - l.Widths[i]
		}
	}
	last := len(bounds) - 1
	return last, bounds[last] - l.Widths[last]
}
