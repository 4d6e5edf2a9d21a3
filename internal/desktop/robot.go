// Package desktop binds the pointer controller to the host OS through
// robotgo.
package desktop

import (
	"fmt"
	"image"
	"sort"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/pinchpoint/internal/screen"
)

// Robot moves the system cursor, presses a mouse button and enumerates the
// attached displays. It satisfies control.Cursor and screen.Displays.
type Robot struct {
	button string
}

// NewRobot creates a Robot that presses the given mouse button ("left" when
// empty).
func NewRobot(button string) *Robot {
	if button == "" {
		button = "left"
	}
	return &Robot{button: button}
}

// Position returns the current cursor location.
func (r *Robot) Position() (image.Point, error) {
	x, y := robotgo.Location()
	return image.Pt(x, y), nil
}

// Move places the cursor at p.
func (r *Robot) Move(p image.Point) error {
	robotgo.Move(p.X, p.Y)
	return nil
}

// ButtonDown presses and holds the mouse button.
func (r *Robot) ButtonDown() error {
	if err := robotgo.Toggle(r.button); err != nil {
		return fmt.Errorf("press %s button: %w", r.button, err)
	}
	return nil
}

// ButtonUp releases the mouse button.
func (r *Robot) ButtonUp() error {
	if err := robotgo.Toggle(r.button, "up"); err != nil {
		return fmt.Errorf("release %s button: %w", r.button, err)
	}
	return nil
}

// Layout queries the displays attached right now.
func (r *Robot) Layout() (screen.Layout, error) {
	_, height := robotgo.GetScreenSize()

	n := robotgo.DisplaysNum()
	if n <= 0 {
		width, _ := robotgo.GetScreenSize()
		return layoutFromBounds([]image.Rectangle{image.Rect(0, 0, width, height)}, height)
	}

	bounds := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		x, y, w, h := robotgo.GetDisplayBounds(i)
		bounds = append(bounds, image.Rect(x, y, x+w, y+h))
	}
	return layoutFromBounds(bounds, height)
}

// layoutFromBounds orders display rectangles left to right and reduces
// them to a tiled layout with the given shared height.
func layoutFromBounds(bounds []image.Rectangle, height int) (screen.Layout, error) {
	sorted := append([]image.Rectangle(nil), bounds...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Min.X < sorted[j].Min.X
	})

	layout := screen.Layout{Widths: make([]int, 0, len(sorted)), Height: height}
	for _, b := range sorted {
		layout.Widths = append(layout.Widths, b.Dx())
	}
	if layout.Height <= 0 && len(sorted) > 0 {
		layout.Height = sorted[0].Dy()
	}

	if err := layout.Validate(); err != nil {
		return screen.Layout{}, err
	}
	return layout, nil
}
