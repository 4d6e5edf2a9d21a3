// Package tray provides the system tray menu for pinchpoint.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// SensitivityPreset is a cursor sensitivity offered in the tray menu.
type SensitivityPreset struct {
	Label string
	Value float64
}

// SensitivityPresets are the sensitivity menu entries, low to high.
var SensitivityPresets = []SensitivityPreset{
	{Label: "Low", Value: 0.5},
	{Label: "Normal", Value: 1.0},
	{Label: "High", Value: 2.0},
}

// Tray represents the system tray application.
type Tray struct {
	onToggle      func(enabled bool) error
	onSensitivity func(value float64) error
	onSettings    func()
	onQuit        func()
	enabled       bool
	sensitivity   float64
	mu            sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastEvent   *systray.MenuItem
	menuSensitivity []*systray.MenuItem
}

// New creates a new Tray instance showing the given cursor sensitivity.
// Detection starts disabled.
func New(sensitivity float64) *Tray {
	return &Tray{
		sensitivity: sensitivity,
	}
}

// OnToggle sets the callback called when detection is toggled. If it
// returns an error the menu keeps its previous state.
func (t *Tray) OnToggle(fn func(enabled bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSensitivity sets the callback called when a sensitivity preset is
// picked.
func (t *Tray) OnSensitivity(fn func(value float64) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSensitivity = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("pinchpoint")
	systray.SetTooltip("pinchpoint hand pointer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Start or stop hand tracking")
	systray.AddSeparator()

	t.menuLastEvent = systray.AddMenuItem(lastEventTitle(""), "Last pointer event")
	t.menuLastEvent.Disable()
	systray.AddSeparator()

	menuSpeed := systray.AddMenuItem("Sensitivity", "Cursor sensitivity")
	t.menuSensitivity = make([]*systray.MenuItem, len(SensitivityPresets))
	for i, p := range SensitivityPresets {
		item := menuSpeed.AddSubMenuItemCheckbox(
			fmt.Sprintf("%s (%.1fx)", p.Label, p.Value), "", p.Value == t.sensitivity)
		t.menuSensitivity[i] = item
	}
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit pinchpoint")

	for i, item := range t.menuSensitivity {
		go func(value float64, ch <-chan struct{}) {
			for range ch {
				t.handleSensitivity(value)
			}
		}(SensitivityPresets[i].Value, item.ClickedCh)
	}

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	enabled := !t.enabled
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(enabled); err != nil {
			t.SetLastEvent("error: " + err.Error())
			return
		}
	}

	t.SetEnabled(enabled)
}

// handleSensitivity applies a sensitivity preset.
func (t *Tray) handleSensitivity(value float64) {
	t.mu.RLock()
	callback := t.onSensitivity
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(value); err != nil {
			t.SetLastEvent("error: " + err.Error())
			return
		}
	}

	t.SetSensitivity(value)
}

// SetSensitivity updates the sensitivity checkmarks, for changes made
// outside the tray. A value between presets leaves none checked.
func (t *Tray) SetSensitivity(value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sensitivity = value
	for i, item := range t.menuSensitivity {
		if SensitivityPresets[i].Value == value {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetEnabled updates the toggle item, for changes made outside the tray.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetLastEvent updates the last pointer event display in the menu.
func (t *Tray) SetLastEvent(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastEvent != nil {
		t.menuLastEvent.SetTitle(lastEventTitle(name))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Sensitivity returns the last selected sensitivity.
func (t *Tray) Sensitivity() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sensitivity
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func lastEventTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}
