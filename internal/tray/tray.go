// Package tray provides the system tray interface for the Mudra slide
// controller.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray application surface. It exposes an
// enable/disable toggle for gesture control, live connection status and
// the last executed deck action.
type Tray struct {
	onToggle    func(enabled bool)
	onReconnect func()
	onQuit      func()
	enabled     bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuConnection *systray.MenuItem
	menuLastAction *systray.MenuItem
}

// New creates a new Tray instance with gesture control enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback invoked when gesture control is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnReconnect sets the callback invoked when the reconnect menu item is clicked.
func (t *Tray) OnReconnect(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReconnect = fn
}

// OnQuit sets the callback invoked when the quit menu item is clicked.
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

// onReady sets up the menu structure once the tray is available.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Slide Control")

	t.menuToggle = systray.AddMenuItem("● Enabled", "Toggle gesture control")
	systray.AddSeparator()

	t.menuConnection = systray.AddMenuItem("Backend: disconnected", "Inference backend status")
	t.menuConnection.Disable()
	t.menuLastAction = systray.AddMenuItem("Last: none", "Last executed deck action")
	t.menuLastAction.Disable()
	systray.AddSeparator()

	menuReconnect := systray.AddMenuItem("Reconnect", "Reconnect to the inference backend")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReconnect.ClickedCh:
				t.handleReconnect()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if enabled {
		t.menuToggle.SetTitle("● Enabled")
	} else {
		t.menuToggle.SetTitle("○ Disabled")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleReconnect handles the reconnect menu item click.
func (t *Tray) handleReconnect() {
	t.mu.RLock()
	callback := t.onReconnect
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

// SetConnectionState updates the backend status line in the menu.
func (t *Tray) SetConnectionState(state string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuConnection != nil {
		t.menuConnection.SetTitle("Backend: " + state)
	}
}

// SetLastAction updates the last deck action display in the menu.
func (t *Tray) SetLastAction(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastAction != nil {
		if name == "" {
			t.menuLastAction.SetTitle("Last: none")
		} else {
			t.menuLastAction.SetTitle("Last: " + name)
		}
	}
}

// IsEnabled reports whether gesture control is enabled.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
