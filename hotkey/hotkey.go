// Package hotkey parses the configured keyboard shortcut and delivers its
// key transitions system-wide: evdev on Linux, golang.design/x/hotkey
// elsewhere.
package hotkey

// Hotkey is one registered global shortcut. Keydown fires when the full
// chord becomes held, Keyup when it is released. Neither channel is closed
// by Unregister.
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
