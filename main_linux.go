//go:build linux

package main

// evdev and the tray run their own loops, so nothing needs the main thread.
func main() {
	run()
}
