package tray

import "golang.design/x/hotkey/mainthread"

// Cocoa requires the status item to be created on the main thread.
func runOnMain(start func()) {
	done := make(chan struct{})
	mainthread.Call(func() {
		start()
		close(done)
	})
	<-done
}
