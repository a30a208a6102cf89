package tray

// Init is a no-op on Windows; the status view and notifications cover it.
func Init(h Handlers) <-chan struct{} {
	mu.Lock()
	handlers = h
	mu.Unlock()
	return quitCh
}

func applyState(State) {}
func enableCopyLast()  {}
