package hotkey

// Presses turns a Hotkey into a stream of toggle presses, one per keydown.
// Key releases are drained so the backend never blocks on them. The
// returned channel is closed when done is closed.
func Presses(hk Hotkey, done <-chan struct{}) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case <-hk.Keyup():
			case <-hk.Keydown():
				select {
				case out <- struct{}{}:
				case <-done:
					return
				}
			}
		}
	}()
	return out
}
