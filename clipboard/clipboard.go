// Package clipboard reads and writes the system clipboard. On X11/Wayland
// the PRIMARY selection is written alongside CLIPBOARD so middle-click paste
// sees the same text.
package clipboard

import (
	"sync"

	cb "github.com/atotto/clipboard"

	"voicectrl/log"
)

func Read() (string, error) {
	return cb.ReadAll()
}

// Copy writes text to the clipboard and, where one exists, the primary
// selection, concurrently. Only a CLIPBOARD failure is returned.
func Copy(text string) error {
	var wg sync.WaitGroup
	var primaryErr error
	if hasPrimary {
		wg.Add(1)
		go func() {
			defer wg.Done()
			primaryErr = writePrimary(text)
		}()
	}
	err := cb.WriteAll(text)
	wg.Wait()
	if primaryErr != nil {
		log.Warnf("primary selection: %v", primaryErr)
	}
	return err
}

// System is the process clipboard as a value.
type System struct{}

func (System) Read() (string, error) { return Read() }
func (System) Write(text string) error { return Copy(text) }
