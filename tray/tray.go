// Package tray shows the status icon and its menu.
package tray

import (
	"sync"
)

type State int

const (
	Idle State = iota
	Recording
	Transcribing
)

// Handlers are invoked from the menu goroutine.
type Handlers struct {
	Toggle   func()
	CopyLast func()
}

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	mu       sync.Mutex
	handlers Handlers
	state    State
	hasLast  bool
)

func recordTitle(s State) string {
	if s == Recording {
		return "Stop Recording"
	}
	return "Start Recording"
}

func tooltip(s State) string {
	switch s {
	case Recording:
		return "Voice Control - recording"
	case Transcribing:
		return "Voice Control - transcribing"
	}
	return "Voice Control - ready"
}

func icon(s State) []byte {
	switch s {
	case Recording:
		return iconRecording
	case Transcribing:
		return iconBusy
	}
	return iconIdle
}

func SetState(s State) {
	mu.Lock()
	state = s
	mu.Unlock()
	applyState(s)
}

func current() State {
	mu.Lock()
	defer mu.Unlock()
	return state
}

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}

// Events adapts the tray to the dictation event stream.
type Events struct{}

func (Events) RecordingStart() { SetState(Recording) }
func (Events) Transcribing()   { SetState(Transcribing) }
func (Events) Idle()           { SetState(Idle) }

func (Events) Transcription(string, bool) {
	mu.Lock()
	first := !hasLast
	hasLast = true
	mu.Unlock()
	if first {
		enableCopyLast()
	}
}
