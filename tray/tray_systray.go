//go:build darwin || linux

package tray

import (
	"fyne.io/systray"
)

var (
	mRecord *systray.MenuItem
	mCopy   *systray.MenuItem
	ready   = make(chan struct{})
)

// Init starts the status icon and returns a channel closed on Quit.
func Init(h Handlers) <-chan struct{} {
	mu.Lock()
	handlers = h
	mu.Unlock()

	start, _ := systray.RunWithExternalLoop(onReady, onExit)
	runOnMain(start)
	return quitCh
}

func onReady() {
	systray.SetIcon(iconIdle)
	systray.SetTitle("")
	systray.SetTooltip(tooltip(Idle))

	mRecord = systray.AddMenuItem(recordTitle(Idle), "Start or stop recording")
	mCopy = systray.AddMenuItem("Copy Last Transcription", "Copy the last transcription to the clipboard")
	mCopy.Disable()
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit Voice Control")

	close(ready)

	go func() {
		for {
			select {
			case <-mRecord.ClickedCh:
				mu.Lock()
				fn := handlers.Toggle
				mu.Unlock()
				if fn != nil {
					fn()
				}
			case <-mCopy.ClickedCh:
				mu.Lock()
				fn := handlers.CopyLast
				mu.Unlock()
				if fn != nil {
					fn()
				}
			case <-mQuit.ClickedCh:
				Quit()
				return
			case <-quitCh:
				return
			}
		}
	}()
}

func isReady() bool {
	select {
	case <-ready:
		return true
	default:
		return false
	}
}

func applyState(s State) {
	if !isReady() {
		return
	}
	systray.SetIcon(icon(s))
	systray.SetTooltip(tooltip(s))
	mRecord.SetTitle(recordTitle(s))
	if s == Transcribing {
		mRecord.Disable()
	} else {
		mRecord.Enable()
	}
}

func enableCopyLast() {
	if isReady() {
		mCopy.Enable()
	}
}

func onExit() {
	Quit()
}
