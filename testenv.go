package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"voicectrl/audio"
	"voicectrl/beep"
	"voicectrl/config"
	"voicectrl/dictation"
	"voicectrl/encoder"
	"voicectrl/history"
	"voicectrl/hotkey"
	"voicectrl/log"
	"voicectrl/recorder"
	"voicectrl/transcriber"
)

// testChunkInterval paces the fake microphone at roughly real time
// (1024 frames at 16 kHz).
const testChunkInterval = 64 * time.Millisecond

// stdoutPaster prints what would have been pasted.
type stdoutPaster struct{ w io.Writer }

func (p stdoutPaster) Paste(text string) bool {
	if text == "" {
		return false
	}
	fmt.Fprintf(p.w, "PASTE %s\n", text)
	return true
}

type stdoutNotifier struct{ w io.Writer }

func (n stdoutNotifier) Error(kind, message string) {
	fmt.Fprintf(n.w, "NOTIFY %s: %s\n", kind, message)
}

// idleEvents signals every return to idle so WAIT can block on it.
type idleEvents struct {
	dictation.NopEvents
	idle chan struct{}
}

func (e idleEvents) Idle() {
	select {
	case e.idle <- struct{}{}:
	default:
	}
}

// runTestMode replays wavPath as the microphone and drives the orchestrator
// from stdin commands: TOGGLE (taps a fake shortcut), WAIT, WAIT_AUDIO_DONE,
// SLEEP <ms>, QUIT.
func runTestMode(cfg *config.Config, primary, fallback transcriber.Transcriber, wavPath string) int {
	beep.SetEnabled(false)
	defer log.Close()

	samples, rate, err := encoder.ReadWAV(wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}
	if rate != encoder.SampleRate {
		fmt.Fprintf(os.Stderr, "Error: %s is %d Hz, want %d Hz\n", wavPath, rate, encoder.SampleRate)
		return 1
	}

	fakeCtx := &audio.FakeContext{Capture: audio.NewFakeCapture(encoder.PCM(samples), testChunkInterval)}
	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate, Channels: encoder.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		return 1
	}
	defer capture.Close()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		log.Errorf("history: %v", err)
	}

	events := idleEvents{idle: make(chan struct{}, 1)}
	orch := dictation.New(dictation.Config{
		Recorder: recorder.New(capture, recorder.Config{MaxDuration: cfg.MaxDuration()}),
		Primary:  primary,
		Fallback: fallback,
		Paster:   stdoutPaster{os.Stdout},
		History:  store,
		Notifier: stdoutNotifier{os.Stdout},
		Events:   events,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hk := hotkey.NewFake()
	hk.Register()
	defer hk.Unregister()
	stopPresses := make(chan struct{})
	defer close(stopPresses)

	done := make(chan struct{})
	go func() {
		orch.Run(ctx, hotkey.Presses(hk, stopPresses))
		close(done)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "TOGGLE":
			hk.SimTap()
		case cmd == "WAIT":
			<-events.idle
		case cmd == "WAIT_AUDIO_DONE":
			<-fakeCtx.Capture.Drained()
		case cmd == "QUIT":
			cancel()
			<-done
			log.SessionEnd(orch.Count())
			return 0
		case strings.HasPrefix(cmd, "SLEEP "):
			if ms, err := strconv.Atoi(cmd[6:]); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		}
	}
	cancel()
	<-done
	return 0
}
