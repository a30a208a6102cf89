// Package doctor runs interactive diagnostics for the pieces a dictation
// needs: configuration, hotkey, microphone, speech backend and clipboard.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"golang.org/x/term"

	"voicectrl/audio"
	"voicectrl/config"
	"voicectrl/encoder"
	"voicectrl/hotkey"
	"voicectrl/recorder"
	"voicectrl/transcriber"
)

// Check is one diagnostic step. Run returns a short status on success.
type Check struct {
	Name string
	Run  func() (string, error)
}

type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

type Options struct {
	Config    *config.Config
	Audio     audio.Context
	Device    *audio.DeviceInfo
	Shortcut  hotkey.Shortcut
	Clipboard Clipboard
	Primary   transcriber.Transcriber
	// Record is how long the microphone check listens.
	Record time.Duration

	restoreTerminal func()
}

// Run executes the checks against the real system and returns an exit code
// (0=all pass, 1=any fail). The terminal state is saved first and put back
// on return, on Ctrl+C, and after the hotkey check.
func Run(o Options) int {
	restore := saveTerminal()
	defer restore()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	go func() {
		if _, ok := <-sig; ok {
			restore()
			fmt.Println("\nInterrupted")
			os.Exit(1)
		}
	}()

	o.restoreTerminal = restore
	fmt.Println("voice-ctrl doctor - interactive system diagnostics")
	fmt.Println("==================================================")
	return Report(os.Stdout, Checks(o))
}

func saveTerminal() func() {
	fd := int(os.Stdin.Fd())
	state, err := term.GetState(fd)
	if err != nil {
		return func() {}
	}
	return func() { term.Restore(fd, state) }
}

// Report runs checks in order, stopping at the first failure.
func Report(w io.Writer, checks []Check) int {
	for i, c := range checks {
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		msg, err := c.Run()
		if err != nil {
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			fmt.Fprintln(w, "\nSome checks failed. See details above.")
			return 1
		}
		fmt.Fprintf(w, "  PASS: %s\n", msg)
	}
	fmt.Fprintln(w, "\nAll checks passed!")
	return 0
}

func Checks(o Options) []Check {
	if o.Record <= 0 {
		o.Record = 3 * time.Second
	}
	if o.restoreTerminal == nil {
		o.restoreTerminal = func() {}
	}
	return []Check{
		{"Configuration", func() (string, error) { return checkConfig(o.Config) }},
		{"Hotkey detection", func() (string, error) { return checkHotkey(o.Shortcut, o.restoreTerminal) }},
		{"Microphone and transcription", func() (string, error) { return checkMic(o) }},
		{"Clipboard", func() (string, error) { return checkClipboard(o.Clipboard) }},
	}
}

func checkConfig(cfg *config.Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	switch cfg.STTProvider {
	case config.ProviderLocal:
		path := transcriber.ResolveModel(cfg.LocalModelPath, cfg.LocalModelID, cfg.ModelsDir())
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", transcriber.ErrModelMissing, path)
		}
		if _, err := transcriber.NewEngine(cfg.LocalEngine); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s, local model %s", cfg.Path(), path), nil
	default:
		if cfg.ResolvedAPIKey() == "" {
			return "", fmt.Errorf("%w: set api_key in %s or OPENAI_API_KEY", transcriber.ErrAuth, cfg.Path())
		}
		return fmt.Sprintf("%s, provider %s (%s)", cfg.Path(), cfg.STTProvider, cfg.RemoteModel), nil
	}
}

func checkHotkey(sc hotkey.Shortcut, restoreTerminal func()) (string, error) {
	msg, err := hotkey.Diagnose(sc)
	if err != nil {
		return "", err
	}
	fmt.Println("  " + msg)
	fmt.Printf("Press %s...\n", sc)

	hk, err := hotkey.New(sc)
	if err != nil {
		return "", err
	}
	if err := hk.Register(); err != nil {
		return "", fmt.Errorf("could not register hotkey: %w", err)
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// The hotkey may leave the terminal in raw mode.
		restoreTerminal()
		return "hotkey detected", nil
	case <-time.After(10 * time.Second):
		return "", errors.New("timeout waiting for hotkey")
	}
}

func checkMic(o Options) (string, error) {
	capture, err := o.Audio.NewCapture(o.Device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return "", fmt.Errorf("cannot open microphone: %w", err)
	}
	defer capture.Close()

	rec := recorder.New(capture, recorder.Config{MaxDuration: o.Record})
	fmt.Printf("Speak for %s...\n", o.Record)
	if err := rec.Start(); err != nil {
		return "", err
	}
	out := <-rec.AutoStopped()
	if out.Err != nil {
		return "", out.Err
	}
	fmt.Printf("  Recorded %.1fs from %s, transcribing with %s...\n",
		out.Recording.Duration.Seconds(), capture.DeviceName(), o.Primary.Name())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	text, err := o.Primary.Transcribe(ctx, out.Recording.Path, transcriber.Remove)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return fmt.Sprintf("heard %q", text), nil
}

// checkClipboard writes a marker, reads it back, and puts the previous
// contents back.
func checkClipboard(clip Clipboard) (string, error) {
	previous, _ := clip.Read()
	marker := fmt.Sprintf("voice-ctrl-doctor-%d", time.Now().UnixNano())

	type result struct {
		got string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		if err := clip.Write(marker); err != nil {
			ch <- result{err: fmt.Errorf("write: %w", err)}
			return
		}
		got, err := clip.Read()
		ch <- result{got: got, err: err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-time.After(3 * time.Second):
		return "", errors.New("clipboard timed out (clipboard tool hung - compositor not accessible?)")
	}
	if res.err != nil {
		return "", res.err
	}
	if res.got != marker {
		return "", fmt.Errorf("clipboard mismatch: wrote %q, got %q", marker, res.got)
	}
	if previous != "" {
		if err := clip.Write(previous); err != nil {
			return "", fmt.Errorf("restore: %w", err)
		}
	}
	return "clipboard write/read verified", nil
}
