// Package dictation drives the hotkey → record → transcribe → paste loop.
//
// Run owns the Idle/Recording state machine: hotkey presses and sessions
// ended by the duration ceiling both arrive as channel values on the one
// goroutine, and each finished recording goes through the pipeline before
// the next event is read.
package dictation

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"voicectrl/log"
	"voicectrl/notify"
	"voicectrl/recorder"
	"voicectrl/transcriber"
)

type Recorder interface {
	Toggle() (recorder.Transition, recorder.Recording, error)
	AutoStopped() <-chan recorder.Outcome
}

type Paster interface {
	Paste(text string) bool
}

type History interface {
	Add(text string, durationSeconds float64) error
}

type Config struct {
	Recorder Recorder
	Primary  transcriber.Transcriber
	// Fallback gets the same recording when Primary fails. Nil disables it.
	Fallback transcriber.Transcriber
	Paster   Paster
	History  History
	Notifier notify.Notifier
	Events   Events
	// ErrorCue is played when a recording produces no text. Optional.
	ErrorCue func()
}

type Orchestrator struct {
	cfg Config

	mu    sync.Mutex
	count int
}

func New(cfg Config) *Orchestrator {
	if cfg.Events == nil {
		cfg.Events = NopEvents{}
	}
	if cfg.ErrorCue == nil {
		cfg.ErrorCue = func() {}
	}
	return &Orchestrator{cfg: cfg}
}

// Count is the number of transcriptions pasted since startup.
func (o *Orchestrator) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

// Run handles presses and auto-stopped sessions until ctx is done or presses
// is closed.
func (o *Orchestrator) Run(ctx context.Context, presses <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-presses:
			if !ok {
				return
			}
			o.Toggle(ctx)
		case out := <-o.cfg.Recorder.AutoStopped():
			if out.Err == nil {
				log.Info("recording reached the duration limit")
			}
			o.finish(ctx, out.Recording, out.Err)
		}
	}
}

// Toggle is one hotkey press.
func (o *Orchestrator) Toggle(ctx context.Context) {
	tr, rec, err := o.cfg.Recorder.Toggle()
	if tr == recorder.Started {
		if err != nil {
			o.cfg.Notifier.Error(notify.KindRecording, "Could not open the microphone.")
			o.cfg.ErrorCue()
			o.cfg.Events.Idle()
			return
		}
		o.cfg.Events.RecordingStart()
		o.warm()
		return
	}
	o.finish(ctx, rec, err)
}

func (o *Orchestrator) warm() {
	for _, t := range []transcriber.Transcriber{o.cfg.Primary, o.cfg.Fallback} {
		if w, ok := t.(transcriber.Warmer); ok {
			go w.Warm()
		}
	}
}

func (o *Orchestrator) finish(ctx context.Context, rec recorder.Recording, err error) {
	defer o.cfg.Events.Idle()

	if err != nil {
		kind, msg := describe(err)
		o.cfg.Notifier.Error(kind, msg)
		o.cfg.ErrorCue()
		return
	}

	o.cfg.Events.Transcribing()
	text, err := o.transcribe(ctx, rec.Path)
	if err != nil {
		kind, msg := describe(err)
		o.cfg.Notifier.Error(kind, msg)
		o.cfg.ErrorCue()
		return
	}

	pasted := o.cfg.Paster.Paste(text)
	o.cfg.Events.Transcription(text, pasted)

	if err := o.cfg.History.Add(text, rec.Duration.Seconds()); err != nil {
		log.Errorf("saving history: %v", err)
	}
	o.mu.Lock()
	o.count++
	o.mu.Unlock()
}

// transcribe runs the primary backend and, if it fails and a fallback is
// set, the fallback on the same artifact. The artifact is gone on return.
func (o *Orchestrator) transcribe(ctx context.Context, path string) (string, error) {
	start := time.Now()
	if o.cfg.Fallback == nil {
		text, err := o.cfg.Primary.Transcribe(ctx, path, transcriber.Remove)
		o.logResult(o.cfg.Primary, start, err)
		return text, err
	}

	text, err := o.cfg.Primary.Transcribe(ctx, path, transcriber.Keep)
	o.logResult(o.cfg.Primary, start, err)
	if err == nil {
		removeArtifact(path)
		return text, nil
	}
	if errors.Is(err, context.Canceled) {
		removeArtifact(path)
		return "", err
	}

	log.Warnf("%s failed, retrying with %s: %v", o.cfg.Primary.Name(), o.cfg.Fallback.Name(), err)
	start = time.Now()
	text, err = o.cfg.Fallback.Transcribe(ctx, path, transcriber.Remove)
	o.logResult(o.cfg.Fallback, start, err)
	return text, err
}

func (o *Orchestrator) logResult(t transcriber.Transcriber, start time.Time, err error) {
	if err != nil {
		log.Errorf("%s transcription failed after %s: %v", t.Name(), time.Since(start).Round(time.Millisecond), err)
		return
	}
	log.Infof("%s transcription took %s", t.Name(), time.Since(start).Round(time.Millisecond))
}

func removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Errorf("removing artifact %s: %v", path, err)
	}
}

// describe maps a pipeline error to a notification kind and message.
func describe(err error) (kind, message string) {
	switch {
	case errors.Is(err, recorder.ErrNoAudio):
		return notify.KindNoAudio, "No audio was recorded. Check your microphone."
	case errors.Is(err, recorder.ErrCapture):
		return notify.KindRecording, "Recording failed. Check your microphone."
	case errors.Is(err, transcriber.ErrNoSpeech):
		return notify.KindNoAudio, "No speech was detected in the recording."
	case errors.Is(err, transcriber.ErrAuth):
		return notify.KindInvalidKey, "Your API key is missing or invalid. Check config.json."
	case errors.Is(err, transcriber.ErrTimeout):
		return notify.KindTimeout, "The transcription request timed out."
	case errors.Is(err, transcriber.ErrRateLimit):
		return notify.KindRateLimit, "Too many requests. Wait a moment and try again."
	case errors.Is(err, transcriber.ErrConnection):
		return notify.KindNetwork, "Could not reach the transcription service."
	case errors.Is(err, transcriber.ErrAPI):
		return notify.KindAPI, "The transcription service returned an error."
	case errors.Is(err, transcriber.ErrNotInstalled):
		return notify.KindNotInstalled, "Local speech recognition is not available in this build."
	case errors.Is(err, transcriber.ErrModelMissing):
		return notify.KindTranscription, "The local speech model was not found."
	}
	return notify.KindTranscription, "Transcription failed."
}
