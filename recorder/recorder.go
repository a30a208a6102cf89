// Package recorder turns one toggle-bounded microphone session into a WAV
// artifact.
//
// A session is claimed and released under a single mutex, so a hotkey stop
// and the duration ceiling can race without both finishing the same session.
// Sessions ended by the ceiling or by a capture failure are delivered on
// AutoStopped.
package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicectrl/audio"
	"voicectrl/encoder"
	"voicectrl/log"
)

var (
	ErrNoAudio      = errors.New("no audio captured")
	ErrNotRecording = errors.New("not recording")
	ErrCapture      = errors.New("capture failed")
)

const DefaultPollInterval = 100 * time.Millisecond

type Transition int

const (
	Started Transition = iota
	Stopped
)

// Recording is a finished artifact. The receiver owns Path and must remove it.
type Recording struct {
	Path        string
	Duration    time.Duration
	AutoStopped bool
}

// Outcome is what the session worker hands over on AutoStopped: a session
// ended by the ceiling, or one a capture failure forced back to idle.
type Outcome struct {
	Recording Recording
	Err       error
}

// Cues are played on their own goroutine at session start and stop.
type Cues interface {
	Start()
	Stop()
}

type Config struct {
	MaxDuration  time.Duration
	PollInterval time.Duration
	Dir          string // defaults to os.TempDir()
	Cues         Cues
}

type Recorder struct {
	capture audio.CaptureDevice
	cfg     Config
	now     func() time.Time

	mu     sync.Mutex
	active *session

	autoStopped chan Outcome
}

type session struct {
	start time.Time
	stop  chan struct{}
	done  chan struct{}

	mu     sync.Mutex
	frames [][]byte
}

func (s *session) append(data []byte) {
	s.mu.Lock()
	s.frames = append(s.frames, data)
	s.mu.Unlock()
}

func New(capture audio.CaptureDevice, cfg Config) *Recorder {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	return &Recorder{
		capture:     capture,
		cfg:         cfg,
		now:         time.Now,
		autoStopped: make(chan Outcome, 1),
	}
}

// AutoStopped delivers sessions ended without a Toggle/Stop: ceiling or
// capture failure. The channel holds one outcome; the worker blocks until it
// is received.
func (r *Recorder) AutoStopped() <-chan Outcome {
	return r.autoStopped
}

func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Toggle starts a session when idle and stops the current one otherwise.
func (r *Recorder) Toggle() (Transition, Recording, error) {
	r.mu.Lock()
	s := r.active
	if s == nil {
		err := r.startLocked()
		r.mu.Unlock()
		return Started, Recording{}, err
	}
	r.releaseLocked()
	r.mu.Unlock()

	rec, err := r.finish(s, false)
	return Stopped, rec, err
}

// Start begins a session. Starting while active is a no-op.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil
	}
	return r.startLocked()
}

// Stop ends the current session and writes its artifact.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	s := r.active
	if s == nil {
		r.mu.Unlock()
		return Recording{}, ErrNotRecording
	}
	r.releaseLocked()
	r.mu.Unlock()
	return r.finish(s, false)
}

// releaseLocked detaches the active session and silences the device before
// the mutex is dropped, so a session started right after cannot be stopped
// by the previous one's cleanup.
func (r *Recorder) releaseLocked() {
	r.active = nil
	r.capture.Stop()
	r.capture.ClearCallback()
}

func (r *Recorder) startLocked() error {
	s := &session{
		start: r.now(),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	r.capture.SetCallback(func(data []byte, _ uint32) {
		s.append(data)
	})
	if err := r.capture.Start(); err != nil {
		r.capture.ClearCallback()
		log.Errorf("capture start failed on %s: %v", r.capture.DeviceName(), err)
		return fmt.Errorf("%w: %v", ErrCapture, err)
	}

	r.active = s
	if r.cfg.Cues != nil {
		go r.cfg.Cues.Start()
	}
	go r.watch(s)
	return nil
}

// watch ends the session on the ceiling or a capture failure unless
// Toggle/Stop claims it first.
func (r *Recorder) watch(s *session) {
	defer close(s.done)

	var tick <-chan time.Time
	if r.cfg.MaxDuration > 0 {
		ticker := time.NewTicker(r.cfg.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-s.stop:
			return
		case err := <-r.capture.Failed():
			if !r.claim(s) {
				return
			}
			log.Errorf("capture failed on %s: %v", r.capture.DeviceName(), err)
			r.discard(s)
			r.autoStopped <- Outcome{Err: fmt.Errorf("%w: %v", ErrCapture, err)}
			return
		case <-tick:
		}
		if r.now().Sub(s.start) < r.cfg.MaxDuration {
			continue
		}
		if !r.claim(s) {
			return
		}
		log.Infof("recording reached %s ceiling", r.cfg.MaxDuration)
		rec, err := r.finish(s, true)
		r.autoStopped <- Outcome{Recording: rec, Err: err}
		return
	}
}

// claim detaches s if it is still the active session.
func (r *Recorder) claim(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != s {
		return false
	}
	r.releaseLocked()
	return true
}

// discard drops a failed session's frames without writing an artifact.
func (r *Recorder) discard(s *session) {
	if r.cfg.Cues != nil {
		go r.cfg.Cues.Stop()
	}
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}

// finish runs once per session, by whichever path claimed it.
func (r *Recorder) finish(s *session, auto bool) (Recording, error) {
	if !auto {
		close(s.stop)
		<-s.done
	}
	if r.cfg.Cues != nil {
		go r.cfg.Cues.Stop()
	}

	s.mu.Lock()
	var pcm []byte
	for _, f := range s.frames {
		pcm = append(pcm, f...)
	}
	s.frames = nil
	s.mu.Unlock()

	samples := encoder.Samples(pcm)
	if len(samples) == 0 {
		return Recording{}, ErrNoAudio
	}

	path := filepath.Join(r.cfg.Dir, artifactName(r.now()))
	if err := encoder.WriteWAV(path, samples); err != nil {
		log.Errorf("writing recording: %v", err)
		return Recording{}, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return Recording{
		Path:        path,
		Duration:    encoder.Duration(len(samples)),
		AutoStopped: auto,
	}, nil
}

func artifactName(t time.Time) string {
	return fmt.Sprintf("voice_recording_%d_%s.wav", t.Unix(), uuid.NewString()[:8])
}
