package recorder

import (
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"voicectrl/audio"
	"voicectrl/encoder"
)

// tone returns n samples of non-zero PCM.
func tone(n int) []byte {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		pcm[i*2] = byte(i)
		pcm[i*2+1] = 0x10
	}
	return pcm
}

type countingCues struct {
	starts, stops atomic.Int32
}

func (c *countingCues) Start() { c.starts.Add(1) }
func (c *countingCues) Stop()  { c.stops.Add(1) }

func newRecorder(t *testing.T, fc *audio.FakeCapture, max time.Duration) *Recorder {
	t.Helper()
	return New(fc, Config{
		MaxDuration:  max,
		PollInterval: 5 * time.Millisecond,
		Dir:          t.TempDir(),
	})
}

func TestToggleTwiceProducesOneArtifact(t *testing.T) {
	fc := audio.NewFakeCapture(tone(encoder.SampleRate/2), 0)
	r := newRecorder(t, fc, time.Minute)

	tr, _, err := r.Toggle()
	if err != nil || tr != Started {
		t.Fatalf("first toggle = (%v, %v), want Started", tr, err)
	}
	if !r.Active() {
		t.Fatal("expected active after start")
	}

	tr, rec, err := r.Toggle()
	if err != nil || tr != Stopped {
		t.Fatalf("second toggle = (%v, %v), want Stopped", tr, err)
	}
	if r.Active() {
		t.Error("expected idle after stop")
	}
	if rec.AutoStopped {
		t.Error("manual stop flagged as auto")
	}
	if rec.Duration != 500*time.Millisecond {
		t.Errorf("duration = %v, want 500ms", rec.Duration)
	}

	samples, rate, err := encoder.ReadWAV(rec.Path)
	if err != nil {
		t.Fatalf("artifact unreadable: %v", err)
	}
	if rate != encoder.SampleRate || len(samples) != encoder.SampleRate/2 {
		t.Errorf("artifact rate=%d samples=%d", rate, len(samples))
	}

	entries, _ := os.ReadDir(r.cfg.Dir)
	if len(entries) != 1 {
		t.Errorf("%d files in artifact dir, want 1", len(entries))
	}
}

func TestEmptyCaptureIsNoAudio(t *testing.T) {
	fc := audio.NewFakeCapture(nil, 0)
	r := newRecorder(t, fc, time.Minute)

	if _, _, err := r.Toggle(); err != nil {
		t.Fatal(err)
	}
	tr, rec, err := r.Toggle()
	if tr != Stopped || !errors.Is(err, ErrNoAudio) {
		t.Fatalf("got (%v, %v), want Stopped/ErrNoAudio", tr, err)
	}
	if rec.Path != "" {
		t.Errorf("unexpected artifact %q", rec.Path)
	}
	if entries, _ := os.ReadDir(r.cfg.Dir); len(entries) != 0 {
		t.Errorf("files written for empty capture: %d", len(entries))
	}
}

func TestCeilingAutoStops(t *testing.T) {
	fc := audio.NewFakeCapture(tone(1600), 0)
	r := newRecorder(t, fc, 30*time.Millisecond)

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	select {
	case out := <-r.AutoStopped():
		if out.Err != nil {
			t.Fatalf("auto-stop error: %v", out.Err)
		}
		if !out.Recording.AutoStopped {
			t.Error("expected AutoStopped flag")
		}
		if _, err := os.Stat(out.Recording.Path); err != nil {
			t.Errorf("artifact missing: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ceiling did not stop the recording")
	}

	if r.Active() {
		t.Error("still active after auto-stop")
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop after auto-stop = %v, want ErrNotRecording", err)
	}
}

func TestStopRacingCeilingFinishesOnce(t *testing.T) {
	for i := 0; i < 20; i++ {
		fc := audio.NewFakeCapture(tone(320), 0)
		r := newRecorder(t, fc, 10*time.Millisecond)

		if err := r.Start(); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)

		finished := 0
		if _, err := r.Stop(); err == nil {
			finished++
		} else if !errors.Is(err, ErrNotRecording) {
			t.Fatalf("unexpected stop error: %v", err)
		}
		select {
		case <-r.AutoStopped():
			finished++
		case <-time.After(50 * time.Millisecond):
		}
		if finished != 1 {
			t.Fatalf("iteration %d: session finished %d times", i, finished)
		}
	}
}

func TestCaptureStartErrorStaysIdle(t *testing.T) {
	fc := audio.NewFakeCapture(tone(100), 0)
	fc.StartErr = errors.New("device unplugged")
	r := newRecorder(t, fc, time.Minute)

	tr, _, err := r.Toggle()
	if tr != Started || !errors.Is(err, ErrCapture) {
		t.Fatalf("got (%v, %v), want Started/ErrCapture", tr, err)
	}
	if r.Active() {
		t.Fatal("recorder left active after capture failure")
	}

	fc.StartErr = nil
	if tr, _, err := r.Toggle(); tr != Started || err != nil {
		t.Fatalf("retry = (%v, %v), want clean start", tr, err)
	}
	if !r.Active() {
		t.Error("expected active after retry")
	}
}

func TestStartWhileActiveIsNoop(t *testing.T) {
	fc := audio.NewFakeCapture(tone(100), 0)
	r := newRecorder(t, fc, time.Minute)

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if fc.Starts() != 1 {
		t.Errorf("capture started %d times, want 1", fc.Starts())
	}
	if _, err := r.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestCuesFire(t *testing.T) {
	cues := &countingCues{}
	fc := audio.NewFakeCapture(tone(100), 0)
	r := New(fc, Config{MaxDuration: time.Minute, Dir: t.TempDir(), Cues: cues})

	r.Toggle()
	r.Toggle()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cues.starts.Load() == 1 && cues.stops.Load() == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Errorf("cues: starts=%d stops=%d, want 1/1", cues.starts.Load(), cues.stops.Load())
}

func TestArtifactName(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a, b := artifactName(now), artifactName(now)
	if a == b {
		t.Errorf("names collide: %q", a)
	}
	if !strings.HasPrefix(a, "voice_recording_1700000000_") || !strings.HasSuffix(a, ".wav") {
		t.Errorf("unexpected name %q", a)
	}
}

func TestCaptureFailureEndsSession(t *testing.T) {
	fc := audio.NewFakeCapture(tone(1600), 0)
	r := newRecorder(t, fc, 0)
	cues := &countingCues{}
	r.cfg.Cues = cues

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	fc.Fail(errors.New("source removed"))

	select {
	case out := <-r.AutoStopped():
		if !errors.Is(out.Err, ErrCapture) {
			t.Errorf("err = %v, want ErrCapture", out.Err)
		}
		if out.Recording.Path != "" {
			t.Errorf("unexpected artifact %s", out.Recording.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("capture failure did not end the session")
	}
	if r.Active() {
		t.Error("still active after capture failure")
	}
	if entries, _ := os.ReadDir(r.cfg.Dir); len(entries) != 0 {
		t.Errorf("left %d files behind", len(entries))
	}

	// A failure from the dead stream must not end the next session.
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case out := <-r.AutoStopped():
		t.Fatalf("new session ended early: %+v", out)
	case <-time.After(30 * time.Millisecond):
	}
	if _, err := r.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestCaptureFailureAfterStopIgnored(t *testing.T) {
	fc := audio.NewFakeCapture(tone(1600), 0)
	r := newRecorder(t, fc, 0)

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Stop(); err != nil {
		t.Fatal(err)
	}
	fc.Fail(errors.New("late"))

	select {
	case out := <-r.AutoStopped():
		t.Fatalf("stopped session reported again: %+v", out)
	case <-time.After(30 * time.Millisecond):
	}
}
