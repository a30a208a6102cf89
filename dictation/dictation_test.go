package dictation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"voicectrl/audio"
	"voicectrl/encoder"
	"voicectrl/history"
	"voicectrl/notify"
	"voicectrl/recorder"
	"voicectrl/transcriber"
)

func tone(n int) []byte {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		pcm[i*2] = byte(i)
		pcm[i*2+1] = 0x10
	}
	return pcm
}

type fakePaster struct {
	mu     sync.Mutex
	pasted []string
}

func (p *fakePaster) Paste(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pasted = append(p.pasted, text)
	return true
}

func (p *fakePaster) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pasted...)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
	idle   chan struct{}
}

func (e *eventLog) add(s string) {
	e.mu.Lock()
	e.events = append(e.events, s)
	e.mu.Unlock()
}

func (e *eventLog) RecordingStart()            { e.add("start") }
func (e *eventLog) Transcribing()              { e.add("transcribing") }
func (e *eventLog) Transcription(string, bool) { e.add("text") }
func (e *eventLog) Idle() {
	e.add("idle")
	e.idle <- struct{}{}
}

func (e *eventLog) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

type fixture struct {
	dir     string
	rec     *recorder.Recorder
	paster  *fakePaster
	history *history.Store
	notes   *notify.Recorder
	events  *eventLog
	cues    int
}

func newFixture(t *testing.T, pcm []byte, max time.Duration) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := history.Open(filepath.Join(dir, "history.json"))
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		dir: dir,
		rec: recorder.New(audio.NewFakeCapture(pcm, 0), recorder.Config{
			MaxDuration:  max,
			PollInterval: 5 * time.Millisecond,
			Dir:          dir,
		}),
		paster:  &fakePaster{},
		history: store,
		notes:   &notify.Recorder{},
		events:  &eventLog{idle: make(chan struct{}, 8)},
	}
}

func (f *fixture) orchestrator(primary, fallback transcriber.Transcriber) *Orchestrator {
	return New(Config{
		Recorder: f.rec,
		Primary:  primary,
		Fallback: fallback,
		Paster:   f.paster,
		History:  f.history,
		Notifier: f.notes,
		Events:   f.events,
		ErrorCue: func() { f.cues++ },
	})
}

// artifacts lists WAV files left in the recording directory.
func (f *fixture) artifacts(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.wav"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func waitIdle(t *testing.T, e *eventLog) {
	t.Helper()
	select {
	case <-e.idle:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for idle")
	}
}

func TestToggleTwicePastesAndRecordsHistory(t *testing.T) {
	f := newFixture(t, tone(encoder.SampleRate), time.Minute)
	remote := transcriber.NewFake("openai", "hello world", nil)
	o := f.orchestrator(remote, nil)
	ctx := context.Background()

	o.Toggle(ctx)
	o.Toggle(ctx)

	if got := f.paster.list(); len(got) != 1 || got[0] != "hello world" {
		t.Errorf("pasted %q", got)
	}
	entries := f.history.Entries()
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}
	if entries[0].Text != "hello world" || entries[0].DurationSeconds != 1.0 {
		t.Errorf("entry = %+v", entries[0])
	}
	if len(f.notes.Sent()) != 0 {
		t.Errorf("unexpected notifications %+v", f.notes.Sent())
	}
	if calls := remote.Calls(); len(calls) != 1 || calls[0].Cleanup != transcriber.Remove {
		t.Errorf("calls = %+v, want one Remove call", calls)
	}
	if left := f.artifacts(t); len(left) != 0 {
		t.Errorf("artifacts left behind: %v", left)
	}
	want := []string{"start", "transcribing", "text", "idle"}
	if got := f.events.list(); len(got) != len(want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if o.Count() != 1 {
		t.Errorf("Count() = %d, want 1", o.Count())
	}
}

func TestEmptyRecordingNotifiesNoAudio(t *testing.T) {
	f := newFixture(t, nil, time.Minute)
	remote := transcriber.NewFake("openai", "unused", nil)
	o := f.orchestrator(remote, nil)
	ctx := context.Background()

	o.Toggle(ctx)
	o.Toggle(ctx)

	sent := f.notes.Sent()
	if len(sent) != 1 || sent[0].Kind != notify.KindNoAudio {
		t.Errorf("notifications = %+v, want one No Audio", sent)
	}
	if len(remote.Calls()) != 0 {
		t.Error("transcriber called without audio")
	}
	if f.history.Len() != 0 {
		t.Error("history entry written for empty recording")
	}
	if f.cues != 1 {
		t.Errorf("error cue played %d times, want 1", f.cues)
	}
	if got := f.events.list(); got[len(got)-1] != "idle" {
		t.Errorf("events = %v, want trailing idle", got)
	}
}

func TestAutoStopRunsPipeline(t *testing.T) {
	f := newFixture(t, tone(encoder.SampleRate/4), 20*time.Millisecond)
	remote := transcriber.NewFake("openai", "auto text", nil)
	o := f.orchestrator(remote, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	presses := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		o.Run(ctx, presses)
		close(done)
	}()

	presses <- struct{}{}
	waitIdle(t, f.events)

	if f.history.Len() != 1 {
		t.Fatalf("history has %d entries, want 1", f.history.Len())
	}
	if got := f.paster.list(); len(got) != 1 || got[0] != "auto text" {
		t.Errorf("pasted %q", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFallbackAfterLocalFailure(t *testing.T) {
	f := newFixture(t, tone(encoder.SampleRate/2), time.Minute)
	local := transcriber.NewFake("local", "", transcriber.ErrModelMissing)
	remote := transcriber.NewFake("openai", "from remote", nil)
	o := f.orchestrator(local, remote)
	ctx := context.Background()

	o.Toggle(ctx)
	o.Toggle(ctx)

	lc, rc := local.Calls(), remote.Calls()
	if len(lc) != 1 || lc[0].Cleanup != transcriber.Keep {
		t.Fatalf("local calls = %+v, want one Keep", lc)
	}
	if len(rc) != 1 || rc[0].Cleanup != transcriber.Remove || rc[0].Path != lc[0].Path {
		t.Fatalf("remote calls = %+v, want Remove on the same artifact", rc)
	}
	if len(f.notes.Sent()) != 0 {
		t.Errorf("notifications = %+v, want none", f.notes.Sent())
	}
	if f.history.Len() != 1 {
		t.Error("fallback text not recorded")
	}
	if _, err := os.Stat(lc[0].Path); !os.IsNotExist(err) {
		t.Error("artifact left after fallback")
	}
}

func TestBothBackendsFailNotifiesOnce(t *testing.T) {
	f := newFixture(t, tone(encoder.SampleRate/2), time.Minute)
	local := transcriber.NewFake("local", "", transcriber.ErrNotInstalled)
	remote := transcriber.NewFake("openai", "", transcriber.ErrRateLimit)
	o := f.orchestrator(local, remote)
	ctx := context.Background()

	o.Toggle(ctx)
	o.Toggle(ctx)

	sent := f.notes.Sent()
	if len(sent) != 1 {
		t.Fatalf("notifications = %+v, want exactly one", sent)
	}
	if sent[0].Kind != notify.KindRateLimit {
		t.Errorf("kind = %q, want %q", sent[0].Kind, notify.KindRateLimit)
	}
	if f.history.Len() != 0 || len(f.paster.list()) != 0 {
		t.Error("failed transcription reached paste or history")
	}
	if left := f.artifacts(t); len(left) != 0 {
		t.Errorf("artifacts left behind: %v", left)
	}
}

func TestPrimarySuccessWithFallbackRemovesArtifact(t *testing.T) {
	f := newFixture(t, tone(encoder.SampleRate/2), time.Minute)
	local := transcriber.NewFake("local", "local text", nil)
	remote := transcriber.NewFake("openai", "unused", nil)
	o := f.orchestrator(local, remote)
	ctx := context.Background()

	o.Toggle(ctx)
	o.Toggle(ctx)

	if len(remote.Calls()) != 0 {
		t.Error("fallback called after primary success")
	}
	if left := f.artifacts(t); len(left) != 0 {
		t.Errorf("artifacts left behind: %v", left)
	}
}

func TestCaptureStartFailure(t *testing.T) {
	f := newFixture(t, tone(100), time.Minute)
	fc := audio.NewFakeCapture(nil, 0)
	fc.StartErr = os.ErrPermission
	f.rec = recorder.New(fc, recorder.Config{MaxDuration: time.Minute, Dir: f.dir})
	o := f.orchestrator(transcriber.NewFake("openai", "x", nil), nil)

	o.Toggle(context.Background())

	sent := f.notes.Sent()
	if len(sent) != 1 || sent[0].Kind != notify.KindRecording {
		t.Errorf("notifications = %+v, want Recording Error", sent)
	}
	if f.rec.Active() {
		t.Error("recorder left active after capture failure")
	}
}

func TestCaptureFailureReturnsToIdle(t *testing.T) {
	f := newFixture(t, nil, 0)
	fc := audio.NewFakeCapture(tone(encoder.SampleRate/4), 0)
	f.rec = recorder.New(fc, recorder.Config{PollInterval: 5 * time.Millisecond, Dir: f.dir})
	o := f.orchestrator(transcriber.NewFake("openai", "never", nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	presses := make(chan struct{}, 1)
	go o.Run(ctx, presses)

	presses <- struct{}{}
	deadline := time.After(2 * time.Second)
	for !f.rec.Active() {
		select {
		case <-deadline:
			t.Fatal("recording never started")
		case <-time.After(time.Millisecond):
		}
	}
	fc.Fail(errors.New("source removed"))
	waitIdle(t, f.events)

	sent := f.notes.Sent()
	if len(sent) != 1 || sent[0].Kind != notify.KindRecording {
		t.Errorf("notifications = %+v, want one Recording Error", sent)
	}
	if f.rec.Active() {
		t.Error("recorder still active")
	}
	if f.history.Len() != 0 {
		t.Errorf("history has %d entries, want 0", f.history.Len())
	}
	if got := f.artifacts(t); len(got) != 0 {
		t.Errorf("artifacts left behind: %v", got)
	}
	if f.cues != 1 {
		t.Errorf("error cues = %d, want 1", f.cues)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{recorder.ErrNoAudio, notify.KindNoAudio},
		{transcriber.ErrNoSpeech, notify.KindNoAudio},
		{transcriber.ErrAuth, notify.KindInvalidKey},
		{transcriber.ErrTimeout, notify.KindTimeout},
		{transcriber.ErrRateLimit, notify.KindRateLimit},
		{transcriber.ErrConnection, notify.KindNetwork},
		{transcriber.ErrAPI, notify.KindAPI},
		{transcriber.ErrNotInstalled, notify.KindNotInstalled},
		{os.ErrClosed, notify.KindTranscription},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if kind, _ := describe(tt.err); kind != tt.kind {
				t.Errorf("describe(%v) = %q, want %q", tt.err, kind, tt.kind)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	a := make(chan struct{})
	b := make(chan struct{})
	done := make(chan struct{})
	out := Merge(done, a, b)

	a <- struct{}{}
	<-out
	b <- struct{}{}
	<-out

	close(done)
	select {
	case _, ok := <-out:
		if ok {
			t.Error("unexpected value after done")
		}
	case <-time.After(time.Second):
		t.Fatal("merged channel not closed")
	}
}
