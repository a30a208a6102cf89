package transcriber

import (
	"context"
	"sync"
)

// Fake returns a fixed result and records what it was asked to do. It
// follows the cleanup contract so callers can be tested against it.
type Fake struct {
	name string
	text string
	err  error

	mu    sync.Mutex
	calls []FakeCall
}

type FakeCall struct {
	Path    string
	Cleanup Cleanup
}

func NewFake(name, text string, err error) *Fake {
	return &Fake{name: name, text: text, err: err}
}

func (f *Fake) Name() string { return f.name }

func (f *Fake) Transcribe(_ context.Context, path string, cleanup Cleanup) (string, error) {
	defer discard(path, cleanup)

	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Path: path, Cleanup: cleanup})
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if f.text == "" {
		return "", ErrNoSpeech
	}
	return f.text, nil
}

func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
