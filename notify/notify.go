// Package notify shows desktop notifications for failures the user needs to
// know about. Delivery is best effort and never blocks the caller.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"

	"voicectrl/log"
)

const titlePrefix = "Voice Control - "

const (
	KindNoAudio       = "No Audio"
	KindInvalidKey    = "Invalid API Key"
	KindTimeout       = "Network Timeout"
	KindRateLimit     = "Rate Limit"
	KindNetwork       = "Network Error"
	KindAPI           = "API Failure"
	KindTranscription = "Transcription Error"
	KindNotInstalled  = "Local STT not installed"
	KindConfiguration = "Configuration Error"
	KindRecording     = "Recording Error"
)

// Notifier is what the rest of the program depends on.
type Notifier interface {
	Error(kind, message string)
}

type Desktop struct {
	send func(title, message string) error
	wg   sync.WaitGroup
}

func NewDesktop() *Desktop {
	return &Desktop{send: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

func Title(kind string) string { return titlePrefix + kind }

func (d *Desktop) Error(kind, message string) {
	title := Title(kind)
	log.Errorf("%s: %s", title, message)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.send(title, message); err != nil {
			log.Warnf("notification failed: %v", err)
		}
	}()
}

// Wait blocks until notifications already handed off have been sent.
func (d *Desktop) Wait() { d.wg.Wait() }

// Recorder collects notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

type Sent struct {
	Kind    string
	Message string
}

func (r *Recorder) Error(kind, message string) {
	r.mu.Lock()
	r.sent = append(r.sent, Sent{kind, message})
	r.mu.Unlock()
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}
