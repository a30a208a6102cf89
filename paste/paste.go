// Package paste delivers text at the cursor by way of the clipboard and a
// synthesized paste keystroke, putting the user's clipboard back afterwards.
package paste

import (
	"time"

	"voicectrl/log"
)

const (
	DefaultSettleDelay  = 100 * time.Millisecond
	DefaultRestoreDelay = 100 * time.Millisecond
)

type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Keyboard sends the platform paste chord to the focused window.
type Keyboard interface {
	Paste() error
}

type Paster struct {
	clip         Clipboard
	keys         Keyboard
	settleDelay  time.Duration
	restoreDelay time.Duration
	restore      bool
	sleep        func(time.Duration)
}

type Option func(*Paster)

func WithDelays(settle, restore time.Duration) Option {
	return func(p *Paster) { p.settleDelay, p.restoreDelay = settle, restore }
}

// WithoutRestore leaves the pasted text on the clipboard.
func WithoutRestore() Option {
	return func(p *Paster) { p.restore = false }
}

func New(clip Clipboard, keys Keyboard, opts ...Option) *Paster {
	p := &Paster{
		clip:         clip,
		keys:         keys,
		settleDelay:  DefaultSettleDelay,
		restoreDelay: DefaultRestoreDelay,
		restore:      true,
		sleep:        time.Sleep,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Paste reports whether the keystroke was sent with text on the clipboard.
// Reading and restoring the previous contents are best effort.
func (p *Paster) Paste(text string) bool {
	if text == "" {
		return false
	}

	var previous string
	havePrevious := false
	if p.restore {
		prev, err := p.clip.Read()
		if err != nil {
			log.Warnf("reading clipboard before paste: %v", err)
		} else {
			previous, havePrevious = prev, true
		}
	}

	if err := p.clip.Write(text); err != nil {
		log.Errorf("copying transcription to clipboard: %v", err)
		return false
	}
	p.sleep(p.settleDelay)

	ok := true
	if err := p.keys.Paste(); err != nil {
		log.Errorf("sending paste keystroke: %v", err)
		ok = false
	}
	p.sleep(p.restoreDelay)

	// A failed keystroke leaves the text on the clipboard for a manual paste.
	if ok && havePrevious && previous != "" {
		if err := p.clip.Write(previous); err != nil {
			log.Warnf("restoring clipboard: %v", err)
		}
	}
	return ok
}
