package paste

import (
	"sync"

	"github.com/micmonay/keybd_event"
)

// Keystroke sends Ctrl+V, or Cmd+V on macOS, through keybd_event.
type Keystroke struct {
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

// Init creates the virtual keyboard. On Linux the device needs a moment
// before the compositor accepts its events, so call Init early.
func (k *Keystroke) Init() error {
	k.once.Do(func() {
		k.kb, k.err = keybd_event.NewKeyBonding()
		if k.err == nil {
			settleDevice()
		}
	})
	return k.err
}

func (k *Keystroke) Paste() error {
	if err := k.Init(); err != nil {
		return err
	}
	k.kb.Clear()
	k.kb.SetKeys(keybd_event.VK_V)
	setPasteModifier(&k.kb)
	return k.kb.Launching()
}
