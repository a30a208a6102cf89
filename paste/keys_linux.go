//go:build linux

package paste

import (
	"time"

	"github.com/micmonay/keybd_event"
)

func setPasteModifier(kb *keybd_event.KeyBonding) { kb.HasCTRL(true) }

// uinput devices are ignored until udev and the compositor pick them up.
func settleDevice() { time.Sleep(2 * time.Second) }
