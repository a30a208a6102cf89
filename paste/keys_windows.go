//go:build windows

package paste

import "github.com/micmonay/keybd_event"

func setPasteModifier(kb *keybd_event.KeyBonding) { kb.HasCTRL(true) }

func settleDevice() {}
