package hotkey

import "golang.design/x/hotkey"

func xModifier(m Modifier) hotkey.Modifier {
	switch m {
	case ModShift:
		return hotkey.ModShift
	case ModAlt:
		return hotkey.ModAlt
	case ModSuper:
		return hotkey.ModWin
	}
	return hotkey.ModCtrl
}
