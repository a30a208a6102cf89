package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidShortcut = errors.New("invalid shortcut")

type Modifier int

const (
	ModCtrl Modifier = iota
	ModShift
	ModAlt
	ModSuper
)

func (m Modifier) String() string {
	switch m {
	case ModCtrl:
		return "ctrl"
	case ModShift:
		return "shift"
	case ModAlt:
		return "alt"
	case ModSuper:
		return "super"
	}
	return fmt.Sprintf("modifier(%d)", int(m))
}

// Shortcut is a key combination such as "<ctrl>+<shift>+<space>".
type Shortcut struct {
	Mods []Modifier
	Key  string
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"win":     ModSuper,
	"meta":    ModSuper,
}

var namedKeys = map[string]string{
	"space":  "space",
	"enter":  "enter",
	"return": "enter",
	"tab":    "tab",
	"esc":    "esc",
	"escape": "esc",
}

// Parse accepts both "<ctrl>+<shift>+<space>" and "ctrl+shift+space". Exactly
// one non-modifier key is required.
func Parse(s string) (Shortcut, error) {
	var sc Shortcut
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	seen := make(map[Modifier]bool)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimSuffix(strings.TrimPrefix(p, "<"), ">")
		if p == "" {
			return Shortcut{}, fmt.Errorf("%w: empty component in %q", ErrInvalidShortcut, s)
		}
		if m, ok := modifierNames[p]; ok {
			if !seen[m] {
				seen[m] = true
				sc.Mods = append(sc.Mods, m)
			}
			continue
		}
		key, ok := normalizeKey(p)
		if !ok {
			return Shortcut{}, fmt.Errorf("%w: unknown key %q", ErrInvalidShortcut, p)
		}
		if sc.Key != "" {
			return Shortcut{}, fmt.Errorf("%w: more than one key in %q", ErrInvalidShortcut, s)
		}
		sc.Key = key
	}
	if sc.Key == "" {
		return Shortcut{}, fmt.Errorf("%w: no key in %q", ErrInvalidShortcut, s)
	}
	return sc, nil
}

func normalizeKey(p string) (string, bool) {
	if k, ok := namedKeys[p]; ok {
		return k, true
	}
	if len(p) == 1 && (p[0] >= 'a' && p[0] <= 'z' || p[0] >= '0' && p[0] <= '9') {
		return p, true
	}
	if len(p) >= 2 && p[0] == 'f' {
		n := 0
		for _, c := range p[1:] {
			if c < '0' || c > '9' {
				return "", false
			}
			n = n*10 + int(c-'0')
		}
		if n >= 1 && n <= 12 {
			return p, true
		}
	}
	return "", false
}

func (s Shortcut) Has(m Modifier) bool {
	for _, have := range s.Mods {
		if have == m {
			return true
		}
	}
	return false
}

func (s Shortcut) String() string {
	var b strings.Builder
	for _, m := range s.Mods {
		b.WriteString("<" + m.String() + ">+")
	}
	b.WriteString("<" + s.Key + ">")
	return b.String()
}
