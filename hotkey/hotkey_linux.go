//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

var modifierCodes = map[Modifier][]uint16{
	ModCtrl:  {29, 97},
	ModShift: {42, 54},
	ModAlt:   {56, 100},
	ModSuper: {125, 126},
}

var keyCodes = map[string]uint16{
	"a": 30, "b": 48, "c": 46, "d": 32, "e": 18, "f": 33, "g": 34,
	"h": 35, "i": 23, "j": 36, "k": 37, "l": 38, "m": 50, "n": 49,
	"o": 24, "p": 25, "q": 16, "r": 19, "s": 31, "t": 20, "u": 22,
	"v": 47, "w": 17, "x": 45, "y": 21, "z": 44,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"space": 57, "enter": 28, "tab": 15, "esc": 1,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
}

// chord tracks modifier and key state for one keyboard device.
type chord struct {
	sc      Shortcut
	key     uint16
	modOf   map[uint16]Modifier
	held    map[Modifier]int
	keyHeld bool
}

func newChord(sc Shortcut) (*chord, error) {
	code, ok := keyCodes[sc.Key]
	if !ok {
		return nil, fmt.Errorf("%w: no evdev code for %q", ErrInvalidShortcut, sc.Key)
	}
	c := &chord{sc: sc, key: code, modOf: make(map[uint16]Modifier), held: make(map[Modifier]int)}
	for m, codes := range modifierCodes {
		for _, code := range codes {
			c.modOf[code] = m
		}
	}
	return c, nil
}

func (c *chord) modsMatch() bool {
	for m := range modifierCodes {
		if (c.held[m] > 0) != c.sc.Has(m) {
			return false
		}
	}
	return true
}

// event returns +1 when the chord goes down and -1 when its key is released.
func (c *chord) event(code uint16, value int32) int {
	if m, ok := c.modOf[code]; ok {
		switch value {
		case keyPress:
			c.held[m]++
		case keyRelease:
			if c.held[m] > 0 {
				c.held[m]--
			}
		}
		return 0
	}
	if code != c.key {
		return 0
	}
	switch {
	case value == keyPress && !c.keyHeld && c.modsMatch():
		c.keyHeld = true
		return 1
	case value == keyRelease && c.keyHeld:
		c.keyHeld = false
		return -1
	}
	return 0
}

type evdevHotkey struct {
	sc      Shortcut
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

// New reads /dev/input directly, which works under both X11 and Wayland.
// The user must be in the 'input' group.
func New(sc Shortcut) (Hotkey, error) {
	if _, err := newChord(sc); err != nil {
		return nil, err
	}
	return &evdevHotkey{
		sc:      sc,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}, nil
}

func (h *evdevHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		c, _ := newChord(h.sc)
		go h.readEvents(f, c)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

func (h *evdevHotkey) readEvents(f *os.File, c *chord) {
	buf := make([]byte, inputEventSize*16)

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			if evType != evKey {
				continue
			}
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			switch c.event(evCode, evValue) {
			case 1:
				select {
				case h.keydown <- struct{}{}:
				default:
				}
			case -1:
				select {
				case h.keyup <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (h *evdevHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *evdevHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *evdevHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

func Diagnose(sc Shortcut) (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%s via evdev, %d keyboard(s) found, opened %s", sc, len(keyboards), opened), nil
}
