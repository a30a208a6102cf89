//go:build linux

package hotkey

import "testing"

func mustChord(t *testing.T, s string) *chord {
	t.Helper()
	sc, err := Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	c, err := newChord(sc)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestChordCtrlShiftSpace(t *testing.T) {
	c := mustChord(t, "<ctrl>+<shift>+<space>")

	if got := c.event(57, keyPress); got != 0 {
		t.Fatalf("space alone fired %d", got)
	}
	c.event(57, keyRelease)

	c.event(29, keyPress)
	c.event(54, keyPress)
	if got := c.event(57, keyPress); got != 1 {
		t.Fatalf("chord press = %d, want 1", got)
	}
	if got := c.event(57, 2); got != 0 {
		t.Errorf("autorepeat = %d, want 0", got)
	}
	if got := c.event(57, keyRelease); got != -1 {
		t.Errorf("release = %d, want -1", got)
	}
}

func TestChordExtraModifierDoesNotFire(t *testing.T) {
	c := mustChord(t, "ctrl+space")
	c.event(29, keyPress)
	c.event(56, keyPress)
	if got := c.event(57, keyPress); got != 0 {
		t.Errorf("ctrl+alt+space fired %d for ctrl+space", got)
	}
}

func TestChordBothSidesOfModifier(t *testing.T) {
	c := mustChord(t, "ctrl+r")
	c.event(29, keyPress)
	c.event(97, keyPress)
	c.event(29, keyRelease)
	if got := c.event(19, keyPress); got != 1 {
		t.Errorf("right ctrl still held, got %d", got)
	}
}
