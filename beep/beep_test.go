package beep

import (
	"testing"
	"time"
)

func TestRenderLength(t *testing.T) {
	tests := []struct {
		name string
		tone tone
		want int
	}{
		{"start", startTone, 800},
		{"stop", stopTone, 1200},
		{"error", errorTone, 640*2 + 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := len(tt.tone.render(8000))
			if got != tt.want {
				t.Errorf("len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRenderFadesAndVolume(t *testing.T) {
	s := tone{freq: 440, duration: 200 * time.Millisecond, repeat: 1}.render(sampleRate)
	if s[0] != 0 {
		t.Errorf("first sample = %d, want 0 (fade-in)", s[0])
	}
	if s[len(s)-1] != 0 {
		t.Errorf("last sample = %d, want 0 (fade-out)", s[len(s)-1])
	}
	limit := int16(32767 * volume)
	for i, v := range s {
		if v > limit || v < -limit {
			t.Fatalf("sample %d = %d exceeds volume limit %d", i, v, limit)
		}
	}
}

func TestSetEnabled(t *testing.T) {
	t.Cleanup(func() { SetEnabled(true) })
	SetEnabled(false)
	if Enabled() {
		t.Error("expected disabled")
	}
	PlayStart() // no device needed when disabled
}
