package audio

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFindDevice(t *testing.T) {
	ctx := &FakeContext{List: []DeviceInfo{
		{ID: "1", Name: "Built-in Microphone"},
		{ID: "2", Name: "USB Audio Device"},
		{ID: "3", Name: "usb"},
	}}

	tests := []struct {
		name    string
		query   string
		wantID  string
		wantErr bool
	}{
		{"empty selects default", "", "", false},
		{"exact wins over substring", "usb", "3", false},
		{"case-insensitive substring", "built-in", "1", false},
		{"no match", "headset", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindDevice(ctx, tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			gotID := ""
			if got != nil {
				gotID = got.ID
			}
			if gotID != tt.wantID {
				t.Errorf("got %q, want %q", gotID, tt.wantID)
			}
		})
	}
}

func TestPickerKey(t *testing.T) {
	tests := []struct {
		name       string
		buf        []byte
		cursor     int
		wantCursor int
		wantAction pickerAction
	}{
		{"down arrow", []byte{0x1b, '[', 'B'}, 0, 1, pickerNone},
		{"down clamps", []byte{0x1b, '[', 'B'}, 2, 2, pickerNone},
		{"up arrow", []byte{0x1b, '[', 'A'}, 2, 1, pickerNone},
		{"up clamps", []byte{'k'}, 0, 0, pickerNone},
		{"vim down", []byte{'j'}, 1, 2, pickerNone},
		{"enter", []byte{'\r'}, 1, 1, pickerSelect},
		{"ctrl-c", []byte{3}, 1, 1, pickerCancel},
		{"other", []byte{'x'}, 1, 1, pickerNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, action := pickerKey(tt.buf, tt.cursor, 3)
			if cursor != tt.wantCursor || action != tt.wantAction {
				t.Errorf("got (%d, %d), want (%d, %d)", cursor, action, tt.wantCursor, tt.wantAction)
			}
		})
	}
}

func TestFakeCaptureSynchronous(t *testing.T) {
	pcm := make([]byte, 5000)
	fc := NewFakeCapture(pcm, 0)

	var got int
	fc.SetCallback(func(data []byte, frames uint32) {
		got += len(data)
	})
	if err := fc.Start(); err != nil {
		t.Fatal(err)
	}
	if got != len(pcm) {
		t.Errorf("delivered %d bytes, want %d", got, len(pcm))
	}
	select {
	case <-fc.Drained():
	default:
		t.Error("Drained not closed after synchronous replay")
	}
	fc.Stop()
	fc.Stop()
}

func TestFakeCaptureStopInterrupts(t *testing.T) {
	pcm := make([]byte, fakeChunkFrames*2*100)
	fc := NewFakeCapture(pcm, 5*time.Millisecond)

	var mu sync.Mutex
	var got int
	fc.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		got += len(data)
		mu.Unlock()
	})
	if err := fc.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	fc.Stop()

	mu.Lock()
	defer mu.Unlock()
	if got == 0 || got >= len(pcm) {
		t.Errorf("delivered %d bytes, want a partial replay", got)
	}
}

func TestFakeCaptureStartErr(t *testing.T) {
	fc := NewFakeCapture(nil, 0)
	fc.StartErr = errors.New("device busy")
	if err := fc.Start(); err == nil {
		t.Fatal("expected start error")
	}
	fc.Stop()
}

func TestDeviceLabel(t *testing.T) {
	if got := deviceLabel(nil); got != DefaultDeviceName {
		t.Errorf("deviceLabel(nil) = %q, want %q", got, DefaultDeviceName)
	}
	if got := deviceLabel(&DeviceInfo{ID: "7", Name: "USB Mic"}); got != "USB Mic" {
		t.Errorf("deviceLabel = %q, want USB Mic", got)
	}
}
