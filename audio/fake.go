package audio

import (
	"sync"
	"time"
)

const fakeChunkFrames = 1024

// FakeContext serves one FakeCapture backed by in-memory PCM.
type FakeContext struct {
	Capture *FakeCapture
	List    []DeviceInfo
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.List, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return f.Capture, nil
}

// FakeCapture replays pcm in 1024-frame chunks. With a zero interval the
// whole buffer is delivered synchronously inside Start; otherwise one chunk
// is delivered per interval. Each Start replays from the beginning.
type FakeCapture struct {
	StartErr error

	pcm      []byte
	interval time.Duration

	failed failures

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	drained  chan struct{}
	starts   int
}

func NewFakeCapture(pcm []byte, interval time.Duration) *FakeCapture {
	return &FakeCapture{pcm: pcm, interval: interval, drained: make(chan struct{}), failed: newFailures()}
}

// Drained is closed once the current replay has delivered every byte.
func (f *FakeCapture) Drained() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drained
}

func (f *FakeCapture) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string   { return "fake" }
func (f *FakeCapture) Failed() <-chan error { return f.failed }

// Fail simulates the running stream dying with err.
func (f *FakeCapture) Fail(err error) { f.failed.report(err) }

func (f *FakeCapture) deliver(pos int) int {
	end := min(pos+fakeChunkFrames*2, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])

	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(chunk, uint32(len(chunk)/2))
	}
	return end
}

func (f *FakeCapture) Start() error {
	if f.StartErr != nil {
		return f.StartErr
	}

	f.failed.drain()
	f.mu.Lock()
	f.starts++
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	drained := f.drained
	select {
	case <-drained:
		drained = make(chan struct{})
		f.drained = drained
	default:
	}
	stop, done := f.stopCh, f.feedDone
	f.mu.Unlock()

	if f.interval == 0 {
		for pos := 0; pos < len(f.pcm); {
			pos = f.deliver(pos)
		}
		close(drained)
		close(done)
		return nil
	}

	go func() {
		defer close(done)
		for pos := 0; pos < len(f.pcm); {
			select {
			case <-stop:
				return
			case <-time.After(f.interval):
			}
			pos = f.deliver(pos)
		}
		close(drained)
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, done := f.stopCh, f.feedDone
	f.stopCh = nil
	f.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (f *FakeCapture) Close() { f.Stop() }
