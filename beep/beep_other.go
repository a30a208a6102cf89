//go:build !linux

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"voicectrl/encoder"
	"voicectrl/log"
)

var (
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	deviceOnce sync.Once

	// accessed from the device callback
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
	playMu  sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func setup() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("cue playback unavailable: %v", err)
		return
	}
	if err := initDevice(); err != nil {
		log.Warnf("cue playback device: %v", err)
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func dataCallback(out, _ []byte, frameCount uint32) {
	clear(out)
	buf := current.Load()
	if buf == nil {
		return
	}
	p := pos.Load()
	remaining := uint32(len(*buf)) - p
	if remaining == 0 {
		current.Store(nil)
		return
	}
	n := min(frameCount*2, remaining)
	copy(out[:n], (*buf)[p:p+n])
	pos.Store(p + n)
}

func playSamples(samples []int16) {
	deviceOnce.Do(setup)
	if malgoCtx == nil || device == nil || len(samples) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()

	device.Stop()
	buf := encoder.PCM(samples)
	pos.Store(0)
	current.Store(&buf)

	if err := device.Start(); err != nil {
		// device can go stale across sleep/wake
		device.Uninit()
		if err := initDevice(); err != nil {
			log.Warnf("cue playback device: %v", err)
			current.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			log.Warnf("cue playback: %v", err)
			current.Store(nil)
		}
	}
}
