//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"voicectrl/log"
)

// Pulse sources are quiet compared to CoreAudio; this keeps speech levels
// in a range both the VAD and the remote models handle well.
const pulseGain = 4

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("voice-ctrl"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(sources))
	for _, s := range sources {
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &pulseCapture{client: p.client, device: device, config: config, failed: newFailures()}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

type pulseCapture struct {
	client   *pulse.Client
	device   *DeviceInfo
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]
	failed   failures

	mu      sync.Mutex
	stream  *pulse.RecordStream
	monitor chan struct{}
}

const monitorInterval = 200 * time.Millisecond

// amplify applies gain with clipping and packs the result as little-endian
// PCM, the form every DataCallback receives.
func amplify(buf []int16, gain int32) []byte {
	data := make([]byte, len(buf)*2)
	for i, s := range buf {
		v := min(max(int32(s)*gain, -32768), 32767)
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
	}
	return data
}

func (c *pulseCapture) recordOptions() ([]pulse.RecordOption, error) {
	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordLatency(0.05),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			r.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	}
	if c.device == nil {
		return opts, nil
	}
	source, err := c.client.SourceByID(c.device.ID)
	if err != nil {
		return nil, fmt.Errorf("pulse source %q: %w", c.device.Name, err)
	}
	return append(opts, pulse.RecordSource(source)), nil
}

// Start opens a fresh record stream; pulse streams cannot be restarted once
// stopped.
func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return fmt.Errorf("pulse capture already running")
	}

	opts, err := c.recordOptions()
	if err != nil {
		return err
	}
	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		if cb := c.callback.Load(); cb != nil && len(buf) > 0 {
			(*cb)(amplify(buf, pulseGain), uint32(len(buf)))
		}
		return len(buf), nil
	})
	stream, err := c.client.NewRecord(writer, opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}
	c.failed.drain()
	stream.Start()
	c.stream = stream
	c.monitor = make(chan struct{})
	go c.watch(stream, c.monitor)
	return nil
}

// watch reports a stream the server ended while it was still wanted.
func (c *pulseCapture) watch(stream *pulse.RecordStream, quit <-chan struct{}) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
		}
		if err := stream.Error(); err != nil {
			log.Errorf("pulse capture on %s: %v", c.DeviceName(), err)
			c.failed.report(fmt.Errorf("pulse capture: %w", err))
			return
		}
	}
}

// Stop returns once the server has stopped delivering data.
func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}
	close(c.monitor)
	c.stream.Stop()
	if err := c.stream.Error(); err != nil {
		log.Warnf("pulse capture on %s: %v", c.DeviceName(), err)
	}
	c.stream.Close()
	c.stream, c.monitor = nil, nil
}

func (c *pulseCapture) Failed() <-chan error { return c.failed }

func (c *pulseCapture) Close() {
	c.Stop()
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *pulseCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *pulseCapture) DeviceName() string {
	return deviceLabel(c.device)
}
