package audio

// DataCallback receives little-endian 16-bit PCM as the device produces it.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// DefaultDeviceName labels a capture opened without an explicit device.
const DefaultDeviceName = "system default"

func deviceLabel(d *DeviceInfo) string {
	if d == nil {
		return DefaultDeviceName
	}
	return d.Name
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice is one input stream. Failed delivers an error when a started
// stream dies on its own (device unplugged, server gone); an explicit Stop
// never produces one.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
	Failed() <-chan error
}

// failures is the one-slot error channel behind Failed. A second failure
// before the first is consumed is dropped.
type failures chan error

func newFailures() failures { return make(failures, 1) }

func (f failures) report(err error) {
	select {
	case f <- err:
	default:
	}
}

// drain discards a failure left over from an earlier stream.
func (f failures) drain() {
	select {
	case <-f:
	default:
	}
}
