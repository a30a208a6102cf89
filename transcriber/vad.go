package transcriber

import (
	"encoding/binary"
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"voicectrl/encoder"
)

const (
	vadMode         = 2
	vadFrameMs      = 30
	vadFrameSamples = encoder.SampleRate * vadFrameMs / 1000 // 480
	vadDebounce     = 3                                      // consecutive speech frames to count as voice
	vadPadFrames    = 10                                     // context kept around speech, 300ms
)

// FilterSpeech drops the stretches of samples webrtcvad classifies as
// non-speech, keeping some context around each voiced run. It returns nil
// when nothing qualifies as speech.
func FilterSpeech(samples []int16) ([]int16, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("vad: %w", err)
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, fmt.Errorf("vad mode: %w", err)
	}

	n := len(samples) / vadFrameSamples
	flags := make([]bool, n)
	frame := make([]byte, vadFrameSamples*2)
	for i := 0; i < n; i++ {
		for j, s := range samples[i*vadFrameSamples : (i+1)*vadFrameSamples] {
			binary.LittleEndian.PutUint16(frame[j*2:], uint16(s))
		}
		active, err := v.Process(encoder.SampleRate, frame)
		if err != nil {
			return nil, fmt.Errorf("vad frame %d: %w", i, err)
		}
		flags[i] = active
	}

	mask := speechMask(flags, vadDebounce, vadPadFrames)
	var out []int16
	for i, keep := range mask {
		if keep {
			out = append(out, samples[i*vadFrameSamples:(i+1)*vadFrameSamples]...)
		}
	}
	return out, nil
}

// speechMask keeps voiced runs of at least minRun frames, widened by pad
// frames on both sides.
func speechMask(flags []bool, minRun, pad int) []bool {
	mask := make([]bool, len(flags))
	for i := 0; i < len(flags); {
		if !flags[i] {
			i++
			continue
		}
		j := i
		for j < len(flags) && flags[j] {
			j++
		}
		if j-i >= minRun {
			for k := max(i-pad, 0); k < min(j+pad, len(flags)); k++ {
				mask[k] = true
			}
		}
		i = j
	}
	return mask
}
