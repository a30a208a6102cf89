//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"voicectrl/log"
)

var (
	playMu sync.Mutex
	client *pulse.Client
)

// playSamples plays one cue to completion. The pulse connection is opened on
// first use and reopened after a failed playback.
func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	playMu.Lock()
	defer playMu.Unlock()

	if client == nil {
		c, err := pulse.NewClient(pulse.ClientApplicationName("voice-ctrl"))
		if err != nil {
			log.Warnf("cue playback unavailable: %v", err)
			return
		}
		client = c
	}

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		log.Warnf("cue playback: %v", err)
		client.Close()
		client = nil
		return
	}
	defer stream.Close()
	stream.Start()
	stream.Drain()
	stream.Stop()
	if err := stream.Error(); err != nil {
		log.Warnf("cue playback: %v", err)
	}
}
