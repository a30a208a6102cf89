// Package beep plays the short cues that mark recording start and stop.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const (
	sampleRate = 44100
	volume     = 0.3
	fade       = 10 * time.Millisecond
)

type tone struct {
	freq     float64
	duration time.Duration
	repeat   int
	gap      time.Duration
}

var (
	startTone = tone{freq: 800, duration: 100 * time.Millisecond, repeat: 1}
	stopTone  = tone{freq: 400, duration: 150 * time.Millisecond, repeat: 1}
	errorTone = tone{freq: 300, duration: 80 * time.Millisecond, repeat: 2, gap: 50 * time.Millisecond}
)

var enabled atomic.Bool

func init() { enabled.Store(true) }

// SetEnabled mirrors the audio_feedback_enabled setting.
func SetEnabled(v bool) { enabled.Store(v) }

func Enabled() bool { return enabled.Load() }

// render produces mono samples: a sine with linear fade-in and fade-out so
// the cue does not click.
func (t tone) render(rate int) []int16 {
	n := int(float64(rate) * t.duration.Seconds())
	fadeN := min(int(float64(rate)*fade.Seconds()), n/2)
	one := make([]int16, n)
	for i := range one {
		env := 1.0
		if i < fadeN {
			env = float64(i) / float64(fadeN)
		} else if i >= n-fadeN {
			env = float64(n-1-i) / float64(fadeN)
		}
		s := math.Sin(2*math.Pi*t.freq*float64(i)/float64(rate)) * volume * env
		one[i] = int16(s * 32767)
	}

	gap := make([]int16, int(float64(rate)*t.gap.Seconds()))
	out := make([]int16, 0, t.repeat*(n+len(gap)))
	for r := 0; r < t.repeat; r++ {
		if r > 0 {
			out = append(out, gap...)
		}
		out = append(out, one...)
	}
	return out
}

var (
	cueOnce sync.Once
	cues    map[string][]int16
)

func samples(name string) []int16 {
	cueOnce.Do(func() {
		cues = map[string][]int16{
			"start": startTone.render(sampleRate),
			"stop":  stopTone.render(sampleRate),
			"error": errorTone.render(sampleRate),
		}
	})
	return cues[name]
}

func play(name string) {
	if !enabled.Load() {
		return
	}
	playSamples(samples(name))
}

// PlayStart and friends block until the cue has been handed to the output
// device. Callers that must not stall run them on their own goroutine.
func PlayStart() { play("start") }
func PlayEnd()   { play("stop") }
func PlayError() { play("error") }

// Player adapts the package functions to the recorder's cue interface.
type Player struct{}

func (Player) Start() { PlayStart() }
func (Player) Stop()  { PlayEnd() }
