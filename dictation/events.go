package dictation

import "sync"

// Events abstracts the display layer so the tray and the terminal status
// view receive the same recording/transcription events.
type Events interface {
	RecordingStart()
	Transcribing()
	Transcription(text string, pasted bool)
	Idle()
}

type NopEvents struct{}

func (NopEvents) RecordingStart()            {}
func (NopEvents) Transcribing()              {}
func (NopEvents) Transcription(string, bool) {}
func (NopEvents) Idle()                      {}

// MultiEvents fans every event out to each sink in order.
type MultiEvents []Events

func (m MultiEvents) RecordingStart() {
	for _, e := range m {
		e.RecordingStart()
	}
}

func (m MultiEvents) Transcribing() {
	for _, e := range m {
		e.Transcribing()
	}
}

func (m MultiEvents) Transcription(text string, pasted bool) {
	for _, e := range m {
		e.Transcription(text, pasted)
	}
}

func (m MultiEvents) Idle() {
	for _, e := range m {
		e.Idle()
	}
}

// Merge forwards every value from the inputs onto one channel, dropping a
// press when one is already pending. The result is closed once done closes.
func Merge(done <-chan struct{}, inputs ...<-chan struct{}) <-chan struct{} {
	out := make(chan struct{}, 1)
	var wg sync.WaitGroup
	for _, in := range inputs {
		wg.Add(1)
		go func(in <-chan struct{}) {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				case _, ok := <-in:
					if !ok {
						return
					}
					select {
					case out <- struct{}{}:
					default:
					}
				}
			}
		}(in)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
