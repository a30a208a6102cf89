//go:build !whisper

package transcriber

import "fmt"

func newWhisperEngine() (Engine, error) {
	return nil, fmt.Errorf("%w: build with -tags whisper", ErrNotInstalled)
}
