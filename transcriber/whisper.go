//go:build whisper

package transcriber

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

func newWhisperEngine() (Engine, error) {
	return whisperEngine{}, nil
}

type whisperEngine struct{}

func (whisperEngine) Load(path string) (Model, error) {
	m, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return &whisperModel{model: m}, nil
}

type whisperModel struct {
	model whisper.Model
}

func (w *whisperModel) Transcribe(samples []float32, language string) ([]string, error) {
	ctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper context: %w", err)
	}
	if language == "" {
		language = "auto"
	}
	if err := ctx.SetLanguage(strings.ToLower(language)); err != nil {
		return nil, fmt.Errorf("whisper language %q: %w", language, err)
	}
	ctx.SetThreads(uint(runtime.NumCPU()))

	var segments []string
	err = ctx.Process(samples, nil, func(s whisper.Segment) {
		segments = append(segments, s.Text)
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("whisper process: %w", err)
	}
	return segments, nil
}

func (w *whisperModel) Close() error {
	return w.model.Close()
}
