package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"voicectrl/encoder"
	"voicectrl/log"
)

const DefaultModelID = "base"

// Engine loads a speech model from a file.
type Engine interface {
	Load(path string) (Model, error)
}

// Model decodes 16 kHz mono float samples into text segments.
type Model interface {
	Transcribe(samples []float32, language string) ([]string, error)
	Close() error
}

type LocalConfig struct {
	ModelPath string // explicit model file, wins over ModelID
	ModelID   string // resolved to ggml-<id>.bin inside ModelsDir
	ModelsDir string
	Language  string
	VAD       bool
}

// Local runs a model in-process. The model is loaded on first use and kept
// for the life of the process; a failed load is retried on the next call.
type Local struct {
	cfg    LocalConfig
	engine Engine

	mu    sync.Mutex
	model Model
}

// NewLocal accepts a nil engine; Transcribe then reports ErrNotInstalled.
func NewLocal(cfg LocalConfig, engine Engine) *Local {
	return &Local{cfg: cfg, engine: engine}
}

func (l *Local) Name() string { return "local" }

// ResolveModel picks the model file: explicit path, else named id, else the
// default id.
func ResolveModel(path, id, dir string) string {
	if path != "" {
		return path
	}
	if id == "" {
		id = DefaultModelID
	}
	return filepath.Join(dir, "ggml-"+id+".bin")
}

func (l *Local) load() (Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model != nil {
		return l.model, nil
	}
	if l.engine == nil {
		return nil, ErrNotInstalled
	}

	path := ResolveModel(l.cfg.ModelPath, l.cfg.ModelID, l.cfg.ModelsDir)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModelMissing, path)
	}
	m, err := l.engine.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}
	log.Infof("loaded local model %s", path)
	l.model = m
	return m, nil
}

func (l *Local) Transcribe(ctx context.Context, path string, cleanup Cleanup) (string, error) {
	defer discard(path, cleanup)

	model, err := l.load()
	if err != nil {
		return "", err
	}

	samples, rate, err := encoder.ReadWAV(path)
	if err != nil {
		return "", fmt.Errorf("reading artifact: %w", err)
	}
	if rate != encoder.SampleRate {
		return "", fmt.Errorf("artifact sample rate %d, want %d", rate, encoder.SampleRate)
	}

	if l.cfg.VAD {
		samples, err = FilterSpeech(samples)
		if err != nil {
			return "", err
		}
	}
	if len(samples) == 0 {
		return "", ErrNoSpeech
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Model runs on the calling goroutine and holds the model for its
	// duration; whisper contexts are not safe for concurrent use.
	l.mu.Lock()
	segments, err := model.Transcribe(encoder.Float32(samples), l.cfg.Language)
	l.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("local transcription: %w", err)
	}

	text := joinSegments(segments)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// Close releases the model if it was loaded.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return nil
	}
	err := l.model.Close()
	l.model = nil
	return err
}
