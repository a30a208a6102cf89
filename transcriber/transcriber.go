// Package transcriber turns a recorded WAV artifact into text, either through
// the hosted OpenAI-compatible API or a local whisper.cpp model.
package transcriber

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"voicectrl/config"
	"voicectrl/log"
)

var (
	ErrAuth         = errors.New("authentication failed")
	ErrTimeout      = errors.New("request timed out")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrConnection   = errors.New("connection failed")
	ErrAPI          = errors.New("transcription API error")
	ErrNotInstalled = errors.New("local speech engine not installed")
	ErrModelMissing = errors.New("speech model not found")
	ErrNoSpeech     = errors.New("no speech detected")
)

// Cleanup says what Transcribe does with the artifact when it returns.
type Cleanup int

const (
	Remove Cleanup = iota
	Keep
)

// Transcriber converts the WAV at path into text. A nil error always comes
// with non-empty text. Unless cleanup is Keep the artifact is gone when
// Transcribe returns, whatever the outcome.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, path string, cleanup Cleanup) (string, error)
}

// Warmer is implemented by backends that benefit from opening their
// connection while the user is still speaking.
type Warmer interface {
	Warm()
}

func discard(path string, cleanup Cleanup) {
	if cleanup == Keep || path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Errorf("removing artifact %s: %v", path, err)
	}
}

func joinSegments(segments []string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Select builds the configured primary backend and, for the local provider,
// a remote fallback when a credential is available.
func Select(cfg *config.Config) (primary, fallback Transcriber, err error) {
	remote := NewRemote(RemoteConfig{
		APIKey:   cfg.ResolvedAPIKey(),
		BaseURL:  cfg.APIBaseURL,
		Model:    cfg.RemoteModel,
		Language: cfg.Language,
		Format:   cfg.UploadFormat,
	})

	switch cfg.STTProvider {
	case config.ProviderLocal:
		engine, err := NewEngine(cfg.LocalEngine)
		if err != nil {
			log.Errorf("local engine: %v", err)
		}
		local := NewLocal(LocalConfig{
			ModelPath: cfg.LocalModelPath,
			ModelID:   cfg.LocalModelID,
			ModelsDir: cfg.ModelsDir(),
			Language:  cfg.Language,
			VAD:       true,
		}, engine)
		if cfg.ResolvedAPIKey() == "" {
			return local, nil, nil
		}
		return local, remote, nil
	case config.ProviderOpenAI, "":
		return remote, nil, nil
	default:
		return nil, nil, errors.New("unknown provider " + cfg.STTProvider)
	}
}
