package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"voicectrl/encoder"
	"voicectrl/log"
)

const DefaultRemoteTimeout = 30 * time.Second

type RemoteConfig struct {
	APIKey   string
	BaseURL  string // OpenAI-compatible endpoint, e.g. https://api.openai.com/v1
	Model    string
	Language string
	Format   string // "wav" uploads the artifact as is, "flac" compresses it first
	Timeout  time.Duration
}

type Remote struct {
	cfg    RemoteConfig
	trace  *tracer
	client *openai.Client
}

func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Format == "" {
		cfg.Format = "wav"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}

	tr := newTracer()
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = tr.Client()

	return &Remote{cfg: cfg, trace: tr, client: openai.NewClientWithConfig(oc)}
}

func (r *Remote) Name() string { return "openai" }

func (r *Remote) Warm() {
	if r.cfg.APIKey == "" {
		return
	}
	r.trace.Warm(r.cfg.BaseURL)
}

func (r *Remote) Transcribe(ctx context.Context, path string, cleanup Cleanup) (string, error) {
	defer discard(path, cleanup)

	if r.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrAuth)
	}

	req := openai.AudioRequest{
		Model:    r.cfg.Model,
		FilePath: path,
		Language: r.cfg.Language,
		Format:   openai.AudioResponseFormatJSON,
	}

	var audioS, uploadKB float64
	switch r.cfg.Format {
	case "flac":
		samples, _, err := encoder.ReadWAV(path)
		if err != nil {
			return "", fmt.Errorf("reading artifact: %w", err)
		}
		data, err := encoder.EncodeFLAC(samples)
		if err != nil {
			return "", fmt.Errorf("encoding flac: %w", err)
		}
		req.Reader = bytes.NewReader(data)
		req.FilePath = "audio.flac"
		audioS = encoder.Duration(len(samples)).Seconds()
		uploadKB = float64(len(data)) / 1024
	default:
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("reading artifact: %w", err)
		}
		uploadKB = float64(info.Size()) / 1024
		audioS = encoder.Duration(int(info.Size()-44) / 2).Seconds()
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	resp, err := r.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", classify(err)
	}

	m := r.trace.Last()
	log.TranscriptionMetrics(log.Metrics{
		Provider:    r.Name(),
		Format:      r.cfg.Format,
		AudioS:      audioS,
		UploadKB:    uploadKB,
		DNSTimeMs:   ms(m.DNS),
		ConnTimeMs:  ms(m.Connect),
		TLSTimeMs:   ms(m.TLS),
		TTFBMs:      ms(m.TTFB),
		TotalTimeMs: ms(m.Total),
		ConnReused:  m.ConnReused,
		TLSProto:    m.TLSProtocol,
	})
	if rl := resp.Header().Get("x-ratelimit-remaining-requests"); rl != "" {
		log.Infof("rate limit remaining: %s", rl)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// classify maps SDK and transport errors onto the package sentinels while
// keeping the original error in the chain.
func classify(err error) error {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &apiErr):
		return byStatus(apiErr.HTTPStatusCode, err)
	case errors.As(err, &reqErr):
		return byStatus(reqErr.HTTPStatusCode, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrConnection, err)
	default:
		return fmt.Errorf("%w: %w", ErrAPI, err)
	}
}

func byStatus(code int, err error) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrAuth, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimit, err)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrAPI, err)
	}
}
