package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const FileName = "voice-ctrl.log"

var (
	logger   zerolog.Logger
	logFile  *os.File
	logMu    sync.Mutex
	logReady bool
	verbose  bool
	pid      int
	dir      string
)

// Metrics is one remote request as seen by the traced HTTP client.
type Metrics struct {
	Provider    string
	Format      string
	AudioS      float64
	UploadKB    float64
	DNSTimeMs   float64
	ConnTimeMs  float64
	TLSTimeMs   float64
	TTFBMs      float64
	TotalTimeMs float64
	ConnReused  bool
	TLSProto    string
}

// ResolveDir picks the log directory: the -logpath flag, then
// VOICECTRL_LOG_PATH, then fallback (the config directory).
func ResolveDir(flagPath, fallback string) (string, error) {
	for _, p := range []string{flagPath, os.Getenv("VOICECTRL_LOG_PATH"), fallback} {
		if p != "" {
			return absolute(p)
		}
	}
	return "", fmt.Errorf("no log directory")
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func Path() string {
	return filepath.Join(dir, FileName)
}

// SetVerbose lowers the file threshold from error to info. Call before Init.
func SetVerbose(v bool) {
	verbose = v
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	f, err := os.OpenFile(Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	logFile = f

	level := zerolog.ErrorLevel
	if verbose {
		level = zerolog.InfoLevel
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        logFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	logger = zerolog.New(consoleWriter).Level(level).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		logger.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		logger.Info().Msgf(format, args...)
	}
}

func Error(msg string) {
	if logReady {
		logger.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		logger.Error().Msgf(format, args...)
	}
}

func Warn(msg string) {
	if logReady {
		logger.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		logger.Warn().Msgf(format, args...)
	}
}

func TranscriptionMetrics(m Metrics) {
	if !logReady {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	ev := logger.Info().
		Str("provider", m.Provider).
		Str("format", m.Format).
		Str("conn", connStatus)
	if m.TLSProto != "" {
		ev = ev.Str("tls_proto", m.TLSProto)
	}
	ev.Float64("audio_s", m.AudioS).
		Float64("upload_kb", m.UploadKB).
		Float64("dns_ms", m.DNSTimeMs).
		Float64("conn_ms", m.ConnTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalTimeMs).
		Msg("transcription")
}

func SessionStart(provider, shortcut string) {
	if !logReady {
		return
	}
	logger.Info().
		Str("provider", provider).
		Str("shortcut", shortcut).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	logger.Info().
		Int("count", count).
		Msg("session_end")
}
