// Package config loads and persists the voice-ctrl settings file.
//
// The file on disk always ends up with the full key set after Load: missing
// keys are filled from Default and the file is rewritten. A file that cannot
// be used is moved aside and replaced by defaults.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	FileName    = "config.json"
	HistoryFile = "history.json"

	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	EngineWhisperCpp = "whisper.cpp"

	FormatWAV  = "wav"
	FormatFLAC = "flac"

	DefaultShortcut = "<ctrl>+<shift>+<space>"
	DefaultBaseURL  = "https://api.openai.com/v1"
)

// ErrInvalid marks a config file that was replaced by defaults.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	APIKey               string  `json:"api_key"`
	MaxDurationSeconds   float64 `json:"max_duration_seconds"`
	AudioFeedbackEnabled bool    `json:"audio_feedback_enabled"`
	KeyboardShortcut     string  `json:"keyboard_shortcut"`
	STTProvider          string  `json:"stt_provider"`
	LocalEngine          string  `json:"local_engine"`
	LocalModelPath       string  `json:"local_model_path"`
	LocalModelID         string  `json:"local_model_id"`
	Language             string  `json:"language"`
	RemoteModel          string  `json:"remote_model"`
	APIBaseURL           string  `json:"api_base_url"`
	UploadFormat         string  `json:"upload_format"`
	InputDevice          string  `json:"input_device"`

	path  string
	extra map[string]json.RawMessage
}

func Default() *Config {
	return &Config{
		MaxDurationSeconds:   240,
		AudioFeedbackEnabled: true,
		KeyboardShortcut:     DefaultShortcut,
		STTProvider:          ProviderOpenAI,
		LocalEngine:          EngineWhisperCpp,
		Language:             "en",
		RemoteModel:          "whisper-1",
		APIBaseURL:           DefaultBaseURL,
		UploadFormat:         FormatWAV,
	}
}

func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return filepath.Abs(flagPath)
	}
	if env := os.Getenv("VOICECTRL_CONFIG_DIR"); env != "" {
		return filepath.Abs(env)
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "voice-ctrl"), nil
}

// Load reads dir/config.json. The returned Config is never nil: on any
// error it holds usable values, and errors.Is(err, ErrInvalid) reports that
// the file was replaced by defaults.
func Load(dir string) (*Config, error) {
	// Credentials may come from the environment instead of the file.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg := Default()
	cfg.path = filepath.Join(dir, FileName)

	data, err := os.ReadFile(cfg.path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, cfg.Save()
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if derr := cfg.decode(data); derr != nil {
		fallback := Default()
		fallback.path = cfg.path
		if err := os.Rename(cfg.path, cfg.path+".bak"); err != nil {
			return fallback, fmt.Errorf("%w: %v (backup failed: %v)", ErrInvalid, derr, err)
		}
		if err := fallback.Save(); err != nil {
			return fallback, fmt.Errorf("%w: %v (rewrite failed: %v)", ErrInvalid, derr, err)
		}
		return fallback, fmt.Errorf("%w: %v", ErrInvalid, derr)
	}

	if err := cfg.Save(); err != nil {
		return cfg, fmt.Errorf("rewrite config: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("config is not a JSON object")
	}

	// openai_api_key predates provider selection. It wins over a missing or
	// empty api_key.
	if legacy, ok := raw["openai_api_key"]; ok {
		var current string
		if v, has := raw["api_key"]; has {
			_ = json.Unmarshal(v, &current)
		}
		if current == "" {
			raw["api_key"] = legacy
		}
		delete(raw, "openai_api_key")
	}

	known := knownKeys()
	for k, v := range raw {
		if !known[k] {
			if c.extra == nil {
				c.extra = make(map[string]json.RawMessage)
			}
			c.extra[k] = v
		}
	}

	merged, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(merged, c); err != nil {
		return err
	}
	return c.Validate()
}

func knownKeys() map[string]bool {
	data, _ := json.Marshal(Default())
	var m map[string]json.RawMessage
	_ = json.Unmarshal(data, &m)
	keys := make(map[string]bool, len(m))
	for k := range m {
		keys[k] = true
	}
	return keys
}

func (c *Config) Validate() error {
	if c.MaxDurationSeconds <= 0 {
		return fmt.Errorf("max_duration_seconds must be positive, got %v", c.MaxDurationSeconds)
	}
	if c.KeyboardShortcut == "" {
		return errors.New("keyboard_shortcut is empty")
	}
	switch c.STTProvider {
	case ProviderOpenAI, ProviderLocal:
	default:
		return fmt.Errorf("unknown stt_provider %q", c.STTProvider)
	}
	switch c.UploadFormat {
	case FormatWAV, FormatFLAC:
	default:
		return fmt.Errorf("unknown upload_format %q", c.UploadFormat)
	}
	return nil
}

// Save writes the full key set, keeping keys this version does not know.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no path")
	}
	data, err := marshal(c, false)
	if err != nil {
		return err
	}
	out := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	for k, v := range c.extra {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	data, err = marshal(out, true)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// marshal encodes v without HTML escaping so the shortcut stays readable
// as <ctrl>+<shift>+<space>. The result ends in a newline.
func marshal(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Config) Path() string { return c.path }

func (c *Config) Dir() string { return filepath.Dir(c.path) }

func (c *Config) ModelsDir() string { return filepath.Join(c.Dir(), "models") }

func (c *Config) HistoryPath() string { return filepath.Join(c.Dir(), HistoryFile) }

func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationSeconds * float64(time.Second))
}

// ResolvedAPIKey prefers the file and falls back to OPENAI_API_KEY.
func (c *Config) ResolvedAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}
