// Package history keeps the most recent transcriptions in a JSON file,
// newest first.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	MaxEntries = 30
	TimeLayout = "2006-01-02 15:04:05"
)

type Entry struct {
	Timestamp       string  `json:"timestamp"`
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type Store struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	entries []Entry
}

// Open loads path, skipping malformed entries. A missing or unreadable file
// yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read history: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return s, fmt.Errorf("parse history: %w", err)
	}
	for _, r := range raw {
		if e, ok := parseEntry(r); ok {
			s.entries = append(s.entries, e)
		}
		if len(s.entries) == MaxEntries {
			break
		}
	}
	return s, nil
}

func parseEntry(r json.RawMessage) (Entry, bool) {
	var e struct {
		Timestamp       *string  `json:"timestamp"`
		Text            *string  `json:"text"`
		DurationSeconds *float64 `json:"duration_seconds"`
	}
	if err := json.Unmarshal(r, &e); err != nil {
		return Entry{}, false
	}
	if e.Timestamp == nil || e.Text == nil || e.DurationSeconds == nil {
		return Entry{}, false
	}
	return Entry{Timestamp: *e.Timestamp, Text: *e.Text, DurationSeconds: *e.DurationSeconds}, true
}

// Add records text at the front and evicts the oldest entry beyond MaxEntries.
func (s *Store) Add(text string, durationSeconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{
		Timestamp:       s.now().Format(TimeLayout),
		Text:            text,
		DurationSeconds: float64(int(durationSeconds*10+0.5)) / 10,
	}
	s.entries = append([]Entry{e}, s.entries...)
	if len(s.entries) > MaxEntries {
		s.entries = s.entries[:MaxEntries]
	}
	return s.save()
}

func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Latest returns the newest entry, if any.
func (s *Store) Latest() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[0], true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.save()
}

func (s *Store) save() error {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmp, s.path)
}
