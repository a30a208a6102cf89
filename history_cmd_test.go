package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"voicectrl/config"
	"voicectrl/history"
)

func TestRunHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := history.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Add("first words", 1.24); err != nil {
		t.Fatal(err)
	}
	if err := store.Add("second words", 2); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if code := runHistory(&buf, path, nil); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	out := buf.String()
	if strings.Index(out, "second words") > strings.Index(out, "first words") {
		t.Errorf("newest entry not listed first:\n%s", out)
	}
	if !strings.Contains(out, "(1.2s)") {
		t.Errorf("duration missing:\n%s", out)
	}

	buf.Reset()
	if code := runHistory(&buf, path, []string{"clear"}); code != 0 {
		t.Fatalf("clear exit code %d", code)
	}
	buf.Reset()
	runHistory(&buf, path, nil)
	if !strings.Contains(buf.String(), "No transcriptions yet.") {
		t.Errorf("after clear: %q", buf.String())
	}
}

func TestRunHistoryBadArg(t *testing.T) {
	var buf bytes.Buffer
	if code := runHistory(&buf, filepath.Join(t.TempDir(), "h.json"), []string{"wipe"}); code != 2 {
		t.Errorf("exit code %d, want 2", code)
	}
}

func TestHistoryCommandHonorsConfigDir(t *testing.T) {
	dir := t.TempDir()
	store, err := history.Open(filepath.Join(dir, config.HistoryFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Add("from custom dir", 1); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if code := historyCommand(&buf, []string{"-config", dir}); code != 0 {
		t.Fatalf("exit code %d:\n%s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "from custom dir") {
		t.Errorf("entry from -config dir not listed:\n%s", buf.String())
	}

	buf.Reset()
	if code := historyCommand(&buf, []string{"-config", dir, "clear"}); code != 0 {
		t.Fatalf("clear exit code %d", code)
	}
	reopened, err := history.Open(filepath.Join(dir, config.HistoryFile))
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Len() != 0 {
		t.Errorf("history has %d entries after clear", reopened.Len())
	}

	if code := historyCommand(&buf, []string{"-bogus"}); code != 2 {
		t.Errorf("unknown flag exit code = %d, want 2", code)
	}
}
