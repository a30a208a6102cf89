package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"voicectrl/config"
	"voicectrl/history"
)

// historyCommand parses "voice-ctrl history [-config dir] [clear]" and runs
// it against the history file of that config directory.
func historyCommand(w io.Writer, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(w)
	configFlag := fs.String("config", "", "config directory (default: ~/.config/voice-ctrl)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	dir, err := config.ResolveDir(*configFlag)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
	return runHistory(w, filepath.Join(dir, config.HistoryFile), fs.Args())
}

// runHistory lists or clears the history at path.
func runHistory(w io.Writer, path string, args []string) int {
	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
	}

	if len(args) > 0 {
		if args[0] != "clear" {
			fmt.Fprintf(w, "Usage: voice-ctrl history [-config dir] [clear]\n")
			return 2
		}
		if err := store.Clear(); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(w, "History cleared.")
		return 0
	}

	entries := store.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No transcriptions yet.")
		return 0
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  (%.1fs)  %s\n", e.Timestamp, e.DurationSeconds, e.Text)
	}
	return 0
}
