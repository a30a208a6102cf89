//go:build linux

package clipboard

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestPrimaryCommand(t *testing.T) {
	tests := []struct {
		name      string
		installed []string
		wayland   bool
		want      string
		wantArgs  string
		wantErr   bool
	}{
		{"x11 prefers xclip", []string{"xclip", "xsel", "wl-copy"}, false, "xclip", "-in -selection primary", false},
		{"x11 falls back to xsel", []string{"xsel"}, false, "xsel", "--input --primary", false},
		{"wayland prefers wl-copy", []string{"xclip", "wl-copy"}, true, "wl-copy", "--primary", false},
		{"x11 ignores wl-copy", []string{"wl-copy"}, false, "", "", true},
		{"nothing installed", nil, true, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			look := func(name string) (string, error) {
				for _, n := range tt.installed {
					if n == name {
						return name, nil
					}
				}
				return "", errors.New("not found")
			}
			got, args, err := primaryCommand(look, tt.wayland)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("tool = %q, want %q", got, tt.want)
			}
			joined := ""
			for i, a := range args {
				if i > 0 {
					joined += " "
				}
				joined += a
			}
			if joined != tt.wantArgs {
				t.Errorf("args = %q, want %q", joined, tt.wantArgs)
			}
		})
	}
}

// fakeTool writes a shell script standing in for xclip.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-xclip")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunSelectionToolForkingOwner(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	out := filepath.Join(t.TempDir(), "selection")
	// Like xclip: read stdin, leave a child holding the inherited fds, exit.
	tool := fakeTool(t, `cat > "$1"; sleep 5 & exit 0`)

	start := time.Now()
	if err := runSelectionTool(tool, []string{out}, "hello", 3*time.Second); err != nil {
		t.Fatal(err)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Errorf("waited %s on the forked child", took)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("selection = %q, want hello", got)
	}
}

func TestRunSelectionToolTimeout(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	tool := fakeTool(t, `sleep 5`)

	start := time.Now()
	err := runSelectionTool(tool, nil, "hello", 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Errorf("timeout took %s", took)
	}
}

func TestRunSelectionToolFailure(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	tool := fakeTool(t, `exit 3`)
	var exitErr *exec.ExitError
	if err := runSelectionTool(tool, nil, "x", time.Second); !errors.As(err, &exitErr) {
		t.Errorf("err = %v, want *exec.ExitError", err)
	}
}
