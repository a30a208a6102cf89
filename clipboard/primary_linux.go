//go:build linux

package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const hasPrimary = true

// primaryTimeout bounds one selection tool run. xclip and friends fork a
// child that owns the selection; only the parent is waited for.
const primaryTimeout = 2 * time.Second

var errNoPrimaryTool = errors.New("no primary selection tool found (install xclip, xsel or wl-clipboard)")

// primaryCommand picks the selection tool for the running session.
func primaryCommand(lookPath func(string) (string, error), wayland bool) (string, []string, error) {
	candidates := [][]string{
		{"xclip", "-in", "-selection", "primary"},
		{"xsel", "--input", "--primary"},
	}
	if wayland {
		candidates = append([][]string{{"wl-copy", "--primary"}}, candidates...)
	}
	for _, c := range candidates {
		if path, err := lookPath(c[0]); err == nil {
			return path, c[1:], nil
		}
	}
	return "", nil, errNoPrimaryTool
}

func writePrimary(text string) error {
	name, args, err := primaryCommand(exec.LookPath, os.Getenv("WAYLAND_DISPLAY") != "")
	if err != nil {
		return err
	}
	return runSelectionTool(name, args, text, primaryTimeout)
}

// runSelectionTool feeds text to the tool on stdin. Stdout and stderr stay
// unattached: the forked selection owner would otherwise hold the pipes open
// and Wait would block until another client takes the selection.
func runSelectionTool(name string, args []string, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.WaitDelay = timeout
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: timed out after %s", name, timeout)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
