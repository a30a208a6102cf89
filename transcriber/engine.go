package transcriber

import "fmt"

// NewEngine returns the named local engine. Engines that were not compiled
// in report ErrNotInstalled.
func NewEngine(name string) (Engine, error) {
	switch name {
	case "whisper.cpp", "whisper", "":
		return newWhisperEngine()
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNotInstalled, name)
	}
}
