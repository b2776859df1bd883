package merge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"ideagen-pipeline/types"
)

// Engine is the handle to the external ffmpeg binary. Locating the binary
// happens once and is cached for the life of the engine; the handle is owned
// by the Merger rather than living in package-global state.
type Engine struct {
	binary string

	once sync.Once
	path string
	err  error
}

// NewEngine creates an engine for the given ffmpeg binary name or path.
func NewEngine(binary string) *Engine {
	return &Engine{binary: binary}
}

// Acquire resolves the ffmpeg binary. Safe to call repeatedly; only the
// first call pays for the lookup.
func (e *Engine) Acquire() (string, error) {
	e.once.Do(func() {
		e.path, e.err = exec.LookPath(e.binary)
	})
	if e.err != nil {
		return "", &types.MergeError{Detail: fmt.Sprintf("ffmpeg binary %q not found", e.binary), Err: e.err}
	}
	return e.path, nil
}

// Run executes ffmpeg with the given arguments. On failure the tail of
// stderr is folded into the error, since that is where ffmpeg explains
// itself.
func (e *Engine) Run(ctx context.Context, args []string) error {
	path, err := e.Acquire()
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &types.MergeError{Detail: "ffmpeg: " + stderrTail(stderr.String()), Err: err}
	}
	return nil
}

func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 6 {
		lines = lines[len(lines)-6:]
	}
	return strings.Join(lines, " | ")
}
