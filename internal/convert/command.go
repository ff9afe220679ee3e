package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// NotePlaceholder in a render command argv is replaced with the note path.
const NotePlaceholder = "{note}"

// Command renders a note by running an external converter that writes PDF
// bytes to stdout, e.g. ["supernote-tool", "convert", "-t", "pdf", "{note}", "-"].
type Command struct {
	Argv    []string
	Timeout time.Duration
}

func NewCommand(argv []string) *Command {
	return &Command{Argv: argv, Timeout: 2 * time.Minute}
}

func (c *Command) Convert(ctx context.Context, notePath string) ([]byte, error) {
	if len(c.Argv) == 0 {
		return nil, fmt.Errorf("%w: no render command configured", ErrNoOutput)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	argv := make([]string, len(c.Argv))
	for i, arg := range c.Argv {
		argv[i] = strings.ReplaceAll(arg, NotePlaceholder, notePath)
	}

	t0 := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("render command %q: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: render command %q produced no output", ErrNoOutput, argv[0])
	}

	slog.Debug("rendered note",
		"note", filepath.Base(notePath),
		"bytes", stdout.Len(),
		"elapsed", time.Since(t0).Round(time.Millisecond))
	return stdout.Bytes(), nil
}
