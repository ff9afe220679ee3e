package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFileWithMtime(t *testing.T, path string, data []byte, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestPrerendered_PicksClosestPDF(t *testing.T) {
	dir := t.TempDir()
	noteDir := t.TempDir()

	now := time.Now().Add(-time.Hour)
	notePath := filepath.Join(noteDir, "20240315_143022.note")
	writeFileWithMtime(t, notePath, []byte("note"), now)

	// Two candidates inside the window; the closer one must win.
	writeFileWithMtime(t, filepath.Join(dir, "far.pdf"), []byte("far"), now.Add(4*time.Minute))
	writeFileWithMtime(t, filepath.Join(dir, "close.pdf"), []byte("close"), now.Add(30*time.Second))
	// Too old to be the note's render.
	writeFileWithMtime(t, filepath.Join(dir, "stale.pdf"), []byte("stale"), now.Add(-10*time.Minute))
	// Not a pdf.
	writeFileWithMtime(t, filepath.Join(dir, "close.txt"), []byte("txt"), now.Add(time.Second))

	p := NewPrerendered(dir)
	data, err := p.Convert(context.Background(), notePath)
	require.NoError(t, err)
	assert.Equal(t, "close", string(data))
}

func TestPrerendered_NoCandidateOutsideWindow(t *testing.T) {
	dir := t.TempDir()
	noteDir := t.TempDir()

	now := time.Now().Add(-time.Hour)
	notePath := filepath.Join(noteDir, "a.note")
	writeFileWithMtime(t, notePath, []byte("note"), now)
	writeFileWithMtime(t, filepath.Join(dir, "late.pdf"), []byte("late"), now.Add(20*time.Minute))

	p := NewPrerendered(dir)
	_, err := p.Convert(context.Background(), notePath)
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestCommand_CapturesStdout(t *testing.T) {
	noteDir := t.TempDir()
	notePath := filepath.Join(noteDir, "a.note")
	require.NoError(t, os.WriteFile(notePath, []byte("fake-pdf-bytes"), 0o644))

	c := NewCommand([]string{"cat", NotePlaceholder})
	data, err := c.Convert(context.Background(), notePath)
	require.NoError(t, err)
	assert.Equal(t, "fake-pdf-bytes", string(data))
}

func TestCommand_FailureSurfacesStderr(t *testing.T) {
	c := NewCommand([]string{"sh", "-c", "echo boom >&2; exit 3"})
	_, err := c.Convert(context.Background(), "/tmp/whatever.note")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestChain_FallsThroughToCommand(t *testing.T) {
	emptyDir := t.TempDir()
	noteDir := t.TempDir()
	notePath := filepath.Join(noteDir, "a.note")
	require.NoError(t, os.WriteFile(notePath, []byte("rendered"), 0o644))

	chain := Chain{
		NewPrerendered(emptyDir),
		NewCommand([]string{"cat", NotePlaceholder}),
	}

	data, err := chain.Convert(context.Background(), notePath)
	require.NoError(t, err)
	assert.Equal(t, "rendered", string(data))
}

func TestChain_AllFail(t *testing.T) {
	chain := Chain{
		NewPrerendered(t.TempDir()),
		NewCommand(nil),
	}
	_, err := chain.Convert(context.Background(), filepath.Join(t.TempDir(), "missing.note"))
	assert.ErrorIs(t, err, ErrNoOutput)
}
