package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultWindow is the maximum age difference between a note and a
	// prerendered PDF for the PDF to count as a match.
	DefaultWindow = 5 * time.Minute

	// A prerendered PDF may legitimately carry an mtime slightly older than
	// the note it was rendered from (clock skew between device and sidecar).
	mtimeSlack = 5 * time.Second
)

// Prerendered looks for an already-rendered PDF in a sidecar output directory.
// The sidecar names its output by internal hashes, so candidates are matched
// by mtime proximity instead of by name: the sidecar renders right after
// device sync, so the timestamps land within a few minutes of each other.
type Prerendered struct {
	Dir    string
	Window time.Duration
}

func NewPrerendered(dir string) *Prerendered {
	return &Prerendered{Dir: dir, Window: DefaultWindow}
}

func (p *Prerendered) Convert(_ context.Context, notePath string) ([]byte, error) {
	info, err := os.Stat(notePath)
	if err != nil {
		return nil, fmt.Errorf("stat note: %w", err)
	}
	noteMtime := info.ModTime()

	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read prerendered dir: %w", ErrNoOutput, err)
	}

	window := p.Window
	if window <= 0 {
		window = DefaultWindow
	}

	var best string
	var bestDelta time.Duration
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pdf" {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}

		pdfMtime := fi.ModTime()
		if pdfMtime.Before(noteMtime.Add(-mtimeSlack)) {
			continue
		}
		delta := pdfMtime.Sub(noteMtime)
		if delta < 0 {
			delta = -delta
		}
		if delta > window {
			continue
		}
		if best == "" || delta < bestDelta {
			best = filepath.Join(p.Dir, entry.Name())
			bestDelta = delta
		}
	}

	if best == "" {
		return nil, fmt.Errorf("%w: no prerendered candidate within %s", ErrNoOutput, window)
	}

	data, err := os.ReadFile(best)
	if err != nil {
		return nil, fmt.Errorf("read prerendered pdf: %w", err)
	}

	slog.Debug("prerendered pdf matched",
		"note", filepath.Base(notePath),
		"pdf", filepath.Base(best),
		"delta", bestDelta.Round(time.Second),
		"size", humanize.Bytes(uint64(len(data))))
	return data, nil
}
