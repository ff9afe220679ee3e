package outbound

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/paperbridge/paperbridge/internal/bridge/state"
	"github.com/paperbridge/paperbridge/internal/paperless"
	"github.com/paperbridge/paperbridge/internal/utils"
)

// export downloads one document and writes it into the export folder, then
// records the export so later cycles can find and eventually remove it.
func (e *Engine) export(ctx context.Context, doc *paperless.Document) error {
	data, remoteName, err := e.remote.Download(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	target := e.exportPath(doc, remoteName)
	if err := utils.WriteFileAtomic(target, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	rec := &state.ExportRecord{
		DocumentID: doc.ID,
		LocalPath:  target,
		Checksum:   utils.ShortChecksum(data),
	}
	if err := e.store.UpsertExport(rec); err != nil {
		return fmt.Errorf("record export: %w", err)
	}

	slog.Info("exported", "doc_id", doc.ID, "file", filepath.Base(target),
		"size", humanize.Bytes(uint64(len(data))))
	return nil
}

// exportPath picks the on-device filename: the document title sanitized for
// the device filesystem, the server-reported extension, and the document id
// appended when the plain name is already taken by something else.
func (e *Engine) exportPath(doc *paperless.Document, remoteName string) string {
	ext := filepath.Ext(remoteName)
	if ext == "" {
		ext = ".pdf"
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(remoteName), ext)
	}
	if title == "" {
		title = fmt.Sprintf("document_%d", doc.ID)
	}

	name := utils.SafeFilename(title, ext)
	target := filepath.Join(e.cfg.ExportDir(), name)

	if path, ok, _ := e.store.GetExportPath(doc.ID); ok && path == target {
		return target
	}
	if utils.FileExists(target) {
		stem := strings.TrimSuffix(name, ext)
		target = filepath.Join(e.cfg.ExportDir(), fmt.Sprintf("%s_%d%s", stem, doc.ID, ext))
	}
	return target
}
