package inbound

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/paperbridge/paperbridge/internal/bridge/state"
	"github.com/paperbridge/paperbridge/internal/paperless"
	"github.com/paperbridge/paperbridge/internal/utils"
)

const noteSuffix = ".note"

// processNote runs the full ingest pipeline for one note path. Two cheap
// gates short-circuit redundant work: a modification-time gate before
// conversion, and a content-hash gate after it so that device-side touches
// that do not change rendered content never reach the remote.
func (e *Engine) processNote(ctx context.Context, notePath string) (Status, error) {
	info, err := os.Stat(notePath)
	if err != nil {
		return StatusSkipped, fmt.Errorf("stat note: %w", err)
	}
	mtimeNanos := info.ModTime().UnixNano()

	rec, err := e.store.GetIngestion(notePath)
	if err != nil {
		return StatusSkipped, fmt.Errorf("load ingestion record: %w", err)
	}
	if rec != nil && rec.MtimeNanos == mtimeNanos {
		return StatusSkipped, nil
	}

	pdf, err := e.converter.Convert(ctx, notePath)
	if err != nil {
		return StatusSkipped, fmt.Errorf("convert: %w", err)
	}
	contentHash := utils.Sha256Hex(pdf)

	if rec != nil && rec.ContentHash == contentHash {
		// Touched but unchanged. Absorb the new mtime so the next event
		// short-circuits before conversion.
		rec.MtimeNanos = mtimeNanos
		if err := e.store.UpsertIngestion(rec); err != nil {
			return StatusSkipped, fmt.Errorf("absorb mtime: %w", err)
		}
		slog.Debug("content unchanged", "note", filepath.Base(notePath))
		return StatusSkipped, nil
	}

	text, err := e.enricher.Transcribe(ctx, pdf)
	if err != nil {
		return StatusSkipped, fmt.Errorf("transcribe: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(notePath), noteSuffix)
	meta, err := e.enricher.SuggestMetadata(ctx, text, stem)
	if err != nil {
		return StatusSkipped, fmt.Errorf("suggest metadata: %w", err)
	}

	tagIDs, err := e.uploadTagIDs(ctx, meta.Tags)
	if err != nil {
		return StatusSkipped, err
	}

	correspondentName := correspondentFor(notePath, e.cfg.CorrespondentOverride)
	correspondentID, err := e.remote.GetOrCreateCorrespondent(ctx, correspondentName)
	if err != nil {
		return StatusSkipped, fmt.Errorf("resolve correspondent: %w", err)
	}

	params := &paperless.UploadParams{
		Filename:        stem + ".pdf",
		Data:            pdf,
		TagIDs:          tagIDs,
		CorrespondentID: &correspondentID,
		DocumentTypeID:  e.documentTypeID,
		CreatedDate:     createdDateFor(stem, info.ModTime()),
	}

	docID, err := e.remote.Upload(ctx, params)
	if err != nil {
		return StatusSkipped, fmt.Errorf("upload: %w", err)
	}
	slog.Info("uploaded", "note", filepath.Base(notePath), "doc_id", docID)

	content := text
	if e.enricher.SummariesEnabled() {
		summary, err := e.enricher.Summarize(ctx, text, meta.Title)
		if err != nil {
			slog.Warn("summarize failed", "note", filepath.Base(notePath), "error", err)
		} else if summary != "" {
			content = text + "\n\n---\n\n" + summary
		}
	}

	fields := map[string]any{"content": content}
	if meta.Title != "" {
		fields["title"] = meta.Title
	}
	if err := e.remote.Patch(ctx, docID, fields); err != nil {
		return StatusSkipped, fmt.Errorf("patch document %d: %w", docID, err)
	}

	status := StatusIngested
	if rec != nil && rec.DocumentID != nil && *rec.DocumentID != docID {
		e.supersede(ctx, *rec.DocumentID, docID)
		status = StatusUpdated
	}

	// Re-stat: the device may have rewritten the file while the pipeline ran,
	// in which case the next event must not be gated away.
	if info2, err := os.Stat(notePath); err == nil {
		mtimeNanos = info2.ModTime().UnixNano()
	}

	newRec := &state.IngestionRecord{
		NotePath:    notePath,
		MtimeNanos:  mtimeNanos,
		ContentHash: contentHash,
		DocumentID:  &docID,
	}
	if err := e.store.UpsertIngestion(newRec); err != nil {
		return StatusSkipped, fmt.Errorf("commit ingestion record: %w", err)
	}

	return status, nil
}

// uploadTagIDs resolves the suggested tag names and merges in the completion
// tag. The inbound trigger tag is stripped unconditionally, by name and by
// id: applying it to our own uploads would re-trigger external automation on
// documents we just produced.
func (e *Engine) uploadTagIDs(ctx context.Context, suggested []string) ([]int64, error) {
	ids := mapset.NewSet(e.completionTagID)
	for _, name := range suggested {
		name = strings.TrimSpace(name)
		if name == "" || strings.EqualFold(name, e.cfg.InboundTag) {
			continue
		}
		id, err := e.remote.GetOrCreateTag(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve tag %q: %w", name, err)
		}
		ids.Add(id)
	}
	ids.Remove(e.inboundTagID)
	return ids.ToSlice(), nil
}

// supersede marks the previously uploaded document for this note as replaced
// by newID. Failure here is tolerated: the new document is already live and
// the stale one only lacks its marker tag.
func (e *Engine) supersede(ctx context.Context, oldID, newID int64) {
	doc, err := e.remote.GetDocument(ctx, oldID)
	if err != nil {
		slog.Warn("supersede: fetch old document", "doc_id", oldID, "error", err)
		return
	}
	tags := mapset.NewSet(doc.Tags...)
	tags.Add(e.supersededTagID)
	if err := e.remote.Patch(ctx, oldID, map[string]any{"tags": tags.ToSlice()}); err != nil {
		slog.Warn("supersede: tag old document", "doc_id", oldID, "error", err)
		return
	}
	slog.Info("superseded", "old_doc_id", oldID, "new_doc_id", newID)
}
