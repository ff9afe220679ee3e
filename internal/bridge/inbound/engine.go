// Package inbound watches the device note directory and reconciles changed
// notes into Paperless: convert, enrich, upload, supersede, commit.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/paperbridge/paperbridge/internal/bridge/config"
	"github.com/paperbridge/paperbridge/internal/bridge/state"
	"github.com/paperbridge/paperbridge/internal/convert"
	"github.com/paperbridge/paperbridge/internal/enrich"
	"github.com/paperbridge/paperbridge/internal/paperless"
)

// Ingest workers run conversion and upload for distinct note paths in
// parallel; per-path ordering is enforced separately via pathLocks.
const maxIngestConcurrency = 4

// Status is the outcome of reconciling one note path.
type Status string

const (
	StatusSkipped  Status = "skipped"
	StatusIngested Status = "ingested"
	StatusUpdated  Status = "updated"
)

// Remote is the slice of the Paperless client the inbound engine uses.
type Remote interface {
	ResolveTag(ctx context.Context, name string) (int64, error)
	GetOrCreateTag(ctx context.Context, name string) (int64, error)
	GetOrCreateCorrespondent(ctx context.Context, name string) (int64, error)
	GetOrCreateDocumentType(ctx context.Context, name string) (int64, error)
	Upload(ctx context.Context, p *paperless.UploadParams) (int64, error)
	Patch(ctx context.Context, docID int64, fields map[string]any) error
	GetDocument(ctx context.Context, docID int64) (*paperless.Document, error)
}

// Engine is the inbound reconciliation engine. One note path is processed by
// at most one worker at a time; distinct paths proceed concurrently.
type Engine struct {
	cfg       *config.Config
	store     *state.Store
	remote    Remote
	converter convert.Converter
	enricher  enrich.Enricher
	watcher   *Watcher

	// resolved at Start
	inboundTagID    int64
	completionTagID int64
	supersededTagID int64
	documentTypeID  *int64

	locks pathLocks
}

func NewEngine(cfg *config.Config, store *state.Store, remote Remote, converter convert.Converter, enricher enrich.Enricher) *Engine {
	return &Engine{
		cfg:       cfg,
		store:     store,
		remote:    remote,
		converter: converter,
		enricher:  enricher,
		watcher:   NewWatcher(cfg.NoteDir),
	}
}

// Run resolves remote metadata ids, performs the startup catch-up scan, then
// consumes live change events until ctx is cancelled. It returns non-nil only
// for unrecoverable configuration errors; per-note failures are logged and
// retried on later events.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.resolveRemoteIDs(ctx); err != nil {
		return err
	}

	// Watch before scanning so changes landing mid-scan are not lost; the
	// content gates make any double processing a cheap skip.
	if err := e.watcher.Start(ctx); err != nil {
		return fmt.Errorf("inbound: start watcher: %w", err)
	}
	defer e.watcher.Stop()

	if err := e.scanExisting(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("inbound startup scan", "error", err)
	}

	slog.Info("inbound watching", "dir", e.cfg.NoteDir)

	var wg sync.WaitGroup
	wg.Add(maxIngestConcurrency)
	for range maxIngestConcurrency {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case notePath, ok := <-e.watcher.Events():
					if !ok {
						return
					}
					e.handle(ctx, notePath)
				}
			}
		}()
	}

	wg.Wait()
	return nil
}

// RunOnce resolves remote ids and reconciles every note currently on disk,
// without watching for further changes.
func (e *Engine) RunOnce(ctx context.Context) error {
	if err := e.resolveRemoteIDs(ctx); err != nil {
		return err
	}
	return e.scanExisting(ctx)
}

// resolveRemoteIDs resolves the tag and document-type ids the pipeline needs.
// The inbound trigger tag must already exist remotely: it drives an external
// automation and auto-creating it here would silently detach that automation.
func (e *Engine) resolveRemoteIDs(ctx context.Context) error {
	inboundID, err := e.remote.ResolveTag(ctx, e.cfg.InboundTag)
	if err != nil {
		if errors.Is(err, paperless.ErrTagNotFound) {
			return fmt.Errorf("inbound: trigger tag %q must exist in Paperless, create it first: %w", e.cfg.InboundTag, err)
		}
		return fmt.Errorf("inbound: resolve trigger tag: %w", err)
	}
	e.inboundTagID = inboundID
	slog.Info("inbound tag resolved", "name", e.cfg.InboundTag, "id", inboundID)

	completionID, err := e.remote.GetOrCreateTag(ctx, e.cfg.CompletionTag)
	if err != nil {
		return fmt.Errorf("inbound: resolve completion tag: %w", err)
	}
	e.completionTagID = completionID
	slog.Info("completion tag resolved", "name", e.cfg.CompletionTag, "id", completionID)

	supersededID, err := e.remote.GetOrCreateTag(ctx, e.cfg.SupersededTag)
	if err != nil {
		return fmt.Errorf("inbound: resolve superseded tag: %w", err)
	}
	e.supersededTagID = supersededID
	slog.Info("superseded tag resolved", "name", e.cfg.SupersededTag, "id", supersededID)

	if e.cfg.DocumentType != "" {
		dtID, err := e.remote.GetOrCreateDocumentType(ctx, e.cfg.DocumentType)
		if err != nil {
			return fmt.Errorf("inbound: resolve document type: %w", err)
		}
		e.documentTypeID = &dtID
		slog.Info("document type resolved", "name", e.cfg.DocumentType, "id", dtID)
	}

	return nil
}

// scanExisting reconciles every note file already on disk, recovering from
// events missed while the process was not running. Order across files is not
// significant.
func (e *Engine) scanExisting(ctx context.Context) error {
	var notes []string
	err := filepath.WalkDir(e.cfg.NoteDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, noteSuffix) {
			notes = append(notes, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("inbound: enumerate notes: %w", err)
	}

	slog.Info("inbound startup scan", "count", len(notes))
	for _, notePath := range notes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.handle(ctx, notePath)
	}
	return nil
}

// handle reconciles one note path, serialized per path, with per-note failure
// containment.
func (e *Engine) handle(ctx context.Context, notePath string) {
	unlock := e.locks.acquire(notePath)
	defer unlock()

	status, err := e.processNote(ctx, notePath)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("ingest failed", "note", filepath.Base(notePath), "error", err)
		}
		return
	}
	if status != StatusSkipped {
		slog.Info("ingest done", "note", filepath.Base(notePath), "status", status)
	}
}
