// Package outbound mirrors remote documents carrying the outbound tag into a
// subfolder of the device document directory, and removes mirrored files whose
// tag has been taken away.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/paperbridge/paperbridge/internal/bridge/config"
	"github.com/paperbridge/paperbridge/internal/bridge/state"
	"github.com/paperbridge/paperbridge/internal/paperless"
	"github.com/paperbridge/paperbridge/internal/utils"
)

// Remote is the slice of the Paperless client the outbound engine uses.
type Remote interface {
	ResolveTag(ctx context.Context, name string) (int64, error)
	ListDocumentsByTag(ctx context.Context, tagID int64) ([]paperless.Document, error)
	Download(ctx context.Context, docID int64) ([]byte, string, error)
}

// Engine polls for tagged remote documents and reconciles the device export
// folder against them.
type Engine struct {
	cfg    *config.Config
	store  *state.Store
	remote Remote

	outboundTagID int64
}

func NewEngine(cfg *config.Config, store *state.Store, remote Remote) *Engine {
	return &Engine{cfg: cfg, store: store, remote: remote}
}

// Run resolves the outbound tag, then polls on the configured interval until
// ctx is cancelled. The timer is re-armed after each cycle completes so slow
// cycles do not stack.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.prepare(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if err := e.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("outbound cycle failed", "error", err)
			}
			timer.Reset(e.cfg.PollInterval)
		}
	}
}

// RunOnce resolves the outbound tag and runs exactly one cycle.
func (e *Engine) RunOnce(ctx context.Context) error {
	if err := e.prepare(ctx); err != nil {
		return err
	}
	return e.SyncOnce(ctx)
}

func (e *Engine) prepare(ctx context.Context) error {
	tagID, err := e.remote.ResolveTag(ctx, e.cfg.OutboundTag)
	if err != nil {
		if errors.Is(err, paperless.ErrTagNotFound) {
			return fmt.Errorf("outbound: tag %q must exist in Paperless, create it first: %w", e.cfg.OutboundTag, err)
		}
		return fmt.Errorf("outbound: resolve tag: %w", err)
	}
	e.outboundTagID = tagID
	slog.Info("outbound tag resolved", "name", e.cfg.OutboundTag, "id", tagID)

	if err := utils.EnsureDir(e.cfg.ExportDir()); err != nil {
		return fmt.Errorf("outbound: create export dir: %w", err)
	}
	return nil
}

// SyncOnce runs a single reconciliation cycle: export documents tagged
// remotely but not yet on the device, remove exports whose tag is gone.
// Per-document failures are logged and retried next cycle; the returned error
// covers only failures that abort the whole cycle.
func (e *Engine) SyncOnce(ctx context.Context) error {
	docs, err := e.remote.ListDocumentsByTag(ctx, e.outboundTagID)
	if err != nil {
		return fmt.Errorf("list tagged documents: %w", err)
	}

	tagged := mapset.NewSet[int64]()
	byID := make(map[int64]paperless.Document, len(docs))
	for _, d := range docs {
		tagged.Add(d.ID)
		byID[d.ID] = d
	}

	exportedIDs, err := e.store.GetExportedIDs()
	if err != nil {
		return fmt.Errorf("load export records: %w", err)
	}
	exported := mapset.NewSet(exportedIDs...)

	toExport := tagged.Difference(exported)
	toRemove := exported.Difference(tagged)

	if toExport.Cardinality() > 0 || toRemove.Cardinality() > 0 {
		slog.Info("outbound cycle", "tagged", tagged.Cardinality(),
			"to_export", toExport.Cardinality(), "to_remove", toRemove.Cardinality())
	}

	for _, id := range toExport.ToSlice() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		doc := byID[id]
		if err := e.export(ctx, &doc); err != nil {
			slog.Error("export failed", "doc_id", id, "error", err)
		}
	}

	for _, id := range toRemove.ToSlice() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.remove(id); err != nil {
			slog.Error("remove export failed", "doc_id", id, "error", err)
		}
	}

	return nil
}
