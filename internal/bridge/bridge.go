// Package bridge assembles and runs the two reconciliation engines against a
// shared state store and Paperless client.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/paperbridge/paperbridge/internal/bridge/config"
	"github.com/paperbridge/paperbridge/internal/bridge/inbound"
	"github.com/paperbridge/paperbridge/internal/bridge/outbound"
	"github.com/paperbridge/paperbridge/internal/bridge/state"
	"github.com/paperbridge/paperbridge/internal/convert"
	"github.com/paperbridge/paperbridge/internal/enrich"
	"github.com/paperbridge/paperbridge/internal/paperless"
	"github.com/paperbridge/paperbridge/internal/utils"
)

// ErrAlreadyRunning indicates another bridge instance holds the state lock.
var ErrAlreadyRunning = errors.New("another bridge instance is already running")

// Bridge owns the state store, the remote client, and both engines.
type Bridge struct {
	cfg      *config.Config
	store    *state.Store
	flock    *flock.Flock
	inbound  *inbound.Engine
	outbound *outbound.Engine
}

// New validates wiring and builds the bridge. Nothing remote is touched yet;
// tag resolution happens when the engines start.
func New(cfg *config.Config) (*Bridge, error) {
	client := paperless.New(cfg.PaperlessURL, cfg.PaperlessToken)

	converter, err := buildConverter(cfg)
	if err != nil {
		return nil, err
	}

	enricher, err := enrich.New(enrich.Options{
		BaseURL:       cfg.OpenAIBaseURL,
		APIKey:        cfg.OpenAIAPIKey,
		VisionModel:   cfg.VisionModel,
		MetadataModel: cfg.MetadataModel,
		SummaryModel:  cfg.SummaryModel,
	})
	if err != nil {
		return nil, err
	}

	store := state.NewStore(cfg.StateDB)

	return &Bridge{
		cfg:      cfg,
		store:    store,
		flock:    flock.New(cfg.LockPath()),
		inbound:  inbound.NewEngine(cfg, store, client, converter, enricher),
		outbound: outbound.NewEngine(cfg, store, client),
	}, nil
}

// buildConverter assembles the note-to-PDF chain: a prerendered-PDF lookup
// when a render mirror directory is configured, then the external render
// command. At least one source must be configured.
func buildConverter(cfg *config.Config) (convert.Converter, error) {
	var chain convert.Chain
	if cfg.PrerenderedDir != "" {
		chain = append(chain, convert.NewPrerendered(cfg.PrerenderedDir))
	}
	if len(cfg.RenderCommand) > 0 {
		chain = append(chain, convert.NewCommand(cfg.RenderCommand))
	}
	if len(chain) == 0 {
		return nil, errors.New("no converter configured: set prerendered_dir or render_command")
	}
	return chain, nil
}

// Run acquires the single-instance lock, opens the store, and runs both
// engines until ctx is cancelled or one of them fails fatally.
func (b *Bridge) Run(ctx context.Context) error {
	if err := utils.EnsureParent(b.flock.Path()); err != nil {
		return fmt.Errorf("prepare lock path: %w", err)
	}
	locked, err := b.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer b.unlock()

	if err := b.store.Open(); err != nil {
		return err
	}
	defer b.store.Close()

	slog.Info("bridge start",
		"paperless", b.cfg.PaperlessURL,
		"notes", b.cfg.NoteDir,
		"exports", b.cfg.ExportDir())

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := b.inbound.Run(egCtx); err != nil {
			return fmt.Errorf("inbound engine: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := b.outbound.Run(egCtx); err != nil {
			return fmt.Errorf("outbound engine: %w", err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("bridge stopped")
	return nil
}

// RunOnce acquires the lock, runs one inbound scan and one outbound cycle,
// and exits.
func (b *Bridge) RunOnce(ctx context.Context) error {
	if err := utils.EnsureParent(b.flock.Path()); err != nil {
		return fmt.Errorf("prepare lock path: %w", err)
	}
	locked, err := b.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer b.unlock()

	if err := b.store.Open(); err != nil {
		return err
	}
	defer b.store.Close()

	if err := b.inbound.RunOnce(ctx); err != nil {
		return fmt.Errorf("inbound scan: %w", err)
	}
	if err := b.outbound.RunOnce(ctx); err != nil {
		return fmt.Errorf("outbound cycle: %w", err)
	}
	return nil
}

func (b *Bridge) unlock() {
	if !b.flock.Locked() {
		return
	}
	if err := b.flock.Unlock(); err != nil {
		slog.Warn("release instance lock", "error", err)
		return
	}
	os.Remove(b.flock.Path())
}
