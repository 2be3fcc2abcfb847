package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the aggregation service's background work: chain sync,
// price refresh and snapshot archival.
type Orchestrator struct {
	sync          *SyncLoop
	prices        *PriceLoop
	archiver      *Archiver
	syncInterval  time.Duration
	priceInterval time.Duration
	archiveCron   string
	logger        *slog.Logger
}

// NewOrchestrator creates an Orchestrator. prices and archiver may be nil,
// and an empty archiveCron disables archival.
func NewOrchestrator(
	sync *SyncLoop,
	prices *PriceLoop,
	archiver *Archiver,
	syncInterval time.Duration,
	priceInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sync:          sync,
		prices:        prices,
		archiver:      archiver,
		syncInterval:  syncInterval,
		priceInterval: priceInterval,
		archiveCron:   archiveCron,
		logger:        logger,
	}
}

// Run starts every loop under one errgroup. A loop failing for any reason
// other than ctx cancellation stops the others and is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "pipeline orchestrator starting",
		slog.Duration("sync_interval", o.syncInterval),
		slog.Duration("price_interval", o.priceInterval),
		slog.String("archive_cron", o.archiveCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.sync.RunLoop(ctx, o.syncInterval)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("sync loop: %w", err)
	})

	if o.prices != nil {
		g.Go(func() error {
			err := o.prices.RunLoop(ctx, o.priceInterval)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("price loop: %w", err)
		})
	}

	if o.archiver != nil && o.archiveCron != "" {
		g.Go(func() error {
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
