package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/service"
)

// ContestSyncer is the part of service.ContestSyncer the loop drives.
type ContestSyncer interface {
	Sync(ctx context.Context) (service.SyncResult, error)
}

// PriceRefresher is the part of service.PriceService the loop drives.
type PriceRefresher interface {
	Refresh(ctx context.Context) domain.PriceQuote
}

// SyncLoop copies ledger state into the aggregation store on an interval.
type SyncLoop struct {
	syncer ContestSyncer
	logger *slog.Logger
}

// NewSyncLoop creates a SyncLoop.
func NewSyncLoop(syncer ContestSyncer, logger *slog.Logger) *SyncLoop {
	return &SyncLoop{syncer: syncer, logger: logger}
}

// RunOnce performs one sync. Losing the lock to another instance is not an
// error.
func (l *SyncLoop) RunOnce(ctx context.Context) error {
	res, err := l.syncer.Sync(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			l.logger.DebugContext(ctx, "sync skipped, another instance holds the lock")
			return nil
		}
		return err
	}
	if res.Changed {
		l.logger.InfoContext(ctx, "contest status changed",
			slog.String("status", res.Status.Text),
			slog.Int("teams", res.Teams),
		)
	}
	return nil
}

// RunLoop syncs immediately and then on every interval until ctx ends.
func (l *SyncLoop) RunLoop(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, func(ctx context.Context) {
		if err := l.RunOnce(ctx); err != nil {
			l.logger.ErrorContext(ctx, "contest sync failed", slog.String("error", err.Error()))
		}
	})
}

// PriceLoop keeps the cached ETH quote fresh.
type PriceLoop struct {
	prices PriceRefresher
	logger *slog.Logger
}

// NewPriceLoop creates a PriceLoop.
func NewPriceLoop(prices PriceRefresher, logger *slog.Logger) *PriceLoop {
	return &PriceLoop{prices: prices, logger: logger}
}

// RunLoop refreshes immediately and then on every interval until ctx ends.
func (l *PriceLoop) RunLoop(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, func(ctx context.Context) {
		q := l.prices.Refresh(ctx)
		l.logger.DebugContext(ctx, "price refreshed",
			slog.String("symbol", q.Symbol),
			slog.String("price", q.Price),
			slog.String("source", q.Source),
		)
	})
}

func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}
