package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/notify"
)

const syncLockKey = "contest_sync"

// SyncResult summarizes one chain sync.
type SyncResult struct {
	Status   domain.ContestStatus
	Teams    int
	Changed  bool
	Previous *domain.StatusCode
}

// ContestSyncer copies the ledger's contest state into Postgres and the
// Redis snapshot cache, and announces status changes.
type ContestSyncer struct {
	ledger   domain.LedgerReader
	contests domain.ContestStore
	cache    domain.SnapshotCache
	locks    domain.LockManager
	bus      domain.SignalBus
	audit    domain.AuditStore
	notifier Notifier
	lockTTL  time.Duration
	logger   *slog.Logger
}

// NewContestSyncer creates a ContestSyncer with all required dependencies.
func NewContestSyncer(
	ledger domain.LedgerReader,
	contests domain.ContestStore,
	cache domain.SnapshotCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier Notifier,
	lockTTL time.Duration,
	logger *slog.Logger,
) *ContestSyncer {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &ContestSyncer{
		ledger:   ledger,
		contests: contests,
		cache:    cache,
		locks:    locks,
		bus:      bus,
		audit:    audit,
		notifier: notifier,
		lockTTL:  lockTTL,
		logger:   logger,
	}
}

// Sync reads the ledger and persists the snapshot. Only one instance syncs
// at a time; others get domain.ErrLockHeld.
func (s *ContestSyncer) Sync(ctx context.Context) (SyncResult, error) {
	unlock, err := s.locks.Acquire(ctx, syncLockKey, s.lockTTL)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync_service: acquire lock: %w", err)
	}
	defer unlock()

	res, err := s.sync(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "sync_service: sync failed", slog.String("error", err.Error()))
		if s.notifier != nil {
			_ = s.notifier.Notify(ctx, notify.EventSyncFailed, "Contest sync failed", err.Error())
		}
		return SyncResult{}, err
	}
	return res, nil
}

func (s *ContestSyncer) sync(ctx context.Context) (SyncResult, error) {
	status, err := s.ledger.Status(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync_service: ledger status: %w", err)
	}
	status = status.Normalize()
	teams, err := s.ledger.Teams(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync_service: ledger teams: %w", err)
	}
	for i := range teams {
		teams[i].IsWinner = status.WinningTeamID != nil && teams[i].ID == *status.WinningTeamID
	}

	res := SyncResult{Status: status, Teams: len(teams)}
	prev, err := s.contests.GetStatus(ctx)
	switch {
	case err == nil:
		code := prev.Code
		res.Previous = &code
		res.Changed = prev.Code != status.Code
		if !domain.CanTransition(prev.Code, status.Code) {
			s.logger.WarnContext(ctx, "sync_service: unexpected status transition",
				slog.String("from", prev.Code.String()),
				slog.String("to", status.Code.String()),
			)
		}
	case errors.Is(err, domain.ErrNotFound):
		res.Changed = true
	default:
		return SyncResult{}, fmt.Errorf("sync_service: load previous status: %w", err)
	}

	if err := s.contests.SaveSnapshot(ctx, status, teams); err != nil {
		// The cached snapshot no longer matches the ledger; drop it so reads
		// fall through to the store.
		if cacheErr := s.cache.Invalidate(ctx); cacheErr != nil {
			s.logger.WarnContext(ctx, "sync_service: invalidate cache failed", slog.String("error", cacheErr.Error()))
		}
		return SyncResult{}, fmt.Errorf("sync_service: save snapshot: %w", err)
	}

	if err := s.cache.SetStatus(ctx, status); err != nil {
		s.logger.WarnContext(ctx, "sync_service: cache status failed", slog.String("error", err.Error()))
	}
	if err := s.cache.SetTeams(ctx, teams); err != nil {
		s.logger.WarnContext(ctx, "sync_service: cache teams failed", slog.String("error", err.Error()))
	}

	if res.Changed {
		s.announce(ctx, res)
	}

	s.logger.InfoContext(ctx, "sync_service: synced",
		slog.String("status", status.Text),
		slog.Int("teams", len(teams)),
		slog.String("pool_wei", status.TotalPoolWei.String()),
		slog.Bool("changed", res.Changed),
	)
	return res, nil
}

func (s *ContestSyncer) announce(ctx context.Context, res SyncResult) {
	detail := map[string]any{
		"event":                "status_changed",
		"status":               int(res.Status.Code),
		"status_text":          res.Status.Text,
		"total_prize_pool_wei": res.Status.TotalPoolWei.String(),
		"winning_team_id":      res.Status.WinningTeamID,
	}
	if res.Previous != nil {
		detail["previous_status"] = int(*res.Previous)
	}

	evt, _ := json.Marshal(detail)
	if err := s.bus.Publish(ctx, domain.ChannelStatus, evt); err != nil {
		s.logger.WarnContext(ctx, "sync_service: publish status failed", slog.String("error", err.Error()))
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, "status_changed", detail); err != nil {
			s.logger.WarnContext(ctx, "sync_service: audit log failed", slog.String("error", err.Error()))
		}
	}
	if s.notifier != nil {
		msg := fmt.Sprintf("Contest is now %s (pool %s wei)", res.Status.Text, res.Status.TotalPoolWei)
		if res.Status.WinningTeamID != nil {
			msg += fmt.Sprintf(", winning team %d", *res.Status.WinningTeamID)
		}
		_ = s.notifier.Notify(ctx, notify.EventStatusChanged, "Contest status changed", msg)
	}
}

// Status returns the synced status, preferring the cache.
func (s *ContestSyncer) Status(ctx context.Context) (domain.ContestStatus, error) {
	if st, err := s.cache.GetStatus(ctx); err == nil {
		return st, nil
	}
	st, err := s.contests.GetStatus(ctx)
	if err != nil {
		return domain.ContestStatus{}, fmt.Errorf("sync_service: get status: %w", err)
	}
	if cacheErr := s.cache.SetStatus(ctx, st); cacheErr != nil {
		s.logger.WarnContext(ctx, "sync_service: cache backfill failed", slog.String("error", cacheErr.Error()))
	}
	return st, nil
}

// Teams returns the synced teams ordered by id, preferring the cache.
func (s *ContestSyncer) Teams(ctx context.Context) ([]domain.Team, error) {
	if teams, err := s.cache.GetTeams(ctx); err == nil {
		return teams, nil
	}
	teams, err := s.contests.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync_service: list teams: %w", err)
	}
	if cacheErr := s.cache.SetTeams(ctx, teams); cacheErr != nil {
		s.logger.WarnContext(ctx, "sync_service: cache backfill failed", slog.String("error", cacheErr.Error()))
	}
	return teams, nil
}
