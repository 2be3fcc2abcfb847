package service

import (
	"context"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// AggregationReader is the read surface of the aggregation service.
type AggregationReader interface {
	GetStatus(ctx context.Context) (domain.ContestStatus, error)
	GetTeams(ctx context.Context) ([]domain.Team, error)
	GetStats(ctx context.Context) (domain.Stats, error)
	GetLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// BetRecorder reports confirmed bets to the aggregation service.
type BetRecorder interface {
	RecordBet(ctx context.Context, bet domain.BetRecord) error
}

// PriceFetcher returns an exchange-rate quote and never fails.
type PriceFetcher interface {
	FetchPrice(ctx context.Context) domain.PriceQuote
}

// Notifier raises operator alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Invalidator schedules refetches of polled keys.
type Invalidator interface {
	Invalidate(key string)
}

// ContestView exposes the latest merged contest state to the bet path.
type ContestView interface {
	// CurrentStatus returns nil while the status is unresolved.
	CurrentStatus() *domain.ContestStatus
	CurrentTeams() []domain.Team
}
