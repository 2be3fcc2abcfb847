package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ContestStore persists the synced contest state and team table.
type ContestStore interface {
	// SaveSnapshot replaces the contest state and the full team list in one
	// transaction.
	SaveSnapshot(ctx context.Context, status ContestStatus, teams []Team) error
	GetStatus(ctx context.Context) (ContestStatus, error)
	ListTeams(ctx context.Context) ([]Team, error)
	GetTeam(ctx context.Context, id int64) (Team, error)
}

// BetStore persists off-chain bet records reported by clients.
type BetStore interface {
	Create(ctx context.Context, bet BetRecord) error
	Stats(ctx context.Context) (Stats, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	ListByUser(ctx context.Context, user string, opts ListOpts) ([]BetRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
