package domain

import (
	"context"
	"time"
)

// SnapshotCache holds the most recent synced contest snapshot for fast reads.
type SnapshotCache interface {
	SetStatus(ctx context.Context, status ContestStatus) error
	GetStatus(ctx context.Context) (ContestStatus, error)
	SetTeams(ctx context.Context, teams []Team) error
	GetTeams(ctx context.Context) ([]Team, error)
	Invalidate(ctx context.Context) error
}

// PriceCache stores the latest exchange-rate quote per base asset, e.g. "ETH".
type PriceCache interface {
	SetQuote(ctx context.Context, asset string, quote PriceQuote, ts time.Time) error
	GetQuote(ctx context.Context, asset string) (PriceQuote, time.Time, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub messaging between service instances and the
// websocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Pub/sub channels.
const (
	ChannelStatus = "ch:status"
	ChannelBets   = "ch:bets"
)
