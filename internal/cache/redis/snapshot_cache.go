package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// DefaultSnapshotTTL bounds how long a synced snapshot is served without a
// fresh sync.
const DefaultSnapshotTTL = 5 * time.Minute

const (
	snapshotStatusKey = "contest:status"
	snapshotTeamsKey  = "contest:teams"
)

// cachedStatus is the JSON form of domain.ContestStatus. Wei amounts are
// decimal strings.
type cachedStatus struct {
	Code          uint8  `json:"code"`
	PoolWei       string `json:"pool_wei"`
	WinningTeamID *int64 `json:"winning_team_id,omitempty"`
}

type cachedTeam struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PoolWei    string `json:"pool_wei"`
	Supporters int64  `json:"supporters"`
	IsWinner   bool   `json:"is_winner"`
}

// SnapshotCache implements domain.SnapshotCache with two JSON string keys.
//
// Key schema:
//
//	contest:status - cachedStatus
//	contest:teams  - []cachedTeam ordered by id
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache. A non-positive ttl uses
// DefaultSnapshotTTL.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

// SetStatus stores the contest status.
func (sc *SnapshotCache) SetStatus(ctx context.Context, status domain.ContestStatus) error {
	status = status.Normalize()
	data, err := json.Marshal(cachedStatus{
		Code:          uint8(status.Code),
		PoolWei:       status.TotalPoolWei.String(),
		WinningTeamID: status.WinningTeamID,
	})
	if err != nil {
		return fmt.Errorf("redis: marshal status: %w", err)
	}
	if err := sc.rdb.Set(ctx, snapshotStatusKey, data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set status: %w", err)
	}
	return nil
}

// GetStatus returns the cached status or domain.ErrNotFound.
func (sc *SnapshotCache) GetStatus(ctx context.Context) (domain.ContestStatus, error) {
	var cs cachedStatus
	if err := sc.getJSON(ctx, snapshotStatusKey, &cs); err != nil {
		return domain.ContestStatus{}, err
	}
	pool, ok := new(big.Int).SetString(cs.PoolWei, 10)
	if !ok {
		return domain.ContestStatus{}, fmt.Errorf("redis: status pool %q: %w", cs.PoolWei, domain.ErrMalformedResponse)
	}
	st := domain.ContestStatus{
		Code:          domain.StatusCode(cs.Code),
		TotalPoolWei:  pool,
		WinningTeamID: cs.WinningTeamID,
	}
	return st.Normalize(), nil
}

// SetTeams stores the team list.
func (sc *SnapshotCache) SetTeams(ctx context.Context, teams []domain.Team) error {
	out := make([]cachedTeam, 0, len(teams))
	for _, t := range teams {
		pool := "0"
		if t.PoolWei != nil {
			pool = t.PoolWei.String()
		}
		out = append(out, cachedTeam{
			ID:         t.ID,
			Name:       t.Name,
			PoolWei:    pool,
			Supporters: t.SupporterCount,
			IsWinner:   t.IsWinner,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("redis: marshal teams: %w", err)
	}
	if err := sc.rdb.Set(ctx, snapshotTeamsKey, data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set teams: %w", err)
	}
	return nil
}

// GetTeams returns the cached team list or domain.ErrNotFound.
func (sc *SnapshotCache) GetTeams(ctx context.Context) ([]domain.Team, error) {
	var cached []cachedTeam
	if err := sc.getJSON(ctx, snapshotTeamsKey, &cached); err != nil {
		return nil, err
	}
	teams := make([]domain.Team, 0, len(cached))
	for _, ct := range cached {
		pool, ok := new(big.Int).SetString(ct.PoolWei, 10)
		if !ok {
			return nil, fmt.Errorf("redis: team %d pool %q: %w", ct.ID, ct.PoolWei, domain.ErrMalformedResponse)
		}
		teams = append(teams, domain.Team{
			ID:             ct.ID,
			Name:           ct.Name,
			PoolWei:        pool,
			SupporterCount: ct.Supporters,
			IsWinner:       ct.IsWinner,
		})
	}
	return teams, nil
}

// Invalidate drops both keys.
func (sc *SnapshotCache) Invalidate(ctx context.Context) error {
	if err := sc.rdb.Del(ctx, snapshotStatusKey, snapshotTeamsKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate snapshot: %w", err)
	}
	return nil
}

func (sc *SnapshotCache) getJSON(ctx context.Context, key string, v any) error {
	data, err := sc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("redis: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("redis: unmarshal %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
