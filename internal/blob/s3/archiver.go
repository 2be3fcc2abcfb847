package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/platform/backend"
)

// DefaultArchivePrefix is the key prefix for snapshot objects.
const DefaultArchivePrefix = "archive/contest"

// leaderboardDepth is how many ranked bettors each snapshot keeps.
const leaderboardDepth = 100

// DefaultMultipartThreshold is the snapshot size above which uploads go
// through the multipart manager instead of a single PutObject.
const DefaultMultipartThreshold int64 = 8 * 1024 * 1024

// Snapshot is the archived document. It reuses the aggregation service wire
// records so archives read like API responses.
type Snapshot struct {
	TakenAt     time.Time                   `json:"taken_at"`
	Status      backend.StatusRecord        `json:"status"`
	Teams       []backend.TeamRecord        `json:"teams"`
	Stats       backend.StatsRecord         `json:"stats"`
	Leaderboard []backend.LeaderboardRecord `json:"leaderboard"`
}

// ObjectWriter is the subset of Writer the archiver needs.
type ObjectWriter interface {
	domain.BlobWriter
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver writes point-in-time contest snapshots to object storage.
type Archiver struct {
	writer   ObjectWriter
	contests domain.ContestStore
	bets     domain.BetStore
	audit    domain.AuditStore
	prefix   string

	multipartThreshold int64
	partSize           int64
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithMultipart sets the snapshot size above which the multipart upload path
// is used, and the part size for it. Non-positive values keep the defaults.
func WithMultipart(threshold, partSize int64) ArchiverOption {
	return func(a *Archiver) {
		if threshold > 0 {
			a.multipartThreshold = threshold
		}
		if partSize > 0 {
			a.partSize = partSize
		}
	}
}

// NewArchiver creates an Archiver. An empty prefix uses DefaultArchivePrefix.
func NewArchiver(
	writer ObjectWriter,
	contests domain.ContestStore,
	bets domain.BetStore,
	audit domain.AuditStore,
	prefix string,
	opts ...ArchiverOption,
) *Archiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultArchivePrefix
	}
	a := &Archiver{
		writer:             writer,
		contests:           contests,
		bets:               bets,
		audit:              audit,
		prefix:             prefix,
		multipartThreshold: DefaultMultipartThreshold,
		partSize:           minPartSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Archive captures the synced contest state at now and uploads it. It returns
// the object key. Nothing is written before the first sync.
func (a *Archiver) Archive(ctx context.Context, now time.Time) (string, error) {
	now = now.UTC()
	status, err := a.contests.GetStatus(ctx)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive status: %w", err)
	}
	teams, err := a.contests.ListTeams(ctx)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive teams: %w", err)
	}
	stats, err := a.bets.Stats(ctx)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive stats: %w", err)
	}
	stats.TotalPoolWei = status.TotalPoolWei
	board, err := a.bets.Leaderboard(ctx, leaderboardDepth)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive leaderboard: %w", err)
	}

	snap := Snapshot{
		TakenAt:     now,
		Status:      backend.NewStatusRecord(status),
		Teams:       make([]backend.TeamRecord, 0, len(teams)),
		Stats:       backend.NewStatsRecord(stats, 0),
		Leaderboard: make([]backend.LeaderboardRecord, 0, len(board)),
	}
	for _, t := range teams {
		snap.Teams = append(snap.Teams, backend.NewTeamRecord(t))
	}
	for _, e := range board {
		snap.Leaderboard = append(snap.Leaderboard, backend.NewLeaderboardRecord(e))
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	key := SnapshotPath(a.prefix, now)
	exists, err := a.writer.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return key, nil
	}
	multipart := int64(len(data)) > a.multipartThreshold
	if multipart {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(data), a.partSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive upload: %w", err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "snapshot_archived", map[string]any{
			"path":      key,
			"status":    status.Code.String(),
			"teams":     len(teams),
			"bytes":     len(data),
			"multipart": multipart,
		}); err != nil {
			return key, fmt.Errorf("s3blob: archive audit log: %w", err)
		}
	}
	return key, nil
}

// SnapshotPath builds the object key for a snapshot taken at t:
//
//	archive/contest/2025/01/31/snapshot-150405.json
func SnapshotPath(prefix string, t time.Time) string {
	t = t.UTC()
	return path.Join(prefix, t.Format("2006/01/02"), "snapshot-"+t.Format("150405")+".json")
}
