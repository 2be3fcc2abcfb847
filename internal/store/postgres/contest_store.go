package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// ContestStore implements domain.ContestStore using PostgreSQL.
type ContestStore struct {
	pool *pgxpool.Pool
}

// NewContestStore creates a new ContestStore backed by the given connection pool.
func NewContestStore(pool *pgxpool.Pool) *ContestStore {
	return &ContestStore{pool: pool}
}

const teamCols = `id, name, total_bet_wei::text, supporter_count, is_winner`

// SaveSnapshot upserts the contest row and replaces the team table in a
// single transaction so readers never see a status without its teams.
func (s *ContestStore) SaveSnapshot(ctx context.Context, status domain.ContestStatus, teams []domain.Team) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsertStatus = `
		INSERT INTO contest_state (id, status, status_text, total_pool_wei, winning_team_id, synced_at)
		VALUES (1, $1, $2, $3::numeric, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			status_text = EXCLUDED.status_text,
			total_pool_wei = EXCLUDED.total_pool_wei,
			winning_team_id = EXCLUDED.winning_team_id,
			synced_at = EXCLUDED.synced_at`
	if _, err := tx.Exec(ctx, upsertStatus,
		int16(status.Code), status.Code.String(), weiText(status.TotalPoolWei), status.WinningTeamID,
	); err != nil {
		return fmt.Errorf("postgres: upsert contest state: %w", err)
	}

	batch := &pgx.Batch{}
	const upsertTeam = `
		INSERT INTO teams (id, name, total_bet_wei, supporter_count, is_winner, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			total_bet_wei = EXCLUDED.total_bet_wei,
			supporter_count = EXCLUDED.supporter_count,
			is_winner = EXCLUDED.is_winner,
			updated_at = EXCLUDED.updated_at`
	for _, t := range teams {
		batch.Queue(upsertTeam, t.ID, t.Name, weiText(t.PoolWei), t.SupporterCount, t.IsWinner)
	}
	if len(teams) > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := range teams {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: upsert team batch item %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close team batch: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetStatus returns the last synced contest state.
func (s *ContestStore) GetStatus(ctx context.Context) (domain.ContestStatus, error) {
	var (
		code    int16
		text    string
		poolStr string
		winner  *int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT status, status_text, total_pool_wei::text, winning_team_id FROM contest_state WHERE id = 1`,
	).Scan(&code, &text, &poolStr, &winner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ContestStatus{}, domain.ErrNotFound
		}
		return domain.ContestStatus{}, fmt.Errorf("postgres: get contest state: %w", err)
	}
	pool, err := parseWei(poolStr)
	if err != nil {
		return domain.ContestStatus{}, fmt.Errorf("postgres: contest pool: %w", err)
	}
	st := domain.ContestStatus{
		Code:          domain.StatusCode(code),
		TotalPoolWei:  pool,
		WinningTeamID: winner,
	}
	return st.Normalize(), nil
}

// ListTeams returns every team ordered by id.
func (s *ContestStore) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+teamCols+` FROM teams ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list teams rows: %w", err)
	}
	return teams, nil
}

// GetTeam returns a single team by id.
func (s *ContestStore) GetTeam(ctx context.Context, id int64) (domain.Team, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+teamCols+` FROM teams WHERE id = $1`, id)
	t, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Team{}, domain.ErrNotFound
		}
		return domain.Team{}, fmt.Errorf("postgres: get team %d: %w", id, err)
	}
	return t, nil
}

func scanTeam(row pgx.Row) (domain.Team, error) {
	var (
		t       domain.Team
		poolStr string
	)
	if err := row.Scan(&t.ID, &t.Name, &poolStr, &t.SupporterCount, &t.IsWinner); err != nil {
		return domain.Team{}, err
	}
	pool, err := parseWei(poolStr)
	if err != nil {
		return domain.Team{}, err
	}
	t.PoolWei = pool
	return t, nil
}

// weiText renders a wei amount for a NUMERIC column; nil is zero.
func weiText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// parseWei reads a NUMERIC(78,0) column cast to text.
func parseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse wei %q: %w", s, domain.ErrMalformedResponse)
	}
	return v, nil
}
