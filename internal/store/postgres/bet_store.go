package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betSelectCols = `id::text, user_address, team_id, amount_wei::text, tx_hash, created_at`

// Create inserts a reported bet. A repeated non-empty tx hash is ignored so
// clients can retry the report safely.
func (s *BetStore) Create(ctx context.Context, bet domain.BetRecord) error {
	const query = `
		INSERT INTO bets (id, user_address, team_id, amount_wei, tx_hash, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
		ON CONFLICT (tx_hash) WHERE tx_hash <> '' DO NOTHING`
	_, err := s.pool.Exec(ctx, query,
		bet.ID, bet.UserAddress, bet.TeamID, weiText(bet.AmountWei), bet.TxHash, bet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create bet %s: %w", bet.ID, err)
	}
	return nil
}

// Stats counts distinct bettors and bets. TotalPoolWei is the sum of
// recorded amounts; callers that know the ledger pool override it.
func (s *BetStore) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		stats   domain.Stats
		poolStr string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT user_address), COUNT(*), COALESCE(SUM(amount_wei), 0)::text
		FROM bets`,
	).Scan(&stats.UniqueParticipants, &stats.TotalBets, &poolStr)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("postgres: bet stats: %w", err)
	}
	pool, err := parseWei(poolStr)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("postgres: bet stats: %w", err)
	}
	stats.TotalPoolWei = pool
	return stats, nil
}

// Leaderboard ranks addresses by their summed recorded amount.
func (s *BetStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_address, SUM(amount_wei)::text AS total
		FROM bets
		GROUP BY user_address
		ORDER BY SUM(amount_wei) DESC, user_address ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var (
			e        domain.LeaderboardEntry
			totalStr string
		)
		if err := rows.Scan(&e.Address, &totalStr); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard: %w", err)
		}
		if e.TotalWei, err = parseWei(totalStr); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: leaderboard rows: %w", err)
	}
	return entries, nil
}

// ListByUser returns a bettor's recorded bets, newest first.
func (s *BetStore) ListByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.BetRecord, error) {
	query := `SELECT ` + betSelectCols + ` FROM bets WHERE user_address = $1`
	args := []any{user}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets by user: %w", err)
	}
	defer rows.Close()

	bets, err := scanBetRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan bets by user: %w", err)
	}
	return bets, nil
}

func scanBetRows(rows pgx.Rows) ([]domain.BetRecord, error) {
	var bets []domain.BetRecord
	for rows.Next() {
		var (
			b         domain.BetRecord
			amountStr string
		)
		if err := rows.Scan(&b.ID, &b.UserAddress, &b.TeamID, &amountStr, &b.TxHash, &b.CreatedAt); err != nil {
			return nil, err
		}
		amount, err := parseWei(amountStr)
		if err != nil {
			return nil, err
		}
		b.AmountWei = amount
		bets = append(bets, b)
	}
	return bets, rows.Err()
}
