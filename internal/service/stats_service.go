package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// DefaultLeaderboardLimit caps leaderboard reads.
const DefaultLeaderboardLimit = 10

// RecordBetInput is a client's report of a confirmed bet.
type RecordBetInput struct {
	UserAddress string
	TeamID      *int64
	// AmountWei is a base-10 integer string.
	AmountWei string
	TxHash    string
}

// StatsService records reported bets and derives participation figures
// from them.
type StatsService struct {
	bets     domain.BetStore
	contests domain.ContestStore
	bus      domain.SignalBus
	logger   *slog.Logger
}

// NewStatsService creates a StatsService with all required dependencies.
func NewStatsService(
	bets domain.BetStore,
	contests domain.ContestStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		bets:     bets,
		contests: contests,
		bus:      bus,
		logger:   logger,
	}
}

// Stats returns participant and bet counts from recorded bets, with the pool
// from the synced ledger state.
func (s *StatsService) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := s.bets.Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats_service: bet stats: %w", err)
	}
	stats.TotalPoolWei = new(big.Int)
	st, err := s.contests.GetStatus(ctx)
	switch {
	case err == nil:
		if st.TotalPoolWei != nil {
			stats.TotalPoolWei = st.TotalPoolWei
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		return domain.Stats{}, fmt.Errorf("stats_service: contest status: %w", err)
	}
	return stats, nil
}

// Leaderboard ranks bettors by total recorded amount.
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultLeaderboardLimit
	}
	entries, err := s.bets.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("stats_service: leaderboard: %w", err)
	}
	return entries, nil
}

// RecordBet validates and stores a reported bet, then publishes it.
func (s *StatsService) RecordBet(ctx context.Context, in RecordBetInput) (domain.BetRecord, error) {
	addr := strings.TrimSpace(in.UserAddress)
	if !common.IsHexAddress(addr) {
		return domain.BetRecord{}, fmt.Errorf("stats_service: user address %q: %w", addr, domain.ErrInvalidAddress)
	}
	if in.TeamID == nil {
		return domain.BetRecord{}, fmt.Errorf("stats_service: %w", domain.ErrNoTeamSelected)
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(in.AmountWei), 10)
	if !ok || amount.Sign() <= 0 {
		return domain.BetRecord{}, fmt.Errorf("stats_service: amount %q: %w", in.AmountWei, domain.ErrInvalidAmount)
	}
	if _, err := s.contests.GetTeam(ctx, *in.TeamID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.BetRecord{}, fmt.Errorf("stats_service: team %d: %w", *in.TeamID, domain.ErrUnknownTeam)
		}
		return domain.BetRecord{}, fmt.Errorf("stats_service: get team: %w", err)
	}

	bet := domain.BetRecord{
		ID:          uuid.NewString(),
		UserAddress: common.HexToAddress(addr).Hex(),
		TeamID:      *in.TeamID,
		AmountWei:   amount,
		TxHash:      strings.TrimSpace(in.TxHash),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.bets.Create(ctx, bet); err != nil {
		return domain.BetRecord{}, fmt.Errorf("stats_service: create bet: %w", err)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":        "bet_recorded",
		"id":           bet.ID,
		"user_address": bet.UserAddress,
		"team_id":      bet.TeamID,
		"amount_wei":   bet.AmountWei.String(),
		"timestamp":    bet.CreatedAt.Format(time.RFC3339Nano),
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelBets, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "stats_service: publish bet failed",
			slog.String("bet_id", bet.ID),
			slog.String("error", pubErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "stats_service: bet recorded",
		slog.String("bet_id", bet.ID),
		slog.String("user", bet.UserAddress),
		slog.Int64("team_id", bet.TeamID),
		slog.String("amount_wei", bet.AmountWei.String()),
	)
	return bet, nil
}

// BetsByUser lists a bettor's recorded bets, newest first.
func (s *StatsService) BetsByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.BetRecord, error) {
	if !common.IsHexAddress(user) {
		return nil, fmt.Errorf("stats_service: user address %q: %w", user, domain.ErrInvalidAddress)
	}
	bets, err := s.bets.ListByUser(ctx, common.HexToAddress(user).Hex(), opts)
	if err != nil {
		return nil, fmt.Errorf("stats_service: list bets: %w", err)
	}
	return bets, nil
}
