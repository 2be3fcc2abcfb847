package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/majorbet/internal/contest"
	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/poller"
	"github.com/alanyoungcy/majorbet/internal/units"
)

// refreshKeys are refetched after a confirmed bet.
var refreshKeys = []string{
	poller.KeyTeams,
	poller.KeyStats,
	poller.KeyStatus,
	poller.KeyLedgerStatus,
	poller.KeyLeaderboard,
	poller.KeyPositions,
}

// BetConfig holds the bet path settings.
type BetConfig struct {
	// ExpectedChainID is the network bets must be sent on. nil skips the check.
	ExpectedChainID *big.Int
	// RefreshDelay is how long to wait after confirmation before refetching,
	// giving the aggregation service time to index the bet.
	RefreshDelay time.Duration
	// ConfirmTimeout bounds the wait for the transaction receipt.
	ConfirmTimeout time.Duration
	// RecordTimeout bounds the report to the aggregation service.
	RecordTimeout time.Duration
}

// BetRequest is a bet as entered by the user.
type BetRequest struct {
	TeamID *int64
	// Amount is a decimal ETH amount, e.g. "0.05".
	Amount string
}

// BetResult describes a confirmed bet.
type BetResult struct {
	TxHash    string
	TeamID    int64
	AmountWei *big.Int
}

// BetService submits bets to the ledger. Only one submission may be
// outstanding at a time.
type BetService struct {
	writer   domain.LedgerWriter
	recorder BetRecorder
	view     ContestView
	refresh  Invalidator
	cfg      BetConfig
	pending  atomic.Bool
	logger   *slog.Logger
}

// NewBetService creates a BetService. writer may be nil when no wallet is
// configured; every bet then fails with domain.ErrWalletNotConnected.
func NewBetService(
	writer domain.LedgerWriter,
	recorder BetRecorder,
	view ContestView,
	refresh Invalidator,
	cfg BetConfig,
	logger *slog.Logger,
) *BetService {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 3 * time.Minute
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = 10 * time.Second
	}
	return &BetService{
		writer:   writer,
		recorder: recorder,
		view:     view,
		refresh:  refresh,
		cfg:      cfg,
		logger:   logger,
	}
}

// Pending reports whether a submission is in flight.
func (s *BetService) Pending() bool {
	return s.pending.Load()
}

// Validate checks req without touching the network and returns the amount
// in wei.
func (s *BetService) Validate(req BetRequest) (*big.Int, error) {
	amount, err := units.ParseUnits(req.Amount, units.EtherDecimals)
	if err != nil {
		return nil, err
	}
	if req.TeamID == nil {
		return nil, domain.ErrNoTeamSelected
	}
	if s.writer == nil {
		return nil, domain.ErrWalletNotConnected
	}
	if s.view != nil {
		if teams := s.view.CurrentTeams(); len(teams) > 0 && !hasTeam(teams, *req.TeamID) {
			return nil, fmt.Errorf("team %d: %w", *req.TeamID, domain.ErrUnknownTeam)
		}
	}
	return amount, nil
}

// PlaceBet validates, submits and confirms a bet. Ledger errors are returned
// to the caller; the follow-up report to the aggregation service is best
// effort.
func (s *BetService) PlaceBet(ctx context.Context, req BetRequest) (BetResult, error) {
	amount, err := s.Validate(req)
	if err != nil {
		return BetResult{}, fmt.Errorf("bet_service: %w", err)
	}
	teamID := *req.TeamID

	if !s.pending.CompareAndSwap(false, true) {
		return BetResult{}, fmt.Errorf("bet_service: %w", domain.ErrWritePending)
	}
	defer s.pending.Store(false)

	if s.view != nil {
		if st := s.view.CurrentStatus(); !contest.BettingOpen(st) {
			return BetResult{}, fmt.Errorf("bet_service: contest is %s: %w", st.Text, domain.ErrBettingClosed)
		}
	}

	if err := s.checkNetwork(ctx); err != nil {
		return BetResult{}, err
	}

	txHash, err := s.writer.PlaceBet(ctx, teamID, amount)
	if err != nil {
		return BetResult{}, fmt.Errorf("bet_service: submit: %w", err)
	}
	s.logger.InfoContext(ctx, "bet_service: bet submitted",
		slog.String("tx_hash", txHash),
		slog.Int64("team_id", teamID),
		slog.String("amount_wei", amount.String()),
	)

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	err = s.writer.WaitConfirmed(waitCtx, txHash)
	cancel()
	if err != nil {
		return BetResult{TxHash: txHash, TeamID: teamID, AmountWei: amount}, fmt.Errorf("bet_service: confirm %s: %w", txHash, err)
	}

	s.record(ctx, domain.BetRecord{
		UserAddress: s.writer.From(),
		TeamID:      teamID,
		AmountWei:   amount,
		TxHash:      txHash,
		CreatedAt:   time.Now().UTC(),
	})
	s.scheduleRefresh()

	return BetResult{TxHash: txHash, TeamID: teamID, AmountWei: amount}, nil
}

func (s *BetService) checkNetwork(ctx context.Context) error {
	if s.cfg.ExpectedChainID == nil {
		return nil
	}
	id, err := s.writer.ChainID(ctx)
	if err != nil {
		// The ledger rejects a wrong-chain submission anyway.
		s.logger.WarnContext(ctx, "bet_service: chain id probe failed, continuing",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if id.Cmp(s.cfg.ExpectedChainID) != 0 {
		return fmt.Errorf("bet_service: connected to chain %s, switch to %s: %w",
			id, s.cfg.ExpectedChainID, domain.ErrWrongNetwork)
	}
	return nil
}

func (s *BetService) record(ctx context.Context, bet domain.BetRecord) {
	if s.recorder == nil {
		return
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RecordTimeout)
	defer cancel()
	if err := s.recorder.RecordBet(recCtx, bet); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrRateLimited) {
			level = slog.LevelInfo
		}
		s.logger.Log(ctx, level, "bet_service: record bet failed",
			slog.String("tx_hash", bet.TxHash),
			slog.String("error", err.Error()),
		)
	}
}

func (s *BetService) scheduleRefresh() {
	if s.refresh == nil {
		return
	}
	invalidate := func() {
		for _, k := range refreshKeys {
			s.refresh.Invalidate(k)
		}
	}
	if s.cfg.RefreshDelay <= 0 {
		invalidate()
		return
	}
	time.AfterFunc(s.cfg.RefreshDelay, invalidate)
}

func hasTeam(teams []domain.Team, id int64) bool {
	for _, t := range teams {
		if t.ID == id {
			return true
		}
	}
	return false
}
