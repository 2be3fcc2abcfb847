package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/platform/backend"
	"github.com/alanyoungcy/majorbet/internal/service"
	"github.com/alanyoungcy/majorbet/internal/units"
)

// maxRecordBetBody caps the record_bet request body.
const maxRecordBetBody = 4096

// StatsService is what the stats handler needs.
type StatsService interface {
	Stats(ctx context.Context) (domain.Stats, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	RecordBet(ctx context.Context, in service.RecordBetInput) (domain.BetRecord, error)
	BetsByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.BetRecord, error)
}

// USDQuoter converts pools to USD.
type USDQuoter interface {
	USDPerEth(ctx context.Context) float64
}

// StatsHandler serves participation figures and accepts bet reports.
type StatsHandler struct {
	stats  StatsService
	usd    USDQuoter
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler. usd may be nil, in which case the
// USD pool is omitted.
func NewStatsHandler(stats StatsService, usd USDQuoter, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, usd: usd, logger: logHandler(logger, "stats")}
}

// GetStats returns participant and bet counts with the pool in wei, ETH and
// USD.
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get stats failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	var usd float64
	if h.usd != nil {
		usd = h.usd.USDPerEth(r.Context())
	}
	writeJSON(w, http.StatusOK, backend.NewStatsRecord(s, usd))
}

// GetLeaderboard ranks bettors.
// GET /api/leaderboard?limit=10
func (h *StatsHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := h.stats.Leaderboard(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: leaderboard failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	out := make([]backend.LeaderboardRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, backend.NewLeaderboardRecord(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// RecordBet stores a client's report of a confirmed bet.
// POST /api/record_bet
func (h *StatsHandler) RecordBet(w http.ResponseWriter, r *http.Request) {
	var req backend.RecordBetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBetBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bet, err := h.stats.RecordBet(r.Context(), service.RecordBetInput{
		UserAddress: req.UserAddress,
		TeamID:      req.TeamID,
		AmountWei:   req.Amount,
		TxHash:      req.TxHash,
	})
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: record bet failed", slog.String("error", err.Error()))
			writeError(w, status, "failed to record bet")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, backend.RecordBetResponse{ID: bet.ID, Message: "Bet recorded"})
}

type betView struct {
	ID        string  `json:"id"`
	TeamID    int64   `json:"team_id"`
	AmountWei string  `json:"amount_wei"`
	AmountEth float64 `json:"amount_eth"`
	TxHash    string  `json:"tx_hash,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ListBets returns a bettor's recorded bets, newest first.
// GET /api/bets?user=0x...
func (h *StatsHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required")
		return
	}
	bets, err := h.stats.BetsByUser(r.Context(), user, parseListOpts(r))
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: list bets failed", slog.String("error", err.Error()))
		}
		writeError(w, status, "failed to list bets")
		return
	}
	out := make([]betView, 0, len(bets))
	for _, b := range bets {
		amount := b.AmountWei
		if amount == nil {
			amount = new(big.Int)
		}
		out = append(out, betView{
			ID:        b.ID,
			TeamID:    b.TeamID,
			AmountWei: amount.String(),
			AmountEth: units.WeiToDecimal(amount),
			TxHash:    b.TxHash,
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
