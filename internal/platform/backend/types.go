package backend

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/alanyoungcy/majorbet/internal/contest"
	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/units"
)

// --------------------------------------------------------------------------
// Wire records. The server emits these and the client decodes them.
// --------------------------------------------------------------------------

// StatusRecord is the /status payload.
type StatusRecord struct {
	Status            *int    `json:"status"`
	StatusText        string  `json:"status_text"`
	TotalPrizePoolWei string  `json:"total_prize_pool_wei"`
	TotalPrizePoolEth float64 `json:"total_prize_pool_eth"`
	WinningTeamID     *int64  `json:"winning_team_id"`
}

// TeamRecord is one element of the /teams payload.
type TeamRecord struct {
	ID          *int64  `json:"id"`
	Name        string  `json:"name"`
	TotalBetWei string  `json:"total_bet_wei"`
	TotalBetEth float64 `json:"total_bet_eth"`
	Supporters  int64   `json:"supporters"`
	IsWinner    bool    `json:"is_winner"`
}

// StatsRecord is the /stats payload.
type StatsRecord struct {
	TotalUniqueParticipants *int64  `json:"total_unique_participants"`
	TotalBets               int64   `json:"total_bets"`
	TotalPrizePoolWei       string  `json:"total_prize_pool_wei"`
	TotalPrizePoolEth       float64 `json:"total_prize_pool_eth"`
	TotalPrizePoolUSD       float64 `json:"total_prize_pool_usd,omitempty"`
}

// LeaderboardRecord is one element of the /leaderboard payload.
type LeaderboardRecord struct {
	Rank        int     `json:"rank"`
	Address     string  `json:"address"`
	TotalBetWei string  `json:"total_bet_wei"`
	TotalBetEth float64 `json:"total_bet_eth"`
}

// RecordBetRequest is the /record_bet body. Amount is in wei.
type RecordBetRequest struct {
	UserAddress string `json:"userAddress"`
	TeamID      *int64 `json:"teamId"`
	Amount      string `json:"amount"`
	TxHash      string `json:"txHash,omitempty"`
}

// RecordBetResponse acknowledges a recorded bet.
type RecordBetResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// Conversion helpers: wire records <-> domain types
// --------------------------------------------------------------------------

// ToDomain validates the record and converts it.
func (r *StatusRecord) ToDomain() (domain.ContestStatus, error) {
	if r.Status == nil {
		return domain.ContestStatus{}, fmt.Errorf("status: missing status: %w", domain.ErrMalformedResponse)
	}
	if *r.Status < 0 || *r.Status > 255 {
		return domain.ContestStatus{}, fmt.Errorf("status: code %d out of range: %w", *r.Status, domain.ErrMalformedResponse)
	}
	st := domain.ContestStatus{
		Code:          domain.StatusCode(*r.Status),
		WinningTeamID: r.WinningTeamID,
	}
	if r.TotalPrizePoolWei != "" {
		pool, err := parseWei(r.TotalPrizePoolWei)
		if err != nil {
			return domain.ContestStatus{}, fmt.Errorf("status: total_prize_pool_wei: %w", err)
		}
		st.TotalPoolWei = pool
	}
	// Normalize is skipped so an absent pool stays nil for the resolver.
	st.Text = contest.StatusText(*r.Status)
	if st.Code != domain.StatusFinished {
		st.WinningTeamID = nil
	}
	return st, nil
}

// ToDomain validates the record and converts it.
func (r *TeamRecord) ToDomain() (domain.Team, error) {
	if r.ID == nil {
		return domain.Team{}, fmt.Errorf("team: missing id: %w", domain.ErrMalformedResponse)
	}
	if *r.ID < 0 {
		return domain.Team{}, fmt.Errorf("team: negative id %d: %w", *r.ID, domain.ErrMalformedResponse)
	}
	if r.Name == "" {
		return domain.Team{}, fmt.Errorf("team %d: missing name: %w", *r.ID, domain.ErrMalformedResponse)
	}
	pool, err := parseWei(r.TotalBetWei)
	if err != nil {
		return domain.Team{}, fmt.Errorf("team %d: total_bet_wei: %w", *r.ID, err)
	}
	return domain.Team{
		ID:             *r.ID,
		Name:           r.Name,
		PoolWei:        pool,
		SupporterCount: r.Supporters,
		IsWinner:       r.IsWinner,
	}, nil
}

// ToDomain validates the record and converts it.
func (r *StatsRecord) ToDomain() (domain.Stats, error) {
	if r.TotalUniqueParticipants == nil {
		return domain.Stats{}, fmt.Errorf("stats: missing total_unique_participants: %w", domain.ErrMalformedResponse)
	}
	pool := new(big.Int)
	if r.TotalPrizePoolWei != "" {
		p, err := parseWei(r.TotalPrizePoolWei)
		if err != nil {
			return domain.Stats{}, fmt.Errorf("stats: total_prize_pool_wei: %w", err)
		}
		pool = p
	}
	return domain.Stats{
		UniqueParticipants: *r.TotalUniqueParticipants,
		TotalBets:          r.TotalBets,
		TotalPoolWei:       pool,
	}, nil
}

// ToDomain validates the record and converts it.
func (r *LeaderboardRecord) ToDomain() (domain.LeaderboardEntry, error) {
	if r.Address == "" || r.Rank <= 0 {
		return domain.LeaderboardEntry{}, fmt.Errorf("leaderboard: missing rank or address: %w", domain.ErrMalformedResponse)
	}
	total := new(big.Int)
	if r.TotalBetWei != "" {
		v, err := parseWei(r.TotalBetWei)
		if err != nil {
			return domain.LeaderboardEntry{}, fmt.Errorf("leaderboard %s: total_bet_wei: %w", r.Address, err)
		}
		total = v
	}
	return domain.LeaderboardEntry{Rank: r.Rank, Address: r.Address, TotalWei: total}, nil
}

// NewStatusRecord renders s for the wire.
func NewStatusRecord(s domain.ContestStatus) StatusRecord {
	s = s.Normalize()
	code := int(s.Code)
	return StatusRecord{
		Status:            &code,
		StatusText:        s.Text,
		TotalPrizePoolWei: s.TotalPoolWei.String(),
		TotalPrizePoolEth: units.WeiToDecimal(s.TotalPoolWei),
		WinningTeamID:     s.WinningTeamID,
	}
}

// NewTeamRecord renders t for the wire.
func NewTeamRecord(t domain.Team) TeamRecord {
	id := t.ID
	pool := t.PoolWei
	if pool == nil {
		pool = new(big.Int)
	}
	return TeamRecord{
		ID:          &id,
		Name:        t.Name,
		TotalBetWei: pool.String(),
		TotalBetEth: units.WeiToDecimal(pool),
		Supporters:  t.SupporterCount,
		IsWinner:    t.IsWinner,
	}
}

// NewStatsRecord renders s for the wire. usdPerEth of 0 omits the USD value.
func NewStatsRecord(s domain.Stats, usdPerEth float64) StatsRecord {
	pool := s.TotalPoolWei
	if pool == nil {
		pool = new(big.Int)
	}
	participants := s.UniqueParticipants
	eth := units.WeiToDecimal(pool)
	return StatsRecord{
		TotalUniqueParticipants: &participants,
		TotalBets:               s.TotalBets,
		TotalPrizePoolWei:       pool.String(),
		TotalPrizePoolEth:       eth,
		TotalPrizePoolUSD:       eth * usdPerEth,
	}
}

// NewLeaderboardRecord renders e for the wire.
func NewLeaderboardRecord(e domain.LeaderboardEntry) LeaderboardRecord {
	total := e.TotalWei
	if total == nil {
		total = new(big.Int)
	}
	return LeaderboardRecord{
		Rank:        e.Rank,
		Address:     e.Address,
		TotalBetWei: total.String(),
		TotalBetEth: units.WeiToDecimal(total),
	}
}

// parseWei parses a non-negative base-10 integer.
func parseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%q is not a wei amount: %w", s, domain.ErrMalformedResponse)
	}
	return v, nil
}
