package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/alanyoungcy/majorbet/internal/contest"
	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/odds"
	"github.com/alanyoungcy/majorbet/internal/poller"
	"github.com/alanyoungcy/majorbet/internal/units"
)

// DashboardConfig holds the dashboard polling settings.
type DashboardConfig struct {
	// User is the bettor address whose positions are tracked. Empty disables
	// the positions key.
	User          string
	PollInterval  time.Duration
	PriceInterval time.Duration
	HouseCut      float64
}

// DashboardView is a consistent read of every polled key.
type DashboardView struct {
	// Status is nil until either the ledger or the aggregation service has
	// answered. Nothing contest-specific should be rendered while nil.
	Status        *domain.ContestStatus
	Teams         []domain.Team
	Positions     []domain.UserPosition
	TotalExposure float64
	Stats         *domain.Stats
	Leaderboard   []domain.LeaderboardEntry
	Price         *domain.PriceQuote
	PoolUSD       float64
	BettingOpen   bool
	Loading       bool
	// Errors holds the last fetch error per key while that key is stale.
	Errors map[string]string
}

// Dashboard polls the ledger, the aggregation service and the price feed
// into a poller.Store and derives the bettor's view from it.
type Dashboard struct {
	store  *poller.Store
	ledger domain.LedgerReader
	agg    AggregationReader
	prices PriceFetcher
	calc   odds.Calculator
	cfg    DashboardConfig
	logger *slog.Logger
}

// NewDashboard creates a Dashboard. ledger may be nil when no RPC endpoint
// is configured; the aggregation service is then the only status source.
func NewDashboard(
	store *poller.Store,
	ledger domain.LedgerReader,
	agg AggregationReader,
	prices PriceFetcher,
	cfg DashboardConfig,
	logger *slog.Logger,
) *Dashboard {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PriceInterval <= 0 {
		cfg.PriceInterval = 10 * time.Second
	}
	return &Dashboard{
		store:  store,
		ledger: ledger,
		agg:    agg,
		prices: prices,
		calc:   odds.NewCalculator(cfg.HouseCut),
		cfg:    cfg,
		logger: logger,
	}
}

// Start subscribes every key. Loops stop when ctx ends or the store closes.
func (d *Dashboard) Start(ctx context.Context) error {
	every := d.cfg.PollInterval
	watches := []func() error{
		func() error { return poller.Watch(ctx, d.store, poller.KeyStatus, d.agg.GetStatus, every) },
		func() error { return poller.Watch(ctx, d.store, poller.KeyTeams, d.agg.GetTeams, every) },
		func() error { return poller.Watch(ctx, d.store, poller.KeyStats, d.agg.GetStats, every) },
		func() error { return poller.Watch(ctx, d.store, poller.KeyLeaderboard, d.agg.GetLeaderboard, every) },
		func() error { return poller.Watch(ctx, d.store, poller.KeyPrice, d.fetchPrice, d.cfg.PriceInterval) },
	}
	if d.ledger != nil {
		watches = append(watches, func() error {
			return poller.Watch(ctx, d.store, poller.KeyLedgerStatus, d.ledger.Status, every)
		})
		if d.cfg.User != "" {
			watches = append(watches, func() error {
				return poller.Watch(ctx, d.store, poller.KeyPositions, d.fetchPositions, every)
			})
		}
	}

	for _, watch := range watches {
		if err := watch(); err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
	}
	d.logger.InfoContext(ctx, "dashboard: polling started",
		slog.Int("keys", len(watches)),
		slog.Bool("ledger", d.ledger != nil),
		slog.String("user", d.cfg.User),
	)
	return nil
}

func (d *Dashboard) fetchPrice(ctx context.Context) (domain.PriceQuote, error) {
	return d.prices.FetchPrice(ctx), nil
}

// fetchPositions reads the team list from the ledger so balances and teams
// come from the same source.
func (d *Dashboard) fetchPositions(ctx context.Context) ([]domain.UserPosition, error) {
	teams, err := d.ledger.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: ledger teams: %w", err)
	}
	balances, err := d.ledger.UserBalances(ctx, d.cfg.User, contest.TeamIDs(teams))
	if err != nil {
		return nil, fmt.Errorf("dashboard: user balances: %w", err)
	}
	return contest.Aggregate(teams, balances), nil
}

// CurrentStatus merges the ledger and aggregation-service reads.
func (d *Dashboard) CurrentStatus() *domain.ContestStatus {
	var ledger, cache *domain.ContestStatus
	if st, snap := poller.Get[domain.ContestStatus](d.store, poller.KeyLedgerStatus); snap.Value != nil {
		ledger = &st
	}
	if st, snap := poller.Get[domain.ContestStatus](d.store, poller.KeyStatus); snap.Value != nil {
		cache = &st
	}
	return contest.Resolve(ledger, cache)
}

// CurrentTeams returns the last polled team list.
func (d *Dashboard) CurrentTeams() []domain.Team {
	teams, _ := poller.Get[[]domain.Team](d.store, poller.KeyTeams)
	return teams
}

// View assembles the current state of every key.
func (d *Dashboard) View() DashboardView {
	v := DashboardView{Errors: make(map[string]string)}
	for _, key := range d.store.Keys() {
		if snap, ok := d.store.Get(key); ok && snap.Err != nil {
			v.Errors[key] = snap.Err.Error()
		}
	}

	v.Status = d.CurrentStatus()
	v.Loading = v.Status == nil
	v.BettingOpen = v.Status != nil && v.Status.Code == domain.StatusOpen

	v.Teams = d.CurrentTeams()
	if v.Status != nil && v.Status.WinningTeamID != nil {
		teams := make([]domain.Team, len(v.Teams))
		copy(teams, v.Teams)
		for i := range teams {
			teams[i].IsWinner = teams[i].ID == *v.Status.WinningTeamID
		}
		v.Teams = teams
	}

	v.Positions, _ = poller.Get[[]domain.UserPosition](d.store, poller.KeyPositions)
	v.TotalExposure = contest.TotalExposure(v.Positions)

	if s, snap := poller.Get[domain.Stats](d.store, poller.KeyStats); snap.Value != nil {
		v.Stats = &s
	}
	v.Leaderboard, _ = poller.Get[[]domain.LeaderboardEntry](d.store, poller.KeyLeaderboard)

	if q, snap := poller.Get[domain.PriceQuote](d.store, poller.KeyPrice); snap.Value != nil {
		v.Price = &q
		if v.Status != nil {
			if px, err := strconv.ParseFloat(q.Price, 64); err == nil {
				v.PoolUSD = units.WeiToDecimal(v.Status.TotalPoolWei) * px
			}
		}
	}
	return v
}

// Quote returns the expected payout in ETH for betting amountText ETH on
// teamID at current pools.
func (d *Dashboard) Quote(teamID int64, amountText string) (float64, error) {
	amount, err := units.ParseUnits(amountText, units.EtherDecimals)
	if err != nil {
		return 0, fmt.Errorf("dashboard: quote: %w", err)
	}
	teams := d.CurrentTeams()
	var team *domain.Team
	for i := range teams {
		if teams[i].ID == teamID {
			team = &teams[i]
			break
		}
	}
	if team == nil {
		return 0, fmt.Errorf("dashboard: quote: team %d: %w", teamID, domain.ErrUnknownTeam)
	}

	status := domain.ContestStatus{TotalPoolWei: sumPools(teams)}
	if st := d.CurrentStatus(); st != nil && st.TotalPoolWei != nil {
		status = *st
	}
	return d.calc.Quote(units.WeiToDecimal(amount), *team, status), nil
}

func sumPools(teams []domain.Team) *big.Int {
	total := new(big.Int)
	for _, t := range teams {
		if t.PoolWei != nil {
			total.Add(total, t.PoolWei)
		}
	}
	return total
}
