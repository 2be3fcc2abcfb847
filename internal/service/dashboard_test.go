package service

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/poller"
)

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func scenarioTeams() []domain.Team {
	return []domain.Team{
		{ID: 1, Name: "Alpha", PoolWei: weiOf("1000000000000000000")},
		{ID: 2, Name: "Beta", PoolWei: weiOf("2000000000000000000")},
	}
}

func newTestDashboard(t *testing.T, ledger domain.LedgerReader, agg AggregationReader) *Dashboard {
	t.Helper()
	store := poller.New(testLogger())
	t.Cleanup(store.Close)
	d := NewDashboard(store, ledger, agg,
		&fakeFeed{quote: domain.PriceQuote{Symbol: "ETHUSDT", Price: "2000"}},
		DashboardConfig{
			User:          "0x2222222222222222222222222222222222222222",
			PollInterval:  time.Hour,
			PriceInterval: time.Hour,
			HouseCut:      0.1,
		},
		testLogger())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return d
}

func loaded(d *Dashboard, keys ...string) func() bool {
	return func() bool {
		for _, k := range keys {
			snap, ok := d.store.Get(k)
			if !ok || snap.Loading {
				return false
			}
		}
		return true
	}
}

func TestDashboardViewPrefersLedgerStatus(t *testing.T) {
	ledger := &fakeLedger{
		status: domain.ContestStatus{Code: domain.StatusFinished, TotalPoolWei: weiOf("3000000000000000000"), WinningTeamID: int64p(2)},
		teams:  scenarioTeams(),
		balances: map[int64]*big.Int{
			1: new(big.Int),
			2: weiOf("500000000000000000"),
		},
	}
	agg := &fakeAgg{
		status: domain.ContestStatus{Code: domain.StatusStopped, TotalPoolWei: weiOf("3000000000000000000")},
		teams:  scenarioTeams(),
		stats:  domain.Stats{UniqueParticipants: 2, TotalBets: 3},
	}
	d := newTestDashboard(t, ledger, agg)
	waitUntil(t, loaded(d, poller.KeyStatus, poller.KeyLedgerStatus, poller.KeyTeams, poller.KeyPositions, poller.KeyPrice, poller.KeyStats))

	v := d.View()
	if v.Status == nil || v.Status.Code != domain.StatusFinished || v.Status.Provisional {
		t.Fatalf("status=%+v want ledger Finished", v.Status)
	}
	if v.BettingOpen || v.Loading {
		t.Fatalf("betting_open=%v loading=%v want false,false", v.BettingOpen, v.Loading)
	}
	if !v.Teams[1].IsWinner || v.Teams[0].IsWinner {
		t.Fatalf("winner flags=%v,%v want false,true", v.Teams[0].IsWinner, v.Teams[1].IsWinner)
	}
	if len(v.Positions) != 1 || v.Positions[0].TeamID != 2 || v.Positions[0].AmountDecimal != 0.5 {
		t.Fatalf("positions=%+v", v.Positions)
	}
	if v.TotalExposure != 0.5 {
		t.Fatalf("exposure=%v want=0.5", v.TotalExposure)
	}
	if v.Price == nil || v.PoolUSD != 6000 {
		t.Fatalf("price=%v pool_usd=%v want 6000", v.Price, v.PoolUSD)
	}
	if v.Stats == nil || v.Stats.TotalBets != 3 {
		t.Fatalf("stats=%+v", v.Stats)
	}
}

func TestDashboardProvisionalWhenLedgerFails(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("rpc down")}
	agg := &fakeAgg{
		status: domain.ContestStatus{Code: domain.StatusOpen, TotalPoolWei: new(big.Int)},
		teams:  scenarioTeams(),
	}
	d := newTestDashboard(t, ledger, agg)
	waitUntil(t, loaded(d, poller.KeyStatus, poller.KeyLedgerStatus))

	v := d.View()
	if v.Status == nil || !v.Status.Provisional || v.Status.Code != domain.StatusOpen {
		t.Fatalf("status=%+v want provisional Open", v.Status)
	}
	if !v.BettingOpen {
		t.Fatal("betting should be open")
	}
	if _, ok := v.Errors[poller.KeyLedgerStatus]; !ok {
		t.Fatalf("errors=%v want ledger_status error", v.Errors)
	}
}

func TestDashboardLoadingWhenNoStatus(t *testing.T) {
	agg := &fakeAgg{err: errors.New("backend down")}
	d := newTestDashboard(t, nil, agg)
	waitUntil(t, loaded(d, poller.KeyStatus))

	v := d.View()
	if v.Status != nil || !v.Loading || v.BettingOpen {
		t.Fatalf("status=%v loading=%v open=%v want unresolved", v.Status, v.Loading, v.BettingOpen)
	}
}

func TestDashboardQuote(t *testing.T) {
	agg := &fakeAgg{
		status: domain.ContestStatus{Code: domain.StatusOpen, TotalPoolWei: weiOf("3000000000000000000")},
		teams:  scenarioTeams(),
	}
	d := newTestDashboard(t, nil, agg)
	waitUntil(t, loaded(d, poller.KeyStatus, poller.KeyTeams))

	got, err := d.Quote(1, "0.5")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if math.Abs(got-1.35) > 1e-9 {
		t.Fatalf("quote=%v want=1.35", got)
	}
	if _, err := d.Quote(7, "0.5"); !errors.Is(err, domain.ErrUnknownTeam) {
		t.Fatalf("err=%v want ErrUnknownTeam", err)
	}
	if _, err := d.Quote(1, "zero"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("err=%v want ErrInvalidAmount", err)
	}
}
