package service

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func weiOf(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad wei " + s)
	}
	return v
}

func int64p(v int64) *int64 { return &v }

type fakeLedger struct {
	mu       sync.Mutex
	status   domain.ContestStatus
	teams    []domain.Team
	balances map[int64]*big.Int
	err      error
}

func (f *fakeLedger) Status(context.Context) (domain.ContestStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status.Clone(), f.err
}

func (f *fakeLedger) Teams(context.Context) ([]domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Team, len(f.teams))
	copy(out, f.teams)
	return out, f.err
}

func (f *fakeLedger) UserBalances(_ context.Context, _ string, ids []int64) (map[int64]*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]*big.Int, len(ids))
	for _, id := range ids {
		if b, ok := f.balances[id]; ok {
			out[id] = b
		} else {
			out[id] = new(big.Int)
		}
	}
	return out, f.err
}

type fakeWriter struct {
	mu         sync.Mutex
	chainID    *big.Int
	chainErr   error
	placeErr   error
	confirmErr error
	block      chan struct{}
	placed     []*big.Int
}

func (f *fakeWriter) ChainID(context.Context) (*big.Int, error) { return f.chainID, f.chainErr }

func (f *fakeWriter) PlaceBet(_ context.Context, _ int64, amount *big.Int) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.placed = append(f.placed, amount)
	return "0xfeed", nil
}

func (f *fakeWriter) WaitConfirmed(context.Context, string) error { return f.confirmErr }

func (f *fakeWriter) From() string { return "0x2222222222222222222222222222222222222222" }

type fakeRecorder struct {
	mu   sync.Mutex
	bets []domain.BetRecord
	err  error
}

func (f *fakeRecorder) RecordBet(_ context.Context, bet domain.BetRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bets = append(f.bets, bet)
	return f.err
}

type fakeInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeInvalidator) Invalidate(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

type fakeView struct {
	status *domain.ContestStatus
	teams  []domain.Team
}

func (f *fakeView) CurrentStatus() *domain.ContestStatus { return f.status }
func (f *fakeView) CurrentTeams() []domain.Team          { return f.teams }

type fakeAgg struct {
	status domain.ContestStatus
	teams  []domain.Team
	stats  domain.Stats
	board  []domain.LeaderboardEntry
	err    error
}

func (f *fakeAgg) GetStatus(context.Context) (domain.ContestStatus, error) { return f.status, f.err }
func (f *fakeAgg) GetTeams(context.Context) ([]domain.Team, error)         { return f.teams, f.err }
func (f *fakeAgg) GetStats(context.Context) (domain.Stats, error)          { return f.stats, f.err }
func (f *fakeAgg) GetLeaderboard(context.Context) ([]domain.LeaderboardEntry, error) {
	return f.board, f.err
}

type fakeFeed struct {
	quote domain.PriceQuote
	calls int
}

func (f *fakeFeed) FetchPrice(context.Context) domain.PriceQuote {
	f.calls++
	return f.quote
}

type fakeContestStore struct {
	status  *domain.ContestStatus
	teams   []domain.Team
	saves   int
	saveErr error
}

func (f *fakeContestStore) SaveSnapshot(_ context.Context, st domain.ContestStatus, teams []domain.Team) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	c := st.Clone()
	f.status = &c
	f.teams = teams
	f.saves++
	return nil
}

func (f *fakeContestStore) GetStatus(context.Context) (domain.ContestStatus, error) {
	if f.status == nil {
		return domain.ContestStatus{}, domain.ErrNotFound
	}
	return f.status.Clone(), nil
}

func (f *fakeContestStore) ListTeams(context.Context) ([]domain.Team, error) { return f.teams, nil }

func (f *fakeContestStore) GetTeam(_ context.Context, id int64) (domain.Team, error) {
	for _, t := range f.teams {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Team{}, domain.ErrNotFound
}

type fakeSnapshotCache struct {
	status *domain.ContestStatus
	teams  []domain.Team
}

func (f *fakeSnapshotCache) SetStatus(_ context.Context, st domain.ContestStatus) error {
	f.status = &st
	return nil
}

func (f *fakeSnapshotCache) GetStatus(context.Context) (domain.ContestStatus, error) {
	if f.status == nil {
		return domain.ContestStatus{}, domain.ErrNotFound
	}
	return *f.status, nil
}

func (f *fakeSnapshotCache) SetTeams(_ context.Context, teams []domain.Team) error {
	f.teams = teams
	return nil
}

func (f *fakeSnapshotCache) GetTeams(context.Context) ([]domain.Team, error) {
	if f.teams == nil {
		return nil, domain.ErrNotFound
	}
	return f.teams, nil
}

func (f *fakeSnapshotCache) Invalidate(context.Context) error {
	f.status, f.teams = nil, nil
	return nil
}

type fakeLocks struct{ held bool }

func (f *fakeLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if f.held {
		return nil, domain.ErrLockHeld
	}
	f.held = true
	return func() { f.held = false }, nil
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func (f *fakeBus) Publish(_ context.Context, ch string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == nil {
		f.published = map[string][][]byte{}
	}
	f.published[ch] = append(f.published[ch], payload)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

type fakeAudit struct{ events []string }

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeNotifier struct{ events []string }

func (f *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	f.events = append(f.events, event)
	return nil
}

type fakeBetStore struct {
	bets  []domain.BetRecord
	stats domain.Stats
}

func (f *fakeBetStore) Create(_ context.Context, bet domain.BetRecord) error {
	f.bets = append(f.bets, bet)
	return nil
}

func (f *fakeBetStore) Stats(context.Context) (domain.Stats, error) { return f.stats, nil }

func (f *fakeBetStore) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return make([]domain.LeaderboardEntry, 0, limit), nil
}

func (f *fakeBetStore) ListByUser(_ context.Context, user string, _ domain.ListOpts) ([]domain.BetRecord, error) {
	var out []domain.BetRecord
	for _, b := range f.bets {
		if b.UserAddress == user {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakePriceCache struct {
	quote *domain.PriceQuote
	ts    time.Time
}

func (f *fakePriceCache) SetQuote(_ context.Context, _ string, q domain.PriceQuote, ts time.Time) error {
	f.quote, f.ts = &q, ts
	return nil
}

func (f *fakePriceCache) GetQuote(context.Context, string) (domain.PriceQuote, time.Time, error) {
	if f.quote == nil {
		return domain.PriceQuote{}, time.Time{}, domain.ErrNotFound
	}
	return *f.quote, f.ts, nil
}

type fakeQuota struct {
	err   error
	waits []string
}

func (f *fakeQuota) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return f.err == nil, f.err
}

func (f *fakeQuota) Wait(_ context.Context, key string) error {
	f.waits = append(f.waits, key)
	return f.err
}
