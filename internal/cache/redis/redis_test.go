package redis

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// testClient connects to MAJORBET_TEST_REDIS_ADDR and flushes the selected
// DB. Tests skip when the variable is unset.
func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("MAJORBET_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MAJORBET_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := New(ctx, ClientConfig{Addr: addr, DB: 15})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Underlying().FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	sc := NewSnapshotCache(c, time.Minute)

	if _, err := sc.GetStatus(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}

	winner := int64(2)
	pool, _ := new(big.Int).SetString("3000000000000000000", 10)
	if err := sc.SetStatus(ctx, domain.ContestStatus{Code: domain.StatusFinished, TotalPoolWei: pool, WinningTeamID: &winner}); err != nil {
		t.Fatalf("set status: %v", err)
	}
	st, err := sc.GetStatus(ctx)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if st.Code != domain.StatusFinished || st.Text != "Finished" || st.TotalPoolWei.Cmp(pool) != 0 || *st.WinningTeamID != 2 {
		t.Fatalf("status=%+v", st)
	}

	teams := []domain.Team{{ID: 1, Name: "Alpha", PoolWei: big.NewInt(10)}, {ID: 2, Name: "Beta", IsWinner: true}}
	if err := sc.SetTeams(ctx, teams); err != nil {
		t.Fatalf("set teams: %v", err)
	}
	got, err := sc.GetTeams(ctx)
	if err != nil || len(got) != 2 || got[1].PoolWei.Sign() != 0 || !got[1].IsWinner {
		t.Fatalf("teams=%+v err=%v", got, err)
	}

	if err := sc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := sc.GetTeams(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestPriceCacheRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	pc := NewPriceCache(c)

	ts := time.Unix(1700000000, 42)
	q := domain.PriceQuote{Symbol: "ETHUSDT", Price: "3120.55", Source: "binance"}
	if err := pc.SetQuote(ctx, "ETH", q, ts); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, gotTS, err := pc.GetQuote(ctx, "ETH")
	if err != nil || got != q || !gotTS.Equal(ts) {
		t.Fatalf("got=%+v ts=%v err=%v", got, gotTS, err)
	}
	if _, _, err := pc.GetQuote(ctx, "BTC"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestLockExclusive(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	lm := NewLockManager(c)

	unlock, err := lm.Acquire(ctx, "contest_sync", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := lm.Acquire(ctx, "contest_sync", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err=%v want ErrLockHeld", err)
	}
	unlock()
	unlock()
	again, err := lm.Acquire(ctx, "contest_sync", time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again()
}

func TestRateLimiterWindow(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	rl := NewRateLimiter(c, 0, 0)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "record_bet:1.2.3.4", 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := rl.Allow(ctx, "record_bet:1.2.3.4", 3, time.Minute)
	if err != nil || ok {
		t.Fatalf("fourth request: ok=%v err=%v want denied", ok, err)
	}
}

func TestRateLimiterWaitBlocksOverQuota(t *testing.T) {
	c := testClient(t)
	rl := NewRateLimiter(c, 1, time.Minute)

	if err := rl.Wait(context.Background(), "pricefeed:upstream"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "pricefeed:upstream"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want DeadlineExceeded", err)
	}
}

func TestSignalBusDelivers(t *testing.T) {
	c := testClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bus := NewSignalBus(c)

	ch, err := bus.Subscribe(ctx, domain.ChannelBets)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Publish(ctx, domain.ChannelBets, []byte(`{"id":"x"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-ch:
		if string(msg) != `{"id":"x"}` {
			t.Fatalf("msg=%s", msg)
		}
	case <-ctx.Done():
		t.Fatal("no message delivered")
	}
}
