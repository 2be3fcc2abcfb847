package contest

import (
	"math/big"
	"testing"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

func status(code domain.StatusCode, pool int64, winner *int64) *domain.ContestStatus {
	s := domain.ContestStatus{Code: code, WinningTeamID: winner}
	if pool >= 0 {
		s.TotalPoolWei = big.NewInt(pool)
	}
	return &s
}

func ptr(v int64) *int64 { return &v }

func TestResolvePrefersLedger(t *testing.T) {
	got := Resolve(status(domain.StatusFinished, 100, ptr(2)), status(domain.StatusStopped, 90, nil))
	if got == nil {
		t.Fatal("expected resolved status")
	}
	if got.Code != domain.StatusFinished || got.Text != "Finished" {
		t.Fatalf("code=%v text=%q want=Finished", got.Code, got.Text)
	}
	if got.Provisional {
		t.Fatal("ledger-backed status must not be provisional")
	}
	if got.WinningTeamID == nil || *got.WinningTeamID != 2 {
		t.Fatalf("winner=%v want=2", got.WinningTeamID)
	}
	if got.TotalPoolWei.Int64() != 100 {
		t.Fatalf("pool=%s want=100", got.TotalPoolWei)
	}
}

func TestResolveAllCombinations(t *testing.T) {
	ledger := status(domain.StatusStopped, 10, nil)
	cache := status(domain.StatusOpen, 5, nil)

	cases := []struct {
		name        string
		ledger      *domain.ContestStatus
		cache       *domain.ContestStatus
		wantNil     bool
		wantCode    domain.StatusCode
		provisional bool
	}{
		{"both", ledger, cache, false, domain.StatusStopped, false},
		{"ledger only", ledger, nil, false, domain.StatusStopped, false},
		{"cache only", nil, cache, false, domain.StatusOpen, true},
		{"neither", nil, nil, true, 0, false},
	}
	for _, tc := range cases {
		got := Resolve(tc.ledger, tc.cache)
		if tc.wantNil {
			if got != nil {
				t.Fatalf("%s: got=%+v want=nil", tc.name, got)
			}
			continue
		}
		if got == nil {
			t.Fatalf("%s: got=nil", tc.name)
		}
		if got.Code != tc.wantCode || got.Provisional != tc.provisional {
			t.Fatalf("%s: code=%v provisional=%v want code=%v provisional=%v",
				tc.name, got.Code, got.Provisional, tc.wantCode, tc.provisional)
		}
	}
}

func TestResolveFillsPoolFromCache(t *testing.T) {
	got := Resolve(status(domain.StatusOpen, -1, nil), status(domain.StatusOpen, 77, nil))
	if got.TotalPoolWei.Int64() != 77 {
		t.Fatalf("pool=%s want=77", got.TotalPoolWei)
	}
}

func TestResolveDropsStaleWinner(t *testing.T) {
	got := Resolve(status(domain.StatusRefunding, 0, ptr(1)), nil)
	if got.WinningTeamID != nil {
		t.Fatalf("winner=%v want=nil for refunding", *got.WinningTeamID)
	}
}

func TestResolveFinishedWithoutWinnerIsProvisional(t *testing.T) {
	got := Resolve(status(domain.StatusFinished, 1, nil), status(domain.StatusStopped, -1, nil))
	if got == nil || got.Code != domain.StatusFinished {
		t.Fatalf("got=%+v want Finished", got)
	}
	if got.WinningTeamID != nil || !got.Provisional {
		t.Fatalf("winner=%v provisional=%v want unknown winner flagged provisional", got.WinningTeamID, got.Provisional)
	}

	got = Resolve(status(domain.StatusFinished, 1, nil), status(domain.StatusFinished, 1, ptr(3)))
	if got.Provisional || got.WinningTeamID == nil || *got.WinningTeamID != 3 {
		t.Fatalf("winner=%v provisional=%v want cache winner 3", got.WinningTeamID, got.Provisional)
	}

	got = Resolve(nil, status(domain.StatusFinished, 1, nil))
	if !got.Provisional || got.WinningTeamID != nil {
		t.Fatalf("cache-only finished: %+v", got)
	}
}

func TestResolveDoesNotAliasInputs(t *testing.T) {
	ledger := status(domain.StatusOpen, 10, nil)
	got := Resolve(ledger, nil)
	got.TotalPoolWei.SetInt64(99)
	if ledger.TotalPoolWei.Int64() != 10 {
		t.Fatalf("input mutated: pool=%s", ledger.TotalPoolWei)
	}
}

func TestStatusText(t *testing.T) {
	cases := map[int]string{0: "Open", 1: "Stopped", 2: "Finished", 3: "Refunding", 4: "Unknown", -1: "Unknown", 300: "Unknown"}
	for code, want := range cases {
		if got := StatusText(code); got != want {
			t.Fatalf("StatusText(%d)=%q want=%q", code, got, want)
		}
	}
}

func TestBettingOpen(t *testing.T) {
	if !BettingOpen(nil) {
		t.Fatal("unresolved status should not block betting")
	}
	if !BettingOpen(status(domain.StatusOpen, 0, nil)) {
		t.Fatal("open status should accept bets")
	}
	if BettingOpen(status(domain.StatusStopped, 0, nil)) {
		t.Fatal("stopped status should reject bets")
	}
}
