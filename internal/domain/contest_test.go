package domain

import (
	"math/big"
	"testing"
)

func TestStatusCodeString(t *testing.T) {
	cases := []struct {
		code StatusCode
		want string
	}{
		{StatusOpen, "Open"},
		{StatusStopped, "Stopped"},
		{StatusFinished, "Finished"},
		{StatusRefunding, "Refunding"},
		{StatusCode(4), "Unknown"},
		{StatusCode(255), "Unknown"},
	}
	for _, tc := range cases {
		if got := tc.code.String(); got != tc.want {
			t.Fatalf("code %d: got=%q want=%q", tc.code, got, tc.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]StatusCode{
		{StatusOpen, StatusStopped},
		{StatusStopped, StatusFinished},
		{StatusStopped, StatusRefunding},
		{StatusFinished, StatusFinished},
	}
	for _, p := range allowed {
		if !CanTransition(p[0], p[1]) {
			t.Fatalf("%s -> %s should be allowed", p[0], p[1])
		}
	}
	denied := [][2]StatusCode{
		{StatusStopped, StatusOpen},
		{StatusFinished, StatusStopped},
		{StatusOpen, StatusFinished},
		{StatusRefunding, StatusFinished},
	}
	for _, p := range denied {
		if CanTransition(p[0], p[1]) {
			t.Fatalf("%s -> %s should be rejected", p[0], p[1])
		}
	}
}

func TestNormalizeClearsWinnerUnlessFinished(t *testing.T) {
	id := int64(3)
	s := ContestStatus{Code: StatusStopped, WinningTeamID: &id}.Normalize()
	if s.WinningTeamID != nil {
		t.Fatalf("winning team should be cleared for %s", s.Code)
	}
	if s.Text != "Stopped" {
		t.Fatalf("text=%q want=Stopped", s.Text)
	}
	if s.TotalPoolWei == nil || s.TotalPoolWei.Sign() != 0 {
		t.Fatalf("nil pool should normalise to zero, got %v", s.TotalPoolWei)
	}

	f := ContestStatus{Code: StatusFinished, WinningTeamID: &id, TotalPoolWei: big.NewInt(5)}.Normalize()
	if f.WinningTeamID == nil || *f.WinningTeamID != 3 {
		t.Fatalf("winning team should be kept for Finished, got %v", f.WinningTeamID)
	}
}

func TestCloneIsDeep(t *testing.T) {
	id := int64(1)
	orig := ContestStatus{Code: StatusFinished, TotalPoolWei: big.NewInt(10), WinningTeamID: &id}
	c := orig.Clone()
	c.TotalPoolWei.SetInt64(99)
	*c.WinningTeamID = 7
	if orig.TotalPoolWei.Int64() != 10 || *orig.WinningTeamID != 1 {
		t.Fatalf("clone shares state with original: pool=%v winner=%d", orig.TotalPoolWei, *orig.WinningTeamID)
	}
}
