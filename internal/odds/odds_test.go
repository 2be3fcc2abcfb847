package odds

import (
	"math"
	"math/big"
	"testing"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

func TestExpectedPayoutScenario(t *testing.T) {
	got := ExpectedPayout(0.5, 1, 3, DefaultHouseCut)
	if math.Abs(got-1.35) > 1e-9 {
		t.Fatalf("payout=%v want=1.35", got)
	}
}

func TestExpectedPayoutZeroTeamPool(t *testing.T) {
	for _, x := range []float64{0, 0.1, 5, 1000} {
		for _, total := range []float64{0, 1, 42} {
			if got := ExpectedPayout(x, 0, total, DefaultHouseCut); got != 0 {
				t.Fatalf("ExpectedPayout(%v, 0, %v)=%v want=0", x, total, got)
			}
		}
	}
}

func TestExpectedPayoutProportionalShare(t *testing.T) {
	cases := []struct{ x, team, total float64 }{
		{0.5, 1, 3},
		{2, 7, 10},
		{0.001, 0.3, 12.5},
		{10, 10, 10},
	}
	for _, tc := range cases {
		got := ExpectedPayout(tc.x, tc.team, tc.total, DefaultHouseCut)
		lhs := got * tc.team
		rhs := tc.x * tc.total * 0.9
		if math.Abs(lhs-rhs) > 1e-9 {
			t.Fatalf("payout*teamPool=%v want=%v (x=%v team=%v total=%v)", lhs, rhs, tc.x, tc.team, tc.total)
		}
	}
}

func TestExpectedPayoutDegradesOnBadInput(t *testing.T) {
	if got := ExpectedPayout(-1, 1, 3, DefaultHouseCut); got != 0 {
		t.Fatalf("negative amount payout=%v want=0", got)
	}
	if got := ExpectedPayout(math.NaN(), 1, 3, DefaultHouseCut); got != 0 {
		t.Fatalf("NaN amount payout=%v want=0", got)
	}
	got := ExpectedPayout(1, 1, 1, 2)
	if math.Abs(got-0.9) > 1e-9 {
		t.Fatalf("out-of-range house cut payout=%v want=0.9", got)
	}
}

func TestCalculatorQuote(t *testing.T) {
	oneEth, _ := new(big.Int).SetString("1000000000000000000", 10)
	threeEth, _ := new(big.Int).SetString("3000000000000000000", 10)

	c := NewCalculator(0.10)
	team := domain.Team{ID: 1, Name: "Alpha", PoolWei: oneEth}
	status := domain.ContestStatus{Code: domain.StatusOpen, TotalPoolWei: threeEth}

	got := c.Quote(0.5, team, status)
	if math.Abs(got-1.35) > 1e-9 {
		t.Fatalf("quote=%v want=1.35", got)
	}

	empty := domain.Team{ID: 2, Name: "Beta"}
	if got := c.Quote(0.5, empty, status); got != 0 {
		t.Fatalf("empty pool quote=%v want=0", got)
	}
}
