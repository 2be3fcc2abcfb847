package contest

import (
	"math/big"
	"testing"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad wei literal " + s)
	}
	return v
}

func TestAggregateSkipsZeroBalances(t *testing.T) {
	teams := []domain.Team{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta"}}
	balances := map[int64]*big.Int{1: big.NewInt(0), 2: wei("500000000000000000")}

	got := Aggregate(teams, balances)
	if len(got) != 1 {
		t.Fatalf("positions=%d want=1", len(got))
	}
	if got[0].TeamID != 2 || got[0].TeamName != "Beta" {
		t.Fatalf("position=%+v want team 2", got[0])
	}
	if got[0].AmountDecimal != 0.5 {
		t.Fatalf("amount=%v want=0.5", got[0].AmountDecimal)
	}
}

func TestAggregateSortsDescendingAndStable(t *testing.T) {
	teams := []domain.Team{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
		{ID: 3, Name: "C"},
		{ID: 4, Name: "D"},
		{ID: 5, Name: "E"},
	}
	balances := map[int64]*big.Int{
		1: wei("1000000000000000000"),
		2: wei("3000000000000000000"),
		3: wei("1000000000000000000"),
		4: wei("3000000000000000000"),
		// 5 missing
	}

	got := Aggregate(teams, balances)
	want := []int64{2, 4, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("positions=%d want=%d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].TeamID != id {
			t.Fatalf("position[%d]=%d want=%d", i, got[i].TeamID, id)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].AmountDecimal < got[i].AmountDecimal {
			t.Fatalf("not sorted at %d: %v < %v", i, got[i-1].AmountDecimal, got[i].AmountDecimal)
		}
	}
	if total := TotalExposure(got); total != 8 {
		t.Fatalf("total=%v want=8", total)
	}
}

func TestAggregateCopiesAmounts(t *testing.T) {
	bal := big.NewInt(10)
	got := Aggregate([]domain.Team{{ID: 1}}, map[int64]*big.Int{1: bal})
	got[0].Amount.SetInt64(0)
	if bal.Int64() != 10 {
		t.Fatalf("balance mutated: %s", bal)
	}
}

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate(nil, nil); len(got) != 0 {
		t.Fatalf("positions=%d want=0", len(got))
	}
	if TotalExposure(nil) != 0 {
		t.Fatal("total exposure of nothing should be 0")
	}
}
