package contest

import (
	"math/big"
	"sort"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/units"
)

// Aggregate projects the caller's per-team balances onto the team list. Teams
// with a zero or missing balance are skipped. The result is sorted by amount,
// largest first; equal amounts keep the order of teams.
func Aggregate(teams []domain.Team, balances map[int64]*big.Int) []domain.UserPosition {
	out := make([]domain.UserPosition, 0, len(teams))
	for _, t := range teams {
		bal, ok := balances[t.ID]
		if !ok || bal == nil || bal.Sign() <= 0 {
			continue
		}
		out = append(out, domain.UserPosition{
			TeamID:        t.ID,
			TeamName:      t.Name,
			Amount:        new(big.Int).Set(bal),
			AmountDecimal: units.ToDecimal(bal.String(), units.EtherDecimals),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AmountDecimal > out[j].AmountDecimal
	})
	return out
}

// TotalExposure sums the decimal amounts of positions.
func TotalExposure(positions []domain.UserPosition) float64 {
	var total float64
	for _, p := range positions {
		total += p.AmountDecimal
	}
	return total
}

// TeamIDs returns the ids of teams in order.
func TeamIDs(teams []domain.Team) []int64 {
	ids := make([]int64, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids
}
