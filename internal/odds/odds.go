// Package odds computes proportional-share payouts for prospective bets.
package odds

import (
	"math"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/units"
)

// DefaultHouseCut is the protocol fee withheld from the total pool.
const DefaultHouseCut = 0.10

// ExpectedPayout returns the share of the post-fee pool a bettor would receive
// if their team wins: (userAmount/teamPool) * totalPool * (1-houseCut).
//
// An empty team pool has undefined odds and yields 0. Negative or NaN inputs
// also yield 0. A houseCut outside [0,1] falls back to DefaultHouseCut.
func ExpectedPayout(userAmount, teamPool, totalPool, houseCut float64) float64 {
	if !usable(userAmount) || !usable(teamPool) || !usable(totalPool) {
		return 0
	}
	if teamPool == 0 {
		return 0
	}
	if math.IsNaN(houseCut) || houseCut < 0 || houseCut > 1 {
		houseCut = DefaultHouseCut
	}
	finalPool := totalPool * (1 - houseCut)
	return (userAmount / teamPool) * finalPool
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Calculator quotes payouts against live team and contest state.
type Calculator struct {
	HouseCut float64
}

// NewCalculator returns a Calculator using houseCut, or DefaultHouseCut when
// houseCut is out of range.
func NewCalculator(houseCut float64) Calculator {
	if math.IsNaN(houseCut) || houseCut < 0 || houseCut > 1 {
		houseCut = DefaultHouseCut
	}
	return Calculator{HouseCut: houseCut}
}

// Quote returns the expected payout in ETH for a bet of userAmount ETH on team.
// The team pool does not yet include userAmount.
func (c Calculator) Quote(userAmount float64, team domain.Team, status domain.ContestStatus) float64 {
	return ExpectedPayout(
		userAmount,
		units.WeiToDecimal(team.PoolWei),
		units.WeiToDecimal(status.TotalPoolWei),
		c.HouseCut,
	)
}
