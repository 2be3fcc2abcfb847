// Package contest merges ledger and aggregation-service views of the contest
// into the canonical records shown to bettors.
package contest

import (
	"math/big"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// StatusText maps a raw ledger status code to its label.
func StatusText(code int) string {
	if code < 0 || code > 255 {
		return domain.StatusUnknown
	}
	return domain.StatusCode(code).String()
}

// Resolve merges the ledger read and the cached aggregation-service read into
// one status. A nil argument means that source has not resolved yet; a nil
// result means neither has and nothing should be rendered.
//
// Whenever the ledger has resolved its code and winner win. Only fields the
// ledger read left empty are taken from the cache. A cache-only result is
// marked Provisional, and so is a Finished result whose winner neither source
// has reported yet.
func Resolve(ledger, cache *domain.ContestStatus) *domain.ContestStatus {
	switch {
	case ledger != nil:
		out := ledger.Clone()
		out.Provisional = false
		if cache != nil {
			if out.TotalPoolWei == nil && cache.TotalPoolWei != nil {
				out.TotalPoolWei = new(big.Int).Set(cache.TotalPoolWei)
			}
			if out.WinningTeamID == nil && out.Code == domain.StatusFinished &&
				cache.Code == domain.StatusFinished && cache.WinningTeamID != nil {
				id := *cache.WinningTeamID
				out.WinningTeamID = &id
			}
		}
		out = out.Normalize()
		out.Provisional = awaitingWinner(out)
		return &out
	case cache != nil:
		out := cache.Clone().Normalize()
		out.Provisional = true
		return &out
	default:
		return nil
	}
}

func awaitingWinner(s domain.ContestStatus) bool {
	return s.Code == domain.StatusFinished && s.WinningTeamID == nil
}

// BettingOpen reports whether a resolved status accepts bets. An unresolved
// status does not block betting; the ledger has the final say.
func BettingOpen(status *domain.ContestStatus) bool {
	return status == nil || status.Code == domain.StatusOpen
}
