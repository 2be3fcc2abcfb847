package domain

import (
	"math/big"
	"time"
)

// StatusCode is the contest lifecycle code as stored by the ledger.
type StatusCode uint8

const (
	StatusOpen StatusCode = iota
	StatusStopped
	StatusFinished
	StatusRefunding
)

// statusNames is indexed by the ledger's integer status code.
var statusNames = [...]string{"Open", "Stopped", "Finished", "Refunding"}

// StatusUnknown is the label used for codes outside the known table.
const StatusUnknown = "Unknown"

// String returns the display label for the code, or "Unknown" when the code
// is out of range.
func (s StatusCode) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return StatusUnknown
}

// Valid reports whether s is one of the four known lifecycle codes.
func (s StatusCode) Valid() bool {
	return int(s) < len(statusNames)
}

// CanTransition reports whether the ledger may move from one status to
// another. Transitions are monotonic: Open -> Stopped -> Finished|Refunding.
// Staying in the same status is always allowed.
func CanTransition(from, to StatusCode) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusOpen:
		return to == StatusStopped
	case StatusStopped:
		return to == StatusFinished || to == StatusRefunding
	default:
		return false
	}
}

// ContestStatus is the canonical status record for the contest.
type ContestStatus struct {
	Code          StatusCode
	Text          string
	TotalPoolWei  *big.Int
	WinningTeamID *int64 // set iff Code == StatusFinished
	// Provisional is true when the record came from the aggregation service
	// while the ledger read was still outstanding, or when it is Finished but
	// no source has reported the winner yet.
	Provisional bool
}

// Normalize enforces the winning-team invariant and fills the text label from
// the code. It returns the adjusted copy.
func (s ContestStatus) Normalize() ContestStatus {
	s.Text = s.Code.String()
	if s.Code != StatusFinished {
		s.WinningTeamID = nil
	}
	if s.TotalPoolWei == nil {
		s.TotalPoolWei = new(big.Int)
	}
	return s
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s ContestStatus) Clone() ContestStatus {
	out := s
	if s.TotalPoolWei != nil {
		out.TotalPoolWei = new(big.Int).Set(s.TotalPoolWei)
	}
	if s.WinningTeamID != nil {
		id := *s.WinningTeamID
		out.WinningTeamID = &id
	}
	return out
}

// Team is a contest participant with its accumulated pool.
type Team struct {
	ID             int64
	Name           string
	PoolWei        *big.Int
	SupporterCount int64
	IsWinner       bool
}

// UserPosition is the caller's exposure on a single team. It is derived on
// every refresh and never persisted.
type UserPosition struct {
	TeamID        int64
	TeamName      string
	Amount        *big.Int
	AmountDecimal float64
}

// PriceQuote is an exchange-rate quote, e.g. ETH in USD.
type PriceQuote struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Source string `json:"source,omitempty"`
}

// Stats are the aggregate participation figures for the contest.
type Stats struct {
	UniqueParticipants int64
	TotalBets          int64
	TotalPoolWei       *big.Int
}

// LeaderboardEntry ranks a bettor by total amount wagered.
type LeaderboardEntry struct {
	Rank     int
	Address  string
	TotalWei *big.Int
}

// BetRecord is an off-chain record of a confirmed bet, reported by clients
// after their ledger write succeeds.
type BetRecord struct {
	ID          string
	UserAddress string
	TeamID      int64
	AmountWei   *big.Int
	TxHash      string
	CreatedAt   time.Time
}
