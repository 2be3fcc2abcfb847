package domain

import (
	"context"
	"math/big"
)

// LedgerReader is the read surface of the betting contract.
type LedgerReader interface {
	// Status returns the ledger's view of the contest. TotalPoolWei and
	// WinningTeamID are filled when the ledger exposes them.
	Status(ctx context.Context) (ContestStatus, error)
	Teams(ctx context.Context) ([]Team, error)
	// UserBalances returns the caller's wagered amount per team ID.
	UserBalances(ctx context.Context, user string, teamIDs []int64) (map[int64]*big.Int, error)
}

// LedgerWriter is the write surface of the betting contract.
type LedgerWriter interface {
	ChainID(ctx context.Context) (*big.Int, error)
	// PlaceBet submits a payable bet on teamID carrying amountWei and returns
	// the transaction hash.
	PlaceBet(ctx context.Context, teamID int64, amountWei *big.Int) (string, error)
	// WaitConfirmed blocks until the transaction is mined. A reverted
	// transaction returns ErrTxReverted.
	WaitConfirmed(ctx context.Context, txHash string) error
	// From returns the address that signs submitted transactions.
	From() string
}
