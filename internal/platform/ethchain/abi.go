// Package ethchain reads contest state from, and submits bets to, the
// on-chain betting contract.
package ethchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/ethclient"
)

// contestABI is the subset of the betting contract this package calls.
const contestABI = `[
	{"name":"status","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"name":"winningTeamId","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"totalPrizePool","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"getTeams","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"tuple[]","components":[
		{"name":"id","type":"uint256"},
		{"name":"name","type":"string"},
		{"name":"totalBetAmount","type":"uint256"},
		{"name":"supporterCount","type":"uint256"}
	]}]},
	{"name":"userBets","type":"function","stateMutability":"view","inputs":[
		{"name":"user","type":"address"},
		{"name":"teamId","type":"uint256"}
	],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"bet","type":"function","stateMutability":"payable","inputs":[{"name":"teamId","type":"uint256"}],"outputs":[]}
]`

func parseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(contestABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("ethchain: parse abi: %w", err)
	}
	return parsed, nil
}

// Dial connects to an Ethereum JSON-RPC endpoint. The returned client
// satisfies both the read and write backends of this package.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ethchain: dial %s: %w", rpcURL, err)
	}
	return c, nil
}
