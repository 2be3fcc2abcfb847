package ethchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// teamTuple mirrors the getTeams output tuple.
type teamTuple struct {
	Id             *big.Int
	Name           string
	TotalBetAmount *big.Int
	SupporterCount *big.Int
}

// Client implements domain.LedgerReader over eth_call.
type Client struct {
	caller   ethereum.ContractCaller
	contract common.Address
	abi      abi.ABI
}

// NewClient creates a ledger reader for the contract at contractAddr.
func NewClient(caller ethereum.ContractCaller, contractAddr string) (*Client, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("ethchain: invalid contract address %q", contractAddr)
	}
	parsed, err := parseABI()
	if err != nil {
		return nil, err
	}
	return &Client{
		caller:   caller,
		contract: common.HexToAddress(contractAddr),
		abi:      parsed,
	}, nil
}

// Status reads the lifecycle code and prize pool. The winning team is read
// only once the contest is Finished.
func (c *Client) Status(ctx context.Context) (domain.ContestStatus, error) {
	out, err := c.call(ctx, "status")
	if err != nil {
		return domain.ContestStatus{}, err
	}
	code := *abi.ConvertType(out[0], new(uint8)).(*uint8)

	out, err = c.call(ctx, "totalPrizePool")
	if err != nil {
		return domain.ContestStatus{}, err
	}
	pool := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)

	st := domain.ContestStatus{Code: domain.StatusCode(code), TotalPoolWei: pool}
	if st.Code == domain.StatusFinished {
		out, err = c.call(ctx, "winningTeamId")
		if err != nil {
			return domain.ContestStatus{}, err
		}
		winner := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
		if !winner.IsInt64() {
			return domain.ContestStatus{}, fmt.Errorf("ethchain: winning team id %s out of range: %w", winner, domain.ErrMalformedResponse)
		}
		id := winner.Int64()
		st.WinningTeamID = &id
	}
	return st.Normalize(), nil
}

// Teams reads every team with its pool and supporter count.
func (c *Client) Teams(ctx context.Context) ([]domain.Team, error) {
	out, err := c.call(ctx, "getTeams")
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]teamTuple)).(*[]teamTuple)

	teams := make([]domain.Team, 0, len(raw))
	for _, t := range raw {
		if t.Id == nil || !t.Id.IsInt64() || t.SupporterCount == nil || !t.SupporterCount.IsInt64() {
			return nil, fmt.Errorf("ethchain: getTeams: team %q out of range: %w", t.Name, domain.ErrMalformedResponse)
		}
		pool := t.TotalBetAmount
		if pool == nil {
			pool = new(big.Int)
		}
		teams = append(teams, domain.Team{
			ID:             t.Id.Int64(),
			Name:           t.Name,
			PoolWei:        pool,
			SupporterCount: t.SupporterCount.Int64(),
		})
	}
	return teams, nil
}

// UserBalances reads user's stake on each of teamIDs.
func (c *Client) UserBalances(ctx context.Context, user string, teamIDs []int64) (map[int64]*big.Int, error) {
	if user == "" {
		return nil, fmt.Errorf("ethchain: user balances: %w", domain.ErrWalletNotConnected)
	}
	if !common.IsHexAddress(user) {
		return nil, fmt.Errorf("ethchain: user balances: invalid address %q", user)
	}
	addr := common.HexToAddress(user)

	balances := make(map[int64]*big.Int, len(teamIDs))
	for _, id := range teamIDs {
		out, err := c.call(ctx, "userBets", addr, big.NewInt(id))
		if err != nil {
			return nil, err
		}
		balances[id] = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	}
	return balances, nil
}

func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("ethchain: pack %s: %w", method, err)
	}
	res, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("ethchain: call %s: %w", method, err)
	}
	out, err := c.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("ethchain: unpack %s: %w: %v", method, domain.ErrMalformedResponse, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ethchain: %s returned nothing: %w", method, domain.ErrMalformedResponse)
	}
	return out, nil
}
