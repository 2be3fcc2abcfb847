package ethchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// DefaultGasLimit is the fixed gas budget for bet(), matching the dapp.
const DefaultGasLimit = 200_000

// TxBackend is the subset of ethclient.Client the writer needs.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer signs transactions for a single account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Writer implements domain.LedgerWriter by sending signed legacy
// transactions.
type Writer struct {
	backend      TxBackend
	signer       Signer
	contract     common.Address
	abi          abi.ABI
	gasLimit     uint64
	pollInterval time.Duration
}

// WriterOption customizes a Writer.
type WriterOption func(*Writer)

// WithGasLimit overrides DefaultGasLimit.
func WithGasLimit(gas uint64) WriterOption {
	return func(w *Writer) {
		if gas > 0 {
			w.gasLimit = gas
		}
	}
}

// WithReceiptPollInterval sets how often WaitConfirmed polls for a receipt.
func WithReceiptPollInterval(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// NewWriter creates a ledger writer that signs with signer.
func NewWriter(backend TxBackend, signer Signer, contractAddr string, opts ...WriterOption) (*Writer, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("ethchain: invalid contract address %q", contractAddr)
	}
	parsed, err := parseABI()
	if err != nil {
		return nil, err
	}
	w := &Writer{
		backend:      backend,
		signer:       signer,
		contract:     common.HexToAddress(contractAddr),
		abi:          parsed,
		gasLimit:     DefaultGasLimit,
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// From returns the sending account.
func (w *Writer) From() string {
	return w.signer.Address().Hex()
}

// ChainID returns the chain the backend is connected to.
func (w *Writer) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := w.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("ethchain: chain id: %w", err)
	}
	return id, nil
}

// PlaceBet sends bet(teamID) carrying amountWei and returns the tx hash.
func (w *Writer) PlaceBet(ctx context.Context, teamID int64, amountWei *big.Int) (string, error) {
	if amountWei == nil || amountWei.Sign() <= 0 {
		return "", fmt.Errorf("ethchain: place bet: %w", domain.ErrInvalidAmount)
	}
	data, err := w.abi.Pack("bet", big.NewInt(teamID))
	if err != nil {
		return "", fmt.Errorf("ethchain: pack bet: %w", err)
	}

	chainID, err := w.ChainID(ctx)
	if err != nil {
		return "", err
	}
	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("ethchain: gas price: %w", err)
	}
	nonce, err := w.backend.PendingNonceAt(ctx, w.signer.Address())
	if err != nil {
		return "", fmt.Errorf("ethchain: pending nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      w.gasLimit,
		To:       &w.contract,
		Value:    new(big.Int).Set(amountWei),
		Data:     data,
	})
	signed, err := w.signer.SignTx(tx, chainID)
	if err != nil {
		return "", fmt.Errorf("ethchain: %w", err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("ethchain: send tx: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// WaitConfirmed polls for the receipt of txHash until it is mined or ctx
// ends. A reverted receipt returns domain.ErrTxReverted.
func (w *Writer) WaitConfirmed(ctx context.Context, txHash string) error {
	hash := common.HexToHash(txHash)
	for {
		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("ethchain: tx %s: %w", txHash, domain.ErrTxReverted)
			}
			return nil
		case !errors.Is(err, ethereum.NotFound):
			return fmt.Errorf("ethchain: receipt %s: %w", txHash, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("ethchain: wait for %s: %w", txHash, ctx.Err())
		case <-time.After(w.pollInterval):
		}
	}
}
