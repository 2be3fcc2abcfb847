package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Wallet is a secp256k1 key able to sign legacy EIP-155 transactions.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewWallet parses a hex private key, with or without 0x.
func NewWallet(privateKeyHex string) (*Wallet, error) {
	key, err := ethcrypto.HexToECDSA(trimHex(privateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &Wallet{key: key, address: ethcrypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the wallet's checksummed account.
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignTx signs tx for chainID with the EIP-155 replay-protected signer.
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: sign tx: %w", err)
	}
	return signed, nil
}

func (w *Wallet) keyBytes() []byte {
	return ethcrypto.FromECDSA(w.key)
}
