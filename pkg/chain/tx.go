package chain

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// NewCallTx builds a legacy transaction that invokes call without sending
// value.
func NewCallTx(nonce uint64, gasPrice *big.Int, gas uint64, call Call) *types.Transaction {
	to := call.To
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    new(big.Int),
		Data:     call.Data,
	})
}

// SignTx signs tx for chainID with EIP-155 replay protection.
func SignTx(tx *types.Transaction, chainID *big.Int, key *ecdsa.PrivateKey) (*types.Transaction, error) {
	return types.SignTx(tx, types.NewEIP155Signer(chainID), key)
}
