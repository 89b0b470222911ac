// Package wallet resolves a signing key into something that can send
// transactions: either a plain externally owned account that pays its own
// gas, or a smart account whose transactions are sponsored by a relay.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/kgcourse/geopub/pkg/chain"
)

var ErrInvalidKey = errors.New("invalid private key")

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	key *ecdsa.PrivateKey
}

// ParsePrivateKey parses a 32 byte hex key, with or without 0x prefix.
func ParsePrivateKey(s string) (PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PrivateKey{}, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return PrivateKey{key: key}, nil
}

// Address derives the account address from the public key.
func (k PrivateKey) Address() chain.Address {
	return crypto.PubkeyToAddress(k.key.PublicKey)
}

func (k PrivateKey) IsZero() bool {
	return k.key == nil
}

// SignMessage produces an EIP-191 personal message signature (r || s || v,
// v in {27, 28}) over msg.
func (k PrivateKey) SignMessage(msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), k.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// String never reveals the key material.
func (k PrivateKey) String() string {
	if k.key == nil {
		return "PrivateKey(<nil>)"
	}
	return "PrivateKey(" + k.Address().Hex() + ")"
}
