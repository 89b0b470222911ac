package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Address is a 20 byte account address.
type Address = common.Address

// Hash is a 32 byte keccak digest, used for transaction hashes.
type Hash = common.Hash

type Receipt = types.Receipt

// Call is a contract call: the target and its ABI encoded calldata.
type Call struct {
	To   Address
	Data []byte
}

// ParseAddress parses a 0x prefixed hex address. Checksums are not enforced.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := a.UnmarshalText([]byte(s)); err != nil {
		return Address{}, fmt.Errorf("parsing address %q: %w", s, err)
	}
	return a, nil
}

func ParseHash(s string) (Hash, error) {
	var h Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return Hash{}, fmt.Errorf("parsing hash %q: %w", s, err)
	}
	return h, nil
}
