package chain_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/kgcourse/geopub/pkg/chain"
)

// Example transaction from EIP-155.
func eip155Tx(t *testing.T) *types.Transaction {
	to, err := chain.ParseAddress("0x3535353535353535353535353535353535353535")
	require.NoError(t, err)
	value, ok := new(big.Int).SetString("1000000000000000000", 10)
	require.True(t, ok)
	return types.NewTx(&types.LegacyTx{
		Nonce:    9,
		GasPrice: big.NewInt(20_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    value,
	})
}

func TestSigningHash(t *testing.T) {
	signer := types.NewEIP155Signer(big.NewInt(1))
	require.Equal(t,
		"0xdaf5a779ae972f972197303d7b574746c7ef83eadac0f2791ad23db92e4c8e53",
		signer.Hash(eip155Tx(t)).Hex(),
	)
}

func TestSignTx(t *testing.T) {
	key, err := crypto.HexToECDSA("4646464646464646464646464646464646464646464646464646464646464646")
	require.NoError(t, err)

	signed, err := chain.SignTx(eip155Tx(t), big.NewInt(1), key)
	require.NoError(t, err)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t,
		"0xf86c098504a817c800825208943535353535353535353535353535353535353535880de0b6b3a76400008025a028ef61340bd939bc2195fe537567866003e1a15d3c71ff63e1590620aa636276a067cbe9d8997f761aecb703304b3800ccf555c9f3dc64214b297fb1966a3b6d83",
		hexutil.Encode(raw),
	)
	require.Equal(t, crypto.Keccak256Hash(raw), signed.Hash())

	sender, err := types.Sender(types.NewEIP155Signer(big.NewInt(1)), signed)
	require.NoError(t, err)
	require.Equal(t, "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F", sender.Hex())
}

func TestNewCallTx(t *testing.T) {
	call := chain.Call{To: chain.Address{0xca}, Data: []byte{0x01, 0x02}}
	tx := chain.NewCallTx(3, big.NewInt(7), 50_000, call)
	require.Equal(t, uint8(types.LegacyTxType), tx.Type())
	require.Equal(t, uint64(3), tx.Nonce())
	require.Equal(t, uint64(50_000), tx.Gas())
	require.Equal(t, call.To, *tx.To())
	require.Equal(t, call.Data, tx.Data())
	require.Zero(t, tx.Value().Sign())

	// The transaction keeps its own copy of the target.
	call.To = chain.Address{0xff}
	require.Equal(t, chain.Address{0xca}, *tx.To())
}

func TestParseAddress(t *testing.T) {
	for _, s := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		a, err := chain.ParseAddress(s)
		require.NoError(t, err)
		require.Equal(t, s, a.Hex())
	}

	_, err := chain.ParseAddress("5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.Error(t, err)
	_, err = chain.ParseAddress("0x5aAeb6")
	require.Error(t, err)

	_, err = chain.ParseHash("0x1234")
	require.Error(t, err)
}
