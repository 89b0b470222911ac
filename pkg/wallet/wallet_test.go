package wallet_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/wallet"
)

const testKey = "0x4646464646464646464646464646464646464646464646464646464646464646"

func TestParsePrivateKey(t *testing.T) {
	key, err := wallet.ParsePrivateKey(testKey)
	require.NoError(t, err)
	require.Equal(t, "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F", key.Address().Hex())

	unprefixed, err := wallet.ParsePrivateKey(testKey[2:])
	require.NoError(t, err)
	require.Equal(t, key.Address(), unprefixed.Address())

	require.NotContains(t, key.String(), "4646464646")

	for _, bad := range []string{"", "0x1234", "not hex", "0x" + "00000000000000000000000000000000" + "00000000000000000000000000000000"} {
		_, err := wallet.ParsePrivateKey(bad)
		require.ErrorIs(t, err, wallet.ErrInvalidKey, bad)
	}
}

type stubNode struct {
	sent []*types.Transaction
}

func (n *stubNode) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (n *stubNode) Nonce(context.Context, chain.Address) (uint64, error) {
	return 9, nil
}
func (n *stubNode) GasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(20_000_000_000), nil
}
func (n *stubNode) EstimateGas(context.Context, chain.Address, chain.Call) (uint64, error) {
	return 100_000, nil
}
func (n *stubNode) SendTransaction(_ context.Context, tx *types.Transaction) (chain.Hash, error) {
	n.sent = append(n.sent, tx)
	return tx.Hash(), nil
}

func TestEOA(t *testing.T) {
	key, err := wallet.ParsePrivateKey(testKey)
	require.NoError(t, err)

	node := &stubNode{}
	r := wallet.NewResolver(node, url.URL{})
	w, err := r.Resolve(t.Context(), key, false)
	require.NoError(t, err)
	require.IsType(t, &wallet.EOA{}, w)
	require.Equal(t, key.Address(), w.Address())

	to, err := chain.ParseAddress("0x3535353535353535353535353535353535353535")
	require.NoError(t, err)
	hash, err := w.SendTransaction(t.Context(), chain.Call{To: to, Data: []byte{0x01, 0x02}})
	require.NoError(t, err)
	require.Len(t, node.sent, 1)
	tx := node.sent[0]
	require.Equal(t, tx.Hash(), hash)
	require.Equal(t, uint64(9), tx.Nonce())
	require.Equal(t, uint64(120_000), tx.Gas())
	require.Equal(t, to, *tx.To())
	require.Equal(t, []byte{0x01, 0x02}, tx.Data())

	sender, err := types.Sender(types.NewEIP155Signer(big.NewInt(1)), tx)
	require.NoError(t, err)
	require.Equal(t, key.Address(), sender)
}

func TestResolveWithoutKey(t *testing.T) {
	r := wallet.NewResolver(&stubNode{}, url.URL{})
	_, err := r.Resolve(t.Context(), wallet.PrivateKey{}, true)
	require.ErrorIs(t, err, wallet.ErrInvalidKey)
}

func TestSmartAccount(t *testing.T) {
	key, err := wallet.ParsePrivateKey(testKey)
	require.NoError(t, err)
	account, err := chain.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)
	target, err := chain.ParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	require.NoError(t, err)
	relayed, err := chain.ParseHash("0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b")
	require.NoError(t, err)

	var relayedBody map[string]any
	e := echo.New()
	e.GET("/accounts/:addr", func(c echo.Context) error {
		require.Equal(t, key.Address().Hex(), c.Param("addr"))
		return c.JSON(http.StatusOK, map[string]any{"address": account.Hex(), "chainId": 19411})
	})
	e.GET("/accounts/:addr/nonce", func(c echo.Context) error {
		require.Equal(t, account.Hex(), c.Param("addr"))
		return c.JSON(http.StatusOK, map[string]any{"nonce": 4})
	})
	e.POST("/relay", func(c echo.Context) error {
		require.NoError(t, json.NewDecoder(c.Request().Body).Decode(&relayedBody))
		return c.JSON(http.StatusOK, map[string]any{"transactionHash": relayed.Hex()})
	})
	server := httptest.NewServer(e)
	defer server.Close()
	relay, err := url.Parse(server.URL)
	require.NoError(t, err)

	r := wallet.NewResolver(&stubNode{}, *relay)
	w, err := r.Resolve(t.Context(), key, true)
	require.NoError(t, err)
	require.Equal(t, account, w.Address())
	require.Equal(t, key.Address(), w.(*wallet.SmartAccount).Owner())

	hash, err := w.SendTransaction(t.Context(), chain.Call{To: target, Data: []byte{0xab}})
	require.NoError(t, err)
	require.Equal(t, relayed, hash)

	require.Equal(t, "0xab", relayedBody["data"])
	require.Equal(t, float64(4), relayedBody["nonce"])
	require.Equal(t, float64(19411), relayedBody["chainId"])

	// The signature must recover to the owner.
	sig, err := hexutil.Decode(relayedBody["signature"].(string))
	require.NoError(t, err)
	require.Len(t, sig, 65)
	require.Contains(t, []byte{27, 28}, sig[64])
	sig[64] -= 27
	digest := wallet.RelayDigest(account, target, []byte{0xab}, 19411, 4)
	pub, err := crypto.SigToPub(accounts.TextHash(digest), sig)
	require.NoError(t, err)
	require.Equal(t, key.Address(), crypto.PubkeyToAddress(*pub))
}

func serveRelay(t *testing.T, e *echo.Echo) url.URL {
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	relay, err := url.Parse(server.URL)
	require.NoError(t, err)
	return *relay
}

func TestSmartAccountIncompleteRelay(t *testing.T) {
	key, err := wallet.ParsePrivateKey(testKey)
	require.NoError(t, err)
	account := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	t.Run("no account address", func(t *testing.T) {
		e := echo.New()
		e.GET("/accounts/:addr", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{})
		})
		_, err := wallet.NewResolver(nil, serveRelay(t, e)).Resolve(t.Context(), key, true)
		require.ErrorIs(t, err, wallet.ErrRelayResponse)
		require.ErrorContains(t, err, "no account address")
	})

	t.Run("no chain id", func(t *testing.T) {
		e := echo.New()
		e.GET("/accounts/:addr", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{"address": account})
		})
		_, err := wallet.NewResolver(nil, serveRelay(t, e)).Resolve(t.Context(), key, true)
		require.ErrorIs(t, err, wallet.ErrRelayResponse)
		require.ErrorContains(t, err, "no chain id")
	})

	t.Run("no transaction hash", func(t *testing.T) {
		e := echo.New()
		e.GET("/accounts/:addr", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{"address": account, "chainId": 19411})
		})
		e.GET("/accounts/:addr/nonce", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{"nonce": 0})
		})
		e.POST("/relay", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{})
		})
		w, err := wallet.NewResolver(nil, serveRelay(t, e)).Resolve(t.Context(), key, true)
		require.NoError(t, err)

		_, err = w.SendTransaction(t.Context(), chain.Call{To: chain.Address{0x01}})
		require.ErrorIs(t, err, wallet.ErrRelayResponse)
		require.ErrorContains(t, err, "no transaction hash")
	})
}

func TestSmartAccountRelayUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	relay, err := url.Parse(server.URL)
	require.NoError(t, err)

	key, err := wallet.ParsePrivateKey(testKey)
	require.NoError(t, err)

	_, err = wallet.NewResolver(&stubNode{}, *relay).Resolve(t.Context(), key, true)
	require.ErrorContains(t, err, "unexpected status 503")
}
