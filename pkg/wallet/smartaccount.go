package wallet

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/kgcourse/geopub/pkg/chain"
)

// ErrRelayResponse is returned when the sponsor relay answers with a
// response that is missing required fields.
var ErrRelayResponse = errors.New("invalid relay response")

// SmartAccount is a contract account owned by a key. Its transactions are
// submitted and paid for by a sponsoring relay; the owner only signs them.
type SmartAccount struct {
	owner      PrivateKey
	address    chain.Address
	chainID    uint64
	relay      url.URL
	httpClient *http.Client
}

var _ Wallet = (*SmartAccount)(nil)

func (w *SmartAccount) Address() chain.Address {
	return w.address
}

// Owner is the externally owned address that controls the account.
func (w *SmartAccount) Owner() chain.Address {
	return w.owner.Address()
}

type accountResponse struct {
	Address chain.Address `json:"address"`
	ChainID uint64        `json:"chainId"`
}

func (w *SmartAccount) init(ctx context.Context) error {
	var res accountResponse
	if err := w.do(ctx, http.MethodGet, "/accounts/"+w.owner.Address().Hex(), nil, &res); err != nil {
		return err
	}
	if res.Address == (chain.Address{}) {
		return fmt.Errorf("%w: no account address", ErrRelayResponse)
	}
	if res.ChainID == 0 {
		return fmt.Errorf("%w: no chain id", ErrRelayResponse)
	}
	w.address = res.Address
	w.chainID = res.ChainID
	return nil
}

type nonceResponse struct {
	Nonce uint64 `json:"nonce"`
}

type relayRequest struct {
	Account   chain.Address `json:"account"`
	Owner     chain.Address `json:"owner"`
	To        chain.Address `json:"to"`
	Data      string        `json:"data"`
	ChainID   uint64        `json:"chainId"`
	Nonce     uint64        `json:"nonce"`
	Signature string        `json:"signature"`
}

type relayResponse struct {
	TransactionHash chain.Hash `json:"transactionHash"`
}

// RelayDigest is the message the owner signs to authorize a sponsored call:
// keccak256(account || to || data || chainId || nonce), integers as 32 byte
// big-endian words.
func RelayDigest(account, to chain.Address, data []byte, chainID, nonce uint64) []byte {
	return crypto.Keccak256(account[:], to[:], data, word(chainID), word(nonce))
}

func word(x uint64) []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint64(b[24:], x)
	return b
}

func (w *SmartAccount) SendTransaction(ctx context.Context, call chain.Call) (chain.Hash, error) {
	ctx, span := tracer.Start(ctx, "SmartAccount.SendTransaction")
	defer span.End()

	var n nonceResponse
	if err := w.do(ctx, http.MethodGet, "/accounts/"+w.address.Hex()+"/nonce", nil, &n); err != nil {
		return chain.Hash{}, fmt.Errorf("getting account nonce: %w", err)
	}

	sig, err := w.owner.SignMessage(RelayDigest(w.address, call.To, call.Data, w.chainID, n.Nonce))
	if err != nil {
		return chain.Hash{}, fmt.Errorf("signing relay request: %w", err)
	}
	req := relayRequest{
		Account:   w.address,
		Owner:     w.owner.Address(),
		To:        call.To,
		Data:      hexutil.Encode(call.Data),
		ChainID:   w.chainID,
		Nonce:     n.Nonce,
		Signature: hexutil.Encode(sig),
	}
	var res relayResponse
	if err := w.do(ctx, http.MethodPost, "/relay", req, &res); err != nil {
		return chain.Hash{}, fmt.Errorf("relaying transaction: %w", err)
	}
	if res.TransactionHash == (chain.Hash{}) {
		return chain.Hash{}, fmt.Errorf("relaying transaction: %w: no transaction hash", ErrRelayResponse)
	}
	log.Infow("relayed sponsored transaction", "account", w.address, "to", call.To, "hash", res.TransactionHash)
	return res.TransactionHash, nil
}

func (w *SmartAccount) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	endpoint := w.relay.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, endpoint, res.StatusCode, bytes.TrimSpace(msg))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
