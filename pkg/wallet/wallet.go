package wallet

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/core/types"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"

	"github.com/kgcourse/geopub/pkg/chain"
)

var (
	log    = logging.Logger("pkg/wallet")
	tracer = otel.Tracer("github.com/kgcourse/geopub/pkg/wallet")
)

// Wallet sends transactions on behalf of an account.
type Wallet interface {
	// Address is the account that authors edits and owns spaces.
	Address() chain.Address
	// SendTransaction submits a call and returns its transaction hash without
	// waiting for it to be mined.
	SendTransaction(ctx context.Context, call chain.Call) (chain.Hash, error)
}

// Node is the subset of the chain client an externally owned account needs.
type Node interface {
	ChainID(ctx context.Context) (*big.Int, error)
	Nonce(ctx context.Context, addr chain.Address) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, from chain.Address, call chain.Call) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) (chain.Hash, error)
}

// Resolver turns a key into a Wallet.
type Resolver struct {
	node       Node
	sponsorURL url.URL
	httpClient *http.Client
}

type Option func(*Resolver)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = c
	}
}

// NewResolver creates a resolver that signs through node and relays sponsored
// transactions through sponsorURL.
func NewResolver(node Node, sponsorURL url.URL, opts ...Option) *Resolver {
	r := &Resolver{
		node:       node,
		sponsorURL: sponsorURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a sponsored smart account wallet when useSmartAccount is
// set, and a self-funded externally owned account otherwise.
func (r *Resolver) Resolve(ctx context.Context, key PrivateKey, useSmartAccount bool) (Wallet, error) {
	if key.IsZero() {
		return nil, fmt.Errorf("%w: no key configured", ErrInvalidKey)
	}
	if !useSmartAccount {
		log.Debugw("resolved externally owned account", "address", key.Address())
		return &EOA{key: key, node: r.node}, nil
	}

	ctx, span := tracer.Start(ctx, "ResolveSmartAccount")
	defer span.End()

	sa := &SmartAccount{
		owner:      key,
		relay:      r.sponsorURL,
		httpClient: r.httpClient,
	}
	if err := sa.init(ctx); err != nil {
		return nil, fmt.Errorf("resolving smart account for %s: %w", key.Address(), err)
	}
	log.Debugw("resolved smart account", "owner", key.Address(), "account", sa.address)
	return sa, nil
}

// EOA is an externally owned account that signs and pays for its own
// transactions.
type EOA struct {
	key  PrivateKey
	node Node
}

var _ Wallet = (*EOA)(nil)

func (w *EOA) Address() chain.Address {
	return w.key.Address()
}

// gasHeadroom is applied to gas estimates, as a percentage.
const gasHeadroom = 120

func (w *EOA) SendTransaction(ctx context.Context, call chain.Call) (chain.Hash, error) {
	ctx, span := tracer.Start(ctx, "EOA.SendTransaction")
	defer span.End()

	from := w.Address()
	chainID, err := w.node.ChainID(ctx)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("getting chain id: %w", err)
	}
	nonce, err := w.node.Nonce(ctx, from)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("getting nonce: %w", err)
	}
	gasPrice, err := w.node.GasPrice(ctx)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("getting gas price: %w", err)
	}
	gas, err := w.node.EstimateGas(ctx, from, call)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("estimating gas: %w", err)
	}

	tx, err := chain.SignTx(chain.NewCallTx(nonce, gasPrice, gas*gasHeadroom/100, call), chainID, w.key.key)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("signing transaction: %w", err)
	}

	sent, err := w.node.SendTransaction(ctx, tx)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("sending transaction: %w", err)
	}
	log.Infow("sent transaction", "from", from, "to", call.To, "hash", sent, "nonce", nonce)
	return sent, nil
}
