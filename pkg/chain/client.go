// Package chain is a thin Ethereum client: enough to sign and send
// transactions and to wait for them to be mined.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	log    = logging.Logger("pkg/chain")
	tracer = otel.Tracer("github.com/kgcourse/geopub/pkg/chain")
)

var (
	ErrReverted = errors.New("transaction reverted")
	errNotMined = errors.New("transaction not mined yet")
)

type Client struct {
	eth            *ethclient.Client
	httpClient     *http.Client
	receiptTimeout time.Duration
	pollInterval   time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithReceiptPolling configures how WaitForReceipt polls: the first interval
// between polls and the total time before giving up.
func WithReceiptPolling(interval, timeout time.Duration) Option {
	return func(cl *Client) {
		cl.pollInterval = interval
		cl.receiptTimeout = timeout
	}
}

const (
	DefaultPollInterval   = time.Second
	DefaultReceiptTimeout = 5 * time.Minute
)

// New creates a client for the JSON-RPC node at endpoint. No request is
// made until the first call.
func New(endpoint url.URL, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient:     http.DefaultClient,
		pollInterval:   DefaultPollInterval,
		receiptTimeout: DefaultReceiptTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	rc, err := rpc.DialOptions(context.Background(), endpoint.String(), rpc.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating rpc client for %s: %w", endpoint.Redacted(), err)
	}
	c.eth = ethclient.NewClient(rc)
	return c, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

func startSpan(ctx context.Context, method string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "rpc "+method, trace.WithAttributes(attribute.String("rpc.method", method)))
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, span := startSpan(ctx, "eth_chainId")
	defer span.End()
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	return id, nil
}

// Nonce returns the next nonce for the address, counting pending transactions.
func (c *Client) Nonce(ctx context.Context, addr Address) (uint64, error) {
	ctx, span := startSpan(ctx, "eth_getTransactionCount")
	defer span.End()
	nonce, err := c.eth.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount: %w", err)
	}
	return nonce, nil
}

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	ctx, span := startSpan(ctx, "eth_gasPrice")
	defer span.End()
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_gasPrice: %w", err)
	}
	return price, nil
}

func (c *Client) Balance(ctx context.Context, addr Address) (*big.Int, error) {
	ctx, span := startSpan(ctx, "eth_getBalance")
	defer span.End()
	balance, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance: %w", err)
	}
	return balance, nil
}

// EstimateGas estimates the gas a call from `from` would use.
func (c *Client) EstimateGas(ctx context.Context, from Address, call Call) (uint64, error) {
	ctx, span := startSpan(ctx, "eth_estimateGas")
	defer span.End()
	to := call.To
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: call.Data})
	if err != nil {
		return 0, fmt.Errorf("eth_estimateGas: %w", err)
	}
	return gas, nil
}

// SendTransaction submits a signed transaction and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (Hash, error) {
	ctx, span := startSpan(ctx, "eth_sendRawTransaction")
	defer span.End()
	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return Hash{}, fmt.Errorf("eth_sendRawTransaction: %w", err)
	}
	return tx.Hash(), nil
}

// TransactionReceipt returns the receipt, or nil if the transaction has not
// been mined.
func (c *Client) TransactionReceipt(ctx context.Context, hash Hash) (*Receipt, error) {
	ctx, span := startSpan(ctx, "eth_getTransactionReceipt")
	defer span.End()
	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt: %w", err)
	}
	return receipt, nil
}

// WaitForReceipt polls until the transaction is mined. A mined but reverted
// transaction returns its receipt along with ErrReverted.
func (c *Client) WaitForReceipt(ctx context.Context, hash Hash) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "WaitForReceipt")
	defer span.End()
	span.SetAttributes(attribute.String("tx.hash", hash.Hex()))

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.pollInterval
	bo.MaxInterval = 10 * c.pollInterval

	receipt, err := backoff.Retry(ctx, func() (*Receipt, error) {
		r, err := c.TransactionReceipt(ctx, hash)
		if err != nil {
			log.Debugw("fetching receipt", "hash", hash, "error", err)
			return nil, err
		}
		if r == nil {
			return nil, errNotMined
		}
		return r, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(c.receiptTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("waiting for transaction %s: %w", hash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s in block %s: %w", hash, receipt.BlockNumber, ErrReverted)
	}
	log.Infow("transaction mined", "hash", hash, "block", receipt.BlockNumber)
	return receipt, nil
}
