// Package spaces makes sure an account owns a personal space, deploying one
// on chain when it does not.
package spaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/directory"
	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/wallet"
)

var (
	log    = logging.Logger("pkg/spaces")
	tracer = otel.Tracer("github.com/kgcourse/geopub/pkg/spaces")
)

type Directory interface {
	PersonalSpaceByAddress(ctx context.Context, addr chain.Address) (*directory.Space, error)
}

type Calldata interface {
	PersonalSpaceCalldata(ctx context.Context, addr chain.Address) (chain.Call, error)
}

type Receipts interface {
	WaitForReceipt(ctx context.Context, hash chain.Hash) (*chain.Receipt, error)
}

// ErrNotIndexed is returned when a personal space was deployed but the
// directory did not report it in time.
var ErrNotIndexed = errors.New("personal space deployed but not yet indexed")

var errPending = errors.New("personal space not indexed")

const (
	DefaultIndexInterval = time.Second
	DefaultIndexTimeout  = 2 * time.Minute
)

type Ensurer struct {
	dir           Directory
	calldata      Calldata
	receipts      Receipts
	indexInterval time.Duration
	indexTimeout  time.Duration
}

type Option func(*Ensurer)

// WithIndexPolling configures how long to wait for the directory to report
// a freshly deployed space.
func WithIndexPolling(interval, timeout time.Duration) Option {
	return func(e *Ensurer) {
		e.indexInterval = interval
		e.indexTimeout = timeout
	}
}

func NewEnsurer(dir Directory, calldata Calldata, receipts Receipts, opts ...Option) *Ensurer {
	e := &Ensurer{
		dir:           dir,
		calldata:      calldata,
		receipts:      receipts,
		indexInterval: DefaultIndexInterval,
		indexTimeout:  DefaultIndexTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnsurePersonalSpace returns the id of the personal space owned by the
// wallet's account, deploying it first if there is none.
func (e *Ensurer) EnsurePersonalSpace(ctx context.Context, w wallet.Wallet) (ids.ID, error) {
	ctx, span := tracer.Start(ctx, "EnsurePersonalSpace")
	defer span.End()

	addr := w.Address()
	span.SetAttributes(attribute.String("address", addr.Hex()))

	existing, err := e.dir.PersonalSpaceByAddress(ctx, addr)
	if err != nil {
		return ids.Nil, fmt.Errorf("looking up personal space for %s: %w", addr, err)
	}
	if existing != nil {
		log.Debugw("found personal space", "address", addr, "space", existing.ID)
		return existing.ID, nil
	}

	log.Infow("deploying personal space", "address", addr)
	call, err := e.calldata.PersonalSpaceCalldata(ctx, addr)
	if err != nil {
		return ids.Nil, err
	}
	hash, err := w.SendTransaction(ctx, call)
	if err != nil {
		return ids.Nil, fmt.Errorf("deploying personal space: %w", err)
	}
	// The deployment is on its way; see it through even if the caller gives up.
	ctx = context.WithoutCancel(ctx)
	if _, err := e.receipts.WaitForReceipt(ctx, hash); err != nil {
		return ids.Nil, fmt.Errorf("deploying personal space: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.indexInterval
	bo.MaxInterval = 5 * e.indexInterval
	space, err := backoff.Retry(ctx, func() (*directory.Space, error) {
		s, err := e.dir.PersonalSpaceByAddress(ctx, addr)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, errPending
		}
		return s, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(e.indexTimeout))
	if errors.Is(err, errPending) {
		return ids.Nil, fmt.Errorf("%w: transaction %s", ErrNotIndexed, hash)
	}
	if err != nil {
		return ids.Nil, fmt.Errorf("looking up deployed personal space for %s: %w", addr, err)
	}
	log.Infow("deployed personal space", "address", addr, "space", space.ID, "tx", hash)
	return space.ID, nil
}
