// Package router publishes a batch of graph ops to a space, choosing how to
// publish from the space's governance.
//
// Personal spaces accept edits from their owner directly. DAO spaces only
// accept proposals, and only from accounts whose personal space is one of
// the DAO's members or editors. The router resolves the acting wallet,
// finds the target space (deploying the caller's personal space when no
// target is given), routes the edit to the matching publisher, submits the
// resulting call and waits for it to be mined.
//
// A Router keeps no state between invocations. Publishing the same ops
// twice produces two edits and two transactions.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kgcourse/geopub/internal/ctxutil"
	"github.com/kgcourse/geopub/pkg/api"
	"github.com/kgcourse/geopub/pkg/bus"
	"github.com/kgcourse/geopub/pkg/bus/events"
	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/directory"
	"github.com/kgcourse/geopub/pkg/graph"
	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/presets"
	"github.com/kgcourse/geopub/pkg/publisher"
	"github.com/kgcourse/geopub/pkg/wallet"
)

var (
	log    = logging.Logger("pkg/router")
	tracer = otel.Tracer("github.com/kgcourse/geopub/pkg/router")
)

var (
	ErrSpaceNotFound    = errors.New("not found")
	ErrNoPersonalSpace  = errors.New("no personal space")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrUnknownSpaceKind = directory.ErrUnknownSpaceKind
	ErrMissingEditName  = errors.New("edit name is required")
)

type WalletResolver interface {
	Resolve(ctx context.Context, key wallet.PrivateKey, useSmartAccount bool) (wallet.Wallet, error)
}

type PersonalSpaceEnsurer interface {
	EnsurePersonalSpace(ctx context.Context, w wallet.Wallet) (ids.ID, error)
}

type SpaceDirectory interface {
	SpaceByID(ctx context.Context, id ids.ID) (*directory.Space, error)
	PersonalSpaceByAddress(ctx context.Context, addr chain.Address) (*directory.Space, error)
}

type PersonalPublisher interface {
	PublishEdit(ctx context.Context, e publisher.PersonalEdit) (publisher.Published, error)
}

type DAOPublisher interface {
	ProposeEdit(ctx context.Context, e publisher.DAOEdit) (publisher.Published, error)
}

// ChainSubmitter confirms submitted transactions.
type ChainSubmitter interface {
	WaitForReceipt(ctx context.Context, hash chain.Hash) (*chain.Receipt, error)
}

// Options configure who publishes and where. They are fixed for the life of
// a Router.
type Options struct {
	// PrivateKey signs every transaction. Required.
	PrivateKey wallet.PrivateKey
	// UseSmartAccount publishes through a sponsored smart account owned by
	// PrivateKey rather than from the key's own account.
	UseSmartAccount bool
	// Network defaults to presets.DefaultNetwork.
	Network presets.Network
	// SpaceID is the target when a request names none. When both are empty
	// the caller's personal space is used.
	SpaceID ids.ID
}

// DefaultOptions publishes through a smart account on the default network.
func DefaultOptions(key wallet.PrivateKey) Options {
	return Options{
		PrivateKey:      key,
		UseSmartAccount: true,
		Network:         presets.DefaultNetwork.Name,
	}
}

// Deps are the collaborators a Router delegates to. Bus is optional.
type Deps struct {
	Wallets   WalletResolver
	Spaces    PersonalSpaceEnsurer
	Directory SpaceDirectory
	Personal  PersonalPublisher
	DAO       DAOPublisher
	Chain     ChainSubmitter
	Bus       bus.Publisher
}

type Router struct {
	opts Options
	deps Deps
}

func New(opts Options, deps Deps) (*Router, error) {
	if opts.PrivateKey.IsZero() {
		return nil, fmt.Errorf("%w: a private key is required to publish", wallet.ErrInvalidKey)
	}
	network, err := presets.GetNetworkConfig(opts.Network)
	if err != nil {
		return nil, err
	}
	opts.Network = network.Name

	if deps.Wallets == nil || deps.Spaces == nil || deps.Directory == nil ||
		deps.Personal == nil || deps.DAO == nil || deps.Chain == nil {
		return nil, errors.New("router: missing collaborator")
	}
	if deps.Bus == nil {
		deps.Bus = bus.NoopBus{}
	}
	return &Router{opts: opts, deps: deps}, nil
}

func (r *Router) Options() Options {
	return r.opts
}

// Request is a single publish.
type Request struct {
	// ID names the request on the event bus. Generated when nil.
	ID       ids.ID
	EditName string
	Ops      []graph.Op
	// SpaceID overrides Options.SpaceID.
	SpaceID ids.ID
}

// Result is the outcome of a publish. On success every field but Error is
// set; on failure only Error is.
type Result struct {
	Success         bool   `json:"success"`
	EditID          string `json:"editId,omitempty"`
	CID             string `json:"cid,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
	SpaceID         string `json:"spaceId,omitempty"`
	Error           string `json:"error,omitempty"`
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Publish runs a request and reports any failure in the result.
func (r *Router) Publish(ctx context.Context, req Request) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			log.Errorw("publish panicked", "panic", p)
			res = failure(fmt.Errorf("internal error: %v", p))
		}
	}()
	res, _ = r.Run(ctx, req)
	return res
}

// Run is Publish for callers that want the error itself. On failure the
// result carries the error's message.
func (r *Router) Run(ctx context.Context, req Request) (Result, error) {
	if req.ID.IsNil() {
		req.ID = ids.New()
	}
	ctx, span := tracer.Start(ctx, "Publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("request", req.ID.String()),
		attribute.String("network", string(r.opts.Network)),
		attribute.Int("ops", len(req.Ops)),
	)

	p := &publish{Router: r, req: req}
	res, err := p.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.report(events.Failed, err)
		log.Warnw("publish failed", "request", req.ID, "error", err)
		return failure(err), err
	}
	p.report(events.Done, nil)
	return res, nil
}

// publish is the state of one invocation.
type publish struct {
	*Router
	req     Request
	spaceID ids.ID
	tx      chain.Hash
}

func (p *publish) report(state events.PublishState, err error) {
	view := events.PublishStateView{
		RequestID: p.req.ID,
		State:     state,
		SpaceID:   p.spaceID,
		Error:     err,
		At:        time.Now(),
	}
	if p.tx != (chain.Hash{}) {
		view.TransactionHash = p.tx.Hex()
	}
	p.deps.Bus.Publish(events.TopicPublishState(p.req.ID), view)
}

// step reports the transition into state and runs fn in its own span.
func step[T any](ctx context.Context, p *publish, state events.PublishState, fn func(context.Context) (T, error)) (T, error) {
	p.report(state, nil)
	ctx, span := tracer.Start(ctx, string(state))
	defer span.End()
	v, err := fn(ctx)
	if err != nil {
		err = ctxutil.WithCause(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

func (p *publish) run(ctx context.Context) (Result, error) {
	if p.req.EditName == "" {
		return Result{}, ErrMissingEditName
	}

	w, err := step(ctx, p, events.ResolvingWallet, func(ctx context.Context) (wallet.Wallet, error) {
		return p.deps.Wallets.Resolve(ctx, p.opts.PrivateKey, p.opts.UseSmartAccount)
	})
	if err != nil {
		return Result{}, fmt.Errorf("resolving wallet: %w", err)
	}
	author := w.Address()

	p.spaceID, err = step(ctx, p, events.ResolvingSpace, func(ctx context.Context) (ids.ID, error) {
		switch {
		case !p.req.SpaceID.IsNil():
			return p.req.SpaceID, nil
		case !p.opts.SpaceID.IsNil():
			return p.opts.SpaceID, nil
		default:
			return p.deps.Spaces.EnsurePersonalSpace(ctx, w)
		}
	})
	if err != nil {
		return Result{}, fmt.Errorf("ensuring personal space: %w", err)
	}

	space, err := step(ctx, p, events.LookingUpGovernance, func(ctx context.Context) (*directory.Space, error) {
		s, err := p.deps.Directory.SpaceByID(ctx, p.spaceID)
		if err != nil {
			return nil, fmt.Errorf("looking up space %s: %w", p.spaceID, err)
		}
		if s == nil {
			return nil, fmt.Errorf("space %s %w", p.spaceID, ErrSpaceNotFound)
		}
		return s, nil
	})
	if err != nil {
		return Result{}, err
	}

	var published publisher.Published
	switch space.Kind {
	case directory.Personal:
		published, err = step(ctx, p, events.PersonalPublish, func(ctx context.Context) (publisher.Published, error) {
			return p.deps.Personal.PublishEdit(ctx, publisher.PersonalEdit{
				Name:    p.req.EditName,
				Ops:     p.req.Ops,
				Author:  author,
				Network: p.opts.Network,
				SpaceID: space.ID,
			})
		})
	case directory.DAO:
		published, err = step(ctx, p, events.DAOPublish, func(ctx context.Context) (publisher.Published, error) {
			return p.propose(ctx, space, author)
		})
	default:
		err = fmt.Errorf("space %s: %w: %s", space.ID, ErrUnknownSpaceKind, space.Kind)
	}
	if err != nil {
		return Result{}, err
	}

	receipt, err := step(ctx, p, events.Submitting, func(ctx context.Context) (*chain.Receipt, error) {
		hash, err := w.SendTransaction(ctx, published.Call())
		if err != nil {
			return nil, fmt.Errorf("submitting edit %s: %w", published.EditID, err)
		}
		p.tx = hash
		// Once sent, the transaction is seen through to the end.
		receipt, err := p.deps.Chain.WaitForReceipt(context.WithoutCancel(ctx), hash)
		if err != nil {
			return nil, fmt.Errorf("confirming edit %s: %w", published.EditID, err)
		}
		return receipt, nil
	})
	if err != nil {
		return Result{}, err
	}

	log.Infow("published edit",
		"request", p.req.ID,
		"space", space.ID,
		"kind", space.Kind,
		"edit", published.EditID,
		"cid", published.CID,
		"tx", receipt.TxHash,
		"block", receipt.BlockNumber,
	)
	return Result{
		Success:         true,
		EditID:          published.EditID.String(),
		CID:             api.IPFSURI(published.CID),
		TransactionHash: receipt.TxHash.Hex(),
		SpaceID:         space.ID.String(),
	}, nil
}

// propose checks the caller may propose to a DAO space, then prepares the
// proposal.
func (p *publish) propose(ctx context.Context, space *directory.Space, author chain.Address) (publisher.Published, error) {
	caller, err := p.deps.Directory.PersonalSpaceByAddress(ctx, author)
	if err != nil {
		return publisher.Published{}, fmt.Errorf("looking up personal space of %s: %w", author, err)
	}
	if caller == nil {
		return publisher.Published{}, fmt.Errorf("account %s has %w, which is required to propose edits to space %s", author, ErrNoPersonalSpace, space.ID)
	}
	if !space.Authorizes(caller.ID) {
		return publisher.Published{}, fmt.Errorf("%w: account %s (personal space %s) is not a member or editor of space %s", ErrNotAuthorized, author, caller.ID, space.ID)
	}
	return p.deps.DAO.ProposeEdit(ctx, publisher.DAOEdit{
		Name:          p.req.EditName,
		Ops:           p.req.Ops,
		Author:        author,
		CallerSpaceID: caller.ID,
		SpaceID:       space.ID,
		SpaceAddress:  space.Address,
		Network:       p.opts.Network,
	})
}
