// Package publisher turns an op batch into an uploaded edit and the contract
// call that anchors it in a space. Personal spaces take the edit directly;
// DAO spaces receive it as a proposal that members vote on.
//
// Publishers never submit transactions. The returned call is handed to a
// wallet by the caller.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kgcourse/geopub/pkg/api"
	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/graph"
	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/presets"
)

var (
	log    = logging.Logger("pkg/publisher")
	tracer = otel.Tracer("github.com/kgcourse/geopub/pkg/publisher")
)

// ErrCIDMismatch is returned when storage reports a different CID than the
// one computed locally for the uploaded edit.
var ErrCIDMismatch = errors.New("uploaded edit cid does not match local cid")

// GraphAPI is the part of the knowledge graph API the publishers use.
type GraphAPI interface {
	UploadEdit(ctx context.Context, edit []byte) (cid.Cid, error)
	EditCalldata(ctx context.Context, spaceID ids.ID, edit cid.Cid) (chain.Call, error)
	ProposalCalldata(ctx context.Context, p api.ProposalRequest) (chain.Call, error)
}

var _ GraphAPI = (*api.Client)(nil)

// PersonalEdit is an edit published straight into the author's personal
// space.
type PersonalEdit struct {
	Name    string
	Ops     []graph.Op
	Author  chain.Address
	Network presets.Network
	SpaceID ids.ID
}

// DAOEdit is an edit proposed to a DAO space on behalf of one of its members
// or editors, identified by their personal space.
type DAOEdit struct {
	Name          string
	Ops           []graph.Op
	Author        chain.Address
	CallerSpaceID ids.ID
	SpaceID       ids.ID
	SpaceAddress  chain.Address
	Network       presets.Network
}

// Published describes an uploaded edit and the call that still has to be
// submitted to anchor it.
type Published struct {
	EditID ids.ID
	CID    cid.Cid
	To     chain.Address
	Data   []byte
}

func (p Published) Call() chain.Call {
	return chain.Call{To: p.To, Data: p.Data}
}

type Publisher struct {
	httpClient *http.Client

	mu   sync.Mutex
	apis map[presets.Network]GraphAPI
}

type Option func(*Publisher)

// WithAPI overrides the API used for a network.
func WithAPI(network presets.Network, a GraphAPI) Option {
	return func(p *Publisher) {
		p.apis[network] = a
	}
}

// WithHTTPClient sets the HTTP client used for the per-network API clients
// created from presets.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Publisher) {
		p.httpClient = c
	}
}

func New(opts ...Option) *Publisher {
	p := &Publisher{
		httpClient: http.DefaultClient,
		apis:       map[presets.Network]GraphAPI{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) api(network presets.Network) (GraphAPI, error) {
	cfg, err := presets.GetNetworkConfig(network)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.apis[cfg.Name]; ok {
		return a, nil
	}
	a := api.New(cfg.APIURL, api.WithHTTPClient(p.httpClient))
	p.apis[cfg.Name] = a
	return a, nil
}

// upload encodes a fresh edit, stores it and checks that storage agrees on
// its CID.
func (p *Publisher) upload(ctx context.Context, a GraphAPI, name string, ops []graph.Op, author chain.Address) (graph.Edit, cid.Cid, error) {
	edit := graph.NewEdit(name, ops, author.Hex())
	local, body, err := edit.ContentID()
	if err != nil {
		return graph.Edit{}, cid.Undef, err
	}
	uploaded, err := a.UploadEdit(ctx, body)
	if err != nil {
		return graph.Edit{}, cid.Undef, err
	}
	if !uploaded.Equals(local) {
		return graph.Edit{}, cid.Undef, fmt.Errorf("%w: local %s, uploaded %s", ErrCIDMismatch, local, uploaded)
	}
	return edit, local, nil
}

// PublishEdit uploads an edit and prepares the call that applies it to a
// personal space.
func (p *Publisher) PublishEdit(ctx context.Context, e PersonalEdit) (Published, error) {
	ctx, span := tracer.Start(ctx, "PublishEdit")
	defer span.End()
	span.SetAttributes(
		attribute.String("space", e.SpaceID.String()),
		attribute.Int("ops", len(e.Ops)),
	)

	a, err := p.api(e.Network)
	if err != nil {
		return Published{}, err
	}
	edit, c, err := p.upload(ctx, a, e.Name, e.Ops, e.Author)
	if err != nil {
		return Published{}, err
	}
	call, err := a.EditCalldata(ctx, e.SpaceID, c)
	if err != nil {
		return Published{}, err
	}
	log.Infow("prepared personal edit", "space", e.SpaceID, "edit", edit.ID, "cid", c, "ops", len(e.Ops))
	return Published{EditID: edit.ID, CID: c, To: call.To, Data: call.Data}, nil
}

// ProposeEdit uploads an edit and prepares the call that proposes it to a DAO
// space.
func (p *Publisher) ProposeEdit(ctx context.Context, e DAOEdit) (Published, error) {
	ctx, span := tracer.Start(ctx, "ProposeEdit")
	defer span.End()
	span.SetAttributes(
		attribute.String("space", e.SpaceID.String()),
		attribute.String("caller_space", e.CallerSpaceID.String()),
		attribute.Int("ops", len(e.Ops)),
	)

	a, err := p.api(e.Network)
	if err != nil {
		return Published{}, err
	}
	edit, c, err := p.upload(ctx, a, e.Name, e.Ops, e.Author)
	if err != nil {
		return Published{}, err
	}
	call, err := a.ProposalCalldata(ctx, api.ProposalRequest{
		SpaceID:       e.SpaceID,
		CID:           c,
		CallerSpaceID: e.CallerSpaceID,
		SpaceAddress:  e.SpaceAddress,
		Author:        e.Author,
	})
	if err != nil {
		return Published{}, err
	}
	log.Infow("prepared dao proposal", "space", e.SpaceID, "caller_space", e.CallerSpaceID, "edit", edit.ID, "cid", c)
	return Published{EditID: edit.ID, CID: c, To: call.To, Data: call.Data}, nil
}
