// Package directory is a read-only client for the knowledge graph's GraphQL
// API. It answers which spaces exist, how they are governed and who may
// publish to them. Results are eventually consistent with the chain.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	graphql "github.com/hasura/go-graphql-client"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/ids"
)

var (
	log    = logging.Logger("pkg/directory")
	tracer = otel.Tracer("github.com/kgcourse/geopub/pkg/directory")
)

type Client struct {
	gql        *graphql.Client
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func New(endpoint url.URL, opts ...Option) *Client {
	c := &Client{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	c.gql = graphql.NewClient(endpoint.String(), c.httpClient)
	return c
}

// query runs a named GraphQL document and decodes its data into out. GraphQL
// errors are returned as graphql.Errors.
func (c *Client) query(ctx context.Context, name, query string, vars map[string]any, out any) error {
	ctx, span := tracer.Start(ctx, "graphql "+name)
	defer span.End()
	span.SetAttributes(attribute.String("graphql.operation.name", name))

	data, err := c.gql.ExecRaw(ctx, query, vars)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("querying %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", name, err)
	}
	return nil
}

const spaceByIDQuery = `query SpaceByID($id: UUID!) {
  space(id: $id) {
    id
    type
    address
    membersList { memberSpaceId }
    editorsList { memberSpaceId }
  }
}`

type memberRef struct {
	MemberSpaceID ids.ID `json:"memberSpaceId"`
}

type spaceNode struct {
	ID          ids.ID      `json:"id"`
	Type        string      `json:"type"`
	Address     string      `json:"address"`
	MembersList []memberRef `json:"membersList"`
	EditorsList []memberRef `json:"editorsList"`
}

func (n spaceNode) toSpace() (*Space, error) {
	kind, err := ParseKind(n.Type)
	if err != nil {
		return nil, fmt.Errorf("space %s: %w", n.ID, err)
	}
	s := &Space{ID: n.ID, Kind: kind}
	if n.Address != "" {
		s.Address, err = chain.ParseAddress(n.Address)
		if err != nil {
			return nil, fmt.Errorf("space %s: %w", n.ID, err)
		}
	}
	for _, m := range n.MembersList {
		s.Members = append(s.Members, m.MemberSpaceID)
	}
	for _, e := range n.EditorsList {
		s.Editors = append(s.Editors, e.MemberSpaceID)
	}
	return s, nil
}

// SpaceByID looks a space up by id. It returns nil without error when the
// space does not exist.
func (c *Client) SpaceByID(ctx context.Context, id ids.ID) (*Space, error) {
	var data struct {
		Space *spaceNode `json:"space"`
	}
	if err := c.query(ctx, "SpaceByID", spaceByIDQuery, map[string]any{"id": id.String()}, &data); err != nil {
		return nil, err
	}
	if data.Space == nil {
		log.Debugw("space not found", "space", id)
		return nil, nil
	}
	return data.Space.toSpace()
}

const personalSpaceQuery = `query PersonalSpace($address: String!) {
  spaces(filter: { address: { is: $address }, type: { is: PERSONAL } }) {
    id
    type
  }
}`

// PersonalSpaceByAddress finds the personal space owned by an account. It
// returns nil without error when the account has none.
func (c *Client) PersonalSpaceByAddress(ctx context.Context, addr chain.Address) (*Space, error) {
	var data struct {
		Spaces []spaceNode `json:"spaces"`
	}
	if err := c.query(ctx, "PersonalSpace", personalSpaceQuery, map[string]any{"address": addr.Hex()}, &data); err != nil {
		return nil, err
	}
	if len(data.Spaces) == 0 {
		return nil, nil
	}
	if len(data.Spaces) > 1 {
		log.Warnw("account has several personal spaces, using the first", "address", addr, "count", len(data.Spaces))
	}
	space, err := data.Spaces[0].toSpace()
	if err != nil {
		return nil, err
	}
	if space.Kind != Personal {
		return nil, fmt.Errorf("space %s returned for personal lookup is %s", space.ID, space.Kind)
	}
	return space, nil
}

const searchEntitiesQuery = `query SearchEntities($name: String!, $first: Int!) {
  entities(filter: { name: { includesInsensitive: $name } }, first: $first) {
    id
    name
    description
    spaceIds
  }
}`

type Entity struct {
	ID          ids.ID   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SpaceIDs    []ids.ID `json:"spaceIds"`
}

var ErrEmptySearch = errors.New("search term is empty")

// SearchEntities finds entities whose name contains the given term,
// case-insensitively.
func (c *Client) SearchEntities(ctx context.Context, name string, limit int) ([]Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptySearch
	}
	if limit <= 0 {
		limit = 20
	}
	var data struct {
		Entities []Entity `json:"entities"`
	}
	if err := c.query(ctx, "SearchEntities", searchEntitiesQuery, map[string]any{"name": name, "first": limit}, &data); err != nil {
		return nil, err
	}
	return data.Entities, nil
}
