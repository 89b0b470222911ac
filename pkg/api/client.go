// Package api is a client for the knowledge graph's REST API. The API stores
// edit payloads in content-addressed storage and encodes the contract calls
// that anchor them on chain. It never submits transactions itself.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multibase"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/ids"
)

var (
	log    = logging.Logger("pkg/api")
	tracer = otel.Tracer("github.com/kgcourse/geopub/pkg/api")
)

const maxTries = 3

type Client struct {
	endpoint   url.URL
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBackOff sets the delay policy between retries of transient failures.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(cl *Client) {
		cl.newBackOff = newBackOff
	}
}

func New(endpoint url.URL, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Temporary reports whether retrying the request might succeed.
func (e *StatusError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

type request struct {
	method      string
	path        string
	contentType string
	body        []byte
}

// do sends the request, retrying transport errors and temporary statuses, and
// decodes a JSON response into out.
func (c *Client) do(ctx context.Context, req request, out any) error {
	endpoint := c.endpoint.JoinPath(req.path)
	ctx, span := tracer.Start(ctx, req.method+" "+req.path)
	defer span.End()

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		hreq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), bytes.NewReader(req.body))
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		if req.contentType != "" {
			hreq.Header.Set("Content-Type", req.contentType)
		}
		hreq.Header.Set("Accept", "application/json")

		res, err := c.httpClient.Do(hreq)
		if err != nil {
			log.Debugw("request failed", "url", endpoint.String(), "attempt", attempt, "error", err)
			return struct{}{}, fmt.Errorf("%s %s: %w", req.method, endpoint.String(), err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
			serr := &StatusError{
				Method: req.method,
				URL:    endpoint.String(),
				Status: res.StatusCode,
				Body:   string(bytes.TrimSpace(msg)),
			}
			if !serr.Temporary() {
				return struct{}{}, backoff.Permanent(serr)
			}
			log.Debugw("temporary failure", "url", endpoint.String(), "attempt", attempt, "status", res.StatusCode)
			return struct{}{}, serr
		}

		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decoding %s response: %w", req.path, err))
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxTries(maxTries))
	span.SetAttributes(attribute.Int("http.attempts", attempt))
	return err
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		contentType: "application/json",
		body:        b,
	}, out)
}

const ipfsScheme = "ipfs://"

var ErrMalformedCID = errors.New("malformed cid")

// ParseIPFSURI parses an "ipfs://<cid>" reference.
func ParseIPFSURI(s string) (cid.Cid, error) {
	if !strings.HasPrefix(s, ipfsScheme) {
		return cid.Undef, fmt.Errorf("%w: %q lacks the %s prefix", ErrMalformedCID, s, ipfsScheme)
	}
	c, err := cid.Decode(strings.TrimPrefix(s, ipfsScheme))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w %q: %w", ErrMalformedCID, s, err)
	}
	return c, nil
}

var base32 = multibase.MustNewEncoder(multibase.Base32)

// IPFSURI renders c as an "ipfs://<cid>" reference, always in base32.
func IPFSURI(c cid.Cid) string {
	return ipfsScheme + c.Encode(base32)
}

type uploadResponse struct {
	CID string `json:"cid"`
}

// UploadEdit stores an encoded edit and returns the identifier the storage
// backend assigned to it.
func (c *Client) UploadEdit(ctx context.Context, edit []byte) (cid.Cid, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "edit.json")
	if err != nil {
		return cid.Undef, fmt.Errorf("creating multipart body: %w", err)
	}
	if _, err := part.Write(edit); err != nil {
		return cid.Undef, fmt.Errorf("writing multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return cid.Undef, fmt.Errorf("closing multipart body: %w", err)
	}

	var res uploadResponse
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/ipfs/upload-edit",
		contentType: mw.FormDataContentType(),
		body:        buf.Bytes(),
	}, &res)
	if err != nil {
		return cid.Undef, fmt.Errorf("uploading edit: %w", err)
	}
	uploaded, err := ParseIPFSURI(res.CID)
	if err != nil {
		return cid.Undef, fmt.Errorf("uploading edit: %w", err)
	}
	log.Debugw("uploaded edit", "cid", uploaded, "bytes", len(edit))
	return uploaded, nil
}

type calldataResponse struct {
	To   chain.Address `json:"to"`
	Data hexutil.Bytes `json:"data"`
}

func (r calldataResponse) call() (chain.Call, error) {
	return chain.Call{To: r.To, Data: r.Data}, nil
}

type editCalldataRequest struct {
	CID string `json:"cid"`
}

// EditCalldata returns the call that anchors an uploaded edit in a personal
// space.
func (c *Client) EditCalldata(ctx context.Context, spaceID ids.ID, edit cid.Cid) (chain.Call, error) {
	var res calldataResponse
	path := "/space/" + spaceID.String() + "/edit/calldata"
	if err := c.postJSON(ctx, path, editCalldataRequest{CID: IPFSURI(edit)}, &res); err != nil {
		return chain.Call{}, fmt.Errorf("getting edit calldata for space %s: %w", spaceID, err)
	}
	return res.call()
}

// ProposalRequest describes an edit proposed to a DAO space.
type ProposalRequest struct {
	SpaceID       ids.ID        `json:"-"`
	CID           cid.Cid       `json:"-"`
	CallerSpaceID ids.ID        `json:"callerSpaceId"`
	SpaceAddress  chain.Address `json:"spaceAddress"`
	Author        chain.Address `json:"author"`
}

type proposalCalldataRequest struct {
	ProposalRequest
	CID string `json:"cid"`
}

// ProposalCalldata returns the call that submits an uploaded edit as a
// proposal to a DAO space.
func (c *Client) ProposalCalldata(ctx context.Context, p ProposalRequest) (chain.Call, error) {
	var res calldataResponse
	path := "/space/" + p.SpaceID.String() + "/proposal/calldata"
	body := proposalCalldataRequest{ProposalRequest: p, CID: IPFSURI(p.CID)}
	if err := c.postJSON(ctx, path, body, &res); err != nil {
		return chain.Call{}, fmt.Errorf("getting proposal calldata for space %s: %w", p.SpaceID, err)
	}
	return res.call()
}

type personalSpaceCalldataRequest struct {
	Address chain.Address `json:"address"`
}

// PersonalSpaceCalldata returns the call that deploys a personal space owned
// by addr.
func (c *Client) PersonalSpaceCalldata(ctx context.Context, addr chain.Address) (chain.Call, error) {
	var res calldataResponse
	if err := c.postJSON(ctx, "/personal-space/calldata", personalSpaceCalldataRequest{Address: addr}, &res); err != nil {
		return chain.Call{}, fmt.Errorf("getting personal space calldata for %s: %w", addr, err)
	}
	return res.call()
}
