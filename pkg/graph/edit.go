package graph

import (
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"

	"github.com/kgcourse/geopub/pkg/ids"
)

// Edit is a named bundle of ops published together. Either every op in an
// edit is applied or none is.
type Edit struct {
	ID      ids.ID   `json:"id"`
	Name    string   `json:"name"`
	Ops     []Op     `json:"ops"`
	Authors []string `json:"authors"`
}

// NewEdit creates an edit with a fresh id. An empty op list is allowed and
// produces a vacuous edit.
func NewEdit(name string, ops []Op, authors ...string) Edit {
	if ops == nil {
		ops = []Op{}
	}
	if authors == nil {
		authors = []string{}
	}
	return Edit{
		ID:      ids.New(),
		Name:    name,
		Ops:     ops,
		Authors: authors,
	}
}

// Encode serializes the edit. Field order is fixed by the struct so the
// encoding is deterministic for a given edit.
func (e Edit) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding edit: %w", err)
	}
	return b, nil
}

var cidBuilder = cid.V1Builder{
	Codec:    uint64(multicodec.Json),
	MhType:   multihash.SHA2_256,
	MhLength: -1,
}

// ContentID returns the encoded edit together with its CID.
func (e Edit) ContentID() (cid.Cid, []byte, error) {
	b, err := e.Encode()
	if err != nil {
		return cid.Undef, nil, err
	}
	c, err := cidBuilder.Sum(b)
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("hashing edit: %w", err)
	}
	return c, b, nil
}
