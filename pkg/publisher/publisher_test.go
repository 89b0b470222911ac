package publisher_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/kgcourse/geopub/pkg/api"
	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/graph"
	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/presets"
	"github.com/kgcourse/geopub/pkg/publisher"
)

// fakeAPI stores uploads in memory and addresses them the way the real
// storage does.
type fakeAPI struct {
	uploads   [][]byte
	edits     []cid.Cid
	proposals []api.ProposalRequest
	corrupt   bool
}

func (f *fakeAPI) UploadEdit(_ context.Context, edit []byte) (cid.Cid, error) {
	f.uploads = append(f.uploads, edit)
	if f.corrupt {
		edit = append(edit, ' ')
	}
	return cid.V1Builder{Codec: uint64(multicodec.Json), MhType: multihash.SHA2_256, MhLength: -1}.Sum(edit)
}

func (f *fakeAPI) EditCalldata(_ context.Context, _ ids.ID, edit cid.Cid) (chain.Call, error) {
	f.edits = append(f.edits, edit)
	return chain.Call{To: chain.Address{0x01}, Data: []byte("edit")}, nil
}

func (f *fakeAPI) ProposalCalldata(_ context.Context, p api.ProposalRequest) (chain.Call, error) {
	f.proposals = append(f.proposals, p)
	return chain.Call{To: p.SpaceAddress, Data: []byte("proposal")}, nil
}

var (
	author = chain.Address{0xaa}
	space  = ids.MustParse("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
)

func TestPublishEdit(t *testing.T) {
	fake := &fakeAPI{}
	p := publisher.New(publisher.WithAPI(presets.Testnet, fake))

	prop := graph.CreateProperty("Age", graph.Number)
	published, err := p.PublishEdit(t.Context(), publisher.PersonalEdit{
		Name:    "Add age",
		Ops:     prop.Ops,
		Author:  author,
		Network: presets.Testnet,
		SpaceID: space,
	})
	require.NoError(t, err)
	require.Len(t, fake.uploads, 1)
	require.Equal(t, []cid.Cid{published.CID}, fake.edits)
	require.Equal(t, chain.Call{To: chain.Address{0x01}, Data: []byte("edit")}, published.Call())

	var edit graph.Edit
	require.NoError(t, json.Unmarshal(fake.uploads[0], &edit))
	require.Equal(t, published.EditID, edit.ID)
	require.Equal(t, "Add age", edit.Name)
	require.Equal(t, prop.Ops, edit.Ops)
	require.Equal(t, []string{author.Hex()}, edit.Authors)
}

func TestPublishEditDefaultsToTestnet(t *testing.T) {
	fake := &fakeAPI{}
	p := publisher.New(publisher.WithAPI(presets.Testnet, fake))
	_, err := p.PublishEdit(t.Context(), publisher.PersonalEdit{Name: "empty", SpaceID: space})
	require.NoError(t, err)
	require.Len(t, fake.uploads, 1)
}

func TestPublishEditUnknownNetwork(t *testing.T) {
	p := publisher.New()
	_, err := p.PublishEdit(t.Context(), publisher.PersonalEdit{Name: "x", Network: "DEVNET"})
	require.ErrorContains(t, err, "unknown network")
}

func TestPublishEditCIDMismatch(t *testing.T) {
	fake := &fakeAPI{corrupt: true}
	p := publisher.New(publisher.WithAPI(presets.Mainnet, fake))
	_, err := p.PublishEdit(t.Context(), publisher.PersonalEdit{Name: "x", Network: presets.Mainnet, SpaceID: space})
	require.ErrorIs(t, err, publisher.ErrCIDMismatch)
	require.Empty(t, fake.edits)
}

func TestProposeEdit(t *testing.T) {
	fake := &fakeAPI{}
	p := publisher.New(publisher.WithAPI(presets.Testnet, fake))
	caller := ids.MustParse("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	daoAddr := chain.Address{0xda}

	published, err := p.ProposeEdit(t.Context(), publisher.DAOEdit{
		Name:          "Propose",
		Ops:           graph.DeleteEntity(ids.New()).Ops,
		Author:        author,
		CallerSpaceID: caller,
		SpaceID:       space,
		SpaceAddress:  daoAddr,
		Network:       presets.Testnet,
	})
	require.NoError(t, err)
	require.Empty(t, fake.edits)
	require.Equal(t, []api.ProposalRequest{{
		SpaceID:       space,
		CID:           published.CID,
		CallerSpaceID: caller,
		SpaceAddress:  daoAddr,
		Author:        author,
	}}, fake.proposals)
	require.Equal(t, daoAddr, published.To)
}

func TestEditsAreFresh(t *testing.T) {
	fake := &fakeAPI{}
	p := publisher.New(publisher.WithAPI(presets.Testnet, fake))
	e := publisher.PersonalEdit{Name: "same", Author: author, SpaceID: space}

	first, err := p.PublishEdit(t.Context(), e)
	require.NoError(t, err)
	second, err := p.PublishEdit(t.Context(), e)
	require.NoError(t, err)
	require.NotEqual(t, first.EditID, second.EditID)
	require.NotEqual(t, first.CID, second.CID)
}
