package graph_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multicodec"
	"github.com/stretchr/testify/require"

	"github.com/kgcourse/geopub/pkg/graph"
	"github.com/kgcourse/geopub/pkg/ids"
)

func TestCreateProperty(t *testing.T) {
	p := graph.CreateProperty("Founded", graph.Time)
	require.Len(t, p.Ops, 3)

	require.Equal(t, graph.CreatePropertyOp, p.Ops[0].Type)
	require.Equal(t, p.ID, p.Ops[0].Property.ID)
	require.Equal(t, graph.Time, p.Ops[0].Property.DataType)

	require.Equal(t, graph.CreateEntityOp, p.Ops[1].Type)
	require.Equal(t, []graph.Value{{Property: graph.NameProperty, Value: "Founded"}}, p.Ops[1].Entity.Values)

	require.Equal(t, graph.CreateRelationOp, p.Ops[2].Type)
	require.Equal(t, p.ID, p.Ops[2].Relation.FromEntity)
	require.Equal(t, graph.PropertyType, p.Ops[2].Relation.ToEntity)
}

func TestCreateType(t *testing.T) {
	a := graph.CreateProperty("A", graph.Text)
	b := graph.CreateProperty("B", graph.Number)
	typ := graph.CreateType("Company", a.ID, b.ID)

	summary := graph.Summarize(typ.Ops)
	require.Equal(t, 1, summary[graph.CreateEntityOp])
	require.Equal(t, 3, summary[graph.CreateRelationOp])

	var linked []ids.ID
	for _, op := range typ.Ops {
		if op.Type == graph.CreateRelationOp && op.Relation.Type == graph.PropertiesProperty {
			linked = append(linked, op.Relation.ToEntity)
		}
	}
	require.ElementsMatch(t, []ids.ID{a.ID, b.ID}, linked)
}

func TestCreateEntity(t *testing.T) {
	typ := ids.New()
	friend := ids.New()
	knows := ids.New()
	fixed := ids.New()

	e := graph.CreateEntity(graph.EntityParams{
		ID:          fixed,
		Name:        "Ada",
		Description: "Mathematician",
		Types:       []ids.ID{typ},
		Relations:   map[ids.ID][]ids.ID{knows: {friend}},
	})
	require.Equal(t, fixed, e.ID)
	require.Len(t, e.Ops, 3)
	require.Len(t, e.Ops[0].Entity.Values, 2)
	for _, op := range e.Ops {
		require.NoError(t, op.Validate())
	}

	generated := graph.CreateEntity(graph.EntityParams{Name: "Bob"})
	require.False(t, generated.ID.IsNil())
}

func TestValidate(t *testing.T) {
	require.Error(t, graph.Op{Type: graph.CreateEntityOp}.Validate())
	require.Error(t, graph.Op{Type: "BOGUS"}.Validate())
	require.Error(t, graph.Op{Type: graph.DeleteEntityOp}.Validate())
	require.NoError(t, graph.DeleteRelation(ids.New()).Ops[0].Validate())
}

func TestReadWriteOps(t *testing.T) {
	ops := graph.CreateEntity(graph.EntityParams{Name: "Ada"}).Ops
	ops = append(ops, graph.DeleteEntity(ids.New()).Ops...)

	var buf bytes.Buffer
	require.NoError(t, graph.WriteOps(&buf, ops))

	read, err := graph.ReadOps(&buf)
	require.NoError(t, err)
	require.Equal(t, ops, read)

	_, err = graph.ReadOps(strings.NewReader(`[{"type":"CREATE_ENTITY"}]`))
	require.ErrorIs(t, err, graph.ErrMalformedOp)
}

func TestEditContentID(t *testing.T) {
	ops := graph.CreateEntity(graph.EntityParams{Name: "Ada"}).Ops
	edit := graph.NewEdit("add ada", ops, "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F")

	c1, b1, err := edit.ContentID()
	require.NoError(t, err)
	c2, b2, err := edit.ContentID()
	require.NoError(t, err)
	require.Equal(t, c1, c2)
	require.Equal(t, b1, b2)
	require.Equal(t, uint64(1), c1.Version())
	require.Equal(t, uint64(multicodec.Json), c1.Prefix().Codec)

	sum, err := cid.V1Builder{Codec: uint64(multicodec.Json), MhType: 0x12, MhLength: -1}.Sum(b1)
	require.NoError(t, err)
	require.Equal(t, sum, c1)

	other := graph.NewEdit("add ada", ops, "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F")
	c3, _, err := other.ContentID()
	require.NoError(t, err)
	require.NotEqual(t, c1, c3, "edits get distinct ids and therefore distinct CIDs")
}

func TestEmptyEdit(t *testing.T) {
	edit := graph.NewEdit("nothing", nil)
	b, err := edit.Encode()
	require.NoError(t, err)
	require.Contains(t, string(b), `"ops":[]`)
	require.Contains(t, string(b), `"authors":[]`)
}

func TestParseDataType(t *testing.T) {
	dt, err := graph.ParseDataType("time")
	require.NoError(t, err)
	require.Equal(t, graph.Time, dt)

	_, err = graph.ParseDataType("DATE")
	require.ErrorContains(t, err, "unknown data type")
}
