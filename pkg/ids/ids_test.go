package ids_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcourse/geopub/pkg/ids"
)

func TestParse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		id, err := ids.Parse("5871e8f7b71e4c7d8a4f0c3d2b1a0f9e")
		require.NoError(t, err)
		require.Equal(t, "5871e8f7b71e4c7d8a4f0c3d2b1a0f9e", id.String())
	})

	for name, input := range map[string]string{
		"too short": "5871e8f7",
		"uppercase": "5871E8F7B71E4C7D8A4F0C3D2B1A0F9E",
		"dashed":    "5871e8f7-b71e-4c7d-8a4f-0c3d2b1a",
		"non hex":   "zz71e8f7b71e4c7d8a4f0c3d2b1a0f9e",
		"empty":     "",
		"too long":  "5871e8f7b71e4c7d8a4f0c3d2b1a0f9e00",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ids.Parse(input)
			require.ErrorIs(t, err, ids.ErrInvalid)
		})
	}
}

func TestNew(t *testing.T) {
	a := ids.New()
	b := ids.New()
	require.NotEqual(t, a, b)
	require.False(t, a.IsNil())

	parsed, err := ids.Parse(a.String())
	require.NoError(t, err)
	require.Equal(t, a, parsed)
}

func TestFromUUID(t *testing.T) {
	id, err := ids.FromUUID("5871e8f7-b71e-4c7d-8a4f-0c3d2b1a0f9e")
	require.NoError(t, err)
	require.Equal(t, ids.MustParse("5871e8f7b71e4c7d8a4f0c3d2b1a0f9e"), id)
}

func TestJSON(t *testing.T) {
	type doc struct {
		Space ids.ID `json:"space"`
	}
	in := doc{Space: ids.MustParse("0123456789abcdef0123456789abcdef")}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `{"space":"0123456789abcdef0123456789abcdef"}`, string(b))

	var out doc
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, in, out)

	require.Error(t, json.Unmarshal([]byte(`{"space":"nope"}`), &out))

	require.NoError(t, json.Unmarshal([]byte(`{"space":"01234567-89ab-cdef-0123-456789abcdef"}`), &out))
	require.Equal(t, in, out)
}

func TestScan(t *testing.T) {
	var id ids.ID
	require.NoError(t, id.Scan("0123456789abcdef0123456789abcdef"))
	require.Equal(t, "0123456789abcdef0123456789abcdef", id.String())

	require.NoError(t, id.Scan(nil))
	require.True(t, id.IsNil())

	v, err := ids.Nil.Value()
	require.NoError(t, err)
	require.Nil(t, v)
}
