package journal_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/journal"
	"github.com/kgcourse/geopub/pkg/router"
)

func entry(name string, at time.Time, res router.Result) journal.Entry {
	return journal.Entry{
		RequestID: ids.New(),
		Network:   "TESTNET",
		EditName:  name,
		OpCount:   3,
		Result:    res,
		CreatedAt: at,
	}
}

func TestRecordAndList(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.Open(t.Context(), dir, "")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, journal.DefaultFileName))

	base := time.UnixMilli(1_700_000_000_000)
	ok := entry("first", base, router.Result{
		Success:         true,
		EditID:          "e1",
		CID:             "ipfs://bafk",
		TransactionHash: "0x01",
		SpaceID:         "s1",
	})
	failed := entry("second", base.Add(time.Minute), router.Result{Error: "space s2 not found"})
	latest := entry("third", base.Add(2*time.Minute), router.Result{Success: true, EditID: "e3"})

	for _, e := range []journal.Entry{ok, failed, latest} {
		require.NoError(t, j.Record(t.Context(), e))
	}

	all, err := j.List(t.Context(), 0)
	require.NoError(t, err)
	require.Equal(t, []journal.Entry{latest, failed, ok}, all)

	two, err := j.List(t.Context(), 2)
	require.NoError(t, err)
	require.Equal(t, []journal.Entry{latest, failed}, two)

	require.ErrorIs(t, j.Record(t.Context(), ok), journal.ErrDuplicate)
	require.NoError(t, j.Close())

	// Reopening runs the migrations again without losing anything.
	j, err = journal.Open(t.Context(), dir, "")
	require.NoError(t, err)
	defer j.Close()
	all, err = j.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestRecordDefaultsTimestamp(t *testing.T) {
	j, err := journal.OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	defer j.Close()

	before := time.Now().Add(-time.Second)
	require.NoError(t, j.Record(t.Context(), journal.Entry{RequestID: ids.New(), EditName: "x"}))

	all, err := j.List(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].CreatedAt.After(before))

	require.Error(t, j.Record(t.Context(), journal.Entry{EditName: "no id"}))
}

func TestOpenRejectsUnknownDatabases(t *testing.T) {
	_, err := journal.Open(t.Context(), "", "mysql://localhost/db")
	require.ErrorContains(t, err, "unsupported database url")

	_, err = journal.Open(t.Context(), "", "")
	require.Error(t, err)

	require.True(t, journal.IsPostgres("postgresql://localhost/geopub"))
	require.False(t, journal.IsPostgres("file:journal.db"))
}
