package rcache

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/dPersist/lib/cache"
	"github.com/ValentinKolb/dPersist/lib/cache/rcache/internal"
	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/serializer"
	"github.com/ValentinKolb/dPersist/lib/serializer/compress"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(cmds ...[]byte) []sm.Entry {
	out := make([]sm.Entry, len(cmds))
	for i, c := range cmds {
		out[i] = sm.Entry{Index: uint64(i + 1), Cmd: c}
	}
	return out
}

func lookup(t *testing.T, fsm *CacheStateMachine, key string) ([]byte, bool) {
	t.Helper()
	res, err := fsm.Lookup(GetQuery(key))
	require.NoError(t, err)
	value, found, err := ParseQueryResult(res)
	require.NoError(t, err)
	return value, found
}

func TestUpdateAndLookup(t *testing.T) {
	fsm := NewCacheStateMachine(1, 1, serializer.FormatJSON)

	results, err := fsm.Update(entries(
		AddCmd("a", []byte("1")),
		AddCmd("a", []byte("2")),
		UpdateCmd("a", []byte("3")),
		UpdateCmd("missing", []byte("x")),
		AddOrReplaceCmd("b", []byte("4")),
		RemoveCmd("b"),
		RemoveCmd("b"),
		[]byte{1},
	))
	require.NoError(t, err)

	assert.True(t, Applied(results[0].Result))
	assert.False(t, Applied(results[1].Result))
	assert.Equal(t, []byte("1"), results[1].Result.Data, "rejected add reports resident value")
	assert.True(t, Applied(results[2].Result))
	assert.Equal(t, []byte("1"), results[2].Result.Data, "update reports replaced value")
	assert.False(t, Applied(results[3].Result))
	assert.True(t, Applied(results[4].Result))
	assert.True(t, Applied(results[5].Result))
	assert.Equal(t, []byte("4"), results[5].Result.Data)
	assert.False(t, Applied(results[6].Result))
	assert.False(t, Applied(results[7].Result))

	value, found := lookup(t, fsm, "a")
	assert.True(t, found)
	assert.Equal(t, []byte("3"), value)

	_, found = lookup(t, fsm, "b")
	assert.False(t, found)

	n, err := fsm.Lookup(internal.Query{Type: internal.QueryTLen})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	snap, err := fsm.Lookup(internal.Query{Type: internal.QueryTSnapshot})
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Entries: []cache.Entry[string, []byte]{{Key: "a", Value: []byte("3")}}}, snap)

	_, err = fsm.Lookup("not a query")
	assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig))
	_, err = fsm.Lookup(internal.Query{Type: 99})
	assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig))
}

func TestSnapshotRoundTrip(t *testing.T) {
	configs := []struct {
		name   string
		format serializer.Format
		opts   []serializer.Option
	}{
		{"json/deflate", serializer.FormatJSON, nil},
		{"json/plain", serializer.FormatJSON, []serializer.Option{serializer.WithCompression(false)}},
		{"xml/gzip", serializer.FormatXML, []serializer.Option{serializer.WithScheme(compress.SchemeGZip), serializer.WithLevel(compress.LevelFastest)}},
	}

	for _, cfg := range configs {
		t.Run(cfg.name, func(t *testing.T) {
			factory := CreateStateMachineFactory(cfg.format, cfg.opts...)
			src := factory(1, 1).(*CacheStateMachine)
			_, err := src.Update(entries(
				AddCmd("k1", []byte("v1")),
				AddCmd("k2", []byte{0, 1, 2}),
				AddCmd("k3", nil),
			))
			require.NoError(t, err)

			ctx, err := src.PrepareSnapshot()
			require.NoError(t, err)

			// writes after PrepareSnapshot must not leak into the snapshot
			_, err = src.Update(entries(AddCmd("late", []byte("x"))))
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, src.SaveSnapshot(ctx, &buf, nil, nil))

			dst := factory(1, 2).(*CacheStateMachine)
			_, err = dst.Update(entries(AddCmd("stale", []byte("gone"))))
			require.NoError(t, err)
			require.NoError(t, dst.RecoverFromSnapshot(&buf, nil, nil))

			assert.Equal(t, 3, dst.Cache().Len())
			value, found := lookup(t, dst, "k2")
			assert.True(t, found)
			assert.Equal(t, []byte{0, 1, 2}, value)
			_, found = lookup(t, dst, "late")
			assert.False(t, found)
			_, found = lookup(t, dst, "stale")
			assert.False(t, found)
			assert.NoError(t, dst.Close())
		})
	}
}

func TestRecoverFromForeignFormatFails(t *testing.T) {
	src := NewCacheStateMachine(1, 1, serializer.FormatJSON, serializer.WithScheme(compress.SchemeGZip))
	ctx, err := src.PrepareSnapshot()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, src.SaveSnapshot(ctx, &buf, nil, nil))

	dst := NewCacheStateMachine(1, 2, serializer.FormatJSON)
	assert.Error(t, dst.RecoverFromSnapshot(&buf, nil, nil))
}

func TestSaveSnapshotRejectsForeignContext(t *testing.T) {
	fsm := NewCacheStateMachine(1, 1, serializer.FormatJSON)
	err := fsm.SaveSnapshot("nope", &bytes.Buffer{}, nil, nil)
	assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig))
}
