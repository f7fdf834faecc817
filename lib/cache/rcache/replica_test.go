package rcache

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/serializer"
	"github.com/ValentinKolb/dPersist/lib/serializer/compress"
	"github.com/lni/dragonboat/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func singleReplica(t *testing.T) ReplicaConfig {
	return ReplicaConfig{
		ShardID:            1,
		ReplicaID:          1,
		Members:            map[uint64]string{1: freeAddress(t)},
		RTTMillisecond:     10,
		SnapshotEntries:    0,
		CompactionOverhead: 5,
		DataDir:            t.TempDir(),
	}
}

func waitReady(t *testing.T, c *Client) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := c.Len()
		return err == nil
	}, 15*time.Second, 50*time.Millisecond, "shard did not elect a leader")
}

func TestReplicaConfig(t *testing.T) {
	c := singleReplica(t)
	require.NoError(t, c.Validate())

	rc := c.ToDragonboatConfig()
	assert.Equal(t, uint64(1), rc.ShardID)
	assert.Equal(t, uint64(electionRTTFactor), rc.ElectionRTT)
	assert.True(t, rc.CheckQuorum)

	nhc := c.ToNodeHostConfig()
	assert.Equal(t, c.Members[1], nhc.RaftAddress)
	assert.Equal(t, c.DataDir, nhc.NodeHostDir)

	assert.Contains(t, c.String(), "RAFT PARAMETERS")

	bad := c
	bad.ReplicaID = 2
	assert.True(t, cacheerr.IsCode(bad.Validate(), cacheerr.ErrCConfig))
	bad = c
	bad.DataDir = ""
	assert.True(t, cacheerr.IsCode(bad.Validate(), cacheerr.ErrCConfig))
}

// TestReplicaSnapshotRecovery runs a single node shard, forces a snapshot and restarts the node host,
// so the cache is rebuilt from the serialized snapshot.
func TestReplicaSnapshotRecovery(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a raft node host")
	}
	conf := singleReplica(t)
	opts := []serializer.Option{serializer.WithScheme(compress.SchemeGZip)}

	nh, err := StartReplica(conf, serializer.FormatXML, opts...)
	require.NoError(t, err)
	c := NewClient(nh, conf.ShardID, 3*time.Second)
	waitReady(t, c)

	added, err := c.TryAdd("a", []byte("1"))
	require.NoError(t, err)
	assert.True(t, added)
	added, err = c.TryAdd("a", []byte("other"))
	require.NoError(t, err)
	assert.False(t, added)

	resident, err := c.AddOrGet("a", []byte("other"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), resident)

	for i := 0; i < 10; i++ {
		require.NoError(t, c.AddOrReplace(fmt.Sprintf("k%02d", i), []byte{byte(i)}))
	}
	replaced, ok, err := c.TryUpdate("a", []byte("2"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), replaced)

	removed, ok, err := c.TryRemove("k09")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{9}, removed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_, err = nh.SyncRequestSnapshot(ctx, conf.ShardID, dragonboat.DefaultSnapshotOption)
	cancel()
	require.NoError(t, err)

	// written after the snapshot, replayed from the log on restart
	require.NoError(t, c.AddOrReplace("late", []byte("x")))
	nh.Close()

	nh, err = StartReplica(conf, serializer.FormatXML, opts...)
	require.NoError(t, err)
	defer nh.Close()
	c = NewClient(nh, conf.ShardID, 3*time.Second)
	waitReady(t, c)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	value, found, err := c.TryGet("a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("2"), value)

	snap, err := c.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 11, snap.Len())
	assert.Equal(t, "a", snap.Entries[0].Key)
	assert.Equal(t, "late", snap.Entries[len(snap.Entries)-1].Key)
}
