// Package rcache provides a replicated cache as a dragonboat state machine.
//
// CacheStateMachine implements statemachine.IConcurrentStateMachine over a string -> []byte
// cache (lcache). Writes are proposed as binary commands (AddCmd, AddOrReplaceCmd, UpdateCmd,
// RemoveCmd) and applied atomically per key. Reads are served with GetQuery.
//
// Snapshots:
//
//	PrepareSnapshot copies the cache into a cache.Snapshot while updates are paused. SaveSnapshot
//	then writes it through the serializer pipeline (format and compression as configured in the
//	factory), RecoverFromSnapshot reads it back and swaps in a freshly restored cache.
//
//	Both sides of a cluster must use the same format and compression configuration, snapshots
//	carry no header that identifies them.
//
// Usage:
//
//	nh, err := rcache.StartReplica(rcache.ReplicaConfig{
//	    ShardID:        1,
//	    ReplicaID:      1,
//	    Members:        map[uint64]string{1: "localhost:63001"},
//	    RTTMillisecond: 100,
//	    DataDir:        "/var/lib/dpersist",
//	}, serializer.FormatJSON, serializer.WithScheme(compress.SchemeGZip))
//	c := rcache.NewClient(nh, 1, 3*time.Second)
//	added, err := c.TryAdd("key", []byte("value"))
//
// StartReplica is a shortcut for dragonboat.NewNodeHost plus StartConcurrentReplica with
// CreateStateMachineFactory. Client wraps SyncPropose and SyncRead and retries while the shard is busy.
package rcache
