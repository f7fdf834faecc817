package rcache

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dPersist/lib/cache"
	"github.com/ValentinKolb/dPersist/lib/cache/lcache"
	"github.com/ValentinKolb/dPersist/lib/cache/rcache/internal"
	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/serializer"
	"github.com/lni/dragonboat/v4/logger"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

var log = logger.GetLogger("rsm")

// Snapshot is the value persisted by SaveSnapshot
type Snapshot = cache.Snapshot[string, []byte]

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// CacheStateMachine is a dragonboat state machine replicating a string -> []byte cache.
// Snapshots are written with the serializer pipeline, so they carry the configured format and compression.
type CacheStateMachine struct {
	replicaID uint64
	shardID   uint64
	format    serializer.Format
	opts      []serializer.Option
	data      atomic.Pointer[state] // swapped as a whole on recovery
}

type state struct {
	cache cache.ICacheData[string, []byte]
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// format and opts configure how snapshots are serialized.
func CreateStateMachineFactory(format serializer.Format, opts ...serializer.Option) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return NewCacheStateMachine(shardID, replicaID, format, opts...)
	}
}

// NewCacheStateMachine creates a state machine with an empty cache.
func NewCacheStateMachine(shardID, replicaID uint64, format serializer.Format, opts ...serializer.Option) *CacheStateMachine {
	fsm := &CacheStateMachine{
		replicaID: replicaID,
		shardID:   shardID,
		format:    format,
		opts:      opts,
	}
	fsm.data.Store(&state{cache: lcache.NewLocalCache[string, []byte]()})
	return fsm
}

// Cache gives read access to the current cache (e.g. for local inspection). Writes must go through raft.
func (fsm *CacheStateMachine) Cache() cache.ICache[string, []byte] {
	return fsm.data.Load().cache
}

// Lookup handles read-only queries
func (fsm *CacheStateMachine) Lookup(itf interface{}) (interface{}, error) {
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid query type: %T", itf))
	}
	c := fsm.data.Load().cache
	switch q.Type {
	case internal.QueryTGet:
		p, found := c.TryGet(q.Key)
		if !found {
			return internal.QueryResult{}, nil
		}
		return internal.QueryResult{Ok: true, Value: p.Value()}, nil
	case internal.QueryTLen:
		return c.Len(), nil
	case internal.QueryTSnapshot:
		return cache.TakeSnapshot[string, []byte](c), nil
	default:
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("unknown query operation: %s", q.Type))
	}
}

// Update applies write commands to the cache.
// The result value is one of the internal.ResultC* codes, the data holds the previous value where one exists.
func (fsm *CacheStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}
	start := time.Now()
	c := fsm.data.Load().cache

	for idx, e := range entries {
		cmd := internal.Command{}
		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{Value: internal.ResultCInvalid, Data: []byte(fmt.Sprintf("failed to deserialize command: %v", err))}
			continue
		}
		entries[idx].Result = apply(c, cmd)
	}

	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("state machine took long to update. Batch updated %d entries, took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes one command
func apply(c cache.ICacheData[string, []byte], cmd internal.Command) sm.Result {
	switch cmd.Type {
	case internal.CommandTAdd:
		if existing, added := c.AddUnsafe(cmd.Key, cmd.Value); !added {
			return sm.Result{Value: internal.ResultCRejected, Data: existing}
		}
		return sm.Result{Value: internal.ResultCApplied}
	case internal.CommandTAddOrReplace:
		c.AddOrReplaceUnsafe(cmd.Key, cmd.Value)
		return sm.Result{Value: internal.ResultCApplied}
	case internal.CommandTUpdate:
		if replaced, ok := c.TryUpdate(cmd.Key, cmd.Value); ok {
			return sm.Result{Value: internal.ResultCApplied, Data: replaced.Value()}
		}
		return sm.Result{Value: internal.ResultCRejected}
	case internal.CommandTRemove:
		if removed, ok := c.TryRemove(cmd.Key); ok {
			return sm.Result{Value: internal.ResultCApplied, Data: removed.Value()}
		}
		return sm.Result{Value: internal.ResultCRejected}
	default:
		return sm.Result{Value: internal.ResultCInvalid, Data: []byte(fmt.Sprintf("unknown command operation: %s", cmd.Type))}
	}
}

// PrepareSnapshot captures the cache content. It runs while updates are paused,
// so the returned snapshot is consistent with the applied log index.
func (fsm *CacheStateMachine) PrepareSnapshot() (interface{}, error) {
	return cache.TakeSnapshot[string, []byte](fsm.data.Load().cache), nil
}

// SaveSnapshot writes the prepared snapshot to the writer
func (fsm *CacheStateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	snap, ok := ctx.(Snapshot)
	if !ok {
		return cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid snapshot context: %T", ctx))
	}
	s, err := serializer.New[Snapshot](fsm.format, serializer.Target{Stream: serializer.WriterStream(writer)}, fsm.opts...)
	if err != nil {
		return err
	}
	return s.Serialize(snap)
}

// RecoverFromSnapshot replaces the cache with the content of the snapshot.
func (fsm *CacheStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	s, err := serializer.New[Snapshot](fsm.format, serializer.Target{Stream: serializer.ReaderStream(r)}, fsm.opts...)
	if err != nil {
		return err
	}
	snap, err := s.Deserialize()
	if err != nil {
		return err
	}
	restored := lcache.NewLocalCache[string, []byte]()
	cache.Restore(restored, snap)
	fsm.data.Store(&state{cache: restored})
	log.Infof("shard %d replica %d recovered %d entries from snapshot", fsm.shardID, fsm.replicaID, snap.Len())
	return nil
}

// Close performs any necessary cleanup.
func (fsm *CacheStateMachine) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Command / Query constructors
// --------------------------------------------------------------------------

// AddCmd encodes an exclusive add, to be passed to NodeHost.SyncPropose.
func AddCmd(key string, value []byte) []byte {
	return (&internal.Command{Type: internal.CommandTAdd, Key: key, Value: value}).Serialize()
}

// AddOrReplaceCmd encodes an unconditional add.
func AddOrReplaceCmd(key string, value []byte) []byte {
	return (&internal.Command{Type: internal.CommandTAddOrReplace, Key: key, Value: value}).Serialize()
}

// UpdateCmd encodes a conditional update of an existing key.
func UpdateCmd(key string, value []byte) []byte {
	return (&internal.Command{Type: internal.CommandTUpdate, Key: key, Value: value}).Serialize()
}

// RemoveCmd encodes a removal.
func RemoveCmd(key string) []byte {
	return (&internal.Command{Type: internal.CommandTRemove, Key: key}).Serialize()
}

// GetQuery builds a lookup request, to be passed to NodeHost.SyncRead.
func GetQuery(key string) interface{} {
	return internal.Query{Type: internal.QueryTGet, Key: key}
}

// ParseQueryResult converts a Lookup result into value and found flag.
func ParseQueryResult(result interface{}) ([]byte, bool, error) {
	r, ok := result.(internal.QueryResult)
	if !ok {
		return nil, false, cacheerr.NewWithDetail(cacheerr.ErrCUnknown, fmt.Sprintf("invalid query result type: %T", result))
	}
	return r.Value, r.Ok, nil
}

// Applied reports whether an update result signals that the command changed the cache.
func Applied(result sm.Result) bool {
	return result.Value == internal.ResultCApplied
}
