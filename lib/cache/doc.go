// Package cache defines the contract of a concurrent key-value cache and its serializable snapshot.
//
// The cache itself is a collaborator of the persistence pipeline: the serializer package treats a
// Snapshot like any other value. Implementations:
//
//   - lcache: in-process cache backed by a lock-free concurrent map
//   - rcache: replicated cache state machine (dragonboat) persisting its snapshots with the serializer
//
// Interface Hierarchy:
//
//	ICache      - lookup, exclusive add, add-or-get, conditional update, removal, iteration
//	ICacheData  - ICache plus AddUnsafe / AddOrReplaceUnsafe for privileged callers (restore, replication)
//
// Every operation is atomic with respect to a single key. Iteration is weakly consistent.
//
// Persisting a cache:
//
//	snap := cache.TakeSnapshot(c)
//	s, _ := serializer.NewJSONFileSerializer[cache.Snapshot[string, int]]("cache.dat")
//	err := s.Serialize(snap)
//
// Restoring it:
//
//	snap, err := s.Deserialize()
//	cache.Restore(c, snap)
package cache
