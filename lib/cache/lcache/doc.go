// Package lcache provides the in-process implementation of cache.ICacheData.
//
// The cache is backed by xsync.MapOf, a concurrent hash map with lock-free reads. Single key
// atomicity maps directly onto the map primitives:
//
//	TryAdd / AddOrGet / AddUnsafe  -> LoadOrStore
//	TryUpdate                      -> Compute (read and replace under the bucket lock)
//	TryRemove                      -> LoadAndDelete
//	AddOrReplaceUnsafe             -> Store
//
// The cache is not distributed. For a replicated variant see package rcache.
package lcache
