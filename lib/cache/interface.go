package cache

import (
	"iter"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ICachePair is a key-value entry of a cache. Key and value never change after creation.
type ICachePair[K comparable, V any] interface {
	Key() K
	Value() V
}

// ICache is the contract of a concurrent key-value cache.
// Every operation is atomic with respect to a single key.
type ICache[K comparable, V any] interface {
	// TryGet returns the pair stored for key. The boolean reports whether the key was found.
	TryGet(key K) (pair ICachePair[K, V], found bool)
	// TryRemove removes key and returns the removed pair. The boolean reports whether the key was present.
	TryRemove(key K) (removed ICachePair[K, V], ok bool)
	// AddOrGet stores value if key is absent and returns the resident pair (existing or newly inserted).
	AddOrGet(key K, value V) ICachePair[K, V]
	// TryAdd stores value only if key is absent. It returns false if the key already exists.
	TryAdd(key K, value V) bool
	// TryUpdate replaces the value of an existing key and returns the replaced pair.
	// It returns false (and does not insert) if the key is absent.
	TryUpdate(key K, value V) (replaced ICachePair[K, V], ok bool)
	// All iterates over all pairs. The iteration order is unspecified.
	All() iter.Seq[ICachePair[K, V]]
	// Len returns the number of stored pairs.
	Len() int
}

// ICacheData extends ICache with the privileged operations used when restoring cache state.
type ICacheData[K comparable, V any] interface {
	ICache[K, V]
	// AddUnsafe stores value if key is absent. If the key exists, the resident value is returned
	// and added is false, no error is raised.
	AddUnsafe(key K, value V) (existing V, added bool)
	// AddOrReplaceUnsafe stores value unconditionally.
	AddOrReplaceUnsafe(key K, value V)
}

// --------------------------------------------------------------------------
// Pair
// --------------------------------------------------------------------------

type pairImpl[K comparable, V any] struct {
	key   K
	value V
}

// NewPair creates an immutable pair.
func NewPair[K comparable, V any](key K, value V) ICachePair[K, V] {
	return pairImpl[K, V]{key: key, value: value}
}

func (p pairImpl[K, V]) Key() K {
	return p.key
}

func (p pairImpl[K, V]) Value() V {
	return p.value
}
