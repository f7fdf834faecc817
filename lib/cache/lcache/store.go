package lcache

import (
	"iter"

	"github.com/ValentinKolb/dPersist/lib/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

type cacheImpl[K comparable, V any] struct {
	data *xsync.MapOf[K, V]
}

// NewLocalCache creates a new in-process cache.
// All operations are lock-free for readers and lock a single hash bucket for writers.
func NewLocalCache[K comparable, V any]() cache.ICacheData[K, V] {
	return &cacheImpl[K, V]{
		data: xsync.NewMapOf[K, V](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache/interface.go)
// --------------------------------------------------------------------------

func (c *cacheImpl[K, V]) TryGet(key K) (cache.ICachePair[K, V], bool) {
	value, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	return cache.NewPair(key, value), true
}

func (c *cacheImpl[K, V]) TryRemove(key K) (cache.ICachePair[K, V], bool) {
	value, ok := c.data.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	return cache.NewPair(key, value), true
}

func (c *cacheImpl[K, V]) AddOrGet(key K, value V) cache.ICachePair[K, V] {
	actual, _ := c.data.LoadOrStore(key, value)
	return cache.NewPair(key, actual)
}

func (c *cacheImpl[K, V]) TryAdd(key K, value V) bool {
	_, loaded := c.data.LoadOrStore(key, value)
	return !loaded
}

func (c *cacheImpl[K, V]) TryUpdate(key K, value V) (cache.ICachePair[K, V], bool) {
	var (
		replaced V
		updated  bool
	)
	// runs under the bucket lock, so read and replace are one atomic step
	c.data.Compute(key, func(oldValue V, loaded bool) (V, bool) {
		replaced, updated = oldValue, loaded
		if !loaded {
			return oldValue, true
		}
		return value, false
	})
	if !updated {
		return nil, false
	}
	return cache.NewPair(key, replaced), true
}

func (c *cacheImpl[K, V]) All() iter.Seq[cache.ICachePair[K, V]] {
	return func(yield func(cache.ICachePair[K, V]) bool) {
		c.data.Range(func(key K, value V) bool {
			return yield(cache.NewPair(key, value))
		})
	}
}

func (c *cacheImpl[K, V]) Len() int {
	return c.data.Size()
}

func (c *cacheImpl[K, V]) AddUnsafe(key K, value V) (V, bool) {
	actual, loaded := c.data.LoadOrStore(key, value)
	return actual, !loaded
}

func (c *cacheImpl[K, V]) AddOrReplaceUnsafe(key K, value V) {
	c.data.Store(key, value)
}
