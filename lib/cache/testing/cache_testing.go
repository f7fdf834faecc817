package testing

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dPersist/lib/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CacheFactory creates a new, empty cache instance
type CacheFactory func() cache.ICacheData[string, int]

// RunCacheTests runs the contract test suite against a cache implementation.
func RunCacheTests(t *testing.T, name string, factory CacheFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("TryAdd&TryGet", func(t *testing.T) {
			testTryAddTryGet(t, factory())
		})

		t.Run("AddOrGet", func(t *testing.T) {
			testAddOrGet(t, factory())
		})

		t.Run("TryUpdate", func(t *testing.T) {
			testTryUpdate(t, factory())
		})

		t.Run("TryRemove", func(t *testing.T) {
			testTryRemove(t, factory())
		})

		t.Run("UnsafeOperations", func(t *testing.T) {
			testUnsafeOperations(t, factory())
		})

		t.Run("Iteration", func(t *testing.T) {
			testIteration(t, factory())
		})

		t.Run("SnapshotRestore", func(t *testing.T) {
			testSnapshotRestore(t, factory)
		})

		t.Run("ConcurrentExclusiveAdd", func(t *testing.T) {
			testConcurrentExclusiveAdd(t, factory())
		})

		t.Run("ConcurrentUpdates", func(t *testing.T) {
			testConcurrentUpdates(t, factory())
		})

		t.Run("ConcurrentRemove", func(t *testing.T) {
			testConcurrentRemove(t, factory())
		})
	})
}

func testTryAddTryGet(t *testing.T, c cache.ICacheData[string, int]) {
	_, found := c.TryGet("a")
	assert.False(t, found)

	assert.True(t, c.TryAdd("a", 1))
	assert.False(t, c.TryAdd("a", 2), "second add of the same key must fail")

	p, found := c.TryGet("a")
	require.True(t, found)
	assert.Equal(t, "a", p.Key())
	assert.Equal(t, 1, p.Value())
	assert.Equal(t, 1, c.Len())
}

func testAddOrGet(t *testing.T, c cache.ICacheData[string, int]) {
	p := c.AddOrGet("k", 10)
	assert.Equal(t, "k", p.Key())
	assert.Equal(t, 10, p.Value())

	p = c.AddOrGet("k", 20)
	assert.Equal(t, 10, p.Value(), "resident value must be returned")
}

func testTryUpdate(t *testing.T, c cache.ICacheData[string, int]) {
	_, ok := c.TryUpdate("missing", 1)
	assert.False(t, ok)
	_, found := c.TryGet("missing")
	assert.False(t, found, "update must not insert")

	c.TryAdd("k", 1)
	replaced, ok := c.TryUpdate("k", 2)
	require.True(t, ok)
	assert.Equal(t, 1, replaced.Value())

	p, _ := c.TryGet("k")
	assert.Equal(t, 2, p.Value())
}

func testTryRemove(t *testing.T, c cache.ICacheData[string, int]) {
	_, ok := c.TryRemove("missing")
	assert.False(t, ok)

	c.TryAdd("k", 5)
	removed, ok := c.TryRemove("k")
	require.True(t, ok)
	assert.Equal(t, "k", removed.Key())
	assert.Equal(t, 5, removed.Value())

	_, ok = c.TryRemove("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func testUnsafeOperations(t *testing.T, c cache.ICacheData[string, int]) {
	existing, added := c.AddUnsafe("k", 1)
	assert.True(t, added)
	assert.Equal(t, 1, existing)

	existing, added = c.AddUnsafe("k", 2)
	assert.False(t, added)
	assert.Equal(t, 1, existing)

	c.AddOrReplaceUnsafe("k", 3)
	c.AddOrReplaceUnsafe("new", 4)
	p, _ := c.TryGet("k")
	assert.Equal(t, 3, p.Value())
	p, _ = c.TryGet("new")
	assert.Equal(t, 4, p.Value())
}

func testIteration(t *testing.T, c cache.ICacheData[string, int]) {
	want := map[string]int{}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%03d", i)
		want[key] = i
		c.TryAdd(key, i)
	}

	got := map[string]int{}
	for p := range c.All() {
		got[p.Key()] = p.Value()
	}
	assert.Equal(t, want, got)

	// early exit must be honored
	count := 0
	for range c.All() {
		count++
		if count == 10 {
			break
		}
	}
	assert.Equal(t, 10, count)
}

func testSnapshotRestore(t *testing.T, factory CacheFactory) {
	src := factory()
	for _, k := range []string{"c", "a", "b"} {
		src.TryAdd(k, len(k)+int(k[0]))
	}

	snap := cache.TakeSnapshot[string, int](src)
	require.Equal(t, 3, snap.Len())
	assert.Equal(t, []string{"a", "b", "c"}, []string{snap.Entries[0].Key, snap.Entries[1].Key, snap.Entries[2].Key})

	dst := factory()
	dst.TryAdd("a", -1)
	cache.Restore(dst, snap)
	assert.Equal(t, 3, dst.Len())
	assert.Equal(t, snap, cache.TakeSnapshot[string, int](dst))
}

func testConcurrentExclusiveAdd(t *testing.T, c cache.ICacheData[string, int]) {
	const workers = 64
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if c.TryAdd("contended", i) {
				wins.Add(1)
			}
			c.AddOrGet("shared", i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one TryAdd must win")
	assert.Equal(t, 2, c.Len())
}

func testConcurrentUpdates(t *testing.T, c cache.ICacheData[string, int]) {
	const workers = 64
	c.TryAdd("k", -1)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		replaced []int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, ok := c.TryUpdate("k", i)
			if !ok {
				return
			}
			mu.Lock()
			replaced = append(replaced, p.Value())
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	// every written value is replaced exactly once, except the final one
	final, _ := c.TryGet("k")
	seen := map[int]int{final.Value(): 1}
	for _, v := range replaced {
		seen[v]++
	}
	require.Len(t, replaced, workers)
	assert.Equal(t, 1, seen[-1])
	for i := 0; i < workers; i++ {
		assert.Equal(t, 1, seen[i], "value %d", i)
	}
}

func testConcurrentRemove(t *testing.T, c cache.ICacheData[string, int]) {
	const workers = 64
	c.TryAdd("k", 1)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := c.TryRemove("k"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load(), "exactly one TryRemove must win")
}
