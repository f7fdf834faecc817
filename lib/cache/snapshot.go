package cache

import (
	"cmp"
	"slices"

	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("cache")

// Entry is the serializable form of a pair.
type Entry[K comparable, V any] struct {
	Key   K `json:"key" xml:"key"`
	Value V `json:"value" xml:"value"`
}

// Snapshot is the serializable content of a cache at one point in time.
type Snapshot[K comparable, V any] struct {
	Entries []Entry[K, V] `json:"entries" xml:"entries"`
}

// TakeSnapshot copies all pairs of c into a snapshot. Entries are sorted by key, so equal
// caches always produce equal snapshots (and byte identical serialized output).
// Pairs added or removed while the snapshot is taken may or may not be included.
func TakeSnapshot[K cmp.Ordered, V any](c ICache[K, V]) Snapshot[K, V] {
	entries := make([]Entry[K, V], 0, c.Len())
	for p := range c.All() {
		entries = append(entries, Entry[K, V]{Key: p.Key(), Value: p.Value()})
	}
	slices.SortFunc(entries, func(a, b Entry[K, V]) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return Snapshot[K, V]{Entries: entries}
}

// Restore writes every entry of s into c, replacing existing values.
// A key that occurs twice in s keeps the value of its last entry.
func Restore[K comparable, V any](c ICacheData[K, V], s Snapshot[K, V]) {
	before := c.Len()
	for _, e := range s.Entries {
		c.AddOrReplaceUnsafe(e.Key, e.Value)
	}
	log.Debugf("restored %d entries, cache grew from %d to %d", len(s.Entries), before, c.Len())
}

// Len returns the number of entries.
func (s Snapshot[K, V]) Len() int {
	return len(s.Entries)
}
