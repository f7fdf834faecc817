// Package testing provides a reusable test suite for cache.ICacheData implementations.
//
// Usage:
//
//	func TestLocalCache(t *testing.T) {
//		cachetesting.RunCacheTests(t, "lcache", func() cache.ICacheData[string, int] {
//			return lcache.NewLocalCache[string, int]()
//		})
//	}
package testing
