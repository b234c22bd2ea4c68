// Package cache provides a generic least-recently-used cache with an
// eviction callback, used to share loaded GPU resources by key.
//
// Cache is safe for concurrent use. Loads run under the cache lock, so a
// key is never loaded twice and load functions must not call back into the
// same cache.
package cache
