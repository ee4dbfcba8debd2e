// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache provides the freshness cache wrapping every provider
// call.
//
// Entries carry a fetch timestamp and a per-provider TTL; an expired
// entry is treated as absent, never returned. Only successful provider
// results are cached, so a transient upstream outage self-heals on the
// next audit instead of being sticky for the TTL window. Concurrent
// fetches for an identical key collapse into one upstream call via
// singleflight, which bounds call volume against rate-limited upstreams
// under concurrent audit load.
package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc computes a value on a cache miss. A returned error means
// the result is not cacheable.
type FetchFunc func(ctx context.Context) (any, error)

// FreshnessCache is a TTL key/value store with single-flight fetch
// deduplication.
//
// # Thread Safety
//
// Safe for concurrent use. The entry map is guarded by a sync.RWMutex;
// in-flight fetches are deduplicated by a singleflight.Group. A slow
// fetch for one key never blocks reads or fetches of any other key:
// the map lock is only held for map access, not across fetches.
type FreshnessCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lru     *list.List
	flight  singleflight.Group
	clock   Clock
	options Options

	// Stats
	hits    int64
	misses  int64
	expired int64
	shared  int64
	fetches int64
}

// entry is one cached value.
type entry struct {
	key        string
	value      any
	fetchedAt  time.Time
	ttl        time.Duration
	lruElement *list.Element
}

// Options configures FreshnessCache.
type Options struct {
	// MaxEntries bounds the cache size; least recently fetched entries
	// are evicted past it. Default: 4096.
	MaxEntries int

	// Clock supplies time. Default: SystemClock.
	Clock Clock
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxEntries: 4096,
		Clock:      SystemClock{},
	}
}

// Option is a functional option for configuring FreshnessCache.
type Option func(*Options)

// WithMaxEntries sets the maximum number of cached entries.
func WithMaxEntries(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxEntries = n
		}
	}
}

// WithClock injects a clock, used by tests to control TTL expiry.
func WithClock(c Clock) Option {
	return func(o *Options) {
		if c != nil {
			o.Clock = c
		}
	}
}

// New creates a FreshnessCache.
func New(opts ...Option) *FreshnessCache {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &FreshnessCache{
		entries: make(map[string]*entry),
		lru:     list.New(),
		clock:   options.Clock,
		options: options,
	}
}

// Get returns the cached value for key if present and fresh.
//
// An entry whose fetchedAt+ttl is in the past is treated as absent and
// removed; the caller sees a miss, never a stale value.
func (c *FreshnessCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		atomic.AddInt64(&c.misses, 1)
		recordMiss()
		return nil, false
	}
	if c.isExpired(e) {
		c.remove(key)
		atomic.AddInt64(&c.expired, 1)
		atomic.AddInt64(&c.misses, 1)
		recordExpired()
		recordMiss()
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	recordHit()
	return e.value, true
}

// GetOrFetch returns the fresh cached value for key, or runs fetch to
// compute one.
//
// # Description
//
// On a hit within TTL the stored value is returned and fetch is never
// invoked. On a miss, concurrent callers for the same key share a
// single fetch; each caller of a shared fetch still receives its own
// result. Only successful fetches are stored. A fetch error is
// returned to the caller as-is and nothing is cached.
//
// # Inputs
//
//   - ctx: Context for cancellation; passed through to fetch.
//   - key: Normalized request key (provider + identifier + version).
//   - ttl: Freshness window for a newly stored value.
//   - fetch: Function invoked on a miss.
func (c *FreshnessCache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, sharedCall := c.flight.Do(key, func() (any, error) {
		// Double-check: a concurrent caller may have populated the
		// entry while this call waited on the flight group.
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		atomic.AddInt64(&c.fetches, 1)
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.put(key, value, ttl)
		return value, nil
	})

	if sharedCall {
		atomic.AddInt64(&c.shared, 1)
		recordShared()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// put stores a successful value.
func (c *FreshnessCache) put(key string, value any, ttl time.Duration) {
	e := &entry{
		key:       key,
		value:     value,
		fetchedAt: c.clock.Now(),
		ttl:       ttl,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && old.lruElement != nil {
		c.lru.Remove(old.lruElement)
	}
	for len(c.entries) >= c.options.MaxEntries {
		if !c.evictOldestLocked() {
			break
		}
	}

	e.lruElement = c.lru.PushFront(key)
	c.entries[key] = e
}

// isExpired checks the freshness invariant fetchedAt+ttl >= now.
func (c *FreshnessCache) isExpired(e *entry) bool {
	if e.ttl <= 0 {
		return true
	}
	return c.clock.Now().After(e.fetchedAt.Add(e.ttl))
}

// remove deletes an entry.
func (c *FreshnessCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.lruElement != nil {
		c.lru.Remove(e.lruElement)
	}
	delete(c.entries, key)
}

// evictOldestLocked evicts the oldest entry (must hold lock).
func (c *FreshnessCache) evictOldestLocked() bool {
	elem := c.lru.Back()
	if elem == nil {
		return false
	}
	key := elem.Value.(string)
	if e, ok := c.entries[key]; ok {
		c.lru.Remove(e.lruElement)
		delete(c.entries, key)
		return true
	}
	return false
}

// Clear removes all entries. Used between tests.
func (c *FreshnessCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.lru.Init()
}

// Len returns the number of stored entries, including not-yet-collected
// expired ones.
func (c *FreshnessCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats contains cache counters.
type Stats struct {
	EntryCount int
	Hits       int64
	Misses     int64
	Expired    int64
	Shared     int64
	Fetches    int64
}

// HitRate returns the hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Stats returns current counters.
func (c *FreshnessCache) Stats() Stats {
	c.mu.RLock()
	entryCount := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		EntryCount: entryCount,
		Hits:       atomic.LoadInt64(&c.hits),
		Misses:     atomic.LoadInt64(&c.misses),
		Expired:    atomic.LoadInt64(&c.expired),
		Shared:     atomic.LoadInt64(&c.shared),
		Fetches:    atomic.LoadInt64(&c.fetches),
	}
}
