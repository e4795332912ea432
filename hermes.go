// hermes.go: Bucketed eviction cache for the Hermes write-through KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"sync"
	"sync/atomic"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries        uint64 `json:"entry_count"`
	BytesEstimated uint64 `json:"estimated_bytes"`
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
	Evictions      uint64 `json:"evictions"`
}

// maxEvictionIterations caps a single eviction pass. The cap is a safety
// valve against accounting drift, not a caller-visible condition.
const maxEvictionIterations = 10000

// bucket is an independent chain of entry handles guarded by its own
// mutex. A key lives in at most one bucket, at most once.
type bucket struct {
	mu    sync.Mutex
	chain []handle
}

// Cache is a sharded int->string map with approximate byte accounting and
// policy-driven eviction (LRU, FIFO or Random).
//
// Locking discipline: a bucket mutex is always taken before the recency
// mutex, never the other way around, and neither is held across calls
// outside the cache. Counters are atomics so Stats never takes a lock.
type Cache struct {
	cfg     Config
	buckets []bucket
	arena   *arena
	policy  evictionPolicy

	// recency list ordering of handles, front = most recently touched.
	recencyMu sync.Mutex
	front     handle
	back      handle

	fifoSeq   atomic.Uint64
	entries   atomic.Int64
	bytes     atomic.Int64
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache for the given configuration, applying defaults for
// zero-valued fields (2 MiB budget, 1031 buckets, LRU policy).
func New(cfg Config) *Cache {
	cfg = cfg.withDefaults()

	c := &Cache{
		cfg:     cfg,
		buckets: make([]bucket, cfg.BucketCount),
		arena:   newArena(),
		front:   noHandle,
		back:    noHandle,
	}

	switch cfg.Policy {
	case PolicyFIFO:
		c.policy = &fifoPolicy{}
	case PolicyRandom:
		c.policy = &randomPolicy{}
	default:
		c.policy = &lruPolicy{}
	}
	return c
}

// Policy returns the eviction policy the cache was built with.
func (c *Cache) Policy() Policy { return c.cfg.Policy }

// Get returns the cached value for key. A hit always refreshes the
// entry's recency position, regardless of the configured policy, so the
// recency list stays accurate for LRU fallbacks.
func (c *Cache) Get(key int) (string, bool) {
	b := c.bucketFor(key)
	b.mu.Lock()
	h := c.findLocked(b, key)
	if h == noHandle {
		b.mu.Unlock()
		c.misses.Add(1)
		return "", false
	}
	value := c.arena.at(h).value
	c.touch(h)
	b.mu.Unlock()
	c.hits.Add(1)
	return value, true
}

// InsertIfAbsent adds key only when it is not already cached. An existing
// key is left unmodified (its recency is refreshed) and false is returned.
func (c *Cache) InsertIfAbsent(key int, value string) bool {
	b := c.bucketFor(key)
	b.mu.Lock()
	if h := c.findLocked(b, key); h != noHandle {
		c.touch(h)
		b.mu.Unlock()
		return false
	}
	c.insertLocked(b, key, value)
	b.mu.Unlock()
	c.evictIfNeeded()
	return true
}

// Update overwrites the value of an existing key, returning false without
// mutation when the key is absent.
func (c *Cache) Update(key int, value string) bool {
	b := c.bucketFor(key)
	b.mu.Lock()
	h := c.findLocked(b, key)
	if h == noHandle {
		b.mu.Unlock()
		return false
	}
	c.updateLocked(h, value)
	b.mu.Unlock()
	c.evictIfNeeded()
	return true
}

// UpdateOrInsert upserts key, returning true when a new entry was created
// and false when an existing one was overwritten.
func (c *Cache) UpdateOrInsert(key int, value string) bool {
	b := c.bucketFor(key)
	b.mu.Lock()
	if h := c.findLocked(b, key); h != noHandle {
		c.updateLocked(h, value)
		b.mu.Unlock()
		c.evictIfNeeded()
		return false
	}
	c.insertLocked(b, key, value)
	b.mu.Unlock()
	c.evictIfNeeded()
	return true
}

// Erase removes key, returning whether it existed.
func (c *Cache) Erase(key int) bool {
	b := c.bucketFor(key)
	b.mu.Lock()
	h := c.findLocked(b, key)
	if h == noHandle {
		b.mu.Unlock()
		return false
	}
	c.removeLocked(b, h)
	b.mu.Unlock()
	return true
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:        uint64(c.entries.Load()),
		BytesEstimated: uint64(c.bytes.Load()),
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Evictions:      c.evictions.Load(),
	}
}

func (c *Cache) bucketFor(key int) *bucket {
	return &c.buckets[int(uint(key)%uint(len(c.buckets)))]
}

// findLocked scans b's chain for key. Chains stay short given the bucket
// count, so a linear scan is fine. Caller holds b.mu.
func (c *Cache) findLocked(b *bucket, key int) handle {
	for _, h := range b.chain {
		if c.arena.at(h).key == key {
			return h
		}
	}
	return noHandle
}

// insertLocked creates a new entry for key in b. Caller holds b.mu.
func (c *Cache) insertLocked(b *bucket, key int, value string) {
	h := c.arena.alloc()
	e := c.arena.at(h)
	e.key = key
	e.value = value
	e.fifoSeq = c.fifoSeq.Add(1)
	b.chain = append(b.chain, h)
	c.pushFront(h)
	c.entries.Add(1)
	c.bytes.Add(entryOverhead + int64(len(value)))
}

// updateLocked overwrites an entry's value, adjusting accounted bytes by
// the signed length difference rather than recomputing. Caller holds the
// owning bucket's mutex.
func (c *Cache) updateLocked(h handle, value string) {
	e := c.arena.at(h)
	c.bytes.Add(int64(len(value)) - int64(len(e.value)))
	e.value = value
	c.touch(h)
}

// removeLocked unlinks the entry from its bucket chain and the recency
// list and returns its slot to the arena. Caller holds b.mu.
func (c *Cache) removeLocked(b *bucket, h handle) {
	for i, cur := range b.chain {
		if cur == h {
			b.chain[i] = b.chain[len(b.chain)-1]
			b.chain = b.chain[:len(b.chain)-1]
			break
		}
	}
	e := c.arena.at(h)
	c.unlink(h)
	c.bytes.Add(-(entryOverhead + int64(len(e.value))))
	c.entries.Add(-1)
	c.arena.release(h)
}

// evictIfNeeded removes entries one at a time, by policy, until the cache
// is back under budget or empty. It runs without any bucket lock held;
// each victim is erased through the normal path. Never proactive: it only
// evicts while actually over budget.
func (c *Cache) evictIfNeeded() {
	for guard := 0; guard < maxEvictionIterations; guard++ {
		if c.bytes.Load() <= c.cfg.MaxBytes || c.entries.Load() == 0 {
			return
		}
		key, ok := c.policy.victim(c)
		if !ok {
			return
		}
		if c.Erase(key) {
			c.evictions.Add(1)
		}
	}
}

// ---- recency list (front = most recently touched) ----

// pushFront links a fresh handle at the head of the recency list.
func (c *Cache) pushFront(h handle) {
	c.recencyMu.Lock()
	e := c.arena.at(h)
	e.prev = noHandle
	e.next = c.front
	if c.front != noHandle {
		c.arena.at(c.front).prev = h
	}
	c.front = h
	if c.back == noHandle {
		c.back = h
	}
	c.recencyMu.Unlock()
}

// touch moves an existing handle to the head of the recency list.
func (c *Cache) touch(h handle) {
	c.recencyMu.Lock()
	if c.front != h {
		c.unlinkLocked(h)
		e := c.arena.at(h)
		e.prev = noHandle
		e.next = c.front
		if c.front != noHandle {
			c.arena.at(c.front).prev = h
		}
		c.front = h
		if c.back == noHandle {
			c.back = h
		}
	}
	c.recencyMu.Unlock()
}

// unlink removes a handle from the recency list.
func (c *Cache) unlink(h handle) {
	c.recencyMu.Lock()
	c.unlinkLocked(h)
	c.recencyMu.Unlock()
}

func (c *Cache) unlinkLocked(h handle) {
	e := c.arena.at(h)
	if e.prev != noHandle {
		c.arena.at(e.prev).next = e.next
	} else if c.front == h {
		c.front = e.next
	}
	if e.next != noHandle {
		c.arena.at(e.next).prev = e.prev
	} else if c.back == h {
		c.back = e.prev
	}
	e.prev, e.next = noHandle, noHandle
}

// leastRecent returns the key at the tail of the recency list.
func (c *Cache) leastRecent() (int, bool) {
	c.recencyMu.Lock()
	defer c.recencyMu.Unlock()
	if c.back == noHandle {
		return 0, false
	}
	return c.arena.at(c.back).key, true
}
