// eviction.go: Eviction policies for the Hermes write-through KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"math/rand"
	"strings"
)

// Policy selects the eviction strategy applied when the cache exceeds its
// memory budget.
type Policy int

const (
	// PolicyLRU evicts the least recently touched entry.
	PolicyLRU Policy = iota
	// PolicyFIFO evicts the entry with the smallest insertion order.
	PolicyFIFO
	// PolicyRandom evicts a random entry, falling back to LRU when random
	// bucket draws keep coming up empty.
	PolicyRandom
)

// String returns the lowercase policy name.
func (p Policy) String() string {
	switch p {
	case PolicyFIFO:
		return "fifo"
	case PolicyRandom:
		return "random"
	default:
		return "lru"
	}
}

// ParsePolicy maps a policy name ("lru", "fifo", "random", any case) to
// its Policy value.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "lru":
		return PolicyLRU, nil
	case "fifo":
		return PolicyFIFO, nil
	case "random":
		return PolicyRandom, nil
	default:
		return PolicyLRU, fmt.Errorf("unknown eviction policy %q", s)
	}
}

// randomRetries bounds the number of bucket draws a random eviction makes
// before giving up and deferring to LRU.
const randomRetries = 32

// evictionPolicy picks the next victim key. Implementations must not
// assume the key still exists by the time it is erased; concurrent
// operations may have removed it already.
type evictionPolicy interface {
	victim(c *Cache) (int, bool)
}

// lruPolicy evicts the tail of the recency list.
type lruPolicy struct{}

func (lruPolicy) victim(c *Cache) (int, bool) {
	return c.leastRecent()
}

// fifoPolicy scans every bucket for the smallest insertion-order counter.
// A full scan, but budgets are small and scans are rare next to reads.
type fifoPolicy struct{}

func (fifoPolicy) victim(c *Cache) (int, bool) {
	var (
		victimKey int
		minOrder  uint64
		found     bool
	)
	for i := range c.buckets {
		b := &c.buckets[i]
		b.mu.Lock()
		for _, h := range b.chain {
			e := c.arena.at(h)
			if !found || e.fifoSeq < minOrder {
				minOrder = e.fifoSeq
				victimKey = e.key
				found = true
			}
		}
		b.mu.Unlock()
	}
	return victimKey, found
}

// randomPolicy draws a random bucket, then a random entry within it.
type randomPolicy struct{}

func (randomPolicy) victim(c *Cache) (int, bool) {
	for attempt := 0; attempt < randomRetries; attempt++ {
		b := &c.buckets[rand.Intn(len(c.buckets))]
		b.mu.Lock()
		if len(b.chain) == 0 {
			b.mu.Unlock()
			continue
		}
		key := c.arena.at(b.chain[rand.Intn(len(b.chain))]).key
		b.mu.Unlock()
		return key, true
	}
	return c.leastRecent()
}
