// arena.go: Entry arena for the Hermes write-through cache
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// handle is a stable index into the entry arena. Buckets and the recency
// list refer to entries exclusively through handles, never through
// pointers held across operations.
type handle int32

// noHandle marks an absent entry reference.
const noHandle handle = -1

// arenaBlockSize is the number of entry slots per arena block. Blocks are
// never moved or freed once allocated, so a resolved *entry stays valid
// for the lifetime of the cache.
const arenaBlockSize = 512

// entryOverhead is the accounted per-entry cost, excluding the value
// payload. Byte accounting sums entryOverhead + len(value) per live entry.
var entryOverhead = int64(unsafe.Sizeof(entry{}))

// entry is a single cache slot. Field ownership is split between locks:
// key, value and fifoSeq are guarded by the owning bucket's mutex, while
// prev and next are guarded by the recency-list mutex. nextFree is only
// touched under the arena mutex while the slot is on the free list.
type entry struct {
	key      int
	value    string
	fifoSeq  uint64
	prev     handle
	next     handle
	nextFree handle
}

type arenaBlock struct {
	slots [arenaBlockSize]entry
}

// arena owns every entry slot of a cache. Allocation and release are
// serialized by mu; handle resolution is lock-free against an atomically
// published block table so readers never observe a partially grown arena.
type arena struct {
	mu     sync.Mutex
	blocks atomic.Pointer[[]*arenaBlock]
	free   handle
	next   int // next never-used slot
	limit  int // total slots across published blocks
}

func newArena() *arena {
	a := &arena{free: noHandle}
	empty := make([]*arenaBlock, 0)
	a.blocks.Store(&empty)
	return a
}

// at resolves a handle to its entry slot. The handle must reference a
// slot previously returned by alloc.
func (a *arena) at(h handle) *entry {
	blocks := *a.blocks.Load()
	return &blocks[int(h)/arenaBlockSize].slots[int(h)%arenaBlockSize]
}

// alloc returns a free slot handle, growing the arena by one block when
// both the free list and the tail block are exhausted.
func (a *arena) alloc() handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.free != noHandle {
		h := a.free
		a.free = a.at(h).nextFree
		return h
	}
	if a.next == a.limit {
		// Publish a copied block table so concurrent at() calls keep a
		// consistent view while the arena grows.
		old := *a.blocks.Load()
		grown := make([]*arenaBlock, len(old)+1)
		copy(grown, old)
		grown[len(old)] = new(arenaBlock)
		a.blocks.Store(&grown)
		a.limit += arenaBlockSize
	}
	h := handle(a.next)
	a.next++
	return h
}

// release returns a slot to the free list. The caller must have already
// unlinked the entry from its bucket chain and the recency list.
func (a *arena) release(h handle) {
	a.mu.Lock()
	e := a.at(h)
	e.value = ""
	e.prev, e.next = noHandle, noHandle
	e.nextFree = a.free
	a.free = h
	a.mu.Unlock()
}
