// memory.go: In-memory persistence provider for the Hermes KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"sync"
)

// MemoryStore is a map-backed Provider. It serves both as the no-database
// deployment mode and as the orchestration-layer test double. It has no
// native transaction support, so bulk callers fall back to the emulated
// compensation path.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[int]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int]string)}
}

// SupportsNativeTransactions reports false: every multi-operation change
// must be emulated with compensations.
func (m *MemoryStore) SupportsNativeTransactions() bool { return false }

// Insert upserts key.
func (m *MemoryStore) Insert(_ context.Context, key int, value string) bool {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return true
}

// Update overwrites key only when present.
func (m *MemoryStore) Update(_ context.Context, key int, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return false
	}
	m.data[key] = value
	return true
}

// Remove deletes key, reporting whether it existed.
func (m *MemoryStore) Remove(_ context.Context, key int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return false
	}
	delete(m.data, key)
	return true
}

// Get returns the value for key.
func (m *MemoryStore) Get(_ context.Context, key int) (string, bool) {
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	return v, ok
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
