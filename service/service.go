// service.go: Write-through orchestration for the Hermes KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

// Package service keeps the in-memory cache and the persistence backend
// consistent for every externally-visible operation: writes go through to
// the store, read misses hydrate the cache, and cache mutations are
// compensated when a store write fails partway.
package service

import (
	"context"
	"errors"

	"github.com/agilira/hermes"
	"github.com/agilira/hermes/store"
	"github.com/agilira/hermes/worker"
)

// Typed failure reasons. Callers discriminate on these instead of parsing
// free text.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")
)

// Service orchestrates the cache, the persistence provider, and the
// worker pool. The provider may be nil, in which case the service runs
// cache-only and treats every store lookup as a miss.
type Service struct {
	cache    *hermes.Cache
	provider store.Provider
	workers  *worker.Pool
}

// New assembles a Service. workers may be nil when async entry points are
// not needed.
func New(cache *hermes.Cache, provider store.Provider, workers *worker.Pool) *Service {
	return &Service{cache: cache, provider: provider, workers: workers}
}

// ReadResult is the outcome of a successful Read. FromStore marks values
// that were hydrated from persistence rather than served from cache.
type ReadResult struct {
	Value     string
	FromStore bool
}

// Read serves key from the cache, hydrating it from the store on a miss.
// A store miss, or absent persistence, is ErrNotFound.
func (s *Service) Read(ctx context.Context, key int) (ReadResult, error) {
	if v, ok := s.cache.Get(key); ok {
		return ReadResult{Value: v}, nil
	}
	if s.provider == nil {
		return ReadResult{}, ErrNotFound
	}
	v, ok := s.provider.Get(ctx, key)
	if !ok {
		return ReadResult{}, ErrNotFound
	}
	s.cache.UpdateOrInsert(key, v)
	return ReadResult{Value: v, FromStore: true}, nil
}

// Insert adds key, cache first. An already-cached key is ErrConflict. A
// rejected store write compensates the cache insertion and returns
// ErrPersistence: the cache never holds a value the store rejected.
func (s *Service) Insert(ctx context.Context, key int, value string) error {
	if !s.cache.InsertIfAbsent(key, value) {
		return ErrConflict
	}
	if s.provider != nil && !s.provider.Insert(ctx, key, value) {
		s.cache.Erase(key)
		return ErrPersistence
	}
	return nil
}

// Update overwrites key. A cold key is hydrated from the store first, so
// updates succeed on a cold cache as long as the store has the key. A
// failed store write restores the cache's previous value.
func (s *Service) Update(ctx context.Context, key int, value string) error {
	prev, cached := s.cache.Get(key)
	if !cached {
		if s.provider == nil {
			return ErrNotFound
		}
		v, ok := s.provider.Get(ctx, key)
		if !ok {
			return ErrNotFound
		}
		s.cache.UpdateOrInsert(key, v)
		prev = v
	}

	s.cache.Update(key, value)
	if s.provider != nil && !s.provider.Update(ctx, key, value) {
		s.cache.Update(key, prev)
		return ErrPersistence
	}
	return nil
}

// Remove deletes key from cache and store. When the cache had the value
// but the store delete fails, the cache entry is restored and the caller
// sees ErrPersistence. When neither side had the key, ErrNotFound.
func (s *Service) Remove(ctx context.Context, key int) error {
	prev, cached := s.cache.Get(key)
	if cached {
		s.cache.Erase(key)
	}
	if s.provider == nil {
		if !cached {
			return ErrNotFound
		}
		return nil
	}
	if s.provider.Remove(ctx, key) {
		return nil
	}
	if cached {
		s.cache.UpdateOrInsert(key, prev)
		return ErrPersistence
	}
	return ErrNotFound
}

// CacheStats returns the cache counter snapshot.
func (s *Service) CacheStats() hermes.Stats { return s.cache.Stats() }
