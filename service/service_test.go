// service_test.go: Write-through orchestration tests
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agilira/hermes"
	"github.com/agilira/hermes/store"
	"github.com/agilira/hermes/worker"
)

// flakyProvider wraps a MemoryStore and fails selected write operations,
// standing in for a store that rejects writes mid-flight.
type flakyProvider struct {
	*store.MemoryStore
	failInsert bool
	failUpdate bool
	failRemove bool
}

func (f *flakyProvider) Insert(ctx context.Context, key int, value string) bool {
	if f.failInsert {
		return false
	}
	return f.MemoryStore.Insert(ctx, key, value)
}

func (f *flakyProvider) Update(ctx context.Context, key int, value string) bool {
	if f.failUpdate {
		return false
	}
	return f.MemoryStore.Update(ctx, key, value)
}

func (f *flakyProvider) Remove(ctx context.Context, key int) bool {
	if f.failRemove {
		return false
	}
	return f.MemoryStore.Remove(ctx, key)
}

func newTestService(provider store.Provider) *Service {
	return New(hermes.New(hermes.Config{}), provider, nil)
}

func TestService_InsertReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc := newTestService(mem)

	require.NoError(t, svc.Insert(ctx, 1, "one"))

	// The value is cached by the insert, so the read is cache-served.
	r, err := svc.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "one", r.Value)
	assert.False(t, r.FromStore)

	// The write went through to the store.
	v, ok := mem.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "one", v)
}

func TestService_ReadHydratesColdCache(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	mem.Insert(ctx, 5, "five")
	svc := newTestService(mem)

	// First read misses the cache and hydrates from the store.
	r, err := svc.Read(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "five", r.Value)
	assert.True(t, r.FromStore)

	// Second read is cache-served.
	r, err = svc.Read(ctx, 5)
	require.NoError(t, err)
	assert.False(t, r.FromStore)
}

func TestService_ReadMissingKey(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())

	_, err := svc.Read(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_InsertConflict(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(store.NewMemoryStore())

	require.NoError(t, svc.Insert(ctx, 1, "one"))
	assert.ErrorIs(t, svc.Insert(ctx, 1, "uno"), ErrConflict)

	// The original value is untouched.
	r, err := svc.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "one", r.Value)
}

func TestService_InsertCompensatesOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyProvider{MemoryStore: store.NewMemoryStore(), failInsert: true}
	svc := newTestService(flaky)

	assert.ErrorIs(t, svc.Insert(ctx, 1, "one"), ErrPersistence)

	// The cache insertion was compensated: the key must not be readable.
	_, err := svc.Read(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, uint64(0), svc.CacheStats().Entries)
}

func TestService_UpdateHydratesColdKey(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	mem.Insert(ctx, 3, "three")
	svc := newTestService(mem)

	// Cold cache: the update still succeeds because the store has the key.
	require.NoError(t, svc.Update(ctx, 3, "THREE"))

	r, err := svc.Read(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "THREE", r.Value)
	assert.False(t, r.FromStore)

	v, _ := mem.Get(ctx, 3)
	assert.Equal(t, "THREE", v)
}

func TestService_UpdateMissingKey(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	assert.ErrorIs(t, svc.Update(context.Background(), 404, "x"), ErrNotFound)
}

func TestService_UpdateRestoresOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyProvider{MemoryStore: store.NewMemoryStore()}
	svc := newTestService(flaky)

	require.NoError(t, svc.Insert(ctx, 1, "one"))
	flaky.failUpdate = true

	assert.ErrorIs(t, svc.Update(ctx, 1, "ONE"), ErrPersistence)

	// The cache was rolled back to the previous value.
	r, err := svc.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "one", r.Value)
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc := newTestService(mem)

	require.NoError(t, svc.Insert(ctx, 1, "one"))
	require.NoError(t, svc.Remove(ctx, 1))

	_, err := svc.Read(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, mem.Len())

	assert.ErrorIs(t, svc.Remove(ctx, 1), ErrNotFound)
}

func TestService_RemoveRestoresOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyProvider{MemoryStore: store.NewMemoryStore()}
	svc := newTestService(flaky)

	require.NoError(t, svc.Insert(ctx, 1, "one"))
	flaky.failRemove = true

	assert.ErrorIs(t, svc.Remove(ctx, 1), ErrPersistence)

	// The cached value was restored.
	r, err := svc.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "one", r.Value)
}

func TestService_RemoveStoreOnlyKey(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	mem.Insert(ctx, 9, "nine")
	svc := newTestService(mem)

	// Key is not cached; the store delete alone is sufficient.
	require.NoError(t, svc.Remove(ctx, 9))
	assert.Equal(t, 0, mem.Len())
}

func TestService_CacheOnlyMode(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil)

	require.NoError(t, svc.Insert(ctx, 1, "one"))
	r, err := svc.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "one", r.Value)

	require.NoError(t, svc.Update(ctx, 1, "ONE"))
	require.NoError(t, svc.Remove(ctx, 1))

	_, err = svc.Read(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Update(ctx, 1, "x"), ErrNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, 1), ErrNotFound)
}

func TestService_AsyncReads(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	mem.Insert(ctx, 1, "one")

	workers := worker.NewPool(2)
	defer workers.Close()
	svc := New(hermes.New(hermes.Config{}), mem, workers)

	hit := svc.GetAsync(ctx, 1).Wait()
	assert.True(t, hit.Found)
	assert.Equal(t, "one", hit.Value)
	assert.True(t, hit.FromStore)

	miss := svc.GetAsync(ctx, 404).Wait()
	assert.False(t, miss.Found)
	assert.Equal(t, 404, miss.Key)
}
