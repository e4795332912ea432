// engine_test.go: Transaction engine tests over an embedded sqlite store
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, name string) *Engine {
	t.Helper()
	return NewEngine(newTestPool(t, name, 2))
}

func TestEngine_SingleOperations(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "engine_single")

	assert.True(t, e.SupportsNativeTransactions())

	// Insert is an upsert; inserting an existing key overwrites it.
	assert.True(t, e.Insert(ctx, 1, "one"))
	assert.True(t, e.Insert(ctx, 1, "uno"))
	v, ok := e.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "uno", v)

	// Update and Remove treat zero affected rows as logical failure.
	assert.False(t, e.Update(ctx, 404, "nope"))
	assert.True(t, e.Update(ctx, 1, "ONE"))
	v, _ = e.Get(ctx, 1)
	assert.Equal(t, "ONE", v)

	assert.False(t, e.Remove(ctx, 404))
	assert.True(t, e.Remove(ctx, 1))
	_, ok = e.Get(ctx, 1)
	assert.False(t, ok)
}

func TestEngine_SilentTransaction(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "engine_silent")

	ops := []Operation{
		{Type: OpInsert, Key: 10, Value: "a"},
		{Type: OpUpdate, Key: 999, Value: "x"},
		{Type: OpUpdate, Key: 10, Value: "b"},
		{Type: OpRemove, Key: 999},
		{Type: OpRemove, Key: 10},
	}
	report := e.RunTransaction(ctx, ops, Silent)

	// Silent mode commits despite individual failures.
	assert.True(t, report.Success)
	assert.Equal(t, "silent", report.Mode)
	require.Len(t, report.Results, len(ops))

	failed := 0
	for _, r := range report.Results {
		if r.Status == StatusFailed {
			failed++
			assert.Equal(t, NoRowsAffected, r.Err)
		}
	}
	assert.Equal(t, 2, failed)

	// The two missing-key operations failed; the rest committed, so key 10
	// was inserted, updated and removed.
	assert.Equal(t, StatusOK, report.Results[0].Status)
	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.Equal(t, StatusOK, report.Results[2].Status)
	assert.Equal(t, StatusFailed, report.Results[3].Status)
	assert.Equal(t, StatusOK, report.Results[4].Status)

	_, ok := e.Get(ctx, 10)
	assert.False(t, ok)
}

func TestEngine_RollbackTransaction(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "engine_rollback")

	ops := []Operation{
		{Type: OpInsert, Key: 10, Value: "c"},
		{Type: OpUpdate, Key: 999, Value: "x"},
		{Type: OpRemove, Key: 10},
	}
	report := e.RunTransaction(ctx, ops, RollbackOnError)

	assert.False(t, report.Success)
	assert.Equal(t, "rollback", report.Mode)

	// Results stop at the failing operation; the trailing Remove never ran.
	require.Len(t, report.Results, 2)
	assert.Equal(t, StatusOK, report.Results[0].Status)
	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.Equal(t, NoRowsAffected, report.Results[1].Err)

	// The whole transaction rolled back: key 10 must not exist.
	_, ok := e.Get(ctx, 10)
	assert.False(t, ok)
}

func TestEngine_GetsNeverAbortRollbackMode(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "engine_get_noabort")

	ops := []Operation{
		{Type: OpInsert, Key: 1, Value: "one"},
		{Type: OpGet, Key: 12345}, // missing key: fails but must not abort
		{Type: OpInsert, Key: 2, Value: "two"},
	}
	report := e.RunTransaction(ctx, ops, RollbackOnError)

	assert.True(t, report.Success)
	require.Len(t, report.Results, 3)
	assert.Equal(t, StatusFailed, report.Results[1].Status)

	// Both inserts committed despite the failed read.
	_, ok := e.Get(ctx, 1)
	assert.True(t, ok)
	_, ok = e.Get(ctx, 2)
	assert.True(t, ok)
}

func TestEngine_GetSeesInTransactionWrites(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "engine_txn_read")

	ops := []Operation{
		{Type: OpInsert, Key: 7, Value: "seven"},
		{Type: OpGet, Key: 7},
		{Type: OpUpdate, Key: 7, Value: "SEVEN"},
		{Type: OpGet, Key: 7},
	}
	report := e.RunTransaction(ctx, ops, Silent)

	require.True(t, report.Success)
	require.Len(t, report.Results, 4)

	// Reads observe the transaction's own uncommitted writes, in order.
	assert.Equal(t, "seven", report.Results[1].Value)
	assert.Equal(t, "SEVEN", report.Results[3].Value)
}

func TestEngine_EmptyTransactionSucceeds(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "engine_empty")

	for _, mode := range []TxMode{RollbackOnError, Silent} {
		report := e.RunTransaction(ctx, nil, mode)
		assert.True(t, report.Success, mode.String())
		assert.Empty(t, report.Results, mode.String())
	}
}

func TestEngine_SilentFailuresDoNotLeakPartialWrites(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, "engine_savepoints")

	require.True(t, e.Insert(ctx, 1, "one"))

	// A failing op between two good ones only undoes itself.
	ops := []Operation{
		{Type: OpUpdate, Key: 1, Value: "ONE"},
		{Type: OpRemove, Key: 555},
		{Type: OpInsert, Key: 2, Value: "two"},
	}
	report := e.RunTransaction(ctx, ops, Silent)
	require.True(t, report.Success)

	v, ok := e.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "ONE", v)
	v, ok = e.Get(ctx, 2)
	require.True(t, ok)
	assert.Equal(t, "two", v)
}
