// memory_test.go: Tests for the in-memory persistence provider
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_ProviderSemantics(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	assert.False(t, m.SupportsNativeTransactions())

	// Insert is an upsert: repeated inserts succeed and overwrite.
	assert.True(t, m.Insert(ctx, 1, "one"))
	assert.True(t, m.Insert(ctx, 1, "uno"))
	v, ok := m.Get(ctx, 1)
	assert.True(t, ok)
	assert.Equal(t, "uno", v)

	// Update requires presence.
	assert.False(t, m.Update(ctx, 2, "two"))
	assert.True(t, m.Update(ctx, 1, "ONE"))
	v, _ = m.Get(ctx, 1)
	assert.Equal(t, "ONE", v)

	// Remove requires presence.
	assert.False(t, m.Remove(ctx, 2))
	assert.True(t, m.Remove(ctx, 1))
	_, ok = m.Get(ctx, 1)
	assert.False(t, ok)

	assert.Equal(t, 0, m.Len())
}

func TestOpType_Names(t *testing.T) {
	assert.Equal(t, "insert", OpInsert.String())
	assert.Equal(t, "update", OpUpdate.String())
	assert.Equal(t, "delete", OpRemove.String())
	assert.Equal(t, "get", OpGet.String())
}

func TestParseOpType(t *testing.T) {
	for name, want := range map[string]OpType{
		"insert": OpInsert,
		"update": OpUpdate,
		"delete": OpRemove,
		"remove": OpRemove,
		"GET":    OpGet,
	} {
		got, err := ParseOpType(name)
		assert.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseOpType("truncate")
	assert.Error(t, err)
}

func TestTxMode_Names(t *testing.T) {
	assert.Equal(t, "rollback", RollbackOnError.String())
	assert.Equal(t, "silent", Silent.String())
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("postgres")
	assert.NoError(t, err)
	assert.Equal(t, "postgres", d.Driver)

	d, err = DialectFor("sqlite")
	assert.NoError(t, err)
	assert.Equal(t, "sqlite3", d.Driver)

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}
