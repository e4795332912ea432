// provider.go: Persistence provider contract for the Hermes KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the persistence abstraction the orchestration layer depends
// on. Expected conditions (absence, zero rows affected) are encoded in
// the boolean results; implementations never panic for them.
//
// SupportsNativeTransactions is an explicit capability flag: callers that
// need multi-operation transactions check it instead of inspecting the
// concrete type. A provider answering true must also implement Transactor.
type Provider interface {
	// Insert upserts key. True means the statement executed without error;
	// overwriting an existing row is success.
	Insert(ctx context.Context, key int, value string) bool

	// Update overwrites an existing key. False when the key did not exist
	// (zero rows affected) or the statement failed.
	Update(ctx context.Context, key int, value string) bool

	// Remove deletes key. False when the key did not exist or the
	// statement failed.
	Remove(ctx context.Context, key int) bool

	// Get returns the value for key, or false when zero (or, defensively,
	// more than one) rows match.
	Get(ctx context.Context, key int) (string, bool)

	SupportsNativeTransactions() bool
}

// Transactor executes an ordered operation sequence as one store-side
// transaction.
type Transactor interface {
	RunTransaction(ctx context.Context, ops []Operation, mode TxMode) *TransactionReport
}

// NoRowsAffected is the typed failure string recorded when an Update or
// Remove matched zero rows. It is a logical failure, not a database error.
const NoRowsAffected = "no rows affected"

// Operation result statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// OpType enumerates the operation kinds a transaction may carry.
type OpType int

const (
	OpInsert OpType = iota
	OpUpdate
	OpRemove
	OpGet
)

// String returns the wire name of the operation ("delete" for OpRemove,
// matching the external bulk contract).
func (t OpType) String() string {
	switch t {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "delete"
	case OpGet:
		return "get"
	default:
		return fmt.Sprintf("optype(%d)", int(t))
	}
}

// ParseOpType maps a wire operation name to its OpType.
func ParseOpType(s string) (OpType, error) {
	switch strings.ToLower(s) {
	case "insert":
		return OpInsert, nil
	case "update":
		return OpUpdate, nil
	case "delete", "remove":
		return OpRemove, nil
	case "get":
		return OpGet, nil
	default:
		return OpInsert, fmt.Errorf("unknown operation %q", s)
	}
}

// Operation is one immutable unit of work in a transaction. Value is
// ignored for OpRemove and OpGet.
type Operation struct {
	Type  OpType
	Key   int
	Value string
}

// OperationResult records the outcome of a single operation.
type OperationResult struct {
	Op     string `json:"op"`
	Key    int    `json:"key"`
	Status string `json:"status"`
	Value  string `json:"value,omitempty"`
	Err    string `json:"error,omitempty"`
}

// TransactionReport is created fresh per transaction call and never
// mutated after return. In rollback mode Results holds only the
// operations processed up to and including the failing one; in silent
// mode it holds one entry per requested operation.
type TransactionReport struct {
	Mode    string            `json:"mode"`
	Success bool              `json:"success"`
	Results []OperationResult `json:"results"`
}

// TxMode selects the failure-handling mode of a transaction.
type TxMode int

const (
	// RollbackOnError aborts the whole transaction at the first failing
	// operation.
	RollbackOnError TxMode = iota
	// Silent wraps each operation in its own savepoint; a failing
	// operation is undone individually while the outer transaction still
	// commits.
	Silent
)

// String returns the report mode name.
func (m TxMode) String() string {
	if m == Silent {
		return "silent"
	}
	return "rollback"
}
