// engine.go: Persistence transaction engine for the Hermes KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Engine executes single operations and ordered operation sequences
// against connections borrowed from a Pool. It implements Provider and
// Transactor. Expected failures surface as boolean results or report
// entries; database errors are logged, never panicked.
type Engine struct {
	pool *Pool
}

// NewEngine returns an Engine over pool.
func NewEngine(pool *Pool) *Engine {
	return &Engine{pool: pool}
}

// SupportsNativeTransactions reports that the engine runs multi-operation
// transactions natively.
func (e *Engine) SupportsNativeTransactions() bool { return true }

// Insert upserts key. Insert is idempotent, so zero rows affected is
// never a failure here.
func (e *Engine) Insert(ctx context.Context, key int, value string) bool {
	c, err := e.pool.Acquire(ctx)
	if err != nil {
		return false
	}
	defer e.pool.Release(c)

	if _, err := c.insertStmt.ExecContext(ctx, key, value); err != nil {
		log.WithFields(log.Fields{"key": key, "err": err}).Error("store insert failed")
		return false
	}
	return true
}

// Update overwrites an existing key; zero rows affected is a logical
// failure.
func (e *Engine) Update(ctx context.Context, key int, value string) bool {
	c, err := e.pool.Acquire(ctx)
	if err != nil {
		return false
	}
	defer e.pool.Release(c)

	res, err := c.updateStmt.ExecContext(ctx, key, value)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "err": err}).Error("store update failed")
		return false
	}
	return affectedRows(res) > 0
}

// Remove deletes key; zero rows affected is a logical failure.
func (e *Engine) Remove(ctx context.Context, key int) bool {
	c, err := e.pool.Acquire(ctx)
	if err != nil {
		return false
	}
	defer e.pool.Release(c)

	res, err := c.deleteStmt.ExecContext(ctx, key)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "err": err}).Error("store delete failed")
		return false
	}
	return affectedRows(res) > 0
}

// Get returns the value for key, treating anything but exactly one row as
// not found.
func (e *Engine) Get(ctx context.Context, key int) (string, bool) {
	c, err := e.pool.Acquire(ctx)
	if err != nil {
		return "", false
	}
	defer e.pool.Release(c)

	var value string
	switch err := c.selectStmt.QueryRowContext(ctx, key).Scan(&value); err {
	case nil:
		return value, true
	case sql.ErrNoRows:
		return "", false
	default:
		log.WithFields(log.Fields{"key": key, "err": err}).Error("store select failed")
		return "", false
	}
}

// RunTransaction executes ops in order inside one database transaction on
// a borrowed connection.
//
// RollbackOnError: the first failing operation aborts the whole
// transaction; Results stops at the failing entry and Success is false.
//
// Silent: every operation runs under its own savepoint; a failing
// operation is rolled back individually and the outer transaction still
// commits. Success reflects only whether BEGIN/COMMIT themselves worked.
//
// Gets read the transaction's in-progress state and never trigger a
// rollback in either mode. A transaction over zero operations trivially
// succeeds.
func (e *Engine) RunTransaction(ctx context.Context, ops []Operation, mode TxMode) *TransactionReport {
	report := &TransactionReport{
		Mode:    mode.String(),
		Results: make([]OperationResult, 0, len(ops)),
	}

	c, err := e.pool.Acquire(ctx)
	if err != nil {
		log.WithField("err", err).Error("transaction aborted acquiring connection")
		return report
	}
	defer e.pool.Release(c)

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		log.WithField("err", err).Error("transaction begin failed")
		return report
	}

	for i, op := range ops {
		sp := fmt.Sprintf("op_%d", i)
		if mode == Silent {
			if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
				log.WithFields(log.Fields{"savepoint": sp, "err": err}).Error("savepoint failed")
				_ = tx.Rollback()
				return report
			}
		}

		res := e.applyTxOp(ctx, tx, c, op)
		if res.Status == StatusFailed {
			// Gets are never rollback triggers.
			if mode == RollbackOnError && op.Type != OpGet {
				report.Results = append(report.Results, res)
				_ = tx.Rollback()
				return report
			}
			if mode == Silent {
				// Undo just this operation; the outer transaction proceeds.
				if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); err != nil {
					log.WithFields(log.Fields{"savepoint": sp, "err": err}).Error("savepoint rollback failed")
					_ = tx.Rollback()
					report.Results = append(report.Results, res)
					return report
				}
			}
		}
		if mode == Silent {
			if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
				log.WithFields(log.Fields{"savepoint": sp, "err": err}).Error("savepoint release failed")
			}
		}
		report.Results = append(report.Results, res)
	}

	if err := tx.Commit(); err != nil {
		log.WithField("err", err).Error("transaction commit failed")
		return report
	}
	report.Success = true
	return report
}

// applyTxOp executes one operation against the in-progress transaction,
// binding the connection's prepared statements to it.
func (e *Engine) applyTxOp(ctx context.Context, tx *sql.Tx, c *PooledConn, op Operation) OperationResult {
	res := OperationResult{Op: op.Type.String(), Key: op.Key, Status: StatusOK}

	switch op.Type {
	case OpInsert:
		if _, err := tx.StmtContext(ctx, c.insertStmt).ExecContext(ctx, op.Key, op.Value); err != nil {
			res.Status, res.Err = StatusFailed, err.Error()
		}
	case OpUpdate:
		r, err := tx.StmtContext(ctx, c.updateStmt).ExecContext(ctx, op.Key, op.Value)
		if err != nil {
			res.Status, res.Err = StatusFailed, err.Error()
		} else if affectedRows(r) == 0 {
			res.Status, res.Err = StatusFailed, NoRowsAffected
		}
	case OpRemove:
		r, err := tx.StmtContext(ctx, c.deleteStmt).ExecContext(ctx, op.Key)
		if err != nil {
			res.Status, res.Err = StatusFailed, err.Error()
		} else if affectedRows(r) == 0 {
			res.Status, res.Err = StatusFailed, NoRowsAffected
		}
	case OpGet:
		var value string
		switch err := tx.StmtContext(ctx, c.selectStmt).QueryRowContext(ctx, op.Key).Scan(&value); err {
		case nil:
			res.Value = value
		case sql.ErrNoRows:
			res.Status, res.Err = StatusFailed, "not found"
		default:
			res.Status, res.Err = StatusFailed, err.Error()
		}
	}
	return res
}

func affectedRows(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
