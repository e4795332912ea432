// pool.go: Bounded connection pool for the Hermes persistence layer
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultPoolSize is the connection count opened when PoolConfig leaves
// Size unset.
const DefaultPoolSize = 8

// PoolConfig configures pool construction.
type PoolConfig struct {
	Dialect Dialect
	DSN     string
	Size    int
	// InitSchema creates the kv_store table at startup. Intended for the
	// embedded sqlite driver; production postgres schemas are managed
	// externally.
	InitSchema bool
}

// PooledConn is a live connection with the fixed statement set already
// prepared on it. A PooledConn is exclusively owned by the goroutine that
// acquired it until released; it is never shared.
type PooledConn struct {
	conn       *sql.Conn
	insertStmt *sql.Stmt
	updateStmt *sql.Stmt
	deleteStmt *sql.Stmt
	selectStmt *sql.Stmt
}

func (c *PooledConn) close() {
	for _, s := range []*sql.Stmt{c.insertStmt, c.updateStmt, c.deleteStmt, c.selectStmt} {
		if s != nil {
			_ = s.Close()
		}
	}
	_ = c.conn.Close()
}

// Metrics is the read-only pool state exposed to telemetry.
type Metrics struct {
	PoolSize                int   `json:"pool_size"`
	FreeConns               int   `json:"free_conns"`
	DroppedConns            int64 `json:"dropped_conns"`
	TotalConnCreates        int64 `json:"total_conn_creates"`
	TotalConnCreateFailures int64 `json:"total_conn_create_failures"`
}

// Pool holds the fixed set of store connections. Connections are created
// at startup only; a connection whose statement preparation fails is
// dropped (counted, not fatal) and the pool proceeds with fewer.
type Pool struct {
	db   *sql.DB
	size int
	free chan *PooledConn

	dropped        atomic.Int64
	created        atomic.Int64
	createFailures atomic.Int64
}

// NewPool opens the database and populates the pool. An unreachable store
// is a hard error: the caller is expected to abort startup on it.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	if cfg.Size <= 0 {
		cfg.Size = DefaultPoolSize
	}

	db, err := sql.Open(cfg.Dialect.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s store", cfg.Dialect.Driver)
	}
	// The pool owns connection lifecycle; database/sql must not recycle
	// or cap below the configured size.
	db.SetMaxOpenConns(cfg.Size)
	db.SetMaxIdleConns(cfg.Size)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "connecting to %s store", cfg.Dialect.Driver)
	}
	if cfg.InitSchema && cfg.Dialect.Schema != "" {
		if _, err := db.ExecContext(ctx, cfg.Dialect.Schema); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "initializing store schema")
		}
	}

	p := &Pool{
		db:   db,
		size: cfg.Size,
		free: make(chan *PooledConn, cfg.Size),
	}
	for i := 0; i < cfg.Size; i++ {
		pc, err := p.newConn(ctx, cfg.Dialect)
		if err != nil {
			log.WithFields(log.Fields{"conn": i, "err": err}).
				Warn("dropping pool connection")
			continue
		}
		p.created.Add(1)
		connCreatesTotal.Inc()
		p.free <- pc
	}
	return p, nil
}

// newConn opens one connection and prepares the statement set on it.
func (p *Pool) newConn(ctx context.Context, d Dialect) (*PooledConn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.createFailures.Add(1)
		connCreateFailuresTotal.Inc()
		return nil, errors.Wrap(err, "opening connection")
	}

	pc := &PooledConn{conn: conn}
	for _, stmt := range []struct {
		name string
		sql  string
		dst  **sql.Stmt
	}{
		{"kv_insert", d.InsertSQL, &pc.insertStmt},
		{"kv_update", d.UpdateSQL, &pc.updateStmt},
		{"kv_delete", d.DeleteSQL, &pc.deleteStmt},
		{"kv_select", d.SelectSQL, &pc.selectStmt},
	} {
		if *stmt.dst, err = conn.PrepareContext(ctx, stmt.sql); err != nil {
			pc.close()
			p.dropped.Add(1)
			connsDroppedTotal.Inc()
			return nil, errors.Wrapf(err, "preparing %s", stmt.name)
		}
	}
	return pc, nil
}

// Acquire blocks until a free connection exists or ctx is done. With a
// background context the wait is unbounded, matching the original
// blocking-acquire contract.
func (p *Pool) Acquire(ctx context.Context) (*PooledConn, error) {
	select {
	case pc := <-p.free:
		acquiresTotal.Inc()
		return pc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a connection to the free set, waking one waiter.
func (p *Pool) Release(pc *PooledConn) {
	p.free <- pc
}

// Metrics returns a snapshot of the pool state.
func (p *Pool) Metrics() Metrics {
	return Metrics{
		PoolSize:                p.size,
		FreeConns:               len(p.free),
		DroppedConns:            p.dropped.Load(),
		TotalConnCreates:        p.created.Load(),
		TotalConnCreateFailures: p.createFailures.Load(),
	}
}

// Close drains the free set, closes every connection, and closes the
// underlying database. Connections still held by callers are not waited
// for; Close is intended for process shutdown.
func (p *Pool) Close() error {
	for {
		select {
		case pc := <-p.free:
			pc.close()
		default:
			return p.db.Close()
		}
	}
}
