// dialect.go: SQL dialects for the Hermes persistence layer
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"fmt"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite driver for embedded/local mode
)

// Dialect carries the driver name and the fixed statement set every
// pooled connection prepares: upsert-insert, update, delete and
// select-by-key over the kv_store table.
type Dialect struct {
	Driver    string
	InsertSQL string
	UpdateSQL string
	DeleteSQL string
	SelectSQL string
	Schema    string
}

// Postgres returns the dialect for a PostgreSQL backend.
func Postgres() Dialect {
	return Dialect{
		Driver: "postgres",
		InsertSQL: "INSERT INTO kv_store (key, value) VALUES ($1, $2) " +
			"ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value",
		UpdateSQL: "UPDATE kv_store SET value = $2 WHERE key = $1",
		DeleteSQL: "DELETE FROM kv_store WHERE key = $1",
		SelectSQL: "SELECT value FROM kv_store WHERE key = $1",
		Schema:    "CREATE TABLE IF NOT EXISTS kv_store (key INTEGER PRIMARY KEY, value TEXT NOT NULL)",
	}
}

// SQLite returns the dialect for an embedded SQLite backend. Used for
// local single-node deployments and by the engine tests.
func SQLite() Dialect {
	return Dialect{
		Driver: "sqlite3",
		InsertSQL: "INSERT INTO kv_store (key, value) VALUES (?1, ?2) " +
			"ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		UpdateSQL: "UPDATE kv_store SET value = ?2 WHERE key = ?1",
		DeleteSQL: "DELETE FROM kv_store WHERE key = ?1",
		SelectSQL: "SELECT value FROM kv_store WHERE key = ?1",
		Schema:    "CREATE TABLE IF NOT EXISTS kv_store (key INTEGER PRIMARY KEY, value TEXT NOT NULL)",
	}
}

// DialectFor maps a driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return Postgres(), nil
	case "sqlite", "sqlite3":
		return SQLite(), nil
	default:
		return Dialect{}, fmt.Errorf("unknown store driver %q", driver)
	}
}
