// metrics.go: Prometheus collectors for the Hermes persistence layer
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package store

import "github.com/prometheus/client_golang/prometheus"

// Collectors for connection pool lifecycle events.
var (
	connCreatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hermes_store_conn_creates_total",
		Help: "Cumulative number of pool connections successfully created.",
	})
	connCreateFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hermes_store_conn_create_failures_total",
		Help: "Cumulative number of pool connections that failed to open.",
	})
	connsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hermes_store_conns_dropped_total",
		Help: "Cumulative number of pool connections dropped after statement preparation failed.",
	})
	acquiresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hermes_store_acquires_total",
		Help: "Cumulative number of pool connection acquisitions.",
	})
)

func init() {
	prometheus.MustRegister(
		connCreatesTotal,
		connCreateFailuresTotal,
		connsDroppedTotal,
		acquiresTotal,
	)
}
