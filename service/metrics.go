// metrics.go: Prometheus collectors for the Hermes orchestration layer
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package service

import "github.com/prometheus/client_golang/prometheus"

// compensationFailuresTotal counts compensating actions that themselves
// failed while unwinding an emulated bulk transaction. Non-zero values
// mean cache/store state may have diverged and warrants inspection.
var compensationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "hermes_service_compensation_failures_total",
	Help: "Cumulative number of failed compensating actions during emulated bulk rollback.",
})

func init() {
	prometheus.MustRegister(compensationFailuresTotal)
}
