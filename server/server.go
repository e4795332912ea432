// server.go: HTTP surface of the Hermes write-through KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

// Package server exposes the orchestration layer over HTTP. It is a thin
// consumer of the core operations: routing and JSON marshaling live here,
// all cache/store semantics live in the service package.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agilira/hermes/service"
	"github.com/agilira/hermes/store"
)

// Config configures the listen address.
type Config struct {
	Host string
	Port int
}

// Server wires the HTTP routes to a Service. The pool is optional and
// only feeds the /stats endpoint; a cache-only deployment passes nil.
type Server struct {
	svc  *service.Service
	pool *store.Pool

	httpSrv  *http.Server
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds a Server with all routes registered.
func New(cfg Config, svc *service.Service, pool *store.Pool) *Server {
	s := &Server{
		svc:    svc,
		pool:   pool,
		stopCh: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/get_key", s.handleGetKey)
	mux.HandleFunc("/insert", s.handleInsert)
	mux.HandleFunc("/update_key", s.handleUpdateKey)
	mux.HandleFunc("/delete_key", s.handleDeleteKey)
	mux.HandleFunc("/bulk_query", s.handleBulkQuery)
	mux.HandleFunc("/bulk_update", s.handleBulkUpdate)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/stop", s.handleStop)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: withLogging(mux),
	}
	return s
}

// Handler returns the root handler, exported for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// StopRequested is closed once a /stop request has been accepted.
func (s *Server) StopRequested() <-chan struct{} { return s.stopCh }

// requestStop signals lifecycle owners to shut the process down. Safe to
// call from a handler, any number of times.
func (s *Server) requestStop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
