// async.go: Asynchronous entry points for the Hermes KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package service

import (
	"context"

	"github.com/agilira/hermes/store"
	"github.com/agilira/hermes/worker"
)

// AsyncRead is the resolved value of a GetAsync future. A future resolved
// to its zero value (suppressed worker failure, closed pool) reads as a
// miss.
type AsyncRead struct {
	Key       int
	Value     string
	Found     bool
	FromStore bool
}

// GetAsync offloads a Read to the worker pool and returns its future
// immediately. This, with BulkAsync, is the system's only asynchronous
// boundary; everything else may block the calling goroutine.
func (s *Service) GetAsync(ctx context.Context, key int) *worker.Future[AsyncRead] {
	return worker.Go(s.workers, func() AsyncRead {
		r, err := s.Read(ctx, key)
		if err != nil {
			return AsyncRead{Key: key}
		}
		return AsyncRead{Key: key, Value: r.Value, Found: true, FromStore: r.FromStore}
	})
}

// BulkAsync offloads a bulk transactional pipeline run to the worker
// pool. A suppressed worker failure resolves the future to nil.
func (s *Service) BulkAsync(ctx context.Context, ops []store.Operation) *worker.Future[*BulkReport] {
	return worker.Go(s.workers, func() *BulkReport {
		return s.Bulk(ctx, ops)
	})
}
