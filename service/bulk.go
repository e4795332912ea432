// bulk.go: Bulk transactional pipeline for the Hermes KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/agilira/hermes/store"
)

// Bulk transaction modes as reported on the wire.
const (
	ModeRollback = "rollback"
	ModeEmulated = "emulated"
)

// BulkSummary aggregates a bulk run. Aborted counts operations never
// attempted because an earlier one failed.
type BulkSummary struct {
	Requested int `json:"requested"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Aborted   int `json:"aborted"`
}

// BulkReport is the orchestrator-level outcome of a bulk transactional
// pipeline run.
type BulkReport struct {
	Success         bool                    `json:"success"`
	TransactionMode string                  `json:"transaction_mode"`
	Results         []store.OperationResult `json:"results"`
	Summary         BulkSummary             `json:"summary"`
}

// Bulk runs an ordered, heterogeneous operation list against the store
// with rollback-on-error semantics, then replays the confirmed operations
// into the cache. The cache is never updated ahead of store confirmation.
//
// Providers with native transaction support get the whole list in one
// engine call; others take the emulated path, which records an inverse
// compensation per completed operation and unwinds them in reverse order
// on the first failure.
func (s *Service) Bulk(ctx context.Context, ops []store.Operation) *BulkReport {
	if s.provider == nil {
		log.Warn("bulk transaction rejected: no persistence configured")
		return &BulkReport{
			TransactionMode: ModeEmulated,
			Results:         []store.OperationResult{},
			Summary:         BulkSummary{Requested: len(ops), Aborted: len(ops)},
		}
	}

	var report *BulkReport
	if t, ok := nativeTransactor(s.provider); ok {
		tr := t.RunTransaction(ctx, ops, store.RollbackOnError)
		report = &BulkReport{
			Success:         tr.Success,
			TransactionMode: ModeRollback,
			Results:         tr.Results,
		}
	} else {
		report = s.emulatedBulk(ctx, ops)
	}

	report.Summary = summarize(len(ops), report.Results)
	if report.Success {
		s.replayIntoCache(ops, report.Results)
	}
	return report
}

// nativeTransactor returns the provider as a Transactor when it declares
// native transaction support and actually implements the interface.
func nativeTransactor(p store.Provider) (store.Transactor, bool) {
	if !p.SupportsNativeTransactions() {
		return nil, false
	}
	t, ok := p.(store.Transactor)
	return t, ok
}

// emulatedBulk executes operations one at a time, recording the inverse
// of each completed mutation. On the first failure the recorded
// compensations run in reverse order before the failure is reported.
func (s *Service) emulatedBulk(ctx context.Context, ops []store.Operation) *BulkReport {
	report := &BulkReport{
		TransactionMode: ModeEmulated,
		Results:         make([]store.OperationResult, 0, len(ops)),
	}

	var compensations []store.Operation
	for _, op := range ops {
		res := store.OperationResult{Op: op.Type.String(), Key: op.Key, Status: store.StatusOK}

		switch op.Type {
		case store.OpGet:
			if v, ok := s.provider.Get(ctx, op.Key); ok {
				res.Value = v
			} else {
				// Gets are never abort triggers.
				res.Status, res.Err = store.StatusFailed, "not found"
			}
			report.Results = append(report.Results, res)
			continue

		case store.OpInsert:
			prev, had := s.provider.Get(ctx, op.Key)
			if !s.provider.Insert(ctx, op.Key, op.Value) {
				res.Status, res.Err = store.StatusFailed, "insert failed"
			} else if had {
				compensations = append(compensations, store.Operation{Type: store.OpInsert, Key: op.Key, Value: prev})
			} else {
				compensations = append(compensations, store.Operation{Type: store.OpRemove, Key: op.Key})
			}

		case store.OpUpdate:
			prev, _ := s.provider.Get(ctx, op.Key)
			if !s.provider.Update(ctx, op.Key, op.Value) {
				res.Status, res.Err = store.StatusFailed, store.NoRowsAffected
			} else {
				compensations = append(compensations, store.Operation{Type: store.OpInsert, Key: op.Key, Value: prev})
			}

		case store.OpRemove:
			prev, _ := s.provider.Get(ctx, op.Key)
			if !s.provider.Remove(ctx, op.Key) {
				res.Status, res.Err = store.StatusFailed, store.NoRowsAffected
			} else {
				compensations = append(compensations, store.Operation{Type: store.OpInsert, Key: op.Key, Value: prev})
			}
		}

		report.Results = append(report.Results, res)
		if res.Status == store.StatusFailed {
			s.unwind(ctx, compensations)
			return report
		}
	}
	report.Success = true
	return report
}

// unwind applies recorded compensations in reverse order. A compensation
// that itself fails is logged and counted; the original failure is still
// what the caller sees.
func (s *Service) unwind(ctx context.Context, compensations []store.Operation) {
	for i := len(compensations) - 1; i >= 0; i-- {
		comp := compensations[i]
		var ok bool
		switch comp.Type {
		case store.OpInsert:
			ok = s.provider.Insert(ctx, comp.Key, comp.Value)
		case store.OpRemove:
			ok = s.provider.Remove(ctx, comp.Key)
		}
		if !ok {
			compensationFailuresTotal.Inc()
			log.WithFields(log.Fields{"op": comp.Type.String(), "key": comp.Key}).
				Error("bulk compensation failed; store may be inconsistent")
		}
	}
}

// replayIntoCache applies confirmed operations to the cache: upsert for
// insert/update, erase for delete, re-hydrate for successful gets.
func (s *Service) replayIntoCache(ops []store.Operation, results []store.OperationResult) {
	for i, op := range ops {
		switch op.Type {
		case store.OpInsert, store.OpUpdate:
			s.cache.UpdateOrInsert(op.Key, op.Value)
		case store.OpRemove:
			s.cache.Erase(op.Key)
		case store.OpGet:
			if i < len(results) && results[i].Status == store.StatusOK {
				s.cache.UpdateOrInsert(op.Key, results[i].Value)
			}
		}
	}
}

func summarize(requested int, results []store.OperationResult) BulkSummary {
	sum := BulkSummary{Requested: requested, Processed: len(results)}
	for _, r := range results {
		if r.Status == store.StatusOK {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}
	sum.Aborted = sum.Requested - sum.Processed
	return sum
}
