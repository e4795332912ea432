// wire.go: HTTP request/response shapes for the Hermes KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"fmt"

	"github.com/agilira/hermes/store"
)

// kvRequest is the body of single-key mutations.
type kvRequest struct {
	Key   int    `json:"key"`
	Value string `json:"value"`
}

// kvResponse is the body of a successful single-key read. Source is set
// to "persistence" only when the value was hydrated from the store; a
// cache-served value omits it.
type kvResponse struct {
	Key    int    `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source,omitempty"`
}

// failureResponse carries the machine-readable reason of a failed
// operation: "not found", "conflict" or "persistence failure".
type failureResponse struct {
	Reason string `json:"reason"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// bulkQueryRequest asks for several keys at once.
type bulkQueryRequest struct {
	Keys []int `json:"keys"`
}

type bulkQueryResult struct {
	Key    int    `json:"key"`
	Value  string `json:"value,omitempty"`
	Found  bool   `json:"found"`
	Source string `json:"source,omitempty"`
}

type bulkQueryResponse struct {
	Results []bulkQueryResult `json:"results"`
}

// wireOperation is one entry of the bulk-transaction contract. Value is
// required for insert/update and ignored for delete/get.
type wireOperation struct {
	Operation string  `json:"operation"`
	Key       int     `json:"key"`
	Value     *string `json:"value,omitempty"`
}

type bulkUpdateRequest struct {
	Operations []wireOperation `json:"operations"`
}

// parseOperations validates and converts wire operations.
func parseOperations(wire []wireOperation) ([]store.Operation, error) {
	ops := make([]store.Operation, 0, len(wire))
	for i, w := range wire {
		t, err := store.ParseOpType(w.Operation)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		var value string
		switch t {
		case store.OpInsert, store.OpUpdate:
			if w.Value == nil {
				return nil, fmt.Errorf("operation %d: %s requires a value", i, w.Operation)
			}
			value = *w.Value
		}
		ops = append(ops, store.Operation{Type: t, Key: w.Key, Value: value})
	}
	return ops, nil
}
