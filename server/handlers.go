// handlers.go: HTTP handlers for the Hermes write-through KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/agilira/hermes"
	"github.com/agilira/hermes/service"
	"github.com/agilira/hermes/store"
	"github.com/agilira/hermes/worker"
)

const homePageHTML = `<!DOCTYPE html>
<html>
<head><title>hermes</title></head>
<body>
<h1>hermes key-value service</h1>
<p>Endpoints: /get_key, /insert, /update_key, /delete_key, /bulk_query, /bulk_update, /stats, /metrics, /stop</p>
</body>
</html>
`

// writeJSON encodes v into a pooled buffer, then writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// writeFailure maps a service error to its status code and reason body.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, failureResponse{Reason: "not found"})
	case errors.Is(err, service.ErrConflict):
		writeJSON(w, http.StatusConflict, failureResponse{Reason: "conflict"})
	case errors.Is(err, service.ErrPersistence):
		writeJSON(w, http.StatusBadGateway, failureResponse{Reason: "persistence failure"})
	default:
		writeJSON(w, http.StatusInternalServerError, failureResponse{Reason: err.Error()})
	}
}

// keyParam extracts the integer ?key= query parameter.
func keyParam(r *http.Request) (int, error) {
	return strconv.Atoi(r.URL.Query().Get("key"))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(homePageHTML))
}

func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failureResponse{Reason: "invalid key"})
		return
	}
	res, err := s.svc.Read(r.Context(), key)
	if err != nil {
		writeFailure(w, err)
		return
	}
	resp := kvResponse{Key: key, Value: res.Value}
	if res.FromStore {
		resp.Source = "persistence"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req kvRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failureResponse{Reason: "invalid body"})
		return
	}
	if err := s.svc.Insert(r.Context(), req.Key, req.Value); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusResponse{Status: "ok"})
}

func (s *Server) handleUpdateKey(w http.ResponseWriter, r *http.Request) {
	var req kvRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failureResponse{Reason: "invalid body"})
		return
	}
	if err := s.svc.Update(r.Context(), req.Key, req.Value); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		// Also accept a JSON body for parity with the other mutations.
		var req kvRequest
		if jsonErr := json.NewDecoder(r.Body).Decode(&req); jsonErr != nil {
			writeJSON(w, http.StatusBadRequest, failureResponse{Reason: "invalid key"})
			return
		}
		key = req.Key
	}
	if err := s.svc.Remove(r.Context(), key); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// handleBulkQuery fans the requested keys out over the worker pool and
// collects the futures in request order.
func (s *Server) handleBulkQuery(w http.ResponseWriter, r *http.Request) {
	var req bulkQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failureResponse{Reason: "invalid body"})
		return
	}

	futures := make([]*worker.Future[service.AsyncRead], len(req.Keys))
	for i, key := range req.Keys {
		futures[i] = s.svc.GetAsync(r.Context(), key)
	}

	resp := bulkQueryResponse{Results: make([]bulkQueryResult, len(futures))}
	for i, f := range futures {
		read := f.Wait()
		result := bulkQueryResult{Key: req.Keys[i], Found: read.Found}
		if read.Found {
			result.Value = read.Value
			if read.FromStore {
				result.Source = "persistence"
			}
		}
		resp.Results[i] = result
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failureResponse{Reason: "invalid body"})
		return
	}
	ops, err := parseOperations(req.Operations)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failureResponse{Reason: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Bulk(r.Context(), ops))
}

// statsResponse bundles the cache snapshot with pool state when a pool is
// configured.
type statsResponse struct {
	Cache hermes.Stats   `json:"cache"`
	Pool  *store.Metrics `json:"pool,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Cache: s.svc.CacheStats()}
	if s.pool != nil {
		m := s.pool.Metrics()
		resp.Pool = &m
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.requestStop()
	writeJSON(w, http.StatusOK, statusResponse{Status: "stopping"})
}
