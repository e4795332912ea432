// middleware.go: Request logging for the Hermes HTTP layer
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs each request and its response with a per-request ID.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		start := time.Now()

		log.WithFields(log.Fields{
			"request_id": reqID,
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Debug("request received")

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"request_id": reqID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"elapsed":    time.Since(start),
		}).Info("request served")
	})
}
