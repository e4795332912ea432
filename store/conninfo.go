// conninfo.go: Connection string resolution for the Hermes persistence layer
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"encoding/json"
	"os"

	log "github.com/sirupsen/logrus"
)

// ConninfoEnvVar overrides every other conninfo source when set.
const ConninfoEnvVar = "HERMES_CONNINFO"

// DefaultConninfo is used when no other source provides one.
const DefaultConninfo = "dbname=kvstore"

// LoadConninfo resolves the store connection string, in order: the
// HERMES_CONNINFO environment variable, a JSON file at path with a
// {"conninfo": "..."} key, then fallback.
func LoadConninfo(path, fallback string) string {
	if v := os.Getenv(ConninfoEnvVar); v != "" {
		return v
	}

	if raw, err := os.ReadFile(path); err == nil {
		var doc struct {
			Conninfo string `json:"conninfo"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.WithFields(log.Fields{"path": path, "err": err}).
				Warn("ignoring unparsable conninfo file")
		} else if doc.Conninfo != "" {
			return doc.Conninfo
		}
	}
	return fallback
}
