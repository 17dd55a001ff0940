// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package export renders already-computed report data as downloadable
// files. It never queries the store.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/oblog/internal/activity"
)

// ActivityCSVHeader is the column order of the audit log export.
var ActivityCSVHeader = []string{
	"Timestamp", "User Email", "Action", "Entity Type", "Entity ID", "Details", "IP Address", "User Agent",
}

// lineBreaks flattens embedded line breaks so every record stays on one
// physical line.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// WriteActivityCSV writes a header and one record per entry. Fields are
// quoted as RFC 4180 requires; a NULL entity id is an empty field.
func WriteActivityCSV(w io.Writer, entries []activity.LogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ActivityCSVHeader); err != nil {
		return err
	}

	for _, e := range entries {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			derefString(e.UserEmail),
			e.Action,
			e.EntityType,
			"",
			compactJSON(e.Details),
			derefString(e.IPAddress),
			derefString(e.UserAgent),
		}
		if e.EntityID != nil {
			record[4] = strconv.FormatInt(*e.EntityID, 10)
		}
		for i := range record {
			record[i] = lineBreaks.Replace(record[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ActivityCSVFilename names an export made on day.
func ActivityCSVFilename(day time.Time) string {
	return "activity-logs-" + day.UTC().Format("2006-01-02") + ".csv"
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
