// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/oblog/internal/activity"
	"github.com/olegiv/oblog/internal/export"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/util"
)

// ActivityHandler serves the audit trail to admins.
type ActivityHandler struct {
	reporter *activity.Reporter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewActivityHandler creates an ActivityHandler. m may be nil.
func NewActivityHandler(reporter *activity.Reporter, logger *slog.Logger, m *metrics.Metrics) *ActivityHandler {
	return &ActivityHandler{
		reporter: reporter,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// List handles GET /api/admin/activity-logs.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.reporter.List(r.Context(), activity.ParseListParams(r.URL.Query()))
	if err != nil {
		logAndInternalError(w, h.logger, "failed to list activity logs", err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// Stats handles GET /api/admin/activity-stats.
func (h *ActivityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reporter.Stats(r.Context())
	if err != nil {
		logAndInternalError(w, h.logger, "failed to compute activity stats", err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// ExportCSV handles GET /api/admin/activity-logs/export.csv. It accepts the
// same filters as List.
func (h *ActivityHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	entries, err := h.reporter.Export(r.Context(), activity.ParseListParams(r.URL.Query()))
	if err != nil {
		logAndInternalError(w, h.logger, "failed to export activity logs", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteActivityCSV(&buf, entries); err != nil {
		logAndInternalError(w, h.logger, "failed to render activity CSV", err)
		return
	}

	h.metrics.ReportGenerated(metrics.ReportCSV)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", util.AttachmentDisposition(export.ActivityCSVFilename(h.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
