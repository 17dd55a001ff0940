// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/oblog/internal/analytics"
	"github.com/olegiv/oblog/internal/export"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/util"
)

// AnalyticsHandler serves event ingestion and the analytics reports.
type AnalyticsHandler struct {
	tracker  *analytics.Tracker
	reporter *analytics.Reporter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewAnalyticsHandler creates an AnalyticsHandler. m may be nil.
func NewAnalyticsHandler(tracker *analytics.Tracker, reporter *analytics.Reporter, logger *slog.Logger, m *metrics.Metrics) *AnalyticsHandler {
	return &AnalyticsHandler{
		tracker:  tracker,
		reporter: reporter,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Track handles POST /api/analytics/track.
func (h *AnalyticsHandler) Track(w http.ResponseWriter, r *http.Request) {
	in, err := analytics.DecodeTrackInput(r.Body)
	if err != nil {
		writeBadRequest(w, "Request body must be a JSON object", nil)
		return
	}

	if _, err := h.tracker.Track(r.Context(), in, util.RequestInfo(r)); err != nil {
		if errors.Is(err, analytics.ErrInvalidEventType) {
			writeBadRequest(w, "Event type is required", map[string]string{
				"eventType": err.Error(),
			})
			return
		}
		logAndInternalError(w, h.logger, "failed to track event", err, "event_type", in.EventType)
		return
	}

	writeSuccess(w)
}

// Dashboard handles GET /api/analytics/dashboard?startDate&endDate.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := analytics.ParseDateRange(q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeBadRequest(w, err.Error(), nil)
		return
	}

	d, err := h.reporter.Dashboard(r.Context(), rng)
	if err != nil {
		logAndInternalError(w, h.logger, "failed to build dashboard", err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

// PostStats handles GET /api/analytics/post/{id}.
func (h *AnalyticsHandler) PostStats(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	stats, ok := h.postStats(w, r, id)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// PostReportPDF handles GET /api/analytics/post/{id}/report.pdf.
func (h *AnalyticsHandler) PostReportPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	stats, ok := h.postStats(w, r, id)
	if !ok {
		return
	}

	report := export.BuildPostReport(stats, h.now())

	// render fully before writing headers so a failure can still be a 500
	var buf bytes.Buffer
	pages, err := export.WritePostReportPDF(&buf, report)
	if err != nil {
		logAndInternalError(w, h.logger, "failed to render post report", err, "post_id", id)
		return
	}

	h.metrics.ReportGenerated(metrics.ReportPDF)
	h.logger.Info("post report generated", "post_id", id, "report_id", report.ID, "pages", pages)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", util.AttachmentDisposition(report.Filename()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *AnalyticsHandler) postStats(w http.ResponseWriter, r *http.Request, id int64) (analytics.PostStats, bool) {
	stats, err := h.reporter.PostStats(r.Context(), id)
	if err != nil {
		if errors.Is(err, analytics.ErrPostNotFound) {
			writeNotFound(w, "Post not found")
		} else {
			logAndInternalError(w, h.logger, "failed to build post stats", err, "post_id", id)
		}
		return analytics.PostStats{}, false
	}
	return stats, true
}
