// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics exposes Prometheus counters for ingestion, audit logging
// and report generation on a dedicated registry.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/oblog/internal/model"
)

const namespace = "oblog"

// Metrics groups every collector the application records. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	eventsIngested   *prometheus.CounterVec
	ingestFailures   prometheus.Counter
	auditFailures    prometheus.Counter
	reportsGenerated *prometheus.CounterVec
	logRecords       *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "events_ingested_total",
			Help:      "Tracking events stored, by event type. Unrecognised types are counted as other.",
		}, []string{"event_type"}),
		ingestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "ingest_failures_total",
			Help:      "Tracking events that could not be stored.",
		}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "log_failures_total",
			Help:      "Audit entries dropped because the write failed.",
		}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "generated_total",
			Help:      "Reports produced, by kind.",
		}, []string{"kind"}),
		logRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_records_total",
			Help:      "Log records at warning level or above, by level.",
		}, []string{"level"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.eventsIngested,
		m.ingestFailures,
		m.auditFailures,
		m.reportsGenerated,
		m.logRecords,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EventIngested counts one stored event. Unknown types share the "other"
// label so arbitrary client input cannot blow up label cardinality.
func (m *Metrics) EventIngested(t model.EventType) {
	if m == nil {
		return
	}
	label := string(t)
	if !t.Known() {
		label = "other"
	}
	m.eventsIngested.WithLabelValues(label).Inc()
}

// IngestFailed counts one event that could not be stored.
func (m *Metrics) IngestFailed() {
	if m == nil {
		return
	}
	m.ingestFailures.Inc()
}

// AuditFailed counts one dropped audit entry.
func (m *Metrics) AuditFailed() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// Report kinds.
const (
	ReportDashboard = "dashboard"
	ReportPostStats = "post_stats"
	ReportCSV       = "csv"
	ReportPDF       = "pdf"
)

// ReportGenerated counts one produced report of the given kind.
func (m *Metrics) ReportGenerated(kind string) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(kind).Inc()
}

// LogRecord counts one log record at level.
func (m *Metrics) LogRecord(level slog.Level) {
	if m == nil {
		return
	}
	m.logRecords.WithLabelValues(level.String()).Inc()
}
