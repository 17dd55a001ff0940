// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/oblog/internal/store"
)

// Listing limits.
const (
	DefaultLimit = 50
	MaxLimit     = 10000
	// ExportLimit caps the rows of a CSV export.
	ExportLimit = MaxLimit
)

// Reader is the store dependency of Reporter.
type Reader interface {
	ListActivityLogs(ctx context.Context, f store.Filter, limit, offset int) ([]store.ActivityLog, error)
	CountActivityLogs(ctx context.Context, f store.Filter) (int64, error)
	CountActivityLogsByAction(ctx context.Context) ([]store.GroupCount, error)
	CountActivityLogsByEntityType(ctx context.Context) ([]store.GroupCount, error)
}

// Reporter serves read-only views of the audit trail.
type Reporter struct {
	store Reader
}

// NewReporter creates a Reporter.
func NewReporter(r Reader) *Reporter {
	return &Reporter{store: r}
}

// ListParams selects a page of audit entries. Empty filters are ignored.
type ListParams struct {
	Page       int
	Limit      int
	Action     string
	EntityType string
	UserEmail  string
}

// ParseListParams reads page, limit, action, entity_type and user_email
// from a query string. Non-numeric or non-positive paging values fall back
// to page 1 and DefaultLimit; limits above MaxLimit are clamped, and so are
// pages whose offset would not fit in an int.
func ParseListParams(q url.Values) ListParams {
	p := ListParams{
		Page:       positiveInt(q.Get("page"), 1),
		Limit:      positiveInt(q.Get("limit"), DefaultLimit),
		Action:     strings.TrimSpace(q.Get("action")),
		EntityType: strings.TrimSpace(q.Get("entity_type")),
		UserEmail:  strings.TrimSpace(q.Get("user_email")),
	}
	return p.normalized()
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	// keeps (Page-1)*Limit within int
	if maxPage := math.MaxInt / p.Limit; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.Limit
}

func (p ListParams) filter() store.Filter {
	var f store.Filter
	if p.Action != "" {
		f = f.Eq(store.ColAction, p.Action)
	}
	if p.EntityType != "" {
		f = f.Eq(store.ColEntityType, p.EntityType)
	}
	if p.UserEmail != "" {
		f = f.ContainsFold(store.ColUserEmail, p.UserEmail)
	}
	return f
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// LogEntry is the API shape of one audit row.
type LogEntry struct {
	ID         int64           `json:"id"`
	UserID     *int64          `json:"user_id"`
	UserEmail  *string         `json:"user_email"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   *int64          `json:"entity_id"`
	Details    json.RawMessage `json:"details"`
	IPAddress  *string         `json:"ip_address"`
	UserAgent  *string         `json:"user_agent"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalLogs   int64 `json:"totalLogs"`
	Limit       int   `json:"limit"`
}

// ListResult is one page of audit entries.
type ListResult struct {
	Logs       []LogEntry `json:"logs"`
	Pagination Pagination `json:"pagination"`
}

// List returns one page of entries matching p, newest first.
func (r *Reporter) List(ctx context.Context, p ListParams) (ListResult, error) {
	p = p.normalized()
	f := p.filter()

	rows, err := r.store.ListActivityLogs(ctx, f, p.Limit, p.offset())
	if err != nil {
		return ListResult{}, fmt.Errorf("listing activity logs: %w", err)
	}
	total, err := r.store.CountActivityLogs(ctx, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("counting activity logs: %w", err)
	}

	return ListResult{
		Logs: toEntries(rows),
		Pagination: Pagination{
			CurrentPage: p.Page,
			TotalPages:  int((total + int64(p.Limit) - 1) / int64(p.Limit)),
			TotalLogs:   total,
			Limit:       p.Limit,
		},
	}, nil
}

// Export returns up to ExportLimit entries matching p's filters, newest
// first. Paging fields of p are ignored.
func (r *Reporter) Export(ctx context.Context, p ListParams) ([]LogEntry, error) {
	rows, err := r.store.ListActivityLogs(ctx, p.filter(), ExportLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("exporting activity logs: %w", err)
	}
	return toEntries(rows), nil
}

// ActionCount is the number of entries for one action.
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// EntityCount is the number of entries for one entity type.
type EntityCount struct {
	EntityType string `json:"entity_type"`
	Count      int64  `json:"count"`
}

// Stats summarises the whole audit trail.
type Stats struct {
	TotalLogs   int64         `json:"totalLogs"`
	ActionStats []ActionCount `json:"actionStats"`
	EntityStats []EntityCount `json:"entityStats"`
	Last24Hours int64         `json:"last24Hours"`
}

// Stats counts entries overall, per action, per entity type and over the
// last 24 hours.
func (r *Reporter) Stats(ctx context.Context) (Stats, error) {
	total, err := r.store.CountActivityLogs(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("counting activity logs: %w", err)
	}

	byAction, err := r.store.CountActivityLogsByAction(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting by action: %w", err)
	}

	byEntity, err := r.store.CountActivityLogsByEntityType(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting by entity type: %w", err)
	}

	since := store.FormatTime(timeNow().Add(-24 * time.Hour))
	recent, err := r.store.CountActivityLogs(ctx, store.Filter{}.GTE(store.ColTimestamp, since))
	if err != nil {
		return Stats{}, fmt.Errorf("counting recent activity logs: %w", err)
	}

	stats := Stats{
		TotalLogs:   total,
		ActionStats: make([]ActionCount, 0, len(byAction)),
		EntityStats: make([]EntityCount, 0, len(byEntity)),
		Last24Hours: recent,
	}
	for _, g := range byAction {
		stats.ActionStats = append(stats.ActionStats, ActionCount{Action: g.Key, Count: g.Count})
	}
	for _, g := range byEntity {
		stats.EntityStats = append(stats.EntityStats, EntityCount{EntityType: g.Key, Count: g.Count})
	}
	return stats, nil
}

func toEntries(rows []store.ActivityLog) []LogEntry {
	entries := make([]LogEntry, 0, len(rows))
	for _, row := range rows {
		e := LogEntry{
			ID:         row.ID,
			Action:     row.Action,
			EntityType: row.EntityType,
			Details:    rawDetails(row.Details),
			Timestamp:  row.Timestamp.UTC(),
		}
		if row.UserID.Valid {
			e.UserID = &row.UserID.Int64
		}
		if row.UserEmail.Valid {
			e.UserEmail = &row.UserEmail.String
		}
		if row.EntityID.Valid {
			e.EntityID = &row.EntityID.Int64
		}
		if row.IpAddress.Valid {
			e.IPAddress = &row.IpAddress.String
		}
		if row.UserAgent.Valid {
			e.UserAgent = &row.UserAgent.String
		}
		entries = append(entries, e)
	}
	return entries
}

// rawDetails passes stored JSON through, quoting anything that is not.
func rawDetails(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	b, _ := json.Marshal(s)
	return b
}
