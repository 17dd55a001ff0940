// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package activity records the admin audit trail and serves it back as
// paginated listings, statistics and export rows.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/util"
)

// Unknown replaces request metadata the caller could not supply.
const Unknown = "unknown"

// Writer is the store dependency of Logger.
type Writer interface {
	CreateActivityLog(ctx context.Context, arg store.CreateActivityLogParams) (store.ActivityLog, error)
}

// timeNow is a package variable so tests can pin the clock.
var timeNow = time.Now

// Logger appends audit entries. It never reports failure to its caller.
type Logger struct {
	store   Writer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewLogger creates a Logger. m may be nil.
func NewLogger(w Writer, logger *slog.Logger, m *metrics.Metrics) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{store: w, logger: logger, metrics: m}
}

// Log writes one audit entry for m. Storage and encoding failures are
// logged and counted, then dropped.
func (l *Logger) Log(ctx context.Context, m model.Mutation) {
	if err := l.write(ctx, m); err != nil {
		l.metrics.AuditFailed()
		l.logger.Error("failed to write activity log",
			"error", err,
			"action", m.Action,
			"entity_type", m.EntityType,
			"entity_id", derefID(m.EntityID),
			"user_email", m.ActorEmail,
		)
	}
}

func (l *Logger) write(ctx context.Context, m model.Mutation) error {
	details := "{}"
	if m.Details != nil {
		b, err := json.Marshal(m.Details)
		if err != nil {
			l.logger.Warn("activity details not serializable, storing empty object",
				"error", err, "action", m.Action, "entity_type", m.EntityType)
		} else {
			details = string(b)
		}
	}

	ip := m.IPAddress
	if ip == "" {
		ip = Unknown
	}
	ua := m.UserAgent
	if ua == "" {
		ua = Unknown
	}

	// the triggering write already committed; a client disconnect must not drop the entry
	_, err := l.store.CreateActivityLog(context.WithoutCancel(ctx), store.CreateActivityLogParams{
		UserID:     util.NullInt64FromPtr(m.ActorID),
		UserEmail:  util.NullStringFromValue(m.ActorEmail),
		Action:     string(m.Action),
		EntityType: m.EntityType,
		EntityID:   util.NullInt64FromPtr(m.EntityID),
		Details:    details,
		IpAddress:  util.NullStringFromValue(ip),
		UserAgent:  util.NullStringFromValue(ua),
		Timestamp:  store.FormatTime(timeNow()),
	})
	return err
}

// Subscribe registers l as the handler of committed mutations.
func Subscribe(reg *hooks.Registry, l *Logger) {
	reg.RegisterFunc(hooks.MutationCommitted, "activity.log", func(ctx context.Context, data any) error {
		m, ok := data.(model.Mutation)
		if !ok {
			return fmt.Errorf("unexpected payload %T", data)
		}
		l.Log(ctx, m)
		return nil
	})
}

func derefID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
