// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package analytics ingests visitor tracking events and computes the
// dashboard and per-post statistics views from them.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/util"
)

// DefaultSessionID is stored when the client sends no session id.
const DefaultSessionID = "anonymous"

// MaxSessionIDLength bounds stored session ids; longer ones are truncated.
const MaxSessionIDLength = 100

// maxTrackBody bounds the size of a tracking request body.
const maxTrackBody = 64 << 10

var (
	// ErrInvalidEventType is returned for a missing, blank or oversized
	// event type.
	ErrInvalidEventType = errors.New("eventType is required and must be at most 50 characters")

	// ErrMalformedBody is returned when the tracking body is not a JSON object.
	ErrMalformedBody = errors.New("request body must be a JSON object")
)

// timeNow is a package variable so tests can pin the clock.
var timeNow = time.Now

// TrackInput is one tracking call from the public site.
type TrackInput struct {
	EventType      string
	PostID         *int64
	SessionID      string
	AdditionalData json.RawMessage
}

// trackBody mirrors the wire shape before the lenient conversions.
type trackBody struct {
	EventType      json.RawMessage `json:"eventType"`
	PostID         json.RawMessage `json:"postId"`
	SessionID      json.RawMessage `json:"sessionId"`
	AdditionalData json.RawMessage `json:"additionalData"`
}

// DecodeTrackInput reads a tracking body. Only a body that is not a JSON
// object is rejected; ill-typed fields fall back to their defaults so that
// anonymous clients cannot make ingestion fail. Event type validation is
// left to Track.
func DecodeTrackInput(r io.Reader) (TrackInput, error) {
	var body trackBody
	if err := json.NewDecoder(io.LimitReader(r, maxTrackBody)).Decode(&body); err != nil {
		return TrackInput{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	var in TrackInput
	_ = json.Unmarshal(body.EventType, &in.EventType)
	in.PostID = decodePostID(body.PostID)
	_ = json.Unmarshal(body.SessionID, &in.SessionID)
	if isJSONObject(body.AdditionalData) {
		in.AdditionalData = body.AdditionalData
	}
	return in, nil
}

// decodePostID accepts a JSON integer or a string holding one.
func decodePostID(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{' && json.Valid(raw)
}

// EventWriter is the store dependency of Tracker.
type EventWriter interface {
	CreateEvent(ctx context.Context, arg store.CreateEventParams) (store.AnalyticsEvent, error)
}

// Tracker stores tracking events.
type Tracker struct {
	store   EventWriter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewTracker creates a Tracker. m may be nil.
func NewTracker(w EventWriter, logger *slog.Logger, m *metrics.Metrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: w, logger: logger, metrics: m}
}

// Track validates in and writes exactly one event row. The post id is not
// checked against the posts table and no counters are touched.
func (t *Tracker) Track(ctx context.Context, in TrackInput, req model.RequestInfo) (store.AnalyticsEvent, error) {
	eventType := strings.TrimSpace(in.EventType)
	if eventType == "" || utf8.RuneCountInString(eventType) > model.MaxEventTypeLength {
		return store.AnalyticsEvent{}, ErrInvalidEventType
	}

	session := strings.TrimSpace(in.SessionID)
	if session == "" {
		session = DefaultSessionID
	}
	session = truncateRunes(session, MaxSessionIDLength)

	data := "{}"
	if isJSONObject(in.AdditionalData) {
		data = string(bytes.TrimSpace(in.AdditionalData))
	}

	params := store.CreateEventParams{
		EventType:      eventType,
		PostID:         util.NullInt64FromPtr(in.PostID),
		SessionID:      util.NullStringFromValue(session),
		UserAgent:      util.NullStringFromValue(req.UserAgent),
		IpAddress:      util.NullStringFromValue(req.IPAddress),
		Timestamp:      store.FormatTime(timeNow()),
		AdditionalData: data,
	}

	ev, err := t.store.CreateEvent(ctx, params)
	if err != nil {
		t.metrics.IngestFailed()
		return store.AnalyticsEvent{}, fmt.Errorf("storing %s event: %w", eventType, err)
	}

	t.metrics.EventIngested(model.EventType(eventType))
	t.logger.Debug("event tracked", "event_type", eventType, "event_id", ev.ID)
	return ev, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
