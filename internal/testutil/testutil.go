// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for oblog.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/olegiv/oblog/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that discards everything.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// TestDB creates a temporary test database with all migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "oblog-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
}

// CreatePost inserts a published post. A non-empty youtubeURL makes it a
// video post.
func CreatePost(t *testing.T, db *sql.DB, title, slug, youtubeURL string) store.Post {
	t.Helper()

	now := store.FormatTime(time.Now())
	p, err := store.New(db).CreatePost(context.Background(), store.CreatePostParams{
		Title:      title,
		Slug:       slug,
		Content:    "# " + title + "\n\nSome **content** for " + title + ".",
		YoutubeUrl: sql.NullString{String: youtubeURL, Valid: youtubeURL != ""},
		Published:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return p
}

// CreateEvent inserts an analytics event at a fixed time.
func CreateEvent(t *testing.T, db *sql.DB, eventType string, postID int64, at time.Time, data string) store.AnalyticsEvent {
	t.Helper()

	if data == "" {
		data = "{}"
	}
	ev, err := store.New(db).CreateEvent(context.Background(), store.CreateEventParams{
		EventType:      eventType,
		PostID:         sql.NullInt64{Int64: postID, Valid: postID != 0},
		SessionID:      sql.NullString{String: "anonymous", Valid: true},
		UserAgent:      sql.NullString{String: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", Valid: true},
		IpAddress:      sql.NullString{String: "203.0.113.7", Valid: true},
		Timestamp:      store.FormatTime(at),
		AdditionalData: data,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return ev
}
