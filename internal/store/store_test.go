// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "oblog-test.db")

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}

	return db, cleanup
}

func mustEvent(t *testing.T, q *Queries, eventType string, postID int64, at time.Time, data string) AnalyticsEvent {
	t.Helper()
	if data == "" {
		data = "{}"
	}
	ev, err := q.CreateEvent(context.Background(), CreateEventParams{
		EventType:      eventType,
		PostID:         sql.NullInt64{Int64: postID, Valid: postID != 0},
		SessionID:      sql.NullString{String: "anonymous", Valid: true},
		Timestamp:      FormatTime(at),
		AdditionalData: data,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return ev
}

func mustPost(t *testing.T, q *Queries, slug string, youtube string) Post {
	t.Helper()
	now := FormatTime(time.Now())
	p, err := q.CreatePost(context.Background(), CreatePostParams{
		Title:      "Post " + slug,
		Slug:       slug,
		Content:    "body",
		YoutubeUrl: sql.NullString{String: youtube, Valid: youtube != ""},
		Published:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return p
}

func TestCreateEvent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	// post 9999 does not exist: events keep weak references
	ev := mustEvent(t, q, "post_view", 9999, at, `{"k":1}`)

	if ev.ID == 0 {
		t.Error("ev.ID should not be 0")
	}
	if ev.EventType != "post_view" {
		t.Errorf("EventType = %q, want %q", ev.EventType, "post_view")
	}
	if !ev.PostID.Valid || ev.PostID.Int64 != 9999 {
		t.Errorf("PostID = %v, want 9999", ev.PostID)
	}
	if !ev.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, at)
	}
	if ev.AdditionalData != `{"k":1}` {
		t.Errorf("AdditionalData = %q", ev.AdditionalData)
	}
}

func TestCreateEvent_EmptyTypeRejected(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	_, err := New(db).CreateEvent(context.Background(), CreateEventParams{
		EventType:      "",
		Timestamp:      FormatTime(time.Now()),
		AdditionalData: "{}",
	})
	if err == nil {
		t.Fatal("expected CHECK constraint error for empty event_type")
	}
}

func TestDailyAndHourlyEventCounts(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	day1 := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 1, 12, 23, 30, 0, 0, time.UTC)
	mustEvent(t, q, "post_view", 1, day1, "")
	mustEvent(t, q, "post_view", 1, day1.Add(time.Minute), "")
	mustEvent(t, q, "post_view", 2, day3, "")
	mustEvent(t, q, "video_play", 1, day3, "")

	all, err := q.DailyEventCounts(ctx, "post_view", 0, TimeRange{})
	if err != nil {
		t.Fatalf("DailyEventCounts: %v", err)
	}
	want := []DateCount{{Date: "2026-01-10", Count: 2}, {Date: "2026-01-12", Count: 1}}
	if len(all) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(all), len(want), all)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, all[i], want[i])
		}
	}

	post1, err := q.DailyEventCounts(ctx, "post_view", 1, TimeRange{})
	if err != nil {
		t.Fatalf("DailyEventCounts(post 1): %v", err)
	}
	if len(post1) != 1 || post1[0].Count != 2 {
		t.Errorf("post 1 daily = %v", post1)
	}

	bounded, err := q.DailyEventCounts(ctx, "post_view", 0, TimeRange{
		Start: time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 12, 23, 59, 59, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("DailyEventCounts(bounded): %v", err)
	}
	if len(bounded) != 1 || bounded[0].Date != "2026-01-12" {
		t.Errorf("bounded daily = %v", bounded)
	}

	hours, err := q.HourlyEventCounts(ctx, 1, "post_view")
	if err != nil {
		t.Fatalf("HourlyEventCounts: %v", err)
	}
	if len(hours) != 1 || hours[0].Hour != 8 || hours[0].Count != 2 {
		t.Errorf("hours = %v", hours)
	}
}

func TestAverageTimeOnPage(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	avg, err := q.AverageTimeOnPage(ctx, TimeRange{})
	if err != nil {
		t.Fatalf("AverageTimeOnPage(empty): %v", err)
	}
	if avg != 0 {
		t.Errorf("avg on empty table = %v, want 0", avg)
	}

	now := time.Now()
	insert := func(session string, postID int64, data string) {
		t.Helper()
		_, err := q.CreateEvent(ctx, CreateEventParams{
			EventType:      "time_on_page",
			PostID:         sql.NullInt64{Int64: postID, Valid: postID != 0},
			SessionID:      sql.NullString{String: session, Valid: true},
			Timestamp:      FormatTime(now),
			AdditionalData: data,
		})
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	// session a / post 1 reports twice: the longest duration wins
	insert("a", 1, `{"timeSpent":10}`)
	insert("a", 1, `{"timeSpent":30}`)
	insert("b", 1, `{"timeSpent":15}`)
	insert("c", 0, `{"timeSpent":"oops"}`)
	insert("d", 2, `{}`)

	avg, err = q.AverageTimeOnPage(ctx, TimeRange{})
	if err != nil {
		t.Fatalf("AverageTimeOnPage: %v", err)
	}
	if avg != 22.5 {
		t.Errorf("avg = %v, want 22.5", avg)
	}
}

func TestMostWatchedIncludesZeroPlays(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	quiet := mustPost(t, q, "quiet", "https://youtu.be/a")
	loud := mustPost(t, q, "loud", "https://youtu.be/b")
	mustPost(t, q, "novideo", "")
	mustEvent(t, q, "video_play", loud.ID, time.Now(), "")
	mustEvent(t, q, "video_play", loud.ID, time.Now(), "")

	got, err := q.ListMostWatchedPosts(ctx, 10)
	if err != nil {
		t.Fatalf("ListMostWatchedPosts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%v)", len(got), got)
	}
	if got[0].ID != loud.ID || got[0].PlayCount != 2 {
		t.Errorf("first = %+v, want post %d with 2 plays", got[0], loud.ID)
	}
	if got[1].ID != quiet.ID || got[1].PlayCount != 0 {
		t.Errorf("second = %+v, want post %d with 0 plays", got[1], quiet.ID)
	}
}

func TestMostViewedTieBreakByID(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	a := mustPost(t, q, "a", "")
	b := mustPost(t, q, "b", "")
	c := mustPost(t, q, "c", "")
	for _, id := range []int64{c.ID, c.ID, b.ID, a.ID} {
		if err := q.IncrementPostViews(ctx, id); err != nil {
			t.Fatalf("IncrementPostViews: %v", err)
		}
	}

	got, err := q.ListMostViewedPosts(ctx, 10)
	if err != nil {
		t.Fatalf("ListMostViewedPosts: %v", err)
	}
	wantOrder := []int64{c.ID, a.ID, b.ID}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d = post %d, want %d", i, got[i].ID, id)
		}
	}
}

func TestListActivityLogs_FilterAndOrder(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	entries := []struct {
		email, action, entity string
	}{
		{"Alice@Example.com", "CREATE", "post"},
		{"bob@example.com", "DELETE", "comment"},
		{"alice@example.com", "UPDATE", "post"},
		{"carol_x@example.com", "LOGIN", "user"},
	}
	for i, e := range entries {
		_, err := q.CreateActivityLog(ctx, CreateActivityLogParams{
			UserEmail:  sql.NullString{String: e.email, Valid: true},
			Action:     e.action,
			EntityType: e.entity,
			Details:    "{}",
			Timestamp:  FormatTime(base.Add(time.Duration(i) * time.Hour)),
		})
		if err != nil {
			t.Fatalf("CreateActivityLog: %v", err)
		}
	}

	all, err := q.ListActivityLogs(ctx, nil, 50, 0)
	if err != nil {
		t.Fatalf("ListActivityLogs: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	if all[0].Action != "LOGIN" || all[3].Action != "CREATE" {
		t.Errorf("order = %s..%s, want newest first", all[0].Action, all[3].Action)
	}

	alice, err := q.ListActivityLogs(ctx, Filter{}.ContainsFold(ColUserEmail, "ALICE"), 50, 0)
	if err != nil {
		t.Fatalf("ListActivityLogs(alice): %v", err)
	}
	if len(alice) != 2 {
		t.Errorf("alice matches = %d, want 2", len(alice))
	}

	// "_" must match literally, not as a wildcard
	underscore, err := q.CountActivityLogs(ctx, Filter{}.ContainsFold(ColUserEmail, "l_x"))
	if err != nil {
		t.Fatalf("CountActivityLogs(underscore): %v", err)
	}
	if underscore != 1 {
		t.Errorf("underscore matches = %d, want 1", underscore)
	}

	posts, err := q.CountActivityLogs(ctx, Filter{}.Eq(ColEntityType, "post").Eq(ColAction, "UPDATE"))
	if err != nil {
		t.Fatalf("CountActivityLogs: %v", err)
	}
	if posts != 1 {
		t.Errorf("post updates = %d, want 1", posts)
	}

	byAction, err := q.CountActivityLogsByAction(ctx)
	if err != nil {
		t.Fatalf("CountActivityLogsByAction: %v", err)
	}
	if len(byAction) != 4 {
		t.Errorf("action groups = %d, want 4", len(byAction))
	}
}

func TestListActivityLogs_NonASCIIEmailFilter(t *testing.T) {
	for _, driver := range []string{DriverModernc, DriverCGO} {
		t.Run(driver, func(t *testing.T) {
			cfg := DefaultDBConfig()
			cfg.Driver = driver
			db, err := NewDBWithConfig(filepath.Join(t.TempDir(), "oblog-test.db"), cfg)
			if err != nil {
				t.Fatalf("NewDBWithConfig: %v", err)
			}
			defer func() { _ = db.Close() }()
			if err := Migrate(db); err != nil {
				t.Fatalf("Migrate: %v", err)
			}

			ctx := context.Background()
			q := New(db)
			for _, email := range []sql.NullString{
				{String: "Émile@Example.com", Valid: true},
				{String: "ÖSTERREICH@example.com", Valid: true},
				{},
			} {
				if _, err := q.CreateActivityLog(ctx, CreateActivityLogParams{
					UserEmail:  email,
					Action:     "LOGIN",
					EntityType: "user",
					Details:    "{}",
					Timestamp:  FormatTime(time.Now()),
				}); err != nil {
					t.Fatalf("CreateActivityLog: %v", err)
				}
			}

			tests := []struct {
				needle string
				want   int64
			}{
				{"Émile", 1},
				{"émile", 1},
				{"ÉMILE", 1},
				{"EXAMPLE", 2},
				{"österreich", 1},
				{"emile", 0},
			}
			for _, tt := range tests {
				n, err := q.CountActivityLogs(ctx, Filter{}.ContainsFold(ColUserEmail, tt.needle))
				if err != nil {
					t.Fatalf("CountActivityLogs(%q): %v", tt.needle, err)
				}
				if n != tt.want {
					t.Errorf("CountActivityLogs(%q) = %d, want %d", tt.needle, n, tt.want)
				}
			}
		})
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	cfg := SeedConfig{AdminEmail: "root@example.com", AdminPassword: "s3cret!", SamplePosts: true}

	for i := 0; i < 2; i++ {
		if err := Seed(ctx, db, cfg); err != nil {
			t.Fatalf("Seed #%d: %v", i+1, err)
		}
	}

	q := New(db)
	if _, err := q.GetUserByEmail(ctx, "root@example.com"); err != nil {
		t.Errorf("GetUserByEmail: %v", err)
	}
	count, err := q.CountPosts(ctx)
	if err != nil {
		t.Fatalf("CountPosts: %v", err)
	}
	if count != int64(len(samplePosts)) {
		t.Errorf("posts = %d, want %d", count, len(samplePosts))
	}
}

func TestListCommentsWithPost(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	first := mustPost(t, q, "first", "")
	second := mustPost(t, q, "second", "")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, postID := range []int64{first.ID, second.ID, first.ID} {
		if _, err := q.CreateComment(ctx, CreateCommentParams{
			PostID:     postID,
			AuthorName: "reader",
			Content:    "nice",
			Approved:   true,
			CreatedAt:  FormatTime(base.Add(time.Duration(i) * time.Minute)),
		}); err != nil {
			t.Fatalf("CreateComment: %v", err)
		}
	}

	all, err := q.ListCommentsWithPost(ctx, 0)
	if err != nil {
		t.Fatalf("ListCommentsWithPost: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("comments = %d, want 3", len(all))
	}
	if all[0].PostID != first.ID || all[0].PostSlug != "first" {
		t.Errorf("newest comment = post %d (%q), want post %d (first)", all[0].PostID, all[0].PostSlug, first.ID)
	}

	onlySecond, err := q.ListCommentsWithPost(ctx, second.ID)
	if err != nil {
		t.Fatalf("ListCommentsWithPost: %v", err)
	}
	if len(onlySecond) != 1 || onlySecond[0].PostTitle != "Post second" {
		t.Errorf("filtered comments = %+v, want one comment on %q", onlySecond, "Post second")
	}
}

func TestOptimize(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	if err := Optimize(context.Background(), db); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
}
