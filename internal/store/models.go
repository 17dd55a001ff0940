package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Post struct {
	ID         int64
	Title      string
	Slug       string
	Content    string
	YoutubeUrl sql.NullString
	Published  bool
	Views      int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Comment struct {
	ID         int64
	PostID     int64
	AuthorName string
	Content    string
	Approved   bool
	CreatedAt  time.Time
}

// AnalyticsEvent is one row of the append-only analytics table.
type AnalyticsEvent struct {
	ID             int64
	EventType      string
	PostID         sql.NullInt64
	SessionID      sql.NullString
	UserAgent      sql.NullString
	IpAddress      sql.NullString
	Timestamp      time.Time
	AdditionalData string
}

// ActivityLog is one row of the append-only activity_logs table.
type ActivityLog struct {
	ID         int64
	UserID     sql.NullInt64
	UserEmail  sql.NullString
	Action     string
	EntityType string
	EntityID   sql.NullInt64
	Details    string
	IpAddress  sql.NullString
	UserAgent  sql.NullString
	Timestamp  time.Time
}
