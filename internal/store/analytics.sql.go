package store

import (
	"context"
	"database/sql"
)

const analyticsColumns = `id, event_type, post_id, session_id, user_agent, ip_address, timestamp, additional_data`

func scanAnalyticsEvent(row interface{ Scan(...any) error }) (AnalyticsEvent, error) {
	var i AnalyticsEvent
	err := row.Scan(
		&i.ID,
		&i.EventType,
		&i.PostID,
		&i.SessionID,
		&i.UserAgent,
		&i.IpAddress,
		&i.Timestamp,
		&i.AdditionalData,
	)
	return i, err
}

const createEvent = `
INSERT INTO analytics (event_type, post_id, session_id, user_agent, ip_address, timestamp, additional_data)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateEventParams struct {
	EventType      string
	PostID         sql.NullInt64
	SessionID      sql.NullString
	UserAgent      sql.NullString
	IpAddress      sql.NullString
	Timestamp      string
	AdditionalData string
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (AnalyticsEvent, error) {
	result, err := q.db.ExecContext(ctx, createEvent,
		arg.EventType,
		arg.PostID,
		arg.SessionID,
		arg.UserAgent,
		arg.IpAddress,
		arg.Timestamp,
		arg.AdditionalData,
	)
	if err != nil {
		return AnalyticsEvent{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return AnalyticsEvent{}, err
	}
	return q.GetEventByID(ctx, id)
}

const getEventByID = `
SELECT ` + analyticsColumns + ` FROM analytics WHERE id = ?
`

func (q *Queries) GetEventByID(ctx context.Context, id int64) (AnalyticsEvent, error) {
	return scanAnalyticsEvent(q.db.QueryRowContext(ctx, getEventByID, id))
}

// CountEventsByType counts events of one type, optionally bounded by tr.
func (q *Queries) CountEventsByType(ctx context.Context, eventType string, tr TimeRange) (int64, error) {
	frag, args := tr.clause("timestamp")
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analytics WHERE event_type = ?`+frag,
		append([]any{eventType}, args...)...,
	).Scan(&count)
	return count, err
}

const countPostEvents = `
SELECT COUNT(*) FROM analytics WHERE post_id = ? AND event_type = ?
`

func (q *Queries) CountPostEvents(ctx context.Context, postID int64, eventType string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPostEvents, postID, eventType).Scan(&count)
	return count, err
}

// DateCount is one sparse row of a per-day aggregate.
type DateCount struct {
	Date  string
	Count int64
}

// DailyEventCounts groups events of one type by calendar day. Days without
// events are absent; callers zero-fill. postID 0 means all posts.
func (q *Queries) DailyEventCounts(ctx context.Context, eventType string, postID int64, tr TimeRange) ([]DateCount, error) {
	query := `SELECT DATE(timestamp) AS day, COUNT(*) FROM analytics WHERE event_type = ?`
	args := []any{eventType}
	if postID != 0 {
		query += ` AND post_id = ?`
		args = append(args, postID)
	}
	frag, rangeArgs := tr.clause("timestamp")
	query += frag + ` GROUP BY day ORDER BY day ASC`
	args = append(args, rangeArgs...)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []DateCount
	for rows.Next() {
		var i DateCount
		if err := rows.Scan(&i.Date, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// HourCount is one sparse row of an hour-of-day aggregate.
type HourCount struct {
	Hour  int
	Count int64
}

const hourlyEventCounts = `
SELECT CAST(strftime('%H', timestamp) AS INTEGER) AS hour, COUNT(*)
FROM analytics
WHERE post_id = ? AND event_type = ?
GROUP BY hour
ORDER BY hour ASC
`

func (q *Queries) HourlyEventCounts(ctx context.Context, postID int64, eventType string) ([]HourCount, error) {
	rows, err := q.db.QueryContext(ctx, hourlyEventCounts, postID, eventType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []HourCount
	for rows.Next() {
		var i HourCount
		if err := rows.Scan(&i.Hour, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UserAgentCount is the number of events sharing one raw user agent.
type UserAgentCount struct {
	UserAgent sql.NullString
	Count     int64
}

const userAgentCounts = `
SELECT user_agent, COUNT(*)
FROM analytics
WHERE post_id = ? AND event_type = ?
GROUP BY user_agent
`

func (q *Queries) UserAgentCounts(ctx context.Context, postID int64, eventType string) ([]UserAgentCount, error) {
	rows, err := q.db.QueryContext(ctx, userAgentCounts, postID, eventType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []UserAgentCount
	for rows.Next() {
		var i UserAgentCount
		if err := rows.Scan(&i.UserAgent, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRecentPostEvents = `
SELECT ` + analyticsColumns + `
FROM analytics
WHERE post_id = ?
ORDER BY timestamp DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentPostEvents(ctx context.Context, postID int64, limit int) ([]AnalyticsEvent, error) {
	rows, err := q.db.QueryContext(ctx, listRecentPostEvents, postID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []AnalyticsEvent
	for rows.Next() {
		i, err := scanAnalyticsEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// AverageTimeOnPage averages the timeSpent seconds reported by time_on_page
// events. Events are first paired per (session_id, post_id), keeping the
// longest duration reported by that pair, so heartbeat-style repeats do not
// skew the mean. Returns 0 when no event carries a numeric timeSpent.
func (q *Queries) AverageTimeOnPage(ctx context.Context, tr TimeRange) (float64, error) {
	frag, args := tr.clause("timestamp")
	query := `
SELECT COALESCE(AVG(spent), 0) FROM (
	SELECT MAX(CAST(json_extract(additional_data, '$.timeSpent') AS REAL)) AS spent
	FROM analytics
	WHERE event_type = 'time_on_page'
		AND json_valid(additional_data)
		AND json_type(additional_data, '$.timeSpent') IN ('integer', 'real')` + frag + `
	GROUP BY COALESCE(session_id, ''), COALESCE(post_id, 0)
)`
	var avg float64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&avg)
	return avg, err
}

const deleteEventsByPost = `
DELETE FROM analytics WHERE post_id = ?
`

func (q *Queries) DeleteEventsByPost(ctx context.Context, postID int64) error {
	_, err := q.db.ExecContext(ctx, deleteEventsByPost, postID)
	return err
}
