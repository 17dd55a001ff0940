package store

import (
	"context"
	"database/sql"
)

const activityLogColumns = `id, user_id, user_email, action, entity_type, entity_id, details, ip_address, user_agent, timestamp`

func scanActivityLog(row interface{ Scan(...any) error }) (ActivityLog, error) {
	var i ActivityLog
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.UserEmail,
		&i.Action,
		&i.EntityType,
		&i.EntityID,
		&i.Details,
		&i.IpAddress,
		&i.UserAgent,
		&i.Timestamp,
	)
	return i, err
}

const createActivityLog = `
INSERT INTO activity_logs (user_id, user_email, action, entity_type, entity_id, details, ip_address, user_agent, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateActivityLogParams struct {
	UserID     sql.NullInt64
	UserEmail  sql.NullString
	Action     string
	EntityType string
	EntityID   sql.NullInt64
	Details    string
	IpAddress  sql.NullString
	UserAgent  sql.NullString
	Timestamp  string
}

func (q *Queries) CreateActivityLog(ctx context.Context, arg CreateActivityLogParams) (ActivityLog, error) {
	result, err := q.db.ExecContext(ctx, createActivityLog,
		arg.UserID,
		arg.UserEmail,
		arg.Action,
		arg.EntityType,
		arg.EntityID,
		arg.Details,
		arg.IpAddress,
		arg.UserAgent,
		arg.Timestamp,
	)
	if err != nil {
		return ActivityLog{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return ActivityLog{}, err
	}
	return q.GetActivityLogByID(ctx, id)
}

const getActivityLogByID = `
SELECT ` + activityLogColumns + ` FROM activity_logs WHERE id = ?
`

func (q *Queries) GetActivityLogByID(ctx context.Context, id int64) (ActivityLog, error) {
	return scanActivityLog(q.db.QueryRowContext(ctx, getActivityLogByID, id))
}

// ListActivityLogs returns the rows matching f, newest first.
func (q *Queries) ListActivityLogs(ctx context.Context, f Filter, limit, offset int) ([]ActivityLog, error) {
	where, args, err := f.Where()
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + activityLogColumns + ` FROM activity_logs` + where +
		` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ActivityLog
	for rows.Next() {
		i, err := scanActivityLog(rows)
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

func (q *Queries) CountActivityLogs(ctx context.Context, f Filter) (int64, error) {
	where, args, err := f.Where()
	if err != nil {
		return 0, err
	}
	var count int64
	err = q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`+where, args...).Scan(&count)
	return count, err
}

// GroupCount is a count of rows sharing one value of a grouped column.
type GroupCount struct {
	Key   string
	Count int64
}

const countActivityLogsByAction = `
SELECT action, COUNT(*) AS count
FROM activity_logs
GROUP BY action
ORDER BY count DESC, action ASC
`

func (q *Queries) CountActivityLogsByAction(ctx context.Context) ([]GroupCount, error) {
	return q.groupCounts(ctx, countActivityLogsByAction)
}

const countActivityLogsByEntityType = `
SELECT entity_type, COUNT(*) AS count
FROM activity_logs
GROUP BY entity_type
ORDER BY count DESC, entity_type ASC
`

func (q *Queries) CountActivityLogsByEntityType(ctx context.Context) ([]GroupCount, error) {
	return q.groupCounts(ctx, countActivityLogsByEntityType)
}

func (q *Queries) groupCounts(ctx context.Context, query string) ([]GroupCount, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []GroupCount
	for rows.Next() {
		var i GroupCount
		if err := rows.Scan(&i.Key, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
