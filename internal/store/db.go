// Code in this file follows the sqlc layout so handwritten queries
// can share a DBTX with transactions.

package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New returns a query set bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds every statement the application issues.
type Queries struct {
	db DBTX
}

// WithTx returns a copy of q that runs on tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

// TimeLayout is the textual form of every stored timestamp (UTC).
const TimeLayout = "2006-01-02 15:04:05"

// DateLayout is the textual form of SQLite's DATE() output.
const DateLayout = "2006-01-02"

// FormatTime renders t in the stored timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// TimeRange bounds a query on a timestamp column, both ends inclusive.
// The zero value means unbounded.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range applies no bound.
func (tr TimeRange) IsZero() bool {
	return tr.Start.IsZero() && tr.End.IsZero()
}

// clause renders the range as an AND-able SQL fragment on column.
func (tr TimeRange) clause(column string) (string, []any) {
	var frag string
	var args []any
	if !tr.Start.IsZero() {
		frag += " AND " + column + " >= ?"
		args = append(args, FormatTime(tr.Start))
	}
	if !tr.End.IsZero() {
		frag += " AND " + column + " <= ?"
		args = append(args, FormatTime(tr.End))
	}
	return frag, args
}
