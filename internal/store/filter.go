// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"fmt"
	"strings"
)

// Column is a filterable activity_logs column. Only the constants below
// are accepted, so no caller text ever reaches the SQL string.
type Column string

// Filterable columns.
const (
	ColAction     Column = "action"
	ColEntityType Column = "entity_type"
	ColUserEmail  Column = "user_email"
	ColUserID     Column = "user_id"
	ColTimestamp  Column = "timestamp"
)

func (c Column) valid() bool {
	switch c {
	case ColAction, ColEntityType, ColUserEmail, ColUserID, ColTimestamp:
		return true
	}
	return false
}

// Op is a comparison operator for a Clause.
type Op int

// Supported operators.
const (
	OpEq Op = iota
	// OpContainsFold matches a case-insensitive substring.
	OpContainsFold
	OpGTE
	OpLTE
)

// Clause is a single bound predicate.
type Clause struct {
	Column Column
	Op     Op
	Value  any
}

// Filter is a conjunction of clauses. The empty filter matches every row.
type Filter []Clause

// Eq appends an equality clause.
func (f Filter) Eq(col Column, v any) Filter {
	return append(f, Clause{Column: col, Op: OpEq, Value: v})
}

// ContainsFold appends a case-insensitive substring clause.
func (f Filter) ContainsFold(col Column, s string) Filter {
	return append(f, Clause{Column: col, Op: OpContainsFold, Value: s})
}

// GTE appends a lower bound clause.
func (f Filter) GTE(col Column, v any) Filter {
	return append(f, Clause{Column: col, Op: OpGTE, Value: v})
}

// LTE appends an upper bound clause.
func (f Filter) LTE(col Column, v any) Filter {
	return append(f, Clause{Column: col, Op: OpLTE, Value: v})
}

// likeEscaper escapes LIKE wildcards so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Where renders the filter as a WHERE clause (with leading space) and its
// bind arguments. An empty filter renders "".
func (f Filter) Where() (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(f))
	args := make([]any, 0, len(f))
	for _, c := range f {
		if !c.Column.valid() {
			return "", nil, fmt.Errorf("filter: unknown column %q", c.Column)
		}
		col := string(c.Column)
		switch c.Op {
		case OpEq:
			parts = append(parts, col+" = ?")
			args = append(args, c.Value)
		case OpContainsFold:
			s, ok := c.Value.(string)
			if !ok {
				return "", nil, fmt.Errorf("filter: %s needs a string value", col)
			}
			parts = append(parts, caseFoldFunc+"("+col+`) LIKE ? ESCAPE '\'`)
			args = append(args, "%"+likeEscaper.Replace(FoldCase(s))+"%")
		case OpGTE:
			parts = append(parts, col+" >= ?")
			args = append(args, c.Value)
		case OpLTE:
			parts = append(parts, col+" <= ?")
			args = append(args, c.Value)
		default:
			return "", nil, fmt.Errorf("filter: unknown operator %d", c.Op)
		}
	}

	return " WHERE " + strings.Join(parts, " AND "), args, nil
}
