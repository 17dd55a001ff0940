package util

import "database/sql"

// NullInt64FromPtr maps nil to NULL.
func NullInt64FromPtr(ptr *int64) sql.NullInt64 {
	if ptr == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *ptr, Valid: true}
}

// NullStringFromValue maps the empty string to NULL.
func NullStringFromValue(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
