// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"database/sql/driver"
	"sync"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// caseFoldFunc is the SQL name of the Unicode case folding function
// available on every connection opened by NewDBWithConfig.
const caseFoldFunc = "casefold"

// cgoDriverName is the mattn driver registered with casefold on connect.
const cgoDriverName = "sqlite3_oblog"

var registerFuncs = sync.OnceValue(func() error {
	if err := sqlite.RegisterDeterministicScalarFunction(caseFoldFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return foldValue(args[0]), nil
		}); err != nil {
		return err
	}

	sql.Register(cgoDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(caseFoldFunc, foldValue, true)
		},
	})
	return nil
})

// folder is stateless and safe for concurrent use.
var folder = cases.Fold()

// FoldCase applies Unicode case folding, so "Émile" and "ÉMILE" both
// become "émile". The casefold SQL function uses the same mapping.
func FoldCase(s string) string {
	return folder.String(s)
}

func foldValue(v any) any {
	switch s := v.(type) {
	case string:
		return FoldCase(s)
	case []byte:
		return FoldCase(string(s))
	default:
		return v
	}
}
