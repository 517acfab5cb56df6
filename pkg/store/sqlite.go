package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
)

const (
	// cgoDriver is mattn/go-sqlite3 with the fold function attached to every connection
	cgoDriver = "sqlite3_grain"

	// foldFunc lowercases with Unicode rules; SQLite's lower() only folds ASCII
	foldFunc = "grain_fold"
)

func init() {
	sql.Register(cgoDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(foldFunc, strings.ToLower, true)
		},
	})
	if err := sqlite.RegisterDeterministicScalarFunction(foldFunc, 1, fold); err != nil {
		panic(fmt.Sprintf("store: register %s: %v", foldFunc, err))
	}
}

func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// NewSQLiteStore opens a SQLite database through the cgo driver
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLStore, error) {
	// - _journal_mode=WAL: Enable Write-Ahead Logging for better concurrency
	// - _busy_timeout=10000: Wait up to 10 seconds when database is locked
	// - _synchronous=NORMAL: Balance between safety and performance
	// - _txlock=immediate: Acquire write lock at transaction start to reduce conflicts
	dsn := withParams(dbPath, "_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL&_txlock=immediate")
	return openSQLite(ctx, cgoDriver, dsn)
}

// NewPureSQLiteStore opens a SQLite database through the pure Go driver, for builds without cgo
func NewPureSQLiteStore(ctx context.Context, dbPath string) (*SQLStore, error) {
	// _time_format=sqlite stores times in the same layout as the cgo driver
	dsn := withParams(dbPath,
		"_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)&_txlock=immediate&_time_format=sqlite")
	return openSQLite(ctx, "sqlite", dsn)
}

func openSQLite(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer for SQLite to avoid lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store, err := newSQLStore(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func withParams(path, params string) string {
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

