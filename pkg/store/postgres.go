package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/lib/pq"
)

// NewPostgreSQLStore connects to PostgreSQL, retrying while the server comes up
func NewPostgreSQLStore(ctx context.Context, config Config) (*SQLStore, error) {
	dsn := config.DSN
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(orDefault(config.MaxOpenConns, 25))
	db.SetMaxIdleConns(orDefault(config.MaxIdleConns, 5))
	db.SetConnMaxLifetime(orDefault(config.ConnMaxLifetime, 5*time.Minute))
	db.SetConnMaxIdleTime(orDefault(config.ConnMaxIdleTime, time.Minute))

	err = retry.Do(
		func() error { return db.PingContext(ctx) },
		retry.Context(ctx),
		retry.Attempts(orDefault(config.ConnectAttempts, 5)),
		retry.Delay(orDefault(config.ConnectDelay, time.Second)),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := newSQLStore(ctx, db, "postgres")
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func orDefault[T int | uint | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}
