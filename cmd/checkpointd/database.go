package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
)

// connectTimeout bounds how long startup waits for the database.
const connectTimeout = 30 * time.Second

// openPool creates a pgx pool and waits, with exponential backoff, until the
// database answers a ping or connectTimeout elapses.
func openPool(ctx context.Context, dsn string, log *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	if err := waitForDB(ctx, pool.Ping, log); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("database connection established")
	return pool, nil
}

// openSQLDB opens a database/sql handle on the pgx driver, for goose.
func openSQLDB(ctx context.Context, dsn string, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := waitForDB(ctx, db.PingContext, log); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func waitForDB(ctx context.Context, ping func(context.Context) error, log *slog.Logger) error {
	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.MaxElapsedTime = connectTimeout

	err := backoff.RetryNotify(
		func() error { return ping(ctx) },
		backoff.WithContext(retryBackoff, ctx),
		func(err error, next time.Duration) {
			log.Warn("database not reachable, retrying", "error", err, "retry_in", next.String())
		},
	)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	return nil
}
