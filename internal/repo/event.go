// Package repo contains all database access logic for the checkpoint logger.
// Each record type has its own file with an interface and a Postgres
// implementation. Both tables are append-only: no UPDATE or DELETE is issued.
package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jbelval/wait-time-logger/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventRepo persists raw events, the audit trail of every received message.
type EventRepo interface {
	// Append inserts one raw event.
	Append(ctx context.Context, ev domain.RawEvent) error
}

// pgEventRepo is the Postgres implementation of EventRepo.
type pgEventRepo struct {
	db db
}

// NewEventRepo constructs an EventRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewEventRepo(db db) EventRepo {
	return &pgEventRepo{db: db}
}

// Append inserts a row into raw_events.
func (r *pgEventRepo) Append(ctx context.Context, ev domain.RawEvent) error {
	const q = `
		INSERT INTO raw_events (time, session, message)
		VALUES (@time, @session, @message)`

	args := pgx.NamedArgs{
		"time":    ev.Time,
		"session": ev.Session.Time(),
		"message": ev.Message,
	}

	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("repo.EventRepo.Append: %w", err)
	}
	return nil
}
