package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jbelval/wait-time-logger/internal/domain"
)

// JourneyRepo persists completed journeys, one row per finalized badge.
type JourneyRepo interface {
	// Create inserts a completed journey and returns the persisted record
	// with the DB-generated id and recorded_at populated.
	Create(ctx context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error)
}

// pgJourneyRepo is the Postgres implementation of JourneyRepo.
type pgJourneyRepo struct {
	db db
}

// NewJourneyRepo constructs a JourneyRepo backed by the provided db connection.
func NewJourneyRepo(db db) JourneyRepo {
	return &pgJourneyRepo{db: db}
}

// Create inserts a badge_scans row. Unset station slots become NULL.
func (r *pgJourneyRepo) Create(ctx context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error) {
	const q = `
		INSERT INTO badge_scans (badge_id, session, a_time, b_time, c_time, v_time, h_time, notes)
		VALUES (@badge_id, @session, @a_time, @b_time, @c_time, @v_time, @h_time, @notes)
		RETURNING id, badge_id, session, a_time, b_time, c_time, v_time, h_time, notes, recorded_at`

	args := pgx.NamedArgs{
		"badge_id": j.BadgeID,
		"session":  j.Session.Time(),
		"a_time":   j.At(domain.StationA), // nil becomes NULL
		"b_time":   j.At(domain.StationB),
		"c_time":   j.At(domain.StationC),
		"v_time":   j.At(domain.StationV),
		"h_time":   j.At(domain.StationH),
		"notes":    j.Notes,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanJourney(row)
	if err != nil {
		return domain.CompletedJourney{}, fmt.Errorf("repo.JourneyRepo.Create: %w", err)
	}
	return result, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanJourney maps a single badge_scans row into a domain.CompletedJourney.
// Station columns follow domain.Stations order.
func scanJourney(s scanner) (domain.CompletedJourney, error) {
	var (
		j       domain.CompletedJourney
		id      pgtype.UUID
		session pgtype.Date
		times   [5]pgtype.Timestamptz
	)

	err := s.Scan(&id, &j.BadgeID, &session,
		&times[0], &times[1], &times[2], &times[3], &times[4],
		&j.Notes, &j.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CompletedJourney{}, domain.ErrNotFound
		}
		return domain.CompletedJourney{}, err
	}

	j.ID = uuid.UUID(id.Bytes)
	j.Session = domain.SessionOf(session.Time)
	j.Times = make(map[domain.Station]time.Time, len(domain.Stations))
	for i, st := range domain.Stations {
		if times[i].Valid {
			j.Times[st] = times[i].Time
		}
	}
	return j, nil
}
