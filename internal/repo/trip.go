// Package repo contains all database access logic for the coordinator.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripcircle/coordinator/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for Trips.
//
// Every mutation is a single conditional UPDATE keyed by the state the caller
// validated against. When another actor changed the trip first, no row
// matches and the method returns domain.ErrConflict.
type TripRepo interface {
	// GetByID retrieves a single trip. Returns domain.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// ListByCircleIDs returns every trip owned by any of the given circles.
	ListByCircleIDs(ctx context.Context, circleIDs []uuid.UUID) ([]domain.Trip, error)

	// TransitionStatus moves a non-terminal trip to `to` if its canonical
	// status is currently one of `from`.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status) (domain.Trip, error)

	// Lock sets the locked dates and status locked if the trip's canonical
	// status is one of `from`. Any active proposal is cleared.
	Lock(ctx context.Context, id uuid.UUID, from []domain.Status, start, end time.Time) (domain.Trip, error)

	// SetProposal records windowIDs as the active proposal if none is active
	// and the trip is not locked.
	SetProposal(ctx context.Context, id uuid.UUID, windowIDs []uuid.UUID) (domain.Trip, error)

	// ClearProposal removes the active proposal if one is active and the trip
	// is not locked.
	ClearProposal(ctx context.Context, id uuid.UUID) (domain.Trip, error)
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `
	id, circle_id, created_by, name, type, status, trip_status, scheduling_mode,
	start_date, end_date, locked_start_date, locked_end_date,
	proposed_window_id, proposed_window_ids, itinerary_status, created_at, updated_at`

// phaseSQL mirrors domain.Trip.Phase for use in WHERE clauses.
const phaseSQL = `
	CASE
		WHEN trip_status = 'CANCELLED' THEN 'canceled'
		WHEN trip_status = 'COMPLETED' THEN 'completed'
		WHEN status IS NOT NULL THEN status
		WHEN type = 'hosted' THEN 'locked'
		ELSE 'proposed'
	END`

// noProposalSQL is true when neither proposal field names a window.
const noProposalSQL = `(proposed_window_id IS NULL AND cardinality(proposed_window_ids) = 0)`

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// ListByCircleIDs returns the trips of every listed circle, oldest first.
func (r *pgTripRepo) ListByCircleIDs(ctx context.Context, circleIDs []uuid.UUID) ([]domain.Trip, error) {
	if len(circleIDs) == 0 {
		return []domain.Trip{}, nil
	}
	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE circle_id = ANY(@circle_ids)
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"circle_ids": circleIDs})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByCircleIDs: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.ListByCircleIDs: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByCircleIDs: rows: %w", err)
	}
	return trips, nil
}

// TransitionStatus performs a compare-and-set on the trip's canonical status.
func (r *pgTripRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET status      = @to,
		    updated_at  = now()
		WHERE id = @id
		  AND ` + phaseSQL + ` = ANY(@from)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{"id": id, "from": statusStrings(from), "to": string(to)}
	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.TransitionStatus: %w", conflict(err))
	}
	return result, nil
}

// Lock finalizes the trip's dates.
func (r *pgTripRepo) Lock(ctx context.Context, id uuid.UUID, from []domain.Status, start, end time.Time) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET status              = 'locked',
		    locked_start_date   = @start,
		    locked_end_date     = @end,
		    proposed_window_id  = NULL,
		    proposed_window_ids = '{}',
		    updated_at          = now()
		WHERE id = @id
		  AND ` + phaseSQL + ` = ANY(@from)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":    id,
		"from":  statusStrings(from),
		"start": pgtype.Date{Time: start, Valid: true},
		"end":   pgtype.Date{Time: end, Valid: true},
	}
	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Lock: %w", conflict(err))
	}
	return result, nil
}

// SetProposal writes the list form of the proposal and clears the legacy pointer.
func (r *pgTripRepo) SetProposal(ctx context.Context, id uuid.UUID, windowIDs []uuid.UUID) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET proposed_window_ids = @window_ids,
		    proposed_window_id  = NULL,
		    updated_at          = now()
		WHERE id = @id
		  AND ` + noProposalSQL + `
		  AND ` + phaseSQL + ` NOT IN ('locked', 'completed', 'canceled')
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{"id": id, "window_ids": windowIDs}
	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.SetProposal: %w", conflict(err))
	}
	return result, nil
}

// ClearProposal empties both proposal fields.
func (r *pgTripRepo) ClearProposal(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET proposed_window_ids = '{}',
		    proposed_window_id  = NULL,
		    updated_at          = now()
		WHERE id = @id
		  AND NOT ` + noProposalSQL + `
		  AND ` + phaseSQL + ` NOT IN ('locked', 'completed', 'canceled')
		RETURNING ` + tripColumns

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.ClearProposal: %w", conflict(err))
	}
	return result, nil
}

// conflict maps "no row matched the conditional update" to domain.ErrConflict.
// Callers load the trip before mutating it, so a missing row here means the
// precondition no longer held.
func conflict(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrConflict
	}
	return err
}

func statusStrings(in []domain.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t                                    domain.Trip
		id, circleID, createdBy, proposedOne pgtype.UUID
		proposedMany                         []pgtype.UUID
		status, lifecycle, mode, itinerary   pgtype.Text
		start, end, lockedStart, lockedEnd   pgtype.Date
	)

	err := s.Scan(
		&id, &circleID, &createdBy, &t.Name, &t.Type, &status, &lifecycle, &mode,
		&start, &end, &lockedStart, &lockedEnd,
		&proposedOne, &proposedMany, &itinerary, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.CircleID = uuid.UUID(circleID.Bytes)
	t.CreatedBy = uuid.UUID(createdBy.Bytes)
	t.Status = domain.Status(status.String)
	t.Lifecycle = domain.Lifecycle(lifecycle.String)
	t.SchedulingMode = domain.SchedulingMode(mode.String)
	t.ItineraryStatus = domain.ItineraryStatus(itinerary.String)
	t.StartDate = datePtr(start)
	t.EndDate = datePtr(end)
	t.LockedStartDate = datePtr(lockedStart)
	t.LockedEndDate = datePtr(lockedEnd)
	if proposedOne.Valid {
		p := uuid.UUID(proposedOne.Bytes)
		t.ProposedWindowID = &p
	}
	for _, p := range proposedMany {
		if p.Valid {
			t.ProposedWindowIDs = append(t.ProposedWindowIDs, uuid.UUID(p.Bytes))
		}
	}
	return t, nil
}

func datePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	v := d.Time
	return &v
}
