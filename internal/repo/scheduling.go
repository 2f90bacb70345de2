package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripcircle/coordinator/internal/domain"
)

// SchedulingRepo writes the evidence users submit while a trip's dates are
// being decided. Callers run the stage validator first; these methods only
// persist.
type SchedulingRepo interface {
	// UpsertVote records the user's ballot, replacing an earlier one.
	UpsertVote(ctx context.Context, v domain.Vote) (domain.Vote, error)

	// AddWindow inserts a candidate window and returns it with its ID.
	// Returns domain.ErrConflict if the trip has an active proposal or its
	// dates are locked.
	AddWindow(ctx context.Context, w domain.DateWindow) (domain.DateWindow, error)

	// AddSupport endorses a window. Supporting the same window twice is a no-op.
	// Returns domain.ErrNotFound if the window does not belong to the trip and
	// domain.ErrConflict under the same conditions as AddWindow.
	AddSupport(ctx context.Context, tripID, windowID, userID uuid.UUID) error

	// ReplaceDatePicks sets the user's ranked picks, dropping ranks not given.
	ReplaceDatePicks(ctx context.Context, tripID, userID uuid.UUID, picks []domain.DatePick) error

	// ReplaceAvailability sets the user's availability days, dropping days not given.
	ReplaceAvailability(ctx context.Context, tripID, userID uuid.UUID, days []domain.Availability) error
}

// pgSchedulingRepo is the Postgres implementation of SchedulingRepo.
type pgSchedulingRepo struct {
	db db
}

// NewSchedulingRepo constructs a SchedulingRepo backed by the provided db connection.
func NewSchedulingRepo(db db) SchedulingRepo {
	return &pgSchedulingRepo{db: db}
}

// UpsertVote inserts or replaces the user's vote on the trip.
func (r *pgSchedulingRepo) UpsertVote(ctx context.Context, v domain.Vote) (domain.Vote, error) {
	const q = `
		INSERT INTO votes (trip_id, user_id, option_key, voter_name)
		VALUES (@trip_id, @user_id, @option_key, NULLIF(@voter_name::text, ''))
		ON CONFLICT (trip_id, user_id) DO UPDATE
		SET option_key = EXCLUDED.option_key,
		    voter_name = EXCLUDED.voter_name,
		    created_at = now()
		RETURNING trip_id, user_id, option_key, voter_name, created_at`

	args := pgx.NamedArgs{
		"trip_id":    v.TripID,
		"user_id":    v.UserID,
		"option_key": v.OptionKey,
		"voter_name": v.VoterName,
	}
	var (
		out  domain.Vote
		name pgtype.Text
	)
	err := r.db.QueryRow(ctx, q, args).Scan(&out.TripID, &out.UserID, &out.OptionKey, &name, &out.CreatedAt)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("repo.SchedulingRepo.UpsertVote: %w", err)
	}
	out.VoterName = name.String
	return out, nil
}

// openTripSQL selects the trip only while windows may still change: no
// proposal is active and the dates are not locked or closed.
const openTripSQL = `
	SELECT id FROM trips
	WHERE id = @trip_id
	  AND ` + noProposalSQL + `
	  AND ` + phaseSQL + ` NOT IN ('locked', 'completed', 'canceled')`

// AddWindow inserts a new date window. A trip that gained a proposal or was
// locked since the caller validated yields domain.ErrConflict.
func (r *pgSchedulingRepo) AddWindow(ctx context.Context, w domain.DateWindow) (domain.DateWindow, error) {
	q := `
		INSERT INTO date_windows (trip_id, proposed_by, start_date, end_date)
		SELECT t.id, @proposed_by::uuid, @start_date::date, @end_date::date
		FROM (` + openTripSQL + `) AS t
		RETURNING id, trip_id, proposed_by, start_date, end_date, created_at`

	args := pgx.NamedArgs{
		"trip_id":     w.TripID,
		"proposed_by": w.ProposedBy,
		"start_date":  pgtype.Date{Time: w.StartDate, Valid: true},
		"end_date":    pgtype.Date{Time: w.EndDate, Valid: true},
	}
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return domain.DateWindow{}, fmt.Errorf("repo.SchedulingRepo.AddWindow: %w", err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, scanWindow)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DateWindow{}, fmt.Errorf("repo.SchedulingRepo.AddWindow: %w", domain.ErrConflict)
	}
	if err != nil {
		return domain.DateWindow{}, fmt.Errorf("repo.SchedulingRepo.AddWindow: %w", err)
	}
	return out, nil
}

// AddSupport inserts a support row only when the window belongs to the trip
// and the trip is still open for windows.
func (r *pgSchedulingRepo) AddSupport(ctx context.Context, tripID, windowID, userID uuid.UUID) error {
	q := `
		WITH w AS (
			SELECT id, trip_id FROM date_windows WHERE id = @window_id AND trip_id = @trip_id
		), t AS (` + openTripSQL + `
		), ins AS (
			INSERT INTO window_supports (trip_id, window_id, user_id)
			SELECT w.trip_id, w.id, @user_id::uuid FROM w JOIN t ON t.id = w.trip_id
			ON CONFLICT (window_id, user_id) DO NOTHING
			RETURNING 1
		)
		SELECT EXISTS (SELECT 1 FROM w), EXISTS (SELECT 1 FROM t)`

	var found, open bool
	args := pgx.NamedArgs{"trip_id": tripID, "window_id": windowID, "user_id": userID}
	if err := r.db.QueryRow(ctx, q, args).Scan(&found, &open); err != nil {
		return fmt.Errorf("repo.SchedulingRepo.AddSupport: %w", err)
	}
	if !found {
		return fmt.Errorf("repo.SchedulingRepo.AddSupport: %w", domain.ErrNotFound)
	}
	if !open {
		return fmt.Errorf("repo.SchedulingRepo.AddSupport: %w", domain.ErrConflict)
	}
	return nil
}

// ReplaceDatePicks upserts the given ranks and deletes the rest in one statement.
func (r *pgSchedulingRepo) ReplaceDatePicks(ctx context.Context, tripID, userID uuid.UUID, picks []domain.DatePick) error {
	const q = `
		WITH del AS (
			DELETE FROM date_picks
			WHERE trip_id = @trip_id AND user_id = @user_id AND rank <> ALL(@ranks::int[])
		)
		INSERT INTO date_picks (trip_id, user_id, rank, start_date, end_date)
		SELECT @trip_id::uuid, @user_id::uuid, u.rank, u.start_date, u.end_date
		FROM unnest(@ranks::int[], @starts::date[], @ends::date[]) AS u(rank, start_date, end_date)
		ON CONFLICT (trip_id, user_id, rank) DO UPDATE
		SET start_date = EXCLUDED.start_date,
		    end_date   = EXCLUDED.end_date`

	ranks := make([]int32, len(picks))
	starts := make([]pgtype.Date, len(picks))
	ends := make([]pgtype.Date, len(picks))
	for i, p := range picks {
		ranks[i] = int32(p.Rank)
		starts[i] = pgtype.Date{Time: p.StartDate, Valid: true}
		ends[i] = pgtype.Date{Time: p.EndDate, Valid: true}
	}
	args := pgx.NamedArgs{"trip_id": tripID, "user_id": userID, "ranks": ranks, "starts": starts, "ends": ends}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("repo.SchedulingRepo.ReplaceDatePicks: %w", err)
	}
	return nil
}

// ReplaceAvailability upserts the given days and deletes the rest in one statement.
func (r *pgSchedulingRepo) ReplaceAvailability(ctx context.Context, tripID, userID uuid.UUID, days []domain.Availability) error {
	const q = `
		WITH del AS (
			DELETE FROM availabilities
			WHERE trip_id = @trip_id AND user_id = @user_id AND day <> ALL(@days::date[])
		)
		INSERT INTO availabilities (trip_id, user_id, day, status)
		SELECT @trip_id::uuid, @user_id::uuid, u.day, u.status
		FROM unnest(@days::date[], @statuses::text[]) AS u(day, status)
		ON CONFLICT (trip_id, user_id, day) DO UPDATE
		SET status = EXCLUDED.status`

	dates := make([]pgtype.Date, len(days))
	statuses := make([]string, len(days))
	for i, a := range days {
		dates[i] = pgtype.Date{Time: a.Day, Valid: true}
		statuses[i] = a.Status
		if statuses[i] == "" {
			statuses[i] = "available"
		}
	}
	args := pgx.NamedArgs{"trip_id": tripID, "user_id": userID, "days": dates, "statuses": statuses}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("repo.SchedulingRepo.ReplaceAvailability: %w", err)
	}
	return nil
}
