package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripcircle/coordinator/internal/domain"
)

// EvidenceRepo reads the per-trip collections the engine derives state from.
// Every method takes many trip IDs so a dashboard needs one query per
// collection rather than one per trip.
type EvidenceRepo interface {
	ListParticipants(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Participant, error)
	ListVotes(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Vote, error)
	ListDatePicks(ctx context.Context, tripIDs []uuid.UUID) ([]domain.DatePick, error)
	ListAvailabilities(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Availability, error)
	ListWindows(ctx context.Context, tripIDs []uuid.UUID) ([]domain.DateWindow, error)
	ListSupports(ctx context.Context, tripIDs []uuid.UUID) ([]domain.WindowSupport, error)
	// ListPendingJoinRequests returns only requests still awaiting a decision.
	ListPendingJoinRequests(ctx context.Context, tripIDs []uuid.UUID) ([]domain.JoinRequest, error)
	// LatestMessages returns at most one message per trip: the newest.
	LatestMessages(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Message, error)
}

// pgEvidenceRepo is the Postgres implementation of EvidenceRepo.
type pgEvidenceRepo struct {
	db db
}

// NewEvidenceRepo constructs an EvidenceRepo backed by the provided db connection.
func NewEvidenceRepo(db db) EvidenceRepo {
	return &pgEvidenceRepo{db: db}
}

// listByTrips runs q with @trip_ids bound and collects every row through fn.
func listByTrips[T any](ctx context.Context, d db, op, q string, tripIDs []uuid.UUID, fn pgx.RowToFunc[T]) ([]T, error) {
	if len(tripIDs) == 0 {
		return []T{}, nil
	}
	rows, err := d.Query(ctx, q, pgx.NamedArgs{"trip_ids": tripIDs})
	if err != nil {
		return nil, fmt.Errorf("repo.EvidenceRepo.%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, fmt.Errorf("repo.EvidenceRepo.%s: scan: %w", op, err)
	}
	return out, nil
}

// ListParticipants returns participant records of the listed trips.
func (r *pgEvidenceRepo) ListParticipants(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Participant, error) {
	const q = `
		SELECT trip_id, user_id, status, joined_at
		FROM trip_participants
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY trip_id, joined_at, user_id`

	return listByTrips(ctx, r.db, "ListParticipants", q, tripIDs, func(row pgx.CollectableRow) (domain.Participant, error) {
		var (
			p      domain.Participant
			status pgtype.Text
		)
		err := row.Scan(&p.TripID, &p.UserID, &status, &p.JoinedAt)
		p.Status = domain.ParticipantStatus(status.String)
		return p, err
	})
}

// ListVotes returns the ballots cast on the listed trips.
func (r *pgEvidenceRepo) ListVotes(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Vote, error) {
	const q = `
		SELECT trip_id, user_id, option_key, voter_name, created_at
		FROM votes
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY trip_id, created_at, user_id`

	return listByTrips(ctx, r.db, "ListVotes", q, tripIDs, func(row pgx.CollectableRow) (domain.Vote, error) {
		var (
			v    domain.Vote
			name pgtype.Text
		)
		err := row.Scan(&v.TripID, &v.UserID, &v.OptionKey, &name, &v.CreatedAt)
		v.VoterName = name.String
		return v, err
	})
}

// ListDatePicks returns top3_heatmap picks ordered by user then rank.
func (r *pgEvidenceRepo) ListDatePicks(ctx context.Context, tripIDs []uuid.UUID) ([]domain.DatePick, error) {
	const q = `
		SELECT trip_id, user_id, rank, start_date, end_date
		FROM date_picks
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY trip_id, user_id, rank`

	return listByTrips(ctx, r.db, "ListDatePicks", q, tripIDs, func(row pgx.CollectableRow) (domain.DatePick, error) {
		var (
			p          domain.DatePick
			start, end pgtype.Date
		)
		err := row.Scan(&p.TripID, &p.UserID, &p.Rank, &start, &end)
		p.StartDate, p.EndDate = start.Time, end.Time
		return p, err
	})
}

// ListAvailabilities returns legacy availability marks.
func (r *pgEvidenceRepo) ListAvailabilities(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Availability, error) {
	const q = `
		SELECT trip_id, user_id, day, status
		FROM availabilities
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY trip_id, user_id, day`

	return listByTrips(ctx, r.db, "ListAvailabilities", q, tripIDs, func(row pgx.CollectableRow) (domain.Availability, error) {
		var (
			a   domain.Availability
			day pgtype.Date
		)
		err := row.Scan(&a.TripID, &a.UserID, &day, &a.Status)
		a.Day = day.Time
		return a, err
	})
}

// ListWindows returns candidate windows in suggestion order.
func (r *pgEvidenceRepo) ListWindows(ctx context.Context, tripIDs []uuid.UUID) ([]domain.DateWindow, error) {
	const q = `
		SELECT id, trip_id, proposed_by, start_date, end_date, created_at
		FROM date_windows
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY trip_id, created_at, id`

	return listByTrips(ctx, r.db, "ListWindows", q, tripIDs, scanWindow)
}

// ListSupports returns window endorsements.
func (r *pgEvidenceRepo) ListSupports(ctx context.Context, tripIDs []uuid.UUID) ([]domain.WindowSupport, error) {
	const q = `
		SELECT trip_id, window_id, user_id, created_at
		FROM window_supports
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY trip_id, created_at, user_id`

	return listByTrips(ctx, r.db, "ListSupports", q, tripIDs, func(row pgx.CollectableRow) (domain.WindowSupport, error) {
		var s domain.WindowSupport
		err := row.Scan(&s.TripID, &s.WindowID, &s.UserID, &s.CreatedAt)
		return s, err
	})
}

// ListPendingJoinRequests returns undecided join requests.
func (r *pgEvidenceRepo) ListPendingJoinRequests(ctx context.Context, tripIDs []uuid.UUID) ([]domain.JoinRequest, error) {
	const q = `
		SELECT id, trip_id, requester_id, status, created_at
		FROM join_requests
		WHERE trip_id = ANY(@trip_ids)
		  AND status = 'pending'
		ORDER BY trip_id, created_at, id`

	return listByTrips(ctx, r.db, "ListPendingJoinRequests", q, tripIDs, func(row pgx.CollectableRow) (domain.JoinRequest, error) {
		var j domain.JoinRequest
		err := row.Scan(&j.ID, &j.TripID, &j.RequesterID, &j.Status, &j.CreatedAt)
		return j, err
	})
}

// LatestMessages picks the newest message of each trip with DISTINCT ON.
func (r *pgEvidenceRepo) LatestMessages(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Message, error) {
	const q = `
		SELECT DISTINCT ON (trip_id) id, trip_id, user_id, body, created_at
		FROM trip_messages
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY trip_id, created_at DESC, id DESC`

	return listByTrips(ctx, r.db, "LatestMessages", q, tripIDs, func(row pgx.CollectableRow) (domain.Message, error) {
		var m domain.Message
		err := row.Scan(&m.ID, &m.TripID, &m.UserID, &m.Body, &m.CreatedAt)
		return m, err
	})
}

func scanWindow(row pgx.CollectableRow) (domain.DateWindow, error) {
	var (
		w          domain.DateWindow
		start, end pgtype.Date
	)
	err := row.Scan(&w.ID, &w.TripID, &w.ProposedBy, &start, &end, &w.CreatedAt)
	w.StartDate, w.EndDate = start.Time, end.Time
	return w, err
}
