package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/repo"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSchedulingRepo_UpsertVote_ReplacesBallot(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewSchedulingRepo(tx)
	ev := repo.NewEvidenceRepo(tx)
	owner := uuid.New()
	tripID := insertTrip(t, tx, insertCircle(t, tx, "Family", owner), owner, "Lake", domain.StatusVoting)
	ctx := context.Background()

	_, err := r.UpsertVote(ctx, domain.Vote{TripID: tripID, UserID: owner, OptionKey: "a"})
	require.NoError(t, err)
	got, err := r.UpsertVote(ctx, domain.Vote{TripID: tripID, UserID: owner, OptionKey: "b", VoterName: "Sam"})
	require.NoError(t, err)

	assert.Equal(t, "b", got.OptionKey)
	assert.Equal(t, "Sam", got.VoterName)
	votes, err := ev.ListVotes(ctx, []uuid.UUID{tripID})
	require.NoError(t, err)
	require.Len(t, votes, 1, "one ballot per user")
	assert.Equal(t, "b", votes[0].OptionKey)
}

func TestSchedulingRepo_AddWindowAndSupport(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewSchedulingRepo(tx)
	ev := repo.NewEvidenceRepo(tx)
	owner, friend := uuid.New(), uuid.New()
	tripID := insertTrip(t, tx, insertCircle(t, tx, "Family", owner), owner, "Lake", domain.StatusScheduling)
	ctx := context.Background()

	w, err := r.AddWindow(ctx, domain.DateWindow{TripID: tripID, ProposedBy: owner, StartDate: day(2025, 8, 1), EndDate: day(2025, 8, 4)})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.True(t, w.StartDate.Equal(day(2025, 8, 1)))

	require.NoError(t, r.AddSupport(ctx, tripID, w.ID, friend))
	require.NoError(t, r.AddSupport(ctx, tripID, w.ID, friend), "second support is a no-op")

	supports, err := ev.ListSupports(ctx, []uuid.UUID{tripID})
	require.NoError(t, err)
	require.Len(t, supports, 1)
	assert.Equal(t, friend, supports[0].UserID)
}

func TestSchedulingRepo_AddSupport_ForeignWindow(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewSchedulingRepo(tx)
	owner := uuid.New()
	circleID := insertCircle(t, tx, "Family", owner)
	tripA := insertTrip(t, tx, circleID, owner, "A", domain.StatusScheduling)
	tripB := insertTrip(t, tx, circleID, owner, "B", domain.StatusScheduling)
	windowB := insertWindow(t, tx, tripB, owner, time.Now())

	err := r.AddSupport(context.Background(), tripA, windowB, owner)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Once a proposal is active or the dates are locked, the window set is frozen
// even for callers that validated against an older snapshot.
func TestSchedulingRepo_WindowWritesRejectedWhenFrozen(t *testing.T) {
	tests := []struct {
		name   string
		freeze func(t *testing.T, trips repo.TripRepo, tripID, windowID uuid.UUID)
	}{
		{
			name: "active proposal",
			freeze: func(t *testing.T, trips repo.TripRepo, tripID, windowID uuid.UUID) {
				_, err := trips.SetProposal(context.Background(), tripID, []uuid.UUID{windowID})
				require.NoError(t, err)
			},
		},
		{
			name: "locked dates",
			freeze: func(t *testing.T, trips repo.TripRepo, tripID, _ uuid.UUID) {
				_, err := trips.Lock(context.Background(), tripID,
					[]domain.Status{domain.StatusScheduling}, day(2025, 8, 1), day(2025, 8, 5))
				require.NoError(t, err)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := newTestTx(t)
			r := repo.NewSchedulingRepo(tx)
			ev := repo.NewEvidenceRepo(tx)
			owner, friend := uuid.New(), uuid.New()
			tripID := insertTrip(t, tx, insertCircle(t, tx, "Family", owner), owner, "Lake", domain.StatusScheduling)
			windowID := insertWindow(t, tx, tripID, owner, time.Now())
			ctx := context.Background()

			tc.freeze(t, repo.NewTripRepo(tx), tripID, windowID)

			_, err := r.AddWindow(ctx, domain.DateWindow{TripID: tripID, ProposedBy: friend, StartDate: day(2025, 9, 1), EndDate: day(2025, 9, 3)})
			assert.ErrorIs(t, err, domain.ErrConflict)
			err = r.AddSupport(ctx, tripID, windowID, friend)
			assert.ErrorIs(t, err, domain.ErrConflict)

			windows, err := ev.ListWindows(ctx, []uuid.UUID{tripID})
			require.NoError(t, err)
			assert.Len(t, windows, 1, "no window added")
			supports, err := ev.ListSupports(ctx, []uuid.UUID{tripID})
			require.NoError(t, err)
			assert.Empty(t, supports, "no support recorded")
		})
	}
}

func TestSchedulingRepo_ReplaceDatePicks(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewSchedulingRepo(tx)
	ev := repo.NewEvidenceRepo(tx)
	owner := uuid.New()
	tripID := insertTrip(t, tx, insertCircle(t, tx, "Family", owner), owner, "Lake", domain.StatusScheduling)
	ctx := context.Background()

	require.NoError(t, r.ReplaceDatePicks(ctx, tripID, owner, []domain.DatePick{
		{Rank: 1, StartDate: day(2025, 8, 1), EndDate: day(2025, 8, 3)},
		{Rank: 2, StartDate: day(2025, 9, 1), EndDate: day(2025, 9, 3)},
	}))
	require.NoError(t, r.ReplaceDatePicks(ctx, tripID, owner, []domain.DatePick{
		{Rank: 1, StartDate: day(2025, 10, 1), EndDate: day(2025, 10, 2)},
	}))

	picks, err := ev.ListDatePicks(ctx, []uuid.UUID{tripID})
	require.NoError(t, err)
	require.Len(t, picks, 1, "rank 2 dropped")
	assert.Equal(t, 1, picks[0].Rank)
	assert.True(t, picks[0].StartDate.Equal(day(2025, 10, 1)))
}

func TestSchedulingRepo_ReplaceAvailability(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewSchedulingRepo(tx)
	ev := repo.NewEvidenceRepo(tx)
	owner := uuid.New()
	tripID := insertTrip(t, tx, insertCircle(t, tx, "Family", owner), owner, "Lake", domain.StatusScheduling)
	ctx := context.Background()

	require.NoError(t, r.ReplaceAvailability(ctx, tripID, owner, []domain.Availability{
		{Day: day(2025, 8, 1)}, {Day: day(2025, 8, 2)},
	}))
	require.NoError(t, r.ReplaceAvailability(ctx, tripID, owner, []domain.Availability{
		{Day: day(2025, 8, 2)},
	}))

	got, err := ev.ListAvailabilities(ctx, []uuid.UUID{tripID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Day.Equal(day(2025, 8, 2)))
	assert.Equal(t, "available", got[0].Status)
}
