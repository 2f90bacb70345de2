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

func TestTripRepo_GetByID(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewTripRepo(tx)
	owner := uuid.New()
	circleID := insertCircle(t, tx, "Family", owner)
	id := insertTrip(t, tx, circleID, owner, "Lake Week", domain.StatusScheduling)

	got, err := r.GetByID(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, circleID, got.CircleID)
	assert.Equal(t, owner, got.CreatedBy)
	assert.Equal(t, "Lake Week", got.Name)
	assert.Equal(t, domain.TripCollaborative, got.Type)
	assert.Equal(t, domain.StatusScheduling, got.Status)
	assert.Equal(t, domain.ModeDateWindows, got.SchedulingMode)
	assert.Nil(t, got.ProposedWindowID)
	assert.Empty(t, got.ProposedWindowIDs)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt should be set by DB")
}

func TestTripRepo_GetByID_NotFound(t *testing.T) {
	r := repo.NewTripRepo(newTestTx(t))

	_, err := r.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTripRepo_ListByCircleIDs(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewTripRepo(tx)
	owner := uuid.New()
	a := insertCircle(t, tx, "A", owner)
	b := insertCircle(t, tx, "B", owner)
	other := insertCircle(t, tx, "Other", uuid.New())
	insertTrip(t, tx, a, owner, "One", domain.StatusProposed)
	insertTrip(t, tx, b, owner, "Two", domain.StatusVoting)
	insertTrip(t, tx, other, owner, "Hidden", domain.StatusVoting)

	got, err := r.ListByCircleIDs(context.Background(), []uuid.UUID{a, b})

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTripRepo_ListByCircleIDs_Empty(t *testing.T) {
	r := repo.NewTripRepo(newTestTx(t))

	got, err := r.ListByCircleIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTripRepo_TransitionStatus(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewTripRepo(tx)
	owner := uuid.New()
	id := insertTrip(t, tx, insertCircle(t, tx, "C", owner), owner, "T", domain.StatusScheduling)
	from := []domain.Status{domain.StatusProposed, domain.StatusScheduling}

	got, err := r.TransitionStatus(context.Background(), id, from, domain.StatusVoting)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVoting, got.Status)

	// A second actor racing on the same stale precondition loses.
	_, err = r.TransitionStatus(context.Background(), id, from, domain.StatusVoting)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestTripRepo_TransitionStatus_NullStatusUsesFallback(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewTripRepo(tx)
	owner := uuid.New()
	id := insertTrip(t, tx, insertCircle(t, tx, "C", owner), owner, "T", "")

	got, err := r.TransitionStatus(context.Background(), id, []domain.Status{domain.StatusProposed}, domain.StatusVoting)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusVoting, got.Status)
}

func TestTripRepo_TransitionStatus_CancelledLifecycleBlocks(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewTripRepo(tx)
	owner := uuid.New()
	id := insertTrip(t, tx, insertCircle(t, tx, "C", owner), owner, "T", domain.StatusScheduling)
	_, err := tx.Exec(context.Background(), `UPDATE trips SET trip_status = 'CANCELLED' WHERE id = $1`, id)
	require.NoError(t, err)

	_, err = r.TransitionStatus(context.Background(), id, []domain.Status{domain.StatusScheduling}, domain.StatusVoting)

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestTripRepo_ProposeWithdrawLock(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewTripRepo(tx)
	ctx := context.Background()
	owner := uuid.New()
	id := insertTrip(t, tx, insertCircle(t, tx, "C", owner), owner, "T", domain.StatusScheduling)
	w := insertWindow(t, tx, id, owner, time.Now())

	proposed, err := r.SetProposal(ctx, id, []uuid.UUID{w})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{w}, proposed.ActiveProposal())

	_, err = r.SetProposal(ctx, id, []uuid.UUID{w})
	assert.ErrorIs(t, err, domain.ErrConflict, "cannot propose over an active proposal")

	cleared, err := r.ClearProposal(ctx, id)
	require.NoError(t, err)
	assert.False(t, cleared.HasActiveProposal())

	_, err = r.ClearProposal(ctx, id)
	assert.ErrorIs(t, err, domain.ErrConflict, "nothing left to withdraw")

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)
	locked, err := r.Lock(ctx, id, []domain.Status{domain.StatusScheduling}, start, end)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLocked, locked.Status)
	require.NotNil(t, locked.LockedStartDate)
	assert.True(t, locked.LockedStartDate.Equal(start))

	_, err = r.SetProposal(ctx, id, []uuid.UUID{w})
	assert.ErrorIs(t, err, domain.ErrConflict, "locked trips take no proposals")
}

func TestTripRepo_LegacyProposalPointerIsRead(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewTripRepo(tx)
	owner := uuid.New()
	id := insertTrip(t, tx, insertCircle(t, tx, "C", owner), owner, "T", domain.StatusScheduling)
	w := insertWindow(t, tx, id, owner, time.Now())
	_, err := tx.Exec(context.Background(), `UPDATE trips SET proposed_window_id = $1 WHERE id = $2`, w, id)
	require.NoError(t, err)

	got, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{w}, got.ActiveProposal())

	_, err = r.ClearProposal(context.Background(), id)
	assert.NoError(t, err)
}
