package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/repo"
	"github.com/tripcircle/coordinator/internal/service"
)

// ---- mock repos ------------------------------------------------------------

// mockTripRepo is a hand-written test double for repo.TripRepo.
// Each method is a function field; set only the ones your test needs.
type mockTripRepo struct {
	getByID          func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	listByCircleIDs  func(ctx context.Context, circleIDs []uuid.UUID) ([]domain.Trip, error)
	transitionStatus func(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status) (domain.Trip, error)
	lock             func(ctx context.Context, id uuid.UUID, from []domain.Status, start, end time.Time) (domain.Trip, error)
	setProposal      func(ctx context.Context, id uuid.UUID, windowIDs []uuid.UUID) (domain.Trip, error)
	clearProposal    func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
}

func (m *mockTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) ListByCircleIDs(ctx context.Context, circleIDs []uuid.UUID) ([]domain.Trip, error) {
	return m.listByCircleIDs(ctx, circleIDs)
}
func (m *mockTripRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status) (domain.Trip, error) {
	return m.transitionStatus(ctx, id, from, to)
}
func (m *mockTripRepo) Lock(ctx context.Context, id uuid.UUID, from []domain.Status, start, end time.Time) (domain.Trip, error) {
	return m.lock(ctx, id, from, start, end)
}
func (m *mockTripRepo) SetProposal(ctx context.Context, id uuid.UUID, windowIDs []uuid.UUID) (domain.Trip, error) {
	return m.setProposal(ctx, id, windowIDs)
}
func (m *mockTripRepo) ClearProposal(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.clearProposal(ctx, id)
}

// compile-time check: mockTripRepo must satisfy repo.TripRepo.
var _ repo.TripRepo = (*mockTripRepo)(nil)

// mockCircleRepo is a hand-written test double for repo.CircleRepo.
type mockCircleRepo struct {
	getByID               func(ctx context.Context, id uuid.UUID) (domain.Circle, error)
	listByIDs             func(ctx context.Context, ids []uuid.UUID) ([]domain.Circle, error)
	listMembershipsByUser func(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error)
	listMembers           func(ctx context.Context, circleIDs []uuid.UUID) ([]domain.Membership, error)
}

func (m *mockCircleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Circle, error) {
	return m.getByID(ctx, id)
}
func (m *mockCircleRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Circle, error) {
	return m.listByIDs(ctx, ids)
}
func (m *mockCircleRepo) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error) {
	return m.listMembershipsByUser(ctx, userID)
}
func (m *mockCircleRepo) ListMembers(ctx context.Context, circleIDs []uuid.UUID) ([]domain.Membership, error) {
	return m.listMembers(ctx, circleIDs)
}

var _ repo.CircleRepo = (*mockCircleRepo)(nil)

// mockSchedulingRepo is a hand-written test double for repo.SchedulingRepo.
type mockSchedulingRepo struct {
	upsertVote          func(ctx context.Context, v domain.Vote) (domain.Vote, error)
	addWindow           func(ctx context.Context, w domain.DateWindow) (domain.DateWindow, error)
	addSupport          func(ctx context.Context, tripID, windowID, userID uuid.UUID) error
	replaceDatePicks    func(ctx context.Context, tripID, userID uuid.UUID, picks []domain.DatePick) error
	replaceAvailability func(ctx context.Context, tripID, userID uuid.UUID, days []domain.Availability) error
}

func (m *mockSchedulingRepo) UpsertVote(ctx context.Context, v domain.Vote) (domain.Vote, error) {
	return m.upsertVote(ctx, v)
}
func (m *mockSchedulingRepo) AddWindow(ctx context.Context, w domain.DateWindow) (domain.DateWindow, error) {
	return m.addWindow(ctx, w)
}
func (m *mockSchedulingRepo) AddSupport(ctx context.Context, tripID, windowID, userID uuid.UUID) error {
	return m.addSupport(ctx, tripID, windowID, userID)
}
func (m *mockSchedulingRepo) ReplaceDatePicks(ctx context.Context, tripID, userID uuid.UUID, picks []domain.DatePick) error {
	return m.replaceDatePicks(ctx, tripID, userID, picks)
}
func (m *mockSchedulingRepo) ReplaceAvailability(ctx context.Context, tripID, userID uuid.UUID, days []domain.Availability) error {
	return m.replaceAvailability(ctx, tripID, userID, days)
}

var _ repo.SchedulingRepo = (*mockSchedulingRepo)(nil)

// stubEvidence serves a fixed evidence bundle and records what was asked for.
type stubEvidence struct {
	ev    domain.Evidence
	err   error
	asked [][]uuid.UUID
}

func (s *stubEvidence) Load(_ context.Context, tripIDs []uuid.UUID) (domain.Evidence, error) {
	s.asked = append(s.asked, tripIDs)
	if s.err != nil {
		return nil, s.err
	}
	out := domain.Evidence{}
	for _, id := range tripIDs {
		out[id] = s.ev.For(id)
	}
	return out, nil
}

var _ service.EvidenceSource = (*stubEvidence)(nil)

// showAll is a PrivacyFilter that hides nothing.
type showAll struct{}

func (showAll) Visible(_ context.Context, _ uuid.UUID, trips []domain.Trip) ([]domain.Trip, error) {
	return trips, nil
}

// hideAll is a PrivacyFilter that hides everything.
type hideAll struct{}

func (hideAll) Visible(context.Context, uuid.UUID, []domain.Trip) ([]domain.Trip, error) {
	return []domain.Trip{}, nil
}

var (
	_ service.PrivacyFilter = showAll{}
	_ service.PrivacyFilter = hideAll{}
)

// memCircleStore is an in-memory service.CircleStore.
type memCircleStore struct {
	data   map[uuid.UUID]domain.Circle
	getErr error
	stored int
}

func newMemCircleStore() *memCircleStore {
	return &memCircleStore{data: map[uuid.UUID]domain.Circle{}}
}

func (m *memCircleStore) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Circle, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := map[uuid.UUID]domain.Circle{}
	for _, id := range ids {
		if c, ok := m.data[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}
func (m *memCircleStore) SetMany(_ context.Context, circles []domain.Circle) error {
	for _, c := range circles {
		m.stored++
		m.data[c.ID] = c
	}
	return nil
}

var _ service.CircleStore = (*memCircleStore)(nil)

// ---- fixtures --------------------------------------------------------------

var (
	tripCreated = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	now         = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// world is a small in-memory dataset that backs the mock repos.
type world struct {
	circles  []domain.Circle
	members  []domain.Membership
	trips    []domain.Trip
	evidence domain.Evidence
}

func (w *world) circleRepo() *mockCircleRepo {
	return &mockCircleRepo{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Circle, error) {
			for _, c := range w.circles {
				if c.ID == id {
					return c, nil
				}
			}
			return domain.Circle{}, domain.ErrNotFound
		},
		listByIDs: func(_ context.Context, ids []uuid.UUID) ([]domain.Circle, error) {
			var out []domain.Circle
			for _, c := range w.circles {
				for _, id := range ids {
					if c.ID == id {
						out = append(out, c)
					}
				}
			}
			return out, nil
		},
		listMembershipsByUser: func(_ context.Context, userID uuid.UUID) ([]domain.Membership, error) {
			var out []domain.Membership
			for _, m := range w.members {
				if m.UserID == userID {
					out = append(out, m)
				}
			}
			return out, nil
		},
		listMembers: func(_ context.Context, circleIDs []uuid.UUID) ([]domain.Membership, error) {
			var out []domain.Membership
			for _, m := range w.members {
				for _, id := range circleIDs {
					if m.CircleID == id {
						out = append(out, m)
					}
				}
			}
			return out, nil
		},
	}
}

func (w *world) tripRepo() *mockTripRepo {
	return &mockTripRepo{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Trip, error) {
			for _, t := range w.trips {
				if t.ID == id {
					return t, nil
				}
			}
			return domain.Trip{}, domain.ErrNotFound
		},
		listByCircleIDs: func(_ context.Context, circleIDs []uuid.UUID) ([]domain.Trip, error) {
			out := []domain.Trip{}
			for _, t := range w.trips {
				for _, id := range circleIDs {
					if t.CircleID == id {
						out = append(out, t)
					}
				}
			}
			return out, nil
		},
	}
}

func (w *world) addCircle(name string, owner uuid.UUID) domain.Circle {
	c := domain.Circle{ID: uuid.New(), Name: name, OwnerID: owner, CreatedAt: tripCreated.AddDate(0, -1, 0)}
	w.circles = append(w.circles, c)
	w.join(c.ID, owner, domain.RoleOwner, c.CreatedAt)
	return c
}

func (w *world) join(circleID, userID uuid.UUID, role domain.Role, at time.Time) {
	w.members = append(w.members, domain.Membership{CircleID: circleID, UserID: userID, Role: role, JoinedAt: at})
}

func (w *world) addTrip(c domain.Circle, name string, status domain.Status, mutate ...func(*domain.Trip)) domain.Trip {
	t := domain.Trip{
		ID:             uuid.New(),
		CircleID:       c.ID,
		CreatedBy:      c.OwnerID,
		Name:           name,
		Type:           domain.TripCollaborative,
		Status:         status,
		SchedulingMode: domain.ModeDateWindows,
		CreatedAt:      tripCreated,
		UpdatedAt:      tripCreated,
	}
	for _, m := range mutate {
		m(&t)
	}
	w.trips = append(w.trips, t)
	return t
}
