package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/repo"
)

// DashboardDeps wires a DashboardService. Builder, Now and Logger are optional.
type DashboardDeps struct {
	Circles  repo.CircleRepo
	Trips    repo.TripRepo
	Evidence EvidenceSource
	Privacy  PrivacyFilter
	Builder  *CardBuilder
	Now      func() time.Time
	Logger   *slog.Logger
}

// DashboardService assembles a user's cross-circle dashboard.
type DashboardService struct {
	circles  repo.CircleRepo
	trips    repo.TripRepo
	evidence EvidenceSource
	privacy  PrivacyFilter
	builder  *CardBuilder
	now      func() time.Time
	log      *slog.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(d DashboardDeps) *DashboardService {
	s := &DashboardService{
		circles:  d.Circles,
		trips:    d.Trips,
		evidence: d.Evidence,
		privacy:  d.Privacy,
		builder:  d.Builder,
		now:      d.Now,
		log:      d.Logger,
	}
	if s.builder == nil {
		s.builder = NewCardBuilder(nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Build returns the dashboard for userID: every circle the user belongs to
// with its visible trips as cards, plus the global notification feed.
//
// All evidence for all visible trips is loaded in one batch before any card
// is derived. Cards, sort order and notifications are derived afresh on every
// call. A user with no circles gets an empty dashboard.
func (s *DashboardService) Build(ctx context.Context, userID uuid.UUID) (domain.Dashboard, error) {
	d, err := s.assemble(ctx, userID)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("service.DashboardService.Build: %w", err)
	}
	s.log.DebugContext(ctx, "dashboard built",
		"user_id", userID, "circles", len(d.Circles), "notifications", len(d.GlobalNotifications))
	return d, nil
}

func (s *DashboardService) assemble(ctx context.Context, userID uuid.UUID) (domain.Dashboard, error) {
	empty := domain.Dashboard{Circles: []domain.CircleCard{}, GlobalNotifications: []domain.Notification{}}

	memberships, err := s.circles.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return empty, err
	}
	if len(memberships) == 0 {
		return empty, nil
	}
	circleIDs := make([]uuid.UUID, len(memberships))
	roles := make(map[uuid.UUID]domain.Role, len(memberships))
	for i, m := range memberships {
		circleIDs[i] = m.CircleID
		roles[m.CircleID] = m.Role
	}

	circles, err := s.circles.ListByIDs(ctx, circleIDs)
	if err != nil {
		return empty, err
	}
	members, err := s.circles.ListMembers(ctx, circleIDs)
	if err != nil {
		return empty, err
	}
	membersByCircle := make(map[uuid.UUID][]domain.Membership, len(circles))
	for _, m := range members {
		membersByCircle[m.CircleID] = append(membersByCircle[m.CircleID], m)
	}

	all, err := s.trips.ListByCircleIDs(ctx, circleIDs)
	if err != nil {
		return empty, err
	}
	trips, err := s.privacy.Visible(ctx, userID, all)
	if err != nil {
		return empty, err
	}
	tripIDs := make([]uuid.UUID, len(trips))
	for i, t := range trips {
		tripIDs[i] = t.ID
	}
	ev, err := s.evidence.Load(ctx, tripIDs)
	if err != nil {
		return empty, err
	}

	cardsByCircle := make(map[uuid.UUID][]domain.TripCard, len(circles))
	for _, t := range trips {
		card := s.builder.Build(CardInput{
			Trip:     t,
			Viewer:   userID,
			Members:  membersByCircle[t.CircleID],
			Evidence: ev.For(t.ID),
		})
		cardsByCircle[t.CircleID] = append(cardsByCircle[t.CircleID], card)
	}

	now := s.now()
	byID := make(map[uuid.UUID]domain.Circle, len(circles))
	out := make([]domain.CircleCard, 0, len(circles))
	for _, c := range circles {
		byID[c.ID] = c
		cards := cardsByCircle[c.ID]
		if cards == nil {
			cards = []domain.TripCard{}
		}
		SortTrips(cards, now)
		out = append(out, domain.CircleCard{ID: c.ID, Name: c.Name, Role: roles[c.ID], Trips: cards})
	}
	SortCircles(out, now)

	return domain.Dashboard{
		Circles:             out,
		GlobalNotifications: BuildNotifications(userID, out, byID, ev),
	}, nil
}
