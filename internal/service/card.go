package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/consensus"
	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/pending"
	"github.com/tripcircle/coordinator/internal/repo"
)

// LateJoinerFunc reports whether a circle member joined too late to be
// counted as a traveler on the trip by default.
type LateJoinerFunc func(m domain.Membership, t domain.Trip) bool

// JoinedAfterTripCreated treats anyone who joined the circle after the trip
// was created as a late joiner.
func JoinedAfterTripCreated(m domain.Membership, t domain.Trip) bool {
	return m.JoinedAt.After(t.CreatedAt)
}

// CardBuilder turns one trip plus its in-memory evidence into a TripCard for
// one viewer. It performs no I/O.
type CardBuilder struct {
	lateJoiner LateJoinerFunc
}

// NewCardBuilder returns a CardBuilder using lateJoiner, or
// JoinedAfterTripCreated when lateJoiner is nil.
func NewCardBuilder(lateJoiner LateJoinerFunc) *CardBuilder {
	if lateJoiner == nil {
		lateJoiner = JoinedAfterTripCreated
	}
	return &CardBuilder{lateJoiner: lateJoiner}
}

// CardInput is everything Build reads.
type CardInput struct {
	Trip     domain.Trip
	Viewer   uuid.UUID
	Members  []domain.Membership // memberships of the trip's circle
	Evidence domain.TripEvidence
}

// Travelers returns the IDs of everyone currently travelling on the trip.
//
// Hosted trips count active participant records only. Collaborative trips
// count every circle member except those who left, were removed, or joined
// late without a participant record.
func (b *CardBuilder) Travelers(trip domain.Trip, members []domain.Membership, participants []domain.Participant) []uuid.UUID {
	records := indexParticipants(participants)
	out := []uuid.UUID{}

	if trip.Type == domain.TripHosted {
		for _, p := range participants {
			if domain.IsTraveler(trip, domain.ResolveAttendance(records[p.UserID]), false) && !slices.Contains(out, p.UserID) {
				out = append(out, p.UserID)
			}
		}
		return out
	}
	for _, m := range members {
		if b.isTraveler(trip, &m, records[m.UserID]) && !slices.Contains(out, m.UserID) {
			out = append(out, m.UserID)
		}
	}
	return out
}

// isTraveler applies the traveler policy to one user. A user with no
// membership is never a default traveler on a collaborative trip.
func (b *CardBuilder) isTraveler(trip domain.Trip, m *domain.Membership, p *domain.Participant) bool {
	late := true
	if m != nil {
		late = b.lateJoiner(*m, trip)
	}
	return domain.IsTraveler(trip, domain.ResolveAttendance(p), late)
}

// Build assembles the viewer's card for the trip.
func (b *CardBuilder) Build(in CardInput) domain.TripCard {
	trip, ev := in.Trip, in.Evidence
	records := indexParticipants(ev.Participants)

	var membership *domain.Membership
	for i := range in.Members {
		if in.Members[i].UserID == in.Viewer {
			membership = &in.Members[i]
			break
		}
	}
	viewerRecord := records[in.Viewer]

	input := pending.Input{
		Trip:           trip,
		UserID:         in.Viewer,
		IsParticipant:  domain.ResolveAttendance(viewerRecord) == domain.AttendanceActive,
		Availabilities: ev.Availabilities,
		Votes:          ev.Votes,
		IsTraveler:     b.isTraveler(trip, membership, viewerRecord),
		Windows:        ev.Windows,
		Supports:       ev.Supports,
	}
	if membership != nil {
		input.Role = membership.Role
	}
	for _, p := range ev.DatePicks {
		if p.UserID == in.Viewer {
			input.UserDatePicks = append(input.UserDatePicks, p)
		}
	}
	for i := range ev.Votes {
		if ev.Votes[i].UserID == in.Viewer {
			input.UserVote = &ev.Votes[i]
			break
		}
	}

	card := domain.TripCard{
		ID:              trip.ID,
		CircleID:        trip.CircleID,
		Name:            trip.Name,
		Status:          trip.Phase(),
		Type:            trip.Type,
		CreatedBy:       trip.CreatedBy,
		StartDate:       trip.EffectiveStart(),
		EndDate:         trip.EffectiveEnd(),
		LockedStartDate: trip.LockedStartDate,
		LockedEndDate:   trip.LockedEndDate,
		ItineraryStatus: trip.ItineraryStatus,
		TravelerCount:   len(b.Travelers(trip, in.Members, ev.Participants)),
		PendingActions:  pending.Derive(input),
		ActionRequired:  pending.ActionRequired(input),
		UpdatedAt:       trip.UpdatedAt,
	}
	if m := ev.LatestMessage; m != nil {
		card.LatestActivity = &domain.Activity{MessageID: m.ID, UserID: m.UserID, Body: m.Body, CreatedAt: m.CreatedAt}
	}
	return card
}

func indexParticipants(ps []domain.Participant) map[uuid.UUID]*domain.Participant {
	out := make(map[uuid.UUID]*domain.Participant, len(ps))
	for i := range ps {
		out[ps[i].UserID] = &ps[i]
	}
	return out
}

// EvidenceSource bulk-loads evidence for a set of trips.
// *repo.EvidenceLoader is the production implementation.
type EvidenceSource interface {
	Load(ctx context.Context, tripIDs []uuid.UUID) (domain.Evidence, error)
}

// CardService serves single-trip reads: one card, or the trip's proposal readiness.
type CardService struct {
	trips    repo.TripRepo
	circles  repo.CircleRepo
	evidence EvidenceSource
	privacy  PrivacyFilter
	builder  *CardBuilder
}

// NewCardService constructs a CardService.
func NewCardService(trips repo.TripRepo, circles repo.CircleRepo, evidence EvidenceSource, privacy PrivacyFilter, builder *CardBuilder) *CardService {
	return &CardService{trips: trips, circles: circles, evidence: evidence, privacy: privacy, builder: builder}
}

// tripContext is a visible trip with everything loaded for it.
type tripContext struct {
	trip     domain.Trip
	circle   domain.Circle
	members  []domain.Membership
	evidence domain.TripEvidence
}

// load fetches the trip and checks the viewer may see it. A trip the viewer
// cannot see is reported as domain.ErrNotFound.
func (s *CardService) load(ctx context.Context, op string, tripID, viewer uuid.UUID) (tripContext, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return tripContext{}, fmt.Errorf("%s: %w", op, err)
	}
	visible, err := s.privacy.Visible(ctx, viewer, []domain.Trip{trip})
	if err != nil {
		return tripContext{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(visible) == 0 {
		return tripContext{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	circle, err := s.circles.GetByID(ctx, trip.CircleID)
	if err != nil {
		return tripContext{}, fmt.Errorf("%s: %w", op, err)
	}
	members, err := s.circles.ListMembers(ctx, []uuid.UUID{trip.CircleID})
	if err != nil {
		return tripContext{}, fmt.Errorf("%s: %w", op, err)
	}
	ev, err := s.evidence.Load(ctx, []uuid.UUID{trip.ID})
	if err != nil {
		return tripContext{}, fmt.Errorf("%s: %w", op, err)
	}
	return tripContext{trip: trip, circle: circle, members: members, evidence: ev.For(trip.ID)}, nil
}

// Card returns the viewer's card for one trip.
func (s *CardService) Card(ctx context.Context, tripID, viewer uuid.UUID) (domain.TripCard, error) {
	tc, err := s.load(ctx, "service.CardService.Card", tripID, viewer)
	if err != nil {
		return domain.TripCard{}, err
	}
	return s.builder.Build(CardInput{Trip: tc.trip, Viewer: viewer, Members: tc.members, Evidence: tc.evidence}), nil
}

// Readiness computes the trip's proposal readiness over its current travelers.
func (s *CardService) Readiness(ctx context.Context, tripID, viewer uuid.UUID) (consensus.Readiness, error) {
	tc, err := s.load(ctx, "service.CardService.Readiness", tripID, viewer)
	if err != nil {
		return consensus.Readiness{}, err
	}
	travelers := s.builder.Travelers(tc.trip, tc.members, tc.evidence.Participants)
	return consensus.Compute(tc.trip, travelers, tc.evidence.Windows, tc.evidence.Supports), nil
}
