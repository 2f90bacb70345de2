// Package service contains the business logic of the trip coordination API.
// Services load state through repo interfaces, run the pure deciders
// (stage, consensus, pending) over it, and orchestrate the resulting writes.
// No SQL lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/consensus"
	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/repo"
	"github.com/tripcircle/coordinator/internal/stage"
)

// CodeInsufficientSupport rejects propose_dates when the leading window has
// not reached the support threshold and no override was requested.
const CodeInsufficientSupport = "INSUFFICIENT_SUPPORT"

// ActionRequest carries the payload of one trip action. Only the fields the
// action reads need to be set.
type ActionRequest struct {
	Action stage.Action
	Actor  uuid.UUID

	// vote
	OptionKey string
	VoterName string

	// lock and submit_date_window
	StartDate *time.Time
	EndDate   *time.Time

	// support_window
	WindowID uuid.UUID

	// propose_dates; empty WindowIDs proposes the leading window
	WindowIDs      []uuid.UUID
	LeaderOverride bool

	// submit_date_picks and submit_availability
	DatePicks []domain.DatePick
	Days      []time.Time
}

// TripService validates and applies stage actions on trips.
type TripService struct {
	trips      repo.TripRepo
	circles    repo.CircleRepo
	scheduling repo.SchedulingRepo
	evidence   EvidenceSource
	privacy    PrivacyFilter
	builder    *CardBuilder
}

// NewTripService constructs a TripService. builder may be nil.
func NewTripService(trips repo.TripRepo, circles repo.CircleRepo, scheduling repo.SchedulingRepo,
	evidence EvidenceSource, privacy PrivacyFilter, builder *CardBuilder,
) *TripService {
	if builder == nil {
		builder = NewCardBuilder(nil)
	}
	return &TripService{
		trips:      trips,
		circles:    circles,
		scheduling: scheduling,
		evidence:   evidence,
		privacy:    privacy,
		builder:    builder,
	}
}

// Check runs the stage validator for actor without changing anything.
// A trip that does not exist, or that the actor cannot see, yields the
// validator's not-found result rather than an error.
func (s *TripService) Check(ctx context.Context, tripID, actor uuid.UUID, action stage.Action) (stage.Result, error) {
	res, _, _, err := s.check(ctx, tripID, actor, action)
	if err != nil {
		return stage.Result{}, fmt.Errorf("service.TripService.Check: %w", err)
	}
	return res, nil
}

func (s *TripService) check(ctx context.Context, tripID, actor uuid.UUID, action stage.Action) (stage.Result, *domain.Trip, *domain.Circle, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if errors.Is(err, domain.ErrNotFound) {
		return stage.Validate(nil, action, actor, nil), nil, nil, nil
	}
	if err != nil {
		return stage.Result{}, nil, nil, err
	}
	visible, err := s.privacy.Visible(ctx, actor, []domain.Trip{trip})
	if err != nil {
		return stage.Result{}, nil, nil, err
	}
	if len(visible) == 0 {
		return stage.Validate(nil, action, actor, nil), nil, nil, nil
	}
	circle, err := s.circles.GetByID(ctx, trip.CircleID)
	if err != nil {
		return stage.Result{}, nil, nil, err
	}
	return stage.Validate(&trip, action, actor, &circle), &trip, &circle, nil
}

// Apply validates req against the trip's current state and performs it.
//
// A validator rejection is returned as a *domain.RejectionError. Malformed
// payloads return domain.ErrValidation. If another actor changed the trip
// between validation and the write, domain.ErrConflict is returned and
// nothing is written. On success the trip is returned as stored.
func (s *TripService) Apply(ctx context.Context, tripID uuid.UUID, req ActionRequest) (domain.Trip, error) {
	const op = "service.TripService.Apply"

	res, trip, _, err := s.check(ctx, tripID, req.Actor, req.Action)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("%s: %w", op, err)
	}
	if !res.OK {
		return domain.Trip{}, fmt.Errorf("%s: %w", op, res.Err())
	}

	updated, err := s.apply(ctx, *trip, req)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("%s: %s: %w", op, req.Action, err)
	}
	return updated, nil
}

func (s *TripService) apply(ctx context.Context, trip domain.Trip, req ActionRequest) (domain.Trip, error) {
	switch req.Action {
	case stage.OpenVoting:
		return s.trips.TransitionStatus(ctx, trip.ID,
			[]domain.Status{domain.StatusProposed, domain.StatusScheduling}, domain.StatusVoting)

	case stage.Vote:
		key := strings.TrimSpace(req.OptionKey)
		if key == "" {
			return domain.Trip{}, fmt.Errorf("%w: option_key is required", domain.ErrValidation)
		}
		_, err := s.scheduling.UpsertVote(ctx, domain.Vote{
			TripID: trip.ID, UserID: req.Actor, OptionKey: key, VoterName: strings.TrimSpace(req.VoterName),
		})
		return s.reload(ctx, trip, err)

	case stage.Lock:
		return s.lock(ctx, trip, req)

	case stage.SubmitDateWindow:
		start, end, err := dateRange(req.StartDate, req.EndDate)
		if err != nil {
			return domain.Trip{}, err
		}
		_, err = s.scheduling.AddWindow(ctx, domain.DateWindow{
			TripID: trip.ID, ProposedBy: req.Actor, StartDate: start, EndDate: end,
		})
		return s.reload(ctx, trip, err)

	case stage.SupportWindow:
		if req.WindowID == uuid.Nil {
			return domain.Trip{}, fmt.Errorf("%w: window_id is required", domain.ErrValidation)
		}
		return s.reload(ctx, trip, s.scheduling.AddSupport(ctx, trip.ID, req.WindowID, req.Actor))

	case stage.ProposeDates:
		return s.propose(ctx, trip, req)

	case stage.WithdrawProposal:
		return s.trips.ClearProposal(ctx, trip.ID)

	case stage.SubmitDatePicks:
		if len(req.DatePicks) > 3 {
			return domain.Trip{}, fmt.Errorf("%w: at most 3 date picks", domain.ErrValidation)
		}
		seen := map[int]bool{}
		picks := make([]domain.DatePick, 0, len(req.DatePicks))
		for _, p := range req.DatePicks {
			if p.Rank < 1 || p.Rank > 3 || seen[p.Rank] {
				return domain.Trip{}, fmt.Errorf("%w: ranks must be distinct values 1 to 3", domain.ErrValidation)
			}
			seen[p.Rank] = true
			if p.EndDate.Before(p.StartDate) {
				return domain.Trip{}, fmt.Errorf("%w: end_date must not be before start_date", domain.ErrValidation)
			}
			p.TripID, p.UserID = trip.ID, req.Actor
			picks = append(picks, p)
		}
		return s.reload(ctx, trip, s.scheduling.ReplaceDatePicks(ctx, trip.ID, req.Actor, picks))

	case stage.SubmitAvailability:
		days := make([]domain.Availability, len(req.Days))
		for i, d := range req.Days {
			days[i] = domain.Availability{TripID: trip.ID, UserID: req.Actor, Day: d, Status: "available"}
		}
		return s.reload(ctx, trip, s.scheduling.ReplaceAvailability(ctx, trip.ID, req.Actor, days))
	}
	return domain.Trip{}, fmt.Errorf("%w: unsupported action %q", domain.ErrValidation, req.Action)
}

// lock takes the dates from the request, or else from the first window of
// the active proposal.
func (s *TripService) lock(ctx context.Context, trip domain.Trip, req ActionRequest) (domain.Trip, error) {
	from := []domain.Status{domain.StatusProposed, domain.StatusScheduling, domain.StatusVoting}
	if req.StartDate != nil || req.EndDate != nil {
		start, end, err := dateRange(req.StartDate, req.EndDate)
		if err != nil {
			return domain.Trip{}, err
		}
		return s.trips.Lock(ctx, trip.ID, from, start, end)
	}

	proposal := trip.ActiveProposal()
	if len(proposal) == 0 {
		return domain.Trip{}, fmt.Errorf("%w: start_date and end_date are required when no proposal is active", domain.ErrValidation)
	}
	ev, err := s.evidence.Load(ctx, []uuid.UUID{trip.ID})
	if err != nil {
		return domain.Trip{}, err
	}
	for _, w := range ev.For(trip.ID).Windows {
		if w.ID == proposal[0] {
			return s.trips.Lock(ctx, trip.ID, from, w.StartDate, w.EndDate)
		}
	}
	return domain.Trip{}, fmt.Errorf("proposed window %s: %w", proposal[0], domain.ErrNotFound)
}

// propose records a proposal once the readiness threshold is met, or
// unconditionally when the leader overrides it.
func (s *TripService) propose(ctx context.Context, trip domain.Trip, req ActionRequest) (domain.Trip, error) {
	ev, err := s.evidence.Load(ctx, []uuid.UUID{trip.ID})
	if err != nil {
		return domain.Trip{}, err
	}
	members, err := s.circles.ListMembers(ctx, []uuid.UUID{trip.CircleID})
	if err != nil {
		return domain.Trip{}, err
	}
	te := ev.For(trip.ID)
	travelers := s.builder.Travelers(trip, members, te.Participants)

	if !consensus.CanPropose(trip, travelers, te.Windows, te.Supports, req.LeaderOverride) {
		r := consensus.Compute(trip, travelers, te.Windows, te.Supports)
		return domain.Trip{}, &domain.RejectionError{
			Status: http.StatusConflict,
			Code:   CodeInsufficientSupport,
			Message: fmt.Sprintf("the leading window has %d of %d supporters needed",
				r.LeaderCount, r.Stats.ThresholdNeeded),
		}
	}

	ids := req.WindowIDs
	if len(ids) == 0 {
		r := consensus.Compute(trip, travelers, te.Windows, te.Supports)
		if r.LeadingWindow == nil {
			return domain.Trip{}, fmt.Errorf("%w: no windows to propose", domain.ErrValidation)
		}
		ids = []uuid.UUID{r.LeadingWindow.WindowID}
	}
	known := make(map[uuid.UUID]bool, len(te.Windows))
	for _, w := range te.Windows {
		known[w.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return domain.Trip{}, fmt.Errorf("%w: window %s does not belong to this trip", domain.ErrValidation, id)
		}
	}
	return s.trips.SetProposal(ctx, trip.ID, ids)
}

// reload returns the trip as stored after an evidence write.
func (s *TripService) reload(ctx context.Context, trip domain.Trip, err error) (domain.Trip, error) {
	if err != nil {
		return domain.Trip{}, err
	}
	return s.trips.GetByID(ctx, trip.ID)
}

func dateRange(start, end *time.Time) (time.Time, time.Time, error) {
	if start == nil || end == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date and end_date are required", domain.ErrValidation)
	}
	if end.Before(*start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date must not be before start_date", domain.ErrValidation)
	}
	return *start, *end, nil
}
