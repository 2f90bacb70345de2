// Package pending derives what a single user still owes on a single trip.
//
// Derive returns the structured list used by cards and the notification feed;
// ActionRequired is the narrower boolean behind the "your turn" badge. Both
// are pure and degrade to "nothing owed" on missing evidence.
package pending

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/stage"
)

// Action labels shown to users.
const (
	LabelAddDates        = "Add your dates"
	LabelShareDates      = "Share your dates"
	LabelMarkAvailable   = "Mark availability"
	LabelVote            = "Vote on dates"
	LabelFinalize        = "Finalize dates"
	LabelJoin            = "Join trip"
	LabelGenerateItin    = "Generate itinerary"
	LabelReviewItinDraft = "Review itinerary draft"
)

// Input is everything Derive and ActionRequired read for one (trip, user) pair.
// Collections may hold records for other users; only the trip's own records
// are expected.
type Input struct {
	Trip   domain.Trip
	UserID uuid.UUID
	// Role is the user's role in the trip's circle. An owner is a leader.
	Role domain.Role
	// UserDatePicks are the user's own top3_heatmap picks.
	UserDatePicks []domain.DatePick
	// UserVote is the user's ballot, or nil if they have not voted.
	UserVote *domain.Vote
	// IsParticipant reports an active participant record (hosted trips).
	IsParticipant  bool
	Availabilities []domain.Availability
	Votes          []domain.Vote
	// IsTraveler is the resolved traveler flag for this user.
	IsTraveler bool
	Windows    []domain.DateWindow
	Supports   []domain.WindowSupport
}

func (in Input) leader() bool {
	return in.Role == domain.RoleOwner || stage.IsLeader(in.Trip, in.UserID, nil)
}

func (in Input) hasVoted() bool {
	if in.UserVote != nil {
		return true
	}
	return slices.ContainsFunc(in.Votes, func(v domain.Vote) bool { return v.UserID == in.UserID })
}

// hasScheduled reports whether the user has weighed in on dates in the
// trip's scheduling mode.
func (in Input) hasScheduled() bool {
	switch in.Trip.Mode() {
	case domain.ModeDateWindows:
		suggested := slices.ContainsFunc(in.Windows, func(w domain.DateWindow) bool { return w.ProposedBy == in.UserID })
		supported := slices.ContainsFunc(in.Supports, func(s domain.WindowSupport) bool { return s.UserID == in.UserID })
		return suggested || supported
	case domain.ModeTop3Heatmap:
		return len(in.UserDatePicks) > 0
	default:
		return slices.ContainsFunc(in.Availabilities, func(a domain.Availability) bool { return a.UserID == in.UserID })
	}
}

func schedulingLabel(mode domain.SchedulingMode) string {
	switch mode {
	case domain.ModeDateWindows:
		return LabelAddDates
	case domain.ModeTop3Heatmap:
		return LabelShareDates
	default:
		return LabelMarkAvailable
	}
}

// Derive returns the user's pending actions on the trip, most urgent first.
// The result is never nil.
func Derive(in Input) []domain.PendingAction {
	out := []domain.PendingAction{}
	if in.Trip.IsTerminal() {
		return out
	}

	t := in.Trip
	ts := timestamp(t)
	href := "/trips/" + t.ID.String()
	add := func(typ domain.ActionType, prio int, label, suffix string) {
		out = append(out, domain.PendingAction{
			Type:      typ,
			Priority:  prio,
			Label:     label,
			Href:      href + suffix,
			Timestamp: ts,
		})
	}

	phase := t.Phase()
	if t.Type == domain.TripHosted {
		if !in.IsParticipant && phase != domain.StatusLocked {
			add(domain.ActionOtherInput, 2, LabelJoin, "")
		}
		if in.leader() {
			switch {
			case phase == domain.StatusLocked && t.ItineraryStatus == domain.ItineraryCollectingIdeas:
				add(domain.ActionItineraryReview, 3, LabelGenerateItin, "/itinerary")
			case t.ItineraryStatus == domain.ItineraryDrafting:
				add(domain.ActionItineraryReview, 3, LabelReviewItinDraft, "/itinerary")
			}
		}
		return sortByPriority(out)
	}

	switch phase {
	case domain.StatusProposed, domain.StatusScheduling:
		if in.IsTraveler && !in.hasScheduled() {
			add(domain.ActionSchedulingRequired, 1, schedulingLabel(t.Mode()), "/schedule")
		}
	case domain.StatusVoting:
		if in.IsTraveler && !in.hasVoted() {
			add(domain.ActionDateVote, 2, LabelVote, "/vote")
		}
		// Available as soon as any vote exists; no quorum is required here.
		if in.leader() && len(in.Votes) > 0 {
			add(domain.ActionOtherInput, 2, LabelFinalize, "/vote")
		}
	}
	return sortByPriority(out)
}

// ActionRequired reports whether the user has a scheduling or voting step to
// take. Unlike Derive it ignores the leader's finalize step and hosted trips.
func ActionRequired(in Input) bool {
	if !in.IsTraveler || in.Trip.Type == domain.TripHosted {
		return false
	}
	switch in.Trip.Phase() {
	case domain.StatusProposed, domain.StatusScheduling:
		return !in.hasScheduled()
	case domain.StatusVoting:
		return !in.hasVoted()
	default:
		return false
	}
}

func timestamp(t domain.Trip) time.Time {
	if !t.UpdatedAt.IsZero() {
		return t.UpdatedAt
	}
	return t.CreatedAt
}

func sortByPriority(actions []domain.PendingAction) []domain.PendingAction {
	slices.SortStableFunc(actions, func(a, b domain.PendingAction) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return actions
}
