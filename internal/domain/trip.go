// Package domain contains the core data types for the trip coordination engine.
// It has no dependencies on other internal packages and is imported by every
// other internal package (stage, consensus, pending, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripType distinguishes how a trip's dates are decided.
type TripType string

const (
	// TripCollaborative trips negotiate their dates as a group.
	TripCollaborative TripType = "collaborative"
	// TripHosted trips have leader-fixed dates that others opt into.
	TripHosted TripType = "hosted"
)

// Status is the legacy lifecycle field stored on every trip.
type Status string

const (
	StatusProposed   Status = "proposed"
	StatusScheduling Status = "scheduling"
	StatusVoting     Status = "voting"
	StatusLocked     Status = "locked"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// Rank orders statuses by how far the trip has progressed.
// Unknown statuses rank after every known one.
func (s Status) Rank() int {
	switch s {
	case StatusProposed:
		return 0
	case StatusScheduling:
		return 1
	case StatusVoting:
		return 2
	case StatusLocked:
		return 3
	case StatusCompleted:
		return 4
	case StatusCanceled:
		return 5
	default:
		return 6
	}
}

// Lifecycle is the newer lifecycle flag. When set to CANCELLED or COMPLETED it
// takes precedence over Status.
type Lifecycle string

const (
	LifecycleActive    Lifecycle = "ACTIVE"
	LifecycleCancelled Lifecycle = "CANCELLED"
	LifecycleCompleted Lifecycle = "COMPLETED"
)

// SchedulingMode selects which evidence counts as "this user has weighed in on dates".
// The empty value is the legacy availability mode.
type SchedulingMode string

const (
	ModeAvailability SchedulingMode = "availability"
	ModeTop3Heatmap  SchedulingMode = "top3_heatmap"
	ModeDateWindows  SchedulingMode = "date_windows"
)

// ItineraryStatus is owned by the itinerary feature; this engine only reads it.
type ItineraryStatus string

const (
	ItineraryCollectingIdeas ItineraryStatus = "collecting_ideas"
	ItineraryDrafting        ItineraryStatus = "drafting"
	ItineraryPublished       ItineraryStatus = "published"
)

// WindowsPhase is the date-windows sub-phase, derived from the proposal pointers.
type WindowsPhase string

const (
	WindowsCollecting WindowsPhase = "COLLECTING"
	WindowsProposed   WindowsPhase = "PROPOSED"
	WindowsLocked     WindowsPhase = "LOCKED"
)

// Trip is a proposed or confirmed group journey owned by a circle.
//
// Status and Lifecycle are both persisted for compatibility with older rows;
// callers should read the canonical value through Phase rather than either field.
// The same holds for ProposedWindowID and ProposedWindowIDs: use ActiveProposal.
type Trip struct {
	ID                uuid.UUID       `json:"id"`
	CircleID          uuid.UUID       `json:"circle_id"`
	CreatedBy         uuid.UUID       `json:"created_by"`
	Name              string          `json:"name"`
	Type              TripType        `json:"type"`
	Status            Status          `json:"status,omitempty"`
	Lifecycle         Lifecycle       `json:"trip_status,omitempty"`
	SchedulingMode    SchedulingMode  `json:"scheduling_mode,omitempty"`
	StartDate         *time.Time      `json:"start_date,omitempty"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	LockedStartDate   *time.Time      `json:"locked_start_date,omitempty"`
	LockedEndDate     *time.Time      `json:"locked_end_date,omitempty"`
	ProposedWindowID  *uuid.UUID      `json:"proposed_window_id,omitempty"`
	ProposedWindowIDs []uuid.UUID     `json:"proposed_window_ids,omitempty"`
	ItineraryStatus   ItineraryStatus `json:"itinerary_status,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Phase returns the canonical status of the trip. A CANCELLED or COMPLETED
// lifecycle flag wins over the legacy field, and a trip with no status falls
// back to locked (hosted) or proposed (collaborative).
func (t Trip) Phase() Status {
	switch t.Lifecycle {
	case LifecycleCancelled:
		return StatusCanceled
	case LifecycleCompleted:
		return StatusCompleted
	}
	if t.Status != "" {
		return t.Status
	}
	if t.Type == TripHosted {
		return StatusLocked
	}
	return StatusProposed
}

// IsTerminal reports whether the trip is canceled or completed by either field.
func (t Trip) IsTerminal() bool {
	p := t.Phase()
	return p == StatusCanceled || p == StatusCompleted
}

// Mode returns the scheduling mode, mapping the empty value to legacy availability.
func (t Trip) Mode() SchedulingMode {
	if t.SchedulingMode == "" {
		return ModeAvailability
	}
	return t.SchedulingMode
}

// ActiveProposal merges the legacy single proposal pointer with the list form.
// The result is deduplicated and keeps first-seen order; nil means no proposal.
func (t Trip) ActiveProposal() []uuid.UUID {
	var out []uuid.UUID
	seen := make(map[uuid.UUID]struct{}, len(t.ProposedWindowIDs)+1)
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if t.ProposedWindowID != nil {
		add(*t.ProposedWindowID)
	}
	for _, id := range t.ProposedWindowIDs {
		add(id)
	}
	return out
}

// HasActiveProposal reports whether at least one window is currently proposed.
func (t Trip) HasActiveProposal() bool {
	return len(t.ActiveProposal()) > 0
}

// WindowsPhase derives the date-windows sub-phase. Locked is absorbing: a
// locked trip never reports COLLECTING or PROPOSED again.
func (t Trip) WindowsPhase() WindowsPhase {
	if t.Phase() == StatusLocked {
		return WindowsLocked
	}
	if t.HasActiveProposal() {
		return WindowsProposed
	}
	return WindowsCollecting
}

// EffectiveStart prefers the locked start date over the proposed one.
func (t Trip) EffectiveStart() *time.Time {
	if t.LockedStartDate != nil {
		return t.LockedStartDate
	}
	return t.StartDate
}

// EffectiveEnd prefers the locked end date over the proposed one.
func (t Trip) EffectiveEnd() *time.Time {
	if t.LockedEndDate != nil {
		return t.LockedEndDate
	}
	return t.EndDate
}
