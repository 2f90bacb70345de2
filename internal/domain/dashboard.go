package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies a pending action.
type ActionType string

const (
	ActionSchedulingRequired ActionType = "scheduling_required"
	ActionDateVote           ActionType = "date_vote"
	ActionItineraryReview    ActionType = "itinerary_review"
	ActionOtherInput         ActionType = "other_input"
)

// PendingAction is a computed task a user still owes on one trip.
// It is never persisted; it is recomputed on every read.
// Priority 1 is the most urgent.
type PendingAction struct {
	Type      ActionType `json:"type"`
	Priority  int        `json:"priority"`
	Label     string     `json:"label"`
	Href      string     `json:"href"`
	Timestamp time.Time  `json:"timestamp"`
}

// Activity is the most recent trip message shown on a card.
type Activity struct {
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TripCard is the display-ready view of one trip for one viewer.
// StartDate and EndDate are the effective dates (locked when present).
type TripCard struct {
	ID              uuid.UUID       `json:"id"`
	CircleID        uuid.UUID       `json:"circle_id"`
	Name            string          `json:"name"`
	Status          Status          `json:"status"`
	Type            TripType        `json:"type"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	LockedStartDate *time.Time      `json:"locked_start_date,omitempty"`
	LockedEndDate   *time.Time      `json:"locked_end_date,omitempty"`
	ItineraryStatus ItineraryStatus `json:"itinerary_status,omitempty"`
	TravelerCount   int             `json:"traveler_count"`
	LatestActivity  *Activity       `json:"latest_activity,omitempty"`
	PendingActions  []PendingAction `json:"pending_actions"`
	ActionRequired  bool            `json:"action_required"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LastActivityAt is the card's recency: the latest message, else the trip's
// last update.
func (c TripCard) LastActivityAt() time.Time {
	if c.LatestActivity != nil && c.LatestActivity.CreatedAt.After(c.UpdatedAt) {
		return c.LatestActivity.CreatedAt
	}
	return c.UpdatedAt
}

// MinPriority returns the most urgent action priority, and false when the card
// has no pending actions.
func (c TripCard) MinPriority() (int, bool) {
	if len(c.PendingActions) == 0 {
		return 0, false
	}
	min := c.PendingActions[0].Priority
	for _, a := range c.PendingActions[1:] {
		if a.Priority < min {
			min = a.Priority
		}
	}
	return min, true
}

// CircleCard groups a user's visible trips in one circle.
type CircleCard struct {
	ID    uuid.UUID  `json:"id"`
	Name  string     `json:"name"`
	Role  Role       `json:"role"`
	Trips []TripCard `json:"trips"`
}

// NotificationKind distinguishes feed entries derived from pending actions
// from those derived from join requests.
type NotificationKind string

const (
	NotifyPendingAction NotificationKind = "pending_action"
	NotifyJoinRequest   NotificationKind = "join_request"
)

// Notification is one entry in a user's cross-trip feed.
type Notification struct {
	ID         string           `json:"id"`
	Kind       NotificationKind `json:"kind"`
	Type       ActionType       `json:"type"`
	Priority   int              `json:"priority"`
	Title      string           `json:"title"`
	TripID     uuid.UUID        `json:"trip_id"`
	TripName   string           `json:"trip_name"`
	CircleID   uuid.UUID        `json:"circle_id"`
	CircleName string           `json:"circle_name"`
	Href       string           `json:"href"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Dashboard is everything one user needs to see across all their circles.
type Dashboard struct {
	Circles             []CircleCard   `json:"circles"`
	GlobalNotifications []Notification `json:"global_notifications"`
}

// TripEvidence is every collection the engine reads for a single trip.
type TripEvidence struct {
	Votes          []Vote
	Participants   []Participant
	DatePicks      []DatePick
	Availabilities []Availability
	Windows        []DateWindow
	Supports       []WindowSupport
	JoinRequests   []JoinRequest
	LatestMessage  *Message
}

// Evidence indexes TripEvidence by trip ID.
type Evidence map[uuid.UUID]TripEvidence

// For returns the evidence for one trip, or the zero value when none was loaded.
func (e Evidence) For(tripID uuid.UUID) TripEvidence {
	return e[tripID]
}
