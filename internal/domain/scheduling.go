package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateWindow is a candidate date range suggested by a member of a
// collaborative trip in date_windows mode.
type DateWindow struct {
	ID         uuid.UUID `json:"id"`
	TripID     uuid.UUID `json:"trip_id"`
	ProposedBy uuid.UUID `json:"proposed_by"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// WindowSupport is one user's endorsement of one DateWindow.
// Uniqueness per (window, user) is enforced by the store, not by the engine.
type WindowSupport struct {
	TripID    uuid.UUID `json:"trip_id"`
	WindowID  uuid.UUID `json:"window_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote is one user's ballot for a date option while the trip is voting.
type Vote struct {
	TripID    uuid.UUID `json:"trip_id"`
	UserID    uuid.UUID `json:"user_id"`
	OptionKey string    `json:"option_key"`
	VoterName string    `json:"voter_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DatePick is one of a user's ranked date choices in top3_heatmap mode.
type DatePick struct {
	TripID    uuid.UUID `json:"trip_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rank      int       `json:"rank"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Availability is a single day a user marked in the legacy availability mode.
type Availability struct {
	TripID uuid.UUID `json:"trip_id"`
	UserID uuid.UUID `json:"user_id"`
	Day    time.Time `json:"day"`
	Status string    `json:"status"`
}

// Message is a trip chat message. Only the newest one per trip is read, as
// the card's latest activity.
type Message struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	UserID    uuid.UUID `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// JoinRequestStatus tracks a request to join a hosted trip.
type JoinRequestStatus string

const (
	JoinPending  JoinRequestStatus = "pending"
	JoinApproved JoinRequestStatus = "approved"
	JoinDeclined JoinRequestStatus = "declined"
)

// JoinRequest is a user's request to be added to a trip.
type JoinRequest struct {
	ID          uuid.UUID         `json:"id"`
	TripID      uuid.UUID         `json:"trip_id"`
	RequesterID uuid.UUID         `json:"requester_id"`
	Status      JoinRequestStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}
