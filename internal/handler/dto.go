package handler

import (
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/tripcircle/coordinator/internal/domain"
)

// Trip dates are calendar days on the wire, not instants. These types mirror
// the domain views with openapi_types.Date in place of time.Time for them.

// TripCard is the wire form of domain.TripCard.
type TripCard struct {
	ID              uuid.UUID              `json:"id"`
	CircleID        uuid.UUID              `json:"circle_id"`
	Name            string                 `json:"name"`
	Status          domain.Status          `json:"status"`
	Type            domain.TripType        `json:"type"`
	CreatedBy       uuid.UUID              `json:"created_by"`
	StartDate       *openapi_types.Date    `json:"start_date"`
	EndDate         *openapi_types.Date    `json:"end_date"`
	LockedStartDate *openapi_types.Date    `json:"locked_start_date,omitempty"`
	LockedEndDate   *openapi_types.Date    `json:"locked_end_date,omitempty"`
	ItineraryStatus domain.ItineraryStatus `json:"itinerary_status,omitempty"`
	TravelerCount   int                    `json:"traveler_count"`
	LatestActivity  *domain.Activity       `json:"latest_activity"`
	PendingActions  []domain.PendingAction `json:"pending_actions"`
	ActionRequired  bool                   `json:"action_required"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// CircleCard is the wire form of domain.CircleCard.
type CircleCard struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
	Trips []TripCard  `json:"trips"`
}

// Dashboard is the body of GET /dashboard.
type Dashboard struct {
	Circles             []CircleCard          `json:"circles"`
	GlobalNotifications []domain.Notification `json:"global_notifications"`
}

// Trip is the body returned after an action is applied.
type Trip struct {
	ID                uuid.UUID              `json:"id"`
	CircleID          uuid.UUID              `json:"circle_id"`
	CreatedBy         uuid.UUID              `json:"created_by"`
	Name              string                 `json:"name"`
	Type              domain.TripType        `json:"type"`
	Status            domain.Status          `json:"status"`
	SchedulingMode    domain.SchedulingMode  `json:"scheduling_mode"`
	StartDate         *openapi_types.Date    `json:"start_date,omitempty"`
	EndDate           *openapi_types.Date    `json:"end_date,omitempty"`
	LockedStartDate   *openapi_types.Date    `json:"locked_start_date,omitempty"`
	LockedEndDate     *openapi_types.Date    `json:"locked_end_date,omitempty"`
	ProposedWindowIDs []uuid.UUID            `json:"proposed_window_ids"`
	ItineraryStatus   domain.ItineraryStatus `json:"itinerary_status,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// DatePick is one ranked pick in an action request.
type DatePick struct {
	Rank      int                `json:"rank"`
	StartDate openapi_types.Date `json:"start_date"`
	EndDate   openapi_types.Date `json:"end_date"`
}

// ActionBody is the request body of POST /trips/{tripID}/actions/{action}.
// Each action reads only its own fields.
type ActionBody struct {
	OptionKey      string               `json:"option_key,omitempty"`
	VoterName      string               `json:"voter_name,omitempty"`
	StartDate      *openapi_types.Date  `json:"start_date,omitempty"`
	EndDate        *openapi_types.Date  `json:"end_date,omitempty"`
	WindowID       *uuid.UUID           `json:"window_id,omitempty"`
	WindowIDs      []uuid.UUID          `json:"window_ids,omitempty"`
	LeaderOverride bool                 `json:"leader_override,omitempty"`
	DatePicks      []DatePick           `json:"date_picks,omitempty"`
	Days           []openapi_types.Date `json:"days,omitempty"`
}

func toDate(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

func fromDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func cardToResponse(c domain.TripCard) TripCard {
	return TripCard{
		ID:              c.ID,
		CircleID:        c.CircleID,
		Name:            c.Name,
		Status:          c.Status,
		Type:            c.Type,
		CreatedBy:       c.CreatedBy,
		StartDate:       toDate(c.StartDate),
		EndDate:         toDate(c.EndDate),
		LockedStartDate: toDate(c.LockedStartDate),
		LockedEndDate:   toDate(c.LockedEndDate),
		ItineraryStatus: c.ItineraryStatus,
		TravelerCount:   c.TravelerCount,
		LatestActivity:  c.LatestActivity,
		PendingActions:  c.PendingActions,
		ActionRequired:  c.ActionRequired,
		UpdatedAt:       c.UpdatedAt,
	}
}

func dashboardToResponse(d domain.Dashboard) Dashboard {
	out := Dashboard{
		Circles:             make([]CircleCard, len(d.Circles)),
		GlobalNotifications: d.GlobalNotifications,
	}
	if out.GlobalNotifications == nil {
		out.GlobalNotifications = []domain.Notification{}
	}
	for i, c := range d.Circles {
		trips := make([]TripCard, len(c.Trips))
		for j, t := range c.Trips {
			trips[j] = cardToResponse(t)
		}
		out.Circles[i] = CircleCard{ID: c.ID, Name: c.Name, Role: c.Role, Trips: trips}
	}
	return out
}

func tripToResponse(t domain.Trip) Trip {
	resp := Trip{
		ID:                t.ID,
		CircleID:          t.CircleID,
		CreatedBy:         t.CreatedBy,
		Name:              t.Name,
		Type:              t.Type,
		Status:            t.Phase(),
		SchedulingMode:    t.Mode(),
		StartDate:         toDate(t.StartDate),
		EndDate:           toDate(t.EndDate),
		LockedStartDate:   toDate(t.LockedStartDate),
		LockedEndDate:     toDate(t.LockedEndDate),
		ProposedWindowIDs: t.ActiveProposal(),
		ItineraryStatus:   t.ItineraryStatus,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
	if resp.ProposedWindowIDs == nil {
		resp.ProposedWindowIDs = []uuid.UUID{}
	}
	return resp
}
