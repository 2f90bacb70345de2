package service

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/stage"
)

// Join requests surface to trip leaders as an "other input" notification.
const (
	joinRequestPriority = 2
	joinRequestTitle    = "Review join request"
)

// BuildNotifications flattens the viewer's dashboard into one feed.
//
// Each trip card with pending actions contributes its most urgent action.
// Each pending join request on a trip the viewer leads contributes one entry.
// The feed is ordered by priority, then newest first, then by ID.
func BuildNotifications(viewerID uuid.UUID, circles []domain.CircleCard, owners map[uuid.UUID]domain.Circle, ev domain.Evidence) []domain.Notification {
	out := []domain.Notification{}
	for _, cc := range circles {
		circle := owners[cc.ID]
		for _, card := range cc.Trips {
			if top, ok := topAction(card); ok {
				out = append(out, domain.Notification{
					ID:         "action:" + card.ID.String(),
					Kind:       domain.NotifyPendingAction,
					Type:       top.Type,
					Priority:   top.Priority,
					Title:      top.Label,
					TripID:     card.ID,
					TripName:   card.Name,
					CircleID:   cc.ID,
					CircleName: cc.Name,
					Href:       top.Href,
					Timestamp:  top.Timestamp,
				})
			}

			trip := domain.Trip{ID: card.ID, CircleID: card.CircleID, CreatedBy: card.CreatedBy}
			if !stage.IsLeader(trip, viewerID, &circle) {
				continue
			}
			for _, jr := range ev.For(card.ID).JoinRequests {
				if jr.Status != domain.JoinPending {
					continue
				}
				out = append(out, domain.Notification{
					ID:         "join:" + jr.ID.String(),
					Kind:       domain.NotifyJoinRequest,
					Type:       domain.ActionOtherInput,
					Priority:   joinRequestPriority,
					Title:      joinRequestTitle,
					TripID:     card.ID,
					TripName:   card.Name,
					CircleID:   cc.ID,
					CircleName: cc.Name,
					Href:       fmt.Sprintf("/trips/%s/requests", card.ID),
					Timestamp:  jr.CreatedAt,
				})
			}
		}
	}

	slices.SortStableFunc(out, lexicographic(
		func(a, b domain.Notification) int { return cmp.Compare(a.Priority, b.Priority) },
		func(a, b domain.Notification) int { return descTime(a.Timestamp, b.Timestamp) },
		func(a, b domain.Notification) int { return strings.Compare(a.ID, b.ID) },
	))
	return out
}

// topAction returns the card's most urgent action. Pending actions are
// already sorted by priority, so the first one wins ties.
func topAction(card domain.TripCard) (domain.PendingAction, bool) {
	if len(card.PendingActions) == 0 {
		return domain.PendingAction{}, false
	}
	best := card.PendingActions[0]
	for _, a := range card.PendingActions[1:] {
		if a.Priority < best.Priority {
			best = a
		}
	}
	return best, true
}
