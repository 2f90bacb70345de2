// Package consensus decides when a date window has enough support to be
// proposed. Everything here is pure and never errors: missing evidence
// degrades to "not ready".
package consensus

import (
	"bytes"
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/domain"
)

// Reason explains a Readiness outcome.
type Reason string

const (
	ReasonNoWindows           Reason = "no_windows"
	ReasonThresholdMet        Reason = "threshold_met"
	ReasonInsufficientSupport Reason = "insufficient_support"
)

// smallGroupMax is the largest group that needs a majority of all travelers.
// Larger groups need a majority of responders, never fewer than largeGroupFloor.
const (
	smallGroupMax   = 10
	largeGroupFloor = 5
)

// Tally is the support count for one window.
type Tally struct {
	WindowID     uuid.UUID   `json:"window_id"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      time.Time   `json:"end_date"`
	CreatedAt    time.Time   `json:"created_at"`
	SupportCount int         `json:"support_count"`
	UserIDs      []uuid.UUID `json:"user_ids"`
}

// Stats are returned with every Readiness, including no_windows, so a UI can
// show how far the group is from the threshold.
type Stats struct {
	TotalTravelers  int `json:"total_travelers"`
	Responders      int `json:"responders"`
	ThresholdNeeded int `json:"threshold_needed"`
	WindowCount     int `json:"window_count"`
}

// Readiness is the result of Compute.
type Readiness struct {
	ProposalReady bool        `json:"proposal_ready"`
	Reason        Reason      `json:"reason"`
	LeadingWindow *Tally      `json:"leading_window,omitempty"`
	LeaderCount   int         `json:"leader_count"`
	LeaderUserIDs []uuid.UUID `json:"leader_user_ids"`
	RunnerUp      *Tally      `json:"runner_up,omitempty"`
	Tied          bool        `json:"tied"`
	Stats         Stats       `json:"stats"`
}

// Threshold returns the support count a window needs to be proposable.
//
// Groups of up to ten need a strict majority of all travelers. Larger groups
// need half the responders, rounded up, and never fewer than five.
func Threshold(totalTravelers, responders int) int {
	if totalTravelers <= smallGroupMax {
		return totalTravelers/2 + 1
	}
	return max(largeGroupFloor, (responders+1)/2)
}

// Compute tallies window supports and reports whether the leading window has
// met the threshold. Supports naming a window that is not in windows are
// ignored; duplicate supports are counted as given.
func Compute(trip domain.Trip, travelers []uuid.UUID, windows []domain.DateWindow, supports []domain.WindowSupport) Readiness {
	total := countDistinct(travelers)

	tallies := Tallies(windows, supports)
	responders := make(map[uuid.UUID]struct{})
	known := make(map[uuid.UUID]struct{}, len(windows))
	for _, w := range windows {
		known[w.ID] = struct{}{}
	}
	for _, s := range supports {
		if _, ok := known[s.WindowID]; ok {
			responders[s.UserID] = struct{}{}
		}
	}

	stats := Stats{
		TotalTravelers:  total,
		Responders:      len(responders),
		ThresholdNeeded: Threshold(total, len(responders)),
		WindowCount:     len(windows),
	}
	out := Readiness{Reason: ReasonNoWindows, LeaderUserIDs: []uuid.UUID{}, Stats: stats}
	if len(tallies) == 0 {
		return out
	}

	lead := tallies[0]
	out.LeadingWindow = &lead
	out.LeaderCount = lead.SupportCount
	out.LeaderUserIDs = lead.UserIDs
	if len(tallies) > 1 {
		runner := tallies[1]
		out.RunnerUp = &runner
		out.Tied = runner.SupportCount == lead.SupportCount
	}
	out.ProposalReady = lead.SupportCount >= stats.ThresholdNeeded
	if out.ProposalReady {
		out.Reason = ReasonThresholdMet
	} else {
		out.Reason = ReasonInsufficientSupport
	}
	return out
}

// CanPropose reports whether the leader may propose the leading window.
// leaderOverride always succeeds, whatever the support count.
func CanPropose(trip domain.Trip, travelers []uuid.UUID, windows []domain.DateWindow, supports []domain.WindowSupport, leaderOverride bool) bool {
	if leaderOverride {
		return true
	}
	return Compute(trip, travelers, windows, supports).ProposalReady
}

// Tallies counts supports per window and returns them ordered by support
// count descending. Ties go to the window suggested first, then to the lower ID.
func Tallies(windows []domain.DateWindow, supports []domain.WindowSupport) []Tally {
	byID := make(map[uuid.UUID]*Tally, len(windows))
	out := make([]*Tally, 0, len(windows))
	for _, w := range windows {
		if _, dup := byID[w.ID]; dup {
			continue
		}
		t := &Tally{
			WindowID:  w.ID,
			StartDate: w.StartDate,
			EndDate:   w.EndDate,
			CreatedAt: w.CreatedAt,
			UserIDs:   []uuid.UUID{},
		}
		byID[w.ID] = t
		out = append(out, t)
	}
	for _, s := range supports {
		t, ok := byID[s.WindowID]
		if !ok {
			continue
		}
		t.SupportCount++
		if !slices.Contains(t.UserIDs, s.UserID) {
			t.UserIDs = append(t.UserIDs, s.UserID)
		}
	}

	slices.SortStableFunc(out, func(a, b *Tally) int {
		if c := cmp.Compare(b.SupportCount, a.SupportCount); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.WindowID[:], b.WindowID[:])
	})

	tallies := make([]Tally, len(out))
	for i, t := range out {
		tallies[i] = *t
	}
	return tallies
}

func countDistinct(ids []uuid.UUID) int {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
