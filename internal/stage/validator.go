// Package stage decides which trip actions are legal in which phase.
// Validate is pure: it reads the trip and returns a Result, and callers
// perform the mutation themselves.
package stage

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/domain"
)

// Action names a requested state change on a trip.
type Action string

const (
	SubmitAvailability Action = "submit_availability"
	SubmitDatePicks    Action = "submit_date_picks"
	OpenVoting         Action = "open_voting"
	Vote               Action = "vote"
	Lock               Action = "lock"
	SubmitDateWindow   Action = "submit_date_window"
	SupportWindow      Action = "support_window"
	ProposeDates       Action = "propose_dates"
	WithdrawProposal   Action = "withdraw_proposal"
)

// Rejection codes carried in Result.Code.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeTripInactive   = "TRIP_INACTIVE"
	CodeUnknownAction  = "UNKNOWN_ACTION"
	CodeForbidden      = "FORBIDDEN"
	CodeStageBlocked   = "STAGE_BLOCKED"
	CodeProposalActive = "PROPOSAL_ACTIVE"
)

// Actions lists every action the validator recognises, in a stable order.
var Actions = []Action{
	SubmitAvailability, SubmitDatePicks, OpenVoting, Vote, Lock,
	SubmitDateWindow, SupportWindow, ProposeDates, WithdrawProposal,
}

// leaderOnly maps each leader-gated action to its permission message.
var leaderOnly = map[Action]string{
	OpenVoting:       "only the trip leader can open voting",
	Lock:             "only the trip leader can lock dates",
	ProposeDates:     "only the trip leader can propose dates",
	WithdrawProposal: "only the trip leader can withdraw a proposal",
}

// Known reports whether a is a recognised action name.
func (a Action) Known() bool {
	for _, k := range Actions {
		if a == k {
			return true
		}
	}
	return false
}

// Result is the outcome of Validate. When OK is false, Status, Code and
// Message map directly onto an HTTP status and error body.
type Result struct {
	OK      bool   `json:"ok"`
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Err converts a rejected Result into a *domain.RejectionError.
// It returns nil for an accepted Result.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &domain.RejectionError{Status: r.Status, Code: r.Code, Message: r.Message}
}

func allow() Result {
	return Result{OK: true, Status: http.StatusOK}
}

func reject(status int, code, msg string) Result {
	return Result{Status: status, Code: code, Message: msg}
}

// IsLeader reports whether userID may perform leader-only actions on the trip:
// the trip's creator, or the owner of its circle. circle may be nil.
func IsLeader(trip domain.Trip, userID uuid.UUID, circle *domain.Circle) bool {
	if userID == uuid.Nil {
		return false
	}
	if trip.CreatedBy == userID {
		return true
	}
	return circle != nil && circle.OwnerID == userID
}

// Validate decides whether actorID may perform action on trip right now.
//
// Checks run in a fixed order: existence, terminal state, action name,
// leadership, then per-action phase legality. A canceled or completed trip
// rejects every action, whichever status field marks it.
func Validate(trip *domain.Trip, action Action, actorID uuid.UUID, circle *domain.Circle) Result {
	if trip == nil {
		return reject(http.StatusNotFound, CodeNotFound, "trip not found")
	}
	if trip.IsTerminal() {
		return reject(http.StatusConflict, CodeTripInactive,
			"trip is "+string(trip.Phase())+" and can no longer change")
	}
	if !action.Known() {
		return reject(http.StatusBadRequest, CodeUnknownAction, "unknown action: "+string(action))
	}
	if msg, ok := leaderOnly[action]; ok && !IsLeader(*trip, actorID, circle) {
		return reject(http.StatusForbidden, CodeForbidden, msg)
	}
	return legal(*trip, action)
}

func legal(trip domain.Trip, action Action) Result {
	phase := trip.Phase()
	locked := phase == domain.StatusLocked
	proposing := trip.HasActiveProposal()

	switch action {
	case SubmitAvailability:
		if phase == domain.StatusVoting || locked {
			return blocked("availability can no longer be changed once voting has opened")
		}
	case SubmitDatePicks:
		if locked {
			return blocked("dates are already locked")
		}
	case OpenVoting:
		if phase != domain.StatusProposed && phase != domain.StatusScheduling {
			return blocked("voting can only be opened while the trip is being scheduled")
		}
	case Vote:
		if phase != domain.StatusVoting {
			return blocked("voting is not open")
		}
	case Lock:
		if locked {
			return blocked("dates are already locked")
		}
	case SubmitDateWindow, SupportWindow:
		if locked {
			return blocked("dates are already locked")
		}
		if proposing {
			return reject(http.StatusConflict, CodeProposalActive,
				"a proposal is active; windows cannot change until it is withdrawn")
		}
	case ProposeDates:
		if locked {
			return blocked("dates are already locked")
		}
		if proposing {
			return reject(http.StatusConflict, CodeProposalActive,
				"a proposal is already active; withdraw it first")
		}
	case WithdrawProposal:
		if locked {
			return blocked("dates are already locked")
		}
		if !proposing {
			return blocked("there is no active proposal to withdraw")
		}
	}
	return allow()
}

func blocked(msg string) Result {
	return reject(http.StatusConflict, CodeStageBlocked, msg)
}
