package domain

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantStatus records a user's relationship to a single trip.
type ParticipantStatus string

const (
	ParticipantActive  ParticipantStatus = "active"
	ParticipantLeft    ParticipantStatus = "left"
	ParticipantRemoved ParticipantStatus = "removed"
)

// Participant is a trip-level record distinct from circle membership.
type Participant struct {
	TripID   uuid.UUID         `json:"trip_id"`
	UserID   uuid.UUID         `json:"user_id"`
	Status   ParticipantStatus `json:"status"`
	JoinedAt time.Time         `json:"joined_at"`
}

// Attendance is the resolved state of a participant record.
type Attendance int

const (
	// AttendanceUnrecorded means no participant record exists.
	AttendanceUnrecorded Attendance = iota
	// AttendanceActive means a record exists and is active (or has no status).
	AttendanceActive
	// AttendanceInactive means the user left or was removed.
	AttendanceInactive
)

// ResolveAttendance maps an optional participant record onto Attendance.
// A record with an empty status counts as active.
func ResolveAttendance(p *Participant) Attendance {
	if p == nil {
		return AttendanceUnrecorded
	}
	switch p.Status {
	case ParticipantLeft, ParticipantRemoved:
		return AttendanceInactive
	default:
		return AttendanceActive
	}
}

// IsTraveler is the single traveler policy used by every component.
//
// Hosted trips count only explicit active participants. Collaborative trips
// count every circle member unless they left or were removed, except that a
// late joiner with no participant record is not a traveler.
func IsTraveler(t Trip, a Attendance, lateJoiner bool) bool {
	switch a {
	case AttendanceActive:
		return true
	case AttendanceInactive:
		return false
	}
	if t.Type == TripHosted {
		return false
	}
	return !lateJoiner
}
