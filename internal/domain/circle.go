package domain

import (
	"time"

	"github.com/google/uuid"
)

// Circle is a persistent friend or family group that owns trips.
type Circle struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is a user's role within a circle.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Membership links a user to a circle.
type Membership struct {
	CircleID uuid.UUID `json:"circle_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
