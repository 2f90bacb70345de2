package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/repo"
)

// PrivacyFilter returns the subset of trips a viewer may see.
// Implementations must preserve the input order.
type PrivacyFilter interface {
	Visible(ctx context.Context, viewerID uuid.UUID, trips []domain.Trip) ([]domain.Trip, error)
}

// MemberVisibility shows a trip to every member of the circle that owns it.
type MemberVisibility struct {
	circles repo.CircleRepo
}

// NewMemberVisibility constructs the default PrivacyFilter.
func NewMemberVisibility(circles repo.CircleRepo) *MemberVisibility {
	return &MemberVisibility{circles: circles}
}

// Visible keeps the trips whose circle the viewer belongs to.
func (f *MemberVisibility) Visible(ctx context.Context, viewerID uuid.UUID, trips []domain.Trip) ([]domain.Trip, error) {
	if len(trips) == 0 {
		return []domain.Trip{}, nil
	}
	memberships, err := f.circles.ListMembershipsByUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("service.MemberVisibility.Visible: %w", err)
	}
	in := make(map[uuid.UUID]struct{}, len(memberships))
	for _, m := range memberships {
		in[m.CircleID] = struct{}{}
	}
	out := make([]domain.Trip, 0, len(trips))
	for _, t := range trips {
		if _, ok := in[t.CircleID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
