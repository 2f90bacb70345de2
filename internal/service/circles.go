package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/repo"
)

// CircleStore caches circle records. GetMany omits IDs it does not hold.
// *cache.CircleCache is the Redis implementation.
type CircleStore interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Circle, error)
	SetMany(ctx context.Context, circles []domain.Circle) error
}

// CachedCircles reads circle records through a CircleStore and falls back to
// the wrapped repo for misses. Memberships always come from the repo: they
// feed traveler counts and visibility, which must reflect the current state.
// Store failures are logged and treated as misses.
type CachedCircles struct {
	repo.CircleRepo
	store CircleStore
	log   *slog.Logger
}

// NewCachedCircles wraps next. A nil logger uses slog.Default.
func NewCachedCircles(next repo.CircleRepo, store CircleStore, log *slog.Logger) *CachedCircles {
	if log == nil {
		log = slog.Default()
	}
	return &CachedCircles{CircleRepo: next, store: store, log: log}
}

var _ repo.CircleRepo = (*CachedCircles)(nil)

// GetByID returns domain.ErrNotFound if the circle does not exist.
func (c *CachedCircles) GetByID(ctx context.Context, id uuid.UUID) (domain.Circle, error) {
	got, err := c.ListByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return domain.Circle{}, err
	}
	if len(got) == 0 {
		return domain.Circle{}, fmt.Errorf("service.CachedCircles.GetByID: %w", domain.ErrNotFound)
	}
	return got[0], nil
}

// ListByIDs serves hits from the store, loads the rest in one repo call and
// stores what it loaded. Unknown IDs are skipped.
func (c *CachedCircles) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Circle, error) {
	if len(ids) == 0 {
		return []domain.Circle{}, nil
	}
	hits, err := c.store.GetMany(ctx, ids)
	if err != nil {
		c.log.WarnContext(ctx, "circle cache read failed", "circles", len(ids), "error", err)
		hits = nil
	}

	var missing []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := hits[id]; !ok && !seen[id] {
			missing = append(missing, id)
		}
		seen[id] = true
	}

	found := make(map[uuid.UUID]domain.Circle, len(ids))
	for id, circle := range hits {
		found[id] = circle
	}
	if len(missing) > 0 {
		loaded, err := c.CircleRepo.ListByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("service.CachedCircles.ListByIDs: %w", err)
		}
		for _, circle := range loaded {
			found[circle.ID] = circle
		}
		if err := c.store.SetMany(ctx, loaded); err != nil {
			c.log.WarnContext(ctx, "circle cache write failed", "circles", len(loaded), "error", err)
		}
	}

	out := make([]domain.Circle, 0, len(found))
	for _, id := range ids {
		if circle, ok := found[id]; ok {
			out = append(out, circle)
			delete(found, id)
		}
	}
	return out, nil
}
