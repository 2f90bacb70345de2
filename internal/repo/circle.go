package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tripcircle/coordinator/internal/domain"
)

// CircleRepo defines the read operations for circles and their memberships.
type CircleRepo interface {
	// GetByID retrieves a circle. Returns domain.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Circle, error)

	// ListByIDs returns the listed circles in no particular order. Unknown IDs
	// are skipped.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Circle, error)

	// ListMembershipsByUser returns every circle membership of one user.
	ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error)

	// ListMembers returns every membership of every listed circle.
	ListMembers(ctx context.Context, circleIDs []uuid.UUID) ([]domain.Membership, error)
}

// pgCircleRepo is the Postgres implementation of CircleRepo.
type pgCircleRepo struct {
	db db
}

// NewCircleRepo constructs a CircleRepo backed by the provided db connection.
func NewCircleRepo(db db) CircleRepo {
	return &pgCircleRepo{db: db}
}

// GetByID retrieves a circle by primary key.
func (r *pgCircleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Circle, error) {
	const q = `SELECT id, name, owner_id, created_at FROM circles WHERE id = @id`

	var c domain.Circle
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Circle{}, fmt.Errorf("repo.CircleRepo.GetByID: %w", domain.ErrNotFound)
		}
		return domain.Circle{}, fmt.Errorf("repo.CircleRepo.GetByID: %w", err)
	}
	return c, nil
}

// ListByIDs fetches circles in one round trip.
func (r *pgCircleRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Circle, error) {
	if len(ids) == 0 {
		return []domain.Circle{}, nil
	}
	const q = `
		SELECT id, name, owner_id, created_at
		FROM circles
		WHERE id = ANY(@ids)
		ORDER BY name, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("repo.CircleRepo.ListByIDs: %w", err)
	}
	circles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Circle, error) {
		var c domain.Circle
		err := row.Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("repo.CircleRepo.ListByIDs: scan: %w", err)
	}
	return circles, nil
}

// ListMembershipsByUser returns the user's memberships, oldest first.
func (r *pgCircleRepo) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error) {
	const q = `
		SELECT circle_id, user_id, role, joined_at
		FROM memberships
		WHERE user_id = @user_id
		ORDER BY joined_at, circle_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.CircleRepo.ListMembershipsByUser: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanMembership)
	if err != nil {
		return nil, fmt.Errorf("repo.CircleRepo.ListMembershipsByUser: scan: %w", err)
	}
	return out, nil
}

// ListMembers returns the memberships of every listed circle.
func (r *pgCircleRepo) ListMembers(ctx context.Context, circleIDs []uuid.UUID) ([]domain.Membership, error) {
	if len(circleIDs) == 0 {
		return []domain.Membership{}, nil
	}
	const q = `
		SELECT circle_id, user_id, role, joined_at
		FROM memberships
		WHERE circle_id = ANY(@circle_ids)
		ORDER BY circle_id, joined_at, user_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"circle_ids": circleIDs})
	if err != nil {
		return nil, fmt.Errorf("repo.CircleRepo.ListMembers: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanMembership)
	if err != nil {
		return nil, fmt.Errorf("repo.CircleRepo.ListMembers: scan: %w", err)
	}
	return out, nil
}

func scanMembership(row pgx.CollectableRow) (domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.CircleID, &m.UserID, &m.Role, &m.JoinedAt)
	return m, err
}
