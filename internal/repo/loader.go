package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tripcircle/coordinator/internal/domain"
)

// EvidenceLoader bulk-loads every evidence collection for a set of trips.
// The collections have no ordering dependency, so they are fetched in
// parallel and joined in memory before anything is derived from them.
type EvidenceLoader struct {
	repo  EvidenceRepo
	limit int
}

// NewEvidenceLoader returns a loader over r. limit caps how many collection
// queries run at once; pass 1 when r is backed by a single pgx.Tx, which
// cannot run concurrent queries. limit <= 0 means no cap.
func NewEvidenceLoader(r EvidenceRepo, limit int) *EvidenceLoader {
	return &EvidenceLoader{repo: r, limit: limit}
}

// Load fetches all collections for tripIDs and indexes them by trip. Trips
// without any evidence are present in the result with zero-value entries.
func (l *EvidenceLoader) Load(ctx context.Context, tripIDs []uuid.UUID) (domain.Evidence, error) {
	var (
		participants []domain.Participant
		votes        []domain.Vote
		picks        []domain.DatePick
		avail        []domain.Availability
		windows      []domain.DateWindow
		supports     []domain.WindowSupport
		joins        []domain.JoinRequest
		messages     []domain.Message
	)

	g, gctx := errgroup.WithContext(ctx)
	if l.limit > 0 {
		g.SetLimit(l.limit)
	}
	g.Go(func() (err error) {
		participants, err = l.repo.ListParticipants(gctx, tripIDs)
		return err
	})
	g.Go(func() (err error) {
		votes, err = l.repo.ListVotes(gctx, tripIDs)
		return err
	})
	g.Go(func() (err error) {
		picks, err = l.repo.ListDatePicks(gctx, tripIDs)
		return err
	})
	g.Go(func() (err error) {
		avail, err = l.repo.ListAvailabilities(gctx, tripIDs)
		return err
	})
	g.Go(func() (err error) {
		windows, err = l.repo.ListWindows(gctx, tripIDs)
		return err
	})
	g.Go(func() (err error) {
		supports, err = l.repo.ListSupports(gctx, tripIDs)
		return err
	})
	g.Go(func() (err error) {
		joins, err = l.repo.ListPendingJoinRequests(gctx, tripIDs)
		return err
	})
	g.Go(func() (err error) {
		messages, err = l.repo.LatestMessages(gctx, tripIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("repo.EvidenceLoader.Load: %w", err)
	}

	ev := make(domain.Evidence, len(tripIDs))
	for _, id := range tripIDs {
		ev[id] = domain.TripEvidence{}
	}
	update := func(id uuid.UUID, fn func(*domain.TripEvidence)) {
		te := ev[id]
		fn(&te)
		ev[id] = te
	}
	for _, p := range participants {
		update(p.TripID, func(te *domain.TripEvidence) { te.Participants = append(te.Participants, p) })
	}
	for _, v := range votes {
		update(v.TripID, func(te *domain.TripEvidence) { te.Votes = append(te.Votes, v) })
	}
	for _, p := range picks {
		update(p.TripID, func(te *domain.TripEvidence) { te.DatePicks = append(te.DatePicks, p) })
	}
	for _, a := range avail {
		update(a.TripID, func(te *domain.TripEvidence) { te.Availabilities = append(te.Availabilities, a) })
	}
	for _, w := range windows {
		update(w.TripID, func(te *domain.TripEvidence) { te.Windows = append(te.Windows, w) })
	}
	for _, s := range supports {
		update(s.TripID, func(te *domain.TripEvidence) { te.Supports = append(te.Supports, s) })
	}
	for _, j := range joins {
		update(j.TripID, func(te *domain.TripEvidence) { te.JoinRequests = append(te.JoinRequests, j) })
	}
	for _, m := range messages {
		update(m.TripID, func(te *domain.TripEvidence) { te.LatestMessage = &m })
	}
	return ev, nil
}
