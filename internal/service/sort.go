package service

import (
	"bytes"
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/tripcircle/coordinator/internal/domain"
)

// comparator orders two values the way slices.SortFunc expects.
type comparator[T any] func(a, b T) int

// lexicographic chains comparators: the first non-zero result wins.
// Building every sort this way keeps each order total and transitive.
func lexicographic[T any](cmps ...comparator[T]) comparator[T] {
	return func(a, b T) int {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

// trueFirst orders values for which pred holds before the rest.
func trueFirst[T any](pred func(T) bool) comparator[T] {
	return func(a, b T) int {
		pa, pb := pred(a), pred(b)
		switch {
		case pa == pb:
			return 0
		case pa:
			return -1
		default:
			return 1
		}
	}
}

// byName compares names A to Z ignoring case, then exactly.
func byName(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func descTime(a, b time.Time) int { return b.Compare(a) }

// tripBucket is the primary key of the trip order.
type tripBucket int

const (
	bucketPending tripBucket = iota
	bucketUpcoming
	bucketActive
	bucketPast
)

// day truncates t to midnight UTC; trip dates are date-only values.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func bucketOf(c domain.TripCard, today time.Time) tripBucket {
	if len(c.PendingActions) > 0 {
		return bucketPending
	}
	if c.StartDate != nil && day(*c.StartDate).After(today) {
		return bucketUpcoming
	}
	end := c.EndDate
	if end == nil {
		end = c.StartDate
	}
	if end != nil && day(*end).Before(today) {
		return bucketPast
	}
	return bucketActive
}

// tripOrder builds the card comparator for the given moment.
//
// Buckets, in order: trips with pending actions (most urgent, then most
// recently active), trips starting in the future (soonest first), trips in
// progress or without dates (least progressed, then most recently active),
// and past trips (most recently ended first). Ties fall back to name, then ID.
func tripOrder(now time.Time) comparator[domain.TripCard] {
	today := day(now)
	within := func(a, b domain.TripCard) int {
		bucket := bucketOf(a, today)
		switch bucket {
		case bucketPending:
			pa, _ := a.MinPriority()
			pb, _ := b.MinPriority()
			if c := cmp.Compare(pa, pb); c != 0 {
				return c
			}
			return descTime(a.LastActivityAt(), b.LastActivityAt())
		case bucketUpcoming:
			return day(*a.StartDate).Compare(day(*b.StartDate))
		case bucketActive:
			if c := cmp.Compare(a.Status.Rank(), b.Status.Rank()); c != 0 {
				return c
			}
			return descTime(a.LastActivityAt(), b.LastActivityAt())
		default:
			return descTime(day(pastEnd(a)), day(pastEnd(b)))
		}
	}
	return lexicographic(
		func(a, b domain.TripCard) int { return cmp.Compare(bucketOf(a, today), bucketOf(b, today)) },
		within,
		func(a, b domain.TripCard) int { return byName(a.Name, b.Name) },
		func(a, b domain.TripCard) int { return bytes.Compare(a.ID[:], b.ID[:]) },
	)
}

func pastEnd(c domain.TripCard) time.Time {
	if c.EndDate != nil {
		return *c.EndDate
	}
	return *c.StartDate
}

// SortTrips orders a circle's trip cards in place. Sorting an already sorted
// slice leaves it unchanged.
func SortTrips(cards []domain.TripCard, now time.Time) {
	slices.SortStableFunc(cards, tripOrder(now))
}

// circleSummary holds the derived keys of the circle order.
type circleSummary struct {
	urgent   bool
	pending  bool
	activity time.Time
	upcoming bool
}

func summarize(c domain.CircleCard, today time.Time) circleSummary {
	var s circleSummary
	for _, t := range c.Trips {
		if p, ok := t.MinPriority(); ok {
			s.pending = true
			if p <= 2 {
				s.urgent = true
			}
		}
		if at := t.LastActivityAt(); at.After(s.activity) {
			s.activity = at
		}
		if t.StartDate != nil && day(*t.StartDate).After(today) {
			s.upcoming = true
		}
	}
	return s
}

// SortCircles orders circle cards in place: circles with an urgent action
// (priority 2 or better) first, then any pending action, then most recent
// trip activity, then any upcoming trip, then name and ID.
func SortCircles(circles []domain.CircleCard, now time.Time) {
	today := day(now)
	type keyed struct {
		card domain.CircleCard
		sum  circleSummary
	}
	items := make([]keyed, len(circles))
	for i := range circles {
		items[i] = keyed{card: circles[i], sum: summarize(circles[i], today)}
	}
	slices.SortStableFunc(items, lexicographic(
		trueFirst(func(k keyed) bool { return k.sum.urgent }),
		trueFirst(func(k keyed) bool { return k.sum.pending }),
		func(a, b keyed) int { return descTime(a.sum.activity, b.sum.activity) },
		trueFirst(func(k keyed) bool { return k.sum.upcoming }),
		func(a, b keyed) int { return byName(a.card.Name, b.card.Name) },
		func(a, b keyed) int { return bytes.Compare(a.card.ID[:], b.card.ID[:]) },
	))
	for i := range items {
		circles[i] = items[i].card
	}
}
