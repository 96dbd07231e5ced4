package generic

import "fmt"

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is the inclusive date range [Start, End]. Generation windows and
// contract lifecycles are both periods.
type Period struct {
	Start Date
	End   Date
}

// NewPeriod fails with ErrInvalidPeriod when end is before start.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("%s > %s: %w", start, end, ErrInvalidPeriod)
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the date is within the period [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Intersect returns the overlap of two periods. ok is false when they are
// disjoint.
func (p Period) Intersect(o Period) (Period, bool) {
	out := Period{Start: MaxDate(p.Start, o.Start), End: MinDate(p.End, o.End)}
	return out, !out.End.Before(out.Start)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// GROUPING
// =============================================================================

// GroupBy buckets items by key and returns the keys in first-seen order, so
// iterating the groups is deterministic.
func GroupBy[K comparable, T any](items []T, key func(T) K) ([]K, map[K][]T) {
	groups := make(map[K][]T)
	var order []K
	for _, it := range items {
		k := key(it)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], it)
	}
	return order, groups
}
