/*
interval.go - Half-open interval algebra with payloads

PURPOSE:
  Work entries are computed by set arithmetic on time: expected attendances
  minus leaves, attendances intersected with leaves, and so on. This file
  provides ordered sequences of half-open [start, end) intervals, each
  carrying the Payload of records it was derived from.

TWO MODES:
  Normalized (NewIntervals):
    - Overlapping and adjacent intervals are coalesced
    - Payloads of coalesced intervals are unioned
    - [09:00,13:00){a} + [13:00,17:00){b} => [09:00,17:00){a,b}

  Keep-distinct (NewDistinctIntervals):
    - Intervals are only sorted, never coalesced
    - Two leaves covering the same minute stay two intervals

OPERATIONS (all return new sequences, inputs are untouched):
  Union:     a | b. Keep-distinct if either side is.
  Intersect: a & b. Overlap spans, payload = union of both sides.
  Difference: a - b. Parts of a not covered by b, a's payload preserved.

  Results of Intersect and Difference keep the left operand's mode. In
  normalized mode their pieces are coalesced when they overlap but not when
  they merely touch, so two consecutive leaves on one attendance keep their
  own boundaries.

ORDERING:
  By start, ties broken by end. Sorting is stable, so equal spans keep their
  input order.
*/
package generic

import (
	"sort"
	"time"
)

// =============================================================================
// INTERVAL
// =============================================================================

type Interval struct {
	Start   time.Time
	End     time.Time
	Payload Payload
}

// NewInterval builds [start, end). It fails with ErrInvalidInterval when
// start is not strictly before end.
func NewInterval(start, end time.Time, payload Payload) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, &IntervalError{Start: start, End: end}
	}
	return Interval{Start: start, End: end, Payload: payload}, nil
}

// NewEmptyInterval is NewInterval that also accepts start == end.
func NewEmptyInterval(start, end time.Time, payload Payload) (Interval, error) {
	if end.Before(start) {
		return Interval{}, &IntervalError{Start: start, End: end}
	}
	return Interval{Start: start, End: end, Payload: payload}, nil
}

// MustInterval panics on an invalid span. Use in tests and for spans built
// from already validated bounds.
func MustInterval(start, end time.Time, refs ...Ref) Interval {
	iv, err := NewInterval(start, end, NewPayload(refs...))
	if err != nil {
		panic(err)
	}
	return iv
}

func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }
func (iv Interval) IsEmpty() bool           { return !iv.Start.Before(iv.End) }

// Overlaps reports whether the two spans share a positive-length part.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// Contains reports whether o lies entirely within iv.
func (iv Interval) Contains(o Interval) bool {
	return !o.Start.Before(iv.Start) && !o.End.After(iv.End)
}

// Clip restricts the interval to [start, end]. ok is false when nothing of
// positive length remains.
func (iv Interval) Clip(start, end time.Time) (Interval, bool) {
	out := iv
	if out.Start.Before(start) {
		out.Start = start
	}
	if out.End.After(end) {
		out.End = end
	}
	return out, out.Start.Before(out.End)
}

func (iv Interval) WithPayload(p Payload) Interval {
	iv.Payload = p
	return iv
}

// =============================================================================
// INTERVALS - Ordered sequence
// =============================================================================

type Intervals struct {
	items    []Interval
	distinct bool
}

// NewIntervals returns a normalized sequence: sorted, overlapping and
// adjacent intervals coalesced. Empty intervals are dropped.
func NewIntervals(items ...Interval) Intervals {
	return Intervals{items: coalesce(sortedCopy(items), true)}
}

// NewDistinctIntervals returns a keep-distinct sequence: sorted, never
// coalesced. Empty intervals are dropped.
func NewDistinctIntervals(items ...Interval) Intervals {
	return Intervals{items: sortedCopy(items), distinct: true}
}

func (s Intervals) Items() []Interval { return append([]Interval(nil), s.items...) }
func (s Intervals) Len() int          { return len(s.items) }
func (s Intervals) IsEmpty() bool     { return len(s.items) == 0 }
func (s Intervals) IsDistinct() bool  { return s.distinct }

// Total returns the summed length of the intervals.
func (s Intervals) Total() time.Duration {
	var d time.Duration
	for _, iv := range s.items {
		d += iv.Duration()
	}
	return d
}

// Span returns the earliest start and latest end of the sequence; ok is
// false when it is empty.
func (s Intervals) Span() (start, end time.Time, ok bool) {
	if len(s.items) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start, end = s.items[0].Start, s.items[0].End
	for _, iv := range s.items[1:] {
		end = latest(end, iv.End)
	}
	return start, end, true
}

// Union returns s | o.
func (s Intervals) Union(o Intervals) Intervals {
	all := make([]Interval, 0, len(s.items)+len(o.items))
	all = append(all, s.items...)
	all = append(all, o.items...)
	if s.distinct || o.distinct {
		return NewDistinctIntervals(all...)
	}
	return NewIntervals(all...)
}

// Intersect returns s & o. Each overlap carries the union of both payloads.
func (s Intervals) Intersect(o Intervals) Intervals {
	var out []Interval
	for _, x := range s.items {
		for _, y := range o.items {
			if !y.Start.Before(x.End) {
				break
			}
			if !x.Overlaps(y) {
				continue
			}
			out = append(out, Interval{
				Start:   latest(x.Start, y.Start),
				End:     earliest(x.End, y.End),
				Payload: x.Payload.Union(y.Payload),
			})
		}
	}
	return s.result(out)
}

// Difference returns s - o. Remaining parts keep their payload from s.
func (s Intervals) Difference(o Intervals) Intervals {
	cover := coalesce(sortedCopy(o.items), true)
	var out []Interval
	for _, x := range s.items {
		cursor := x.Start
		for _, c := range cover {
			if !c.Start.Before(x.End) {
				break
			}
			if !c.End.After(cursor) {
				continue
			}
			if c.Start.After(cursor) {
				out = append(out, Interval{Start: cursor, End: c.Start, Payload: x.Payload})
			}
			cursor = latest(cursor, c.End)
			if !cursor.Before(x.End) {
				break
			}
		}
		if cursor.Before(x.End) {
			out = append(out, Interval{Start: cursor, End: x.End, Payload: x.Payload})
		}
	}
	return s.result(out)
}

// Filter returns the intervals for which keep returns true, same mode.
func (s Intervals) Filter(keep func(Interval) bool) Intervals {
	var out []Interval
	for _, iv := range s.items {
		if keep(iv) {
			out = append(out, iv)
		}
	}
	return Intervals{items: out, distinct: s.distinct}
}

// Clip restricts every interval to [start, end].
func (s Intervals) Clip(start, end time.Time) Intervals {
	var out []Interval
	for _, iv := range s.items {
		if c, ok := iv.Clip(start, end); ok {
			out = append(out, c)
		}
	}
	return Intervals{items: out, distinct: s.distinct}
}

func (s Intervals) result(items []Interval) Intervals {
	items = sortedCopy(items)
	if s.distinct {
		return Intervals{items: items, distinct: true}
	}
	return Intervals{items: coalesce(items, false)}
}

// =============================================================================
// HELPERS
// =============================================================================

func sortedCopy(items []Interval) []Interval {
	out := make([]Interval, 0, len(items))
	for _, iv := range items {
		if iv.Start.Before(iv.End) {
			out = append(out, iv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].End.Before(out[j].End)
	})
	return out
}

// coalesce merges sorted intervals that overlap, and also those that touch
// when adjacent is true.
func coalesce(sorted []Interval, adjacent bool) []Interval {
	if len(sorted) == 0 {
		return nil
	}
	out := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		joins := next.Start.Before(cur.End) || (adjacent && next.Start.Equal(cur.End))
		if joins {
			cur.End = latest(cur.End, next.End)
			cur.Payload = cur.Payload.Union(next.Payload)
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
