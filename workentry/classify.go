/*
classify.go - Interval classifier

PURPOSE:
  Turns expected attendances (A), absence leaves (La) and worked leaves
  (Lw) of one contract into three disjoint families:

    real attendances  = A - La - Lw
    real leaves       = depends on the schedule mode (below)
    real worked leaves = Lw - real leaves

REAL LEAVES BY MODE:
  fully flexible:  La, leaves stand as declared
  flexible:        (A_static & M) | S
                   S: leaves within one local day, kept as taken
                   M: multi-day leaves, only their scheduled hours count
  rigid:           A & La when the contract has static entries or no leaves,
                   A_static & La otherwise

ENTRY TYPES:
  Attendance rows use the first attendance ref carrying a type, then the
  contract default, then the host default.
  Leave rows look at every leave overlapping the interval:
    1. a leave whose type is a bypass type wins
    2. else the first leave whose full span contains the interval and
       whose type is known
    3. else the host's default leave type
*/
package workentry

import (
	"time"

	"github.com/warp/workentry-engine/generic"
)

func classify(in ClassifyInput) (Classification, error) {
	a, la, lw := in.Attendances, in.AbsenceLeaves, in.WorkedLeaves

	out := Classification{Attendances: a.Difference(la).Difference(lw)}

	switch in.Contract.Mode {
	case ScheduleFullyFlexible:
		out.Leaves = la

	case ScheduleFlexible:
		single, multi := splitByLocalDay(la, in.Location)
		out.Leaves = single
		if !multi.IsEmpty() {
			static, err := in.StaticAttendances()
			if err != nil {
				return Classification{}, err
			}
			out.Leaves = static.Intersect(multi).Union(single)
		}

	default:
		if in.Contract.IsStatic() || la.IsEmpty() {
			out.Leaves = a.Intersect(la)
			break
		}
		static, err := in.StaticAttendances()
		if err != nil {
			return Classification{}, err
		}
		out.Leaves = static.Intersect(la)
	}

	out.WorkedLeaves = lw.Difference(out.Leaves)
	return out, nil
}

// splitByLocalDay separates leaves that start and end on the same local
// day from the others. A leave ending exactly at midnight belongs to the
// day before.
func splitByLocalDay(leaves generic.Intervals, loc *time.Location) (single, multi generic.Intervals) {
	var s, m []generic.Interval
	for _, iv := range leaves.Items() {
		first := generic.LocalDate(iv.Start.In(loc))
		last := generic.LocalDate(iv.End.Add(-time.Microsecond).In(loc))
		if first == last {
			s = append(s, iv)
		} else {
			m = append(m, iv)
		}
	}
	return generic.NewDistinctIntervals(s...), generic.NewDistinctIntervals(m...)
}

// =============================================================================
// ENTRY TYPE SELECTION
// =============================================================================

func attendanceType(in EntryTypeInput) WorkEntryTypeID {
	for _, ref := range in.Interval.Payload.Refs() {
		if ref.Kind == generic.RefLeave || ref.Type == "" {
			continue
		}
		if id := WorkEntryTypeID(ref.Type); in.Catalog.Known(id) {
			return id
		}
	}
	if in.Contract.DefaultWorkEntryTypeID != "" {
		return in.Contract.DefaultWorkEntryTypeID
	}
	return in.Catalog.DefaultAttendance
}

func leaveType(in EntryTypeInput) WorkEntryTypeID {
	for _, l := range in.Candidates {
		if l.WorkEntryTypeID != "" && in.Catalog.IsBypass(l.WorkEntryTypeID) {
			return l.WorkEntryTypeID
		}
	}
	for _, l := range in.Candidates {
		if !in.Catalog.Known(l.WorkEntryTypeID) {
			continue
		}
		if !l.DateFrom.After(in.Interval.Start) && !l.DateTo.Before(in.Interval.End) {
			return l.WorkEntryTypeID
		}
	}
	return in.Catalog.DefaultLeave
}

// =============================================================================
// ROW EMISSION
// =============================================================================

// emitAttendances turns real attendances into rows. Leave refs are dropped
// from the payload. Contracts without static entries get one row per
// attendance record so that overlapping records stay visible.
func (r *run) emitAttendances(c *Contract, loc *time.Location, s generic.Intervals) {
	for _, iv := range s.Items() {
		iv = iv.WithPayload(iv.Payload.Without(generic.RefLeave))
		pieces := []generic.Interval{iv}
		if refs := iv.Payload.Refs(); !c.IsStatic() && len(refs) > 1 {
			pieces = pieces[:0]
			for _, ref := range refs {
				pieces = append(pieces, iv.WithPayload(generic.NewPayload(ref)))
			}
		}
		for _, p := range pieces {
			typeID := r.strategy.ChooseEntryType(EntryTypeInput{
				Contract: c,
				Family:   FamilyAttendance,
				Interval: p,
				Catalog:  r.catalog,
			})
			if typeID == "" {
				r.report(c, "no attendance work entry type", ErrNoAttendanceType)
				continue
			}
			r.rows = append(r.rows, row{contract: c, loc: loc, start: p.Start, end: p.End, typeID: typeID, payload: p.Payload})
		}
	}
}

// emitLeaves turns real leaves or real worked leaves into rows. An interval
// carrying several leaves is resolved against each of them but emitted
// once, with every leave ref, so its hours are not counted twice.
func (r *run) emitLeaves(c *Contract, loc *time.Location, family Family, s generic.Intervals, own []Leave) {
	for _, iv := range s.Items() {
		typeID := r.strategy.ChooseEntryType(EntryTypeInput{
			Contract:   c,
			Family:     family,
			Interval:   iv,
			Candidates: overlapping(own, iv),
			Catalog:    r.catalog,
		})
		if typeID == "" {
			continue
		}
		r.rows = append(r.rows, row{
			contract: c,
			loc:      loc,
			start:    iv.Start,
			end:      iv.End,
			typeID:   typeID,
			payload:  iv.Payload.Only(generic.RefLeave),
		})
	}
}
