package workentry

import (
	"time"

	"github.com/warp/workentry-engine/generic"
)

// =============================================================================
// LEAVE PRODUCER
// =============================================================================

// fetchLeaves asks the host once for every leave of the window's
// resources, companies and calendars.
func (r *run) fetchLeaves(start, end time.Time, contracts []*Contract) ([]Leave, error) {
	var (
		resources []ResourceID
		companies []CompanyID
		calendars []CalendarID
	)
	seenRes := make(map[ResourceID]bool)
	seenCo := make(map[CompanyID]bool)
	seenCal := make(map[CalendarID]bool)
	for _, c := range contracts {
		if res := c.Employee.Resource(); !seenRes[res] {
			seenRes[res] = true
			resources = append(resources, res)
		}
		if !seenCo[c.CompanyID] {
			seenCo[c.CompanyID] = true
			companies = append(companies, c.CompanyID)
		}
		if c.CalendarID != "" && !seenCal[c.CalendarID] {
			seenCal[c.CalendarID] = true
			calendars = append(calendars, c.CalendarID)
		}
	}

	leaves, err := r.host.FetchLeaves(r.ctx, start, end, resources, companies, calendars)
	if err != nil {
		return nil, r.capability(CapFetchLeaves, err)
	}
	for _, l := range leaves {
		if err := l.Validate(); err != nil {
			return nil, &CapabilityError{Capability: CapFetchLeaves, Err: err}
		}
	}
	return leaves, nil
}

// contractLeaves selects the leaves of one contract and partitions them by
// count-as. own lists the selected leaves, global ones first, in host
// order: the order entry-type resolution walks them in.
func (r *run) contractLeaves(c *Contract, all []Leave, start, end time.Time, attendances generic.Intervals) (absence, worked generic.Intervals, own []Leave) {
	resource := c.Employee.Resource()

	var personal []Leave
	for _, l := range all {
		if !l.Touches(start, end) {
			continue
		}
		switch {
		case l.IsGlobal():
			if l.CalendarID != "" && l.CalendarID != c.CalendarID {
				continue
			}
			if l.CompanyID != "" && l.CompanyID != c.CompanyID {
				continue
			}
			own = append(own, l)
		case l.ResourceID == resource:
			personal = append(personal, l)
		}
	}
	own = append(own, personal...)

	var abs, wrk []generic.Interval
	for _, l := range own {
		iv, ok := generic.Interval{Start: l.DateFrom, End: l.DateTo, Payload: generic.NewPayload(l.Ref())}.Clip(start, end)
		if !ok {
			continue
		}
		pieces := r.strategy.ValidLeaveIntervals(c, attendances, l, iv)
		if r.leaveCountAs(l) == CountWorked {
			wrk = append(wrk, pieces...)
		} else {
			abs = append(abs, pieces...)
		}
	}
	return generic.NewDistinctIntervals(abs...), generic.NewDistinctIntervals(wrk...), own
}

// leaveCountAs is the leave's own policy, else its type's, else absence.
func (r *run) leaveCountAs(l Leave) CountAs {
	if l.CountAs != "" {
		return l.CountAs
	}
	if t, ok := r.catalog.Type(l.WorkEntryTypeID); ok && t.CountAs != "" {
		return t.CountAs
	}
	return CountAbsence
}

// overlapping returns the leaves whose span shares time with iv, in order.
func overlapping(leaves []Leave, iv generic.Interval) []Leave {
	var out []Leave
	for _, l := range leaves {
		if l.DateFrom.Before(iv.End) && iv.Start.Before(l.DateTo) {
			out = append(out, l)
		}
	}
	return out
}
