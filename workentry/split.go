package workentry

import (
	"time"

	"github.com/warp/workentry-engine/generic"
)

// =============================================================================
// DAY SPLITTER
// =============================================================================

// segment is a row restricted to one local day.
type segment struct {
	row      *row
	start    time.Time
	end      time.Time
	date     generic.Date
	duration generic.Amount
}

// SplitDays cuts [start, end) at every local midnight of loc. A segment
// ends one microsecond before midnight and the next one starts at
// midnight. Segments are expressed in loc, converted through zones.
func SplitDays(zones *generic.Zones, start, end time.Time, loc *time.Location) []generic.Interval {
	var out []generic.Interval
	endLocal := zones.Local(loc, end)
	for cursor := zones.Local(loc, start); cursor.Before(endLocal); {
		segEnd := generic.NextLocalMidnight(cursor).Add(-time.Microsecond)
		if endLocal.Before(segEnd) {
			segEnd = endLocal
		}
		if cursor.Before(segEnd) {
			out = append(out, generic.Interval{Start: cursor, End: segEnd})
		}
		cursor = segEnd.Add(time.Microsecond)
	}
	return out
}

func (r *run) splitRows() []segment {
	var out []segment
	for i := range r.rows {
		row := &r.rows[i]
		for _, iv := range SplitDays(r.zones, row.start, row.end, row.loc) {
			out = append(out, segment{row: row, start: iv.Start, end: iv.End, date: generic.LocalDate(iv.Start)})
		}
	}
	return out
}

// =============================================================================
// DURATIONS
// =============================================================================

// durations fills in every segment's hours:
//
//	fully flexible contract:      raw hours, capped at hours per day
//	type not counting as absence: raw hours
//	absence, contract calendar:   calendar hours from WorkDaysData
//	absence, no calendar:         raw hours, capped at hours per day
//	otherwise:                    0
func (r *run) durations(segments []segment) error {
	var (
		order   []span
		batches = make(map[span]map[CalendarID]map[string][]EmployeeID)
		seen    = make(map[span]map[CalendarEmployee]bool)
		pending []int
	)

	for i := range segments {
		s := &segments[i]
		c := s.row.contract
		raw := r.rawHours(s.start, s.end)
		switch {
		case c.Mode == ScheduleFullyFlexible:
			s.duration = raw.Min(generic.Hours(c.DailyHours()))
		case !r.catalog.IsAbsence(s.row.typeID):
			s.duration = raw
		case c.CalendarID != "":
			k := span{start: s.start.UTC(), end: s.end.UTC()}
			if _, ok := batches[k]; !ok {
				batches[k] = make(map[CalendarID]map[string][]EmployeeID)
				seen[k] = make(map[CalendarEmployee]bool)
				order = append(order, k)
			}
			key := workDaysKey(c)
			if !seen[k][key] {
				seen[k][key] = true
				if batches[k][c.CalendarID] == nil {
					batches[k][c.CalendarID] = make(map[string][]EmployeeID)
				}
				batches[k][c.CalendarID][key.TZ] = append(batches[k][c.CalendarID][key.TZ], c.Employee.ID)
			}
			pending = append(pending, i)
		case c.DailyHours() > 0:
			s.duration = raw.Min(generic.Hours(c.DailyHours()))
		default:
			s.duration = generic.ZeroHours()
		}
	}

	if len(pending) == 0 {
		return nil
	}

	data := make(map[span]map[CalendarEmployee]generic.Amount, len(order))
	for _, k := range order {
		hours, err := r.host.WorkDaysData(r.ctx, k.start, k.end, batches[k])
		if err != nil {
			return &CapabilityError{Capability: CapWorkDaysData, Err: err}
		}
		data[k] = hours
	}

	for _, i := range pending {
		s := &segments[i]
		k := span{start: s.start.UTC(), end: s.end.UTC()}
		hours, ok := data[k][workDaysKey(s.row.contract)]
		if !ok {
			hours = generic.ZeroHours()
		}
		s.duration = hours.Round()
	}
	return nil
}

// workDaysKey is the calendar, employee and zone a contract's calendar
// hours are computed for: the zone its attendances were expanded in.
func workDaysKey(c *Contract) CalendarEmployee {
	return CalendarEmployee{CalendarID: c.CalendarID, EmployeeID: c.Employee.ID, TZ: c.Timezone()}
}

func (r *run) rawHours(start, end time.Time) generic.Amount {
	k := span{start: start.UTC(), end: end.UTC()}
	if h, ok := r.hours[k]; ok {
		return h
	}
	h := generic.HoursBetween(start, end)
	r.hours[k] = h
	return h
}
