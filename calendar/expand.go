package calendar

import (
	"fmt"
	"math"
	"time"

	"github.com/teambition/rrule-go"
	"github.com/warp/workentry-engine/generic"
)

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// =============================================================================
// EXPECTED WORK
// =============================================================================

// Intervals returns the expected-work intervals of the calendar inside
// [start, end], with local hours read in loc.
//
// static asks for the rigid expansion of the attendance rows even when the
// calendar is flexible. A flexible calendar without rows falls back to its
// daily slots in both cases.
func (c *Calendar) Intervals(start, end time.Time, loc *time.Location, static bool) (generic.Intervals, error) {
	switch {
	case c.FullyFlexible && !static:
		iv, err := generic.NewInterval(start, end, generic.Payload{})
		if err != nil {
			return generic.Intervals{}, nil
		}
		return generic.NewIntervals(iv), nil
	case (c.Flexible || c.FullyFlexible) && (!static || len(c.Attendances) == 0):
		return c.FlexibleSlots(start, end, loc), nil
	}
	return c.expand(start, end, loc)
}

// WorkIntervals expands the calendar once per timezone and hands each
// resource the result for its zone. An empty tz key means the calendar's
// own zone.
func (c *Calendar) WorkIntervals(start, end time.Time, resourcesByTZ map[string][]string, static bool) (map[string]generic.Intervals, error) {
	out := make(map[string]generic.Intervals)
	for tz, resources := range resourcesByTZ {
		if tz == "" {
			tz = c.TZ
		}
		loc, err := time.LoadLocation(tz)
		if err != nil || tz == "" {
			return nil, &generic.TimezoneError{Name: tz, Err: err}
		}
		intervals, err := c.Intervals(start, end, loc, static)
		if err != nil {
			return nil, err
		}
		for _, r := range resources {
			out[r] = intervals
		}
	}
	return out, nil
}

// WorkHours returns the hours the calendar expects inside [start, end],
// ignoring leaves.
func (c *Calendar) WorkHours(start, end time.Time, loc *time.Location) (generic.Amount, error) {
	var (
		s   generic.Intervals
		err error
	)
	if c.Flexible || c.FullyFlexible {
		s = c.FlexibleSlots(start, end, loc)
	} else {
		s, err = c.expand(start, end, loc)
		if err != nil {
			return generic.ZeroHours(), err
		}
	}
	return generic.HoursOf(s.Total()), nil
}

// WorkHoursIn is WorkHours with local hours read in the named zone. An
// empty tz means the calendar's own zone.
func (c *Calendar) WorkHoursIn(start, end time.Time, tz string) (generic.Amount, error) {
	if tz == "" {
		tz = c.TZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		return generic.ZeroHours(), &generic.TimezoneError{Name: tz, Err: err}
	}
	return c.WorkHours(start, end, loc)
}

// FlexibleSlots models each working day as DailyHours centered on 12:00.
func (c *Calendar) FlexibleSlots(start, end time.Time, loc *time.Location) generic.Intervals {
	hours := math.Min(c.DailyHours(), 24)
	if hours <= 0 || !start.Before(end) {
		return generic.Intervals{}
	}
	half := time.Duration(hours / 2 * float64(time.Hour))

	working := make(map[time.Weekday]bool)
	for _, wd := range c.WorkingDays() {
		working[wd] = true
	}

	var slots []generic.Interval
	last := generic.LocalDate(end.In(loc))
	for d := generic.LocalDate(start.In(loc)); !d.After(last); d = d.AddDays(1) {
		if !working[d.Weekday()] {
			continue
		}
		noon := d.In(loc, 12, 0, 0, 0)
		slot := generic.Interval{Start: noon.Add(-half), End: noon.Add(half)}
		if clipped, ok := slot.Clip(start, end); ok {
			slots = append(slots, clipped)
		}
	}
	return generic.NewIntervals(slots...)
}

// =============================================================================
// RIGID EXPANSION
// =============================================================================

func (c *Calendar) expand(start, end time.Time, loc *time.Location) (generic.Intervals, error) {
	if !start.Before(end) {
		return generic.Intervals{}, nil
	}
	first := generic.LocalDate(start.In(loc))
	last := generic.LocalDate(end.In(loc))

	var items []generic.Interval
	for _, a := range c.Attendances {
		if a.DayPeriod == PeriodLunch {
			continue
		}
		days, err := c.occurrences(a, first, last)
		if err != nil {
			return generic.Intervals{}, err
		}
		ref := generic.Ref{Kind: generic.RefAttendance, ID: a.ID, Type: a.WorkEntryTypeID}
		for _, d := range days {
			h0, m0, s0, ns0 := clock(a.HourFrom)
			h1, m1, s1, ns1 := clock(a.HourTo)
			iv := generic.Interval{
				Start:   d.In(loc, h0, m0, s0, ns0),
				End:     d.In(loc, h1, m1, s1, ns1),
				Payload: generic.NewPayload(ref),
			}
			if clipped, ok := iv.Clip(start, end); ok {
				items = append(items, clipped)
			}
		}
	}
	return generic.NewIntervals(items...), nil
}

// occurrences lists the dates in [first, last] the attendance row applies
// to. Two-week rows recur every other week, anchored on their week type.
func (c *Calendar) occurrences(a Attendance, first, last generic.Date) ([]generic.Date, error) {
	from, until := first, last
	if a.DateFrom != nil {
		from = generic.MaxDate(from, *a.DateFrom)
	}
	if a.DateTo != nil {
		until = generic.MinDate(until, *a.DateTo)
	}
	if until.Before(from) {
		return nil, nil
	}
	lower := from

	interval := 1
	if c.TwoWeeks && a.WeekType != nil {
		interval = 2
		if WeekType(from) != *a.WeekType {
			from = from.AddDays(-7)
		}
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  interval,
		Dtstart:   from.Midnight(time.UTC),
		Until:     until.Midnight(time.UTC),
		Byweekday: []rrule.Weekday{rruleWeekdays[a.DayOfWeek]},
	})
	if err != nil {
		return nil, fmt.Errorf("expand attendance %s: %w", a.ID, err)
	}

	var days []generic.Date
	for _, occ := range r.All() {
		d := generic.LocalDate(occ)
		if d.Before(lower) {
			continue
		}
		days = append(days, d)
	}
	return days, nil
}

// clock converts decimal hours to a wall clock. 24 is the last microsecond
// of the day.
func clock(hours float64) (hour, minute, sec, nsec int) {
	if hours >= 24 {
		return 23, 59, 59, int(time.Second - time.Microsecond)
	}
	hour = int(hours)
	minute = int(math.Round((hours - float64(hour)) * 60))
	if minute == 60 {
		hour, minute = hour+1, 0
	}
	return hour, minute, 0, 0
}
