/*
Package calendar implements working calendars: the weekly attendance
patterns an employee is expected to follow.

PURPOSE:
  The work-entry engine never reads a calendar directly. It asks its host
  for expected-work intervals and for the hours a calendar would have
  worked over a span. This package is what a host answers those questions
  with.

CALENDAR KINDS:
  Rigid:          A weekly (or two-week) list of attendance rows,
                  e.g. Mon-Fri 09:00-13:00 and 14:00-18:00
  Flexible:       An hour budget per day or per week. Days are modelled as
                  a slot of HoursPerDay centered on 12:00 local time
  Fully flexible: No shape at all; the whole window is workable

TWO-WEEK CALENDARS:
  Attendance rows carry a WeekType of 0 or 1. A date belongs to week
  floor((ordinal - 1) / 7) % 2, counted from January 1 of year 1, so an
  odd week is always followed by an even week, across year boundaries.

SEE ALSO:
  - expand.go: Attendance expansion (rrule-based)
  - presets.go: Ready-made calendars
*/
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/workentry-engine/generic"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrInvalidAttendance = errors.New("invalid attendance")
	ErrCalendarNotFound  = errors.New("calendar not found")
)

type AttendanceError struct {
	CalendarID   string
	AttendanceID string
	Reason       string
}

func (e *AttendanceError) Error() string {
	return fmt.Sprintf("calendar %s: attendance %s: %s", e.CalendarID, e.AttendanceID, e.Reason)
}

func (e *AttendanceError) Unwrap() error { return ErrInvalidAttendance }

// =============================================================================
// TYPES
// =============================================================================

type DayPeriod string

const (
	PeriodMorning   DayPeriod = "morning"
	PeriodAfternoon DayPeriod = "afternoon"
	// PeriodLunch rows describe breaks; they are never worked.
	PeriodLunch DayPeriod = "lunch"
)

// Attendance is one row of a weekly pattern. Hours are decimal hours of the
// local day, e.g. 13.5 is 13:30. HourTo may be 24.
type Attendance struct {
	ID              string        `json:"id"`
	Name            string        `json:"name,omitempty"`
	DayOfWeek       time.Weekday  `json:"day_of_week"`
	HourFrom        float64       `json:"hour_from"`
	HourTo          float64       `json:"hour_to"`
	DayPeriod       DayPeriod     `json:"day_period,omitempty"`
	WeekType        *int          `json:"week_type,omitempty"`
	DateFrom        *generic.Date `json:"date_from,omitempty"`
	DateTo          *generic.Date `json:"date_to,omitempty"`
	WorkEntryTypeID string        `json:"work_entry_type_id,omitempty"`
}

// Hours returns the length of the row in hours.
func (a Attendance) Hours() float64 { return a.HourTo - a.HourFrom }

// ActiveOn reports whether the row's validity dates include d.
func (a Attendance) ActiveOn(d generic.Date) bool {
	if a.DateFrom != nil && d.Before(*a.DateFrom) {
		return false
	}
	if a.DateTo != nil && d.After(*a.DateTo) {
		return false
	}
	return true
}

type Calendar struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	TZ            string       `json:"tz"`
	Attendances   []Attendance `json:"attendances"`
	TwoWeeks      bool         `json:"two_weeks,omitempty"`
	Flexible      bool         `json:"flexible,omitempty"`
	FullyFlexible bool         `json:"fully_flexible,omitempty"`
	HoursPerDay   float64      `json:"hours_per_day,omitempty"`
	HoursPerWeek  float64      `json:"hours_per_week,omitempty"`
}

// Validate checks every attendance row: hours within [0, 24], from before
// to, week type set exactly when the calendar alternates weeks.
func (c *Calendar) Validate() error {
	for _, a := range c.Attendances {
		fail := func(reason string) error {
			return &AttendanceError{CalendarID: c.ID, AttendanceID: a.ID, Reason: reason}
		}
		if a.HourFrom < 0 || a.HourTo > 24 {
			return fail("hours must be within [0, 24]")
		}
		if a.HourFrom >= a.HourTo {
			return fail("hour_from must be before hour_to")
		}
		if a.DayOfWeek < time.Sunday || a.DayOfWeek > time.Saturday {
			return fail("unknown day of week")
		}
		if a.WeekType != nil && (*a.WeekType < 0 || *a.WeekType > 1) {
			return fail("week_type must be 0 or 1")
		}
		if c.TwoWeeks && a.WeekType == nil {
			return fail("two-week calendar rows need a week_type")
		}
		if a.DateFrom != nil && a.DateTo != nil && a.DateTo.Before(*a.DateFrom) {
			return fail("date_to before date_from")
		}
	}
	return nil
}

// WeekType returns 0 or 1, the alternating week d belongs to.
func WeekType(d generic.Date) int {
	return ((d.Ordinal() - 1) / 7) % 2
}

// WorkingDays returns the weekdays that carry at least one worked row, or
// Monday to Friday when the calendar has none.
func (c *Calendar) WorkingDays() []time.Weekday {
	seen := make(map[time.Weekday]bool)
	var days []time.Weekday
	for _, a := range c.Attendances {
		if a.DayPeriod == PeriodLunch || seen[a.DayOfWeek] {
			continue
		}
		seen[a.DayOfWeek] = true
		days = append(days, a.DayOfWeek)
	}
	if len(days) == 0 {
		return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	}
	return days
}

// DailyHours is the flexible day budget: HoursPerDay, or HoursPerWeek
// spread over the working days.
func (c *Calendar) DailyHours() float64 {
	if c.HoursPerDay > 0 {
		return c.HoursPerDay
	}
	if c.HoursPerWeek > 0 {
		return c.HoursPerWeek / float64(len(c.WorkingDays()))
	}
	return 0
}

// WeeklyHours sums the worked rows of one week (the average of both weeks
// for two-week calendars).
func (c *Calendar) WeeklyHours() float64 {
	if c.Flexible || c.FullyFlexible {
		if c.HoursPerWeek > 0 {
			return c.HoursPerWeek
		}
		return c.DailyHours() * float64(len(c.WorkingDays()))
	}
	var total float64
	for _, a := range c.Attendances {
		if a.DayPeriod != PeriodLunch {
			total += a.Hours()
		}
	}
	if c.TwoWeeks {
		total /= 2
	}
	return total
}
