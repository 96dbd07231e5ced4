/*
presets.go - Pre-built working calendars

AVAILABLE CALENDARS:
  Standard40:    Mon-Fri 09:00-13:00 and 14:00-18:00, lunch in between
  PartTime:      Mon-Fri mornings only
  Flexible:      A weekly hour budget, no fixed hours
  FullyFlexible: Everything is workable, capped per day by the contract
  AlternatingWeeks: Two-week calendar, full week then four-day week

EXAMPLE:
  cal := calendar.Standard40("std-40", "Europe/Brussels")
  intervals, err := cal.Intervals(start, end, loc, false)
*/
package calendar

import (
	"fmt"
	"time"
)

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// Standard40 returns the 40 hours/week calendar.
func Standard40(id, tz string) *Calendar {
	cal := &Calendar{ID: id, Name: "Standard 40 hours/week", TZ: tz, HoursPerDay: 8, HoursPerWeek: 40}
	for _, wd := range weekdays {
		cal.Attendances = append(cal.Attendances,
			dayRow(id, wd, 9, 13, PeriodMorning),
			dayRow(id, wd, 13, 14, PeriodLunch),
			dayRow(id, wd, 14, 18, PeriodAfternoon),
		)
	}
	return cal
}

// PartTime returns a Monday to Friday calendar of mornings.
func PartTime(id, tz string, hourFrom, hourTo float64) *Calendar {
	cal := &Calendar{ID: id, Name: "Part time", TZ: tz, HoursPerDay: hourTo - hourFrom}
	for _, wd := range weekdays {
		cal.Attendances = append(cal.Attendances, dayRow(id, wd, hourFrom, hourTo, PeriodMorning))
	}
	cal.HoursPerWeek = cal.WeeklyHours()
	return cal
}

func Flexible(id, tz string, hoursPerWeek float64) *Calendar {
	return &Calendar{ID: id, Name: "Flexible", TZ: tz, Flexible: true, HoursPerWeek: hoursPerWeek}
}

func FullyFlexible(id, tz string, hoursPerDay float64) *Calendar {
	return &Calendar{ID: id, Name: "Fully flexible", TZ: tz, FullyFlexible: true, HoursPerDay: hoursPerDay}
}

// AlternatingWeeks returns a two-week calendar: 8 hours Monday to Friday on
// week 0, Monday to Thursday on week 1.
func AlternatingWeeks(id, tz string) *Calendar {
	cal := &Calendar{ID: id, Name: "Alternating weeks", TZ: tz, TwoWeeks: true, HoursPerDay: 8}
	for week := 0; week <= 1; week++ {
		for _, wd := range weekdays {
			if week == 1 && wd == time.Friday {
				continue
			}
			row := dayRow(id, wd, 8, 16, PeriodMorning)
			row.ID = fmt.Sprintf("%s-w%d", row.ID, week)
			w := week
			row.WeekType = &w
			cal.Attendances = append(cal.Attendances, row)
		}
	}
	cal.HoursPerWeek = cal.WeeklyHours()
	return cal
}

func dayRow(calendarID string, wd time.Weekday, from, to float64, period DayPeriod) Attendance {
	return Attendance{
		ID:        fmt.Sprintf("%s-%s-%s", calendarID, wd.String()[:3], period),
		Name:      fmt.Sprintf("%s %s", wd, period),
		DayOfWeek: wd,
		HourFrom:  from,
		HourTo:    to,
		DayPeriod: period,
	}
}
