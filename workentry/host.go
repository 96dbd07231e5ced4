/*
host.go - Capabilities the engine consumes

PURPOSE:
  The engine does not own calendars, leaves or the entry type catalog. It
  asks a Host. Hosts are read-only from the engine's point of view and
  must answer from a consistent snapshot for the duration of one
  Generate call.

IMPLEMENTATIONS:
  - workentry/store/memory.go: In-memory host (tests, demos)
  - store/sqlite/host.go: SQLite-backed host
*/
package workentry

import (
	"context"
	"time"

	"github.com/warp/workentry-engine/generic"
)

// Capability names, used in CapabilityError.
const (
	CapWorkIntervals  = "work_intervals"
	CapFetchLeaves    = "resource_leaves_fetch"
	CapWorkDaysData   = "work_days_data"
	CapWorkEntryTypes = "work_entry_types"
	CapSourceFields   = "work_entry_source_fields"
	CapDefaultTypes   = "default_work_entry_type"
	CapBypassCodes    = "bypass_work_entry_type_codes"
)

// CalendarEmployee keys work-days data. TZ is the zone the calendar was
// expanded in; empty means the calendar's own zone.
type CalendarEmployee struct {
	CalendarID CalendarID
	EmployeeID EmployeeID
	TZ         string
}

type Host interface {
	// WorkIntervals returns the expected-work intervals of a calendar for
	// each resource, expanded in the resource's timezone (map key). static
	// asks for the rigid weekly expansion even when the live schedule
	// differs. Attendance payload refs carry their entry type hint.
	WorkIntervals(ctx context.Context, calendarID CalendarID, start, end time.Time, resourcesByTZ map[string][]ResourceID, static bool) (map[ResourceID]generic.Intervals, error)

	// FetchLeaves returns every leave meeting [start, end] (bounds
	// included) for the given resources, plus global leaves that are
	// unscoped or scoped to one of the companies or calendars.
	FetchLeaves(ctx context.Context, start, end time.Time, resources []ResourceID, companies []CompanyID, calendars []CalendarID) ([]Leave, error)

	// WorkDaysData returns the hours each employee would have worked per
	// calendar in [start, end], leaves not taken into account. Employees
	// are grouped by the zone the calendar is expanded in, as in
	// WorkIntervals.
	WorkDaysData(ctx context.Context, start, end time.Time, employeesByCalendar map[CalendarID]map[string][]EmployeeID) (map[CalendarEmployee]generic.Amount, error)

	WorkEntryTypes(ctx context.Context) ([]WorkEntryType, error)

	// WorkEntrySourceFields lists the source fields the merger unions,
	// e.g. "leave_ids", "attendance_ids".
	WorkEntrySourceFields(ctx context.Context) ([]string, error)

	// DefaultAttendanceType may return "" when there is none.
	DefaultAttendanceType(ctx context.Context) (WorkEntryTypeID, error)
	DefaultLeaveType(ctx context.Context) (WorkEntryTypeID, error)
	BypassCodes(ctx context.Context) ([]string, error)
}
