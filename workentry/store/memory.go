// Package store provides an in-memory workentry.Host.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/workentry-engine/calendar"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/workentry"
)

// DefaultSourceFields are the source fields tracked unless configured.
var DefaultSourceFields = []string{
	generic.RefAttendance.SourceField(),
	generic.RefLeave.SourceField(),
	generic.RefSlot.SourceField(),
}

// =============================================================================
// MEMORY HOST - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu                sync.RWMutex
	calendars         map[workentry.CalendarID]*calendar.Calendar
	employees         map[workentry.EmployeeID]workentry.Employee
	leaves            []workentry.Leave // ordered by DateFrom
	recorded          map[workentry.ResourceID][]generic.Interval
	types             []workentry.WorkEntryType
	fields            []string
	defaultAttendance workentry.WorkEntryTypeID
	defaultLeave      workentry.WorkEntryTypeID
	bypass            []string
	calls             map[string]int
}

var _ workentry.Host = (*Memory)(nil)

// NewMemory returns a host with the standard type catalog, attendance and
// paid leave as defaults, and no bypass codes.
func NewMemory() *Memory {
	return &Memory{
		calendars:         make(map[workentry.CalendarID]*calendar.Calendar),
		employees:         make(map[workentry.EmployeeID]workentry.Employee),
		recorded:          make(map[workentry.ResourceID][]generic.Interval),
		types:             workentry.StandardTypes(),
		fields:            append([]string(nil), DefaultSourceFields...),
		defaultAttendance: workentry.CodeAttendance,
		defaultLeave:      workentry.CodePaidLeave,
		calls:             make(map[string]int),
	}
}

// =============================================================================
// SETUP
// =============================================================================

func (m *Memory) AddCalendar(cal *calendar.Calendar) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calendars[workentry.CalendarID(cal.ID)] = cal
	return nil
}

func (m *Memory) AddEmployee(e workentry.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
}

// AddLeave inserts a leave, keeping leaves ordered by start. Leaves with
// the same start keep their insertion order.
func (m *Memory) AddLeave(l workentry.Leave) error {
	if err := l.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.Search(len(m.leaves), func(i int) bool {
		return m.leaves[i].DateFrom.After(l.DateFrom)
	})
	m.leaves = append(m.leaves, workentry.Leave{})
	copy(m.leaves[i+1:], m.leaves[i:])
	m.leaves[i] = l
	return nil
}

// RecordAttendance stores an actual attendance (or planning slot) of a
// resource. Non-static contracts are generated from these.
func (m *Memory) RecordAttendance(resource workentry.ResourceID, iv generic.Interval) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded[resource] = append(m.recorded[resource], iv)
}

func (m *Memory) SetTypes(types []workentry.WorkEntryType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append([]workentry.WorkEntryType(nil), types...)
}

func (m *Memory) SetDefaults(attendance, leave workentry.WorkEntryTypeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultAttendance, m.defaultLeave = attendance, leave
}

func (m *Memory) SetBypassCodes(codes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bypass = append([]string(nil), codes...)
}

func (m *Memory) SetSourceFields(fields ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields = append([]string(nil), fields...)
}

// Calls returns how many times a capability was called.
func (m *Memory) Calls(capability string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[capability]
}

// =============================================================================
// CAPABILITIES
// =============================================================================

func (m *Memory) WorkIntervals(_ context.Context, calendarID workentry.CalendarID, start, end time.Time, resourcesByTZ map[string][]workentry.ResourceID, static bool) (map[workentry.ResourceID]generic.Intervals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[workentry.CapWorkIntervals]++

	cal, ok := m.calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", calendarID, calendar.ErrCalendarNotFound)
	}

	out := make(map[workentry.ResourceID]generic.Intervals)
	byTZ := make(map[string][]string)
	for tz, resources := range resourcesByTZ {
		for _, res := range resources {
			if !static && len(m.recorded[res]) > 0 {
				out[res] = generic.NewDistinctIntervals(m.recorded[res]...).Clip(start, end)
				continue
			}
			byTZ[tz] = append(byTZ[tz], string(res))
		}
	}

	expanded, err := cal.WorkIntervals(start, end, byTZ, static)
	if err != nil {
		return nil, err
	}
	for res, intervals := range expanded {
		out[workentry.ResourceID(res)] = intervals
	}
	return out, nil
}

func (m *Memory) FetchLeaves(_ context.Context, start, end time.Time, resources []workentry.ResourceID, companies []workentry.CompanyID, calendars []workentry.CalendarID) ([]workentry.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[workentry.CapFetchLeaves]++

	wantRes := make(map[workentry.ResourceID]bool, len(resources))
	for _, r := range resources {
		wantRes[r] = true
	}
	wantCo := make(map[workentry.CompanyID]bool, len(companies))
	for _, c := range companies {
		wantCo[c] = true
	}
	wantCal := make(map[workentry.CalendarID]bool, len(calendars))
	for _, c := range calendars {
		wantCal[c] = true
	}

	var out []workentry.Leave
	for _, l := range m.leaves {
		if !l.Touches(start, end) {
			continue
		}
		if l.IsGlobal() {
			if (l.CompanyID == "" || wantCo[l.CompanyID]) && (l.CalendarID == "" || wantCal[l.CalendarID]) {
				out = append(out, l)
			}
			continue
		}
		if wantRes[l.ResourceID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) WorkDaysData(_ context.Context, start, end time.Time, employeesByCalendar map[workentry.CalendarID]map[string][]workentry.EmployeeID) (map[workentry.CalendarEmployee]generic.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[workentry.CapWorkDaysData]++

	out := make(map[workentry.CalendarEmployee]generic.Amount)
	for calID, byTZ := range employeesByCalendar {
		cal, ok := m.calendars[calID]
		if !ok {
			return nil, fmt.Errorf("%s: %w", calID, calendar.ErrCalendarNotFound)
		}
		for tz, employees := range byTZ {
			hours, err := cal.WorkHoursIn(start, end, tz)
			if err != nil {
				return nil, err
			}
			for _, empID := range employees {
				out[workentry.CalendarEmployee{CalendarID: calID, EmployeeID: empID, TZ: tz}] = hours
			}
		}
	}
	return out, nil
}

func (m *Memory) WorkEntryTypes(context.Context) ([]workentry.WorkEntryType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]workentry.WorkEntryType(nil), m.types...), nil
}

func (m *Memory) WorkEntrySourceFields(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.fields...), nil
}

func (m *Memory) DefaultAttendanceType(context.Context) (workentry.WorkEntryTypeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultAttendance, nil
}

func (m *Memory) DefaultLeaveType(context.Context) (workentry.WorkEntryTypeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLeave, nil
}

func (m *Memory) BypassCodes(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.bypass...), nil
}
