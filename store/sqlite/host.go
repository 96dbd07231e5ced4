package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/workentry-engine/calendar"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/workentry"
)

// =============================================================================
// CAPABILITIES (workentry.Host interface)
// =============================================================================

var _ workentry.Host = (*Store)(nil)

// WorkIntervals expands the calendar for the given resources. When static
// is false, resources with recorded attendances in the window get those
// instead, one interval per record.
func (s *Store) WorkIntervals(ctx context.Context, calendarID workentry.CalendarID, start, end time.Time, resourcesByTZ map[string][]workentry.ResourceID, static bool) (map[workentry.ResourceID]generic.Intervals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal, err := s.calendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, fmt.Errorf("%s: %w", calendarID, calendar.ErrCalendarNotFound)
	}

	var recorded map[workentry.ResourceID][]generic.Interval
	if !static {
		var all []workentry.ResourceID
		for _, resources := range resourcesByTZ {
			all = append(all, resources...)
		}
		if recorded, err = s.recordedAttendances(ctx, all, start, end); err != nil {
			return nil, err
		}
	}

	out := make(map[workentry.ResourceID]generic.Intervals)
	byTZ := make(map[string][]string)
	for tz, resources := range resourcesByTZ {
		for _, res := range resources {
			if records := recorded[res]; len(records) > 0 {
				out[res] = generic.NewDistinctIntervals(records...).Clip(start, end)
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

func (s *Store) recordedAttendances(ctx context.Context, resources []workentry.ResourceID, start, end time.Time) (map[workentry.ResourceID][]generic.Interval, error) {
	if len(resources) == 0 {
		return nil, nil
	}
	args := []any{formatTime(end), formatTime(start)}
	for _, r := range resources {
		args = append(args, r)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, resource_id, check_in, check_out, work_entry_type_id
		FROM attendances
		WHERE check_in <= ? AND check_out >= ? AND resource_id IN (`+placeholders(len(resources))+`)
		ORDER BY check_in, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendances: %w", err)
	}
	defer rows.Close()

	out := make(map[workentry.ResourceID][]generic.Interval)
	for rows.Next() {
		var (
			id, checkIn, checkOut, typeID string
			resource                      workentry.ResourceID
		)
		if err := rows.Scan(&id, &resource, &checkIn, &checkOut, &typeID); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		from, err := time.Parse(timeLayout, checkIn)
		if err != nil {
			return nil, err
		}
		to, err := time.Parse(timeLayout, checkOut)
		if err != nil {
			return nil, err
		}
		out[resource] = append(out[resource], generic.Interval{
			Start:   from,
			End:     to,
			Payload: generic.NewPayload(generic.Ref{Kind: generic.RefAttendance, ID: id, Type: typeID}),
		})
	}
	return out, rows.Err()
}

// FetchLeaves returns the leaves touching [start, end]: personal leaves of
// the resources, and global leaves open to one of the companies and
// calendars. Leaves come ordered by start.
func (s *Store) FetchLeaves(ctx context.Context, start, end time.Time, resources []workentry.ResourceID, companies []workentry.CompanyID, calendars []workentry.CalendarID) ([]workentry.Leave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := []any{formatTime(end), formatTime(start)}
	for _, r := range resources {
		args = append(args, r)
	}
	for _, c := range companies {
		args = append(args, c)
	}
	for _, c := range calendars {
		args = append(args, c)
	}

	query := `
		SELECT id, name, resource_id, company_id, calendar_id, date_from, date_to,
		       work_entry_type_id, count_as, request_id
		FROM leaves
		WHERE date_from <= ? AND date_to >= ?
		  AND (
		    (resource_id != '' AND resource_id IN (` + placeholders(len(resources)) + `))
		    OR (resource_id = ''
		        AND (company_id = '' OR company_id IN (` + placeholders(len(companies)) + `))
		        AND (calendar_id = '' OR calendar_id IN (` + placeholders(len(calendars)) + `)))
		  )
		ORDER BY date_from ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var leaves []workentry.Leave
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, l)
	}
	return leaves, rows.Err()
}

func scanLeave(rows *sql.Rows) (workentry.Leave, error) {
	var (
		l        workentry.Leave
		from, to string
	)
	err := rows.Scan(&l.ID, &l.Name, &l.ResourceID, &l.CompanyID, &l.CalendarID, &from, &to,
		&l.WorkEntryTypeID, &l.CountAs, &l.RequestID)
	if err != nil {
		return l, fmt.Errorf("failed to scan leave: %w", err)
	}
	if l.DateFrom, err = time.Parse(timeLayout, from); err != nil {
		return l, fmt.Errorf("leave %s: %w", l.ID, err)
	}
	if l.DateTo, err = time.Parse(timeLayout, to); err != nil {
		return l, fmt.Errorf("leave %s: %w", l.ID, err)
	}
	return l, nil
}

// WorkDaysData returns the hours each calendar would have worked over
// [start, end] for each employee, leaves ignored, expanded in the zone the
// employee is grouped under (the calendar's for an empty key).
func (s *Store) WorkDaysData(ctx context.Context, start, end time.Time, employeesByCalendar map[workentry.CalendarID]map[string][]workentry.EmployeeID) (map[workentry.CalendarEmployee]generic.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[workentry.CalendarEmployee]generic.Amount)
	for calID, byTZ := range employeesByCalendar {
		cal, err := s.calendar(ctx, calID)
		if err != nil {
			return nil, err
		}
		if cal == nil {
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

func (s *Store) WorkEntryTypes(ctx context.Context) ([]workentry.WorkEntryType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, name, count_as, is_bypass, sequence FROM work_entry_types ORDER BY sequence, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query work entry types: %w", err)
	}
	defer rows.Close()

	var types []workentry.WorkEntryType
	for rows.Next() {
		var t workentry.WorkEntryType
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.CountAs, &t.IsBypass, &t.Sequence); err != nil {
			return nil, fmt.Errorf("failed to scan work entry type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (s *Store) WorkEntrySourceFields(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.settings.SourceFields...), nil
}

func (s *Store) DefaultAttendanceType(context.Context) (workentry.WorkEntryTypeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.DefaultAttendance, nil
}

func (s *Store) DefaultLeaveType(context.Context) (workentry.WorkEntryTypeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.DefaultLeave, nil
}

func (s *Store) BypassCodes(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.settings.BypassCodes...), nil
}
