/*
Package factory provides JSON to Go conversion of work-entry datasets.

PURPOSE:
  Converts JSON definitions of calendars, employees, contracts, leaves and
  work-entry types into the structs the engine and its hosts use. HR tools
  and fixtures describe schedules in a readable form (weekday names, clock
  times, plain dates); the factory does the conversion and validation.

JSON SCHEMA:
  {
    "calendars": [
      {"id": "std-40", "preset": "standard40", "tz": "Europe/Brussels"},
      {
        "id": "mornings", "name": "Mornings", "tz": "Europe/Paris",
        "attendances": [
          {"day": "monday", "from": "08:30", "to": "12:30", "period": "morning"}
        ]
      }
    ],
    "employees": [{"id": "E1", "name": "Ann", "tz": "Europe/Brussels"}],
    "contracts": [
      {
        "id": "C1", "employee_id": "E1", "company_id": "CO1",
        "mode": "rigid", "calendar_id": "std-40",
        "hours_per_week": 40, "date_start": "2022-01-01"
      }
    ],
    "leaves": [
      {"id": "L1", "resource_id": "E1", "date": "2022-02-16", "tz": "Europe/Brussels",
       "work_entry_type": "LEAVE100"},
      {"id": "L2", "resource_id": "E1", "date_from": "2022-02-15T09:00:00Z",
       "date_to": "2022-02-15T11:00:00Z"}
    ],
    "work_entry_types": [{"code": "WORK100", "name": "Attendance", "count_as": "worked"}]
  }

PRESETS:
  standard40, part_time, flexible, fully_flexible, alternating_weeks

USAGE:
  f := factory.New()
  ds, err := f.ParseDataset(jsonString)
  host := ds.MemoryHost()

  The same document is accepted as YAML by ParseDatasetYAML.
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/workentry-engine/calendar"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/workentry"
	"github.com/warp/workentry-engine/workentry/store"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type DatasetJSON struct {
	Calendars      []CalendarJSON      `json:"calendars,omitempty"`
	Employees      []EmployeeJSON      `json:"employees,omitempty"`
	Contracts      []ContractJSON      `json:"contracts,omitempty"`
	Leaves         []LeaveJSON         `json:"leaves,omitempty"`
	WorkEntryTypes []WorkEntryTypeJSON `json:"work_entry_types,omitempty"`
}

type CalendarJSON struct {
	ID            string           `json:"id"`
	Name          string           `json:"name,omitempty"`
	TZ            string           `json:"tz"`
	Preset        string           `json:"preset,omitempty"`
	TwoWeeks      bool             `json:"two_weeks,omitempty"`
	Flexible      bool             `json:"flexible,omitempty"`
	FullyFlexible bool             `json:"fully_flexible,omitempty"`
	HoursPerDay   float64          `json:"hours_per_day,omitempty"`
	HoursPerWeek  float64          `json:"hours_per_week,omitempty"`
	Attendances   []AttendanceJSON `json:"attendances,omitempty"`
}

// AttendanceJSON is one weekly row. From and To are "HH:MM"; "24:00" is
// the end of the day.
type AttendanceJSON struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	Day           string `json:"day"`
	From          string `json:"from"`
	To            string `json:"to"`
	Period        string `json:"period,omitempty"`
	WeekType      *int   `json:"week_type,omitempty"`
	DateFrom      string `json:"date_from,omitempty"`
	DateTo        string `json:"date_to,omitempty"`
	WorkEntryType string `json:"work_entry_type,omitempty"`
}

type EmployeeJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
	TZ         string `json:"tz,omitempty"`
}

type ContractJSON struct {
	ID                   string  `json:"id"`
	EmployeeID           string  `json:"employee_id"`
	CompanyID            string  `json:"company_id"`
	TZ                   string  `json:"tz,omitempty"`
	Mode                 string  `json:"mode,omitempty"` // rigid, flexible, fully_flexible
	CalendarID           string  `json:"calendar_id,omitempty"`
	HoursPerDay          float64 `json:"hours_per_day,omitempty"`
	HoursPerWeek         float64 `json:"hours_per_week,omitempty"`
	DateStart            string  `json:"date_start"`
	DateEnd              string  `json:"date_end,omitempty"`
	Source               string  `json:"source,omitempty"` // calendar, attendance, planning
	DefaultWorkEntryType string  `json:"default_work_entry_type,omitempty"`
}

// LeaveJSON accepts either a UTC span (DateFrom/DateTo as RFC 3339) or
// whole local days (Date, or DayFrom..DayTo, read in TZ).
type LeaveJSON struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	ResourceID    string `json:"resource_id,omitempty"`
	CompanyID     string `json:"company_id,omitempty"`
	CalendarID    string `json:"calendar_id,omitempty"`
	DateFrom      string `json:"date_from,omitempty"`
	DateTo        string `json:"date_to,omitempty"`
	Date          string `json:"date,omitempty"`
	DayFrom       string `json:"day_from,omitempty"`
	DayTo         string `json:"day_to,omitempty"`
	TZ            string `json:"tz,omitempty"`
	WorkEntryType string `json:"work_entry_type,omitempty"`
	CountAs       string `json:"count_as,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

type WorkEntryTypeJSON struct {
	ID       string `json:"id,omitempty"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	CountAs  string `json:"count_as,omitempty"`
	IsBypass bool   `json:"is_bypass,omitempty"`
	Sequence int    `json:"sequence,omitempty"`
}

// =============================================================================
// DATASET
// =============================================================================

// Dataset is a parsed, validated set of engine inputs.
type Dataset struct {
	Calendars []*calendar.Calendar
	Employees []workentry.Employee
	Contracts []workentry.Contract
	Leaves    []workentry.Leave
	Types     []workentry.WorkEntryType
}

// MemoryHost loads the dataset into a fresh in-memory host. Types default
// to the standard catalog when the dataset has none.
func (ds *Dataset) MemoryHost() (*store.Memory, error) {
	host := store.NewMemory()
	for _, cal := range ds.Calendars {
		if err := host.AddCalendar(cal); err != nil {
			return nil, err
		}
	}
	for _, e := range ds.Employees {
		host.AddEmployee(e)
	}
	for _, l := range ds.Leaves {
		if err := host.AddLeave(l); err != nil {
			return nil, err
		}
	}
	if len(ds.Types) > 0 {
		host.SetTypes(ds.Types)
	}
	return host, nil
}

// Contract returns the contract with the given id.
func (ds *Dataset) Contract(id workentry.ContractID) (workentry.Contract, bool) {
	for _, c := range ds.Contracts {
		if c.ID == id {
			return c, true
		}
	}
	return workentry.Contract{}, false
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON datasets to Go structs.
type Factory struct{}

func New() *Factory {
	return &Factory{}
}

// ParseDataset parses a JSON string into a Dataset.
func (f *Factory) ParseDataset(jsonStr string) (*Dataset, error) {
	var dj DatasetJSON
	if err := json.Unmarshal([]byte(jsonStr), &dj); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}
	return f.FromJSON(dj)
}

// ParseDatasetYAML parses the same document written as YAML.
func (f *Factory) ParseDatasetYAML(data []byte) (*Dataset, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse dataset YAML: %w", err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert dataset YAML: %w", err)
	}
	return f.ParseDataset(string(jsonData))
}

// FromJSON converts a DatasetJSON. Contracts pick their employee from the
// dataset; an unknown employee is an error.
func (f *Factory) FromJSON(dj DatasetJSON) (*Dataset, error) {
	ds := &Dataset{}

	for _, cj := range dj.Calendars {
		cal, err := f.Calendar(cj)
		if err != nil {
			return nil, err
		}
		ds.Calendars = append(ds.Calendars, cal)
	}

	employees := make(map[workentry.EmployeeID]workentry.Employee, len(dj.Employees))
	for _, ej := range dj.Employees {
		e := workentry.Employee{
			ID:         workentry.EmployeeID(ej.ID),
			Name:       ej.Name,
			ResourceID: workentry.ResourceID(ej.ResourceID),
			TZ:         ej.TZ,
		}
		employees[e.ID] = e
		ds.Employees = append(ds.Employees, e)
	}

	for _, cj := range dj.Contracts {
		emp, ok := employees[workentry.EmployeeID(cj.EmployeeID)]
		if !ok {
			return nil, fmt.Errorf("contract %s: unknown employee %q", cj.ID, cj.EmployeeID)
		}
		c, err := f.Contract(cj, emp)
		if err != nil {
			return nil, err
		}
		ds.Contracts = append(ds.Contracts, c)
	}

	for _, lj := range dj.Leaves {
		l, err := f.Leave(lj)
		if err != nil {
			return nil, err
		}
		ds.Leaves = append(ds.Leaves, l)
	}

	for _, tj := range dj.WorkEntryTypes {
		t, err := f.WorkEntryType(tj)
		if err != nil {
			return nil, err
		}
		ds.Types = append(ds.Types, t)
	}
	return ds, nil
}

// Calendar converts one calendar, expanding presets.
func (f *Factory) Calendar(cj CalendarJSON) (*calendar.Calendar, error) {
	if cj.ID == "" {
		return nil, fmt.Errorf("calendar: id is required")
	}
	if cj.Preset != "" {
		cal, err := preset(cj)
		if err != nil {
			return nil, err
		}
		if cj.Name != "" {
			cal.Name = cj.Name
		}
		return cal, nil
	}

	cal := &calendar.Calendar{
		ID:            cj.ID,
		Name:          cj.Name,
		TZ:            cj.TZ,
		TwoWeeks:      cj.TwoWeeks,
		Flexible:      cj.Flexible,
		FullyFlexible: cj.FullyFlexible,
		HoursPerDay:   cj.HoursPerDay,
		HoursPerWeek:  cj.HoursPerWeek,
	}
	for i, aj := range cj.Attendances {
		a, err := parseAttendance(cj.ID, i, aj)
		if err != nil {
			return nil, err
		}
		cal.Attendances = append(cal.Attendances, a)
	}
	if cal.HoursPerWeek == 0 && len(cal.Attendances) > 0 {
		cal.HoursPerWeek = cal.WeeklyHours()
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return cal, nil
}

func (f *Factory) Contract(cj ContractJSON, emp workentry.Employee) (workentry.Contract, error) {
	start, err := generic.ParseDate(cj.DateStart)
	if err != nil {
		return workentry.Contract{}, fmt.Errorf("contract %s: date_start: %w", cj.ID, err)
	}
	c := workentry.Contract{
		ID:                     workentry.ContractID(cj.ID),
		Employee:               emp,
		CompanyID:              workentry.CompanyID(cj.CompanyID),
		TZ:                     cj.TZ,
		Mode:                   parseMode(cj.Mode),
		CalendarID:             workentry.CalendarID(cj.CalendarID),
		HoursPerDay:            cj.HoursPerDay,
		HoursPerWeek:           cj.HoursPerWeek,
		DateStart:              start,
		Source:                 workentry.Source(cj.Source),
		DefaultWorkEntryTypeID: workentry.WorkEntryTypeID(cj.DefaultWorkEntryType),
	}
	if cj.DateEnd != "" {
		end, err := generic.ParseDate(cj.DateEnd)
		if err != nil {
			return workentry.Contract{}, fmt.Errorf("contract %s: date_end: %w", cj.ID, err)
		}
		c.DateEnd = &end
	}
	if err := c.Validate(); err != nil {
		return workentry.Contract{}, err
	}
	return c, nil
}

func (f *Factory) Leave(lj LeaveJSON) (workentry.Leave, error) {
	from, to, err := parseLeaveSpan(lj)
	if err != nil {
		return workentry.Leave{}, fmt.Errorf("leave %s: %w", lj.ID, err)
	}
	l := workentry.Leave{
		ID:              workentry.LeaveID(lj.ID),
		Name:            lj.Name,
		ResourceID:      workentry.ResourceID(lj.ResourceID),
		CompanyID:       workentry.CompanyID(lj.CompanyID),
		CalendarID:      workentry.CalendarID(lj.CalendarID),
		DateFrom:        from,
		DateTo:          to,
		WorkEntryTypeID: workentry.WorkEntryTypeID(lj.WorkEntryType),
		CountAs:         parseCountAs(lj.CountAs),
		RequestID:       lj.RequestID,
	}
	if err := l.Validate(); err != nil {
		return workentry.Leave{}, err
	}
	return l, nil
}

func (f *Factory) WorkEntryType(tj WorkEntryTypeJSON) (workentry.WorkEntryType, error) {
	if tj.Code == "" {
		return workentry.WorkEntryType{}, fmt.Errorf("work entry type: code is required")
	}
	id := tj.ID
	if id == "" {
		id = tj.Code
	}
	countAs := parseCountAs(tj.CountAs)
	if countAs == "" {
		countAs = workentry.CountWorked
	}
	return workentry.WorkEntryType{
		ID:       workentry.WorkEntryTypeID(id),
		Code:     tj.Code,
		Name:     tj.Name,
		CountAs:  countAs,
		IsBypass: tj.IsBypass,
		Sequence: tj.Sequence,
	}, nil
}

// ToJSON converts a calendar back to its JSON form.
func (f *Factory) ToJSON(cal *calendar.Calendar) CalendarJSON {
	cj := CalendarJSON{
		ID:            cal.ID,
		Name:          cal.Name,
		TZ:            cal.TZ,
		TwoWeeks:      cal.TwoWeeks,
		Flexible:      cal.Flexible,
		FullyFlexible: cal.FullyFlexible,
		HoursPerDay:   cal.HoursPerDay,
		HoursPerWeek:  cal.HoursPerWeek,
	}
	for _, a := range cal.Attendances {
		aj := AttendanceJSON{
			ID:            a.ID,
			Name:          a.Name,
			Day:           strings.ToLower(a.DayOfWeek.String()),
			From:          formatClock(a.HourFrom),
			To:            formatClock(a.HourTo),
			Period:        string(a.DayPeriod),
			WeekType:      a.WeekType,
			WorkEntryType: a.WorkEntryTypeID,
		}
		if a.DateFrom != nil {
			aj.DateFrom = a.DateFrom.String()
		}
		if a.DateTo != nil {
			aj.DateTo = a.DateTo.String()
		}
		cj.Attendances = append(cj.Attendances, aj)
	}
	return cj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func preset(cj CalendarJSON) (*calendar.Calendar, error) {
	switch cj.Preset {
	case "standard40":
		return calendar.Standard40(cj.ID, cj.TZ), nil
	case "part_time":
		return calendar.PartTime(cj.ID, cj.TZ, 9, 13), nil
	case "flexible":
		return calendar.Flexible(cj.ID, cj.TZ, cj.HoursPerWeek), nil
	case "fully_flexible":
		return calendar.FullyFlexible(cj.ID, cj.TZ, cj.HoursPerDay), nil
	case "alternating_weeks":
		return calendar.AlternatingWeeks(cj.ID, cj.TZ), nil
	default:
		return nil, fmt.Errorf("calendar %s: unknown preset %q", cj.ID, cj.Preset)
	}
}

func parseAttendance(calendarID string, index int, aj AttendanceJSON) (calendar.Attendance, error) {
	day, err := parseWeekday(aj.Day)
	if err != nil {
		return calendar.Attendance{}, fmt.Errorf("calendar %s: %w", calendarID, err)
	}
	from, err := parseClock(aj.From)
	if err != nil {
		return calendar.Attendance{}, fmt.Errorf("calendar %s: from: %w", calendarID, err)
	}
	to, err := parseClock(aj.To)
	if err != nil {
		return calendar.Attendance{}, fmt.Errorf("calendar %s: to: %w", calendarID, err)
	}

	a := calendar.Attendance{
		ID:              aj.ID,
		Name:            aj.Name,
		DayOfWeek:       day,
		HourFrom:        from,
		HourTo:          to,
		DayPeriod:       calendar.DayPeriod(aj.Period),
		WeekType:        aj.WeekType,
		WorkEntryTypeID: aj.WorkEntryType,
	}
	if a.ID == "" {
		a.ID = fmt.Sprintf("%s-%d", calendarID, index+1)
	}
	if a.DayPeriod == "" {
		a.DayPeriod = calendar.PeriodMorning
		if from >= 12 {
			a.DayPeriod = calendar.PeriodAfternoon
		}
	}
	if aj.DateFrom != "" {
		d, err := generic.ParseDate(aj.DateFrom)
		if err != nil {
			return calendar.Attendance{}, fmt.Errorf("calendar %s: date_from: %w", calendarID, err)
		}
		a.DateFrom = &d
	}
	if aj.DateTo != "" {
		d, err := generic.ParseDate(aj.DateTo)
		if err != nil {
			return calendar.Attendance{}, fmt.Errorf("calendar %s: date_to: %w", calendarID, err)
		}
		a.DateTo = &d
	}
	return a, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(s) {
	case "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	default:
		return 0, fmt.Errorf("unknown day %q", s)
	}
}

// parseClock reads "HH:MM" as decimal hours.
func parseClock(s string) (float64, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if hours < 0 || hours > 24 || minutes < 0 || minutes > 59 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return float64(hours) + float64(minutes)/60, nil
}

func formatClock(hours float64) string {
	total := int(hours*60 + 0.5)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func parseMode(s string) workentry.ScheduleMode {
	switch s {
	case "flexible":
		return workentry.ScheduleFlexible
	case "fully_flexible":
		return workentry.ScheduleFullyFlexible
	case "", "rigid":
		return workentry.ScheduleRigid
	default:
		// Left as is; Contract.Validate rejects it.
		return workentry.ScheduleMode(s)
	}
}

func parseCountAs(s string) workentry.CountAs {
	switch s {
	case "absence":
		return workentry.CountAbsence
	case "worked":
		return workentry.CountWorked
	default:
		return ""
	}
}

func parseLeaveSpan(lj LeaveJSON) (time.Time, time.Time, error) {
	if lj.DateFrom != "" || lj.DateTo != "" {
		from, err := time.Parse(time.RFC3339, lj.DateFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("date_from: %w", err)
		}
		to, err := time.Parse(time.RFC3339, lj.DateTo)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("date_to: %w", err)
		}
		return from.UTC(), to.UTC(), nil
	}

	first, last := lj.DayFrom, lj.DayTo
	if lj.Date != "" {
		first, last = lj.Date, lj.Date
	}
	if first == "" || last == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("either date_from/date_to or date or day_from/day_to is required")
	}
	d0, err := generic.ParseDate(first)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	d1, err := generic.ParseDate(last)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	loc := time.UTC
	if lj.TZ != "" {
		if loc, err = generic.NewZones().Load(lj.TZ); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return d0.Midnight(loc).UTC(), d1.AddDays(1).Midnight(loc).UTC(), nil
}
