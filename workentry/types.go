/*
Package workentry generates work entries: the per-day, per-type record of
what an employee's contract expected and what actually happened.

PURPOSE:
  Given contracts and a date range, the engine reconciles three sources of
  truth (the working schedule, declared leaves, the contract lifecycle)
  and produces one row per (local day, work-entry type, employee,
  contract, company) with a duration in hours.

PIPELINE:
  1. Orchestrator (engine.go): validate, group by (company, tz), clip
     each contract to its active span, fan out into sub-windows
  2. Attendance producer (attendance.go): expected-work intervals
  3. Leave producer (leave.go): absence and worked leaves per contract
  4. Classifier (classify.go): real attendances, real leaves, real worked
     leaves, and the work-entry type of each
  5. Day splitter (split.go): cut at local midnight, compute durations
  6. Merger (merge.go): sum rows sharing a key, union their sources

THE ENGINE IS PURE:
  No database, no clock, no logging. Everything it needs comes from the
  Host (host.go). Same inputs and same host answers give the same output.

EXAMPLE:
  engine := workentry.New(host, workentry.WithBypassCodes("HOLIDAY"))
  res, err := engine.Generate(ctx, contracts, from, to)
  for _, e := range res.Entries {
      fmt.Println(e.Date, e.WorkEntryTypeID, e.Duration)
  }
  for _, ce := range res.Errors {
      log.Printf("skipped %s: %s", ce.ContractID, ce.Reason)
  }
*/
package workentry

import (
	"fmt"
	"time"

	"github.com/warp/workentry-engine/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	ContractID      string
	EmployeeID      string
	CompanyID       string
	CalendarID      string
	ResourceID      string
	LeaveID         string
	WorkEntryTypeID string
)

// =============================================================================
// ENUMS
// =============================================================================

// ScheduleMode describes how strictly the working calendar constrains
// expected work.
type ScheduleMode string

const (
	ScheduleRigid         ScheduleMode = "rigid"
	ScheduleFlexible      ScheduleMode = "flexible"
	ScheduleFullyFlexible ScheduleMode = "fully_flexible"
)

func (m ScheduleMode) Valid() bool {
	switch m {
	case ScheduleRigid, ScheduleFlexible, ScheduleFullyFlexible:
		return true
	}
	return false
}

// CountAs tells whether time spent under a leave or entry type is
// non-worked (absence) or worked.
type CountAs string

const (
	CountAbsence CountAs = "absence"
	CountWorked  CountAs = "worked"
)

// Source is where a contract's attendances come from. Only calendar-based
// contracts have static work entries.
type Source string

const (
	SourceCalendar   Source = "calendar"
	SourceAttendance Source = "attendance"
	SourcePlanning   Source = "planning"
)

// =============================================================================
// EMPLOYEE & CONTRACT
// =============================================================================

type Employee struct {
	ID         EmployeeID `json:"id"`
	Name       string     `json:"name,omitempty"`
	ResourceID ResourceID `json:"resource_id,omitempty"`
	TZ         string     `json:"tz,omitempty"`
}

// Resource returns the resource leaves and attendances are keyed by. It
// defaults to the employee id.
func (e Employee) Resource() ResourceID {
	if e.ResourceID != "" {
		return e.ResourceID
	}
	return ResourceID(e.ID)
}

type Contract struct {
	ID                     ContractID      `json:"id"`
	Employee               Employee        `json:"employee"`
	CompanyID              CompanyID       `json:"company_id"`
	TZ                     string          `json:"tz,omitempty"`
	Mode                   ScheduleMode    `json:"mode"`
	CalendarID             CalendarID      `json:"calendar_id,omitempty"`
	HoursPerDay            float64         `json:"hours_per_day,omitempty"`
	HoursPerWeek           float64         `json:"hours_per_week,omitempty"`
	DateStart              generic.Date    `json:"date_start"`
	DateEnd                *generic.Date   `json:"date_end,omitempty"`
	Source                 Source          `json:"source,omitempty"`
	DefaultWorkEntryTypeID WorkEntryTypeID `json:"default_work_entry_type_id,omitempty"`
}

// Timezone returns the contract's zone, or the employee's as a fallback.
func (c Contract) Timezone() string {
	if c.TZ != "" {
		return c.TZ
	}
	return c.Employee.TZ
}

// IsStatic reports whether the contract's work entries come from its
// calendar rather than from recorded attendances or planning.
func (c Contract) IsStatic() bool {
	return c.Source == "" || c.Source == SourceCalendar
}

// DailyHours is HoursPerDay, falling back to a five-day split of
// HoursPerWeek.
func (c Contract) DailyHours() float64 {
	if c.HoursPerDay > 0 {
		return c.HoursPerDay
	}
	return c.HoursPerWeek / 5
}

// Span clips the contract's active dates to [from, to]. ok is false when
// the contract is not running in that range.
func (c Contract) Span(from, to generic.Date) (generic.Period, bool) {
	active := generic.Period{Start: c.DateStart, End: to}
	if c.DateEnd != nil {
		active.End = *c.DateEnd
	}
	return active.Intersect(generic.Period{Start: from, End: to})
}

func (c Contract) Validate() error {
	if c.ID == "" {
		return &InputError{Field: "contract.id", Message: "required"}
	}
	if !c.Mode.Valid() {
		return &InputError{Field: "contract.mode", Message: fmt.Sprintf("contract %s: unknown schedule mode %q", c.ID, c.Mode)}
	}
	if c.DateStart.IsZero() {
		return &InputError{Field: "contract.date_start", Message: fmt.Sprintf("contract %s: required", c.ID)}
	}
	if c.DateEnd != nil && c.DateEnd.Before(c.DateStart) {
		return &InputError{Field: "contract.date_end", Message: fmt.Sprintf("contract %s: ends before it starts", c.ID)}
	}
	if c.HoursPerDay < 0 || c.HoursPerWeek < 0 {
		return &InputError{Field: "contract.hours", Message: fmt.Sprintf("contract %s: negative hours", c.ID)}
	}
	return nil
}

// =============================================================================
// LEAVE
// =============================================================================

// Leave is a declared absence over [DateFrom, DateTo], in UTC. A leave
// without a resource is global: it applies to every contract of its
// company and calendar (a public holiday, a company closure).
type Leave struct {
	ID              LeaveID         `json:"id"`
	Name            string          `json:"name,omitempty"`
	ResourceID      ResourceID      `json:"resource_id,omitempty"`
	CompanyID       CompanyID       `json:"company_id,omitempty"`
	CalendarID      CalendarID      `json:"calendar_id,omitempty"`
	DateFrom        time.Time       `json:"date_from"`
	DateTo          time.Time       `json:"date_to"`
	WorkEntryTypeID WorkEntryTypeID `json:"work_entry_type_id,omitempty"`
	CountAs         CountAs         `json:"count_as,omitempty"`
	RequestID       string          `json:"request_id,omitempty"`
}

func (l Leave) IsGlobal() bool { return l.ResourceID == "" }

func (l Leave) Ref() generic.Ref {
	return generic.Ref{Kind: generic.RefLeave, ID: string(l.ID), Type: string(l.WorkEntryTypeID)}
}

// Touches reports whether the leave meets [start, end], bounds included.
func (l Leave) Touches(start, end time.Time) bool {
	return !l.DateFrom.After(end) && !l.DateTo.Before(start)
}

func (l Leave) Validate() error {
	if l.DateTo.Before(l.DateFrom) {
		return &InputError{Field: "leave.date_to", Message: fmt.Sprintf("leave %s: ends before it starts", l.ID)}
	}
	return nil
}

// =============================================================================
// WORK ENTRY TYPE
// =============================================================================

type WorkEntryType struct {
	ID       WorkEntryTypeID `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	CountAs  CountAs         `json:"count_as"`
	IsBypass bool            `json:"is_bypass,omitempty"`
	Sequence int             `json:"sequence,omitempty"`
}

func (t WorkEntryType) IsAbsence() bool { return t.CountAs == CountAbsence }

// Standard work-entry type codes.
const (
	CodeAttendance    = "WORK100"
	CodeOvertime      = "OVERTIME"
	CodeHomeWorking   = "WORK110"
	CodePaidLeave     = "LEAVE100"
	CodeUnpaidLeave   = "LEAVE90"
	CodeSickLeave     = "LEAVE110"
	CodePublicHoliday = "LEAVE_HOLIDAY"
)

// StandardTypes returns the default catalog. Ids equal codes.
func StandardTypes() []WorkEntryType {
	return []WorkEntryType{
		{ID: CodeAttendance, Code: CodeAttendance, Name: "Attendance", CountAs: CountWorked, Sequence: 10},
		{ID: CodeOvertime, Code: CodeOvertime, Name: "Overtime", CountAs: CountWorked, Sequence: 15},
		{ID: CodeHomeWorking, Code: CodeHomeWorking, Name: "Home working", CountAs: CountWorked, Sequence: 20},
		{ID: CodePaidLeave, Code: CodePaidLeave, Name: "Paid time off", CountAs: CountAbsence, Sequence: 30},
		{ID: CodeUnpaidLeave, Code: CodeUnpaidLeave, Name: "Unpaid", CountAs: CountAbsence, Sequence: 35},
		{ID: CodeSickLeave, Code: CodeSickLeave, Name: "Sick time off", CountAs: CountAbsence, Sequence: 40},
		{ID: CodePublicHoliday, Code: CodePublicHoliday, Name: "Public holiday", CountAs: CountAbsence, IsBypass: true, Sequence: 50},
	}
}

// =============================================================================
// WORK ENTRY - Engine output
// =============================================================================

// WorkEntry is one produced row. Sources maps each source field
// ("leave_ids", "attendance_ids", ...) to the ids the row was built from.
type WorkEntry struct {
	Date            generic.Date        `json:"date"`
	Duration        generic.Amount      `json:"duration"`
	WorkEntryTypeID WorkEntryTypeID     `json:"work_entry_type_id"`
	EmployeeID      EmployeeID          `json:"employee_id"`
	ContractID      ContractID          `json:"contract_id"`
	CompanyID       CompanyID           `json:"company_id"`
	Sources         map[string][]string `json:"sources,omitempty"`
}

// Key identifies the merge bucket of a row.
type Key struct {
	Date            generic.Date
	WorkEntryTypeID WorkEntryTypeID
	EmployeeID      EmployeeID
	ContractID      ContractID
	CompanyID       CompanyID
}

func (e WorkEntry) Key() Key {
	return Key{
		Date:            e.Date,
		WorkEntryTypeID: e.WorkEntryTypeID,
		EmployeeID:      e.EmployeeID,
		ContractID:      e.ContractID,
		CompanyID:       e.CompanyID,
	}
}

// Result is what Generate returns. Errors lists contracts that were
// skipped; Canceled is set when the context ended before all contracts
// were processed, in which case Entries holds what was done so far.
type Result struct {
	Entries  []WorkEntry
	Errors   []ContractError
	Canceled bool
}
