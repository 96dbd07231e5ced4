package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workentry-engine/calendar"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/workentry"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newStore(t *testing.T) *Store {
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func feb(day int) generic.Date { return generic.NewDate(2022, time.February, day) }

func brusselsDay(t *testing.T, day int) (time.Time, time.Time) {
	loc, err := time.LoadLocation("Europe/Brussels")
	require.NoError(t, err)
	start := time.Date(2022, time.February, day, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func seed(t *testing.T, store *Store) workentry.Contract {
	ctx := context.Background()
	require.NoError(t, store.SaveCalendar(ctx, calendar.Standard40("std40", "Europe/Brussels")))
	c := workentry.Contract{
		ID:           "C1",
		Employee:     workentry.Employee{ID: "E1", Name: "Ann", TZ: "Europe/Brussels"},
		CompanyID:    "CO1",
		Mode:         workentry.ScheduleRigid,
		CalendarID:   "std40",
		HoursPerWeek: 40,
		DateStart:    generic.NewDate(2022, time.January, 1),
	}
	require.NoError(t, store.SaveContract(ctx, c))
	return c
}

// =============================================================================
// RECORDS
// =============================================================================

func TestStore_Contracts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seed(t, store)

	ended := generic.NewDate(2022, time.January, 31)
	require.NoError(t, store.SaveContract(ctx, workentry.Contract{
		ID:        "C2",
		Employee:  workentry.Employee{ID: "E2", Name: "Bob"},
		CompanyID: "CO1",
		TZ:        "Europe/Paris",
		Mode:      workentry.ScheduleFullyFlexible,
		DateStart: generic.NewDate(2021, time.June, 1),
		DateEnd:   &ended,
	}))

	t.Run("get with employee", func(t *testing.T) {
		c, err := store.GetContract(ctx, "C1")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, workentry.EmployeeID("E1"), c.Employee.ID)
		assert.Equal(t, "Europe/Brussels", c.Timezone())
		assert.Nil(t, c.DateEnd)
	})

	t.Run("missing", func(t *testing.T) {
		c, err := store.GetContract(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("running in a range", func(t *testing.T) {
		running, err := store.RunningContracts(ctx, feb(1), feb(28))
		require.NoError(t, err)
		require.Len(t, running, 1)
		assert.Equal(t, workentry.ContractID("C1"), running[0].ID)

		running, err = store.RunningContracts(ctx, generic.NewDate(2022, time.January, 15), feb(28))
		require.NoError(t, err)
		assert.Len(t, running, 2)
	})

	t.Run("invalid contract is rejected", func(t *testing.T) {
		err := store.SaveContract(ctx, workentry.Contract{ID: "C3", Mode: "shifts"})
		assert.True(t, workentry.IsInputError(err))
	})
}

func TestStore_CalendarVersions(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	cal := calendar.Standard40("std40", "Europe/Brussels")
	require.NoError(t, store.SaveCalendar(ctx, cal))
	cal.Name = "Renamed"
	require.NoError(t, store.SaveCalendar(ctx, cal))

	got, err := store.GetCalendar(ctx, "std40")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 40.0, got.WeeklyHours())

	var version int
	require.NoError(t, store.db.QueryRow("SELECT version FROM calendars WHERE id = 'std40'").Scan(&version))
	assert.Equal(t, 2, version)
}

// =============================================================================
// CAPABILITIES
// =============================================================================

func TestStore_FetchLeaves(t *testing.T) {
	// GIVEN: Personal and global leaves, some out of scope
	store := newStore(t)
	ctx := context.Background()
	seed(t, store)

	from, to := brusselsDay(t, 16)
	leaves := []workentry.Leave{
		{ID: "mine", ResourceID: "E1", DateFrom: from, DateTo: to},
		{ID: "theirs", ResourceID: "E9", DateFrom: from, DateTo: to},
		{ID: "holiday", CompanyID: "CO1", DateFrom: from, DateTo: to, WorkEntryTypeID: workentry.CodePublicHoliday},
		{ID: "other-company", CompanyID: "CO2", DateFrom: from, DateTo: to},
		{ID: "other-calendar", CalendarID: "part", DateFrom: from, DateTo: to},
		{ID: "everyone", DateFrom: from, DateTo: to},
		{ID: "last-week", ResourceID: "E1", DateFrom: from.AddDate(0, 0, -7), DateTo: to.AddDate(0, 0, -7)},
	}
	for _, l := range leaves {
		require.NoError(t, store.SaveLeave(ctx, l))
	}

	// WHEN: Fetching the week
	weekStart, _ := brusselsDay(t, 14)
	_, weekEnd := brusselsDay(t, 18)
	got, err := store.FetchLeaves(ctx, weekStart, weekEnd, []workentry.ResourceID{"E1"}, []workentry.CompanyID{"CO1"}, []workentry.CalendarID{"std40"})
	require.NoError(t, err)

	// THEN: Only the leaves in scope, in insertion order for equal starts
	var ids []workentry.LeaveID
	for _, l := range got {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []workentry.LeaveID{"mine", "holiday", "everyone"}, ids)
	assert.True(t, got[0].DateFrom.Equal(from))
}

func TestStore_GeneratesFromDatabase(t *testing.T) {
	// GIVEN: A rigid contract with a full-day leave, all in SQLite
	store := newStore(t)
	ctx := context.Background()
	c := seed(t, store)
	from, to := brusselsDay(t, 16)
	require.NoError(t, store.SaveLeave(ctx, workentry.Leave{ID: "L1", ResourceID: "E1", DateFrom: from, DateTo: to, WorkEntryTypeID: workentry.CodePaidLeave}))

	// WHEN: Generating the week with the store as host
	res, err := workentry.New(store).Generate(ctx, []workentry.Contract{c}, feb(14), feb(18))
	require.NoError(t, err)

	// THEN: 32h of attendance and 8h of leave
	require.Len(t, res.Entries, 5)
	leave := res.Entries[2]
	assert.Equal(t, feb(16), leave.Date)
	assert.Equal(t, workentry.WorkEntryTypeID(workentry.CodePaidLeave), leave.WorkEntryTypeID)
	assert.Equal(t, "8.000", leave.Duration.String())
	assert.Equal(t, []string{"L1"}, leave.Sources["leave_ids"])
}

func TestStore_WorkDaysDataPerZone(t *testing.T) {
	// GIVEN: The Brussels standard calendar
	store := newStore(t)
	ctx := context.Background()
	seed(t, store)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	start := time.Date(2022, 2, 16, 9, 0, 0, 0, ny).UTC()
	end := time.Date(2022, 2, 16, 13, 0, 0, 0, ny).UTC()

	// WHEN: Asking for a New York morning, for an employee grouped under both zones
	got, err := store.WorkDaysData(ctx, start, end, map[workentry.CalendarID]map[string][]workentry.EmployeeID{
		"std40": {"America/New_York": {"E1"}, "": {"E1"}},
	})
	require.NoError(t, err)

	// THEN: Expanded in New York the whole morning is worked; in Brussels
	// hours the window is 15:00-19:00 and meets 3 hours of the afternoon
	assert.Equal(t, "4.000", got[workentry.CalendarEmployee{CalendarID: "std40", EmployeeID: "E1", TZ: "America/New_York"}].String())
	assert.Equal(t, "3.000", got[workentry.CalendarEmployee{CalendarID: "std40", EmployeeID: "E1"}].String())
}

func TestStore_RecordedAttendances(t *testing.T) {
	// GIVEN: An attendance-based contract with one recorded day
	store := newStore(t)
	ctx := context.Background()
	c := seed(t, store)
	c.Source = workentry.SourceAttendance
	require.NoError(t, store.SaveContract(ctx, c))

	dayStart, _ := brusselsDay(t, 15)
	require.NoError(t, store.RecordAttendance(ctx, "att-1", "E1", dayStart.Add(7*time.Hour), dayStart.Add(16*time.Hour), ""))

	// WHEN: Generating Tuesday
	res, err := workentry.New(store).Generate(ctx, []workentry.Contract{c}, feb(15), feb(15))
	require.NoError(t, err)

	// THEN: The record is the attendance, not the calendar
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "9.000", res.Entries[0].Duration.String())
	assert.Equal(t, []string{"att-1"}, res.Entries[0].Sources["attendance_ids"])
}

func TestStore_RecordAttendanceRejectsEmptySpan(t *testing.T) {
	store := newStore(t)
	at := time.Date(2022, 2, 15, 8, 0, 0, 0, time.UTC)
	err := store.RecordAttendance(context.Background(), "att-1", "E1", at, at, "")
	assert.ErrorIs(t, err, generic.ErrInvalidInterval)
}

func TestStore_Settings(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	store.Configure(Settings{BypassCodes: []string{"LEAVE110"}, DefaultLeave: workentry.CodeUnpaidLeave})

	codes, err := store.BypassCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"LEAVE110"}, codes)
	leave, err := store.DefaultLeaveType(ctx)
	require.NoError(t, err)
	assert.Equal(t, workentry.WorkEntryTypeID(workentry.CodeUnpaidLeave), leave)
	att, err := store.DefaultAttendanceType(ctx)
	require.NoError(t, err)
	assert.Equal(t, workentry.WorkEntryTypeID(workentry.CodeAttendance), att)

	types, err := store.WorkEntryTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, len(workentry.StandardTypes()))
}

// =============================================================================
// RESULTS
// =============================================================================

func TestStore_SaveWorkEntriesReplacesRange(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	c := seed(t, store)
	engine := workentry.New(store)

	// GIVEN: A generated and saved week
	res, err := engine.Generate(ctx, []workentry.Contract{c}, feb(14), feb(18))
	require.NoError(t, err)
	require.NoError(t, store.SaveWorkEntries(ctx, "run-1", []workentry.ContractID{c.ID}, feb(14), feb(18), res.Entries))

	first, err := store.ListWorkEntries(ctx, c.ID, feb(14), feb(18))
	require.NoError(t, err)
	require.Len(t, first, 5)

	// WHEN: A leave is added and the week regenerated
	from, to := brusselsDay(t, 16)
	require.NoError(t, store.SaveLeave(ctx, workentry.Leave{ID: "L1", ResourceID: "E1", DateFrom: from, DateTo: to}))
	res, err = engine.Generate(ctx, []workentry.Contract{c}, feb(14), feb(18))
	require.NoError(t, err)
	require.NoError(t, store.SaveWorkEntries(ctx, "run-2", []workentry.ContractID{c.ID}, feb(14), feb(18), res.Entries))

	// THEN: The week is replaced, not appended to
	second, err := store.ListWorkEntries(ctx, c.ID, feb(14), feb(18))
	require.NoError(t, err)
	require.Len(t, second, 5)
	assert.Equal(t, workentry.WorkEntryTypeID(workentry.CodePaidLeave), second[2].WorkEntryTypeID)
	assert.Equal(t, "run-2", second[2].RunID)
	assert.Equal(t, []string{"L1"}, second[2].Sources["leave_ids"])

	// Unchanged rows keep their ids.
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "8.000", second[0].Duration.String())
}

func TestStore_GenerationRuns(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	started := time.Date(2022, 2, 20, 8, 0, 0, 0, time.UTC)
	run := GenerationRun{
		ID:        "run-1",
		Trigger:   "cli",
		DateStart: feb(14),
		DateStop:  feb(18),
		Status:    "running",
		StartedAt: started,
	}
	require.NoError(t, store.SaveGenerationRun(ctx, run))

	done := started.Add(time.Second)
	run.Status = "completed"
	run.Contracts = 2
	run.Entries = 9
	run.Errors = []workentry.ContractError{{ContractID: "C0", Reason: "missing timezone"}}
	run.CompletedAt = &done
	require.NoError(t, store.SaveGenerationRun(ctx, run))

	runs, err := store.ListGenerationRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, 9, got.Entries)
	assert.Equal(t, feb(14), got.DateStart)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, workentry.ContractID("C0"), got.Errors[0].ContractID)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, done.Equal(*got.CompletedAt))
}

func TestStore_Reset(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seed(t, store)

	require.NoError(t, store.Reset(ctx))

	contracts, err := store.ListContracts(ctx)
	require.NoError(t, err)
	assert.Empty(t, contracts)
	types, err := store.WorkEntryTypes(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, types)
}
