package factory

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

const datasetJSON = `{
  "calendars": [
    {"id": "std-40", "preset": "standard40", "tz": "Europe/Brussels"},
    {
      "id": "mornings", "name": "Mornings", "tz": "Europe/Paris",
      "attendances": [
        {"day": "monday", "from": "08:30", "to": "12:30"},
        {"day": "tue", "from": "13:00", "to": "24:00", "work_entry_type": "OVERTIME"}
      ]
    }
  ],
  "employees": [{"id": "E1", "name": "Ann", "tz": "Europe/Brussels"}],
  "contracts": [
    {"id": "C1", "employee_id": "E1", "company_id": "CO1", "calendar_id": "std-40",
     "hours_per_week": 40, "date_start": "2022-01-01", "date_end": "2022-12-31"}
  ],
  "leaves": [
    {"id": "L1", "resource_id": "E1", "date": "2022-02-16", "tz": "Europe/Brussels", "work_entry_type": "LEAVE100"},
    {"id": "L2", "resource_id": "E1", "date_from": "2022-02-15T09:00:00Z", "date_to": "2022-02-15T11:00:00Z", "count_as": "worked"}
  ]
}`

func TestParseDataset(t *testing.T) {
	// GIVEN: A dataset with a preset and a custom calendar
	f := New()

	// WHEN: Parsing it
	ds, err := f.ParseDataset(datasetJSON)
	require.NoError(t, err)

	// THEN: Every section is converted
	require.Len(t, ds.Calendars, 2)
	assert.Equal(t, "Standard 40 hours/week", ds.Calendars[0].Name)
	assert.Equal(t, 40.0, ds.Calendars[0].WeeklyHours())

	mornings := ds.Calendars[1]
	require.Len(t, mornings.Attendances, 2)
	assert.Equal(t, time.Monday, mornings.Attendances[0].DayOfWeek)
	assert.Equal(t, 8.5, mornings.Attendances[0].HourFrom)
	assert.Equal(t, calendar.PeriodMorning, mornings.Attendances[0].DayPeriod)
	assert.Equal(t, "mornings-1", mornings.Attendances[0].ID)
	assert.Equal(t, 24.0, mornings.Attendances[1].HourTo)
	assert.Equal(t, calendar.PeriodAfternoon, mornings.Attendances[1].DayPeriod)
	assert.Equal(t, 15.0, mornings.HoursPerWeek)

	require.Len(t, ds.Contracts, 1)
	c := ds.Contracts[0]
	assert.Equal(t, workentry.ScheduleRigid, c.Mode)
	assert.Equal(t, "Europe/Brussels", c.Timezone())
	require.NotNil(t, c.DateEnd)
	assert.Equal(t, generic.NewDate(2022, time.December, 31), *c.DateEnd)

	require.Len(t, ds.Leaves, 2)
	assert.Equal(t, time.Date(2022, 2, 15, 23, 0, 0, 0, time.UTC), ds.Leaves[0].DateFrom)
	assert.Equal(t, time.Date(2022, 2, 16, 23, 0, 0, 0, time.UTC), ds.Leaves[0].DateTo)
	assert.Equal(t, workentry.CountWorked, ds.Leaves[1].CountAs)
}

func TestParseDataset_Errors(t *testing.T) {
	f := New()
	cases := map[string]string{
		"malformed":          `{"calendars": [`,
		"unknown preset":     `{"calendars": [{"id": "x", "preset": "four_day_week", "tz": "UTC"}]}`,
		"bad clock":          `{"calendars": [{"id": "x", "tz": "UTC", "attendances": [{"day": "monday", "from": "9h", "to": "12:00"}]}]}`,
		"reversed hours":     `{"calendars": [{"id": "x", "tz": "UTC", "attendances": [{"day": "monday", "from": "12:00", "to": "09:00"}]}]}`,
		"unknown day":        `{"calendars": [{"id": "x", "tz": "UTC", "attendances": [{"day": "someday", "from": "09:00", "to": "12:00"}]}]}`,
		"unknown employee":   `{"contracts": [{"id": "C1", "employee_id": "nobody", "company_id": "CO1", "date_start": "2022-01-01"}]}`,
		"datetime as date":   `{"employees": [{"id": "E1"}], "contracts": [{"id": "C1", "employee_id": "E1", "company_id": "CO1", "date_start": "2022-01-01T10:00:00Z"}]}`,
		"bad mode":           `{"employees": [{"id": "E1"}], "contracts": [{"id": "C1", "employee_id": "E1", "company_id": "CO1", "mode": "shifts", "date_start": "2022-01-01"}]}`,
		"leave without span": `{"leaves": [{"id": "L1", "resource_id": "E1"}]}`,
		"reversed leave":     `{"leaves": [{"id": "L1", "date_from": "2022-02-15T11:00:00Z", "date_to": "2022-02-15T09:00:00Z"}]}`,
		"type without code":  `{"work_entry_types": [{"name": "Nameless"}]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ParseDataset(input)
			assert.Error(t, err)
		})
	}
}

func TestParseDatasetYAML(t *testing.T) {
	doc := `
calendars:
  - id: std-40
    preset: standard40
    tz: Europe/Brussels
  - id: evenings
    tz: UTC
    attendances:
      - day: fri
        from: "18:00"
        to: "24:00"
employees:
  - {id: E1, tz: Europe/Brussels}
contracts:
  - id: C1
    employee_id: E1
    company_id: CO1
    calendar_id: std-40
    date_start: 2022-01-01
leaves:
  - {id: L1, resource_id: E1, date: 2022-02-16, tz: Europe/Brussels}
`
	ds, err := New().ParseDatasetYAML([]byte(doc))
	require.NoError(t, err)

	require.Len(t, ds.Calendars, 2)
	assert.Equal(t, 18.0, ds.Calendars[1].Attendances[0].HourFrom)
	assert.Equal(t, 24.0, ds.Calendars[1].Attendances[0].HourTo)
	require.Len(t, ds.Contracts, 1)
	assert.Equal(t, generic.NewDate(2022, time.January, 1), ds.Contracts[0].DateStart)
	require.Len(t, ds.Leaves, 1)
	assert.Equal(t, time.Date(2022, 2, 15, 23, 0, 0, 0, time.UTC), ds.Leaves[0].DateFrom)

	_, err = New().ParseDatasetYAML([]byte("calendars: [{"))
	assert.Error(t, err)
}

func TestToJSON_RoundTripsClockTimes(t *testing.T) {
	f := New()
	cal := calendar.Standard40("std", "UTC")

	cj := f.ToJSON(cal)
	require.Len(t, cj.Attendances, 15)
	assert.Equal(t, "monday", cj.Attendances[0].Day)
	assert.Equal(t, "09:00", cj.Attendances[0].From)
	assert.Equal(t, "13:00", cj.Attendances[0].To)

	back, err := f.Calendar(cj)
	require.NoError(t, err)
	assert.Equal(t, cal.WeeklyHours(), back.WeeklyHours())
}

func TestWorkEntryType_Defaults(t *testing.T) {
	typ, err := New().WorkEntryType(WorkEntryTypeJSON{Code: "TRAINING", Name: "Training"})
	require.NoError(t, err)
	assert.Equal(t, workentry.WorkEntryTypeID("TRAINING"), typ.ID)
	assert.Equal(t, workentry.CountWorked, typ.CountAs)
}

func TestDataset_MemoryHostGenerates(t *testing.T) {
	// GIVEN: The parsed dataset loaded into a memory host
	ds, err := New().ParseDataset(datasetJSON)
	require.NoError(t, err)
	host, err := ds.MemoryHost()
	require.NoError(t, err)
	c, ok := ds.Contract("C1")
	require.True(t, ok)

	// WHEN: Generating the leave day
	res, err := workentry.New(host).Generate(context.Background(), []workentry.Contract{c},
		generic.NewDate(2022, time.February, 16), generic.NewDate(2022, time.February, 16))

	// THEN: The full-day leave covers the calendar's 8 hours
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, workentry.WorkEntryTypeID(workentry.CodePaidLeave), res.Entries[0].WorkEntryTypeID)
	assert.Equal(t, "8.000", res.Entries[0].Duration.String())
}
