/*
handlers_test.go - HTTP tests through the full router

Tests for:
- Generation through the API, with and without persistence
- Stored entries and run records
- Record creation and validation errors
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workentry-engine/store/sqlite"
)

func newTestGenerator(t *testing.T) (*Generator, *test.Hook) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewGenerator(store, logger), hook
}

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	gen, _ := newTestGenerator(t)
	h := NewHandler(gen)
	srv := httptest.NewServer(NewRouter(h, gen.Log, nil))
	t.Cleanup(srv.Close)
	return srv, h
}

// do sends body as JSON and decodes the response into out when given.
func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRouter_GenerateAndStore(t *testing.T) {
	// GIVEN: The full-day absence scenario
	srv, _ := newTestServer(t)
	status := do(t, srv, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "full-day-absence"}, nil)
	require.Equal(t, http.StatusOK, status)

	// WHEN: Generating and storing C1's week
	var resp GenerateResponse
	status = do(t, srv, "POST", "/api/work-entries/generate", GenerateRequest{
		ContractIDs: []string{"C1"},
		DateStart:   "2022-02-14",
		DateStop:    "2022-02-18",
		Persist:     true,
	}, &resp)

	// THEN: Four attendance days and the leave day
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Entries, 5)
	assert.Equal(t, "2022-02-16", resp.Entries[2].Date)
	assert.Equal(t, "LEAVE100", resp.Entries[2].WorkEntryTypeID)
	assert.Equal(t, "8.000", resp.Entries[2].Duration.StringFixed(3))
	assert.Equal(t, []string{"L1"}, resp.Entries[2].Sources["leave_ids"])
	assert.Empty(t, resp.Errors)
	assert.Equal(t, RunCompleted, resp.Run.Status)

	// AND: The rows are stored under the run
	var stored []WorkEntryDTO
	status = do(t, srv, "GET", "/api/work-entries?contract_id=C1&from=2022-02-01&to=2022-02-28", nil, &stored)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, stored, 5)
	for _, e := range stored {
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, resp.Run.ID, e.RunID)
	}

	var runs []GenerationRunDTO
	status = do(t, srv, "GET", "/api/runs", nil, &runs)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, runs, 1)
	assert.Equal(t, "api", runs[0].Trigger)
	assert.Equal(t, 5, runs[0].Entries)
	assert.NotEmpty(t, runs[0].CompletedAt)
}

func TestRouter_WorkEntryJSONIsFlat(t *testing.T) {
	// GIVEN: The full-day absence scenario
	srv, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, srv, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "full-day-absence"}, nil))

	// WHEN: Generating the leave day, reading the raw JSON
	var resp struct {
		Entries []map[string]any `json:"entries"`
	}
	status := do(t, srv, "POST", "/api/work-entries/generate", GenerateRequest{
		ContractIDs: []string{"C1"}, DateStart: "2022-02-16", DateStop: "2022-02-16",
	}, &resp)

	// THEN: Source fields are top-level keys and the duration is a number
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Entries, 1)
	entry := resp.Entries[0]
	assert.Equal(t, 8.0, entry["duration"])
	assert.Equal(t, []any{"L1"}, entry["leave_ids"])
	assert.Contains(t, entry, "attendance_ids")
	assert.Equal(t, "2022-02-16", entry["date"])
	assert.Equal(t, "LEAVE100", entry["work_entry_type_id"])
	assert.Equal(t, "C1", entry["contract_id"])
	assert.Equal(t, "E1", entry["employee_id"])
	assert.Equal(t, "CO1", entry["company_id"])
	assert.NotContains(t, entry, "sources")
	assert.NotContains(t, entry, "id")
}

func TestWorkEntryDTO_JSON(t *testing.T) {
	dto := WorkEntryDTO{
		ContractID: "C1", EmployeeID: "E1", CompanyID: "CO1", Date: "2022-02-16",
		WorkEntryTypeID: "LEAVE100", Duration: decimal.RequireFromString("2.5"),
		Sources: map[string][]string{"leave_ids": {"L1", "L2"}, "date": {"ignored"}},
	}

	data, err := json.Marshal(dto)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration":2.500`)
	assert.Contains(t, string(data), `"date":"2022-02-16"`)

	var back WorkEntryDTO
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "2.500", back.Duration.StringFixed(3))
	assert.Equal(t, map[string][]string{"leave_ids": {"L1", "L2"}}, back.Sources)
	assert.Equal(t, "LEAVE100", back.WorkEntryTypeID)
}

func TestRouter_GenerateWithoutPersist(t *testing.T) {
	srv, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, srv, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "rigid-week"}, nil))

	// No contract ids: every contract running in the window.
	var resp GenerateResponse
	status := do(t, srv, "POST", "/api/work-entries/generate", GenerateRequest{
		DateStart: "2022-02-14",
		DateStop:  "2022-02-18",
	}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Entries, 5)

	var stored []WorkEntryDTO
	do(t, srv, "GET", "/api/work-entries?from=2022-02-01&to=2022-02-28", nil, &stored)
	assert.Empty(t, stored)

	var runs []GenerationRunDTO
	do(t, srv, "GET", "/api/runs", nil, &runs)
	assert.Empty(t, runs)
}

func TestRouter_GenerateErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, srv, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "rigid-week"}, nil))

	cases := map[string]struct {
		body   any
		status int
	}{
		"malformed body":   {`{"date_start": `, http.StatusBadRequest},
		"missing dates":    {GenerateRequest{ContractIDs: []string{"C1"}}, http.StatusBadRequest},
		"datetime as date": {GenerateRequest{DateStart: "2022-02-14T10:00:00Z", DateStop: "2022-02-18"}, http.StatusBadRequest},
		"reversed window":  {GenerateRequest{DateStart: "2022-02-18", DateStop: "2022-02-14"}, http.StatusBadRequest},
		"unknown contract": {GenerateRequest{ContractIDs: []string{"C404"}, DateStart: "2022-02-14", DateStop: "2022-02-18"}, http.StatusNotFound},
		"nothing running":  {GenerateRequest{DateStart: "2021-02-14", DateStop: "2021-02-18"}, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var resp ErrorResponse
			status := do(t, srv, "POST", "/api/work-entries/generate", tc.body, &resp)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestRouter_CreateRecords(t *testing.T) {
	// GIVEN: An empty database
	srv, _ := newTestServer(t)

	// WHEN: Creating an employee, a calendar and a contract
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/employees",
		`{"id": "E1", "name": "Alice", "tz": "Europe/Brussels"}`, nil))
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/calendars",
		`{"id": "std40", "preset": "standard40", "tz": "Europe/Brussels"}`, nil))
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/contracts",
		`{"id": "C1", "employee_id": "E1", "company_id": "CO1", "calendar_id": "std40",
		  "hours_per_week": 40, "date_start": "2022-01-01"}`, nil))

	// THEN: They can be read back
	var contract struct {
		ID       string `json:"id"`
		Employee struct {
			TZ string `json:"tz"`
		} `json:"employee"`
		Mode string `json:"mode"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/contracts/C1", nil, &contract))
	assert.Equal(t, "C1", contract.ID)
	assert.Equal(t, "Europe/Brussels", contract.Employee.TZ)
	assert.Equal(t, "rigid", contract.Mode)

	var cal struct {
		Attendances []struct {
			Day  string `json:"day"`
			From string `json:"from"`
		} `json:"attendances"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/calendars/std40", nil, &cal))
	require.NotEmpty(t, cal.Attendances)
	assert.Equal(t, "monday", cal.Attendances[0].Day)
	assert.Equal(t, "09:00", cal.Attendances[0].From)

	// AND: A leave can be added and removed
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/leaves",
		`{"id": "L1", "resource_id": "E1", "date": "2022-02-16", "tz": "Europe/Brussels"}`, nil))
	assert.Equal(t, http.StatusNoContent, do(t, srv, "DELETE", "/api/leaves/L1", nil, nil))

	assert.Equal(t, http.StatusNotFound, do(t, srv, "GET", "/api/contracts/C2", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, srv, "GET", "/api/employees/E2", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, srv, "GET", "/api/calendars/none", nil, nil))
}

func TestRouter_RejectsInvalidRecords(t *testing.T) {
	srv, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/employees", `{"id": "E1"}`, nil))

	cases := []struct {
		name string
		path string
		body string
	}{
		{"employee without id", "/api/employees", `{"name": "Nobody"}`},
		{"employee bad timezone", "/api/employees", `{"id": "E2", "tz": "Mars/Olympus"}`},
		{"calendar unknown preset", "/api/calendars", `{"id": "x", "preset": "four_days", "tz": "UTC"}`},
		{"contract unknown employee", "/api/contracts", `{"id": "C1", "employee_id": "E9", "company_id": "CO1", "date_start": "2022-01-01"}`},
		{"contract unknown calendar", "/api/contracts", `{"id": "C1", "employee_id": "E1", "company_id": "CO1", "calendar_id": "nope", "date_start": "2022-01-01"}`},
		{"contract bad mode", "/api/contracts", `{"id": "C1", "employee_id": "E1", "company_id": "CO1", "mode": "shifts", "date_start": "2022-01-01"}`},
		{"reversed leave", "/api/leaves", `{"id": "L1", "date_from": "2022-02-15T11:00:00Z", "date_to": "2022-02-15T09:00:00Z"}`},
		{"empty attendance", "/api/attendances", `{"id": "A1", "resource_id": "E1", "check_in": "2022-02-15T09:00:00Z", "check_out": "2022-02-15T09:00:00Z"}`},
		{"attendance bad time", "/api/attendances", `{"id": "A1", "resource_id": "E1", "check_in": "09:00", "check_out": "2022-02-15T09:00:00Z"}`},
		{"type without code", "/api/work-entry-types", `{"name": "Nameless"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(t, srv, "POST", tc.path, tc.body, nil))
		})
	}
}

func TestRouter_RecordedAttendanceDrivesGeneration(t *testing.T) {
	// GIVEN: An attendance-sourced contract with one recorded day
	srv, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/employees", `{"id": "E1", "tz": "Europe/Brussels"}`, nil))
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/calendars", `{"id": "std40", "preset": "standard40", "tz": "Europe/Brussels"}`, nil))
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/contracts",
		`{"id": "C1", "employee_id": "E1", "company_id": "CO1", "calendar_id": "std40",
		  "source": "attendance", "date_start": "2022-01-01"}`, nil))
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/attendances",
		`{"id": "att-1", "resource_id": "E1", "check_in": "2022-02-15T07:00:00Z", "check_out": "2022-02-15T17:30:00Z"}`, nil))

	// WHEN: Generating that day
	var resp GenerateResponse
	status := do(t, srv, "POST", "/api/work-entries/generate", GenerateRequest{
		ContractIDs: []string{"C1"}, DateStart: "2022-02-15", DateStop: "2022-02-15",
	}, &resp)

	// THEN: The recorded 10.5 hours are used instead of the calendar
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "10.500", resp.Entries[0].Duration.StringFixed(3))
	assert.Equal(t, []string{"att-1"}, resp.Entries[0].Sources["attendance_ids"])
}

func TestRouter_WorkEntryTypes(t *testing.T) {
	srv, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/work-entry-types",
		`{"code": "TRAINING", "name": "Training", "sequence": 50}`, nil))

	var types []struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/work-entry-types", nil, &types))
	var codes []string
	for _, typ := range types {
		codes = append(codes, typ.Code)
	}
	assert.Contains(t, codes, "TRAINING")
	assert.Contains(t, codes, "WORK100")
}

func TestRouter_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, do(t, srv, "GET", "/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
}
