/*
handlers.go - HTTP API handlers for the work-entry engine

PURPOSE:
  Exposes the store and the engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the factory, the
  store and the generator.

ENDPOINTS:
  Employees:
    GET    /api/employees               List employees
    POST   /api/employees               Create or update an employee
    GET    /api/employees/{id}          Get one employee

  Calendars:
    GET    /api/calendars               List calendars (factory JSON form)
    POST   /api/calendars               Create or update a calendar
    GET    /api/calendars/{id}          Get one calendar

  Contracts:
    GET    /api/contracts               List contracts
    POST   /api/contracts               Create or update a contract
    GET    /api/contracts/{id}          Get one contract

  Time records:
    POST   /api/leaves                  Create or update a leave
    DELETE /api/leaves/{id}             Delete a leave
    POST   /api/attendances             Record a check-in/check-out

  Work entries:
    GET    /api/work-entry-types        List entry types
    POST   /api/work-entry-types        Create or update an entry type
    POST   /api/work-entries/generate   Generate (and optionally store)
    GET    /api/work-entries            Stored entries (?contract_id&from&to)
    GET    /api/runs                    Recent generation runs (?limit)

  Scenarios:
    GET    /api/scenarios               List demo scenarios
    GET    /api/scenarios/current       Last loaded scenario
    POST   /api/scenarios/load          Load a demo scenario
    POST   /api/scenarios/reset         Clear the database

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors, failing host capabilities

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - generate.go: Generation runs
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/workentry-engine/calendar"
	"github.com/warp/workentry-engine/factory"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/store/sqlite"
	"github.com/warp/workentry-engine/workentry"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Factory   *factory.Factory
	Generator *Generator
	Log       logrus.FieldLogger

	mu              sync.Mutex
	currentScenario *ScenarioDTO
}

// NewHandler creates a handler generating with gen.
func NewHandler(gen *Generator) *Handler {
	return &Handler{
		Store:     gen.Store,
		Factory:   factory.New(),
		Generator: gen,
		Log:       gen.Log,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	if employees == nil {
		employees = []workentry.Employee{}
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := workentry.EmployeeID(chi.URLParam(r, "id"))
	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req factory.EmployeeJSON
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	if req.TZ != "" {
		if _, err := generic.NewZones().Load(req.TZ); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid timezone", err)
			return
		}
	}

	emp := workentry.Employee{
		ID:         workentry.EmployeeID(req.ID),
		Name:       req.Name,
		ResourceID: workentry.ResourceID(req.ResourceID),
		TZ:         req.TZ,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	cals, err := h.Store.ListCalendars(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calendars", err)
		return
	}
	out := make([]factory.CalendarJSON, len(cals))
	for i, cal := range cals {
		out[i] = h.Factory.ToJSON(cal)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.Store.GetCalendar(r.Context(), workentry.CalendarID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get calendar", err)
		return
	}
	if cal == nil {
		writeError(w, http.StatusNotFound, "Calendar not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(cal))
}

func (h *Handler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	var req factory.CalendarJSON
	if !decode(w, r, &req) {
		return
	}
	cal, err := h.Factory.Calendar(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid calendar", err)
		return
	}
	if err := h.Store.SaveCalendar(r.Context(), cal); err != nil {
		writeError(w, statusFor(err), "Failed to save calendar", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Factory.ToJSON(cal))
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}
	if contracts == nil {
		contracts = []workentry.Contract{}
	}
	writeJSON(w, http.StatusOK, contracts)
}

func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetContract(r.Context(), workentry.ContractID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req factory.ContractJSON
	if !decode(w, r, &req) {
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), workentry.EmployeeID(req.EmployeeID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusBadRequest, "Unknown employee", fmt.Errorf("employee %q", req.EmployeeID))
		return
	}

	c, err := h.Factory.Contract(req, *emp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract", err)
		return
	}
	if c.CalendarID != "" {
		cal, err := h.Store.GetCalendar(r.Context(), c.CalendarID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get calendar", err)
			return
		}
		if cal == nil {
			writeError(w, http.StatusBadRequest, "Unknown calendar", fmt.Errorf("calendar %q", c.CalendarID))
			return
		}
	}

	if err := h.Store.SaveContract(r.Context(), c); err != nil {
		writeError(w, statusFor(err), "Failed to save contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// =============================================================================
// LEAVE AND ATTENDANCE HANDLERS
// =============================================================================

func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var req factory.LeaveJSON
	if !decode(w, r, &req) {
		return
	}
	l, err := h.Factory.Leave(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave", err)
		return
	}
	if err := h.Store.SaveLeave(r.Context(), l); err != nil {
		writeError(w, statusFor(err), "Failed to save leave", err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteLeave(r.Context(), workentry.LeaveID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req RecordAttendanceRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" || req.ResourceID == "" {
		writeError(w, http.StatusBadRequest, "id and resource_id are required", nil)
		return
	}
	checkIn, err := time.Parse(time.RFC3339, req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_in", err)
		return
	}
	checkOut, err := time.Parse(time.RFC3339, req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_out", err)
		return
	}

	err = h.Store.RecordAttendance(r.Context(), req.ID, workentry.ResourceID(req.ResourceID),
		checkIn, checkOut, workentry.WorkEntryTypeID(req.WorkEntryType))
	if err != nil {
		writeError(w, statusFor(err), "Failed to record attendance", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// WORK ENTRY HANDLERS
// =============================================================================

func (h *Handler) ListWorkEntryTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.WorkEntryTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list work entry types", err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *Handler) CreateWorkEntryType(w http.ResponseWriter, r *http.Request) {
	var req factory.WorkEntryTypeJSON
	if !decode(w, r, &req) {
		return
	}
	t, err := h.Factory.WorkEntryType(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work entry type", err)
		return
	}
	if err := h.Store.SaveWorkEntryType(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save work entry type", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Generate runs the engine for the requested contracts and window.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	from, to, err := parseWindow(req.DateStart, req.DateStop)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}

	ids := make([]workentry.ContractID, len(req.ContractIDs))
	for i, id := range req.ContractIDs {
		ids[i] = workentry.ContractID(id)
	}
	contracts, err := h.Generator.Contracts(r.Context(), ids, from, to)
	if err != nil {
		writeError(w, statusFor(err), "Failed to load contracts", err)
		return
	}
	if len(contracts) == 0 {
		writeError(w, http.StatusBadRequest, "No contract to generate", nil)
		return
	}

	run, res, err := h.Generator.Run(r.Context(), "api", contracts, from, to, req.Persist)
	if err != nil {
		writeError(w, statusFor(err), "Generation failed", err)
		return
	}

	resp := GenerateResponse{
		Run:      toGenerationRunDTO(*run),
		Entries:  WorkEntryDTOs(res.Entries),
		Errors:   res.Errors,
		Canceled: res.Canceled,
	}
	if resp.Errors == nil {
		resp.Errors = []workentry.ContractError{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListWorkEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := parseWindow(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}
	entries, err := h.Store.ListWorkEntries(r.Context(), workentry.ContractID(q.Get("contract_id")), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list work entries", err)
		return
	}
	out := make([]WorkEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = toStoredWorkEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListGenerationRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Store.ListGenerationRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	out := make([]GenerationRunDTO, len(runs))
	for i, run := range runs {
		out[i] = toGenerationRunDTO(run)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decode reads the JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func parseWindow(from, to string) (generic.Date, generic.Date, error) {
	d0, err := generic.ParseDate(from)
	if err != nil {
		return generic.Date{}, generic.Date{}, fmt.Errorf("from: %w", err)
	}
	d1, err := generic.ParseDate(to)
	if err != nil {
		return generic.Date{}, generic.Date{}, fmt.Errorf("to: %w", err)
	}
	if d1.Before(d0) {
		return generic.Date{}, generic.Date{}, fmt.Errorf("%s is before %s: %w", d1, d0, generic.ErrInvalidPeriod)
	}
	return d0, d1, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownContract):
		return http.StatusNotFound
	case workentry.IsInputError(err),
		errors.Is(err, generic.ErrInvalidInterval),
		errors.Is(err, calendar.ErrInvalidAttendance),
		errors.Is(err, calendar.ErrCalendarNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
