/*
scenarios.go - Demo scenarios for testing and demonstrations

PURPOSE:
  Pre-built datasets that populate the database with the situations the
  engine has to get right. Each scenario carries the window and contracts
  to generate.

AVAILABLE SCENARIOS:
  rigid-week:        40h calendar, no leave
  full-day-absence:  Full-day paid leave on the Wednesday
  flexible-leave:    Flexible 20h/week contract with a 2h leave
  fully-flexible:    Fully flexible contract, 8 hours per day
  public-holiday:    Company holiday on top of a home-office day
  night-leave:       Leave crossing local midnight

HOW SCENARIOS WORK:
 1. Reset database (clear all data, entry types are kept)
 2. Parse the dataset through the factory
 3. Store calendars, employees, contracts, leaves and types

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "public-holiday"}

NOTE:
  Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/workentry-engine/factory"
	"github.com/warp/workentry-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	dataset string
}

const brusselsCalendars = `
  "calendars": [
    {"id": "std40", "preset": "standard40", "tz": "Europe/Brussels"},
    {"id": "flex20", "preset": "flexible", "tz": "Europe/Brussels", "hours_per_week": 20}
  ]`

const (
	rigidEmployee = `{"id": "E1", "name": "Alice", "tz": "Europe/Brussels"}`
	rigidContract = `{"id": "C1", "employee_id": "E1", "company_id": "CO1", "tz": "Europe/Brussels",
     "mode": "rigid", "calendar_id": "std40", "hours_per_day": 8, "hours_per_week": 40,
     "date_start": "2022-01-01"}`
)

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "rigid-week",
			Name:        "Rigid Week",
			Description: "Standard 40h calendar, no leave: one 8h attendance row per weekday",
			DateStart:   "2022-02-14",
			DateStop:    "2022-02-18",
			Contracts:   []string{"C1"},
		},
		dataset: `{` + brusselsCalendars + `,
  "employees": [` + rigidEmployee + `],
  "contracts": [` + rigidContract + `]
}`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "full-day-absence",
			Name:        "Full-Day Absence",
			Description: "Paid leave covering Wednesday: the day becomes an 8h leave row",
			DateStart:   "2022-02-14",
			DateStop:    "2022-02-18",
			Contracts:   []string{"C1"},
		},
		dataset: `{` + brusselsCalendars + `,
  "employees": [` + rigidEmployee + `],
  "contracts": [` + rigidContract + `],
  "leaves": [
    {"id": "L1", "name": "Paid leave", "resource_id": "E1", "date": "2022-02-16",
     "tz": "Europe/Brussels", "work_entry_type": "LEAVE100"}
  ]
}`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "flexible-leave",
			Name:        "Flexible Leave",
			Description: "Flexible 20h/week contract with a 2h leave on Tuesday morning",
			DateStart:   "2022-02-14",
			DateStop:    "2022-02-20",
			Contracts:   []string{"C2"},
		},
		dataset: `{` + brusselsCalendars + `,
  "employees": [{"id": "E2", "name": "Bob", "tz": "Europe/Brussels"}],
  "contracts": [
    {"id": "C2", "employee_id": "E2", "company_id": "CO1", "tz": "Europe/Brussels",
     "mode": "flexible", "calendar_id": "flex20", "hours_per_week": 20, "date_start": "2022-01-01"}
  ],
  "leaves": [
    {"id": "L2", "name": "Dentist", "resource_id": "E2",
     "date_from": "2022-02-15T09:00:00Z", "date_to": "2022-02-15T11:00:00Z",
     "work_entry_type": "LEAVE100"}
  ]
}`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "fully-flexible",
			Name:        "Fully Flexible",
			Description: "No calendar, 8 hours per day: one 8h attendance row per day",
			DateStart:   "2022-02-14",
			DateStop:    "2022-02-15",
			Contracts:   []string{"C3"},
		},
		dataset: `{
  "employees": [{"id": "E3", "name": "Carol", "tz": "Europe/Brussels"}],
  "contracts": [
    {"id": "C3", "employee_id": "E3", "company_id": "CO1", "tz": "Europe/Brussels",
     "mode": "fully_flexible", "hours_per_day": 8, "date_start": "2022-01-01"}
  ]
}`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "public-holiday",
			Name:        "Public Holiday",
			Description: "Company holiday and home-office on the same day: the holiday wins",
			DateStart:   "2022-02-14",
			DateStop:    "2022-02-18",
			Contracts:   []string{"C1"},
		},
		dataset: `{` + brusselsCalendars + `,
  "employees": [` + rigidEmployee + `],
  "contracts": [` + rigidContract + `],
  "leaves": [
    {"id": "HOL", "name": "Public holiday", "company_id": "CO1", "date": "2022-02-16",
     "tz": "Europe/Brussels", "work_entry_type": "LEAVE_HOLIDAY"},
    {"id": "HO", "name": "Home office", "resource_id": "E1", "date": "2022-02-16",
     "tz": "Europe/Brussels", "work_entry_type": "WORK110", "count_as": "worked"}
  ]
}`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "night-leave",
			Name:        "Night Leave",
			Description: "Leave from 23:00 to 04:00 local: split across two days",
			DateStart:   "2022-02-15",
			DateStop:    "2022-02-16",
			Contracts:   []string{"C4"},
		},
		dataset: `{
  "employees": [{"id": "E4", "name": "Dan", "tz": "Europe/Brussels"}],
  "contracts": [
    {"id": "C4", "employee_id": "E4", "company_id": "CO1", "tz": "Europe/Brussels",
     "mode": "fully_flexible", "hours_per_day": 8, "date_start": "2022-01-01"}
  ],
  "leaves": [
    {"id": "L6", "name": "Night leave", "resource_id": "E4",
     "date_from": "2022-02-15T22:00:00Z", "date_to": "2022-02-16T03:00:00Z",
     "work_entry_type": "LEAVE100"}
  ]
}`,
	},
}

// Scenarios lists the demo scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	return out
}

// ScenarioDocument returns the scenario's dataset as a generic document,
// for export.
func ScenarioDocument(id string) (map[string]any, error) {
	for _, s := range scenarios {
		if s.ID == id {
			var doc map[string]any
			if err := json.Unmarshal([]byte(s.dataset), &doc); err != nil {
				return nil, fmt.Errorf("scenario %s: %w", id, err)
			}
			return doc, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario %q", id)
}

// LoadScenario resets the store and loads the scenario's dataset.
func LoadScenario(ctx context.Context, store *sqlite.Store, id string) (*ScenarioDTO, error) {
	for _, s := range scenarios {
		if s.ID != id {
			continue
		}
		ds, err := factory.New().ParseDataset(s.dataset)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", id, err)
		}
		if err := store.Reset(ctx); err != nil {
			return nil, err
		}
		if err := LoadDataset(ctx, store, ds); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", id, err)
		}
		dto := s.ScenarioDTO
		return &dto, nil
	}
	return nil, fmt.Errorf("unknown scenario %q", id)
}

// LoadDataset stores every record of ds.
func LoadDataset(ctx context.Context, store *sqlite.Store, ds *factory.Dataset) error {
	for _, cal := range ds.Calendars {
		if err := store.SaveCalendar(ctx, cal); err != nil {
			return err
		}
	}
	for _, e := range ds.Employees {
		if err := store.SaveEmployee(ctx, e); err != nil {
			return err
		}
	}
	for _, c := range ds.Contracts {
		if err := store.SaveContract(ctx, c); err != nil {
			return err
		}
	}
	for _, l := range ds.Leaves {
		if err := store.SaveLeave(ctx, l); err != nil {
			return err
		}
	}
	for _, t := range ds.Types {
		if err := store.SaveWorkEntryType(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == nil {
		writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenario": current})
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	s, err := LoadScenario(r.Context(), h.Store, req.ScenarioID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = s
	h.mu.Unlock()

	h.Log.WithField("scenario", s.ID).Info("Scenario loaded")
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = nil
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
