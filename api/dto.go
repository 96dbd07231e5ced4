/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

Calendars, contracts, leaves and work entry types are posted in the
factory's JSON form (factory.CalendarJSON, factory.ContractJSON, ...), so
the API and dataset files share one format.

A work entry is one flat object: its fields, "duration" as a number with
three decimals (8.000), and one key per source field ("leave_ids", ...).

SEE ALSO:
  - handlers.go: Uses these types
  - factory/factory.go: Configuration JSON types
*/
package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/store/sqlite"
	"github.com/warp/workentry-engine/workentry"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RecordAttendanceRequest is a check-in/check-out pair, RFC3339.
type RecordAttendanceRequest struct {
	ID            string `json:"id"`
	ResourceID    string `json:"resource_id"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	WorkEntryType string `json:"work_entry_type,omitempty"`
}

// GenerateRequest asks for the work entries of contracts over
// [date_start, date_stop]. No contract ids means every running contract.
type GenerateRequest struct {
	ContractIDs []string `json:"contract_ids,omitempty"`
	DateStart   string   `json:"date_start"`
	DateStop    string   `json:"date_stop"`
	Persist     bool     `json:"persist"`
}

type GenerateResponse struct {
	Run      GenerationRunDTO          `json:"run"`
	Entries  []WorkEntryDTO            `json:"entries"`
	Errors   []workentry.ContractError `json:"errors"`
	Canceled bool                      `json:"canceled"`
}

// WorkEntryDTO is encoded flat; see MarshalJSON.
type WorkEntryDTO struct {
	ID              string
	RunID           string
	ContractID      string
	EmployeeID      string
	CompanyID       string
	Date            string
	WorkEntryTypeID string
	Duration        decimal.Decimal
	Sources         map[string][]string
}

// MarshalJSON writes the source fields as top-level keys next to the
// entry's own fields, which win on a name clash.
func (d WorkEntryDTO) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 8+len(d.Sources))
	for field, ids := range d.Sources {
		out[field] = ids
	}
	if d.ID != "" {
		out["id"] = d.ID
	}
	if d.RunID != "" {
		out["run_id"] = d.RunID
	}
	out["contract_id"] = d.ContractID
	out["employee_id"] = d.EmployeeID
	out["company_id"] = d.CompanyID
	out["date"] = d.Date
	out["work_entry_type_id"] = d.WorkEntryTypeID
	out["duration"] = json.Number(d.Duration.StringFixed(generic.Precision))
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat form back. Every key that is not an entry
// field is a source field.
func (d *WorkEntryDTO) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields := map[string]*string{
		"id":                 &d.ID,
		"run_id":             &d.RunID,
		"contract_id":        &d.ContractID,
		"employee_id":        &d.EmployeeID,
		"company_id":         &d.CompanyID,
		"date":               &d.Date,
		"work_entry_type_id": &d.WorkEntryTypeID,
	}
	d.Sources = nil
	for key, value := range raw {
		if dst, ok := fields[key]; ok {
			if err := json.Unmarshal(value, dst); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			continue
		}
		if key == "duration" {
			var n json.Number
			if err := json.Unmarshal(value, &n); err != nil {
				return fmt.Errorf("duration: %w", err)
			}
			dur, err := decimal.NewFromString(n.String())
			if err != nil {
				return fmt.Errorf("duration: %w", err)
			}
			d.Duration = dur
			continue
		}
		var ids []string
		if err := json.Unmarshal(value, &ids); err != nil {
			return fmt.Errorf("source field %s: %w", key, err)
		}
		if d.Sources == nil {
			d.Sources = make(map[string][]string)
		}
		d.Sources[key] = ids
	}
	return nil
}

type GenerationRunDTO struct {
	ID          string                    `json:"id"`
	Trigger     string                    `json:"trigger"`
	DateStart   string                    `json:"date_start"`
	DateStop    string                    `json:"date_stop"`
	Status      string                    `json:"status"`
	Contracts   int                       `json:"contracts"`
	Entries     int                       `json:"entries"`
	Canceled    bool                      `json:"canceled"`
	Errors      []workentry.ContractError `json:"errors,omitempty"`
	Error       string                    `json:"error,omitempty"`
	StartedAt   string                    `json:"started_at"`
	CompletedAt string                    `json:"completed_at,omitempty"`
}

type ScenarioDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DateStart   string   `json:"date_start"`
	DateStop    string   `json:"date_stop"`
	Contracts   []string `json:"contracts"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toWorkEntryDTO(e workentry.WorkEntry) WorkEntryDTO {
	return WorkEntryDTO{
		ContractID:      string(e.ContractID),
		EmployeeID:      string(e.EmployeeID),
		CompanyID:       string(e.CompanyID),
		Date:            e.Date.String(),
		WorkEntryTypeID: string(e.WorkEntryTypeID),
		Duration:        e.Duration.Round().Value,
		Sources:         e.Sources,
	}
}

// WorkEntryDTOs converts engine rows for output.
func WorkEntryDTOs(entries []workentry.WorkEntry) []WorkEntryDTO {
	out := make([]WorkEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = toWorkEntryDTO(e)
	}
	return out
}

func toStoredWorkEntryDTO(e sqlite.StoredWorkEntry) WorkEntryDTO {
	dto := toWorkEntryDTO(e.WorkEntry)
	dto.ID = e.ID
	dto.RunID = e.RunID
	return dto
}

func toGenerationRunDTO(r sqlite.GenerationRun) GenerationRunDTO {
	dto := GenerationRunDTO{
		ID:        r.ID,
		Trigger:   r.Trigger,
		DateStart: r.DateStart.String(),
		DateStop:  r.DateStop.String(),
		Status:    r.Status,
		Contracts: r.Contracts,
		Entries:   r.Entries,
		Canceled:  r.Canceled,
		Errors:    r.Errors,
		Error:     r.Error,
		StartedAt: r.StartedAt.Format(time.RFC3339),
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
