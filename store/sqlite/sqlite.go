/*
Package sqlite provides a SQLite-backed work-entry host and result store.

PURPOSE:
  Persists everything the engine reads (employees, contracts, calendars,
  leaves, recorded attendances, work-entry types) and everything it
  produces (work entries, generation runs). The same Store answers the
  engine's capabilities, see host.go.

KEY TABLES:
  employees:        Employee records and their timezone
  contracts:        Contracts, one employee each
  calendars:        Calendar definitions (JSON config, versioned)
  attendances:      Recorded check-in/check-out spans per resource
  leaves:           Personal and global leaves, UTC bounds
  work_entry_types: The type catalog, seeded with the standard types
  work_entries:     Generated rows, unique per (contract, date, type)
  generation_runs:  One row per Generate call, with counts and errors

REGENERATION:
  SaveWorkEntries replaces, in one transaction, every row previously
  generated for the given contracts over the given dates. Running the same
  generation twice leaves the table unchanged.

TIME STORAGE:
  Instants are stored in UTC with a fixed-width layout so that string
  comparison in SQL follows time order. Dates are stored as YYYY-MM-DD.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode.

USAGE:
  store, err := sqlite.New("./data/workentry.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := workentry.New(store)

MIGRATION:
  Schema is auto-migrated on New().
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/workentry-engine/calendar"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/workentry"
)

// timeLayout is fixed width: lexical order is time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store implements workentry.Host and the result storage using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	settings Settings
}

// Settings are the engine-facing answers that do not live in tables.
type Settings struct {
	SourceFields      []string
	DefaultAttendance workentry.WorkEntryTypeID
	DefaultLeave      workentry.WorkEntryTypeID
	BypassCodes       []string
}

// DefaultSettings tracks attendance, leave and planning ids and uses the
// standard attendance and paid leave types as defaults.
func DefaultSettings() Settings {
	return Settings{
		SourceFields: []string{
			generic.RefAttendance.SourceField(),
			generic.RefLeave.SourceField(),
			generic.RefSlot.SourceField(),
		},
		DefaultAttendance: workentry.CodeAttendance,
		DefaultLeave:      workentry.CodePaidLeave,
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, settings: DefaultSettings()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := store.seedTypes(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed work entry types: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Configure replaces the settings. Empty fields keep their current value.
func (s *Store) Configure(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.SourceFields != nil {
		s.settings.SourceFields = append([]string(nil), settings.SourceFields...)
	}
	if settings.DefaultAttendance != "" {
		s.settings.DefaultAttendance = settings.DefaultAttendance
	}
	if settings.DefaultLeave != "" {
		s.settings.DefaultLeave = settings.DefaultLeave
	}
	if settings.BypassCodes != nil {
		s.settings.BypassCodes = append([]string(nil), settings.BypassCodes...)
	}
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		tz TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calendars (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		company_id TEXT NOT NULL,
		tz TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL,
		calendar_id TEXT NOT NULL DEFAULT '',
		hours_per_day REAL NOT NULL DEFAULT 0,
		hours_per_week REAL NOT NULL DEFAULT 0,
		date_start TEXT NOT NULL,
		date_end TEXT,
		source TEXT NOT NULL DEFAULT '',
		default_work_entry_type_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_employee
		ON contracts(employee_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_active
		ON contracts(date_start, date_end);

	CREATE TABLE IF NOT EXISTS attendances (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL,
		check_in TEXT NOT NULL,
		check_out TEXT NOT NULL,
		work_entry_type_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendances_resource
		ON attendances(resource_id, check_in);

	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		company_id TEXT NOT NULL DEFAULT '',
		calendar_id TEXT NOT NULL DEFAULT '',
		date_from TEXT NOT NULL,
		date_to TEXT NOT NULL,
		work_entry_type_id TEXT NOT NULL DEFAULT '',
		count_as TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Hot path: leaves of a set of resources over a window
	CREATE INDEX IF NOT EXISTS idx_leaves_resource_dates
		ON leaves(resource_id, date_from, date_to);

	CREATE TABLE IF NOT EXISTS work_entry_types (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		count_as TEXT NOT NULL,
		is_bypass BOOLEAN DEFAULT FALSE,
		sequence INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS work_entries (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL DEFAULT '',
		contract_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		date TEXT NOT NULL,
		work_entry_type_id TEXT NOT NULL,
		duration TEXT NOT NULL,
		sources_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_work_entries_key
		ON work_entries(contract_id, date, work_entry_type_id);
	CREATE INDEX IF NOT EXISTS idx_work_entries_employee_date
		ON work_entries(employee_id, date);

	CREATE TABLE IF NOT EXISTS generation_runs (
		id TEXT PRIMARY KEY,
		triggered_by TEXT NOT NULL,
		date_start TEXT NOT NULL,
		date_stop TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		contracts INTEGER DEFAULT 0,
		entries INTEGER DEFAULT 0,
		canceled BOOLEAN DEFAULT FALSE,
		errors_json TEXT,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_generation_runs_started
		ON generation_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) seedTypes(ctx context.Context) error {
	for _, t := range workentry.StandardTypes() {
		_, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO work_entry_types (id, code, name, count_as, is_bypass, sequence)
			VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.Code, t.Name, t.CountAs, t.IsBypass, t.Sequence,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee upserts an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp workentry.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, resource_id, tz, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			resource_id = excluded.resource_id,
			tz = excluded.tz
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.ResourceID, emp.TZ, now(),
	)
	return err
}

// GetEmployee retrieves an employee by ID. It returns nil when absent.
func (s *Store) GetEmployee(ctx context.Context, id workentry.EmployeeID) (*workentry.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp workentry.Employee
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, resource_id, tz FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &emp.ResourceID, &emp.TZ)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]workentry.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, resource_id, tz FROM employees ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []workentry.Employee
	for rows.Next() {
		var emp workentry.Employee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.ResourceID, &emp.TZ); err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// CALENDAR STORE
// =============================================================================

// SaveCalendar validates and upserts a calendar. Updates bump its version.
func (s *Store) SaveCalendar(ctx context.Context, cal *calendar.Calendar) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	configJSON, err := json.Marshal(cal)
	if err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO calendars (id, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = calendars.version + 1,
			updated_at = excluded.updated_at
	`
	ts := now()
	_, err = s.db.ExecContext(ctx, query, cal.ID, cal.Name, string(configJSON), ts, ts)
	return err
}

// GetCalendar returns a calendar, or nil when absent.
func (s *Store) GetCalendar(ctx context.Context, id workentry.CalendarID) (*calendar.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calendar(ctx, id)
}

func (s *Store) calendar(ctx context.Context, id workentry.CalendarID) (*calendar.Calendar, error) {
	var configJSON string
	err := s.db.QueryRowContext(ctx, "SELECT config_json FROM calendars WHERE id = ?", id).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cal calendar.Calendar
	if err := json.Unmarshal([]byte(configJSON), &cal); err != nil {
		return nil, fmt.Errorf("calendar %s: failed to decode config: %w", id, err)
	}
	return &cal, nil
}

// ListCalendars returns every calendar, by id.
func (s *Store) ListCalendars(ctx context.Context) ([]*calendar.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT config_json FROM calendars ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calendars []*calendar.Calendar
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, err
		}
		var cal calendar.Calendar
		if err := json.Unmarshal([]byte(configJSON), &cal); err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		calendars = append(calendars, &cal)
	}
	return calendars, rows.Err()
}

// =============================================================================
// CONTRACT STORE
// =============================================================================

// SaveContract validates and upserts a contract and its employee.
func (s *Store) SaveContract(ctx context.Context, c workentry.Contract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.SaveEmployee(ctx, c.Employee); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO contracts (id, employee_id, company_id, tz, mode, calendar_id,
			hours_per_day, hours_per_week, date_start, date_end, source,
			default_work_entry_type_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			company_id = excluded.company_id,
			tz = excluded.tz,
			mode = excluded.mode,
			calendar_id = excluded.calendar_id,
			hours_per_day = excluded.hours_per_day,
			hours_per_week = excluded.hours_per_week,
			date_start = excluded.date_start,
			date_end = excluded.date_end,
			source = excluded.source,
			default_work_entry_type_id = excluded.default_work_entry_type_id
	`

	var dateEnd *string
	if c.DateEnd != nil {
		d := c.DateEnd.String()
		dateEnd = &d
	}
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Employee.ID, c.CompanyID, c.TZ, c.Mode, c.CalendarID,
		c.HoursPerDay, c.HoursPerWeek, c.DateStart.String(), dateEnd, c.Source,
		c.DefaultWorkEntryTypeID, now(),
	)
	return err
}

const contractColumns = `
	c.id, c.company_id, c.tz, c.mode, c.calendar_id, c.hours_per_day,
	c.hours_per_week, c.date_start, c.date_end, c.source, c.default_work_entry_type_id,
	e.id, e.name, e.resource_id, e.tz
	FROM contracts c JOIN employees e ON e.id = c.employee_id
`

// GetContract returns a contract with its employee, or nil when absent.
func (s *Store) GetContract(ctx context.Context, id workentry.ContractID) (*workentry.Contract, error) {
	contracts, err := s.queryContracts(ctx, "SELECT"+contractColumns+"WHERE c.id = ?", id)
	if err != nil || len(contracts) == 0 {
		return nil, err
	}
	return &contracts[0], nil
}

// ListContracts returns every contract, by id.
func (s *Store) ListContracts(ctx context.Context) ([]workentry.Contract, error) {
	return s.queryContracts(ctx, "SELECT"+contractColumns+"ORDER BY c.id")
}

// RunningContracts returns the contracts active on at least one day of
// [from, to].
func (s *Store) RunningContracts(ctx context.Context, from, to generic.Date) ([]workentry.Contract, error) {
	return s.queryContracts(ctx,
		"SELECT"+contractColumns+"WHERE c.date_start <= ? AND (c.date_end IS NULL OR c.date_end >= ?) ORDER BY c.id",
		to.String(), from.String(),
	)
}

func (s *Store) queryContracts(ctx context.Context, query string, args ...any) ([]workentry.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []workentry.Contract
	for rows.Next() {
		var (
			c         workentry.Contract
			dateStart string
			dateEnd   sql.NullString
		)
		err := rows.Scan(
			&c.ID, &c.CompanyID, &c.TZ, &c.Mode, &c.CalendarID, &c.HoursPerDay,
			&c.HoursPerWeek, &dateStart, &dateEnd, &c.Source, &c.DefaultWorkEntryTypeID,
			&c.Employee.ID, &c.Employee.Name, &c.Employee.ResourceID, &c.Employee.TZ,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		if c.DateStart, err = generic.ParseDate(dateStart); err != nil {
			return nil, fmt.Errorf("contract %s: %w", c.ID, err)
		}
		if dateEnd.Valid {
			d, err := generic.ParseDate(dateEnd.String)
			if err != nil {
				return nil, fmt.Errorf("contract %s: %w", c.ID, err)
			}
			c.DateEnd = &d
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// =============================================================================
// LEAVE & ATTENDANCE STORE
// =============================================================================

// SaveLeave validates and upserts a leave.
func (s *Store) SaveLeave(ctx context.Context, l workentry.Leave) error {
	if err := l.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leaves (id, name, resource_id, company_id, calendar_id, date_from, date_to,
			work_entry_type_id, count_as, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			resource_id = excluded.resource_id,
			company_id = excluded.company_id,
			calendar_id = excluded.calendar_id,
			date_from = excluded.date_from,
			date_to = excluded.date_to,
			work_entry_type_id = excluded.work_entry_type_id,
			count_as = excluded.count_as,
			request_id = excluded.request_id
	`
	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.Name, l.ResourceID, l.CompanyID, l.CalendarID,
		formatTime(l.DateFrom), formatTime(l.DateTo),
		l.WorkEntryTypeID, l.CountAs, l.RequestID, now(),
	)
	return err
}

// DeleteLeave removes a leave.
func (s *Store) DeleteLeave(ctx context.Context, id workentry.LeaveID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM leaves WHERE id = ?", id)
	return err
}

// RecordAttendance stores a check-in/check-out span of a resource.
func (s *Store) RecordAttendance(ctx context.Context, id string, resource workentry.ResourceID, checkIn, checkOut time.Time, typeID workentry.WorkEntryTypeID) error {
	if !checkIn.Before(checkOut) {
		return &generic.IntervalError{Start: checkIn, End: checkOut}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendances (id, resource_id, check_in, check_out, work_entry_type_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resource_id = excluded.resource_id,
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			work_entry_type_id = excluded.work_entry_type_id`,
		id, resource, formatTime(checkIn), formatTime(checkOut), typeID, now(),
	)
	return err
}

// =============================================================================
// WORK ENTRY TYPE STORE
// =============================================================================

// SaveWorkEntryType upserts a type.
func (s *Store) SaveWorkEntryType(ctx context.Context, t workentry.WorkEntryType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_entry_types (id, code, name, count_as, is_bypass, sequence)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			count_as = excluded.count_as,
			is_bypass = excluded.is_bypass,
			sequence = excluded.sequence`,
		t.ID, t.Code, t.Name, t.CountAs, t.IsBypass, t.Sequence,
	)
	return err
}

// =============================================================================
// WORK ENTRY STORE
// =============================================================================

// StoredWorkEntry is a persisted work entry.
type StoredWorkEntry struct {
	ID    string
	RunID string
	workentry.WorkEntry
	CreatedAt time.Time
}

// SaveWorkEntries replaces the generated rows of contracts over
// [from, to] with entries, atomically.
func (s *Store) SaveWorkEntries(ctx context.Context, runID string, contracts []workentry.ContractID, from, to generic.Date, entries []workentry.WorkEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(contracts) > 0 {
		args := []any{from.String(), to.String()}
		for _, id := range contracts {
			args = append(args, id)
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM work_entries WHERE date >= ? AND date <= ? AND contract_id IN ("+placeholders(len(contracts))+")",
			args...,
		)
		if err != nil {
			return fmt.Errorf("failed to clear work entries: %w", err)
		}
	}

	ts := now()
	for _, e := range entries {
		sourcesJSON, err := json.Marshal(e.Sources)
		if err != nil {
			return fmt.Errorf("failed to encode sources: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO work_entries (id, run_id, contract_id, employee_id, company_id, date,
				work_entry_type_id, duration, sources_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entryID(e), runID, e.ContractID, e.EmployeeID, e.CompanyID, e.Date.String(),
			e.WorkEntryTypeID, e.Duration.Value.String(), string(sourcesJSON), ts,
		)
		if err != nil {
			return fmt.Errorf("failed to insert work entry: %w", err)
		}
	}

	return tx.Commit()
}

// ListWorkEntries returns stored entries over [from, to], optionally for
// one contract, sorted like the engine's output.
func (s *Store) ListWorkEntries(ctx context.Context, contractID workentry.ContractID, from, to generic.Date) ([]StoredWorkEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, run_id, contract_id, employee_id, company_id, date, work_entry_type_id,
		       duration, sources_json, created_at
		FROM work_entries
		WHERE date >= ? AND date <= ?`
	args := []any{from.String(), to.String()}
	if contractID != "" {
		query += " AND contract_id = ?"
		args = append(args, contractID)
	}
	query += " ORDER BY contract_id, date, work_entry_type_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query work entries: %w", err)
	}
	defer rows.Close()

	var out []StoredWorkEntry
	for rows.Next() {
		var (
			e                            StoredWorkEntry
			date, duration, sources, ts string
		)
		err := rows.Scan(&e.ID, &e.RunID, &e.ContractID, &e.EmployeeID, &e.CompanyID, &date,
			&e.WorkEntryTypeID, &duration, &sources, &ts)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work entry: %w", err)
		}
		if e.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		e.Duration = generic.Amount{Value: generic.MustParseDecimal(duration), Unit: generic.UnitHours}.Round()
		if err := json.Unmarshal([]byte(sources), &e.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// GENERATION RUNS
// =============================================================================

type GenerationRun struct {
	ID          string
	Trigger     string // api, cli, scheduler
	DateStart   generic.Date
	DateStop    generic.Date
	Status      string // running, completed, canceled, failed
	Contracts   int
	Entries     int
	Canceled    bool
	Errors      []workentry.ContractError
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SaveGenerationRun upserts a run.
func (s *Store) SaveGenerationRun(ctx context.Context, r GenerationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errorsJSON, err := json.Marshal(r.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode run errors: %w", err)
	}
	var completedAt *string
	if r.CompletedAt != nil {
		c := formatTime(*r.CompletedAt)
		completedAt = &c
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generation_runs (id, triggered_by, date_start, date_stop, status, contracts,
			entries, canceled, errors_json, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			contracts = excluded.contracts,
			entries = excluded.entries,
			canceled = excluded.canceled,
			errors_json = excluded.errors_json,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		r.ID, r.Trigger, r.DateStart.String(), r.DateStop.String(), r.Status, r.Contracts,
		r.Entries, r.Canceled, string(errorsJSON), nullString(r.Error),
		formatTime(r.StartedAt), completedAt,
	)
	return err
}

// ListGenerationRuns returns the latest runs first.
func (s *Store) ListGenerationRuns(ctx context.Context, limit int) ([]GenerationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, triggered_by, date_start, date_stop, status, contracts, entries, canceled,
		       errors_json, error, started_at, completed_at
		FROM generation_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []GenerationRun
	for rows.Next() {
		var (
			r                          GenerationRun
			dateStart, dateStop, start string
			errorsJSON, runErr, done   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Trigger, &dateStart, &dateStop, &r.Status, &r.Contracts,
			&r.Entries, &r.Canceled, &errorsJSON, &runErr, &start, &done); err != nil {
			return nil, err
		}
		r.DateStart, _ = generic.ParseDate(dateStart)
		r.DateStop, _ = generic.ParseDate(dateStop)
		r.StartedAt, _ = time.Parse(timeLayout, start)
		r.Error = runErr.String
		if errorsJSON.Valid && errorsJSON.String != "" {
			json.Unmarshal([]byte(errorsJSON.String), &r.Errors)
		}
		if done.Valid {
			t, _ := time.Parse(timeLayout, done.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Reset clears every table except the type catalog.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"work_entries", "generation_runs", "leaves", "attendances", "contracts", "calendars", "employees"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func now() string { return formatTime(time.Now()) }

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func placeholders(n int) string {
	if n == 0 {
		return "NULL"
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var entryNamespace = uuid.MustParse("5f0c7a2e-2b7e-4d8e-9a51-3c1f0e6b9d42")

// entryID is a name-based UUID of the entry key, so regenerating a range
// yields the same ids.
func entryID(e workentry.WorkEntry) string {
	key := fmt.Sprintf("%s/%s/%s", e.ContractID, e.Date, e.WorkEntryTypeID)
	return uuid.NewSHA1(entryNamespace, []byte(key)).String()
}
