/*
engine.go - Orchestrator

PURPOSE:
  Entry point of the package. Generate validates its arguments, then
  runs the pipeline for every (company, timezone) group of contracts and
  every distinct active span inside a group.

FLOW:
  Generate(contracts, from, to)
    -> validate (no work is done on bad input)
    -> load catalog and source fields from the host
    -> group contracts by (company, tz)
       -> clip each contract to [max(start, from), min(end, to)]
       -> group by clipped span: one sub-window per distinct span
          -> attendances, leaves, classification, entry types
    -> split at local midnight, compute durations, merge

FAILURES:
  Input errors and capability errors abort the run. A contract without
  any timezone is skipped and reported in Result.Errors, unless the
  engine was built WithStrictTimezones.

CANCELLATION:
  The context is checked between sub-windows and between contracts. When
  it ends, the rows produced so far are post-processed and returned with
  Result.Canceled set.
*/
package workentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/workentry-engine/generic"
)

var errCanceled = errors.New("generation canceled")

// =============================================================================
// ENGINE
// =============================================================================

// Engine is stateless between calls and safe for concurrent use. All
// caches live in a single Generate call.
type Engine struct {
	host      Host
	strategy  Strategy
	bypass    []string
	hasBypass bool
	strictTZ  bool
}

type Option func(*Engine)

func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithBypassCodes sets the bypass codes, replacing the host's.
func WithBypassCodes(codes ...string) Option {
	return func(e *Engine) {
		e.bypass = append([]string(nil), codes...)
		e.hasBypass = true
	}
}

// WithStrictTimezones makes a contract without timezone fail the whole run.
func WithStrictTimezones() Option {
	return func(e *Engine) { e.strictTZ = true }
}

func New(host Host, opts ...Option) *Engine {
	e := &Engine{host: host, strategy: DefaultStrategy{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate produces the work entries of contracts over [dateStart,
// dateStop], both days included in each contract's local time.
func (e *Engine) Generate(ctx context.Context, contracts []Contract, dateStart, dateStop generic.Date) (*Result, error) {
	zones := generic.NewZones()
	if err := validate(zones, contracts, dateStart, dateStop); err != nil {
		return nil, err
	}

	r := &run{
		ctx:      ctx,
		host:     e.host,
		strategy: e.strategy,
		zones:    zones,
		hours:    make(map[span]generic.Amount),
		reported: make(map[ContractID]bool),
	}
	if err := r.load(e); err != nil {
		return nil, err
	}

	cs := append([]Contract(nil), contracts...)
	var located []*Contract
	for i := range cs {
		c := &cs[i]
		if c.Timezone() != "" {
			located = append(located, c)
			continue
		}
		ce := ContractError{ContractID: c.ID, Reason: "missing timezone", Err: ErrMissingTimezone}
		if e.strictTZ {
			return nil, &ce
		}
		r.errors = append(r.errors, ce)
	}

	canceled := false
	keys, groups := generic.GroupBy(located, func(c *Contract) groupKey {
		return groupKey{company: c.CompanyID, tz: c.Timezone()}
	})
	for _, k := range keys {
		loc, _ := zones.Load(k.tz)
		err := r.group(loc, groups[k], dateStart, dateStop)
		if errors.Is(err, errCanceled) {
			canceled = true
			break
		}
		if err != nil {
			return nil, err
		}
	}

	// Partial results are still post-processed after a cancellation.
	if canceled {
		r.ctx = context.WithoutCancel(ctx)
	}
	entries, err := r.finish()
	if err != nil {
		return nil, err
	}
	return &Result{Entries: entries, Errors: r.errors, Canceled: canceled}, nil
}

func validate(zones *generic.Zones, contracts []Contract, dateStart, dateStop generic.Date) error {
	if len(contracts) == 0 {
		return &InputError{Field: "contracts", Message: "at least one contract is required"}
	}
	if dateStart.IsZero() || dateStop.IsZero() {
		return &InputError{Field: "date_start", Message: "both bounds are required"}
	}
	if dateStop.Before(dateStart) {
		return &InputError{Field: "date_stop", Message: fmt.Sprintf("%s is before %s", dateStop, dateStart), Err: generic.ErrInvalidPeriod}
	}
	for _, c := range contracts {
		if err := c.Validate(); err != nil {
			return err
		}
		if tz := c.Timezone(); tz != "" {
			if _, err := zones.Load(tz); err != nil {
				return &InputError{Field: "contract.tz", Message: fmt.Sprintf("contract %s", c.ID), Err: err}
			}
		}
	}
	return nil
}

// =============================================================================
// RUN - State of one Generate call
// =============================================================================

type groupKey struct {
	company CompanyID
	tz      string
}

type span struct {
	start time.Time
	end   time.Time
}

// row is an intermediate, not yet split, classified interval.
type row struct {
	contract *Contract
	loc      *time.Location
	start    time.Time
	end      time.Time
	typeID   WorkEntryTypeID
	payload  generic.Payload
}

type run struct {
	ctx      context.Context
	host     Host
	strategy Strategy
	zones    *generic.Zones
	catalog  *Catalog
	fields   []string

	rows     []row
	errors   []ContractError
	reported map[ContractID]bool

	hours map[span]generic.Amount
}

// load reads the catalog. It ignores cancellation: a canceled run still
// post-processes what it produced.
func (r *run) load(e *Engine) error {
	ctx := context.WithoutCancel(r.ctx)
	types, err := r.host.WorkEntryTypes(ctx)
	if err != nil {
		return &CapabilityError{Capability: CapWorkEntryTypes, Err: err}
	}
	fields, err := r.host.WorkEntrySourceFields(ctx)
	if err != nil {
		return &CapabilityError{Capability: CapSourceFields, Err: err}
	}
	attendance, err := r.host.DefaultAttendanceType(ctx)
	if err != nil {
		return &CapabilityError{Capability: CapDefaultTypes, Err: err}
	}
	leave, err := r.host.DefaultLeaveType(ctx)
	if err != nil {
		return &CapabilityError{Capability: CapDefaultTypes, Err: err}
	}
	bypass := e.bypass
	if !e.hasBypass {
		if bypass, err = r.host.BypassCodes(ctx); err != nil {
			return &CapabilityError{Capability: CapBypassCodes, Err: err}
		}
	}
	r.catalog = NewCatalog(types, bypass, attendance, leave)
	r.fields = fields
	return nil
}

// capability wraps a host failure. A failure caused by the context ending
// is a cancellation, not a broken host.
func (r *run) capability(name string, err error) error {
	if r.ctx.Err() != nil {
		return errCanceled
	}
	return &CapabilityError{Capability: name, Err: err}
}

// report records a skipped contract once.
func (r *run) report(c *Contract, reason string, err error) {
	if r.reported[c.ID] {
		return
	}
	r.reported[c.ID] = true
	r.errors = append(r.errors, ContractError{ContractID: c.ID, Reason: reason, Err: err})
}

// =============================================================================
// FAN-OUT
// =============================================================================

type clipped struct {
	contract *Contract
	period   generic.Period
}

func (r *run) group(loc *time.Location, contracts []*Contract, from, to generic.Date) error {
	var active []clipped
	for _, c := range contracts {
		if p, ok := c.Span(from, to); ok {
			active = append(active, clipped{contract: c, period: p})
		}
	}

	keys, windows := generic.GroupBy(active, func(c clipped) generic.Period { return c.period })
	for _, p := range keys {
		if r.ctx.Err() != nil {
			return errCanceled
		}
		start, end := r.zones.Window(loc, p.Start, p.End)
		members := make([]*Contract, 0, len(windows[p]))
		for _, c := range windows[p] {
			members = append(members, c.contract)
		}
		if err := r.window(loc, start, end, members); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) window(loc *time.Location, start, end time.Time, contracts []*Contract) error {
	attendances, err := r.attendances(start, end, contracts)
	if err != nil {
		return err
	}
	leaves, err := r.fetchLeaves(start, end, contracts)
	if err != nil {
		return err
	}
	static := r.staticAttendances(start, end, contracts)

	for _, c := range contracts {
		if r.ctx.Err() != nil {
			return errCanceled
		}
		if err := r.contract(c, loc, start, end, attendances[c.ID], leaves, static); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) contract(c *Contract, loc *time.Location, start, end time.Time, attendances generic.Intervals, all []Leave, static func(*Contract) (generic.Intervals, error)) error {
	absence, worked, own := r.contractLeaves(c, all, start, end, attendances)

	cls, err := r.strategy.ClassifyInterval(ClassifyInput{
		Contract:          c,
		Location:          loc,
		Attendances:       attendances,
		AbsenceLeaves:     absence,
		WorkedLeaves:      worked,
		StaticAttendances: func() (generic.Intervals, error) { return static(c) },
	})
	if err != nil {
		return err
	}

	r.emitAttendances(c, loc, cls.Attendances)
	r.emitLeaves(c, loc, FamilyLeave, cls.Leaves, own)
	r.emitLeaves(c, loc, FamilyWorkedLeave, cls.WorkedLeaves, own)
	return nil
}

// =============================================================================
// POST-PROCESSING
// =============================================================================

func (r *run) finish() ([]WorkEntry, error) {
	segments := r.splitRows()
	if err := r.durations(segments); err != nil {
		return nil, err
	}
	return merge(segments, r.fields), nil
}
