/*
Package generic provides the domain-agnostic time machinery of the engine.

PURPOSE:
  This package contains the building blocks every work-entry computation is
  made of: half-open intervals carrying source references, civil dates and
  periods, timezone conversion, and hour amounts. Nothing in here knows what
  a contract or a leave is.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity of hours (decimal, rounded to 3 places on output)
  - Ref: A typed reference to the record an interval was derived from
  - Payload: An insertion-ordered set of Refs attached to an interval

DESIGN PRINCIPLES:
  1. Immutability: Payloads and interval sequences are never mutated in place
  2. Precision: Durations use decimal.Decimal, never float sums
  3. Determinism: Payload order is insertion order, so output is reproducible

USAGE:
  p := generic.NewPayload(generic.Ref{Kind: generic.RefLeave, ID: "L1"})
  iv, err := generic.NewInterval(start, end, p)
  hours := generic.HoursBetween(iv.Start, iv.End)

SEE ALSO:
  - interval.go: Interval algebra
  - time.go: Dates and timezone normalization
  - period.go: Date ranges
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity of hours
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitHours   Unit = "hours"
	UnitMinutes Unit = "minutes"
)

// Precision is the number of decimals durations are rounded to.
const Precision = 3

var microsPerHour = decimal.NewFromInt(int64(time.Hour / time.Microsecond))

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func Hours(value float64) Amount { return NewAmount(value, UnitHours) }

func ZeroHours() Amount { return Amount{Value: decimal.Zero, Unit: UnitHours} }

// HoursBetween returns end-start in hours, rounded to Precision.
func HoursBetween(start, end time.Time) Amount {
	return HoursOf(end.Sub(start))
}

// HoursOf converts a duration to hours, rounded to Precision.
func HoursOf(d time.Duration) Amount {
	if d <= 0 {
		return ZeroHours()
	}
	micros := decimal.NewFromInt(d.Microseconds())
	return Amount{Value: micros.Div(microsPerHour).Round(Precision), Unit: UnitHours}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) Round() Amount                { return Amount{Value: a.Value.Round(Precision), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Float64() float64             { return a.Value.InexactFloat64() }
func (a Amount) String() string               { return a.Value.StringFixed(Precision) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// IsNegligible reports whether the amount rounds to zero at Precision.
func (a Amount) IsNegligible() bool {
	return a.Value.Round(Precision).IsZero()
}

// =============================================================================
// REFERENCES - What an interval was derived from
// =============================================================================

// RefKind names the family of a source record. The merger exposes each kind
// as a "<kind>_ids" field on produced rows.
type RefKind string

const (
	RefAttendance RefKind = "attendance"
	RefLeave      RefKind = "leave"
	RefSlot       RefKind = "planning_slot"
)

// Ref points at the record an interval comes from. Type optionally carries
// the work-entry type hint of that record.
type Ref struct {
	Kind RefKind
	ID   string
	Type string
}

// SourceField returns the output field a ref kind is tracked under.
func (k RefKind) SourceField() string { return string(k) + "_ids" }

// =============================================================================
// PAYLOAD - Ordered set of refs
// =============================================================================

// Payload is an insertion-ordered set of refs. The zero value is empty.
type Payload struct {
	refs []Ref
}

func NewPayload(refs ...Ref) Payload {
	var p Payload
	for _, r := range refs {
		if !p.Has(r) {
			p.refs = append(p.refs, r)
		}
	}
	return p
}

// Union returns a payload holding p's refs followed by the refs of others
// that p does not already hold.
func (p Payload) Union(others ...Payload) Payload {
	out := Payload{refs: append([]Ref(nil), p.refs...)}
	for _, o := range others {
		for _, r := range o.refs {
			if !out.Has(r) {
				out.refs = append(out.refs, r)
			}
		}
	}
	return out
}

func (p Payload) Has(r Ref) bool {
	for _, x := range p.refs {
		if x == r {
			return true
		}
	}
	return false
}

func (p Payload) Refs() []Ref   { return append([]Ref(nil), p.refs...) }
func (p Payload) Len() int      { return len(p.refs) }
func (p Payload) IsEmpty() bool { return len(p.refs) == 0 }

// OfKind returns the refs of one kind, in payload order.
func (p Payload) OfKind(kind RefKind) []Ref {
	var out []Ref
	for _, r := range p.refs {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Only returns a payload restricted to the given kinds.
func (p Payload) Only(kinds ...RefKind) Payload {
	var out Payload
	for _, r := range p.refs {
		for _, k := range kinds {
			if r.Kind == k {
				out.refs = append(out.refs, r)
				break
			}
		}
	}
	return out
}

// Without returns a payload with every ref of the given kind removed.
func (p Payload) Without(kind RefKind) Payload {
	var out Payload
	for _, r := range p.refs {
		if r.Kind != kind {
			out.refs = append(out.refs, r)
		}
	}
	return out
}
