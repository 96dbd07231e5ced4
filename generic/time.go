package generic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Civil calendar date, no clock, no zone
// =============================================================================

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const DateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses YYYY-MM-DD. Anything carrying a clock (RFC 3339,
// "2022-02-14 08:00") is rejected with ErrNotADate.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if _, err := time.Parse(layout, s); err == nil {
			return Date{}, fmt.Errorf("%q: %w", s, ErrNotADate)
		}
	}
	return Date{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD", s)
}

// DateOf converts a time.Time whose clock reads midnight into a Date.
// Any other clock value means a datetime was passed and is rejected.
func DateOf(t time.Time) (Date, error) {
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return Date{}, fmt.Errorf("%s: %w", t.Format(time.RFC3339), ErrNotADate)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// LocalDate returns the calendar date of t in its own location.
func LocalDate(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// In returns the instant at hour:min on d in loc.
func (d Date) In(loc *time.Location, hour, min, sec, nsec int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, min, sec, nsec, loc)
}

// Midnight returns 00:00 of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time { return d.In(loc, 0, 0, 0, 0) }

// EndOfDay returns 23:59:59.999999 of d in loc.
func (d Date) EndOfDay(loc *time.Location) time.Time {
	return d.In(loc, 23, 59, 59, int(time.Second-time.Microsecond))
}

func (d Date) AddDays(n int) Date { return LocalDate(d.utc().AddDate(0, 0, n)) }

func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }

func (d Date) Before(o Date) bool { return d.utc().Before(o.utc()) }
func (d Date) After(o Date) bool  { return d.utc().After(o.utc()) }
func (d Date) Equal(o Date) bool  { return d == o }
func (d Date) IsZero() bool       { return d == Date{} }

func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Ordinal returns the proleptic Gregorian ordinal (0001-01-01 is day 1).
func (d Date) Ordinal() int {
	epoch := time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	return int((d.utc().Unix()-epoch)/86400) + 1
}

func (d Date) String() string { return d.utc().Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) utc() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// NextLocalMidnight returns the first midnight strictly after t, in t's
// location. Computed on the calendar, so DST days are 23 or 25 hours long.
func NextLocalMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// =============================================================================
// ZONES - Per-invocation timezone normalizer
// =============================================================================

// Zones resolves timezone names and converts instants between UTC and local
// time. It memoizes both, so one Zones must not outlive a single engine call
// and must not be shared between goroutines.
type Zones struct {
	locations map[string]*time.Location
	local     map[zoneKey]time.Time
}

type zoneKey struct {
	tz  string
	utc int64
}

func NewZones() *Zones {
	return &Zones{
		locations: make(map[string]*time.Location),
		local:     make(map[zoneKey]time.Time),
	}
}

// Load resolves an IANA timezone name. The empty name and "Local" are
// rejected: all local-day arithmetic must name its zone explicitly.
func (z *Zones) Load(name string) (*time.Location, error) {
	if loc, ok := z.locations[name]; ok {
		return loc, nil
	}
	if name == "" || name == "Local" {
		return nil, &TimezoneError{Name: name}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &TimezoneError{Name: name, Err: err}
	}
	z.locations[name] = loc
	return loc, nil
}

// Window converts the naive date range [d0, d1] into the aware UTC window
// [d0 00:00 tz, d1 23:59:59.999999 tz].
func (z *Zones) Window(loc *time.Location, d0, d1 Date) (time.Time, time.Time) {
	return d0.Midnight(loc).UTC(), d1.EndOfDay(loc).UTC()
}

// Local converts an instant to loc, memoized per (tz, instant).
func (z *Zones) Local(loc *time.Location, t time.Time) time.Time {
	k := zoneKey{tz: loc.String(), utc: t.UnixNano()}
	if v, ok := z.local[k]; ok {
		return v
	}
	v := t.In(loc)
	z.local[k] = v
	return v
}

// Cached returns the number of memoized local conversions.
func (z *Zones) Cached() int { return len(z.local) }
