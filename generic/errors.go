/*
errors.go - Centralized error types for the generic package

PURPOSE:
  All error types in one place for consistency and discoverability.
  The workentry package wraps these with contract-level context.

ERROR CATEGORIES:
  1. Programmer errors - invalid intervals (a bug upstream, never retried)
  2. Input errors - unknown timezones, datetimes where dates are expected,
     reversed periods

USAGE:
  if errors.Is(err, generic.ErrUnknownTimezone) {
      var tzErr *generic.TimezoneError
      errors.As(err, &tzErr)
      log.Printf("bad tz %q", tzErr.Name)
  }
*/
package generic

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInterval is returned when an interval has start >= end.
	ErrInvalidInterval = errors.New("invalid interval: start not before end")

	// ErrUnknownTimezone is returned when a timezone name cannot be resolved.
	ErrUnknownTimezone = errors.New("unknown timezone")

	// ErrNotADate is returned when a datetime is given where a calendar date
	// is required.
	ErrNotADate = errors.New("value is a datetime, expected a date")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type IntervalError struct {
	Start time.Time
	End   time.Time
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval [%s, %s)", e.Start.Format(time.RFC3339Nano), e.End.Format(time.RFC3339Nano))
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

type TimezoneError struct {
	Name string
	Err  error
}

func (e *TimezoneError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unknown timezone %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("unknown timezone %q", e.Name)
}

func (e *TimezoneError) Unwrap() error { return ErrUnknownTimezone }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownTimezone) ||
		errors.Is(err, ErrNotADate) ||
		errors.Is(err, ErrInvalidPeriod)
}
