/*
errors.go - Error types of the work-entry engine

ERROR CATEGORIES:
  1. Input errors - rejected before any work is done (ErrInput)
  2. Per-contract errors - the contract is skipped, the batch continues
     (ErrMissingTimezone, ErrNoAttendanceType)
  3. Capability errors - a host call failed, the whole run aborts
     (ErrCapability)

USAGE:
  res, err := engine.Generate(ctx, contracts, from, to)
  switch {
  case workentry.IsInputError(err):
      // 400
  case workentry.IsCapabilityError(err):
      // 500, the host is broken
  }
  for _, ce := range res.Errors {
      if errors.Is(&ce, workentry.ErrMissingTimezone) { ... }
  }
*/
package workentry

import (
	"errors"
	"fmt"

	"github.com/warp/workentry-engine/generic"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrInput            = errors.New("invalid input")
	ErrMissingTimezone  = errors.New("missing timezone")
	ErrNoAttendanceType = errors.New("no attendance work entry type")
	ErrCapability       = errors.New("host capability failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

type InputError struct {
	Field   string
	Message string
	Err     error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes every InputError match ErrInput.
func (e *InputError) Is(target error) bool { return target == ErrInput }

func (e *InputError) Unwrap() error { return e.Err }

// ContractError reports a contract skipped by the run.
type ContractError struct {
	ContractID ContractID `json:"contract_id"`
	Reason     string     `json:"reason"`
	Err        error      `json:"-"`
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("contract %s: %s", e.ContractID, e.Reason)
}

func (e *ContractError) Unwrap() error { return e.Err }

type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Is(target error) bool { return target == ErrCapability }

func (e *CapabilityError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInputError returns true for errors caused by the caller's arguments,
// including timezone names that do not resolve.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInput) || generic.IsClientError(err)
}

func IsCapabilityError(err error) bool {
	return errors.Is(err, ErrCapability)
}
