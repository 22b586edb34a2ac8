/*
errors.go - Centralized error types for the schedule engine

PURPOSE:
  All engine error types in one place. Every failure is returned as a
  value; the engine never panics and never returns a partial schedule.

ERROR CATEGORIES:
  1. Validation errors - template is malformed, raised before any
     date/amount computation
  2. Anchor errors     - a required event date is absent
  3. Allocation errors - amounts exceed principal, unsupported formula,
     irreconcilable rounding drift

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, planengine.ErrMissingEvent) {
        // the deal lacks a date the template requires
    }
*/
package planengine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTemplate is the root of every template validation failure.
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrInvalidInput is returned for malformed call inputs (bad decimal
	// string, unknown currency, bad date) as opposed to template faults.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingEvent is returned when a principal milestone anchors to an
	// event whose date is not yet known. Fatal for principal milestones;
	// event-triggered fees skip silently instead.
	ErrMissingEvent = errors.New("required event date missing")

	// ErrOverAllocated is returned when milestone amounts exceed 100% of
	// the principal.
	ErrOverAllocated = errors.New("milestone amounts exceed principal")

	// ErrUnsupportedFormula is returned when a formula amount mode is
	// encountered and no evaluator is installed.
	ErrUnsupportedFormula = errors.New("formula amount mode not supported")

	// ErrIrreconcilable is returned when the principal sum drifts from the
	// declared principal by more than the rounding tolerance.
	ErrIrreconcilable = errors.New("schedule irreconcilable with principal")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a single template fault. Validation stops at
// the first fault; the template is never partially applied.
type ValidationError struct {
	Code    string // e.g. "duplicate_milestone_code"
	Message string

	MilestoneCode string
	FeeRuleCode   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.MilestoneCode != "":
		return fmt.Sprintf("%s: %s (milestone %s)", e.Code, e.Message, e.MilestoneCode)
	case e.FeeRuleCode != "":
		return fmt.Sprintf("%s: %s (fee rule %s)", e.Code, e.Message, e.FeeRuleCode)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *ValidationError) Unwrap() error { return ErrInvalidTemplate }

// MissingEventError identifies which event a milestone needed.
type MissingEventError struct {
	Event         EventKind
	MilestoneCode string
}

func (e *MissingEventError) Error() string {
	return fmt.Sprintf("milestone %s requires %s date, which is not set", e.MilestoneCode, e.Event)
}

func (e *MissingEventError) Unwrap() error { return ErrMissingEvent }

// OverAllocationError reports the occurrence that pushed the remaining
// principal negative.
type OverAllocationError struct {
	OccurrenceCode string
	Requested      decimal.Decimal
	Remaining      decimal.Decimal
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("occurrence %s requests %s with only %s principal remaining",
		e.OccurrenceCode, e.Requested, e.Remaining)
}

func (e *OverAllocationError) Unwrap() error { return ErrOverAllocated }

// IrreconcilableError reports rounding drift beyond tolerance. This
// indicates an upstream logic error, not a bad template.
type IrreconcilableError struct {
	Expected  decimal.Decimal
	Actual    decimal.Decimal
	Drift     decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *IrreconcilableError) Error() string {
	return fmt.Sprintf("principal items sum to %s, expected %s (drift %s exceeds tolerance %s)",
		e.Actual, e.Expected, e.Drift, e.Tolerance)
}

func (e *IrreconcilableError) Unwrap() error { return ErrIrreconcilable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is attributable to the template
// author or the deal's inputs rather than the engine itself. Callers use
// this to pick 4xx vs 5xx.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTemplate) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMissingEvent) ||
		errors.Is(err, ErrOverAllocated) ||
		errors.Is(err, ErrUnsupportedFormula)
}
