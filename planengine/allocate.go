/*
allocate.go - Principal amount allocation across milestone occurrences

PURPOSE:
  Computes the principal amount of every occurrence while threading a
  single "remaining principal" accumulator through the whole ordered
  milestone sequence. This ordering is the engine's core invariant: later
  percent-of-remaining milestones depend on the balance left by earlier
  ones, so milestones run in sequence-number order and occurrences within
  a milestone in date order, never in parallel.

PRECISION:
  The accumulator is kept exact (unrounded). Emitted item amounts are
  rounded to the currency's minor unit; the reconciler later absorbs the
  accumulated rounding drift into the last installment so that a template
  authored to total 100% of principal sums exactly to the principal.
*/
package planengine

import "github.com/shopspring/decimal"

// =============================================================================
// AMOUNT ALLOCATOR
// =============================================================================

// AllocationStep records the accumulator state around one occurrence.
// The fee calculator reads RemainingBefore for percent-of-outstanding fees.
type AllocationStep struct {
	Occurrence Occurrence

	// RemainingBefore is the exact principal balance immediately before
	// this occurrence's amount was subtracted.
	RemainingBefore decimal.Decimal

	// Amount is the clamped amount rounded to the currency's minor unit,
	// as emitted on the schedule item.
	Amount decimal.Decimal
}

// AllocationResult is the output of the allocation pass.
type AllocationResult struct {
	Items []ScheduleItem
	Steps []AllocationStep

	// RemainingExact is the unrounded principal left after every
	// occurrence. Near zero for templates that exhaust the principal.
	RemainingExact decimal.Decimal
}

// Allocate computes principal amounts for all occurrences.
//
// milestones must already be sorted in sequence-number order (ties broken
// by code); occurrences maps milestone code to its date-ordered
// occurrences from ExpandMilestone.
func (e *Engine) Allocate(
	milestones []Milestone,
	occurrences map[string][]Occurrence,
	principal decimal.Decimal,
	cur Currency,
) (AllocationResult, error) {

	remaining := principal
	result := AllocationResult{}

	for _, m := range milestones {
		for _, occ := range occurrences[m.Code] {
			raw, err := e.occurrenceAmount(m, occ, principal, remaining)
			if err != nil {
				return AllocationResult{}, err
			}

			amount := clamp(raw, m.MinAmount, m.MaxAmount)

			next := remaining.Sub(amount)
			if next.IsNegative() {
				return AllocationResult{}, &OverAllocationError{
					OccurrenceCode: occ.Code,
					Requested:      cur.Round(amount),
					Remaining:      cur.Round(remaining),
				}
			}

			rounded := cur.Round(amount)
			result.Steps = append(result.Steps, AllocationStep{
				Occurrence:      occ,
				RemainingBefore: remaining,
				Amount:          rounded,
			})
			result.Items = append(result.Items, ScheduleItem{
				Code:                occ.Code,
				Role:                RolePrincipal,
				DueDate:             occ.DueDate,
				Amount:              rounded,
				Currency:            cur.Code,
				SourceMilestoneCode: m.Code,
				OccurrenceIndex:     occ.Index,
				Status:              StatusPending,
			})
			remaining = next
		}
	}

	result.RemainingExact = remaining
	return result, nil
}

// occurrenceAmount computes the raw, unclamped amount for one occurrence.
func (e *Engine) occurrenceAmount(
	m Milestone,
	occ Occurrence,
	principal, remaining decimal.Decimal,
) (decimal.Decimal, error) {

	switch m.AmountMode {
	case AmountFixed:
		return m.AmountValue, nil

	case AmountPercentOfPrincipal:
		// Always against the original principal, never the remainder.
		return m.AmountValue.Mul(principal), nil

	case AmountPercentOfRemaining:
		// Against the balance as of immediately before this occurrence, so
		// successive occurrences at the same rate strictly decrease.
		return m.AmountValue.Mul(remaining), nil

	case AmountFormula:
		if e.Formula == nil {
			return decimal.Zero, ErrUnsupportedFormula
		}
		return e.Formula.Evaluate(m.FormulaExpr, FormulaContext{
			Principal:  principal,
			Remaining:  remaining,
			Occurrence: occ,
		})

	default:
		return decimal.Zero, &ValidationError{
			Code: "invalid_amount_mode", Message: "unknown amount mode",
			MilestoneCode: m.Code,
		}
	}
}

// clamp applies the optional [min, max] bounds to an amount.
func clamp(d decimal.Decimal, min, max *decimal.Decimal) decimal.Decimal {
	if min != nil && d.LessThan(*min) {
		d = *min
	}
	if max != nil && d.GreaterThan(*max) {
		d = *max
	}
	return d
}
