package planengine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ROUNDING RECONCILER - Keep the schedule on the contractual principal
// =============================================================================

// Reconcile corrects residual rounding drift against the declared
// principal.
//
// It only acts when the template exhausted the principal: if the exact
// (unrounded) remainder is at least one minor unit, the template allocates
// less than 100% on purpose and the items are returned unchanged.
//
// When the principal was exhausted, per-occurrence rounding contributes at
// most half a minor unit of drift each, so any difference within
// minorUnit x len(items) is rounding and is folded into the LAST principal
// item in date order. A larger difference indicates a logic error upstream
// and surfaces as *IrreconcilableError rather than being silently patched.
func Reconcile(alloc AllocationResult, principal decimal.Decimal, cur Currency) ([]ScheduleItem, error) {
	items := alloc.Items
	if len(items) == 0 {
		return items, nil
	}

	// Deliberate under-allocation: nothing to reconcile against.
	if alloc.RemainingExact.GreaterThanOrEqual(cur.MinorUnit()) {
		return items, nil
	}

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount)
	}

	drift := principal.Sub(sum)
	if drift.IsZero() {
		return items, nil
	}

	tolerance := cur.MinorUnit().Mul(decimal.NewFromInt(int64(len(items))))
	if drift.Abs().GreaterThan(tolerance) {
		return nil, &IrreconcilableError{
			Expected:  principal,
			Actual:    sum,
			Drift:     drift,
			Tolerance: tolerance,
		}
	}

	last := 0
	for i := 1; i < len(items); i++ {
		if !items[i].DueDate.Before(items[last].DueDate) {
			last = i
		}
	}

	patched := make([]ScheduleItem, len(items))
	copy(patched, items)
	patched[last].Amount = patched[last].Amount.Add(drift)
	return patched, nil
}
