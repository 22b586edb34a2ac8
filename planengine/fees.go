/*
fees.go - Fee rule evaluation

PURPOSE:
  Evaluates fee rules against the resolved plan: which instances exist
  (trigger timing + charge scope + apply mode), when they are due, and how
  much they charge (calculation type/base against principal, the bound
  installment, or the outstanding balance from the allocation trace).

  Fees are orthogonal to principal allocation: they never touch the
  remaining-principal accumulator, they only read it.

MISSING EVENTS:
  Unlike principal milestones, an event-triggered fee whose event date is
  unknown is skipped silently. The fee may legitimately not be due yet
  because the triggering business event has not happened.
*/
package planengine

import "github.com/shopspring/decimal"

// =============================================================================
// FEE CALCULATOR
// =============================================================================

// MergedFee is a fee amount folded into a principal item instead of
// posting as its own row (PostToSeparateLineItem=false).
type MergedFee struct {
	TargetItemCode string
	FeeRuleCode    string
	Amount         decimal.Decimal
}

// FeeResult is the output of the fee pass.
type FeeResult struct {
	Separate []ScheduleItem
	Merged   []MergedFee
}

// feeInstance is one concrete application of a fee rule before amounts
// are computed. step is nil for instances without an occurrence context.
type feeInstance struct {
	dueDate Date
	step    *AllocationStep
}

// CalculateFees evaluates all fee rules.
//
// alloc is the completed allocation pass; its trace supplies installment
// amounts and the outstanding balance at each occurrence.
func (e *Engine) CalculateFees(
	rules []FeeRule,
	startDate Date,
	events PlanEvents,
	alloc AllocationResult,
	principal decimal.Decimal,
	cur Currency,
) (FeeResult, error) {

	result := FeeResult{}

	for i := range rules {
		rule := rules[i]
		instances := triggerInstances(rule, startDate, events, alloc)

		for _, inst := range instances {
			raw, err := feeAmount(rule, inst, principal)
			if err != nil {
				return FeeResult{}, err
			}
			amount := cur.Round(clamp(raw, rule.MinAmount, rule.MaxAmount))

			// Folding needs a principal row to ride on; instances without
			// an occurrence context always post separately.
			if !rule.PostToSeparateLineItem && inst.step != nil {
				result.Merged = append(result.Merged, MergedFee{
					TargetItemCode: inst.step.Occurrence.Code,
					FeeRuleCode:    rule.Code,
					Amount:         amount,
				})
				continue
			}

			item := ScheduleItem{
				Code:              rule.Code,
				Role:              RoleFee,
				DueDate:           inst.dueDate,
				Amount:            amount,
				Currency:          cur.Code,
				SourceFeeRuleCode: rule.Code,
				Status:            StatusPending,
			}
			if inst.step != nil {
				item.Code = rule.Code + "-" + inst.step.Occurrence.Code
				item.SourceMilestoneCode = inst.step.Occurrence.MilestoneCode
				item.OccurrenceIndex = inst.step.Occurrence.Index
			}
			result.Separate = append(result.Separate, item)
		}
	}

	return result, nil
}

// triggerInstances determines which concrete instances a rule produces.
func triggerInstances(rule FeeRule, startDate Date, events PlanEvents, alloc AllocationResult) []feeInstance {
	switch rule.Trigger {
	case TriggerOnPlanCreation:
		return []feeInstance{{dueDate: startDate}}

	case TriggerOnEvent:
		date, ok := events.DateFor(rule.TriggerEvent)
		if !ok {
			// Non-fatal: the event has not happened yet.
			return nil
		}
		return []feeInstance{{dueDate: date}}

	case TriggerOnMilestoneDue:
		var instances []feeInstance
		for i := range alloc.Steps {
			step := &alloc.Steps[i]
			if step.Occurrence.MilestoneCode != rule.MilestoneCode {
				continue
			}
			if rule.ApplyMode == ApplySpecificOccurrence && step.Occurrence.Index != rule.OccurrenceNumber-1 {
				// Out-of-range numbers simply match nothing.
				continue
			}
			instances = append(instances, feeInstance{dueDate: step.Occurrence.DueDate, step: step})
		}
		return applyScope(rule.Scope, instances)

	case TriggerOnLate, TriggerOnPayment:
		// Evaluated later by the payment-tracking process, never here.
		return nil

	default:
		return nil
	}
}

// applyScope collapses milestone-due instances according to charge scope.
// Installment charges every occurrence; Milestone and Plan charge once,
// at the earliest kept occurrence.
func applyScope(scope ChargeScope, instances []feeInstance) []feeInstance {
	if len(instances) == 0 {
		return nil
	}
	switch scope {
	case ScopeMilestone, ScopePlan:
		return instances[:1]
	default: // ScopeInstallment or unset
		return instances
	}
}

// feeAmount computes the raw, unclamped amount of one fee instance.
func feeAmount(rule FeeRule, inst feeInstance, principal decimal.Decimal) (decimal.Decimal, error) {
	if rule.CalculationType == FeeFixed {
		return rule.RateOrAmount, nil
	}

	base, err := feeBase(rule, inst, principal)
	if err != nil {
		return decimal.Zero, err
	}
	return rule.RateOrAmount.Mul(base), nil
}

// feeBase resolves the amount a percent fee applies against. The explicit
// CalculationBase wins over the base implied by the calculation type.
func feeBase(rule FeeRule, inst feeInstance, principal decimal.Decimal) (decimal.Decimal, error) {
	base := rule.CalculationBase
	if base == BaseDefault {
		switch rule.CalculationType {
		case FeePercentOfInstallment:
			base = BaseInstallment
		case FeePercentOfOutstanding:
			base = BaseOutstanding
		default:
			base = BasePrincipal
		}
	}

	switch base {
	case BasePrincipal:
		return principal, nil
	case BaseInstallment:
		if inst.step == nil {
			return decimal.Zero, &ValidationError{
				Code: "fee_base_needs_occurrence", Message: "installment base without an occurrence",
				FeeRuleCode: rule.Code,
			}
		}
		return inst.step.Amount, nil
	case BaseOutstanding:
		if inst.step == nil {
			return decimal.Zero, &ValidationError{
				Code: "fee_base_needs_occurrence", Message: "outstanding base without an occurrence",
				FeeRuleCode: rule.Code,
			}
		}
		return inst.step.RemainingBefore, nil
	default:
		return decimal.Zero, &ValidationError{
			Code: "invalid_fee_base", Message: "unknown calculation base",
			FeeRuleCode: rule.Code,
		}
	}
}
