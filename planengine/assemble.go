package planengine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE ASSEMBLER - Merge principal and fee items into one result
// =============================================================================

// Assemble merges reconciled principal items and fee items into the final
// ordered, immutable result.
//
// Folded fees (PostToSeparateLineItem=false) are added onto their target
// principal item's amount but still count toward TotalFees, so
// TotalPrincipal always reflects the contractual principal split and
// TotalAmount = TotalPrincipal + TotalFees holds either way.
//
// Items are sorted by (dueDate, role, code) with principal before fees on
// the same date, for a stable, deterministic order. Inputs are copied,
// never mutated.
func Assemble(principalItems []ScheduleItem, fees FeeResult, startDate Date, cur Currency) *ScheduleGenerationResult {
	items := make([]ScheduleItem, len(principalItems))
	copy(items, principalItems)

	totalPrincipal := decimal.Zero
	for _, item := range items {
		totalPrincipal = totalPrincipal.Add(item.Amount)
	}

	totalFees := decimal.Zero
	for _, merged := range fees.Merged {
		totalFees = totalFees.Add(merged.Amount)
		for i := range items {
			if items[i].Code == merged.TargetItemCode {
				items[i].Amount = items[i].Amount.Add(merged.Amount)
				break
			}
		}
	}

	for _, fee := range fees.Separate {
		totalFees = totalFees.Add(fee.Amount)
		items = append(items, fee)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].DueDate.Equal(items[j].DueDate) {
			return items[i].DueDate.Before(items[j].DueDate)
		}
		if items[i].Role != items[j].Role {
			return roleOrder(items[i].Role) < roleOrder(items[j].Role)
		}
		return items[i].Code < items[j].Code
	})

	endDate := startDate
	for _, item := range items {
		endDate = MaxDate(endDate, item.DueDate)
	}

	return &ScheduleGenerationResult{
		ScheduleItems:  items,
		TotalPrincipal: totalPrincipal,
		TotalFees:      totalFees,
		TotalAmount:    totalPrincipal.Add(totalFees),
		Currency:       cur.Code,
		StartDate:      startDate,
		EndDate:        endDate,
	}
}

func roleOrder(r ItemRole) int {
	if r == RolePrincipal {
		return 0
	}
	return 1
}
