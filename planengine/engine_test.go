package planengine_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/plan-engine/planengine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func day(year int, month time.Month, d int) planengine.Date {
	return planengine.NewDate(year, month, d)
}

func datePtr(d planengine.Date) *planengine.Date {
	return &d
}

func usd(t *testing.T) planengine.Currency {
	t.Helper()
	cur, err := planengine.ParseCurrency("USD")
	if err != nil {
		t.Fatalf("parse USD: %v", err)
	}
	return cur
}

func singleMilestone(code string, seq int, mode planengine.AmountMode, value string, anchor planengine.Anchor) planengine.Milestone {
	return planengine.Milestone{
		Code:           code,
		SequenceNumber: seq,
		Pattern:        planengine.SchedulePattern{Type: planengine.PatternSingle},
		Anchor:         anchor,
		AmountMode:     mode,
		AmountValue:    dec(value),
	}
}

func planStart(offsetDays, offsetMonths int) planengine.Anchor {
	return planengine.Anchor{
		Type:         planengine.AnchorPlanStart,
		OffsetDays:   offsetDays,
		OffsetMonths: offsetMonths,
	}
}

// scenarioTemplate is the two-milestone 20% down / remainder template used
// across several tests: M1 fixed 20000 at start, M2 100% of the remainder
// 30 days later.
func scenarioTemplate() planengine.Template {
	return planengine.Template{
		Milestones: []planengine.Milestone{
			singleMilestone("M1", 1, planengine.AmountFixed, "20000", planStart(0, 0)),
			singleMilestone("M2", 2, planengine.AmountPercentOfRemaining, "1.0", planStart(30, 0)),
		},
	}
}

func itemByCode(t *testing.T, result *planengine.ScheduleGenerationResult, code string) planengine.ScheduleItem {
	t.Helper()
	for _, item := range result.ScheduleItems {
		if item.Code == code {
			return item
		}
	}
	t.Fatalf("no item with code %q in result", code)
	return planengine.ScheduleItem{}
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestGenerate_DownPaymentThenRemainder(t *testing.T) {
	// GIVEN: principal 100000 USD, M1 fixed 20000 at plan start,
	//        M2 = 100% of remaining principal 30 days later
	// WHEN:  generating from 2025-01-01
	// THEN:  M1 = 20000 due 2025-01-01, M2 = 80000 due 2025-01-31,
	//        total principal 100000

	engine := planengine.New()
	result, err := engine.GenerateSchedule(scenarioTemplate(), "100000", "USD", "2025-01-01", planengine.PlanEvents{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m1 := itemByCode(t, result, "M1")
	if !m1.Amount.Equal(dec("20000")) {
		t.Errorf("M1 amount = %s, want 20000", m1.Amount)
	}
	if !m1.DueDate.Equal(day(2025, time.January, 1)) {
		t.Errorf("M1 due %s, want 2025-01-01", m1.DueDate)
	}

	m2 := itemByCode(t, result, "M2")
	if !m2.Amount.Equal(dec("80000")) {
		t.Errorf("M2 amount = %s, want 80000", m2.Amount)
	}
	if !m2.DueDate.Equal(day(2025, time.January, 31)) {
		t.Errorf("M2 due %s, want 2025-01-31", m2.DueDate)
	}

	if !result.TotalPrincipal.Equal(dec("100000")) {
		t.Errorf("total principal = %s, want 100000", result.TotalPrincipal)
	}
	if !result.TotalFees.IsZero() {
		t.Errorf("total fees = %s, want 0", result.TotalFees)
	}
	if !result.EndDate.Equal(day(2025, time.January, 31)) {
		t.Errorf("end date %s, want 2025-01-31", result.EndDate)
	}
}

func TestGenerate_PlanCreationFee(t *testing.T) {
	// GIVEN: the down-payment template plus a 2% plan-creation fee posted
	//        as a separate line item
	// WHEN:  generating for 100000 USD
	// THEN:  one extra fee item of 2000 due at start, totals 100000 + 2000

	tmpl := scenarioTemplate()
	tmpl.FeeRules = []planengine.FeeRule{{
		Code:                   "F1",
		Name:                   "Processing Fee",
		Trigger:                planengine.TriggerOnPlanCreation,
		Scope:                  planengine.ScopePlan,
		CalculationType:        planengine.FeePercentOfPrincipal,
		RateOrAmount:           dec("0.02"),
		PostToSeparateLineItem: true,
		ApplyMode:              planengine.ApplyAllOccurrences,
	}}

	engine := planengine.New()
	result, err := engine.GenerateSchedule(tmpl, "100000", "USD", "2025-01-01", planengine.PlanEvents{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fee := itemByCode(t, result, "F1")
	if fee.Role != planengine.RoleFee {
		t.Errorf("F1 role = %s, want fee", fee.Role)
	}
	if !fee.Amount.Equal(dec("2000")) {
		t.Errorf("fee amount = %s, want 2000", fee.Amount)
	}
	if !fee.DueDate.Equal(day(2025, time.January, 1)) {
		t.Errorf("fee due %s, want 2025-01-01", fee.DueDate)
	}

	if !result.TotalFees.Equal(dec("2000")) {
		t.Errorf("total fees = %s, want 2000", result.TotalFees)
	}
	if !result.TotalAmount.Equal(dec("102000")) {
		t.Errorf("total amount = %s, want 102000", result.TotalAmount)
	}
}

func TestGenerate_OverAllocation_Rejected(t *testing.T) {
	// GIVEN: milestones summing to 110% of principal
	// WHEN:  generating
	// THEN:  ErrOverAllocated, no partial result

	tmpl := planengine.Template{
		Milestones: []planengine.Milestone{
			singleMilestone("M1", 1, planengine.AmountPercentOfPrincipal, "0.6", planStart(0, 0)),
			singleMilestone("M2", 2, planengine.AmountPercentOfPrincipal, "0.5", planStart(30, 0)),
		},
	}

	engine := planengine.New()
	result, err := engine.GenerateSchedule(tmpl, "100000", "USD", "2025-01-01", planengine.PlanEvents{})

	if !errors.Is(err, planengine.ErrOverAllocated) {
		t.Fatalf("expected ErrOverAllocated, got %v", err)
	}
	if result != nil {
		t.Error("expected no result on over-allocation")
	}

	var overErr *planengine.OverAllocationError
	if !errors.As(err, &overErr) {
		t.Fatal("expected *OverAllocationError")
	}
	if overErr.OccurrenceCode != "M2" {
		t.Errorf("offending occurrence = %s, want M2", overErr.OccurrenceCode)
	}
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestGenerate_Deterministic(t *testing.T) {
	// GIVEN: a template mixing recurring milestones and fees
	// WHEN:  generating twice with identical inputs
	// THEN:  the results are deeply equal

	tmpl := planengine.Template{
		Milestones: []planengine.Milestone{
			singleMilestone("down", 1, planengine.AmountPercentOfPrincipal, "0.1", planStart(0, 0)),
			{
				Code:           "installments",
				SequenceNumber: 2,
				Pattern: planengine.SchedulePattern{
					Type:     planengine.PatternRecurring,
					Count:    6,
					Interval: planengine.IntervalMonthly,
				},
				Anchor:      planStart(0, 1),
				AmountMode:  planengine.AmountPercentOfRemaining,
				AmountValue: dec("0.25"),
			},
		},
		FeeRules: []planengine.FeeRule{{
			Code:                   "admin",
			Trigger:                planengine.TriggerOnMilestoneDue,
			MilestoneCode:          "installments",
			Scope:                  planengine.ScopeInstallment,
			CalculationType:        planengine.FeePercentOfInstallment,
			RateOrAmount:           dec("0.01"),
			PostToSeparateLineItem: true,
			ApplyMode:              planengine.ApplyAllOccurrences,
		}},
	}

	engine := planengine.New()
	events := planengine.PlanEvents{BookingDate: datePtr(day(2025, time.February, 10))}

	first, err := engine.GenerateSchedule(tmpl, "123456.78", "USD", "2025-01-15", events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.GenerateSchedule(tmpl, "123456.78", "USD", "2025-01-15", events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs must produce deeply equal results")
	}
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestGenerate_ThreeWaySplit_ReconcilesExactly(t *testing.T) {
	// GIVEN: three equal third-of-remaining milestones authored to total
	//        100% of principal, and a principal that does not divide evenly
	// WHEN:  generating for 100.00
	// THEN:  the principal items sum to exactly 100.00

	third := planengine.Template{
		Milestones: []planengine.Milestone{
			singleMilestone("P1", 1, planengine.AmountPercentOfPrincipal, "0.333333", planStart(0, 0)),
			singleMilestone("P2", 2, planengine.AmountPercentOfPrincipal, "0.333333", planStart(30, 0)),
			singleMilestone("P3", 3, planengine.AmountPercentOfRemaining, "1.0", planStart(60, 0)),
		},
	}

	engine := planengine.New()
	result, err := engine.GenerateSchedule(third, "100.00", "USD", "2025-03-01", planengine.PlanEvents{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := decimal.Zero
	for _, item := range result.ScheduleItems {
		if item.Role == planengine.RolePrincipal {
			sum = sum.Add(item.Amount)
		}
	}
	if !sum.Equal(dec("100.00")) {
		t.Errorf("principal items sum to %s, want exactly 100.00", sum)
	}
	if !result.TotalPrincipal.Equal(dec("100.00")) {
		t.Errorf("total principal = %s, want 100.00", result.TotalPrincipal)
	}
}

func TestGenerate_TwelveInstallments_ReconcilesForAwkwardPrincipal(t *testing.T) {
	// GIVEN: 12 equal monthly installments of 1/12 of principal each
	// WHEN:  generating for 1000.00 (which does not divide by 12)
	// THEN:  the drift is folded into the last installment and the sum is
	//        exactly 1000.00

	tmpl := planengine.Template{
		Milestones: []planengine.Milestone{{
			Code:           "monthly",
			SequenceNumber: 1,
			Pattern: planengine.SchedulePattern{
				Type:     planengine.PatternRecurring,
				Count:    12,
				Interval: planengine.IntervalMonthly,
			},
			Anchor:      planStart(0, 0),
			AmountMode:  planengine.AmountPercentOfPrincipal,
			AmountValue: dec("1").Div(dec("12")),
		}},
	}

	engine := planengine.New()
	result, err := engine.GenerateSchedule(tmpl, "1000.00", "USD", "2025-01-31", planengine.PlanEvents{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := decimal.Zero
	var last planengine.ScheduleItem
	for _, item := range result.ScheduleItems {
		sum = sum.Add(item.Amount)
		last = item
	}
	if !sum.Equal(dec("1000.00")) {
		t.Errorf("installments sum to %s, want exactly 1000.00", sum)
	}
	if last.Code != "monthly-12" {
		t.Errorf("last item is %s, want monthly-12 (drift lands on the last occurrence)", last.Code)
	}
}

func TestGenerate_PartialTemplate_NotPatched(t *testing.T) {
	// GIVEN: a template that deliberately allocates only half the principal
	// WHEN:  generating
	// THEN:  no error and no silent top-up of the last item

	tmpl := planengine.Template{
		Milestones: []planengine.Milestone{
			singleMilestone("half", 1, planengine.AmountPercentOfPrincipal, "0.5", planStart(0, 0)),
		},
	}

	engine := planengine.New()
	result, err := engine.GenerateSchedule(tmpl, "100000", "USD", "2025-01-01", planengine.PlanEvents{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TotalPrincipal.Equal(dec("50000")) {
		t.Errorf("total principal = %s, want 50000 (no reconciliation patch)", result.TotalPrincipal)
	}
}

// =============================================================================
// ORDERING AND IMMUTABILITY
// =============================================================================

func TestGenerate_ItemsSortedByDateRoleCode(t *testing.T) {
	// GIVEN: a fee due the same day as a principal installment
	// WHEN:  generating
	// THEN:  principal sorts before the fee on that date

	tmpl := scenarioTemplate()
	tmpl.FeeRules = []planengine.FeeRule{{
		Code:                   "A-fee",
		Trigger:                planengine.TriggerOnPlanCreation,
		Scope:                  planengine.ScopePlan,
		CalculationType:        planengine.FeeFixed,
		RateOrAmount:           dec("100"),
		PostToSeparateLineItem: true,
		ApplyMode:              planengine.ApplyAllOccurrences,
	}}

	engine := planengine.New()
	result, err := engine.GenerateSchedule(tmpl, "100000", "USD", "2025-01-01", planengine.PlanEvents{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ScheduleItems[0].Code != "M1" {
		t.Errorf("first item = %s, want principal M1 despite fee code sorting earlier", result.ScheduleItems[0].Code)
	}
	if result.ScheduleItems[1].Code != "A-fee" {
		t.Errorf("second item = %s, want A-fee", result.ScheduleItems[1].Code)
	}
}

func TestGenerate_DoesNotMutateTemplate(t *testing.T) {
	// GIVEN: a template with milestones listed out of sequence order
	// WHEN:  generating
	// THEN:  the caller's slice order is untouched

	tmpl := planengine.Template{
		Milestones: []planengine.Milestone{
			singleMilestone("M2", 2, planengine.AmountPercentOfRemaining, "1.0", planStart(30, 0)),
			singleMilestone("M1", 1, planengine.AmountFixed, "20000", planStart(0, 0)),
		},
	}

	engine := planengine.New()
	if _, err := engine.GenerateSchedule(tmpl, "100000", "USD", "2025-01-01", planengine.PlanEvents{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tmpl.Milestones[0].Code != "M2" {
		t.Error("engine must not reorder the caller's milestone slice")
	}
}

// =============================================================================
// INPUT PARSING
// =============================================================================

func TestGenerateSchedule_BadInputs(t *testing.T) {
	engine := planengine.New()
	tmpl := scenarioTemplate()

	cases := []struct {
		name      string
		principal string
		currency  string
		start     string
	}{
		{"bad principal", "not-a-number", "USD", "2025-01-01"},
		{"bad currency", "100000", "NOPE", "2025-01-01"},
		{"bad date", "100000", "USD", "January 1st"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.GenerateSchedule(tmpl, tc.principal, tc.currency, tc.start, planengine.PlanEvents{})
			if !errors.Is(err, planengine.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
