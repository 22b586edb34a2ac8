package planengine_test

import (
	"errors"
	"testing"

	"github.com/warp/plan-engine/planengine"
)

func validationCode(t *testing.T, err error) string {
	t.Helper()
	var verr *planengine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return verr.Code
}

func TestValidate_ValidTemplate(t *testing.T) {
	if err := planengine.ValidateTemplate(scenarioTemplate()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_EmptyTemplate(t *testing.T) {
	err := planengine.ValidateTemplate(planengine.Template{})
	if code := validationCode(t, err); code != "no_milestones" {
		t.Errorf("code = %s, want no_milestones", code)
	}
}

func TestValidate_DuplicateMilestoneCode(t *testing.T) {
	tmpl := planengine.Template{
		Milestones: []planengine.Milestone{
			singleMilestone("M1", 1, planengine.AmountFixed, "10", planStart(0, 0)),
			singleMilestone("M1", 2, planengine.AmountFixed, "10", planStart(0, 0)),
		},
	}
	err := planengine.ValidateTemplate(tmpl)
	if code := validationCode(t, err); code != "duplicate_milestone_code" {
		t.Errorf("code = %s, want duplicate_milestone_code", code)
	}
	if !errors.Is(err, planengine.ErrInvalidTemplate) {
		t.Error("validation errors must unwrap to ErrInvalidTemplate")
	}
}

func TestValidate_DuplicateSequenceNumber(t *testing.T) {
	tmpl := planengine.Template{
		Milestones: []planengine.Milestone{
			singleMilestone("M1", 1, planengine.AmountFixed, "10", planStart(0, 0)),
			singleMilestone("M2", 1, planengine.AmountFixed, "10", planStart(0, 0)),
		},
	}
	if code := validationCode(t, planengine.ValidateTemplate(tmpl)); code != "duplicate_sequence_number" {
		t.Errorf("code = %s, want duplicate_sequence_number", code)
	}
}

func TestValidate_RecurringNeedsCountAndInterval(t *testing.T) {
	m := singleMilestone("M1", 1, planengine.AmountFixed, "10", planStart(0, 0))
	m.Pattern = planengine.SchedulePattern{Type: planengine.PatternRecurring, Count: 0, Interval: planengine.IntervalMonthly}
	if code := validationCode(t, planengine.ValidateTemplate(planengine.Template{Milestones: []planengine.Milestone{m}})); code != "invalid_recurrence_count" {
		t.Errorf("code = %s, want invalid_recurrence_count", code)
	}

	m.Pattern = planengine.SchedulePattern{Type: planengine.PatternRecurring, Count: 3}
	if code := validationCode(t, planengine.ValidateTemplate(planengine.Template{Milestones: []planengine.Milestone{m}})); code != "invalid_recurrence_interval" {
		t.Errorf("code = %s, want invalid_recurrence_interval", code)
	}
}

func TestValidate_UnknownAnchorEvent(t *testing.T) {
	m := singleMilestone("M1", 1, planengine.AmountFixed, "10", planengine.Anchor{
		Type:  planengine.AnchorEvent,
		Event: planengine.EventKind("groundbreaking"),
	})
	if code := validationCode(t, planengine.ValidateTemplate(planengine.Template{Milestones: []planengine.Milestone{m}})); code != "unknown_anchor_event" {
		t.Errorf("code = %s, want unknown_anchor_event", code)
	}
}

func TestValidate_FeeReferencesUnknownMilestone(t *testing.T) {
	tmpl := scenarioTemplate()
	tmpl.FeeRules = []planengine.FeeRule{{
		Code:            "F1",
		Trigger:         planengine.TriggerOnMilestoneDue,
		MilestoneCode:   "no-such-milestone",
		Scope:           planengine.ScopeInstallment,
		CalculationType: planengine.FeeFixed,
		RateOrAmount:    dec("10"),
		ApplyMode:       planengine.ApplyAllOccurrences,
	}}
	if code := validationCode(t, planengine.ValidateTemplate(tmpl)); code != "unknown_fee_milestone" {
		t.Errorf("code = %s, want unknown_fee_milestone", code)
	}
}

func TestValidate_SpecificOccurrenceNumber(t *testing.T) {
	tmpl := scenarioTemplate()
	tmpl.FeeRules = []planengine.FeeRule{{
		Code:             "F1",
		Trigger:          planengine.TriggerOnMilestoneDue,
		MilestoneCode:    "M1",
		Scope:            planengine.ScopeInstallment,
		CalculationType:  planengine.FeeFixed,
		RateOrAmount:     dec("10"),
		ApplyMode:        planengine.ApplySpecificOccurrence,
		OccurrenceNumber: 0,
	}}
	if code := validationCode(t, planengine.ValidateTemplate(tmpl)); code != "invalid_occurrence_number" {
		t.Errorf("code = %s, want invalid_occurrence_number", code)
	}
}

func TestValidate_InstallmentBaseNeedsMilestoneTrigger(t *testing.T) {
	// GIVEN: a plan-creation fee that wants a percent of the installment
	// THEN:  rejected; there is no installment context at plan creation

	tmpl := scenarioTemplate()
	tmpl.FeeRules = []planengine.FeeRule{{
		Code:            "F1",
		Trigger:         planengine.TriggerOnPlanCreation,
		Scope:           planengine.ScopePlan,
		CalculationType: planengine.FeePercentOfInstallment,
		RateOrAmount:    dec("0.01"),
		ApplyMode:       planengine.ApplyAllOccurrences,
	}}
	if code := validationCode(t, planengine.ValidateTemplate(tmpl)); code != "fee_base_needs_occurrence" {
		t.Errorf("code = %s, want fee_base_needs_occurrence", code)
	}
}

func TestValidate_NeverConsultsEventsOrPrincipal(t *testing.T) {
	// GIVEN: a template anchored to the handover event
	// WHEN:  validating with no events in sight
	// THEN:  valid; event presence is checked lazily at generation time so
	//        one validation can serve many instances

	tmpl := planengine.Template{
		Milestones: []planengine.Milestone{
			singleMilestone("M1", 1, planengine.AmountPercentOfRemaining, "1.0", planengine.Anchor{
				Type:  planengine.AnchorEvent,
				Event: planengine.EventHandover,
			}),
		},
	}
	if err := planengine.ValidateTemplate(tmpl); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
