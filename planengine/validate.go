package planengine

// =============================================================================
// TEMPLATE VALIDATOR - Structural and semantic checks
// =============================================================================

// ValidateTemplate checks a template before any computation. It never
// consults the deal's events or principal; those are checked lazily during
// resolution and allocation so a template can be validated once and reused
// across many instances.
//
// Validation stops at the first fault and returns a *ValidationError.
func ValidateTemplate(t Template) error {
	if len(t.Milestones) == 0 {
		return &ValidationError{Code: "no_milestones", Message: "template has no milestones"}
	}

	codes := make(map[string]bool, len(t.Milestones))
	sequences := make(map[int]string, len(t.Milestones))

	for _, m := range t.Milestones {
		if m.Code == "" {
			return &ValidationError{Code: "missing_milestone_code", Message: "milestone code is required"}
		}
		if codes[m.Code] {
			return &ValidationError{
				Code: "duplicate_milestone_code", Message: "milestone code used more than once",
				MilestoneCode: m.Code,
			}
		}
		codes[m.Code] = true

		if other, ok := sequences[m.SequenceNumber]; ok {
			return &ValidationError{
				Code:          "duplicate_sequence_number",
				Message:       "sequence number already used by milestone " + other,
				MilestoneCode: m.Code,
			}
		}
		sequences[m.SequenceNumber] = m.Code

		if err := validateMilestone(m); err != nil {
			return err
		}
	}

	feeCodes := make(map[string]bool, len(t.FeeRules))
	for _, f := range t.FeeRules {
		if f.Code == "" {
			return &ValidationError{Code: "missing_fee_code", Message: "fee rule code is required"}
		}
		if feeCodes[f.Code] {
			return &ValidationError{
				Code: "duplicate_fee_code", Message: "fee rule code used more than once",
				FeeRuleCode: f.Code,
			}
		}
		feeCodes[f.Code] = true

		if err := validateFeeRule(f, codes); err != nil {
			return err
		}
	}

	return nil
}

func validateMilestone(m Milestone) error {
	switch m.Pattern.Type {
	case PatternSingle:
	case PatternRecurring:
		if m.Pattern.Count < 1 {
			return &ValidationError{
				Code: "invalid_recurrence_count", Message: "recurring count must be at least 1",
				MilestoneCode: m.Code,
			}
		}
		switch m.Pattern.Interval {
		case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		default:
			return &ValidationError{
				Code: "invalid_recurrence_interval", Message: "recurring milestone needs a valid interval",
				MilestoneCode: m.Code,
			}
		}
	default:
		return &ValidationError{
			Code: "invalid_pattern", Message: "unknown schedule pattern",
			MilestoneCode: m.Code,
		}
	}

	switch m.Anchor.Type {
	case AnchorAbsoluteDate:
		if m.Anchor.Date.IsZero() {
			return &ValidationError{
				Code: "missing_anchor_date", Message: "absolute anchor needs a date",
				MilestoneCode: m.Code,
			}
		}
	case AnchorPlanStart:
	case AnchorEvent:
		if !isKnownEvent(m.Anchor.Event) {
			return &ValidationError{
				Code: "unknown_anchor_event", Message: "anchor references an unknown event kind",
				MilestoneCode: m.Code,
			}
		}
	default:
		return &ValidationError{
			Code: "invalid_anchor", Message: "unknown anchor type",
			MilestoneCode: m.Code,
		}
	}

	switch m.AmountMode {
	case AmountFixed, AmountPercentOfPrincipal, AmountPercentOfRemaining:
		if m.AmountValue.IsNegative() {
			return &ValidationError{
				Code: "negative_amount", Message: "amount value must not be negative",
				MilestoneCode: m.Code,
			}
		}
	case AmountFormula:
		// Expression syntax is not validated here; evaluation fails closed
		// unless an evaluator is installed.
	default:
		return &ValidationError{
			Code: "invalid_amount_mode", Message: "unknown amount mode",
			MilestoneCode: m.Code,
		}
	}

	if m.MinAmount != nil && m.MaxAmount != nil && m.MinAmount.GreaterThan(*m.MaxAmount) {
		return &ValidationError{
			Code: "invalid_amount_clamp", Message: "min amount exceeds max amount",
			MilestoneCode: m.Code,
		}
	}

	return nil
}

func validateFeeRule(f FeeRule, milestoneCodes map[string]bool) error {
	switch f.Trigger {
	case TriggerOnPlanCreation, TriggerOnLate, TriggerOnPayment:
	case TriggerOnEvent:
		if !isKnownEvent(f.TriggerEvent) {
			return &ValidationError{
				Code: "unknown_trigger_event", Message: "fee trigger references an unknown event kind",
				FeeRuleCode: f.Code,
			}
		}
	case TriggerOnMilestoneDue:
		if f.MilestoneCode == "" {
			return &ValidationError{
				Code: "missing_fee_milestone", Message: "on_milestone_due requires a milestone code",
				FeeRuleCode: f.Code,
			}
		}
	default:
		return &ValidationError{
			Code: "invalid_fee_trigger", Message: "unknown fee trigger",
			FeeRuleCode: f.Code,
		}
	}

	if f.MilestoneCode != "" && !milestoneCodes[f.MilestoneCode] {
		return &ValidationError{
			Code: "unknown_fee_milestone", Message: "fee rule references a milestone that does not exist",
			FeeRuleCode: f.Code,
		}
	}

	// Unset scope behaves as installment (charge every matched occurrence).
	switch f.Scope {
	case "", ScopePlan, ScopeMilestone, ScopeInstallment:
	default:
		return &ValidationError{
			Code: "invalid_fee_scope", Message: "unknown charge scope",
			FeeRuleCode: f.Code,
		}
	}

	switch f.CalculationType {
	case FeeFixed, FeePercentOfPrincipal, FeePercentOfInstallment, FeePercentOfOutstanding:
	default:
		return &ValidationError{
			Code: "invalid_fee_calculation", Message: "unknown fee calculation type",
			FeeRuleCode: f.Code,
		}
	}

	switch f.CalculationBase {
	case BaseDefault, BasePrincipal, BaseInstallment, BaseOutstanding:
	default:
		return &ValidationError{
			Code: "invalid_fee_base", Message: "unknown calculation base",
			FeeRuleCode: f.Code,
		}
	}

	// Installment/outstanding bases need a concrete occurrence to compute
	// against, which only the milestone-due trigger provides.
	if f.requiresOccurrence() && f.Trigger != TriggerOnMilestoneDue {
		return &ValidationError{
			Code:        "fee_base_needs_occurrence",
			Message:     "installment/outstanding base requires the on_milestone_due trigger",
			FeeRuleCode: f.Code,
		}
	}

	switch f.ApplyMode {
	case ApplyAllOccurrences:
	case ApplySpecificOccurrence:
		if f.OccurrenceNumber < 1 {
			return &ValidationError{
				Code: "invalid_occurrence_number", Message: "specific occurrence number must be at least 1",
				FeeRuleCode: f.Code,
			}
		}
	default:
		return &ValidationError{
			Code: "invalid_apply_mode", Message: "unknown fee apply mode",
			FeeRuleCode: f.Code,
		}
	}

	if f.RateOrAmount.IsNegative() {
		return &ValidationError{
			Code: "negative_fee_amount", Message: "fee rate or amount must not be negative",
			FeeRuleCode: f.Code,
		}
	}

	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return &ValidationError{
			Code: "invalid_fee_clamp", Message: "min amount exceeds max amount",
			FeeRuleCode: f.Code,
		}
	}

	return nil
}

func isKnownEvent(kind EventKind) bool {
	for _, k := range KnownEventKinds {
		if k == kind {
			return true
		}
	}
	return false
}
