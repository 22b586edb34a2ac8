/*
template.go - Payment plan template definitions

PURPOSE:
  Defines the rules an organization authors once and instantiates per deal:
  milestones describing when and how much principal is due, and fee rules
  describing ancillary charges. A Template is the contract between the
  organization and the buyer about how a sum of money is split over time.

KEY CONCEPTS:
  - Milestone: a principal rule (pattern + anchor + amount mode)
  - Anchor: how a milestone resolves to a concrete calendar date
  - FeeRule: an orthogonal charge with its own trigger/scope/base
  - SequenceNumber: strict ordering for remaining-principal accounting

AMOUNT MODES:
  AmountFixed:              a literal amount
  AmountPercentOfPrincipal: rate x original principal (never the remainder)
  AmountPercentOfRemaining: rate x principal not yet allocated at that point
  AmountFormula:            extension point, fails closed (see engine.go)

TEMPLATE IMMUTABILITY:
  Once a template is referenced by a plan instance it must not change in
  place; mutation creates a new version. That rule is enforced by the
  persistence layer (store package), not by this engine.

EXAMPLE:
  tmpl := Template{Milestones: []Milestone{{
      Code: "booking", SequenceNumber: 1,
      Pattern: SchedulePattern{Type: PatternSingle},
      Anchor:  Anchor{Type: AnchorPlanStart},
      AmountMode:  AmountPercentOfPrincipal,
      AmountValue: decimal.RequireFromString("0.2"),
  }}}
*/
package planengine

import "github.com/shopspring/decimal"

// =============================================================================
// TEMPLATE
// =============================================================================

// Template is an organization-authored payment plan definition.
type Template struct {
	Milestones []Milestone
	FeeRules   []FeeRule
}

// =============================================================================
// MILESTONES - When and how much principal is due
// =============================================================================

// SchedulePatternType distinguishes one-shot milestones from recurring ones.
type SchedulePatternType string

const (
	PatternSingle    SchedulePatternType = "single"
	PatternRecurring SchedulePatternType = "recurring"
)

// RecurrenceInterval is the spacing between recurring occurrences.
// Monthly and yearly use calendar arithmetic, not fixed day counts.
type RecurrenceInterval string

const (
	IntervalDaily   RecurrenceInterval = "daily"
	IntervalWeekly  RecurrenceInterval = "weekly"
	IntervalMonthly RecurrenceInterval = "monthly"
	IntervalYearly  RecurrenceInterval = "yearly"
)

// SchedulePattern describes how many occurrences a milestone expands to.
// Count and Interval are meaningful only for PatternRecurring.
type SchedulePattern struct {
	Type     SchedulePatternType
	Count    int
	Interval RecurrenceInterval
}

// AnchorType selects how a milestone's base date is resolved.
type AnchorType string

const (
	AnchorAbsoluteDate AnchorType = "absolute"
	AnchorPlanStart    AnchorType = "plan_start"
	AnchorEvent        AnchorType = "event"
)

// Anchor resolves a milestone or fee to a concrete calendar date.
// Offsets apply months first, then days, both calendar-aware.
// Both offsets absent means zero offset.
type Anchor struct {
	Type AnchorType

	// Date is the literal date for AnchorAbsoluteDate.
	Date Date

	// Event is the referenced business event for AnchorEvent.
	Event EventKind

	OffsetDays   int
	OffsetMonths int
}

// AmountMode selects how an occurrence's principal amount is computed.
type AmountMode string

const (
	AmountFixed              AmountMode = "fixed"
	AmountPercentOfPrincipal AmountMode = "percent_of_principal"
	AmountPercentOfRemaining AmountMode = "percent_of_remaining"
	AmountFormula            AmountMode = "formula"
)

// Milestone is a template-defined principal rule.
type Milestone struct {
	// Code is unique within the template and becomes the item code
	// (suffixed "-1".."-k" for recurring occurrences).
	Code  string
	Label string

	// SequenceNumber strictly orders milestones for remaining-principal
	// accounting. Duplicates are a validation error.
	SequenceNumber int

	Pattern SchedulePattern
	Anchor  Anchor

	AmountMode AmountMode

	// AmountValue is the literal amount for AmountFixed and the rate
	// (1.0 = 100%) for the percent modes. Unused for AmountFormula.
	AmountValue decimal.Decimal

	// FormulaExpr is the expression for AmountFormula. The engine fails
	// closed unless a FormulaEvaluator is installed.
	FormulaExpr string

	// Optional clamp applied to the computed amount before it is
	// subtracted from the remaining principal.
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// =============================================================================
// FEE RULES - Ancillary charges, orthogonal to principal allocation
// =============================================================================

// FeeTrigger is the business condition that causes fee instances to exist.
type FeeTrigger string

const (
	TriggerOnPlanCreation FeeTrigger = "on_plan_creation"
	TriggerOnEvent        FeeTrigger = "on_event"
	TriggerOnMilestoneDue FeeTrigger = "on_milestone_due"

	// OnLate and OnPayment are evaluated by the external payment-tracking
	// process, never at generation time. They produce zero instances here.
	TriggerOnLate    FeeTrigger = "on_late"
	TriggerOnPayment FeeTrigger = "on_payment"
)

// ChargeScope is how often a triggered fee applies.
type ChargeScope string

const (
	ScopePlan        ChargeScope = "plan"
	ScopeMilestone   ChargeScope = "milestone"
	ScopeInstallment ChargeScope = "installment"
)

// FeeCalculationType selects how a fee instance's amount is computed.
type FeeCalculationType string

const (
	FeeFixed                FeeCalculationType = "fixed"
	FeePercentOfPrincipal   FeeCalculationType = "percent_of_principal"
	FeePercentOfInstallment FeeCalculationType = "percent_of_installment"
	FeePercentOfOutstanding FeeCalculationType = "percent_of_outstanding"
)

// CalculationBase optionally overrides the base a percent fee is computed
// against. Empty means the base implied by the calculation type.
type CalculationBase string

const (
	BaseDefault     CalculationBase = ""
	BasePrincipal   CalculationBase = "principal"
	BaseInstallment CalculationBase = "installment"
	BaseOutstanding CalculationBase = "outstanding"
)

// FeeApplyMode filters which occurrences of a milestone a fee applies to.
type FeeApplyMode string

const (
	ApplyAllOccurrences     FeeApplyMode = "all"
	ApplySpecificOccurrence FeeApplyMode = "specific"
)

// FeeRule is a template-defined ancillary charge.
type FeeRule struct {
	Code string
	Name string

	// MilestoneCode references a milestone for TriggerOnMilestoneDue.
	MilestoneCode string

	Trigger FeeTrigger

	// TriggerEvent is the referenced event for TriggerOnEvent. A missing
	// event date skips the fee silently; it never fails the generation.
	TriggerEvent EventKind

	Scope ChargeScope

	CalculationType FeeCalculationType
	CalculationBase CalculationBase

	// RateOrAmount is the literal amount for FeeFixed and the rate
	// (1.0 = 100%) for percent types.
	RateOrAmount decimal.Decimal

	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal

	// PostToSeparateLineItem=false folds the fee amount into the principal
	// item it is attached to instead of emitting its own row. Only
	// occurrence-bound instances can fold; others always post separately.
	PostToSeparateLineItem bool

	Refundable bool

	ApplyMode FeeApplyMode

	// OccurrenceNumber is the 1-indexed occurrence for
	// ApplySpecificOccurrence. Out-of-range numbers yield zero instances.
	OccurrenceNumber int
}

// requiresOccurrence reports whether the fee's percentage base needs a
// concrete installment context to be computable.
func (f FeeRule) requiresOccurrence() bool {
	switch f.CalculationBase {
	case BaseInstallment, BaseOutstanding:
		return true
	case BasePrincipal:
		return false
	}
	switch f.CalculationType {
	case FeePercentOfInstallment, FeePercentOfOutstanding:
		return true
	}
	return false
}
