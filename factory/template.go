/*
Package factory provides JSON to Go template conversion.

PURPOSE:
  Converts JSON template definitions into planengine.Template objects. This
  enables template configuration without code changes - back-office staff
  can define payment plan templates in JSON, and the factory creates the
  proper Go structs.

WHY JSON?
  - Non-developers can author templates
  - Easy integration with admin UI
  - Version control for template definitions
  - Database storage of template configs

JSON SCHEMA:
  {
    "code": "standard-20-80",
    "name": "20% down, 80% on handover",
    "milestones": [
      {
        "code": "down",
        "sequence_number": 1,
        "pattern": {"type": "single"},
        "anchor": {"type": "plan_start"},
        "amount_mode": "percent_of_principal",
        "amount_value": "0.2"
      },
      {
        "code": "handover",
        "sequence_number": 2,
        "anchor": {"type": "event", "event": "handover"},
        "amount_mode": "percent_of_remaining",
        "amount_value": "1.0"
      }
    ],
    "fee_rules": [
      {
        "code": "admin",
        "trigger": "on_plan_creation",
        "scope": "plan",
        "calculation_type": "percent_of_principal",
        "rate_or_amount": "0.02"
      }
    ]
  }

KEY FEATURES:
  - Decimal values travel as JSON strings, never floats
  - Sets sensible defaults (single pattern, plan-start anchor, apply all)
  - Round-trips: ToJSON(FromJSON(x)) preserves meaning
  - Malformed input errors unwrap to planengine.ErrInvalidInput

USAGE:
  factory := NewTemplateFactory()

  tmpl, err := factory.ParseTemplate(jsonString)
  if err != nil { ... }

  result, err := engine.Generate(planengine.GenerateInput{Template: tmpl, ...})

SEE ALSO:
  - planengine/template.go: Template type definition
  - api/scenarios.go: preset template JSON used by the demo endpoints
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/plan-engine/planengine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TemplateJSON is the JSON representation of a payment plan template.
type TemplateJSON struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Milestones []MilestoneJSON `json:"milestones"`
	FeeRules   []FeeRuleJSON   `json:"fee_rules,omitempty"`
}

// MilestoneJSON represents one principal milestone.
type MilestoneJSON struct {
	Code           string       `json:"code"`
	Label          string       `json:"label,omitempty"`
	SequenceNumber int          `json:"sequence_number"`
	Pattern        *PatternJSON `json:"pattern,omitempty"` // default: single
	Anchor         *AnchorJSON  `json:"anchor,omitempty"`  // default: plan_start
	AmountMode     string       `json:"amount_mode"`
	AmountValue    string       `json:"amount_value,omitempty"`
	Formula        string       `json:"formula,omitempty"`
	MinAmount      string       `json:"min_amount,omitempty"`
	MaxAmount      string       `json:"max_amount,omitempty"`
}

// PatternJSON represents the occurrence pattern.
type PatternJSON struct {
	Type     string `json:"type"` // single, recurring
	Count    int    `json:"count,omitempty"`
	Interval string `json:"interval,omitempty"` // daily, weekly, monthly, yearly
}

// AnchorJSON represents the date anchor.
type AnchorJSON struct {
	Type         string `json:"type"` // absolute, plan_start, event
	Date         string `json:"date,omitempty"`
	Event        string `json:"event,omitempty"`
	OffsetDays   int    `json:"offset_days,omitempty"`
	OffsetMonths int    `json:"offset_months,omitempty"`
}

// FeeRuleJSON represents one fee rule.
type FeeRuleJSON struct {
	Code            string `json:"code"`
	Name            string `json:"name,omitempty"`
	Trigger         string `json:"trigger"`
	TriggerEvent    string `json:"trigger_event,omitempty"`
	MilestoneCode   string `json:"milestone_code,omitempty"`
	Scope           string `json:"scope,omitempty"` // default: plan
	CalculationType string `json:"calculation_type"`
	CalculationBase string `json:"calculation_base,omitempty"`
	RateOrAmount    string `json:"rate_or_amount"`
	MinAmount       string `json:"min_amount,omitempty"`
	MaxAmount       string `json:"max_amount,omitempty"`

	// Default true: fees post as their own line items unless folded in.
	PostToSeparateLineItem *bool `json:"post_to_separate_line_item,omitempty"`

	Refundable       bool   `json:"refundable,omitempty"`
	ApplyMode        string `json:"apply_mode,omitempty"` // default: all
	OccurrenceNumber int    `json:"occurrence_number,omitempty"`
}

// =============================================================================
// TEMPLATE FACTORY
// =============================================================================

// TemplateFactory converts JSON templates to Go structs.
type TemplateFactory struct{}

// NewTemplateFactory creates a new template factory.
func NewTemplateFactory() *TemplateFactory {
	return &TemplateFactory{}
}

// ParseTemplate parses a JSON string into a planengine.Template.
func (f *TemplateFactory) ParseTemplate(jsonStr string) (planengine.Template, error) {
	var tj TemplateJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return planengine.Template{}, fmt.Errorf("failed to parse template JSON: %w: %v", planengine.ErrInvalidInput, err)
	}
	return f.FromJSON(tj)
}

// FromJSON converts TemplateJSON to a planengine.Template.
func (f *TemplateFactory) FromJSON(tj TemplateJSON) (planengine.Template, error) {
	tmpl := planengine.Template{}

	for _, mj := range tj.Milestones {
		m, err := parseMilestone(mj)
		if err != nil {
			return planengine.Template{}, err
		}
		tmpl.Milestones = append(tmpl.Milestones, m)
	}

	for _, fj := range tj.FeeRules {
		rule, err := parseFeeRule(fj)
		if err != nil {
			return planengine.Template{}, err
		}
		tmpl.FeeRules = append(tmpl.FeeRules, rule)
	}

	return tmpl, nil
}

// ToJSON converts a planengine.Template back to its JSON representation.
func (f *TemplateFactory) ToJSON(code, name string, tmpl planengine.Template) TemplateJSON {
	tj := TemplateJSON{Code: code, Name: name}

	for _, m := range tmpl.Milestones {
		mj := MilestoneJSON{
			Code:           m.Code,
			Label:          m.Label,
			SequenceNumber: m.SequenceNumber,
			AmountMode:     string(m.AmountMode),
			Formula:        m.FormulaExpr,
		}
		if m.AmountMode != planengine.AmountFormula {
			mj.AmountValue = m.AmountValue.String()
		}
		if m.Pattern.Type == planengine.PatternRecurring {
			mj.Pattern = &PatternJSON{
				Type:     string(m.Pattern.Type),
				Count:    m.Pattern.Count,
				Interval: string(m.Pattern.Interval),
			}
		}
		mj.Anchor = anchorToJSON(m.Anchor)
		if m.MinAmount != nil {
			mj.MinAmount = m.MinAmount.String()
		}
		if m.MaxAmount != nil {
			mj.MaxAmount = m.MaxAmount.String()
		}
		tj.Milestones = append(tj.Milestones, mj)
	}

	for _, rule := range tmpl.FeeRules {
		fj := FeeRuleJSON{
			Code:             rule.Code,
			Name:             rule.Name,
			Trigger:          string(rule.Trigger),
			TriggerEvent:     string(rule.TriggerEvent),
			MilestoneCode:    rule.MilestoneCode,
			Scope:            string(rule.Scope),
			CalculationType:  string(rule.CalculationType),
			CalculationBase:  string(rule.CalculationBase),
			RateOrAmount:     rule.RateOrAmount.String(),
			Refundable:       rule.Refundable,
			ApplyMode:        string(rule.ApplyMode),
			OccurrenceNumber: rule.OccurrenceNumber,
		}
		post := rule.PostToSeparateLineItem
		fj.PostToSeparateLineItem = &post
		if rule.MinAmount != nil {
			fj.MinAmount = rule.MinAmount.String()
		}
		if rule.MaxAmount != nil {
			fj.MaxAmount = rule.MaxAmount.String()
		}
		tj.FeeRules = append(tj.FeeRules, fj)
	}

	return tj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseMilestone(mj MilestoneJSON) (planengine.Milestone, error) {
	m := planengine.Milestone{
		Code:           mj.Code,
		Label:          mj.Label,
		SequenceNumber: mj.SequenceNumber,
		AmountMode:     planengine.AmountMode(mj.AmountMode),
		FormulaExpr:    mj.Formula,
	}

	if mj.Pattern == nil {
		m.Pattern = planengine.SchedulePattern{Type: planengine.PatternSingle}
	} else {
		m.Pattern = planengine.SchedulePattern{
			Type:     planengine.SchedulePatternType(mj.Pattern.Type),
			Count:    mj.Pattern.Count,
			Interval: planengine.RecurrenceInterval(mj.Pattern.Interval),
		}
		if mj.Pattern.Type == "" {
			m.Pattern.Type = planengine.PatternSingle
		}
	}

	anchor, err := parseAnchor(mj.Code, mj.Anchor)
	if err != nil {
		return planengine.Milestone{}, err
	}
	m.Anchor = anchor

	if m.AmountMode != planengine.AmountFormula {
		value, err := parseDecimalField(mj.Code, "amount_value", mj.AmountValue)
		if err != nil {
			return planengine.Milestone{}, err
		}
		m.AmountValue = value
	}

	if m.MinAmount, err = parseOptionalDecimal(mj.Code, "min_amount", mj.MinAmount); err != nil {
		return planengine.Milestone{}, err
	}
	if m.MaxAmount, err = parseOptionalDecimal(mj.Code, "max_amount", mj.MaxAmount); err != nil {
		return planengine.Milestone{}, err
	}

	return m, nil
}

func parseAnchor(milestoneCode string, aj *AnchorJSON) (planengine.Anchor, error) {
	if aj == nil {
		return planengine.Anchor{Type: planengine.AnchorPlanStart}, nil
	}

	anchor := planengine.Anchor{
		Type:         planengine.AnchorType(aj.Type),
		Event:        planengine.EventKind(aj.Event),
		OffsetDays:   aj.OffsetDays,
		OffsetMonths: aj.OffsetMonths,
	}
	if aj.Type == "" {
		anchor.Type = planengine.AnchorPlanStart
	}

	if anchor.Type == planengine.AnchorAbsoluteDate {
		date, err := planengine.ParseDate(aj.Date)
		if err != nil {
			return planengine.Anchor{}, fmt.Errorf("milestone %q anchor date: %w", milestoneCode, err)
		}
		anchor.Date = date
	}

	return anchor, nil
}

func anchorToJSON(a planengine.Anchor) *AnchorJSON {
	aj := &AnchorJSON{
		Type:         string(a.Type),
		Event:        string(a.Event),
		OffsetDays:   a.OffsetDays,
		OffsetMonths: a.OffsetMonths,
	}
	if a.Type == planengine.AnchorAbsoluteDate {
		aj.Date = a.Date.String()
	}
	return aj
}

func parseFeeRule(fj FeeRuleJSON) (planengine.FeeRule, error) {
	rule := planengine.FeeRule{
		Code:             fj.Code,
		Name:             fj.Name,
		Trigger:          planengine.FeeTrigger(fj.Trigger),
		TriggerEvent:     planengine.EventKind(fj.TriggerEvent),
		MilestoneCode:    fj.MilestoneCode,
		Scope:            planengine.ChargeScope(fj.Scope),
		CalculationType:  planengine.FeeCalculationType(fj.CalculationType),
		CalculationBase:  planengine.CalculationBase(fj.CalculationBase),
		Refundable:       fj.Refundable,
		ApplyMode:        planengine.FeeApplyMode(fj.ApplyMode),
		OccurrenceNumber: fj.OccurrenceNumber,
	}

	if fj.Scope == "" {
		rule.Scope = planengine.ScopePlan
	}
	if fj.ApplyMode == "" {
		rule.ApplyMode = planengine.ApplyAllOccurrences
	}
	if fj.PostToSeparateLineItem != nil {
		rule.PostToSeparateLineItem = *fj.PostToSeparateLineItem
	} else {
		rule.PostToSeparateLineItem = true
	}

	amount, err := parseDecimalField(fj.Code, "rate_or_amount", fj.RateOrAmount)
	if err != nil {
		return planengine.FeeRule{}, err
	}
	rule.RateOrAmount = amount

	if rule.MinAmount, err = parseOptionalDecimal(fj.Code, "min_amount", fj.MinAmount); err != nil {
		return planengine.FeeRule{}, err
	}
	if rule.MaxAmount, err = parseOptionalDecimal(fj.Code, "max_amount", fj.MaxAmount); err != nil {
		return planengine.FeeRule{}, err
	}

	return rule, nil
}

func parseDecimalField(owner, field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%q: missing %s: %w", owner, field, planengine.ErrInvalidInput)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: bad %s %q: %w", owner, field, raw, planengine.ErrInvalidInput)
	}
	return value, nil
}

func parseOptionalDecimal(owner, field, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := parseDecimalField(owner, field, raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
