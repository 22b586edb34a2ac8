package factory

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/plan-engine/planengine"
)

const sampleTemplateJSON = `{
  "code": "standard-20-80",
  "name": "20% down, 80% on handover",
  "milestones": [
    {
      "code": "down",
      "sequence_number": 1,
      "amount_mode": "percent_of_principal",
      "amount_value": "0.2"
    },
    {
      "code": "handover",
      "sequence_number": 2,
      "anchor": {"type": "event", "event": "handover", "offset_days": 14},
      "amount_mode": "percent_of_remaining",
      "amount_value": "1.0"
    }
  ],
  "fee_rules": [
    {
      "code": "admin",
      "trigger": "on_plan_creation",
      "calculation_type": "percent_of_principal",
      "rate_or_amount": "0.02",
      "max_amount": "5000"
    }
  ]
}`

func TestParseTemplate_Sample(t *testing.T) {
	f := NewTemplateFactory()
	tmpl, err := f.ParseTemplate(sampleTemplateJSON)
	require.NoError(t, err)

	require.Len(t, tmpl.Milestones, 2)
	require.Len(t, tmpl.FeeRules, 1)

	down := tmpl.Milestones[0]
	assert.Equal(t, "down", down.Code)
	// Defaults kick in when pattern and anchor are omitted.
	assert.Equal(t, planengine.PatternSingle, down.Pattern.Type)
	assert.Equal(t, planengine.AnchorPlanStart, down.Anchor.Type)
	assert.True(t, down.AmountValue.Equal(mustDec(t, "0.2")))

	handover := tmpl.Milestones[1]
	assert.Equal(t, planengine.AnchorEvent, handover.Anchor.Type)
	assert.Equal(t, planengine.EventHandover, handover.Anchor.Event)
	assert.Equal(t, 14, handover.Anchor.OffsetDays)

	admin := tmpl.FeeRules[0]
	assert.Equal(t, planengine.TriggerOnPlanCreation, admin.Trigger)
	assert.Equal(t, planengine.ScopePlan, admin.Scope, "scope defaults to plan")
	assert.Equal(t, planengine.ApplyAllOccurrences, admin.ApplyMode, "apply mode defaults to all")
	assert.True(t, admin.PostToSeparateLineItem, "fees post separately unless told otherwise")
	require.NotNil(t, admin.MaxAmount)
	assert.True(t, admin.MaxAmount.Equal(mustDec(t, "5000")))

	// The parsed template must pass engine validation as-is.
	assert.NoError(t, planengine.ValidateTemplate(tmpl))
}

func TestParseTemplate_RecurringAndAbsolute(t *testing.T) {
	f := NewTemplateFactory()
	tmpl, err := f.ParseTemplate(`{
	  "code": "monthly",
	  "milestones": [{
	    "code": "inst",
	    "sequence_number": 1,
	    "pattern": {"type": "recurring", "count": 12, "interval": "monthly"},
	    "anchor": {"type": "absolute", "date": "2026-03-31"},
	    "amount_mode": "fixed",
	    "amount_value": "2500.00"
	  }]
	}`)
	require.NoError(t, err)

	m := tmpl.Milestones[0]
	assert.Equal(t, planengine.PatternRecurring, m.Pattern.Type)
	assert.Equal(t, 12, m.Pattern.Count)
	assert.Equal(t, planengine.IntervalMonthly, m.Pattern.Interval)
	assert.Equal(t, planengine.AnchorAbsoluteDate, m.Anchor.Type)
	assert.True(t, m.Anchor.Date.Equal(planengine.NewDate(2026, time.March, 31)))
}

func TestParseTemplate_BadInputs(t *testing.T) {
	f := NewTemplateFactory()

	cases := []struct {
		name string
		json string
	}{
		{"malformed json", `{"code": `},
		{"float amount", `{"milestones": [{"code":"m","sequence_number":1,"amount_mode":"fixed","amount_value":"not-a-number"}]}`},
		{"missing amount", `{"milestones": [{"code":"m","sequence_number":1,"amount_mode":"fixed"}]}`},
		{"bad anchor date", `{"milestones": [{"code":"m","sequence_number":1,"anchor":{"type":"absolute","date":"31/03/2026"},"amount_mode":"fixed","amount_value":"1"}]}`},
		{"bad fee rate", `{"fee_rules": [{"code":"f","trigger":"on_plan_creation","calculation_type":"fixed","rate_or_amount":"1,000"}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParseTemplate(tc.json)
			require.Error(t, err)
			assert.True(t, errors.Is(err, planengine.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestParseTemplate_FormulaNeedsNoAmount(t *testing.T) {
	f := NewTemplateFactory()
	tmpl, err := f.ParseTemplate(`{
	  "milestones": [{
	    "code": "m",
	    "sequence_number": 1,
	    "amount_mode": "formula",
	    "formula": "remaining / 2"
	  }]
	}`)
	require.NoError(t, err)
	assert.Equal(t, "remaining / 2", tmpl.Milestones[0].FormulaExpr)
}

func TestTemplateJSON_RoundTrip(t *testing.T) {
	f := NewTemplateFactory()
	tmpl, err := f.ParseTemplate(sampleTemplateJSON)
	require.NoError(t, err)

	tj := f.ToJSON("standard-20-80", "20% down, 80% on handover", tmpl)
	again, err := f.FromJSON(tj)
	require.NoError(t, err)

	require.Len(t, again.Milestones, len(tmpl.Milestones))
	require.Len(t, again.FeeRules, len(tmpl.FeeRules))
	for i := range tmpl.Milestones {
		assert.Equal(t, tmpl.Milestones[i].Code, again.Milestones[i].Code)
		assert.Equal(t, tmpl.Milestones[i].Anchor, again.Milestones[i].Anchor)
		assert.True(t, tmpl.Milestones[i].AmountValue.Equal(again.Milestones[i].AmountValue))
	}
	assert.Equal(t, tmpl.FeeRules[0].PostToSeparateLineItem, again.FeeRules[0].PostToSeparateLineItem)
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}
