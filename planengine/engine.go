/*
engine.go - The schedule generation pipeline

PURPOSE:
  Single entry point composing the whole computation:

    validate -> resolve anchors -> expand milestones -> allocate amounts
             -> calculate fees -> reconcile rounding -> assemble result

  The engine is a pure, synchronous function of its inputs: no I/O, no
  clock, no retained state between invocations. Concurrent calls are
  trivially safe, and identical inputs produce deeply equal results, which
  callers may use to memoize outside the engine.

CALLERS (external to this package):
  - template preview: render an example schedule while authoring
  - instance creation: generate once, persist the result verbatim
  - display components read the persisted result; they never re-invoke the
    engine, so a created plan's schedule survives later template edits

ERRORS:
  Every failure is a returned error; the engine produces either a complete,
  internally consistent result or no result at all.
*/
package planengine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FORMULA EXTENSION POINT
// =============================================================================

// FormulaContext is what a formula expression may reference.
type FormulaContext struct {
	Principal  decimal.Decimal
	Remaining  decimal.Decimal
	Occurrence Occurrence
}

// FormulaEvaluator evaluates AmountFormula expressions. No expression
// grammar is defined yet; without an installed evaluator the engine fails
// closed with ErrUnsupportedFormula.
type FormulaEvaluator interface {
	Evaluate(expr string, ctx FormulaContext) (decimal.Decimal, error)
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine generates payment schedules. The zero value is ready to use;
// Formula is an optional extension point.
type Engine struct {
	Formula FormulaEvaluator
}

// New creates an engine with no formula evaluator installed.
func New() *Engine {
	return &Engine{}
}

// GenerateInput bundles the parsed inputs of one generation call.
type GenerateInput struct {
	Template  Template
	Principal decimal.Decimal
	Currency  Currency
	StartDate Date
	Events    PlanEvents
}

// GenerateSchedule is the wire-shaped entry point: principal as a decimal
// string, currency as an ISO 4217 code, start date as an ISO 8601 date.
func (e *Engine) GenerateSchedule(
	t Template,
	principal string,
	currencyCode string,
	startDate string,
	events PlanEvents,
) (*ScheduleGenerationResult, error) {

	amount, err := decimal.NewFromString(principal)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid principal %q", ErrInvalidInput, principal)
	}

	cur, err := ParseCurrency(currencyCode)
	if err != nil {
		return nil, err
	}

	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}

	return e.Generate(GenerateInput{
		Template:  t,
		Principal: amount,
		Currency:  cur,
		StartDate: start,
		Events:    events,
	})
}

// Generate runs the full pipeline.
func (e *Engine) Generate(in GenerateInput) (*ScheduleGenerationResult, error) {
	if err := ValidateTemplate(in.Template); err != nil {
		return nil, err
	}
	if in.Principal.IsNegative() {
		return nil, fmt.Errorf("%w: principal must not be negative", ErrInvalidInput)
	}
	if in.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}

	milestones := orderedMilestones(in.Template.Milestones)

	occurrences := make(map[string][]Occurrence, len(milestones))
	for _, m := range milestones {
		occs, err := ExpandMilestone(m, in.StartDate, in.Events)
		if err != nil {
			return nil, err
		}
		occurrences[m.Code] = occs
	}

	alloc, err := e.Allocate(milestones, occurrences, in.Principal, in.Currency)
	if err != nil {
		return nil, err
	}

	fees, err := e.CalculateFees(in.Template.FeeRules, in.StartDate, in.Events, alloc, in.Principal, in.Currency)
	if err != nil {
		return nil, err
	}

	principalItems, err := Reconcile(alloc, in.Principal, in.Currency)
	if err != nil {
		return nil, err
	}

	return Assemble(principalItems, fees, in.StartDate, in.Currency), nil
}

// orderedMilestones returns a copy sorted by sequence number, ties broken
// deterministically by code. The allocator depends on this order.
func orderedMilestones(milestones []Milestone) []Milestone {
	ordered := make([]Milestone, len(milestones))
	copy(ordered, milestones)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SequenceNumber != ordered[j].SequenceNumber {
			return ordered[i].SequenceNumber < ordered[j].SequenceNumber
		}
		return ordered[i].Code < ordered[j].Code
	})
	return ordered
}
