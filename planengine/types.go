/*
Package planengine is the payment plan schedule generation engine.

PURPOSE:
  Given an organization-authored payment plan template (milestones + fee
  rules) and a specific deal's principal, currency, start date, and known
  business-event dates, the engine deterministically computes the concrete,
  ordered list of payment and fee line items for that deal.

KEY CONCEPTS IN THIS FILE (types.go):
  - Currency: ISO 4217 code with its minor-unit scale
  - PlanEvents: the deal's known calendar facts (booking, signing, handover)
  - ScheduleItem: one generated line item (principal installment or fee)
  - ScheduleGenerationResult: the complete, immutable output of one call

DESIGN PRINCIPLES:
  1. Purity: the engine is a pure function of its inputs. No I/O, no clock,
     no shared state. Same inputs always produce deeply equal results.
  2. Precision: all money uses decimal.Decimal, never binary floating point.
  3. Completeness: a call returns either a fully consistent result or an
     error. Partial schedules are never returned.
  4. Fixed status: every generated item is Pending. Later lifecycle
     transitions belong to an external payment-tracking process.

USAGE:
  engine := planengine.New()
  result, err := engine.GenerateSchedule(tmpl, "100000", "USD", "2025-01-01",
      planengine.PlanEvents{})

SEE ALSO:
  - template.go: Template, Milestone, FeeRule definitions
  - engine.go: the Generate pipeline
*/
package planengine

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// =============================================================================
// CURRENCY - ISO 4217 code plus minor-unit scale
// =============================================================================

// Currency carries the ISO code and the number of decimal places of its
// minor unit (2 for USD, 0 for JPY, 3 for BHD). The scale drives occurrence
// rounding and the reconciliation tolerance.
type Currency struct {
	Code  string
	Scale int32
}

// ParseCurrency validates an ISO 4217 code and looks up its minor-unit scale.
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return Currency{Code: unit.String(), Scale: int32(scale)}, nil
}

// MinorUnit returns the smallest representable amount (0.01 for USD).
func (c Currency) MinorUnit() decimal.Decimal {
	return decimal.New(1, -c.Scale)
}

// Round rounds an amount to the currency's minor-unit scale, half away
// from zero.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Scale)
}

// =============================================================================
// PLAN EVENTS - The deal's known calendar facts
// =============================================================================

// EventKind identifies a business event a milestone or fee can anchor to.
type EventKind string

const (
	EventBooking         EventKind = "booking"
	EventContractSigning EventKind = "contract_signing"
	EventHandover        EventKind = "handover"
)

// KnownEventKinds lists every event an anchor may reference.
var KnownEventKinds = []EventKind{EventBooking, EventContractSigning, EventHandover}

// PlanEvents holds the deal's event dates. Each is optional because the
// event may not have occurred yet at generation time.
type PlanEvents struct {
	BookingDate         *Date
	ContractSigningDate *Date
	HandoverDate        *Date
}

// DateFor returns the date for an event kind and whether it is known.
func (p PlanEvents) DateFor(kind EventKind) (Date, bool) {
	switch kind {
	case EventBooking:
		if p.BookingDate != nil {
			return *p.BookingDate, true
		}
	case EventContractSigning:
		if p.ContractSigningDate != nil {
			return *p.ContractSigningDate, true
		}
	case EventHandover:
		if p.HandoverDate != nil {
			return *p.HandoverDate, true
		}
	}
	return Date{}, false
}

// =============================================================================
// SCHEDULE ITEMS - Generated line items
// =============================================================================

// ItemRole distinguishes principal installments from ancillary fees.
type ItemRole string

const (
	RolePrincipal ItemRole = "principal"
	RoleFee       ItemRole = "fee"
)

// ItemStatus is the lifecycle state of a schedule item. The engine only
// ever emits StatusPending; the remaining states are owned by the external
// payment-tracking process that mutates persisted items later.
type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusPartial   ItemStatus = "partial"
	StatusPaid      ItemStatus = "paid"
	StatusOverdue   ItemStatus = "overdue"
	StatusWaived    ItemStatus = "waived"
	StatusCancelled ItemStatus = "cancelled"
)

// ScheduleItem is one generated line item. Items are produced fresh on
// every generation call and never mutated by this engine.
type ScheduleItem struct {
	Code     string
	Role     ItemRole
	DueDate  Date
	Amount   decimal.Decimal
	Currency string

	// Provenance. SourceMilestoneCode is set for principal items and for
	// fees bound to a milestone occurrence; SourceFeeRuleCode for fees.
	// OccurrenceIndex is the 0-based index within the source milestone and
	// is meaningful only when SourceMilestoneCode is set.
	SourceMilestoneCode string
	SourceFeeRuleCode   string
	OccurrenceIndex     int

	Status ItemStatus
}

// ScheduleGenerationResult is the complete output of one generation call.
// It is a value object; persistence is the caller's concern.
type ScheduleGenerationResult struct {
	ScheduleItems []ScheduleItem

	TotalPrincipal decimal.Decimal
	TotalFees      decimal.Decimal
	TotalAmount    decimal.Decimal

	Currency  string
	StartDate Date
	EndDate   Date
}
