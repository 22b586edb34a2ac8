/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND DATES:
  All amounts are decimal strings, all dates are ISO 8601 (YYYY-MM-DD).
  Floats never cross the wire.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/template.go: TemplateJSON type
*/
package api

import (
	"time"

	"github.com/warp/plan-engine/factory"
	"github.com/warp/plan-engine/planengine"
	"github.com/warp/plan-engine/store"
)

// =============================================================================
// TEMPLATE TYPES
// =============================================================================

// TemplateDTO represents a stored template version in API responses.
type TemplateDTO struct {
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Version   int                  `json:"version"`
	Config    factory.TemplateJSON `json:"config"`
	CreatedAt string               `json:"created_at,omitempty"`
}

// CreateTemplateRequest is the request to save a template version.
type CreateTemplateRequest struct {
	Config factory.TemplateJSON `json:"config"`
}

// PreviewRequest asks for a schedule without persisting anything.
// Template authors use it to see what a draft config produces.
type PreviewRequest struct {
	Config    factory.TemplateJSON `json:"config"`
	Principal string               `json:"principal"`
	Currency  string               `json:"currency"`
	StartDate string               `json:"start_date"`
	Events    EventsDTO            `json:"events"`
}

// EventsDTO carries the deal's known event dates. Empty string means the
// event has not happened yet.
type EventsDTO struct {
	BookingDate         string `json:"booking_date,omitempty"`
	ContractSigningDate string `json:"contract_signing_date,omitempty"`
	HandoverDate        string `json:"handover_date,omitempty"`
}

// =============================================================================
// PLAN TYPES
// =============================================================================

// CreatePlanRequest is the request to instantiate a plan from a stored
// template. The schedule is generated once and persisted verbatim.
type CreatePlanRequest struct {
	TemplateCode string    `json:"template_code"`
	DealRef      string    `json:"deal_ref,omitempty"`
	Principal    string    `json:"principal"`
	Currency     string    `json:"currency"`
	StartDate    string    `json:"start_date"`
	Events       EventsDTO `json:"events"`
}

// PlanDTO represents a plan instance in API responses.
type PlanDTO struct {
	ID              string    `json:"id"`
	TemplateCode    string    `json:"template_code"`
	TemplateVersion int       `json:"template_version"`
	DealRef         string    `json:"deal_ref,omitempty"`
	Principal       string    `json:"principal"`
	Currency        string    `json:"currency"`
	StartDate       string    `json:"start_date"`
	Events          EventsDTO `json:"events"`
	TotalPrincipal  string    `json:"total_principal"`
	TotalFees       string    `json:"total_fees"`
	TotalAmount     string    `json:"total_amount"`
	EndDate         string    `json:"end_date"`
	CreatedAt       string    `json:"created_at,omitempty"`
}

// ScheduleItemDTO represents one schedule line item.
type ScheduleItemDTO struct {
	Code                string `json:"code"`
	Role                string `json:"role"`
	DueDate             string `json:"due_date"`
	Amount              string `json:"amount"`
	Currency            string `json:"currency"`
	SourceMilestoneCode string `json:"source_milestone_code,omitempty"`
	SourceFeeRuleCode   string `json:"source_fee_rule_code,omitempty"`
	OccurrenceIndex     int    `json:"occurrence_index"`
	Status              string `json:"status"`
}

// ScheduleDTO is a generated or persisted schedule with its totals.
type ScheduleDTO struct {
	Items          []ScheduleItemDTO `json:"items"`
	TotalPrincipal string            `json:"total_principal"`
	TotalFees      string            `json:"total_fees"`
	TotalAmount    string            `json:"total_amount"`
	Currency       string            `json:"currency"`
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
}

// ScheduleSummaryDTO is a compact rollup of a persisted schedule.
type ScheduleSummaryDTO struct {
	PlanID         string `json:"plan_id"`
	ItemCount      int    `json:"item_count"`
	PrincipalItems int    `json:"principal_items"`
	FeeItems       int    `json:"fee_items"`
	TotalPrincipal string `json:"total_principal"`
	TotalFees      string `json:"total_fees"`
	TotalAmount    string `json:"total_amount"`
	Currency       string `json:"currency"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	NextDueDate    string `json:"next_due_date,omitempty"`
	NextDueAmount  string `json:"next_due_amount,omitempty"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes one demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a demo scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func templateDTO(rec store.TemplateRecord, config factory.TemplateJSON) TemplateDTO {
	return TemplateDTO{
		Code:      rec.Code,
		Name:      rec.Name,
		Version:   rec.Version,
		Config:    config,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

func scheduleDTO(result *planengine.ScheduleGenerationResult) ScheduleDTO {
	items := make([]ScheduleItemDTO, len(result.ScheduleItems))
	for i, item := range result.ScheduleItems {
		items[i] = ScheduleItemDTO{
			Code:                item.Code,
			Role:                string(item.Role),
			DueDate:             item.DueDate.String(),
			Amount:              item.Amount.String(),
			Currency:            item.Currency,
			SourceMilestoneCode: item.SourceMilestoneCode,
			SourceFeeRuleCode:   item.SourceFeeRuleCode,
			OccurrenceIndex:     item.OccurrenceIndex,
			Status:              string(item.Status),
		}
	}
	return ScheduleDTO{
		Items:          items,
		TotalPrincipal: result.TotalPrincipal.String(),
		TotalFees:      result.TotalFees.String(),
		TotalAmount:    result.TotalAmount.String(),
		Currency:       result.Currency,
		StartDate:      result.StartDate.String(),
		EndDate:        result.EndDate.String(),
	}
}

func itemDTO(rec store.ItemRecord) ScheduleItemDTO {
	return ScheduleItemDTO{
		Code:                rec.Code,
		Role:                rec.Role,
		DueDate:             rec.DueDate,
		Amount:              rec.Amount,
		Currency:            rec.Currency,
		SourceMilestoneCode: rec.SourceMilestoneCode,
		SourceFeeRuleCode:   rec.SourceFeeRuleCode,
		OccurrenceIndex:     rec.OccurrenceIndex,
		Status:              rec.Status,
	}
}

// parseEvents converts wire event dates to engine PlanEvents.
func parseEvents(dto EventsDTO) (planengine.PlanEvents, error) {
	var events planengine.PlanEvents

	set := func(raw string, target **planengine.Date) error {
		if raw == "" {
			return nil
		}
		d, err := planengine.ParseDate(raw)
		if err != nil {
			return err
		}
		*target = &d
		return nil
	}

	if err := set(dto.BookingDate, &events.BookingDate); err != nil {
		return events, err
	}
	if err := set(dto.ContractSigningDate, &events.ContractSigningDate); err != nil {
		return events, err
	}
	if err := set(dto.HandoverDate, &events.HandoverDate); err != nil {
		return events, err
	}
	return events, nil
}
