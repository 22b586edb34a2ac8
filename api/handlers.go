/*
handlers.go - HTTP API handlers for the payment plan service

PURPOSE:
  Exposes the schedule generation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Templates:
    GET    /api/templates              List templates (latest versions)
    POST   /api/templates              Save a template version
    GET    /api/templates/{code}       Get the latest version
    POST   /api/templates/preview      Generate a schedule from a draft
                                       config without persisting anything

  Plans:
    GET    /api/plans                  List plan instances
    POST   /api/plans                  Create a plan (generate + persist)
    GET    /api/plans/{id}             Get plan header
    GET    /api/plans/{id}/schedule    Get the persisted schedule
    GET    /api/plans/{id}/summary     Compact schedule rollup

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (factory, engine, store)
  4. Serialize response
  5. Handle errors

GENERATE-ONCE GUARANTEE:
  POST /api/plans runs the engine exactly once and persists the result.
  Every read path returns the persisted rows; a later edit of the template
  (which only adds a new version) can never change an existing plan.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, missing events, over-allocation
  - 404: Template or plan not found
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/plan-engine/factory"
	"github.com/warp/plan-engine/planengine"
	"github.com/warp/plan-engine/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   store.Store
	Factory *factory.TemplateFactory
	Engine  *planengine.Engine
	Logger  *slog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(st store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:   st,
		Factory: factory.NewTemplateFactory(),
		Engine:  planengine.New(),
		Logger:  logger,
	}
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

// ListTemplates returns the latest version of every template.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates", err)
		return
	}

	dtos := make([]TemplateDTO, 0, len(records))
	for _, rec := range records {
		var config factory.TemplateJSON
		if err := json.Unmarshal([]byte(rec.ConfigJSON), &config); err != nil {
			h.Logger.Warn("skipping unreadable template config", "code", rec.Code, "error", err)
			continue
		}
		dtos = append(dtos, templateDTO(rec, config))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetTemplate returns the latest version of one template.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	rec, err := h.Store.GetTemplate(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get template", err)
		return
	}

	var config factory.TemplateJSON
	if err := json.Unmarshal([]byte(rec.ConfigJSON), &config); err != nil {
		writeError(w, http.StatusInternalServerError, "Stored template config is unreadable", err)
		return
	}

	writeJSON(w, http.StatusOK, templateDTO(rec, config))
}

// CreateTemplate validates and saves a new template version.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Config.Code == "" {
		writeError(w, http.StatusBadRequest, "Template code is required", nil)
		return
	}

	// Parse and validate before anything touches the database.
	tmpl, err := h.Factory.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template config", err)
		return
	}
	if err := planengine.ValidateTemplate(tmpl); err != nil {
		writeError(w, http.StatusBadRequest, "Template failed validation", err)
		return
	}

	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize config", err)
		return
	}

	rec, err := h.Store.SaveTemplate(r.Context(), store.TemplateRecord{
		Code:       req.Config.Code,
		Name:       req.Config.Name,
		ConfigJSON: string(configJSON),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save template", err)
		return
	}

	h.Logger.Info("template saved", "code", rec.Code, "version", rec.Version)
	writeJSON(w, http.StatusCreated, templateDTO(rec, req.Config))
}

// PreviewTemplate generates a schedule from a draft config without
// persisting anything. Template authors iterate against this endpoint.
func (h *Handler) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tmpl, err := h.Factory.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template config", err)
		return
	}

	events, err := parseEvents(req.Events)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event date", err)
		return
	}

	result, err := h.Engine.GenerateSchedule(tmpl, req.Principal, req.Currency, req.StartDate, events)
	if err != nil {
		writeGenerationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scheduleDTO(result))
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// CreatePlan instantiates a plan from a stored template: generate the
// schedule once, persist it verbatim, return the created plan.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tmplRec, err := h.Store.GetTemplate(r.Context(), req.TemplateCode)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get template", err)
		return
	}

	tmpl, err := h.Factory.ParseTemplate(tmplRec.ConfigJSON)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stored template config is unreadable", err)
		return
	}

	events, err := parseEvents(req.Events)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event date", err)
		return
	}

	result, err := h.Engine.GenerateSchedule(tmpl, req.Principal, req.Currency, req.StartDate, events)
	if err != nil {
		writeGenerationError(w, err)
		return
	}

	eventsJSON, err := json.Marshal(req.Events)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize events", err)
		return
	}

	plan := store.PlanRecord{
		ID:              uuid.NewString(),
		TemplateCode:    tmplRec.Code,
		TemplateVersion: tmplRec.Version,
		DealRef:         req.DealRef,
		Principal:       req.Principal,
		Currency:        result.Currency,
		StartDate:       result.StartDate.String(),
		EventsJSON:      string(eventsJSON),
		TotalPrincipal:  result.TotalPrincipal.String(),
		TotalFees:       result.TotalFees.String(),
		TotalAmount:     result.TotalAmount.String(),
		EndDate:         result.EndDate.String(),
	}

	items := make([]store.ItemRecord, len(result.ScheduleItems))
	for i, item := range result.ScheduleItems {
		items[i] = store.ItemRecord{
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

	if err := h.Store.SavePlan(r.Context(), plan, items); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save plan", err)
		return
	}

	h.Logger.Info("plan created",
		"plan_id", plan.ID,
		"template", plan.TemplateCode,
		"template_version", plan.TemplateVersion,
		"items", len(items),
		"total", plan.TotalAmount)

	created, err := h.Store.GetPlan(r.Context(), plan.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read back plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, planToDTO(created))
}

// ListPlans returns all plan instances, newest first.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Store.ListPlans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, len(plans))
	for i, plan := range plans {
		dtos[i] = planToDTO(plan)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlan returns one plan header.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.fetchPlan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, planToDTO(plan))
}

// GetSchedule returns the persisted schedule exactly as generated. It never
// re-invokes the engine.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.fetchPlan(w, r)
	if !ok {
		return
	}

	records, err := h.Store.GetScheduleItems(r.Context(), plan.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get schedule items", err)
		return
	}

	items := make([]ScheduleItemDTO, len(records))
	for i, rec := range records {
		items[i] = itemDTO(rec)
	}

	writeJSON(w, http.StatusOK, ScheduleDTO{
		Items:          items,
		TotalPrincipal: plan.TotalPrincipal,
		TotalFees:      plan.TotalFees,
		TotalAmount:    plan.TotalAmount,
		Currency:       plan.Currency,
		StartDate:      plan.StartDate,
		EndDate:        plan.EndDate,
	})
}

// GetScheduleSummary returns a compact rollup of a persisted schedule.
func (h *Handler) GetScheduleSummary(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.fetchPlan(w, r)
	if !ok {
		return
	}

	records, err := h.Store.GetScheduleItems(r.Context(), plan.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get schedule items", err)
		return
	}

	summary := ScheduleSummaryDTO{
		PlanID:         plan.ID,
		ItemCount:      len(records),
		TotalPrincipal: plan.TotalPrincipal,
		TotalFees:      plan.TotalFees,
		TotalAmount:    plan.TotalAmount,
		Currency:       plan.Currency,
		StartDate:      plan.StartDate,
		EndDate:        plan.EndDate,
	}
	for _, rec := range records {
		switch planengine.ItemRole(rec.Role) {
		case planengine.RolePrincipal:
			summary.PrincipalItems++
		case planengine.RoleFee:
			summary.FeeItems++
		}
		// Items are stored in date order; the first pending one is next due.
		if summary.NextDueDate == "" && rec.Status == string(planengine.StatusPending) {
			summary.NextDueDate = rec.DueDate
			summary.NextDueAmount = rec.Amount
		}
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) fetchPlan(w http.ResponseWriter, r *http.Request) (store.PlanRecord, bool) {
	id := chi.URLParam(r, "id")

	plan, err := h.Store.GetPlan(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Plan not found", nil)
		return store.PlanRecord{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get plan", err)
		return store.PlanRecord{}, false
	}
	return plan, true
}

func planToDTO(plan store.PlanRecord) PlanDTO {
	var events EventsDTO
	json.Unmarshal([]byte(plan.EventsJSON), &events)

	dto := PlanDTO{
		ID:              plan.ID,
		TemplateCode:    plan.TemplateCode,
		TemplateVersion: plan.TemplateVersion,
		DealRef:         plan.DealRef,
		Principal:       plan.Principal,
		Currency:        plan.Currency,
		StartDate:       plan.StartDate,
		Events:          events,
		TotalPrincipal:  plan.TotalPrincipal,
		TotalFees:       plan.TotalFees,
		TotalAmount:     plan.TotalAmount,
		EndDate:         plan.EndDate,
	}
	if !plan.CreatedAt.IsZero() {
		dto.CreatedAt = plan.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeGenerationError maps engine errors to HTTP statuses: anything the
// caller caused (bad template, missing event, over-allocation) is a 400,
// the rest is a 500.
func writeGenerationError(w http.ResponseWriter, err error) {
	if planengine.IsClientError(err) {
		writeError(w, http.StatusBadRequest, "Schedule generation rejected", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Schedule generation failed", err)
}
