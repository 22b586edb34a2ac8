/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built template sets that populate the database with
	realistic payment plans for testing and demos. Each scenario loads one
	or more templates that demonstrate specific engine features.

AVAILABLE SCENARIOS:

	standard-20-80:      Classic 20% down payment, balance on handover
	construction-linked: Installments during construction, remainder on handover
	post-handover:       Long monthly tail after handover

HOW SCENARIOS WORK:
 1. Each scenario carries template JSON in the factory schema
 2. LoadScenario saves every template (bumping versions on reload)
 3. Plans are then created against them via POST /api/plans

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "standard-20-80"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its template JSON to scenarioTemplates

SEE ALSO:
  - handlers.go: shares the Handler context
  - factory/template.go: the JSON schema these configs use
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/warp/plan-engine/factory"
	"github.com/warp/plan-engine/store"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-20-80",
		Name:        "Standard 20/80",
		Description: "20% down payment at plan start, remaining 80% due on handover, 2% admin fee at plan creation",
	},
	{
		ID:          "construction-linked",
		Name:        "Construction-Linked",
		Description: "10% on contract signing, 40% in monthly installments during construction, remainder on handover",
	},
	{
		ID:          "post-handover",
		Name:        "Post-Handover Tail",
		Description: "10% down, 30% on handover, then 60 monthly installments of 1% each",
	},
}

// scenarioTemplates holds the template configs each scenario loads,
// expressed in the factory JSON schema.
var scenarioTemplates = map[string][]string{
	"standard-20-80": {`{
		"code": "standard-20-80",
		"name": "Standard 20/80",
		"milestones": [
			{
				"code": "down",
				"label": "Down payment",
				"sequence_number": 1,
				"amount_mode": "percent_of_principal",
				"amount_value": "0.2"
			},
			{
				"code": "handover",
				"label": "Handover payment",
				"sequence_number": 2,
				"anchor": {"type": "event", "event": "handover"},
				"amount_mode": "percent_of_remaining",
				"amount_value": "1.0"
			}
		],
		"fee_rules": [
			{
				"code": "admin",
				"name": "Administration fee",
				"trigger": "on_plan_creation",
				"calculation_type": "percent_of_principal",
				"rate_or_amount": "0.02",
				"max_amount": "5000"
			}
		]
	}`},

	"construction-linked": {`{
		"code": "construction-linked",
		"name": "Construction-Linked",
		"milestones": [
			{
				"code": "signing",
				"label": "On contract signing",
				"sequence_number": 1,
				"anchor": {"type": "event", "event": "contract_signing"},
				"amount_mode": "percent_of_principal",
				"amount_value": "0.1"
			},
			{
				"code": "construction",
				"label": "Construction installments",
				"sequence_number": 2,
				"pattern": {"type": "recurring", "count": 8, "interval": "monthly"},
				"anchor": {"type": "plan_start", "offset_months": 1},
				"amount_mode": "percent_of_principal",
				"amount_value": "0.05"
			},
			{
				"code": "handover",
				"label": "Handover payment",
				"sequence_number": 3,
				"anchor": {"type": "event", "event": "handover"},
				"amount_mode": "percent_of_remaining",
				"amount_value": "1.0"
			}
		],
		"fee_rules": [
			{
				"code": "registration",
				"name": "Registration fee",
				"trigger": "on_event",
				"trigger_event": "handover",
				"calculation_type": "fixed",
				"rate_or_amount": "3000"
			},
			{
				"code": "service",
				"name": "Collection service fee",
				"trigger": "on_milestone_due",
				"milestone_code": "construction",
				"scope": "installment",
				"calculation_type": "percent_of_installment",
				"rate_or_amount": "0.005",
				"post_to_separate_line_item": false
			}
		]
	}`},

	"post-handover": {`{
		"code": "post-handover",
		"name": "Post-Handover Tail",
		"milestones": [
			{
				"code": "down",
				"label": "Down payment",
				"sequence_number": 1,
				"amount_mode": "percent_of_principal",
				"amount_value": "0.1"
			},
			{
				"code": "handover",
				"label": "Handover payment",
				"sequence_number": 2,
				"anchor": {"type": "event", "event": "handover"},
				"amount_mode": "percent_of_principal",
				"amount_value": "0.3"
			},
			{
				"code": "monthly",
				"label": "Post-handover installment",
				"sequence_number": 3,
				"pattern": {"type": "recurring", "count": 60, "interval": "monthly"},
				"anchor": {"type": "event", "event": "handover", "offset_months": 1},
				"amount_mode": "percent_of_principal",
				"amount_value": "0.01"
			}
		],
		"fee_rules": [
			{
				"code": "processing",
				"name": "Processing fee",
				"trigger": "on_plan_creation",
				"calculation_type": "fixed",
				"rate_or_amount": "500"
			},
			{
				"code": "closing",
				"name": "Account closing fee",
				"trigger": "on_milestone_due",
				"milestone_code": "monthly",
				"scope": "installment",
				"calculation_type": "fixed",
				"rate_or_amount": "250",
				"apply_mode": "specific",
				"occurrence_number": 60
			}
		]
	}`},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns all available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario saves the scenario's templates. Reloading a scenario bumps
// template versions rather than overwriting; existing plans are untouched.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	configs, ok := scenarioTemplates[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}

	var loaded []TemplateDTO
	for _, configJSON := range configs {
		// Parse through the factory so a broken preset fails loudly.
		if _, err := h.Factory.ParseTemplate(configJSON); err != nil {
			writeError(w, http.StatusInternalServerError, "Scenario template is invalid", err)
			return
		}

		var config factory.TemplateJSON
		if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
			writeError(w, http.StatusInternalServerError, "Scenario template is invalid", err)
			return
		}

		rec, err := h.Store.SaveTemplate(r.Context(), store.TemplateRecord{
			Code:       config.Code,
			Name:       config.Name,
			ConfigJSON: configJSON,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save scenario template", err)
			return
		}

		loaded = append(loaded, templateDTO(rec, config))
	}

	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID, "templates", len(loaded))
	writeJSON(w, http.StatusOK, loaded)
}
