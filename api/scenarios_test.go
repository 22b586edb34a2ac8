/*
scenarios_test.go - Unit tests for demo scenarios

Every preset template must parse, validate, and actually generate a
schedule; a broken preset should fail here, not in a demo.
*/
package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/plan-engine/planengine"
	"github.com/warp/plan-engine/store/memory"
)

func TestScenarioTemplates_AllValid(t *testing.T) {
	h := NewHandler(memory.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	for _, scenario := range scenarios {
		configs, ok := scenarioTemplates[scenario.ID]
		require.True(t, ok, "scenario %s has no templates", scenario.ID)

		for _, configJSON := range configs {
			tmpl, err := h.Factory.ParseTemplate(configJSON)
			require.NoError(t, err, "scenario %s", scenario.ID)
			require.NoError(t, planengine.ValidateTemplate(tmpl), "scenario %s", scenario.ID)

			// Each preset must produce a schedule for a typical deal.
			handover := planengine.NewDate(2026, 6, 1)
			signing := planengine.NewDate(2025, 1, 15)
			result, err := h.Engine.GenerateSchedule(tmpl, "500000", "AED", "2025-01-01",
				planengine.PlanEvents{HandoverDate: &handover, ContractSigningDate: &signing})
			require.NoError(t, err, "scenario %s", scenario.ID)
			assert.NotEmpty(t, result.ScheduleItems, "scenario %s", scenario.ID)
			assert.True(t, result.TotalPrincipal.Equal(result.TotalPrincipal.Round(2)))
		}
	}
}

func TestLoadScenario_SavesTemplates(t *testing.T) {
	h := NewHandler(memory.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/scenarios/load", `{"scenario_id": "standard-20-80"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loaded := decode[[]TemplateDTO](t, resp)
	require.Len(t, loaded, 1)
	assert.Equal(t, "standard-20-80", loaded[0].Code)

	// The loaded template is usable for plan creation right away.
	resp = postJSON(t, srv.URL+"/api/plans", `{
		"template_code": "standard-20-80",
		"principal": "250000",
		"currency": "USD",
		"start_date": "2025-03-01",
		"events": {"handover_date": "2026-09-01"}
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	plan := decode[PlanDTO](t, resp)
	assert.Equal(t, "250000", plan.TotalPrincipal)
	// 2% admin fee capped at 5000.
	assert.Equal(t, "5000", plan.TotalFees)

	current, err := http.Get(srv.URL + "/api/scenarios/current")
	require.NoError(t, err)
	got := decode[map[string]string](t, current)
	assert.Equal(t, "standard-20-80", got["scenario_id"])
}

func TestLoadScenario_Unknown(t *testing.T) {
	h := NewHandler(memory.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/scenarios/load", `{"scenario_id": "nope"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListScenarios(t *testing.T) {
	h := NewHandler(memory.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/scenarios")
	require.NoError(t, err)
	listed := decode[[]ScenarioDTO](t, resp)
	assert.Len(t, listed, len(scenarios))
	for i := range listed {
		assert.NotEmpty(t, listed[i].Description, fmt.Sprintf("scenario %s", listed[i].ID))
	}
}
