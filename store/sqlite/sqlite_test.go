package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/plan-engine/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTemplateVersioning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v1, err := s.SaveTemplate(ctx, store.TemplateRecord{
		Code: "standard", Name: "Standard", ConfigJSON: `{"v":1}`,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)

	// Saving the same code again bumps the version instead of overwriting.
	v2, err := s.SaveTemplate(ctx, store.TemplateRecord{
		Code: "standard", Name: "Standard v2", ConfigJSON: `{"v":2}`,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	latest, err := s.GetTemplate(ctx, "standard")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, `{"v":2}`, latest.ConfigJSON)

	// The old version survives untouched for plans that reference it.
	old, err := s.GetTemplateVersion(ctx, "standard", 1)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, old.ConfigJSON)
}

func TestTemplateNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetTemplate(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = s.GetTemplateVersion(ctx, "missing", 1)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestListTemplates_LatestOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, code := range []string{"b", "a"} {
		_, err := s.SaveTemplate(ctx, store.TemplateRecord{Code: code, Name: code, ConfigJSON: `{}`})
		require.NoError(t, err)
	}
	_, err := s.SaveTemplate(ctx, store.TemplateRecord{Code: "a", Name: "a2", ConfigJSON: `{}`})
	require.NoError(t, err)

	records, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Code)
	assert.Equal(t, 2, records[0].Version)
	assert.Equal(t, "b", records[1].Code)
}

func TestPlanRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	plan := store.PlanRecord{
		ID:              "plan-1",
		TemplateCode:    "standard",
		TemplateVersion: 1,
		DealRef:         "unit-404",
		Principal:       "100000",
		Currency:        "USD",
		StartDate:       "2025-01-01",
		EventsJSON:      `{"handover_date":"2026-06-01"}`,
		TotalPrincipal:  "100000",
		TotalFees:       "2000",
		TotalAmount:     "102000",
		EndDate:         "2026-06-01",
	}
	items := []store.ItemRecord{
		{Code: "down", Role: "principal", DueDate: "2025-01-01", Amount: "20000", Currency: "USD", SourceMilestoneCode: "down", Status: "pending"},
		{Code: "handover", Role: "principal", DueDate: "2026-06-01", Amount: "80000", Currency: "USD", SourceMilestoneCode: "handover", Status: "pending"},
		{Code: "admin", Role: "fee", DueDate: "2025-01-01", Amount: "2000", Currency: "USD", SourceFeeRuleCode: "admin", Status: "pending"},
	}

	require.NoError(t, s.SavePlan(ctx, plan, items))

	got, err := s.GetPlan(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "unit-404", got.DealRef)
	assert.Equal(t, "102000", got.TotalAmount)
	assert.False(t, got.CreatedAt.IsZero())

	gotItems, err := s.GetScheduleItems(ctx, "plan-1")
	require.NoError(t, err)
	require.Len(t, gotItems, 3)
	// The generated ordering is preserved by position.
	assert.Equal(t, "down", gotItems[0].Code)
	assert.Equal(t, "handover", gotItems[1].Code)
	assert.Equal(t, "admin", gotItems[2].Code)
	assert.Equal(t, 2, gotItems[2].Position)
}

func TestGetPlan_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetPlan(context.Background(), "nope")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestListPlans(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		plan := store.PlanRecord{
			ID: id, TemplateCode: "t", TemplateVersion: 1,
			Principal: "1", Currency: "USD", StartDate: "2025-01-01",
			EventsJSON: `{}`, TotalPrincipal: "1", TotalFees: "0",
			TotalAmount: "1", EndDate: "2025-01-01",
		}
		require.NoError(t, s.SavePlan(ctx, plan, nil))
	}

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}
