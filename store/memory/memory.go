/*
Package memory provides an in-memory implementation of the storage interfaces.

PURPOSE:
  Implements store.Store with maps for tests and demo scenarios. Same
  semantics as the sqlite package (versioned templates, write-once plans)
  without touching disk.

USAGE:
  st := memory.New()
  defer st.Close()
*/
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/plan-engine/store"
)

// Store implements store.Store with in-memory maps.
type Store struct {
	mu        sync.RWMutex
	templates map[string][]store.TemplateRecord // code -> versions, ascending
	plans     map[string]store.PlanRecord
	items     map[string][]store.ItemRecord // plan ID -> ordered items
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		templates: make(map[string][]store.TemplateRecord),
		plans:     make(map[string]store.PlanRecord),
		items:     make(map[string][]store.ItemRecord),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func (s *Store) SaveTemplate(ctx context.Context, rec store.TemplateRecord) (store.TemplateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.templates[rec.Code]
	rec.Version = len(versions) + 1
	rec.CreatedAt = time.Now().UTC()
	s.templates[rec.Code] = append(versions, rec)
	return rec, nil
}

func (s *Store) GetTemplate(ctx context.Context, code string) (store.TemplateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.templates[code]
	if len(versions) == 0 {
		return store.TemplateRecord{}, store.ErrNotFound
	}
	return versions[len(versions)-1], nil
}

func (s *Store) GetTemplateVersion(ctx context.Context, code string, version int) (store.TemplateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.templates[code]
	if version < 1 || version > len(versions) {
		return store.TemplateRecord{}, store.ErrNotFound
	}
	return versions[version-1], nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]store.TemplateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []store.TemplateRecord
	for _, versions := range s.templates {
		records = append(records, versions[len(versions)-1])
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Code < records[j].Code })
	return records, nil
}

// =============================================================================
// PLAN STORE
// =============================================================================

func (s *Store) SavePlan(ctx context.Context, plan store.PlanRecord, items []store.ItemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[plan.ID]; exists {
		return fmt.Errorf("plan %s already exists", plan.ID)
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	stored := make([]store.ItemRecord, len(items))
	copy(stored, items)
	for i := range stored {
		stored[i].PlanID = plan.ID
		stored[i].Position = i
	}

	s.plans[plan.ID] = plan
	s.items[plan.ID] = stored
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (store.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[id]
	if !ok {
		return store.PlanRecord{}, store.ErrNotFound
	}
	return plan, nil
}

func (s *Store) GetScheduleItems(ctx context.Context, planID string) ([]store.ItemRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.items[planID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]store.ItemRecord, len(items))
	copy(out, items)
	return out, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]store.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var plans []store.PlanRecord
	for _, plan := range s.plans {
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].CreatedAt.After(plans[j].CreatedAt)
		}
		return plans[i].ID < plans[j].ID
	})
	return plans, nil
}
