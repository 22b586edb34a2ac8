/*
Package store defines the persistence interfaces for templates and plans.

PURPOSE:
  Declares what the API layer needs from storage without binding it to a
  database. Two implementations exist: sqlite (production) and memory
  (tests, demos).

TEMPLATE VERSIONING:
  Templates are immutable once referenced by a plan. SaveTemplate never
  rewrites an existing row; it inserts a new version and bumps the version
  number. Plans record the exact (code, version) pair they were generated
  from, so a later template edit can never change an existing plan's
  schedule.

PLAN IMMUTABILITY:
  A plan's generated schedule is persisted verbatim at creation time and
  read back as-is. Display paths never regenerate.

SEE ALSO:
  - store/sqlite: SQLite-backed implementation
  - store/memory: in-memory implementation for tests
*/
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a template or plan does not exist.
var ErrNotFound = errors.New("store: not found")

// =============================================================================
// RECORDS
// =============================================================================

// TemplateRecord is one persisted version of a template. ConfigJSON holds
// the factory JSON schema verbatim; the engine never reads it directly.
type TemplateRecord struct {
	Code       string
	Version    int
	Name       string
	ConfigJSON string
	CreatedAt  time.Time
}

// PlanRecord is one generated plan instance. All money fields are decimal
// strings; dates are ISO 8601.
type PlanRecord struct {
	ID              string
	TemplateCode    string
	TemplateVersion int

	// DealRef is the caller's reference to the unit/deal this plan covers.
	DealRef string

	Principal  string
	Currency   string
	StartDate  string
	EventsJSON string

	TotalPrincipal string
	TotalFees      string
	TotalAmount    string
	EndDate        string

	CreatedAt time.Time
}

// ItemRecord is one persisted schedule line item.
type ItemRecord struct {
	PlanID   string
	Position int // preserves the generated ordering

	Code     string
	Role     string
	DueDate  string
	Amount   string
	Currency string

	SourceMilestoneCode string
	SourceFeeRuleCode   string
	OccurrenceIndex     int

	Status string
}

// =============================================================================
// INTERFACES
// =============================================================================

// TemplateStore persists versioned template definitions.
type TemplateStore interface {
	// SaveTemplate inserts a new version of the template and returns the
	// stored record with Version and CreatedAt populated.
	SaveTemplate(ctx context.Context, rec TemplateRecord) (TemplateRecord, error)

	// GetTemplate returns the latest version.
	GetTemplate(ctx context.Context, code string) (TemplateRecord, error)

	// GetTemplateVersion returns one specific version.
	GetTemplateVersion(ctx context.Context, code string, version int) (TemplateRecord, error)

	// ListTemplates returns the latest version of every template.
	ListTemplates(ctx context.Context) ([]TemplateRecord, error)
}

// PlanStore persists generated plan instances and their schedule items.
type PlanStore interface {
	// SavePlan stores the plan and its items atomically.
	SavePlan(ctx context.Context, plan PlanRecord, items []ItemRecord) error

	// GetPlan returns one plan by ID.
	GetPlan(ctx context.Context, id string) (PlanRecord, error)

	// GetScheduleItems returns a plan's items in their generated order.
	GetScheduleItems(ctx context.Context, planID string) ([]ItemRecord, error)

	// ListPlans returns all plans, newest first.
	ListPlans(ctx context.Context) ([]PlanRecord, error)
}

// Store is the full persistence surface the API layer depends on.
type Store interface {
	TemplateStore
	PlanStore
	Close() error
}
