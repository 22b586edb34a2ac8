/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements store.Store using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

IMMUTABILITY ENFORCEMENT:
  - templates: insert-only; saving an existing code inserts the next
    version, never an UPDATE
  - plans / schedule_items: written once at plan creation, read-only after

KEY TABLES:
  templates:      Versioned template definitions (JSON config verbatim)
  plans:          Generated plan instances with their totals
  schedule_items: The persisted line items, ordered by position

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/plans.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/store.go: Interface definitions
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/plan-engine/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Templates (insert-only, versioned)
	CREATE TABLE IF NOT EXISTS templates (
		code TEXT NOT NULL,
		version INTEGER NOT NULL,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (code, version)
	);

	-- Plans (written once at creation)
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		template_code TEXT NOT NULL,
		template_version INTEGER NOT NULL,
		deal_ref TEXT,
		principal TEXT NOT NULL,
		currency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		events_json TEXT NOT NULL,
		total_principal TEXT NOT NULL,
		total_fees TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plans_template
		ON plans(template_code, template_version);
	CREATE INDEX IF NOT EXISTS idx_plans_created_at
		ON plans(created_at DESC);

	-- Schedule items (written once with their plan)
	CREATE TABLE IF NOT EXISTS schedule_items (
		plan_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		code TEXT NOT NULL,
		role TEXT NOT NULL,
		due_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		source_milestone_code TEXT,
		source_fee_rule_code TEXT,
		occurrence_index INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		PRIMARY KEY (plan_id, position),
		FOREIGN KEY (plan_id) REFERENCES plans(id)
	);

	CREATE INDEX IF NOT EXISTS idx_items_due_date
		ON schedule_items(due_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

// SaveTemplate inserts the next version of the template.
func (s *Store) SaveTemplate(ctx context.Context, rec store.TemplateRecord) (store.TemplateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM templates WHERE code = ?`, rec.Code,
	).Scan(&latest)
	if err != nil {
		return store.TemplateRecord{}, fmt.Errorf("failed to query template version: %w", err)
	}

	rec.Version = int(latest.Int64) + 1
	rec.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (code, version, name, config_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Code, rec.Version, rec.Name, rec.ConfigJSON, rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return store.TemplateRecord{}, fmt.Errorf("failed to insert template: %w", err)
	}

	return rec, nil
}

// GetTemplate returns the latest version of a template.
func (s *Store) GetTemplate(ctx context.Context, code string) (store.TemplateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT code, version, name, config_json, created_at
		 FROM templates WHERE code = ?
		 ORDER BY version DESC LIMIT 1`, code)
	return scanTemplate(row)
}

// GetTemplateVersion returns one specific version of a template.
func (s *Store) GetTemplateVersion(ctx context.Context, code string, version int) (store.TemplateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT code, version, name, config_json, created_at
		 FROM templates WHERE code = ? AND version = ?`, code, version)
	return scanTemplate(row)
}

// ListTemplates returns the latest version of every template.
func (s *Store) ListTemplates(ctx context.Context) ([]store.TemplateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.code, t.version, t.name, t.config_json, t.created_at
		 FROM templates t
		 INNER JOIN (
		     SELECT code, MAX(version) AS version FROM templates GROUP BY code
		 ) latest ON t.code = latest.code AND t.version = latest.version
		 ORDER BY t.code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var records []store.TemplateRecord
	for rows.Next() {
		rec, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (store.TemplateRecord, error) {
	var rec store.TemplateRecord
	var createdAt string
	err := row.Scan(&rec.Code, &rec.Version, &rec.Name, &rec.ConfigJSON, &createdAt)
	if err == sql.ErrNoRows {
		return store.TemplateRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.TemplateRecord{}, fmt.Errorf("failed to scan template: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return rec, nil
}

// =============================================================================
// PLAN STORE
// =============================================================================

// SavePlan stores the plan and its items in one transaction.
func (s *Store) SavePlan(ctx context.Context, plan store.PlanRecord, items []store.ItemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plans (id, template_code, template_version, deal_ref,
		     principal, currency, start_date, events_json,
		     total_principal, total_fees, total_amount, end_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.TemplateCode, plan.TemplateVersion, plan.DealRef,
		plan.Principal, plan.Currency, plan.StartDate, plan.EventsJSON,
		plan.TotalPrincipal, plan.TotalFees, plan.TotalAmount, plan.EndDate,
		plan.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	for i, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO schedule_items (plan_id, position, code, role, due_date,
			     amount, currency, source_milestone_code, source_fee_rule_code,
			     occurrence_index, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, i, item.Code, item.Role, item.DueDate,
			item.Amount, item.Currency, item.SourceMilestoneCode, item.SourceFeeRuleCode,
			item.OccurrenceIndex, item.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert schedule item %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetPlan returns one plan by ID.
func (s *Store) GetPlan(ctx context.Context, id string) (store.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, template_code, template_version, deal_ref,
		     principal, currency, start_date, events_json,
		     total_principal, total_fees, total_amount, end_date, created_at
		 FROM plans WHERE id = ?`, id)
	return scanPlan(row)
}

// GetScheduleItems returns a plan's items in their generated order.
func (s *Store) GetScheduleItems(ctx context.Context, planID string) ([]store.ItemRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT plan_id, position, code, role, due_date, amount, currency,
		     source_milestone_code, source_fee_rule_code, occurrence_index, status
		 FROM schedule_items WHERE plan_id = ?
		 ORDER BY position`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule items: %w", err)
	}
	defer rows.Close()

	var items []store.ItemRecord
	for rows.Next() {
		var item store.ItemRecord
		var milestone, feeRule sql.NullString
		err := rows.Scan(&item.PlanID, &item.Position, &item.Code, &item.Role,
			&item.DueDate, &item.Amount, &item.Currency,
			&milestone, &feeRule, &item.OccurrenceIndex, &item.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule item: %w", err)
		}
		item.SourceMilestoneCode = milestone.String
		item.SourceFeeRuleCode = feeRule.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListPlans returns all plans, newest first.
func (s *Store) ListPlans(ctx context.Context) ([]store.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, template_code, template_version, deal_ref,
		     principal, currency, start_date, events_json,
		     total_principal, total_fees, total_amount, end_date, created_at
		 FROM plans ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []store.PlanRecord
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func scanPlan(row rowScanner) (store.PlanRecord, error) {
	var plan store.PlanRecord
	var dealRef sql.NullString
	var createdAt string
	err := row.Scan(&plan.ID, &plan.TemplateCode, &plan.TemplateVersion, &dealRef,
		&plan.Principal, &plan.Currency, &plan.StartDate, &plan.EventsJSON,
		&plan.TotalPrincipal, &plan.TotalFees, &plan.TotalAmount, &plan.EndDate,
		&createdAt)
	if err == sql.ErrNoRows {
		return store.PlanRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.PlanRecord{}, fmt.Errorf("failed to scan plan: %w", err)
	}
	plan.DealRef = dealRef.String
	plan.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return plan, nil
}
