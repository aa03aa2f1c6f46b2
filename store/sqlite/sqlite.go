/*
Package sqlite provides SQLite-backed persistence for the payout engine.

PURPOSE:
  Stores the reference data the engine's inputs are assembled from
  (members, plans, assignments, statement rows, self-gen and brokered
  aggregates, manual overrides) and the durable payout records the
  engine's outputs are upserted into. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  members:           Roster, keyed to statements by sub_producer_code
  comp_plans:        Plan configurations (JSON, parsed by factory)
  plan_assignments:  Member-to-plan links; end_date NULL = active
  statement_rows:    Raw per-period production rows
  self_gen_metrics:  Pre-computed self-gen aggregates per member/period
  brokered_metrics:  Pre-computed brokered aggregates per member/period
  manual_overrides:  Sandbox figure substitutions per sub-producer/period
  comp_payouts:      Durable payout records with status lifecycle

PAYOUT LIFECYCLE:
  draft -> finalized -> paid, one-way. Every transition is status-guarded
  in SQL (WHERE status = ...), and the (member, month, year) upsert only
  replaces drafts. Two concurrent finalize/recompute operations are
  serialized by the guard: whichever UPDATE matches first wins, the other
  affects zero rows. A stale recompute can never revert a paid record.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL mode for
  better read concurrency and crash recovery.

USAGE:
  store, err := sqlite.New("./data/commission.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - commission/batch.go: The calculation whose inputs/outputs live here
  - factory/plan.go: Parses comp_plans.config_json
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
)

// Store implements all persistence for the payout engine using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sub_producer_code TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_members_sub_producer
		ON members(sub_producer_code);

	CREATE TABLE IF NOT EXISTS comp_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plan_assignments (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_member
		ON plan_assignments(member_id);
	-- Active-assignment lookups (end_date IS NULL) are the hot path.
	CREATE INDEX IF NOT EXISTS idx_assignments_active
		ON plan_assignments(member_id) WHERE end_date IS NULL;

	CREATE TABLE IF NOT EXISTS statement_rows (
		id TEXT PRIMARY KEY,
		sub_producer_code TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		row_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_statement_rows_period
		ON statement_rows(year, month);

	CREATE TABLE IF NOT EXISTS self_gen_metrics (
		member_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		self_gen_items TEXT NOT NULL,
		basis TEXT NOT NULL,
		PRIMARY KEY (member_id, month, year)
	);

	CREATE TABLE IF NOT EXISTS brokered_metrics (
		member_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		written_items TEXT NOT NULL,
		written_premium TEXT NOT NULL,
		written_policies TEXT NOT NULL,
		PRIMARY KEY (member_id, month, year)
	);

	CREATE TABLE IF NOT EXISTS manual_overrides (
		id TEXT PRIMARY KEY,
		sub_producer_code TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		metrics_json TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL,
		UNIQUE (sub_producer_code, month, year)
	);

	CREATE TABLE IF NOT EXISTS comp_payouts (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		total_payout TEXT NOT NULL,
		calculation_json TEXT NOT NULL,
		snapshot_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (member_id, month, year)
	);

	CREATE INDEX IF NOT EXISTS idx_payouts_period
		ON comp_payouts(year, month);
	CREATE INDEX IF NOT EXISTS idx_payouts_status
		ON comp_payouts(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data. Demo/test environments only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"comp_payouts", "manual_overrides", "brokered_metrics",
		"self_gen_metrics", "statement_rows", "plan_assignments",
		"comp_plans", "members",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// MEMBERS
// =============================================================================

// SaveMember inserts or updates a roster entry.
func (s *Store) SaveMember(ctx context.Context, m commission.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO members (id, name, sub_producer_code, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sub_producer_code = excluded.sub_producer_code
	`
	_, err := s.db.ExecContext(ctx, query, m.ID, m.Name, m.SubProducerCode, now())
	return err
}

// GetMember retrieves a member by ID. Returns nil when not found.
func (s *Store) GetMember(ctx context.Context, id commission.MemberID) (*commission.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m commission.Member
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, sub_producer_code FROM members WHERE id = ?", id,
	).Scan(&m.ID, &m.Name, &m.SubProducerCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns the full roster, ordered by name.
func (s *Store) ListMembers(ctx context.Context) ([]commission.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, sub_producer_code FROM members ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []commission.Member
	for rows.Next() {
		var m commission.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.SubProducerCode); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// =============================================================================
// PLANS
// =============================================================================

// PlanRecord is a stored plan configuration. ConfigJSON is parsed by the
// factory package when the plan is loaded for calculation.
type PlanRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	CreatedAt  time.Time
}

// SavePlan inserts or updates a plan configuration.
func (s *Store) SavePlan(ctx context.Context, p PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO comp_plans (id, name, config_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.ConfigJSON, now())
	return err
}

// GetPlan retrieves a plan by ID. Returns nil when not found.
func (s *Store) GetPlan(ctx context.Context, id string) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p PlanRecord
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, config_json, created_at FROM comp_plans WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.ConfigJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// ListPlans returns all plan configurations.
func (s *Store) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, config_json, created_at FROM comp_plans ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []PlanRecord
	for rows.Next() {
		var p PlanRecord
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.ConfigJSON, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// SaveAssignment inserts or updates a plan assignment. A missing ID is
// generated.
func (s *Store) SaveAssignment(ctx context.Context, a commission.PlanAssignment) (commission.PlanAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	var endDate *string
	if a.EndDate != nil {
		t := a.EndDate.Format(time.RFC3339)
		endDate = &t
	}

	query := `
		INSERT INTO plan_assignments (id, member_id, plan_id, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			member_id = excluded.member_id,
			plan_id = excluded.plan_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.MemberID, a.PlanID,
		a.StartDate.Format(time.RFC3339), endDate, now())
	return a, err
}

// EndAssignment closes an assignment as of the given time. Ending an
// already-ended assignment is a no-op.
func (s *Store) EndAssignment(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE plan_assignments SET end_date = ? WHERE id = ? AND end_date IS NULL",
		at.Format(time.RFC3339), id)
	return err
}

// ListAssignments returns every assignment, active and ended.
func (s *Store) ListAssignments(ctx context.Context) ([]commission.PlanAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, plan_id, start_date, end_date
		FROM plan_assignments ORDER BY member_id, plan_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []commission.PlanAssignment
	for rows.Next() {
		var a commission.PlanAssignment
		var startDate string
		var endDate *string
		if err := rows.Scan(&a.ID, &a.MemberID, &a.PlanID, &startDate, &endDate); err != nil {
			return nil, err
		}
		a.StartDate, _ = time.Parse(time.RFC3339, startDate)
		if endDate != nil {
			t, _ := time.Parse(time.RFC3339, *endDate)
			a.EndDate = &t
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// =============================================================================
// STATEMENT ROWS - Raw production input
// =============================================================================

// SaveStatementRow stores one parsed statement row.
func (s *Store) SaveStatementRow(ctx context.Context, row commission.SubProducerMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rowJSON, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal statement row: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO statement_rows (id, sub_producer_code, month, year, row_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), row.SubProducerCode, row.Month, row.Year, string(rowJSON), now())
	return err
}

// ListStatementRows returns all raw rows for a period.
func (s *Store) ListStatementRows(ctx context.Context, month, year int) ([]commission.SubProducerMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT row_json FROM statement_rows
		WHERE month = ? AND year = ?
		ORDER BY sub_producer_code, id`, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []commission.SubProducerMetrics
	for rows.Next() {
		var rowJSON string
		if err := rows.Scan(&rowJSON); err != nil {
			return nil, err
		}
		var m commission.SubProducerMetrics
		if err := json.Unmarshal([]byte(rowJSON), &m); err != nil {
			return nil, fmt.Errorf("corrupt statement row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// SELF-GEN / BROKERED AGGREGATES
// =============================================================================

// SaveSelfGen stores the classifier output for one member/period.
func (s *Store) SaveSelfGen(ctx context.Context, memberID commission.MemberID, month, year int, m commission.SelfGenMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO self_gen_metrics (member_id, month, year, self_gen_items, basis)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(member_id, month, year) DO UPDATE SET
			self_gen_items = excluded.self_gen_items,
			basis = excluded.basis`,
		memberID, month, year, m.SelfGenItems.String(), string(m.Basis))
	return err
}

// ListSelfGen returns the self-gen map for a period, keyed by member.
func (s *Store) ListSelfGen(ctx context.Context, month, year int) (map[commission.MemberID]commission.SelfGenMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, self_gen_items, basis FROM self_gen_metrics
		WHERE month = ? AND year = ?`, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[commission.MemberID]commission.SelfGenMetrics)
	for rows.Next() {
		var memberID, items, basis string
		if err := rows.Scan(&memberID, &items, &basis); err != nil {
			return nil, err
		}
		out[commission.MemberID(memberID)] = commission.SelfGenMetrics{
			SelfGenItems: mustDecimal(items),
			Basis:        commission.MetricBasis(basis),
		}
	}
	return out, rows.Err()
}

// SaveBrokered stores brokered aggregates for one member/period.
func (s *Store) SaveBrokered(ctx context.Context, memberID commission.MemberID, month, year int, m commission.BrokeredMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brokered_metrics (member_id, month, year, written_items, written_premium, written_policies)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, month, year) DO UPDATE SET
			written_items = excluded.written_items,
			written_premium = excluded.written_premium,
			written_policies = excluded.written_policies`,
		memberID, month, year,
		m.WrittenItems.String(), m.WrittenPremium.String(), m.WrittenPolicies.String())
	return err
}

// ListBrokered returns the brokered map for a period, keyed by member.
func (s *Store) ListBrokered(ctx context.Context, month, year int) (map[commission.MemberID]commission.BrokeredMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, written_items, written_premium, written_policies
		FROM brokered_metrics WHERE month = ? AND year = ?`, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[commission.MemberID]commission.BrokeredMetrics)
	for rows.Next() {
		var memberID, items, premium, policies string
		if err := rows.Scan(&memberID, &items, &premium, &policies); err != nil {
			return nil, err
		}
		out[commission.MemberID(memberID)] = commission.BrokeredMetrics{
			WrittenItems:    mustDecimal(items),
			WrittenPremium:  mustDecimal(premium),
			WrittenPolicies: mustDecimal(policies),
		}
	}
	return out, rows.Err()
}

// =============================================================================
// MANUAL OVERRIDES
// =============================================================================

// SaveOverride stores a sandbox override for one sub-producer/period.
func (s *Store) SaveOverride(ctx context.Context, month, year int, o commission.ManualOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metricsJSON, err := json.Marshal(o.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal override metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO manual_overrides (id, sub_producer_code, month, year, metrics_json, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sub_producer_code, month, year) DO UPDATE SET
			metrics_json = excluded.metrics_json,
			reason = excluded.reason`,
		uuid.NewString(), o.SubProducerCode, month, year, string(metricsJSON), o.Reason, now())
	return err
}

// DeleteOverride removes the override for one sub-producer/period.
func (s *Store) DeleteOverride(ctx context.Context, subProducerCode string, month, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM manual_overrides WHERE sub_producer_code = ? AND month = ? AND year = ?",
		subProducerCode, month, year)
	return err
}

// ListOverrides returns all overrides for a period.
func (s *Store) ListOverrides(ctx context.Context, month, year int) ([]commission.ManualOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sub_producer_code, metrics_json, reason FROM manual_overrides
		WHERE month = ? AND year = ?
		ORDER BY sub_producer_code`, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []commission.ManualOverride
	for rows.Next() {
		var o commission.ManualOverride
		var metricsJSON string
		if err := rows.Scan(&o.SubProducerCode, &metricsJSON, &o.Reason); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(metricsJSON), &o.Metrics); err != nil {
			return nil, fmt.Errorf("corrupt override metrics: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// =============================================================================
// PAYOUTS - Durable records with one-way status lifecycle
// =============================================================================

// PayoutRecord is a stored payout. CalculationJSON carries the full
// PayoutCalculation; SnapshotJSON duplicates the audit snapshot so the
// detail view can load it without decoding the whole record.
type PayoutRecord struct {
	ID              string
	MemberID        string
	PlanID          string
	Month           int
	Year            int
	Status          commission.PayoutStatus
	TotalPayout     string
	CalculationJSON string
	SnapshotJSON    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UpsertPayout saves a freshly computed payout, keyed by
// (member, month, year). Only draft rows are replaced: once a payout is
// finalized or paid, a recompute leaves it alone, which is what makes
// recompute-and-save always safe to run.
func (s *Store) UpsertPayout(ctx context.Context, calc commission.PayoutCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	calcJSON, err := json.Marshal(calc)
	if err != nil {
		return fmt.Errorf("failed to marshal payout: %w", err)
	}
	snapJSON, err := json.Marshal(calc.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO comp_payouts
		(id, member_id, plan_id, month, year, status, total_payout, calculation_json, snapshot_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, month, year) DO UPDATE SET
			plan_id = excluded.plan_id,
			total_payout = excluded.total_payout,
			calculation_json = excluded.calculation_json,
			snapshot_json = excluded.snapshot_json,
			updated_at = excluded.updated_at
		WHERE comp_payouts.status = 'draft'
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.NewString(), calc.MemberID, calc.PlanID, calc.Month, calc.Year,
		string(commission.StatusDraft), calc.TotalPayout.String(),
		string(calcJSON), string(snapJSON), now(), now())
	return err
}

// GetPayout retrieves the payout for one member/period. Returns nil when
// not found.
func (s *Store) GetPayout(ctx context.Context, memberID commission.MemberID, month, year int) (*PayoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayout(ctx, `
		SELECT id, member_id, plan_id, month, year, status, total_payout,
		       calculation_json, snapshot_json, created_at, updated_at
		FROM comp_payouts WHERE member_id = ? AND month = ? AND year = ?`,
		memberID, month, year)
}

// GetPayoutByID retrieves a payout row by its ID.
func (s *Store) GetPayoutByID(ctx context.Context, id string) (*PayoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayout(ctx, `
		SELECT id, member_id, plan_id, month, year, status, total_payout,
		       calculation_json, snapshot_json, created_at, updated_at
		FROM comp_payouts WHERE id = ?`, id)
}

func (s *Store) queryPayout(ctx context.Context, query string, args ...any) (*PayoutRecord, error) {
	var p PayoutRecord
	var status, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.MemberID, &p.PlanID, &p.Month, &p.Year, &status,
		&p.TotalPayout, &p.CalculationJSON, &p.SnapshotJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Status = commission.PayoutStatus(status)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// ListPayouts returns all payouts for a period, ordered by member.
func (s *Store) ListPayouts(ctx context.Context, month, year int) ([]PayoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, plan_id, month, year, status, total_payout,
		       calculation_json, snapshot_json, created_at, updated_at
		FROM comp_payouts WHERE month = ? AND year = ?
		ORDER BY member_id`, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []PayoutRecord
	for rows.Next() {
		var p PayoutRecord
		var status, createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.MemberID, &p.PlanID, &p.Month, &p.Year,
			&status, &p.TotalPayout, &p.CalculationJSON, &p.SnapshotJSON,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.Status = commission.PayoutStatus(status)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// FinalizePayouts moves every draft payout of a period to finalized.
// Returns the number of rows transitioned; rows in any other status are
// untouched by the guard.
func (s *Store) FinalizePayouts(ctx context.Context, month, year int) (int64, error) {
	return s.transition(ctx, month, year, commission.StatusDraft, commission.StatusFinalized)
}

// MarkPayoutsPaid moves every finalized payout of a period to paid.
func (s *Store) MarkPayoutsPaid(ctx context.Context, month, year int) (int64, error) {
	return s.transition(ctx, month, year, commission.StatusFinalized, commission.StatusPaid)
}

// transition is the one-way, status-guarded lifecycle step. The WHERE
// clause on the prior status is what serializes concurrent transitions:
// the second identical UPDATE simply matches zero rows.
func (s *Store) transition(ctx context.Context, month, year int, from, to commission.PayoutStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE comp_payouts SET status = ?, updated_at = ?
		WHERE month = ? AND year = ? AND status = ?`,
		string(to), now(), month, year, string(from))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
