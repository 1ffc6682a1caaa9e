/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface the core consumes (balance store,
  credit transaction log, calendar/shift/template/extra stores, user
  directory) using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  credits.BalanceStore:    Atomic conditional deduction
  credits.TransactionLog:  Append-only credit audit trail
  schedule.CalendarStore:  Calendars with owner uniqueness
  schedule.ShiftStore:     Shift CRUD
  schedule.ShiftReplacer:  Atomic clear+rewrite for rotation regeneration
  schedule.TemplateStore:  Preset collections
  schedule.ExtraStore:     Monetary extras
  schedule.UserDirectory:  Profile lookups

ATOMIC DEDUCTION:
  TryDeduct runs a conditional UPDATE with the balance guard in the
  WHERE clause; the affected-row count decides success. Two concurrent
  deductions can never both pass the guard. A user with no balance row
  is on the untouched free-tier default: the first deduction seeds the
  row at default-minus-amount under the same lock as the guard.

OWNER UNIQUENESS:
  idx_calendars_owner makes "one personal calendar per user" a database
  guarantee, not a lookup-before-insert convention. Insert conflicts are
  translated to schedule.ErrCalendarExists so resolution can re-fetch.

APPEND-ONLY LOG:
  credit_transactions has no UPDATE or DELETE path. Corrections, if ever
  needed, are compensating rows.

CONCURRENCY:
  Uses sync.RWMutex around the handle plus SQLite WAL mode. With
  PostgreSQL, database-level concurrency control replaces the mutex.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

USAGE:
  store, err := sqlite.New("./data/supershift.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  ledger := credits.NewLedger(store, store, logger)

SEE ALSO:
  - credits/store.go, schedule/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/supershift/rotation-engine/credits"
	"github.com/supershift/rotation-engine/rotation"
	"github.com/supershift/rotation-engine/schedule"
)

// Store implements all storage interfaces using SQLite.
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
	-- Users (identity only; balances live in credit_balances)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		created_at TEXT NOT NULL
	);

	-- Credit balances, keyed by user id but independent of the users table
	-- so a deduction can land for a user the directory has not seen yet.
	-- An absent row means "never touched": reads apply the free-tier
	-- default without materializing a value; the first deduction does.
	CREATE TABLE IF NOT EXISTS credit_balances (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL
	);

	-- Calendars
	CREATE TABLE IF NOT EXISTS calendars (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT,
		team_id TEXT,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		color TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one personal calendar per user. Concurrent
	-- first-time resolutions race on lookup-then-insert; this constraint
	-- makes the loser's insert fail instead of creating a second calendar.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_calendars_owner
		ON calendars(owner_user_id) WHERE owner_user_id IS NOT NULL;

	-- Shifts (bulk-created, bulk-destroyed on regeneration)
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL,
		shift_type TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT,
		end_time TEXT,
		note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_calendar_date
		ON shifts(calendar_id, date);

	-- Shift template presets (priced creation)
	CREATE TABLE IF NOT EXISTS shift_template_presets (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		icon TEXT,
		start_time TEXT,
		end_time TEXT,
		color TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shift_templates_owner
		ON shift_template_presets(owner_user_id);

	-- Rotation template presets (priced creation)
	CREATE TABLE IF NOT EXISTS rotation_template_presets (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		icon TEXT,
		day_count INTEGER NOT NULL,
		assignments_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rotation_templates_owner
		ON rotation_template_presets(owner_user_id);

	-- Credit transactions (append-only audit log; no UPDATE, no DELETE)
	CREATE TABLE IF NOT EXISTS credit_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		action_type TEXT NOT NULL,
		reference_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_credit_transactions_user
		ON credit_transactions(user_id, created_at);

	-- Monetary extras attached to shifts (decimal stored as TEXT)
	CREATE TABLE IF NOT EXISTS shift_extras (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shift_extras_shift
		ON shift_extras(shift_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS (schedule.UserDirectory)
// =============================================================================

// SaveUser upserts a user profile. Balances live in their own table, so a
// profile update can never clobber what a user has spent.
func (s *Store) SaveUser(ctx context.Context, profile schedule.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, name, email, timezone, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			timezone = excluded.timezone
	`

	_, err := s.db.ExecContext(ctx, query,
		profile.ID, profile.Name, profile.Email, profile.Timezone,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetProfile returns a user's profile, or nil if unknown.
func (s *Store) GetProfile(ctx context.Context, userID string) (*schedule.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p schedule.UserProfile
	var email sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, timezone FROM users WHERE id = ?",
		userID,
	).Scan(&p.ID, &p.Name, &email, &p.Timezone)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Email = email.String
	return &p, nil
}

// =============================================================================
// BALANCES (credits.BalanceStore)
// =============================================================================

// Balance returns the stored balance. exists=false when no balance row has
// been materialized yet; reading never writes.
func (s *Store) Balance(ctx context.Context, userID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance int
	err := s.db.QueryRowContext(ctx,
		"SELECT balance FROM credit_balances WHERE user_id = ?",
		userID,
	).Scan(&balance)

	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}

// TryDeduct is the system's one required atomic region: a conditional UPDATE
// with the sufficient-funds guard in the WHERE clause. The affected row count
// decides the outcome, so two concurrent deductions can never both succeed
// off the same starting balance. A user with no row yet is on the untouched
// free-tier default; the seed insert below runs under the same lock as the
// guard, so no deduction can slip in between the two statements.
func (s *Store) TryDeduct(ctx context.Context, userID string, amount int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE credit_balances
		SET balance = balance - ?
		WHERE user_id = ? AND balance >= ?
	`, amount, userID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to deduct: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 1 {
		return true, nil
	}

	// No materialized row: the effective balance is DefaultBalance.
	if amount > credits.DefaultBalance {
		return false, nil
	}
	result, err = s.db.ExecContext(ctx, `
		INSERT INTO credit_balances (user_id, balance)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, credits.DefaultBalance-amount)
	if err != nil {
		return false, fmt.Errorf("failed to seed balance: %w", err)
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return false, err
	}
	// Zero rows here means a row already existed with an insufficient
	// balance; the guarded UPDATE above was the authoritative answer.
	return affected == 1, nil
}

// Grant increments the balance (compensation path only). Like the first
// deduction, granting to a user with no row materializes it from the
// free-tier default.
func (s *Store) Grant(ctx context.Context, userID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_balances (user_id, balance)
		VALUES (?, ? + ?)
		ON CONFLICT(user_id) DO UPDATE SET balance = balance + ?
	`, userID, credits.DefaultBalance, amount, amount)
	if err != nil {
		return fmt.Errorf("failed to grant: %w", err)
	}
	return nil
}

// =============================================================================
// CREDIT TRANSACTION LOG (credits.TransactionLog) - append-only
// =============================================================================

// AppendCreditTransaction appends an audit row. This is the ONLY write on
// credit_transactions.
func (s *Store) AppendCreditTransaction(ctx context.Context, tx credits.CreditTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, user_id, amount, action_type, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tx.ID, tx.UserID, tx.Amount, string(tx.ActionType),
		nullString(tx.ReferenceID), tx.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append credit transaction: %w", err)
	}
	return nil
}

// ListCreditTransactions returns a user's credit history, newest first.
func (s *Store) ListCreditTransactions(ctx context.Context, userID string) ([]credits.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, action_type, reference_id, created_at
		FROM credit_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []credits.CreditTransaction
	for rows.Next() {
		var tx credits.CreditTransaction
		var actionType string
		var referenceID sql.NullString
		var createdAt string

		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &actionType, &referenceID, &createdAt); err != nil {
			return nil, err
		}
		tx.ActionType = credits.ActionType(actionType)
		tx.ReferenceID = referenceID.String
		tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// =============================================================================
// CALENDARS (schedule.CalendarStore)
// =============================================================================

// FindCalendarByOwner returns the user's calendar, or nil if none.
func (s *Store) FindCalendarByOwner(ctx context.Context, userID string) (*schedule.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cal schedule.Calendar
	var owner, team, color sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_user_id, team_id, name, timezone, color, created_at
		FROM calendars WHERE owner_user_id = ?
	`, userID).Scan(&cal.ID, &owner, &team, &cal.Name, &cal.Timezone, &color, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cal.OwnerUserID = owner.String
	cal.TeamID = team.String
	cal.Color = color.String
	cal.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &cal, nil
}

// InsertCalendar persists a calendar. The unique index on owner_user_id
// turns a lost get-or-create race into schedule.ErrCalendarExists.
func (s *Store) InsertCalendar(ctx context.Context, cal schedule.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendars (id, owner_user_id, team_id, name, timezone, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cal.ID, nullString(cal.OwnerUserID), nullString(cal.TeamID),
		cal.Name, cal.Timezone, nullString(cal.Color),
		cal.CreatedAt.UTC().Format(time.RFC3339))

	if err != nil {
		if isUniqueConstraintError(err) {
			return schedule.ErrCalendarExists
		}
		return fmt.Errorf("failed to insert calendar: %w", err)
	}
	return nil
}

// =============================================================================
// SHIFTS (schedule.ShiftStore + schedule.ShiftReplacer)
// =============================================================================

// ListShifts returns a calendar's shifts ordered by date ascending.
func (s *Store) ListShifts(ctx context.Context, calendarID schedule.CalendarID) ([]schedule.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, calendar_id, shift_type, date, start_time, end_time, note, created_at
		FROM shifts
		WHERE calendar_id = ?
		ORDER BY date ASC
	`, calendarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []schedule.ShiftRecord
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// GetShift returns a shift by id, or nil if none.
func (s *Store) GetShift(ctx context.Context, id schedule.ShiftID) (*schedule.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, calendar_id, shift_type, date, start_time, end_time, note, created_at
		FROM shifts WHERE id = ?
	`, id)

	shift, err := scanShiftRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// InsertShift persists a single shift.
func (s *Store) InsertShift(ctx context.Context, shift schedule.ShiftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertShift(ctx, s.db, shift)
}

func (s *Store) insertShift(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, shift schedule.ShiftRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO shifts (id, calendar_id, shift_type, date, start_time, end_time, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, shift.ID, shift.CalendarID, string(shift.Type), shift.Date.String(),
		nullString(shift.StartTime), nullString(shift.EndTime), nullString(shift.Note),
		shift.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	return nil
}

// BulkInsertShifts persists shifts in one database transaction.
func (s *Store) BulkInsertShifts(ctx context.Context, shifts []schedule.ShiftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, shift := range shifts {
		if err := s.insertShift(ctx, sqlTx, shift); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// DeleteShiftsByCalendar removes every shift (and its extras) owned by the
// calendar.
func (s *Store) DeleteShiftsByCalendar(ctx context.Context, calendarID schedule.CalendarID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteShiftsByCalendar(ctx, s.db, calendarID)
}

func (s *Store) deleteShiftsByCalendar(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, calendarID schedule.CalendarID) error {
	if _, err := db.ExecContext(ctx,
		"DELETE FROM shift_extras WHERE shift_id IN (SELECT id FROM shifts WHERE calendar_id = ?)",
		calendarID); err != nil {
		return fmt.Errorf("failed to delete shift extras: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM shifts WHERE calendar_id = ?", calendarID); err != nil {
		return fmt.Errorf("failed to delete shifts: %w", err)
	}
	return nil
}

// ReplaceShifts deletes a calendar's shifts and inserts the replacement set
// in one transaction. Either both phases land or neither does, which is what
// lets the orchestrator report FullyReplaced=true.
func (s *Store) ReplaceShifts(ctx context.Context, calendarID schedule.CalendarID, shifts []schedule.ShiftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := s.deleteShiftsByCalendar(ctx, sqlTx, calendarID); err != nil {
		return err
	}
	for _, shift := range shifts {
		if err := s.insertShift(ctx, sqlTx, shift); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func scanShift(rows *sql.Rows) (schedule.ShiftRecord, error) {
	var shift schedule.ShiftRecord
	var shiftType, date, createdAt string
	var startTime, endTime, note sql.NullString

	err := rows.Scan(&shift.ID, &shift.CalendarID, &shiftType, &date,
		&startTime, &endTime, &note, &createdAt)
	if err != nil {
		return shift, fmt.Errorf("failed to scan shift: %w", err)
	}

	fillShift(&shift, shiftType, date, startTime, endTime, note, createdAt)
	return shift, nil
}

func scanShiftRow(row *sql.Row) (schedule.ShiftRecord, error) {
	var shift schedule.ShiftRecord
	var shiftType, date, createdAt string
	var startTime, endTime, note sql.NullString

	err := row.Scan(&shift.ID, &shift.CalendarID, &shiftType, &date,
		&startTime, &endTime, &note, &createdAt)
	if err != nil {
		return shift, err
	}

	fillShift(&shift, shiftType, date, startTime, endTime, note, createdAt)
	return shift, nil
}

func fillShift(shift *schedule.ShiftRecord, shiftType, date string, startTime, endTime, note sql.NullString, createdAt string) {
	shift.Type = rotation.ShiftType(shiftType)
	shift.Date, _ = rotation.ParseDate(date)
	shift.StartTime = startTime.String
	shift.EndTime = endTime.String
	shift.Note = note.String
	shift.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
}

// =============================================================================
// TEMPLATES (schedule.TemplateStore)
// =============================================================================

// InsertShiftTemplate persists a shift template preset.
func (s *Store) InsertShiftTemplate(ctx context.Context, tpl schedule.ShiftTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shift_template_presets (id, owner_user_id, title, icon, start_time, end_time, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, tpl.ID, tpl.OwnerUserID, tpl.Title, nullString(tpl.Icon),
		nullString(tpl.StartTime), nullString(tpl.EndTime), nullString(tpl.Color),
		tpl.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert shift template: %w", err)
	}
	return nil
}

// ListShiftTemplates returns a user's shift templates.
func (s *Store) ListShiftTemplates(ctx context.Context, ownerUserID string) ([]schedule.ShiftTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_user_id, title, icon, start_time, end_time, color, created_at
		FROM shift_template_presets
		WHERE owner_user_id = ?
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []schedule.ShiftTemplate
	for rows.Next() {
		var tpl schedule.ShiftTemplate
		var icon, startTime, endTime, color sql.NullString
		var createdAt string

		if err := rows.Scan(&tpl.ID, &tpl.OwnerUserID, &tpl.Title, &icon,
			&startTime, &endTime, &color, &createdAt); err != nil {
			return nil, err
		}
		tpl.Icon = icon.String
		tpl.StartTime = startTime.String
		tpl.EndTime = endTime.String
		tpl.Color = color.String
		tpl.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// InsertRotationTemplate persists a rotation template preset. Per-day
// assignments are stored as JSON.
func (s *Store) InsertRotationTemplate(ctx context.Context, tpl schedule.RotationTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignmentsJSON, err := json.Marshal(tpl.Assignments)
	if err != nil {
		return fmt.Errorf("failed to encode assignments: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rotation_template_presets (id, owner_user_id, title, icon, day_count, assignments_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tpl.ID, tpl.OwnerUserID, tpl.Title, nullString(tpl.Icon),
		tpl.DayCount, string(assignmentsJSON),
		tpl.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert rotation template: %w", err)
	}
	return nil
}

// ListRotationTemplates returns a user's rotation templates.
func (s *Store) ListRotationTemplates(ctx context.Context, ownerUserID string) ([]schedule.RotationTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_user_id, title, icon, day_count, assignments_json, created_at
		FROM rotation_template_presets
		WHERE owner_user_id = ?
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []schedule.RotationTemplate
	for rows.Next() {
		var tpl schedule.RotationTemplate
		var icon sql.NullString
		var assignmentsJSON, createdAt string

		if err := rows.Scan(&tpl.ID, &tpl.OwnerUserID, &tpl.Title, &icon,
			&tpl.DayCount, &assignmentsJSON, &createdAt); err != nil {
			return nil, err
		}
		tpl.Icon = icon.String
		tpl.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		json.Unmarshal([]byte(assignmentsJSON), &tpl.Assignments)
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// =============================================================================
// EXTRAS (schedule.ExtraStore)
// =============================================================================

// InsertExtra persists a monetary extra. Amounts are stored as exact
// decimal strings, never floats.
func (s *Store) InsertExtra(ctx context.Context, extra schedule.Extra) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shift_extras (id, shift_id, name, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, extra.ID, extra.ShiftID, extra.Name, extra.Amount.String(),
		extra.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert extra: %w", err)
	}
	return nil
}

// ListExtrasByShift returns a shift's extras.
func (s *Store) ListExtrasByShift(ctx context.Context, shiftID schedule.ShiftID) ([]schedule.Extra, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shift_id, name, amount, created_at
		FROM shift_extras
		WHERE shift_id = ?
		ORDER BY created_at ASC
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var extras []schedule.Extra
	for rows.Next() {
		var extra schedule.Extra
		var amount, createdAt string

		if err := rows.Scan(&extra.ID, &extra.ShiftID, &extra.Name, &amount, &createdAt); err != nil {
			return nil, err
		}
		extra.Amount, _ = decimal.NewFromString(amount)
		extra.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		extras = append(extras, extra)
	}
	return extras, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"shift_extras", "shifts", "shift_template_presets",
		"rotation_template_presets", "credit_transactions", "credit_balances",
		"calendars", "users"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
