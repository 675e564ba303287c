/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  One Store persists every collection the treasury reads: members, monthly
  dues rows, expenses, extraordinary fees and their payments, degree fee
  records, and the settings singleton. It also implements cache.Fetcher so
  the read cache can bulk-load everything in one call.

KEY TABLES:
  members:                Roster with per-member fee overrides
  monthly_payments:       Dues rows, unique per (member_id, month, year)
  expenses:               Outgoing transactions
  extraordinary_fees:     One-off per-member charges
  extraordinary_payments: Installments against extraordinary fees
  degree_fees:            Degree-advancement income records
  settings:               Singleton configuration row

INTEGRITY:
  - UNIQUE(member_id, month, year) makes double-charging a month a
    constraint violation, not a code-path bug
  - Payments reference members/fees with ON DELETE CASCADE, matching the
    cache's in-memory cascades
  - Monetary values are stored as decimal strings, never floats

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode: multiple readers
  don't block and a single writer at a time keeps batches serialized.

USAGE:
  store, err := sqlite.New("./data/logia.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - cache/cache.go: the in-memory read model fed by FetchAll
  - api/handlers.go: the write paths calling into this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/logia/treasury-engine/cache"
	"github.com/logia/treasury-engine/treasury"
)

// ErrDuplicateMonth is returned when a dues row would double-charge a
// (member, month, year) that already has one.
var ErrDuplicateMonth = errors.New("a payment already exists for this member and month")

// ErrNotFound is returned by point reads when no row matches.
var ErrNotFound = errors.New("record not found")

// Store implements persistence for every treasury collection.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
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

// Reset wipes every table. Settings are cleared too; callers that need a
// working configuration afterwards should follow up with EnsureSettings.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"extraordinary_payments",
		"extraordinary_fees",
		"monthly_payments",
		"degree_fees",
		"expenses",
		"members",
		"settings",
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset: begin: %w", err)
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			tx.Rollback()
			return fmt.Errorf("reset: clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'activo',
		degree TEXT NOT NULL DEFAULT 'aprendiz',
		treasury_amount TEXT,
		cargo_logial TEXT,
		phone TEXT,
		email TEXT,
		birth_date TEXT,
		join_date TEXT,
		created_at TEXT NOT NULL
	);

	-- Dues rows. The unique index is the double-charge guard: one row per
	-- member per covered month, whatever path created it.
	CREATE TABLE IF NOT EXISTS monthly_payments (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		year INTEGER NOT NULL,
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		payment_type TEXT NOT NULL DEFAULT 'regular',
		receipt_url TEXT,
		quick_pay_group_id TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(member_id, month, year)
	);

	CREATE INDEX IF NOT EXISTS idx_monthly_payments_member
		ON monthly_payments(member_id, year, month);
	CREATE INDEX IF NOT EXISTS idx_monthly_payments_paid_at
		ON monthly_payments(paid_at);
	CREATE INDEX IF NOT EXISTS idx_monthly_payments_group
		ON monthly_payments(quick_pay_group_id)
		WHERE quick_pay_group_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT,
		expense_date TEXT NOT NULL,
		notes TEXT,
		receipt_url TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(expense_date);

	CREATE TABLE IF NOT EXISTS extraordinary_fees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		amount_per_member TEXT NOT NULL,
		due_date TEXT,
		is_mandatory INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS extraordinary_payments (
		id TEXT PRIMARY KEY,
		extraordinary_fee_id TEXT NOT NULL REFERENCES extraordinary_fees(id) ON DELETE CASCADE,
		member_id TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
		amount_paid TEXT NOT NULL,
		payment_date TEXT,
		receipt_url TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_extraordinary_payments_fee
		ON extraordinary_payments(extraordinary_fee_id, member_id);

	CREATE TABLE IF NOT EXISTS degree_fees (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		fee_date TEXT,
		notes TEXT,
		receipt_url TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY,
		institution_name TEXT NOT NULL,
		monthly_fee_base TEXT NOT NULL,
		monthly_report_template TEXT,
		annual_report_template TEXT,
		logo_url TEXT,
		treasurer_id TEXT,
		treasurer_signature_url TEXT,
		vm_signature_url TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MEMBERS
// =============================================================================

// SaveMember inserts or replaces a member.
func (s *Store) SaveMember(ctx context.Context, m treasury.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var override sql.NullString
	if m.TreasuryAmount != nil {
		override = nullString(m.TreasuryAmount.String())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO members
		(id, full_name, status, degree, treasury_amount, cargo_logial, phone, email, birth_date, join_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.FullName, string(m.Status), string(m.Degree), override,
		nullString(string(m.CargoLogial)), nullString(m.Phone), nullString(m.Email),
		nullString(m.BirthDate), nullString(m.JoinDate), timeText(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}
	return nil
}

// GetMember returns one member by ID, or ErrNotFound.
func (s *Store) GetMember(ctx context.Context, id string) (*treasury.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, memberSelect+` WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns every member, name order.
func (s *Store) ListMembers(ctx context.Context) ([]treasury.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listMembers(ctx)
}

func (s *Store) listMembers(ctx context.Context) ([]treasury.Member, error) {
	rows, err := s.db.QueryContext(ctx, memberSelect+` ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []treasury.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMember removes a member; payment rows cascade.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

const memberSelect = `
	SELECT id, full_name, status, degree, treasury_amount, cargo_logial,
	       phone, email, birth_date, join_date, created_at
	FROM members`

func scanMember(row interface{ Scan(...any) error }) (treasury.Member, error) {
	var m treasury.Member
	var override, cargo, phone, email, birth, join sql.NullString
	var created string
	err := row.Scan(&m.ID, &m.FullName, (*string)(&m.Status), (*string)(&m.Degree),
		&override, &cargo, &phone, &email, &birth, &join, &created)
	if err != nil {
		return m, err
	}
	if override.Valid {
		d, err := decimal.NewFromString(override.String)
		if err != nil {
			return m, fmt.Errorf("corrupt treasury_amount for member %s: %w", m.ID, err)
		}
		m.TreasuryAmount = &d
	}
	m.CargoLogial = treasury.Office(cargo.String)
	m.Phone = phone.String
	m.Email = email.String
	m.BirthDate = birth.String
	m.JoinDate = join.String
	m.CreatedAt = parseTime(created)
	return m, nil
}

// =============================================================================
// MONTHLY PAYMENTS
// =============================================================================

// SaveMonthlyPayment inserts one dues row. A duplicate covered month
// returns ErrDuplicateMonth.
func (s *Store) SaveMonthlyPayment(ctx context.Context, p treasury.MonthlyPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertMonthlyPayment(ctx, s.db, p)
}

// InsertMonthlyPayments writes a whole batch atomically: either every row
// of a quick-pay or advance-pay allocation lands, or none do.
func (s *Store) InsertMonthlyPayments(ctx context.Context, rows []treasury.MonthlyPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	for _, p := range rows {
		if err := insertMonthlyPayment(ctx, tx, p); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMonthlyPayment(ctx context.Context, db execer, p treasury.MonthlyPayment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO monthly_payments
		(id, member_id, month, year, amount, paid_at, payment_type, receipt_url, quick_pay_group_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.MemberID, p.Month, p.Year, p.Amount.String(), p.PaidAt,
		string(p.PaymentType), nullString(p.ReceiptURL), nullString(p.QuickPayGroupID), timeText(p.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: member %s, %d/%d", ErrDuplicateMonth, p.MemberID, p.Month, p.Year)
		}
		return fmt.Errorf("failed to save monthly payment: %w", err)
	}
	return nil
}

// UpdateMonthlyPayment rewrites an existing dues row in place.
func (s *Store) UpdateMonthlyPayment(ctx context.Context, p treasury.MonthlyPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE monthly_payments
		SET amount = ?, paid_at = ?, payment_type = ?, receipt_url = ?
		WHERE id = ?`,
		p.Amount.String(), p.PaidAt, string(p.PaymentType), nullString(p.ReceiptURL), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update monthly payment: %w", err)
	}
	return nil
}

// GetMonthlyPayment returns one dues row by ID, or ErrNotFound.
func (s *Store) GetMonthlyPayment(ctx context.Context, id string) (*treasury.MonthlyPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, member_id, month, year, amount, paid_at, payment_type, receipt_url, quick_pay_group_id, created_at
		FROM monthly_payments WHERE id = ?`, id)

	var p treasury.MonthlyPayment
	var amount, created string
	var receipt, group sql.NullString
	err := row.Scan(&p.ID, &p.MemberID, &p.Month, &p.Year, &amount, &p.PaidAt,
		(*string)(&p.PaymentType), &receipt, &group, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly payment: %w", err)
	}
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount on payment %s: %w", p.ID, err)
	}
	p.ReceiptURL = receipt.String
	p.QuickPayGroupID = group.String
	p.CreatedAt = parseTime(created)
	return &p, nil
}

// ListMonthlyPayments returns every dues row in (year, month) order.
func (s *Store) ListMonthlyPayments(ctx context.Context) ([]treasury.MonthlyPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listMonthlyPayments(ctx)
}

func (s *Store) listMonthlyPayments(ctx context.Context) ([]treasury.MonthlyPayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, month, year, amount, paid_at, payment_type, receipt_url, quick_pay_group_id, created_at
		FROM monthly_payments ORDER BY year, month`)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly payments: %w", err)
	}
	defer rows.Close()

	var out []treasury.MonthlyPayment
	for rows.Next() {
		var p treasury.MonthlyPayment
		var amount, created string
		var receipt, group sql.NullString
		if err := rows.Scan(&p.ID, &p.MemberID, &p.Month, &p.Year, &amount, &p.PaidAt,
			(*string)(&p.PaymentType), &receipt, &group, &created); err != nil {
			return nil, err
		}
		p.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount on payment %s: %w", p.ID, err)
		}
		p.ReceiptURL = receipt.String
		p.QuickPayGroupID = group.String
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteMonthlyPayment removes one dues row.
func (s *Store) DeleteMonthlyPayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM monthly_payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete monthly payment: %w", err)
	}
	return nil
}

// =============================================================================
// EXPENSES
// =============================================================================

// SaveExpense inserts or replaces an expense.
func (s *Store) SaveExpense(ctx context.Context, e treasury.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO expenses
		(id, description, amount, category, expense_date, notes, receipt_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Description, e.Amount.String(), nullString(e.Category),
		e.ExpenseDate, nullString(e.Notes), nullString(e.ReceiptURL), timeText(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

// ListExpenses returns every expense, newest first.
func (s *Store) ListExpenses(ctx context.Context) ([]treasury.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listExpenses(ctx)
}

func (s *Store) listExpenses(ctx context.Context) ([]treasury.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, amount, category, expense_date, notes, receipt_url, created_at
		FROM expenses ORDER BY expense_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var out []treasury.Expense
	for rows.Next() {
		var e treasury.Expense
		var amount, created string
		var category, notes, receipt sql.NullString
		if err := rows.Scan(&e.ID, &e.Description, &amount, &category, &e.ExpenseDate, &notes, &receipt, &created); err != nil {
			return nil, err
		}
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount on expense %s: %w", e.ID, err)
		}
		e.Category = category.String
		e.Notes = notes.String
		e.ReceiptURL = receipt.String
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteExpense removes one expense.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// =============================================================================
// EXTRAORDINARY FEES AND PAYMENTS
// =============================================================================

// SaveExtraordinaryFee inserts or replaces a fee.
func (s *Store) SaveExtraordinaryFee(ctx context.Context, f treasury.ExtraordinaryFee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO extraordinary_fees
		(id, name, description, amount_per_member, due_date, is_mandatory, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, nullString(f.Description), f.AmountPerMember.String(),
		nullString(f.DueDate), boolInt(f.IsMandatory), timeText(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save extraordinary fee: %w", err)
	}
	return nil
}

// ListExtraordinaryFees returns every fee, newest first.
func (s *Store) ListExtraordinaryFees(ctx context.Context) ([]treasury.ExtraordinaryFee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listExtraordinaryFees(ctx)
}

func (s *Store) listExtraordinaryFees(ctx context.Context) ([]treasury.ExtraordinaryFee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, amount_per_member, due_date, is_mandatory, created_at
		FROM extraordinary_fees ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list extraordinary fees: %w", err)
	}
	defer rows.Close()

	var out []treasury.ExtraordinaryFee
	for rows.Next() {
		var f treasury.ExtraordinaryFee
		var amount, created string
		var description, due sql.NullString
		var mandatory int
		if err := rows.Scan(&f.ID, &f.Name, &description, &amount, &due, &mandatory, &created); err != nil {
			return nil, err
		}
		f.AmountPerMember, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount on fee %s: %w", f.ID, err)
		}
		f.Description = description.String
		f.DueDate = due.String
		f.IsMandatory = mandatory != 0
		f.CreatedAt = parseTime(created)
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteExtraordinaryFee removes a fee; its payment rows cascade.
func (s *Store) DeleteExtraordinaryFee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM extraordinary_fees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete extraordinary fee: %w", err)
	}
	return nil
}

// SaveExtraordinaryPayment inserts or replaces a payment row. Multiple rows
// per (fee, member) are allowed; balances sum across them.
func (s *Store) SaveExtraordinaryPayment(ctx context.Context, p treasury.ExtraordinaryPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO extraordinary_payments
		(id, extraordinary_fee_id, member_id, amount_paid, payment_date, receipt_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ExtraordinaryFeeID, p.MemberID, p.AmountPaid.String(),
		nullString(p.PaymentDate), nullString(p.ReceiptURL), timeText(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save extraordinary payment: %w", err)
	}
	return nil
}

// ListExtraordinaryPayments returns every payment row, oldest first.
func (s *Store) ListExtraordinaryPayments(ctx context.Context) ([]treasury.ExtraordinaryPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listExtraordinaryPayments(ctx)
}

func (s *Store) listExtraordinaryPayments(ctx context.Context) ([]treasury.ExtraordinaryPayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, extraordinary_fee_id, member_id, amount_paid, payment_date, receipt_url, created_at
		FROM extraordinary_payments ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list extraordinary payments: %w", err)
	}
	defer rows.Close()

	var out []treasury.ExtraordinaryPayment
	for rows.Next() {
		var p treasury.ExtraordinaryPayment
		var amount, created string
		var date, receipt sql.NullString
		if err := rows.Scan(&p.ID, &p.ExtraordinaryFeeID, &p.MemberID, &amount, &date, &receipt, &created); err != nil {
			return nil, err
		}
		p.AmountPaid, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount on extraordinary payment %s: %w", p.ID, err)
		}
		p.PaymentDate = date.String
		p.ReceiptURL = receipt.String
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteExtraordinaryPayment removes one payment row.
func (s *Store) DeleteExtraordinaryPayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM extraordinary_payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete extraordinary payment: %w", err)
	}
	return nil
}

// =============================================================================
// DEGREE FEES
// =============================================================================

// SaveDegreeFee inserts or replaces a degree fee record.
func (s *Store) SaveDegreeFee(ctx context.Context, f treasury.DegreeFee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO degree_fees
		(id, description, amount, category, fee_date, notes, receipt_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Description, f.Amount.String(), string(f.Category),
		nullString(f.FeeDate), nullString(f.Notes), nullString(f.ReceiptURL), timeText(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save degree fee: %w", err)
	}
	return nil
}

// ListDegreeFees returns every degree fee record, newest first.
func (s *Store) ListDegreeFees(ctx context.Context) ([]treasury.DegreeFee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listDegreeFees(ctx)
}

func (s *Store) listDegreeFees(ctx context.Context) ([]treasury.DegreeFee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, amount, category, fee_date, notes, receipt_url, created_at
		FROM degree_fees ORDER BY fee_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list degree fees: %w", err)
	}
	defer rows.Close()

	var out []treasury.DegreeFee
	for rows.Next() {
		var f treasury.DegreeFee
		var amount, created string
		var date, notes, receipt sql.NullString
		if err := rows.Scan(&f.ID, &f.Description, &amount, (*string)(&f.Category), &date, &notes, &receipt, &created); err != nil {
			return nil, err
		}
		f.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount on degree fee %s: %w", f.ID, err)
		}
		f.FeeDate = date.String
		f.Notes = notes.String
		f.ReceiptURL = receipt.String
		f.CreatedAt = parseTime(created)
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteDegreeFee removes one degree fee record.
func (s *Store) DeleteDegreeFee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM degree_fees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete degree fee: %w", err)
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// EnsureSettings returns the settings singleton, creating it with defaults
// when the table is empty.
func (s *Store) EnsureSettings(ctx context.Context) (treasury.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getSettings(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return treasury.Settings{}, err
	}

	def := treasury.DefaultSettings()
	def.ID = uuid.NewString()
	if err := s.saveSettings(ctx, def); err != nil {
		return treasury.Settings{}, err
	}
	return def, nil
}

// SaveSettings rewrites the settings row.
func (s *Store) SaveSettings(ctx context.Context, cfg treasury.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSettings(ctx, cfg)
}

func (s *Store) saveSettings(ctx context.Context, cfg treasury.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings
		(id, institution_name, monthly_fee_base, monthly_report_template, annual_report_template,
		 logo_url, treasurer_id, treasurer_signature_url, vm_signature_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID, cfg.InstitutionName, cfg.MonthlyFeeBase.String(),
		nullString(cfg.MonthlyReportTemplate), nullString(cfg.AnnualReportTemplate),
		nullString(cfg.LogoURL), nullString(cfg.TreasurerID),
		nullString(cfg.TreasurerSignatureURL), nullString(cfg.VMSignatureURL))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// GetSettings returns the settings singleton, or ErrNotFound.
func (s *Store) GetSettings(ctx context.Context) (treasury.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSettings(ctx)
}

func (s *Store) getSettings(ctx context.Context) (treasury.Settings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, institution_name, monthly_fee_base, monthly_report_template, annual_report_template,
		       logo_url, treasurer_id, treasurer_signature_url, vm_signature_url
		FROM settings LIMIT 1`)

	var cfg treasury.Settings
	var fee string
	var monthlyTpl, annualTpl, logo, treasurer, tSig, vmSig sql.NullString
	err := row.Scan(&cfg.ID, &cfg.InstitutionName, &fee, &monthlyTpl, &annualTpl,
		&logo, &treasurer, &tSig, &vmSig)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, ErrNotFound
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to load settings: %w", err)
	}
	cfg.MonthlyFeeBase, err = decimal.NewFromString(fee)
	if err != nil {
		return cfg, fmt.Errorf("corrupt monthly_fee_base: %w", err)
	}
	cfg.MonthlyReportTemplate = monthlyTpl.String
	cfg.AnnualReportTemplate = annualTpl.String
	cfg.LogoURL = logo.String
	cfg.TreasurerID = treasurer.String
	cfg.TreasurerSignatureURL = tSig.String
	cfg.VMSignatureURL = vmSig.String
	return cfg, nil
}

// =============================================================================
// BULK FETCH - cache.Fetcher
// =============================================================================

// FetchAll loads every collection under one read lock so the cache sees a
// consistent view.
func (s *Store) FetchAll(ctx context.Context) (cache.Collections, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var col cache.Collections
	var err error
	if col.Members, err = s.listMembers(ctx); err != nil {
		return cache.Collections{}, err
	}
	if col.MonthlyPayments, err = s.listMonthlyPayments(ctx); err != nil {
		return cache.Collections{}, err
	}
	if col.Expenses, err = s.listExpenses(ctx); err != nil {
		return cache.Collections{}, err
	}
	if col.ExtraordinaryFees, err = s.listExtraordinaryFees(ctx); err != nil {
		return cache.Collections{}, err
	}
	if col.ExtraordinaryPayments, err = s.listExtraordinaryPayments(ctx); err != nil {
		return cache.Collections{}, err
	}
	if col.DegreeFees, err = s.listDegreeFees(ctx); err != nil {
		return cache.Collections{}, err
	}
	cfg, err := s.getSettings(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return cache.Collections{}, err
	}
	if err == nil {
		col.Settings = &cfg
	}
	return col, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeText(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
