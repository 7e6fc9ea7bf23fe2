/*
Package sqlite provides the SQLite-backed implementation of the leave
storage interfaces.

PURPOSE:
  Implements leave.TxStore using SQLite. The same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  users               Subjects and their roles
  balances            One row per (user, bucket), floor-checked at zero
  leave_requests      Mutable request records (sole writer: leave.Service)
  ledger_adjustments  Immutable record of every balance mutation
  audit_entries       Append-only audit log
  holidays            Calendar oracle input

BALANCE GUARD:
  ApplyBalance is a single guarded UPDATE (value = value + delta WHERE
  value + delta >= 0), so the non-negative floor holds server-side even
  if calling code skipped its own check. The CHECK constraint on the
  table backs that up. Values move in half-day steps, which REAL stores
  exactly.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for ledger_adjustments or
  audit_entries.

CONCURRENCY:
  A store-level mutex serializes writes, which covers the per-(user,
  bucket) serialization contract. SQLite runs in WAL mode so readers do
  not block. With PostgreSQL, row-level locking would replace the mutex.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface contracts
  - leave/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/leave-ledger/leave"
)

// Store implements leave.TxStore over SQLite.
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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'employee',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS balances (
		user_id TEXT NOT NULL,
		bucket TEXT NOT NULL,
		value REAL NOT NULL DEFAULT 0 CHECK (value >= 0),
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, bucket)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		start_session TEXT NOT NULL DEFAULT '',
		end_session TEXT NOT NULL DEFAULT '',
		days REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reason TEXT,
		rejection_reason TEXT,
		document_ref TEXT,
		approved_by TEXT,
		approved_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_user
		ON leave_requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);

	-- Overlap query hot path: user's pending/approved requests by range.
	CREATE INDEX IF NOT EXISTS idx_requests_user_range
		ON leave_requests(user_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS ledger_adjustments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		request_id TEXT,
		bucket TEXT NOT NULL,
		delta REAL NOT NULL,
		old_value REAL NOT NULL,
		new_value REAL NOT NULL,
		reason TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_user
		ON ledger_adjustments(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_adjustments_request
		ON ledger_adjustments(request_id) WHERE request_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		user_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		request_id TEXT,
		detail_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_user
		ON audit_entries(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_request
		ON audit_entries(request_id) WHERE request_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS holidays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		UNIQUE(date, name)
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ leave.TxStore = (*Store)(nil)

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) CreateRequest(ctx context.Context, r *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createRequest(ctx, s.db, r)
}

func createRequest(ctx context.Context, q dbtx, r *leave.Request) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, user_id, category, start_date, end_date, start_session, end_session,
		 days, status, reason, rejection_reason, document_ref, approved_by, approved_at,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Category, r.Start.String(), r.End.String(),
		string(r.StartSession), string(r.EndSession),
		r.Days.Float64(), r.Status, r.Reason, r.RejectionReason, r.DocumentRef,
		nullableUser(r.ApprovedBy), nullableTime(r.ApprovedAt),
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id leave.RequestID) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

const requestColumns = `id, user_id, category, start_date, end_date, start_session, end_session,
	days, status, reason, rejection_reason, document_ref, approved_by, approved_at,
	created_at, updated_at`

func getRequest(ctx context.Context, q dbtx, id leave.RequestID) (*leave.Request, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrRequestNotFound
	}
	return r, err
}

func (s *Store) UpdateRequest(ctx context.Context, r *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRequest(ctx, s.db, r)
}

func updateRequest(ctx context.Context, q dbtx, r *leave.Request) error {
	res, err := q.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, reason = ?, rejection_reason = ?, document_ref = ?,
		    approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ?`,
		r.Status, r.Reason, r.RejectionReason, r.DocumentRef,
		nullableUser(r.ApprovedBy), nullableTime(r.ApprovedAt),
		r.UpdatedAt.UTC().Format(time.RFC3339), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrRequestNotFound
	}
	return nil
}

func (s *Store) DeleteRequest(ctx context.Context, id leave.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRequest(ctx, s.db, id)
}

func deleteRequest(ctx context.Context, q dbtx, id leave.RequestID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM leave_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrRequestNotFound
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, userID leave.UserID) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequests(ctx, s.db, userID)
}

func listRequests(ctx context.Context, q dbtx, userID leave.UserID) ([]leave.Request, error) {
	return queryRequests(ctx, q,
		`SELECT `+requestColumns+` FROM leave_requests WHERE user_id = ? ORDER BY created_at`, userID)
}

func (s *Store) Overlapping(ctx context.Context, userID leave.UserID, from, to leave.Date, statuses []leave.Status) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return overlapping(ctx, s.db, userID, from, to, statuses)
}

func overlapping(ctx context.Context, q dbtx, userID leave.UserID, from, to leave.Date, statuses []leave.Status) ([]leave.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests
		WHERE user_id = ? AND start_date <= ? AND end_date >= ?`
	args := []any{userID, to.String(), from.String()}
	if len(statuses) > 0 {
		query += ` AND status IN (?` + strings.Repeat(",?", len(statuses)-1) + `)`
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY start_date`
	return queryRequests(ctx, q, query, args...)
}

func queryRequests(ctx context.Context, q dbtx, query string, args ...any) ([]leave.Request, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []leave.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*leave.Request, error) {
	var (
		r                    leave.Request
		start, end           string
		startSes, endSes     string
		days                 float64
		reason, rejectReason sql.NullString
		docRef, approvedBy   sql.NullString
		approvedAt           sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Category, &start, &end, &startSes, &endSes,
		&days, &r.Status, &reason, &rejectReason, &docRef, &approvedBy, &approvedAt,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if r.Start, err = leave.ParseDate(start); err != nil {
		return nil, fmt.Errorf("bad start_date %q: %w", start, err)
	}
	if r.End, err = leave.ParseDate(end); err != nil {
		return nil, fmt.Errorf("bad end_date %q: %w", end, err)
	}
	r.StartSession = leave.Session(startSes)
	r.EndSession = leave.Session(endSes)
	r.Days = leave.NewDays(days)
	r.Reason = reason.String
	r.RejectionReason = rejectReason.String
	r.DocumentRef = docRef.String
	if approvedBy.Valid {
		id := leave.UserID(approvedBy.String)
		r.ApprovedBy = &id
	}
	if approvedAt.Valid {
		if t, err := time.Parse(time.RFC3339, approvedAt.String); err == nil {
			r.ApprovedAt = &t
		}
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) Balance(ctx context.Context, userID leave.UserID, bucket leave.Bucket) (leave.Days, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return balance(ctx, s.db, userID, bucket)
}

func balance(ctx context.Context, q dbtx, userID leave.UserID, bucket leave.Bucket) (leave.Days, error) {
	var v float64
	err := q.QueryRowContext(ctx,
		`SELECT value FROM balances WHERE user_id = ? AND bucket = ?`,
		userID, bucket).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return leave.ZeroDays(), leave.ErrUserNotFound
	}
	if err != nil {
		return leave.ZeroDays(), fmt.Errorf("failed to read balance: %w", err)
	}
	return leave.NewDays(v), nil
}

func (s *Store) InitBalance(ctx context.Context, userID leave.UserID, bucket leave.Bucket, value leave.Days) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return initBalance(ctx, s.db, userID, bucket, value)
}

func initBalance(ctx context.Context, q dbtx, userID leave.UserID, bucket leave.Bucket, value leave.Days) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO balances (user_id, bucket, value, updated_at)
		VALUES (?, ?, ?, ?)`,
		userID, bucket, value.Float64(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to init balance: %w", err)
	}
	return nil
}

func (s *Store) ApplyBalance(ctx context.Context, userID leave.UserID, bucket leave.Bucket, delta leave.Days) (leave.Days, leave.Days, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyBalance(ctx, s.db, userID, bucket, delta)
}

// applyBalance is a guarded read-modify-write in one statement. The WHERE
// clause is the server-side floor: a debit past zero affects no rows.
func applyBalance(ctx context.Context, q dbtx, userID leave.UserID, bucket leave.Bucket, delta leave.Days) (leave.Days, leave.Days, error) {
	d := delta.Float64()
	res, err := q.ExecContext(ctx, `
		UPDATE balances
		SET value = value + ?, updated_at = ?
		WHERE user_id = ? AND bucket = ? AND value + ? >= 0`,
		d, time.Now().UTC().Format(time.RFC3339), userID, bucket, d)
	if err != nil {
		return leave.ZeroDays(), leave.ZeroDays(), fmt.Errorf("failed to apply balance: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		// Either the row is missing or the guard fired.
		current, err := balance(ctx, q, userID, bucket)
		if err != nil {
			return leave.ZeroDays(), leave.ZeroDays(), err
		}
		return leave.ZeroDays(), leave.ZeroDays(), &leave.InsufficientBalanceError{
			UserID:    userID,
			Bucket:    bucket,
			Available: current,
			Requested: delta.Abs(),
		}
	}

	updated, err := balance(ctx, q, userID, bucket)
	if err != nil {
		return leave.ZeroDays(), leave.ZeroDays(), err
	}
	return updated.Sub(delta), updated, nil
}

// =============================================================================
// LEDGER ADJUSTMENTS (append-only)
// =============================================================================

func (s *Store) AppendAdjustment(ctx context.Context, a leave.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAdjustment(ctx, s.db, a)
}

func appendAdjustment(ctx context.Context, q dbtx, a leave.Adjustment) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_adjustments
		(id, user_id, actor_id, request_id, bucket, delta, old_value, new_value, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ActorID, nullString(string(a.RequestID)), a.Bucket,
		a.Delta.Float64(), a.OldValue.Float64(), a.NewValue.Float64(),
		a.Reason, a.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append adjustment: %w", err)
	}
	return nil
}

func (s *Store) AdjustmentsByUser(ctx context.Context, userID leave.UserID) ([]leave.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAdjustments(ctx, s.db, `WHERE user_id = ?`, userID)
}

func (s *Store) AdjustmentsByRequest(ctx context.Context, requestID leave.RequestID) ([]leave.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAdjustments(ctx, s.db, `WHERE request_id = ?`, requestID)
}

func queryAdjustments(ctx context.Context, q dbtx, where string, arg any) ([]leave.Adjustment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, actor_id, request_id, bucket, delta, old_value, new_value, reason, created_at
		FROM ledger_adjustments `+where+` ORDER BY created_at`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var out []leave.Adjustment
	for rows.Next() {
		var (
			a                 leave.Adjustment
			requestID         sql.NullString
			delta, oldV, newV float64
			createdAt         string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActorID, &requestID, &a.Bucket,
			&delta, &oldV, &newV, &a.Reason, &createdAt); err != nil {
			return nil, err
		}
		a.RequestID = leave.RequestID(requestID.String)
		a.Delta = leave.NewDays(delta)
		a.OldValue = leave.NewDays(oldV)
		a.NewValue = leave.NewDays(newV)
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT LOG (append-only)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e leave.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, e)
}

func appendAudit(ctx context.Context, q dbtx, e leave.AuditEntry) error {
	detailJSON, _ := json.Marshal(e.Detail)
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_entries (id, action, user_id, actor_id, request_id, detail_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.UserID, e.ActorID, nullString(string(e.RequestID)),
		string(detailJSON), e.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *Store) AuditByUser(ctx context.Context, userID leave.UserID) ([]leave.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAudit(ctx, s.db, `WHERE user_id = ?`, userID)
}

func (s *Store) AuditByRequest(ctx context.Context, requestID leave.RequestID) ([]leave.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAudit(ctx, s.db, `WHERE request_id = ?`, requestID)
}

func queryAudit(ctx context.Context, q dbtx, where string, arg any) ([]leave.AuditEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, action, user_id, actor_id, request_id, detail_json, created_at
		FROM audit_entries `+where+` ORDER BY created_at`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var out []leave.AuditEntry
	for rows.Next() {
		var (
			e          leave.AuditEntry
			requestID  sql.NullString
			detailJSON sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.ActorID, &requestID,
			&detailJSON, &createdAt); err != nil {
			return nil, err
		}
		e.RequestID = leave.RequestID(requestID.String)
		if detailJSON.Valid && detailJSON.String != "" {
			_ = json.Unmarshal([]byte(detailJSON.String), &e.Detail)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// USERS AND HOLIDAYS
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u *leave.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createUser(ctx, s.db, u)
}

func createUser(ctx context.Context, q dbtx, u *leave.User) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Role, u.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id leave.UserID) (*leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, q dbtx, id leave.UserID) (*leave.User, error) {
	var (
		u         leave.User
		createdAt string
		email     sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &email, &u.Role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Email = email.String
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUsers(ctx, s.db)
}

func listUsers(ctx context.Context, q dbtx) ([]leave.User, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, email, role, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []leave.User
	for rows.Next() {
		var (
			u         leave.User
			createdAt string
			email     sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Name, &email, &u.Role, &createdAt); err != nil {
			return nil, err
		}
		u.Email = email.String
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) AddHoliday(ctx context.Context, h leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addHoliday(ctx, s.db, h)
}

func addHoliday(ctx context.Context, q dbtx, h leave.Holiday) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO holidays (date, name) VALUES (?, ?)`, h.Date.String(), h.Name)
	if err != nil {
		return fmt.Errorf("failed to insert holiday: %w", err)
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context, from, to leave.Date) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listHolidays(ctx, s.db, from, to)
}

func listHolidays(ctx context.Context, q dbtx, from, to leave.Date) ([]leave.Holiday, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT date, name FROM holidays WHERE date >= ? AND date <= ? ORDER BY date`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var out []leave.Holiday
	for rows.Next() {
		var date, name string
		if err := rows.Scan(&date, &name); err != nil {
			return nil, err
		}
		d, err := leave.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("bad holiday date %q: %w", date, err)
		}
		out = append(out, leave.Holiday{Date: d, Name: name})
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn inside one SQL transaction. The store mutex is held for
// the duration, serializing concurrent transitions.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the transaction-scoped leave.Store view.
type txStore struct {
	q dbtx
}

var _ leave.Store = (*txStore)(nil)

func (t *txStore) CreateRequest(ctx context.Context, r *leave.Request) error {
	return createRequest(ctx, t.q, r)
}

func (t *txStore) GetRequest(ctx context.Context, id leave.RequestID) (*leave.Request, error) {
	return getRequest(ctx, t.q, id)
}

func (t *txStore) UpdateRequest(ctx context.Context, r *leave.Request) error {
	return updateRequest(ctx, t.q, r)
}

func (t *txStore) DeleteRequest(ctx context.Context, id leave.RequestID) error {
	return deleteRequest(ctx, t.q, id)
}

func (t *txStore) ListRequests(ctx context.Context, userID leave.UserID) ([]leave.Request, error) {
	return listRequests(ctx, t.q, userID)
}

func (t *txStore) Overlapping(ctx context.Context, userID leave.UserID, from, to leave.Date, statuses []leave.Status) ([]leave.Request, error) {
	return overlapping(ctx, t.q, userID, from, to, statuses)
}

func (t *txStore) Balance(ctx context.Context, userID leave.UserID, bucket leave.Bucket) (leave.Days, error) {
	return balance(ctx, t.q, userID, bucket)
}

func (t *txStore) InitBalance(ctx context.Context, userID leave.UserID, bucket leave.Bucket, value leave.Days) error {
	return initBalance(ctx, t.q, userID, bucket, value)
}

func (t *txStore) ApplyBalance(ctx context.Context, userID leave.UserID, bucket leave.Bucket, delta leave.Days) (leave.Days, leave.Days, error) {
	return applyBalance(ctx, t.q, userID, bucket, delta)
}

func (t *txStore) AppendAdjustment(ctx context.Context, a leave.Adjustment) error {
	return appendAdjustment(ctx, t.q, a)
}

func (t *txStore) AdjustmentsByUser(ctx context.Context, userID leave.UserID) ([]leave.Adjustment, error) {
	return queryAdjustments(ctx, t.q, `WHERE user_id = ?`, userID)
}

func (t *txStore) AdjustmentsByRequest(ctx context.Context, requestID leave.RequestID) ([]leave.Adjustment, error) {
	return queryAdjustments(ctx, t.q, `WHERE request_id = ?`, requestID)
}

func (t *txStore) AppendAudit(ctx context.Context, e leave.AuditEntry) error {
	return appendAudit(ctx, t.q, e)
}

func (t *txStore) AuditByUser(ctx context.Context, userID leave.UserID) ([]leave.AuditEntry, error) {
	return queryAudit(ctx, t.q, `WHERE user_id = ?`, userID)
}

func (t *txStore) AuditByRequest(ctx context.Context, requestID leave.RequestID) ([]leave.AuditEntry, error) {
	return queryAudit(ctx, t.q, `WHERE request_id = ?`, requestID)
}

func (t *txStore) CreateUser(ctx context.Context, u *leave.User) error {
	return createUser(ctx, t.q, u)
}

func (t *txStore) GetUser(ctx context.Context, id leave.UserID) (*leave.User, error) {
	return getUser(ctx, t.q, id)
}

func (t *txStore) ListUsers(ctx context.Context) ([]leave.User, error) {
	return listUsers(ctx, t.q)
}

func (t *txStore) AddHoliday(ctx context.Context, h leave.Holiday) error {
	return addHoliday(ctx, t.q, h)
}

func (t *txStore) ListHolidays(ctx context.Context, from, to leave.Date) ([]leave.Holiday, error) {
	return listHolidays(ctx, t.q, from, to)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableUser(id *leave.UserID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
