/*
store.go - Persistence interfaces for the leave core

PURPOSE:
  Defines the contract between the domain logic and storage. The core is
  written against these interfaces; implementations are a transactional
  record store (store/sqlite) and an in-memory store for tests (leave/store).

ATOMICITY CONTRACT:
  Every state transition (validate -> status -> balance -> audit) runs
  inside one WithTx call. If the callback returns an error, nothing it did
  is visible afterwards: no audit entry for a balance change that didn't
  happen, no status change without its balance effect.

SERIALIZATION CONTRACT:
  ApplyBalance must be serialized per (user, bucket) and must enforce the
  non-negative floor server-side: two concurrent adjustments may never
  interleave into an incorrect total or a negative balance.

APPEND-ONLY TABLES:
  Adjustments and audit entries are append-only. The interfaces expose no
  update or delete for them. Requests may be deleted, but only by the
  Service and only while pending (self-service cancellation).
*/
package leave

import "context"

// =============================================================================
// STORE - Everything one transition needs
// =============================================================================

// Store bundles the record access a single transition touches. A Store
// handed to a WithTx callback is scoped to that transaction.
type Store interface {
	RequestStore
	BalanceStore
	AdjustmentStore
	AuditLog
	UserStore
	HolidayStore
}

// TxStore is a Store that can run callbacks atomically.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestStore persists leave requests.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *Request) error
	GetRequest(ctx context.Context, id RequestID) (*Request, error)
	UpdateRequest(ctx context.Context, r *Request) error

	// DeleteRequest removes a request record. Only the Service calls this,
	// and only for a still-pending request being cancelled.
	DeleteRequest(ctx context.Context, id RequestID) error

	ListRequests(ctx context.Context, userID UserID) ([]Request, error)

	// Overlapping returns the user's requests in the given statuses whose
	// date range intersects [from, to].
	Overlapping(ctx context.Context, userID UserID, from, to Date, statuses []Status) ([]Request, error)
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceStore holds the per-user, per-bucket counters. No component may
// change a balance except through Ledger.Adjust, which delegates here.
type BalanceStore interface {
	// Balance returns the current value. ErrUserNotFound if the bucket row
	// was never initialized.
	Balance(ctx context.Context, userID UserID, bucket Bucket) (Days, error)

	// InitBalance creates the bucket row with the given value. Used once at
	// user creation.
	InitBalance(ctx context.Context, userID UserID, bucket Bucket, value Days) error

	// ApplyBalance atomically adds delta and returns the old and new values.
	// Fails with ErrInsufficientBalance, leaving the value untouched, if the
	// result would be negative. Serialized per (user, bucket).
	ApplyBalance(ctx context.Context, userID UserID, bucket Bucket, delta Days) (old, updated Days, err error)
}

// =============================================================================
// ADJUSTMENTS (append-only)
// =============================================================================

// AdjustmentStore persists ledger adjustments. Append-only.
type AdjustmentStore interface {
	AppendAdjustment(ctx context.Context, a Adjustment) error
	AdjustmentsByUser(ctx context.Context, userID UserID) ([]Adjustment, error)
	AdjustmentsByRequest(ctx context.Context, requestID RequestID) ([]Adjustment, error)
}

// =============================================================================
// AUDIT LOG (append-only)
// =============================================================================

// AuditLog stores audit entries, ordered by time per user. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	AuditByUser(ctx context.Context, userID UserID) ([]AuditEntry, error)
	AuditByRequest(ctx context.Context, requestID RequestID) ([]AuditEntry, error)
}

// =============================================================================
// USERS AND HOLIDAYS - Supporting records outside the transition path
// =============================================================================

// UserStore persists users. Used by the bootstrap flow, not by transitions.
// Part of Store so that user creation and its opening balances commit
// together.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id UserID) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// HolidayStore persists the holiday table feeding the Calendar.
type HolidayStore interface {
	AddHoliday(ctx context.Context, h Holiday) error
	ListHolidays(ctx context.Context, from, to Date) ([]Holiday, error)
}
