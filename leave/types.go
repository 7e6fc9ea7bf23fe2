/*
Package leave implements the leave application lifecycle and balance ledger.

PURPOSE:
  This package is the core of the HR system's one genuinely hard subsystem:
  computing how many days a leave request consumes (weekends, holidays,
  half-day sessions), validating it against a mutable per-user balance,
  driving the request through its state machine, and reconciling the
  balance on every transition while producing an immutable audit trail.

KEY CONCEPTS:
  - Date / Days:      Exact calendar and quantity arithmetic
  - Calendar:         Weekend + holiday oracle
  - ChargeableDays:   The one shared, pure day calculator
  - Ledger:           The only writer of balance values, fully audited
  - Service:          The state machine (submit/approve/reject/cancel)
  - AuditLog:         Append-only record of adjustments and transitions

DESIGN PRINCIPLES:
  1. Explicit inputs: every operation takes its actor, and time-sensitive
     validation takes an explicit today. No ambient identity or clock.
  2. Precision: decimal arithmetic for 0.5-day granularity.
  3. Atomicity: one transition = one storage transaction.
  4. Auditability: every balance change is one recorded adjustment.

SEE ALSO:
  - policy.go:  Table-driven per-category rules
  - service.go: Transition orchestration
  - ledger.go:  Balance mutation
*/
package leave

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type RequestID string
type AdjustmentID string

// =============================================================================
// ACTOR - Resolved identity performing an operation
// =============================================================================

// Role is the coarse access level attached to an actor. The core only
// consults roles through the Authorization interface; the concrete
// representation is a collaborator concern.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
)

// Actor is an already-authenticated identity. Authentication itself is out
// of scope: callers hand the core a resolved actor.
type Actor struct {
	ID   UserID
	Role Role
}

// =============================================================================
// USER
// =============================================================================

// User is the subject a leave request belongs to.
type User struct {
	ID        UserID
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// =============================================================================
// LEAVE CATEGORIES AND BUCKETS
// =============================================================================

// Category enumerates the kinds of leave a request can be filed under.
type Category string

const (
	CategoryAnnual       Category = "annual"
	CategoryPersonal     Category = "personal"
	CategorySick         Category = "sick"
	CategoryEmergency    Category = "emergency"
	CategoryMaternity    Category = "maternity"
	CategoryPaternity    Category = "paternity"
	CategoryWorkFromHome Category = "work-from-home"
	CategoryCompensatory Category = "compensatory"
)

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryAnnual, CategoryPersonal, CategorySick, CategoryEmergency,
		CategoryMaternity, CategoryPaternity, CategoryWorkFromHome,
		CategoryCompensatory,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryPolicies[c]
	return ok
}

// Bucket identifies one of the independent per-user balance counters.
type Bucket string

const (
	// BucketNone marks categories that never touch a balance.
	BucketNone Bucket = ""

	BucketGeneral      Bucket = "general"
	BucketCompensatory Bucket = "compensatory"
)

// Buckets lists the real balance buckets (excludes BucketNone).
func Buckets() []Bucket {
	return []Bucket{BucketGeneral, BucketCompensatory}
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// Status is the lifecycle state of a request. Cancellation is only reachable
// from pending; approved, rejected and cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Request is a leave application. The Service is its sole writer; once a
// request leaves pending, its chargeable days and category are frozen.
type Request struct {
	ID       RequestID
	UserID   UserID
	Category Category

	// Inclusive calendar range with optional half-day boundary markers.
	Start        Date
	End          Date
	StartSession Session
	EndSession   Session

	// Computed by ChargeableDays at submission. Immutable afterwards.
	Days Days

	Status          Status
	Reason          string
	RejectionReason string
	DocumentRef     string

	ApprovedBy *UserID
	ApprovedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Covers reports whether the request's range includes the date.
func (r *Request) Covers(d Date) bool {
	return r.Start.BeforeOrEqual(d) && d.BeforeOrEqual(r.End)
}

// =============================================================================
// LEDGER ADJUSTMENT - The audit unit of balance mutation
// =============================================================================

// Adjustment is one atomic, audited change to a balance bucket. Append-only:
// created synchronously with every balance mutation, never edited or deleted.
// RequestID is empty for adjustments without a leave request (e.g. a
// compensatory credit for logged overtime).
type Adjustment struct {
	ID        AdjustmentID
	UserID    UserID
	ActorID   UserID
	RequestID RequestID
	Bucket    Bucket
	Delta     Days
	OldValue  Days
	NewValue  Days
	Reason    string
	CreatedAt time.Time
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AuditAction names what an audit entry records.
type AuditAction string

const (
	AuditRequestSubmitted AuditAction = "request_submitted"
	AuditRequestApproved  AuditAction = "request_approved"
	AuditRequestRejected  AuditAction = "request_rejected"
	AuditRequestCancelled AuditAction = "request_cancelled"
	AuditBalanceAdjusted  AuditAction = "balance_adjusted"
	AuditDocumentAttached AuditAction = "document_attached"
)

// AuditEntry is one append-only record, keyed by the affected user and by
// the triggering request where one exists.
type AuditEntry struct {
	ID        string
	Action    AuditAction
	UserID    UserID
	ActorID   UserID
	RequestID RequestID
	Detail    map[string]string
	CreatedAt time.Time
}
