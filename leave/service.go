/*
service.go - The leave request state machine

PURPOSE:
  Owns a request's lifecycle (pending -> approved/rejected/cancelled),
  orchestrates balance adjustments as side effects of transitions, and
  validates every precondition before any mutation.

STATES AND TRANSITIONS:

        submit           approve
  (new) ------> pending ---------> approved
                  |  |
                  |  |  reject
                  |  +----------> rejected
                  |     cancel
                  +-------------> cancelled (record deleted)

  Approved, rejected and cancelled are terminal. Cancellation is
  self-service and only reachable from pending.

RESERVATION MODEL:
  Balance-bearing categories are debited at submission, not approval, so a
  pending request already holds its days. Approval then changes nothing on
  the balance; reject and cancel credit the days back.

  Compensatory leave is the one exception: its bucket is also credited
  automatically when overtime is logged, so the debit is deferred to
  approval time. Rejecting a pending compensatory request credits nothing
  because nothing was taken.

ATOMICITY:
  Each transition runs inside one Store transaction. Notification dispatch
  happens after commit and can never fail a transition.

EXPLICIT TIME AND IDENTITY:
  Submit takes an explicit today for the advance-notice rule, and every
  operation takes the acting identity. The core has no ambient clock or
  current-user state, which keeps it deterministic under test.

SEE ALSO:
  - policy.go:     Per-category rules the machine consults
  - ledger.go:     Balance mutation
  - calculator.go: Chargeable-day computation
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service drives leave requests through their lifecycle. It is the sole
// writer of Request records.
type Service struct {
	Store    TxStore
	Authz    Authorization
	Docs     DocumentStore
	Notifier Notifier

	// Now stamps created/updated times. The advance-notice rule never uses
	// it; validation time comes in as an explicit parameter.
	Now func() time.Time
}

// NewService creates a Service with a no-op notifier.
func NewService(store TxStore, authz Authorization) *Service {
	return &Service{
		Store:    store,
		Authz:    authz,
		Notifier: NopNotifier{},
		Now:      time.Now,
	}
}

// SubmitInput is the intent to file a leave request.
type SubmitInput struct {
	UserID       UserID
	Category     Category
	Start        Date
	End          Date
	StartSession Session
	EndSession   Session
	Reason       string
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates and files a leave request. On success the request is
// persisted in pending and, for on-submit categories, the chargeable days
// are already debited from the applicable bucket.
//
// today anchors the advance-notice rule and must be the caller's current
// calendar date.
func (s *Service) Submit(ctx context.Context, actor Actor, today Date, in SubmitInput) (*Request, error) {
	if !in.Category.Valid() {
		return nil, fmt.Errorf("unknown leave category %q: %w", in.Category, ErrInvalidTransition)
	}
	if !in.StartSession.Valid() || !in.EndSession.Valid() {
		return nil, fmt.Errorf("invalid session marker: %w", ErrInvalidTransition)
	}
	if in.End.Before(in.Start) {
		return nil, &RangeError{Start: in.Start, End: in.End}
	}

	// Non-privileged actors only file for themselves.
	onBehalf := actor.ID != in.UserID
	if onBehalf && !s.Authz.IsPrivileged(actor) {
		return nil, fmt.Errorf("%w: %s cannot request leave for %s", ErrUnauthorized, actor.ID, in.UserID)
	}

	// Advance notice, waived when a privileged actor files on behalf.
	pol := PolicyFor(in.Category)
	if pol.NoticeDays > 0 && !(onBehalf && s.Authz.IsPrivileged(actor)) {
		if in.Start.Before(today.AddDays(pol.NoticeDays)) {
			return nil, &TransitionError{
				Action: "submit",
				Reason: fmt.Sprintf("%s leave requires %d days notice (start %s, today %s)",
					in.Category, pol.NoticeDays, in.Start, today),
			}
		}
	}

	var req *Request
	err := s.Store.WithTx(ctx, func(tx Store) error {
		holidays, err := tx.ListHolidays(ctx, in.Start, in.End)
		if err != nil {
			return fmt.Errorf("load holidays: %w", err)
		}
		cal := NewCalendar(holidays)

		// Zero-day requests (all-holiday ranges) are pointless but allowed.
		days, err := ChargeableDays(cal, in.Start, in.End, in.StartSession, in.EndSession)
		if err != nil {
			return err
		}

		if err := s.checkOverlap(ctx, tx, in); err != nil {
			return err
		}

		ledger := s.ledger(tx)

		// Balance sufficiency applies only to balance-bearing categories,
		// and compensatory is checked here even though its debit waits for
		// approval.
		if pol.Bucket != BucketNone {
			available, err := ledger.Balance(ctx, in.UserID, pol.Bucket)
			if err != nil {
				return err
			}
			if available.LessThan(days) {
				return &InsufficientBalanceError{
					UserID:    in.UserID,
					Bucket:    pol.Bucket,
					Available: available,
					Requested: days,
				}
			}
		}

		now := s.Now().UTC()
		req = &Request{
			ID:           RequestID(uuid.NewString()),
			UserID:       in.UserID,
			Category:     in.Category,
			Start:        in.Start,
			End:          in.End,
			StartSession: in.StartSession,
			EndSession:   in.EndSession,
			Days:         days,
			Status:       StatusPending,
			Reason:       in.Reason,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.CreateRequest(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		if pol.Debit == DebitOnSubmit && days.IsPositive() {
			if _, err := ledger.Adjust(ctx, in.UserID, pol.Bucket, days.Neg(), actor.ID, req.ID, "leave requested"); err != nil {
				return err
			}
		}

		return s.audit(ctx, tx, AuditRequestSubmitted, actor, req, map[string]string{
			"category": string(in.Category),
			"start":    in.Start.String(),
			"end":      in.End.String(),
			"days":     days.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, EventLeaveSubmitted, actor, req)
	return req, nil
}

// =============================================================================
// APPROVE
// =============================================================================

// Approve moves a pending request to approved. For on-submit categories the
// balance was already debited and does not move again; compensatory leave
// is debited here instead.
func (s *Service) Approve(ctx context.Context, actor Actor, id RequestID) (*Request, error) {
	var req *Request
	err := s.Store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = s.pendingRequest(ctx, tx, id, "approve")
		if err != nil {
			return err
		}
		if !s.Authz.CanApprove(actor, req) {
			return fmt.Errorf("%w: %s cannot approve request %s", ErrUnauthorized, actor.ID, id)
		}

		pol := PolicyFor(req.Category)
		ledger := s.ledger(tx)
		if pol.Debit == DebitOnApprove && req.Days.IsPositive() {
			if _, err := ledger.Adjust(ctx, req.UserID, pol.Bucket, req.Days.Neg(), actor.ID, req.ID, "leave approved"); err != nil {
				return err
			}
		}

		now := s.Now().UTC()
		req.Status = StatusApproved
		req.ApprovedBy = &actor.ID
		req.ApprovedAt = &now
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}

		detail := map[string]string{"days": req.Days.String()}
		s.snapshotBalance(ctx, ledger, req, pol, detail)
		return s.audit(ctx, tx, AuditRequestApproved, actor, req, detail)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, EventLeaveApproved, actor, req)
	return req, nil
}

// =============================================================================
// REJECT
// =============================================================================

// Reject moves a pending request to rejected and credits back whatever the
// submission debited. A non-empty reason is required.
func (s *Service) Reject(ctx context.Context, actor Actor, id RequestID, reason string) (*Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &TransitionError{RequestID: id, Action: "reject", Reason: "rejection reason required"}
	}

	var req *Request
	err := s.Store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = s.pendingRequest(ctx, tx, id, "reject")
		if err != nil {
			return err
		}
		if !s.Authz.CanApprove(actor, req) {
			return fmt.Errorf("%w: %s cannot reject request %s", ErrUnauthorized, actor.ID, id)
		}

		pol := PolicyFor(req.Category)
		ledger := s.ledger(tx)
		// Compensatory debits at approval, so a rejected pending request has
		// nothing to restore.
		if pol.Debit == DebitOnSubmit && req.Days.IsPositive() {
			if _, err := ledger.Adjust(ctx, req.UserID, pol.Bucket, req.Days, actor.ID, req.ID, "leave rejected: "+reason); err != nil {
				return err
			}
		}

		req.Status = StatusRejected
		req.RejectionReason = reason
		req.UpdatedAt = s.Now().UTC()
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}

		detail := map[string]string{"rejection_reason": reason, "days": req.Days.String()}
		s.snapshotBalance(ctx, ledger, req, pol, detail)
		return s.audit(ctx, tx, AuditRequestRejected, actor, req, detail)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, EventLeaveRejected, actor, req)
	return req, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel is the owner's self-service withdrawal of a still-pending request:
// the balance is restored exactly as a rejection would, and the request
// record itself is deleted. Deletion is allowed only from pending.
func (s *Service) Cancel(ctx context.Context, actor Actor, id RequestID) error {
	var req *Request
	err := s.Store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = s.pendingRequest(ctx, tx, id, "cancel")
		if err != nil {
			return err
		}
		if actor.ID != req.UserID {
			return fmt.Errorf("%w: only the owner may cancel request %s", ErrUnauthorized, id)
		}

		pol := PolicyFor(req.Category)
		ledger := s.ledger(tx)
		if pol.Debit == DebitOnSubmit && req.Days.IsPositive() {
			if _, err := ledger.Adjust(ctx, req.UserID, pol.Bucket, req.Days, actor.ID, req.ID, "leave cancelled"); err != nil {
				return err
			}
		}

		if err := tx.DeleteRequest(ctx, req.ID); err != nil {
			return fmt.Errorf("delete request: %w", err)
		}
		req.Status = StatusCancelled
		req.UpdatedAt = s.Now().UTC()

		detail := map[string]string{"note": "cancelled by user", "days": req.Days.String()}
		s.snapshotBalance(ctx, ledger, req, pol, detail)
		return s.audit(ctx, tx, AuditRequestCancelled, actor, req, detail)
	})
	if err != nil {
		return err
	}

	// Best-effort, like notification: the cancellation already committed,
	// and an orphaned file is not worth failing it over.
	if req.DocumentRef != "" && s.Docs != nil {
		_ = s.Docs.DeleteDocument(ctx, req.DocumentRef)
	}

	s.notify(ctx, EventLeaveCancelled, actor, req)
	return nil
}

// =============================================================================
// DOCUMENT ASSOCIATION
// =============================================================================

// AttachDocument stores a supporting document and records its reference on
// the request. The category rule (only sick leave carries a document) is
// enforced here, at the point of association, not at submission.
func (s *Service) AttachDocument(ctx context.Context, actor Actor, id RequestID, data []byte, filename string) (*Request, error) {
	if s.Docs == nil {
		return nil, fmt.Errorf("no document store configured")
	}

	var req *Request
	err := s.Store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if !PolicyFor(req.Category).AllowsDocument {
			return fmt.Errorf("%w: %s", ErrDocumentNotAllowed, req.Category)
		}
		if actor.ID != req.UserID && !s.Authz.IsPrivileged(actor) {
			return fmt.Errorf("%w: %s cannot attach to request %s", ErrUnauthorized, actor.ID, id)
		}

		ref, err := s.Docs.StoreDocument(ctx, data, fmt.Sprintf("leave/%s/%s", req.ID, filename))
		if err != nil {
			return fmt.Errorf("store document: %w", err)
		}

		req.DocumentRef = ref
		req.UpdatedAt = s.Now().UTC()
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}

		return s.audit(ctx, tx, AuditDocumentAttached, actor, req, map[string]string{"document": ref})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// =============================================================================
// USER BOOTSTRAP AND OVERTIME CREDIT
// =============================================================================

// CreateUser persists a user and seeds the policy-defined opening balances
// through the ledger, so even the initial grant is an audited adjustment.
func (s *Service) CreateUser(ctx context.Context, actor Actor, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.Now().UTC()
	}
	return s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		ledger := s.ledger(tx)
		for bucket, opening := range DefaultOpeningBalances() {
			if err := tx.InitBalance(ctx, u.ID, bucket, ZeroDays()); err != nil {
				return err
			}
			if opening.IsPositive() {
				if _, err := ledger.Adjust(ctx, u.ID, bucket, opening, actor.ID, "", "opening balance"); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// CreditOvertime credits the compensatory bucket for logged overtime or
// weekend work. Privileged actors only; there is no leave request behind
// the adjustment.
func (s *Service) CreditOvertime(ctx context.Context, actor Actor, userID UserID, days Days, reason string) (Adjustment, error) {
	if !s.Authz.IsPrivileged(actor) {
		return Adjustment{}, fmt.Errorf("%w: %s cannot credit overtime", ErrUnauthorized, actor.ID)
	}
	if !days.IsPositive() {
		return Adjustment{}, fmt.Errorf("overtime credit must be positive, got %s: %w", days, ErrInvalidTransition)
	}
	if strings.TrimSpace(reason) == "" {
		reason = "overtime credit"
	}

	var adj Adjustment
	err := s.Store.WithTx(ctx, func(tx Store) error {
		var err error
		adj, err = s.ledger(tx).Adjust(ctx, userID, BucketCompensatory, days, actor.ID, "", reason)
		return err
	})
	return adj, err
}

// =============================================================================
// READ PATHS
// =============================================================================

func (s *Service) Request(ctx context.Context, id RequestID) (*Request, error) {
	return s.Store.GetRequest(ctx, id)
}

func (s *Service) Requests(ctx context.Context, userID UserID) ([]Request, error) {
	return s.Store.ListRequests(ctx, userID)
}

func (s *Service) Balances(ctx context.Context, userID UserID) (map[Bucket]Days, error) {
	return s.ledger(s.Store).Balances(ctx, userID)
}

func (s *Service) AuditByUser(ctx context.Context, userID UserID) ([]AuditEntry, error) {
	return s.Store.AuditByUser(ctx, userID)
}

func (s *Service) AuditByRequest(ctx context.Context, id RequestID) ([]AuditEntry, error) {
	return s.Store.AuditByRequest(ctx, id)
}

func (s *Service) AdjustmentsByUser(ctx context.Context, userID UserID) ([]Adjustment, error) {
	return s.Store.AdjustmentsByUser(ctx, userID)
}

func (s *Service) User(ctx context.Context, id UserID) (*User, error) {
	return s.Store.GetUser(ctx, id)
}

func (s *Service) Users(ctx context.Context) ([]User, error) {
	return s.Store.ListUsers(ctx)
}

func (s *Service) Holidays(ctx context.Context, from, to Date) ([]Holiday, error) {
	return s.Store.ListHolidays(ctx, from, to)
}

// AddHoliday records a holiday in the calendar table. Privileged actors
// only; already-submitted requests keep the day count computed at their
// submission time.
func (s *Service) AddHoliday(ctx context.Context, actor Actor, h Holiday) error {
	if !s.Authz.IsPrivileged(actor) {
		return fmt.Errorf("%w: %s cannot manage holidays", ErrUnauthorized, actor.ID)
	}
	return s.Store.AddHoliday(ctx, h)
}

// =============================================================================
// INTERNALS
// =============================================================================

// ledger wraps a store view with the service clock, so adjustments and
// audit entries carry the same timestamp source as the requests they
// accompany.
func (s *Service) ledger(st Store) *Ledger {
	return NewLedger(st).WithClock(s.Now)
}

// pendingRequest loads a request and verifies it is still pending.
func (s *Service) pendingRequest(ctx context.Context, tx Store, id RequestID, action string) (*Request, error) {
	req, err := tx.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &TransitionError{
			RequestID: id,
			From:      req.Status,
			Action:    action,
			Reason:    "request is not pending",
		}
	}
	return req, nil
}

// checkOverlap rejects a submission whose days collide with an existing
// pending or approved request. Two half-day requests may share a calendar
// day as long as they cover different halves.
func (s *Service) checkOverlap(ctx context.Context, tx Store, in SubmitInput) error {
	existing, err := tx.Overlapping(ctx, in.UserID, in.Start, in.End,
		[]Status{StatusPending, StatusApproved})
	if err != nil {
		return fmt.Errorf("overlap query: %w", err)
	}

	for i := range existing {
		ex := &existing[i]
		from := maxDate(in.Start, ex.Start)
		to := minDate(in.End, ex.End)
		for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
			mine := coverageOn(d, in.Start, in.End, in.StartSession, in.EndSession)
			theirs := coverageOn(d, ex.Start, ex.End, ex.StartSession, ex.EndSession)
			if coversConflict(mine, theirs) {
				return &OverlapError{UserID: in.UserID, Existing: ex.ID, SharedDate: d}
			}
		}
	}
	return nil
}

// dayCover is which part of a calendar day a request occupies.
type dayCover int

const (
	coverFull dayCover = iota
	coverMorning
	coverAfternoon
)

// coverageOn resolves the session markers into the part of day d a request
// spanning [start, end] occupies. Mirrors the calculator's charging rules:
// whatever is charged as half a day covers half the day.
func coverageOn(d, start, end Date, startSession, endSession Session) dayCover {
	switch {
	case start.Equal(end):
		// Single-day request.
		switch {
		case startSession == SessionNone && endSession == SessionNone:
			return coverFull
		case startSession != SessionNone && endSession != SessionNone && startSession != endSession:
			return coverFull
		case startSession == SessionMorning || endSession == SessionMorning:
			return coverMorning
		default:
			return coverAfternoon
		}
	case d.Equal(start):
		if startSession == SessionAfternoon {
			return coverAfternoon
		}
		return coverFull
	case d.Equal(end):
		if endSession == SessionMorning {
			return coverMorning
		}
		return coverFull
	default:
		return coverFull
	}
}

func coversConflict(a, b dayCover) bool {
	if a == coverFull || b == coverFull {
		return true
	}
	return a == b
}

func maxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

// snapshotBalance records the post-transition bucket value in the audit
// detail for balance-bearing categories. Best-effort: a read failure here
// must not fail the transition, the authoritative record is the adjustment.
func (s *Service) snapshotBalance(ctx context.Context, ledger *Ledger, req *Request, pol CategoryPolicy, detail map[string]string) {
	if pol.Bucket == BucketNone {
		return
	}
	if v, err := ledger.Balance(ctx, req.UserID, pol.Bucket); err == nil {
		detail["balance"] = v.String()
		detail["bucket"] = string(pol.Bucket)
	}
}

func (s *Service) audit(ctx context.Context, tx Store, action AuditAction, actor Actor, req *Request, detail map[string]string) error {
	return tx.AppendAudit(ctx, AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		UserID:    req.UserID,
		ActorID:   actor.ID,
		RequestID: req.ID,
		Detail:    detail,
		CreatedAt: s.Now().UTC(),
	})
}

func (s *Service) notify(ctx context.Context, t EventType, actor Actor, req *Request) {
	if s.Notifier == nil || req == nil {
		return
	}
	s.Notifier.Notify(ctx, Event{Type: t, Request: *req, Actor: actor, At: s.Now().UTC()})
}
