/*
errors.go - Centralized error types for the leave core

PURPOSE:
  All error kinds in one place. Callers branch with errors.Is against the
  sentinels; structured types carry the detail needed for field-level
  messages and unwrap to the matching sentinel.

ERROR KINDS (one per failure class):
  ErrInvalidRange        end date before start date
  ErrInvalidTransition   state machine precondition unmet
  ErrInsufficientBalance debit would take a balance below zero
  ErrUnauthorized        actor may not perform the operation
  ErrDocumentNotAllowed  document attached to a non-sick category
  ErrRequestNotFound     unknown request id
  ErrUserNotFound        unknown user id

PROPAGATION:
  Every validation error is raised before any mutation; a transition either
  commits completely or leaves no trace (see service.go).
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a request's end date precedes its start.
	ErrInvalidRange = errors.New("invalid range: end date before start date")

	// ErrInvalidTransition is returned when a state machine precondition is
	// unmet: wrong current status, overlapping request, advance-notice rule,
	// missing rejection reason.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInsufficientBalance is returned when a debit would push a balance
	// bucket below zero. The balance is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnauthorized is returned when the actor may not perform the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDocumentNotAllowed is returned when attaching a document to a
	// category that does not accept one.
	ErrDocumentNotAllowed = errors.New("document not allowed for category")

	// ErrRequestNotFound is returned for an unknown request id.
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrUserNotFound is returned for an unknown user id.
	ErrUserNotFound = errors.New("user not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RangeError reports an inverted date range.
type RangeError struct {
	Start Date
	End   Date
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range: end %s before start %s", e.End, e.Start)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// InsufficientBalanceError reports a balance shortage on a bucket.
type InsufficientBalanceError struct {
	UserID    UserID
	Bucket    Bucket
	Available Days
	Requested Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %s: available %s, requested %s",
		e.Bucket, e.UserID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// TransitionError reports a failed state machine precondition.
type TransitionError struct {
	RequestID RequestID
	From      Status
	Action    string
	Reason    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s (status %s): %s",
		e.Action, e.RequestID, e.From, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// OverlapError reports a conflicting pending/approved request.
type OverlapError struct {
	UserID     UserID
	Existing   RequestID
	SharedDate Date
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("request overlaps existing request %s for %s on %s",
		e.Existing, e.UserID, e.SharedDate)
}

func (e *OverlapError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrDocumentNotAllowed)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) || errors.Is(err, ErrUserNotFound)
}
