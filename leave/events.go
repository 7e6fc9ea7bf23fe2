package leave

import (
	"context"
	"time"
)

// =============================================================================
// TRANSITION EVENTS - Emitted after a successful commit
// =============================================================================

// EventType names a completed state transition.
type EventType string

const (
	EventLeaveSubmitted EventType = "leave_submitted"
	EventLeaveApproved  EventType = "leave_approved"
	EventLeaveRejected  EventType = "leave_rejected"
	EventLeaveCancelled EventType = "leave_cancelled"
)

// Event describes a committed transition. Events are emitted only after the
// storage transaction commits, so a consumer never observes a transition
// that was rolled back.
type Event struct {
	Type    EventType
	Request Request
	Actor   Actor
	At      time.Time
}

// Notifier receives transition events. Delivery is fire-and-forget: the
// Service calls Notify after commit and ignores the outcome entirely, so a
// broken notification pipeline can never fail or roll back a transition.
// Implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}

// =============================================================================
// DOCUMENT STORAGE - Collaborator for sick-leave attachments
// =============================================================================

// DocumentStore persists attached documents. Used only for categories whose
// policy allows a document.
type DocumentStore interface {
	// StoreDocument writes the bytes under the given path and returns the
	// reference to record on the request.
	StoreDocument(ctx context.Context, data []byte, path string) (string, error)

	DeleteDocument(ctx context.Context, ref string) error
}
