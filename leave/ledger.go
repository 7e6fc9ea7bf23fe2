/*
ledger.go - The balance ledger

PURPOSE:
  The Ledger is the single writer of balance values. Every mutation goes
  through Adjust, which performs the guarded read-modify-write, records the
  append-only Adjustment (actor, reason, before/after snapshot), and writes
  the matching audit entry — all against the same Store, so that when the
  surrounding transaction commits or rolls back, the three writes move
  together.

INVARIANTS:
  1. newValue == oldValue + delta, enforced by the store's atomic apply.
  2. newValue >= 0. A debit past zero fails with InsufficientBalanceError
     and leaves the balance untouched — never silently clamped.
  3. Every change is attributable: adjustments carry actor and reason.

CORRECTIONS:
  Mistakes are corrected by a compensating adjustment with its own reason,
  never by editing history.

SEE ALSO:
  - store.go:   ApplyBalance serialization contract
  - service.go: The transition-driven call sites
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger mutates balances through a Store. Construct one per transaction
// scope: inside a WithTx callback, wrap the transactional Store view.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger creates a Ledger over the given store view.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// WithClock stamps adjustments and audit entries from now instead of the
// wall clock. The Service threads its own clock through here so the whole
// transition carries one consistent, test-controllable timestamp source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Adjust applies a signed delta to a user's bucket and records the
// adjustment and its audit entry. actorID says who caused the change;
// requestID is empty for request-less adjustments such as overtime credits.
func (l *Ledger) Adjust(ctx context.Context, userID UserID, bucket Bucket, delta Days, actorID UserID, requestID RequestID, reason string) (Adjustment, error) {
	if bucket == BucketNone {
		return Adjustment{}, fmt.Errorf("ledger: adjust on empty bucket for %s", userID)
	}

	old, updated, err := l.store.ApplyBalance(ctx, userID, bucket, delta)
	if err != nil {
		return Adjustment{}, err
	}

	adj := Adjustment{
		ID:        AdjustmentID(uuid.NewString()),
		UserID:    userID,
		ActorID:   actorID,
		RequestID: requestID,
		Bucket:    bucket,
		Delta:     delta,
		OldValue:  old,
		NewValue:  updated,
		Reason:    reason,
		CreatedAt: l.now().UTC(),
	}
	if err := l.store.AppendAdjustment(ctx, adj); err != nil {
		return Adjustment{}, fmt.Errorf("ledger: append adjustment: %w", err)
	}

	entry := AuditEntry{
		ID:        uuid.NewString(),
		Action:    AuditBalanceAdjusted,
		UserID:    userID,
		ActorID:   actorID,
		RequestID: requestID,
		Detail: map[string]string{
			"bucket":    string(bucket),
			"delta":     delta.String(),
			"old_value": old.String(),
			"new_value": updated.String(),
			"reason":    reason,
		},
		CreatedAt: adj.CreatedAt,
	}
	if err := l.store.AppendAudit(ctx, entry); err != nil {
		return Adjustment{}, fmt.Errorf("ledger: append audit: %w", err)
	}

	return adj, nil
}

// Balance reads the current value of a bucket.
func (l *Ledger) Balance(ctx context.Context, userID UserID, bucket Bucket) (Days, error) {
	return l.store.Balance(ctx, userID, bucket)
}

// Balances reads every bucket for a user.
func (l *Ledger) Balances(ctx context.Context, userID UserID) (map[Bucket]Days, error) {
	out := make(map[Bucket]Days, len(Buckets()))
	for _, b := range Buckets() {
		v, err := l.store.Balance(ctx, userID, b)
		if err != nil {
			return nil, err
		}
		out[b] = v
	}
	return out, nil
}
