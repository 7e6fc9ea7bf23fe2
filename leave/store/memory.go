// Package store provides an in-memory implementation of the leave storage
// interfaces, for tests and development. The production implementation
// lives in store/sqlite.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory implements leave.TxStore in memory. A single mutex serializes all
// writes, which trivially satisfies the per-(user, bucket) serialization
// contract; WithTx simulates atomicity with a snapshot restored on error.
type Memory struct {
	mu          sync.RWMutex
	requests    map[leave.RequestID]leave.Request
	balances    map[balanceKey]leave.Days
	adjustments []leave.Adjustment
	audits      []leave.AuditEntry
	users       map[leave.UserID]leave.User
	holidays    []leave.Holiday
}

type balanceKey struct {
	UserID leave.UserID
	Bucket leave.Bucket
}

func NewMemory() *Memory {
	return &Memory{
		requests: make(map[leave.RequestID]leave.Request),
		balances: make(map[balanceKey]leave.Days),
		users:    make(map[leave.UserID]leave.User),
	}
}

var _ leave.TxStore = (*Memory)(nil)

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) CreateRequest(_ context.Context, r *leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRequestLocked(r)
}

func (m *Memory) createRequestLocked(r *leave.Request) error {
	m.requests[r.ID] = *r
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id leave.RequestID) (*leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRequestLocked(id)
}

func (m *Memory) getRequestLocked(id leave.RequestID) (*leave.Request, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	return &r, nil
}

func (m *Memory) UpdateRequest(_ context.Context, r *leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRequestLocked(r)
}

func (m *Memory) updateRequestLocked(r *leave.Request) error {
	if _, ok := m.requests[r.ID]; !ok {
		return leave.ErrRequestNotFound
	}
	m.requests[r.ID] = *r
	return nil
}

func (m *Memory) DeleteRequest(_ context.Context, id leave.RequestID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteRequestLocked(id)
}

func (m *Memory) deleteRequestLocked(id leave.RequestID) error {
	if _, ok := m.requests[id]; !ok {
		return leave.ErrRequestNotFound
	}
	delete(m.requests, id)
	return nil
}

func (m *Memory) ListRequests(_ context.Context, userID leave.UserID) ([]leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRequestsLocked(userID), nil
}

func (m *Memory) listRequestsLocked(userID leave.UserID) []leave.Request {
	var out []leave.Request
	for _, r := range m.requests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Memory) Overlapping(_ context.Context, userID leave.UserID, from, to leave.Date, statuses []leave.Status) ([]leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlappingLocked(userID, from, to, statuses), nil
}

func (m *Memory) overlappingLocked(userID leave.UserID, from, to leave.Date, statuses []leave.Status) []leave.Request {
	wanted := make(map[leave.Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	var out []leave.Request
	for _, r := range m.requests {
		if r.UserID != userID || !wanted[r.Status] {
			continue
		}
		if r.Start.BeforeOrEqual(to) && from.BeforeOrEqual(r.End) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// =============================================================================
// BALANCES
// =============================================================================

func (m *Memory) Balance(_ context.Context, userID leave.UserID, bucket leave.Bucket) (leave.Days, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balanceLocked(userID, bucket)
}

func (m *Memory) balanceLocked(userID leave.UserID, bucket leave.Bucket) (leave.Days, error) {
	v, ok := m.balances[balanceKey{UserID: userID, Bucket: bucket}]
	if !ok {
		return leave.ZeroDays(), leave.ErrUserNotFound
	}
	return v, nil
}

func (m *Memory) InitBalance(_ context.Context, userID leave.UserID, bucket leave.Bucket, value leave.Days) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initBalanceLocked(userID, bucket, value)
}

func (m *Memory) initBalanceLocked(userID leave.UserID, bucket leave.Bucket, value leave.Days) error {
	m.balances[balanceKey{UserID: userID, Bucket: bucket}] = value
	return nil
}

func (m *Memory) ApplyBalance(_ context.Context, userID leave.UserID, bucket leave.Bucket, delta leave.Days) (leave.Days, leave.Days, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyBalanceLocked(userID, bucket, delta)
}

func (m *Memory) applyBalanceLocked(userID leave.UserID, bucket leave.Bucket, delta leave.Days) (leave.Days, leave.Days, error) {
	key := balanceKey{UserID: userID, Bucket: bucket}
	old, ok := m.balances[key]
	if !ok {
		return leave.ZeroDays(), leave.ZeroDays(), leave.ErrUserNotFound
	}
	updated := old.Add(delta)
	if updated.IsNegative() {
		return leave.ZeroDays(), leave.ZeroDays(), &leave.InsufficientBalanceError{
			UserID:    userID,
			Bucket:    bucket,
			Available: old,
			Requested: delta.Abs(),
		}
	}
	m.balances[key] = updated
	return old, updated, nil
}

// =============================================================================
// ADJUSTMENTS (append-only)
// =============================================================================

func (m *Memory) AppendAdjustment(_ context.Context, a leave.Adjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments = append(m.adjustments, a)
	return nil
}

func (m *Memory) AdjustmentsByUser(_ context.Context, userID leave.UserID) ([]leave.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Adjustment
	for _, a := range m.adjustments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) AdjustmentsByRequest(_ context.Context, requestID leave.RequestID) ([]leave.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Adjustment
	for _, a := range m.adjustments {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

// =============================================================================
// AUDIT (append-only)
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, e leave.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, e)
	return nil
}

func (m *Memory) AuditByUser(_ context.Context, userID leave.UserID) ([]leave.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.AuditEntry
	for _, e := range m.audits {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) AuditByRequest(_ context.Context, requestID leave.RequestID) ([]leave.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.AuditEntry
	for _, e := range m.audits {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// USERS AND HOLIDAYS
// =============================================================================

func (m *Memory) CreateUser(_ context.Context, u *leave.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id leave.UserID) (*leave.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, leave.ErrUserNotFound
	}
	return &u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]leave.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AddHoliday(_ context.Context, h leave.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, h)
	return nil
}

func (m *Memory) ListHolidays(_ context.Context, from, to leave.Date) ([]leave.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Holiday
	for _, h := range m.holidays {
		if from.BeforeOrEqual(h.Date) && h.Date.BeforeOrEqual(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback on error
// =============================================================================

// WithTx executes fn atomically. The mutex is held for the whole callback,
// and state is restored from a snapshot when fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	requests    map[leave.RequestID]leave.Request
	balances    map[balanceKey]leave.Days
	adjustments []leave.Adjustment
	audits      []leave.AuditEntry
	users       map[leave.UserID]leave.User
	holidays    []leave.Holiday
}

func (m *Memory) snapshot() memorySnapshot {
	snap := memorySnapshot{
		requests:    make(map[leave.RequestID]leave.Request, len(m.requests)),
		balances:    make(map[balanceKey]leave.Days, len(m.balances)),
		users:       make(map[leave.UserID]leave.User, len(m.users)),
		adjustments: append([]leave.Adjustment(nil), m.adjustments...),
		audits:      append([]leave.AuditEntry(nil), m.audits...),
		holidays:    append([]leave.Holiday(nil), m.holidays...),
	}
	for k, v := range m.requests {
		snap.requests[k] = v
	}
	for k, v := range m.balances {
		snap.balances[k] = v
	}
	for k, v := range m.users {
		snap.users[k] = v
	}
	return snap
}

func (m *Memory) restore(s memorySnapshot) {
	m.requests = s.requests
	m.balances = s.balances
	m.adjustments = s.adjustments
	m.audits = s.audits
	m.users = s.users
	m.holidays = s.holidays
}

// txView routes a transaction callback to the already-locked parent.
type txView struct {
	parent *Memory
}

var _ leave.Store = (*txView)(nil)

func (v *txView) CreateRequest(_ context.Context, r *leave.Request) error {
	return v.parent.createRequestLocked(r)
}

func (v *txView) GetRequest(_ context.Context, id leave.RequestID) (*leave.Request, error) {
	return v.parent.getRequestLocked(id)
}

func (v *txView) UpdateRequest(_ context.Context, r *leave.Request) error {
	return v.parent.updateRequestLocked(r)
}

func (v *txView) DeleteRequest(_ context.Context, id leave.RequestID) error {
	return v.parent.deleteRequestLocked(id)
}

func (v *txView) ListRequests(_ context.Context, userID leave.UserID) ([]leave.Request, error) {
	return v.parent.listRequestsLocked(userID), nil
}

func (v *txView) Overlapping(_ context.Context, userID leave.UserID, from, to leave.Date, statuses []leave.Status) ([]leave.Request, error) {
	return v.parent.overlappingLocked(userID, from, to, statuses), nil
}

func (v *txView) Balance(_ context.Context, userID leave.UserID, bucket leave.Bucket) (leave.Days, error) {
	return v.parent.balanceLocked(userID, bucket)
}

func (v *txView) InitBalance(_ context.Context, userID leave.UserID, bucket leave.Bucket, value leave.Days) error {
	return v.parent.initBalanceLocked(userID, bucket, value)
}

func (v *txView) ApplyBalance(_ context.Context, userID leave.UserID, bucket leave.Bucket, delta leave.Days) (leave.Days, leave.Days, error) {
	return v.parent.applyBalanceLocked(userID, bucket, delta)
}

func (v *txView) AppendAdjustment(_ context.Context, a leave.Adjustment) error {
	v.parent.adjustments = append(v.parent.adjustments, a)
	return nil
}

func (v *txView) AdjustmentsByUser(ctx context.Context, userID leave.UserID) ([]leave.Adjustment, error) {
	var out []leave.Adjustment
	for _, a := range v.parent.adjustments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (v *txView) AdjustmentsByRequest(ctx context.Context, requestID leave.RequestID) ([]leave.Adjustment, error) {
	var out []leave.Adjustment
	for _, a := range v.parent.adjustments {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (v *txView) AppendAudit(_ context.Context, e leave.AuditEntry) error {
	v.parent.audits = append(v.parent.audits, e)
	return nil
}

func (v *txView) AuditByUser(ctx context.Context, userID leave.UserID) ([]leave.AuditEntry, error) {
	var out []leave.AuditEntry
	for _, e := range v.parent.audits {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (v *txView) AuditByRequest(ctx context.Context, requestID leave.RequestID) ([]leave.AuditEntry, error) {
	var out []leave.AuditEntry
	for _, e := range v.parent.audits {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (v *txView) CreateUser(_ context.Context, u *leave.User) error {
	v.parent.users[u.ID] = *u
	return nil
}

func (v *txView) GetUser(_ context.Context, id leave.UserID) (*leave.User, error) {
	u, ok := v.parent.users[id]
	if !ok {
		return nil, leave.ErrUserNotFound
	}
	return &u, nil
}

func (v *txView) ListUsers(ctx context.Context) ([]leave.User, error) {
	out := make([]leave.User, 0, len(v.parent.users))
	for _, u := range v.parent.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *txView) AddHoliday(_ context.Context, h leave.Holiday) error {
	v.parent.holidays = append(v.parent.holidays, h)
	return nil
}

func (v *txView) ListHolidays(_ context.Context, from, to leave.Date) ([]leave.Holiday, error) {
	var out []leave.Holiday
	for _, h := range v.parent.holidays {
		if from.BeforeOrEqual(h.Date) && h.Date.BeforeOrEqual(to) {
			out = append(out, h)
		}
	}
	return out, nil
}
