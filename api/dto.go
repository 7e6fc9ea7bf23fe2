/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Defines the JSON shapes exchanged with clients and the conversions from
  domain types. Domain types never cross the HTTP boundary directly: days
  are serialized as strings so clients never see float artifacts, dates as
  YYYY-MM-DD.

SEE ALSO:
  - handlers.go: Handlers producing/consuming these shapes
*/
package api

import (
	"time"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// REQUEST BODIES
// =============================================================================

// CreateUserDTO is the body for POST /api/users.
type CreateUserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// SubmitRequestDTO is the body for POST /api/requests.
type SubmitRequestDTO struct {
	UserID       string `json:"user_id"`
	Category     string `json:"category"`
	Start        string `json:"start"`
	End          string `json:"end"`
	StartSession string `json:"start_session,omitempty"`
	EndSession   string `json:"end_session,omitempty"`
	Reason       string `json:"reason,omitempty"`

	// Today overrides the advance-notice anchor date when HR backfills
	// historical requests. Privileged actors only; defaults to the
	// server's current date.
	Today string `json:"today,omitempty"`
}

// RejectRequestDTO is the body for POST /api/requests/{id}/reject.
type RejectRequestDTO struct {
	Reason string `json:"reason"`
}

// OvertimeCreditDTO is the body for POST /api/admin/overtime.
type OvertimeCreditDTO struct {
	UserID string `json:"user_id"`
	Days   string `json:"days"`
	Reason string `json:"reason,omitempty"`
}

// HolidayDTO is both the body for POST /api/holidays and a response item.
type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// UserDTO is a user in API responses.
type UserDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// RequestDTO is a leave request in API responses.
type RequestDTO struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Category        string     `json:"category"`
	Start           string     `json:"start"`
	End             string     `json:"end"`
	StartSession    string     `json:"start_session,omitempty"`
	EndSession      string     `json:"end_session,omitempty"`
	Days            string     `json:"days"`
	Status          string     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	DocumentRef     string     `json:"document_ref,omitempty"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BalancesDTO is the per-bucket balance summary for one user.
type BalancesDTO struct {
	UserID   string            `json:"user_id"`
	Balances map[string]string `json:"balances"`
}

// AdjustmentDTO is one audited balance mutation.
type AdjustmentDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ActorID   string    `json:"actor_id"`
	RequestID string    `json:"request_id,omitempty"`
	Bucket    string    `json:"bucket"`
	Delta     string    `json:"delta"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntryDTO is one audit log record.
type AuditEntryDTO struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	UserID    string            `json:"user_id"`
	ActorID   string            `json:"actor_id"`
	RequestID string            `json:"request_id,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toUserDTO(u leave.User) UserDTO {
	return UserDTO{
		ID:        string(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toRequestDTO(r *leave.Request) RequestDTO {
	dto := RequestDTO{
		ID:              string(r.ID),
		UserID:          string(r.UserID),
		Category:        string(r.Category),
		Start:           r.Start.String(),
		End:             r.End.String(),
		StartSession:    string(r.StartSession),
		EndSession:      string(r.EndSession),
		Days:            r.Days.String(),
		Status:          string(r.Status),
		Reason:          r.Reason,
		RejectionReason: r.RejectionReason,
		DocumentRef:     r.DocumentRef,
		ApprovedAt:      r.ApprovedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.ApprovedBy != nil {
		s := string(*r.ApprovedBy)
		dto.ApprovedBy = &s
	}
	return dto
}

func toRequestDTOs(rs []leave.Request) []RequestDTO {
	dtos := make([]RequestDTO, len(rs))
	for i := range rs {
		dtos[i] = toRequestDTO(&rs[i])
	}
	return dtos
}

func toAdjustmentDTO(a leave.Adjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:        string(a.ID),
		UserID:    string(a.UserID),
		ActorID:   string(a.ActorID),
		RequestID: string(a.RequestID),
		Bucket:    string(a.Bucket),
		Delta:     a.Delta.String(),
		OldValue:  a.OldValue.String(),
		NewValue:  a.NewValue.String(),
		Reason:    a.Reason,
		CreatedAt: a.CreatedAt,
	}
}

func toAuditEntryDTO(e leave.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		Action:    string(e.Action),
		UserID:    string(e.UserID),
		ActorID:   string(e.ActorID),
		RequestID: string(e.RequestID),
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
}
