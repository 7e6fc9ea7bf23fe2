/*
handlers.go - HTTP API handlers for the leave ledger

PURPOSE:
  Exposes the leave lifecycle engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates every decision to
  the domain service.

ENDPOINTS:
  Users:
    GET    /api/users                   List users
    POST   /api/users                   Create user (seeds opening balances)
    GET    /api/users/{id}              Get user
    GET    /api/users/{id}/balances     Per-bucket balance summary
    GET    /api/users/{id}/requests     Leave request history
    GET    /api/users/{id}/adjustments  Balance adjustment ledger
    GET    /api/users/{id}/audit        Audit trail

  Requests:
    POST   /api/requests                Submit leave request
    GET    /api/requests/{id}           Get request
    GET    /api/requests/{id}/audit     Audit trail for one request
    POST   /api/requests/{id}/approve   Approve pending request
    POST   /api/requests/{id}/reject    Reject pending request (reason required)
    DELETE /api/requests/{id}           Cancel pending request (owner only)
    POST   /api/requests/{id}/document  Attach supporting document

  Holidays:
    GET    /api/holidays                List holidays in a range
    POST   /api/holidays                Add a holiday

  Admin:
    POST   /api/admin/overtime          Credit compensatory days

ACTOR RESOLUTION:
  Every mutating endpoint needs an acting identity. The resolved actor
  comes from the X-Actor-ID and X-Actor-Role headers; a gateway performing
  real authentication would set these. The domain never trusts the role
  header beyond what the Authorization implementation allows it to do.

ERROR HANDLING:
  Domain errors map onto HTTP statuses:
  - 400: malformed input, invalid range, document not allowed
  - 401: missing actor identity
  - 403: actor not permitted
  - 404: unknown user/request
  - 409: state conflict (not pending, overlap, insufficient balance)
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/leave-ledger/leave"
)

// maxDocumentBytes caps uploaded document size.
const maxDocumentBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *leave.Service
	Log     zerolog.Logger
}

// NewHandler creates a new handler around the domain service.
func NewHandler(svc *leave.Service, log zerolog.Logger) *Handler {
	return &Handler{Service: svc, Log: log.With().Str("component", "api").Logger()}
}

// actor resolves the acting identity from request headers.
func actor(r *http.Request) (leave.Actor, bool) {
	id := r.Header.Get("X-Actor-ID")
	if id == "" {
		return leave.Actor{}, false
	}
	role := leave.Role(r.Header.Get("X-Actor-Role"))
	if role == "" {
		role = leave.RoleEmployee
	}
	return leave.Actor{ID: leave.UserID(id), Role: role}, true
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.Users(r.Context())
	if err != nil {
		h.writeDomainError(w, "failed to list users", err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser creates a user and seeds the opening balances.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor identity", nil)
		return
	}

	var dto CreateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if dto.ID == "" || dto.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	role := leave.Role(dto.Role)
	if role == "" {
		role = leave.RoleEmployee
	}

	u := &leave.User{
		ID:    leave.UserID(dto.ID),
		Name:  dto.Name,
		Email: dto.Email,
		Role:  role,
	}
	if err := h.Service.CreateUser(r.Context(), act, u); err != nil {
		h.writeDomainError(w, "failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*u))
}

// GetUser returns one user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))
	u, err := h.Service.User(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// GetBalances returns the per-bucket balance summary for one user.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))
	balances, err := h.Service.Balances(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to get balances", err)
		return
	}

	out := BalancesDTO{UserID: string(id), Balances: make(map[string]string, len(balances))}
	for bucket, v := range balances {
		out.Balances[string(bucket)] = v.String()
	}
	writeJSON(w, http.StatusOK, out)
}

// ListUserRequests returns a user's leave requests.
func (h *Handler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))
	requests, err := h.Service.Requests(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// ListUserAdjustments returns a user's balance adjustment ledger.
func (h *Handler) ListUserAdjustments(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))
	adjustments, err := h.Service.AdjustmentsByUser(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to list adjustments", err)
		return
	}
	dtos := make([]AdjustmentDTO, len(adjustments))
	for i, a := range adjustments {
		dtos[i] = toAdjustmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListUserAudit returns a user's audit trail.
func (h *Handler) ListUserAudit(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))
	entries, err := h.Service.AuditByUser(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to list audit entries", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest files a new leave request.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor identity", nil)
		return
	}

	var dto SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	start, err := leave.ParseDate(dto.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date", err)
		return
	}
	end, err := leave.ParseDate(dto.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date", err)
		return
	}

	// Overriding the reference date sidesteps the advance-notice rule, so
	// only HR-grade actors get to use it (backfilling historical requests).
	today := leave.DateOf(h.Service.Now())
	if dto.Today != "" {
		if !h.Service.Authz.IsPrivileged(act) {
			writeError(w, http.StatusForbidden, "only privileged actors may set today", nil)
			return
		}
		if today, err = leave.ParseDate(dto.Today); err != nil {
			writeError(w, http.StatusBadRequest, "invalid today date", err)
			return
		}
	}

	userID := leave.UserID(dto.UserID)
	if userID == "" {
		userID = act.ID
	}

	req, err := h.Service.Submit(r.Context(), act, today, leave.SubmitInput{
		UserID:       userID,
		Category:     leave.Category(dto.Category),
		Start:        start,
		End:          end,
		StartSession: leave.Session(dto.StartSession),
		EndSession:   leave.Session(dto.EndSession),
		Reason:       dto.Reason,
	})
	if err != nil {
		h.writeDomainError(w, "failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

// GetRequest returns one leave request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))
	req, err := h.Service.Request(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// GetRequestAudit returns the audit trail for one request.
func (h *Handler) GetRequestAudit(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))
	entries, err := h.Service.AuditByRequest(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to list audit entries", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest approves a pending request.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor identity", nil)
		return
	}

	id := leave.RequestID(chi.URLParam(r, "id"))
	req, err := h.Service.Approve(r.Context(), act, id)
	if err != nil {
		h.writeDomainError(w, "failed to approve request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// RejectRequest rejects a pending request. A reason is required.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor identity", nil)
		return
	}

	var dto RejectRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	id := leave.RequestID(chi.URLParam(r, "id"))
	req, err := h.Service.Reject(r.Context(), act, id, dto.Reason)
	if err != nil {
		h.writeDomainError(w, "failed to reject request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// CancelRequest cancels (withdraws) the caller's own pending request.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor identity", nil)
		return
	}

	id := leave.RequestID(chi.URLParam(r, "id"))
	if err := h.Service.Cancel(r.Context(), act, id); err != nil {
		h.writeDomainError(w, "failed to cancel request", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// AttachDocument stores a supporting document on a request. The raw body is
// the document; ?filename= names it.
func (h *Handler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor identity", nil)
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename query parameter required", nil)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read document body", err)
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty document body", nil)
		return
	}
	if len(data) > maxDocumentBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("document exceeds %d bytes", maxDocumentBytes), nil)
		return
	}

	id := leave.RequestID(chi.URLParam(r, "id"))
	req, err := h.Service.AttachDocument(r.Context(), act, id, data, filename)
	if err != nil {
		h.writeDomainError(w, "failed to attach document", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns holidays in [from, to]. Defaults to the current year.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	now := h.Service.Now()
	from := leave.NewDate(now.Year(), 1, 1)
	to := leave.NewDate(now.Year(), 12, 31)

	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = leave.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date", err)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = leave.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date", err)
			return
		}
	}

	holidays, err := h.Service.Holidays(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, "failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{Date: hol.Date.String(), Name: hol.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a holiday to the calendar.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor identity", nil)
		return
	}

	var dto HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	date, err := leave.ParseDate(dto.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid holiday date", err)
		return
	}
	if dto.Name == "" {
		writeError(w, http.StatusBadRequest, "holiday name required", nil)
		return
	}

	if err := h.Service.AddHoliday(r.Context(), act, leave.Holiday{Date: date, Name: dto.Name}); err != nil {
		h.writeDomainError(w, "failed to add holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreditOvertime credits compensatory days for logged overtime.
func (h *Handler) CreditOvertime(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor identity", nil)
		return
	}

	var dto OvertimeCreditDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	days, err := leave.ParseDays(dto.Days)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid days value", err)
		return
	}

	adj, err := h.Service.CreditOvertime(r.Context(), act, leave.UserID(dto.UserID), days, dto.Reason)
	if err != nil {
		h.writeDomainError(w, "failed to credit overtime", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(adj))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case leave.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, leave.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, leave.ErrInsufficientBalance),
		errors.Is(err, leave.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, leave.ErrInvalidRange),
		errors.Is(err, leave.ErrDocumentNotAllowed):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Msg(message)
	}
	writeError(w, status, message, err)
}
