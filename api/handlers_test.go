package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-ledger/api"
	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/leave/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := leave.NewService(store.NewMemory(), leave.RoleAuthorizer{})
	// Pin the server clock to a Monday so advance-notice checks are stable.
	svc.Now = func() time.Time { return time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC) }
	handler := api.NewHandler(svc, zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, actorID, actorRole string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
		req.Header.Set("X-Actor-Role", actorRole)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createUser(t *testing.T, srv *httptest.Server, id, role string) {
	t.Helper()
	resp := doJSON(t, srv, http.MethodPost, "/api/users", "hr", "hr", api.CreateUserDTO{
		ID: id, Name: id, Role: role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func submitAnnual(t *testing.T, srv *httptest.Server, userID, start, end string) api.RequestDTO {
	t.Helper()
	resp := doJSON(t, srv, http.MethodPost, "/api/requests", userID, "employee", api.SubmitRequestDTO{
		UserID:   userID,
		Category: "annual",
		Start:    start,
		End:      end,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.RequestDTO](t, resp)
}

// =============================================================================
// USERS
// =============================================================================

func TestCreateUser_SeedsBalances(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")

	resp, err := http.Get(srv.URL + "/api/users/alice/balances")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balances := decode[api.BalancesDTO](t, resp)
	assert.Equal(t, "20", balances.Balances["general"])
	assert.Equal(t, "0", balances.Balances["compensatory"])
}

func TestCreateUser_RequiresActor(t *testing.T) {
	srv := newTestServer(t)
	resp := doJSON(t, srv, http.MethodPost, "/api/users", "", "", api.CreateUserDTO{ID: "x", Name: "x"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetUser_NotFound(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/users/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// LEAVE REQUEST LIFECYCLE OVER HTTP
// =============================================================================

func TestSubmitApproveFlow(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")

	// Submit Mon-Fri annual leave
	req := submitAnnual(t, srv, "alice", "2025-03-10", "2025-03-14")
	assert.Equal(t, "pending", req.Status)
	assert.Equal(t, "5", req.Days)

	// The reservation shows immediately
	resp, err := http.Get(srv.URL + "/api/users/alice/balances")
	require.NoError(t, err)
	balances := decode[api.BalancesDTO](t, resp)
	assert.Equal(t, "15", balances.Balances["general"])

	// Approve as manager
	resp = doJSON(t, srv, http.MethodPost, "/api/requests/"+req.ID+"/approve", "mgr", "manager", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[api.RequestDTO](t, resp)
	assert.Equal(t, "approved", approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "mgr", *approved.ApprovedBy)

	// Approving again conflicts
	resp = doJSON(t, srv, http.MethodPost, "/api/requests/"+req.ID+"/approve", "mgr", "manager", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRejectFlow_RestoresBalance(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")
	req := submitAnnual(t, srv, "alice", "2025-03-10", "2025-03-14")

	// Rejecting without a reason conflicts
	resp := doJSON(t, srv, http.MethodPost, "/api/requests/"+req.ID+"/reject", "mgr", "manager",
		api.RejectRequestDTO{Reason: ""})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/api/requests/"+req.ID+"/reject", "mgr", "manager",
		api.RejectRequestDTO{Reason: "team at capacity"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rejected := decode[api.RequestDTO](t, resp)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "team at capacity", rejected.RejectionReason)

	resp, err := http.Get(srv.URL + "/api/users/alice/balances")
	require.NoError(t, err)
	balances := decode[api.BalancesDTO](t, resp)
	assert.Equal(t, "20", balances.Balances["general"])
}

func TestCancelFlow_OwnerOnly(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")
	req := submitAnnual(t, srv, "alice", "2025-03-10", "2025-03-10")

	// Someone else cannot cancel
	resp := doJSON(t, srv, http.MethodDelete, "/api/requests/"+req.ID, "bob", "employee", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// The owner can; the record disappears
	resp = doJSON(t, srv, http.MethodDelete, "/api/requests/"+req.ID, "alice", "employee", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	getResp, err := http.Get(srv.URL + "/api/requests/" + req.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestSubmit_InsufficientBalanceConflicts(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")

	// Four full weeks drain the 20-day opening balance
	submitAnnual(t, srv, "alice", "2025-03-10", "2025-04-04")

	resp := doJSON(t, srv, http.MethodPost, "/api/requests", "alice", "employee", api.SubmitRequestDTO{
		UserID: "alice", Category: "annual",
		Start: "2025-04-07", End: "2025-04-07",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSubmit_BadDates(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")

	resp := doJSON(t, srv, http.MethodPost, "/api/requests", "alice", "employee", api.SubmitRequestDTO{
		UserID: "alice", Category: "annual", Start: "March 10", End: "2025-03-14",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmit_TodayOverride_PrivilegedOnly(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")

	// An employee cannot move the reference date to dodge advance notice
	resp := doJSON(t, srv, http.MethodPost, "/api/requests", "alice", "employee", api.SubmitRequestDTO{
		UserID: "alice", Category: "annual",
		Start: "2025-03-04", End: "2025-03-04", Today: "2025-02-01",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Without the override the same submission fails the notice rule
	resp = doJSON(t, srv, http.MethodPost, "/api/requests", "alice", "employee", api.SubmitRequestDTO{
		UserID: "alice", Category: "annual",
		Start: "2025-03-04", End: "2025-03-04",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// HR backfilling on behalf of the user may set the reference date
	resp = doJSON(t, srv, http.MethodPost, "/api/requests", "hr", "hr", api.SubmitRequestDTO{
		UserID: "alice", Category: "annual",
		Start: "2025-02-03", End: "2025-02-03", Today: "2025-01-27",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// HOLIDAYS AND OVERTIME
// =============================================================================

func TestHolidays_AffectCharge(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")

	// Only privileged roles may add holidays
	resp := doJSON(t, srv, http.MethodPost, "/api/holidays", "alice", "employee",
		api.HolidayDTO{Date: "2025-03-12", Name: "Founding Day"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/api/holidays", "hr", "hr",
		api.HolidayDTO{Date: "2025-03-12", Name: "Founding Day"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Mon-Fri now charges 4
	req := submitAnnual(t, srv, "alice", "2025-03-10", "2025-03-14")
	assert.Equal(t, "4", req.Days)

	listResp, err := http.Get(srv.URL + "/api/holidays?from=2025-03-01&to=2025-03-31")
	require.NoError(t, err)
	holidays := decode[[]api.HolidayDTO](t, listResp)
	require.Len(t, holidays, 1)
	assert.Equal(t, "Founding Day", holidays[0].Name)
}

func TestOvertimeCredit_AndCompensatoryFlow(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")

	// Non-privileged credit is forbidden
	resp := doJSON(t, srv, http.MethodPost, "/api/admin/overtime", "alice", "employee",
		api.OvertimeCreditDTO{UserID: "alice", Days: "2"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/api/admin/overtime", "hr", "hr",
		api.OvertimeCreditDTO{UserID: "alice", Days: "2", Reason: "release weekend"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	adj := decode[api.AdjustmentDTO](t, resp)
	assert.Equal(t, "compensatory", adj.Bucket)
	assert.Equal(t, "2", adj.NewValue)

	// Compensatory submission holds nothing until approval
	resp = doJSON(t, srv, http.MethodPost, "/api/requests", "alice", "employee", api.SubmitRequestDTO{
		UserID: "alice", Category: "compensatory",
		Start: "2025-03-10", End: "2025-03-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	req := decode[api.RequestDTO](t, resp)

	balResp, err := http.Get(srv.URL + "/api/users/alice/balances")
	require.NoError(t, err)
	balances := decode[api.BalancesDTO](t, balResp)
	assert.Equal(t, "2", balances.Balances["compensatory"])

	resp = doJSON(t, srv, http.MethodPost, "/api/requests/"+req.ID+"/approve", "mgr", "manager", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	balResp, err = http.Get(srv.URL + "/api/users/alice/balances")
	require.NoError(t, err)
	balances = decode[api.BalancesDTO](t, balResp)
	assert.Equal(t, "1", balances.Balances["compensatory"])
}

// =============================================================================
// AUDIT READ PATHS
// =============================================================================

func TestAuditEndpoints(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, srv, "alice", "employee")
	req := submitAnnual(t, srv, "alice", "2025-03-10", "2025-03-10")

	resp, err := http.Get(srv.URL + "/api/requests/" + req.ID + "/audit")
	require.NoError(t, err)
	entries := decode[[]api.AuditEntryDTO](t, resp)
	// Submission debit plus the submission record itself
	require.Len(t, entries, 2)
	assert.Equal(t, "balance_adjusted", entries[0].Action)
	assert.Equal(t, "request_submitted", entries[1].Action)

	resp, err = http.Get(srv.URL + "/api/users/alice/adjustments")
	require.NoError(t, err)
	adjs := decode[[]api.AdjustmentDTO](t, resp)
	// Opening balance grant plus the submission debit
	require.Len(t, adjs, 2)
	assert.Equal(t, "opening balance", adjs[0].Reason)
	assert.Equal(t, "-1", adjs[1].Delta)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
