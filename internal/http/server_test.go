package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projex/internal/auth"
	"projex/internal/cache"
	"projex/internal/core"
	"projex/internal/middleware/ratelimit"
	"projex/internal/services"
	"projex/internal/storage"
)

type testServer struct {
	t      *testing.T
	srv    *Server
	users  *services.UserService
	admin  string
	viewer string
}

type response struct {
	Success bool            `json:"success"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
}

func newTestServer(t *testing.T, authLimit int) *testServer {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "projex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	tokens, err := auth.NewTokens("test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	identities := cache.NewLRUCache[int64, core.Identity](64, time.Minute)
	queries := services.NewQueryService(repo)
	users := services.NewUserService(repo, auth.BcryptHasher{Cost: 4}, tokens, identities)

	srv := NewServer(":0", Deps{
		Queries:     queries,
		Reports:     services.NewReportService(repo, queries),
		Projects:    services.NewProjectService(repo, nil),
		Expenses:    services.NewExpenseService(repo, nil),
		Users:       users,
		Tokens:      tokens,
		Ready:       repo.Ping,
		Registry:    prometheus.NewRegistry(),
		AuthLimiter: ratelimit.NewLimiter(ratelimit.Config{Requests: authLimit, Period: time.Minute}),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	ts := &testServer{t: t, srv: srv, users: users}
	ts.admin = ts.seed("Admin", "admin@example.com", core.RoleAdmin)
	ts.viewer = ts.seed("Viewer", "viewer@example.com", core.RoleViewer)
	return ts
}

func (ts *testServer) seed(name, email string, role core.Role) string {
	ts.t.Helper()
	_, err := ts.users.CreateUser(context.Background(), core.RegisterInput{Name: name, Email: email, Password: "secret1"}, role)
	require.NoError(ts.t, err)
	res, err := ts.users.Login(context.Background(), email, "secret1")
	require.NoError(ts.t, err)
	return res.Token
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) response {
	t.Helper()
	var res response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res), rr.Body.String())
	return res
}

func (ts *testServer) createProject(body map[string]any) core.Project {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/api/projects", ts.admin, body)
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	var p core.Project
	require.NoError(ts.t, json.Unmarshal(decode(ts.t, rr).Data, &p))
	return p
}

func TestHealthReadyAndMetrics(t *testing.T) {
	ts := newTestServer(t, 20)

	rr := ts.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = ts.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "projex_http_requests_total")
	assert.Contains(t, rr.Body.String(), `route="/readyz"`)
}

func TestReadyReportsStoreFailure(t *testing.T) {
	srv := NewServer(":0", Deps{Ready: func(context.Context) error { return errors.New("db down") }})
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, 20)

	rr := ts.do(http.MethodGet, "/api/projects/landing", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	res := decode(t, rr)
	assert.True(t, res.Success)
	require.NotNil(t, res.Count)
	assert.Equal(t, 0, *res.Count)
	assert.JSONEq(t, "[]", string(res.Data))
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, 20)

	rr := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotEmpty(t, decode(t, rr).Token)

	rr = ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, decode(t, rr).Success)

	rr = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)
	login := decode(t, rr)
	require.NotEmpty(t, login.Token)
	var user core.User
	require.NoError(t, json.Unmarshal(login.User, &user))
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, core.RoleViewer, user.Role)
	assert.NotContains(t, string(login.User), "password")

	rr = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rr).Message)

	rr = ts.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &user))
	assert.Equal(t, "Ada", user.Name)

	rr = ts.do(http.MethodPut, "/api/auth/me", login.Token, map[string]string{"name": "Ada L."})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &user))
	assert.Equal(t, "Ada L.", user.Name)

	rr = ts.do(http.MethodPost, "/api/auth/change-password", login.Token, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret2",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Password updated successfully", decode(t, rr).Message)

	rr = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret2"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t, 20)

	rr := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "", "email": "nope", "password": "1"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	res := decode(t, rr)
	assert.False(t, res.Success)
	assert.Equal(t, "Validation Error", res.Message)
	assert.Len(t, res.Errors, 3)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, 20)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"missing token", "", "Not authorized, no token"},
		{"bad token", "not-a-jwt", "Not authorized, token failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodGet, "/api/projects", tt.token, nil)
			require.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, tt.message, decode(t, rr).Message)
		})
	}
}

func TestViewerCannotMutate(t *testing.T) {
	ts := newTestServer(t, 20)

	rr := ts.do(http.MethodPost, "/api/projects", ts.viewer, map[string]any{"name": "X", "startDate": "2024-01-01"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "User role viewer is not authorized to access this route", decode(t, rr).Message)

	p := ts.createProject(map[string]any{"name": "X", "startDate": "2024-01-01"})
	rr = ts.do(http.MethodDelete, "/api/projects/"+itoa(p.ID), ts.viewer, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestViewerCannotSeeHeldProject(t *testing.T) {
	ts := newTestServer(t, 20)
	held := ts.createProject(map[string]any{"name": "Held", "startDate": "2024-01-01", "status": "on_hold"})

	rr := ts.do(http.MethodGet, "/api/projects/"+itoa(held.ID), ts.viewer, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Not authorized to access this project", decode(t, rr).Message)

	rr = ts.do(http.MethodGet, "/api/projects/"+itoa(held.ID), ts.admin, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(http.MethodGet, "/api/projects/999", ts.admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestProjectAndExpenseLifecycle(t *testing.T) {
	ts := newTestServer(t, 20)
	p := ts.createProject(map[string]any{"name": "Roof", "startDate": "2024-01-01", "totalBudget": 550})
	assert.Equal(t, core.ProjectActive, p.Status)

	for _, e := range []map[string]any{
		{"projectId": p.ID, "date": "2024-03-10", "amount": 55.00, "category": "materials", "status": "approved"},
		{"projectId": p.ID, "date": "2024-07-02", "amount": "20.50", "category": "labour", "status": "approved"},
		{"projectId": p.ID, "date": "2024-07-03", "amount": 99, "category": "labour"},
	} {
		rr := ts.do(http.MethodPost, "/api/expenses", ts.admin, e)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := ts.do(http.MethodGet, "/api/projects/summary", ts.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var summary []core.ProjectSummary
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &summary))
	require.Len(t, summary, 1)
	assert.Equal(t, core.Cents(17450), summary[0].TotalExpenses)

	rr = ts.do(http.MethodGet, "/api/expenses/project/"+itoa(p.ID)+"?category=labour", ts.viewer, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode(t, rr)
	require.NotNil(t, res.Count)
	assert.Equal(t, 1, *res.Count, "viewers only see approved expenses")

	rr = ts.do(http.MethodGet, "/api/expenses/project/"+itoa(p.ID)+"/monthly?year=2024", ts.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var months []core.MonthTotal
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &months))
	require.Len(t, months, 12)
	assert.Equal(t, core.Cents(5500), months[2].Total)
	assert.Equal(t, core.Cents(11950), months[6].Total)

	rr = ts.do(http.MethodGet, "/api/expenses/summary/"+itoa(p.ID)+"?startDate=2024-07-01", ts.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var cats core.CategorySummary
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &cats))
	assert.Equal(t, core.Cents(11950), cats.TotalExpenses)

	rr = ts.do(http.MethodGet, "/api/dashboard", ts.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats core.DashboardStats
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &stats))
	assert.Equal(t, 1, stats.TotalProjects)
	assert.Equal(t, core.Cents(55000), stats.TotalBudget)
	assert.InDelta(t, 31.73, stats.BudgetUtilization, 0.001)

	rr = ts.do(http.MethodPut, "/api/projects/"+itoa(p.ID), ts.admin, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &p))
	assert.Equal(t, core.ProjectCompleted, p.Status)
	assert.Equal(t, "Roof", p.Name)

	rr = ts.do(http.MethodDelete, "/api/projects/"+itoa(p.ID), ts.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "{}", string(decode(t, rr).Data))

	rr = ts.do(http.MethodGet, "/api/expenses", ts.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, *decode(t, rr).Count)
}

func TestReportParameterValidation(t *testing.T) {
	ts := newTestServer(t, 20)
	p := ts.createProject(map[string]any{"name": "P", "startDate": "2024-01-01"})
	base := "/api/expenses/project/" + itoa(p.ID)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"bad year", base + "/monthly?year=abc", http.StatusBadRequest},
		{"year out of range", base + "/monthly?year=12", http.StatusBadRequest},
		{"bad years", base + "/annual?years=x", http.StatusBadRequest},
		{"years too large", base + "/annual?years=51", http.StatusBadRequest},
		{"default years", base + "/annual", http.StatusOK},
		{"bad date", base + "?startDate=01/02/2024", http.StatusBadRequest},
		{"reversed range", base + "?startDate=2024-05-01&endDate=2024-04-01", http.StatusBadRequest},
		{"unknown project", "/api/expenses/project/999/monthly", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodGet, tt.path, ts.admin, nil)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
		})
	}
}

func TestInvalidBody(t *testing.T) {
	ts := newTestServer(t, 20)

	req := httptest.NewRequest(http.MethodPost, "/api/projects", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+ts.admin)
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid request body", decode(t, rr).Message)

	p := ts.createProject(map[string]any{"name": "Deck", "startDate": "2024-01-01"})
	rr = ts.do(http.MethodPost, "/api/expenses", ts.admin, map[string]any{
		"projectId": p.ID, "date": "2024-02-01", "amount": -5, "category": "materials",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid amount -5: must not be negative", decode(t, rr).Message)
}

func TestUpdateProjectClearsNullableFields(t *testing.T) {
	ts := newTestServer(t, 20)
	p := ts.createProject(map[string]any{
		"name": "Garage", "startDate": "2024-01-01", "endDate": "2024-06-30", "totalBudget": 1200,
	})
	require.NotNil(t, p.TotalBudget)
	require.False(t, p.EndDate.IsZero())

	rr := ts.do(http.MethodPut, "/api/projects/"+itoa(p.ID), ts.admin, map[string]any{"description": "Two cars"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &p))
	require.NotNil(t, p.TotalBudget, "absent key keeps the budget")
	assert.Equal(t, core.Cents(120000), *p.TotalBudget)
	assert.Equal(t, "2024-06-30", p.EndDate.String())

	rr = ts.do(http.MethodPut, "/api/projects/"+itoa(p.ID), ts.admin, map[string]any{"totalBudget": nil, "endDate": nil})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var cleared core.Project
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &cleared))
	assert.Nil(t, cleared.TotalBudget)
	assert.True(t, cleared.EndDate.IsZero())
	assert.Equal(t, "Two cars", cleared.Description)

	rr = ts.do(http.MethodGet, "/api/projects/"+itoa(p.ID), ts.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stored core.Project
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &stored))
	assert.Nil(t, stored.TotalBudget)
	assert.True(t, stored.EndDate.IsZero())
}

func TestUnknownRouteAndMethod(t *testing.T) {
	ts := newTestServer(t, 20)

	rr := ts.do(http.MethodGet, "/api/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not Found - /api/nowhere", decode(t, rr).Message)

	methodCases := []struct {
		method string
		path   string
	}{
		{http.MethodPatch, "/api/projects"},
		{http.MethodDelete, "/api/dashboard"},
		{http.MethodPost, "/api/dashboard/stats"},
		{http.MethodPut, "/api/expenses/summary"},
		{http.MethodGet, "/api/auth/login"},
	}
	for _, tc := range methodCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := ts.do(tc.method, tc.path, ts.admin, nil)
			require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Equal(t, "Method Not Allowed", decode(t, rr).Message)
		})
	}
}

func TestAuthRateLimit(t *testing.T) {
	ts := newTestServer(t, 2)
	body := map[string]string{"email": "admin@example.com", "password": "secret1"}

	for i := 0; i < 2; i++ {
		rr := ts.do(http.MethodPost, "/api/auth/login", "", body)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := ts.do(http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.False(t, decode(t, rr).Success)

	rr = ts.do(http.MethodGet, "/api/projects/landing", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code, "limit only applies to auth routes")

	rr = ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, rr.Body.String(), "projex_auth_rate_limited_total 1")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
