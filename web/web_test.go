package web

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytschitwan/portal/config"
	"github.com/ytschitwan/portal/database"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/util/crypto"
	"github.com/ytschitwan/portal/web/service"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	admin  string
	user   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	crypto.Cost = bcrypt.MinCost
	t.Setenv("PORTAL_JWT_SECRET", "router-test-secret")
	t.Setenv("PORTAL_RATE_LIMIT", "0")
	t.Setenv("PORTAL_CONTACT_DEGRADED", "true")

	db, err := database.Open(&config.DatabaseConfig{
		Type:   config.DatabaseTypeSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	s := NewServer(db)
	t.Cleanup(s.cancel)
	engine, err := s.initRouter()
	require.NoError(t, err)

	ts := &testServer{t: t, db: db, engine: engine}

	_, _, err = service.NewUserAdminService(db).EnsureAdmin(t.Context(), "Admin", "admin@example.org", "admin password")
	require.NoError(t, err)
	ts.admin = ts.login("admin@example.org", "admin password")

	w := ts.do(http.MethodPost, "/api/auth/register", "", gin.H{"name": "User", "email": "user@example.org", "password": "user password"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ts.user = decode(t, w)["token"].(string)
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) login(email, password string) string {
	w := ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(ts.t, http.StatusOK, w.Code, w.Body.String())
	return decode(ts.t, w)["token"].(string)
}

func (ts *testServer) createEvent(title string) int {
	w := ts.do(http.MethodPost, "/api/events", ts.admin, gin.H{
		"title":       title,
		"description": "An evening of talks",
		"date":        "2030-05-01T18:00:00Z",
		"location":    "Community hall",
	})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	return int(decode(ts.t, w)["event"].(map[string]any)["id"].(float64))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestHealthAndNoRoute(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "connected", body["database"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = ts.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body = decode(t, w)
	assert.Equal(t, "API endpoint not found", body["message"])
	assert.Equal(t, "/api/nothing-here", body["path"])
}

func TestAuthMe(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/auth/me", ts.user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "user@example.org", user["email"])
	assert.Equal(t, "user", user["role"])

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/auth/me", "garbage", nil).Code)

	w = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "user@example.org", "password": "nope nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid credentials", decode(t, w)["message"])
}

func TestRoleGate(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createEvent("Go workshop")
	path := fmt.Sprintf("/api/events/%d", id)

	w := ts.do(http.MethodDelete, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodDelete, path, ts.user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	for _, p := range []string{"/api/contacts", "/api/registrations", "/api/dashboard/stats", "/api/admin/users", "/api/admin/audit", "/api/admin/logs"} {
		assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, p, ts.user, nil).Code, p)
		assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, p, "", nil).Code, p)
	}

	// no mutation happened
	w = ts.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodDelete, path, ts.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, path, ts.admin, nil).Code)

	w = ts.do(http.MethodGet, "/api/admin/audit?action=DELETE", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode(t, w)["logs"].([]any)
	require.Len(t, logs, 1)
	entry := logs[0].(map[string]any)
	assert.Equal(t, "event", entry["resource"])
	assert.Equal(t, float64(id), entry["resourceId"])
}

func TestDuplicateRegistration(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createEvent("Go workshop")
	path := fmt.Sprintf("/api/events/%d/register", id)

	w := ts.do(http.MethodPost, path, "", gin.H{"name": "Ada", "email": "ada@example.org", "phone": "555"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, path, "", gin.H{"name": "Ada", "email": " ADA@Example.org", "phone": "555"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "duplicate_registration", body["code"])
	assert.Equal(t, false, body["success"])

	w = ts.do(http.MethodPost, path, "", gin.H{"email": "bob@example.org"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"name", "phone"}, decode(t, w)["missing"])

	w = ts.do(http.MethodPost, "/api/events/9999/register", "", gin.H{"name": "Ada", "email": "ada@example.org", "phone": "555"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/events/%d/registrations", id), ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/events/%d/registrations?email=Ada@example.org", id), ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	reg := decode(t, w)["registration"].(map[string]any)
	assert.Equal(t, "ada@example.org", reg["email"])

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/events/%d/registrations?email=bob@example.org", id), ts.admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/events/%d", id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["event"].(map[string]any)["registeredCount"])
}

func TestContactWorkflow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/contacts", "", gin.H{
		"name": "Ada Lovelace", "email": "Ada@Example.org", "subject": "Volunteering", "message": "How can I help?",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["persisted"])
	id := int(body["data"].(map[string]any)["id"].(float64))

	w = ts.do(http.MethodGet, "/api/contacts?status=pending", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["contacts"].([]any), 1)

	path := fmt.Sprintf("/api/contacts/%d", id)
	w = ts.do(http.MethodPut, path+"/status", ts.admin, gin.H{"status": "read"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(http.MethodPut, path+"/status", ts.admin, gin.H{"status": "invalid_status"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, path, ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "read", decode(t, w)["contact"].(map[string]any)["status"])

	w = ts.do(http.MethodPut, path+"/status", ts.user, gin.H{"status": "archived"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodGet, "/api/dashboard/stats", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["contactsCount"])
	assert.Equal(t, float64(0), stats["pendingContactsCount"])
	assert.Equal(t, float64(2), stats["usersCount"])

	w = ts.do(http.MethodDelete, path, ts.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, path, ts.admin, nil).Code)
}

func TestContactDegraded(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.db.Migrator().DropTable(&model.Contact{}))

	w := ts.do(http.MethodPost, "/api/contacts", "", gin.H{
		"name": "Ada Lovelace", "email": "ada@example.org", "subject": "Hello", "message": "Anyone there?",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["persisted"])
}

func TestEventAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createEvent("Go workshop")
	path := fmt.Sprintf("/api/events/%d", id)

	w := ts.do(http.MethodPut, path, ts.admin, gin.H{"location": "Library", "isActive": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	event := decode(t, w)["event"].(map[string]any)
	assert.Equal(t, "Library", event["location"])
	assert.Equal(t, "Go workshop", event["title"])

	w = ts.do(http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["events"])

	w = ts.do(http.MethodGet, "/api/admin/events", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["events"], 1)
	assert.Equal(t, float64(1), body["pagination"].(map[string]any)["total"])

	w = ts.do(http.MethodPut, path, ts.admin, gin.H{"date": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/events/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicRateLimit(t *testing.T) {
	ts := newTestServer(t)
	t.Setenv("PORTAL_RATE_LIMIT", "1")
	s := NewServer(ts.db)
	t.Cleanup(s.cancel)
	engine, err := s.initRouter()
	require.NoError(t, err)
	ts.engine = engine

	body := gin.H{"name": "Ada Lovelace", "email": "ada@example.org", "subject": "Hello", "message": "Anyone there?"}
	assert.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/contacts", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(http.MethodPost, "/api/contacts", "", body).Code)
	// reads are not limited
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/events", "", nil).Code)
}

func TestRateLimitIgnoresUntrustedForwardedFor(t *testing.T) {
	ts := newTestServer(t)
	t.Setenv("PORTAL_RATE_LIMIT", "2")

	post := func(engine *gin.Engine, i int) int {
		body := fmt.Sprintf(`{"name":"Ada Lovelace","email":"ada%d@example.org","subject":"Hello","message":"Anyone there?"}`, i)
		req := httptest.NewRequest(http.MethodPost, "/api/contacts", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w.Code
	}
	router := func() *gin.Engine {
		s := NewServer(ts.db)
		t.Cleanup(s.cancel)
		engine, err := s.initRouter()
		require.NoError(t, err)
		return engine
	}

	engine := router()
	codes := make([]int, 0, 6)
	for i := range 6 {
		codes = append(codes, post(engine, i))
	}
	assert.Equal(t, []int{201, 201, 429, 429, 429, 429}, codes)

	// behind a trusted proxy every forwarded client gets its own budget
	t.Setenv("PORTAL_TRUSTED_PROXIES", "192.0.2.1")
	engine = router()
	for i := range 6 {
		assert.Equal(t, http.StatusCreated, post(engine, i))
	}
}
