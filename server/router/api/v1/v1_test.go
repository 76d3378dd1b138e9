package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/weiwangfds/love-agent/internal/profile"
	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/plugin/ai/agent"
	"github.com/weiwangfds/love-agent/plugin/ai/vector"
	"github.com/weiwangfds/love-agent/store"
	"github.com/weiwangfds/love-agent/store/db/sqlite"
)

// newTestServer wires a real SQLite store with a keyless provider, so every
// completion call fails with ErrUnavailable. That is enough to exercise
// binding, validation and error mapping without a live model.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "loveagent_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver, p)
	provider := ai.NewProvider(&ai.Config{})
	orchestrator := agent.NewOrchestrator(st, provider, vector.NewMockService(), "qwen-vl-plus")

	e := echo.New()
	NewAPIV1Service(p, st, orchestrator).Register(e.Group("/api/v1"))
	return e
}

func TestChatRequiresSessionID(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
}

func TestChatMapsUnavailableTo503(t *testing.T) {
	e := newTestServer(t)

	body := `{"session_id": "s1", "new_message": {"speaker": "other", "content": "在干嘛"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "SERVICE_UNAVAILABLE")
}

func TestUploadHistoryRejectsEmptyBatch(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/history/upload",
		strings.NewReader(`{"session_id": "s1", "messages": []}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStateGettersServeDefaults(t *testing.T) {
	e := newTestServer(t)

	for _, path := range []string{"/api/v1/radar", "/api/v1/profile", "/api/v1/history"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path+"?session_id=s1", nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	// Missing session_id is a client error.
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/radar", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "turn_total")
	require.Contains(t, rec.Body.String(), "turn_failed")
}
