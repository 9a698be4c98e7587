package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/neo/personasim/internal/database"
	"github.com/neo/personasim/internal/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, db *TestMockDB) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "personasim_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	return NewServer(db, Config{Env: "production"}, reg).Router()
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sampleSessions(n int) []*database.SessionSummary {
	out := make([]*database.SessionSummary, n)
	for i := range out {
		out[i] = &database.SessionSummary{
			SessionID:   fmt.Sprintf("session-%d", i),
			PersonaID:   i%2 + 1,
			PersonaName: "Persona",
			Iterations:  3,
			FinalRating: 3.0,
		}
	}
	return out
}

func TestHealthRoute(t *testing.T) {
	h := newTestServer(t, &TestMockDB{})

	w := doGet(t, h, "/api/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealthRouteDatabaseDown(t *testing.T) {
	h := newTestServer(t, &TestMockDB{pingErr: errors.New("closed")})

	w := doGet(t, h, "/api/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}

func TestListSessionsPaginates(t *testing.T) {
	db := &TestMockDB{sessions: sampleSessions(25)}
	h := newTestServer(t, db)

	w := doGet(t, h, "/api/sessions?page=2&page_size=10")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items      []database.SessionSummary `json:"items"`
		Pagination map[string]interface{}    `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Len(t, body.Items, 10)
	assert.Equal(t, "session-10", body.Items[0].SessionID)
	assert.Equal(t, float64(25), body.Pagination["total_items"])
	assert.Equal(t, float64(3), body.Pagination["total_pages"])
	assert.Equal(t, true, body.Pagination["has_next"])
	assert.Equal(t, true, body.Pagination["has_prev"])
	assert.Equal(t, database.SessionFilter{Offset: 10, Limit: 10}, db.lastFilter)
}

func TestListSessionsFiltersByPersona(t *testing.T) {
	db := &TestMockDB{sessions: sampleSessions(6)}
	h := newTestServer(t, db)

	w := doGet(t, h, "/api/sessions?persona_id=2")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []database.SessionSummary `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Items, 3)
	for _, s := range body.Items {
		assert.Equal(t, 2, s.PersonaID)
	}
}

func TestListSessionsEmptyIsArray(t *testing.T) {
	h := newTestServer(t, &TestMockDB{})

	w := doGet(t, h, "/api/sessions")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestListSessionsRejectsBadPersona(t *testing.T) {
	h := newTestServer(t, &TestMockDB{})

	w := doGet(t, h, "/api/sessions?persona_id=abc")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid persona_id")
}

func TestListSessionsQueryError(t *testing.T) {
	h := newTestServer(t, &TestMockDB{queryErr: errQueryFailed})

	w := doGet(t, h, "/api/sessions")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "error")
	// production mode keeps internal details out of the body
	assert.NotContains(t, w.Body.String(), "query failed")
}

func TestSessionRecords(t *testing.T) {
	db := &TestMockDB{}
	rec := record.New("abc", 1, 1, "Michael", 2.0)
	_, err := db.InsertResponse(context.Background(), rec)
	require.NoError(t, err)
	h := newTestServer(t, db)

	w := doGet(t, h, "/api/sessions/abc/records")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		SessionID string                   `json:"session_id"`
		Records   []record.IterationRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc", body.SessionID)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "Michael", body.Records[0].PersonaName)
}

func TestSessionRecordsNotFound(t *testing.T) {
	h := newTestServer(t, &TestMockDB{})

	w := doGet(t, h, "/api/sessions/missing/records")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Session not found")
}

func TestStats(t *testing.T) {
	db := &TestMockDB{stats: &database.Stats{Records: 12, Sessions: 3, ReachedTarget: 2, SuccessRate: 66.67}}
	h := newTestServer(t, db)

	w := doGet(t, h, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats database.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 12, stats.Records)
	assert.Equal(t, 3, stats.Sessions)
	assert.Equal(t, 66.67, stats.SuccessRate)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = doGet(t, h, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, db.statsCalls)
}

func TestStatsErrorIsNotCached(t *testing.T) {
	db := &TestMockDB{queryErr: errQueryFailed}
	h := newTestServer(t, db)

	w := doGet(t, h, "/api/stats")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	db.queryErr = nil
	w = doGet(t, h, "/api/stats")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, db.statsCalls)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &TestMockDB{})

	w := doGet(t, h, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "personasim_test_total 1")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &TestMockDB{})

	req, err := http.NewRequest(http.MethodOptions, "/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
