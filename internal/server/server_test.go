package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captable-lab/internal/storage/memory"
)

const analyzeBody = `{
	"valuation_id": "val-001",
	"company_id": "co-acme",
	"share_classes": [
		{
			"id": "series-a",
			"type": "preferred",
			"shares_outstanding": 1000000,
			"price_per_share": "1",
			"seniority": 1,
			"liquidation_multiple": 1,
			"preference_type": "non-participating",
			"conversion_ratio": 1
		},
		{
			"id": "common",
			"type": "common",
			"shares_outstanding": 4000000,
			"conversion_ratio": 1
		}
	]
}`

func newTestServer(t *testing.T) (*Server, *memory.AnalysisRunStore, *memory.BreakpointStore) {
	t.Helper()

	runs := memory.NewAnalysisRunStore()
	bps := memory.NewBreakpointStore()
	srv := New(Options{RunStore: runs, BreakpointStore: bps}).WithClock(func() time.Time {
		return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	})
	return srv, runs, bps
}

func postAnalyze(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/breakpoints/analyze", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := postAnalyze(t, srv, analyzeBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env["success"])
	assert.Equal(t, "val-001", env["valuation_id"])
	assert.Equal(t, "co-acme", env["company_id"])
	assert.Equal(t, "2026-01-15T12:00:00Z", env["generated_at"])

	data := env["data"].(map[string]interface{})
	assert.NotEmpty(t, data["run_id"])
	assert.NotEmpty(t, data["run_ref"])

	bps := data["breakpoints"].([]interface{})
	require.Len(t, bps, 2)
	first := bps[0].(map[string]interface{})
	assert.Equal(t, "liquidation-preference-satisfied", first["breakpoint_type"])
	assert.Equal(t, 1_000_000.0, first["exit_value"])

	counts := data["counts"].(map[string]interface{})
	assert.Equal(t, 2.0, counts["total"])
	assert.Equal(t, 0.0, data["validation_failures"])
}

func TestAnalyzePersistsAndGetRun(t *testing.T) {
	srv, runs, _ := newTestServer(t)

	rec := postAnalyze(t, srv, analyzeBody)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	ref := data["run_ref"].(string)

	stored, err := runs.GetByRef(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "val-001", stored.ValuationID)

	// Re-analyzing the same input is idempotent.
	rec = postAnalyze(t, srv, analyzeBody)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+ref, nil)
	getRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)

	env := decodeEnvelope(t, getRec)
	assert.Equal(t, true, env["success"])
	run := env["data"].(map[string]interface{})
	assert.Equal(t, ref, run["run_ref"])
	assert.Len(t, run["breakpoints"].([]interface{}), 2)
}

func TestGetRunNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/missing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, false, env["success"])
	assert.Contains(t, env["error"], "run not found")
}

func TestAnalyzeConstructionFailure(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := strings.Replace(analyzeBody, `"shares_outstanding": 1000000`, `"shares_outstanding": -5`, 1)
	rec := postAnalyze(t, srv, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, false, env["success"])
	assert.NotEmpty(t, env["error"])
	assert.Equal(t, "val-001", env["valuation_id"])
	assert.Nil(t, env["data"])
}

func TestAnalyzeUnknownEnum(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := strings.Replace(analyzeBody, `"non-participating"`, `"full-ratchet"`, 1)
	rec := postAnalyze(t, srv, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec)["error"], "unknown preference type")
}

func TestAnalyzeMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := postAnalyze(t, srv, `{"share_classes": [{"unknown_field": 1}]`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	postAnalyze(t, srv, analyzeBody)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["analyses_served"])
	assert.Equal(t, 0.0, data["analyses_rejected"])
}

func TestFeedBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	runs := memory.NewAnalysisRunStore()
	bps := memory.NewBreakpointStore()
	srv := New(Options{RunStore: runs, BreakpointStore: bps, Hub: hub})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/analyses"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the hub to register the client before analyzing.
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/api/v1/breakpoints/analyze", "application/json",
		strings.NewReader(analyzeBody))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event AnalysisEvent
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, "analysis-completed", event.Event)
	assert.Equal(t, "val-001", event.ValuationID)
	assert.Equal(t, 2, event.TotalBreakpoints)
	assert.NotEmpty(t, event.RunRef)
}
