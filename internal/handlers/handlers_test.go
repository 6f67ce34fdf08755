package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsreport/internal/config"
	"adsreport/internal/export"
	"adsreport/internal/models"
	"adsreport/internal/monitoring"
	"adsreport/internal/storage"
)

type fakeRunner struct {
	store  *storage.ReportStore
	report *models.ReportSnapshot
	err    error
	calls  int
}

func (f *fakeRunner) Run(ctx context.Context) (*models.ReportSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.store.Replace(f.report)
	return f.report, nil
}

type testServer struct {
	router *gin.Engine
	runner *fakeRunner
	store  *storage.ReportStore
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{TriggerKey: "s3cret", StaticDir: t.TempDir()}
	store := storage.NewReportStore()
	runner := &fakeRunner{
		store: store,
		report: &models.ReportSnapshot{
			RunID:       "run-42",
			Date:        "2025-01-15",
			GeneratedAt: time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC),
			Family:      "Google Ads",
			Summary:     models.Summary{Campaigns: 3},
			Highlights:  []models.InsightHighlight{{Metric: "Most Clicks", Campaign: "Search - Brand", Value: "1,000"}},
			ChartPNG:    []byte("png"),
			HTML:        "<p>email</p>",
		},
	}
	h := New(cfg, runner, store, export.NewRenderer(t.TempDir(), logger), monitoring.NewMetrics(), logger)

	router := gin.New()
	h.Register(router)
	return &testServer{router: router, runner: runner, store: store, cfg: cfg}
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	body := decode(t, s.get("/health"))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "adsreport", body["service"])
	assert.Equal(t, false, body["report_ready"])
	assert.Nil(t, body["last_run"])
	assert.NotEmpty(t, body["timestamp"])

	s.get("/trigger?key=s3cret")
	body = decode(t, s.get("/health"))
	assert.Equal(t, true, body["report_ready"])
	assert.NotNil(t, body["last_run"])
}

func TestTriggerRejectsBadKey(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/trigger", "/trigger?key=wrong", "/trigger?key=S3CRET", "/trigger?key=s3cret%20"} {
		rec := s.get(path)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
	assert.Zero(t, s.runner.calls)
}

func TestTriggerDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t)
	s.cfg.TriggerKey = ""

	assert.Equal(t, http.StatusForbidden, s.get("/trigger?key=").Code)
	assert.Zero(t, s.runner.calls)
}

func TestTrigger(t *testing.T) {
	s := newTestServer(t)
	s.runner.report.EmailSent = true

	rec := s.get("/trigger?key=s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "run-42", body["run_id"])
	assert.Equal(t, 3.0, body["campaigns"])
	assert.Equal(t, true, body["email_sent"])
	assert.Equal(t, 1, s.runner.calls)
}

func TestTriggerPartial(t *testing.T) {
	s := newTestServer(t)
	s.runner.report.EmailError = "smtp authentication failed"

	body := decode(t, s.get("/trigger?key=s3cret"))
	assert.Equal(t, "partial", body["status"])
	assert.Equal(t, "smtp authentication failed", body["email_error"])
}

func TestTriggerRunFailure(t *testing.T) {
	s := newTestServer(t)
	s.runner.err = errors.New("failed to load sheet: unreachable")

	rec := s.get("/trigger?key=s3cret")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["error"], "unreachable")
	assert.False(t, s.store.HasData())
}

func TestGetData(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/api/data")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "No report available")

	s.get("/trigger?key=s3cret")
	rec = s.get("/api/data")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run-42", body["run_id"])
	assert.NotContains(t, body, "HTML")
	assert.NotContains(t, body, "ChartPNG")
	highlights := body["highlights"].([]interface{})
	require.Len(t, highlights, 1)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No report has been generated yet")

	s.get("/trigger?key=s3cret")
	rec = s.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Google Ads Daily KPI Report - 2025-01-15")
	assert.Contains(t, rec.Body.String(), `src="/static/spend_chart.png"`)
}

func TestStaticChart(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.StaticDir, export.ChartFile), []byte("\x89PNG"), 0o644))

	rec := s.get("/static/spend_chart.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "\x89PNG", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
