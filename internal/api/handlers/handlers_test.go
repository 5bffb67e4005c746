package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcure/digitaltwin/backend/internal/adapters/providers/assessment"
	"github.com/nfcure/digitaltwin/backend/internal/api/handlers"
	"github.com/nfcure/digitaltwin/backend/internal/api/routes"
	"github.com/nfcure/digitaltwin/backend/internal/application/services"
	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

type memoryRepo struct {
	mu      sync.Mutex
	reports map[string]*entities.MedicalReport
}

func (r *memoryRepo) Create(ctx context.Context, report *entities.MedicalReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = report
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*entities.MedicalReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report, ok := r.reports[id]; ok {
		return report, nil
	}
	return nil, apperrors.NewNotFoundError("report not found")
}

func (r *memoryRepo) GetByIDs(ctx context.Context, ids []string) ([]*entities.MedicalReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.MedicalReport
	for _, id := range ids {
		if report, ok := r.reports[id]; ok {
			out = append(out, report)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.MedicalReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.MedicalReport
	for _, report := range r.reports {
		if report.PatientID == patientID {
			out = append(out, report)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fixedSearch struct {
	results []*entities.MedicalReport
	got     repositories.ReportSearchParams
}

func (s *fixedSearch) Index(ctx context.Context, report *entities.MedicalReport) error { return nil }

func (s *fixedSearch) Search(ctx context.Context, params repositories.ReportSearchParams) ([]*entities.MedicalReport, error) {
	s.got = params
	return s.results, nil
}

type testServer struct {
	handler http.Handler
	repo    *memoryRepo
	search  *fixedSearch
	health  *handlers.HealthHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := &memoryRepo{reports: map[string]*entities.MedicalReport{}}
	search := &fixedSearch{}
	provider := assessment.NewAssessmentProvider(assessment.ProviderConfig{})

	reports := services.NewReportService(repo, search, nil)
	diagnosis := services.NewDiagnosisService(provider, reports, nil, nil)
	history := services.NewHistoricalAnalysisService(provider, reports, 10)
	exporter := services.NewReportExportService(reports, repo, "test-model")

	health := handlers.NewHealthHandler("test")
	router := routes.NewRouter(
		health,
		handlers.NewReportHandler(diagnosis, reports, exporter),
		handlers.NewDiagnosisHandler(diagnosis),
		handlers.NewHistoryHandler(history),
		handlers.NewReportStreamHandler(nil),
		nil,
		[]string{"*"},
		nil,
	)

	return &testServer{handler: router.SetupRoutes(), repo: repo, search: search, health: health}
}

func (s *testServer) do(method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func analyzeKnee(t *testing.T, s *testServer) *entities.MedicalReport {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/diagnosis/analyze", map[string]interface{}{
		"patientId":         "P-42",
		"patientName":       "Test Patient",
		"age":               61,
		"heartRate":         "72",
		"bloodPressure":     "128/82",
		"proposedOperation": "Total Knee Replacement",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report entities.MedicalReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return &report
}

func TestParseReportEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/reports/parse", map[string]string{
		"text":      "🔴 HIGH RISK\nSuccess Probability: 72%\n\n**Pre-operative Checklist:**\n- Stop anticoagulants",
		"operation": "Cardiac Bypass",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "high", parsed["riskLevel"])
	assert.EqualValues(t, 75, parsed["riskScore"])
	assert.EqualValues(t, 72, parsed["successRate"])
	assert.Equal(t, "Cardiac Bypass", parsed["operation"])
	assert.Equal(t, map[string]interface{}{"Pre-operative Checklist": []interface{}{"Stop anticoagulants"}}, parsed["dynamicSections"])
}

func TestParseReportEndpoint_BadBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/parse", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpoint_StoresAndServesReport(t *testing.T) {
	s := newTestServer(t)
	report := analyzeKnee(t, s)

	assert.Equal(t, entities.RiskLevelLow, report.RiskLevel)
	assert.Equal(t, 95, report.SuccessRate)
	assert.Equal(t, "Total Knee Replacement", report.Procedure)

	rec := s.do(http.MethodGet, "/api/reports/"+report.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched entities.MedicalReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, report.ID, fetched.ID)
	require.NotNil(t, fetched.Parsed)
	assert.Equal(t, report.Parsed.DynamicSections.Titles(), fetched.Parsed.DynamicSections.Titles())
}

func TestAnalyzeEndpoint_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/diagnosis/analyze", map[string]string{"patientId": "P-1", "proposedOperation": "42"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/diagnosis/analyze", map[string]string{"patientId": "P-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "proposed operation is required")
}

func TestGetReport_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEndpoints(t *testing.T) {
	s := newTestServer(t)
	report := analyzeKnee(t, s)

	rec := s.do(http.MethodGet, "/api/reports/"+report.ID+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "medical-analysis-")
	var doc map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "test-model", doc["metadata"]["aiModel"])

	rec = s.do(http.MethodGet, "/api/reports/"+report.ID+"/export?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Total Knee Replacement")

	rec = s.do(http.MethodGet, "/api/reports/"+report.ID+"/export?format=summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Risk Level: low (25%)")

	rec = s.do(http.MethodGet, "/api/reports/"+report.ID+"/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchExportEndpoint(t *testing.T) {
	s := newTestServer(t)
	report := analyzeKnee(t, s)

	rec := s.do(http.MethodPost, "/api/reports/export", map[string][]string{"ids": {report.ID, "ghost"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var batch services.BatchExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Len(t, batch.Documents, 1)
	assert.Equal(t, []string{"ghost"}, batch.Missing)

	rec = s.do(http.MethodPost, "/api/reports/export", map[string][]string{"ids": {}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.search.results = []*entities.MedicalReport{{ID: "r-1", Procedure: "Knee Arthroscopy"}}

	rec := s.do(http.MethodGet, "/api/reports/search?q=knee&patient_id=P-1&risk_level=low&limit=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "knee", s.search.got.Query)
	assert.Equal(t, "P-1", s.search.got.PatientID)
	assert.Equal(t, 100, s.search.got.Limit)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = s.do(http.MethodGet, "/api/reports/search?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	s := newTestServer(t)
	analyzeKnee(t, s)

	rec := s.do(http.MethodGet, "/api/patients/P-42/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = s.do(http.MethodGet, "/api/patients/P-42/history/analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var analysis entities.HistoricalAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, 1, analysis.ReportCount)
	assert.Equal(t, entities.RiskTrendStable, analysis.OverallRiskTrend)

	rec = s.do(http.MethodGet, "/api/patients/P-new/history/analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No previous medical history available")
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	s.health.Register("postgres", func(ctx context.Context) error { return errors.New("down") })
	rec = s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"unavailable"`)
}
