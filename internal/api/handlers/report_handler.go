package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nfcure/digitaltwin/backend/internal/application/services"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// ReportHandler handles report parsing, retrieval, search and export
type ReportHandler struct {
	diagnosis *services.DiagnosisService
	reports   *services.ReportService
	exporter  *services.ReportExportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(diagnosis *services.DiagnosisService, reports *services.ReportService, exporter *services.ReportExportService) *ReportHandler {
	return &ReportHandler{
		diagnosis: diagnosis,
		reports:   reports,
		exporter:  exporter,
	}
}

type parseRequest struct {
	Text      string `json:"text"`
	Operation string `json:"operation"`
}

// ParseReport handles POST /api/reports/parse
func (h *ReportHandler) ParseReport(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.diagnosis.ParseText(r.Context(), req.Text, req.Operation))
}

// GetReport handles GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// ExportReport handles GET /api/reports/{id}/export?format=json|html|summary
func (h *ReportHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "json":
		doc, err := h.exporter.ExportJSON(ctx, id)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="medical-analysis-`+safeFilename(id)+`.json"`)
		respondWithJSON(w, http.StatusOK, doc)

	case "html":
		page, err := h.exporter.RenderHTML(ctx, id)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)

	case "summary":
		summary, err := h.exporter.Summary(ctx, id)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(summary))

	default:
		respondWithError(w, http.StatusBadRequest, "format must be one of json, html, summary")
	}
}

type batchExportRequest struct {
	IDs []string `json:"ids"`
}

// ExportReports handles POST /api/reports/export
func (h *ReportHandler) ExportReports(w http.ResponseWriter, r *http.Request) {
	var req batchExportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	batch, err := h.exporter.ExportBatch(r.Context(), req.IDs)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, batch)
}

// SearchReports handles GET /api/reports/search
func (h *ReportHandler) SearchReports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := parseBoundedInt(query.Get("limit"), defaultSearchLimit, maxSearchLimit)
	if err != nil {
		respondWithAppError(w, r, apperrors.NewValidationError("limit must be a positive integer"))
		return
	}
	offset, err := parseBoundedInt(query.Get("offset"), 0, -1)
	if err != nil {
		respondWithAppError(w, r, apperrors.NewValidationError("offset must be a non-negative integer"))
		return
	}

	params := repositories.ReportSearchParams{
		Query:     query.Get("q"),
		PatientID: query.Get("patient_id"),
		RiskLevel: query.Get("risk_level"),
		Limit:     limit,
		Offset:    offset,
	}

	reports, err := h.reports.Search(r.Context(), params)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// parseBoundedInt parses an optional non-negative integer. A negative ceiling means unbounded.
func parseBoundedInt(raw string, def, ceiling int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError("invalid integer")
	}
	if ceiling >= 0 && n > ceiling {
		n = ceiling
	}
	return n, nil
}

func safeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}
