package handlers

import (
	"net/http"

	"github.com/nfcure/digitaltwin/backend/internal/application/services"
)

// HistoryHandler serves a patient's report history
type HistoryHandler struct {
	history *services.HistoricalAnalysisService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *services.HistoricalAnalysisService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// GetHistory handles GET /api/patients/{id}/history
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	reports, err := h.history.GetPatientHistory(r.Context(), patientID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patientId": patientID,
		"reports":   reports,
		"count":     len(reports),
	})
}

// GetAnalysis handles GET /api/patients/{id}/history/analysis
func (h *HistoryHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.history.AnalyzePatientHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, analysis)
}
