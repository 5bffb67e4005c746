package handlers

import (
	"net/http"

	"github.com/nfcure/digitaltwin/backend/internal/application/services"
	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

// DiagnosisHandler handles risk assessment requests
type DiagnosisHandler struct {
	diagnosis *services.DiagnosisService
}

// NewDiagnosisHandler creates a new diagnosis handler
func NewDiagnosisHandler(diagnosis *services.DiagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{diagnosis: diagnosis}
}

// Analyze handles POST /api/diagnosis/analyze
func (h *DiagnosisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var data entities.MedicalData
	if err := decodeJSON(w, r, &data); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	report, err := h.diagnosis.Analyze(r.Context(), &data)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, report)
}
