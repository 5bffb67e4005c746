package providers

import (
	"context"
	"errors"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

// ErrAssessmentUnauthorized indicates the model provider rejected our credentials.
var ErrAssessmentUnauthorized = errors.New("assessment provider unauthorized")

// AssessmentProvider produces free-text surgical risk assessments.
type AssessmentProvider interface {
	// Name identifies the provider in logs and export metadata
	Name() string

	// ValidateProcedure reports whether name looks like a medical procedure
	ValidateProcedure(ctx context.Context, name string) (bool, error)

	// AnalyzeMedicalData returns the raw assessment text for a patient
	AnalyzeMedicalData(ctx context.Context, data *entities.MedicalData) (string, error)

	// AnalyzeHistoricalReports returns a raw review of prior reports
	AnalyzeHistoricalReports(ctx context.Context, patientID string, reports []*entities.MedicalReport) (string, error)
}
