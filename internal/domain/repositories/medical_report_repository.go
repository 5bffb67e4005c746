package repositories

import (
	"context"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

// MedicalReportRepository persists risk assessment reports
type MedicalReportRepository interface {
	// Create stores a report, assigning an ID when empty
	Create(ctx context.Context, report *entities.MedicalReport) error

	// GetByID returns a single report
	GetByID(ctx context.Context, id string) (*entities.MedicalReport, error)

	// GetByIDs returns the reports found among ids, in no particular order
	GetByIDs(ctx context.Context, ids []string) ([]*entities.MedicalReport, error)

	// ListByPatient returns the newest reports for a patient, date descending
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.MedicalReport, error)
}

// ReportSearchParams filters a report search
type ReportSearchParams struct {
	Query     string
	PatientID string
	RiskLevel string
	Limit     int
	Offset    int
}

// ReportSearchRepository indexes reports for full-text search
type ReportSearchRepository interface {
	Index(ctx context.Context, report *entities.MedicalReport) error
	Search(ctx context.Context, params ReportSearchParams) ([]*entities.MedicalReport, error)
}
