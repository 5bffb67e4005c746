package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

// ReportService handles storage, indexing and change events for medical reports
type ReportService struct {
	repo       repositories.MedicalReportRepository
	searchRepo repositories.ReportSearchRepository
	eventBus   providers.EventBus
}

// NewReportService creates a new report service. searchRepo and eventBus may be nil.
func NewReportService(repo repositories.MedicalReportRepository, searchRepo repositories.ReportSearchRepository, eventBus providers.EventBus) *ReportService {
	return &ReportService{
		repo:       repo,
		searchRepo: searchRepo,
		eventBus:   eventBus,
	}
}

// Save persists a report, then indexes it and announces it
func (s *ReportService) Save(ctx context.Context, report *entities.MedicalReport) error {
	if report == nil {
		return apperrors.NewValidationError("report is required")
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}

	if err := s.repo.Create(ctx, report); err != nil {
		return err
	}

	if s.searchRepo != nil {
		if err := s.searchRepo.Index(ctx, report); err != nil {
			log.Warn().Err(err).Str("report_id", report.ID).Msg("Failed to index report")
		}
	}

	s.publishCreated(ctx, report)
	return nil
}

func (s *ReportService) publishCreated(ctx context.Context, report *entities.MedicalReport) {
	if s.eventBus == nil {
		return
	}

	event := entities.NewReportEvent(report, entities.ReportEventTypeCreated)
	for _, channel := range []string{providers.EventChannelReportUpdates, providers.GetPatientChannel(report.PatientID)} {
		if err := s.eventBus.Publish(ctx, channel, event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Str("report_id", report.ID).Msg("Failed to publish report event")
		}
	}
}

// GetByID retrieves a report by ID
func (s *ReportService) GetByID(ctx context.Context, id string) (*entities.MedicalReport, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("report id is required")
	}
	return s.repo.GetByID(ctx, id)
}

// ListByPatient returns a patient's newest reports
func (s *ReportService) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.MedicalReport, error) {
	return s.repo.ListByPatient(ctx, patientID, limit)
}

// Search runs a full-text report search
func (s *ReportService) Search(ctx context.Context, params repositories.ReportSearchParams) ([]*entities.MedicalReport, error) {
	if s.searchRepo == nil {
		return nil, apperrors.NewInternalError("report search is not configured", nil)
	}
	return s.searchRepo.Search(ctx, params)
}
