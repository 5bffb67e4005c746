package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcure/digitaltwin/backend/internal/application/services"
	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

func TestReportService_SaveAssignsIDAndPublishes(t *testing.T) {
	repo := newMemoryReportRepo()
	search := &stubSearchRepo{}
	bus := newRecordingEventBus()
	svc := services.NewReportService(repo, search, bus)

	report := &entities.MedicalReport{PatientID: "P-1", Procedure: "Appendectomy", RiskLevel: entities.RiskLevelLow}
	require.NoError(t, svc.Save(context.Background(), report))

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, []string{report.ID}, search.indexed)

	events := bus.events(providers.GetPatientChannel("P-1"))
	require.Len(t, events, 1)
	assert.Equal(t, entities.ReportEventTypeCreated, events[0].EventType)
	assert.Equal(t, report.ID, events[0].ReportID)
	assert.Equal(t, entities.RiskLevelLow, events[0].RiskLevel)
}

func TestReportService_SaveNil(t *testing.T) {
	svc := services.NewReportService(newMemoryReportRepo(), nil, nil)
	assert.True(t, apperrors.IsType(svc.Save(context.Background(), nil), apperrors.ErrorTypeValidation))
}

func TestReportService_GetByIDRequiresID(t *testing.T) {
	svc := services.NewReportService(newMemoryReportRepo(), nil, nil)

	_, err := svc.GetByID(context.Background(), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestReportService_Search(t *testing.T) {
	search := &stubSearchRepo{results: []*entities.MedicalReport{{ID: "r-1"}}}
	svc := services.NewReportService(newMemoryReportRepo(), search, nil)

	params := repositories.ReportSearchParams{Query: "knee", PatientID: "P-1", Limit: 5}
	results, err := svc.Search(context.Background(), params)

	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, params, search.params)
}

func TestReportService_SearchWithoutIndex(t *testing.T) {
	svc := services.NewReportService(newMemoryReportRepo(), nil, nil)

	_, err := svc.Search(context.Background(), repositories.ReportSearchParams{Query: "knee"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}
