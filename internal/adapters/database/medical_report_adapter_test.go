package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

var reportRowColumns = []string{
	"id", "patient_id", "date", "procedure", "risk_level", "risk_score", "success_rate",
	"complications", "outcome", "notes", "full_analysis", "parsed", "created_at",
}

func newMockReportAdapter(t *testing.T) (*MedicalReportAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewMedicalReportAdapter(postgres.NewClientFromDB(db), nil), mock
}

func TestMedicalReportAdapter_Create(t *testing.T) {
	adapter, mock := newMockReportAdapter(t)

	parsed := entities.ParsedReport{Operation: "Appendectomy", RiskLevel: entities.RiskLevelLow, RiskScore: 25, SuccessRate: 98}
	report := entities.NewMedicalReportFromParsed("P-001", parsed, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "medical_reports"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Create(context.Background(), report))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, entities.OutcomePending, report.Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicalReportAdapter_Create_RequiresPatient(t *testing.T) {
	adapter, _ := newMockReportAdapter(t)

	err := adapter.Create(context.Background(), &entities.MedicalReport{Procedure: "x"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestMedicalReportAdapter_Create_DBError(t *testing.T) {
	adapter, mock := newMockReportAdapter(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "medical_reports"`)).
		WillReturnError(errors.New("connection reset"))

	err := adapter.Create(context.Background(), &entities.MedicalReport{PatientID: "P-001"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestMedicalReportAdapter_GetByID(t *testing.T) {
	adapter, mock := newMockReportAdapter(t)

	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	parsed := entities.ParsedReport{Operation: "Cardiac Catheterization", RiskLevel: entities.RiskLevelModerate, DynamicSections: entities.NewSections()}
	parsed.DynamicSections.Set("Post-operative Care", []string{"ICU monitoring for 24-48 hours"})
	parsedJSON, err := json.Marshal(parsed)
	require.NoError(t, err)

	rows := sqlmock.NewRows(reportRowColumns).AddRow(
		"r-1", "P-001", created, "Cardiac Catheterization", "moderate", 45, 92,
		"Minor bleeding at insertion site", "successful", nil, "full text", parsedJSON, created,
	)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "medical_reports" WHERE ("id" = 'r-1')`)).WillReturnRows(rows)

	report, err := adapter.GetByID(context.Background(), "r-1")
	require.NoError(t, err)

	assert.Equal(t, entities.RiskLevelModerate, report.RiskLevel)
	assert.Equal(t, entities.OutcomeSuccessful, report.Outcome)
	assert.Equal(t, "Minor bleeding at insertion site", report.Complications)
	assert.Empty(t, report.Notes)
	require.NotNil(t, report.Parsed)
	assert.Equal(t, []string{"Post-operative Care"}, report.Parsed.DynamicSections.Titles())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicalReportAdapter_GetByID_NotFound(t *testing.T) {
	adapter, mock := newMockReportAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "medical_reports"`)).WillReturnError(sql.ErrNoRows)

	_, err := adapter.GetByID(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestMedicalReportAdapter_GetByIDs_Empty(t *testing.T) {
	adapter, mock := newMockReportAdapter(t)

	reports, err := adapter.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicalReportAdapter_GetByIDs(t *testing.T) {
	adapter, mock := newMockReportAdapter(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(reportRowColumns).
		AddRow("a", "P-1", now, "Appendectomy", "low", 25, 98, nil, "pending", nil, "", nil, now).
		AddRow("b", "P-2", now, "Knee Arthroscopy", "low", 25, 95, nil, "pending", nil, "", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ("id" IN ('a', 'b'))`)).WillReturnRows(rows)

	reports, err := adapter.GetByIDs(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Nil(t, reports[0].Parsed)
}

func TestMedicalReportAdapter_ListByPatient(t *testing.T) {
	adapter, mock := newMockReportAdapter(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(reportRowColumns).
		AddRow("a", "P-1", now, "Appendectomy", "low", 25, 98, nil, "successful", "Routine", "", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ("patient_id" = 'P-1') ORDER BY "date" DESC, "created_at" DESC LIMIT 10`)).
		WillReturnRows(rows)

	reports, err := adapter.ListByPatient(context.Background(), "P-1", 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Routine", reports[0].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicalReportAdapter_ListByPatient_QueryError(t *testing.T) {
	adapter, mock := newMockReportAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "medical_reports"`)).WillReturnError(errors.New("timeout"))

	_, err := adapter.ListByPatient(context.Background(), "P-1", 10)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestMedicalReportAdapter_ListAfterID(t *testing.T) {
	adapter, mock := newMockReportAdapter(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(reportRowColumns).
		AddRow("c", "P-1", now, "Appendectomy", "low", 25, 98, nil, "pending", nil, "", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ("id" > 'b') ORDER BY "id" ASC LIMIT 2`)).
		WillReturnRows(rows)

	reports, err := adapter.ListAfterID(context.Background(), "b", 2)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "c", reports[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
