package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/postgres"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/observability"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

const medicalReportsTable = "medical_reports"

var medicalReportColumns = []interface{}{
	"id", "patient_id", "date", "procedure", "risk_level", "risk_score", "success_rate",
	"complications", "outcome", "notes", "full_analysis", "parsed", "created_at",
}

// MedicalReportAdapter implements MedicalReportRepository on PostgreSQL
type MedicalReportAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

var _ repositories.MedicalReportRepository = (*MedicalReportAdapter)(nil)

// NewMedicalReportAdapter creates a new medical report adapter
func NewMedicalReportAdapter(client *postgres.Client, metrics *observability.Metrics) *MedicalReportAdapter {
	return &MedicalReportAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// Create inserts a report, assigning an ID and timestamps when missing
func (a *MedicalReportAdapter) Create(ctx context.Context, report *entities.MedicalReport) error {
	if report == nil {
		return apperrors.NewValidationError("report is required")
	}
	if report.PatientID == "" {
		return apperrors.NewValidationError("patient_id is required")
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if report.Date.IsZero() {
		report.Date = report.CreatedAt.Truncate(24 * time.Hour)
	}
	if report.Outcome == "" {
		report.Outcome = entities.OutcomePending
	}

	var parsed sql.NullString
	if report.Parsed != nil {
		data, err := json.Marshal(report.Parsed)
		if err != nil {
			return apperrors.NewInternalError("failed to encode parsed report", err)
		}
		parsed = sql.NullString{String: string(data), Valid: true}
	}

	record := goqu.Record{
		"id":            report.ID,
		"patient_id":    report.PatientID,
		"date":          report.Date,
		"procedure":     report.Procedure,
		"risk_level":    string(report.RiskLevel),
		"risk_score":    report.RiskScore,
		"success_rate":  report.SuccessRate,
		"complications": sql.NullString{String: report.Complications, Valid: report.Complications != ""},
		"outcome":       string(report.Outcome),
		"notes":         sql.NullString{String: report.Notes, Valid: report.Notes != ""},
		"full_analysis": report.FullAnalysis,
		"parsed":        parsed,
		"created_at":    report.CreatedAt,
	}

	query, args, err := a.db.Insert(medicalReportsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	start := time.Now()
	_, err = a.client.DB().ExecContext(ctx, query, args...)
	observability.RecordDBMetric(ctx, a.metrics, "medical_reports.insert", time.Since(start))
	if err != nil {
		return apperrors.NewInternalError("failed to create medical report", err)
	}

	return nil
}

// GetByID retrieves a report by ID
func (a *MedicalReportAdapter) GetByID(ctx context.Context, id string) (*entities.MedicalReport, error) {
	query, args, err := a.db.Select(medicalReportColumns...).
		From(medicalReportsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	start := time.Now()
	report, err := scanMedicalReport(a.client.DB().QueryRowContext(ctx, query, args...))
	observability.RecordDBMetric(ctx, a.metrics, "medical_reports.get", time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("medical report not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get medical report", err)
	}

	return report, nil
}

// GetByIDs retrieves the reports found among ids
func (a *MedicalReportAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.MedicalReport, error) {
	if len(ids) == 0 {
		return []*entities.MedicalReport{}, nil
	}

	query, args, err := a.db.Select(medicalReportColumns...).
		From(medicalReportsTable).
		Where(goqu.Ex{"id": ids}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryReports(ctx, "medical_reports.get_many", query, args)
}

// ListByPatient returns the newest reports for a patient
func (a *MedicalReportAdapter) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.MedicalReport, error) {
	ds := a.db.Select(medicalReportColumns...).
		From(medicalReportsTable).
		Where(goqu.Ex{"patient_id": patientID}).
		Order(goqu.I("date").Desc(), goqu.I("created_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryReports(ctx, "medical_reports.list_by_patient", query, args)
}

// ListAfterID pages through every stored report in id order
func (a *MedicalReportAdapter) ListAfterID(ctx context.Context, afterID string, limit int) ([]*entities.MedicalReport, error) {
	ds := a.db.Select(medicalReportColumns...).
		From(medicalReportsTable).
		Order(goqu.I("id").Asc())
	if afterID != "" {
		ds = ds.Where(goqu.I("id").Gt(afterID))
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryReports(ctx, "medical_reports.list_after_id", query, args)
}

func (a *MedicalReportAdapter) queryReports(ctx context.Context, operation, query string, args []interface{}) ([]*entities.MedicalReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDBMetric(ctx, a.metrics, operation, time.Since(start))
	}()

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query medical reports", err)
	}
	defer rows.Close()

	reports := []*entities.MedicalReport{}
	for rows.Next() {
		report, err := scanMedicalReport(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan medical report", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate medical reports", err)
	}

	return reports, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMedicalReport(row rowScanner) (*entities.MedicalReport, error) {
	report := &entities.MedicalReport{}
	var riskLevel, outcome string
	var complications, notes sql.NullString
	var parsed []byte

	err := row.Scan(
		&report.ID,
		&report.PatientID,
		&report.Date,
		&report.Procedure,
		&riskLevel,
		&report.RiskScore,
		&report.SuccessRate,
		&complications,
		&outcome,
		&notes,
		&report.FullAnalysis,
		&parsed,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	report.RiskLevel = entities.RiskLevel(riskLevel)
	report.Outcome = entities.ReportOutcome(outcome)
	report.Complications = complications.String
	report.Notes = notes.String

	if len(parsed) > 0 {
		var p entities.ParsedReport
		if err := json.Unmarshal(parsed, &p); err != nil {
			return nil, err
		}
		report.Parsed = &p
	}

	return report, nil
}
