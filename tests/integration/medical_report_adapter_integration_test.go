//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcure/digitaltwin/backend/internal/adapters/database"
	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/reportparser"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

func TestMedicalReportAdapter_RoundTrip(t *testing.T) {
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST not set")
	}

	client := newTestPostgresClient(t)
	defer client.Close()

	db := client.DB()
	runMigrations(t, client, "../../migrations/001_medical_reports.sql")

	const patientID = "it-patient-roundtrip"
	cleanupPatientReports(t, db, patientID)
	defer cleanupPatientReports(t, db, patientID)

	adapter := database.NewMedicalReportAdapter(client, nil)
	ctx := context.Background()

	parsed := reportparser.Parse("🟡 MODERATE RISK\n\n**Pre-operative Requirements:**\n- Fasting\n- Consent\n\n**Success Probability:** 81%", "Hip Replacement")
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	older := entities.NewMedicalReportFromParsed(patientID, parsed, now.AddDate(0, 0, -30))
	newer := entities.NewMedicalReportFromParsed(patientID, parsed, now)
	require.NoError(t, adapter.Create(ctx, older))
	require.NoError(t, adapter.Create(ctx, newer))
	require.NotEmpty(t, newer.ID)

	got, err := adapter.GetByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RiskLevelModerate, got.RiskLevel)
	assert.Equal(t, 81, got.SuccessRate)
	require.NotNil(t, got.Parsed)
	assert.Equal(t, []string{"Pre-operative Requirements"}, got.Parsed.DynamicSections.Titles())

	history, err := adapter.ListByPatient(ctx, patientID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, newer.ID, history[0].ID)

	batch, err := adapter.GetByIDs(ctx, []string{older.ID, newer.ID})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	_, err = adapter.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
