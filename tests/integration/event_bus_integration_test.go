//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcure/digitaltwin/backend/internal/adapters/cache"
	"github.com/nfcure/digitaltwin/backend/internal/adapters/database"
	"github.com/nfcure/digitaltwin/backend/internal/adapters/events"
	"github.com/nfcure/digitaltwin/backend/internal/application/services"
	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
)

func TestRedisEventBusFanoutIntegration(t *testing.T) {
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	channel := providers.EventChannelReportUpdates
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()

	sub1, err := eventBus.Subscribe(ctx1, channel)
	require.NoError(t, err)
	sub2, err := eventBus.Subscribe(ctx2, channel)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	event := entities.NewReportEvent(&entities.MedicalReport{
		ID:        "report-redis-1",
		PatientID: "patient-redis-1",
		RiskLevel: entities.RiskLevelHigh,
	}, entities.ReportEventTypeCreated)

	require.NoError(t, eventBus.Publish(context.Background(), channel, event))

	received1 := waitForReportEvent(t, sub1)
	received2 := waitForReportEvent(t, sub2)

	assert.Equal(t, event.ID, received1.ID)
	assert.Equal(t, event.ID, received2.ID)
	assert.Equal(t, entities.RiskLevelHigh, received1.RiskLevel)
	assert.Zero(t, eventBus.Dropped())
}

func TestReportSave_InvalidatesCachedHistory(t *testing.T) {
	if os.Getenv("TEST_DB_HOST") == "" || os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST or TEST_REDIS_HOST not set")
	}

	dbClient := newTestPostgresClient(t)
	defer dbClient.Close()

	db := dbClient.DB()
	runMigrations(t, dbClient, "../../migrations/001_medical_reports.sql")

	const patientID = "it-patient-cache"
	cleanupPatientReports(t, db, patientID)
	defer cleanupPatientReports(t, db, patientID)

	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	cacheProvider := cache.NewRedisAdapter(redisClient)
	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	invalidation := services.NewCacheInvalidationService(cacheProvider, eventBus)
	require.NoError(t, invalidation.Start())
	defer invalidation.Stop()
	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	httpKey := "http:cache:GET:/api/patients/" + patientID + "/history"
	require.NoError(t, cacheProvider.Set(ctx, httpKey, []byte(`{"count":0}`), 60))

	repo := database.NewCachedMedicalReportAdapter(database.NewMedicalReportAdapter(dbClient, nil), cacheProvider, time.Minute, nil)
	reports := services.NewReportService(repo, nil, eventBus)

	report := &entities.MedicalReport{
		PatientID:   patientID,
		Procedure:   "Appendectomy",
		RiskLevel:   entities.RiskLevelLow,
		RiskScore:   entities.RiskLevelLow.Score(),
		SuccessRate: 97,
	}
	require.NoError(t, reports.Save(ctx, report))

	assert.Eventually(t, func() bool {
		exists, err := cacheProvider.Exists(ctx, httpKey)
		return err == nil && !exists
	}, 3*time.Second, 50*time.Millisecond)

	history, err := reports.ListByPatient(ctx, patientID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, report.ID, history[0].ID)
}
