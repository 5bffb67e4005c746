package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcure/digitaltwin/backend/internal/application/services"
	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
)

func TestCacheInvalidationService_Start(t *testing.T) {
	cache := newMemoryCache()
	bus := newRecordingEventBus()
	service := services.NewCacheInvalidationService(cache, bus)

	require.NoError(t, service.Start())
	assert.Equal(t, 1, bus.subscriberCount(providers.EventChannelReportUpdates))

	service.Stop()
}

func TestCacheInvalidationService_StopWithoutStart(t *testing.T) {
	service := services.NewCacheInvalidationService(newMemoryCache(), newRecordingEventBus())
	assert.NotPanics(t, service.Stop)
}

func TestCacheInvalidationService_ReportCreatedClearsPatientEntries(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	bus := newRecordingEventBus()
	service := services.NewCacheInvalidationService(cache, bus)
	require.NoError(t, service.Start())
	defer service.Stop()

	historyKey := providers.PatientHistoryCacheKey("P-1", 10)
	httpKey := "http:cache:GET:/api/patients/P-1/history"
	otherKey := providers.PatientHistoryCacheKey("P-2", 10)
	reportKey := providers.ReportCacheKey("r-1")
	for _, key := range []string{historyKey, httpKey, otherKey, reportKey} {
		require.NoError(t, cache.Set(ctx, key, []byte("data"), 300))
	}

	event := entities.NewReportEvent(&entities.MedicalReport{ID: "r-2", PatientID: "P-1"}, entities.ReportEventTypeCreated)
	require.NoError(t, bus.Publish(ctx, providers.EventChannelReportUpdates, event))

	assert.Eventually(t, func() bool {
		return !cache.has(historyKey) && !cache.has(httpKey)
	}, time.Second, 10*time.Millisecond)
	assert.True(t, cache.has(otherKey))
	assert.True(t, cache.has(reportKey))
}

func TestCacheInvalidationService_InvalidatePatientCacheIgnoresEmptyID(t *testing.T) {
	cache := newMemoryCache()
	require.NoError(t, cache.Set(context.Background(), "reports:patient::10", []byte("x"), 60))
	service := services.NewCacheInvalidationService(cache, newRecordingEventBus())

	require.NoError(t, service.InvalidatePatientCache(context.Background(), ""))
	assert.True(t, cache.has("reports:patient::10"))
}

func TestCacheInvalidationService_InvalidateSearchCaches(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	require.NoError(t, cache.Set(ctx, "http:cache:GET:/api/reports/search:abcd", []byte("data"), 300))
	require.NoError(t, cache.Set(ctx, "http:cache:GET:/api/reports/r-1", []byte("data"), 300))
	service := services.NewCacheInvalidationService(cache, newRecordingEventBus())

	require.NoError(t, service.InvalidateSearchCaches(ctx))

	assert.False(t, cache.has("http:cache:GET:/api/reports/search:abcd"))
	assert.True(t, cache.has("http:cache:GET:/api/reports/r-1"))
}
