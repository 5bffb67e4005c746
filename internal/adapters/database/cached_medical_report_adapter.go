package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/observability"
)

const defaultReportCacheTTL = 5 * time.Minute

// CachedMedicalReportAdapter wraps a MedicalReportRepository with a read-through cache
type CachedMedicalReportAdapter struct {
	adapter repositories.MedicalReportRepository
	cache   providers.CacheProvider
	ttl     time.Duration
	metrics *observability.Metrics
}

var _ repositories.MedicalReportRepository = (*CachedMedicalReportAdapter)(nil)

// NewCachedMedicalReportAdapter creates a new cached report adapter
func NewCachedMedicalReportAdapter(adapter repositories.MedicalReportRepository, cache providers.CacheProvider, ttl time.Duration, metrics *observability.Metrics) *CachedMedicalReportAdapter {
	if ttl <= 0 {
		ttl = defaultReportCacheTTL
	}
	return &CachedMedicalReportAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
	}
}

// Create stores the report and drops the patient's cached history
func (a *CachedMedicalReportAdapter) Create(ctx context.Context, report *entities.MedicalReport) error {
	if err := a.adapter.Create(ctx, report); err != nil {
		return err
	}

	if err := a.cache.DeletePattern(ctx, providers.PatientHistoryCachePattern(report.PatientID)); err != nil {
		log.Warn().Err(err).Str("patient_id", report.PatientID).Msg("Failed to invalidate patient history cache")
	}
	return nil
}

// GetByID retrieves a report with caching
func (a *CachedMedicalReportAdapter) GetByID(ctx context.Context, id string) (*entities.MedicalReport, error) {
	key := providers.ReportCacheKey(id)

	if cached, err := a.cache.Get(ctx, key); err == nil {
		var report entities.MedicalReport
		if err := json.Unmarshal(cached, &report); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "report")
			return &report, nil
		}
		log.Warn().Err(err).Str("report_id", id).Msg("Failed to decode cached report")
	}
	observability.RecordCacheMiss(ctx, a.metrics, "report")

	report, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.store(key, report)
	return report, nil
}

// GetByIDs is not cached; batch lookups already go through the loader
func (a *CachedMedicalReportAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.MedicalReport, error) {
	return a.adapter.GetByIDs(ctx, ids)
}

// ListByPatient retrieves a patient's history with caching
func (a *CachedMedicalReportAdapter) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.MedicalReport, error) {
	key := providers.PatientHistoryCacheKey(patientID, limit)

	if cached, err := a.cache.Get(ctx, key); err == nil {
		var reports []*entities.MedicalReport
		if err := json.Unmarshal(cached, &reports); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "patient_history")
			return reports, nil
		}
		log.Warn().Err(err).Str("patient_id", patientID).Msg("Failed to decode cached patient history")
	}
	observability.RecordCacheMiss(ctx, a.metrics, "patient_history")

	reports, err := a.adapter.ListByPatient(ctx, patientID, limit)
	if err != nil {
		return nil, err
	}

	a.store(key, reports)
	return reports, nil
}

// store refreshes the cache without blocking the caller
func (a *CachedMedicalReportAdapter) store(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.cache.Set(ctx, key, data, int(a.ttl.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache entry")
		}
	}()
}
