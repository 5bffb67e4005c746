package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
)

// CacheInvalidationService clears cached patient data when reports change
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for report events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelReportUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to report updates: %w", err)
	}

	s.started = true
	go s.processEvents(eventChan)
	log.Info().Str("channel", providers.EventChannelReportUpdates).Msg("Cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service and waits for the worker to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
	log.Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ReportEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.ReportEvent) {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	log.Debug().
		Str("event_id", event.ID).
		Str("patient_id", event.PatientID).
		Str("event_type", string(event.EventType)).
		Msg("Processing cache invalidation")

	if err := s.InvalidatePatientCache(ctx, event.PatientID); err != nil {
		log.Warn().Err(err).Str("patient_id", event.PatientID).Msg("Failed to invalidate patient cache")
	}
}

// InvalidatePatientCache drops cached history lists and HTTP responses for a patient.
// Single-report entries are left to expire since stored reports do not change.
func (s *CacheInvalidationService) InvalidatePatientCache(ctx context.Context, patientID string) error {
	if patientID == "" {
		return nil
	}

	patterns := []string{
		providers.PatientHistoryCachePattern(patientID),
		providers.PatientHTTPCachePattern(patientID),
	}
	for _, pattern := range patterns {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
		}
	}

	log.Debug().Str("patient_id", patientID).Msg("Invalidated patient cache")
	return nil
}

// InvalidateSearchCaches drops every cached search response
func (s *CacheInvalidationService) InvalidateSearchCaches(ctx context.Context) error {
	pattern := "http:cache:*reports/search*"
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
	}
	log.Info().Str("pattern", pattern).Msg("Invalidated search caches")
	return nil
}
