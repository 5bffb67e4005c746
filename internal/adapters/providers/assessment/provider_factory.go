package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
	"github.com/nfcure/digitaltwin/backend/pkg/retry"
)

// ProviderConfig configures assessment providers.
type ProviderConfig struct {
	Primary           providers.AssessmentProvider
	SimulateOnFailure bool
	SimulatedDelay    time.Duration
	Retry             retry.Config
}

// NewAssessmentProvider returns the primary provider wrapped with retry and an
// optional simulated fallback. Without a primary the simulator is used directly.
func NewAssessmentProvider(cfg ProviderConfig) providers.AssessmentProvider {
	simulated := NewSimulatedProvider(cfg.SimulatedDelay)
	if cfg.Primary == nil {
		return simulated
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.UpstreamConfig()
	}

	p := &FallbackProvider{
		primary: cfg.Primary,
		retry:   retryCfg,
	}
	if cfg.SimulateOnFailure {
		p.fallback = simulated
	}
	return p
}

// FallbackProvider retries the primary provider and optionally falls back
// to the simulator when it keeps failing.
type FallbackProvider struct {
	primary  providers.AssessmentProvider
	fallback providers.AssessmentProvider
	retry    retry.Config
}

var _ providers.AssessmentProvider = (*FallbackProvider)(nil)

// Name reports the primary provider's name
func (p *FallbackProvider) Name() string {
	return p.primary.Name()
}

func (p *FallbackProvider) ValidateProcedure(ctx context.Context, name string) (bool, error) {
	ok, err := p.primary.ValidateProcedure(ctx, name)
	if err != nil && p.fallback != nil {
		return p.fallback.ValidateProcedure(ctx, name)
	}
	return ok, err
}

func (p *FallbackProvider) AnalyzeMedicalData(ctx context.Context, data *entities.MedicalData) (string, error) {
	var text string
	err := p.do(ctx, "assessment", func() error {
		var err error
		text, err = p.primary.AnalyzeMedicalData(ctx, data)
		return err
	})
	if err != nil && p.canFallBack(err) {
		log.Warn().Err(err).Msg("Assessment provider failed, using simulated assessment")
		return p.fallback.AnalyzeMedicalData(ctx, data)
	}
	return text, err
}

func (p *FallbackProvider) AnalyzeHistoricalReports(ctx context.Context, patientID string, reports []*entities.MedicalReport) (string, error) {
	var text string
	err := p.do(ctx, "history", func() error {
		var err error
		text, err = p.primary.AnalyzeHistoricalReports(ctx, patientID, reports)
		return err
	})
	if err != nil && p.canFallBack(err) {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("History provider failed, using simulated analysis")
		return p.fallback.AnalyzeHistoricalReports(ctx, patientID, reports)
	}
	return text, err
}

func (p *FallbackProvider) do(ctx context.Context, operation string, fn func() error) error {
	return retry.DoWithLog(ctx, p.retry, "assessment "+operation, func() error {
		err := fn()
		if err != nil && !isTransient(err) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Retrying assessment provider")
	})
}

func (p *FallbackProvider) canFallBack(err error) bool {
	if p.fallback == nil {
		return false
	}
	// Cancelled or malformed requests are not answered with canned text.
	return !errors.Is(err, context.Canceled) && !apperrors.IsType(err, apperrors.ErrorTypeValidation)
}

// isTransient reports whether another attempt could succeed
func isTransient(err error) bool {
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeValidation),
		apperrors.IsType(err, apperrors.ErrorTypeUnauthorized),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
