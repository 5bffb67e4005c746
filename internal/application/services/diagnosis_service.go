package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/observability"
	"github.com/nfcure/digitaltwin/backend/internal/reportparser"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

const defaultAssessmentCacheTTL = 30 * time.Minute

// DiagnosisService turns patient data into a stored, parsed risk assessment
type DiagnosisService struct {
	provider providers.AssessmentProvider
	reports  *ReportService
	cache    providers.CacheProvider
	cacheTTL time.Duration
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewDiagnosisService creates a new diagnosis service. cache and metrics may be nil.
func NewDiagnosisService(provider providers.AssessmentProvider, reports *ReportService, cache providers.CacheProvider, metrics *observability.Metrics) *DiagnosisService {
	return &DiagnosisService{
		provider: provider,
		reports:  reports,
		cache:    cache,
		cacheTTL: defaultAssessmentCacheTTL,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Analyze validates the proposed operation, asks the assessment provider for
// a report, parses it and stores the result as a pending report.
func (s *DiagnosisService) Analyze(ctx context.Context, data *entities.MedicalData) (*entities.MedicalReport, error) {
	ctx, span := observability.StartSpan(ctx, "DiagnosisService.Analyze")
	defer span.End()

	if data == nil {
		return nil, apperrors.NewValidationError("medical data is required")
	}
	operation := strings.TrimSpace(data.ProposedOperation)
	if operation == "" {
		return nil, apperrors.NewValidationError("proposed operation is required")
	}
	if strings.TrimSpace(data.PatientID) == "" {
		return nil, apperrors.NewValidationError("patient id is required")
	}

	valid, err := s.provider.ValidateProcedure(ctx, operation)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if !valid {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%q is not a recognised surgical procedure", operation))
	}

	raw, err := s.assess(ctx, data)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	parsed := reportparser.Parse(raw, operation)
	observability.RecordReportParsed(ctx, s.metrics, string(parsed.RiskLevel), "diagnosis")
	observability.SetSpanAttributes(span,
		attribute.String("report.risk_level", string(parsed.RiskLevel)),
		attribute.Int("report.success_rate", parsed.SuccessRate),
		attribute.Int("report.sections", parsed.DynamicSections.Len()),
	)

	report := entities.NewMedicalReportFromParsed(data.PatientID, parsed, s.now())
	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			observability.LoggerFromContext(ctx).Error().Err(err).
				Str("patient_id", data.PatientID).
				Msg("Failed to save assessment report")
		}
	}

	return report, nil
}

// ParseText runs the report parser on text produced elsewhere
func (s *DiagnosisService) ParseText(ctx context.Context, raw, operation string) entities.ParsedReport {
	parsed := reportparser.Parse(raw, operation)
	observability.RecordReportParsed(ctx, s.metrics, string(parsed.RiskLevel), "parser")
	return parsed
}

func (s *DiagnosisService) assess(ctx context.Context, data *entities.MedicalData) (string, error) {
	key, err := assessmentCacheKey(s.provider.Name(), data)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to build assessment cache key")
	}

	if s.cache != nil && key != "" {
		if cached, err := s.cache.Get(ctx, key); err == nil && len(cached) > 0 {
			observability.RecordCacheHit(ctx, s.metrics, "assessment")
			return string(cached), nil
		}
		observability.RecordCacheMiss(ctx, s.metrics, "assessment")
	}

	raw, err := s.provider.AnalyzeMedicalData(ctx, data)
	if err != nil {
		return "", err
	}

	if s.cache != nil && key != "" && strings.TrimSpace(raw) != "" {
		if err := s.cache.Set(ctx, key, []byte(raw), int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Msg("Failed to cache assessment")
		}
	}
	return raw, nil
}

// assessmentCacheKey hashes every prompt input so identical requests share a response
func assessmentCacheKey(providerName string, data *entities.MedicalData) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(providerName))
	h.Write([]byte{0})
	h.Write(payload)
	return providers.AssessmentCacheKey(hex.EncodeToString(h.Sum(nil))), nil
}
