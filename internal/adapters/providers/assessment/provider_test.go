package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/reportparser"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
	"github.com/nfcure/digitaltwin/backend/pkg/retry"
)

func medicalData(operation string) *entities.MedicalData {
	return &entities.MedicalData{
		HeartRate:         "72 BPM",
		BloodPressure:     "120/80 mmHg",
		Temperature:       "98.6°F",
		BloodSugar:        "95 mg/dL",
		EnergyLevel:       "85%",
		PatientID:         "P-001",
		ProposedOperation: operation,
	}
}

func TestSimulatedProvider_TemplatesParse(t *testing.T) {
	tests := []struct {
		operation string
		risk      entities.RiskLevel
		success   int
		section   string
	}{
		{"Knee Replacement", entities.RiskLevelLow, 95, "Post-operative Protocol"},
		{"Cardiac bypass", entities.RiskLevelLow, 85, "Intra-operative Monitoring"},
		{"Brain tumor resection", entities.RiskLevelModerate, 85, "Critical Considerations"},
		{"Appendectomy", entities.RiskLevelLow, 98, "Recovery Expectations"},
	}

	p := NewSimulatedProvider(0)
	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			text, err := p.AnalyzeMedicalData(context.Background(), medicalData(tt.operation))
			require.NoError(t, err)

			parsed := reportparser.Parse(text, tt.operation)
			assert.Equal(t, tt.risk, parsed.RiskLevel)
			assert.Equal(t, tt.success, parsed.SuccessRate)
			assert.Len(t, parsed.VitalSigns, 5)

			_, ok := parsed.DynamicSections.Get(tt.section)
			assert.True(t, ok, "missing section %q in %v", tt.section, parsed.DynamicSections.Titles())
		})
	}
}

func TestSimulatedProvider_General_IncludesOperation(t *testing.T) {
	text, err := NewSimulatedProvider(0).AnalyzeMedicalData(context.Background(), medicalData("Hernia Repair"))
	require.NoError(t, err)
	assert.Contains(t, text, "**Risk Assessment for Hernia Repair:**")
}

func TestSimulatedProvider_Validate(t *testing.T) {
	p := NewSimulatedProvider(0)

	ok, _ := p.ValidateProcedure(context.Background(), "Appendectomy")
	assert.True(t, ok)
	ok, _ = p.ValidateProcedure(context.Background(), "12345")
	assert.False(t, ok)
	ok, _ = p.ValidateProcedure(context.Background(), " a ")
	assert.False(t, ok)
}

func TestSimulatedProvider_DelayHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := NewSimulatedProvider(time.Second).AnalyzeMedicalData(ctx, medicalData("Knee"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHistoricalAnalysis(t *testing.T) {
	reports := []*entities.MedicalReport{
		{Procedure: "Cardiac Catheterization", RiskLevel: entities.RiskLevelHigh, Complications: "Minor bleeding", Outcome: entities.OutcomeSuccessful},
		{Procedure: "Appendectomy", RiskLevel: entities.RiskLevelLow, Outcome: entities.OutcomeSuccessful},
		{Procedure: "Knee Arthroscopy", RiskLevel: entities.RiskLevelLow, Outcome: entities.OutcomeComplications},
	}

	text := historicalAnalysis(reports)

	assert.Contains(t, text, "Patient has undergone 3 previous medical procedures")
	assert.Contains(t, text, "Risk levels: high, low, low")
	assert.Contains(t, text, "Overall success rate: 67%")
	assert.Contains(t, text, "🟡 MODERATE RISK - Based on historical analysis")
	assert.Contains(t, text, "Implement additional safety protocols")

	areas := reportparser.ExtractSection(text, "Key Attention Areas")
	assert.Contains(t, areas, "Enhanced pre-operative screening recommended due to previous high-risk cases")
}

type stubProvider struct {
	err   error
	text  string
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) ValidateProcedure(ctx context.Context, name string) (bool, error) {
	s.calls++
	return s.err == nil, s.err
}

func (s *stubProvider) AnalyzeMedicalData(ctx context.Context, data *entities.MedicalData) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *stubProvider) AnalyzeHistoricalReports(ctx context.Context, patientID string, reports []*entities.MedicalReport) (string, error) {
	s.calls++
	return s.text, s.err
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
}

func TestNewAssessmentProvider_NoPrimaryUsesSimulator(t *testing.T) {
	p := NewAssessmentProvider(ProviderConfig{})
	assert.Equal(t, SimulatedProviderName, p.Name())
}

func TestFallbackProvider_PrimarySucceeds(t *testing.T) {
	primary := &stubProvider{text: "🔴 HIGH RISK"}
	p := NewAssessmentProvider(ProviderConfig{Primary: primary, SimulateOnFailure: true, Retry: fastRetry()})

	text, err := p.AnalyzeMedicalData(context.Background(), medicalData("Knee"))
	require.NoError(t, err)
	assert.Equal(t, "🔴 HIGH RISK", text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, "stub", p.Name())
}

func TestFallbackProvider_RetriesTransientThenFallsBack(t *testing.T) {
	primary := &stubProvider{err: apperrors.NewExternalError("llm request failed", errors.New("503"))}
	p := NewAssessmentProvider(ProviderConfig{Primary: primary, SimulateOnFailure: true, Retry: fastRetry()})

	text, err := p.AnalyzeMedicalData(context.Background(), medicalData("Knee Replacement"))
	require.NoError(t, err)
	assert.Equal(t, 3, primary.calls)
	assert.Contains(t, text, "ORTHOPEDIC SURGERY RISK ASSESSMENT")
}

func TestFallbackProvider_UnauthorizedIsNotRetried(t *testing.T) {
	primary := &stubProvider{err: apperrors.NewUnauthorizedError("llm credentials rejected", nil)}
	p := NewAssessmentProvider(ProviderConfig{Primary: primary, SimulateOnFailure: false, Retry: fastRetry()})

	_, err := p.AnalyzeMedicalData(context.Background(), medicalData("Knee"))
	require.Error(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestFallbackProvider_NoFallbackReturnsError(t *testing.T) {
	primary := &stubProvider{err: apperrors.NewExternalError("llm request failed", errors.New("timeout"))}
	p := NewAssessmentProvider(ProviderConfig{Primary: primary, Retry: fastRetry()})

	_, err := p.AnalyzeHistoricalReports(context.Background(), "P-1", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}
