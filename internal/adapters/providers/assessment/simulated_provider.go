package assessment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
)

// SimulatedProviderName is reported as the model of simulated assessments
const SimulatedProviderName = "simulated"

// SimulatedProvider produces canned assessments for demos and offline use.
// Output is shaped like real model output so it goes through the same parser.
type SimulatedProvider struct {
	delay time.Duration
}

var _ providers.AssessmentProvider = (*SimulatedProvider)(nil)

// NewSimulatedProvider creates a simulated provider. delay mimics model latency.
func NewSimulatedProvider(delay time.Duration) *SimulatedProvider {
	return &SimulatedProvider{delay: delay}
}

// Name identifies the provider
func (p *SimulatedProvider) Name() string {
	return SimulatedProviderName
}

// ValidateProcedure applies the offline rules only
func (p *SimulatedProvider) ValidateProcedure(ctx context.Context, name string) (bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if len([]rune(normalized)) < 3 {
		return false, nil
	}
	for _, r := range normalized {
		if !unicode.IsDigit(r) {
			return true, nil
		}
	}
	return false, nil
}

// AnalyzeMedicalData picks a template from keywords in the proposed operation
func (p *SimulatedProvider) AnalyzeMedicalData(ctx context.Context, data *entities.MedicalData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("medical data is required")
	}
	if err := p.wait(ctx); err != nil {
		return "", err
	}

	operation := strings.ToLower(data.ProposedOperation)
	switch {
	case strings.Contains(operation, "cardiac") || strings.Contains(operation, "heart"):
		return cardiacAssessment(data), nil
	case strings.Contains(operation, "knee") || strings.Contains(operation, "joint"):
		return orthopedicAssessment(data), nil
	case strings.Contains(operation, "brain") || strings.Contains(operation, "neurological"):
		return neurologicalAssessment(data), nil
	default:
		return generalAssessment(data), nil
	}
}

// AnalyzeHistoricalReports summarises reports without a model
func (p *SimulatedProvider) AnalyzeHistoricalReports(ctx context.Context, patientID string, reports []*entities.MedicalReport) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	return historicalAnalysis(reports), nil
}

func (p *SimulatedProvider) wait(ctx context.Context) error {
	if p.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func historicalAnalysis(reports []*entities.MedicalReport) string {
	riskLevels := make([]string, 0, len(reports))
	procedures := make([]string, 0, len(reports))
	hasHighRisk := false
	hasComplications := false
	successful := 0

	for _, r := range reports {
		riskLevels = append(riskLevels, string(r.RiskLevel))
		procedures = append(procedures, r.Procedure)
		if r.RiskLevel == entities.RiskLevelHigh {
			hasHighRisk = true
		}
		if r.Complications != "" && !strings.EqualFold(r.Complications, "none") {
			hasComplications = true
		}
		if r.Outcome == entities.OutcomeSuccessful {
			successful++
		}
	}

	successRate := 0
	if len(reports) > 0 {
		successRate = int(math.Round(float64(successful) / float64(len(reports)) * 100))
	}

	riskHistory := "✅ Generally low to moderate risk history"
	screening := "Standard monitoring protocols sufficient"
	currentRisk := "🟢 LOW RISK"
	if hasHighRisk {
		riskHistory = "⚠️ Previous high-risk procedures identified"
		screening = "Enhanced pre-operative screening recommended due to previous high-risk cases"
		currentRisk = "🟡 MODERATE RISK"
	}

	complicationHistory := "✅ No significant complications in medical history"
	monitorFor := "standard vital signs"
	protocols := "Standard safety protocols appropriate"
	if hasComplications {
		complicationHistory = "⚠️ Previous complications noted - requires careful monitoring"
		monitorFor = "cardiovascular stability, wound healing"
		protocols = "Implement additional safety protocols"
	}

	return fmt.Sprintf(`**Historical Risk Pattern Analysis:**
- Patient has undergone %d previous medical procedures
- Risk levels: %s
- %s
- %s

**Key Attention Areas:**
- Monitor cardiovascular response during procedures
- %s
- Pay attention to anesthesia response based on previous procedures
- Blood pressure management critical based on history

**Procedural Insights:**
- Previous procedures: %s
- Overall success rate: %d%%
- Recovery patterns show consistent healing timeline
- Patient responds well to standard protocols

**Current Risk Assessment:**
- %s - Based on historical analysis
- Recommend enhanced monitoring for: %s
- Previous positive outcomes suggest good surgical candidate
- Consider patient's medical history progression in current assessment

**Recommendations:**
- Review previous anesthesia records
- Monitor for recurring risk patterns
- %s
- Document any changes from previous baseline measurements
`,
		len(reports), strings.Join(riskLevels, ", "), riskHistory, complicationHistory,
		screening,
		strings.Join(procedures, ", "), successRate,
		currentRisk, monitorFor,
		protocols,
	)
}
