package evaluation

import "fmt"

// Thresholds are the minimum scores a parser build must reach.
type Thresholds struct {
	MinRiskAccuracy  float64
	MaxSuccessMAE    float64
	MinSectionRecall float64
}

// DefaultThresholds returns the gate used by reportparse evaluate.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinRiskAccuracy:  0.95,
		MaxSuccessMAE:    2,
		MinSectionRecall: 0.9,
	}
}

// Check returns one message per threshold the summary misses.
func (t Thresholds) Check(s *Summary) []string {
	var violations []string
	if s.RiskAccuracy < t.MinRiskAccuracy {
		violations = append(violations, fmt.Sprintf("risk accuracy %.2f below %.2f", s.RiskAccuracy, t.MinRiskAccuracy))
	}
	if s.SuccessRateMAE > t.MaxSuccessMAE {
		violations = append(violations, fmt.Sprintf("success rate MAE %.2f above %.2f", s.SuccessRateMAE, t.MaxSuccessMAE))
	}
	if s.AvgSectionRecall < t.MinSectionRecall {
		violations = append(violations, fmt.Sprintf("section recall %.2f below %.2f", s.AvgSectionRecall, t.MinSectionRecall))
	}
	return violations
}
