package entities

// RiskTrend describes how a patient's risk levels moved over recent reports.
type RiskTrend string

const (
	RiskTrendImproving  RiskTrend = "improving"
	RiskTrendStable     RiskTrend = "stable"
	RiskTrendConcerning RiskTrend = "concerning"
)

// SuccessRateStats summarises success rates across historical reports.
type SuccessRateStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

// HistoricalAnalysis is the AI-assisted review of a patient's prior reports.
type HistoricalAnalysis struct {
	PatientID        string            `json:"patientId"`
	OverallRiskTrend RiskTrend         `json:"overallRiskTrend"`
	RiskFactors      []string          `json:"riskFactors"`
	Recommendations  []string          `json:"recommendations"`
	AttentionAreas   []string          `json:"attentionAreas"`
	SuccessRates     *SuccessRateStats `json:"successRates,omitempty"`
	ReportCount      int               `json:"reportCount"`
	FullAnalysis     string            `json:"fullAnalysis"`
}
