package entities

import "time"

// ReportOutcome tracks what happened after the assessed procedure.
type ReportOutcome string

const (
	OutcomePending       ReportOutcome = "pending"
	OutcomeSuccessful    ReportOutcome = "successful"
	OutcomeComplications ReportOutcome = "complications"
	OutcomeFailed        ReportOutcome = "failed"
)

// MedicalReport is a persisted risk assessment for one patient and procedure.
type MedicalReport struct {
	ID            string        `json:"id" db:"id"`
	PatientID     string        `json:"patient_id" db:"patient_id"`
	Date          time.Time     `json:"date" db:"date"`
	Procedure     string        `json:"procedure" db:"procedure"`
	RiskLevel     RiskLevel     `json:"risk_level" db:"risk_level"`
	RiskScore     int           `json:"risk_score" db:"risk_score"`
	SuccessRate   int           `json:"success_rate" db:"success_rate"`
	Complications string        `json:"complications,omitempty" db:"complications"`
	Outcome       ReportOutcome `json:"outcome" db:"outcome"`
	Notes         string        `json:"notes,omitempty" db:"notes"`
	FullAnalysis  string        `json:"full_analysis" db:"full_analysis"`
	Parsed        *ParsedReport `json:"parsed,omitempty" db:"parsed"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// NewMedicalReportFromParsed builds a pending report from a parsed assessment.
func NewMedicalReportFromParsed(patientID string, parsed ParsedReport, now time.Time) *MedicalReport {
	p := parsed
	return &MedicalReport{
		PatientID:    patientID,
		Date:         now.UTC().Truncate(24 * time.Hour),
		Procedure:    parsed.Operation,
		RiskLevel:    parsed.RiskLevel,
		RiskScore:    parsed.RiskScore,
		SuccessRate:  parsed.SuccessRate,
		Outcome:      OutcomePending,
		FullAnalysis: parsed.FullAnalysis,
		Parsed:       &p,
		CreatedAt:    now.UTC(),
	}
}
