package entities

import (
	"time"

	"github.com/google/uuid"
)

// ReportEventType identifies what happened to a medical report.
type ReportEventType string

const (
	ReportEventTypeCreated ReportEventType = "report.created"
)

// ReportEvent is published whenever a patient's report history changes.
type ReportEvent struct {
	ID        string          `json:"id"`
	ReportID  string          `json:"report_id"`
	PatientID string          `json:"patient_id"`
	EventType ReportEventType `json:"event_type"`
	RiskLevel RiskLevel       `json:"risk_level"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewReportEvent creates a report event stamped with the current time.
func NewReportEvent(report *MedicalReport, eventType ReportEventType) *ReportEvent {
	return &ReportEvent{
		ID:        uuid.New().String(),
		ReportID:  report.ID,
		PatientID: report.PatientID,
		EventType: eventType,
		RiskLevel: report.RiskLevel,
		Timestamp: time.Now().UTC(),
	}
}
