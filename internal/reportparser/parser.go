// Package reportparser turns free-text surgical risk assessments produced by
// a language model into structured reports.
//
// Parsing never fails: every field that cannot be found falls back to a
// documented default, so callers can always render a result.
package reportparser

import (
	"strings"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

const (
	highRiskMarker     = "🔴 HIGH RISK"
	moderateRiskMarker = "🟡 MODERATE RISK"
)

// Parse extracts a ParsedReport from rawText. operation is copied through
// unchanged and rawText is kept as the full analysis.
func Parse(rawText, operation string) entities.ParsedReport {
	text := normalize(rawText)

	level := ClassifyRisk(text)

	return entities.ParsedReport{
		Operation:       operation,
		RiskLevel:       level,
		RiskScore:       level.Score(),
		SuccessRate:     extractSuccessRate(text),
		VitalSigns:      extractVitalSigns(text),
		DynamicSections: buildSections(segmentSections(strings.Split(text, "\n"))),
		Timeline:        extractTimeline(text),
		FullAnalysis:    rawText,
	}
}

// ClassifyRisk looks for the risk markers in priority order; high wins over
// moderate and the absence of both means low.
func ClassifyRisk(text string) entities.RiskLevel {
	switch {
	case strings.Contains(text, highRiskMarker):
		return entities.RiskLevelHigh
	case strings.Contains(text, moderateRiskMarker):
		return entities.RiskLevelModerate
	default:
		return entities.RiskLevelLow
	}
}

func extractTimeline(text string) entities.Timeline {
	return entities.Timeline{
		HospitalStay:       timelineFields.hospitalStay.Extract(text),
		FullRecovery:       timelineFields.fullRecovery.Extract(text),
		ReturnToActivities: timelineFields.returnToActivities.Extract(text),
		Duration:           timelineFields.duration.Extract(text),
	}
}
