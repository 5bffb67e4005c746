package providers

import "fmt"

// ReportCacheKey is the cache key of a single report
func ReportCacheKey(id string) string {
	return fmt.Sprintf("report:%s", id)
}

// PatientHistoryCacheKey is the cache key of a patient's report list
func PatientHistoryCacheKey(patientID string, limit int) string {
	return fmt.Sprintf("reports:patient:%s:%d", patientID, limit)
}

// PatientHistoryCachePattern matches every cached report list of a patient
func PatientHistoryCachePattern(patientID string) string {
	return fmt.Sprintf("reports:patient:%s:*", patientID)
}

// PatientHTTPCachePattern matches cached HTTP responses for a patient's routes
func PatientHTTPCachePattern(patientID string) string {
	return fmt.Sprintf("http:cache:*patients/%s/*", patientID)
}

// AssessmentCacheKey is the cache key of a generated assessment text
func AssessmentCacheKey(digest string) string {
	return "assessment:" + digest
}
