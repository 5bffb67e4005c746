package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	tsclient "github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/typesense"
)

const (
	reportQueryBy      = "procedure,full_analysis,section_titles"
	defaultSearchLimit = 20
)

// ReportSearchAdapter implements report search using Typesense
type ReportSearchAdapter struct {
	client *tsclient.Client
}

var _ repositories.ReportSearchRepository = (*ReportSearchAdapter)(nil)

// NewReportSearchAdapter creates a new Typesense report search adapter
func NewReportSearchAdapter(client *tsclient.Client) *ReportSearchAdapter {
	return &ReportSearchAdapter{client: client}
}

// Index upserts a report document
func (a *ReportSearchAdapter) Index(ctx context.Context, report *entities.MedicalReport) error {
	document := buildReportDocument(report)

	_, err := a.client.Client().Collection(tsclient.ReportsCollection).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index report %s: %w", report.ID, err)
	}
	return nil
}

// Search runs a full-text search over indexed reports
func (a *ReportSearchAdapter) Search(ctx context.Context, params repositories.ReportSearchParams) ([]*entities.MedicalReport, error) {
	searchParams := buildSearchParams(params)

	result, err := a.client.Client().Collection(tsclient.ReportsCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search reports: %w", err)
	}

	reports := []*entities.MedicalReport{}
	if result.Hits == nil {
		return reports, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if report := reportFromDocument(*hit.Document); report != nil {
			reports = append(reports, report)
		}
	}
	return reports, nil
}

func buildSearchParams(params repositories.ReportSearchParams) *api.SearchCollectionParams {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	q := strings.TrimSpace(params.Query)
	if q == "" {
		q = "*"
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String(reportQueryBy),
		SortBy:  pointer.String("created_at:desc"),
		Page:    pointer.Int(offset/limit + 1),
		PerPage: pointer.Int(limit),
	}

	if filter := buildFilter(params); filter != "" {
		searchParams.FilterBy = pointer.String(filter)
	}
	return searchParams
}

func buildFilter(params repositories.ReportSearchParams) string {
	var filters []string
	if params.PatientID != "" {
		filters = append(filters, fmt.Sprintf("patient_id:=`%s`", params.PatientID))
	}
	if params.RiskLevel != "" {
		filters = append(filters, fmt.Sprintf("risk_level:=%s", strings.ToLower(params.RiskLevel)))
	}
	return strings.Join(filters, " && ")
}

func buildReportDocument(report *entities.MedicalReport) map[string]interface{} {
	var titles []string
	if report.Parsed != nil {
		titles = report.Parsed.DynamicSections.Titles()
	}
	if titles == nil {
		titles = []string{}
	}

	return map[string]interface{}{
		"id":             report.ID,
		"patient_id":     report.PatientID,
		"procedure":      report.Procedure,
		"risk_level":     string(report.RiskLevel),
		"risk_score":     report.RiskScore,
		"success_rate":   report.SuccessRate,
		"outcome":        string(report.Outcome),
		"section_titles": titles,
		"full_analysis":  report.FullAnalysis,
		"date":           report.Date.Unix(),
		"created_at":     report.CreatedAt.Unix(),
	}
}

// reportFromDocument rebuilds the searchable part of a report. The parsed
// structure is not indexed; callers load it from the database when needed.
func reportFromDocument(doc map[string]interface{}) *entities.MedicalReport {
	id, ok := doc["id"].(string)
	if !ok || id == "" {
		return nil
	}

	report := &entities.MedicalReport{ID: id}
	report.PatientID, _ = doc["patient_id"].(string)
	report.Procedure, _ = doc["procedure"].(string)
	report.FullAnalysis, _ = doc["full_analysis"].(string)
	if v, ok := doc["risk_level"].(string); ok {
		report.RiskLevel = entities.RiskLevel(v)
	}
	if v, ok := doc["outcome"].(string); ok {
		report.Outcome = entities.ReportOutcome(v)
	}
	report.RiskScore = intField(doc, "risk_score")
	report.SuccessRate = intField(doc, "success_rate")
	if ts := int64Field(doc, "date"); ts > 0 {
		report.Date = time.Unix(ts, 0).UTC()
	}
	if ts := int64Field(doc, "created_at"); ts > 0 {
		report.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return report
}

// JSON numbers decode as float64
func intField(doc map[string]interface{}, key string) int {
	return int(int64Field(doc, key))
}

func int64Field(doc map[string]interface{}, key string) int64 {
	switch v := doc[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
