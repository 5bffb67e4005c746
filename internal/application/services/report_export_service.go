package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	"github.com/nfcure/digitaltwin/backend/internal/query/loaders"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

const (
	exportFormatVersion = "1.0"
	maxBatchExport      = 100
)

// ExportPatient identifies the patient on an exported report
type ExportPatient struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Age    int    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// ExportAnalysis is the parsed assessment part of an export
type ExportAnalysis struct {
	ReportID        string               `json:"reportId"`
	Procedure       string               `json:"procedure"`
	RiskLevel       entities.RiskLevel   `json:"riskLevel"`
	RiskScore       int                  `json:"riskScore"`
	SuccessRate     int                  `json:"successRate"`
	VitalSigns      []entities.VitalSign `json:"vitalSigns"`
	Timeline        entities.Timeline    `json:"timeline"`
	DynamicSections *entities.Sections   `json:"dynamicSections"`
	FullAnalysis    string               `json:"fullAnalysis"`
}

// ExportMetadata describes how the export was produced
type ExportMetadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	AIModel     string    `json:"aiModel"`
	Version     string    `json:"version"`
}

// ExportDocument is the downloadable JSON form of a report
type ExportDocument struct {
	Patient  ExportPatient  `json:"patient"`
	Analysis ExportAnalysis `json:"analysis"`
	Metadata ExportMetadata `json:"metadata"`
}

// BatchExport is the result of exporting several reports at once
type BatchExport struct {
	Documents []*ExportDocument `json:"documents"`
	Missing   []string          `json:"missing"`
}

// ReportExportService renders stored reports for download, print and sharing
type ReportExportService struct {
	reports *ReportService
	repo    repositories.MedicalReportRepository
	aiModel string
	now     func() time.Time
}

// NewReportExportService creates a new export service
func NewReportExportService(reports *ReportService, repo repositories.MedicalReportRepository, aiModel string) *ReportExportService {
	return &ReportExportService{
		reports: reports,
		repo:    repo,
		aiModel: aiModel,
		now:     time.Now,
	}
}

// ExportJSON builds the export document of a stored report
func (s *ReportExportService) ExportJSON(ctx context.Context, id string) (*ExportDocument, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.BuildDocument(report), nil
}

// BuildDocument converts a report into its export form
func (s *ReportExportService) BuildDocument(report *entities.MedicalReport) *ExportDocument {
	analysis := ExportAnalysis{
		ReportID:     report.ID,
		Procedure:    report.Procedure,
		RiskLevel:    report.RiskLevel,
		RiskScore:    report.RiskScore,
		SuccessRate:  report.SuccessRate,
		VitalSigns:   []entities.VitalSign{},
		FullAnalysis: report.FullAnalysis,
	}
	if p := report.Parsed; p != nil {
		if p.VitalSigns != nil {
			analysis.VitalSigns = p.VitalSigns
		}
		analysis.Timeline = p.Timeline
		analysis.DynamicSections = p.DynamicSections
	}
	if analysis.DynamicSections == nil {
		analysis.DynamicSections = entities.NewSections()
	}

	return &ExportDocument{
		Patient:  ExportPatient{ID: report.PatientID},
		Analysis: analysis,
		Metadata: ExportMetadata{
			GeneratedAt: s.now().UTC(),
			AIModel:     s.aiModel,
			Version:     exportFormatVersion,
		},
	}
}

// ExportBatch exports several reports through one batched lookup. Unknown
// IDs are listed in Missing; any other lookup failure aborts the export.
func (s *ReportExportService) ExportBatch(ctx context.Context, ids []string) (*BatchExport, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("at least one report id is required")
	}
	if len(ids) > maxBatchExport {
		return nil, apperrors.NewValidationError(fmt.Sprintf("at most %d reports can be exported at once", maxBatchExport))
	}

	loader := loaders.For(ctx)
	if loader == nil {
		loader = loaders.NewReportLoader(s.repo)
	}

	reports, errs := loader.LoadMany(ctx, ids)
	result := &BatchExport{Documents: []*ExportDocument{}, Missing: []string{}}
	for i, id := range ids {
		if errs != nil && errs[i] != nil {
			if apperrors.IsType(errs[i], apperrors.ErrorTypeNotFound) {
				result.Missing = append(result.Missing, id)
				continue
			}
			return nil, errs[i]
		}
		result.Documents = append(result.Documents, s.BuildDocument(reports[i]))
	}
	return result, nil
}

// RenderHTML renders a printable report page
func (s *ReportExportService) RenderHTML(ctx context.Context, id string) ([]byte, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := printableReport.Execute(&buf, s.htmlView(report)); err != nil {
		return nil, apperrors.NewInternalError("failed to render report", err)
	}
	return buf.Bytes(), nil
}

// Summary returns the short plain-text form used when sharing a report
func (s *ReportExportService) Summary(ctx context.Context, id string) (string, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return shareSummary(report, s.now()), nil
}

func shareSummary(report *entities.MedicalReport, generated time.Time) string {
	var b strings.Builder
	b.WriteString("Medical Risk Assessment Report\n")
	fmt.Fprintf(&b, "Patient: %s\n", report.PatientID)
	fmt.Fprintf(&b, "Procedure: %s\n", report.Procedure)
	fmt.Fprintf(&b, "Risk Level: %s (%d%%)\n", report.RiskLevel, report.RiskScore)
	fmt.Fprintf(&b, "Success Rate: %d%%\n", report.SuccessRate)
	fmt.Fprintf(&b, "Generated: %s", generated.Format("2006-01-02"))
	return b.String()
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type reportHTMLView struct {
	PatientID    string
	Procedure    string
	GeneratedAt  string
	AIModel      string
	RiskLevel    string
	RiskScore    int
	SuccessRate  int
	Timeline     entities.Timeline
	VitalSigns   []entities.VitalSign
	Sections     []entities.Section
	FullAnalysis string
}

func (s *ReportExportService) htmlView(report *entities.MedicalReport) reportHTMLView {
	view := reportHTMLView{
		PatientID:    report.PatientID,
		Procedure:    report.Procedure,
		GeneratedAt:  s.now().UTC().Format("2006-01-02 15:04 MST"),
		AIModel:      s.aiModel,
		RiskLevel:    string(report.RiskLevel),
		RiskScore:    report.RiskScore,
		SuccessRate:  report.SuccessRate,
		FullAnalysis: report.FullAnalysis,
	}
	if p := report.Parsed; p != nil {
		view.Timeline = p.Timeline
		view.VitalSigns = p.VitalSigns
		view.Sections = p.DynamicSections.All()
	}
	return view
}

var printableReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"orNA": func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Medical Risk Assessment Report</title>
<style>
body { font-family: Arial, sans-serif; margin: 40px; line-height: 1.6; }
.header { text-align: center; border-bottom: 2px solid #333; padding-bottom: 20px; margin-bottom: 30px; }
.section { margin-bottom: 25px; }
.risk-high { color: #dc2626; font-weight: bold; }
.risk-moderate { color: #f59e0b; font-weight: bold; }
.risk-low { color: #16a34a; font-weight: bold; }
.grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 15px; }
.card { border: 1px solid #e5e7eb; padding: 15px; border-radius: 8px; }
pre { background: #f9fafb; padding: 20px; border-radius: 8px; white-space: pre-wrap; font-size: 12px; }
</style>
</head>
<body>
<div class="header">
<h1>Medical Risk Assessment Report</h1>
<h2>Patient: {{orNA .PatientID}}</h2>
<h3>Proposed Procedure: {{.Procedure}}</h3>
<p>Generated on: {{.GeneratedAt}}</p>
<p>AI Model: {{.AIModel}}</p>
</div>
<div class="section">
<h2>Risk Assessment Summary</h2>
<p><strong>Risk Level:</strong> <span class="risk-{{.RiskLevel}}">{{upper .RiskLevel}} RISK</span></p>
<p><strong>Risk Score:</strong> {{.RiskScore}}%</p>
<p><strong>Success Rate:</strong> {{.SuccessRate}}%</p>
</div>
<div class="section">
<h2>Timeline</h2>
<div class="grid">
<div class="card"><strong>Hospital Stay</strong><br>{{orNA .Timeline.HospitalStay}}</div>
<div class="card"><strong>Full Recovery</strong><br>{{orNA .Timeline.FullRecovery}}</div>
<div class="card"><strong>Return to Activities</strong><br>{{orNA .Timeline.ReturnToActivities}}</div>
</div>
</div>
{{- if .VitalSigns}}
<div class="section">
<h2>Vital Signs Analysis</h2>
<div class="grid">
{{- range .VitalSigns}}
<div class="card"><strong>{{.Name}}:</strong> {{.Value}}<br><small>Status: {{.Status}}</small></div>
{{- end}}
</div>
</div>
{{- end}}
{{- if .Sections}}
<div class="section">
<h2>AI Recommendations &amp; Analysis</h2>
{{- range .Sections}}
<h3>{{.Title}}</h3>
<ul>
{{- range .Items}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
</div>
{{- end}}
<div class="section">
<h2>Full AI Analysis</h2>
<pre>{{if .FullAnalysis}}{{.FullAnalysis}}{{else}}No detailed analysis available{{end}}</pre>
</div>
<div class="section" style="margin-top: 40px; text-align: center; font-size: 12px; color: #6b7280;">
<p>For medical decisions, always consult with qualified healthcare professionals</p>
</div>
</body>
</html>
`))
