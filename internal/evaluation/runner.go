package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

// ParseFunc turns assessment text into a structured report.
type ParseFunc func(text, operation string) entities.ParsedReport

// Runner scores a parser against a set of golden cases.
type Runner struct {
	parse ParseFunc
}

func NewRunner(parse ParseFunc) *Runner {
	return &Runner{parse: parse}
}

func (r *Runner) Run(ctx context.Context, cases []GoldenCase) (*Summary, error) {
	summary := &Summary{
		TotalCases:   len(cases),
		ByDifficulty: make(map[Difficulty]*DifficultySummary),
	}

	for _, gc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		parsed := r.parse(gc.Text, gc.Operation)
		result := score(gc, parsed, time.Since(start))

		r.updateSummary(summary, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func score(gc GoldenCase, parsed entities.ParsedReport, latency time.Duration) CaseResult {
	titles := parsed.DynamicSections.Titles()
	result := CaseResult{
		CaseID:           gc.ID,
		Difficulty:       gc.Difficulty,
		RiskCorrect:      parsed.RiskLevel == gc.Expected.RiskLevel,
		SuccessRateError: absInt(parsed.SuccessRate - gc.Expected.SuccessRate),
		SectionRecall:    Recall(gc.Expected.Sections, titles),
		SectionPrecision: Precision(gc.Expected.Sections, titles),
		TimelineCorrect:  gc.Expected.HospitalStay == "" || parsed.Timeline.HospitalStay == gc.Expected.HospitalStay,
		VitalsCorrect:    gc.Expected.VitalCount == nil || len(parsed.VitalSigns) == *gc.Expected.VitalCount,
		Latency:          latency,
	}
	return result
}

func (r *Runner) updateSummary(s *Summary, res CaseResult) {
	if res.RiskCorrect {
		s.RiskAccuracy++
	} else {
		s.Failures = append(s.Failures, fmt.Sprintf("%s: risk level", res.CaseID))
	}
	if res.SuccessRateError != 0 {
		s.Failures = append(s.Failures, fmt.Sprintf("%s: success rate off by %d", res.CaseID, res.SuccessRateError))
	}
	if res.SectionRecall < 1 {
		s.Failures = append(s.Failures, fmt.Sprintf("%s: section recall %.2f", res.CaseID, res.SectionRecall))
	}
	if res.TimelineCorrect {
		s.TimelineAccuracy++
	}
	if res.VitalsCorrect {
		s.VitalsAccuracy++
	}
	s.SuccessRateMAE += float64(res.SuccessRateError)
	s.AvgSectionRecall += res.SectionRecall
	s.AvgSectionPrecision += res.SectionPrecision
	s.AvgLatency += res.Latency

	if _, ok := s.ByDifficulty[res.Difficulty]; !ok {
		s.ByDifficulty[res.Difficulty] = &DifficultySummary{}
	}
	ds := s.ByDifficulty[res.Difficulty]
	ds.Count++
	if res.RiskCorrect {
		ds.RiskAccuracy++
	}
	ds.AvgSectionRecall += res.SectionRecall
}

func (r *Runner) finalizeSummary(s *Summary) {
	if s.TotalCases > 0 {
		n := float64(s.TotalCases)
		s.RiskAccuracy /= n
		s.SuccessRateMAE /= n
		s.AvgSectionRecall /= n
		s.AvgSectionPrecision /= n
		s.TimelineAccuracy /= n
		s.VitalsAccuracy /= n
		s.AvgLatency /= time.Duration(s.TotalCases)
	}

	for _, ds := range s.ByDifficulty {
		if ds.Count > 0 {
			n := float64(ds.Count)
			ds.RiskAccuracy /= n
			ds.AvgSectionRecall /= n
		}
	}
}
