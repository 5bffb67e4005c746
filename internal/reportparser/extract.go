package reportparser

import (
	"regexp"
	"strconv"
	"strings"
)

// Field describes one value pulled out of a report by ordered pattern attempts.
// Patterns are tried in order and the first one whose first capture group is
// non-empty (and accepted by Accept, when set) wins.
type Field struct {
	Name     string
	Patterns []*regexp.Regexp
	Fallback string
	Accept   func(string) bool
}

// Extract returns the field's value from text, or its fallback.
func (f Field) Extract(text string) string {
	for _, p := range f.Patterns {
		m := p.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		if f.Accept != nil && !f.Accept(value) {
			continue
		}
		return value
	}
	return f.Fallback
}

// ExtractFirstMatch applies patterns in order and returns the trimmed first
// capture group of the first match, or fallback when nothing matches.
func ExtractFirstMatch(text string, patterns []*regexp.Regexp, fallback string) string {
	return Field{Patterns: patterns, Fallback: fallback}.Extract(text)
}

const (
	defaultSuccessRate        = 85
	defaultHospitalStay       = "2-3 days"
	defaultFullRecovery       = "6-12 weeks"
	defaultReturnToActivities = "3-6 months"
	defaultDuration           = "2-3h"
)

var successRateField = Field{
	Name: "successRate",
	Patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)Success Probability:\*\*\s*(\d+)%`),
		regexp.MustCompile(`(?i)Success Probability:\s*(\d+)%`),
		regexp.MustCompile(`(?i)(\d+)%\s*based on`),
		regexp.MustCompile(`(?i)(\d+)%.*success`),
	},
	Fallback: strconv.Itoa(defaultSuccessRate),
	Accept:   isPercentage,
}

var timelineFields = struct {
	hospitalStay, fullRecovery, returnToActivities, duration Field
}{
	hospitalStay: Field{
		Name: "hospitalStay",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Hospital stay:\s*([^\n]+)`),
		},
		Fallback: defaultHospitalStay,
	},
	fullRecovery: Field{
		Name: "fullRecovery",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Full recovery:\s*([^\n]+)`),
		},
		Fallback: defaultFullRecovery,
	},
	returnToActivities: Field{
		Name: "returnToActivities",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Return to activities:\s*([^\n]+)`),
		},
		Fallback: defaultReturnToActivities,
	},
	duration: Field{
		Name: "duration",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Surgery duration:\s*([^\n]+)`),
			regexp.MustCompile(`(?i)Estimated duration:\s*([^\n]+)`),
			regexp.MustCompile(`(?i)Duration:\s*([^\n]+)`),
		},
		Fallback: defaultDuration,
	},
}

func isPercentage(value string) bool {
	n, err := strconv.Atoi(value)
	return err == nil && n >= 0 && n <= 100
}

func extractSuccessRate(text string) int {
	n, err := strconv.Atoi(successRateField.Extract(text))
	if err != nil {
		return defaultSuccessRate
	}
	return n
}
