package reportparser

import (
	"regexp"
	"strings"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

const vitalStatusNormal = "normal"

var (
	vitalBlockPattern = regexp.MustCompile(`(?s)\*\*Patient Vital Signs Analysis:\*\*(.*?)(?:\*\*|\z)`)
	vitalLinePattern  = regexp.MustCompile(`✅\s*([^:]+):\s*([^(]+)`)
)

// extractVitalSigns reads the checkmarked "Name: Value" lines of the vital
// signs block. Anything in parentheses after the value is dropped.
func extractVitalSigns(text string) []entities.VitalSign {
	vitals := []entities.VitalSign{}

	block := vitalBlockPattern.FindStringSubmatch(text)
	if block == nil {
		return vitals
	}

	for _, line := range strings.Split(block[1], "\n") {
		m := vitalLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		if name == "" || value == "" {
			continue
		}
		vitals = append(vitals, entities.VitalSign{
			Name:   name,
			Value:  value,
			Status: vitalStatusNormal,
		})
	}
	return vitals
}
