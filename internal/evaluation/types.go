package evaluation

import (
	"time"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

// Difficulty grades how far a golden case strays from the model's usual layout.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"   // template-shaped output
	DifficultyMedium Difficulty = "medium" // reordered or partially missing sections
	DifficultyHard   Difficulty = "hard"   // mis-encoded markers, CRLF, stray formatting
)

// IsValid checks if the difficulty is one of the defined constants.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Expected is the hand-labelled structure of one assessment.
type Expected struct {
	RiskLevel    entities.RiskLevel `json:"risk_level"`
	SuccessRate  int                `json:"success_rate"`
	Sections     []string           `json:"sections"`
	HospitalStay string             `json:"hospital_stay,omitempty"`
	VitalCount   *int               `json:"vital_count,omitempty"`
}

// GoldenCase is a labelled assessment text.
type GoldenCase struct {
	ID         string     `json:"id"`
	Operation  string     `json:"operation"`
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
	Expected   Expected   `json:"expected"`
}

// CaseResult holds the outcome for a single golden case.
type CaseResult struct {
	CaseID           string
	Difficulty       Difficulty
	RiskCorrect      bool
	SuccessRateError int
	SectionRecall    float64
	SectionPrecision float64
	TimelineCorrect  bool
	VitalsCorrect    bool
	Latency          time.Duration
}

// Summary holds aggregate metrics across all golden cases.
type Summary struct {
	TotalCases          int
	RiskAccuracy        float64
	SuccessRateMAE      float64
	AvgSectionRecall    float64
	AvgSectionPrecision float64
	TimelineAccuracy    float64
	VitalsAccuracy      float64
	AvgLatency          time.Duration
	ByDifficulty        map[Difficulty]*DifficultySummary
	Failures            []string
}

// DifficultySummary holds metrics grouped by difficulty.
type DifficultySummary struct {
	Count            int
	RiskAccuracy     float64
	AvgSectionRecall float64
}
