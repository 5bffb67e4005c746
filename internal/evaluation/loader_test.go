package evaluation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

func TestLoadGoldenCases_ValidFile(t *testing.T) {
	content := `[
		{"id": "c1", "operation": "Hip Replacement", "text": "🟡 MODERATE RISK", "difficulty": "easy", "expected": {"risk_level": "moderate", "success_rate": 85, "sections": []}},
		{"id": "c2", "operation": "Appendectomy", "text": "fine", "difficulty": "hard", "expected": {"risk_level": "low", "success_rate": 90, "sections": ["Post-operative Care"], "vital_count": 0}}
	]`
	path := writeTempFile(t, content)

	cases, err := LoadGoldenCases(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].Expected.RiskLevel != entities.RiskLevelModerate {
		t.Errorf("expected moderate, got %s", cases[0].Expected.RiskLevel)
	}
	if cases[0].Expected.VitalCount != nil {
		t.Errorf("expected no vital count for c1")
	}
	if cases[1].Expected.VitalCount == nil || *cases[1].Expected.VitalCount != 0 {
		t.Errorf("expected explicit zero vital count for c2")
	}
	if cases[1].Difficulty != DifficultyHard {
		t.Errorf("expected hard, got %s", cases[1].Difficulty)
	}
}

func TestLoadGoldenCases_InvalidFile(t *testing.T) {
	if _, err := LoadGoldenCases("/nonexistent/path.json"); err == nil {
		t.Error("expected error for nonexistent file")
	}

	if _, err := LoadGoldenCases(writeTempFile(t, "{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestValidateGoldenCases(t *testing.T) {
	valid := GoldenCase{
		ID:         "ok",
		Text:       "text",
		Difficulty: DifficultyEasy,
		Expected:   Expected{RiskLevel: entities.RiskLevelLow, SuccessRate: 85},
	}

	tests := []struct {
		name    string
		mutate  func(c *GoldenCase)
		wantErr string
	}{
		{"valid", func(c *GoldenCase) {}, ""},
		{"missing id", func(c *GoldenCase) { c.ID = "" }, "missing id"},
		{"missing text", func(c *GoldenCase) { c.Text = "" }, "missing text"},
		{"bad risk", func(c *GoldenCase) { c.Expected.RiskLevel = "extreme" }, "invalid risk level"},
		{"bad rate", func(c *GoldenCase) { c.Expected.SuccessRate = 101 }, "out of range"},
		{"bad difficulty", func(c *GoldenCase) { c.Difficulty = "trivial" }, "invalid difficulty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := ValidateGoldenCases([]GoldenCase{c})
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if err := ValidateGoldenCases([]GoldenCase{valid, valid}); err == nil || !strings.Contains(err.Error(), "duplicate id") {
		t.Errorf("expected duplicate id error, got %v", err)
	}
}

func TestBundledGoldenCasesAreValid(t *testing.T) {
	cases, err := LoadGoldenCases(filepath.Join("testdata", "golden_reports.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateGoldenCases(cases); err != nil {
		t.Fatalf("bundled cases invalid: %v", err)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "golden.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}
