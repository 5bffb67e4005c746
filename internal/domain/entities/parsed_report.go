package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RiskLevel is the coarse surgical risk classification of an assessment.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelModerate RiskLevel = "moderate"
	RiskLevelHigh     RiskLevel = "high"
)

// Score returns the percentage shown alongside a risk level.
func (r RiskLevel) Score() int {
	switch r {
	case RiskLevelHigh:
		return 75
	case RiskLevelModerate:
		return 45
	default:
		return 25
	}
}

// IsValid reports whether r is one of the known levels.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLevelLow, RiskLevelModerate, RiskLevelHigh:
		return true
	}
	return false
}

// VitalSign is a single vital reading quoted by an assessment.
type VitalSign struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Status string `json:"status"`
}

// Timeline summarises the expected recovery durations.
type Timeline struct {
	HospitalStay       string `json:"hospitalStay"`
	FullRecovery       string `json:"fullRecovery"`
	ReturnToActivities string `json:"returnToActivities"`
	Duration           string `json:"duration"`
}

// ParsedReport is the structured view of a free-text assessment.
type ParsedReport struct {
	Operation       string      `json:"operation"`
	RiskLevel       RiskLevel   `json:"riskLevel"`
	RiskScore       int         `json:"riskScore"`
	SuccessRate     int         `json:"successRate"`
	VitalSigns      []VitalSign `json:"vitalSigns"`
	DynamicSections *Sections   `json:"dynamicSections"`
	Timeline        Timeline    `json:"timeline"`
	FullAnalysis    string      `json:"fullAnalysis"`
}

// Section is one titled group of content lines.
type Section struct {
	Title string
	Items []string
}

// Sections is a title -> lines mapping that remembers insertion order.
// Setting an existing title replaces its lines but keeps its position.
type Sections struct {
	entries []Section
	index   map[string]int
}

// NewSections returns an empty ordered section map.
func NewSections() *Sections {
	return &Sections{index: make(map[string]int)}
}

// Set stores items under title.
func (s *Sections) Set(title string, items []string) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	copied := append([]string(nil), items...)
	if i, ok := s.index[title]; ok {
		s.entries[i].Items = copied
		return
	}
	s.index[title] = len(s.entries)
	s.entries = append(s.entries, Section{Title: title, Items: copied})
}

// Get returns the lines stored under title.
func (s *Sections) Get(title string) ([]string, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[title]
	if !ok {
		return nil, false
	}
	return s.entries[i].Items, true
}

// Titles returns the section titles in first-seen order.
func (s *Sections) Titles() []string {
	if s == nil {
		return nil
	}
	titles := make([]string, len(s.entries))
	for i, e := range s.entries {
		titles[i] = e.Title
	}
	return titles
}

// All returns the sections in order.
func (s *Sections) All() []Section {
	if s == nil {
		return nil
	}
	out := make([]Section, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of sections.
func (s *Sections) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// MarshalJSON encodes the sections as an object with keys in insertion order.
func (s *Sections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if s != nil {
		for i, e := range s.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Title)
			if err != nil {
				return nil, err
			}
			items := e.Items
			if items == nil {
				items = []string{}
			}
			value, err := json.Marshal(items)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping the document's key order.
func (s *Sections) UnmarshalJSON(data []byte) error {
	*s = Sections{index: make(map[string]int)}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("sections: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		title, ok := tok.(string)
		if !ok {
			return fmt.Errorf("sections: expected string key, got %v", tok)
		}
		var items []string
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("sections: decoding %q: %w", title, err)
		}
		s.Set(title, items)
	}

	_, err = dec.Token()
	return err
}
