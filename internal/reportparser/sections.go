package reportparser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

// Titles handled by dedicated extractors. A section whose title contains any
// of these is never emitted as a dynamic section.
var reservedTitles = []string{
	"Patient Vital Signs",
	"Risk Assessment",
	"Success Probability",
}

var (
	headingPattern      = regexp.MustCompile(`^\*\*([^*]+)\*\*:?\s*$`)
	riskBoldLinePattern = regexp.MustCompile(`^[🟢🟡🔴]\s*\*\*`)
)

const variationSelector = '\uFE0F'

// leadingMarkers are the bullet and emoji markers stripped from content lines.
var leadingMarkers = map[rune]bool{
	'-':               true,
	'•':               true,
	'✅':               true,
	'⚠':               true,
	'🟢':               true,
	'🟡':               true,
	'🔴':               true,
	variationSelector: true,
}

// sectionState is the scanner state. active is false for NoActiveSection.
type sectionState struct {
	active bool
	title  string
	items  []string
}

// step consumes one line. When the line closes a section that should be
// emitted, the finished section is returned alongside the next state.
func step(state sectionState, line string) (sectionState, *entities.Section) {
	trimmed := strings.TrimSpace(line)

	if title, ok := parseHeading(trimmed); ok {
		committed := commit(state)
		if title == "" {
			return sectionState{}, committed
		}
		return sectionState{active: true, title: title}, committed
	}

	if !state.active || trimmed == "" {
		return state, nil
	}

	if cleaned, ok := cleanContentLine(trimmed); ok {
		items := make([]string, len(state.items), len(state.items)+1)
		copy(items, state.items)
		state.items = append(items, cleaned)
	}
	return state, nil
}

// commit returns the section held by state if it should be emitted.
func commit(state sectionState) *entities.Section {
	if !state.active || len(state.items) == 0 || isReservedTitle(state.title) {
		return nil
	}
	return &entities.Section{Title: state.title, Items: state.items}
}

// segmentSections folds step over lines and collects committed sections,
// including the one still open at end of input.
func segmentSections(lines []string) []entities.Section {
	var (
		state     sectionState
		committed []entities.Section
	)
	for _, line := range lines {
		var done *entities.Section
		state, done = step(state, line)
		if done != nil {
			committed = append(committed, *done)
		}
	}
	if last := commit(state); last != nil {
		committed = append(committed, *last)
	}
	return committed
}

// buildSections turns committed sections into the ordered mapping.
// A repeated title overwrites the earlier content.
func buildSections(committed []entities.Section) *entities.Sections {
	sections := entities.NewSections()
	for _, s := range committed {
		sections.Set(s.Title, s.Items)
	}
	return sections
}

// parseHeading recognises a line fully wrapped in bold markers, with an
// optional colon inside or after the closing marker.
func parseHeading(trimmed string) (string, bool) {
	m := headingPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	title := strings.TrimSpace(m[1])
	title = strings.TrimSpace(strings.TrimSuffix(title, ":"))
	return title, true
}

func isReservedTitle(title string) bool {
	for _, reserved := range reservedTitles {
		if strings.Contains(title, reserved) {
			return true
		}
	}
	return false
}

// cleanContentLine strips bullet markers from a content line and reports
// whether what remains is worth keeping.
func cleanContentLine(line string) (string, bool) {
	cleaned := stripLeadingMarker(line)
	cleaned = stripListAsterisk(cleaned)
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimLeftFunc(strings.TrimPrefix(cleaned, "-"), unicode.IsSpace)
	cleaned = strings.TrimSpace(cleaned)

	switch {
	case cleaned == "":
		return "", false
	case strings.HasPrefix(cleaned, "**"):
		return "", false
	case utf8.RuneCountInString(cleaned) <= 3:
		return "", false
	case riskBoldLinePattern.MatchString(cleaned):
		return "", false
	}
	return unbold(cleaned), true
}

// stripLeadingMarker removes one leading marker rune (and the emoji
// variation selector that may follow it) plus any whitespace after it.
func stripLeadingMarker(line string) string {
	r, size := utf8.DecodeRuneInString(line)
	if size == 0 || !leadingMarkers[r] {
		return line
	}
	rest := line[size:]
	if next, n := utf8.DecodeRuneInString(rest); n > 0 && next == variationSelector {
		rest = rest[n:]
	}
	return strings.TrimLeftFunc(rest, unicode.IsSpace)
}

// stripListAsterisk removes exactly one leading asterisk and the whitespace
// after it. A bold lead-in such as "**PROCEED** - ok" is left as
// "*PROCEED** - ok" and kept; only lines opening with three asterisks still
// start with "**" afterwards and are dropped.
func stripListAsterisk(line string) string {
	if !strings.HasPrefix(line, "*") {
		return line
	}
	return strings.TrimLeftFunc(line[1:], unicode.IsSpace)
}

// unbold removes bold delimiters from a kept line, including the half pair
// left behind by stripListAsterisk.
func unbold(line string) string {
	if rest, ok := strings.CutPrefix(line, "*"); ok {
		if i := strings.Index(rest, "**"); i > 0 {
			line = rest[:i] + rest[i+2:]
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
}
