package reportparser

import (
	"regexp"
	"strings"
)

// ExtractSection returns the cleaned content lines of the first bold section
// named name (case-insensitive), reading up to the next bold heading. The
// result is empty, never nil, when the section is absent.
func ExtractSection(text, name string) []string {
	items := []string{}
	name = strings.TrimSpace(name)
	if name == "" {
		return items
	}

	pattern, err := regexp.Compile(`(?is)\*\*` + regexp.QuoteMeta(name) + `:?\*\*(.*?)(?:\*\*[^*]+:?\*\*|\z)`)
	if err != nil {
		return items
	}

	m := pattern.FindStringSubmatch(normalize(text))
	if m == nil {
		return items
	}

	for _, line := range strings.Split(m[1], "\n") {
		if cleaned, ok := cleanContentLine(strings.TrimSpace(line)); ok {
			items = append(items, cleaned)
		}
	}
	return items
}
