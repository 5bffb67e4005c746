package evaluation

// Recall is the fraction of expected items present in got.
// An empty expectation is fully recalled.
func Recall(expected, got []string) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	return float64(overlap(expected, got)) / float64(len(expected))
}

// Precision is the fraction of got that was expected.
// Returning nothing is fully precise.
func Precision(expected, got []string) float64 {
	if len(got) == 0 {
		return 1.0
	}
	return float64(overlap(got, expected)) / float64(len(got))
}

// overlap counts the distinct items of a found in b
func overlap(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}

	found := 0
	counted := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, dup := counted[s]; dup {
			continue
		}
		counted[s] = struct{}{}
		if _, ok := set[s]; ok {
			found++
		}
	}
	return found
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
