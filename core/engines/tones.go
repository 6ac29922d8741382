package engines

// ToneOppositions maps an emotional tone to the tones it opposes.
// The vocabulary is a product heuristic and deliberately swappable,
// callers can pass their own table to NewContradictionDetector.
type ToneOppositions map[string][]string

// DefaultToneOppositions returns the curated opposition table for the
// philosophy/fiction metadata vocabulary
func DefaultToneOppositions() ToneOppositions {
	return ToneOppositions{
		"critical":    {"affirming"},
		"skeptical":   {"confident"},
		"pessimistic": {"optimistic"},
		"concerned":   {"reassuring"},
		"melancholic": {"hopeful"},
		"ominous":     {"triumphant"},
		"tense":       {"serene"},
	}
}

// Opposes reports whether two tones form an opposing pair in either
// direction
func (t ToneOppositions) Opposes(a string, b string) bool {
	for _, opposed := range t[a] {
		if opposed == b {
			return true
		}
	}
	for _, opposed := range t[b] {
		if opposed == a {
			return true
		}
	}
	return false
}

// OpposingPairs returns all opposing tone pairs between two tone lists
func (t ToneOppositions) OpposingPairs(tonesA []string, tonesB []string) [][2]string {
	var pairs [][2]string
	seen := make(map[[2]string]bool)

	for _, a := range tonesA {
		for _, b := range tonesB {
			if !t.Opposes(a, b) {
				continue
			}
			pair := [2]string{a, b}
			if seen[pair] {
				continue
			}
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
