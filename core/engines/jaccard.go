package engines

// toSet deduplicates a tag list
func toSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		set[tag] = true
	}
	return set
}

// Jaccard computes |A ∩ B| / |A ∪ B| over two tag lists.
// Two empty sets are identical (1.0), one empty set shares nothing
// with a non-empty one (0.0).
func Jaccard(a []string, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for tag := range setA {
		if setB[tag] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// Intersection returns the shared tags of two lists in input order
func Intersection(a []string, b []string) []string {
	setB := toSet(b)
	seen := make(map[string]bool, len(a))

	var shared []string
	for _, tag := range a {
		if setB[tag] && !seen[tag] {
			shared = append(shared, tag)
			seen[tag] = true
		}
	}
	return shared
}
