package engines

import (
	"context"
	"strings"

	"github.com/siherrmann/weaver/model"
)

// DefaultMethodPrefix marks structural patterns describing the method
// a chunk uses (e.g. "method:dialectic", "method:case_study")
const DefaultMethodPrefix = "method:"

// MethodologicalDetector finds chunks applying the same analytical
// method, regardless of topic
type MethodologicalDetector struct {
	prefix string
}

// NewMethodologicalDetector creates a new methodological echo detector
// matching patterns carrying the given prefix
func NewMethodologicalDetector(prefix string) *MethodologicalDetector {
	return &MethodologicalDetector{
		prefix: prefix,
	}
}

// Type returns the connection type produced by this detector
func (d *MethodologicalDetector) Type() model.ConnectionType {
	return model.ConnectionTypeMethodological
}

// Detect emits a connection when method tag overlap clears the
// threshold, strength = method Jaccard
func (d *MethodologicalDetector) Detect(ctx context.Context, source *model.Chunk, corpus CorpusAccess, config *model.DetectionConfig) ([]*model.Connection, error) {
	sourceMethods := filterByPrefix(source.StructuralPatterns, d.prefix)
	if len(sourceMethods) == 0 {
		return nil, nil
	}

	var connections []*model.Connection
	for _, candidate := range corpus.Candidates() {
		if candidate.ID == source.ID {
			continue
		}

		candidateMethods := filterByPrefix(candidate.StructuralPatterns, d.prefix)
		if len(candidateMethods) == 0 {
			continue
		}

		similarity := Jaccard(sourceMethods, candidateMethods)
		if similarity < config.MethodologicalThreshold {
			continue
		}

		connections = append(connections, newConnection(source, candidate, d.Type(), similarity, model.Metadata{
			"shared_methods": Intersection(sourceMethods, candidateMethods),
		}))
	}

	return capAndSort(connections, config.MaxCandidatesPerEngine), nil
}

// filterByPrefix returns the tags carrying the prefix
func filterByPrefix(tags []string, prefix string) []string {
	var filtered []string
	for _, tag := range tags {
		if strings.HasPrefix(tag, prefix) {
			filtered = append(filtered, tag)
		}
	}
	return filtered
}
