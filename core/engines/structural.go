package engines

import (
	"context"

	"github.com/siherrmann/weaver/model"
)

// StructuralDetector finds chunks built on the same structural
// patterns, e.g. two arguments shaped as thought experiments
type StructuralDetector struct{}

// NewStructuralDetector creates a new structural isomorphism detector
func NewStructuralDetector() *StructuralDetector {
	return &StructuralDetector{}
}

// Type returns the connection type produced by this detector
func (d *StructuralDetector) Type() model.ConnectionType {
	return model.ConnectionTypeStructural
}

// Detect emits a connection when pattern overlap clears the threshold,
// strength = pattern Jaccard
func (d *StructuralDetector) Detect(ctx context.Context, source *model.Chunk, corpus CorpusAccess, config *model.DetectionConfig) ([]*model.Connection, error) {
	if len(source.StructuralPatterns) == 0 {
		return nil, nil
	}

	var connections []*model.Connection
	for _, candidate := range corpus.Candidates() {
		if candidate.ID == source.ID || len(candidate.StructuralPatterns) == 0 {
			continue
		}

		similarity := Jaccard(source.StructuralPatterns, candidate.StructuralPatterns)
		if similarity < config.StructuralThreshold {
			continue
		}

		connections = append(connections, newConnection(source, candidate, d.Type(), similarity, model.Metadata{
			"shared_patterns": Intersection(source.StructuralPatterns, candidate.StructuralPatterns),
		}))
	}

	return capAndSort(connections, config.MaxCandidatesPerEngine), nil
}
