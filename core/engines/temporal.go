package engines

import (
	"context"

	"github.com/siherrmann/weaver/model"
)

// DefaultRhythmPrefix marks structural patterns describing narrative
// rhythm (e.g. "rhythm:slow_build", "rhythm:revelation")
const DefaultRhythmPrefix = "rhythm:"

// TemporalDetector finds chunks sharing the same narrative rhythm,
// e.g. two slow-build revelations in different novels
type TemporalDetector struct {
	prefix string
}

// NewTemporalDetector creates a new temporal rhythm detector matching
// patterns carrying the given prefix
func NewTemporalDetector(prefix string) *TemporalDetector {
	return &TemporalDetector{
		prefix: prefix,
	}
}

// Type returns the connection type produced by this detector
func (d *TemporalDetector) Type() model.ConnectionType {
	return model.ConnectionTypeTemporal
}

// Detect emits a connection when rhythm tag overlap clears the
// threshold, strength = rhythm Jaccard
func (d *TemporalDetector) Detect(ctx context.Context, source *model.Chunk, corpus CorpusAccess, config *model.DetectionConfig) ([]*model.Connection, error) {
	sourceRhythms := filterByPrefix(source.StructuralPatterns, d.prefix)
	if len(sourceRhythms) == 0 {
		return nil, nil
	}

	var connections []*model.Connection
	for _, candidate := range corpus.Candidates() {
		if candidate.ID == source.ID {
			continue
		}

		candidateRhythms := filterByPrefix(candidate.StructuralPatterns, d.prefix)
		if len(candidateRhythms) == 0 {
			continue
		}

		similarity := Jaccard(sourceRhythms, candidateRhythms)
		if similarity < config.TemporalThreshold {
			continue
		}

		connections = append(connections, newConnection(source, candidate, d.Type(), similarity, model.Metadata{
			"shared_rhythms": Intersection(sourceRhythms, candidateRhythms),
		}))
	}

	return capAndSort(connections, config.MaxCandidatesPerEngine), nil
}
