package engines

import (
	"context"

	"github.com/siherrmann/weaver/model"
)

// ContradictionDetector finds chunks taking opposing stances on the
// same concepts. High topical overlap is required, a contradiction is
// only meaningful when both sides discuss the same thing.
type ContradictionDetector struct {
	oppositions ToneOppositions
}

// NewContradictionDetector creates a new contradiction detector with
// the given tone opposition table
func NewContradictionDetector(oppositions ToneOppositions) *ContradictionDetector {
	return &ContradictionDetector{
		oppositions: oppositions,
	}
}

// Type returns the connection type produced by this detector
func (d *ContradictionDetector) Type() model.ConnectionType {
	return model.ConnectionTypeContradiction
}

// Detect emits a connection when the chunks share an opposing tone
// pair and their concept overlap clears the threshold, strength =
// concept Jaccard
func (d *ContradictionDetector) Detect(ctx context.Context, source *model.Chunk, corpus CorpusAccess, config *model.DetectionConfig) ([]*model.Connection, error) {
	if len(source.EmotionalTones) == 0 || len(source.Concepts) == 0 {
		return nil, nil
	}

	sourceConcepts := source.ConceptTexts()

	var connections []*model.Connection
	for _, candidate := range corpus.Candidates() {
		if candidate.ID == source.ID || len(candidate.EmotionalTones) == 0 || len(candidate.Concepts) == 0 {
			continue
		}

		pairs := d.oppositions.OpposingPairs(source.EmotionalTones, candidate.EmotionalTones)
		if len(pairs) == 0 {
			continue
		}

		candidateConcepts := candidate.ConceptTexts()
		conceptOverlap := Jaccard(sourceConcepts, candidateConcepts)
		if conceptOverlap < config.ConceptOverlapThreshold {
			continue
		}

		connections = append(connections, newConnection(source, candidate, d.Type(), conceptOverlap, model.Metadata{
			"opposing_tones":  pairs,
			"shared_concepts": Intersection(sourceConcepts, candidateConcepts),
			"concept_overlap": conceptOverlap,
		}))
	}

	return capAndSort(connections, config.MaxCandidatesPerEngine), nil
}
