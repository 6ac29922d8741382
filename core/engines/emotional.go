package engines

import (
	"context"

	"github.com/siherrmann/weaver/model"
)

// EmotionalDetector finds chunks carrying the same emotional register,
// e.g. two melancholic passages from different books
type EmotionalDetector struct{}

// NewEmotionalDetector creates a new emotional resonance detector
func NewEmotionalDetector() *EmotionalDetector {
	return &EmotionalDetector{}
}

// Type returns the connection type produced by this detector
func (d *EmotionalDetector) Type() model.ConnectionType {
	return model.ConnectionTypeEmotional
}

// Detect emits a connection when tone overlap clears the threshold,
// strength = tone Jaccard
func (d *EmotionalDetector) Detect(ctx context.Context, source *model.Chunk, corpus CorpusAccess, config *model.DetectionConfig) ([]*model.Connection, error) {
	if len(source.EmotionalTones) == 0 {
		return nil, nil
	}

	var connections []*model.Connection
	for _, candidate := range corpus.Candidates() {
		if candidate.ID == source.ID || len(candidate.EmotionalTones) == 0 {
			continue
		}

		similarity := Jaccard(source.EmotionalTones, candidate.EmotionalTones)
		if similarity < config.EmotionalThreshold {
			continue
		}

		connections = append(connections, newConnection(source, candidate, d.Type(), similarity, model.Metadata{
			"shared_tones": Intersection(source.EmotionalTones, candidate.EmotionalTones),
		}))
	}

	return capAndSort(connections, config.MaxCandidatesPerEngine), nil
}
