package engines

import (
	"context"

	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
)

// SemanticDetector finds embedding neighbors of the source chunk.
// The threshold is deliberately permissive, weak matches are stored
// and filtered by ranking instead of being discarded here.
type SemanticDetector struct{}

// NewSemanticDetector creates a new semantic similarity detector
func NewSemanticDetector() *SemanticDetector {
	return &SemanticDetector{}
}

// Type returns the connection type produced by this detector
func (d *SemanticDetector) Type() model.ConnectionType {
	return model.ConnectionTypeSemantic
}

// Detect runs a nearest-neighbor query over chunk embeddings.
// Candidates from the source's own document are excluded.
func (d *SemanticDetector) Detect(ctx context.Context, source *model.Chunk, corpus CorpusAccess, config *model.DetectionConfig) ([]*model.Connection, error) {
	if len(source.Embedding) == 0 {
		return nil, nil
	}

	neighbors, err := corpus.NearestNeighbors(ctx, source.Embedding, config.SemanticTopK, config.SemanticThreshold, source.DocumentID)
	if err != nil {
		return nil, helper.NewError("nearest neighbor query", err)
	}

	var connections []*model.Connection
	for _, neighbor := range neighbors {
		if neighbor.ID == source.ID {
			continue
		}

		connections = append(connections, newConnection(source, neighbor, d.Type(), neighbor.Similarity, model.Metadata{
			"similarity": neighbor.Similarity,
		}))
	}

	return capAndSort(connections, config.MaxCandidatesPerEngine), nil
}
