package engines

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/model"
)

// CorpusAccess is the read access engines get to the candidate corpus.
// Candidates returns an immutable metadata snapshot shared by all
// engines of a run, NearestNeighbors queries the vector store.
type CorpusAccess interface {
	Candidates() []*model.Chunk
	NearestNeighbors(ctx context.Context, embedding []float32, limit int, threshold float64, excludeDocumentID uuid.UUID) ([]*model.Chunk, error)
}

// Detector is one independent scoring algorithm producing candidate
// connections for a source chunk. Implementations are pure aside from
// read I/O, return an empty list instead of erroring on missing
// metadata, and cap their output sorted by descending strength.
type Detector interface {
	Type() model.ConnectionType
	Detect(ctx context.Context, source *model.Chunk, corpus CorpusAccess, config *model.DetectionConfig) ([]*model.Connection, error)
}

// DefaultDetectors returns all seven detection engines with the
// default tone opposition table and pattern taxonomy
func DefaultDetectors() []Detector {
	return []Detector{
		NewSemanticDetector(),
		NewThematicBridgeDetector(),
		NewStructuralDetector(),
		NewContradictionDetector(DefaultToneOppositions()),
		NewEmotionalDetector(),
		NewMethodologicalDetector(DefaultMethodPrefix),
		NewTemporalDetector(DefaultRhythmPrefix),
	}
}

// newConnection builds a detected connection between two chunks
func newConnection(source *model.Chunk, target *model.Chunk, connectionType model.ConnectionType, strength float64, metadata model.Metadata) *model.Connection {
	return &model.Connection{
		SourceChunkID:  source.ID,
		TargetChunkID:  target.ID,
		ConnectionType: connectionType,
		Strength:       clampStrength(strength),
		AutoDetected:   true,
		Metadata:       metadata,
	}
}

// clampStrength keeps a strength inside [0, 1]
func clampStrength(strength float64) float64 {
	if strength < 0 {
		return 0
	}
	if strength > 1 {
		return 1
	}
	return strength
}

// capAndSort sorts connections by descending strength and truncates to
// the engine candidate cap. Equal strengths are ordered by target ID
// so results stay deterministic.
func capAndSort(connections []*model.Connection, max int) []*model.Connection {
	sort.Slice(connections, func(i, j int) bool {
		if connections[i].Strength != connections[j].Strength {
			return connections[i].Strength > connections[j].Strength
		}
		return connections[i].TargetChunkID.String() < connections[j].TargetChunkID.String()
	})

	if max > 0 && len(connections) > max {
		connections = connections[:max]
	}

	return connections
}
