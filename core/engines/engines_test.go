package engines

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCorpus serves a fixed candidate list and canned neighbor results
type fakeCorpus struct {
	candidates []*model.Chunk
	neighbors  []*model.Chunk
	err        error
}

func (c *fakeCorpus) Candidates() []*model.Chunk {
	return c.candidates
}

func (c *fakeCorpus) NearestNeighbors(ctx context.Context, embedding []float32, limit int, threshold float64, excludeDocumentID uuid.UUID) ([]*model.Chunk, error) {
	if c.err != nil {
		return nil, c.err
	}
	if len(c.neighbors) > limit {
		return c.neighbors[:limit], nil
	}
	return c.neighbors, nil
}

func testChunk(documentID uuid.UUID) *model.Chunk {
	return &model.Chunk{
		ID:         uuid.New(),
		DocumentID: documentID,
	}
}

func TestSemanticDetect(t *testing.T) {
	detector := NewSemanticDetector()
	config := model.DefaultDetectionConfig()
	documentID := uuid.New()

	t.Run("Valid call Detect with neighbors", func(t *testing.T) {
		source := testChunk(documentID)
		source.Embedding = []float32{0.1, 0.2, 0.3}

		neighbor := testChunk(uuid.New())
		neighbor.Similarity = 0.85

		corpus := &fakeCorpus{neighbors: []*model.Chunk{neighbor}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err, "Expected Detect to not return an error")
		require.Len(t, connections, 1, "Expected one connection per neighbor")
		assert.Equal(t, model.ConnectionTypeSemantic, connections[0].ConnectionType)
		assert.Equal(t, 0.85, connections[0].Strength, "Expected strength to be the cosine similarity")
		assert.Equal(t, 0.85, connections[0].Metadata["similarity"])
		assert.True(t, connections[0].AutoDetected, "Expected detected connections to be marked auto-detected")
	})

	t.Run("Chunk without embedding produces nothing", func(t *testing.T) {
		source := testChunk(documentID)

		connections, err := detector.Detect(context.Background(), source, &fakeCorpus{}, config)
		assert.NoError(t, err, "Expected missing embedding to not be an error")
		assert.Empty(t, connections, "Expected no connections without an embedding")
	})

	t.Run("Source excluded from its own neighbors", func(t *testing.T) {
		source := testChunk(documentID)
		source.Embedding = []float32{0.1}

		corpus := &fakeCorpus{neighbors: []*model.Chunk{source}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		assert.Empty(t, connections, "Expected the source chunk to never connect to itself")
	})

	t.Run("Query error surfaces", func(t *testing.T) {
		source := testChunk(documentID)
		source.Embedding = []float32{0.1}

		corpus := &fakeCorpus{err: fmt.Errorf("connection refused")}

		_, err := detector.Detect(context.Background(), source, corpus, config)
		assert.Error(t, err, "Expected query errors to surface")
		assert.Contains(t, err.Error(), "nearest neighbor query")
	})
}

func TestThematicBridgeDetect(t *testing.T) {
	detector := NewThematicBridgeDetector()
	config := model.DefaultDetectionConfig()

	t.Run("Shared themes across distant domains", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.Themes = []string{"free_will", "determinism"}
		source.StructuralPatterns = []string{"argument", "thought_experiment"}

		// Same themes, fully disjoint patterns: overlap 1.0, distance 1.0
		candidate := testChunk(uuid.New())
		candidate.Themes = []string{"free_will", "determinism"}
		candidate.StructuralPatterns = []string{"narrative", "flashback"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		require.Len(t, connections, 1, "Expected a bridge for shared themes across distant domains")
		assert.Equal(t, model.ConnectionTypeThematicBridge, connections[0].ConnectionType)
		assert.InDelta(t, 1.0, connections[0].Strength, 1e-9, "Expected strength = overlap × distance")
		assert.Equal(t, []string{"free_will", "determinism"}, connections[0].Metadata["shared_themes"])
	})

	t.Run("Strength is the product of overlap and distance", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.Themes = []string{"a", "b"}
		source.StructuralPatterns = []string{"p", "q", "r", "s", "t"}

		// Theme overlap 0.5 ({a} of {a, b, c}), pattern overlap 1/5 so
		// distance 0.8
		candidate := testChunk(uuid.New())
		candidate.Themes = []string{"a", "c"}
		candidate.StructuralPatterns = []string{"p"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		require.Len(t, connections, 1)
		assert.InDelta(t, 0.5*0.8, connections[0].Strength, 1e-9, "Expected strength 0.5 × 0.8")
	})

	t.Run("Similar domains do not bridge", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.Themes = []string{"free_will"}
		source.StructuralPatterns = []string{"argument"}

		// Same themes and same patterns: distance 0, below threshold
		candidate := testChunk(uuid.New())
		candidate.Themes = []string{"free_will"}
		candidate.StructuralPatterns = []string{"argument"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		assert.Empty(t, connections, "Expected no bridge between similar domains")
	})

	t.Run("Low theme overlap does not bridge", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.Themes = []string{"a", "b", "c"}
		source.StructuralPatterns = []string{"p"}

		candidate := testChunk(uuid.New())
		candidate.Themes = []string{"a", "d", "e"}
		candidate.StructuralPatterns = []string{"q"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		assert.Empty(t, connections, "Expected theme overlap 1/5 to stay below the threshold")
	})

	t.Run("Chunk without themes produces nothing", func(t *testing.T) {
		source := testChunk(uuid.New())

		connections, err := detector.Detect(context.Background(), source, &fakeCorpus{}, config)
		assert.NoError(t, err, "Expected missing themes to not be an error")
		assert.Empty(t, connections)
	})
}

func TestStructuralDetect(t *testing.T) {
	detector := NewStructuralDetector()
	config := model.DefaultDetectionConfig()

	t.Run("Shared patterns above threshold", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.StructuralPatterns = []string{"dialectic", "thought_experiment", "reductio"}

		candidate := testChunk(uuid.New())
		candidate.StructuralPatterns = []string{"dialectic", "thought_experiment"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		require.Len(t, connections, 1)
		assert.Equal(t, model.ConnectionTypeStructural, connections[0].ConnectionType)
		assert.InDelta(t, 2.0/3.0, connections[0].Strength, 1e-9)
		assert.Equal(t, []string{"dialectic", "thought_experiment"}, connections[0].Metadata["shared_patterns"])
	})

	t.Run("Overlap below threshold", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.StructuralPatterns = []string{"a", "b", "c"}

		candidate := testChunk(uuid.New())
		candidate.StructuralPatterns = []string{"a", "d", "e"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		assert.Empty(t, connections, "Expected pattern overlap 1/5 to stay below 0.6")
	})
}

func TestContradictionDetect(t *testing.T) {
	detector := NewContradictionDetector(DefaultToneOppositions())
	config := model.DefaultDetectionConfig()

	concepts := func(texts ...string) model.ConceptList {
		list := make(model.ConceptList, len(texts))
		for i, text := range texts {
			list[i] = model.Concept{Text: text, Importance: 0.5}
		}
		return list
	}

	t.Run("Opposing tones on shared concepts", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.EmotionalTones = []string{"skeptical"}
		source.Concepts = concepts("free_will", "moral_responsibility")

		candidate := testChunk(uuid.New())
		candidate.EmotionalTones = []string{"confident"}
		candidate.Concepts = concepts("free_will", "moral_responsibility")

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		require.Len(t, connections, 1, "Expected a contradiction for opposing tones on the same concepts")
		assert.Equal(t, model.ConnectionTypeContradiction, connections[0].ConnectionType)
		assert.InDelta(t, 1.0, connections[0].Strength, 1e-9, "Expected strength = concept overlap")
		assert.Equal(t, [][2]string{{"skeptical", "confident"}}, connections[0].Metadata["opposing_tones"])
	})

	t.Run("Opposing tones on different topics", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.EmotionalTones = []string{"pessimistic"}
		source.Concepts = concepts("free_will", "determinism", "compatibilism")

		// Concept overlap 1/4 = 0.25, below the 0.7 floor
		candidate := testChunk(uuid.New())
		candidate.EmotionalTones = []string{"optimistic"}
		candidate.Concepts = concepts("free_will", "consciousness")

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		assert.Empty(t, connections, "Expected no contradiction without high topical overlap")
	})

	t.Run("Shared concepts without opposing tones", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.EmotionalTones = []string{"skeptical"}
		source.Concepts = concepts("free_will")

		candidate := testChunk(uuid.New())
		candidate.EmotionalTones = []string{"serene"}
		candidate.Concepts = concepts("free_will")

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		assert.Empty(t, connections, "Expected no contradiction without an opposing tone pair")
	})

	t.Run("Chunk without tones or concepts produces nothing", func(t *testing.T) {
		source := testChunk(uuid.New())

		connections, err := detector.Detect(context.Background(), source, &fakeCorpus{}, config)
		assert.NoError(t, err, "Expected missing metadata to not be an error")
		assert.Empty(t, connections)
	})
}

func TestEmotionalDetect(t *testing.T) {
	detector := NewEmotionalDetector()
	config := model.DefaultDetectionConfig()

	t.Run("Shared tones above threshold", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.EmotionalTones = []string{"melancholic", "hopeful"}

		candidate := testChunk(uuid.New())
		candidate.EmotionalTones = []string{"melancholic", "hopeful", "serene"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		require.Len(t, connections, 1)
		assert.Equal(t, model.ConnectionTypeEmotional, connections[0].ConnectionType)
		assert.InDelta(t, 2.0/3.0, connections[0].Strength, 1e-9)
	})

	t.Run("Overlap below threshold", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.EmotionalTones = []string{"melancholic", "tense"}

		candidate := testChunk(uuid.New())
		candidate.EmotionalTones = []string{"melancholic", "serene", "hopeful"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		assert.Empty(t, connections, "Expected tone overlap 1/4 to stay below 0.5")
	})
}

func TestMethodologicalDetect(t *testing.T) {
	detector := NewMethodologicalDetector(DefaultMethodPrefix)
	config := model.DefaultDetectionConfig()

	t.Run("Shared method tags", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.StructuralPatterns = []string{"method:dialectic", "method:case_study", "narrative"}

		candidate := testChunk(uuid.New())
		candidate.StructuralPatterns = []string{"method:dialectic", "method:case_study", "argument"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		require.Len(t, connections, 1, "Expected untagged patterns to be ignored")
		assert.Equal(t, model.ConnectionTypeMethodological, connections[0].ConnectionType)
		assert.InDelta(t, 1.0, connections[0].Strength, 1e-9)
		assert.Equal(t, []string{"method:dialectic", "method:case_study"}, connections[0].Metadata["shared_methods"])
	})

	t.Run("Candidate without method tags", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.StructuralPatterns = []string{"method:dialectic"}

		candidate := testChunk(uuid.New())
		candidate.StructuralPatterns = []string{"narrative"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		assert.Empty(t, connections, "Expected candidates without method tags to be skipped")
	})
}

func TestTemporalDetect(t *testing.T) {
	detector := NewTemporalDetector(DefaultRhythmPrefix)
	config := model.DefaultDetectionConfig()

	t.Run("Shared rhythm tags", func(t *testing.T) {
		source := testChunk(uuid.New())
		source.StructuralPatterns = []string{"rhythm:slow_build", "rhythm:refrain"}

		candidate := testChunk(uuid.New())
		candidate.StructuralPatterns = []string{"rhythm:slow_build", "method:dialectic"}

		corpus := &fakeCorpus{candidates: []*model.Chunk{candidate}}

		connections, err := detector.Detect(context.Background(), source, corpus, config)
		assert.NoError(t, err)
		require.Len(t, connections, 1)
		assert.Equal(t, model.ConnectionTypeTemporal, connections[0].ConnectionType)
		assert.InDelta(t, 0.5, connections[0].Strength, 1e-9)
	})
}

func TestCapAndSort(t *testing.T) {
	t.Run("Sorts by descending strength and caps", func(t *testing.T) {
		source := testChunk(uuid.New())
		var connections []*model.Connection
		for i := 0; i < 30; i++ {
			connections = append(connections, newConnection(source, testChunk(uuid.New()), model.ConnectionTypeStructural, float64(i)/30.0, nil))
		}

		capped := capAndSort(connections, 20)
		require.Len(t, capped, 20, "Expected output capped to the engine maximum")
		for i := 1; i < len(capped); i++ {
			assert.GreaterOrEqual(t, capped[i-1].Strength, capped[i].Strength, "Expected descending strength order")
		}
	})

	t.Run("Equal strengths ordered by target ID", func(t *testing.T) {
		source := testChunk(uuid.New())
		a := newConnection(source, testChunk(uuid.New()), model.ConnectionTypeStructural, 0.5, nil)
		b := newConnection(source, testChunk(uuid.New()), model.ConnectionTypeStructural, 0.5, nil)

		first := capAndSort([]*model.Connection{a, b}, 0)
		second := capAndSort([]*model.Connection{b, a}, 0)
		assert.Equal(t, first[0].TargetChunkID, second[0].TargetChunkID, "Expected deterministic order for equal strengths")
	})
}

func TestToneOppositions(t *testing.T) {
	oppositions := DefaultToneOppositions()

	t.Run("Opposes is symmetric", func(t *testing.T) {
		assert.True(t, oppositions.Opposes("skeptical", "confident"))
		assert.True(t, oppositions.Opposes("confident", "skeptical"))
	})

	t.Run("Unrelated tones do not oppose", func(t *testing.T) {
		assert.False(t, oppositions.Opposes("skeptical", "serene"))
	})

	t.Run("OpposingPairs deduplicates", func(t *testing.T) {
		pairs := oppositions.OpposingPairs([]string{"skeptical", "skeptical"}, []string{"confident"})
		assert.Len(t, pairs, 1, "Expected duplicate tone pairs to be reported once")
	})
}

func TestClampStrength(t *testing.T) {
	assert.Equal(t, 0.0, clampStrength(-0.1))
	assert.Equal(t, 1.0, clampStrength(1.5))
	assert.Equal(t, 0.42, clampStrength(0.42))
}

func TestDefaultDetectors(t *testing.T) {
	detectors := DefaultDetectors()
	require.Len(t, detectors, 7, "Expected all seven engines")

	seen := make(map[model.ConnectionType]bool)
	for _, detector := range detectors {
		seen[detector.Type()] = true
	}
	for _, connectionType := range model.AllConnectionTypes() {
		assert.True(t, seen[connectionType], "Expected a detector for %s", connectionType)
	}
}
