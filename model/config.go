package model

import "time"

// DetectionConfig bounds one detection run. Thresholds are the
// product-tuned defaults, callers can override per run.
type DetectionConfig struct {
	// Pipeline
	PipelineTimeout        time.Duration `json:"pipeline_timeout"`
	MaxCandidatesPerEngine int           `json:"max_candidates_per_engine"`
	UpsertBatchSize        int           `json:"upsert_batch_size"`

	// Semantic engine
	SemanticThreshold float64 `json:"semantic_threshold"`
	SemanticTopK      int     `json:"semantic_top_k"`

	// Thematic bridge engine
	ThemeOverlapThreshold   float64 `json:"theme_overlap_threshold"`
	DomainDistanceThreshold float64 `json:"domain_distance_threshold"`

	// Structural isomorphism engine
	StructuralThreshold float64 `json:"structural_threshold"`

	// Contradiction engine
	ConceptOverlapThreshold float64 `json:"concept_overlap_threshold"`

	// Tag-set engines
	EmotionalThreshold      float64 `json:"emotional_threshold"`
	MethodologicalThreshold float64 `json:"methodological_threshold"`
	TemporalThreshold       float64 `json:"temporal_threshold"`
}

// DefaultDetectionConfig returns the default run configuration.
// The semantic threshold is deliberately permissive, weak matches are
// stored and filtered by ranking rather than discarded at detection.
func DefaultDetectionConfig() *DetectionConfig {
	return &DetectionConfig{
		PipelineTimeout:         5 * time.Second,
		MaxCandidatesPerEngine:  20,
		UpsertBatchSize:         1000,
		SemanticThreshold:       0.3,
		SemanticTopK:            20,
		ThemeOverlapThreshold:   0.5,
		DomainDistanceThreshold: 0.6,
		StructuralThreshold:     0.6,
		ConceptOverlapThreshold: 0.7,
		EmotionalThreshold:      0.5,
		MethodologicalThreshold: 0.5,
		TemporalThreshold:       0.5,
	}
}
