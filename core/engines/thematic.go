package engines

import (
	"context"

	"github.com/siherrmann/weaver/model"
)

// ThematicBridgeDetector finds chunks sharing themes across dissimilar
// analytical contexts. It is deliberately biased toward cross-domain
// matches: high theme overlap in a similar context is the job of the
// structural and semantic engines.
type ThematicBridgeDetector struct{}

// NewThematicBridgeDetector creates a new thematic bridge detector
func NewThematicBridgeDetector() *ThematicBridgeDetector {
	return &ThematicBridgeDetector{}
}

// Type returns the connection type produced by this detector
func (d *ThematicBridgeDetector) Type() model.ConnectionType {
	return model.ConnectionTypeThematicBridge
}

// Detect emits a connection when theme overlap and domain distance
// both clear their thresholds, strength = overlap × distance
func (d *ThematicBridgeDetector) Detect(ctx context.Context, source *model.Chunk, corpus CorpusAccess, config *model.DetectionConfig) ([]*model.Connection, error) {
	if len(source.Themes) == 0 {
		return nil, nil
	}

	var connections []*model.Connection
	for _, candidate := range corpus.Candidates() {
		if candidate.ID == source.ID || len(candidate.Themes) == 0 {
			continue
		}

		themeOverlap := Jaccard(source.Themes, candidate.Themes)
		if themeOverlap < config.ThemeOverlapThreshold {
			continue
		}

		domainDistance := 1 - Jaccard(source.StructuralPatterns, candidate.StructuralPatterns)
		if domainDistance < config.DomainDistanceThreshold {
			continue
		}

		connections = append(connections, newConnection(source, candidate, d.Type(), themeOverlap*domainDistance, model.Metadata{
			"shared_themes":   Intersection(source.Themes, candidate.Themes),
			"theme_overlap":   themeOverlap,
			"domain_distance": domainDistance,
		}))
	}

	return capAndSort(connections, config.MaxCandidatesPerEngine), nil
}
