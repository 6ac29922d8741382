package ranking

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/model"
)

// Ranker combines raw strengths with user weights and context
// multipliers into a deterministic ordering
type Ranker struct {
	scorer Scorer
}

// NewRanker creates a new ranker with the given scoring strategy
func NewRanker(scorer Scorer) *Ranker {
	return &Ranker{
		scorer: scorer,
	}
}

// Rank scores and sorts connections by descending final score.
// Equal scores are broken by the user's engine order, then by target
// ID, so ranking the same inputs twice yields the same order.
func (r *Ranker) Rank(connections []*model.Connection, weights *model.WeightConfig, multipliers map[model.ConnectionType]float64) []*model.Connection {
	ranked := make([]*model.Connection, len(connections))
	copy(ranked, connections)

	for _, connection := range ranked {
		connection.FinalScore = r.scorer.Score(connection, weights, multipliers)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		orderI := weights.OrderIndex(ranked[i].ConnectionType)
		orderJ := weights.OrderIndex(ranked[j].ConnectionType)
		if orderI != orderJ {
			return orderI < orderJ
		}
		return ranked[i].TargetChunkID.String() < ranked[j].TargetChunkID.String()
	})

	return ranked
}

// Limit truncates ranked connections to the per-chunk and per-engine
// caps, keeping the highest ranked entries. The input must already be
// ranked.
func (r *Ranker) Limit(ranked []*model.Connection, maxPerChunk int, maxPerEngine int) []*model.Connection {
	perChunk := make(map[uuid.UUID]int)
	perEngine := make(map[uuid.UUID]map[model.ConnectionType]int)

	var limited []*model.Connection
	for _, connection := range ranked {
		if maxPerChunk > 0 && perChunk[connection.SourceChunkID] >= maxPerChunk {
			continue
		}

		engines := perEngine[connection.SourceChunkID]
		if engines == nil {
			engines = make(map[model.ConnectionType]int)
			perEngine[connection.SourceChunkID] = engines
		}
		if maxPerEngine > 0 && engines[connection.ConnectionType] >= maxPerEngine {
			continue
		}

		perChunk[connection.SourceChunkID]++
		engines[connection.ConnectionType]++
		limited = append(limited, connection)
	}

	return limited
}

// Reranker recomputes a ranking whenever weights change, debounced to
// the latest request: a result superseded by a newer request before it
// completes is discarded.
type Reranker struct {
	mu         sync.Mutex
	generation uint64
}

// NewReranker creates a new reranker
func NewReranker() *Reranker {
	return &Reranker{}
}

// Rerank ranks the connections with the given scoring strategy and
// weights. The boolean is false when a newer Rerank call superseded
// this one while it was running, in which case the result must be
// discarded.
func (r *Reranker) Rerank(scorer Scorer, connections []*model.Connection, weights *model.WeightConfig, multipliers map[model.ConnectionType]float64) ([]*model.Connection, bool) {
	r.mu.Lock()
	r.generation++
	generation := r.generation
	r.mu.Unlock()

	ranked := NewRanker(scorer).Rank(connections, weights, multipliers)

	r.mu.Lock()
	defer r.mu.Unlock()
	if generation != r.generation {
		return nil, false
	}
	return ranked, true
}
