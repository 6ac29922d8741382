package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/core/engines"
	"github.com/siherrmann/weaver/core/ranking"
	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
)

// ChunkSource is the corpus read access the orchestrator needs
type ChunkSource interface {
	SelectChunksByDocument(documentID uuid.UUID) ([]*model.Chunk, error)
	SelectAllChunks() ([]*model.Chunk, error)
	SelectChunksBySimilarity(embedding []float32, limit int, threshold float64, excludeDocumentID uuid.UUID) ([]*model.Chunk, error)
}

// ConnectionSink is the write access the orchestrator needs. It is the
// only writer of the connection store and always scoped to a single
// document, so runs over different documents cannot race.
type ConnectionSink interface {
	ReplaceDocumentConnections(ctx context.Context, documentID uuid.UUID, connections []*model.Connection, batchSize int) (int, error)
}

// RunReport summarizes one detection pass for the calling job system
type RunReport struct {
	DocumentID      uuid.UUID              `json:"document_id"`
	Chunks          int                    `json:"chunks"`
	Detected        int                    `json:"detected"`
	Written         int                    `json:"written"`
	TimedOutEngines []model.ConnectionType `json:"timed_out_engines,omitempty"`
	Duration        time.Duration          `json:"duration"`
}

// Orchestrator runs all detection engines over a document's chunks
// under one pipeline deadline and persists the ranked result
type Orchestrator struct {
	detectors   []engines.Detector
	chunks      ChunkSource
	connections ConnectionSink
	log         *slog.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(detectors []engines.Detector, chunks ChunkSource, connections ConnectionSink, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		detectors:   detectors,
		chunks:      chunks,
		connections: connections,
		log:         logger,
	}
}

// corpusSnapshot gives engines a shared immutable metadata snapshot
// plus the vector query primitive
type corpusSnapshot struct {
	candidates []*model.Chunk
	source     ChunkSource
}

func (c *corpusSnapshot) Candidates() []*model.Chunk {
	return c.candidates
}

func (c *corpusSnapshot) NearestNeighbors(ctx context.Context, embedding []float32, limit int, threshold float64, excludeDocumentID uuid.UUID) ([]*model.Chunk, error) {
	return c.source.SelectChunksBySimilarity(embedding, limit, threshold, excludeDocumentID)
}

// engineResult carries one engine's output over the fan-in channel
type engineResult struct {
	engine      model.ConnectionType
	connections []*model.Connection
}

// ProcessDocument runs all engines over the document's chunks, ranks
// and caps the merged result and atomically replaces the document's
// prior connection set. Engines still running at the pipeline deadline
// are abandoned and contribute nothing, only a failure of the final
// write surfaces to the caller.
func (o *Orchestrator) ProcessDocument(
	ctx context.Context,
	documentID uuid.UUID,
	config *model.DetectionConfig,
	weights *model.WeightConfig,
	multipliers map[model.ConnectionType]float64,
	scorer ranking.Scorer,
) (*RunReport, error) {
	started := time.Now()

	report := &RunReport{
		DocumentID: documentID,
	}

	chunks, err := o.chunks.SelectChunksByDocument(documentID)
	if err != nil {
		return nil, helper.NewError("select document chunks", err)
	}
	report.Chunks = len(chunks)

	if len(chunks) == 0 {
		report.Duration = time.Since(started)
		return report, nil
	}

	candidates, err := o.chunks.SelectAllChunks()
	if err != nil {
		return nil, helper.NewError("select corpus snapshot", err)
	}

	corpus := &corpusSnapshot{
		candidates: candidates,
		source:     o.chunks,
	}

	detected := o.detect(ctx, chunks, corpus, config, report)
	merged := dedupe(detected)
	report.Detected = len(merged)

	ranker := ranking.NewRanker(scorer)
	ranked := ranker.Rank(merged, weights, multipliers)
	limited := ranker.Limit(ranked, weights.MaxConnectionsPerChunk, weights.MaxConnectionsPerEngine)

	written, err := o.connections.ReplaceDocumentConnections(ctx, documentID, limited, config.UpsertBatchSize)
	if err != nil {
		return nil, helper.NewError("persist connections", err)
	}
	report.Written = written
	report.Duration = time.Since(started)

	o.log.Info("Processed document",
		slog.String("document_id", documentID.String()),
		slog.Int("chunks", report.Chunks),
		slog.Int("detected", report.Detected),
		slog.Int("written", report.Written),
		slog.Duration("duration", report.Duration),
	)

	return report, nil
}

// detect fans out one task per engine over the chunk batch and joins
// them under the pipeline deadline. A failing engine contributes an
// empty result, an engine past the deadline is abandoned without being
// awaited.
func (o *Orchestrator) detect(
	ctx context.Context,
	chunks []*model.Chunk,
	corpus engines.CorpusAccess,
	config *model.DetectionConfig,
	report *RunReport,
) []*model.Connection {
	runCtx, cancel := context.WithTimeout(ctx, config.PipelineTimeout)
	defer cancel()

	// Buffered so abandoned engines never block on send
	results := make(chan engineResult, len(o.detectors))

	for _, detector := range o.detectors {
		go func(d engines.Detector) {
			var detected []*model.Connection
			for _, chunk := range chunks {
				if runCtx.Err() != nil {
					return
				}

				connections, err := d.Detect(runCtx, chunk, corpus, config)
				if err != nil {
					o.log.Warn("Engine failed for chunk",
						slog.String("engine", string(d.Type())),
						slog.String("chunk_id", chunk.ID.String()),
						slog.String("error", err.Error()),
					)
					continue
				}

				detected = append(detected, connections...)
			}

			results <- engineResult{
				engine:      d.Type(),
				connections: detected,
			}
		}(detector)
	}

	finished := make(map[model.ConnectionType]bool, len(o.detectors))
	var collected []*model.Connection

	for range o.detectors {
		select {
		case result := <-results:
			finished[result.engine] = true
			collected = append(collected, result.connections...)
		case <-runCtx.Done():
			for _, detector := range o.detectors {
				if !finished[detector.Type()] {
					report.TimedOutEngines = append(report.TimedOutEngines, detector.Type())
					o.log.Warn("Engine abandoned at pipeline deadline",
						slog.String("engine", string(detector.Type())),
						slog.Duration("timeout", config.PipelineTimeout),
					)
				}
			}
			return collected
		}
	}

	return collected
}

// dedupe merges engine outputs on (source, target, type), keeping the
// strongest duplicate
func dedupe(connections []*model.Connection) []*model.Connection {
	seen := make(map[model.ConnectionKey]*model.Connection, len(connections))
	var merged []*model.Connection

	for _, connection := range connections {
		key := connection.Key()
		if existing, ok := seen[key]; ok {
			if connection.Strength > existing.Strength {
				existing.Strength = connection.Strength
				existing.Metadata = connection.Metadata
			}
			continue
		}
		seen[key] = connection
		merged = append(merged, connection)
	}

	return merged
}
