package weaver

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/siherrmann/weaver/contexts"
	"github.com/siherrmann/weaver/core/engines"
	"github.com/siherrmann/weaver/core/orchestrator"
	"github.com/siherrmann/weaver/core/ranking"
	"github.com/siherrmann/weaver/core/tuning"
	"github.com/siherrmann/weaver/database"
	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
	loadSql "github.com/siherrmann/weaver/sql"
)

// Weaver provides a unified interface to connection synthesis: the
// detection pipeline, ranking, feedback and auto-tuning
type Weaver struct {
	DB          *helper.Database
	Chunks      *database.ChunksDBHandler
	Connections *database.ConnectionsDBHandler
	Weights     *database.WeightsDBHandler
	Feedback    *database.FeedbackDBHandler
	Models      *database.ModelsDBHandler
	Contexts    *contexts.Store
	Tuner       *tuning.Tuner
	Scheduler   *tuning.Scheduler
	// Detection holds the pipeline thresholds and deadlines, replace
	// before processing to tune them
	Detection *model.DetectionConfig

	orchestrator *orchestrator.Orchestrator
	reranker     *ranking.Reranker
	redis        *redis.Client
	log          *slog.Logger
}

// NewWeaver creates a new Weaver instance with all handlers initialized
func NewWeaver(config *helper.DatabaseConfiguration, redisOptions *redis.Options) (*Weaver, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("weaver", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers, force=false to not reload SQL functions that
	// already exist
	chunks, err := database.NewChunksDBHandler(db)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	connections, err := database.NewConnectionsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create connections handler", err)
	}

	weights, err := database.NewWeightsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create weights handler", err)
	}

	feedback, err := database.NewFeedbackDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create feedback handler", err)
	}

	models, err := database.NewModelsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create models handler", err)
	}

	redisClient := redis.NewClient(redisOptions)
	contextStore := contexts.NewStore(redisClient, logger)

	tuner := tuning.NewTuner(feedback, weights, models, tuning.NewRedisLocker(redisClient), logger)
	scheduler := tuning.NewScheduler(tuner, tuning.DefaultTuneInterval, logger)

	return &Weaver{
		DB:           db,
		Chunks:       chunks,
		Connections:  connections,
		Weights:      weights,
		Feedback:     feedback,
		Models:       models,
		Contexts:     contextStore,
		Tuner:        tuner,
		Scheduler:    scheduler,
		Detection:    model.DefaultDetectionConfig(),
		orchestrator: orchestrator.NewOrchestrator(engines.DefaultDetectors(), chunks, connections, logger),
		reranker:     ranking.NewReranker(),
		redis:        redisClient,
		log:          logger,
	}, nil
}

// Close closes the database and Redis connections
func (w *Weaver) Close() error {
	if w.redis != nil {
		err := w.redis.Close()
		if err != nil {
			return helper.NewError("close redis client", err)
		}
	}
	if w.DB != nil && w.DB.Instance != nil {
		return w.DB.Instance.Close()
	}
	return nil
}

// userScoring loads the pieces of a user's scoring setup: weights,
// active context multipliers and the scoring strategy
func (w *Weaver) userScoring(ctx context.Context, userID uuid.UUID) (*model.WeightConfig, map[model.ConnectionType]float64, ranking.Scorer, error) {
	weights, err := w.Weights.SelectWeightConfig(userID)
	if err != nil {
		return nil, nil, nil, helper.NewError("select weight config", err)
	}

	multipliers, err := w.Contexts.MultipliersFor(ctx, userID)
	if err != nil {
		return nil, nil, nil, helper.NewError("select weight contexts", err)
	}

	personalModel, err := w.Models.SelectPersonalModel(userID)
	if err != nil {
		return nil, nil, nil, helper.NewError("select personal model", err)
	}

	return weights, multipliers, ranking.ScorerFor(personalModel), nil
}

// ProcessDocument runs the full detection pipeline for one document
// under the given user's weights and atomically replaces the document's
// stored connections. Safe to call again for the same document, the
// result converges to the same connection set.
func (w *Weaver) ProcessDocument(ctx context.Context, documentID uuid.UUID, userID uuid.UUID) (*orchestrator.RunReport, error) {
	weights, multipliers, scorer, err := w.userScoring(ctx, userID)
	if err != nil {
		return nil, helper.NewError("load user scoring", err)
	}

	return w.orchestrator.ProcessDocument(ctx, documentID, w.Detection, weights, multipliers, scorer)
}

// RecordFeedback appends a feedback entry to the log. Starring a
// connection additionally boosts its engine for 24 hours.
func (w *Weaver) RecordFeedback(ctx context.Context, feedback *model.Feedback) error {
	err := w.Feedback.InsertFeedback(feedback)
	if err != nil {
		return helper.NewError("insert feedback", err)
	}

	if feedback.Action != model.FeedbackActionStar {
		return nil
	}

	connection, err := w.Connections.SelectConnection(feedback.ConnectionID)
	if err != nil {
		return helper.NewError("select starred connection", err)
	}

	err = w.Contexts.PutStarBoost(ctx, feedback.UserID, connection.ConnectionType)
	if err != nil {
		return helper.NewError("store star boost", err)
	}

	return nil
}

// WeightConfig returns the user's weight configuration, defaults for
// users who never configured anything
func (w *Weaver) WeightConfig(userID uuid.UUID) (*model.WeightConfig, error) {
	return w.Weights.SelectWeightConfig(userID)
}

// UpdateWeightConfig validates and stores a user's weight
// configuration. Every changed engine weight lands in the audit log
// with the given reason.
func (w *Weaver) UpdateWeightConfig(config *model.WeightConfig, reason string) error {
	return w.Weights.UpsertWeightConfig(config, reason)
}

// WeightChanges returns the newest entries of a user's weight audit log
func (w *Weaver) WeightChanges(userID uuid.UUID, limit int) ([]*model.WeightChange, error) {
	return w.Weights.SelectWeightChanges(userID, limit)
}

// PutWeightContext stores a time-scoped multiplier for one engine
func (w *Weaver) PutWeightContext(ctx context.Context, weightContext *model.WeightContext) error {
	return w.Contexts.PutContext(ctx, weightContext)
}

// DeleteWeightContext removes a weight context before its expiry
func (w *Weaver) DeleteWeightContext(ctx context.Context, userID uuid.UUID, engine model.ConnectionType, label string) error {
	return w.Contexts.DeleteContext(ctx, userID, engine, label)
}

// ConnectionsForChunk returns a chunk's stored connections, strongest
// first, optionally filtered to one engine
func (w *Weaver) ConnectionsForChunk(chunkID uuid.UUID, connectionType *model.ConnectionType, limit int) ([]*model.Connection, error) {
	return w.Connections.SelectConnectionsForChunk(chunkID, connectionType, limit)
}

// ConnectionsForDocument returns all stored connections of a document's
// chunks
func (w *Weaver) ConnectionsForDocument(documentID uuid.UUID) ([]*model.Connection, error) {
	return w.Connections.SelectConnectionsForDocument(documentID)
}

// Export returns the flat connection read model for external
// consumers. A nil documentID exports the whole corpus.
func (w *Weaver) Export(documentID *uuid.UUID) ([]*model.ExportRow, error) {
	return w.Connections.ExportConnections(documentID)
}

// Rerank re-scores a user's view of the given connections with their
// current weights, without touching storage. The boolean is false when
// a newer Rerank call superseded this one, in which case the caller
// keeps its previous view.
func (w *Weaver) Rerank(ctx context.Context, userID uuid.UUID, connections []*model.Connection) ([]*model.Connection, bool, error) {
	weights, multipliers, scorer, err := w.userScoring(ctx, userID)
	if err != nil {
		return nil, false, helper.NewError("load user scoring", err)
	}

	ranked, current := w.reranker.Rerank(scorer, connections, weights, multipliers)
	return ranked, current, nil
}

// TuneUser runs one auto-tuning pass for a single user
func (w *Weaver) TuneUser(ctx context.Context, userID uuid.UUID) error {
	return w.Tuner.TuneUser(ctx, userID)
}

// RunTuner blocks running the tuning scheduler until the context is
// cancelled, typically started in its own goroutine
func (w *Weaver) RunTuner(ctx context.Context) {
	w.Scheduler.Run(ctx)
}

// Chunk returns a single chunk from the ingestion store
func (w *Weaver) Chunk(chunkID uuid.UUID) (*model.Chunk, error) {
	chunk, err := w.Chunks.SelectChunk(chunkID)
	if err != nil {
		return nil, helper.NewError(fmt.Sprintf("select chunk %v", chunkID), err)
	}
	return chunk, nil
}
