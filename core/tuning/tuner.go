package tuning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/core/ranking"
	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
)

const (
	// FeedbackWindow is how far back the tuner looks for feedback
	FeedbackWindow = 30 * 24 * time.Hour
	// MaxAdjustment is the largest relative weight change per run
	MaxAdjustment = 0.1
	// IncreaseThreshold is the accept ratio above which a weight grows
	IncreaseThreshold = 0.7
	// DecreaseThreshold is the accept ratio below which a weight shrinks
	DecreaseThreshold = 0.3
	// MinTrainingSamples is the labeled sample count required before a
	// personal model is trained at all
	MinTrainingSamples = 100
	// LockTTL bounds how long a tuning run may hold its user lock
	LockTTL = 10 * time.Minute
)

// FeedbackSource is the feedback read access the tuner needs
type FeedbackSource interface {
	SelectFeedbackStatsSince(userID uuid.UUID, since time.Time) ([]*model.EngineFeedbackStats, error)
	SelectFeedbackUserIDs(since time.Time) ([]uuid.UUID, error)
	SelectTrainingSamples(userID uuid.UUID) ([]*model.TrainingSample, error)
}

// WeightStore is the weight config access the tuner needs
type WeightStore interface {
	SelectWeightConfig(userID uuid.UUID) (*model.WeightConfig, error)
	UpsertWeightConfig(config *model.WeightConfig, reason string) error
}

// ModelStore is the personal model access the tuner needs
type ModelStore interface {
	UpsertPersonalModel(personalModel *model.PersonalModel) error
	SelectPersonalModel(userID uuid.UUID) (*model.PersonalModel, error)
	DeletePersonalModel(userID uuid.UUID) error
}

// Tuner adjusts a user's engine weights from their recent feedback and
// retrains their personal model. Every weight change goes through the
// audited config upsert, the feedback log itself is never touched.
type Tuner struct {
	feedback FeedbackSource
	weights  WeightStore
	models   ModelStore
	locker   Locker
	log      *slog.Logger

	now func() time.Time
}

// NewTuner creates a new tuner
func NewTuner(feedback FeedbackSource, weights WeightStore, models ModelStore, locker Locker, logger *slog.Logger) *Tuner {
	return &Tuner{
		feedback: feedback,
		weights:  weights,
		models:   models,
		locker:   locker,
		log:      logger,
		now:      time.Now,
	}
}

// TuneUser runs one tuning pass for a single user. A pass already
// running for the same user makes this one a no-op.
func (t *Tuner) TuneUser(ctx context.Context, userID uuid.UUID) error {
	acquired, err := t.locker.Acquire(ctx, userID, LockTTL)
	if err != nil {
		return helper.NewError("acquire lock", err)
	}
	if !acquired {
		t.log.Info("Skipping tuning run, another is active",
			slog.String("user_id", userID.String()),
		)
		return nil
	}
	defer func() {
		releaseErr := t.locker.Release(context.WithoutCancel(ctx), userID)
		if releaseErr != nil {
			t.log.Warn("Failed to release tuner lock",
				slog.String("user_id", userID.String()),
				slog.String("error", releaseErr.Error()),
			)
		}
	}()

	err = t.adjustWeights(userID)
	if err != nil {
		return helper.NewError("adjust weights", err)
	}

	err = t.retrainModel(userID)
	if err != nil {
		return helper.NewError("retrain model", err)
	}

	return nil
}

// adjustWeights nudges each engine's weight by the feedback accept
// ratio inside the window. A clearly accepted engine gains a tenth of
// its current weight, a clearly rejected one loses a tenth, everything
// in between stays untouched.
func (t *Tuner) adjustWeights(userID uuid.UUID) error {
	since := t.now().Add(-FeedbackWindow)

	stats, err := t.feedback.SelectFeedbackStatsSince(userID, since)
	if err != nil {
		return helper.NewError("select feedback stats", err)
	}
	if len(stats) == 0 {
		return nil
	}

	config, err := t.weights.SelectWeightConfig(userID)
	if err != nil {
		return helper.NewError("select weight config", err)
	}

	for _, stat := range stats {
		ratio, ok := stat.AcceptRatio()
		if !ok {
			continue
		}

		old := config.WeightFor(stat.Engine)
		adjusted := old
		switch {
		case ratio > IncreaseThreshold:
			adjusted = clampWeight(old * (1 + MaxAdjustment))
		case ratio < DecreaseThreshold:
			adjusted = clampWeight(old * (1 - MaxAdjustment))
		}
		if adjusted == old {
			continue
		}

		config.Weights[stat.Engine] = adjusted
		reason := fmt.Sprintf(
			"auto-tune: accept ratio %.2f over %d decisive actions in %d days",
			ratio,
			stat.Validates+stat.Rejects,
			int(FeedbackWindow.Hours()/24),
		)

		err = t.weights.UpsertWeightConfig(config, reason)
		if err != nil {
			return helper.NewError("upsert weight config", err)
		}

		t.log.Info("Tuned engine weight",
			slog.String("user_id", userID.String()),
			slog.String("engine", string(stat.Engine)),
			slog.Float64("old_weight", old),
			slog.Float64("new_weight", adjusted),
			slog.Float64("accept_ratio", ratio),
		)
	}

	return nil
}

// retrainModel trains the user's personal model once enough labeled
// samples exist. A model below the accuracy floor is never stored, and
// an existing model that falls below the floor on retraining is
// discarded.
func (t *Tuner) retrainModel(userID uuid.UUID) error {
	samples, err := t.feedback.SelectTrainingSamples(userID)
	if err != nil {
		return helper.NewError("select training samples", err)
	}
	if len(samples) < MinTrainingSamples {
		return nil
	}

	parameters, accuracy := Train(samples)

	if accuracy < ranking.AccuracyFloor {
		existing, err := t.models.SelectPersonalModel(userID)
		if err != nil {
			return helper.NewError("select personal model", err)
		}
		if existing != nil {
			err = t.models.DeletePersonalModel(userID)
			if err != nil {
				return helper.NewError("delete personal model", err)
			}
			t.log.Info("Discarded personal model below accuracy floor",
				slog.String("user_id", userID.String()),
				slog.Float64("accuracy", accuracy),
			)
		}
		return nil
	}

	personalModel := &model.PersonalModel{
		UserID:      userID,
		ModelType:   model.ModelTypeLogistic,
		Parameters:  parameters,
		Accuracy:    accuracy,
		SampleCount: len(samples),
	}

	err = t.models.UpsertPersonalModel(personalModel)
	if err != nil {
		return helper.NewError("upsert personal model", err)
	}

	t.log.Info("Trained personal model",
		slog.String("user_id", userID.String()),
		slog.Float64("accuracy", accuracy),
		slog.Int("samples", len(samples)),
	)

	return nil
}

func clampWeight(weight float64) float64 {
	if weight < 0 {
		return 0
	}
	if weight > 1 {
		return 1
	}
	return weight
}
