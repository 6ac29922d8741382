package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
	loadSql "github.com/siherrmann/weaver/sql"
)

// FeedbackDBHandlerFunctions defines the interface for the append-only
// feedback log.
type FeedbackDBHandlerFunctions interface {
	InsertFeedback(feedback *model.Feedback) error
	SelectFeedbackSince(userID uuid.UUID, since time.Time) ([]*model.Feedback, error)
	SelectFeedbackForConnection(connectionID uuid.UUID) ([]*model.Feedback, error)
	SelectFeedbackStatsSince(userID uuid.UUID, since time.Time) ([]*model.EngineFeedbackStats, error)
	SelectFeedbackUserIDs(since time.Time) ([]uuid.UUID, error)
	SelectTrainingSamples(userID uuid.UUID) ([]*model.TrainingSample, error)
}

// FeedbackDBHandler handles feedback-related database operations
type FeedbackDBHandler struct {
	db *helper.Database
}

// NewFeedbackDBHandler creates a new feedback database handler.
// It initializes the database connection and loads feedback-related
// SQL functions. If force is true, it will reload the SQL functions
// even if they already exist.
func NewFeedbackDBHandler(db *helper.Database, force bool) (*FeedbackDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	feedbackDbHandler := &FeedbackDBHandler{
		db: db,
	}

	err := loadSql.LoadFeedbackSql(feedbackDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load feedback sql", err)
	}

	err = feedbackDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized FeedbackDBHandler")

	return feedbackDbHandler, nil
}

// CreateTable creates the 'feedback' table in the database.
// If the table already exists, it does not create it again.
func (h *FeedbackDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_feedback();`)
	if err != nil {
		return helper.NewError("initializing feedback table", err)
	}

	h.db.Logger.Info("Checked/created table feedback")

	return nil
}

// InsertFeedback appends one feedback entry. Entries are never updated
// or deleted afterwards.
func (h *FeedbackDBHandler) InsertFeedback(feedback *model.Feedback) error {
	if !feedback.Action.Valid() {
		return helper.NewError("validate action", fmt.Errorf("unknown feedback action %q", feedback.Action))
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_feedback($1, $2, $3, $4, $5)`,
		feedback.UserID,
		feedback.ConnectionID,
		feedback.Action,
		feedback.Context,
		feedback.Note,
	)

	err := row.Scan(
		&feedback.ID,
		&feedback.UserID,
		&feedback.ConnectionID,
		&feedback.Action,
		&feedback.Context,
		&feedback.Note,
		&feedback.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectFeedbackSince retrieves a user's feedback from the given time
// onwards, oldest first
func (h *FeedbackDBHandler) SelectFeedbackSince(userID uuid.UUID, since time.Time) ([]*model.Feedback, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_feedback_since($1, $2)`,
		userID,
		since,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var feedbacks []*model.Feedback
	for rows.Next() {
		feedback := &model.Feedback{}

		err := rows.Scan(
			&feedback.ID,
			&feedback.UserID,
			&feedback.ConnectionID,
			&feedback.Action,
			&feedback.Context,
			&feedback.Note,
			&feedback.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		feedbacks = append(feedbacks, feedback)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return feedbacks, nil
}

// SelectFeedbackForConnection retrieves all feedback recorded against
// one connection, oldest first
func (h *FeedbackDBHandler) SelectFeedbackForConnection(connectionID uuid.UUID) ([]*model.Feedback, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_feedback_for_connection($1)`,
		connectionID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var feedbacks []*model.Feedback
	for rows.Next() {
		feedback := &model.Feedback{}

		err := rows.Scan(
			&feedback.ID,
			&feedback.UserID,
			&feedback.ConnectionID,
			&feedback.Action,
			&feedback.Context,
			&feedback.Note,
			&feedback.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		feedbacks = append(feedbacks, feedback)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return feedbacks, nil
}

// SelectFeedbackStatsSince aggregates a user's feedback per engine
// inside the window starting at since
func (h *FeedbackDBHandler) SelectFeedbackStatsSince(userID uuid.UUID, since time.Time) ([]*model.EngineFeedbackStats, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_feedback_stats_since($1, $2)`,
		userID,
		since,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var stats []*model.EngineFeedbackStats
	for rows.Next() {
		stat := &model.EngineFeedbackStats{}

		err := rows.Scan(
			&stat.Engine,
			&stat.Validates,
			&stat.Rejects,
			&stat.Stars,
			&stat.Clicks,
			&stat.Ignores,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		stats = append(stats, stat)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return stats, nil
}

// SelectFeedbackUserIDs retrieves the users with feedback since the
// given time, the auto-tuner's work list
func (h *FeedbackDBHandler) SelectFeedbackUserIDs(since time.Time) ([]uuid.UUID, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_feedback_user_ids($1)`,
		since,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var userIDs []uuid.UUID
	for rows.Next() {
		var userID uuid.UUID
		err := rows.Scan(&userID)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		userIDs = append(userIDs, userID)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return userIDs, nil
}

// SelectTrainingSamples retrieves all of a user's validated and
// rejected connections as labeled training examples
func (h *FeedbackDBHandler) SelectTrainingSamples(userID uuid.UUID) ([]*model.TrainingSample, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_training_samples($1)`,
		userID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var samples []*model.TrainingSample
	for rows.Next() {
		sample := &model.TrainingSample{}

		err := rows.Scan(
			&sample.Engine,
			&sample.Strength,
			&sample.Validated,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		samples = append(samples, sample)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return samples, nil
}
