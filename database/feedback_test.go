package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackNewFeedbackDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewFeedbackDBHandler", func(t *testing.T) {
		feedbackDbHandler, err := NewFeedbackDBHandler(database, true)
		assert.NoError(t, err, "Expected NewFeedbackDBHandler to not return an error")
		require.NotNil(t, feedbackDbHandler, "Expected NewFeedbackDBHandler to return a non-nil instance")
		require.NotNil(t, feedbackDbHandler.db, "Expected NewFeedbackDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewFeedbackDBHandler with nil database", func(t *testing.T) {
		_, err := NewFeedbackDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating FeedbackDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestFeedbackInsert(t *testing.T) {
	database := initDB(t)

	feedbackDbHandler, err := NewFeedbackDBHandler(database, true)
	require.NoError(t, err)

	connectionsDbHandler, err := NewConnectionsDBHandler(database, true)
	require.NoError(t, err)

	source := &model.Chunk{DocumentID: uuid.New(), Content: "source"}
	insertTestChunk(t, database, source)
	target := &model.Chunk{DocumentID: uuid.New(), Content: "target"}
	insertTestChunk(t, database, target)
	connection := insertTestConnection(t, connectionsDbHandler, source.ID, target.ID, model.ConnectionTypeSemantic, 0.8)

	userID := uuid.New()

	t.Run("Valid call InsertFeedback", func(t *testing.T) {
		feedback := &model.Feedback{
			UserID:       userID,
			ConnectionID: connection.ID,
			Action:       model.FeedbackActionValidate,
			Context:      model.Metadata{"view": "reader"},
		}

		err := feedbackDbHandler.InsertFeedback(feedback)
		assert.NoError(t, err, "Expected InsertFeedback to not return an error")
		assert.NotZero(t, feedback.ID, "Expected the inserted entry to get an ID")
		assert.WithinDuration(t, time.Now(), feedback.CreatedAt, 2*time.Second, "Expected CreatedAt to be set")
	})

	t.Run("Invalid action is rejected", func(t *testing.T) {
		feedback := &model.Feedback{
			UserID:       userID,
			ConnectionID: connection.ID,
			Action:       model.FeedbackAction("upvote"),
			Context:      model.Metadata{},
		}

		err := feedbackDbHandler.InsertFeedback(feedback)
		assert.Error(t, err, "Expected an unknown action to be rejected")
		assert.Contains(t, err.Error(), "unknown feedback action")
	})

	t.Run("SelectFeedbackSince returns entries oldest first", func(t *testing.T) {
		second := &model.Feedback{
			UserID:       userID,
			ConnectionID: connection.ID,
			Action:       model.FeedbackActionStar,
			Context:      model.Metadata{},
		}
		err := feedbackDbHandler.InsertFeedback(second)
		require.NoError(t, err)

		feedbacks, err := feedbackDbHandler.SelectFeedbackSince(userID, time.Now().Add(-time.Hour))
		assert.NoError(t, err, "Expected SelectFeedbackSince to not return an error")
		require.Len(t, feedbacks, 2)
		assert.Equal(t, model.FeedbackActionValidate, feedbacks[0].Action, "Expected oldest entry first")
		assert.Equal(t, model.FeedbackActionStar, feedbacks[1].Action)
	})

	t.Run("SelectFeedbackForConnection", func(t *testing.T) {
		feedbacks, err := feedbackDbHandler.SelectFeedbackForConnection(connection.ID)
		assert.NoError(t, err)
		assert.Len(t, feedbacks, 2, "Expected both entries against the connection")
	})

	t.Run("SelectFeedbackUserIDs lists active users", func(t *testing.T) {
		userIDs, err := feedbackDbHandler.SelectFeedbackUserIDs(time.Now().Add(-time.Hour))
		assert.NoError(t, err)
		assert.Contains(t, userIDs, userID)
	})

	t.Run("Window excludes older feedback", func(t *testing.T) {
		feedbacks, err := feedbackDbHandler.SelectFeedbackSince(userID, time.Now().Add(time.Hour))
		assert.NoError(t, err)
		assert.Empty(t, feedbacks, "Expected a future window to match nothing")
	})
}

func TestFeedbackStats(t *testing.T) {
	database := initDB(t)

	feedbackDbHandler, err := NewFeedbackDBHandler(database, true)
	require.NoError(t, err)

	connectionsDbHandler, err := NewConnectionsDBHandler(database, true)
	require.NoError(t, err)

	source := &model.Chunk{DocumentID: uuid.New(), Content: "source"}
	insertTestChunk(t, database, source)
	targetA := &model.Chunk{DocumentID: uuid.New(), Content: "target a"}
	insertTestChunk(t, database, targetA)
	targetB := &model.Chunk{DocumentID: uuid.New(), Content: "target b"}
	insertTestChunk(t, database, targetB)

	semantic := insertTestConnection(t, connectionsDbHandler, source.ID, targetA.ID, model.ConnectionTypeSemantic, 0.8)
	emotional := insertTestConnection(t, connectionsDbHandler, source.ID, targetB.ID, model.ConnectionTypeEmotional, 0.6)

	userID := uuid.New()

	record := func(connectionID uuid.UUID, action model.FeedbackAction) {
		err := feedbackDbHandler.InsertFeedback(&model.Feedback{
			UserID:       userID,
			ConnectionID: connectionID,
			Action:       action,
			Context:      model.Metadata{},
		})
		require.NoError(t, err)
	}

	record(semantic.ID, model.FeedbackActionValidate)
	record(semantic.ID, model.FeedbackActionValidate)
	record(semantic.ID, model.FeedbackActionStar)
	record(emotional.ID, model.FeedbackActionReject)
	record(emotional.ID, model.FeedbackActionIgnore)

	t.Run("Valid call SelectFeedbackStatsSince", func(t *testing.T) {
		stats, err := feedbackDbHandler.SelectFeedbackStatsSince(userID, time.Now().Add(-time.Hour))
		assert.NoError(t, err, "Expected SelectFeedbackStatsSince to not return an error")
		require.Len(t, stats, 2, "Expected stats grouped per engine")

		byEngine := make(map[model.ConnectionType]*model.EngineFeedbackStats)
		for _, stat := range stats {
			byEngine[stat.Engine] = stat
		}

		require.Contains(t, byEngine, model.ConnectionTypeSemantic)
		assert.Equal(t, 2, byEngine[model.ConnectionTypeSemantic].Validates)
		assert.Equal(t, 1, byEngine[model.ConnectionTypeSemantic].Stars)
		assert.Equal(t, 0, byEngine[model.ConnectionTypeSemantic].Rejects)

		require.Contains(t, byEngine, model.ConnectionTypeEmotional)
		assert.Equal(t, 1, byEngine[model.ConnectionTypeEmotional].Rejects)
		assert.Equal(t, 1, byEngine[model.ConnectionTypeEmotional].Ignores)
	})

	t.Run("Valid call SelectTrainingSamples", func(t *testing.T) {
		samples, err := feedbackDbHandler.SelectTrainingSamples(userID)
		assert.NoError(t, err, "Expected SelectTrainingSamples to not return an error")
		require.Len(t, samples, 3, "Expected only validates and rejects as labeled samples")

		validated := 0
		for _, sample := range samples {
			if sample.Validated {
				validated++
				assert.Equal(t, model.ConnectionTypeSemantic, sample.Engine)
				assert.Equal(t, 0.8, sample.Strength)
			} else {
				assert.Equal(t, model.ConnectionTypeEmotional, sample.Engine)
			}
		}
		assert.Equal(t, 2, validated)
	})

	t.Run("Stats for another user are empty", func(t *testing.T) {
		stats, err := feedbackDbHandler.SelectFeedbackStatsSince(uuid.New(), time.Now().Add(-time.Hour))
		assert.NoError(t, err)
		assert.Empty(t, stats)
	})
}
