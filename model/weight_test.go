package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightConfig(t *testing.T) {
	userID := uuid.New()
	config := DefaultWeightConfig(userID)

	t.Run("Every engine weighted equally", func(t *testing.T) {
		require.Len(t, config.Weights, 7, "Expected a weight for every engine")
		for _, connectionType := range AllConnectionTypes() {
			assert.Equal(t, DefaultEngineWeight, config.Weights[connectionType])
		}
	})

	t.Run("Default limits", func(t *testing.T) {
		assert.Equal(t, userID, config.UserID)
		assert.Equal(t, DefaultMaxConnectionsPerChunk, config.MaxConnectionsPerChunk)
		assert.Equal(t, DefaultMaxConnectionsPerEngine, config.MaxConnectionsPerEngine)
		assert.Equal(t, AllConnectionTypes(), config.EngineOrder)
	})

	t.Run("Default config is valid", func(t *testing.T) {
		assert.NoError(t, config.Validate())
	})
}

func TestWeightConfigValidate(t *testing.T) {
	userID := uuid.New()

	t.Run("Weight above one is rejected", func(t *testing.T) {
		config := DefaultWeightConfig(userID)
		config.Weights[ConnectionTypeSemantic] = 1.2

		err := config.Validate()
		assert.Error(t, err, "Expected a weight above 1.0 to be rejected")
		assert.Contains(t, err.Error(), "invalid weight config")
	})

	t.Run("Negative weight is rejected", func(t *testing.T) {
		config := DefaultWeightConfig(userID)
		config.Weights[ConnectionTypeSemantic] = -0.1

		assert.Error(t, config.Validate(), "Expected a negative weight to be rejected")
	})

	t.Run("Boundary weights are valid", func(t *testing.T) {
		config := DefaultWeightConfig(userID)
		config.Weights[ConnectionTypeSemantic] = 0.0
		config.Weights[ConnectionTypeEmotional] = 1.0

		assert.NoError(t, config.Validate(), "Expected 0.0 and 1.0 to be inside the valid range")
	})

	t.Run("Non-positive limits are rejected", func(t *testing.T) {
		config := DefaultWeightConfig(userID)
		config.MaxConnectionsPerChunk = 0

		assert.Error(t, config.Validate(), "Expected a zero per-chunk limit to be rejected")
	})
}

func TestWeightConfigWeightFor(t *testing.T) {
	userID := uuid.New()

	t.Run("Configured engine", func(t *testing.T) {
		config := DefaultWeightConfig(userID)
		config.Weights[ConnectionTypeSemantic] = 0.8

		assert.Equal(t, 0.8, config.WeightFor(ConnectionTypeSemantic))
	})

	t.Run("Unconfigured engine falls back to default", func(t *testing.T) {
		config := &WeightConfig{UserID: userID, Weights: map[ConnectionType]float64{}}

		assert.Equal(t, DefaultEngineWeight, config.WeightFor(ConnectionTypeTemporal))
	})
}

func TestWeightConfigOrderIndex(t *testing.T) {
	userID := uuid.New()
	config := DefaultWeightConfig(userID)
	config.EngineOrder = []ConnectionType{ConnectionTypeContradiction, ConnectionTypeSemantic}

	t.Run("Listed engines keep their position", func(t *testing.T) {
		assert.Equal(t, 0, config.OrderIndex(ConnectionTypeContradiction))
		assert.Equal(t, 1, config.OrderIndex(ConnectionTypeSemantic))
	})

	t.Run("Unlisted engines sort last", func(t *testing.T) {
		assert.Equal(t, 2, config.OrderIndex(ConnectionTypeTemporal))
	})
}

func TestWeightContext(t *testing.T) {
	userID := uuid.New()

	t.Run("Valid context", func(t *testing.T) {
		weightContext := &WeightContext{
			Label:      "starred",
			UserID:     userID,
			Engine:     ConnectionTypeSemantic,
			Multiplier: 2.0,
		}
		assert.NoError(t, weightContext.Validate())
	})

	t.Run("Multiplier outside range is rejected", func(t *testing.T) {
		weightContext := &WeightContext{
			Label:      "too_weak",
			UserID:     userID,
			Engine:     ConnectionTypeSemantic,
			Multiplier: 0.4,
		}
		assert.Error(t, weightContext.Validate(), "Expected a multiplier below 0.5 to be rejected")
	})

	t.Run("Missing label is rejected", func(t *testing.T) {
		weightContext := &WeightContext{
			UserID:     userID,
			Engine:     ConnectionTypeSemantic,
			Multiplier: 1.0,
		}
		assert.Error(t, weightContext.Validate())
	})

	t.Run("Expired", func(t *testing.T) {
		now := time.Now()
		past := now.Add(-time.Minute)
		future := now.Add(time.Minute)

		assert.True(t, (&WeightContext{ExpiresAt: &past}).Expired(now))
		assert.False(t, (&WeightContext{ExpiresAt: &future}).Expired(now))
		assert.False(t, (&WeightContext{}).Expired(now), "Expected a context without expiry to never expire")
	})
}
