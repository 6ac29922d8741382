package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// DefaultEngineWeight is used for engines missing from a weights map
	DefaultEngineWeight = 0.5
	// DefaultMaxConnectionsPerChunk bounds the total connections stored per chunk
	DefaultMaxConnectionsPerChunk = 50
	// DefaultMaxConnectionsPerEngine bounds connections per engine per chunk
	DefaultMaxConnectionsPerEngine = 10
	// StarMultiplier is the context multiplier written when a connection is starred
	StarMultiplier = 2.0
	// StarContextTTL is how long a star boost stays active
	StarContextTTL = 24 * time.Hour
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// WeightConfig holds one user's engine weights, tie-break order and
// storage limits. It is passed by value into each detection run, there
// is no shared mutable weight state.
type WeightConfig struct {
	UserID                  uuid.UUID                  `json:"user_id"`
	Weights                 map[ConnectionType]float64 `json:"weights" validate:"dive,gte=0,lte=1"`
	EngineOrder             []ConnectionType           `json:"engine_order"`
	MaxConnectionsPerChunk  int                        `json:"max_connections_per_chunk" validate:"gt=0"`
	MaxConnectionsPerEngine int                        `json:"max_connections_per_engine" validate:"gt=0"`
	UpdatedAt               time.Time                  `json:"updated_at"`
}

// DefaultWeightConfig returns the starting configuration for a user,
// every engine weighted equally
func DefaultWeightConfig(userID uuid.UUID) *WeightConfig {
	weights := make(map[ConnectionType]float64)
	for _, connectionType := range AllConnectionTypes() {
		weights[connectionType] = DefaultEngineWeight
	}
	return &WeightConfig{
		UserID:                  userID,
		Weights:                 weights,
		EngineOrder:             AllConnectionTypes(),
		MaxConnectionsPerChunk:  DefaultMaxConnectionsPerChunk,
		MaxConnectionsPerEngine: DefaultMaxConnectionsPerEngine,
	}
}

// Validate checks all weights and limits are inside their valid ranges.
// Invalid configurations are rejected at write time, never stored.
func (c *WeightConfig) Validate() error {
	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("invalid weight config: %w", err)
	}
	return nil
}

// WeightFor returns the weight for an engine, falling back to the
// default for engines the user has never configured
func (c *WeightConfig) WeightFor(connectionType ConnectionType) float64 {
	if weight, ok := c.Weights[connectionType]; ok {
		return weight
	}
	return DefaultEngineWeight
}

// OrderIndex returns the tie-break priority of an engine (lower wins).
// Engines missing from the order list sort after all configured ones.
func (c *WeightConfig) OrderIndex(connectionType ConnectionType) int {
	for i, t := range c.EngineOrder {
		if t == connectionType {
			return i
		}
	}
	return len(c.EngineOrder)
}

// WeightContext is a time-scoped multiplier applied to one engine's
// contribution during ranking, e.g. a 24h star boost. Expired contexts
// are ignored lazily, there is no background sweep.
type WeightContext struct {
	Label      string         `json:"label" validate:"required"`
	UserID     uuid.UUID      `json:"user_id"`
	Engine     ConnectionType `json:"engine" validate:"required"`
	Multiplier float64        `json:"multiplier" validate:"gte=0.5,lte=2"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// Validate checks the multiplier is inside [0.5, 2.0]
func (c *WeightContext) Validate() error {
	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("invalid weight context: %w", err)
	}
	return nil
}

// Expired reports whether the context is past its expiry at the given time
func (c *WeightContext) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// WeightChange is one audit log entry for a weight mutation. Every
// mutation, manual or auto-tuned, is recorded with its reason.
type WeightChange struct {
	ID        int            `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Engine    ConnectionType `json:"engine"`
	OldWeight float64        `json:"old_weight"`
	NewWeight float64        `json:"new_weight"`
	Reason    string         `json:"reason"`
	CreatedAt time.Time      `json:"created_at"`
}
