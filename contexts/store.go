package contexts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/siherrmann/weaver/helper"
	"github.com/siherrmann/weaver/model"
)

// Store keeps time-scoped weight contexts in Redis. A context key
// carries its multiplier as the value and its expiry as the key TTL,
// so expired contexts disappear without any sweeping on our side.
type Store struct {
	client *redis.Client
	log    *slog.Logger
}

// NewStore creates a new weight context store
func NewStore(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		log:    logger,
	}
}

func contextKey(userID uuid.UUID, engine model.ConnectionType, label string) string {
	return fmt.Sprintf("weaver:context:%s:%s:%s", userID, engine, label)
}

func contextPattern(userID uuid.UUID) string {
	return fmt.Sprintf("weaver:context:%s:*", userID)
}

// PutContext validates and stores a weight context. A context with an
// expiry in the past is dropped silently.
func (s *Store) PutContext(ctx context.Context, weightContext *model.WeightContext) error {
	err := weightContext.Validate()
	if err != nil {
		return helper.NewError("validate weight context", err)
	}

	var ttl time.Duration
	if weightContext.ExpiresAt != nil {
		ttl = time.Until(*weightContext.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	key := contextKey(weightContext.UserID, weightContext.Engine, weightContext.Label)
	err = s.client.Set(ctx, key, weightContext.Multiplier, ttl).Err()
	if err != nil {
		return helper.NewError("set weight context", err)
	}

	s.log.Info("Stored weight context",
		slog.String("user_id", weightContext.UserID.String()),
		slog.String("engine", string(weightContext.Engine)),
		slog.String("label", weightContext.Label),
		slog.Float64("multiplier", weightContext.Multiplier),
	)

	return nil
}

// PutStarBoost writes the star boost context for an engine, refreshing
// the 24h expiry if it already exists
func (s *Store) PutStarBoost(ctx context.Context, userID uuid.UUID, engine model.ConnectionType) error {
	expiresAt := time.Now().Add(model.StarContextTTL)
	return s.PutContext(ctx, &model.WeightContext{
		Label:      "starred",
		UserID:     userID,
		Engine:     engine,
		Multiplier: model.StarMultiplier,
		ExpiresAt:  &expiresAt,
	})
}

// DeleteContext removes a weight context before its expiry
func (s *Store) DeleteContext(ctx context.Context, userID uuid.UUID, engine model.ConnectionType, label string) error {
	err := s.client.Del(ctx, contextKey(userID, engine, label)).Err()
	if err != nil {
		return helper.NewError("delete weight context", err)
	}
	return nil
}

// MultipliersFor returns the active context multiplier per engine for
// a user. When several contexts target the same engine the strongest
// one wins. Engines without an active context are simply absent.
func (s *Store) MultipliersFor(ctx context.Context, userID uuid.UUID) (map[model.ConnectionType]float64, error) {
	multipliers := make(map[model.ConnectionType]float64)

	iter := s.client.Scan(ctx, 0, contextPattern(userID), 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		value, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			// Expired between scan and get
			continue
		}
		if err != nil {
			return nil, helper.NewError("get weight context", err)
		}

		multiplier, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, helper.NewError("parse multiplier", err)
		}

		engine := engineFromKey(key)
		if engine == "" {
			continue
		}

		if existing, ok := multipliers[engine]; !ok || multiplier > existing {
			multipliers[engine] = multiplier
		}
	}

	err := iter.Err()
	if err != nil {
		return nil, helper.NewError("scan weight contexts", err)
	}

	return multipliers, nil
}

// engineFromKey extracts the engine segment of a context key
func engineFromKey(key string) model.ConnectionType {
	// weaver:context:<user>:<engine>:<label>
	segments := 0
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] != ':' {
			continue
		}
		segments++
		if segments == 3 {
			start = i + 1
		}
		if segments == 4 {
			return model.ConnectionType(key[start:i])
		}
	}
	return ""
}
