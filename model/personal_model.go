package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/helper"
)

// ModelTypeLogistic is the only model type currently trained
const ModelTypeLogistic = "logistic_regression"

// ModelParameters holds the learned coefficients of a personal model.
// Stored as JSONB and replaced wholesale on retraining.
type ModelParameters struct {
	Bias           float64                    `json:"bias"`
	EngineWeights  map[ConnectionType]float64 `json:"engine_weights"`
	StrengthWeight float64                    `json:"strength_weight"`
}

// Value implements the driver.Valuer interface for database storage
func (p ModelParameters) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for database retrieval
func (p *ModelParameters) Scan(value interface{}) error {
	if value == nil {
		*p = ModelParameters{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}
	return json.Unmarshal(b, p)
}

// TrainingSample is one labeled example for personal model training,
// a validated or rejected connection with its engine and raw strength
type TrainingSample struct {
	Engine    ConnectionType `json:"engine"`
	Strength  float64        `json:"strength"`
	Validated bool           `json:"validated"`
}

// PersonalModel is an optional learned classifier blended into ranking
// once it clears the accuracy floor. Replaced wholesale on retraining,
// never partially updated.
type PersonalModel struct {
	UserID      uuid.UUID       `json:"user_id"`
	ModelType   string          `json:"model_type"`
	Parameters  ModelParameters `json:"parameters"`
	Accuracy    float64         `json:"accuracy"`
	SampleCount int             `json:"sample_count"`
	TrainedAt   time.Time       `json:"trained_at"`
}
