package ranking

import (
	"math"

	"github.com/siherrmann/weaver/model"
)

const (
	// AccuracyFloor is the cross-validated accuracy a personal model
	// must clear to be used at all
	AccuracyFloor = 0.7
	// ModelBlendRatio is the share of the final score contributed by
	// the personal model when one is active
	ModelBlendRatio = 0.3
)

// Scorer computes the final score of a connection from its raw
// strength, the user's engine weight and the active context multiplier
type Scorer interface {
	Score(connection *model.Connection, weights *model.WeightConfig, multipliers map[model.ConnectionType]float64) float64
}

// WeightedScorer is the default scoring strategy:
// strength × weight[engine] × context multiplier
type WeightedScorer struct{}

// Score computes the weighted score of a connection
func (s WeightedScorer) Score(connection *model.Connection, weights *model.WeightConfig, multipliers map[model.ConnectionType]float64) float64 {
	multiplier := 1.0
	if m, ok := multipliers[connection.ConnectionType]; ok {
		multiplier = m
	}
	return connection.Strength * weights.WeightFor(connection.ConnectionType) * multiplier
}

// BlendedScorer mixes a personal model's prediction into the weighted
// score at a fixed conservative ratio. The model never replaces the
// weighted score outright.
type BlendedScorer struct {
	weighted   WeightedScorer
	parameters model.ModelParameters
	ratio      float64
}

// NewBlendedScorer creates a scorer blending the given model at the
// given ratio
func NewBlendedScorer(personalModel *model.PersonalModel, ratio float64) *BlendedScorer {
	return &BlendedScorer{
		parameters: personalModel.Parameters,
		ratio:      ratio,
	}
}

// Score blends the model prediction with the weighted score
func (s *BlendedScorer) Score(connection *model.Connection, weights *model.WeightConfig, multipliers map[model.ConnectionType]float64) float64 {
	weighted := s.weighted.Score(connection, weights, multipliers)
	prediction := Predict(s.parameters, connection.ConnectionType, connection.Strength)
	return (1-s.ratio)*weighted + s.ratio*prediction
}

// Predict returns the logistic model's acceptance probability for a
// connection of the given engine and strength
func Predict(parameters model.ModelParameters, engine model.ConnectionType, strength float64) float64 {
	z := parameters.Bias + parameters.EngineWeights[engine] + parameters.StrengthWeight*strength
	return 1 / (1 + math.Exp(-z))
}

// ScorerFor picks the scoring strategy for a user. A missing model or
// one below the accuracy floor means pure weighted scoring, the check
// happens here at load time instead of inside the ranking loop.
func ScorerFor(personalModel *model.PersonalModel) Scorer {
	if personalModel == nil || personalModel.Accuracy < AccuracyFloor {
		return WeightedScorer{}
	}
	return NewBlendedScorer(personalModel, ModelBlendRatio)
}
