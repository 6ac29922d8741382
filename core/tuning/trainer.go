package tuning

import (
	"github.com/siherrmann/weaver/core/ranking"
	"github.com/siherrmann/weaver/model"
)

const (
	trainingEpochs = 300
	learningRate   = 0.1
	crossFolds     = 5
)

// Train fits a logistic regression over engine one-hot features plus
// raw strength and reports its k-fold cross-validated accuracy. The
// returned parameters are fit on the full sample set, the accuracy on
// held-out folds only.
func Train(samples []*model.TrainingSample) (model.ModelParameters, float64) {
	accuracy := crossValidate(samples, crossFolds)
	parameters := fit(samples)
	return parameters, accuracy
}

// fit runs batch gradient descent on the full sample set
func fit(samples []*model.TrainingSample) model.ModelParameters {
	parameters := model.ModelParameters{
		EngineWeights: make(map[model.ConnectionType]float64),
	}
	if len(samples) == 0 {
		return parameters
	}

	for epoch := 0; epoch < trainingEpochs; epoch++ {
		var biasGradient float64
		var strengthGradient float64
		engineGradients := make(map[model.ConnectionType]float64)

		for _, sample := range samples {
			predicted := ranking.Predict(parameters, sample.Engine, sample.Strength)
			label := 0.0
			if sample.Validated {
				label = 1.0
			}
			residual := predicted - label

			biasGradient += residual
			strengthGradient += residual * sample.Strength
			engineGradients[sample.Engine] += residual
		}

		scale := learningRate / float64(len(samples))
		parameters.Bias -= scale * biasGradient
		parameters.StrengthWeight -= scale * strengthGradient
		for engine, gradient := range engineGradients {
			parameters.EngineWeights[engine] -= scale * gradient
		}
	}

	return parameters
}

// crossValidate splits the samples into k interleaved folds, trains on
// k-1 and scores the held-out fold, and averages the fold accuracies.
// The interleaved split keeps the chronologically ordered input from
// producing folds of a single label.
func crossValidate(samples []*model.TrainingSample, folds int) float64 {
	if len(samples) < folds {
		return 0
	}

	var total float64
	for fold := 0; fold < folds; fold++ {
		var train, held []*model.TrainingSample
		for i, sample := range samples {
			if i%folds == fold {
				held = append(held, sample)
			} else {
				train = append(train, sample)
			}
		}

		parameters := fit(train)

		correct := 0
		for _, sample := range held {
			predicted := ranking.Predict(parameters, sample.Engine, sample.Strength) >= 0.5
			if predicted == sample.Validated {
				correct++
			}
		}
		total += float64(correct) / float64(len(held))
	}

	return total / float64(folds)
}
