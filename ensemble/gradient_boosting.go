// Package ensemble implements gradient-boosted regression trees with a
// scikit-learn compatible API.
package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/priceml/core/model"
	"github.com/YuminosukeSato/priceml/metrics"
	"github.com/YuminosukeSato/priceml/pkg/errors"
	"github.com/YuminosukeSato/priceml/pkg/log"
)

// GradientBoostingRegressor fits an additive ensemble of depth-limited
// regression trees on squared-error residuals. Tree splits are scale
// invariant, so no feature scaling step is needed in front of it.
//
// Missing values are not handled natively; impute before fitting.
type GradientBoostingRegressor struct {
	model.BaseEstimator

	// Hyperparameters
	NEstimators     int     // Number of boosting iterations (fixed, not searched)
	LearningRate    float64 // Shrinkage applied to each tree's contribution
	MaxDepth        int     // Maximum tree depth
	MinSamplesLeaf  int     // Minimum number of samples in a leaf
	MaxFeatures     float64 // Fraction of features drawn per tree, in (0, 1]
	RandomState     int     // Seed for feature subsampling
	ShowProgress    bool    // Emit progress logs during training

	// Fitted state
	initScore float64
	trees     []*regressionTree
	nFeatures int
}

// NewGradientBoostingRegressor creates a regressor with scikit-learn default
// hyperparameters.
func NewGradientBoostingRegressor() *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 1,
		MaxFeatures:    1.0,
		RandomState:    42,
	}
}

// Fit trains the boosting ensemble on squared-error residuals.
func (gbr *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows == 0 || cols == 0 {
		return errors.NewModelError("GradientBoostingRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", 1, yCols, 1)
	}
	if err := gbr.validateParams(); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(X.At(i, j)) {
				return errors.NewValueError("GradientBoostingRegressor.Fit",
					fmt.Sprintf("NaN at row %d, column %d: impute missing values first", i, j))
			}
		}
	}

	gbr.nFeatures = cols

	logger := log.GetLoggerWithName("ensemble.gbr")
	if gbr.ShowProgress {
		logger.Info("Training GradientBoostingRegressor",
			"samples", rows,
			"features", cols,
			"n_estimators", gbr.NEstimators,
			"learning_rate", gbr.LearningRate)
	}

	// Initial prediction is the target mean; each tree then fits the
	// negative gradient of the squared error, i.e. the residuals.
	gbr.initScore = 0
	for i := 0; i < rows; i++ {
		gbr.initScore += y.At(i, 0)
	}
	gbr.initScore /= float64(rows)

	residuals := make([]float64, rows)
	current := make([]float64, rows)
	for i := 0; i < rows; i++ {
		current[i] = gbr.initScore
	}

	allRows := make([]int, rows)
	for i := range allRows {
		allRows[i] = i
	}

	rng := rand.New(rand.NewPCG(uint64(gbr.RandomState), uint64(gbr.RandomState)))
	nSubFeatures := int(math.Ceil(gbr.MaxFeatures * float64(cols)))
	if nSubFeatures < 1 {
		nSubFeatures = 1
	}

	gbr.trees = make([]*regressionTree, 0, gbr.NEstimators)
	for iter := 0; iter < gbr.NEstimators; iter++ {
		for i := 0; i < rows; i++ {
			residuals[i] = y.At(i, 0) - current[i]
		}

		featureIdx := sampleFeatures(rng, cols, nSubFeatures)
		tree := fitTree(X, residuals, allRows, featureIdx, gbr.MaxDepth, gbr.MinSamplesLeaf)
		gbr.trees = append(gbr.trees, tree)

		for i := 0; i < rows; i++ {
			current[i] += gbr.LearningRate * tree.predictRow(X, i)
		}

		if gbr.ShowProgress && (iter+1)%50 == 0 {
			var sse float64
			for i := 0; i < rows; i++ {
				d := y.At(i, 0) - current[i]
				sse += d * d
			}
			logger.Info("Boosting progress",
				"iteration", iter+1,
				"train_mse", sse/float64(rows))
		}
	}

	gbr.SetFitted()

	if gbr.ShowProgress {
		logger.Info("Training completed", "trees", len(gbr.trees))
	}
	return nil
}

// Predict returns ensemble predictions for the input samples.
func (gbr *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !gbr.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}

	rows, cols := X.Dims()
	if cols != gbr.nFeatures {
		return nil, errors.NewDimensionError("GradientBoostingRegressor.Predict", gbr.nFeatures, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred := gbr.initScore
		for _, tree := range gbr.trees {
			pred += gbr.LearningRate * tree.predictRow(X, i)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score returns the coefficient of determination R^2 of the prediction.
func (gbr *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !gbr.IsFitted() {
		return 0, errors.NewNotFittedError("GradientBoostingRegressor", "Score")
	}

	predictions, err := gbr.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}
	return metrics.R2Score(yVec, predVec)
}

// NTrees returns the number of fitted trees.
func (gbr *GradientBoostingRegressor) NTrees() int {
	return len(gbr.trees)
}

// GetParams returns the parameters of the regressor.
func (gbr *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     gbr.NEstimators,
		"learning_rate":    gbr.LearningRate,
		"max_depth":        gbr.MaxDepth,
		"min_samples_leaf": gbr.MinSamplesLeaf,
		"max_features":     gbr.MaxFeatures,
		"random_state":     gbr.RandomState,
	}
}

// SetParams sets the parameters of the regressor. Numeric values are coerced,
// so values sampled from integer ranges apply cleanly.
func (gbr *GradientBoostingRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_estimators":
			v, err := cast.ToIntE(value)
			if err != nil {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			gbr.NEstimators = v
		case "learning_rate":
			v, err := cast.ToFloat64E(value)
			if err != nil {
				return errors.NewValidationError(key, "must be a number", value)
			}
			gbr.LearningRate = v
		case "max_depth":
			v, err := cast.ToIntE(value)
			if err != nil {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			gbr.MaxDepth = v
		case "min_samples_leaf":
			v, err := cast.ToIntE(value)
			if err != nil {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			gbr.MinSamplesLeaf = v
		case "max_features":
			v, err := cast.ToFloat64E(value)
			if err != nil {
				return errors.NewValidationError(key, "must be a number", value)
			}
			gbr.MaxFeatures = v
		case "random_state":
			v, err := cast.ToIntE(value)
			if err != nil {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			gbr.RandomState = v
		default:
			return errors.NewValidationError(key, "unknown parameter for GradientBoostingRegressor", value)
		}
	}
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (gbr *GradientBoostingRegressor) Clone() model.Regressor {
	clone := NewGradientBoostingRegressor()
	clone.NEstimators = gbr.NEstimators
	clone.LearningRate = gbr.LearningRate
	clone.MaxDepth = gbr.MaxDepth
	clone.MinSamplesLeaf = gbr.MinSamplesLeaf
	clone.MaxFeatures = gbr.MaxFeatures
	clone.RandomState = gbr.RandomState
	clone.ShowProgress = gbr.ShowProgress
	return clone
}

func (gbr *GradientBoostingRegressor) validateParams() error {
	if gbr.NEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", gbr.NEstimators)
	}
	if gbr.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", gbr.LearningRate)
	}
	if gbr.MaxDepth <= 0 {
		return errors.NewValidationError("max_depth", "must be positive", gbr.MaxDepth)
	}
	if gbr.MinSamplesLeaf <= 0 {
		return errors.NewValidationError("min_samples_leaf", "must be positive", gbr.MinSamplesLeaf)
	}
	if gbr.MaxFeatures <= 0 || gbr.MaxFeatures > 1 {
		return errors.NewValidationError("max_features", "must be in (0, 1]", gbr.MaxFeatures)
	}
	return nil
}

// sampleFeatures draws k distinct feature indices, ascending, so the split
// search scans them in a stable order.
func sampleFeatures(rng *rand.Rand, total, k int) []int {
	if k >= total {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}

	perm := rng.Perm(total)
	chosen := perm[:k]
	// Insertion sort; k is small.
	for i := 1; i < len(chosen); i++ {
		for j := i; j > 0 && chosen[j-1] > chosen[j]; j-- {
			chosen[j-1], chosen[j] = chosen[j], chosen[j-1]
		}
	}
	return chosen
}

// String returns a printable description of the regressor.
func (gbr *GradientBoostingRegressor) String() string {
	return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, max_depth=%d, min_samples_leaf=%d, max_features=%g)",
		gbr.NEstimators, gbr.LearningRate, gbr.MaxDepth, gbr.MinSamplesLeaf, gbr.MaxFeatures)
}
