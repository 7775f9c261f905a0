package ensemble

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func makeRegressionData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i) / float64(n)
		x1 := float64(i%7) / 7.0
		x2 := float64(i%3) / 3.0
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		X.Set(i, 2, x2)
		y.Set(i, 0, 3.0*x0+math.Sin(6*x1)+0.5*x2)
	}
	return X, y
}

func TestGradientBoostingFitReducesError(t *testing.T) {
	X, y := makeRegressionData(200)

	gbr := NewGradientBoostingRegressor()
	require.NoError(t, gbr.Fit(X, y))
	assert.Equal(t, 100, gbr.NTrees())

	pred, err := gbr.Predict(X)
	require.NoError(t, err)

	var sse, tss, mean float64
	rows, _ := y.Dims()
	for i := 0; i < rows; i++ {
		mean += y.At(i, 0)
	}
	mean /= float64(rows)
	for i := 0; i < rows; i++ {
		d := y.At(i, 0) - pred.At(i, 0)
		sse += d * d
		m := y.At(i, 0) - mean
		tss += m * m
	}
	// The ensemble must explain most of the training variance.
	assert.Less(t, sse, 0.1*tss)
}

func TestGradientBoostingDeterministicForSeed(t *testing.T) {
	X, y := makeRegressionData(120)

	fit := func(seed int) []float64 {
		gbr := NewGradientBoostingRegressor()
		gbr.MaxFeatures = 0.5
		gbr.RandomState = seed
		require.NoError(t, gbr.Fit(X, y))
		pred, err := gbr.Predict(X)
		require.NoError(t, err)
		out := make([]float64, 0, 120)
		for i := 0; i < 120; i++ {
			out = append(out, pred.At(i, 0))
		}
		return out
	}

	first := fit(7)
	second := fit(7)
	assert.Equal(t, first, second, "same seed must reproduce predictions exactly")
}

func TestGradientBoostingMinSamplesLeaf(t *testing.T) {
	X, y := makeRegressionData(60)

	gbr := NewGradientBoostingRegressor()
	gbr.MinSamplesLeaf = 30
	gbr.NEstimators = 5
	require.NoError(t, gbr.Fit(X, y))

	// No split can satisfy two leaves of 30 on 60 rows beyond the root split,
	// so every tree stays tiny.
	for _, tree := range gbr.trees {
		assert.LessOrEqual(t, tree.numLeaves(), 2)
	}
}

func TestGradientBoostingRejectsNaN(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, math.NaN(), 3, 4})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	gbr := NewGradientBoostingRegressor()
	assert.Error(t, gbr.Fit(X, y), "NaN features must be imputed before fitting")
}

func TestGradientBoostingValidation(t *testing.T) {
	X, y := makeRegressionData(20)

	gbr := NewGradientBoostingRegressor()
	_, err := gbr.Predict(X)
	assert.Error(t, err, "predict before fit must fail")

	gbr.LearningRate = 0
	assert.Error(t, gbr.Fit(X, y))

	gbr = NewGradientBoostingRegressor()
	gbr.MaxFeatures = 1.5
	assert.Error(t, gbr.Fit(X, y))
}

func TestGradientBoostingSetParams(t *testing.T) {
	gbr := NewGradientBoostingRegressor()
	require.NoError(t, gbr.SetParams(map[string]interface{}{
		"learning_rate":    0.05,
		"max_depth":        5,
		"min_samples_leaf": 4,
		"max_features":     0.75,
	}))
	assert.Equal(t, 0.05, gbr.LearningRate)
	assert.Equal(t, 5, gbr.MaxDepth)
	assert.Equal(t, 4, gbr.MinSamplesLeaf)
	assert.Equal(t, 0.75, gbr.MaxFeatures)

	assert.Error(t, gbr.SetParams(map[string]interface{}{"num_leaves": 31}))
}

func TestGradientBoostingClone(t *testing.T) {
	gbr := NewGradientBoostingRegressor()
	gbr.MaxDepth = 7
	X, y := makeRegressionData(30)
	require.NoError(t, gbr.Fit(X, y))

	clone := gbr.Clone().(*GradientBoostingRegressor)
	assert.Equal(t, 7, clone.MaxDepth)
	_, err := clone.Predict(X)
	assert.Error(t, err, "clone must be unfitted")
}
