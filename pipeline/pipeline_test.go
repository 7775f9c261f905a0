package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/priceml/linear"
	"github.com/YuminosukeSato/priceml/preprocessing"
)

func newRidgePipeline(t *testing.T, alpha float64) *Pipeline {
	t.Helper()
	p, err := New("ridge", linear.NewRidge(alpha),
		Step{Name: "impute", Transformer: preprocessing.NewSimpleImputer()},
		Step{Name: "scale", Transformer: preprocessing.NewStandardScaler()},
	)
	require.NoError(t, err)
	return p
}

// trainingData returns a linear y = 3*x0 - 2*x1 + 5 design with a few
// missing cells for the imputer to fill.
func trainingData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		1, 10,
		2, 9,
		3, math.NaN(),
		4, 7,
		5, 6,
		math.NaN(), 5,
		7, 4,
		8, 3,
	})
	y := mat.NewDense(8, 1, nil)
	for i := 0; i < 8; i++ {
		x0 := X.At(i, 0)
		x1 := X.At(i, 1)
		if math.IsNaN(x0) {
			x0 = 4 // matches the column median the imputer will learn
		}
		if math.IsNaN(x1) {
			x1 = 6
		}
		y.Set(i, 0, 3*x0-2*x1+5)
	}
	return X, y
}

func TestPipelineFitPredict(t *testing.T) {
	p := newRidgePipeline(t, 0)
	X, y := trainingData()

	require.NoError(t, p.Fit(X, y))
	assert.True(t, p.IsFitted())

	pred, err := p.Predict(X)
	require.NoError(t, err)

	mae, err := p.MAE(X, y)
	require.NoError(t, err)
	assert.Less(t, mae, 1e-6, "unpenalized ridge should reproduce a linear target")

	rows, cols := pred.Dims()
	assert.Equal(t, 8, rows)
	assert.Equal(t, 1, cols)
}

func TestPipelinePredictBeforeFit(t *testing.T) {
	p := newRidgePipeline(t, 1.0)
	X, _ := trainingData()

	_, err := p.Predict(X)
	assert.Error(t, err)
	_, err = p.Score(X, mat.NewDense(8, 1, nil))
	assert.Error(t, err)
}

func TestPipelineCloneIsIndependent(t *testing.T) {
	p := newRidgePipeline(t, 0.1)
	X, y := trainingData()
	require.NoError(t, p.Fit(X, y))

	before, err := p.Predict(X)
	require.NoError(t, err)

	clone, err := p.Clone()
	require.NoError(t, err)
	assert.False(t, clone.IsFitted(), "clone must start unfitted")

	// Fit the clone on shifted data; the original must be untouched.
	shifted := mat.NewDense(8, 2, nil)
	shifted.Scale(10, denseOf(X))
	require.NoError(t, clone.Fit(shifted, y))

	after, err := p.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(before, after, 1e-12),
		"fitting a clone must not change the original's statistics")
}

func TestHeldOutRowsDoNotAffectFittedStatistics(t *testing.T) {
	p := newRidgePipeline(t, 0.01)
	X, y := trainingData()
	require.NoError(t, p.Fit(X, y))

	heldOut := mat.NewDense(3, 2, []float64{
		2.5, 8,
		math.NaN(), 6,
		6, math.NaN(),
	})
	before, err := p.Predict(heldOut)
	require.NoError(t, err)

	// Perturbing one held-out row must not move the imputation or scaling
	// applied to the others: those statistics were frozen at fit time.
	perturbed := mat.DenseCopyOf(heldOut)
	perturbed.Set(0, 0, 1e6)
	after, err := p.Predict(perturbed)
	require.NoError(t, err)

	for i := 1; i < 3; i++ {
		assert.Equal(t, before.At(i, 0), after.At(i, 0),
			"row %d prediction changed when a different held-out row moved", i)
	}
}

func TestPipelineSetParamsResetsFit(t *testing.T) {
	p := newRidgePipeline(t, 10)
	X, y := trainingData()
	require.NoError(t, p.Fit(X, y))

	require.NoError(t, p.SetParams(map[string]interface{}{"alpha": 0.0}))
	assert.False(t, p.IsFitted(), "changing hyperparameters invalidates the fit")
	assert.Equal(t, 0.0, p.GetParams()["alpha"])
}

func TestPipelineValidation(t *testing.T) {
	imp := preprocessing.NewSimpleImputer()

	_, err := New("bad", nil)
	assert.Error(t, err, "nil estimator")

	_, err = New("bad", linear.NewRidge(1),
		Step{Name: "impute", Transformer: imp},
		Step{Name: "impute", Transformer: preprocessing.NewSimpleImputerWithStrategy(preprocessing.StrategyMedian)},
	)
	assert.Error(t, err, "duplicate step names")

	_, err = New("bad", linear.NewRidge(1), Step{Name: "", Transformer: imp})
	assert.Error(t, err, "empty step name")
}

func denseOf(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		out := mat.NewDense(1, 1, nil)
		out.CloneFrom(d)
		return out
	}
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Copy(m)
	return out
}
