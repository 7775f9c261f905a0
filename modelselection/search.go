package modelselection

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/priceml/core/parallel"
	"github.com/YuminosukeSato/priceml/pipeline"
	"github.com/YuminosukeSato/priceml/pkg/errors"
	"github.com/YuminosukeSato/priceml/pkg/log"
)

// sequentialCandidateThreshold keeps small searches on one goroutine.
const sequentialCandidateThreshold = 4

// CandidateResult records the cross-validated MAE of one parameter setting.
type CandidateResult struct {
	Params   map[string]interface{}
	FoldMAEs []float64
	MeanMAE  float64
	StdMAE   float64
}

// SearchResult holds every evaluated candidate plus the winner refitted on
// the full training data. Candidates keep their evaluation order; BestIndex
// is the first candidate with the lowest mean MAE.
type SearchResult struct {
	Candidates []CandidateResult
	BestIndex  int
	Best       *pipeline.Pipeline
}

// BestParams returns the winning parameter setting.
func (sr *SearchResult) BestParams() map[string]interface{} {
	return sr.Candidates[sr.BestIndex].Params
}

// BestMeanMAE returns the winning cross-validated mean MAE.
func (sr *SearchResult) BestMeanMAE() float64 {
	return sr.Candidates[sr.BestIndex].MeanMAE
}

// BestStdMAE returns the fold standard deviation of the winner.
func (sr *SearchResult) BestStdMAE() float64 {
	return sr.Candidates[sr.BestIndex].StdMAE
}

// GridSearchCV evaluates every combination of the declared parameter values
// with k-fold cross-validation and refits the best setting.
type GridSearchCV struct {
	Base   *pipeline.Pipeline
	Params []Param
	CV     *KFold

	logger log.Logger
}

// NewGridSearchCV builds a grid search over base's hyperparameters.
func NewGridSearchCV(base *pipeline.Pipeline, params []Param, cv *KFold) *GridSearchCV {
	return &GridSearchCV{
		Base:   base,
		Params: params,
		CV:     cv,
		logger: log.GetLoggerWithName("modelselection.grid"),
	}
}

// Fit runs the search on (X, y) and returns every candidate plus the best
// pipeline refitted on all of (X, y).
func (g *GridSearchCV) Fit(X, y mat.Matrix) (*SearchResult, error) {
	if err := validateSpace(g.Params); err != nil {
		return nil, err
	}
	candidates := enumerateGrid(g.Params)
	g.logger.Info("grid search", "candidates", len(candidates), "folds", g.CV.GetNSplits())
	return runSearch(g.Base, candidates, g.CV, X, y, g.logger)
}

// RandomizedSearchCV draws NIter parameter settings from the declared space
// with a seeded source, evaluates each with k-fold cross-validation, and
// refits the best setting. The same seed always visits the same candidates
// in the same order.
type RandomizedSearchCV struct {
	Base   *pipeline.Pipeline
	Params []Param
	CV     *KFold
	NIter  int
	Seed   int64

	logger log.Logger
}

// NewRandomizedSearchCV builds a randomized search with a fixed trial budget.
func NewRandomizedSearchCV(base *pipeline.Pipeline, params []Param, cv *KFold, nIter int, seed int64) *RandomizedSearchCV {
	return &RandomizedSearchCV{
		Base:   base,
		Params: params,
		CV:     cv,
		NIter:  nIter,
		Seed:   seed,
		logger: log.GetLoggerWithName("modelselection.randomized"),
	}
}

// Fit runs the search on (X, y).
func (r *RandomizedSearchCV) Fit(X, y mat.Matrix) (*SearchResult, error) {
	if err := validateSpace(r.Params); err != nil {
		return nil, err
	}
	if r.NIter <= 0 {
		return nil, errors.NewValidationError("n_iter", "must be positive", r.NIter)
	}

	// Every draw comes from one sequential source, so candidate i is fully
	// determined by (seed, i) regardless of how evaluation is scheduled.
	rng := rand.New(rand.NewPCG(uint64(r.Seed), uint64(r.Seed)))
	candidates := make([]map[string]interface{}, r.NIter)
	for i := 0; i < r.NIter; i++ {
		candidate := make(map[string]interface{}, len(r.Params))
		for _, p := range r.Params {
			candidate[p.Name()] = p.Sample(rng)
		}
		candidates[i] = candidate
	}
	r.logger.Info("randomized search", "trials", len(candidates), "folds", r.CV.GetNSplits())
	return runSearch(r.Base, candidates, r.CV, X, y, r.logger)
}

// runSearch cross-validates every candidate, picks the first one with the
// lowest mean MAE, and refits it on the full data.
func runSearch(base *pipeline.Pipeline, candidates []map[string]interface{}, cv *KFold, X, y mat.Matrix, logger log.Logger) (*SearchResult, error) {
	nRows, _ := X.Dims()
	folds, err := cv.Split(nRows)
	if err != nil {
		return nil, err
	}

	results := make([]CandidateResult, len(candidates))
	errs := make([]error, len(candidates))

	// Candidates are independent, so they evaluate in parallel. Results land
	// in their candidate's slot and selection below is a sequential scan, so
	// scheduling never changes the outcome.
	parallel.ParallelizeWithThreshold(len(candidates), sequentialCandidateThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			results[i], errs[i] = evaluateCandidate(base, candidates[i], folds, X, y)
		}
	})
	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "candidate %d", i)
		}
	}

	bestIdx := 0
	for i := 1; i < len(results); i++ {
		if results[i].MeanMAE < results[bestIdx].MeanMAE {
			bestIdx = i
		}
	}

	best, err := base.Clone()
	if err != nil {
		return nil, err
	}
	if err := best.SetParams(results[bestIdx].Params); err != nil {
		return nil, err
	}
	if err := best.Fit(X, y); err != nil {
		return nil, errors.Wrap(err, "refit of best candidate")
	}

	logger.Info("search finished",
		"best_params", results[bestIdx].Params,
		"best_mean_mae", results[bestIdx].MeanMAE,
		"best_std_mae", results[bestIdx].StdMAE)

	return &SearchResult{
		Candidates: results,
		BestIndex:  bestIdx,
		Best:       best,
	}, nil
}

// evaluateCandidate clones the base pipeline once per fold so imputation and
// scaling statistics are learned from that fold's training rows only.
func evaluateCandidate(base *pipeline.Pipeline, params map[string]interface{}, folds []CVFold, X, y mat.Matrix) (CandidateResult, error) {
	result := CandidateResult{
		Params:   params,
		FoldMAEs: make([]float64, len(folds)),
	}

	for f, fold := range folds {
		p, err := base.Clone()
		if err != nil {
			return result, err
		}
		if err := p.SetParams(params); err != nil {
			return result, err
		}

		trainX, trainY := extractRows(X, y, fold.TrainIndices)
		valX, valY := extractRows(X, y, fold.TestIndices)

		if err := p.Fit(trainX, trainY); err != nil {
			return result, errors.Wrapf(err, "fold %d", f)
		}
		mae, err := p.MAE(valX, valY)
		if err != nil {
			return result, errors.Wrapf(err, "fold %d", f)
		}
		result.FoldMAEs[f] = mae
	}

	result.MeanMAE = meanOf(result.FoldMAEs)
	result.StdMAE = stdOf(result.FoldMAEs, result.MeanMAE)
	return result, nil
}

// extractRows copies the selected rows of X and y into new matrices.
func extractRows(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, cols := X.Dims()
	subX := mat.NewDense(len(indices), cols, nil)
	subY := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			subX.Set(i, j, X.At(idx, j))
		}
		subY.Set(i, 0, y.At(idx, 0))
	}
	return subX, subY
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// stdOf is the sample standard deviation with the n-1 denominator.
func stdOf(xs []float64, mean float64) float64 {
	if len(xs) <= 1 {
		return 0
	}
	sumSq := 0.0
	for _, v := range xs {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}
