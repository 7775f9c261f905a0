// Package experiment runs the price-modeling study: three cross-validated
// hyperparameter searches over two model families and two feature variants,
// compared by mean MAE, with the winner scored once on a held-out partition.
package experiment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/YuminosukeSato/priceml/dataset"
	"github.com/YuminosukeSato/priceml/ensemble"
	"github.com/YuminosukeSato/priceml/linear"
	"github.com/YuminosukeSato/priceml/modelselection"
	"github.com/YuminosukeSato/priceml/pipeline"
	"github.com/YuminosukeSato/priceml/pkg/errors"
	"github.com/YuminosukeSato/priceml/pkg/log"
	"github.com/YuminosukeSato/priceml/preprocessing"
)

// Experiment labels, in run order.
const (
	LabelRidgeNumeric = "ridge/numeric"
	LabelGBDTNumeric  = "gbdt/numeric"
	LabelRidgeEncoded = "ridge/numeric+encoded"
)

// Record is one row of the comparison: an experiment label with its
// cross-validated mean MAE and the fold standard deviation.
type Record struct {
	Label   string
	MeanMAE float64
	StdMAE  float64
}

// Comparison is a set of records ordered ascending by mean MAE. The sort is
// stable, so equal scores keep their run order.
type Comparison struct {
	Records []Record
}

// NewComparison sorts the records ascending by mean MAE.
func NewComparison(records ...Record) Comparison {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MeanMAE < sorted[j].MeanMAE
	})
	return Comparison{Records: sorted}
}

// Best returns the lowest-MAE record.
func (c Comparison) Best() Record {
	return c.Records[0]
}

// Table renders the comparison as an aligned text table.
func (c Comparison) Table() string {
	width := len("experiment")
	for _, r := range c.Records {
		if len(r.Label) > width {
			width = len(r.Label)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %12s  %12s\n", width, "experiment", "mean CV MAE", "std")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", width+28))
	for _, r := range c.Records {
		fmt.Fprintf(&b, "%-*s  %12.2f  %12.2f\n", width, r.Label, r.MeanMAE, r.StdMAE)
	}
	return b.String()
}

// Config carries everything a run needs. Zero values are filled in by
// DefaultConfig; Run validates the rest.
type Config struct {
	DataPath     string
	MissingToken string
	Target       string

	Seed         int
	TestFraction float64
	Folds        int

	// Ridge grid.
	Alphas []float64

	// Randomized GBDT search. TreeCount stays fixed across trials.
	Trials           int
	TreeCount        int
	LearningRates    []float64
	DepthLow         int
	DepthHigh        int
	MinLeafLow       int
	MinLeafHigh      int
	FeatureFractions []float64
}

// DefaultConfig mirrors the study's fixed constants: seed 42, a 33% held-out
// partition, 5 folds, the seven-point alpha sweep, and a 20-trial randomized
// search over the boosting parameters with 100 trees.
func DefaultConfig(dataPath string) Config {
	return Config{
		DataPath:         dataPath,
		MissingToken:     "?",
		Target:           "price",
		Seed:             42,
		TestFraction:     0.33,
		Folds:            5,
		Alphas:           []float64{10, 1, 0.1, 0.01, 0.001, 0.0001, 0},
		Trials:           20,
		TreeCount:        100,
		LearningRates:    []float64{0.05, 0.1, 0.2},
		DepthLow:         2,
		DepthHigh:        5,
		MinLeafLow:       1,
		MinLeafHigh:      10,
		FeatureFractions: []float64{0.5, 0.75, 1.0},
	}
}

// ExperimentResult pairs a record with the full search behind it.
type ExperimentResult struct {
	Record Record
	Search *modelselection.SearchResult
}

// Result is the outcome of a full run.
type Result struct {
	MissingCounts map[string]int
	RowsLoaded    int
	RowsModeled   int

	Experiments []ExperimentResult
	Comparison  Comparison

	// ChosenLabel is the winning experiment; HeldOutMAE is its single
	// evaluation on the untouched held-out partition.
	ChosenLabel  string
	ChosenParams map[string]interface{}
	HeldOutMAE   float64
}

// Run loads the table, drops rows without a target, builds both feature
// variants, splits each with the shared seed, runs the three searches on the
// training partitions, and evaluates the winner exactly once on its held-out
// partition.
func Run(cfg Config) (*Result, error) {
	logger := log.GetLoggerWithName("experiment")

	tbl, err := dataset.Load(cfg.DataPath,
		dataset.WithMissingToken(cfg.MissingToken),
		dataset.WithTarget(cfg.Target),
	)
	if err != nil {
		return nil, err
	}
	counts := tbl.MissingCounts()
	rowsLoaded := tbl.NRows()

	clean, err := tbl.DropMissingTarget()
	if err != nil {
		return nil, err
	}
	logger.Info("table prepared", "rows", clean.NRows(), "dropped", rowsLoaded-clean.NRows())

	numeric, err := clean.NumericFeatures()
	if err != nil {
		return nil, err
	}
	encoded, err := clean.EncodedFeatures()
	if err != nil {
		return nil, err
	}

	trainNum, testNum, err := dataset.TrainTestSplit(numeric, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	trainEnc, testEnc, err := dataset.TrainTestSplit(encoded, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}

	kf := modelselection.NewKFold(cfg.Folds, true, cfg.Seed)
	alphaGrid := []modelselection.Param{
		modelselection.NewFloatChoice("alpha", cfg.Alphas...),
	}

	runs := []struct {
		label string
		test  *dataset.FeatureSet
		fit   func() (*modelselection.SearchResult, error)
	}{
		{
			label: LabelRidgeNumeric,
			test:  testNum,
			fit: func() (*modelselection.SearchResult, error) {
				p, err := ridgePipeline(LabelRidgeNumeric)
				if err != nil {
					return nil, err
				}
				return modelselection.NewGridSearchCV(p, alphaGrid, kf).Fit(trainNum.X, trainNum.Y)
			},
		},
		{
			label: LabelGBDTNumeric,
			test:  testNum,
			fit: func() (*modelselection.SearchResult, error) {
				p, err := gbdtPipeline(LabelGBDTNumeric, cfg)
				if err != nil {
					return nil, err
				}
				space := []modelselection.Param{
					modelselection.NewFloatChoice("learning_rate", cfg.LearningRates...),
					modelselection.NewIntRange("max_depth", cfg.DepthLow, cfg.DepthHigh),
					modelselection.NewIntRange("min_samples_leaf", cfg.MinLeafLow, cfg.MinLeafHigh),
					modelselection.NewFloatChoice("max_features", cfg.FeatureFractions...),
				}
				return modelselection.NewRandomizedSearchCV(p, space, kf, cfg.Trials, int64(cfg.Seed)).Fit(trainNum.X, trainNum.Y)
			},
		},
		{
			label: LabelRidgeEncoded,
			test:  testEnc,
			fit: func() (*modelselection.SearchResult, error) {
				p, err := ridgePipeline(LabelRidgeEncoded)
				if err != nil {
					return nil, err
				}
				return modelselection.NewGridSearchCV(p, alphaGrid, kf).Fit(trainEnc.X, trainEnc.Y)
			},
		},
	}

	result := &Result{
		MissingCounts: counts,
		RowsLoaded:    rowsLoaded,
		RowsModeled:   clean.NRows(),
	}
	records := make([]Record, 0, len(runs))
	searchByLabel := make(map[string]*modelselection.SearchResult, len(runs))
	testByLabel := make(map[string]*dataset.FeatureSet, len(runs))

	for _, r := range runs {
		search, err := r.fit()
		if err != nil {
			return nil, errors.Wrapf(err, "experiment %q", r.label)
		}
		rec := Record{
			Label:   r.label,
			MeanMAE: search.BestMeanMAE(),
			StdMAE:  search.BestStdMAE(),
		}
		result.Experiments = append(result.Experiments, ExperimentResult{Record: rec, Search: search})
		records = append(records, rec)
		searchByLabel[r.label] = search
		testByLabel[r.label] = r.test
		logger.Info("experiment finished",
			"label", r.label,
			"mean_cv_mae", rec.MeanMAE,
			"std_cv_mae", rec.StdMAE,
			"params", search.BestParams())
	}

	result.Comparison = NewComparison(records...)
	winner := result.Comparison.Best()
	result.ChosenLabel = winner.Label
	result.ChosenParams = searchByLabel[winner.Label].BestParams()

	// The held-out partition is touched exactly once, by the winner.
	test := testByLabel[winner.Label]
	mae, err := searchByLabel[winner.Label].Best.MAE(test.X, test.Y)
	if err != nil {
		return nil, errors.Wrapf(err, "held-out evaluation of %q", winner.Label)
	}
	result.HeldOutMAE = mae
	logger.Info("held-out evaluation", "label", winner.Label, "mae", mae)

	return result, nil
}

func ridgePipeline(label string) (*pipeline.Pipeline, error) {
	return pipeline.New(label, linear.NewRidge(1.0),
		pipeline.Step{Name: "impute", Transformer: preprocessing.NewSimpleImputer()},
		pipeline.Step{Name: "scale", Transformer: preprocessing.NewStandardScaler()},
	)
}

func gbdtPipeline(label string, cfg Config) (*pipeline.Pipeline, error) {
	gbr := ensemble.NewGradientBoostingRegressor()
	gbr.NEstimators = cfg.TreeCount
	gbr.RandomState = cfg.Seed
	return pipeline.New(label, gbr,
		pipeline.Step{Name: "impute", Transformer: preprocessing.NewSimpleImputer()},
	)
}
