package experiment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparisonSortsAscendingAndStable(t *testing.T) {
	c := NewComparison(
		Record{Label: "a", MeanMAE: 2500, StdMAE: 100},
		Record{Label: "b", MeanMAE: 1800, StdMAE: 90},
		Record{Label: "c", MeanMAE: 1800, StdMAE: 50},
		Record{Label: "d", MeanMAE: 3100, StdMAE: 200},
	)

	labels := make([]string, len(c.Records))
	for i, r := range c.Records {
		labels[i] = r.Label
	}
	// b and c tie on mean MAE; b ran first, so b stays ahead.
	assert.Equal(t, []string{"b", "c", "a", "d"}, labels)
	assert.Equal(t, "b", c.Best().Label)
}

func TestComparisonTable(t *testing.T) {
	c := NewComparison(
		Record{Label: LabelRidgeNumeric, MeanMAE: 2217.32, StdMAE: 412.5},
		Record{Label: LabelGBDTNumeric, MeanMAE: 1948.11, StdMAE: 388.2},
	)
	table := c.Table()

	assert.Contains(t, table, "experiment")
	assert.Contains(t, table, "mean CV MAE")
	assert.Contains(t, table, LabelRidgeNumeric)
	assert.Contains(t, table, "1948.11")

	// Best row renders above the worse one.
	assert.Less(t,
		strings.Index(table, LabelGBDTNumeric),
		strings.Index(table, LabelRidgeNumeric))
}

func toyConfig() Config {
	cfg := DefaultConfig(filepath.Join("testdata", "toy_prices.csv"))
	cfg.Seed = 0
	cfg.Trials = 5
	cfg.TreeCount = 25
	return cfg
}

func TestRunToyTableIsDeterministic(t *testing.T) {
	first, err := Run(toyConfig())
	require.NoError(t, err)
	second, err := Run(toyConfig())
	require.NoError(t, err)

	require.Len(t, first.Experiments, 3)
	assert.Equal(t, 20, first.RowsLoaded)
	assert.Equal(t, 20, first.RowsModeled, "the toy table has no missing targets")

	assert.Equal(t, first.ChosenLabel, second.ChosenLabel)
	assert.Equal(t, first.ChosenParams, second.ChosenParams)
	assert.Equal(t, first.HeldOutMAE, second.HeldOutMAE)
	for i := range first.Experiments {
		assert.Equal(t, first.Experiments[i].Record, second.Experiments[i].Record)
	}
}

func TestRunReportsWinnerConsistently(t *testing.T) {
	res, err := Run(toyConfig())
	require.NoError(t, err)

	assert.Equal(t, res.Comparison.Best().Label, res.ChosenLabel)
	assert.GreaterOrEqual(t, res.HeldOutMAE, 0.0)
	assert.NotEmpty(t, res.ChosenParams)

	// All three labels appear exactly once in the comparison.
	seen := make(map[string]int)
	for _, r := range res.Comparison.Records {
		seen[r.Label]++
	}
	assert.Equal(t, map[string]int{
		LabelRidgeNumeric: 1,
		LabelGBDTNumeric:  1,
		LabelRidgeEncoded: 1,
	}, seen)
}

func TestRunMissingFileFails(t *testing.T) {
	cfg := DefaultConfig(filepath.Join("testdata", "no_such.csv"))
	_, err := Run(cfg)
	assert.Error(t, err)
}

func TestSaveChart(t *testing.T) {
	c := NewComparison(
		Record{Label: LabelRidgeNumeric, MeanMAE: 2200, StdMAE: 400},
		Record{Label: LabelGBDTNumeric, MeanMAE: 1900, StdMAE: 350},
		Record{Label: LabelRidgeEncoded, MeanMAE: 2100, StdMAE: 300},
	)

	path := filepath.Join(t.TempDir(), "comparison.png")
	require.NoError(t, c.SaveChart(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, Comparison{}.SaveChart(path), "empty comparison cannot be plotted")
}
