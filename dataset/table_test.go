package dataset

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSample(t *testing.T) *Table {
	t.Helper()
	tbl, err := Load(filepath.Join("testdata", "automobile_sample.csv"))
	require.NoError(t, err)
	return tbl
}

func TestLoadInfersNumericDespiteSentinel(t *testing.T) {
	tbl := loadSample(t)

	// normalized_losses mixes "?" with integers; the sentinel must be
	// recognized before type inference so the column stays numeric.
	assert.Contains(t, tbl.NumericColumns(), "normalized_losses")
	assert.Contains(t, tbl.CategoricalColumns(), "fuel_system")
	assert.Contains(t, tbl.CategoricalColumns(), "num_doors")
	assert.NotContains(t, tbl.NumericColumns(), "price", "target is not a feature")
}

func TestMissingCounts(t *testing.T) {
	tbl := loadSample(t)

	counts := tbl.MissingCounts()
	assert.Equal(t, 6, counts["normalized_losses"])
	assert.Equal(t, 2, counts["price"])
	assert.Equal(t, 0, counts["curb_weight"])
	assert.Equal(t, 0, counts["fuel_system"])
}

func TestDropMissingTarget(t *testing.T) {
	tbl := loadSample(t)
	require.Equal(t, 15, tbl.NRows())

	clean, err := tbl.DropMissingTarget()
	require.NoError(t, err)
	assert.Equal(t, 13, clean.NRows())
	assert.Equal(t, 0, clean.MissingCounts()["price"])

	// Other missing values survive for the imputer to handle.
	assert.Greater(t, clean.MissingCounts()["normalized_losses"], 0)
}

func TestNumericFeatures(t *testing.T) {
	tbl := loadSample(t)
	clean, err := tbl.DropMissingTarget()
	require.NoError(t, err)

	fs, err := clean.NumericFeatures()
	require.NoError(t, err)

	assert.Equal(t, []string{"symboling", "normalized_losses", "length", "curb_weight", "horsepower"}, fs.Names)
	assert.Equal(t, 13, fs.NRows())
	assert.Equal(t, 5, fs.NFeatures())

	// Missing cells surface as NaN, never as silent zeros.
	nanSeen := false
	for i := 0; i < fs.NRows(); i++ {
		if math.IsNaN(fs.X.At(i, 1)) {
			nanSeen = true
		}
		assert.False(t, math.IsNaN(fs.Y.At(i, 0)), "target must be complete after cleaning")
	}
	assert.True(t, nanSeen, "normalized_losses should contain NaN")
}

func TestEncodedFeaturesOneHot(t *testing.T) {
	tbl := loadSample(t)
	clean, err := tbl.DropMissingTarget()
	require.NoError(t, err)

	fs, err := clean.EncodedFeatures()
	require.NoError(t, err)

	// 5 numeric + fuel_system{2bbl,idi,mpfi} + num_doors{four,two}
	assert.Equal(t, []string{
		"symboling", "normalized_losses", "length", "curb_weight", "horsepower",
		"fuel_system_2bbl", "fuel_system_idi", "fuel_system_mpfi",
		"num_doors_four", "num_doors_two",
	}, fs.Names)

	// Exactly one indicator per group is hot for every observation.
	for i := 0; i < fs.NRows(); i++ {
		fuelSum := fs.X.At(i, 5) + fs.X.At(i, 6) + fs.X.At(i, 7)
		doorSum := fs.X.At(i, 8) + fs.X.At(i, 9)
		assert.Equal(t, 1.0, fuelSum, "row %d fuel_system group", i)
		assert.Equal(t, 1.0, doorSum, "row %d num_doors group", i)
	}
}

func TestLoadMissingTargetColumn(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "automobile_sample.csv"), WithTarget("msrp"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "does_not_exist.csv"))
	assert.Error(t, err)
}
