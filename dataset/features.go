package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/priceml/pkg/errors"
)

// FeatureSet is a model-ready view of a table: a feature matrix, the feature
// names in column order, and the target vector.
type FeatureSet struct {
	Names []string
	X     *mat.Dense
	Y     *mat.Dense // n×1 column vector
}

// NRows returns the number of observations.
func (fs *FeatureSet) NRows() int {
	r, _ := fs.X.Dims()
	return r
}

// NFeatures returns the number of feature columns.
func (fs *FeatureSet) NFeatures() int {
	_, c := fs.X.Dims()
	return c
}

// Subset returns a new FeatureSet holding the given rows, in the given order.
func (fs *FeatureSet) Subset(indices []int) *FeatureSet {
	_, cols := fs.X.Dims()
	X := mat.NewDense(len(indices), cols, nil)
	Y := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			X.Set(i, j, fs.X.At(idx, j))
		}
		Y.Set(i, 0, fs.Y.At(idx, 0))
	}
	return &FeatureSet{Names: fs.Names, X: X, Y: Y}
}

// NumericFeatures derives a feature set restricted to the numeric columns.
// Missing values stay as NaN for a downstream imputer to handle.
func (t *Table) NumericFeatures() (*FeatureSet, error) {
	cols := t.NumericColumns()
	if len(cols) == 0 {
		return nil, errors.NewSchemaError(t.name, "", "no numeric feature columns")
	}

	n := t.df.Nrow()
	X := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		for i, v := range t.df.Col(col).Float() {
			X.Set(i, j, v)
		}
	}

	y, err := t.targetVector()
	if err != nil {
		return nil, err
	}
	return &FeatureSet{Names: cols, X: X, Y: y}, nil
}

// EncodedFeatures derives a feature set with the numeric columns followed by
// one-hot indicators for every categorical column. A categorical column with
// k observed distinct values becomes k indicator columns named "col_value",
// ordered lexicographically for reproducibility; each observation sets
// exactly one indicator per original column. Rows with a missing categorical
// value get all-zero indicators for that column's group.
//
// The vocabulary is closed over this table: encoding is a whole-table
// operation, so the indicator set reflects every row, including ones that a
// later split assigns to the held-out partition.
func (t *Table) EncodedFeatures() (*FeatureSet, error) {
	numericCols := t.NumericColumns()
	categoricalCols := t.CategoricalColumns()
	if len(numericCols) == 0 && len(categoricalCols) == 0 {
		return nil, errors.NewSchemaError(t.name, "", "no feature columns")
	}

	n := t.df.Nrow()

	names := make([]string, 0, len(numericCols))
	names = append(names, numericCols...)

	type group struct {
		column     string
		categories []string
		index      map[string]int
		offset     int
	}
	groups := make([]group, 0, len(categoricalCols))

	width := len(numericCols)
	for _, col := range categoricalCols {
		seen := map[string]bool{}
		for _, rec := range t.df.Col(col).Records() {
			if rec == missingToken {
				continue
			}
			seen[rec] = true
		}

		categories := make([]string, 0, len(seen))
		for cat := range seen {
			categories = append(categories, cat)
		}
		sort.Strings(categories)

		index := make(map[string]int, len(categories))
		for i, cat := range categories {
			index[cat] = i
			names = append(names, col+"_"+cat)
		}
		groups = append(groups, group{column: col, categories: categories, index: index, offset: width})
		width += len(categories)
	}

	X := mat.NewDense(n, width, nil)
	for j, col := range numericCols {
		for i, v := range t.df.Col(col).Float() {
			X.Set(i, j, v)
		}
	}
	for _, g := range groups {
		for i, rec := range t.df.Col(g.column).Records() {
			if rec == missingToken {
				continue
			}
			X.Set(i, g.offset+g.index[rec], 1.0)
		}
	}

	y, err := t.targetVector()
	if err != nil {
		return nil, err
	}
	return &FeatureSet{Names: names, X: X, Y: y}, nil
}

// targetVector extracts the target column as an n×1 matrix. Rows with a
// missing target should have been dropped beforehand.
func (t *Table) targetVector() (*mat.Dense, error) {
	values := t.df.Col(t.target).Float()
	y := mat.NewDense(len(values), 1, nil)
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, errors.NewSchemaError(t.name, t.target,
				"target contains missing values; call DropMissingTarget first")
		}
		y.Set(i, 0, v)
	}
	return y, nil
}
