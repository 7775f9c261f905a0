// Package dataset loads delimited tabular data and derives model-ready
// feature matrices from it.
//
// Missing values are recognized by a configurable sentinel token before type
// inference, so a numeric column containing the sentinel still infers as
// numeric (with NaN at the affected cells) instead of degrading to text.
package dataset

import (
	"encoding/csv"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/priceml/pkg/errors"
	"github.com/YuminosukeSato/priceml/pkg/log"
)

// missingToken is the canonical in-frame representation of a missing value.
// Numeric series parse it as NaN; categorical columns treat it as absent.
const missingToken = "NaN"

// ColumnKind classifies a column for feature derivation.
type ColumnKind int

const (
	// Numeric columns enter the feature matrix directly.
	Numeric ColumnKind = iota
	// Categorical columns are one-hot encoded.
	Categorical
)

// Table wraps a typed dataframe together with the designated target column.
type Table struct {
	df     dataframe.DataFrame
	name   string
	target string
}

type loadConfig struct {
	sentinel string
	target   string
	name     string
}

// Option configures Load.
type Option func(*loadConfig)

// WithMissingToken sets the sentinel token recognized as a missing value.
// Default "?".
func WithMissingToken(token string) Option {
	return func(c *loadConfig) { c.sentinel = token }
}

// WithTarget sets the target column name. Default "price".
func WithTarget(column string) Option {
	return func(c *loadConfig) { c.target = column }
}

// WithName sets a table name used in diagnostics. Defaults to the file path.
func WithName(name string) Option {
	return func(c *loadConfig) { c.name = name }
}

// Load reads a headered CSV file into a Table. Sentinel tokens are rewritten
// to the canonical missing marker before the dataframe infers column types.
func Load(path string, opts ...Option) (*Table, error) {
	cfg := loadConfig{sentinel: "?", target: "price", name: path}
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %q", path)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse dataset %q", path)
	}
	if len(records) < 2 {
		return nil, errors.NewModelError("dataset.Load", "no data rows", errors.ErrEmptyData)
	}

	// Sentinel rewrite happens on the raw records, ahead of type detection.
	for i := 1; i < len(records); i++ {
		for j, cell := range records[i] {
			if cell == cfg.sentinel || cell == "" {
				records[i][j] = missingToken
			}
		}
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "build dataframe from %q", path)
	}

	t, err := FromDataFrame(df, cfg.target, cfg.name)
	if err != nil {
		return nil, err
	}

	log.GetLoggerWithName("dataset").Info("Loaded table",
		"name", cfg.name,
		"rows", df.Nrow(),
		"columns", df.Ncol(),
		"target", cfg.target)
	return t, nil
}

// FromDataFrame wraps an existing dataframe as a Table. The target column
// must exist and be numeric.
func FromDataFrame(df dataframe.DataFrame, target, name string) (*Table, error) {
	if df.Err != nil {
		return nil, errors.WithStack(df.Err)
	}

	found := false
	for _, col := range df.Names() {
		if col == target {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.NewSchemaError(name, target, "target column not found")
	}

	t := &Table{df: df, name: name, target: target}
	if t.kindOf(target) != Numeric {
		return nil, errors.NewSchemaError(name, target, "target column must be numeric")
	}
	return t, nil
}

// Name returns the table's diagnostic name.
func (t *Table) Name() string { return t.name }

// Target returns the target column name.
func (t *Table) Target() string { return t.target }

// NRows returns the number of rows.
func (t *Table) NRows() int { return t.df.Nrow() }

// Columns returns the column names in table order.
func (t *Table) Columns() []string { return t.df.Names() }

// kindOf classifies a column from its inferred series type.
func (t *Table) kindOf(column string) ColumnKind {
	switch t.df.Col(column).Type() {
	case series.Float, series.Int:
		return Numeric
	default:
		return Categorical
	}
}

// NumericColumns returns the numeric feature columns, excluding the target.
func (t *Table) NumericColumns() []string {
	var cols []string
	for _, col := range t.df.Names() {
		if col == t.target {
			continue
		}
		if t.kindOf(col) == Numeric {
			cols = append(cols, col)
		}
	}
	return cols
}

// CategoricalColumns returns the categorical feature columns.
func (t *Table) CategoricalColumns() []string {
	var cols []string
	for _, col := range t.df.Names() {
		if col == t.target {
			continue
		}
		if t.kindOf(col) == Categorical {
			cols = append(cols, col)
		}
	}
	return cols
}

// MissingCounts reports the number of missing values per column, in table
// column order. Columns without missing values are included with a zero count.
func (t *Table) MissingCounts() map[string]int {
	counts := make(map[string]int, t.df.Ncol())
	for _, col := range t.df.Names() {
		n := 0
		for _, rec := range t.df.Col(col).Records() {
			if rec == missingToken {
				n++
			}
		}
		counts[col] = n
	}
	return counts
}

// DropMissingTarget returns a new Table without the rows whose target value
// is missing. The target cannot be imputed, so those rows are unusable.
func (t *Table) DropMissingTarget() (*Table, error) {
	targetCol := t.df.Col(t.target)
	keep := make([]int, 0, t.df.Nrow())
	for i, v := range targetCol.Float() {
		if !math.IsNaN(v) {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		return nil, errors.NewModelError("dataset.DropMissingTarget", "all target values missing", errors.ErrEmptyData)
	}

	sub := t.df.Subset(keep)
	if sub.Err != nil {
		return nil, errors.WithStack(sub.Err)
	}

	dropped := t.df.Nrow() - len(keep)
	if dropped > 0 {
		log.GetLoggerWithName("dataset").Info("Dropped rows with missing target",
			"table", t.name,
			"dropped", dropped,
			"remaining", len(keep))
	}
	return &Table{df: sub, name: t.name, target: t.target}, nil
}
