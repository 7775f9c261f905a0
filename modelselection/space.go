package modelselection

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/priceml/pkg/errors"
)

// Param describes one hyperparameter dimension of a search space. Grid
// search walks Enumerate; randomized search draws with Sample.
type Param interface {
	// Name is the hyperparameter key passed to the pipeline's SetParams.
	Name() string

	// Enumerate lists every value in declaration order.
	Enumerate() []interface{}

	// Sample draws one value using the shared search source.
	Sample(r *rand.Rand) interface{}
}

// Choice is a finite set of explicit values.
type Choice struct {
	Key    string
	Values []interface{}
}

// NewChoice builds a Choice parameter.
func NewChoice(key string, values ...interface{}) Choice {
	return Choice{Key: key, Values: values}
}

// NewFloatChoice builds a Choice over float64 values.
func NewFloatChoice(key string, values ...float64) Choice {
	vs := make([]interface{}, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Choice{Key: key, Values: vs}
}

func (c Choice) Name() string { return c.Key }

func (c Choice) Enumerate() []interface{} { return c.Values }

func (c Choice) Sample(r *rand.Rand) interface{} {
	return c.Values[r.IntN(len(c.Values))]
}

// IntRange is the inclusive integer interval [Low, High].
type IntRange struct {
	Key       string
	Low, High int
}

// NewIntRange builds an IntRange parameter.
func NewIntRange(key string, low, high int) IntRange {
	return IntRange{Key: key, Low: low, High: high}
}

func (ir IntRange) Name() string { return ir.Key }

func (ir IntRange) Enumerate() []interface{} {
	vs := make([]interface{}, 0, ir.High-ir.Low+1)
	for v := ir.Low; v <= ir.High; v++ {
		vs = append(vs, v)
	}
	return vs
}

func (ir IntRange) Sample(r *rand.Rand) interface{} {
	return ir.Low + r.IntN(ir.High-ir.Low+1)
}

// validateSpace rejects empty dimensions before any search begins.
func validateSpace(params []Param) error {
	if len(params) == 0 {
		return errors.Wrap(errors.ErrEmptySearchSpace, "no parameters declared")
	}
	for _, p := range params {
		if len(p.Enumerate()) == 0 {
			return errors.Wrapf(errors.ErrEmptySearchSpace, "parameter %q has no values", p.Name())
		}
	}
	return nil
}

// enumerateGrid expands the cartesian product of all dimensions in
// declaration order, with the last dimension varying fastest.
func enumerateGrid(params []Param) []map[string]interface{} {
	grid := []map[string]interface{}{{}}
	for _, p := range params {
		values := p.Enumerate()
		next := make([]map[string]interface{}, 0, len(grid)*len(values))
		for _, base := range grid {
			for _, v := range values {
				candidate := make(map[string]interface{}, len(base)+1)
				for k, bv := range base {
					candidate[k] = bv
				}
				candidate[p.Name()] = v
				next = append(next, candidate)
			}
		}
		grid = next
	}
	return grid
}
