// Package pipeline chains preprocessing transformers with a final regressor
// so that every refit learns its statistics from the data it is given and
// nothing else.
package pipeline

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/priceml/core/model"
	"github.com/YuminosukeSato/priceml/metrics"
	"github.com/YuminosukeSato/priceml/pkg/errors"
	"github.com/YuminosukeSato/priceml/pkg/log"
)

// Transformer is a preprocessing step that can be deep-copied into an
// unfitted state. Cloning is what keeps cross-validation folds independent.
type Transformer interface {
	model.Transformer
	Clone() model.Transformer
}

// Estimator is the final stage of a pipeline: a regressor whose
// hyperparameters can be read, replaced, and cloned for search.
type Estimator interface {
	model.Regressor
	model.ParameterGetter
	model.ParameterSetter
	Clone() model.Regressor
}

// Step is a named transformer stage.
type Step struct {
	Name        string
	Transformer Transformer
}

// Pipeline applies its steps in order during Fit and Predict. Fit runs
// FitTransform on every step so downstream stages see transformed data;
// Predict runs Transform only, reusing the fitted statistics.
type Pipeline struct {
	model.BaseEstimator

	name      string
	steps     []Step
	estimator Estimator

	logger log.Logger
}

// New builds a pipeline from preprocessing steps and a final estimator.
// Step names must be unique and non-empty.
func New(name string, estimator Estimator, steps ...Step) (*Pipeline, error) {
	if estimator == nil {
		return nil, errors.NewValidationError("estimator", "must not be nil", nil)
	}
	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if s.Name == "" {
			return nil, errors.NewValidationError("step name", "must not be empty", "")
		}
		if s.Transformer == nil {
			return nil, errors.NewValidationError(s.Name, "transformer must not be nil", nil)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, errors.NewValidationError(s.Name, "duplicate step name", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return &Pipeline{
		name:      name,
		steps:     steps,
		estimator: estimator,
		logger:    log.GetLoggerWithName("pipeline"),
	}, nil
}

// Name returns the label the pipeline was created with.
func (p *Pipeline) Name() string { return p.name }

// Fit learns every step from X in order, then fits the estimator on the
// fully transformed data.
func (p *Pipeline) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "pipeline.Fit")

	current := X
	for _, s := range p.steps {
		current, err = s.Transformer.FitTransform(current)
		if err != nil {
			return errors.Wrapf(err, "pipeline %q: step %q", p.name, s.Name)
		}
	}
	if err := p.estimator.Fit(current, y); err != nil {
		return errors.Wrapf(err, "pipeline %q: estimator", p.name)
	}

	p.SetFitted()
	rows, _ := X.Dims()
	p.logger.Debug("pipeline fitted", "name", p.name, "steps", len(p.steps), "rows", rows)
	return nil
}

// Predict transforms X through the fitted steps and delegates to the
// estimator.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError(p.String(), "Predict")
	}
	current := X
	var err error
	for _, s := range p.steps {
		current, err = s.Transformer.Transform(current)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline %q: step %q", p.name, s.Name)
		}
	}
	return p.estimator.Predict(current)
}

// Score returns the estimator's R² on transformed X.
func (p *Pipeline) Score(X, y mat.Matrix) (float64, error) {
	if !p.IsFitted() {
		return 0, errors.NewNotFittedError(p.String(), "Score")
	}
	current := X
	var err error
	for _, s := range p.steps {
		current, err = s.Transformer.Transform(current)
		if err != nil {
			return 0, errors.Wrapf(err, "pipeline %q: step %q", p.name, s.Name)
		}
	}
	return p.estimator.Score(current, y)
}

// MAE predicts X and returns the mean absolute error against y.
func (p *Pipeline) MAE(X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.MAEMatrix(y, pred)
}

// GetParams exposes the estimator's hyperparameters.
func (p *Pipeline) GetParams() map[string]interface{} {
	return p.estimator.GetParams()
}

// SetParams forwards hyperparameters to the estimator. The pipeline must be
// refitted afterwards.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	if err := p.estimator.SetParams(params); err != nil {
		return err
	}
	p.Reset()
	return nil
}

// Clone returns an unfitted deep copy: every step and the estimator are
// cloned, so fitting the copy never touches the original's statistics.
func (p *Pipeline) Clone() (*Pipeline, error) {
	est, ok := p.estimator.Clone().(Estimator)
	if !ok {
		return nil, errors.NewValidationError("estimator", "clone does not expose hyperparameters", nil)
	}
	steps := make([]Step, len(p.steps))
	for i, s := range p.steps {
		tr, ok := s.Transformer.Clone().(Transformer)
		if !ok {
			return nil, errors.NewValidationError(s.Name, "clone is not re-cloneable", nil)
		}
		steps[i] = Step{Name: s.Name, Transformer: tr}
	}
	return &Pipeline{
		name:      p.name,
		steps:     steps,
		estimator: est,
		logger:    p.logger,
	}, nil
}

// String describes the pipeline as "name(step1 -> step2 -> estimator)".
func (p *Pipeline) String() string {
	parts := make([]string, 0, len(p.steps)+1)
	for _, s := range p.steps {
		parts = append(parts, s.Name)
	}
	parts = append(parts, fmt.Sprintf("%v", p.estimator))
	return fmt.Sprintf("%s(%s)", p.name, strings.Join(parts, " -> "))
}
