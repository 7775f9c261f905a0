package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/priceml/core/model"
	"github.com/YuminosukeSato/priceml/pkg/errors"
)

// ImputeStrategy は欠損値の補完戦略
type ImputeStrategy string

const (
	// StrategyMedian は列の中央値で補完する（デフォルト）
	StrategyMedian ImputeStrategy = "median"
	// StrategyMean は列の平均値で補完する
	StrategyMean ImputeStrategy = "mean"
)

// SimpleImputer はNaNで表現された欠損値を列ごとの統計量で補完する。
// 統計量はFitに渡された訓練データの観測値のみから計算される。
type SimpleImputer struct {
	model.BaseEstimator

	// Strategy は補完戦略（median または mean）
	Strategy ImputeStrategy

	// Statistics は各特徴量の補完値
	Statistics []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewSimpleImputer は中央値戦略のSimpleImputerを作成する
func NewSimpleImputer() *SimpleImputer {
	return &SimpleImputer{Strategy: StrategyMedian}
}

// NewSimpleImputerWithStrategy は指定した戦略のSimpleImputerを作成する
func NewSimpleImputerWithStrategy(strategy ImputeStrategy) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit は訓練データの観測値（非NaN）から列ごとの補完統計量を計算する
func (im *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	if im.Strategy != StrategyMedian && im.Strategy != StrategyMean {
		return errors.NewValidationError("strategy", "must be median or mean", string(im.Strategy))
	}

	im.NFeatures = c
	im.Statistics = make([]float64, c)

	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			return errors.NewValueError("SimpleImputer.Fit",
				fmt.Sprintf("column %d has no observed values", j))
		}

		switch im.Strategy {
		case StrategyMean:
			im.Statistics[j] = stat.Mean(observed, nil)
		default:
			im.Statistics[j] = median(observed)
		}
	}

	im.SetFitted()
	return nil
}

// Transform はNaNを学習済みの統計量で置き換える
func (im *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !im.IsFitted() {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}

	r, c := X.Dims()
	if c != im.NFeatures {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", im.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				v = im.Statistics[j]
			}
			result.Set(i, j, v)
		}
	}
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (im *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := im.Fit(X); err != nil {
		return nil, err
	}
	return im.Transform(X)
}

// Clone は同じ戦略を持つ未学習の補完器を返す
func (im *SimpleImputer) Clone() model.Transformer {
	return NewSimpleImputerWithStrategy(im.Strategy)
}

// String は補完器の文字列表現を返す
func (im *SimpleImputer) String() string {
	if !im.IsFitted() {
		return fmt.Sprintf("SimpleImputer(strategy=%s)", im.Strategy)
	}
	return fmt.Sprintf("SimpleImputer(strategy=%s, n_features=%d)", im.Strategy, im.NFeatures)
}

// median は中央値を計算する（偶数個の場合は中央2値の平均）
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
