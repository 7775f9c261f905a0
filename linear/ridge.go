// Package linear はL2正則化付き線形回帰モデルを提供します。
package linear

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/priceml/core/model"
	"github.com/YuminosukeSato/priceml/metrics"
	"github.com/YuminosukeSato/priceml/pkg/errors"
)

// Ridge はL2正則化付き線形回帰モデル。
// 損失 ||y - Xw - b||² + alpha * ||w||² を最小化する。切片bは正則化されない。
//
// 求解にはSVDによる最小ノルム最小二乗法を使用する。alpha=0の場合でも、
// one-hotエンコードされた特徴量のような線形従属の設計行列で解ける。
type Ridge struct {
	model.BaseEstimator

	// Alpha は正則化の強さ（0で通常の最小二乗法）
	Alpha float64

	// Coef は学習された重み（係数）
	Coef *mat.VecDense

	// Intercept は学習された切片
	Intercept float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewRidge は指定した正則化係数を持つRidgeを作成する
func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha}
}

// Fit はモデルを訓練データで学習させる。
// sqrt(alpha)を付加した拡張設計行列に対する最小二乗問題をSVDで解く。
func (r *Ridge) Fit(X, y mat.Matrix) error {
	n, p := X.Dims()
	ny, cy := y.Dims()

	if n == 0 || p == 0 {
		return errors.NewModelError("Ridge.Fit", "empty data", errors.ErrEmptyData)
	}
	if ny != n {
		return errors.NewDimensionError("Ridge.Fit", n, ny, 0)
	}
	if cy != 1 {
		return errors.NewValueError("Ridge.Fit", "y must be a column vector")
	}
	if r.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.Alpha)
	}

	r.NFeatures = p

	// 拡張設計行列を構築する:
	//   A = | 1  X              |   b = | y |
	//       | 0  sqrt(alpha)*I  |       | 0 |
	// 先頭列は切片項で、正則化行には現れないため切片は罰則を受けない。
	rows := n + p
	A := mat.NewDense(rows, p+1, nil)
	b := mat.NewVecDense(rows, nil)

	for i := 0; i < n; i++ {
		A.Set(i, 0, 1.0)
		for j := 0; j < p; j++ {
			A.Set(i, j+1, X.At(i, j))
		}
		b.SetVec(i, y.At(i, 0))
	}
	sqrtAlpha := math.Sqrt(r.Alpha)
	for j := 0; j < p; j++ {
		A.Set(n+j, j+1, sqrtAlpha)
	}

	coef, err := solveLeastSquares(A, b)
	if err != nil {
		return errors.NewModelError("Ridge.Fit", "least squares solve failed", err)
	}

	r.Intercept = coef.AtVec(0)
	r.Coef = mat.NewVecDense(p, nil)
	for j := 0; j < p; j++ {
		r.Coef.SetVec(j, coef.AtVec(j+1))
	}

	r.SetFitted()
	return nil
}

// solveLeastSquares はSVDにより最小ノルム最小二乗解を計算する。
// 許容値以下の特異値は打ち切られるため、ランク落ちした行列でも解ける。
func solveLeastSquares(A *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, errors.ErrSingularMatrix
	}

	rows, cols := A.Dims()
	values := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// 打ち切り許容値（LAPACKのデフォルトに準拠）
	tol := float64(max(rows, cols)) * values[0] * 2.220446049250313e-16

	// beta = V * diag(1/s) * U^T * b （s > tol の成分のみ）
	utb := mat.NewVecDense(len(values), nil)
	for k := range values {
		var dot float64
		for i := 0; i < rows; i++ {
			dot += u.At(i, k) * b.AtVec(i)
		}
		utb.SetVec(k, dot)
	}

	beta := mat.NewVecDense(cols, nil)
	for k, s := range values {
		if s <= tol {
			continue
		}
		scale := utb.AtVec(k) / s
		for j := 0; j < cols; j++ {
			beta.SetVec(j, beta.AtVec(j)+v.At(j, k)*scale)
		}
	}
	return beta, nil
}

// Predict は入力データに対する予測を行う
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Ridge", "Predict")
	}

	n, p := X.Dims()
	if p != r.NFeatures {
		return nil, errors.NewDimensionError("Ridge.Predict", r.NFeatures, p, 1)
	}

	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		pred := r.Intercept
		for j := 0; j < p; j++ {
			pred += X.At(i, j) * r.Coef.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score はモデルの決定係数（R²）を計算する
func (r *Ridge) Score(X, y mat.Matrix) (float64, error) {
	if !r.IsFitted() {
		return 0, errors.NewNotFittedError("Ridge", "Score")
	}

	yPred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}

	n, _ := y.Dims()
	yVec := mat.NewVecDense(n, nil)
	predVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, yPred.At(i, 0))
	}
	return metrics.R2Score(yVec, predVec)
}

// Weights は学習された重み（係数）を返す
func (r *Ridge) Weights() []float64 {
	if r.Coef == nil {
		return nil
	}
	weights := make([]float64, r.Coef.Len())
	for i := range weights {
		weights[i] = r.Coef.AtVec(i)
	}
	return weights
}

// GetParams はモデルのハイパーパラメータを返す
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha": r.Alpha,
	}
}

// SetParams はモデルのハイパーパラメータを設定する
func (r *Ridge) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "alpha":
			v, err := cast.ToFloat64E(value)
			if err != nil {
				return errors.NewValidationError(key, "must be a number", value)
			}
			r.Alpha = v
		default:
			return errors.NewValidationError(key, "unknown parameter for Ridge", value)
		}
	}
	return nil
}

// Clone は同じハイパーパラメータを持つ未学習のモデルを返す
func (r *Ridge) Clone() model.Regressor {
	return NewRidge(r.Alpha)
}

// String はモデルの文字列表現を返す
func (r *Ridge) String() string {
	if !r.IsFitted() {
		return fmt.Sprintf("Ridge(alpha=%g)", r.Alpha)
	}
	return fmt.Sprintf("Ridge(alpha=%g, n_features=%d)", r.Alpha, r.NFeatures)
}
