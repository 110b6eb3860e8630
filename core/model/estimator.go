package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is the minimal contract every model in rftune satisfies.
type Estimator interface {
	Fitter
	Predictor
}

// Tunable is an estimator whose hyperparameters can be read, overwritten and
// copied into a fresh unfitted instance. Grid search and feature elimination
// operate on Tunable estimators.
type Tunable interface {
	Estimator
	ParameterGetter
	ParameterSetter
	Cloner
}
