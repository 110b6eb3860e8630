package model

import (
	"gonum.org/v1/gonum/mat"
)

// Classifier is an estimator predicting discrete class labels.
type Classifier interface {
	Estimator

	// Classes returns the sorted class labels seen during fitting.
	Classes() []int
}

// ProbabilisticClassifier is a classifier exposing class probabilities.
type ProbabilisticClassifier interface {
	Classifier

	// PredictProba returns an (n_samples × n_classes) matrix whose columns follow Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// FeatureImportancer は木ベースのモデルが持つ不純度減少ベースの特徴量重要度を返す。
type FeatureImportancer interface {
	FeatureImportances() []float64
}

// FeatureScorable exposes one weight per input feature after fitting. The
// magnitude of each weight is read as the importance of that feature.
type FeatureScorable interface {
	Coef() []float64
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters. Unknown names are rejected.
	SetParams(params map[string]interface{}) error
}

// Cloner returns an unfitted copy carrying the same hyperparameters.
type Cloner interface {
	Clone() Tunable
}
