package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/pkg/errors"
)

// ImportanceEstimator is a tunable estimator with native feature importances.
type ImportanceEstimator interface {
	model.Tunable
	model.FeatureImportancer
}

// CoefAdapter exposes the feature importances of the wrapped estimator as
// Coef(), the attribute feature-selection routines read. Everything else is
// forwarded unchanged.
type CoefAdapter struct {
	est  ImportanceEstimator
	coef []float64
}

// NewCoefAdapter wraps est.
func NewCoefAdapter(est ImportanceEstimator) *CoefAdapter {
	return &CoefAdapter{est: est}
}

// Fit fits the wrapped estimator and, on success, copies its feature
// importances into the coefficients. On failure the previous coefficients
// are kept and the error is returned as is.
func (a *CoefAdapter) Fit(X, y mat.Matrix) error {
	if err := a.est.Fit(X, y); err != nil {
		return err
	}
	a.coef = a.est.FeatureImportances()
	return nil
}

// Coef returns one weight per feature, nil before the first successful fit.
func (a *CoefAdapter) Coef() []float64 {
	if a.coef == nil {
		return nil
	}
	out := make([]float64, len(a.coef))
	copy(out, a.coef)
	return out
}

// Unwrap returns the wrapped estimator.
func (a *CoefAdapter) Unwrap() ImportanceEstimator { return a.est }

func (a *CoefAdapter) Predict(X mat.Matrix) (mat.Matrix, error) { return a.est.Predict(X) }

func (a *CoefAdapter) FeatureImportances() []float64 { return a.est.FeatureImportances() }

func (a *CoefAdapter) GetParams() map[string]interface{} { return a.est.GetParams() }

func (a *CoefAdapter) SetParams(params map[string]interface{}) error {
	return a.est.SetParams(params)
}

// PredictProba forwards to the wrapped estimator when it is probabilistic.
func (a *CoefAdapter) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	clf, ok := a.est.(model.ProbabilisticClassifier)
	if !ok {
		return nil, errors.NewModelError("CoefAdapter.PredictProba", "unsupported",
			errors.Newf("%T does not implement PredictProba", a.est))
	}
	return clf.PredictProba(X)
}

// Classes forwards to the wrapped estimator, nil if it is not a classifier.
func (a *CoefAdapter) Classes() []int {
	if clf, ok := a.est.(model.Classifier); ok {
		return clf.Classes()
	}
	return nil
}

// Clone returns an unfitted adapter around a clone of the wrapped estimator.
func (a *CoefAdapter) Clone() model.Tunable {
	return &CoefAdapter{est: a.est.Clone().(ImportanceEstimator)}
}

// RandomForestClassifierWithCoef is a random forest whose Coef() reports its
// feature importances.
type RandomForestClassifierWithCoef struct {
	*CoefAdapter
	forest *RandomForestClassifier
}

// NewRandomForestClassifierWithCoef builds the forest from opts and wraps it.
func NewRandomForestClassifierWithCoef(opts ...ForestOption) *RandomForestClassifierWithCoef {
	rf := NewRandomForestClassifier(opts...)
	return &RandomForestClassifierWithCoef{CoefAdapter: NewCoefAdapter(rf), forest: rf}
}

// Forest returns the wrapped forest.
func (r *RandomForestClassifierWithCoef) Forest() *RandomForestClassifier { return r.forest }

// Score forwards to the forest.
func (r *RandomForestClassifierWithCoef) Score(X, y mat.Matrix) float64 {
	return r.forest.Score(X, y)
}

// Clone returns an unfitted RandomForestClassifierWithCoef with the same hyperparameters.
func (r *RandomForestClassifierWithCoef) Clone() model.Tunable {
	rf := r.forest.Clone().(*RandomForestClassifier)
	return &RandomForestClassifierWithCoef{CoefAdapter: NewCoefAdapter(rf), forest: rf}
}
