package metrics

import (
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/pkg/errors"
)

// Scorer evaluates a fitted estimator on held-out data. Greater is better.
type Scorer func(est model.Estimator, X, y mat.Matrix) (float64, error)

// Scoring names understood by GetScorer.
const (
	ScoringAccuracy   = "accuracy"
	ScoringROCAUC     = "roc_auc"
	ScoringNegLogLoss = "neg_log_loss"
)

var scorers = map[string]Scorer{
	ScoringAccuracy:   AccuracyScorer,
	ScoringROCAUC:     ROCAUCScorer,
	ScoringNegLogLoss: NegLogLossScorer,
}

// GetScorer returns the scorer registered under name.
func GetScorer(name string) (Scorer, error) {
	s, ok := scorers[name]
	if !ok {
		return nil, errors.NewValidationError("scoring",
			fmt.Sprintf("unknown scorer, valid options are %v", ScorerNames()), name)
	}
	return s, nil
}

// ScorerNames lists the registered scorer names in sorted order.
func ScorerNames() []string {
	names := lo.Keys(scorers)
	slices.Sort(names)
	return names
}

// AccuracyScorer compares Predict output with y.
func AccuracyScorer(est model.Estimator, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue := firstColumn(y)
	yPred := firstColumn(pred)
	return Accuracy(yTrue, yPred)
}

// ROCAUCScorer scores a binary classifier by the area under the ROC curve of
// the probability assigned to the greater class label. Estimators without
// PredictProba are scored on their Predict output.
func ROCAUCScorer(est model.Estimator, X, y mat.Matrix) (float64, error) {
	yTrue := firstColumn(y)
	if yTrue == nil {
		return 0, errors.NewValueError("roc_auc", "empty vector")
	}
	labels := uniqueLabels(yTrue)

	var (
		scores   *mat.VecDense
		positive float64
	)
	if clf, ok := est.(model.ProbabilisticClassifier); ok {
		classes := clf.Classes()
		labels = lo.Union(labels, lo.Map(classes, func(c int, _ int) float64 { return float64(c) }))
		if len(labels) > 2 {
			return 0, errors.NewValueError("roc_auc", "multiclass targets are not supported")
		}
		proba, err := clf.PredictProba(X)
		if err != nil {
			return 0, err
		}
		r, _ := proba.Dims()
		scores = mat.NewVecDense(r, nil)
		if len(classes) >= 2 {
			positive = float64(classes[len(classes)-1])
			for i := 0; i < r; i++ {
				scores.SetVec(i, proba.At(i, len(classes)-1))
			}
		} else {
			// constant score: AUC is 0.5 or undefined
			positive = slices.Max(labels)
		}
	} else {
		if len(labels) > 2 {
			return 0, errors.NewValueError("roc_auc", "multiclass targets are not supported")
		}
		pred, err := est.Predict(X)
		if err != nil {
			return 0, err
		}
		scores = firstColumn(pred)
		positive = slices.Max(labels)
	}

	binary := mat.NewVecDense(yTrue.Len(), nil)
	for i := 0; i < yTrue.Len(); i++ {
		if yTrue.AtVec(i) == positive {
			binary.SetVec(i, 1)
		}
	}
	return AUC(binary, scores)
}

// NegLogLossScorer returns the negated cross-entropy of PredictProba.
func NegLogLossScorer(est model.Estimator, X, y mat.Matrix) (float64, error) {
	clf, ok := est.(model.ProbabilisticClassifier)
	if !ok {
		return 0, errors.NewValueError("neg_log_loss", "estimator does not implement PredictProba")
	}
	proba, err := clf.PredictProba(X)
	if err != nil {
		return 0, err
	}
	yTrue := firstColumn(y)
	if yTrue == nil {
		return 0, errors.NewValueError("neg_log_loss", "empty vector")
	}
	n := yTrue.Len()
	if r, _ := proba.Dims(); r != n {
		return 0, errors.NewDimensionError("neg_log_loss", n, r, 0)
	}

	column := make(map[float64]int, len(clf.Classes()))
	for j, c := range clf.Classes() {
		column[float64(c)] = j
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := logLossEps
		if j, ok := column[yTrue.AtVec(i)]; ok {
			p = clip(proba.At(i, j))
		}
		sum += math.Log(p)
	}
	return sum / float64(n), nil
}

func uniqueLabels(v *mat.VecDense) []float64 {
	out := make([]float64, 0, 2)
	for i := 0; i < v.Len(); i++ {
		out = append(out, v.AtVec(i))
	}
	out = lo.Uniq(out)
	slices.Sort(out)
	return out
}
