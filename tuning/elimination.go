package tuning

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/sklearn/feature_selection"
)

// EliminationResult is the outcome of RecursiveFeatureElimination.
type EliminationResult struct {
	// Support marks the selected features.
	Support []bool
	// Ranking is a permutation of 1..n_features; 1 was retained longest.
	Ranking []int
	// NFeatures is the optimal number of features.
	NFeatures int
	// GridScores holds the mean CV score per subset size, ascending feature count.
	GridScores []float64
	CVResults  *feature_selection.RFECVResults
	Estimator  model.Tunable
	Scoring    string
}

// RecursiveFeatureElimination runs RFECV (step 1, 5 folds, roc_auc scoring
// and verbose progress unless overridden), prints the selection and returns
// it. The estimator must expose Coef or FeatureImportances once fitted.
func RecursiveFeatureElimination(ctx context.Context, estimator model.Tunable, X, y mat.Matrix, opts ...Option) (*EliminationResult, error) {
	s := newSettings(eliminationDefaults(), opts)

	selector := feature_selection.NewRFECV(estimator,
		feature_selection.WithStep(s.step),
		feature_selection.WithCV(s.folds),
		feature_selection.WithScoring(s.scoring),
		feature_selection.WithMinFeaturesToSelect(s.minFeatures),
		feature_selection.WithNJobs(s.nJobs),
		feature_selection.WithVerbose(s.verbose),
		feature_selection.WithLogger(s.logger),
	)
	if err := selector.Fit(ctx, X, y); err != nil {
		return nil, err
	}

	res := &EliminationResult{
		Support:    selector.Support(),
		Ranking:    selector.Ranking(),
		NFeatures:  selector.NFeatures(),
		GridScores: selector.GridScores(),
		CVResults:  selector.CVResults(),
		Estimator:  selector.Estimator(),
		Scoring:    s.scoring,
	}
	if err := WriteEliminationReport(s.writer, res); err != nil {
		return nil, err
	}
	return res, nil
}
