package tuning

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/pkg/log"
	"github.com/YuminosukeSato/rftune/sklearn/model_selection"
)

// OptimizeResult is the outcome of Optimize.
type OptimizeResult struct {
	BestParams    model.Params
	BestScore     float64
	BestIndex     int
	BestEstimator model.Tunable
	CVResults     *model_selection.CVResults
	Scoring       string
	Folds         int
}

// Optimize searches the parameter grid (DefaultParamGrid unless WithParamGrid
// is given) with k-fold cross-validation, prints the best combination and
// returns the full result. Errors are returned unchanged.
func Optimize(ctx context.Context, estimator model.Tunable, X, y mat.Matrix, opts ...Option) (*OptimizeResult, error) {
	s := newSettings(searchDefaults(), opts)

	gs := model_selection.NewGridSearchCV(estimator, s.paramGrid,
		model_selection.WithCV(s.folds),
		model_selection.WithScoring(s.scoring),
		model_selection.WithNJobs(s.nJobs),
		model_selection.WithVerbose(s.verbose),
		model_selection.WithLogger(s.logger),
		model_selection.WithProgress(s.progress),
	)
	if err := gs.Fit(ctx, X, y); err != nil {
		return nil, err
	}

	sum, err := gs.Summary()
	if err != nil {
		return nil, err
	}
	res := &OptimizeResult{
		BestParams:    sum.BestParams,
		BestScore:     sum.BestScore,
		BestIndex:     sum.BestIndex,
		BestEstimator: sum.BestEstimator,
		CVResults:     sum.CVResults,
		Scoring:       s.scoring,
		Folds:         sum.NSplits,
	}

	s.logger.Debug("optimize finished",
		log.OperationKey, log.OperationSearch,
		log.HyperParamsKey, res.BestParams.String(),
		log.ScoreKey, res.BestScore,
	)
	if err := WriteSearchReport(s.writer, res); err != nil {
		return nil, err
	}
	return res, nil
}
