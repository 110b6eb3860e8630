package model_selection

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/core/parallel"
	"github.com/YuminosukeSato/rftune/metrics"
	"github.com/YuminosukeSato/rftune/pkg/errors"
	"github.com/YuminosukeSato/rftune/sklearn/utils"
)

// CrossValScore fits a clone of est on the training part of every fold and
// scores it on the held-out part. Scores are returned in fold order.
//
// At most nJobs folds run concurrently (see parallel.ResolveNJobs). The first
// failing fold cancels the remaining ones and its error is returned as is.
func CrossValScore(ctx context.Context, est model.Tunable, X, y mat.Matrix, cv Splitter, scorer metrics.Scorer, nJobs int) ([]float64, error) {
	if _, _, err := utils.CheckXY("CrossValScore", X, y); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, errors.NewValidationError("scoring", "scorer must not be nil", nil)
	}
	folds, err := cv.Split(X, y)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel.ResolveNJobs(nJobs))
	for i, fold := range folds {
		g.Go(func() (err error) {
			defer errors.Recover(&err, "CrossValScore")
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := fitAndScore(est, X, y, fold, scorer)
			if err != nil {
				return err
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func fitAndScore(est model.Tunable, X, y mat.Matrix, fold Fold, scorer metrics.Scorer) (float64, error) {
	if len(fold.TrainIndices) == 0 || len(fold.TestIndices) == 0 {
		return 0, errors.NewValueError("CrossValScore", "empty train or test fold")
	}
	m := est.Clone()
	if err := m.Fit(utils.SelectRows(X, fold.TrainIndices), utils.SelectRows(y, fold.TrainIndices)); err != nil {
		return 0, err
	}
	return scorer(m, utils.SelectRows(X, fold.TestIndices), utils.SelectRows(y, fold.TestIndices))
}

// MeanStd returns the mean and the population standard deviation of scores.
func MeanStd(scores []float64) (mean, std float64) {
	if len(scores) == 0 {
		return math.NaN(), math.NaN()
	}
	mean, variance := stat.PopMeanVariance(scores, nil)
	return mean, math.Sqrt(variance)
}
