package feature_selection

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/core/parallel"
	"github.com/YuminosukeSato/rftune/metrics"
	"github.com/YuminosukeSato/rftune/pkg/errors"
	"github.com/YuminosukeSato/rftune/pkg/log"
	"github.com/YuminosukeSato/rftune/sklearn/model_selection"
	"github.com/YuminosukeSato/rftune/sklearn/utils"
)

// RFECVResults holds the cross-validated score of every evaluated subset
// size, ordered by ascending feature count.
type RFECVResults struct {
	NFeatures       []int
	MeanTestScore   []float64
	StdTestScore    []float64
	SplitTestScores [][]float64
}

// RFECV runs recursive feature elimination inside every cross-validation
// fold, picks the subset size with the best mean score and then ranks the
// features on the whole data.
type RFECV struct {
	estimator model.Tunable
	opts      options

	support_    []bool
	ranking_    []int
	nFeatures_  int
	cvResults_  *RFECVResults
	estimator_  model.Tunable
	nFeaturesIn int
}

// NewRFECV creates an RFECV selector around estimator. Defaults: step 1,
// 5 folds, accuracy scoring, min_features_to_select 1.
func NewRFECV(estimator model.Tunable, opts ...Option) *RFECV {
	return &RFECV{estimator: estimator, opts: newOptions(opts)}
}

// Fit runs the cross-validated elimination. Errors from the estimator, the
// splitter or the scorer are returned unchanged.
func (r *RFECV) Fit(ctx context.Context, X, y mat.Matrix) error {
	_, nFeatures, err := utils.CheckXY("RFECV.Fit", X, y)
	if err != nil {
		return err
	}
	if err := checkImportanceSource(r.estimator); err != nil {
		return err
	}
	if r.opts.minFeatures < 1 {
		return errors.NewValidationError("min_features_to_select", "must be at least 1", r.opts.minFeatures)
	}
	minFeatures := min(r.opts.minFeatures, nFeatures)
	step, err := stepCount(r.opts.step, nFeatures)
	if err != nil {
		return err
	}
	scorer, err := metrics.GetScorer(r.opts.scoring)
	if err != nil {
		return err
	}
	cv := r.opts.cv
	if cv == nil {
		_, isClassifier := r.estimator.(model.Classifier)
		cv = model_selection.CheckCV(r.opts.nFolds, y, isClassifier)
	}
	folds, err := cv.Split(X, y)
	if err != nil {
		return err
	}

	logger := r.opts.logger.With(log.ModelNameKey, "RFECV", log.OperationKey, log.OperationElimination)
	if r.opts.verbose > 0 {
		logger.Info("recursive feature elimination started",
			log.FeaturesKey, nFeatures,
			log.FoldsKey, len(folds),
			log.StepKey, step,
			log.ScoringKey, r.opts.scoring,
		)
	}

	// sizes in descending order; identical for every fold
	sizes := eliminationPath(nFeatures, minFeatures, step)
	foldScores := make([][]float64, len(folds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel.ResolveNJobs(r.opts.nJobs))
	for f, fold := range folds {
		g.Go(func() (err error) {
			defer errors.Recover(&err, "RFECV.Fit")
			if err := gctx.Err(); err != nil {
				return err
			}
			Xtr, ytr := utils.SelectRows(X, fold.TrainIndices), utils.SelectRows(y, fold.TrainIndices)
			Xte, yte := utils.SelectRows(X, fold.TestIndices), utils.SelectRows(y, fold.TestIndices)
			scores := make([]float64, 0, len(sizes))
			_, _, err = eliminate(r.estimator, Xtr, ytr, sizes, r.opts.verbose, logger.With(log.FoldKey, f),
				func(features []int, fitted model.Tunable) error {
					if err := gctx.Err(); err != nil {
						return err
					}
					s, err := scorer(fitted, utils.SelectColumns(Xte, features), yte)
					if err != nil {
						return err
					}
					scores = append(scores, s)
					return nil
				})
			if err != nil {
				return err
			}
			foldScores[f] = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// reorder to ascending feature count
	res := &RFECVResults{
		NFeatures:       make([]int, len(sizes)),
		MeanTestScore:   make([]float64, len(sizes)),
		StdTestScore:    make([]float64, len(sizes)),
		SplitTestScores: make([][]float64, len(sizes)),
	}
	best := 0
	for a := range sizes {
		d := len(sizes) - 1 - a
		split := make([]float64, len(folds))
		for f := range folds {
			split[f] = foldScores[f][d]
		}
		res.NFeatures[a] = sizes[d]
		res.SplitTestScores[a] = split
		res.MeanTestScore[a], res.StdTestScore[a] = model_selection.MeanStd(split)
		// strict comparison: ties go to fewer features
		if res.MeanTestScore[a] > res.MeanTestScore[best] {
			best = a
		}
	}
	nSelected := res.NFeatures[best]

	// rank every feature on the whole data, continuing past min_features_to_select
	fullPath := append(slices.Clone(sizes), eliminationPath(minFeatures, 1, step)[1:]...)
	batches, remaining, err := eliminate(r.estimator, X, y, fullPath, r.opts.verbose, logger, nil)
	if err != nil {
		return err
	}
	ranking := make([]int, nFeatures)
	rank := nFeatures
	for _, batch := range batches {
		for _, j := range batch {
			ranking[j] = rank
			rank--
		}
	}
	for _, j := range remaining {
		ranking[j] = rank
		rank--
	}
	support := make([]bool, nFeatures)
	for j, rk := range ranking {
		support[j] = rk <= nSelected
	}

	est := r.estimator.Clone()
	if err := est.Fit(utils.SelectColumns(X, selected(support)), y); err != nil {
		return err
	}

	r.support_ = support
	r.ranking_ = ranking
	r.nFeatures_ = nSelected
	r.cvResults_ = res
	r.estimator_ = est
	r.nFeaturesIn = nFeatures

	if r.opts.verbose > 0 {
		logger.Info("recursive feature elimination finished",
			"n_features_selected", nSelected,
			log.ScoreKey, res.MeanTestScore[best],
		)
	}
	return nil
}

// Support returns the selection mask. Nil before Fit.
func (r *RFECV) Support() []bool { return slices.Clone(r.support_) }

// Ranking returns the elimination order as a permutation of 1..n_features;
// 1 is the feature retained longest.
func (r *RFECV) Ranking() []int { return slices.Clone(r.ranking_) }

// NFeatures returns the optimal number of features.
func (r *RFECV) NFeatures() int { return r.nFeatures_ }

// GridScores returns the mean CV score per subset size, ascending feature count.
func (r *RFECV) GridScores() []float64 {
	if r.cvResults_ == nil {
		return nil
	}
	return slices.Clone(r.cvResults_.MeanTestScore)
}

// CVResults returns the per-size fold scores. Nil before Fit.
func (r *RFECV) CVResults() *RFECVResults { return r.cvResults_ }

// Estimator returns the estimator fitted on the selected features.
func (r *RFECV) Estimator() model.Tunable { return r.estimator_ }

// Transform keeps only the selected columns of X.
func (r *RFECV) Transform(X mat.Matrix) (mat.Matrix, error) {
	return transform("RFECV", X, r.support_, r.nFeaturesIn)
}

// Predict transforms X and predicts with the fitted estimator.
func (r *RFECV) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := r.Transform(X)
	if err != nil {
		return nil, err
	}
	return r.estimator_.Predict(Xt)
}
