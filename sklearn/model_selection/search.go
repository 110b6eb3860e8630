package model_selection

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/metrics"
	"github.com/YuminosukeSato/rftune/pkg/errors"
	"github.com/YuminosukeSato/rftune/pkg/log"
)

// ParameterGrid validates grid and enumerates its combinations. Keys are
// visited in sorted order; the last key varies fastest.
func ParameterGrid(grid model.ParamGrid) ([]model.Params, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return grid.Combinations(), nil
}

// CVResults holds per-candidate cross-validation results, indexed like Params.
type CVResults struct {
	Params          []model.Params
	MeanTestScore   []float64
	StdTestScore    []float64
	SplitTestScores [][]float64
	RankTestScore   []int
	MeanFitTime     []time.Duration
}

// GridSearchCV exhaustively evaluates every combination of a parameter grid
// with k-fold cross-validation.
type GridSearchCV struct {
	estimator model.Tunable
	paramGrid model.ParamGrid
	scoring   string
	cv        Splitter
	nFolds    int
	nJobs     int
	refit     bool
	verbose   int
	logger    log.Logger
	progress  func(done, total int)

	cvResults_     *CVResults
	bestIndex_     int
	bestScore_     float64
	bestParams_    model.Params
	bestEstimator_ model.Tunable
	nSplits_       int
}

// GridSearchOption configures a GridSearchCV.
type GridSearchOption func(*GridSearchCV)

// WithScoring sets the scorer name (see metrics.GetScorer). Default "accuracy".
func WithScoring(scoring string) GridSearchOption {
	return func(g *GridSearchCV) { g.scoring = scoring }
}

// WithCV sets the number of folds used with the default splitter. Default 5.
func WithCV(nFolds int) GridSearchOption {
	return func(g *GridSearchCV) { g.nFolds = nFolds }
}

// WithSplitter replaces the default splitter chosen by CheckCV.
func WithSplitter(cv Splitter) GridSearchOption {
	return func(g *GridSearchCV) { g.cv = cv }
}

// WithNJobs sets how many folds are fitted concurrently.
func WithNJobs(nJobs int) GridSearchOption {
	return func(g *GridSearchCV) { g.nJobs = nJobs }
}

// WithRefit controls whether the best combination is refitted on the whole data.
func WithRefit(refit bool) GridSearchOption {
	return func(g *GridSearchCV) { g.refit = refit }
}

// WithVerbose sets the verbosity. 1 logs the search summary, 2 adds every candidate.
func WithVerbose(verbose int) GridSearchOption {
	return func(g *GridSearchCV) { g.verbose = verbose }
}

// WithLogger sets the logger used for verbose output.
func WithLogger(logger log.Logger) GridSearchOption {
	return func(g *GridSearchCV) { g.logger = logger }
}

// WithProgress registers a callback invoked after each candidate.
func WithProgress(fn func(done, total int)) GridSearchOption {
	return func(g *GridSearchCV) { g.progress = fn }
}

// NewGridSearchCV creates a grid search over estimator.
func NewGridSearchCV(estimator model.Tunable, grid model.ParamGrid, opts ...GridSearchOption) *GridSearchCV {
	g := &GridSearchCV{
		estimator:  estimator,
		paramGrid:  grid,
		scoring:    metrics.ScoringAccuracy,
		nFolds:     5,
		nJobs:      1,
		refit:      true,
		bestIndex_: -1,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = log.GetLoggerWithName("model_selection")
	}
	return g
}

// Fit runs the search. Errors from the estimator, the splitter or the scorer
// are returned unchanged.
func (g *GridSearchCV) Fit(ctx context.Context, X, y mat.Matrix) error {
	if g.estimator == nil {
		return errors.NewValidationError("estimator", "estimator must not be nil", nil)
	}
	scorer, err := metrics.GetScorer(g.scoring)
	if err != nil {
		return err
	}
	candidates, err := ParameterGrid(g.paramGrid)
	if err != nil {
		return err
	}
	cv := g.cv
	if cv == nil {
		_, isClassifier := g.estimator.(model.Classifier)
		cv = CheckCV(g.nFolds, y, isClassifier)
	}

	logger := g.logger.With(log.ModelNameKey, "GridSearchCV", log.OperationKey, log.OperationSearch)
	if g.verbose > 0 {
		logger.Info("Fitting folds for each of the candidates",
			log.FoldsKey, cv.GetNSplits(),
			log.CandidatesKey, len(candidates),
			"total_fits", cv.GetNSplits()*len(candidates),
			log.ScoringKey, g.scoring,
		)
	}

	res := &CVResults{
		Params:          candidates,
		MeanTestScore:   make([]float64, len(candidates)),
		StdTestScore:    make([]float64, len(candidates)),
		SplitTestScores: make([][]float64, len(candidates)),
		MeanFitTime:     make([]time.Duration, len(candidates)),
	}
	best := -1
	for i, params := range candidates {
		est := g.estimator.Clone()
		if err := est.SetParams(params); err != nil {
			return err
		}
		start := time.Now()
		scores, err := CrossValScore(ctx, est, X, y, cv, scorer, g.nJobs)
		if err != nil {
			return err
		}
		mean, std := MeanStd(scores)
		res.SplitTestScores[i] = scores
		res.MeanTestScore[i] = mean
		res.StdTestScore[i] = std
		res.MeanFitTime[i] = time.Since(start) / time.Duration(len(scores))
		if best < 0 || mean > res.MeanTestScore[best] {
			best = i
		}
		if g.verbose > 1 {
			logger.Info("candidate evaluated",
				log.CandidateKey, i+1,
				log.HyperParamsKey, params.String(),
				log.ScoreKey, mean,
				log.ScoreStdKey, std,
			)
		}
		if g.progress != nil {
			g.progress(i+1, len(candidates))
		}
	}
	res.RankTestScore = rankScores(res.MeanTestScore)

	g.cvResults_ = res
	g.bestIndex_ = best
	g.bestScore_ = res.MeanTestScore[best]
	g.bestParams_ = candidates[best].Copy()
	g.nSplits_ = cv.GetNSplits()
	g.bestEstimator_ = nil

	if g.refit {
		est := g.estimator.Clone()
		if err := est.SetParams(g.bestParams_); err != nil {
			return err
		}
		if err := est.Fit(X, y); err != nil {
			return err
		}
		g.bestEstimator_ = est
	}
	if g.verbose > 0 {
		logger.Info("grid search finished",
			log.HyperParamsKey, g.bestParams_.String(),
			log.ScoreKey, g.bestScore_,
		)
	}
	return nil
}

// rankScores ranks means in descending order, equal means share the lowest rank.
func rankScores(means []float64) []int {
	ranks := make([]int, len(means))
	for i, m := range means {
		r := 1
		for _, other := range means {
			if other > m {
				r++
			}
		}
		ranks[i] = r
	}
	return ranks
}

func (g *GridSearchCV) requireFitted(method string) error {
	if g.cvResults_ == nil {
		return errors.NewNotFittedError("GridSearchCV", method)
	}
	return nil
}

// BestParams returns a copy of the best combination.
func (g *GridSearchCV) BestParams() (model.Params, error) {
	if err := g.requireFitted("BestParams"); err != nil {
		return nil, err
	}
	return g.bestParams_.Copy(), nil
}

// BestScore returns the mean cross-validated score of the best combination.
func (g *GridSearchCV) BestScore() (float64, error) {
	if err := g.requireFitted("BestScore"); err != nil {
		return 0, err
	}
	return g.bestScore_, nil
}

// BestIndex returns the index of the best combination in CVResults.
func (g *GridSearchCV) BestIndex() (int, error) {
	if err := g.requireFitted("BestIndex"); err != nil {
		return -1, err
	}
	return g.bestIndex_, nil
}

// BestEstimator returns the refitted estimator. It is nil when refit is disabled.
func (g *GridSearchCV) BestEstimator() (model.Tunable, error) {
	if err := g.requireFitted("BestEstimator"); err != nil {
		return nil, err
	}
	return g.bestEstimator_, nil
}

// CVResults returns the per-candidate results.
func (g *GridSearchCV) CVResults() (*CVResults, error) {
	if err := g.requireFitted("CVResults"); err != nil {
		return nil, err
	}
	return g.cvResults_, nil
}

// SearchSummary holds the attributes of a fitted GridSearchCV.
type SearchSummary struct {
	BestParams    model.Params
	BestScore     float64
	BestIndex     int
	BestEstimator model.Tunable
	CVResults     *CVResults
	NSplits       int
}

// Summary returns every fitted attribute at once, or a NotFittedError.
func (g *GridSearchCV) Summary() (*SearchSummary, error) {
	if err := g.requireFitted("Summary"); err != nil {
		return nil, err
	}
	return &SearchSummary{
		BestParams:    g.bestParams_.Copy(),
		BestScore:     g.bestScore_,
		BestIndex:     g.bestIndex_,
		BestEstimator: g.bestEstimator_,
		CVResults:     g.cvResults_,
		NSplits:       g.nSplits_,
	}, nil
}

// NSplits returns the number of folds used by the last Fit.
func (g *GridSearchCV) NSplits() int { return g.nSplits_ }

// Predict delegates to the refitted best estimator.
func (g *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if g.bestEstimator_ == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return g.bestEstimator_.Predict(X)
}
