// Package feature_selection implements recursive feature elimination (RFE)
// and its cross-validated variant (RFECV).
//
// Both repeatedly fit an estimator, rank the remaining features by the
// magnitude of Coef() (or by FeatureImportances() when the estimator has no
// coefficients) and drop the weakest ones.
package feature_selection

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/pkg/errors"
	"github.com/YuminosukeSato/rftune/pkg/log"
	"github.com/YuminosukeSato/rftune/sklearn/model_selection"
	"github.com/YuminosukeSato/rftune/sklearn/utils"
)

const importanceGetter = "importance_getter"

type options struct {
	nFeaturesToSelect int
	minFeatures       int
	step              float64
	nFolds            int
	cv                model_selection.Splitter
	scoring           string
	nJobs             int
	verbose           int
	logger            log.Logger
}

// Option configures RFE and RFECV.
type Option func(*options)

// WithNFeaturesToSelect sets how many features RFE keeps. 0 keeps half.
func WithNFeaturesToSelect(n int) Option {
	return func(o *options) { o.nFeaturesToSelect = n }
}

// WithMinFeaturesToSelect sets the smallest subset RFECV evaluates.
func WithMinFeaturesToSelect(n int) Option {
	return func(o *options) { o.minFeatures = n }
}

// WithStep sets how many features are removed per iteration. Values in (0, 1)
// are a fraction of the initial feature count.
func WithStep(step float64) Option {
	return func(o *options) { o.step = step }
}

// WithCV sets the number of folds of the default splitter (RFECV only).
func WithCV(nFolds int) Option {
	return func(o *options) { o.nFolds = nFolds }
}

// WithSplitter replaces the default splitter (RFECV only).
func WithSplitter(cv model_selection.Splitter) Option {
	return func(o *options) { o.cv = cv }
}

// WithScoring sets the scorer name (RFECV only).
func WithScoring(scoring string) Option {
	return func(o *options) { o.scoring = scoring }
}

// WithNJobs sets how many folds are processed concurrently (RFECV only).
func WithNJobs(nJobs int) Option {
	return func(o *options) { o.nJobs = nJobs }
}

// WithVerbose enables per-iteration logging when verbose > 0.
func WithVerbose(verbose int) Option {
	return func(o *options) { o.verbose = verbose }
}

// WithLogger sets the logger used for verbose output.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) options {
	o := options{
		step:        1,
		minFeatures: 1,
		nFolds:      5,
		scoring:     "accuracy",
		nJobs:       1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("feature_selection")
	}
	return o
}

// RFE selects features by recursively eliminating the least important ones.
type RFE struct {
	estimator model.Tunable
	opts      options

	support_    []bool
	ranking_    []int
	nFeatures_  int
	estimator_  model.Tunable
	nFeaturesIn int
}

// NewRFE creates an RFE selector around estimator.
func NewRFE(estimator model.Tunable, opts ...Option) *RFE {
	return &RFE{estimator: estimator, opts: newOptions(opts)}
}

// Fit eliminates features down to the requested count and refits the
// estimator on the survivors.
func (r *RFE) Fit(X, y mat.Matrix) error {
	_, nFeatures, err := utils.CheckXY("RFE.Fit", X, y)
	if err != nil {
		return err
	}
	if err := checkImportanceSource(r.estimator); err != nil {
		return err
	}
	target := r.opts.nFeaturesToSelect
	switch {
	case target < 0:
		return errors.NewValidationError("n_features_to_select", "must be non-negative", target)
	case target == 0:
		target = max(1, nFeatures/2)
	case target > nFeatures:
		target = nFeatures
	}
	step, err := stepCount(r.opts.step, nFeatures)
	if err != nil {
		return err
	}

	logger := r.opts.logger.With(log.ModelNameKey, "RFE", log.OperationKey, log.OperationElimination)
	batches, remaining, err := eliminate(r.estimator, X, y, eliminationPath(nFeatures, target, step),
		r.opts.verbose, logger, nil)
	if err != nil {
		return err
	}

	ranking := make([]int, nFeatures)
	support := make([]bool, nFeatures)
	for _, j := range remaining {
		ranking[j] = 1
		support[j] = true
	}
	for k, batch := range batches {
		for _, j := range batch {
			ranking[j] = 1 + len(batches) - k
		}
	}

	est := r.estimator.Clone()
	if err := est.Fit(utils.SelectColumns(X, remaining), y); err != nil {
		return err
	}

	r.support_ = support
	r.ranking_ = ranking
	r.nFeatures_ = len(remaining)
	r.estimator_ = est
	r.nFeaturesIn = nFeatures
	return nil
}

// Support returns the selection mask. Nil before Fit.
func (r *RFE) Support() []bool { return slices.Clone(r.support_) }

// Ranking returns the feature ranking: 1 for selected features, larger values
// for features eliminated earlier. Features removed in the same iteration
// share a rank.
func (r *RFE) Ranking() []int { return slices.Clone(r.ranking_) }

// NFeatures returns the number of selected features.
func (r *RFE) NFeatures() int { return r.nFeatures_ }

// Estimator returns the estimator fitted on the selected features.
func (r *RFE) Estimator() model.Tunable { return r.estimator_ }

// Transform keeps only the selected columns of X.
func (r *RFE) Transform(X mat.Matrix) (mat.Matrix, error) {
	return transform("RFE", X, r.support_, r.nFeaturesIn)
}

// Predict transforms X and predicts with the fitted estimator.
func (r *RFE) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := r.Transform(X)
	if err != nil {
		return nil, err
	}
	return r.estimator_.Predict(Xt)
}

func transform(modelName string, X mat.Matrix, support []bool, nFeaturesIn int) (mat.Matrix, error) {
	if support == nil {
		return nil, errors.NewNotFittedError(modelName, "Transform")
	}
	if _, c := X.Dims(); c != nFeaturesIn {
		return nil, errors.NewDimensionError(modelName+".Transform", nFeaturesIn, c, 1)
	}
	return utils.SelectColumns(X, selected(support)), nil
}

func selected(support []bool) []int {
	var cols []int
	for j, s := range support {
		if s {
			cols = append(cols, j)
		}
	}
	return cols
}

func checkImportanceSource(est model.Tunable) error {
	if est == nil {
		return errors.NewValidationError("estimator", "estimator must not be nil", nil)
	}
	switch est.(type) {
	case model.FeatureScorable, model.FeatureImportancer:
		return nil
	}
	return errors.NewValidationError(importanceGetter,
		"the estimator exposes neither Coef nor FeatureImportances", fmt.Sprintf("%T", est))
}

// featureImportances returns |Coef()| when available, FeatureImportances() otherwise.
func featureImportances(est model.Tunable, nFeatures int) ([]float64, error) {
	var raw []float64
	switch e := est.(type) {
	case model.FeatureScorable:
		coef := e.Coef()
		raw = make([]float64, len(coef))
		for i, c := range coef {
			raw[i] = math.Abs(c)
		}
	case model.FeatureImportancer:
		raw = e.FeatureImportances()
	default:
		return nil, errors.NewValidationError(importanceGetter,
			"the estimator exposes neither Coef nor FeatureImportances", fmt.Sprintf("%T", est))
	}
	if len(raw) != nFeatures {
		return nil, errors.NewDimensionError("featureImportances", nFeatures, len(raw), 1)
	}
	return raw, nil
}

func stepCount(step float64, nFeatures int) (int, error) {
	switch {
	case step >= 1:
		if step != math.Trunc(step) {
			return 0, errors.NewValidationError("step", "must be an integer when >= 1", step)
		}
		return int(step), nil
	case step > 0:
		return max(1, int(step*float64(nFeatures))), nil
	default:
		return 0, errors.NewValidationError("step", "must be > 0", step)
	}
}

// eliminationPath lists the subset sizes visited from nFeatures down to target.
func eliminationPath(nFeatures, target, step int) []int {
	sizes := []int{nFeatures}
	for n := nFeatures; n > target; {
		n = max(n-step, target)
		sizes = append(sizes, n)
	}
	return sizes
}

// eliminate walks sizes (descending, sizes[0] == number of columns of X).
// For every size it fits a clone of est on the current subset, calls visit
// and drops the weakest features. The last subset is only fitted when visit
// is set. It returns the eliminated features per iteration, weakest first,
// and the surviving features in column order.
func eliminate(est model.Tunable, X, y mat.Matrix, sizes []int, verbose int, logger log.Logger,
	visit func(features []int, fitted model.Tunable) error) ([][]int, []int, error) {
	_, nFeatures := X.Dims()
	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}

	var batches [][]int
	for i := range sizes {
		last := i == len(sizes)-1
		if last && visit == nil {
			break
		}
		if verbose > 0 {
			logger.Info(fmt.Sprintf("Fitting estimator with %d features.", len(features)),
				log.FeaturesKey, len(features))
		}
		m := est.Clone()
		if err := m.Fit(utils.SelectColumns(X, features), y); err != nil {
			return nil, nil, err
		}
		if visit != nil {
			if err := visit(features, m); err != nil {
				return nil, nil, err
			}
		}
		if last {
			break
		}

		imp, err := featureImportances(m, len(features))
		if err != nil {
			return nil, nil, err
		}
		order := make([]int, len(features))
		for k := range order {
			order[k] = k
		}
		slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(imp[a], imp[b]) })

		nRemove := len(features) - sizes[i+1]
		batch := make([]int, nRemove)
		drop := make(map[int]bool, nRemove)
		for k := 0; k < nRemove; k++ {
			batch[k] = features[order[k]]
			drop[batch[k]] = true
		}
		batches = append(batches, batch)
		features = slices.DeleteFunc(features, func(j int) bool { return drop[j] })
	}
	return batches, features, nil
}
