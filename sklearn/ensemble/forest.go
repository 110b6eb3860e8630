// Package ensemble provides bagged tree ensembles and the adapter that
// exposes their feature importances as coefficients.
package ensemble

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/core/parallel"
	"github.com/YuminosukeSato/rftune/pkg/errors"
	"github.com/YuminosukeSato/rftune/pkg/log"
	"github.com/YuminosukeSato/rftune/sklearn/tree"
	"github.com/YuminosukeSato/rftune/sklearn/utils"
)

const forestName = "RandomForestClassifier"

// RandomForestClassifier is a bagging ensemble of CART trees, each grown on a
// bootstrap sample and choosing splits among a random subset of features.
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     interface{}
	bootstrap       bool
	nJobs           int
	randomState     *int64

	// Fitted attributes
	estimators_         []*tree.DecisionTreeClassifier
	classes_            []int
	nFeatures_          int
	featureImportances_ []float64
}

// ForestOption is a functional option for RandomForestClassifier
type ForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest with scikit-learn's defaults:
// 100 trees, gini, unlimited depth, max_features "sqrt", bootstrap on.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       tree.CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "sqrt",
		bootstrap:       true,
		nJobs:           1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithCriterion sets the split criterion of every tree.
func WithCriterion(criterion string) ForestOption {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithMaxDepth limits tree depth. Values <= 0 mean unlimited.
func WithMaxDepth(depth int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples required at a leaf.
func WithMinSamplesLeaf(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures sets the features considered per split ("auto" is "sqrt").
func WithMaxFeatures(maxFeatures interface{}) ForestOption {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = maxFeatures }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(bootstrap bool) ForestOption {
	return func(rf *RandomForestClassifier) { rf.bootstrap = bootstrap }
}

// WithNJobs sets how many trees are grown concurrently (-1 = all CPUs).
func WithNJobs(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// WithRandomState fixes the seed of the forest.
func WithRandomState(seed int64) ForestOption {
	return func(rf *RandomForestClassifier) { rf.randomState = &seed }
}

// Fit grows the forest on (X, y).
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, forestName+".Fit")

	nSamples, nFeatures, err := utils.CheckXY(forestName+".Fit", X, y)
	if err != nil {
		return err
	}
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	if _, err := tree.ResolveMaxFeatures(rf.maxFeatures, nFeatures); err != nil {
		return err
	}
	classes, err := utils.ClassLabels(forestName+".Fit", y)
	if err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble").With(log.ModelNameKey, forestName)
	start := time.Now()

	// Seeds are drawn before the fan-out so the forest does not depend on n_jobs.
	var seed uint64
	if rf.randomState != nil {
		seed = uint64(*rf.randomState)
	} else {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = rng.Int64()
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.ParallelizeN(rf.nEstimators, rf.nJobs, func(lo, hi int) {
		for t := lo; t < hi; t++ {
			errs[t] = errors.SafeExecute(forestName+".Fit", func() error {
				dt := rf.newTree(seeds[t])
				trees[t] = dt
				if !rf.bootstrap {
					return dt.Fit(X, y)
				}
				return dt.FitWeighted(X, y, bootstrapWeights(nSamples, seeds[t]))
			})
		}
	})
	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	importances := make([]float64, nFeatures)
	for _, dt := range trees {
		floats.Add(importances, dt.FeatureImportances())
	}
	if total := floats.Sum(importances); total > 0 {
		floats.Scale(1/total, importances)
	}

	rf.state.Reset()
	rf.estimators_ = trees
	rf.classes_ = classes
	rf.nFeatures_ = nFeatures
	rf.featureImportances_ = importances
	rf.state.SetFitted(nFeatures, nSamples)

	logger.Debug("forest fitted",
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		"n_estimators", rf.nEstimators,
		log.JobsKey, rf.nJobs,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (rf *RandomForestClassifier) newTree(seed int64) *tree.DecisionTreeClassifier {
	return tree.NewDecisionTreeClassifier(
		tree.WithCriterion(rf.criterion),
		tree.WithMaxDepth(rf.maxDepth),
		tree.WithMinSamplesSplit(rf.minSamplesSplit),
		tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
		tree.WithMaxFeatures(rf.maxFeatures),
		tree.WithRandomState(seed),
	)
}

// bootstrapWeights draws n samples with replacement and returns the number
// of times each sample was drawn.
func bootstrapWeights(n int, seed int64) []float64 {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1))
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[rng.IntN(n)]++
	}
	return w
}

// PredictProba averages the class probabilities of all trees.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted(forestName, "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := rf.state.RequireFeatures(forestName+".PredictProba", cols); err != nil {
		return nil, err
	}

	proba := mat.NewDense(rows, len(rf.classes_), nil)
	for _, dt := range rf.estimators_ {
		p, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		proba.Add(proba, p)
	}
	proba.Scale(1/float64(len(rf.estimators_)), proba)
	return proba, nil
}

// Predict returns the class with the highest mean probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	pred := mat.NewDense(rows, 1, nil)
	dense := proba.(*mat.Dense)
	for i := 0; i < rows; i++ {
		pred.Set(i, 0, float64(rf.classes_[floats.MaxIdx(dense.RawRowView(i))]))
	}
	return pred, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0
	}
	rows, _ := y.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows)
}

// Classes returns the sorted class labels seen during fitting.
func (rf *RandomForestClassifier) Classes() []int { return rf.classes_ }

// FeatureImportances returns the mean impurity-decrease importances of the
// trees, normalized to sum to 1. Nil before fitting.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	if rf.featureImportances_ == nil {
		return nil
	}
	out := make([]float64, len(rf.featureImportances_))
	copy(out, rf.featureImportances_)
	return out
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.estimators_
}

// GetParams returns the hyperparameters using scikit-learn names.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         nil,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"n_jobs":            rf.nJobs,
		"random_state":      nil,
	}
	if rf.maxDepth > 0 {
		params["max_depth"] = rf.maxDepth
	}
	if rf.randomState != nil {
		params["random_state"] = *rf.randomState
	}
	return params
}

// SetParams sets hyperparameters by scikit-learn name. Unknown names and
// ill-typed values fail without modifying the forest.
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	next := *rf
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			next.nEstimators, err = model.ToInt(key, value)
		case "criterion":
			next.criterion, err = model.ToString(key, value)
		case "max_depth":
			next.maxDepth, err = model.ToOptionalInt(key, value)
		case "min_samples_split":
			next.minSamplesSplit, err = model.ToInt(key, value)
		case "min_samples_leaf":
			next.minSamplesLeaf, err = model.ToInt(key, value)
		case "max_features":
			next.maxFeatures = value
		case "bootstrap":
			next.bootstrap, err = model.ToBool(key, value)
		case "n_jobs":
			next.nJobs, err = model.ToOptionalInt(key, value)
		case "random_state":
			next.randomState, err = model.ToOptionalInt64(key, value)
		default:
			err = model.UnknownParamError(forestName, key, value)
		}
		if err != nil {
			return err
		}
	}
	rf.nEstimators = next.nEstimators
	rf.criterion = next.criterion
	rf.maxDepth = next.maxDepth
	rf.minSamplesSplit = next.minSamplesSplit
	rf.minSamplesLeaf = next.minSamplesLeaf
	rf.maxFeatures = next.maxFeatures
	rf.bootstrap = next.bootstrap
	rf.nJobs = next.nJobs
	rf.randomState = next.randomState
	return nil
}

// Clone returns an unfitted forest with the same hyperparameters.
func (rf *RandomForestClassifier) Clone() model.Tunable {
	c := NewRandomForestClassifier()
	_ = c.SetParams(rf.GetParams())
	return c
}
