// Package tree implements a CART decision tree classifier compatible with
// scikit-learn's DecisionTreeClassifier.
package tree

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/pkg/errors"
	"github.com/YuminosukeSato/rftune/sklearn/utils"
)

const modelName = "DecisionTreeClassifier"

// DecisionTreeClassifier は CART アルゴリズムによる決定木分類器
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string      // "gini" or "entropy"
	maxDepth        int         // <= 0 means unlimited
	minSamplesSplit int         // Minimum samples required to split an internal node
	minSamplesLeaf  int         // Minimum samples required at a leaf
	maxFeatures     interface{} // nil, "auto", "sqrt", "log2", int or float fraction
	randomState     *int64      // nil draws a fresh seed per fit

	// Fitted attributes
	root                *node
	classes_            []int
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
	depth_              int
	nLeaves_            int
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	value     []float64 // class probabilities at this node
}

func (n *node) isLeaf() bool { return n.left == nil }

// Option is a functional option for DecisionTreeClassifier
type Option func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the split quality measure ("gini" or "entropy").
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth sets the maximum depth of the tree. Values <= 0 mean unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required at a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets the number of features considered per split.
// Accepts nil, "auto", "sqrt", "log2", an int count or a float fraction.
func WithMaxFeatures(maxFeatures interface{}) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = maxFeatures
	}
}

// WithRandomState fixes the seed used to permute candidate features.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = &seed
	}
}

// Fit builds the tree from the training set (X, y).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted builds the tree with per-sample weights. Samples with zero
// weight are ignored but their labels still count towards Classes(), so that
// trees fitted on bootstrap samples share the class layout of the full data.
func (dt *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	nSamples, nFeatures, err := utils.CheckXY(modelName+".Fit", X, y)
	if err != nil {
		return err
	}
	if sampleWeight != nil && len(sampleWeight) != nSamples {
		return errors.NewDimensionError(modelName+".Fit", nSamples, len(sampleWeight), 0)
	}

	impurity, ok := criterionFunc(dt.criterion)
	if !ok {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	maxFeatures, err := ResolveMaxFeatures(dt.maxFeatures, nFeatures)
	if err != nil {
		return err
	}

	classes, err := utils.ClassLabels(modelName+".Fit", y)
	if err != nil {
		return err
	}

	var seed uint64
	if dt.randomState != nil {
		seed = uint64(*dt.randomState)
	} else {
		seed = rand.Uint64()
	}

	b := &builder{
		cols:            make([][]float64, nFeatures),
		y:               utils.EncodeLabels(y, classes),
		w:               make([]float64, nSamples),
		nClasses:        len(classes),
		impurity:        impurity,
		maxDepth:        dt.maxDepth,
		minSamplesSplit: dt.minSamplesSplit,
		minSamplesLeaf:  dt.minSamplesLeaf,
		maxFeatures:     maxFeatures,
		rng:             rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		importances:     make([]float64, nFeatures),
	}
	for j := 0; j < nFeatures; j++ {
		b.cols[j] = utils.Column(X, j)
	}

	idx := make([]int, 0, nSamples)
	for i := 0; i < nSamples; i++ {
		b.w[i] = 1
		if sampleWeight != nil {
			b.w[i] = sampleWeight[i]
		}
		if b.w[i] > 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return errors.NewValueError(modelName+".Fit", "all sample weights are zero")
	}

	dt.state.Reset()
	dt.root = b.build(idx, 0)
	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.nFeatures_ = nFeatures
	dt.depth_ = b.depth
	dt.nLeaves_ = b.leaves

	if total := floats.Sum(b.importances); total > 0 {
		floats.Scale(1/total, b.importances)
	}
	dt.featureImportances_ = b.importances

	dt.state.SetFitted(nFeatures, nSamples)
	return nil
}

// ResolveMaxFeatures converts a max_features setting to a feature count.
func ResolveMaxFeatures(maxFeatures interface{}, nFeatures int) (int, error) {
	switch v := maxFeatures.(type) {
	case nil:
		return nFeatures, nil
	case string:
		switch v {
		case "auto", "sqrt":
			return max(1, int(math.Sqrt(float64(nFeatures)))), nil
		case "log2":
			return max(1, int(math.Log2(float64(nFeatures)))), nil
		}
	case float64:
		if v > 0 && v <= 1 {
			return max(1, int(v*float64(nFeatures))), nil
		}
	case int, int64:
		n, _ := model.ToInt("max_features", v)
		if n >= 1 && n <= nFeatures {
			return n, nil
		}
	}
	return 0, errors.NewValidationError("max_features",
		"must be nil, 'auto', 'sqrt', 'log2', an int in [1, n_features] or a float in (0, 1]", maxFeatures)
}

// Predict returns the predicted class label of every row of X.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict(X, "Predict"); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	pred := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		leaf := dt.apply(X, i)
		pred.Set(i, 0, float64(dt.classes_[floats.MaxIdx(leaf.value)]))
	}
	return pred, nil
}

// PredictProba returns class probabilities, one column per entry of Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict(X, "PredictProba"); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	proba := mat.NewDense(rows, dt.nClasses_, nil)
	for i := 0; i < rows; i++ {
		proba.SetRow(i, dt.apply(X, i).value)
	}
	return proba, nil
}

func (dt *DecisionTreeClassifier) checkPredict(X mat.Matrix, method string) error {
	if err := dt.state.RequireFitted(modelName, method); err != nil {
		return err
	}
	_, cols := X.Dims()
	return dt.state.RequireFeatures(modelName+"."+method, cols)
}

func (dt *DecisionTreeClassifier) apply(X mat.Matrix, row int) *node {
	n := dt.root
	for !n.isLeaf() {
		if X.At(row, n.feature) <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// Score returns the mean accuracy on the given test data and labels.
// It returns 0 when the model cannot predict X.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
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
func (dt *DecisionTreeClassifier) Classes() []int {
	return dt.classes_
}

// FeatureImportances returns the normalized total impurity decrease
// contributed by each feature. All zeros when the tree is a single leaf.
func (dt *DecisionTreeClassifier) FeatureImportances() []float64 {
	if dt.featureImportances_ == nil {
		return nil
	}
	out := make([]float64, len(dt.featureImportances_))
	copy(out, dt.featureImportances_)
	return out
}

// GetDepth returns the depth of the fitted tree; a single leaf has depth 0.
func (dt *DecisionTreeClassifier) GetDepth() int { return dt.depth_ }

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int { return dt.nLeaves_ }

// GetParams returns the hyperparameters using scikit-learn names.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         nil,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      nil,
	}
	if dt.maxDepth > 0 {
		params["max_depth"] = dt.maxDepth
	}
	if dt.randomState != nil {
		params["random_state"] = *dt.randomState
	}
	return params
}

// SetParams sets hyperparameters by scikit-learn name. It fails on unknown
// names or ill-typed values and leaves the estimator unchanged in that case.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	next := *dt
	for key, value := range params {
		var err error
		switch key {
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
		case "random_state":
			next.randomState, err = model.ToOptionalInt64(key, value)
		default:
			err = model.UnknownParamError(modelName, key, value)
		}
		if err != nil {
			return err
		}
	}
	dt.criterion = next.criterion
	dt.maxDepth = next.maxDepth
	dt.minSamplesSplit = next.minSamplesSplit
	dt.minSamplesLeaf = next.minSamplesLeaf
	dt.maxFeatures = next.maxFeatures
	dt.randomState = next.randomState
	return nil
}

// Clone returns an unfitted tree with the same hyperparameters.
func (dt *DecisionTreeClassifier) Clone() model.Tunable {
	c := NewDecisionTreeClassifier()
	_ = c.SetParams(dt.GetParams())
	return c
}
