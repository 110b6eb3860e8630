// Package linear_model provides linear classifiers whose coefficients can
// drive feature selection.
package linear_model

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/pkg/errors"
	"github.com/YuminosukeSato/rftune/sklearn/utils"
)

const modelName = "LogisticRegression"

// LogisticRegression implements logistic regression for classification
// Compatible with scikit-learn's LogisticRegression
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2", "l1", "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	randomState  *int64  // Seed for the weight initialization
	maxIter      int     // Maximum iterations
	tol          float64 // Tolerance for stopping

	// Model parameters
	coef_      [][]float64 // Coefficients (n_classes x n_features or 1 x n_features for binary)
	intercept_ []float64   // Intercept terms
	classes_   []int       // Unique class labels
	nClasses_  int         // Number of classes
	nFeatures_ int         // Number of features
	nIter_     []int       // Actual iterations per class
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = &seed
	}
}

// Fit trains the logistic regression model. Two classes fit a single binary
// model; more classes fit one-vs-rest.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := utils.CheckXY(modelName+".Fit", X, y)
	if err != nil {
		return err
	}
	switch lr.penalty {
	case "l1", "l2", "none":
	default:
		return errors.NewValidationError("penalty", "must be 'l1', 'l2' or 'none'", lr.penalty)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}

	classes, err := utils.ClassLabels(modelName+".Fit", y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return errors.NewValueError(modelName+".Fit",
			"this solver needs samples of at least 2 classes in the data")
	}

	lr.state.Reset()
	lr.classes_ = classes
	lr.nClasses_ = len(classes)
	lr.nFeatures_ = nFeatures
	lr.initializeWeights(nFeatures)

	encoded := utils.EncodeLabels(y, classes)
	target := make([]float64, nSamples)
	if lr.nClasses_ == 2 {
		for i, k := range encoded {
			target[i] = float64(k)
		}
		lr.fitBinary(X, target, 0)
	} else {
		for classIdx := range classes {
			for i, k := range encoded {
				target[i] = 0
				if k == classIdx {
					target[i] = 1
				}
			}
			lr.fitBinary(X, target, classIdx)
		}
	}

	for _, n := range lr.nIter_ {
		if n >= lr.maxIter {
			errors.Warn(errors.NewConvergenceWarning(modelName, lr.maxIter,
				"increase max_iter or scale the data"))
			break
		}
	}

	lr.state.SetFitted(nFeatures, nSamples)
	return nil
}

// initializeWeights initializes model weights with small random values
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	nRows := lr.nClasses_
	if nRows == 2 {
		nRows = 1
	}
	var seed uint64
	if lr.randomState != nil {
		seed = uint64(*lr.randomState)
	} else {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	lr.coef_ = make([][]float64, nRows)
	for i := range lr.coef_ {
		lr.coef_[i] = make([]float64, nFeatures)
		for j := range lr.coef_[i] {
			lr.coef_[i][j] = rng.NormFloat64() * 0.01
		}
	}
	lr.intercept_ = make([]float64, nRows)
	lr.nIter_ = make([]int, nRows)
}

// fitBinary runs gradient descent on one coefficient row against a 0/1 target.
func (lr *LogisticRegression) fitBinary(X mat.Matrix, target []float64, row int) {
	nSamples, nFeatures := X.Dims()
	weights := lr.coef_[row]
	intercept := &lr.intercept_[row]
	lambda := 1.0 / lr.C

	baseLearningRate := 1.0
	gradWeights := make([]float64, nFeatures)

	for iter := 0; iter < lr.maxIter; iter++ {
		clear(gradWeights)
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - target[i]
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
			switch lr.penalty {
			case "l2":
				gradWeights[j] += lambda * weights[j]
			case "l1":
				gradWeights[j] += lambda * sign(weights[j])
			}
		}
		gradIntercept /= float64(nSamples)

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if lr.fitIntercept {
			*intercept -= learningRate * gradIntercept
		}

		lr.nIter_[row] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < lr.tol {
			break
		}
	}
}

// decision returns the linear score of sample i for a coefficient row.
func (lr *LogisticRegression) decision(X mat.Matrix, i, row int) float64 {
	z := lr.intercept_[row]
	for j := 0; j < lr.nFeatures_; j++ {
		z += X.At(i, j) * lr.coef_[row][j]
	}
	return z
}

func (lr *LogisticRegression) checkPredict(X mat.Matrix, method string) error {
	if err := lr.state.RequireFitted(modelName, method); err != nil {
		return err
	}
	_, cols := X.Dims()
	return lr.state.RequireFeatures(modelName+"."+method, cols)
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := probas.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for k := 1; k < lr.nClasses_; k++ {
			if probas.At(i, k) > probas.At(i, best) {
				best = k
			}
		}
		predictions.Set(i, 0, float64(lr.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkPredict(X, "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	probas := mat.NewDense(nSamples, lr.nClasses_, nil)

	if lr.nClasses_ == 2 {
		for i := 0; i < nSamples; i++ {
			prob1 := sigmoid(lr.decision(X, i, 0))
			probas.Set(i, 0, 1.0-prob1)
			probas.Set(i, 1, prob1)
		}
		return probas, nil
	}

	// Multiclass using softmax over the one-vs-rest scores
	scores := make([]float64, lr.nClasses_)
	for i := 0; i < nSamples; i++ {
		maxScore := math.Inf(-1)
		for k := range scores {
			scores[k] = lr.decision(X, i, k)
			maxScore = math.Max(maxScore, scores[k])
		}
		sum := 0.0
		for k := range scores {
			scores[k] = math.Exp(scores[k] - maxScore)
			sum += scores[k]
		}
		for k := range scores {
			probas.Set(i, k, scores[k]/sum)
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) float64 {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0.0
	}

	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Coef returns one weight per feature: the coefficient row of a binary model,
// or the L1 norm of each feature's coefficients across classes otherwise.
func (lr *LogisticRegression) Coef() []float64 {
	if lr.coef_ == nil || !lr.state.IsFitted() {
		return nil
	}
	out := make([]float64, lr.nFeatures_)
	if len(lr.coef_) == 1 {
		copy(out, lr.coef_[0])
		return out
	}
	for _, row := range lr.coef_ {
		for j, w := range row {
			out[j] += math.Abs(w)
		}
	}
	return out
}

// Intercept returns the fitted intercepts.
func (lr *LogisticRegression) Intercept() []float64 {
	return append([]float64(nil), lr.intercept_...)
}

// Classes returns the sorted class labels seen during fitting.
func (lr *LogisticRegression) Classes() []int { return lr.classes_ }

// NIter returns the number of gradient steps run per coefficient row.
func (lr *LogisticRegression) NIter() []int { return lr.nIter_ }

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"random_state":  nil,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
	if lr.randomState != nil {
		params["random_state"] = *lr.randomState
	}
	return params
}

// SetParams sets the model hyperparameters. Unknown names and ill-typed
// values fail without modifying the model.
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	next := *lr
	for key, value := range params {
		var err error
		switch key {
		case "penalty":
			next.penalty, err = model.ToString(key, value)
		case "C":
			next.C, err = model.ToFloat(key, value)
		case "fit_intercept":
			next.fitIntercept, err = model.ToBool(key, value)
		case "random_state":
			next.randomState, err = model.ToOptionalInt64(key, value)
		case "max_iter":
			next.maxIter, err = model.ToInt(key, value)
		case "tol":
			next.tol, err = model.ToFloat(key, value)
		default:
			err = model.UnknownParamError(modelName, key, value)
		}
		if err != nil {
			return err
		}
	}
	lr.penalty = next.penalty
	lr.C = next.C
	lr.fitIntercept = next.fitIntercept
	lr.randomState = next.randomState
	lr.maxIter = next.maxIter
	lr.tol = next.tol
	return nil
}

// Clone returns an unfitted model with the same hyperparameters.
func (lr *LogisticRegression) Clone() model.Tunable {
	c := NewLogisticRegression()
	_ = c.SetParams(lr.GetParams())
	return c
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
