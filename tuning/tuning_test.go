package tuning

import (
	"bytes"
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/pkg/errors"
	"github.com/YuminosukeSato/rftune/pkg/log"
	"github.com/YuminosukeSato/rftune/sklearn/ensemble"
	"github.com/YuminosukeSato/rftune/sklearn/linear_model"
	"github.com/YuminosukeSato/rftune/sklearn/tree"
)

// balancedData returns 20 samples with 4 features and 10/10 labels. The
// label depends on feature 0 only.
func balancedData(seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(20, 4, nil)
	y := mat.NewDense(20, 1, nil)
	for i := 0; i < 20; i++ {
		label := float64(i % 2)
		y.Set(i, 0, label)
		X.Set(i, 0, label*2+rng.Float64()*0.5)
		for j := 1; j < 4; j++ {
			X.Set(i, j, rng.Float64())
		}
	}
	return X, y
}

func TestOptimize_DefaultGrid(t *testing.T) {
	X, y := balancedData(1)
	var out bytes.Buffer
	total := 0

	res, err := Optimize(context.Background(), ensemble.NewRandomForestClassifierWithCoef(ensemble.WithRandomState(0)), X, y,
		WithWriter(&out),
		WithProgress(func(_, n int) { total = n }),
	)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if len(res.CVResults.Params) != 1 {
		t.Fatalf("expected one combination, got %d", len(res.CVResults.Params))
	}
	if len(res.CVResults.SplitTestScores[0]) != DefaultFolds {
		t.Errorf("expected %d fold scores, got %d", DefaultFolds, len(res.CVResults.SplitTestScores[0]))
	}
	if total != 1 {
		t.Errorf("progress total = %d, want 1", total)
	}
	want := model.Params{
		"n_estimators": 1000, "max_features": "auto", "max_depth": nil,
		"min_samples_split": 5, "min_samples_leaf": 1, "n_jobs": -1,
	}
	if res.BestParams.String() != want.String() {
		t.Errorf("BestParams = %v, want %v", res.BestParams, want)
	}
	if res.BestIndex != 0 {
		t.Errorf("BestIndex = %d, want 0", res.BestIndex)
	}
	if res.BestEstimator == nil {
		t.Error("best estimator was not refitted")
	}
	if !strings.HasPrefix(out.String(), "Best parameters: \n "+want.String()) {
		t.Errorf("unexpected report:\n%s", out.String())
	}
}

func TestOptimize_CustomGrid(t *testing.T) {
	X, y := balancedData(2)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	var out bytes.Buffer

	res, err := Optimize(context.Background(), tree.NewDecisionTreeClassifier(tree.WithRandomState(0)), X, y,
		WithParamGrid(model.ParamGrid{"max_depth": {1, 3}, "criterion": {"gini"}}),
		WithScoring("roc_auc"),
		WithVerbose(2),
		WithLogger(logger),
		WithWriter(&out),
	)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(res.CVResults.Params) != 2 {
		t.Errorf("expected 2 combinations, got %d", len(res.CVResults.Params))
	}
	if res.Scoring != "roc_auc" || res.Folds != 5 {
		t.Errorf("unexpected scoring %q / folds %d", res.Scoring, res.Folds)
	}
	if res.BestScore != 1.0 {
		t.Errorf("BestScore = %v, want 1", res.BestScore)
	}
	if logger.CountMessages("candidate evaluated") != 2 {
		t.Error("expected one log entry per candidate")
	}
	if !strings.Contains(out.String(), "max_depth: 3") {
		t.Errorf("report does not list every combination:\n%s", out.String())
	}
}

func TestOptimize_Errors(t *testing.T) {
	X, y := balancedData(3)
	var out bytes.Buffer

	_, err := Optimize(context.Background(), ensemble.NewRandomForestClassifierWithCoef(), X, y,
		WithParamGrid(model.ParamGrid{"n_trees": {10}}), WithWriter(&out))
	var ve *errors.ValidationError
	if !errors.As(err, &ve) || ve.ParamName != "n_trees" {
		t.Errorf("expected ValidationError for n_trees, got %v", err)
	}

	_, err = Optimize(context.Background(), ensemble.NewRandomForestClassifierWithCoef(), X, mat.NewDense(19, 1, nil),
		WithParamGrid(model.ParamGrid{"n_estimators": {5}}), WithWriter(&out))
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be reported on failure, got %q", out.String())
	}
}

func TestRecursiveFeatureElimination(t *testing.T) {
	X, y := balancedData(4)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	var out bytes.Buffer

	res, err := RecursiveFeatureElimination(context.Background(),
		ensemble.NewRandomForestClassifierWithCoef(ensemble.WithRandomState(0)), X, y,
		WithWriter(&out), WithLogger(logger))
	if err != nil {
		t.Fatalf("RecursiveFeatureElimination failed: %v", err)
	}

	if len(res.Ranking) != 4 || len(res.Support) != 4 {
		t.Fatalf("ranking %v / support %v must have length 4", res.Ranking, res.Support)
	}
	sorted := slices.Clone(res.Ranking)
	slices.Sort(sorted)
	if !slices.Equal(sorted, []int{1, 2, 3, 4}) {
		t.Errorf("ranking %v is not a permutation of 1..4", res.Ranking)
	}
	if res.NFeatures < 1 || res.NFeatures > 4 {
		t.Errorf("NFeatures = %d, want 1..4", res.NFeatures)
	}
	if len(res.GridScores) != 4 {
		t.Errorf("expected 4 grid scores, got %d", len(res.GridScores))
	}
	selected := 0
	for j, s := range res.Support {
		if s {
			selected++
		}
		if s != (res.Ranking[j] <= res.NFeatures) {
			t.Errorf("support[%d] = %v disagrees with ranking %d", j, s, res.Ranking[j])
		}
	}
	if selected != res.NFeatures {
		t.Errorf("%d features selected, want %d", selected, res.NFeatures)
	}
	if res.Scoring != "roc_auc" {
		t.Errorf("default scoring = %q, want roc_auc", res.Scoring)
	}

	for _, want := range []string{"selector support:", "selector ranking:", "Optimal number of features:", "Selector grid scores:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report is missing %q:\n%s", want, out.String())
		}
	}
	if !logger.ContainsMessage("Fitting estimator with 4 features.") {
		t.Error("verbose progress is on by default")
	}
}

func TestRecursiveFeatureElimination_Coef(t *testing.T) {
	X, y := balancedData(5)
	var out bytes.Buffer
	res, err := RecursiveFeatureElimination(context.Background(),
		linear_model.NewLogisticRegression(linear_model.WithLRRandomState(0)), X, y,
		WithWriter(&out), WithVerbose(0), WithStep(2), WithFolds(4))
	if err != nil {
		t.Fatalf("RecursiveFeatureElimination failed: %v", err)
	}
	// sizes 4, 2 and the min_features_to_select floor of 1
	if len(res.GridScores) != 3 {
		t.Errorf("expected 3 grid scores, got %d", len(res.GridScores))
	}
	if want := []int{1, 2, 4}; !slices.Equal(res.CVResults.NFeatures, want) {
		t.Errorf("NFeatures = %v, want %v", res.CVResults.NFeatures, want)
	}
	if len(res.CVResults.SplitTestScores[0]) != 4 {
		t.Errorf("expected 4 folds, got %d", len(res.CVResults.SplitTestScores[0]))
	}
}

type opaque struct{}

func (opaque) Fit(X, y mat.Matrix) error                { return nil }
func (opaque) Predict(X mat.Matrix) (mat.Matrix, error) { return X, nil }
func (opaque) GetParams() map[string]interface{}        { return nil }
func (opaque) SetParams(map[string]interface{}) error   { return nil }
func (o opaque) Clone() model.Tunable                   { return o }

func TestRecursiveFeatureElimination_Errors(t *testing.T) {
	X, y := balancedData(6)
	var out bytes.Buffer

	_, err := RecursiveFeatureElimination(context.Background(), opaque{}, X, y, WithWriter(&out))
	var ve *errors.ValidationError
	if !errors.As(err, &ve) || ve.ParamName != "importance_getter" {
		t.Errorf("expected importance_getter ValidationError, got %v", err)
	}

	_, err = RecursiveFeatureElimination(context.Background(), ensemble.NewRandomForestClassifierWithCoef(),
		mat.NewDense(4, 4, nil), mat.NewDense(4, 1, []float64{0, 1, 0, 1}), WithWriter(&out), WithVerbose(0))
	var valErr *errors.ValueError
	if !errors.As(err, &valErr) {
		t.Errorf("expected ValueError for too few samples, got %v", err)
	}
}

func TestWrappers_SmallClasses(t *testing.T) {
	// 5 rows with 3/2 labels: no class can fill 5 stratified folds.
	X := mat.NewDense(5, 2, []float64{
		0.1, 0.9,
		0.2, 0.4,
		0.3, 0.7,
		1.1, 0.2,
		1.2, 0.8,
	})
	y := mat.NewDense(5, 1, []float64{0, 0, 0, 1, 1})
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	var out bytes.Buffer
	grid := model.ParamGrid{"n_estimators": {5}}
	if _, err := Optimize(context.Background(), ensemble.NewRandomForestClassifierWithCoef(ensemble.WithRandomState(1)), X, y,
		WithParamGrid(grid), WithWriter(&out)); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	res, err := RecursiveFeatureElimination(context.Background(),
		ensemble.NewRandomForestClassifierWithCoef(ensemble.WithNEstimators(5), ensemble.WithRandomState(1)), X, y,
		WithWriter(&out), WithVerbose(0))
	if err != nil {
		t.Fatalf("RecursiveFeatureElimination failed: %v", err)
	}
	if len(res.GridScores) != 2 || len(res.Ranking) != 2 {
		t.Errorf("GridScores = %v, Ranking = %v", res.GridScores, res.Ranking)
	}
	// single-sample test folds leave roc_auc undefined
	if len(warnings) == 0 {
		t.Error("expected UndefinedMetricWarning for single-class folds")
	}
}
