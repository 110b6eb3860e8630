package feature_selection

import (
	"context"
	"math/rand/v2"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/pkg/errors"
	"github.com/YuminosukeSato/rftune/pkg/log"
	"github.com/YuminosukeSato/rftune/sklearn/ensemble"
)

// meanCoefEstimator uses column means as coefficients and always predicts 1.
type meanCoefEstimator struct {
	coef []float64
}

func (m *meanCoefEstimator) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	m.coef = make([]float64, cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			m.coef[j] += X.At(i, j) / float64(rows)
		}
	}
	return nil
}

func (m *meanCoefEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, 1)
	}
	return out, nil
}

func (m *meanCoefEstimator) Coef() []float64                          { return slices.Clone(m.coef) }
func (m *meanCoefEstimator) GetParams() map[string]interface{}        { return map[string]interface{}{} }
func (m *meanCoefEstimator) SetParams(p map[string]interface{}) error { return nil }
func (m *meanCoefEstimator) Clone() model.Tunable                     { return &meanCoefEstimator{} }

// opaqueEstimator has neither coefficients nor importances.
type opaqueEstimator struct{}

func (o *opaqueEstimator) Fit(X, y mat.Matrix) error { return nil }
func (o *opaqueEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, _ := X.Dims()
	return mat.NewDense(rows, 1, nil), nil
}
func (o *opaqueEstimator) GetParams() map[string]interface{}        { return map[string]interface{}{} }
func (o *opaqueEstimator) SetParams(p map[string]interface{}) error { return nil }
func (o *opaqueEstimator) Clone() model.Tunable                     { return &opaqueEstimator{} }

// rankedColumns returns X whose column j is the constant j+1, so column means
// rank the features in column order, and alternating 0/1 labels.
func rankedColumns(n, nFeatures int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, nFeatures, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		y.Set(i, 0, float64(i%2))
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, float64(j+1))
		}
	}
	return X, y
}

// informativeData returns n samples whose label depends on feature 0 only.
func informativeData(n, nFeatures int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, nFeatures, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		y.Set(i, 0, label)
		X.Set(i, 0, label*2+rng.Float64()*0.5)
		for j := 1; j < nFeatures; j++ {
			X.Set(i, j, rng.Float64())
		}
	}
	return X, y
}

func isPermutation(ranking []int) bool {
	sorted := slices.Clone(ranking)
	slices.Sort(sorted)
	for i, r := range sorted {
		if r != i+1 {
			return false
		}
	}
	return true
}

func TestEliminationPath(t *testing.T) {
	tests := []struct {
		n, target, step int
		want            []int
	}{
		{4, 1, 1, []int{4, 3, 2, 1}},
		{5, 1, 2, []int{5, 3, 1}},
		{10, 3, 4, []int{10, 6, 3}},
		{3, 3, 1, []int{3}},
	}
	for _, tt := range tests {
		if got := eliminationPath(tt.n, tt.target, tt.step); !slices.Equal(got, tt.want) {
			t.Errorf("eliminationPath(%d, %d, %d) = %v, want %v", tt.n, tt.target, tt.step, got, tt.want)
		}
	}
}

func TestStepCount(t *testing.T) {
	tests := []struct {
		step    float64
		n       int
		want    int
		wantErr bool
	}{
		{1, 10, 1, false},
		{3, 10, 3, false},
		{0.25, 10, 2, false},
		{0.01, 10, 1, false},
		{0, 10, 0, true},
		{1.5, 10, 0, true},
	}
	for _, tt := range tests {
		got, err := stepCount(tt.step, tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("stepCount(%v, %d) error = %v, wantErr %v", tt.step, tt.n, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("stepCount(%v, %d) = %d, want %d", tt.step, tt.n, got, tt.want)
		}
	}
}

func TestRFE_Ranking(t *testing.T) {
	X, y := rankedColumns(10, 5)

	t.Run("step 1", func(t *testing.T) {
		rfe := NewRFE(&meanCoefEstimator{}, WithNFeaturesToSelect(2))
		if err := rfe.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		if want := []int{4, 3, 2, 1, 1}; !slices.Equal(rfe.Ranking(), want) {
			t.Errorf("Ranking() = %v, want %v", rfe.Ranking(), want)
		}
		if want := []bool{false, false, false, true, true}; !slices.Equal(rfe.Support(), want) {
			t.Errorf("Support() = %v, want %v", rfe.Support(), want)
		}
		if rfe.NFeatures() != 2 {
			t.Errorf("NFeatures() = %d, want 2", rfe.NFeatures())
		}
	})

	t.Run("step 2", func(t *testing.T) {
		rfe := NewRFE(&meanCoefEstimator{}, WithNFeaturesToSelect(1), WithStep(2))
		if err := rfe.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		if want := []int{3, 3, 2, 2, 1}; !slices.Equal(rfe.Ranking(), want) {
			t.Errorf("Ranking() = %v, want %v", rfe.Ranking(), want)
		}
	})

	t.Run("default keeps half", func(t *testing.T) {
		rfe := NewRFE(&meanCoefEstimator{})
		if err := rfe.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		if rfe.NFeatures() != 2 {
			t.Errorf("NFeatures() = %d, want 2", rfe.NFeatures())
		}
	})
}

func TestRFE_Transform(t *testing.T) {
	X, y := rankedColumns(6, 4)
	rfe := NewRFE(&meanCoefEstimator{}, WithNFeaturesToSelect(2))

	if _, err := rfe.Transform(X); err == nil {
		t.Fatal("Transform before Fit should fail")
	}
	if err := rfe.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	Xt, err := rfe.Transform(X)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if r, c := Xt.Dims(); r != 6 || c != 2 {
		t.Fatalf("Transform shape = (%d, %d), want (6, 2)", r, c)
	}
	if Xt.At(0, 0) != 3 || Xt.At(0, 1) != 4 {
		t.Errorf("Transform kept the wrong columns: %v %v", Xt.At(0, 0), Xt.At(0, 1))
	}
	if _, err := rfe.Transform(mat.NewDense(2, 3, nil)); err == nil {
		t.Error("expected dimension error")
	}
	pred, err := rfe.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if r, _ := pred.Dims(); r != 6 {
		t.Errorf("Predict returned %d rows", r)
	}
}

func TestRFE_Errors(t *testing.T) {
	X, y := rankedColumns(6, 4)
	var ve *errors.ValidationError

	if err := NewRFE(&opaqueEstimator{}).Fit(X, y); !errors.As(err, &ve) || ve.ParamName != "importance_getter" {
		t.Errorf("expected importance_getter ValidationError, got %v", err)
	}

	if err := NewRFE(&meanCoefEstimator{}, WithStep(0)).Fit(X, y); !errors.As(err, &ve) || ve.ParamName != "step" {
		t.Errorf("expected step ValidationError, got %v", err)
	}
	if err := NewRFE(&meanCoefEstimator{}, WithNFeaturesToSelect(-1)).Fit(X, y); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	var de *errors.DimensionError
	if err := NewRFE(&meanCoefEstimator{}).Fit(X, mat.NewDense(5, 1, nil)); !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}

func TestRFECV_TiesPreferFewerFeatures(t *testing.T) {
	X, y := rankedColumns(20, 4)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	rfecv := NewRFECV(&meanCoefEstimator{}, WithVerbose(1), WithLogger(logger))
	if err := rfecv.Fit(context.Background(), X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	// constant predictions score 0.5 at every size
	if rfecv.NFeatures() != 1 {
		t.Errorf("NFeatures() = %d, want 1", rfecv.NFeatures())
	}
	if want := []int{4, 3, 2, 1}; !slices.Equal(rfecv.Ranking(), want) {
		t.Errorf("Ranking() = %v, want %v", rfecv.Ranking(), want)
	}
	if want := []bool{false, false, false, true}; !slices.Equal(rfecv.Support(), want) {
		t.Errorf("Support() = %v, want %v", rfecv.Support(), want)
	}
	scores := rfecv.GridScores()
	if len(scores) != 4 {
		t.Fatalf("expected 4 grid scores, got %d", len(scores))
	}
	for i, s := range scores {
		if s != 0.5 {
			t.Errorf("score[%d] = %v, want 0.5", i, s)
		}
	}
	res := rfecv.CVResults()
	if !slices.Equal(res.NFeatures, []int{1, 2, 3, 4}) {
		t.Errorf("NFeatures = %v, want ascending 1..4", res.NFeatures)
	}
	if len(res.SplitTestScores[0]) != 5 {
		t.Errorf("expected 5 fold scores, got %d", len(res.SplitTestScores[0]))
	}

	// 5 folds x 4 sizes, plus 3 fits on the whole data
	if n := logger.CountMessages("Fitting estimator with 4 features."); n != 6 {
		t.Errorf("logged %d fits with 4 features, want 6", n)
	}
	if !logger.ContainsMessage("recursive feature elimination finished") {
		t.Error("missing summary log entry")
	}
}

func TestRFECV_MinFeatures(t *testing.T) {
	X, y := rankedColumns(20, 4)
	rfecv := NewRFECV(&meanCoefEstimator{}, WithMinFeaturesToSelect(2), WithNJobs(-1))
	if err := rfecv.Fit(context.Background(), X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if len(rfecv.GridScores()) != 3 {
		t.Errorf("expected 3 grid scores, got %d", len(rfecv.GridScores()))
	}
	if rfecv.NFeatures() != 2 {
		t.Errorf("NFeatures() = %d, want 2", rfecv.NFeatures())
	}
	if !isPermutation(rfecv.Ranking()) {
		t.Errorf("Ranking() = %v is not a permutation", rfecv.Ranking())
	}
	if want := []bool{false, false, true, true}; !slices.Equal(rfecv.Support(), want) {
		t.Errorf("Support() = %v, want %v", rfecv.Support(), want)
	}
}

func TestRFECV_Forest(t *testing.T) {
	X, y := informativeData(20, 4, 7)
	est := ensemble.NewRandomForestClassifierWithCoef(
		ensemble.WithNEstimators(15),
		ensemble.WithRandomState(3),
	)
	rfecv := NewRFECV(est, WithScoring("roc_auc"), WithNJobs(2))
	if err := rfecv.Fit(context.Background(), X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	ranking := rfecv.Ranking()
	if len(ranking) != 4 || !isPermutation(ranking) {
		t.Fatalf("Ranking() = %v, want a permutation of 1..4", ranking)
	}
	if ranking[0] != 1 {
		t.Errorf("informative feature ranked %d, want 1", ranking[0])
	}
	if n := rfecv.NFeatures(); n < 1 || n > 4 {
		t.Errorf("NFeatures() = %d, want 1..4", n)
	}
	if len(rfecv.Support()) != 4 || !rfecv.Support()[0] {
		t.Errorf("Support() = %v, want the informative feature selected", rfecv.Support())
	}
	if len(rfecv.GridScores()) != 4 {
		t.Errorf("expected 4 grid scores, got %d", len(rfecv.GridScores()))
	}
	Xt, err := rfecv.Transform(X)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if _, c := Xt.Dims(); c != rfecv.NFeatures() {
		t.Errorf("Transform kept %d columns, want %d", c, rfecv.NFeatures())
	}
}

func TestRFECV_Errors(t *testing.T) {
	X, y := rankedColumns(20, 4)
	var ve *errors.ValidationError

	tests := []struct {
		name  string
		est   model.Tunable
		opts  []Option
		param string
	}{
		{"no importances", &opaqueEstimator{}, nil, "importance_getter"},
		{"min features", &meanCoefEstimator{}, []Option{WithMinFeaturesToSelect(0)}, "min_features_to_select"},
		{"scoring", &meanCoefEstimator{}, []Option{WithScoring("nope")}, "scoring"},
		{"step", &meanCoefEstimator{}, []Option{WithStep(-1)}, "step"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRFECV(tt.est, tt.opts...).Fit(context.Background(), X, y)
			if !errors.As(err, &ve) || ve.ParamName != tt.param {
				t.Errorf("expected ValidationError for %s, got %v", tt.param, err)
			}
		})
	}

	t.Run("too few samples", func(t *testing.T) {
		Xs, ys := rankedColumns(4, 3)
		err := NewRFECV(&meanCoefEstimator{}).Fit(context.Background(), Xs, ys)
		var valErr *errors.ValueError
		if !errors.As(err, &valErr) {
			t.Errorf("expected ValueError, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewRFECV(&meanCoefEstimator{}).Fit(ctx, X, y)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
