package model_selection

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/core/model"
)

// separableData returns n samples with alternating labels. Feature 0 separates
// the classes, feature 1 is constant.
func separableData(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		y.Set(i, 0, label)
		X.Set(i, 0, label*2+rng.Float64()*0.5)
		X.Set(i, 1, 0.5)
	}
	return X, y
}

// constantEstimator predicts the label given by its single hyperparameter.
type constantEstimator struct {
	label  float64
	fitErr error
	fits   *int
}

func (c *constantEstimator) Fit(X, y mat.Matrix) error {
	if c.fitErr != nil {
		return c.fitErr
	}
	if c.fits != nil {
		*c.fits++
	}
	return nil
}

func (c *constantEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, c.label)
	}
	return out, nil
}

func (c *constantEstimator) GetParams() map[string]interface{} {
	return map[string]interface{}{"label": c.label}
}

func (c *constantEstimator) SetParams(params map[string]interface{}) error {
	next := *c
	for k, v := range params {
		if k != "label" {
			return model.UnknownParamError("constantEstimator", k, v)
		}
		f, err := model.ToFloat(k, v)
		if err != nil {
			return err
		}
		next.label = f
	}
	*c = next
	return nil
}

func (c *constantEstimator) Clone() model.Tunable {
	clone := *c
	return &clone
}
