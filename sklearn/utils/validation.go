// Package utils holds input validation shared by the estimators.
package utils

import (
	"math"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/pkg/errors"
)

// CheckXY validates a training pair: X must be non-empty, y must be a column
// vector with one row per sample of X.
func CheckXY(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	if X == nil || y == nil {
		return 0, 0, errors.NewValueError(op, "X and y must not be nil")
	}
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, errors.WithStack(errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return 0, 0, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	return nSamples, nFeatures, nil
}

// ClassLabels returns the sorted distinct labels of the column vector y.
// Labels must be integral.
func ClassLabels(op string, y mat.Matrix) ([]int, error) {
	rows, _ := y.Dims()
	labels := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, errors.NewValueError(op, "class labels must be integers")
		}
		labels = append(labels, int(v))
	}
	labels = lo.Uniq(labels)
	slices.Sort(labels)
	return labels, nil
}

// EncodeLabels maps every row of y to its index in classes.
func EncodeLabels(y mat.Matrix, classes []int) []int {
	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	rows, _ := y.Dims()
	encoded := make([]int, rows)
	for i := 0; i < rows; i++ {
		encoded[i] = index[int(y.At(i, 0))]
	}
	return encoded
}

// Column copies column j of m into a new slice.
func Column(m mat.Matrix, j int) []float64 {
	rows, _ := m.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = m.At(i, j)
	}
	return out
}

// SelectRows copies the given rows of m into a new dense matrix.
func SelectRows(m mat.Matrix, rows []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(rows), cols, nil)
	for i, r := range rows {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(r, j))
		}
	}
	return out
}

// SelectColumns copies the given columns of m into a new dense matrix.
func SelectColumns(m mat.Matrix, cols []int) *mat.Dense {
	rows, _ := m.Dims()
	out := mat.NewDense(rows, len(cols), nil)
	for i := 0; i < rows; i++ {
		for k, j := range cols {
			out.Set(i, k, m.At(i, j))
		}
	}
	return out
}
