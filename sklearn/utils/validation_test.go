package utils

import (
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/pkg/errors"
)

func TestCheckXY(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	if n, p, err := CheckXY("Fit", X, mat.NewDense(3, 1, nil)); err != nil || n != 3 || p != 2 {
		t.Errorf("CheckXY() = %d, %d, %v", n, p, err)
	}

	_, _, err := CheckXY("Fit", X, mat.NewDense(2, 1, nil))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
	if dimErr.Expected != 3 || dimErr.Got != 2 || dimErr.Axis != 0 {
		t.Errorf("unexpected DimensionError %+v", dimErr)
	}

	if _, _, err := CheckXY("Fit", &mat.Dense{}, &mat.Dense{}); !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
}

func TestClassLabels(t *testing.T) {
	y := mat.NewDense(5, 1, []float64{3, 1, 3, -2, 1})
	labels, err := ClassLabels("Fit", y)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(labels, []int{-2, 1, 3}) {
		t.Errorf("ClassLabels() = %v", labels)
	}
	if got := EncodeLabels(y, labels); !reflect.DeepEqual(got, []int{2, 1, 2, 0, 1}) {
		t.Errorf("EncodeLabels() = %v", got)
	}

	if _, err := ClassLabels("Fit", mat.NewDense(2, 1, []float64{0, 0.5})); err == nil {
		t.Error("expected error for fractional labels")
	}
}

func TestSelect(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	rows := SelectRows(m, []int{2, 0})
	if !mat.Equal(rows, mat.NewDense(2, 3, []float64{7, 8, 9, 1, 2, 3})) {
		t.Errorf("SelectRows() = %v", mat.Formatted(rows))
	}
	cols := SelectColumns(m, []int{1})
	if !mat.Equal(cols, mat.NewDense(3, 1, []float64{2, 5, 8})) {
		t.Errorf("SelectColumns() = %v", mat.Formatted(cols))
	}
}
