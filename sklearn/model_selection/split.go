// Package model_selection provides k-fold splitters, cross-validated scoring
// and exhaustive grid search over estimator hyperparameters.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/pkg/errors"
)

// Splitter defines interface for cross-validation splitters
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	GetNSplits() int
}

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits samples into consecutive folds without regard to labels.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. The first
// nSamples % NSplits folds get one extra sample.
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits("KFold.Split", kf.NSplits, nSamples); err != nil {
		return nil, err
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	testFold := make([]int, nSamples)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		for _, idx := range indices[current : current+testSize] {
			testFold[idx] = i
		}
		current += testSize
	}
	return foldsFromAssignment(testFold, kf.NSplits), nil
}

// StratifiedKFold splits samples so that every fold keeps approximately the
// class proportions of y.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold.
//
// Labels are sorted and dealt round-robin over the folds to decide how many
// samples of each class every fold receives; the samples of a class are then
// assigned to folds in their original order (or shuffled with Shuffle).
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits("StratifiedKFold.Split", skf.NSplits, nSamples); err != nil {
		return nil, err
	}
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "y is required for stratification")
	}
	if rows, _ := y.Dims(); rows != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", nSamples, rows, 0)
	}

	// encode classes in order of first appearance
	encoded := make([]int, nSamples)
	classOf := make(map[float64]int)
	var counts []int
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		k, ok := classOf[label]
		if !ok {
			k = len(counts)
			classOf[label] = k
			counts = append(counts, 0)
		}
		encoded[i] = k
		counts[k]++
	}

	if slices.Max(counts) < skf.NSplits {
		return nil, errors.NewValueError("StratifiedKFold.Split", fmt.Sprintf(
			"n_splits=%d cannot be greater than the number of members in each class", skf.NSplits))
	}
	if least := slices.Min(counts); least < skf.NSplits {
		errors.Warn(errors.NewValueError("StratifiedKFold.Split", fmt.Sprintf(
			"the least populated class in y has only %d members, which is less than n_splits=%d",
			least, skf.NSplits)))
	}

	order := slices.Clone(encoded)
	slices.Sort(order)
	allocation := make([][]int, skf.NSplits)
	for i := range allocation {
		allocation[i] = make([]int, len(counts))
		for p := i; p < nSamples; p += skf.NSplits {
			allocation[i][order[p]]++
		}
	}

	var r *rand.Rand
	if skf.Shuffle {
		r = rand.New(rand.NewPCG(uint64(skf.RandomSeed), uint64(skf.RandomSeed)))
	}
	testFold := make([]int, nSamples)
	for k := range counts {
		foldsForClass := make([]int, 0, counts[k])
		for i := 0; i < skf.NSplits; i++ {
			for c := 0; c < allocation[i][k]; c++ {
				foldsForClass = append(foldsForClass, i)
			}
		}
		if r != nil {
			r.Shuffle(len(foldsForClass), func(a, b int) {
				foldsForClass[a], foldsForClass[b] = foldsForClass[b], foldsForClass[a]
			})
		}
		m := 0
		for i := 0; i < nSamples; i++ {
			if encoded[i] == k {
				testFold[i] = foldsForClass[m]
				m++
			}
		}
	}
	return foldsFromAssignment(testFold, skf.NSplits), nil
}

func checkSplits(op string, nSplits, nSamples int) error {
	if nSplits < 2 {
		return errors.NewValidationError("n_splits", "k-fold cross-validation requires at least 2 splits", nSplits)
	}
	if nSplits > nSamples {
		return errors.NewValueError(op, fmt.Sprintf(
			"cannot have number of splits n_splits=%d greater than the number of samples: n_samples=%d",
			nSplits, nSamples))
	}
	return nil
}

func foldsFromAssignment(testFold []int, nSplits int) []Fold {
	folds := make([]Fold, nSplits)
	for idx, f := range testFold {
		for i := range folds {
			if i == f {
				folds[i].TestIndices = append(folds[i].TestIndices, idx)
			} else {
				folds[i].TrainIndices = append(folds[i].TrainIndices, idx)
			}
		}
	}
	return folds
}

// CheckCV returns the default splitter for nSplits folds: StratifiedKFold
// when the estimator is a classifier and y holds integral class labels,
// KFold otherwise. Neither shuffles.
// Stratification also falls back to KFold when no class has nSplits members.
func CheckCV(nSplits int, y mat.Matrix, classifier bool) Splitter {
	if classifier && y != nil && isClassTarget(y) && largestClass(y) >= nSplits {
		return NewStratifiedKFold(nSplits, false, 0)
	}
	return NewKFold(nSplits, false, 0)
}

func largestClass(y mat.Matrix) int {
	rows, _ := y.Dims()
	counts := make(map[float64]int)
	largest := 0
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		counts[v]++
		largest = max(largest, counts[v])
	}
	return largest
}

func isClassTarget(y mat.Matrix) bool {
	rows, cols := y.Dims()
	if rows == 0 || cols != 1 {
		return false
	}
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
