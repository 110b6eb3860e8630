package tree

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
)

// featureThreshold is the minimum gap between two feature values for a
// threshold to be placed between them.
const featureThreshold = 1e-7

// builder grows a tree depth first.
type builder struct {
	cols     [][]float64 // column-major copy of X
	y        []int       // encoded labels
	w        []float64   // sample weights
	nClasses int
	impurity impurityFunc

	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	rng             *rand.Rand

	importances []float64
	depth       int
	leaves      int
}

type split struct {
	feature   int
	threshold float64
	// weighted impurity of the children, sum of w*impurity
	childImpurity float64
}

func (b *builder) build(idx []int, depth int) *node {
	counts, total := b.classCounts(idx)
	imp := b.impurity(counts, total)

	value := make([]float64, b.nClasses)
	for k, c := range counts {
		value[k] = c / total
	}
	nd := &node{feature: -1, value: value}
	if depth > b.depth {
		b.depth = depth
	}

	if (b.maxDepth > 0 && depth >= b.maxDepth) ||
		len(idx) < b.minSamplesSplit ||
		len(idx) < 2*b.minSamplesLeaf ||
		imp <= 1e-12 {
		b.leaves++
		return nd
	}

	sp, ok := b.bestSplit(idx, counts, total)
	if !ok {
		b.leaves++
		return nd
	}

	b.importances[sp.feature] += total*imp - sp.childImpurity

	col := b.cols[sp.feature]
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if col[i] <= sp.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	nd.feature = sp.feature
	nd.threshold = sp.threshold
	nd.left = b.build(left, depth+1)
	nd.right = b.build(right, depth+1)
	return nd
}

func (b *builder) classCounts(idx []int) ([]float64, float64) {
	counts := make([]float64, b.nClasses)
	total := 0.0
	for _, i := range idx {
		counts[b.y[i]] += b.w[i]
		total += b.w[i]
	}
	return counts, total
}

// bestSplit scans features in a random order. At least maxFeatures features
// are inspected; the scan goes on past that count only while no valid split
// has been found.
func (b *builder) bestSplit(idx []int, counts []float64, total float64) (split, bool) {
	best := split{childImpurity: math.Inf(1)}
	found := false

	sorted := make([]int, len(idx))
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)

	for visited, f := range b.rng.Perm(len(b.cols)) {
		if visited >= b.maxFeatures && found {
			break
		}
		col := b.cols[f]
		copy(sorted, idx)
		slices.SortFunc(sorted, func(a, c int) int { return cmp.Compare(col[a], col[c]) })
		if col[sorted[len(sorted)-1]] <= col[sorted[0]]+featureThreshold {
			continue // constant feature
		}

		clear(leftCounts)
		leftW := 0.0
		for p := 0; p < len(sorted)-1; p++ {
			i := sorted[p]
			leftCounts[b.y[i]] += b.w[i]
			leftW += b.w[i]

			nLeft := p + 1
			if nLeft < b.minSamplesLeaf {
				continue
			}
			if len(sorted)-nLeft < b.minSamplesLeaf {
				break
			}
			next := col[sorted[p+1]]
			if next <= col[i]+featureThreshold {
				continue
			}

			for k := range rightCounts {
				rightCounts[k] = counts[k] - leftCounts[k]
			}
			rightW := total - leftW
			score := leftW*b.impurity(leftCounts, leftW) + rightW*b.impurity(rightCounts, rightW)
			if score < best.childImpurity {
				best = split{
					feature:       f,
					threshold:     col[i] + (next-col[i])/2,
					childImpurity: score,
				}
				found = true
			}
		}
	}
	return best, found
}
