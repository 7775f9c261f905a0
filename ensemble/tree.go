package ensemble

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/priceml/core/parallel"
)

// treeNode is a node in a regression tree. Leaves carry the mean residual of
// the samples routed to them; internal nodes carry an axis-aligned split.
type treeNode struct {
	Feature   int
	Threshold float64
	Left      *treeNode
	Right     *treeNode
	Value     float64
	IsLeaf    bool
}

// regressionTree is a depth-limited CART regression tree fit on residuals.
type regressionTree struct {
	Root     *treeNode
	MaxDepth int
	MinLeaf  int
}

// splitCandidate is the best split found for a single feature.
type splitCandidate struct {
	feature   int
	threshold float64
	gain      float64
	valid     bool
}

// sequentialSplitThreshold keeps small node evaluations on one goroutine.
const sequentialSplitThreshold = 8

// fitTree grows a regression tree on the given sample indices. Only the
// features listed in featureIdx are considered for splits.
func fitTree(X mat.Matrix, target []float64, indices []int, featureIdx []int, maxDepth, minLeaf int) *regressionTree {
	t := &regressionTree{MaxDepth: maxDepth, MinLeaf: minLeaf}
	t.Root = t.grow(X, target, indices, featureIdx, 0)
	return t
}

func (t *regressionTree) grow(X mat.Matrix, target []float64, indices []int, featureIdx []int, depth int) *treeNode {
	leafValue := meanAt(target, indices)

	if depth >= t.MaxDepth || len(indices) < 2*t.MinLeaf {
		return &treeNode{IsLeaf: true, Value: leafValue}
	}

	best := t.bestSplit(X, target, indices, featureIdx)
	if !best.valid {
		return &treeNode{IsLeaf: true, Value: leafValue}
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if X.At(idx, best.feature) <= best.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	return &treeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      t.grow(X, target, left, featureIdx, depth+1),
		Right:     t.grow(X, target, right, featureIdx, depth+1),
		Value:     leafValue,
	}
}

// bestSplit searches every candidate feature for the split with the largest
// variance reduction. Features are scanned in parallel; the reduction over
// per-feature results is sequential so ties always resolve to the lowest
// feature index regardless of scheduling.
func (t *regressionTree) bestSplit(X mat.Matrix, target []float64, indices []int, featureIdx []int) splitCandidate {
	results := make([]splitCandidate, len(featureIdx))

	parallel.ParallelizeWithThreshold(len(featureIdx), sequentialSplitThreshold, func(start, end int) {
		for f := start; f < end; f++ {
			results[f] = t.bestSplitForFeature(X, target, indices, featureIdx[f])
		}
	})

	best := splitCandidate{}
	for _, cand := range results {
		if cand.valid && (!best.valid || cand.gain > best.gain) {
			best = cand
		}
	}
	return best
}

func (t *regressionTree) bestSplitForFeature(X mat.Matrix, target []float64, indices []int, feature int) splitCandidate {
	n := len(indices)

	ordered := make([]int, n)
	copy(ordered, indices)
	sort.Slice(ordered, func(i, j int) bool {
		return X.At(ordered[i], feature) < X.At(ordered[j], feature)
	})

	var total float64
	for _, idx := range ordered {
		total += target[idx]
	}

	// Scan split positions with running prefix sums. Variance reduction for a
	// fixed node reduces to maximizing sumL²/nL + sumR²/nR.
	best := splitCandidate{feature: feature}
	var sumLeft float64
	for i := 0; i < n-1; i++ {
		sumLeft += target[ordered[i]]
		nLeft := i + 1
		nRight := n - nLeft

		if nLeft < t.MinLeaf || nRight < t.MinLeaf {
			continue
		}

		cur := X.At(ordered[i], feature)
		next := X.At(ordered[i+1], feature)
		if cur == next {
			continue
		}

		sumRight := total - sumLeft
		gain := sumLeft*sumLeft/float64(nLeft) + sumRight*sumRight/float64(nRight) - total*total/float64(n)
		if gain > best.gain || !best.valid {
			best.gain = gain
			best.threshold = cur + (next-cur)/2
			best.valid = gain > 1e-12
		}
	}
	return best
}

// predictRow routes a single row to a leaf value.
func (t *regressionTree) predictRow(X mat.Matrix, row int) float64 {
	node := t.Root
	for !node.IsLeaf {
		if X.At(row, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

func meanAt(values []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	var sum float64
	for _, idx := range indices {
		sum += values[idx]
	}
	return sum / float64(len(indices))
}

// numLeaves counts the leaves of the tree, mostly for diagnostics.
func (t *regressionTree) numLeaves() int {
	var count func(n *treeNode) int
	count = func(n *treeNode) int {
		if n == nil {
			return 0
		}
		if n.IsLeaf {
			return 1
		}
		return count(n.Left) + count(n.Right)
	}
	return count(t.Root)
}
