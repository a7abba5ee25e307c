// internal/ml/tree.go
package ml

import (
	"math"
	"sort"
)

// Split criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// Hyperparameters for the decision tree classifier.
type Hyperparameters struct {
	MaxDepth        int    `json:"maxDepth"`
	MinSamplesLeaf  int    `json:"minSamplesLeaf"`
	MinSamplesSplit int    `json:"minSamplesSplit"`
	Criterion       string `json:"criterion"`
}

func (hp *Hyperparameters) normalize() {
	if hp.MaxDepth <= 0 {
		hp.MaxDepth = 5
	}
	if hp.MinSamplesLeaf <= 0 {
		hp.MinSamplesLeaf = 1
	}
	if hp.MinSamplesSplit <= 0 {
		hp.MinSamplesSplit = 2
	}
	if hp.Criterion != CriterionEntropy {
		hp.Criterion = CriterionGini
	}
}

// treeNode is one node of a trained CART tree. Leaves carry the majority
// class; internal nodes split on feature <= threshold.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	leaf      bool
	class     string
}

func (n *treeNode) predict(sample []float64) string {
	node := n
	for !node.leaf {
		if sample[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.class
}

func buildTree(X [][]float64, y []string, hp Hyperparameters, depth int) *treeNode {
	if depth >= hp.MaxDepth || len(y) < hp.MinSamplesSplit || isPure(y) {
		return &treeNode{leaf: true, class: majorityClass(y)}
	}

	feature, threshold, ok := bestSplit(X, y, hp)
	if !ok {
		return &treeNode{leaf: true, class: majorityClass(y)}
	}

	var leftX, rightX [][]float64
	var leftY, rightY []string
	for i, sample := range X {
		if sample[feature] <= threshold {
			leftX = append(leftX, sample)
			leftY = append(leftY, y[i])
		} else {
			rightX = append(rightX, sample)
			rightY = append(rightY, y[i])
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(leftX, leftY, hp, depth+1),
		right:     buildTree(rightX, rightY, hp, depth+1),
	}
}

// bestSplit scans candidate thresholds (midpoints between consecutive
// distinct feature values) and returns the split minimizing weighted
// impurity, honoring MinSamplesLeaf on both sides.
func bestSplit(X [][]float64, y []string, hp Hyperparameters) (int, float64, bool) {
	bestImpurity := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0
	numFeatures := len(X[0])

	for feature := 0; feature < numFeatures; feature++ {
		values := make([]float64, len(X))
		for i, sample := range X {
			values[i] = sample[feature]
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			threshold := (values[i] + values[i-1]) / 2

			leftCounts := map[string]int{}
			rightCounts := map[string]int{}
			leftTotal, rightTotal := 0, 0
			for j, sample := range X {
				if sample[feature] <= threshold {
					leftCounts[y[j]]++
					leftTotal++
				} else {
					rightCounts[y[j]]++
					rightTotal++
				}
			}
			if leftTotal < hp.MinSamplesLeaf || rightTotal < hp.MinSamplesLeaf {
				continue
			}

			weighted := (float64(leftTotal)*impurity(leftCounts, leftTotal, hp.Criterion) +
				float64(rightTotal)*impurity(rightCounts, rightTotal, hp.Criterion)) /
				float64(len(y))
			if weighted < bestImpurity {
				bestImpurity = weighted
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func impurity(counts map[string]int, total int, criterion string) float64 {
	if total == 0 {
		return 0
	}
	switch criterion {
	case CriterionEntropy:
		entropy := 0.0
		for _, count := range counts {
			p := float64(count) / float64(total)
			entropy -= p * math.Log2(p)
		}
		return entropy
	default: // gini
		gini := 1.0
		for _, count := range counts {
			p := float64(count) / float64(total)
			gini -= p * p
		}
		return gini
	}
}

func isPure(y []string) bool {
	for _, label := range y[1:] {
		if label != y[0] {
			return false
		}
	}
	return true
}

func majorityClass(y []string) string {
	counts := map[string]int{}
	best, bestCount := "", -1
	for _, label := range y {
		counts[label]++
		// Ties resolve to the first label reaching the count, keeping the
		// result deterministic for a fixed row order.
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	return best
}
