package risk

import "sort"

// TreeNode is one node of a regression tree, stored in a flat array so the
// fitted model serializes to plain JSON. Internal nodes route on
// feature/threshold; leaves carry the additive score contribution.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// RegressionTree is a single shallow tree in the boosted ensemble
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Predict routes one feature vector to its leaf value
func (t *RegressionTree) Predict(x []float64) float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if x[node.Feature] < node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// treeBuilder grows one tree against the current boosting residuals
type treeBuilder struct {
	points    [][]float64
	gradients []float64 // y - p, per sample
	hessians  []float64 // p*(1-p), per sample
	weights   []float64 // sample weights (scale_pos_weight on positives)
	maxDepth  int

	// split gain accumulated per feature, feeds feature importances
	gains []float64
}

func (b *treeBuilder) build(samples []int) RegressionTree {
	tree := RegressionTree{}
	b.grow(&tree, samples, 0)
	return tree
}

// grow appends the subtree for the given samples and returns its node index
func (b *treeBuilder) grow(tree *RegressionTree, samples []int, depth int) int {
	idx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, TreeNode{})

	if depth >= b.maxDepth || len(samples) < 2 {
		tree.Nodes[idx] = TreeNode{Leaf: true, Value: b.leafValue(samples)}
		return idx
	}

	feature, threshold, gain, left, right := b.bestSplit(samples)
	if feature < 0 {
		tree.Nodes[idx] = TreeNode{Leaf: true, Value: b.leafValue(samples)}
		return idx
	}
	b.gains[feature] += gain

	leftIdx := b.grow(tree, left, depth+1)
	rightIdx := b.grow(tree, right, depth+1)
	tree.Nodes[idx] = TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      leftIdx,
		Right:     rightIdx,
	}
	return idx
}

// leafValue is the Newton step for weighted logistic loss:
// sum(w*(y-p)) / sum(w*p*(1-p))
func (b *treeBuilder) leafValue(samples []int) float64 {
	num, den := 0.0, 0.0
	for _, i := range samples {
		num += b.weights[i] * b.gradients[i]
		den += b.weights[i] * b.hessians[i]
	}
	if den < 1e-12 {
		return 0
	}
	return num / den
}

// bestSplit searches every feature and threshold for the split maximizing
// the second-order gain GL²/HL + GR²/HR − G²/H
func (b *treeBuilder) bestSplit(samples []int) (feature int, threshold, gain float64, left, right []int) {
	feature = -1

	var totalG, totalH float64
	for _, i := range samples {
		totalG += b.weights[i] * b.gradients[i]
		totalH += b.weights[i] * b.hessians[i]
	}
	if totalH < 1e-12 {
		return
	}
	parentScore := totalG * totalG / totalH

	dims := len(b.points[0])
	order := make([]int, len(samples))

	for f := 0; f < dims; f++ {
		copy(order, samples)
		sortByFeature(order, b.points, f)

		var leftG, leftH float64
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftG += b.weights[i] * b.gradients[i]
			leftH += b.weights[i] * b.hessians[i]

			cur := b.points[order[pos]][f]
			next := b.points[order[pos+1]][f]
			if cur == next {
				continue
			}

			rightG := totalG - leftG
			rightH := totalH - leftH
			if leftH < 1e-12 || rightH < 1e-12 {
				continue
			}

			score := leftG*leftG/leftH + rightG*rightG/rightH - parentScore
			if score > gain {
				gain = score
				feature = f
				threshold = (cur + next) / 2
			}
		}
	}

	if feature < 0 {
		return
	}

	for _, i := range samples {
		if b.points[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		feature = -1
	}
	return
}

func sortByFeature(order []int, points [][]float64, f int) {
	sort.SliceStable(order, func(a, b int) bool {
		return points[order[a]][f] < points[order[b]][f]
	})
}
