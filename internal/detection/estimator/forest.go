package estimator

import (
	"fmt"
)

// forestSpec is the serialized form of a fitted random forest. Each tree is
// stored as flattened node arrays; a node whose left child is -1 is a leaf.
type forestSpec struct {
	Type        Kind       `json:"type"`
	NumFeatures int        `json:"n_features"`
	NumClasses  int        `json:"n_classes"`
	Trees       []treeSpec `json:"trees"`
}

type treeSpec struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// RandomForest is a fitted random forest classifier. Class probabilities are
// the mean of the per-tree leaf class distributions.
type RandomForest struct {
	trees       []*decisionTree
	numFeatures int
	numClasses  int
}

type decisionTree struct {
	root *dtNode
}

// dtNode is a node of a decision tree
type dtNode struct {
	feature     int       // Feature index for split
	threshold   float64   // Split threshold
	left        *dtNode   // Left child (feature <= threshold)
	right       *dtNode   // Right child (feature > threshold)
	isLeaf      bool
	probability []float64 // Class probabilities (for leaf nodes)
}

func newRandomForest(spec forestSpec) (*RandomForest, error) {
	if spec.NumFeatures <= 0 {
		return nil, fmt.Errorf("random forest n_features must be positive")
	}
	if spec.NumClasses < 2 {
		return nil, fmt.Errorf("random forest needs at least 2 classes, got %d", spec.NumClasses)
	}
	if len(spec.Trees) == 0 {
		return nil, fmt.Errorf("random forest has no trees")
	}

	rf := &RandomForest{
		trees:       make([]*decisionTree, 0, len(spec.Trees)),
		numFeatures: spec.NumFeatures,
		numClasses:  spec.NumClasses,
	}
	for i, ts := range spec.Trees {
		root, err := buildTree(ts, spec.NumFeatures, spec.NumClasses)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		rf.trees = append(rf.trees, &decisionTree{root: root})
	}
	return rf, nil
}

// buildTree links the flattened arrays into nodes. Children must come after
// their parent, which rules out cycles.
func buildTree(ts treeSpec, numFeatures, numClasses int) (*dtNode, error) {
	n := len(ts.ChildrenLeft)
	if n == 0 {
		return nil, fmt.Errorf("tree has no nodes")
	}
	if len(ts.ChildrenRight) != n || len(ts.Feature) != n || len(ts.Threshold) != n || len(ts.Value) != n {
		return nil, fmt.Errorf("tree arrays have mismatched lengths")
	}

	nodes := make([]*dtNode, n)
	for i := range nodes {
		nodes[i] = &dtNode{}
	}

	for i := 0; i < n; i++ {
		node := nodes[i]
		left, right := ts.ChildrenLeft[i], ts.ChildrenRight[i]

		if left == -1 {
			if right != -1 {
				return nil, fmt.Errorf("node %d has only one child", i)
			}
			probs, err := normalizeLeaf(ts.Value[i], numClasses)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			node.isLeaf = true
			node.probability = probs
			continue
		}

		if left <= i || right <= i || left >= n || right >= n {
			return nil, fmt.Errorf("node %d has invalid children %d/%d", i, left, right)
		}
		if ts.Feature[i] < 0 || ts.Feature[i] >= numFeatures {
			return nil, fmt.Errorf("node %d splits on unknown feature %d", i, ts.Feature[i])
		}
		node.feature = ts.Feature[i]
		node.threshold = ts.Threshold[i]
		node.left = nodes[left]
		node.right = nodes[right]
	}

	return nodes[0], nil
}

// normalizeLeaf turns leaf sample counts (or fractions) into probabilities
func normalizeLeaf(value []float64, numClasses int) ([]float64, error) {
	if len(value) != numClasses {
		return nil, fmt.Errorf("leaf has %d class values, want %d", len(value), numClasses)
	}
	if err := checkFinite("value", value); err != nil {
		return nil, err
	}
	total := 0.0
	for _, v := range value {
		if v < 0 {
			return nil, fmt.Errorf("leaf has negative class value")
		}
		total += v
	}
	if total == 0 {
		return nil, fmt.Errorf("leaf has no samples")
	}
	probs := make([]float64, numClasses)
	for c, v := range value {
		probs[c] = v / total
	}
	return probs, nil
}

// NumFeatures returns the expected row width
func (rf *RandomForest) NumFeatures() int { return rf.numFeatures }

// NumClasses returns the number of classes
func (rf *RandomForest) NumClasses() int { return rf.numClasses }

// PredictProba averages the leaf distributions of all trees
func (rf *RandomForest) PredictProba(row []float64) ([]float64, error) {
	if err := checkWidth(row, rf.numFeatures); err != nil {
		return nil, err
	}

	votes := make([]float64, rf.numClasses)
	for _, tree := range rf.trees {
		for c, p := range treePredictProba(tree.root, row) {
			votes[c] += p
		}
	}

	total := float64(len(rf.trees))
	for c := range votes {
		votes[c] /= total
	}
	return votes, nil
}

// Predict returns the class with the highest averaged probability
func (rf *RandomForest) Predict(row []float64) (int, error) {
	probs, err := rf.PredictProba(row)
	if err != nil {
		return 0, err
	}
	return argmax(probs), nil
}

func treePredictProba(node *dtNode, point []float64) []float64 {
	for !node.isLeaf {
		if point[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.probability
}
