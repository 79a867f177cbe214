package gbm

import "math"

// Node is an internal split or a leaf of a boosted tree. Children index
// into Tree.Nodes; leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64 // leaf output before shrinkage
	Gain      float64
	Count     int
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool { return n.Left < 0 }

// Tree is a single regression tree on the gradient scale.
type Tree struct {
	Nodes []Node
}

// leafIndex returns the index of the leaf row x falls into. NaN goes left,
// matching the binning of missing values into bin 0.
func (t *Tree) leafIndex(x []float64) int {
	i := 0
	for !t.Nodes[i].IsLeaf() {
		nd := t.Nodes[i]
		v := x[nd.Feature]
		if math.IsNaN(v) || v <= nd.Threshold {
			i = nd.Left
		} else {
			i = nd.Right
		}
	}
	return i
}

// Predict returns the leaf value for x.
func (t *Tree) Predict(x []float64) float64 {
	return t.Nodes[t.leafIndex(x)].Value
}

// NumLeaves counts the leaves.
func (t *Tree) NumLeaves() int {
	c := 0
	for _, n := range t.Nodes {
		if n.IsLeaf() {
			c++
		}
	}
	return c
}

// Depth returns the depth of the deepest leaf (root = 0).
func (t *Tree) Depth() int {
	var walk func(i, d int) int
	walk = func(i, d int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return d
		}
		l, r := walk(n.Left, d+1), walk(n.Right, d+1)
		if l > r {
			return l
		}
		return r
	}
	return walk(0, 0)
}
