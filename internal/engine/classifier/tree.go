package classifier

// Node is a split of the form "x[FeatureIndex] < Threshold ?". Children are
// node indexes, or output indexes when the matching IsLeaf flag is set.
type Node struct {
	FeatureIndex int     `json:"feature_index"`
	Threshold    float64 `json:"threshold"`
	LeftChild    int     `json:"left_child"`
	LeftIsLeaf   bool    `json:"left_is_leaf"`
	RightChild   int     `json:"right_child"`
	RightIsLeaf  bool    `json:"right_is_leaf"`
}

// Tree is a regression tree stored as a flat node list. A tree without
// nodes is a single leaf, Outputs[0].
type Tree struct {
	Nodes   []Node    `json:"nodes"`
	Outputs []float64 `json:"outputs"`
}

// Leaf drops x down the tree and returns the index of the leaf it reaches.
func (t *Tree) Leaf(x []float64) int {
	if len(t.Nodes) == 0 {
		return 0
	}
	cur := t.Nodes[0]
	for {
		if x[cur.FeatureIndex] < cur.Threshold {
			if cur.LeftIsLeaf {
				return cur.LeftChild
			}
			cur = t.Nodes[cur.LeftChild]
		} else {
			if cur.RightIsLeaf {
				return cur.RightChild
			}
			cur = t.Nodes[cur.RightChild]
		}
	}
}

// Evaluate returns the output of the leaf x reaches.
func (t *Tree) Evaluate(x []float64) float64 {
	return t.Outputs[t.Leaf(x)]
}

// Ensemble sums the outputs of its trees on top of a constant base score.
type Ensemble struct {
	Base  float64 `json:"base"`
	Trees []Tree  `json:"trees"`
}

// Evaluate returns the raw additive score of x.
func (e *Ensemble) Evaluate(x []float64) float64 {
	sum := e.Base
	for i := range e.Trees {
		sum += e.Trees[i].Evaluate(x)
	}
	return sum
}
