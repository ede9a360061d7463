package classifier

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

var gbdtParams = []string{
	"n_estimators", "learning_rate", "num_leaves", "max_depth", "min_child_samples",
	"min_child_weight", "min_split_gain", "reg_lambda", "max_bin", "random_state",
}

// GradientBoosting is a binary log-loss boosted tree ensemble. Trees grow
// leaf-wise, always splitting the leaf with the largest gain, over features
// bucketed into histogram bins.
type GradientBoosting struct {
	nEstimators     int
	learningRate    float64
	numLeaves       int
	maxDepth        int
	minChildSamples int
	minChildWeight  float64
	minSplitGain    float64
	lambda          float64
	maxBin          int

	Model Ensemble
}

func newGBDT(p Params) (*GradientBoosting, error) {
	if err := p.check(gbdtParams); err != nil {
		return nil, err
	}
	r := reader{p: p}
	g := &GradientBoosting{
		nEstimators:     r.int("n_estimators", 100),
		learningRate:    r.float("learning_rate", 0.1),
		numLeaves:       r.int("num_leaves", 31),
		maxDepth:        r.int("max_depth", -1),
		minChildSamples: r.int("min_child_samples", 20),
		minChildWeight:  r.float("min_child_weight", 1e-3),
		minSplitGain:    r.float("min_split_gain", 0),
		lambda:          r.float("reg_lambda", 0),
		maxBin:          r.int("max_bin", 255),
	}
	// random_state is accepted for grid compatibility; training has no random steps.
	_ = r.int("random_state", 0)
	if r.err != nil {
		return nil, r.err
	}
	switch {
	case g.nEstimators <= 0:
		return nil, fmt.Errorf("classifier: n_estimators must be positive, got %d", g.nEstimators)
	case g.numLeaves < 2:
		return nil, fmt.Errorf("classifier: num_leaves must be at least 2, got %d", g.numLeaves)
	case g.maxBin < 2 || g.maxBin > math.MaxUint16:
		return nil, fmt.Errorf("classifier: max_bin %d out of range", g.maxBin)
	case g.learningRate <= 0:
		return nil, fmt.Errorf("classifier: learning_rate must be positive")
	}
	return g, nil
}

// binner maps feature values to histogram bins. Bin b of feature f holds
// values in [edges[f][b-1], edges[f][b]).
type binner struct {
	edges [][]float64
}

func newBinner(X [][]float64, d, maxBin int) *binner {
	b := &binner{edges: make([][]float64, d)}
	col := make([]float64, len(X))
	for f := 0; f < d; f++ {
		for i, row := range X {
			col[i] = row[f]
		}
		sort.Float64s(col)
		distinct := col[:0:0]
		for i, v := range col {
			if i == 0 || v != col[i-1] {
				distinct = append(distinct, v)
			}
		}
		var edges []float64
		if len(distinct) <= maxBin {
			for i := 1; i < len(distinct); i++ {
				edges = append(edges, (distinct[i-1]+distinct[i])/2)
			}
		} else {
			for k := 1; k < maxBin; k++ {
				v := col[k*len(col)/maxBin]
				if v > col[0] && (len(edges) == 0 || v > edges[len(edges)-1]) {
					edges = append(edges, v)
				}
			}
		}
		b.edges[f] = edges
	}
	return b
}

func (b *binner) bin(f int, v float64) uint16 {
	e := b.edges[f]
	return uint16(sort.Search(len(e), func(i int) bool { return v < e[i] }))
}

type split struct {
	feature int
	bin     uint16 // rows with bin <= this go left
	gain    float64
}

type leaf struct {
	rows   []int
	depth  int
	parent int // node index, -1 for the root
	left   bool
	best   split
	g, h   float64
}

// hessEps keeps leaf outputs finite once every row's hessian underflows.
const hessEps = 1e-15

// Fit implements Classifier. Single-class labels give a constant model.
func (m *GradientBoosting) Fit(X [][]float64, y []int) error {
	n, d, err := validate(X, y)
	if err != nil {
		return err
	}
	bins := newBinner(X, d, m.maxBin)
	binned := make([][]uint16, d)
	for f := 0; f < d; f++ {
		binned[f] = make([]uint16, n)
		for i, row := range X {
			binned[f][i] = bins.bin(f, row[f])
		}
	}

	var pos float64
	for _, v := range y {
		pos += float64(v)
	}
	p := math.Min(math.Max(pos/float64(n), probEps), 1-probEps)
	m.Model = Ensemble{Base: math.Log(p / (1 - p))}
	if !bothClasses(y) {
		slog.Debug("gbdt fitted on a single class", "base", m.Model.Base)
		return nil
	}

	score := make([]float64, n)
	for i := range score {
		score[i] = m.Model.Base
	}
	grad, hess := make([]float64, n), make([]float64, n)
	for it := 0; it < m.nEstimators; it++ {
		for i := range score {
			pr := sigmoid(score[i])
			grad[i] = pr - float64(y[i])
			hess[i] = pr * (1 - pr)
		}
		tree, assign := m.grow(binned, bins, grad, hess)
		for i := range score {
			score[i] += tree.Outputs[assign[i]]
		}
		m.Model.Trees = append(m.Model.Trees, tree)
	}
	slog.Debug("gbdt fitted", "trees", len(m.Model.Trees), "features", d)
	return nil
}

// grow builds one tree and returns it with the leaf index of every row.
func (m *GradientBoosting) grow(binned [][]uint16, bins *binner, grad, hess []float64) (Tree, []int) {
	n := len(grad)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	root := &leaf{rows: all, parent: -1}
	m.sums(root, grad, hess)
	m.findSplit(root, binned, grad, hess)
	leaves := []*leaf{root}

	var tree Tree
	for len(leaves) < m.numLeaves {
		bestIdx := -1
		for i, l := range leaves {
			if l.best.gain > m.minSplitGain && (bestIdx < 0 || l.best.gain > leaves[bestIdx].best.gain) {
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		l := leaves[bestIdx]
		s := l.best

		node := len(tree.Nodes)
		tree.Nodes = append(tree.Nodes, Node{
			FeatureIndex: s.feature,
			Threshold:    bins.edges[s.feature][s.bin],
			LeftChild:    bestIdx,
			LeftIsLeaf:   true,
			RightChild:   len(leaves),
			RightIsLeaf:  true,
		})
		if l.parent >= 0 {
			if l.left {
				tree.Nodes[l.parent].LeftChild, tree.Nodes[l.parent].LeftIsLeaf = node, false
			} else {
				tree.Nodes[l.parent].RightChild, tree.Nodes[l.parent].RightIsLeaf = node, false
			}
		}

		var lrows, rrows []int
		col := binned[s.feature]
		for _, i := range l.rows {
			if col[i] <= s.bin {
				lrows = append(lrows, i)
			} else {
				rrows = append(rrows, i)
			}
		}
		left := &leaf{rows: lrows, depth: l.depth + 1, parent: node, left: true}
		right := &leaf{rows: rrows, depth: l.depth + 1, parent: node}
		for _, c := range []*leaf{left, right} {
			m.sums(c, grad, hess)
			m.findSplit(c, binned, grad, hess)
		}
		leaves[bestIdx] = left
		leaves = append(leaves, right)
	}

	tree.Outputs = make([]float64, len(leaves))
	assign := make([]int, n)
	for k, l := range leaves {
		tree.Outputs[k] = -l.g / (l.h + m.lambda + hessEps) * m.learningRate
		for _, i := range l.rows {
			assign[i] = k
		}
	}
	return tree, assign
}

func (m *GradientBoosting) sums(l *leaf, grad, hess []float64) {
	for _, i := range l.rows {
		l.g += grad[i]
		l.h += hess[i]
	}
}

// findSplit scans every feature histogram of l for the split with the
// largest loss reduction that respects the child size limits.
func (m *GradientBoosting) findSplit(l *leaf, binned [][]uint16, grad, hess []float64) {
	l.best = split{gain: math.Inf(-1)}
	if m.maxDepth > 0 && l.depth >= m.maxDepth {
		return
	}
	if len(l.rows) < 2*m.minChildSamples {
		return
	}
	parent := l.g * l.g / (l.h + m.lambda + hessEps)

	for f, col := range binned {
		nb := 0
		for _, i := range l.rows {
			nb = max(nb, int(col[i])+1)
		}
		if nb < 2 {
			continue
		}
		hg := make([]float64, nb)
		hh := make([]float64, nb)
		hc := make([]int, nb)
		for _, i := range l.rows {
			b := col[i]
			hg[b] += grad[i]
			hh[b] += hess[i]
			hc[b]++
		}

		var gl, hl float64
		var cl int
		for b := 0; b < nb-1; b++ {
			gl += hg[b]
			hl += hh[b]
			cl += hc[b]
			cr := len(l.rows) - cl
			if cl < m.minChildSamples || cr < m.minChildSamples {
				continue
			}
			hr := l.h - hl
			if hl < m.minChildWeight || hr < m.minChildWeight {
				continue
			}
			gr := l.g - gl
			gain := gl*gl/(hl+m.lambda+hessEps) + gr*gr/(hr+m.lambda+hessEps) - parent
			if gain > l.best.gain {
				l.best = split{feature: f, bin: uint16(b), gain: gain}
			}
		}
	}
}

// PredictProba implements Classifier.
func (m *GradientBoosting) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = sigmoid(m.Model.Evaluate(x))
	}
	return out
}

// Predict implements Classifier.
func (m *GradientBoosting) Predict(X [][]float64) []int {
	return threshold(m.PredictProba(X))
}
