// Package selection picks classifier hyperparameters by exhaustive grid
// search scored with stratified k-fold cross-validated AUC.
package selection

import (
	"fmt"
	"sort"

	"github.com/crimson-sun/helpful/internal/engine/classifier"
)

// Grid maps a parameter name to the values to try.
type Grid map[string][]any

// Names returns the parameter names in sorted order.
func (g Grid) Names() []string {
	names := make([]string, 0, len(g))
	for k := range g {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Size is the number of combinations in g.
func (g Grid) Size() int {
	n := 1
	for _, vals := range g {
		n *= len(vals)
	}
	return n
}

// Combinations enumerates the Cartesian product of g. Names are taken in
// sorted order and the last name varies fastest, so the order is stable
// across runs. An empty grid yields one empty combination.
func (g Grid) Combinations() []classifier.Params {
	names := g.Names()
	total := g.Size()
	out := make([]classifier.Params, 0, total)
	idx := make([]int, len(names))
	for c := 0; c < total; c++ {
		p := make(classifier.Params, len(names))
		for i, name := range names {
			p[name] = g[name][idx[i]]
		}
		out = append(out, p)

		for i := len(names) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(g[names[i]]) {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

func (g Grid) validate() error {
	for _, name := range g.Names() {
		if len(g[name]) == 0 {
			return fmt.Errorf("selection: parameter %q has no values", name)
		}
	}
	return nil
}
