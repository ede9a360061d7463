package classifier

import (
	"math"

	lru "github.com/hashicorp/golang-lru"
	"gonum.org/v1/gonum/floats"
)

type kernel struct {
	name   string
	gamma  float64
	coef0  float64
	degree int
}

func (k kernel) eval(a, b []float64) float64 {
	switch k.name {
	case "linear":
		return floats.Dot(a, b)
	case "poly":
		return math.Pow(k.gamma*floats.Dot(a, b)+k.coef0, float64(k.degree))
	case "sigmoid":
		return math.Tanh(k.gamma*floats.Dot(a, b) + k.coef0)
	}
	return math.Exp(-k.gamma * sqDist(a, b))
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// qMatrix serves rows of Q[i][j] = s_i s_j K(x_i, x_j), keeping the most
// recently used rows in an LRU cache.
type qMatrix struct {
	x     [][]float64
	sign  []float64
	k     kernel
	diag  []float64
	cache *lru.Cache
}

func newQMatrix(x [][]float64, sign []float64, k kernel, cacheRows int) (*qMatrix, error) {
	cache, err := lru.New(max(cacheRows, 2))
	if err != nil {
		return nil, err
	}
	q := &qMatrix{x: x, sign: sign, k: k, diag: make([]float64, len(x)), cache: cache}
	for i, row := range x {
		q.diag[i] = k.eval(row, row)
	}
	return q, nil
}

func (q *qMatrix) row(i int) []float64 {
	if v, ok := q.cache.Get(i); ok {
		return v.([]float64)
	}
	out := make([]float64, len(q.x))
	for j, xj := range q.x {
		out[j] = q.sign[i] * q.sign[j] * q.k.eval(q.x[i], xj)
	}
	q.cache.Add(i, out)
	return out
}
