package classifier

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/crimson-sun/helpful/internal/model"
)

var svmParams = []string{"C", "kernel", "gamma", "degree", "coef0", "tol", "max_iter", "cache_size", "random_state"}

// SVC is a soft-margin kernel support-vector classifier solved with SMO.
// Probabilities come from a sigmoid fitted to the training decision values.
type SVC struct {
	c         float64
	kernel    kernel
	gammaSpec any
	tol       float64
	maxIter   int
	cacheMB   float64

	support [][]float64
	coef    []float64 // alpha_i * s_i
	rho     float64
	plattA  float64
	plattB  float64

	// Iterations is the number of SMO steps taken by Fit.
	Iterations int
}

func newSVM(p Params) (*SVC, error) {
	if err := p.check(svmParams); err != nil {
		return nil, err
	}
	r := reader{p: p}
	s := &SVC{
		c: r.float("C", 1),
		kernel: kernel{
			name:   r.string("kernel", "rbf", "rbf", "linear", "poly", "sigmoid"),
			coef0:  r.float("coef0", 0),
			degree: r.int("degree", 3),
		},
		gammaSpec: "scale",
		tol:       r.float("tol", 1e-3),
		maxIter:   r.int("max_iter", -1),
		cacheMB:   r.float("cache_size", 200),
	}
	if g, ok := p["gamma"]; ok && g != nil {
		switch v := g.(type) {
		case string:
			s.gammaSpec = r.string("gamma", "scale", "scale", "auto")
		default:
			if f, ok := toFloat(v); ok && f > 0 {
				s.gammaSpec = f
			} else {
				r.fail("gamma", g, `"scale", "auto" or a positive number`)
			}
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if s.c <= 0 {
		return nil, fmt.Errorf("classifier: svm C must be positive, got %v", s.c)
	}
	return s, nil
}

func (s *SVC) resolveGamma(X [][]float64, d int) float64 {
	switch g := s.gammaSpec.(type) {
	case float64:
		return g
	case string:
		if g == "auto" {
			return 1 / float64(d)
		}
	}
	var sum, sq float64
	count := float64(len(X) * d)
	for _, row := range X {
		for _, v := range row {
			sum += v
			sq += v * v
		}
	}
	mean := sum / count
	variance := sq/count - mean*mean
	if variance <= 0 {
		return 1
	}
	return 1 / (float64(d) * variance)
}

// Fit implements Classifier.
func (s *SVC) Fit(X [][]float64, y []int) error {
	n, d, err := validate(X, y)
	if err != nil {
		return err
	}
	if !bothClasses(y) {
		return fmt.Errorf("classifier: svm needs both classes in training data: %w", model.ErrComputation)
	}
	s.kernel.gamma = s.resolveGamma(X, d)

	sign := make([]float64, n)
	for i, v := range y {
		sign[i] = float64(2*v - 1)
	}
	cacheRows := int(s.cacheMB * (1 << 20) / float64(8*n))
	q, err := newQMatrix(X, sign, s.kernel, min(cacheRows, n))
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	alpha, grad := s.solve(q, sign)
	s.rho = computeRho(alpha, grad, sign, s.c)

	s.support, s.coef = nil, nil
	for i, a := range alpha {
		if a > 0 {
			s.support = append(s.support, X[i])
			s.coef = append(s.coef, a*sign[i])
		}
	}
	dec := s.DecisionFunction(X)
	s.plattA, s.plattB = plattFit(dec, y)
	slog.Debug("svm fitted", "support_vectors", len(s.support), "iterations", s.Iterations, "gamma", s.kernel.gamma)
	return nil
}

// solve runs SMO with maximal-violating-pair working set selection on
// min 0.5 a'Qa - e'a subject to 0 <= a <= C and s'a = 0.
func (s *SVC) solve(q *qMatrix, sign []float64) (alpha, grad []float64) {
	n := len(sign)
	alpha = make([]float64, n)
	grad = make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}
	limit := s.maxIter
	if limit <= 0 {
		limit = max(10000000, 100*n)
	}

	const tau = 1e-12
	c := s.c
	for s.Iterations = 0; s.Iterations < limit; s.Iterations++ {
		i, j, gap := selectPair(alpha, grad, sign, c)
		if i < 0 || gap < s.tol {
			break
		}
		qi, qj := q.row(i), q.row(j)
		oldI, oldJ := alpha[i], alpha[j]

		if sign[i] != sign[j] {
			quad := q.diag[i] + q.diag[j] + 2*qi[j]
			if quad <= 0 {
				quad = tau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j], alpha[i] = 0, diff
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, -diff
			}
			if diff > 0 {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, c-diff
				}
			} else if alpha[j] > c {
				alpha[j], alpha[i] = c, c+diff
			}
		} else {
			quad := q.diag[i] + q.diag[j] - 2*qi[j]
			if quad <= 0 {
				quad = tau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > c {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, sum-c
				}
			} else if alpha[j] < 0 {
				alpha[j], alpha[i] = 0, sum
			}
			if sum > c {
				if alpha[j] > c {
					alpha[j], alpha[i] = c, sum-c
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for k := range grad {
			grad[k] += qi[k]*dI + qj[k]*dJ
		}
	}
	return alpha, grad
}

// selectPair returns the maximal violating pair and its optimality gap, or
// i < 0 when no index can move.
func selectPair(alpha, grad, sign []float64, c float64) (int, int, float64) {
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	i, j := -1, -1
	for t := range alpha {
		if sign[t] > 0 {
			if alpha[t] < c && -grad[t] >= gmax {
				gmax, i = -grad[t], t
			}
			if alpha[t] > 0 && grad[t] >= gmax2 {
				gmax2, j = grad[t], t
			}
		} else {
			if alpha[t] > 0 && grad[t] >= gmax {
				gmax, i = grad[t], t
			}
			if alpha[t] < c && -grad[t] >= gmax2 {
				gmax2, j = -grad[t], t
			}
		}
	}
	if i < 0 || j < 0 {
		return -1, -1, 0
	}
	return i, j, gmax + gmax2
}

func computeRho(alpha, grad, sign []float64, c float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var free int
	var sumFree float64
	for i, a := range alpha {
		yg := sign[i] * grad[i]
		switch {
		case a >= c:
			if sign[i] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case a <= 0:
			if sign[i] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			free++
			sumFree += yg
		}
	}
	if free > 0 {
		return sumFree / float64(free)
	}
	return (ub + lb) / 2
}

// DecisionFunction returns the signed distance of each row to the margin.
func (s *SVC) DecisionFunction(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		var f float64
		for k, sv := range s.support {
			f += s.coef[k] * s.kernel.eval(sv, x)
		}
		out[i] = f - s.rho
	}
	return out
}

// Predict implements Classifier.
func (s *SVC) Predict(X [][]float64) []int {
	dec := s.DecisionFunction(X)
	out := make([]int, len(dec))
	for i, f := range dec {
		if f > 0 {
			out[i] = 1
		}
	}
	return out
}

// PredictProba implements Classifier.
func (s *SVC) PredictProba(X [][]float64) []float64 {
	dec := s.DecisionFunction(X)
	for i, f := range dec {
		dec[i] = plattPredict(f, s.plattA, s.plattB)
	}
	return dec
}

// plattFit fits P(y=1|f) = 1/(1+exp(A*f+B)) by Newton's method with
// backtracking on regularized targets.
func plattFit(dec []float64, y []int) (float64, float64) {
	var prior1, prior0 float64
	for _, v := range y {
		if v == 1 {
			prior1++
		} else {
			prior0++
		}
	}
	const (
		maxIter = 100
		minStep = 1e-10
		sigma   = 1e-12
		eps     = 1e-5
	)
	hi, lo := (prior1+1)/(prior1+2), 1/(prior0+2)
	t := make([]float64, len(y))
	for i, v := range y {
		t[i] = lo
		if v == 1 {
			t[i] = hi
		}
	}
	objective := func(a, b float64) float64 {
		var f float64
		for i, d := range dec {
			fApB := d*a + b
			if fApB >= 0 {
				f += t[i]*fApB + math.Log1p(math.Exp(-fApB))
			} else {
				f += (t[i]-1)*fApB + math.Log1p(math.Exp(fApB))
			}
		}
		return f
	}

	a, b := 0.0, math.Log((prior0+1)/(prior1+1))
	fval := objective(a, b)
	for it := 0; it < maxIter; it++ {
		h11, h22, h21, g1, g2 := sigma, sigma, 0.0, 0.0, 0.0
		for i, d := range dec {
			fApB := d*a + b
			var p, q float64
			if fApB >= 0 {
				e := math.Exp(-fApB)
				p, q = e/(1+e), 1/(1+e)
			} else {
				e := math.Exp(fApB)
				p, q = 1/(1+e), e/(1+e)
			}
			d2 := p * q
			h11 += d * d * d2
			h22 += d2
			h21 += d * d2
			d1 := t[i] - p
			g1 += d * d1
			g2 += d1
		}
		if math.Abs(g1) < eps && math.Abs(g2) < eps {
			break
		}
		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for ; step >= minStep; step /= 2 {
			na, nb := a+step*dA, b+step*dB
			if nf := objective(na, nb); nf < fval+1e-4*step*gd {
				a, b, fval = na, nb, nf
				break
			}
		}
		if step < minStep {
			break
		}
	}
	return a, b
}

func plattPredict(f, a, b float64) float64 {
	fApB := f*a + b
	if fApB >= 0 {
		e := math.Exp(-fApB)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(fApB))
}
