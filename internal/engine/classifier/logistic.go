package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var logisticParams = []string{"C", "max_iter", "learning_rate", "tol"}

// LogisticRegression is an L2-regularized logistic model fitted by full-batch
// gradient descent. The intercept is not penalized.
type LogisticRegression struct {
	C            float64
	MaxIter      int
	LearningRate float64
	Tol          float64

	Bias  float64
	Coefs []float64
}

func newLogistic(p Params) (*LogisticRegression, error) {
	if err := p.check(logisticParams); err != nil {
		return nil, err
	}
	r := reader{p: p}
	l := &LogisticRegression{
		C:            r.float("C", 1),
		MaxIter:      r.int("max_iter", 500),
		LearningRate: r.float("learning_rate", 0.5),
		Tol:          r.float("tol", 1e-6),
	}
	if r.err != nil {
		return nil, r.err
	}
	if l.C <= 0 || l.MaxIter <= 0 || l.LearningRate <= 0 {
		return nil, fmt.Errorf("classifier: logistic needs positive C, max_iter and learning_rate")
	}
	return l, nil
}

// Fit implements Classifier.
func (l *LogisticRegression) Fit(X [][]float64, y []int) error {
	n, d, err := validate(X, y)
	if err != nil {
		return err
	}
	l.Coefs = make([]float64, d)
	l.Bias = 0
	grad := make([]float64, d)
	reg := 1 / (l.C * float64(n))

	prev := math.Inf(1)
	for it := 0; it < l.MaxIter; it++ {
		for i := range grad {
			grad[i] = 0
		}
		var gBias, loss float64
		for i, row := range X {
			p := l.Evaluate(row)
			e := p - float64(y[i])
			floats.AddScaled(grad, e, row)
			gBias += e
			loss += logLoss(p, y[i])
		}
		floats.Scale(1/float64(n), grad)
		floats.AddScaled(grad, reg, l.Coefs)
		gBias /= float64(n)
		loss = loss/float64(n) + 0.5*reg*floats.Dot(l.Coefs, l.Coefs)

		floats.AddScaled(l.Coefs, -l.LearningRate, grad)
		l.Bias -= l.LearningRate * gBias
		if math.Abs(prev-loss) < l.Tol {
			break
		}
		prev = loss
	}
	return nil
}

// Evaluate returns the probability that feats belongs to class 1.
func (l *LogisticRegression) Evaluate(feats []float64) float64 {
	return sigmoid(floats.Dot(feats, l.Coefs) + l.Bias)
}

// PredictProba implements Classifier.
func (l *LogisticRegression) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = l.Evaluate(row)
	}
	return out
}

// Predict implements Classifier.
func (l *LogisticRegression) Predict(X [][]float64) []int {
	return threshold(l.PredictProba(X))
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

const probEps = 1e-15

func logLoss(p float64, y int) float64 {
	p = math.Min(math.Max(p, probEps), 1-probEps)
	if y == 1 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}
