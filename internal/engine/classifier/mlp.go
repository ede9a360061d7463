package classifier

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var mlpParams = []string{
	"hidden_layer_sizes", "activation", "solver", "alpha", "batch_size",
	"learning_rate", "learning_rate_init", "power_t", "max_iter", "momentum",
	"nesterovs_momentum", "tol", "n_iter_no_change", "beta_1", "beta_2",
	"epsilon", "shuffle", "random_state",
}

type mlpConfig struct {
	hidden       []int
	activation   string
	solver       string
	alpha        float64
	batchSize    int // 0 means min(200, n)
	schedule     string
	lrInit       float64
	powerT       float64
	maxIter      int
	momentum     float64
	nesterov     bool
	tol          float64
	noChange     int
	beta1, beta2 float64
	epsilon      float64
	shuffle      bool
	seed         int64
}

// NeuralNet is a feed-forward network with one logistic output unit trained
// on log-loss with an L2 penalty.
type NeuralNet struct {
	cfg     mlpConfig
	weights []*mat.Dense // layer l maps [*, in] to [*, out]
	biases  [][]float64

	// Iterations is the number of epochs run by Fit; Loss is the last
	// epoch's mean training loss.
	Iterations int
	Loss       float64
}

func newMLP(p Params) (*NeuralNet, error) {
	if err := p.check(mlpParams); err != nil {
		return nil, err
	}
	r := reader{p: p}
	cfg := mlpConfig{
		hidden:     r.ints("hidden_layer_sizes", []int{100}),
		activation: r.string("activation", "relu", "relu", "tanh", "logistic", "identity"),
		solver:     r.string("solver", "adam", "adam", "sgd"),
		alpha:      r.float("alpha", 1e-4),
		schedule:   r.string("learning_rate", "constant", "constant", "invscaling", "adaptive"),
		lrInit:     r.float("learning_rate_init", 1e-3),
		powerT:     r.float("power_t", 0.5),
		maxIter:    r.int("max_iter", 200),
		momentum:   r.float("momentum", 0.9),
		nesterov:   r.bool("nesterovs_momentum", true),
		tol:        r.float("tol", 1e-4),
		noChange:   r.int("n_iter_no_change", 10),
		beta1:      r.float("beta_1", 0.9),
		beta2:      r.float("beta_2", 0.999),
		epsilon:    r.float("epsilon", 1e-8),
		shuffle:    r.bool("shuffle", true),
		seed:       int64(r.int("random_state", 0)),
	}
	if v, ok := p["batch_size"]; ok {
		if s, isStr := v.(string); !isStr || s != "auto" {
			cfg.batchSize = r.int("batch_size", 0)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	for _, h := range cfg.hidden {
		if h <= 0 {
			return nil, fmt.Errorf("classifier: hidden layer sizes must be positive, got %v", cfg.hidden)
		}
	}
	if cfg.maxIter <= 0 || cfg.lrInit <= 0 {
		return nil, fmt.Errorf("classifier: mlp needs positive max_iter and learning_rate_init")
	}
	return &NeuralNet{cfg: cfg}, nil
}

// Fit implements Classifier.
func (m *NeuralNet) Fit(X [][]float64, y []int) error {
	n, d, err := validate(X, y)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(m.cfg.seed))
	m.init(d, rng)

	batch := m.cfg.batchSize
	if batch <= 0 {
		batch = min(200, n)
	}
	batch = min(batch, n)

	params, grads := m.paramSlices()
	opt := newOptimizer(m.cfg, params)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	best := math.Inf(1)
	stale := 0
	seen := 0
	for epoch := 0; epoch < m.cfg.maxIter; epoch++ {
		if m.cfg.shuffle {
			rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		var total float64
		for start := 0; start < n; start += batch {
			idx := order[start:min(start+batch, n)]
			xb, yb := gather(X, y, idx, d)
			total += m.step(xb, yb, grads) * float64(len(idx))
			seen += len(idx)
			opt.update(params, grads, seen)
		}
		m.Loss = total / float64(n)
		m.Iterations = epoch + 1

		if m.Loss > best-m.cfg.tol {
			stale++
		} else {
			stale = 0
		}
		if m.Loss < best {
			best = m.Loss
		}
		if stale > m.cfg.noChange {
			if opt.decay() {
				stale = 0
				continue
			}
			break
		}
	}
	slog.Debug("mlp fitted", "epochs", m.Iterations, "loss", m.Loss)
	return nil
}

// init draws Glorot-uniform weights and biases for every layer.
func (m *NeuralNet) init(inputs int, rng *rand.Rand) {
	sizes := append(append([]int{inputs}, m.cfg.hidden...), 1)
	m.weights = make([]*mat.Dense, len(sizes)-1)
	m.biases = make([][]float64, len(sizes)-1)
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		factor := 6.0
		if m.cfg.activation == "logistic" {
			factor = 2
		}
		bound := math.Sqrt(factor / float64(in+out))
		w := make([]float64, in*out)
		for i := range w {
			w[i] = (rng.Float64()*2 - 1) * bound
		}
		b := make([]float64, out)
		for i := range b {
			b[i] = (rng.Float64()*2 - 1) * bound
		}
		m.weights[l] = mat.NewDense(in, out, w)
		m.biases[l] = b
	}
}

// paramSlices returns flat views of every weight and bias, plus zeroed
// gradient buffers of the same shapes.
func (m *NeuralNet) paramSlices() (params, grads [][]float64) {
	for l, w := range m.weights {
		params = append(params, w.RawMatrix().Data, m.biases[l])
		grads = append(grads, make([]float64, len(w.RawMatrix().Data)), make([]float64, len(m.biases[l])))
	}
	return params, grads
}

// forward returns the activations of every layer, input included.
func (m *NeuralNet) forward(x *mat.Dense) []*mat.Dense {
	acts := []*mat.Dense{x}
	for l, w := range m.weights {
		var z mat.Dense
		z.Mul(acts[l], w)
		b := m.biases[l]
		last := l == len(m.weights)-1
		z.Apply(func(_, j int, v float64) float64 {
			v += b[j]
			if last {
				return sigmoid(v)
			}
			return activate(m.cfg.activation, v)
		}, &z)
		acts = append(acts, &z)
	}
	return acts
}

// step runs forward and backward passes on one batch, fills grads and returns
// the batch's mean penalized loss.
func (m *NeuralNet) step(x *mat.Dense, y []float64, grads [][]float64) float64 {
	acts := m.forward(x)
	rows := float64(len(y))
	out := acts[len(acts)-1]

	var loss, sq float64
	delta := mat.NewDense(len(y), 1, nil)
	for i, t := range y {
		p := out.At(i, 0)
		loss += logLoss(p, int(t))
		delta.Set(i, 0, p-t)
	}
	for _, w := range m.weights {
		d := w.RawMatrix().Data
		sq += floats.Dot(d, d)
	}
	loss = loss/rows + 0.5*m.cfg.alpha*sq/rows

	for l := len(m.weights) - 1; l >= 0; l-- {
		var gw mat.Dense
		gw.Mul(acts[l].T(), delta)
		gw.Add(&gw, scaled(m.cfg.alpha, m.weights[l]))
		gw.Scale(1/rows, &gw)
		copy(grads[2*l], gw.RawMatrix().Data)

		gb := grads[2*l+1]
		for j := range gb {
			gb[j] = floats.Sum(mat.Col(nil, j, delta)) / rows
		}

		if l > 0 {
			var next mat.Dense
			next.Mul(delta, m.weights[l].T())
			a := acts[l]
			next.Apply(func(i, j int, v float64) float64 {
				return v * derivative(m.cfg.activation, a.At(i, j))
			}, &next)
			delta = &next
		}
	}
	return loss
}

func scaled(f float64, a *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Scale(f, a)
	return &out
}

func gather(X [][]float64, y []int, idx []int, d int) (*mat.Dense, []float64) {
	data := make([]float64, 0, len(idx)*d)
	ys := make([]float64, len(idx))
	for i, j := range idx {
		data = append(data, X[j]...)
		ys[i] = float64(y[j])
	}
	return mat.NewDense(len(idx), d, data), ys
}

// PredictProba implements Classifier.
func (m *NeuralNet) PredictProba(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	x, _ := gather(X, make([]int, len(X)), idx, len(X[0]))
	acts := m.forward(x)
	return mat.Col(nil, 0, acts[len(acts)-1])
}

// Predict implements Classifier.
func (m *NeuralNet) Predict(X [][]float64) []int {
	return threshold(m.PredictProba(X))
}

func activate(name string, v float64) float64 {
	switch name {
	case "relu":
		return math.Max(0, v)
	case "tanh":
		return math.Tanh(v)
	case "logistic":
		return sigmoid(v)
	}
	return v
}

// derivative is expressed in terms of the activation's output a.
func derivative(name string, a float64) float64 {
	switch name {
	case "relu":
		if a > 0 {
			return 1
		}
		return 0
	case "tanh":
		return 1 - a*a
	case "logistic":
		return a * (1 - a)
	}
	return 1
}
