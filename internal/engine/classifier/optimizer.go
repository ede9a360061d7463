package classifier

import "math"

// optimizer applies gradient updates to flat parameter slices.
type optimizer interface {
	update(params, grads [][]float64, seen int)
	// decay lowers the learning rate after a plateau. It reports false when
	// training should stop instead.
	decay() bool
}

func newOptimizer(cfg mlpConfig, params [][]float64) optimizer {
	if cfg.solver == "sgd" {
		return &sgd{cfg: cfg, lr: cfg.lrInit, velocity: zerosLike(params)}
	}
	return &adam{cfg: cfg, m: zerosLike(params), v: zerosLike(params)}
}

func zerosLike(params [][]float64) [][]float64 {
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = make([]float64, len(p))
	}
	return out
}

type sgd struct {
	cfg      mlpConfig
	lr       float64
	velocity [][]float64
}

func (s *sgd) update(params, grads [][]float64, seen int) {
	if s.cfg.schedule == "invscaling" {
		s.lr = s.cfg.lrInit / math.Pow(float64(seen)+1, s.cfg.powerT)
	}
	mu := s.cfg.momentum
	for k, p := range params {
		v, g := s.velocity[k], grads[k]
		for i := range p {
			v[i] = mu*v[i] - s.lr*g[i]
			if s.cfg.nesterov {
				p[i] += mu*v[i] - s.lr*g[i]
			} else {
				p[i] += v[i]
			}
		}
	}
}

func (s *sgd) decay() bool {
	if s.cfg.schedule != "adaptive" || s.lr <= 1e-6 {
		return false
	}
	s.lr /= 5
	return true
}

type adam struct {
	cfg  mlpConfig
	t    int
	m, v [][]float64
}

func (a *adam) update(params, grads [][]float64, _ int) {
	a.t++
	b1, b2 := a.cfg.beta1, a.cfg.beta2
	lr := a.cfg.lrInit * math.Sqrt(1-math.Pow(b2, float64(a.t))) / (1 - math.Pow(b1, float64(a.t)))
	for k, p := range params {
		m, v, g := a.m[k], a.v[k], grads[k]
		for i := range p {
			m[i] = b1*m[i] + (1-b1)*g[i]
			v[i] = b2*v[i] + (1-b2)*g[i]*g[i]
			p[i] -= lr * m[i] / (math.Sqrt(v[i]) + a.cfg.epsilon)
		}
	}
}

func (a *adam) decay() bool { return false }
