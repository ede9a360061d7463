package word2vec

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/dgryski/go-spooky"
	"gonum.org/v1/gonum/floats"

	"github.com/crimson-sun/helpful/internal/model"
)

// Config holds the training hyperparameters.
type Config struct {
	Dim      int     // vector length
	Window   int     // max distance between a word and its context
	MinCount int     // words seen fewer times are ignored
	Negative int     // noise words drawn per prediction
	Epochs   int     // passes over the corpus
	Alpha    float64 // initial learning rate
	MinAlpha float64 // learning rate reached at the end of training
	Sample   float64 // downsampling threshold for frequent words; 0 disables
	Seed     int64
}

// DefaultConfig returns the settings used for review embeddings.
func DefaultConfig() Config {
	return Config{
		Dim:      100,
		Window:   5,
		MinCount: 1,
		Negative: 5,
		Epochs:   5,
		Alpha:    0.025,
		MinAlpha: 0.0001,
		Sample:   1e-3,
		Seed:     1,
	}
}

func (c Config) validate() error {
	switch {
	case c.Dim <= 0:
		return fmt.Errorf("word2vec: dim must be positive, got %d", c.Dim)
	case c.Window <= 0:
		return fmt.Errorf("word2vec: window must be positive, got %d", c.Window)
	case c.Negative <= 0:
		return fmt.Errorf("word2vec: negative must be positive, got %d", c.Negative)
	case c.Epochs <= 0:
		return fmt.Errorf("word2vec: epochs must be positive, got %d", c.Epochs)
	case c.Alpha <= 0 || c.MinAlpha < 0 || c.MinAlpha > c.Alpha:
		return fmt.Errorf("word2vec: invalid learning rate schedule %v -> %v", c.Alpha, c.MinAlpha)
	}
	return nil
}

// Train fits CBOW embeddings with negative sampling on sentences. The result
// depends only on sentences and cfg.
func Train(sentences [][]string, cfg Config) (*Table, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	vocab, retained := buildVocab(sentences, cfg.MinCount)
	if len(vocab) == 0 {
		return nil, fmt.Errorf("word2vec: no words with count >= %d: %w", cfg.MinCount, model.ErrEmptyCorpus)
	}

	tr := newTrainer(vocab, retained, cfg)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for _, s := range sentences {
			tr.sentence(s)
		}
		slog.Debug("word2vec epoch done", "epoch", epoch+1, "alpha", tr.alpha())
	}

	words := make([]string, len(vocab))
	for i, e := range vocab {
		words[i] = e.word
	}
	slog.Info("word2vec trained", "words", len(words), "dim", cfg.Dim, "epochs", cfg.Epochs)
	return newTable(words, tr.syn0, cfg.Dim), nil
}

type trainer struct {
	cfg   Config
	index map[string]int
	keep  []float64 // probability of keeping each word under downsampling
	noise []float64 // cumulative unigram^0.75 distribution
	syn0  []float64 // input vectors
	syn1  []float64 // output vectors
	rng   *rand.Rand

	total     float64
	processed float64

	ids   []int
	h     []float64
	neu1e []float64
}

func newTrainer(vocab []entry, retained int, cfg Config) *trainer {
	v, dim := len(vocab), cfg.Dim
	tr := &trainer{
		cfg:   cfg,
		index: make(map[string]int, v),
		keep:  make([]float64, v),
		noise: make([]float64, v),
		syn0:  make([]float64, v*dim),
		syn1:  make([]float64, v*dim),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		total: float64(cfg.Epochs) * float64(retained),
		h:     make([]float64, dim),
		neu1e: make([]float64, dim),
	}

	threshold := cfg.Sample * float64(retained)
	var acc float64
	for i, e := range vocab {
		tr.index[e.word] = i
		seedVector(tr.syn0[i*dim:(i+1)*dim], e.word, cfg.Seed)

		tr.keep[i] = 1
		if cfg.Sample > 0 {
			c := float64(e.count)
			tr.keep[i] = math.Min(1, (math.Sqrt(c/threshold)+1)*threshold/c)
		}
		acc += math.Pow(float64(e.count), 0.75)
		tr.noise[i] = acc
	}
	for i := range tr.noise {
		tr.noise[i] /= acc
	}
	return tr
}

// seedVector fills v with small values derived from word and seed only, so a
// word starts from the same point regardless of vocabulary order.
func seedVector(v []float64, word string, seed int64) {
	r := rand.New(rand.NewSource(int64(spooky.Hash64Seed([]byte(word), uint64(seed)))))
	for i := range v {
		v[i] = (r.Float64() - 0.5) / float64(len(v))
	}
}

func (tr *trainer) alpha() float64 {
	a := tr.cfg.Alpha - (tr.cfg.Alpha-tr.cfg.MinAlpha)*tr.processed/tr.total
	return math.Max(a, tr.cfg.MinAlpha)
}

func (tr *trainer) vec(m []float64, i int) []float64 {
	d := tr.cfg.Dim
	return m[i*d : (i+1)*d]
}

func (tr *trainer) sentence(words []string) {
	tr.ids = tr.ids[:0]
	seen := 0
	for _, w := range words {
		i, ok := tr.index[w]
		if !ok {
			continue
		}
		seen++
		if tr.keep[i] < 1 && tr.keep[i] < tr.rng.Float64() {
			continue
		}
		tr.ids = append(tr.ids, i)
	}
	alpha := tr.alpha()
	tr.processed += float64(seen)

	for pos, word := range tr.ids {
		b := tr.rng.Intn(tr.cfg.Window)
		lo := max(0, pos-tr.cfg.Window+b)
		hi := min(len(tr.ids), pos+tr.cfg.Window-b+1)

		for i := range tr.h {
			tr.h[i] = 0
			tr.neu1e[i] = 0
		}
		count := 0
		for j := lo; j < hi; j++ {
			if j == pos {
				continue
			}
			floats.Add(tr.h, tr.vec(tr.syn0, tr.ids[j]))
			count++
		}
		if count == 0 {
			continue
		}
		inv := 1 / float64(count)
		floats.Scale(inv, tr.h)

		for d := 0; d <= tr.cfg.Negative; d++ {
			target, label := word, 1.0
			if d > 0 {
				target, label = tr.sampleNoise(), 0
				if target == word {
					continue
				}
			}
			out := tr.vec(tr.syn1, target)
			g := (label - sigmoid(floats.Dot(tr.h, out))) * alpha
			floats.AddScaled(tr.neu1e, g, out)
			floats.AddScaled(out, g, tr.h)
		}

		floats.Scale(inv, tr.neu1e)
		for j := lo; j < hi; j++ {
			if j != pos {
				floats.Add(tr.vec(tr.syn0, tr.ids[j]), tr.neu1e)
			}
		}
	}
}

func (tr *trainer) sampleNoise() int {
	i := sort.SearchFloat64s(tr.noise, tr.rng.Float64())
	if i >= len(tr.noise) {
		i = len(tr.noise) - 1
	}
	return i
}

const maxExp = 6

func sigmoid(x float64) float64 {
	switch {
	case x > maxExp:
		return 1
	case x < -maxExp:
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}
