// Package embedder computes contextual text vectors with a frozen BERT-style
// transformer running under ONNX Runtime.
package embedder

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
)

// Encoder produces one fixed-length vector per text.
type Encoder interface {
	EncodeBatch(texts []string) ([][]float32, error)
	Dim() int
	Close() error
}

// DefaultLayers is the number of final encoder layers averaged per text.
const DefaultLayers = 4

type options struct {
	layers    int
	pooling   Pooling
	maxSeqLen int
	cacheSize int
	libPath   string
	threads   int
}

// Option configures an ONNXEncoder.
type Option func(*options)

// WithLayers averages the last k encoder layers.
func WithLayers(k int) Option { return func(o *options) { o.layers = k } }

// WithPooling sets how each layer is reduced to one vector.
func WithPooling(p Pooling) Option { return func(o *options) { o.pooling = p } }

// WithMaxSeqLen caps the token sequence length, special tokens included.
func WithMaxSeqLen(n int) Option { return func(o *options) { o.maxSeqLen = n } }

// WithCacheSize memoizes up to n vectors by text. Zero disables the cache.
func WithCacheSize(n int) Option { return func(o *options) { o.cacheSize = n } }

// WithLibraryPath points at the ONNX Runtime shared library.
func WithLibraryPath(p string) Option { return func(o *options) { o.libPath = p } }

// WithThreads sets the intra-op thread count.
func WithThreads(n int) Option { return func(o *options) { o.threads = n } }

// ONNXEncoder tokenizes texts, runs the encoder and pools the last layers.
type ONNXEncoder struct {
	session *onnxSession
	tok     *tokenizer
	opts    options
	cache   *lru.Cache
}

// New loads the model and vocabulary. The model must expose one
// [batch, seq, hidden] output per encoder layer.
func New(modelPath, vocabPath string, opts ...Option) (*ONNXEncoder, error) {
	o := options{
		layers:    DefaultLayers,
		pooling:   PoolCLS,
		maxSeqLen: DefaultMaxSeqLen,
		threads:   4,
	}
	for _, opt := range opts {
		opt(&o)
	}

	tok, err := newTokenizer(vocabPath, o.maxSeqLen)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	sess, err := newONNXSession(modelPath, o.libPath, o.layers, o.threads)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	e := &ONNXEncoder{session: sess, tok: tok, opts: o}
	if o.cacheSize > 0 {
		if e.cache, err = lru.New(o.cacheSize); err != nil {
			sess.close()
			return nil, fmt.Errorf("embedder: %w", err)
		}
	}
	slog.Info("contextual encoder loaded",
		"layers", sess.outputNames, "hidden", sess.hiddenDim,
		"pooling", o.pooling.String(), "max_seq_len", o.maxSeqLen)
	return e, nil
}

// Dim returns the hidden size of the encoder.
func (e *ONNXEncoder) Dim() int {
	return int(e.session.hiddenDim)
}

// Encode returns the vector of a single text.
func (e *ONNXEncoder) Encode(text string) ([]float32, error) {
	out, err := e.EncodeBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EncodeBatch encodes texts in one inference call, skipping cached texts.
// Results are in input order.
func (e *ONNXEncoder) EncodeBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	var missing []string
	var slots []int
	for i, text := range texts {
		if e.cache != nil {
			if v, ok := e.cache.Get(text); ok {
				results[i] = v.([]float32)
				continue
			}
		}
		missing = append(missing, text)
		slots = append(slots, i)
	}
	if len(missing) == 0 {
		return results, nil
	}

	b := e.tok.encodeBatch(missing)
	layers, err := e.session.infer(b)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	vecs := e.reduce(layers, b)
	for j, i := range slots {
		results[i] = vecs[j]
		if e.cache != nil {
			e.cache.Add(missing[j], vecs[j])
		}
	}
	return results, nil
}

// reduce pools every layer and averages the pooled layers per sample.
func (e *ONNXEncoder) reduce(layers [][]float32, b batch) [][]float32 {
	dim := e.session.hiddenDim
	pooled := make([][]float32, len(layers))
	for i, hidden := range layers {
		pooled[i] = e.opts.pooling.pool(hidden, b.attentionMask, b.size, b.seqLen, dim)
	}
	avg := averageLayers(pooled)

	out := make([][]float32, b.size)
	for i := int64(0); i < b.size; i++ {
		out[i] = avg[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return out
}

// Close releases ONNX Runtime resources.
func (e *ONNXEncoder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}
