package embedder

import (
	"fmt"
	"strings"
)

// Pooling selects how one layer's token states collapse into a vector.
type Pooling int

const (
	// PoolCLS takes the hidden state at the first position.
	PoolCLS Pooling = iota
	// PoolMean averages the hidden states of non-padding tokens.
	PoolMean
)

func (p Pooling) String() string {
	if p == PoolMean {
		return "mean"
	}
	return "cls"
}

// ParsePooling parses "cls" or "mean".
func ParsePooling(s string) (Pooling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cls", "first":
		return PoolCLS, nil
	case "mean":
		return PoolMean, nil
	}
	return 0, fmt.Errorf("embedder: unknown pooling %q", s)
}

func (p Pooling) pool(hidden []float32, mask []int64, batchSize, seqLen, dim int64) []float32 {
	if p == PoolMean {
		return meanPool(hidden, mask, batchSize, seqLen, dim)
	}
	return clsPool(hidden, batchSize, seqLen, dim)
}

// clsPool returns the first-position hidden state of each sample.
//
// hidden: flat [batchSize * seqLen * dim]
// Returns flat [batchSize * dim].
func clsPool(hidden []float32, batchSize, seqLen, dim int64) []float32 {
	out := make([]float32, batchSize*dim)
	for b := int64(0); b < batchSize; b++ {
		copy(out[b*dim:(b+1)*dim], hidden[b*seqLen*dim:b*seqLen*dim+dim])
	}
	return out
}

// meanPool computes attention-mask-weighted mean pooling over the sequence
// dimension.
//
// hidden: flat [batchSize * seqLen * dim]
// mask:   flat [batchSize * seqLen], 1 for real tokens
// Returns flat [batchSize * dim]; all-padding samples stay zero.
func meanPool(hidden []float32, mask []int64, batchSize, seqLen, dim int64) []float32 {
	out := make([]float32, batchSize*dim)
	for b := int64(0); b < batchSize; b++ {
		acc := out[b*dim : (b+1)*dim]
		var n float32
		for s := int64(0); s < seqLen; s++ {
			if mask[b*seqLen+s] != 1 {
				continue
			}
			n++
			tok := hidden[(b*seqLen+s)*dim : (b*seqLen+s+1)*dim]
			for d := range acc {
				acc[d] += tok[d]
			}
		}
		if n == 0 {
			continue
		}
		for d := range acc {
			acc[d] /= n
		}
	}
	return out
}

// averageLayers returns the element-wise mean of equally sized pooled layers.
func averageLayers(layers [][]float32) []float32 {
	if len(layers) == 0 {
		return nil
	}
	out := make([]float32, len(layers[0]))
	for _, l := range layers {
		for i, x := range l {
			out[i] += x
		}
	}
	inv := 1 / float32(len(layers))
	for i := range out {
		out[i] *= inv
	}
	return out
}
