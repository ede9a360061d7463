// Package representation turns cleaned review records into fixed-length
// feature vectors using one of several interchangeable strategies.
package representation

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/helpful/internal/engine/word2vec"
	"github.com/crimson-sun/helpful/internal/model"
)

// Strategy names a representation.
type Strategy int

const (
	// TermVector is the top-N highest-IDF term vector over the raw text.
	TermVector Strategy = iota
	// EmbeddingSum sums the word vectors of a review's tokens.
	EmbeddingSum
	// EmbeddingMean averages the word vectors of a review's tokens.
	EmbeddingMean
	// IDFWeightedEmbedding averages word vectors scaled by each token's IDF.
	IDFWeightedEmbedding
	// Contextual averages the first-position states of the last transformer
	// layers.
	Contextual
)

var strategyNames = map[Strategy]string{
	TermVector:           "tfidf",
	EmbeddingSum:         "w2v-sum",
	EmbeddingMean:        "w2v-mean",
	IDFWeightedEmbedding: "w2v-idf",
	Contextual:           "contextual",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy accepts the names printed by Strategy.String.
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, v := range strategyNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("representation: unknown strategy %q", s)
}

// UsesEmbeddings reports whether s needs a trained word2vec table.
func (s Strategy) UsesEmbeddings() bool {
	return s == EmbeddingSum || s == EmbeddingMean || s == IDFWeightedEmbedding
}

// UsesIDF reports whether s needs a fitted IDF table.
func (s Strategy) UsesIDF() bool {
	return s == TermVector || s == IDFWeightedEmbedding
}

// Defaults for Spec fields left zero.
const (
	DefaultTopN      = 5000
	DefaultBatchSize = 32
)

// Spec selects a strategy and carries its parameters.
type Spec struct {
	Strategy  Strategy
	TopN      int             // TermVector vocabulary cap
	Normalize bool            // L2-normalize term vectors
	Word2Vec  word2vec.Config // embedding strategies
	BatchSize int             // Contextual texts per inference call
}

// DefaultSpec returns the defaults for strategy.
func DefaultSpec(strategy Strategy) Spec {
	return Spec{
		Strategy:  strategy,
		TopN:      DefaultTopN,
		Normalize: true,
		Word2Vec:  word2vec.DefaultConfig(),
		BatchSize: DefaultBatchSize,
	}
}

// Builder maps records to feature vectors, one per record, in order.
type Builder interface {
	Build(records []model.Record) ([][]float64, error)
}
