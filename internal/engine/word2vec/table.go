// Package word2vec trains dense token embeddings on tokenized reviews with
// the continuous bag-of-words objective and stores them in a read-only table.
package word2vec

import (
	"fmt"

	"github.com/crimson-sun/helpful/internal/model"
)

// Table maps words to fixed-length vectors. It is never modified after
// training or loading and is safe for concurrent reads.
type Table struct {
	words   []string
	index   map[string]int
	vectors []float64 // row-major [len(words), dim]
	dim     int
}

func newTable(words []string, vectors []float64, dim int) *Table {
	t := &Table{
		words:   words,
		index:   make(map[string]int, len(words)),
		vectors: vectors,
		dim:     dim,
	}
	for i, w := range words {
		t.index[w] = i
	}
	return t
}

// Lookup returns the vector of word. The returned slice aliases the table and
// must not be modified.
func (t *Table) Lookup(word string) ([]float64, bool) {
	i, ok := t.index[word]
	if !ok {
		return nil, false
	}
	return t.row(i), true
}

// Contains reports whether word has a vector.
func (t *Table) Contains(word string) bool {
	_, ok := t.index[word]
	return ok
}

// Dim returns the vector length.
func (t *Table) Dim() int { return t.dim }

// Len returns the number of words.
func (t *Table) Len() int { return len(t.words) }

// Words returns the vocabulary, most frequent first.
func (t *Table) Words() []string { return append([]string(nil), t.words...) }

func (t *Table) row(i int) []float64 {
	return t.vectors[i*t.dim : (i+1)*t.dim : (i+1)*t.dim]
}

// FromVectors builds a table from parallel word and vector lists. All vectors
// must share one length.
func FromVectors(words []string, vectors [][]float64) (*Table, error) {
	if len(words) != len(vectors) {
		return nil, fmt.Errorf("word2vec: %d words for %d vectors", len(words), len(vectors))
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word2vec: no vectors: %w", model.ErrEmptyCorpus)
	}
	dim := len(vectors[0])
	flat := make([]float64, 0, len(words)*dim)
	seen := make(map[string]bool, len(words))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("word2vec: vector %q has length %d, want %d", words[i], len(v), dim)
		}
		if seen[words[i]] {
			return nil, fmt.Errorf("word2vec: duplicate word %q", words[i])
		}
		seen[words[i]] = true
		flat = append(flat, v...)
	}
	return newTable(append([]string(nil), words...), flat, dim), nil
}
