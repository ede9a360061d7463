package representation

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"github.com/crimson-sun/helpful/internal/engine/embedder"
	"github.com/crimson-sun/helpful/internal/engine/tfidf"
	"github.com/crimson-sun/helpful/internal/engine/word2vec"
	"github.com/crimson-sun/helpful/internal/model"
)

func emptyCorpus(name string) error {
	return fmt.Errorf("representation: %s: %w", name, model.ErrEmptyCorpus)
}

// TermVectorBuilder keeps the TopN terms with the highest IDF over the raw
// review texts and weights each document's term counts by them.
type TermVectorBuilder struct {
	TopN      int
	Normalize bool
	IDF       *tfidf.IDF // fitted on the same texts when nil
}

// Build implements Builder.
func (b TermVectorBuilder) Build(records []model.Record) ([][]float64, error) {
	if len(records) == 0 {
		return nil, emptyCorpus("term vector")
	}
	docs := make([][]string, len(records))
	for i, r := range records {
		docs[i] = tfidf.Analyze(r.Text)
	}
	idf := b.IDF
	if idf == nil {
		var err error
		if idf, err = tfidf.Fit(docs); err != nil {
			return nil, fmt.Errorf("representation: %w", err)
		}
	}
	topN := b.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	vec := tfidf.NewVectorizer(idf.Top(topN), idf, b.Normalize)

	out := make([][]float64, len(docs))
	for i, d := range docs {
		out[i] = vec.Transform(d)
	}
	slog.Info("term vectors built", "docs", len(out), "vocabulary", idf.Len(), "dim", vec.Dim())
	return out, nil
}

// Aggregation selects how token vectors combine into a review vector.
type Aggregation int

const (
	Sum Aggregation = iota
	Mean
	IDFMean
)

// EmbeddingBuilder combines the word vectors of each record's tokens. Tokens
// without a vector are skipped; a record with none maps to the zero vector.
type EmbeddingBuilder struct {
	Table *word2vec.Table
	Mode  Aggregation
	IDF   *tfidf.IDF // IDFMean only; unknown tokens weigh 1
}

// Build implements Builder.
func (b EmbeddingBuilder) Build(records []model.Record) ([][]float64, error) {
	if len(records) == 0 {
		return nil, emptyCorpus("embedding")
	}
	if b.Table == nil {
		return nil, fmt.Errorf("representation: embedding builder has no table")
	}
	if b.Mode == IDFMean && b.IDF == nil {
		return nil, fmt.Errorf("representation: idf-weighted builder has no idf table")
	}
	out := make([][]float64, len(records))
	for i, r := range records {
		out[i] = b.Vector(r.Tokens)
	}
	return out, nil
}

// Vector aggregates a single token sequence.
func (b EmbeddingBuilder) Vector(tokens []string) []float64 {
	acc := make([]float64, b.Table.Dim())
	n := 0
	for _, tok := range tokens {
		v, ok := b.Table.Lookup(tok)
		if !ok {
			continue
		}
		n++
		w := 1.0
		if b.Mode == IDFMean {
			if idf, ok := b.IDF.Weight(tok); ok {
				w = idf
			}
		}
		floats.AddScaled(acc, w, v)
	}
	if n > 0 && b.Mode != Sum {
		floats.Scale(1/float64(n), acc)
	}
	return acc
}

// ContextualBuilder encodes raw review texts in fixed-size batches.
type ContextualBuilder struct {
	Encoder   embedder.Encoder
	BatchSize int
}

// Build implements Builder.
func (b ContextualBuilder) Build(records []model.Record) ([][]float64, error) {
	if len(records) == 0 {
		return nil, emptyCorpus("contextual")
	}
	if b.Encoder == nil {
		return nil, fmt.Errorf("representation: contextual builder has no encoder")
	}
	size := b.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	out := make([][]float64, 0, len(records))
	texts := model.Texts(records)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := b.Encoder.EncodeBatch(texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("representation: batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("representation: encoder returned %d vectors for %d texts: %w",
				len(vecs), end-start, model.ErrComputation)
		}
		for _, v := range vecs {
			row := make([]float64, len(v))
			for i, x := range v {
				row[i] = float64(x)
			}
			out = append(out, row)
		}
		slog.Debug("contextual batch encoded", "done", end, "total", len(texts))
	}
	return out, nil
}
