package representation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/helpful/internal/engine/normalizer"
	"github.com/crimson-sun/helpful/internal/engine/tfidf"
	"github.com/crimson-sun/helpful/internal/engine/word2vec"
	"github.com/crimson-sun/helpful/internal/model"
)

func table(t *testing.T) *word2vec.Table {
	t.Helper()
	tb, err := word2vec.FromVectors(
		[]string{"great", "phone", "battery"},
		[][]float64{{1, 0}, {0, 2}, {3, 3}},
	)
	require.NoError(t, err)
	return tb
}

func TestParseStrategy(t *testing.T) {
	for s := TermVector; s <= Contextual; s++ {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("bag-of-words")
	assert.Error(t, err)
}

func TestEmptyCorpus(t *testing.T) {
	builders := []Builder{
		TermVectorBuilder{TopN: 10},
		EmbeddingBuilder{Table: table(t), Mode: Sum},
		ContextualBuilder{Encoder: &fakeEncoder{dim: 2}},
	}
	for _, b := range builders {
		_, err := b.Build(nil)
		assert.ErrorIs(t, err, model.ErrEmptyCorpus, "%T", b)
	}
	_, err := Prepare(nil, nil, DefaultSpec(TermVector))
	assert.ErrorIs(t, err, model.ErrEmptyCorpus)
}

func TestTermVectorDimension(t *testing.T) {
	var records []model.Record
	for i := 0; i < 3000; i += 3 {
		records = append(records, model.Record{Text: fmt.Sprintf("w%04d w%04d w%04d", i, i+1, i+2)})
	}
	vecs, err := TermVectorBuilder{TopN: 5000, Normalize: true}.Build(records)
	require.NoError(t, err)
	require.Len(t, vecs, len(records))
	assert.Len(t, vecs[0], 3000)

	vecs, err = TermVectorBuilder{TopN: 10}.Build(records)
	require.NoError(t, err)
	assert.Len(t, vecs[0], 10)
}

func TestTermVectorUsesPreparedIDF(t *testing.T) {
	records := []model.Record{{Text: "good phone"}, {Text: "bad phone"}}
	idf, err := tfidf.FitTexts(model.Texts(records))
	require.NoError(t, err)
	vecs, err := TermVectorBuilder{TopN: 2, IDF: idf}.Build(records)
	require.NoError(t, err)
	assert.Len(t, vecs[0], 2)
}

func TestEmbeddingAggregation(t *testing.T) {
	tb := table(t)
	tokens := []string{"great", "phone", "unknown"}

	assert.Equal(t, []float64{1, 2}, EmbeddingBuilder{Table: tb, Mode: Sum}.Vector(tokens))
	assert.Equal(t, []float64{0.5, 1}, EmbeddingBuilder{Table: tb, Mode: Mean}.Vector(tokens))

	idf, err := tfidf.Fit([][]string{{"great"}, {"great", "phone"}, {"other"}})
	require.NoError(t, err)
	wGreat, _ := idf.Weight("great")
	got := EmbeddingBuilder{Table: tb, Mode: IDFMean, IDF: idf}.Vector([]string{"great", "battery"})
	// battery is absent from the idf table and weighs 1.
	assert.InDeltaSlice(t, []float64{(wGreat + 3) / 2, 3.0 / 2}, got, 1e-12)
}

func TestStopwordReviewIsZeroVector(t *testing.T) {
	records := []model.Record{{Text: "The, and, of!"}, {Text: "Great phone"}}
	normalizer.Default().Corpus(records)
	require.Empty(t, records[0].Tokens)

	for _, mode := range []Aggregation{Sum, Mean} {
		vecs, err := EmbeddingBuilder{Table: table(t), Mode: mode}.Build(records)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0}, vecs[0])
		assert.NotEqual(t, []float64{0, 0}, vecs[1])
	}
}

func TestEmbeddingBuilderRequiresTables(t *testing.T) {
	records := []model.Record{{Tokens: []string{"great"}}}
	_, err := EmbeddingBuilder{Mode: Sum}.Build(records)
	assert.Error(t, err)
	_, err = EmbeddingBuilder{Table: table(t), Mode: IDFMean}.Build(records)
	assert.Error(t, err)
}

type fakeEncoder struct {
	dim    int
	calls  [][]string
	failOn int
	closed bool
}

func (f *fakeEncoder) EncodeBatch(texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return nil, errors.New("boom")
	}
	out := make([][]float32, len(texts))
	for i, s := range texts {
		v := make([]float32, f.dim)
		v[0] = float32(len(s))
		out[i] = v
	}
	return out, nil
}

func (f *fakeEncoder) Dim() int     { return f.dim }
func (f *fakeEncoder) Close() error { f.closed = true; return nil }

func TestContextualBatches(t *testing.T) {
	var records []model.Record
	for i := 0; i < 70; i++ {
		records = append(records, model.Record{Text: fmt.Sprintf("%0*d", i+1, 0)})
	}
	enc := &fakeEncoder{dim: 3}
	vecs, err := ContextualBuilder{Encoder: enc, BatchSize: 32}.Build(records)
	require.NoError(t, err)

	require.Len(t, enc.calls, 3)
	assert.Len(t, enc.calls[0], 32)
	assert.Len(t, enc.calls[2], 6)
	require.Len(t, vecs, 70)
	for i, v := range vecs {
		assert.Equal(t, []float64{float64(i + 1), 0, 0}, v)
	}
}

func TestContextualPropagatesErrors(t *testing.T) {
	records := make([]model.Record, 40)
	_, err := ContextualBuilder{Encoder: &fakeEncoder{dim: 2, failOn: 2}, BatchSize: 32}.Build(records)
	assert.ErrorContains(t, err, "boom")
}

func TestPrepareAndNewBuilder(t *testing.T) {
	records := []model.Record{
		{Text: "Great battery, great phone", Label: 1},
		{Text: "Terrible screen", Label: 0},
		{Text: "Battery died fast", Label: 0},
	}
	normalizer.Default().Corpus(records)

	spec := DefaultSpec(IDFWeightedEmbedding)
	spec.Word2Vec.Dim = 8
	res, err := Prepare(records, nil, spec)
	require.NoError(t, err)
	require.NotNil(t, res.IDF)
	require.NotNil(t, res.Embeddings)

	b, err := NewBuilder(spec, res)
	require.NoError(t, err)
	vecs, err := b.Build(records)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Len(t, vecs[0], 8)

	_, err = NewBuilder(DefaultSpec(Contextual), res)
	assert.Error(t, err)
	_, err = NewBuilder(DefaultSpec(EmbeddingSum), Resources{})
	assert.Error(t, err)

	tv, err := Prepare(records, nil, DefaultSpec(TermVector))
	require.NoError(t, err)
	assert.Nil(t, tv.Embeddings)

	sum := DefaultSpec(EmbeddingSum)
	sum.Word2Vec.Dim = 4
	shared, err := Prepare(records, nil, DefaultSpec(TermVector), sum, spec)
	require.NoError(t, err)
	require.NotNil(t, shared.IDF)
	require.NotNil(t, shared.Embeddings)
	assert.Equal(t, 4, shared.Embeddings.Dim(), "first embedding spec sets the table")
	for _, s := range []Spec{DefaultSpec(TermVector), sum, spec} {
		_, err := NewBuilder(s, shared)
		assert.NoError(t, err, s.Strategy.String())
	}
}
