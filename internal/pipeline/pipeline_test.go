package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/helpful/internal/config"
	"github.com/crimson-sun/helpful/internal/engine/testdata"
	"github.com/crimson-sun/helpful/internal/engine/word2vec"
	"github.com/crimson-sun/helpful/internal/model"
	"github.com/crimson-sun/helpful/internal/output"
)

// recorder keeps every report it receives.
type recorder struct {
	reports []output.Report
	closed  bool
	err     error
}

func (r *recorder) Write(_ context.Context, rep output.Report) error {
	if r.err != nil {
		return r.err
	}
	r.reports = append(r.reports, rep)
	return nil
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

// lengthEncoder encodes a text as its byte length.
type lengthEncoder struct{ closed bool }

func (e *lengthEncoder) EncodeBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, s := range texts {
		out[i] = []float32{float32(len(s)), 1}
	}
	return out, nil
}

func (e *lengthEncoder) Dim() int     { return 2 }
func (e *lengthEncoder) Close() error { e.closed = true; return nil }

// messageCounter counts log records by message.
type messageCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *messageCounter) Enabled(context.Context, slog.Level) bool { return true }
func (c *messageCounter) WithAttrs([]slog.Attr) slog.Handler        { return c }
func (c *messageCounter) WithGroup(string) slog.Handler             { return c }

func (c *messageCounter) Handle(_ context.Context, r slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[r.Message]++
	return nil
}

func (c *messageCounter) count(msg string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[msg]
}

func countMessages(t *testing.T) *messageCounter {
	t.Helper()
	c := &messageCounter{counts: map[string]int{}}
	prev := slog.Default()
	slog.SetDefault(slog.New(c))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return c
}

func corpusFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.json.gz")
	require.NoError(t, testdata.WriteGzip(path))
	return path
}

func parse(t *testing.T, argv ...string) config.Config {
	t.Helper()
	cfg, err := config.Parse(argv)
	require.NoError(t, err)
	return cfg
}

func TestRunWritesOneReportPerStrategy(t *testing.T) {
	input := corpusFile(t)
	w2v := filepath.Join(t.TempDir(), "vectors.safetensors.sz")
	cfg := parse(t, "--family", "logistic", "-s", "tfidf,w2v-mean,w2v-sum", "--w2v-out", w2v, "--w2v-dim", "16", input)

	rec := &recorder{}
	p := New(cfg, nil, nil, rec)
	require.NoError(t, p.Run(context.Background()))
	require.NoError(t, p.Close())
	assert.True(t, rec.closed)

	require.Len(t, rec.reports, 3)
	for i, want := range []string{"tfidf", "w2v-mean", "w2v-sum"} {
		r := rec.reports[i]
		assert.Equal(t, want, r.Strategy)
		assert.Equal(t, input, r.Source)
		assert.Equal(t, testdata.Kept, r.Records)
		require.NotNil(t, r.Votes)
		assert.Equal(t, testdata.Positives, r.Votes.Positives)
		assert.Equal(t, 18, r.Test.Support)
	}
	assert.Empty(t, rec.reports[0].Embeddings)
	assert.Equal(t, w2v, rec.reports[1].Embeddings)
	assert.Equal(t, 16, rec.reports[1].Dim)

	table, err := word2vec.Load(w2v)
	require.NoError(t, err)
	assert.Equal(t, 16, table.Dim())
	assert.True(t, table.Contains("shampoo"))
}

func TestRunTrainsWordVectorsOnce(t *testing.T) {
	input := corpusFile(t)
	w2v := filepath.Join(t.TempDir(), "vectors.safetensors")
	cfg := parse(t, "--family", "logistic", "-s", "w2v-sum,w2v-mean,w2v-idf,tfidf", "--w2v-out", w2v, "--w2v-dim", "8", input)
	logs := countMessages(t)

	rec := &recorder{}
	require.NoError(t, New(cfg, nil, nil, rec).Run(context.Background()))

	assert.Equal(t, 1, logs.count("word2vec trained"))
	assert.Equal(t, 1, logs.count("word vectors saved"))
	require.Len(t, rec.reports, 4)
	for _, r := range rec.reports[:3] {
		assert.Equal(t, w2v, r.Embeddings, r.Strategy)
		assert.Equal(t, 8, r.Dim, r.Strategy)
	}
	assert.Empty(t, rec.reports[3].Embeddings)
}

func TestRunGridMode(t *testing.T) {
	input := corpusFile(t)
	grids := filepath.Join(t.TempDir(), "grids.yaml")
	require.NoError(t, os.WriteFile(grids, []byte("logistic:\n  C: [0.5, 5]\n"), 0o644))
	cfg := parse(t, "--family", "logistic", "--mode", "grid", "--folds", "3", "--grids", grids, input)

	g, err := config.LoadGrids(cfg.Model.GridPath)
	require.NoError(t, err)
	rec := &recorder{}
	require.NoError(t, New(cfg, g, nil, rec).Run(context.Background()))

	require.Len(t, rec.reports, 1)
	r := rec.reports[0]
	assert.Equal(t, "grid", r.Mode)
	require.NotNil(t, r.Validation)
	assert.Len(t, r.CVTable, 6)
}

func TestRunContextualSubsample(t *testing.T) {
	input := corpusFile(t)
	cfg := parse(t, "--family", "logistic", "-s", "contextual", "--sample-positive", "20", "--sample-negative", "40", input)

	enc := &lengthEncoder{}
	rec := &recorder{}
	p := New(cfg, nil, enc, rec)
	require.NoError(t, p.Run(context.Background()))
	require.NoError(t, p.Close())
	assert.True(t, enc.closed)

	require.Len(t, rec.reports, 1)
	assert.Equal(t, 60, rec.reports[0].Records)
	assert.Equal(t, 2, rec.reports[0].Dim)

	cfg = parse(t, "--family", "logistic", "-s", "contextual", "--sample-positive", "21", input)
	err := New(cfg, nil, enc, &recorder{}).Run(context.Background())
	assert.ErrorIs(t, err, model.ErrInsufficientSamples)
}

func TestRunErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json.gz")
	err := New(parse(t, missing), nil, nil, &recorder{}).Run(context.Background())
	assert.ErrorIs(t, err, model.ErrIO)

	input := corpusFile(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = New(parse(t, "--family", "logistic", input), nil, nil, &recorder{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	boom := errors.New("disk full")
	err = New(parse(t, "--family", "logistic", input), nil, nil, &recorder{err: boom}).Run(context.Background())
	assert.ErrorIs(t, err, boom)

	err = New(parse(t, "--mode", "grid", input), config.Grids{}, nil, &recorder{}).Run(context.Background())
	assert.ErrorContains(t, err, "no grid for mlp")
}

func TestRunEmptyCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"reviewText": "no vote"}`+"\n"), 0o644))

	err := New(parse(t, path), nil, nil, &recorder{}).Run(context.Background())
	assert.ErrorIs(t, err, model.ErrEmptyCorpus)
}
