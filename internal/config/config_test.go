package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/helpful/internal/engine"
	"github.com/crimson-sun/helpful/internal/engine/classifier"
	"github.com/crimson-sun/helpful/internal/engine/embedder"
	"github.com/crimson-sun/helpful/internal/engine/representation"
	"github.com/crimson-sun/helpful/internal/output"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]string{"reviews.json.gz"})
	require.NoError(t, err)

	assert.Equal(t, "reviews.json.gz", cfg.Data.Input)
	assert.Equal(t, 10, cfg.Data.SamplePositive)
	assert.Equal(t, 90, cfg.Data.SampleNegative)
	assert.Equal(t, 30, cfg.Clean.Threshold)
	assert.False(t, cfg.Clean.StrictDropNA)
	assert.Contains(t, cfg.Clean.DropColumns, "reviewerID")

	rep := cfg.Representation
	assert.Equal(t, []representation.Strategy{representation.TermVector}, rep.Strategies)
	assert.Equal(t, 5000, rep.TopN)
	assert.True(t, rep.Normalize)
	assert.Equal(t, 100, rep.Word2Vec.Dim)
	assert.Equal(t, filepath.Join("models", "model.onnx"), rep.ModelPath)
	assert.Equal(t, embedder.PoolCLS, rep.Pooling)
	assert.False(t, rep.NeedsEncoder())
	assert.Equal(t, 4, rep.Threads)

	assert.Equal(t, classifier.MLP, cfg.Model.Family)
	assert.Equal(t, engine.Plain, cfg.Model.Mode)
	assert.Nil(t, cfg.Model.Params)
	assert.Equal(t, 5, cfg.Model.Folds)
	assert.Equal(t, int64(42), cfg.Model.Seed)

	assert.Equal(t, "stdout", cfg.Output.Format)
	assert.False(t, cfg.Output.Truncate)
	assert.Equal(t, output.Standard, cfg.Output.Verbosity)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse([]string{
		"-s", "w2v-idf,contextual",
		"--family", "lightgbm",
		"--mode", "grid",
		"--threshold", "10",
		"--params", "{num_leaves: 15, n_estimators: 20}",
		"--pooling", "mean",
		"--verbosity", "full",
		"--output", "file",
		"--truncate",
		"--onnx-threads", "2",
		"data.json.gz",
	})
	require.NoError(t, err)

	assert.Equal(t, []representation.Strategy{representation.IDFWeightedEmbedding, representation.Contextual},
		cfg.Representation.Strategies)
	assert.True(t, cfg.Representation.NeedsEncoder())
	assert.Equal(t, embedder.PoolMean, cfg.Representation.Pooling)
	assert.Equal(t, classifier.GBDT, cfg.Model.Family)
	assert.Equal(t, engine.GridSearch, cfg.Model.Mode)
	assert.Equal(t, 10, cfg.Clean.Threshold)
	assert.Equal(t, 15, cfg.Model.Params["num_leaves"])
	assert.Equal(t, output.Full, cfg.Output.Verbosity)
	assert.Equal(t, "file", cfg.Output.Format)
	assert.True(t, cfg.Output.Truncate)
	assert.Equal(t, 2, cfg.Representation.Threads)
}

func TestParseEnv(t *testing.T) {
	t.Setenv("HELPFUL_FAMILY", "svm")
	t.Setenv("HELPFUL_SEED", "7")
	t.Setenv("HELPFUL_LOG_FORMAT", "json")

	cfg, err := Parse([]string{"x.json"})
	require.NoError(t, err)
	assert.Equal(t, classifier.SVM, cfg.Model.Family)
	assert.Equal(t, int64(7), cfg.Model.Seed)
	assert.Equal(t, int64(7), cfg.Representation.Word2Vec.Seed)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParseRejects(t *testing.T) {
	tests := [][]string{
		{},
		{"--strategy", "bag-of-words", "x"},
		{"--family", "forest", "x"},
		{"--mode", "random", "x"},
		{"--pooling", "max", "x"},
		{"--output", "kafka", "x"},
		{"--params", "[1, 2", "x"},
		{"--strategy", ",", "x"},
	}
	for _, argv := range tests {
		_, err := Parse(argv)
		assert.Error(t, err, "%v", argv)
	}
}

func TestEngineConfig(t *testing.T) {
	cfg, err := Parse([]string{"--mode", "grid", "--family", "gbdt", "--top-n", "50", "x"})
	require.NoError(t, err)

	ec, err := cfg.Engine(representation.TermVector, DefaultGrids())
	require.NoError(t, err)
	assert.Equal(t, 50, ec.Representation.TopN)
	assert.Equal(t, engine.GridSearch, ec.Mode)
	assert.Len(t, ec.Grid, 3)
	assert.Equal(t, 27, ec.Grid.Size())

	_, err = cfg.Engine(representation.TermVector, Grids{})
	assert.ErrorContains(t, err, "no grid for gbdt")
}

func TestDefaultGrids(t *testing.T) {
	g := DefaultGrids()
	mlp, err := g.For(classifier.MLP)
	require.NoError(t, err)
	assert.Equal(t, 6*3*2*6*3, mlp.Size())
	assert.Equal(t, []any{500, 200}, mlp["hidden_layer_sizes"][2])

	// Every built-in combination must be accepted by its classifier.
	for _, f := range []classifier.Family{classifier.MLP, classifier.SVM, classifier.GBDT, classifier.Logistic} {
		grid, err := g.For(f)
		require.NoError(t, err, f.String())
		for _, p := range grid.Combinations()[:1] {
			_, err := classifier.New(f, p)
			assert.NoError(t, err, "%s %s", f, p)
		}
	}
}

func TestLoadGrids(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grids.yaml")
	require.NoError(t, os.WriteFile(path, []byte("svc:\n  C: [1, 2]\n"), 0o644))

	g, err := LoadGrids(path)
	require.NoError(t, err)
	svm, err := g.For(classifier.SVM)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, svm["C"])

	require.NoError(t, os.WriteFile(path, []byte("trees:\n  depth: [1]\n"), 0o644))
	_, err = LoadGrids(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("mlp:\n  alpha: []\n"), 0o644))
	_, err = LoadGrids(path)
	assert.Error(t, err)

	_, err = LoadGrids(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	g, err = LoadGrids("")
	require.NoError(t, err)
	assert.Len(t, g, 4)
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams("{hidden_layer_sizes: [500, 200], solver: sgd}")
	require.NoError(t, err)
	assert.Equal(t, "hidden_layer_sizes=[500 200] solver=sgd", p.String())

	p, err = ParseParams("  ")
	require.NoError(t, err)
	assert.Nil(t, p)
}
