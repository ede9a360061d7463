// Package config maps command-line flags and HELPFUL_* environment variables
// onto the settings of one pipeline run.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	"gopkg.in/yaml.v2"

	"github.com/crimson-sun/helpful/internal/cleaner"
	"github.com/crimson-sun/helpful/internal/engine"
	"github.com/crimson-sun/helpful/internal/engine/classifier"
	"github.com/crimson-sun/helpful/internal/engine/embedder"
	"github.com/crimson-sun/helpful/internal/engine/representation"
	"github.com/crimson-sun/helpful/internal/engine/word2vec"
	"github.com/crimson-sun/helpful/internal/output"
)

// Args are the flat command-line flags. Every flag can also be set through
// the environment variable named in its tag.
type Args struct {
	Input string `arg:"positional" help:"gzip NDJSON review file"`

	Threshold      int  `arg:"--threshold,env:HELPFUL_THRESHOLD" default:"30" help:"label is 1 when votes exceed this"`
	StrictDropNA   bool `arg:"--strict-dropna,env:HELPFUL_STRICT_DROPNA" help:"drop rows missing any retained column"`
	SamplePositive int  `arg:"--sample-positive,env:HELPFUL_SAMPLE_POSITIVE" default:"10" help:"positives in the contextual subsample"`
	SampleNegative int  `arg:"--sample-negative,env:HELPFUL_SAMPLE_NEGATIVE" default:"90" help:"negatives in the contextual subsample"`

	Strategy    string `arg:"-s,--strategy,env:HELPFUL_STRATEGY" default:"tfidf" help:"comma-separated: tfidf, w2v-sum, w2v-mean, w2v-idf, contextual"`
	TopN        int    `arg:"--top-n,env:HELPFUL_TOP_N" default:"5000" help:"term vector size"`
	NoNormalize bool   `arg:"--no-normalize,env:HELPFUL_NO_NORMALIZE" help:"skip L2 normalization of term vectors"`
	W2VDim      int    `arg:"--w2v-dim,env:HELPFUL_W2V_DIM" default:"100"`
	W2VWindow   int    `arg:"--w2v-window,env:HELPFUL_W2V_WINDOW" default:"5"`
	W2VMinCount int    `arg:"--w2v-min-count,env:HELPFUL_W2V_MIN_COUNT" default:"1"`
	W2VEpochs   int    `arg:"--w2v-epochs,env:HELPFUL_W2V_EPOCHS" default:"5"`
	W2VOut      string `arg:"--w2v-out,env:HELPFUL_W2V_OUT" help:"save the trained word vectors here (.sz for snappy)"`

	ModelDir  string `arg:"--model-dir,env:HELPFUL_MODEL_DIR" default:"models" help:"directory with model.onnx and vocab.txt"`
	OnnxLib   string `arg:"--onnx-lib,env:HELPFUL_ONNX_LIB" help:"onnxruntime shared library"`
	Layers    int    `arg:"--layers,env:HELPFUL_LAYERS" default:"4" help:"final encoder layers averaged"`
	Pooling   string `arg:"--pooling,env:HELPFUL_POOLING" default:"cls" help:"cls or mean"`
	MaxSeqLen int    `arg:"--max-seq-len,env:HELPFUL_MAX_SEQ_LEN" default:"512"`
	BatchSize int    `arg:"--batch-size,env:HELPFUL_BATCH_SIZE" default:"32"`
	CacheSize int    `arg:"--cache-size,env:HELPFUL_CACHE_SIZE" default:"4096" help:"encoded texts kept in memory"`
	Threads   int    `arg:"--onnx-threads,env:HELPFUL_ONNX_THREADS" default:"4" help:"intra-op threads of the encoder session"`

	Family   string  `arg:"-f,--family,env:HELPFUL_FAMILY" default:"mlp" help:"mlp, svm, gbdt or logistic"`
	Mode     string  `arg:"-m,--mode,env:HELPFUL_MODE" default:"plain" help:"plain or grid"`
	Params   string  `arg:"-p,--params,env:HELPFUL_PARAMS" help:"plain-mode parameters as a YAML mapping"`
	Grids    string  `arg:"--grids,env:HELPFUL_GRIDS" help:"YAML grid file; built-in grids when empty"`
	Folds    int     `arg:"--folds,env:HELPFUL_FOLDS" default:"5"`
	Shuffle  bool    `arg:"--shuffle,env:HELPFUL_SHUFFLE" help:"shuffle rows before dealing folds"`
	Seed     int64   `arg:"--seed,env:HELPFUL_SEED" default:"42"`
	TestFrac float64 `arg:"--test-frac,env:HELPFUL_TEST_FRAC" help:"held-out fraction; 0.3 plain, 0.2 grid when zero"`
	ValFrac  float64 `arg:"--val-frac,env:HELPFUL_VAL_FRAC" default:"0.25"`

	Output    string `arg:"-o,--output,env:HELPFUL_OUTPUT" default:"stdout" help:"stdout, file or none"`
	OutPath   string `arg:"--out-path,env:HELPFUL_OUT_PATH" default:"reports.jsonl"`
	Truncate  bool   `arg:"--truncate,env:HELPFUL_TRUNCATE" help:"overwrite --out-path instead of appending"`
	CVTable   string `arg:"--cv-table,env:HELPFUL_CV_TABLE" help:"write cross-validation scores as CSV here"`
	Summary   bool   `arg:"--summary,env:HELPFUL_SUMMARY" help:"print a comparison table to stderr at the end"`
	Pretty    bool   `arg:"--pretty,env:HELPFUL_PRETTY"`
	Verbosity string `arg:"--verbosity,env:HELPFUL_VERBOSITY" default:"standard" help:"minimal, standard or full"`

	LogFormat string `arg:"--log-format,env:HELPFUL_LOG_FORMAT" default:"text" help:"text or json"`
	LogLevel  string `arg:"--log-level,env:HELPFUL_LOG_LEVEL" default:"info"`
}

// Description is shown by --help.
func (Args) Description() string {
	return "helpful predicts whether a product review will be voted helpful.\n"
}

// Config holds all settings of a run.
type Config struct {
	Data           DataConfig
	Clean          cleaner.Config
	Representation RepresentationConfig
	Model          ModelConfig
	Output         OutputConfig
	Log            LogConfig
}

// DataConfig locates the input.
type DataConfig struct {
	Input          string
	SamplePositive int
	SampleNegative int
}

// RepresentationConfig selects the feature strategies and their resources.
type RepresentationConfig struct {
	Strategies []representation.Strategy
	TopN       int
	Normalize  bool
	Word2Vec   word2vec.Config
	SavePath   string // word2vec table

	ModelPath   string
	VocabPath   string
	LibraryPath string
	Layers      int
	Pooling     embedder.Pooling
	MaxSeqLen   int
	BatchSize   int
	CacheSize   int
	Threads     int
}

// NeedsEncoder reports whether any strategy runs the transformer.
func (r RepresentationConfig) NeedsEncoder() bool {
	for _, s := range r.Strategies {
		if s == representation.Contextual {
			return true
		}
	}
	return false
}

// Spec returns the representation spec for strategy.
func (r RepresentationConfig) Spec(strategy representation.Strategy) representation.Spec {
	spec := representation.DefaultSpec(strategy)
	spec.TopN = r.TopN
	spec.Normalize = r.Normalize
	spec.Word2Vec = r.Word2Vec
	spec.BatchSize = r.BatchSize
	return spec
}

// ModelConfig selects the classifier and how it is trained.
type ModelConfig struct {
	Family   classifier.Family
	Mode     engine.Mode
	Params   classifier.Params
	GridPath string
	Folds    int
	Shuffle  bool
	Seed     int64
	TestFrac float64
	ValFrac  float64
}

// OutputConfig holds report destinations.
type OutputConfig struct {
	Format      string // "stdout", "file" or "none"
	Path        string
	Truncate    bool
	CVTablePath string
	Summary     bool
	Pretty      bool
	Verbosity   output.Verbosity
}

// LogConfig holds logger settings.
type LogConfig struct {
	Format string
	Level  string
}

// Parse parses argv and the HELPFUL_* environment into a Config.
func Parse(argv []string) (Config, error) {
	var a Args
	p, err := arg.NewParser(arg.Config{Program: "helpful"}, &a)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := p.Parse(argv); err != nil {
		return Config{}, err
	}
	return Load(a)
}

// Load maps parsed flags onto a Config and validates them.
func Load(a Args) (Config, error) {
	if a.Input == "" {
		return Config{}, fmt.Errorf("config: an input file is required")
	}
	cfg := Config{
		Data: DataConfig{
			Input:          a.Input,
			SamplePositive: a.SamplePositive,
			SampleNegative: a.SampleNegative,
		},
		Clean: cleaner.DefaultConfig(),
		Representation: RepresentationConfig{
			TopN:        a.TopN,
			Normalize:   !a.NoNormalize,
			Word2Vec:    word2vec.DefaultConfig(),
			SavePath:    a.W2VOut,
			ModelPath:   filepath.Join(a.ModelDir, "model.onnx"),
			VocabPath:   filepath.Join(a.ModelDir, "vocab.txt"),
			LibraryPath: a.OnnxLib,
			Layers:      a.Layers,
			MaxSeqLen:   a.MaxSeqLen,
			BatchSize:   a.BatchSize,
			CacheSize:   a.CacheSize,
			Threads:     a.Threads,
		},
		Model: ModelConfig{
			GridPath: a.Grids,
			Folds:    a.Folds,
			Shuffle:  a.Shuffle,
			Seed:     a.Seed,
			TestFrac: a.TestFrac,
			ValFrac:  a.ValFrac,
		},
		Output: OutputConfig{
			Format:      strings.ToLower(a.Output),
			Path:        a.OutPath,
			Truncate:    a.Truncate,
			CVTablePath: a.CVTable,
			Summary:     a.Summary,
			Pretty:      a.Pretty,
			Verbosity:   output.ParseVerbosity(a.Verbosity),
		},
		Log: LogConfig{Format: a.LogFormat, Level: a.LogLevel},
	}
	cfg.Clean.Threshold = a.Threshold
	cfg.Clean.StrictDropNA = a.StrictDropNA

	w2v := &cfg.Representation.Word2Vec
	w2v.Dim, w2v.Window, w2v.MinCount, w2v.Epochs = a.W2VDim, a.W2VWindow, a.W2VMinCount, a.W2VEpochs
	w2v.Seed = a.Seed

	var err error
	for _, name := range strings.Split(a.Strategy, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s, err := representation.ParseStrategy(name)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		cfg.Representation.Strategies = append(cfg.Representation.Strategies, s)
	}
	if len(cfg.Representation.Strategies) == 0 {
		return Config{}, fmt.Errorf("config: no strategy given")
	}
	if cfg.Representation.Pooling, err = embedder.ParsePooling(a.Pooling); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.Model.Family, err = classifier.ParseFamily(a.Family); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.Model.Mode, err = engine.ParseMode(strings.ToLower(a.Mode)); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.Model.Params, err = ParseParams(a.Params); err != nil {
		return Config{}, err
	}
	switch cfg.Output.Format {
	case "stdout", "file", "none":
	default:
		return Config{}, fmt.Errorf("config: unknown output %q", a.Output)
	}
	return cfg, nil
}

// ParseParams decodes a YAML mapping such as
// "{hidden_layer_sizes: [500, 200], max_iter: 300}".
func ParseParams(s string) (classifier.Params, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var m map[string]any
	if err := yaml.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("config: params: %w", err)
	}
	return classifier.Params(m), nil
}

// Engine returns the engine configuration for one strategy, with grid-mode
// grids taken from grids.
func (c Config) Engine(strategy representation.Strategy, grids Grids) (engine.Config, error) {
	ec := engine.Config{
		Representation: c.Representation.Spec(strategy),
		Family:         c.Model.Family,
		Mode:           c.Model.Mode,
		Params:         c.Model.Params,
		Folds:          c.Model.Folds,
		Shuffle:        c.Model.Shuffle,
		Seed:           c.Model.Seed,
		TestFrac:       c.Model.TestFrac,
		ValFrac:        c.Model.ValFrac,
	}
	if c.Model.Mode == engine.GridSearch {
		g, err := grids.For(c.Model.Family)
		if err != nil {
			return ec, err
		}
		ec.Grid = g
	}
	return ec, nil
}
