package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/helpful/internal/dataset"
	"github.com/crimson-sun/helpful/internal/engine/classifier"
	"github.com/crimson-sun/helpful/internal/engine/evaluate"
	"github.com/crimson-sun/helpful/internal/engine/representation"
	"github.com/crimson-sun/helpful/internal/engine/selection"
	"github.com/crimson-sun/helpful/internal/model"
)

// Mode selects how classifier hyperparameters are chosen.
type Mode int

const (
	// Plain fits one classifier with fixed parameters on a train/test split.
	Plain Mode = iota
	// GridSearch cross-validates a grid on the training part of a
	// train/validation/test split.
	GridSearch
)

func (m Mode) String() string {
	if m == GridSearch {
		return "grid"
	}
	return "plain"
}

// ParseMode accepts "plain" and "grid".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "plain", "":
		return Plain, nil
	case "grid":
		return GridSearch, nil
	}
	return 0, fmt.Errorf("engine: unknown mode %q", s)
}

// Split fractions used when Config leaves them zero.
const (
	DefaultPlainTestFrac = 0.3
	DefaultGridTestFrac  = 0.2
	DefaultValFrac       = 0.25
	DefaultSeed          = 42
)

// Config describes one experiment.
type Config struct {
	Representation representation.Spec
	Family         classifier.Family
	Mode           Mode
	Params         classifier.Params // Plain
	Grid           selection.Grid    // GridSearch
	TestFrac       float64
	ValFrac        float64 // GridSearch only, taken from what remains after the test split
	Folds          int
	Shuffle        bool // shuffle rows within each class before dealing folds
	Seed           int64
}

// DefaultConfig returns a plain-mode experiment for strategy and family.
func DefaultConfig(strategy representation.Strategy, family classifier.Family) Config {
	return Config{
		Representation: representation.DefaultSpec(strategy),
		Family:         family,
		Mode:           Plain,
		Folds:          selection.DefaultFolds,
		Seed:           DefaultSeed,
	}
}

// Outcome is everything an experiment measured.
type Outcome struct {
	Strategy   string            `json:"strategy"`
	Family     string            `json:"family"`
	Mode       string            `json:"mode"`
	Rows       int               `json:"rows"`
	Dim        int               `json:"dim"`
	Params     classifier.Params `json:"params,omitempty"`
	CVScore    float64           `json:"cv_auc,omitempty"`
	CVTable    []selection.Score `json:"cv_table,omitempty"`
	Validation *evaluate.Report  `json:"validation,omitempty"`
	Test       evaluate.Report   `json:"test"`
}

// Engine orchestrates the represent → split → fit → evaluate pipeline.
type Engine struct {
	cfg Config
	res representation.Resources
}

// New creates an Engine for cfg over res, the shared tables built by
// representation.Prepare. The engine only reads them.
func New(cfg Config, res representation.Resources) *Engine {
	if cfg.TestFrac == 0 {
		cfg.TestFrac = DefaultPlainTestFrac
		if cfg.Mode == GridSearch {
			cfg.TestFrac = DefaultGridTestFrac
		}
	}
	if cfg.ValFrac == 0 {
		cfg.ValFrac = DefaultValFrac
	}
	if cfg.Folds == 0 {
		cfg.Folds = selection.DefaultFolds
	}
	return &Engine{cfg: cfg, res: res}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Features builds one feature row per record, labeled with the record's
// label, and stores each row in the record's Vector.
func (e *Engine) Features(records []model.Record) (model.Partition, error) {
	start := time.Now()
	spec := e.cfg.Representation
	if len(records) == 0 {
		return model.Partition{}, fmt.Errorf("engine: %s: %w", spec.Strategy, model.ErrEmptyCorpus)
	}
	b, err := representation.NewBuilder(spec, e.res)
	if err != nil {
		return model.Partition{}, fmt.Errorf("engine: %w", err)
	}
	X, err := b.Build(records)
	if err != nil {
		return model.Partition{}, fmt.Errorf("engine: build %s: %w", spec.Strategy, err)
	}
	for i := range records {
		records[i].Vector = X[i]
	}

	p := model.Partition{X: X, Y: model.Labels(records)}
	slog.Info("features built",
		"strategy", spec.Strategy.String(),
		"rows", p.Len(),
		"dim", dim(p),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return p, nil
}

// Train splits p, fits the classifier and evaluates it on the held-out
// partitions.
func (e *Engine) Train(p model.Partition) (Outcome, error) {
	out := Outcome{
		Strategy: e.cfg.Representation.Strategy.String(),
		Family:   e.cfg.Family.String(),
		Mode:     e.cfg.Mode.String(),
		Rows:     p.Len(),
		Dim:      dim(p),
	}

	switch e.cfg.Mode {
	case GridSearch:
		train, val, test, err := dataset.SplitThree(p, e.cfg.TestFrac, e.cfg.ValFrac, e.cfg.Seed)
		if err != nil {
			return out, fmt.Errorf("engine: %w", err)
		}
		res, err := selection.Search(e.cfg.Family, e.cfg.Grid, train.X, train.Y, selection.Options{
			Folds:   e.cfg.Folds,
			Seed:    e.cfg.Seed,
			Shuffle: e.cfg.Shuffle,
		})
		if err != nil {
			return out, fmt.Errorf("engine: %w", err)
		}
		out.Params, out.CVScore, out.CVTable = res.Best, res.BestScore, res.Table

		vr, err := evaluate.Evaluate(res.Model, val)
		if err != nil {
			return out, fmt.Errorf("engine: validation: %w", err)
		}
		out.Validation = &vr
		if out.Test, err = evaluate.Evaluate(res.Model, test); err != nil {
			return out, fmt.Errorf("engine: test: %w", err)
		}

	default:
		train, test, err := dataset.Split(p, e.cfg.TestFrac, e.cfg.Seed)
		if err != nil {
			return out, fmt.Errorf("engine: %w", err)
		}
		clf, err := classifier.New(e.cfg.Family, e.cfg.Params)
		if err != nil {
			return out, fmt.Errorf("engine: %w", err)
		}
		start := time.Now()
		if err := clf.Fit(train.X, train.Y); err != nil {
			return out, fmt.Errorf("engine: fit %s: %w", e.cfg.Family, err)
		}
		slog.Info("model trained",
			"family", out.Family,
			"params", e.cfg.Params.String(),
			"rows", train.Len(),
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		out.Params = e.cfg.Params.Clone()
		if out.Test, err = evaluate.Evaluate(clf, test); err != nil {
			return out, fmt.Errorf("engine: test: %w", err)
		}
	}

	slog.Info("model evaluated",
		"strategy", out.Strategy,
		"family", out.Family,
		"accuracy", out.Test.Accuracy,
		"auc", out.Test.AUC,
		"f1", out.Test.F1,
	)
	return out, nil
}

// Run builds features for records and trains on them.
func (e *Engine) Run(records []model.Record) (Outcome, error) {
	p, err := e.Features(records)
	if err != nil {
		return Outcome{}, err
	}
	return e.Train(p)
}

func dim(p model.Partition) int {
	if len(p.X) == 0 {
		return 0
	}
	return len(p.X[0])
}
