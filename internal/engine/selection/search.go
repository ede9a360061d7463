package selection

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/crimson-sun/helpful/internal/dataset"
	"github.com/crimson-sun/helpful/internal/engine/classifier"
	"github.com/crimson-sun/helpful/internal/engine/evaluate"
	"github.com/crimson-sun/helpful/internal/model"
)

// DefaultFolds is the cross-validation fold count used when Options.Folds is
// zero.
const DefaultFolds = 5

// Options controls cross-validation.
type Options struct {
	Folds   int
	Seed    int64
	Shuffle bool // permute each class before dealing rows into folds
}

// Score is the held-out AUC of one parameter combination on one fold.
type Score struct {
	Combination int     `csv:"combination" json:"combination"`
	Params      string  `csv:"params" json:"params"`
	Fold        int     `csv:"fold" json:"fold"`
	AUC         float64 `csv:"auc" json:"auc"`
}

// Result is the outcome of a grid search.
type Result struct {
	Best      classifier.Params
	Model     classifier.Classifier // Best refit on the full training data
	BestScore float64               // mean fold AUC of Best
	Table     []Score
}

// Search cross-validates every combination of grid for family on (X, y),
// keeps the one with the highest mean AUC and refits it on all of X. Ties go
// to the combination enumerated first. Any failing fold aborts the search.
func Search(family classifier.Family, grid Grid, X [][]float64, y []int, opts Options) (Result, error) {
	if err := grid.validate(); err != nil {
		return Result{}, err
	}
	if opts.Folds == 0 {
		opts.Folds = DefaultFolds
	}
	folds, err := dataset.StratifiedKFold(y, opts.Folds, opts.Shuffle, opts.Seed)
	if err != nil {
		return Result{}, fmt.Errorf("selection: %w", err)
	}

	data := model.Partition{X: X, Y: y}
	combos := grid.Combinations()
	slog.Info("grid search started",
		"family", family.String(),
		"combinations", len(combos),
		"folds", len(folds),
	)
	start := time.Now()

	var res Result
	bestIdx := -1
	for c, params := range combos {
		aucs := make(stats.Float64Data, 0, len(folds))
		for f, fold := range folds {
			auc, err := scoreFold(family, params, data.Subset(fold.Train), data.Subset(fold.Test))
			if err != nil {
				return Result{}, fmt.Errorf("selection: %s fold %d: %w", params, f, err)
			}
			aucs = append(aucs, auc)
			res.Table = append(res.Table, Score{Combination: c, Params: params.String(), Fold: f, AUC: auc})
		}
		mean, err := aucs.Mean()
		if err != nil {
			return Result{}, fmt.Errorf("selection: %s: %w", params, err)
		}
		slog.Debug("combination scored", "params", params.String(), "mean_auc", mean)
		if bestIdx < 0 || mean > res.BestScore {
			bestIdx, res.BestScore = c, mean
		}
	}

	res.Best = combos[bestIdx].Clone()
	if res.Model, err = classifier.New(family, res.Best); err != nil {
		return Result{}, fmt.Errorf("selection: %w", err)
	}
	if err := res.Model.Fit(X, y); err != nil {
		return Result{}, fmt.Errorf("selection: refit %s: %w", res.Best, err)
	}

	slog.Info("grid search finished",
		"best", res.Best.String(),
		"mean_auc", res.BestScore,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func scoreFold(family classifier.Family, params classifier.Params, train, test model.Partition) (float64, error) {
	clf, err := classifier.New(family, params)
	if err != nil {
		return 0, err
	}
	if err := clf.Fit(train.X, train.Y); err != nil {
		return 0, err
	}
	return evaluate.AUC(test.Y, clf.PredictProba(test.X))
}
