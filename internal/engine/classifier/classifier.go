// Package classifier implements binary classifiers behind one fit/predict
// contract: a feed-forward network, a kernel support-vector machine, a
// gradient-boosted tree ensemble and a plain logistic regression.
package classifier

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/helpful/internal/model"
)

// Classifier is a binary classifier over dense feature rows. Labels are 0 or
// 1. Fit is called once; the predict methods never modify the model.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
	PredictProba(X [][]float64) []float64
}

// Family names a classifier implementation.
type Family int

const (
	MLP Family = iota
	SVM
	GBDT
	Logistic
)

var familyNames = map[Family]string{
	MLP:      "mlp",
	SVM:      "svm",
	GBDT:     "gbdt",
	Logistic: "logistic",
}

func (f Family) String() string {
	if n, ok := familyNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// ParseFamily accepts the names printed by Family.String plus a few aliases.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mlp", "nn":
		return MLP, nil
	case "svm", "svc":
		return SVM, nil
	case "gbdt", "lightgbm", "lgbm":
		return GBDT, nil
	case "logistic", "logreg":
		return Logistic, nil
	}
	return 0, fmt.Errorf("classifier: unknown family %q", s)
}

// New returns an unfitted classifier of family configured by params.
// Unknown parameter names are rejected.
func New(family Family, params Params) (Classifier, error) {
	switch family {
	case MLP:
		return newMLP(params)
	case SVM:
		return newSVM(params)
	case GBDT:
		return newGBDT(params)
	case Logistic:
		return newLogistic(params)
	}
	return nil, fmt.Errorf("classifier: unsupported family %s", family)
}

// validate checks that X is a non-empty rectangular matrix matching y and
// that every label is 0 or 1. It returns the row and column counts.
func validate(X [][]float64, y []int) (int, int, error) {
	if len(X) == 0 {
		return 0, 0, fmt.Errorf("classifier: no training rows: %w", model.ErrEmptyCorpus)
	}
	if len(X) != len(y) {
		return 0, 0, fmt.Errorf("classifier: %d rows but %d labels", len(X), len(y))
	}
	d := len(X[0])
	if d == 0 {
		return 0, 0, fmt.Errorf("classifier: rows have no features")
	}
	for i, row := range X {
		if len(row) != d {
			return 0, 0, fmt.Errorf("classifier: row %d has %d features, want %d", i, len(row), d)
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, 0, fmt.Errorf("classifier: label %d at row %d is not 0 or 1", y[i], i)
		}
	}
	return len(X), d, nil
}

func bothClasses(y []int) bool {
	var seen [2]bool
	for _, v := range y {
		seen[v] = true
	}
	return seen[0] && seen[1]
}

// threshold maps positive-class probabilities to labels.
func threshold(p []float64) []int {
	out := make([]int, len(p))
	for i, v := range p {
		if v > 0.5 {
			out[i] = 1
		}
	}
	return out
}
