// Package evaluate scores a fitted binary classifier on a labeled partition.
package evaluate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/crimson-sun/helpful/internal/model"
)

// Model is the read-only part of a fitted classifier.
type Model interface {
	Predict(X [][]float64) []int
	PredictProba(X [][]float64) []float64
}

// Report holds the held-out metrics of one model on one partition.
type Report struct {
	Accuracy  float64   `json:"accuracy"`
	AUC       float64   `json:"auc"`
	F1        float64   `json:"f1"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	Confusion [2][2]int `json:"confusion"` // rows true label, columns predicted, order [0,1]
	Support   int       `json:"support"`
}

// Evaluate predicts p with m and computes every metric. It fails with
// model.ErrComputation when p is empty or holds a single class, since AUC is
// undefined there.
func Evaluate(m Model, p model.Partition) (Report, error) {
	if p.Len() == 0 {
		return Report{}, fmt.Errorf("evaluate: empty partition: %w", model.ErrComputation)
	}
	pred := m.Predict(p.X)
	proba := m.PredictProba(p.X)
	if len(pred) != p.Len() || len(proba) != p.Len() {
		return Report{}, fmt.Errorf("evaluate: model returned %d labels and %d scores for %d rows: %w",
			len(pred), len(proba), p.Len(), model.ErrComputation)
	}

	auc, err := AUC(p.Y, proba)
	if err != nil {
		return Report{}, err
	}
	cm := Confusion(p.Y, pred)
	prec, rec, f1 := precisionRecallF1(cm)
	return Report{
		Accuracy:  Accuracy(p.Y, pred),
		AUC:       auc,
		F1:        f1,
		Precision: prec,
		Recall:    rec,
		Confusion: cm,
		Support:   p.Len(),
	}, nil
}

// Accuracy returns the fraction of exact label matches.
func Accuracy(y, pred []int) float64 {
	if len(y) == 0 {
		return 0
	}
	var ok int
	for i := range y {
		if y[i] == pred[i] {
			ok++
		}
	}
	return float64(ok) / float64(len(y))
}

// Confusion counts (true, predicted) label pairs. Labels other than 0 and 1
// are ignored.
func Confusion(y, pred []int) [2][2]int {
	var cm [2][2]int
	for i := range y {
		t, p := y[i], pred[i]
		if t < 0 || t > 1 || p < 0 || p > 1 {
			continue
		}
		cm[t][p]++
	}
	return cm
}

// F1 returns the positive-class F1 score, or 0 when precision and recall
// are both undefined or zero.
func F1(y, pred []int) float64 {
	_, _, f1 := precisionRecallF1(Confusion(y, pred))
	return f1
}

func precisionRecallF1(cm [2][2]int) (precision, recall, f1 float64) {
	tp, fp, fn := float64(cm[1][1]), float64(cm[0][1]), float64(cm[1][0])
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// AUC returns the area under the ROC curve of scores against binary labels.
// Tied scores share one cutoff, so they count one half. Non-finite scores
// fail with model.ErrComputation.
func AUC(y []int, scores []float64) (float64, error) {
	if len(y) != len(scores) {
		return 0, fmt.Errorf("evaluate: %d labels but %d scores: %w", len(y), len(scores), model.ErrComputation)
	}
	var pos, neg int
	sorted := make([]float64, len(scores))
	classes := make([]bool, len(y))
	for i, v := range y {
		if v == 1 {
			pos++
			classes[i] = true
		} else {
			neg++
		}
		if math.IsNaN(scores[i]) || math.IsInf(scores[i], 0) {
			return 0, fmt.Errorf("evaluate: score %d is %v: %w", i, scores[i], model.ErrComputation)
		}
		sorted[i] = scores[i]
	}
	if pos == 0 || neg == 0 {
		return 0, fmt.Errorf("evaluate: auc undefined with only one class present: %w", model.ErrComputation)
	}

	stat.SortWeightedLabeled(sorted, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}
