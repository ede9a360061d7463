package evaluate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/helpful/internal/model"
)

// fixed returns preset predictions regardless of input.
type fixed struct {
	pred  []int
	proba []float64
}

func (f fixed) Predict([][]float64) []int           { return f.pred }
func (f fixed) PredictProba([][]float64) []float64 { return f.proba }

func partition(y ...int) model.Partition {
	p := model.Partition{Y: y, X: make([][]float64, len(y))}
	for i := range p.X {
		p.X[i] = []float64{float64(i)}
	}
	return p
}

func TestPerfectClassifier(t *testing.T) {
	p := partition(0, 1, 1, 0, 1)
	m := fixed{pred: []int{0, 1, 1, 0, 1}, proba: []float64{0.1, 0.9, 0.8, 0.2, 0.7}}

	r, err := Evaluate(m, p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Accuracy)
	assert.Equal(t, 1.0, r.F1)
	assert.Equal(t, 1.0, r.AUC)
	assert.Equal(t, [2][2]int{{2, 0}, {0, 3}}, r.Confusion)
	assert.Equal(t, 5, r.Support)
}

func TestSingleClassIsComputationError(t *testing.T) {
	m := fixed{pred: []int{1, 1}, proba: []float64{0.6, 0.7}}
	_, err := Evaluate(m, partition(1, 1))
	assert.ErrorIs(t, err, model.ErrComputation)

	_, err = AUC([]int{0, 0, 0}, []float64{0.1, 0.2, 0.3})
	assert.ErrorIs(t, err, model.ErrComputation)
}

func TestEmptyPartition(t *testing.T) {
	_, err := Evaluate(fixed{}, model.Partition{})
	assert.ErrorIs(t, err, model.ErrComputation)
}

func TestMismatchedOutput(t *testing.T) {
	_, err := Evaluate(fixed{pred: []int{1}, proba: []float64{0.5}}, partition(0, 1))
	assert.ErrorIs(t, err, model.ErrComputation)
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name   string
		y      []int
		scores []float64
		want   float64
	}{
		{"inverted", []int{1, 0}, []float64{0.1, 0.9}, 0},
		{"all tied", []int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5}, 0.5},
		{"classic", []int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8}, 0.75},
		{"partial tie", []int{0, 1, 1}, []float64{0.3, 0.3, 0.9}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.y, tt.scores)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestNonFiniteScores(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := AUC([]int{0, 1, 1}, []float64{0.2, bad, 0.7})
		assert.ErrorIs(t, err, model.ErrComputation, "%v", bad)
	}

	nan := math.NaN()
	_, err := Evaluate(fixed{pred: []int{0, 0}, proba: []float64{nan, nan}}, partition(0, 1))
	assert.ErrorIs(t, err, model.ErrComputation)
}

func TestF1(t *testing.T) {
	assert.Equal(t, 0.0, F1([]int{0, 1}, []int{0, 0}), "no predicted positives")
	assert.Equal(t, 0.0, F1([]int{0, 0}, []int{1, 0}), "no true positives")
	// tp=1 fp=1 fn=1
	assert.InDelta(t, 0.5, F1([]int{1, 1, 0}, []int{1, 0, 1}), 1e-12)
}

func TestConfusionLayout(t *testing.T) {
	cm := Confusion([]int{0, 0, 1, 1, 1}, []int{0, 1, 0, 1, 1})
	assert.Equal(t, [2][2]int{{1, 1}, {1, 2}}, cm)
	assert.InDelta(t, 0.6, Accuracy([]int{0, 0, 1, 1, 1}, []int{0, 1, 0, 1, 1}), 1e-12)
}
