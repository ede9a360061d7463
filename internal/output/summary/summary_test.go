package summary

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/helpful/internal/engine"
	"github.com/crimson-sun/helpful/internal/engine/evaluate"
	"github.com/crimson-sun/helpful/internal/output"
)

func report(strategy string, test float64, val *evaluate.Report) output.Report {
	return output.Report{Outcome: engine.Outcome{
		Strategy:   strategy,
		Family:     "mlp",
		Test:       evaluate.Report{AUC: test, Accuracy: 0.5, Support: 10},
		Validation: val,
	}}
}

func TestFrameSortedByAUC(t *testing.T) {
	var buf bytes.Buffer
	out := New(&buf)
	ctx := context.Background()
	require.NoError(t, out.Write(ctx, report("tfidf", 0.61, nil)))
	require.NoError(t, out.Write(ctx, report("w2v-idf", 0.74, &evaluate.Report{AUC: 0.7, Support: 10})))
	require.NoError(t, out.Write(ctx, report("contextual", 0.66, nil)))

	df, err := out.Frame()
	require.NoError(t, err)
	assert.Equal(t, 4, df.Nrow())
	assert.Equal(t, []float64{0.74, 0.7, 0.66, 0.61}, df.Col("AUC").Float())
	assert.Equal(t, []string{"w2v-idf", "w2v-idf", "contextual", "tfidf"}, df.Col("Strategy").Records())
	assert.Equal(t, "validation", df.Col("Partition").Records()[1])

	require.NoError(t, out.Close())
	assert.Contains(t, buf.String(), "w2v-idf")
	assert.Contains(t, buf.String(), "AUC")
}

func TestEmptySummaryPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	out := New(&buf)
	_, err := out.Frame()
	assert.Error(t, err)
	require.NoError(t, out.Close())
	assert.Empty(t, buf.String())
}
