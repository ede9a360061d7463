// Package summary renders a comparison table of every evaluated partition,
// best AUC first, when the run finishes.
package summary

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-gota/gota/dataframe"

	"github.com/crimson-sun/helpful/internal/engine/evaluate"
	"github.com/crimson-sun/helpful/internal/output"
)

// Row is one evaluated partition. Field names are the column names.
type Row struct {
	Strategy  string
	Family    string
	Partition string
	Support   int
	Accuracy  float64
	AUC       float64
	F1        float64
}

// Output collects reports and prints the table to w on Close.
type Output struct {
	mu   sync.Mutex
	w    io.Writer
	rows []Row
}

// New returns a summary Output printing to w.
func New(w io.Writer) *Output {
	return &Output{w: w}
}

func (o *Output) Write(_ context.Context, r output.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if r.Validation != nil {
		o.rows = append(o.rows, row(r, "validation", *r.Validation))
	}
	o.rows = append(o.rows, row(r, "test", r.Test))
	return nil
}

func row(r output.Report, partition string, m evaluate.Report) Row {
	return Row{
		Strategy:  r.Strategy,
		Family:    r.Family,
		Partition: partition,
		Support:   m.Support,
		Accuracy:  m.Accuracy,
		AUC:       m.AUC,
		F1:        m.F1,
	}
}

// Frame returns the collected rows sorted by descending AUC.
func (o *Output) Frame() (dataframe.DataFrame, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("summary: no reports")
	}
	df := dataframe.LoadStructs(o.rows).Arrange(dataframe.RevSort("AUC"))
	if df.Err != nil {
		return df, fmt.Errorf("summary: %w", df.Err)
	}
	return df, nil
}

// Close prints the table. Nothing is printed when no report was written.
func (o *Output) Close() error {
	o.mu.Lock()
	empty := len(o.rows) == 0
	o.mu.Unlock()
	if empty {
		return nil
	}
	df, err := o.Frame()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(o.w, df)
	return err
}
