package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/helpful/internal/output"
)

// Multi fans a report out to several outputs in order. A failing output does
// not stop the others from receiving the report.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over outputs. Nil entries are skipped.
func New(outputs ...output.Output) *Multi {
	m := &Multi{}
	for _, o := range outputs {
		m.Add(o)
	}
	return m
}

// Add appends o to the fan-out list.
func (m *Multi) Add(o output.Output) {
	if o != nil {
		m.outputs = append(m.outputs, o)
	}
}

// Len returns the number of wrapped outputs.
func (m *Multi) Len() int {
	return len(m.outputs)
}

// Write delivers r to every output and joins their errors. It returns the
// context error without writing anything if ctx is already done.
func (m *Multi) Write(ctx context.Context, r output.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for i, o := range m.outputs {
		if err := o.Write(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
