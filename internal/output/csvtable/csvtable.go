// Package csvtable writes cross-validation score tables as CSV.
package csvtable

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/crimson-sun/helpful/internal/output"
)

// Row is one line of the CSV file.
type Row struct {
	Source      string  `csv:"source"`
	Strategy    string  `csv:"strategy"`
	Family      string  `csv:"family"`
	Combination int     `csv:"combination"`
	Params      string  `csv:"params"`
	Fold        int     `csv:"fold"`
	AUC         float64 `csv:"auc"`
}

// Output appends the CV table of every grid-search report to one CSV file.
// Reports without a table are ignored. The header is written once.
type Output struct {
	mu     sync.Mutex
	f      *os.File
	header bool
}

// New creates (or truncates) path.
func New(path string) (*Output, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("csvtable output: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvtable output: %w", err)
	}
	return &Output{f: f}, nil
}

// Rows flattens r's CV table.
func Rows(r output.Report) []*Row {
	rows := make([]*Row, len(r.CVTable))
	for i, s := range r.CVTable {
		rows[i] = &Row{
			Source:      r.Source,
			Strategy:    r.Strategy,
			Family:      r.Family,
			Combination: s.Combination,
			Params:      s.Params,
			Fold:        s.Fold,
			AUC:         s.AUC,
		}
	}
	return rows
}

func (o *Output) Write(_ context.Context, r output.Report) error {
	rows := Rows(r)
	if len(rows) == 0 {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	var err error
	if o.header {
		err = gocsv.MarshalWithoutHeaders(&rows, o.f)
	} else {
		err = gocsv.Marshal(&rows, o.f)
	}
	if err != nil {
		return fmt.Errorf("csvtable output: %w", err)
	}
	o.header = true
	return nil
}

// Close closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.f.Close()
}
