package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/crimson-sun/helpful/internal/output"
)

// Option configures a file Output.
type Option func(*Output)

// WithTruncate empties an existing file instead of appending to it.
func WithTruncate() Option {
	return func(o *Output) { o.flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC }
}

// Output appends one NDJSON report per experiment to a file. Parent
// directories are created as needed.
type Output struct {
	mu        sync.Mutex
	f         *os.File
	w         *bufio.Writer
	path      string
	flags     int
	verbosity output.Verbosity
}

// New opens path for writing reports.
func New(path string, verbosity output.Verbosity, opts ...Option) (*Output, error) {
	o := &Output{
		path:      path,
		flags:     os.O_CREATE | os.O_WRONLY | os.O_APPEND,
		verbosity: verbosity,
	}
	for _, opt := range opts {
		opt(o)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file output: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, o.flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("file output: open %s: %w", path, err)
	}
	o.f = f
	o.w = bufio.NewWriter(f)
	return o, nil
}

// Write JSON-encodes the report and appends it as a line to the file.
func (o *Output) Write(_ context.Context, r output.Report) error {
	data, err := json.Marshal(output.FormatReport(r, o.verbosity))
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}
	data = append(data, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.Write(data); err != nil {
		return fmt.Errorf("file output: write %s: %w", o.path, err)
	}
	return nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}
