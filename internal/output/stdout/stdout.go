package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/crimson-sun/helpful/internal/output"
)

// Output writes JSON-encoded reports to stdout.
type Output struct {
	enc       *json.Encoder
	verbosity output.Verbosity
}

// New creates a new stdout Output with verbosity-aware field omission
// and optional pretty-printed JSON.
func New(verbosity output.Verbosity, pretty bool) *Output {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, r output.Report) error {
	if err := o.enc.Encode(output.FormatReport(r, o.verbosity)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
