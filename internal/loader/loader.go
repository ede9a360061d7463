// Package loader reads newline-delimited JSON review records, optionally
// gzip-compressed, into an in-memory table.
package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"

	"github.com/crimson-sun/helpful/internal/model"
)

const progressEvery = 100000

// Load reads every non-empty line of the resource at path. A ".gz" suffix
// selects gzip decompression; any other path is read as plain text.
func Load(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %v: %w", path, err, model.ErrIO)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("loader: gzip %s: %v: %w", path, err, model.ErrIO)
		}
		defer zr.Close()
		r = zr
	}

	table, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	slog.Info("records loaded", "path", path, "rows", humanize.Comma(int64(table.Len())), "columns", len(table.Columns))
	return table, nil
}

// Read decodes newline-delimited JSON from r. Blank lines are skipped; a line
// that is not a JSON object fails the whole read.
func Read(r io.Reader) (*model.Table, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	table := &model.Table{}
	seen := make(map[string]bool)

	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read line %d: %v: %w", lineNo, err, model.ErrIO)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var rec model.RawRecord
			if jerr := json.Unmarshal(trimmed, &rec); jerr != nil {
				return nil, fmt.Errorf("line %d: %v: %w", lineNo, jerr, model.ErrParse)
			}
			if rec == nil {
				return nil, fmt.Errorf("line %d: not a JSON object: %w", lineNo, model.ErrParse)
			}
			for _, col := range sortedKeys(rec) {
				if !seen[col] {
					seen[col] = true
					table.Columns = append(table.Columns, col)
				}
			}
			table.Rows = append(table.Rows, rec)
			if len(table.Rows)%progressEvery == 0 {
				slog.Debug("loading records", "rows", humanize.Comma(int64(len(table.Rows))))
			}
		}
		if errors.Is(err, io.EOF) {
			return table, nil
		}
	}
}
