// Package testdata embeds a small synthetic review corpus for tests. One row
// in three is a long, detailed review with more than 30 votes; the rest are
// short and have few votes. Three trailing rows have no vote and are dropped
// by the cleaner.
package testdata

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/crimson-sun/helpful/internal/cleaner"
	"github.com/crimson-sun/helpful/internal/loader"
	"github.com/crimson-sun/helpful/internal/model"
)

//go:embed reviews.ndjson
var reviewsNDJSON []byte

// Sizes of the embedded corpus.
const (
	Rows      = 63
	Kept      = 60
	Positives = 20
)

// Reviews returns the raw NDJSON corpus.
func Reviews() []byte {
	return bytes.Clone(reviewsNDJSON)
}

// Table parses the embedded corpus.
func Table() (*model.Table, error) {
	t, err := loader.Read(bytes.NewReader(reviewsNDJSON))
	if err != nil {
		return nil, fmt.Errorf("parse reviews.ndjson: %w", err)
	}
	return t, nil
}

// Records parses and cleans the embedded corpus with the default policy.
func Records() ([]model.Record, error) {
	t, err := Table()
	if err != nil {
		return nil, err
	}
	return cleaner.Clean(t, cleaner.DefaultConfig())
}

// WriteGzip writes the corpus to path gzip-compressed, the way review dumps
// are distributed.
func WriteGzip(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(reviewsNDJSON); err != nil {
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
