// Package cleaner turns raw review rows into labeled records.
package cleaner

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/crimson-sun/helpful/internal/model"
)

// Field names of the review dataset.
const (
	FieldText     = "reviewText"
	FieldVote     = "vote"
	FieldSummary  = "summary"
	FieldOverall  = "overall"
	FieldVerified = "verified"
)

// DefaultThreshold is the vote count a review must exceed to be labeled 1.
const DefaultThreshold = 30

// Config controls which rows and columns survive cleaning.
type Config struct {
	DropColumns  []string // identifiers, timestamps and media metadata
	Required     []string // rows missing any of these are dropped
	StrictDropNA bool     // also drop rows missing any retained column
	Threshold    int      // label = 1 when votes > Threshold
}

// DefaultConfig returns the column policy used for the review dataset.
func DefaultConfig() Config {
	return Config{
		DropColumns: []string{"reviewerID", "reviewTime", "asin", "unixReviewTime", "style", "image"},
		Required:    []string{FieldText, FieldVote},
		Threshold:   DefaultThreshold,
	}
}

// Clean drops irrelevant columns and incomplete rows, parses vote counts and
// derives labels. A vote that cannot be parsed aborts the whole run.
func Clean(table *model.Table, cfg Config) ([]model.Record, error) {
	if table == nil {
		return nil, nil
	}
	dropped := make(map[string]bool, len(cfg.DropColumns))
	for _, c := range cfg.DropColumns {
		dropped[c] = true
	}
	required := cfg.Required
	if cfg.StrictDropNA {
		required = nil
		for _, c := range table.Columns {
			if !dropped[c] {
				required = append(required, c)
			}
		}
	}

	records := make([]model.Record, 0, len(table.Rows))
	var skipped int
	for i, row := range table.Rows {
		if !complete(row, required) {
			skipped++
			continue
		}
		votes, err := ParseVotes(row[FieldVote])
		if err != nil {
			return nil, fmt.Errorf("cleaner: row %d: %w", i+1, err)
		}
		records = append(records, model.Record{
			Text:     asString(row[FieldText]),
			Summary:  asString(row[FieldSummary]),
			Overall:  asFloat(row[FieldOverall]),
			Verified: row[FieldVerified] == true,
			Votes:    votes,
			Label:    Label(votes, cfg.Threshold),
		})
	}
	slog.Info("records cleaned", "kept", len(records), "dropped", skipped, "threshold", cfg.Threshold)
	return records, nil
}

// Label returns 1 when votes is strictly above threshold, else 0.
func Label(votes, threshold int) int {
	if votes > threshold {
		return 1
	}
	return 0
}

// ParseVotes normalizes a vote field. Strings lose surrounding whitespace and
// thousands separators before integer parsing; integral JSON numbers are
// accepted as is.
func ParseVotes(v any) (int, error) {
	switch x := v.(type) {
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("vote %q is not an integer: %w", x, model.ErrFormat)
		}
		if n < 0 {
			return 0, fmt.Errorf("vote %q is negative: %w", x, model.ErrFormat)
		}
		return n, nil
	case float64:
		if x < 0 || x != math.Trunc(x) || x >= math.MaxInt64 {
			return 0, fmt.Errorf("vote %v is not a non-negative integer: %w", x, model.ErrFormat)
		}
		return int(x), nil
	default:
		return 0, fmt.Errorf("vote has unsupported type %T: %w", v, model.ErrFormat)
	}
}

func complete(row model.RawRecord, fields []string) bool {
	for _, f := range fields {
		if v, ok := row[f]; !ok || v == nil {
			return false
		}
	}
	return true
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}
