package model

// RawRecord is one decoded input line, keyed by JSON field name.
type RawRecord map[string]any

// Table is the in-memory tabular form of the raw input.
type Table struct {
	Columns []string // union of field names, in first-seen order
	Rows    []RawRecord
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Record is a cleaned review flowing through the pipeline.
type Record struct {
	Text     string    // review body
	Summary  string    // review title, when present
	Overall  float64   // star rating, when present
	Verified bool      // verified purchase flag, when present
	Votes    int       // helpful vote count
	Label    int       // 1 when Votes exceeds the threshold
	Tokens   []string  // normalized tokens
	Vector   []float64 // set by Engine.Features for the strategy that ran last
}

// Texts returns the review bodies of records, in order.
func Texts(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

// Labels returns the target labels of records, in order.
func Labels(records []Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Label
	}
	return out
}
