package output

import (
	"testing"

	"github.com/crimson-sun/helpful/internal/cleaner"
	"github.com/crimson-sun/helpful/internal/engine"
	"github.com/crimson-sun/helpful/internal/engine/classifier"
	"github.com/crimson-sun/helpful/internal/engine/evaluate"
	"github.com/crimson-sun/helpful/internal/engine/selection"
)

func baseReport() Report {
	return Report{
		Source:  "reviews.json.gz",
		Records: 60,
		Votes:   &cleaner.VoteStats{Count: 60, Positives: 20},
		Outcome: engine.Outcome{
			Strategy: "tfidf",
			Family:   "mlp",
			Mode:     "grid",
			Params:   classifier.Params{"alpha": 0.001},
			CVScore:  0.8,
			CVTable:  []selection.Score{{Combination: 0, Params: "alpha=0.001", Fold: 0, AUC: 0.8}},
			Test:     evaluate.Report{Accuracy: 0.9, AUC: 0.85, F1: 0.7, Support: 12},
		},
	}
}

func TestFormatReportMinimal(t *testing.T) {
	r := FormatReport(baseReport(), Minimal)

	if r.Votes != nil {
		t.Fatal("Votes should be nil at Minimal")
	}
	if r.Params != nil {
		t.Fatal("Params should be nil at Minimal")
	}
	if r.CVTable != nil {
		t.Fatal("CVTable should be nil at Minimal")
	}
	if r.Test.AUC != 0.85 {
		t.Fatal("Test metrics should be preserved")
	}
}

func TestFormatReportStandard(t *testing.T) {
	r := FormatReport(baseReport(), Standard)

	if r.Votes == nil || r.Params == nil {
		t.Fatal("Votes and Params should be preserved at Standard")
	}
	if r.CVTable != nil {
		t.Fatal("CVTable should be nil at Standard")
	}
}

func TestFormatReportFull(t *testing.T) {
	r := FormatReport(baseReport(), Full)
	if len(r.CVTable) != 1 {
		t.Fatalf("CVTable has %d rows at Full, want 1", len(r.CVTable))
	}
}

func TestFormatReportDoesNotMutate(t *testing.T) {
	orig := baseReport()
	_ = FormatReport(orig, Minimal)
	if orig.Votes == nil || orig.CVTable == nil {
		t.Fatal("FormatReport modified its argument")
	}
}

func TestParseVerbosity(t *testing.T) {
	tests := map[string]Verbosity{
		"minimal":  Minimal,
		"FULL":     Full,
		"standard": Standard,
		"bogus":    Standard,
	}
	for in, want := range tests {
		if got := ParseVerbosity(in); got != want {
			t.Errorf("ParseVerbosity(%q) = %v, want %v", in, got, want)
		}
	}
}
