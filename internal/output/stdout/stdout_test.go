package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/crimson-sun/helpful/internal/cleaner"
	"github.com/crimson-sun/helpful/internal/engine"
	"github.com/crimson-sun/helpful/internal/engine/classifier"
	"github.com/crimson-sun/helpful/internal/engine/evaluate"
	"github.com/crimson-sun/helpful/internal/output"
)

func testReport() output.Report {
	return output.Report{
		Source:  "reviews.json.gz",
		Records: 60,
		Votes:   &cleaner.VoteStats{Count: 60, Positives: 20},
		Outcome: engine.Outcome{
			Strategy: "w2v-mean",
			Family:   "svm",
			Mode:     "plain",
			Params:   classifier.Params{"C": 1.0},
			Test: evaluate.Report{
				Accuracy:  0.9,
				AUC:       0.95,
				F1:        0.8,
				Confusion: [2][2]int{{10, 1}, {1, 6}},
				Support:   18,
			},
		},
	}
}

// captureStdout redirects os.Stdout to capture output.
func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestOutputCompactJSON(t *testing.T) {
	result := captureStdout(func() {
		out := New(output.Standard, false)
		out.Write(context.Background(), testReport())
	})

	// Should be single line (NDJSON).
	lines := strings.Split(strings.TrimSpace(result), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["strategy"] != "w2v-mean" {
		t.Fatalf("expected strategy=w2v-mean, got %v", m["strategy"])
	}
	test, ok := m["test"].(map[string]any)
	if !ok {
		t.Fatalf("test report missing: %v", m)
	}
	if test["auc"] != 0.95 {
		t.Fatalf("expected test.auc=0.95, got %v", test["auc"])
	}
}

func TestOutputPrettyJSON(t *testing.T) {
	result := captureStdout(func() {
		out := New(output.Standard, true)
		out.Write(context.Background(), testReport())
	})

	if !strings.Contains(result, "  ") {
		t.Fatal("expected indented output for pretty mode")
	}
	lines := strings.Split(strings.TrimSpace(result), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected multi-line pretty output, got %d lines", len(lines))
	}
}

func TestOutputMinimalOmitsFields(t *testing.T) {
	result := captureStdout(func() {
		out := New(output.Minimal, false)
		out.Write(context.Background(), testReport())
	})

	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(result)), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if _, ok := m["votes"]; ok {
		t.Fatal("votes should be omitted at Minimal")
	}
	if _, ok := m["params"]; ok {
		t.Fatal("params should be omitted at Minimal")
	}
	if m["family"] != "svm" {
		t.Fatalf("family should be preserved, got %v", m["family"])
	}
}
