package output

import "strings"

// Verbosity controls how much of a Report is written.
type Verbosity int

const (
	// Minimal keeps the metrics and drops diagnostics.
	Minimal Verbosity = iota
	// Standard adds the vote statistics and chosen parameters.
	Standard
	// Full adds the per-fold cross-validation table.
	Full
)

// ParseVerbosity maps "minimal", "standard" and "full" to a Verbosity.
// Unknown strings default to Standard.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal
	case "full":
		return Full
	default:
		return Standard
	}
}

// FormatReport returns a copy of r with fields stripped according to verbosity.
// At Minimal: Votes, Params and the CV table are dropped (omitted from JSON via omitempty).
// At Standard: only the CV table is dropped.
// At Full: all fields preserved.
func FormatReport(r Report, verbosity Verbosity) Report {
	if verbosity < Full {
		r.CVTable = nil
	}
	if verbosity == Minimal {
		r.Votes = nil
		r.Params = nil
	}
	return r
}
