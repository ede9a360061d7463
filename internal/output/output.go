package output

import (
	"context"

	"github.com/crimson-sun/helpful/internal/cleaner"
	"github.com/crimson-sun/helpful/internal/engine"
)

// Report is the result of one experiment over one input file.
type Report struct {
	Source     string             `json:"source"`
	Records    int                `json:"records"`
	Votes      *cleaner.VoteStats `json:"votes,omitempty"`
	Embeddings string             `json:"embeddings,omitempty"` // path the word2vec table was saved to
	engine.Outcome
}

// Output defines the interface for report destinations.
type Output interface {
	Write(ctx context.Context, r Report) error
	Close() error
}
