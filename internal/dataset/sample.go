package dataset

import (
	"fmt"
	"math/rand"

	"github.com/crimson-sun/helpful/internal/model"
)

// StratifiedSample draws pos positive and neg negative records without
// replacement and shuffles the result. It fails when a class has fewer
// records than requested.
func StratifiedSample(records []model.Record, pos, neg int, seed int64) ([]model.Record, error) {
	var positives, negatives []model.Record
	for _, r := range records {
		if r.Label == 1 {
			positives = append(positives, r)
		} else {
			negatives = append(negatives, r)
		}
	}
	if len(positives) < pos {
		return nil, fmt.Errorf("dataset: want %d positive records, have %d: %w", pos, len(positives), model.ErrInsufficientSamples)
	}
	if len(negatives) < neg {
		return nil, fmt.Errorf("dataset: want %d negative records, have %d: %w", neg, len(negatives), model.ErrInsufficientSamples)
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]model.Record, 0, pos+neg)
	out = append(out, pick(rng, positives, pos)...)
	out = append(out, pick(rng, negatives, neg)...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

func pick(rng *rand.Rand, from []model.Record, n int) []model.Record {
	perm := rng.Perm(len(from))
	out := make([]model.Record, n)
	for i := 0; i < n; i++ {
		out[i] = from[perm[i]]
	}
	return out
}
