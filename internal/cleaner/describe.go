package cleaner

import (
	"github.com/montanaflynn/stats"

	"github.com/crimson-sun/helpful/internal/model"
)

// VoteStats summarizes the vote distribution for diagnostics. It never feeds
// back into the label threshold.
type VoteStats struct {
	Count         int     `json:"count"`
	Mean          float64 `json:"mean"`
	Std           float64 `json:"std"`
	Min           float64 `json:"min"`
	Q1            float64 `json:"q1"`
	Median        float64 `json:"median"`
	Q3            float64 `json:"q3"`
	Max           float64 `json:"max"`
	Positives     int     `json:"positives"`
	ThresholdRank float64 `json:"threshold_rank"` // percentile rank of the threshold, "rank" kind
}

// Describe computes VoteStats for records against threshold.
func Describe(records []model.Record, threshold int) (VoteStats, error) {
	out := VoteStats{Count: len(records)}
	if len(records) == 0 {
		return out, nil
	}
	data := make(stats.Float64Data, len(records))
	for i, r := range records {
		data[i] = float64(r.Votes)
		out.Positives += r.Label
	}

	var err error
	if out.Mean, err = data.Mean(); err != nil {
		return out, err
	}
	if len(data) > 1 {
		if out.Std, err = data.StandardDeviationSample(); err != nil {
			return out, err
		}
	}
	if out.Min, err = data.Min(); err != nil {
		return out, err
	}
	if out.Max, err = data.Max(); err != nil {
		return out, err
	}
	if out.Median, err = data.Median(); err != nil {
		return out, err
	}
	if q, qerr := stats.Quartile(data); qerr == nil {
		out.Q1, out.Q3 = q.Q1, q.Q3
	}
	out.ThresholdRank = PercentileRank(data, float64(threshold))
	return out, nil
}

// PercentileRank returns the percentage of data at or below score, averaging
// the strict and weak ranks the way a "rank" percentile-of-score does.
func PercentileRank(data []float64, score float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var left, right int
	for _, v := range data {
		if v < score {
			left++
		}
		if v <= score {
			right++
		}
	}
	plus1 := 0
	if right > left {
		plus1 = 1
	}
	return float64(left+right+plus1) * 50.0 / float64(len(data))
}
