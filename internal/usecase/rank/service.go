// Package rank scores verified locations by blending community mention
// weight with rating quality, then orders the result set deterministically.
package rank

import (
	"math"
	"sort"

	"github.com/wildpath/naturescout/internal/domain"
)

// Weights blends the two scoring signals. They must sum to 1.
type Weights struct {
	Community float64
	Rating    float64
}

// DefaultWeights favors community signal over rating signal.
func DefaultWeights() Weights {
	return Weights{Community: 0.6, Rating: 0.4}
}

// Score computes final scores in place and returns the set ordered by
// descending FinalScore with deterministic tie-breaks. Normalization is
// min-max within the input set, so scores are comparable only within one
// partition.
func Score(locations []domain.RankedLocation, w Weights) []domain.RankedLocation {
	if len(locations) == 0 {
		return locations
	}

	community := make([]float64, len(locations))
	quality := make([]float64, len(locations))
	for i, loc := range locations {
		community[i] = loc.RawScore
		quality[i] = loc.Rating * math.Log1p(float64(loc.ReviewCount))
	}

	normCommunity := normalize(community)
	normQuality := normalize(quality)

	for i := range locations {
		locations[i].FinalScore = w.Community*normCommunity[i] + w.Rating*normQuality[i]
	}

	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].Less(locations[j])
	})
	return locations
}

// normalize maps values onto [0,1] via min-max. A degenerate set (all
// values equal) maps to 1.0 when the shared value is positive, 0 otherwise.
func normalize(vals []float64) []float64 {
	minV, maxV := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	out := make([]float64, len(vals))
	if maxV == minV {
		if maxV > 0 {
			for i := range out {
				out[i] = 1.0
			}
		}
		return out
	}

	span := maxV - minV
	for i, v := range vals {
		out[i] = (v - minV) / span
	}
	return out
}
