package domain

import "math"

// Candidate is an unverified location name extracted from thread text.
type Candidate struct {
	RawName   string
	ThreadRef string
	// Weight is derived from the engagement score of the comment or post
	// the mention came from. See MentionWeight.
	Weight float64
}

// AggregatedCandidate merges all mentions of one canonical location name.
type AggregatedCandidate struct {
	// Key is the canonical (normalized) form used for merging.
	Key string
	// Name is the display form: the most specific (longest) raw name seen.
	Name     string
	Mentions int
	RawScore float64
}

// MentionWeight maps an engagement score to a mention weight:
// 1 + ln(1+score). Monotonic with diminishing returns, so a single heavily
// upvoted mention cannot outrank consensus across many threads. Negative
// scores clamp to the base weight.
func MentionWeight(engagement int) float64 {
	if engagement < 0 {
		engagement = 0
	}
	return 1 + math.Log1p(float64(engagement))
}
